package internal

// Inbound event types, sent by clients.
const (
	EventSendGeneral = "chat:general"
	EventSendPrivate = "chat:private"
	EventJoinGeneral = "join:general"
	EventJoinPrivate = "join:private"
)

// Outbound event types, emitted by the router. The names match the wire
// format the web client speaks.
const (
	EventGeneralMessage = "chat message"
	EventPrivateMessage = "private message"
	EventPrivateHistory = "private history"
	EventUserStatus     = "user status"
	EventResetOffset    = "reset offset"
	EventError          = "error"
)

// Presence actions carried by user status events.
const (
	ActionJoin  = "join"
	ActionLeave = "leave"
)

// Event is the json envelope both sides of a connection exchange. Fields
// not relevant to a given type are left empty and elided on the wire.
type Event struct {
	Type     string `json:"type"`
	Content  string `json:"content,omitempty"`
	ID       int64  `json:"id,omitempty"`
	Author   string `json:"author,omitempty"`
	Sender   string `json:"sender,omitempty"`
	Receiver string `json:"receiver,omitempty"`
	RoomID   string `json:"roomId,omitempty"`
	Target   string `json:"target,omitempty"`
	Identity string `json:"identity,omitempty"`
	Action   string `json:"action,omitempty"`
	LastID   int64  `json:"lastId,omitempty"`
	Reason   string `json:"reason,omitempty"`
}
