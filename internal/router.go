package internal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"relaychat/internal/room"
	"relaychat/internal/storage"
)

// ErrProtocol is returned for malformed inbound events. The connection
// stays alive; the event is dropped with a log line.
var ErrProtocol = errors.New("malformed event")

// ErrRouting is returned when a private message names a target with no
// live connection. Delivery degrades to the stored mailbox; the message
// surfaces on the recipient's next join.
var ErrRouting = errors.New("target identity not connected")

// HistoryStore is the slice of the storage API the router depends on.
type HistoryStore interface {
	AppendGeneral(ctx context.Context, content, author string) (int64, error)
	AppendPrivate(ctx context.Context, content, sender, receiver, roomID string) (int64, error)
	GeneralSince(ctx context.Context, offset int64, limit int) ([]storage.GeneralMessage, error)
	GeneralRecent(ctx context.Context, limit int) ([]storage.GeneralMessage, error)
	PrivateHistory(ctx context.Context, roomID string, limit int) ([]storage.PrivateMessage, error)
}

// RouterConfig carries the router's collaborators and policy switches.
type RouterConfig struct {
	Store   HistoryStore
	Metrics *Metrics
	// NotifySendFailures surfaces a failed append to the sender as an
	// error event instead of degrading silently.
	NotifySendFailures bool
}

// Router is the central dispatcher: it receives inbound events, persists
// them, determines the delivery set, and emits outbound events. It owns
// the presence tracker and the room registry; callers only see the
// operations below.
type Router struct {
	store          HistoryStore
	presence       *PresenceTracker
	registry       *Registry
	metrics        *Metrics
	notifyFailures bool

	// sendMu makes "assign id, then broadcast that id" one ordered unit.
	// General ids are a single global sequence, so every send serializes
	// here; per-room ordering for private rooms follows for free.
	sendMu sync.Mutex
}

func NewRouter(cfg RouterConfig) *Router {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Router{
		store:          cfg.Store,
		presence:       NewPresenceTracker(),
		registry:       NewRegistry(),
		metrics:        metrics,
		notifyFailures: cfg.NotifySendFailures,
	}
}

// Presence exposes the tracker for read-only surfaces such as /online.
func (r *Router) Presence() *PresenceTracker { return r.presence }

// Connect registers the connection's presence and runs the one-time replay
// policy. A resumed session skips replay entirely; a fresh one receives
// every general message above its declared offset, oldest first, capped at
// the replay window. Negative offsets are clamped to zero since they are
// client-asserted.
func (r *Router) Connect(ctx context.Context, conn Conn, offset int64, recovered bool) {
	r.metrics.IncConn()
	r.presence.Register(conn)
	if recovered {
		return
	}
	if offset < 0 {
		offset = 0
	}
	messages, err := r.store.GeneralSince(ctx, offset, storage.DefaultSinceLimit)
	if err != nil {
		// replay degrades to no history, never aborts the connection.
		log.Printf("connect replay for %s: %v", conn.ID(), err)
		return
	}
	for _, msg := range messages {
		r.sendGeneralEvent(conn, msg)
	}
	if len(messages) > 0 {
		r.metrics.IncReplay()
	}
}

// Disconnect drops the connection from every room and announces the
// leave. Deliveries already queued to other connections are unaffected.
func (r *Router) Disconnect(conn Conn) {
	r.registry.Drop(conn)
	r.presence.Unregister(conn)
	r.metrics.DecConn()
}

// SendGeneral appends to the general stream and broadcasts the assigned
// id to every connected participant. General delivery is an unconditional
// broadcast: membership in "general" is the absence of a private context,
// not a subscription. A failed append aborts the broadcast.
func (r *Router) SendGeneral(ctx context.Context, conn Conn, content string) error {
	if content == "" {
		return fmt.Errorf("%w: empty general message", ErrProtocol)
	}
	r.sendMu.Lock()
	defer r.sendMu.Unlock()

	id, err := r.store.AppendGeneral(ctx, content, conn.Identity())
	if err != nil {
		r.reportSendFailure(conn, "message not delivered")
		return err
	}
	event := Event{Type: EventGeneralMessage, Content: content, ID: id, Author: conn.Identity()}
	for _, other := range r.presence.Connections() {
		if err := other.Send(event); err != nil {
			log.Printf("general broadcast to %s: %v", other.ID(), err)
		}
	}
	r.metrics.IncGeneral()
	return nil
}

// SendPrivate persists a private message and delivers it to the room.
// Persistence is best-effort here: a write failure degrades durability
// but live delivery still happens. Before fan-out both participants are
// subscribed — the sender in case it never joined explicitly, the target
// so the message reaches it even while it is viewing another room.
func (r *Router) SendPrivate(ctx context.Context, conn Conn, content, roomID, target string) error {
	if content == "" || target == "" {
		return fmt.Errorf("%w: private message needs content and target", ErrProtocol)
	}
	if roomID == "" {
		roomID = room.ID(conn.Identity(), target)
	}
	r.sendMu.Lock()
	defer r.sendMu.Unlock()

	r.registry.Subscribe(conn, roomID)
	if _, err := r.store.AppendPrivate(ctx, content, conn.Identity(), target, roomID); err != nil {
		log.Printf("private append in %s: %v", roomID, err)
		r.reportSendFailure(conn, "message delivered but not saved")
	}
	routeErr := r.ensureSubscribed(target, roomID)
	event := Event{Type: EventPrivateMessage, Content: content, Author: conn.Identity(), RoomID: roomID}
	r.registry.DeliverToRoom(roomID, event)
	r.metrics.IncPrivate()
	return routeErr
}

// JoinGeneral replays the most recent slice of the general stream and
// tells the connection the new high-water id to base future incremental
// replays on. A zero LastID resets the client to the recent-N path.
func (r *Router) JoinGeneral(ctx context.Context, conn Conn) error {
	messages, err := r.store.GeneralRecent(ctx, storage.DefaultRecentLimit)
	if err != nil {
		log.Printf("general history for %s: %v", conn.ID(), err)
		return nil
	}
	var lastID int64
	for _, msg := range messages {
		r.sendGeneralEvent(conn, msg)
		lastID = msg.ID
	}
	if err := conn.Send(Event{Type: EventResetOffset, LastID: lastID}); err != nil {
		log.Printf("reset offset to %s: %v", conn.ID(), err)
	}
	r.metrics.IncReplay()
	return nil
}

// JoinPrivate subscribes the connection to the room and replays its
// history window. Rejoining an already-subscribed room is a routing no-op
// but still replays.
func (r *Router) JoinPrivate(ctx context.Context, conn Conn, roomID string) error {
	if roomID == "" {
		return fmt.Errorf("%w: join without room id", ErrProtocol)
	}
	r.registry.Subscribe(conn, roomID)
	history, err := r.store.PrivateHistory(ctx, roomID, storage.DefaultHistoryLimit)
	if err != nil {
		log.Printf("private history %s for %s: %v", roomID, conn.ID(), err)
		return nil
	}
	for _, msg := range history {
		event := Event{
			Type:     EventPrivateHistory,
			Content:  msg.Content,
			Sender:   msg.Sender,
			Receiver: msg.Receiver,
			RoomID:   msg.RoomID,
		}
		if err := conn.Send(event); err != nil {
			log.Printf("history replay to %s: %v", conn.ID(), err)
		}
	}
	r.metrics.IncReplay()
	return nil
}

// ensureSubscribed resolves a live connection for the identity and adds it
// to the room's delivery set. An offline identity is not an error worth
// aborting for; the stored history reaches it on its next join.
func (r *Router) ensureSubscribed(identity, roomID string) error {
	recipient := r.presence.FindByIdentity(identity)
	if recipient == nil {
		return fmt.Errorf("%w: %q", ErrRouting, identity)
	}
	r.registry.Subscribe(recipient, roomID)
	return nil
}

func (r *Router) sendGeneralEvent(conn Conn, msg storage.GeneralMessage) {
	event := Event{Type: EventGeneralMessage, Content: msg.Content, ID: msg.ID, Author: msg.Author}
	if err := conn.Send(event); err != nil {
		log.Printf("replay to %s: %v", conn.ID(), err)
	}
}

func (r *Router) reportSendFailure(conn Conn, reason string) {
	if !r.notifyFailures {
		return
	}
	if err := conn.Send(Event{Type: EventError, Reason: reason}); err != nil {
		log.Printf("error event to %s: %v", conn.ID(), err)
	}
}
