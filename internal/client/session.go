// Package client holds the connection-local protocol state: the general
// stream offset used to bound replay on reconnect, and the deferred
// notification inbox for private messages that arrive while the
// participant is viewing another room. None of it is server-authoritative;
// losing it costs convenience, not messages.
package client

import (
	"sync"
	"time"

	"relaychat/internal/room"
)

// Disposition says what the presentation layer should do with a delivered
// private message.
type Disposition int

const (
	// Ignore drops the event: it is the sender's own echo or it belongs
	// to a room this participant is not part of.
	Ignore Disposition = iota
	// Inline displays the message in the open room.
	Inline
	// Deferred parked the message as a pending notification.
	Deferred
)

// Notification marks that a sender has unread private messages waiting.
type Notification struct {
	Sender string
	RoomID string
	At     time.Time
}

// Session tracks one connection's room context, offset, and pending
// notifications. The connection is the sole owner of this state.
type Session struct {
	mu       sync.Mutex
	identity string
	offset   int64
	room     string // empty means the general room
	peer     string
	pending  []Notification
}

func NewSession(identity string) *Session {
	return &Session{identity: identity}
}

func (s *Session) Identity() string { return s.identity }

// Offset returns the last general-message id this session acknowledged.
// It seeds the replay request on the next reconnect.
func (s *Session) Offset() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

// Room returns the active private room id, or empty in the general room.
func (s *Session) Room() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// Peer returns the other participant of the active private room.
func (s *Session) Peer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

func (s *Session) InGeneral() bool {
	return s.Room() == ""
}

// OpenPrivate switches the context to the private room with peer and
// clears any pending notification from them. Opening a chat with yourself
// is refused.
func (s *Session) OpenPrivate(peer string) (string, bool) {
	if peer == s.identity || peer == "" {
		return "", false
	}
	roomID := room.ID(s.identity, peer)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.room = roomID
	s.peer = peer
	s.clearLocked(peer)
	return roomID, true
}

// ReturnToGeneral switches back to the general room and resets the offset
// to zero, so the next replay takes the recent-N path instead of the
// offset-filtered one.
func (s *Session) ReturnToGeneral() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.room = ""
	s.peer = ""
	s.offset = 0
}

// ObserveGeneral records a delivered general message, advancing the
// offset, and reports whether it should be displayed inline. Messages are
// displayed only while the general room is open; the offset advances
// either way.
func (s *Session) ObserveGeneral(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id > s.offset {
		s.offset = id
	}
	return s.room == ""
}

// ApplyResetOffset installs the high-water id announced after a
// return-to-general replay.
func (s *Session) ApplyResetOffset(lastID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = lastID
}

// ObservePrivate classifies a delivered private message. The event is
// accepted only when the room id matches the one derived for (self,
// author) and the author is someone else; otherwise it is an echo or
// cross-talk from a room subscription that outlived its context. Accepted
// messages display inline when their room is open and become a pending
// notification when it is not.
func (s *Session) ObservePrivate(author, roomID string) Disposition {
	if author == s.identity {
		return Ignore
	}
	if room.ID(s.identity, author) != roomID {
		return Ignore
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room == roomID {
		return Inline
	}
	for _, n := range s.pending {
		if n.Sender == author {
			// already notified; a second message adds nothing.
			return Deferred
		}
	}
	s.pending = append(s.pending, Notification{Sender: author, RoomID: roomID, At: time.Now()})
	return Deferred
}

// ObserveHistory reports whether a replayed private-history item belongs
// to the open room. History never creates notifications.
func (s *Session) ObserveHistory(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room == roomID
}

// Notifications returns the pending inbox, oldest first.
func (s *Session) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.pending))
	copy(out, s.pending)
	return out
}

// ClearNotification removes the pending entry for a sender, if any.
func (s *Session) ClearNotification(sender string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked(sender)
}

func (s *Session) clearLocked(sender string) {
	kept := s.pending[:0]
	for _, n := range s.pending {
		if n.Sender != sender {
			kept = append(kept, n)
		}
	}
	s.pending = kept
}
