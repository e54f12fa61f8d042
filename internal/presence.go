package internal

import (
	"log"
	"sort"
	"sync"
)

// PresenceTracker keeps the live set of connections and their identities.
// Presence is connection-scoped: two connections sharing an identity are
// two independent entries.
type PresenceTracker struct {
	mu    sync.Mutex
	conns map[string]Conn
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{conns: make(map[string]Conn)}
}

// Register adds a connection, announces the join to everyone else, and
// feeds the newcomer one status event per other online identity so it can
// render presence without waiting for future joins. The newcomer's own
// identity is excluded in both directions.
func (p *PresenceTracker) Register(conn Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[conn.ID()] = conn

	joined := Event{Type: EventUserStatus, Identity: conn.Identity(), Action: ActionJoin}
	seen := make(map[string]struct{})
	for id, other := range p.conns {
		if id == conn.ID() {
			continue
		}
		if err := other.Send(joined); err != nil {
			log.Printf("presence join to %s: %v", other.ID(), err)
		}
		if other.Identity() == conn.Identity() {
			continue
		}
		if _, ok := seen[other.Identity()]; ok {
			continue
		}
		seen[other.Identity()] = struct{}{}
		if err := conn.Send(Event{Type: EventUserStatus, Identity: other.Identity(), Action: ActionJoin}); err != nil {
			log.Printf("presence snapshot to %s: %v", conn.ID(), err)
		}
	}
}

// Unregister removes a connection and announces the leave to everyone
// still connected, including other connections of the same identity.
func (p *PresenceTracker) Unregister(conn Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.conns[conn.ID()]; !ok {
		return
	}
	delete(p.conns, conn.ID())

	left := Event{Type: EventUserStatus, Identity: conn.Identity(), Action: ActionLeave}
	for _, other := range p.conns {
		if err := other.Send(left); err != nil {
			log.Printf("presence leave to %s: %v", other.ID(), err)
		}
	}
}

// FindByIdentity returns a live connection for the identity, or nil when
// it is offline. With several connections sharing an identity the first
// match in enumeration order wins.
func (p *PresenceTracker) FindByIdentity(identity string) Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, conn := range p.conns {
		if conn.Identity() == identity {
			return conn
		}
	}
	return nil
}

// Connections returns a snapshot of every live connection.
func (p *PresenceTracker) Connections() []Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	conns := make([]Conn, 0, len(p.conns))
	for _, conn := range p.conns {
		conns = append(conns, conn)
	}
	return conns
}

// OnlineIdentities returns the distinct identities currently connected,
// sorted for stable output.
func (p *PresenceTracker) OnlineIdentities() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	seen := make(map[string]struct{}, len(p.conns))
	for _, conn := range p.conns {
		seen[conn.Identity()] = struct{}{}
	}
	identities := make([]string, 0, len(seen))
	for identity := range seen {
		identities = append(identities, identity)
	}
	sort.Strings(identities)
	return identities
}

// ActiveCount reports the number of live connections.
func (p *PresenceTracker) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}
