package internal

import (
	"log"
	"sync"
)

// Registry tracks which connections are subscribed to which private room.
// Subscriptions outlive room switches on purpose: a connection that once
// opened a room keeps receiving its events so late private messages can
// still reach it, and only disconnecting drops the subscriptions. What the
// participant is currently looking at is the client's concern.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]map[string]Conn)}
}

// Subscribe adds the connection to the room's delivery set. Subscribing
// twice is a no-op.
func (r *Registry) Subscribe(conn Conn, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]Conn)
		r.rooms[roomID] = members
	}
	members[conn.ID()] = conn
}

// Subscribed reports whether the connection is in the room's delivery set.
func (r *Registry) Subscribed(connID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID][connID]
	return ok
}

// DeliverToRoom fans the event out to every subscriber and returns how
// many deliveries were queued.
func (r *Registry) DeliverToRoom(roomID string, event Event) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	delivered := 0
	for _, conn := range r.rooms[roomID] {
		if err := conn.Send(event); err != nil {
			log.Printf("deliver to %s in %s: %v", conn.ID(), roomID, err)
			continue
		}
		delivered++
	}
	return delivered
}

// Drop removes the connection from every room, deleting delivery sets
// that end up empty.
func (r *Registry) Drop(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for roomID, members := range r.rooms {
		delete(members, conn.ID())
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
}

// RoomSize reports the number of subscribers in a room.
func (r *Registry) RoomSize(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}
