package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeIdempotent(t *testing.T) {
	registry := NewRegistry()
	alice := newMockConn("c1", "alice")

	registry.Subscribe(alice, "alice-bob")
	registry.Subscribe(alice, "alice-bob")

	assert.Equal(t, 1, registry.RoomSize("alice-bob"))
	assert.True(t, registry.Subscribed("c1", "alice-bob"))
}

func TestDeliverToRoomReachesOnlySubscribers(t *testing.T) {
	registry := NewRegistry()
	alice := newMockConn("c1", "alice")
	bob := newMockConn("c2", "bob")
	carol := newMockConn("c3", "carol")
	registry.Subscribe(alice, "alice-bob")
	registry.Subscribe(bob, "alice-bob")
	registry.Subscribe(carol, "alice-carol")

	delivered := registry.DeliverToRoom("alice-bob", Event{Type: EventPrivateMessage, Content: "hi"})

	assert.Equal(t, 2, delivered)
	require.Len(t, alice.recorded(), 1)
	require.Len(t, bob.recorded(), 1)
	assert.Empty(t, carol.recorded())
}

func TestSubscriptionSurvivesUntilDrop(t *testing.T) {
	registry := NewRegistry()
	bob := newMockConn("c1", "bob")
	registry.Subscribe(bob, "alice-bob")

	// joining another room does not cancel the first subscription, so late
	// messages still land.
	registry.Subscribe(bob, "bob-carol")
	registry.DeliverToRoom("alice-bob", Event{Type: EventPrivateMessage, Content: "late"})
	require.Len(t, bob.recorded(), 1)

	registry.Drop(bob)
	assert.False(t, registry.Subscribed("c1", "alice-bob"))
	assert.False(t, registry.Subscribed("c1", "bob-carol"))
	assert.Equal(t, 0, registry.RoomSize("alice-bob"))

	delivered := registry.DeliverToRoom("alice-bob", Event{Type: EventPrivateMessage, Content: "too late"})
	assert.Zero(t, delivered)
	require.Len(t, bob.recorded(), 1)
}
