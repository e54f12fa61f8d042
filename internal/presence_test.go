package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAnnouncesJoinToOthers(t *testing.T) {
	presence := NewPresenceTracker()
	alice := newMockConn("c1", "alice")
	presence.Register(alice)

	bob := newMockConn("c2", "bob")
	presence.Register(bob)

	joins := alice.eventsOfType(EventUserStatus)
	require.Len(t, joins, 1)
	assert.Equal(t, "bob", joins[0].Identity)
	assert.Equal(t, ActionJoin, joins[0].Action)
}

func TestRegisterSendsSnapshotToNewcomer(t *testing.T) {
	presence := NewPresenceTracker()
	presence.Register(newMockConn("c1", "alice"))
	presence.Register(newMockConn("c2", "alice")) // second connection, same identity
	presence.Register(newMockConn("c3", "carol"))

	bob := newMockConn("c4", "bob")
	presence.Register(bob)

	snapshot := bob.eventsOfType(EventUserStatus)
	identities := make([]string, 0, len(snapshot))
	for _, event := range snapshot {
		identities = append(identities, event.Identity)
	}
	assert.ElementsMatch(t, []string{"alice", "carol"}, identities, "one entry per distinct identity")
}

func TestRegisterSnapshotExcludesOwnIdentity(t *testing.T) {
	presence := NewPresenceTracker()
	presence.Register(newMockConn("c1", "alice"))

	second := newMockConn("c2", "alice")
	presence.Register(second)
	assert.Empty(t, second.eventsOfType(EventUserStatus))
}

func TestUnregisterAnnouncesLeave(t *testing.T) {
	presence := NewPresenceTracker()
	alice := newMockConn("c1", "alice")
	bob := newMockConn("c2", "bob")
	presence.Register(alice)
	presence.Register(bob)
	alice.reset()

	presence.Unregister(bob)

	leaves := alice.eventsOfType(EventUserStatus)
	require.Len(t, leaves, 1)
	assert.Equal(t, "bob", leaves[0].Identity)
	assert.Equal(t, ActionLeave, leaves[0].Action)

	// unregistering twice is silent.
	alice.reset()
	presence.Unregister(bob)
	assert.Empty(t, alice.recorded())
}

func TestFindByIdentity(t *testing.T) {
	presence := NewPresenceTracker()
	bob := newMockConn("c1", "bob")
	presence.Register(bob)

	found := presence.FindByIdentity("bob")
	require.NotNil(t, found)
	assert.Equal(t, "c1", found.ID())
	assert.Nil(t, presence.FindByIdentity("nobody"))
}

func TestOnlineIdentitiesSortedAndDistinct(t *testing.T) {
	presence := NewPresenceTracker()
	presence.Register(newMockConn("c1", "carol"))
	presence.Register(newMockConn("c2", "alice"))
	presence.Register(newMockConn("c3", "alice"))

	assert.Equal(t, []string{"alice", "carol"}, presence.OnlineIdentities())
	assert.Equal(t, 3, presence.ActiveCount())
}
