package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinThenLeaveRestoresChannel(t *testing.T) {
	tr := NewTracker()
	before := tr.Snapshot("lobby")

	delta, fresh := tr.Join("u1", "cesar", "lobby", false)
	require.True(t, fresh)
	assert.Equal(t, "cesar", delta.Username)
	assert.False(t, delta.Deleting)

	tomb, gone := tr.Leave("u1", "lobby")
	require.True(t, gone)
	assert.True(t, tomb.Deleting)
	assert.Equal(t, "lobby", tomb.Channel)

	after := tr.Snapshot("lobby")
	assert.Equal(t, before, after, "presence set should match pre-join state")
}

func TestLeaveUnknownChannelIsNoop(t *testing.T) {
	tr := NewTracker()
	_, gone := tr.Leave("u1", "lobby")
	assert.False(t, gone)

	tr.Join("u1", "cesar", "lobby", false)
	_, gone = tr.Leave("u1", "game.g1")
	assert.False(t, gone)
	assert.Len(t, tr.Snapshot("lobby").Presences, 1)
}

func TestCountedJoins(t *testing.T) {
	tr := NewTracker()
	_, fresh := tr.Join("u1", "cesar", "lobby", false)
	require.True(t, fresh)
	_, fresh = tr.Join("u1", "cesar", "lobby", false)
	assert.False(t, fresh, "second tab should not produce a fresh delta")

	_, gone := tr.Leave("u1", "lobby")
	assert.False(t, gone, "first leave only decrements")
	_, gone = tr.Leave("u1", "lobby")
	assert.True(t, gone)
}

func TestSnapshotOrderedAndScoped(t *testing.T) {
	tr := NewTracker()
	tr.Join("u2", "mina", "lobby", false)
	tr.Join("u1", "cesar", "lobby", true)
	tr.Join("u3", "zed", "game.g1", false)

	snap := tr.Snapshot("lobby")
	require.Len(t, snap.Presences, 2)
	assert.Equal(t, "cesar", snap.Presences[0].Username)
	assert.True(t, snap.Presences[0].IsAnonymous)
	assert.Equal(t, "mina", snap.Presences[1].Username)
}

func TestEntryAndLeaveAll(t *testing.T) {
	tr := NewTracker()
	tr.Join("u1", "cesar", "lobby", false)
	tr.Join("u1", "cesar", "game.g1", false)

	entry := tr.Entry("u1")
	assert.Equal(t, []string{"game.g1", "lobby"}, entry.Channels)

	deltas := tr.LeaveAll("u1")
	require.Len(t, deltas, 2)
	for _, d := range deltas {
		assert.True(t, d.Deleting)
	}
	assert.Empty(t, tr.Snapshot("lobby").Presences)
	assert.Empty(t, tr.Entry("u1").Channels)
}
