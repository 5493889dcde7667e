package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordwire/internal/ipc"
)

func TestSlowConnectionDropsInsteadOfBlocking(t *testing.T) {
	r := NewRegistry(nil)
	c := r.Add("uA", "alice", false)

	env := ipc.MustWrap(ipc.ServerMessage{Message: "hi"})
	for i := 0; i < sendBuffer; i++ {
		require.True(t, c.Send(env))
	}
	// Buffer full: broadcast must return, not block.
	r.ToConn(c, env)
	assert.False(t, c.Send(env))
}

func TestToUserReachesEveryConnection(t *testing.T) {
	r := NewRegistry(nil)
	c1 := r.Add("uA", "alice", false)
	c2 := r.Add("uA", "alice", false)

	r.ToUser("uA", ipc.MustWrap(ipc.ServerMessage{Message: "hi"}))
	assert.Len(t, c1.send, 1)
	assert.Len(t, c2.send, 1)
}

func TestRealmScoping(t *testing.T) {
	r := NewRegistry(nil)
	in := r.Add("uA", "alice", false)
	out := r.Add("uB", "bob", false)
	r.Subscribe(in, ipc.GameRealm("g1"))

	r.ToRealm(ipc.GameRealm("g1"), ipc.MustWrap(ipc.ServerMessage{Message: "hi"}))
	assert.Len(t, in.send, 1)
	assert.Empty(t, out.send)
}

func TestDivisionRealmRollsUpToTournament(t *testing.T) {
	r := NewRegistry(nil)
	c := r.Add("uA", "alice", false)
	r.Subscribe(c, "tournament.t1")

	// One tournament-level join receives division-scoped broadcasts too.
	r.ToRealm(ipc.TournamentRealm("t1", "A"), ipc.MustWrap(ipc.ServerMessage{Message: "hi"}))
	assert.Len(t, c.send, 1)

	r.ToRealm(ipc.TournamentRealm("t2", "A"), ipc.MustWrap(ipc.ServerMessage{Message: "hi"}))
	assert.Len(t, c.send, 1, "other tournaments stay quiet")
}

func TestRemoveClosesOutboxAndUnsubscribes(t *testing.T) {
	r := NewRegistry(nil)
	c := r.Add("uA", "alice", false)
	r.Subscribe(c, ipc.LobbyRealm)

	r.Remove(c)
	_, open := <-c.Outbox()
	assert.False(t, open)

	// Post-removal broadcasts must not panic on the closed channel.
	r.ToRealm(ipc.LobbyRealm, ipc.MustWrap(ipc.ServerMessage{Message: "hi"}))
	r.ToUser("uA", ipc.MustWrap(ipc.ServerMessage{Message: "hi"}))
}
