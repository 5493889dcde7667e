package tourney

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordwire/internal/ipc"
	"wordwire/internal/pair"
)

func fourPlayers() []ipc.TournamentPerson {
	return []ipc.TournamentPerson{
		{ID: "ann", Rating: 1800},
		{ID: "ben", Rating: 1700},
		{ID: "cam", Rating: 1600},
		{ID: "dot", Rating: 1500},
	}
}

func kothControls(rounds int) ([]ipc.RoundControl, ipc.DivisionControls) {
	rcs := make([]ipc.RoundControl, rounds)
	for i := range rcs {
		rcs[i] = ipc.RoundControl{PairingMethod: ipc.PairKingOfTheHill}
	}
	return rcs, ipc.DivisionControls{
		AutoStart:   true,
		GameRequest: ipc.GameRequest{InitialTimeSeconds: 600},
	}
}

func startedDivision(t *testing.T, rounds int) (*Division, Pairer) {
	t.Helper()
	d := NewDivision("t1", "A")
	rcs, controls := kothControls(rounds)
	d.SetControls(controls)
	_, err := d.SetRoundControls(rcs)
	require.NoError(t, err)
	_, err = d.AddPlayers(fourPlayers())
	require.NoError(t, err)
	p := pair.New(42)
	_, err = d.Start(p)
	require.NoError(t, err)
	return d, p
}

// pairedWith finds the opponent ids at a slot.
func slotPlayers(t *testing.T, d *Division, round, index int32) []string {
	t.Helper()
	snap := d.Snapshot()
	p, ok := snap.PairingMap[pairingKey(round, index)]
	require.True(t, ok, "no pairing at %d:%d", round, index)
	out := make([]string, len(p.Players))
	for i, pi := range p.Players {
		out[i] = snap.Players.Persons[pi].ID
	}
	return out
}

func gameEnd(round, index int32, winner, loser string, ws, ls int32) ipc.TournamentGameEndedEvent {
	return ipc.TournamentGameEndedEvent{
		GameID:       winner + loser + pairingKey(round, index),
		TournamentID: "t1",
		Division:     "A",
		Round:        round,
		GameIndex:    index,
		EndReason:    ipc.EndReasonStandard,
		Players: []ipc.TournamentGameEndedPlayer{
			{Username: winner, Score: ws, Result: ipc.ResultWin},
			{Username: loser, Score: ls, Result: ipc.ResultLoss},
		},
	}
}

func TestStartPairsByRating(t *testing.T) {
	d, _ := startedDivision(t, 3)
	assert.Equal(t, int32(0), d.CurrentRound())
	assert.Equal(t, []string{"ann", "ben"}, slotPlayers(t, d, 0, 0))
	assert.Equal(t, []string{"cam", "dot"}, slotPlayers(t, d, 0, 1))
}

func TestSubmitOutcomeIdempotent(t *testing.T) {
	d, p := startedDivision(t, 3)

	evt := gameEnd(0, 0, "ann", "ben", 420, 380)
	_, changed, _, _, err := d.SubmitOutcome(p, evt)
	require.NoError(t, err)
	assert.True(t, changed)

	// Redelivery of the same game id must not double-count.
	_, changed, _, _, err = d.SubmitOutcome(p, evt)
	require.NoError(t, err)
	assert.False(t, changed)

	st := d.Snapshot().Standings[0].Standings
	require.NotEmpty(t, st)
	assert.Equal(t, "ann", st[0].PlayerID)
	assert.Equal(t, int32(1), st[0].Wins)
	assert.Equal(t, int32(40), st[0].Spread)
}

func TestAutoStartAdvancesWhenRoundCompletes(t *testing.T) {
	d, p := startedDivision(t, 3)

	_, _, advanced, _, err := d.SubmitOutcome(p, gameEnd(0, 0, "ann", "ben", 420, 380))
	require.NoError(t, err)
	assert.False(t, advanced, "half-finished round must not advance")

	_, _, advanced, _, err = d.SubmitOutcome(p, gameEnd(0, 1, "cam", "dot", 400, 300))
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, int32(1), d.CurrentRound())

	// Winners meet in the next round under king-of-the-hill.
	assert.ElementsMatch(t, []string{"ann", "cam"}, slotPlayers(t, d, 1, 0))
	assert.ElementsMatch(t, []string{"ben", "dot"}, slotPlayers(t, d, 1, 1))
}

func TestSpreadCapApplied(t *testing.T) {
	d := NewDivision("t1", "A")
	rcs, controls := kothControls(2)
	controls.SpreadCap = 100
	d.SetControls(controls)
	_, err := d.SetRoundControls(rcs)
	require.NoError(t, err)
	_, err = d.AddPlayers(fourPlayers())
	require.NoError(t, err)
	p := pair.New(1)
	_, err = d.Start(p)
	require.NoError(t, err)

	_, _, _, _, err = d.SubmitOutcome(p, gameEnd(0, 0, "ann", "ben", 600, 100))
	require.NoError(t, err)

	st := d.Snapshot().Standings[0].Standings
	assert.Equal(t, "ann", st[0].PlayerID)
	assert.Equal(t, int32(100), st[0].Spread)
}

func TestOddPlayerCountGetsBye(t *testing.T) {
	d := NewDivision("t1", "A")
	rcs, controls := kothControls(2)
	d.SetControls(controls)
	_, err := d.SetRoundControls(rcs)
	require.NoError(t, err)
	_, err = d.AddPlayers(fourPlayers()[:3])
	require.NoError(t, err)
	_, err = d.Start(pair.New(7))
	require.NoError(t, err)

	// The odd player out is self-paired and scores a bye immediately.
	assert.Equal(t, []string{"cam", "cam"}, slotPlayers(t, d, 0, 1))
	st := d.Snapshot().Standings[0].Standings
	assert.Equal(t, "cam", st[0].PlayerID)
	assert.Equal(t, int32(1), st[0].Wins)
	assert.Equal(t, int32(ByeSpread), st[0].Spread)
}

func TestRemoveMidTournamentSuspends(t *testing.T) {
	d, p := startedDivision(t, 3)

	_, err := d.RemovePlayers([]string{"dot"})
	require.NoError(t, err)
	snap := d.Snapshot()
	assert.Len(t, snap.Players.Persons, 4, "started players are suspended, not dropped")
	assert.True(t, snap.Players.Persons[3].Suspended)

	_, _, _, _, err = d.SubmitOutcome(p, gameEnd(0, 0, "ann", "ben", 420, 380))
	require.NoError(t, err)
	_, _, _, _, err = d.SubmitOutcome(p, gameEnd(0, 1, "cam", "dot", 400, 300))
	require.NoError(t, err)

	// dot is out of the round 1 draw; the odd player left gets a bye.
	snap = d.Snapshot()
	for _, pairing := range snap.PairingMap {
		if pairing.Round != 1 {
			continue
		}
		for _, pi := range pairing.Players {
			assert.NotEqual(t, "dot", snap.Players.Persons[pi].ID)
		}
	}
}

func TestManualPairingAndResult(t *testing.T) {
	d := NewDivision("t1", "A")
	d.SetControls(ipc.DivisionControls{})
	_, err := d.SetRoundControls([]ipc.RoundControl{{PairingMethod: ipc.PairManual}})
	require.NoError(t, err)
	_, err = d.AddPlayers(fourPlayers())
	require.NoError(t, err)

	// Manual method refuses algorithmic pairing.
	_, err = d.Start(pair.New(1))
	require.ErrorIs(t, err, pair.ErrManualPairings)

	_, err = d.SetPairing(0, 0, []string{"ann", "dot"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ann", "dot"}, slotPlayers(t, d, 0, 0))
}

func TestReadyHandshakeClearsOnComplete(t *testing.T) {
	d, _ := startedDivision(t, 3)

	rfg := ipc.ReadyForTournamentGame{TournamentID: "t1", Division: "A", Round: 0, GameIndex: 0}

	rfg.PlayerID = "ann"
	all, _, err := d.Ready(rfg)
	require.NoError(t, err)
	assert.False(t, all)

	rfg.PlayerID = "ben"
	all, opponents, err := d.Ready(rfg)
	require.NoError(t, err)
	assert.True(t, all)
	require.Len(t, opponents, 2)
	assert.Equal(t, "ann", opponents[0].ID)
	assert.Equal(t, "ben", opponents[1].ID)

	// Readiness resets once consumed.
	snap := d.Snapshot()
	for _, state := range snap.PairingMap[pairingKey(0, 0)].ReadyStates {
		assert.Empty(t, state)
	}
}

func TestUnreadyRetractsHandshake(t *testing.T) {
	d, _ := startedDivision(t, 3)

	rfg := ipc.ReadyForTournamentGame{TournamentID: "t1", Division: "A", PlayerID: "ann"}
	_, _, err := d.Ready(rfg)
	require.NoError(t, err)

	rfg.Unready = true
	_, _, err = d.Ready(rfg)
	require.NoError(t, err)

	rfg = ipc.ReadyForTournamentGame{TournamentID: "t1", Division: "A", PlayerID: "ben"}
	all, _, err := d.Ready(rfg)
	require.NoError(t, err)
	assert.False(t, all, "retracted ready must count as not ready")
}

func TestResultAfterFinishRecordedButSuppressed(t *testing.T) {
	d, p := startedDivision(t, 3)
	d.Finish()

	_, changed, _, suppressed, err := d.SubmitOutcome(p, gameEnd(0, 0, "ann", "ben", 420, 380))
	require.NoError(t, err)
	assert.True(t, changed, "in-flight game results are still recorded")
	assert.True(t, suppressed, "but not propagated")

	games := d.Snapshot().PairingMap[pairingKey(0, 0)].Games
	require.Len(t, games, 1)
}

func TestDeletePairingsInvalidatesOneRound(t *testing.T) {
	d, p := startedDivision(t, 3)
	_, _, _, _, err := d.SubmitOutcome(p, gameEnd(0, 0, "ann", "ben", 420, 380))
	require.NoError(t, err)
	_, _, _, _, err = d.SubmitOutcome(p, gameEnd(0, 1, "cam", "dot", 400, 300))
	require.NoError(t, err)

	resp, err := d.DeletePairings(1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), resp.Round)

	snap := d.Snapshot()
	_, round1 := snap.PairingMap[pairingKey(1, 0)]
	assert.False(t, round1, "round 1 pairings gone")
	_, round0 := snap.PairingMap[pairingKey(0, 0)]
	assert.True(t, round0, "round 0 untouched")
}

func TestGibsonizationFlagsRunawayLeader(t *testing.T) {
	d := NewDivision("t1", "A")
	rcs, controls := kothControls(4)
	controls.Gibsonize = true
	controls.GibsonSpread = 500
	d.SetControls(controls)
	_, err := d.SetRoundControls(rcs)
	require.NoError(t, err)
	_, err = d.AddPlayers(fourPlayers())
	require.NoError(t, err)
	p := pair.New(3)
	_, err = d.Start(p)
	require.NoError(t, err)

	// ann wins three straight while nobody else passes one win; with one
	// round left the title is decided.
	winners := [][4]string{
		{"ann", "ben", "cam", "dot"},
		{"ann", "cam", "ben", "dot"},
		{"ann", "dot", "cam", "ben"},
	}
	for r := int32(0); r < 3; r++ {
		w := winners[r]
		first := slotPlayers(t, d, r, 0)
		second := slotPlayers(t, d, r, 1)
		_, _, _, _, err = d.SubmitOutcome(p, gameEnd(r, 0, pickWinner(first, w[:]), pickLoser(first, w[:]), 450, 350))
		require.NoError(t, err)
		_, _, _, _, err = d.SubmitOutcome(p, gameEnd(r, 1, pickWinner(second, w[:]), pickLoser(second, w[:]), 430, 370))
		require.NoError(t, err)
	}

	st := d.Snapshot().Standings[2].Standings
	require.Equal(t, "ann", st[0].PlayerID)
	require.Equal(t, int32(3), st[0].Wins)
	assert.True(t, st[0].Gibsonized)
	assert.Contains(t, d.GibsonizedPlayers(), "ann")
}

// pickWinner returns whichever of the two paired players ranks first in the
// preference list; pickLoser the other.
func pickWinner(paired []string, pref []string) string {
	for _, id := range pref {
		if id == paired[0] || id == paired[1] {
			return id
		}
	}
	return paired[0]
}

func pickLoser(paired []string, pref []string) string {
	w := pickWinner(paired, pref)
	if paired[0] == w {
		return paired[1]
	}
	return paired[0]
}
