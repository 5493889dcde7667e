package game

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"wordwire/internal/ipc"
)

func newTestManager(t *testing.T, sink *testSink) *Manager {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m := NewManager(ctx, ManagerParams{
		Emitter:       sink,
		Judge:         stubJudge{score: 10},
		Log:           zap.NewNop(),
		SweepInterval: 50 * time.Millisecond,
	})
	t.Cleanup(m.Stop)
	return m
}

func TestSeekAcceptCreatesGame(t *testing.T) {
	sink := newTestSink()
	m := newTestManager(t, sink)

	seeker := ConnInfo{ConnID: "c1", UserID: "uA", Username: "alice"}
	accepter := ConnInfo{ConnID: "c2", UserID: "uB", Username: "bob"}

	m.HandleSeek(seeker, ipc.SeekRequest{GameRequest: ipc.GameRequest{RequestID: "r1", InitialTimeSeconds: 900}})
	sink.waitFor(t, ipc.MsgSeekRequest, time.Second)

	m.Accept(accepter, "r1")
	sink.waitFor(t, ipc.MsgSoughtGameProcessEvent, time.Second)
	newGame := sink.waitFor(t, ipc.MsgNewGameEvent, time.Second).(ipc.NewGameEvent)
	if newGame.GameID == "" || newGame.RequesterCID != "c1" || newGame.AccepterCID != "c2" {
		t.Fatalf("bad NewGameEvent: %+v", newGame)
	}

	if len(m.OpenSeeks().Requests) != 0 {
		t.Fatalf("seek should be consumed")
	}
	if !m.Ready(seeker, newGame.GameID) {
		t.Fatalf("session should exist for new game")
	}
}

func TestAcceptOwnRequestCancels(t *testing.T) {
	sink := newTestSink()
	m := newTestManager(t, sink)

	seeker := ConnInfo{ConnID: "c1", UserID: "uA", Username: "alice"}
	m.HandleSeek(seeker, ipc.SeekRequest{GameRequest: ipc.GameRequest{RequestID: "r1"}})
	sink.waitFor(t, ipc.MsgSeekRequest, time.Second)

	m.Accept(seeker, "r1")
	sink.waitFor(t, ipc.MsgSoughtGameProcessEvent, time.Second)
	if len(m.OpenSeeks().Requests) != 0 {
		t.Fatalf("own accept should cancel the seek")
	}
	if sink.countType(ipc.MsgNewGameEvent) != 0 {
		t.Fatalf("cancel must not create a game")
	}
}

func TestUnroutableGameIDDropped(t *testing.T) {
	sink := newTestSink()
	m := newTestManager(t, sink)

	if m.MoveEvent(ConnInfo{UserID: "uA"}, ipc.ClientGameplayEvent{GameID: "nope"}) {
		t.Fatalf("unknown game id should not route")
	}
}

func TestTournamentGameReportsCompletion(t *testing.T) {
	sink := newTestSink()
	m := newTestManager(t, sink)

	gameID := m.StartTournamentGame("t1", "A", 3, 2, testPlayers(), ipc.GameRequest{InitialTimeSeconds: 900})
	m.Ready(ConnInfo{UserID: "uA"}, gameID)
	m.Ready(ConnInfo{UserID: "uB"}, gameID)
	sink.waitFor(t, ipc.MsgGameHistoryRefresher, time.Second)

	m.MoveEvent(ConnInfo{UserID: "uA"}, ipc.ClientGameplayEvent{Type: ipc.EventResign, GameID: gameID})

	select {
	case tevt := <-m.TournamentEvents():
		if tevt.TournamentID != "t1" || tevt.Division != "A" || tevt.Round != 3 || tevt.GameIndex != 2 {
			t.Fatalf("bad tournament event: %+v", tevt)
		}
		if tevt.Players[0].Result != ipc.ResultLoss || tevt.Players[1].Result != ipc.ResultWin {
			t.Fatalf("resign should forfeit to opponent: %+v", tevt.Players)
		}
	case <-time.After(time.Second):
		t.Fatalf("no tournament event emitted")
	}
}

func TestDisconnectClearsSeeks(t *testing.T) {
	sink := newTestSink()
	m := newTestManager(t, sink)

	m.HandleSeek(ConnInfo{ConnID: "c1", UserID: "uA", Username: "alice"},
		ipc.SeekRequest{GameRequest: ipc.GameRequest{RequestID: "r1"}})
	sink.waitFor(t, ipc.MsgSeekRequest, time.Second)

	m.RemoveConn("c1")
	sink.waitFor(t, ipc.MsgSoughtGameProcessEvent, time.Second)
	if len(m.OpenSeeks().Requests) != 0 {
		t.Fatalf("disconnect should clear pending seeks")
	}
}
