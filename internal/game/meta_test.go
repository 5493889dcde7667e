package game

import (
	"testing"
	"time"

	"wordwire/internal/ipc"
)

func TestAbortRequestAcceptedEndsGame(t *testing.T) {
	sink := newTestSink()
	s := startedSession(t, sink, SessionParams{})

	s.Meta("uA", ipc.GameMetaEvent{Type: ipc.MetaRequestAbort, GameID: "g1"})
	msg := sink.waitFor(t, ipc.MsgGameMetaEvent, time.Second)
	req := msg.(ipc.GameMetaEvent)
	if req.OrigEventID == "" || req.Expiry == 0 {
		t.Fatalf("request should get an id and expiry: %+v", req)
	}

	s.Meta("uB", ipc.GameMetaEvent{
		Type:        ipc.MetaAbortAccepted,
		GameID:      "g1",
		OrigEventID: req.OrigEventID,
	})

	ended := sink.waitFor(t, ipc.MsgGameEndedEvent, time.Second).(ipc.GameEndedEvent)
	if ended.EndReason != ipc.EndReasonAborted {
		t.Fatalf("want ABORTED, got %d", ended.EndReason)
	}
	if ended.Winner != "" || ended.Loser != "" || ended.Tie {
		t.Fatalf("aborted game has no outcome: %+v", ended)
	}
}

func TestAdjudicationAcceptedForfeitsToRequester(t *testing.T) {
	sink := newTestSink()
	s := startedSession(t, sink, SessionParams{})

	s.Meta("uB", ipc.GameMetaEvent{Type: ipc.MetaRequestAdjudication, GameID: "g1"})
	req := sink.waitFor(t, ipc.MsgGameMetaEvent, time.Second).(ipc.GameMetaEvent)

	s.Meta("uA", ipc.GameMetaEvent{
		Type:        ipc.MetaAdjudicationAccepted,
		GameID:      "g1",
		OrigEventID: req.OrigEventID,
	})

	ended := sink.waitFor(t, ipc.MsgGameEndedEvent, time.Second).(ipc.GameEndedEvent)
	if ended.EndReason != ipc.EndReasonForceForfeit || ended.Winner != "bob" {
		t.Fatalf("adjudication should forfeit to requester: %+v", ended)
	}
}

func TestRequesterCannotAnswerOwnRequest(t *testing.T) {
	sink := newTestSink()
	s := startedSession(t, sink, SessionParams{})

	s.Meta("uA", ipc.GameMetaEvent{Type: ipc.MetaRequestAbort, GameID: "g1"})
	req := sink.waitFor(t, ipc.MsgGameMetaEvent, time.Second).(ipc.GameMetaEvent)

	s.Meta("uA", ipc.GameMetaEvent{
		Type:        ipc.MetaAbortAccepted,
		GameID:      "g1",
		OrigEventID: req.OrigEventID,
	})
	sink.waitFor(t, ipc.MsgErrorMessage, time.Second)
	if v := s.Snapshot(); v.State != StateInProgress {
		t.Fatalf("self-answer must not end the game")
	}
}

func TestAbortCapEnforced(t *testing.T) {
	sink := newTestSink()
	s := startedSession(t, sink, SessionParams{})

	s.Meta("uA", ipc.GameMetaEvent{Type: ipc.MetaRequestAbort, GameID: "g1"})
	req := sink.waitFor(t, ipc.MsgGameMetaEvent, time.Second).(ipc.GameMetaEvent)
	s.Meta("uB", ipc.GameMetaEvent{
		Type: ipc.MetaAbortDenied, GameID: "g1", OrigEventID: req.OrigEventID,
	})
	sink.waitFor(t, ipc.MsgGameMetaEvent, time.Second)

	// Second abort request from the same player is over the cap.
	s.Meta("uA", ipc.GameMetaEvent{Type: ipc.MetaRequestAbort, GameID: "g1"})
	sink.waitFor(t, ipc.MsgErrorMessage, time.Second)
}

func TestMetaExpiryResolvedBySweep(t *testing.T) {
	sink := newTestSink()
	s := startedSession(t, sink, SessionParams{SweepInterval: 10 * time.Millisecond})

	s.Meta("uA", ipc.GameMetaEvent{
		Type:   ipc.MetaRequestAbort,
		GameID: "g1",
		Expiry: 20, // msecs
	})
	sink.waitFor(t, ipc.MsgGameMetaEvent, time.Second)

	// The sweep, not a client, must resolve the lapsed request.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case env := <-sink.ch:
			if env.Type != ipc.MsgGameMetaEvent {
				continue
			}
			m, _ := env.Message()
			if m.(ipc.GameMetaEvent).Type == ipc.MetaTimerExpired {
				if v := s.Snapshot(); v.State != StateInProgress || len(v.OpenMetas) != 0 {
					t.Fatalf("expiry should deny and keep playing: %+v", v)
				}
				return
			}
		case <-deadline:
			t.Fatalf("sweep never expired the request")
		}
	}
}

func TestLateResponseAfterExpiryRejected(t *testing.T) {
	sink := newTestSink()
	s := startedSession(t, sink, SessionParams{SweepInterval: 10 * time.Millisecond})

	s.Meta("uA", ipc.GameMetaEvent{Type: ipc.MetaRequestAbort, GameID: "g1", Expiry: 20})
	req := sink.waitFor(t, ipc.MsgGameMetaEvent, time.Second).(ipc.GameMetaEvent)

	// Wait until the sweep closes it.
	time.Sleep(200 * time.Millisecond)

	s.Meta("uB", ipc.GameMetaEvent{
		Type: ipc.MetaAbortAccepted, GameID: "g1", OrigEventID: req.OrigEventID,
	})
	sink.waitFor(t, ipc.MsgErrorMessage, time.Second)
	if v := s.Snapshot(); v.State != StateInProgress {
		t.Fatalf("late accept must be out-of-window")
	}
}

func TestAddTimeIsImmediate(t *testing.T) {
	sink := newTestSink()
	s := startedSession(t, sink, SessionParams{})

	before := s.Snapshot().TimeRemaining[1]
	s.Meta("uA", ipc.GameMetaEvent{Type: ipc.MetaAddTime, GameID: "g1"})
	sink.waitFor(t, ipc.MsgGameMetaEvent, time.Second)

	after := s.Snapshot().TimeRemaining[1]
	if after-before < AddTimeMsecs-1000 {
		t.Fatalf("opponent clock not credited: before=%d after=%d", before, after)
	}
}

func TestUndoAcceptedRewindsLastEvent(t *testing.T) {
	sink := newTestSink()
	s := startedSession(t, sink, SessionParams{})

	s.Move("uA", ipc.ClientGameplayEvent{Type: ipc.EventTilePlacement, GameID: "g1", Tiles: "HELLO"})
	sink.waitFor(t, ipc.MsgServerGameplayEvent, time.Second)

	s.Meta("uA", ipc.GameMetaEvent{Type: ipc.MetaRequestUndo, GameID: "g1"})
	req := sink.waitFor(t, ipc.MsgGameMetaEvent, time.Second).(ipc.GameMetaEvent)
	s.Meta("uB", ipc.GameMetaEvent{
		Type: ipc.MetaUndoAccepted, GameID: "g1", OrigEventID: req.OrigEventID,
	})
	sink.waitFor(t, ipc.MsgGameHistoryRefresher, time.Second)

	v := s.Snapshot()
	if v.Events != 0 || v.Scores[0] != 0 || v.OnTurn != 0 {
		t.Fatalf("undo did not rewind: %+v", v)
	}
}
