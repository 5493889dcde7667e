package ipc

import (
	"bytes"
	"testing"
)

func sampleMessages() []Message {
	req := GameRequest{
		Lexicon:            "CSW21",
		Rules:              GameRules{BoardLayout: "CrosswordGame", LetterDistribution: "english"},
		InitialTimeSeconds: 900,
		ChallengeRule:      ChallengeRuleFivePoint,
		RequestID:          "req1",
		MaxOvertimeMinutes: 1,
	}
	return []Message{
		SeekRequest{GameRequest: req, UserID: "u1", Username: "cesar", ConnectionID: "c1"},
		MatchRequest{GameRequest: req, UserID: "u1", Username: "cesar", ReceivingUser: "u2", ConnectionID: "c1"},
		SoughtGameProcessEvent{RequestID: "req1"},
		ClientGameplayEvent{Type: EventTilePlacement, GameID: "g1", PositionCoords: "8D", Tiles: "HELLO"},
		ServerGameplayEvent{UserID: "u1", GameID: "g1", Type: EventTilePlacement, Score: 24, NewRack: "AEIOU?", TimeRemaining: 840000, Playing: StatePlaying},
		GameEndedEvent{Scores: map[string]int32{"cesar": 400, "mina": 350}, EndReason: EndReasonStandard, Winner: "cesar", Loser: "mina", Time: 1700000000},
		GameHistoryRefresher{History: GameHistory{GameID: "g1"}, TimePlayer1: 900000, TimePlayer2: 880000, MaxOvertimeMinutes: 1},
		ErrorMessage{Message: "not your turn"},
		NewGameEvent{GameID: "g1", RequesterCID: "c1", AccepterCID: "c2"},
		ServerChallengeResultEvent{Valid: true, Challenger: "mina", ChallengeRule: ChallengeRuleFivePoint},
		SeekRequests{Requests: []SeekRequest{}},
		OngoingGameEvent{GameID: "g1", GameRequest: req},
		TimedOut{GameID: "g1", UserID: "u2"},
		OngoingGames{},
		ReadyForTournamentGame{TournamentID: "t1", Division: "A", Round: 3, PlayerID: "u1", GameIndex: 2},
		TournamentRoundStarted{TournamentID: "t1", Division: "A", Round: 3, GameIndex: 2},
		GameDeletion{ID: "g1"},
		MatchRequests{},
		DeclineSeekRequest{RequestID: "req1"},
		ChatMessage{Username: "cesar", UserID: "u1", Channel: "chat.lobby", Message: "gl", Timestamp: 5, ID: "chat.lobby:1"},
		ChatMessageDeleted{Channel: "chat.lobby", ID: "chat.lobby:1"},
		UserPresence{Username: "cesar", UserID: "u1", Channel: "lobby"},
		UserPresences{Presences: []UserPresence{{Username: "cesar", UserID: "u1", Channel: "lobby"}}},
		ServerMessage{Message: "maintenance at midnight"},
		ReadyForGame{GameID: "g1"},
		LagMeasurement{LagMS: 45},
		TournamentGameEndedEvent{
			GameID: "g9", TournamentID: "t1", Division: "A", Round: 3, GameIndex: 2,
			Players: []TournamentGameEndedPlayer{
				{Username: "cesar", Score: 400, Result: ResultWin},
				{Username: "mina", Score: 350, Result: ResultLoss},
			},
			EndReason: EndReasonStandard,
		},
		TournamentDataResponse{ID: "t1", Name: "Worlds", IsStarted: true},
		RematchStartedEvent{RematchGameID: "g2"},
		TournamentDivisionDataResponse{ID: "t1", Division: "A", CurrentRound: -1},
		TournamentDivisionDeletedResponse{ID: "t1", Division: "A"},
		FullTournamentDivisions{Started: false},
		DivisionRoundControls{ID: "t1", Division: "A"},
		DivisionPairingsResponse{ID: "t1", Division: "A"},
		DivisionControlsResponse{ID: "t1", Division: "A"},
		PlayersAddedOrRemovedResponse{ID: "t1", Division: "A"},
		TournamentFinishedResponse{ID: "t1"},
		DivisionPairingsDeletedResponse{ID: "t1", Division: "A", Round: 4},
		PresenceEntry{Username: "cesar", UserID: "u1", Channels: []string{"lobby"}},
		ActiveGameEntry{ID: "g1", Users: []string{"u1", "u2"}, TTL: 3600},
		GameMetaEvent{OrigEventID: "m1", Type: MetaRequestAbort, PlayerID: "u1", GameID: "g1", Expiry: 60000},
		ProfileUpdateEvent{UserID: "u1", Ratings: map[string]int32{"CSW21.classic": 1500}},
		GameInstantiation{GameID: "g1"},
		JoinPath{Path: "lobby"},
		UnjoinRealm{},
	}
}

func TestEnvelopeRoundTripAllTypes(t *testing.T) {
	for _, msg := range sampleMessages() {
		env, err := Wrap(msg)
		if err != nil {
			t.Fatalf("wrap type %d: %v", msg.WireType(), err)
		}
		if env.Type != msg.WireType() {
			t.Fatalf("wrap tag mismatch: got %d want %d", env.Type, msg.WireType())
		}

		decoded, err := Unmarshal(env.Bytes())
		if err != nil {
			t.Fatalf("unmarshal type %d: %v", env.Type, err)
		}
		got, err := decoded.Message()
		if err != nil {
			t.Fatalf("decode type %d: %v", env.Type, err)
		}

		// Re-wrapping the decoded message must reproduce the bytes exactly.
		again, err := Wrap(got)
		if err != nil {
			t.Fatalf("re-wrap type %d: %v", env.Type, err)
		}
		if !bytes.Equal(env.Payload, again.Payload) {
			t.Fatalf("type %d not byte-stable:\n first: %s\nsecond: %s",
				env.Type, env.Payload, again.Payload)
		}
	}
}

func TestEnvelopeDeterministicWithMaps(t *testing.T) {
	msg := GameEndedEvent{
		Scores:       map[string]int32{"zeta": 1, "alpha": 2, "mid": 3},
		RatingDeltas: map[string]int32{"zeta": -12, "alpha": 12},
		EndReason:    EndReasonStandard,
	}
	a := MustWrap(msg)
	b := MustWrap(msg)
	if !bytes.Equal(a.Payload, b.Payload) {
		t.Fatalf("map-bearing payload not deterministic")
	}
}

func TestUnknownTypePassthrough(t *testing.T) {
	raw := []byte(`{"future":"field"}`)
	wire := append([]byte{203}, raw...)

	env, err := Unmarshal(wire)
	if err != nil {
		t.Fatalf("unknown tag should decode: %v", err)
	}
	msg, err := env.Message()
	if err != nil {
		t.Fatalf("unknown tag should not error: %v", err)
	}
	u, ok := msg.(Unknown)
	if !ok {
		t.Fatalf("want Unknown, got %T", msg)
	}
	if u.Tag != 203 || !bytes.Equal(u.Raw, raw) {
		t.Fatalf("unknown payload mangled: %+v", u)
	}

	// Re-encoding preserves the original bytes.
	again, err := Wrap(u)
	if err != nil {
		t.Fatalf("re-wrap unknown: %v", err)
	}
	if !bytes.Equal(again.Bytes(), wire) {
		t.Fatalf("unknown re-encode differs: %x vs %x", again.Bytes(), wire)
	}
}

func TestStreamFraming(t *testing.T) {
	var buf bytes.Buffer
	envs := []Envelope{
		MustWrap(ReadyForGame{GameID: "g1"}),
		MustWrap(LagMeasurement{LagMS: 9}),
		MustWrap(Unknown{Tag: 99, Raw: []byte("opaque")}),
	}
	for _, e := range envs {
		if err := WriteEnvelope(&buf, e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	for i, want := range envs {
		got, err := ReadEnvelope(&buf)
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if got.Type != want.Type || !bytes.Equal(got.Payload, want.Payload) {
			t.Fatalf("frame %d mismatch: %+v vs %+v", i, got, want)
		}
	}
}

func TestUnmarshalRejectsEmpty(t *testing.T) {
	if _, err := Unmarshal(nil); err == nil {
		t.Fatalf("expected error on empty envelope")
	}
}
