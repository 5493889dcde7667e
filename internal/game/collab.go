package game

import (
	"context"

	"wordwire/internal/ipc"
)

// Emitter is the outbound fan-out surface the dispatcher provides. Sends
// are fire-and-forget; the registry drops slow subscribers rather than
// blocking a session loop.
type Emitter interface {
	ToUser(userID string, env ipc.Envelope)
	ToRealm(realm string, env ipc.Envelope)
}

// Verdict is a Judge's answer to a proposed move: the canonical event plus
// whether the move ended the game.
type Verdict struct {
	Event           ipc.ServerGameplayEvent
	GameOver        bool
	EndReason       ipc.GameEndReason
	ChallengeResult *ipc.ServerChallengeResultEvent
}

// Judge is the rules-engine collaborator. It validates a client event
// against the game history and returns the canonical move, resulting rack
// and score. It owns no persistence.
type Judge interface {
	Judge(ctx context.Context, history ipc.GameHistory, evt ipc.ClientGameplayEvent) (Verdict, error)
}

// Rater is the rating collaborator, consulted once per rated game before the
// GameEndedEvent is broadcast. Keys of the returned maps are usernames.
type Rater interface {
	Rate(ctx context.Context, players []ipc.GamePlayerInfo, scores map[string]int32, reason ipc.GameEndReason) (newRatings, deltas map[string]int32)
}

// NoopRater returns empty deltas; rating computation internals live outside
// this core.
type NoopRater struct{}

func (NoopRater) Rate(context.Context, []ipc.GamePlayerInfo, map[string]int32, ipc.GameEndReason) (map[string]int32, map[string]int32) {
	return map[string]int32{}, map[string]int32{}
}

// Archiver persists terminal game snapshots, best-effort.
type Archiver interface {
	SaveGame(ctx context.Context, ended ipc.GameEndedEvent) error
}
