// Package rules provides the default rules-engine collaborator. It performs
// no lexicon validation: every well-formed event is accepted and tile
// placements are scored by face value. Deployments wanting real adjudication
// swap in their own Judge.
package rules

import (
	"context"
	"errors"
	"unicode"

	"wordwire/internal/game"
	"wordwire/internal/ipc"
)

var ErrMalformedEvent = errors.New("malformed gameplay event")

// English tile face values. Lowercase letters are blanks played as that
// letter and score zero.
var letterValues = map[rune]int32{
	'A': 1, 'B': 3, 'C': 3, 'D': 2, 'E': 1, 'F': 4, 'G': 2, 'H': 4,
	'I': 1, 'J': 8, 'K': 5, 'L': 1, 'M': 3, 'N': 1, 'O': 1, 'P': 3,
	'Q': 10, 'R': 1, 'S': 1, 'T': 1, 'U': 1, 'V': 4, 'W': 4, 'X': 8,
	'Y': 4, 'Z': 10,
}

// Passthrough is the permissive Judge.
type Passthrough struct{}

func (Passthrough) Judge(_ context.Context, _ ipc.GameHistory, evt ipc.ClientGameplayEvent) (game.Verdict, error) {
	v := game.Verdict{
		Event: ipc.ServerGameplayEvent{
			GameID:         evt.GameID,
			Type:           evt.Type,
			PositionCoords: evt.PositionCoords,
			Tiles:          evt.Tiles,
			Playing:        ipc.StatePlaying,
		},
	}
	switch evt.Type {
	case ipc.EventTilePlacement:
		if evt.Tiles == "" || evt.PositionCoords == "" {
			return game.Verdict{}, ErrMalformedEvent
		}
		v.Event.Score = scoreTiles(evt.Tiles)
	case ipc.EventExchange:
		if evt.Tiles == "" {
			return game.Verdict{}, ErrMalformedEvent
		}
	case ipc.EventPass:
	case ipc.EventChallengePlay:
		// Without a lexicon every play stands.
		v.ChallengeResult = &ipc.ServerChallengeResultEvent{Valid: true}
	default:
		return game.Verdict{}, ErrMalformedEvent
	}
	return v, nil
}

func scoreTiles(tiles string) int32 {
	var total int32
	for _, r := range tiles {
		if unicode.IsLower(r) {
			continue // blank
		}
		total += letterValues[r]
	}
	return total
}
