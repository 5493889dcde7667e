package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordwire/internal/ipc"
)

func TestTilePlacementScoredByFaceValue(t *testing.T) {
	v, err := Passthrough{}.Judge(context.Background(), ipc.GameHistory{}, ipc.ClientGameplayEvent{
		Type:           ipc.EventTilePlacement,
		GameID:         "g1",
		PositionCoords: "8D",
		Tiles:          "QUIZ", // 10+1+1+10
	})
	require.NoError(t, err)
	assert.Equal(t, int32(22), v.Event.Score)
	assert.False(t, v.GameOver)
}

func TestBlanksScoreZero(t *testing.T) {
	v, err := Passthrough{}.Judge(context.Background(), ipc.GameHistory{}, ipc.ClientGameplayEvent{
		Type:           ipc.EventTilePlacement,
		PositionCoords: "H8",
		Tiles:          "CaT", // lowercase a is a blank
	})
	require.NoError(t, err)
	assert.Equal(t, int32(4), v.Event.Score)
}

func TestPassAndExchangeScoreZero(t *testing.T) {
	v, err := Passthrough{}.Judge(context.Background(), ipc.GameHistory{}, ipc.ClientGameplayEvent{Type: ipc.EventPass})
	require.NoError(t, err)
	assert.Zero(t, v.Event.Score)

	v, err = Passthrough{}.Judge(context.Background(), ipc.GameHistory{}, ipc.ClientGameplayEvent{
		Type: ipc.EventExchange, Tiles: "AEIOU",
	})
	require.NoError(t, err)
	assert.Zero(t, v.Event.Score)
}

func TestMalformedPlacementRejected(t *testing.T) {
	_, err := Passthrough{}.Judge(context.Background(), ipc.GameHistory{}, ipc.ClientGameplayEvent{
		Type: ipc.EventTilePlacement,
	})
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

func TestChallengeAlwaysStands(t *testing.T) {
	v, err := Passthrough{}.Judge(context.Background(), ipc.GameHistory{}, ipc.ClientGameplayEvent{
		Type: ipc.EventChallengePlay,
	})
	require.NoError(t, err)
	require.NotNil(t, v.ChallengeResult)
	assert.True(t, v.ChallengeResult.Valid)
}
