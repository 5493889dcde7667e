package chat

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostAssignsMonotonicIDs(t *testing.T) {
	m := NewManager(0)
	first, err := m.Post("chat.lobby", "u1", "cesar", "hi")
	require.NoError(t, err)
	second, err := m.Post("chat.lobby", "u2", "mina", "hello")
	require.NoError(t, err)

	assert.Equal(t, "chat.lobby:1", first.ID)
	assert.Equal(t, "chat.lobby:2", second.ID)

	// Per-channel sequences are independent.
	other, err := m.Post("chat.game.g1", "u1", "cesar", "gl")
	require.NoError(t, err)
	assert.Equal(t, "chat.game.g1:1", other.ID)
}

func TestPostRejectsBadInput(t *testing.T) {
	m := NewManager(0)
	_, err := m.Post("chat.lobby", "u1", "cesar", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = m.Post("bad channel", "u1", "cesar", "hi")
	assert.ErrorIs(t, err, ErrBadChannel)
}

func TestDeleteBlanksContentKeepsPosition(t *testing.T) {
	m := NewManager(0)
	m.Post("chat.lobby", "u1", "cesar", "one")
	msg, _ := m.Post("chat.lobby", "u1", "cesar", "two")
	m.Post("chat.lobby", "u1", "cesar", "three")

	del, err := m.Delete("chat.lobby", msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, del.ID)

	hist := m.History("chat.lobby")
	require.Len(t, hist, 3)
	assert.Equal(t, msg.ID, hist[1].ID, "sequence position retained")
	assert.Empty(t, hist[1].Message, "content blanked")

	_, err = m.Delete("chat.lobby", "chat.lobby:99")
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestRetentionTrimsButSequencesContinue(t *testing.T) {
	m := NewManager(3)
	for i := 0; i < 5; i++ {
		_, err := m.Post("chat.lobby", "u1", "cesar", fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
	}
	hist := m.History("chat.lobby")
	require.Len(t, hist, 3)
	assert.Equal(t, "chat.lobby:3", hist[0].ID)
	assert.Equal(t, "chat.lobby:5", hist[2].ID)
}
