package chat

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"wordwire/internal/ipc"
)

var (
	ErrEmptyMessage   = errors.New("empty chat message")
	ErrBadChannel     = errors.New("malformed channel")
	ErrUnknownMessage = errors.New("no such chat message")
)

// DefaultRetention is how many messages each channel keeps. Sequence
// numbers keep climbing past the window, so consumers tracking id
// progression never see gaps introduced by trimming.
const DefaultRetention = 100

// Manager owns per-channel chat history. History is append-only; deleting a
// message blanks its content and announces the id, but its position in the
// sequence is retained.
type Manager struct {
	mu        sync.Mutex
	channels  map[string]*channelLog
	retention int
	now       func() time.Time
}

type channelLog struct {
	nextSeq int64
	msgs    []ipc.ChatMessage
}

func NewManager(retention int) *Manager {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Manager{
		channels:  make(map[string]*channelLog),
		retention: retention,
		now:       time.Now,
	}
}

// Post appends a message and returns it with its assigned id (channel:seq).
func (m *Manager) Post(channel, userID, username, text string) (ipc.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return ipc.ChatMessage{}, ErrEmptyMessage
	}
	if err := validChannel(channel); err != nil {
		return ipc.ChatMessage{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cl, ok := m.channels[channel]
	if !ok {
		cl = &channelLog{nextSeq: 1}
		m.channels[channel] = cl
	}

	msg := ipc.ChatMessage{
		Username:  username,
		UserID:    userID,
		Channel:   channel,
		Message:   text,
		Timestamp: m.now().UnixMilli(),
		ID:        fmt.Sprintf("%s:%d", channel, cl.nextSeq),
	}
	cl.nextSeq++
	cl.msgs = append(cl.msgs, msg)
	if len(cl.msgs) > m.retention {
		cl.msgs = cl.msgs[len(cl.msgs)-m.retention:]
	}
	return msg, nil
}

// Delete removes a message's presentation. The server retains no tombstone
// content beyond the id.
func (m *Manager) Delete(channel, id string) (ipc.ChatMessageDeleted, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cl, ok := m.channels[channel]
	if !ok {
		return ipc.ChatMessageDeleted{}, ErrUnknownMessage
	}
	for i := range cl.msgs {
		if cl.msgs[i].ID == id {
			cl.msgs[i].Message = ""
			return ipc.ChatMessageDeleted{Channel: channel, ID: id}, nil
		}
	}
	return ipc.ChatMessageDeleted{}, ErrUnknownMessage
}

// History returns the retained window for a channel, oldest first.
func (m *Manager) History(channel string) []ipc.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	cl, ok := m.channels[channel]
	if !ok {
		return nil
	}
	out := make([]ipc.ChatMessage, len(cl.msgs))
	copy(out, cl.msgs)
	return out
}

func validChannel(channel string) error {
	if channel == "" || strings.ContainsAny(channel, " \t\n") {
		return ErrBadChannel
	}
	return nil
}
