package presence

import (
	"sort"
	"sync"

	"wordwire/internal/ipc"
)

// Tracker keeps the per-channel, per-user presence sets and their reverse
// index. Delivery of the deltas it returns is best-effort; a missed delta
// self-heals on the next Snapshot fetch, so nothing here blocks on
// subscribers.
type Tracker struct {
	mu       sync.Mutex
	channels map[string]map[string]*record // channel -> userID
	users    map[string]map[string]int     // userID -> channel -> join count
	info     map[string]userInfo
}

type record struct {
	username  string
	anonymous bool
}

type userInfo struct {
	username  string
	anonymous bool
}

func NewTracker() *Tracker {
	return &Tracker{
		channels: make(map[string]map[string]*record),
		users:    make(map[string]map[string]int),
		info:     make(map[string]userInfo),
	}
}

// Join adds a presence and returns the delta to broadcast to the channel.
// Joins are counted per (user, channel): a second tab on the same channel
// needs a second Leave before the user disappears. The delta is only
// meaningful to broadcast when fresh is true.
func (t *Tracker) Join(userID, username, channel string, anonymous bool) (ipc.UserPresence, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.info[userID] = userInfo{username: username, anonymous: anonymous}

	chans, ok := t.users[userID]
	if !ok {
		chans = make(map[string]int)
		t.users[userID] = chans
	}
	chans[channel]++
	fresh := chans[channel] == 1

	members, ok := t.channels[channel]
	if !ok {
		members = make(map[string]*record)
		t.channels[channel] = members
	}
	members[userID] = &record{username: username, anonymous: anonymous}

	return ipc.UserPresence{
		Username:    username,
		UserID:      userID,
		Channel:     channel,
		IsAnonymous: anonymous,
	}, fresh
}

// Leave decrements the join count and, when it reaches zero, removes the
// presence and returns a tombstone delta (deleting=true). Leaving a channel
// the user isn't in is a no-op.
func (t *Tracker) Leave(userID, channel string) (ipc.UserPresence, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	chans, ok := t.users[userID]
	if !ok {
		return ipc.UserPresence{}, false
	}
	count, ok := chans[channel]
	if !ok {
		return ipc.UserPresence{}, false
	}
	if count > 1 {
		chans[channel] = count - 1
		return ipc.UserPresence{}, false
	}

	delete(chans, channel)
	if len(chans) == 0 {
		delete(t.users, userID)
	}

	inf := t.info[userID]
	if members, ok := t.channels[channel]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(t.channels, channel)
		}
	}

	return ipc.UserPresence{
		Username:    inf.username,
		UserID:      userID,
		Channel:     channel,
		IsAnonymous: inf.anonymous,
		Deleting:    true,
	}, true
}

// LeaveAll removes the user from every channel, returning one tombstone per
// channel actually vacated. Used when a connection drops.
func (t *Tracker) LeaveAll(userID string) []ipc.UserPresence {
	t.mu.Lock()
	chans := make([]string, 0, len(t.users[userID]))
	for ch := range t.users[userID] {
		chans = append(chans, ch)
	}
	t.mu.Unlock()

	sort.Strings(chans)
	var deltas []ipc.UserPresence
	for _, ch := range chans {
		if delta, gone := t.Leave(userID, ch); gone {
			deltas = append(deltas, delta)
		}
	}
	return deltas
}

// Snapshot returns the full presence list for a channel, ordered by
// username. Used on (re)join only.
func (t *Tracker) Snapshot(channel string) ipc.UserPresences {
	t.mu.Lock()
	defer t.mu.Unlock()

	members := t.channels[channel]
	out := make([]ipc.UserPresence, 0, len(members))
	for uid, rec := range members {
		out = append(out, ipc.UserPresence{
			Username:    rec.username,
			UserID:      uid,
			Channel:     channel,
			IsAnonymous: rec.anonymous,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return ipc.UserPresences{Presences: out}
}

// Entry is the cross-channel view of one user.
func (t *Tracker) Entry(userID string) ipc.PresenceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	chans := make([]string, 0, len(t.users[userID]))
	for ch := range t.users[userID] {
		chans = append(chans, ch)
	}
	sort.Strings(chans)
	return ipc.PresenceEntry{
		Username: t.info[userID].username,
		UserID:   userID,
		Channels: chans,
	}
}
