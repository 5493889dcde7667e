package dispatch

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"wordwire/internal/chat"
	"wordwire/internal/game"
	"wordwire/internal/ipc"
	"wordwire/internal/presence"
	"wordwire/internal/tourney"
)

// Dispatcher routes inbound envelopes to their owning domain and hands each
// domain the fan-out surface it emits through. Ordering is preserved per
// connection; cross-domain ordering is not promised.
type Dispatcher struct {
	registry *Registry
	presence *presence.Tracker
	chat     *chat.Manager
	games    *game.Manager
	tourneys *tourney.Manager
	log      *zap.Logger
}

type Params struct {
	Registry *Registry
	Presence *presence.Tracker
	Chat     *chat.Manager
	Games    *game.Manager
	Tourneys *tourney.Manager
	Log      *zap.Logger
}

func New(p Params) *Dispatcher {
	if p.Log == nil {
		p.Log = zap.NewNop()
	}
	return &Dispatcher{
		registry: p.Registry,
		presence: p.Presence,
		chat:     p.Chat,
		games:    p.Games,
		tourneys: p.Tourneys,
		log:      p.Log.Named("dispatch"),
	}
}

func (d *Dispatcher) Registry() *Registry { return d.registry }

// Register adds a connection and drops it straight into the lobby realm.
// The rating gates seek acceptance against rating bounds.
func (d *Dispatcher) Register(userID, username string, anonymous bool, rating int32) *Conn {
	c := d.registry.Add(userID, username, anonymous)
	c.Rating = rating
	d.joinRealm(c, ipc.LobbyRealm)
	return c
}

// Unregister tears a connection down: seeks are withdrawn and presence
// tombstones broadcast to every realm the user leaves.
func (d *Dispatcher) Unregister(c *Conn) {
	d.games.RemoveConn(c.ID)
	for _, realm := range d.registry.Realms(c) {
		d.leaveRealm(c, realm)
	}
	d.registry.Remove(c)
}

// Dispatch routes one inbound envelope. Malformed payloads and unroutable
// targets earn the sender an ErrorMessage; unknown tags are logged and
// skipped so newer clients don't break older servers.
func (d *Dispatcher) Dispatch(ctx context.Context, c *Conn, env ipc.Envelope) {
	msg, err := env.Message()
	if err != nil {
		d.sendError(c, "malformed message payload")
		return
	}
	ci := game.ConnInfo{ConnID: c.ID, UserID: c.UserID, Username: c.Username, Rating: c.Rating}

	switch m := msg.(type) {
	case ipc.JoinPath:
		d.handleJoinPath(c, m.Path)
	case ipc.UnjoinRealm:
		d.handleUnjoinRealm(c)

	case ipc.SeekRequest:
		d.games.HandleSeek(ci, m)
	case ipc.MatchRequest:
		d.games.HandleMatch(ci, m)
	case ipc.SoughtGameProcessEvent:
		d.games.Accept(ci, m.RequestID)
	case ipc.DeclineSeekRequest:
		d.games.Decline(ci, m.RequestID)

	case ipc.ReadyForGame:
		if !d.games.Ready(ci, m.GameID) {
			d.sendError(c, "that game no longer exists")
		}
	case ipc.ClientGameplayEvent:
		if !d.games.MoveEvent(ci, m) {
			d.sendError(c, "that game no longer exists")
		}
	case ipc.GameMetaEvent:
		if !d.games.MetaEvent(ci, m) {
			d.sendError(c, "that game no longer exists")
		}
	case ipc.TimedOut:
		if !d.games.TimedOutClaim(m) {
			d.sendError(c, "that game no longer exists")
		}

	case ipc.ReadyForTournamentGame:
		m.PlayerID = c.UserID
		if err := d.tourneys.HandleReady(m); err != nil {
			d.sendError(c, err.Error())
		}

	case ipc.ChatMessage:
		d.handleChat(c, m)
	case ipc.ChatMessageDeleted:
		deleted, err := d.chat.Delete(m.Channel, m.ID)
		if err != nil {
			d.sendError(c, err.Error())
			return
		}
		d.registry.ToRealm(ipc.ChatRealm(m.Channel), ipc.MustWrap(deleted))

	case ipc.LagMeasurement:
		c.setLag(m.LagMS)

	case ipc.Unknown:
		d.log.Debug("skipping unknown message tag",
			zap.Uint8("tag", uint8(m.Tag)),
			zap.String("connId", c.ID))

	default:
		// A known server-to-client tag arriving inbound is a client bug.
		d.sendError(c, "unexpected message direction")
	}
}

func (d *Dispatcher) handleChat(c *Conn, m ipc.ChatMessage) {
	posted, err := d.chat.Post(m.Channel, c.UserID, c.Username, m.Message)
	if err != nil {
		d.sendError(c, err.Error())
		return
	}
	d.registry.ToRealm(ipc.ChatRealm(m.Channel), ipc.MustWrap(posted))
}

// handleJoinPath swaps the connection's path realm for the one the new
// client path maps to, then rehydrates the new realm.
func (d *Dispatcher) handleJoinPath(c *Conn, path string) {
	realm := realmForPath(path)
	c.mu.Lock()
	old := c.pathRealm
	c.pathRealm = realm
	c.mu.Unlock()
	if old == realm {
		d.rehydrate(c, realm)
		return
	}
	if old != "" && old != ipc.LobbyRealm {
		d.leaveRealm(c, old)
	}
	if realm != ipc.LobbyRealm {
		d.joinRealm(c, realm)
	}
	d.rehydrate(c, realm)
}

func (d *Dispatcher) handleUnjoinRealm(c *Conn) {
	c.mu.Lock()
	old := c.pathRealm
	c.pathRealm = ""
	c.mu.Unlock()
	if old != "" && old != ipc.LobbyRealm {
		d.leaveRealm(c, old)
	}
}

func (d *Dispatcher) joinRealm(c *Conn, realm string) {
	d.registry.Subscribe(c, realm)
	delta, fresh := d.presence.Join(c.UserID, c.Username, realm, c.Anonymous)
	if fresh {
		d.registry.ToRealm(realm, ipc.MustWrap(delta))
	}
}

func (d *Dispatcher) leaveRealm(c *Conn, realm string) {
	d.registry.Unsubscribe(c, realm)
	delta, gone := d.presence.Leave(c.UserID, realm)
	if gone {
		d.registry.ToRealm(realm, ipc.MustWrap(delta))
	}
}

// rehydrate sends the authoritative state snapshot for a realm so a
// (re)joining client can rebuild its view.
func (d *Dispatcher) rehydrate(c *Conn, realm string) {
	switch {
	case realm == ipc.LobbyRealm:
		d.registry.ToConn(c, ipc.MustWrap(d.games.OpenSeeks()))
		d.registry.ToConn(c, ipc.MustWrap(d.games.OpenMatchesFor(c.UserID)))
		d.registry.ToConn(c, ipc.MustWrap(d.games.OngoingGames()))
		d.registry.ToConn(c, ipc.MustWrap(d.presence.Snapshot(realm)))

	case strings.HasPrefix(realm, "game."):
		d.registry.ToConn(c, ipc.MustWrap(d.presence.Snapshot(realm)))
		// The history refresher arrives via ReadyForGame.

	case strings.HasPrefix(realm, "tournament."):
		id := strings.TrimPrefix(realm, "tournament.")
		full, err := d.tourneys.FullDivisions(id)
		if err != nil {
			d.sendError(c, err.Error())
			return
		}
		d.registry.ToConn(c, ipc.MustWrap(full))
		d.registry.ToConn(c, ipc.MustWrap(d.presence.Snapshot(realm)))

	case strings.HasPrefix(realm, "chat."):
		for _, msg := range d.chat.History(strings.TrimPrefix(realm, "chat.")) {
			d.registry.ToConn(c, ipc.MustWrap(msg))
		}
	}
}

func (d *Dispatcher) sendError(c *Conn, text string) {
	d.registry.ToConn(c, ipc.MustWrap(ipc.ErrorMessage{Message: text}))
}

// realmForPath maps a client-side route to its realm. Unrecognized paths
// fall back to the lobby.
func realmForPath(path string) string {
	path = strings.TrimSuffix(path, "/")
	switch {
	case path == "" || path == "/":
		return ipc.LobbyRealm
	case strings.HasPrefix(path, "/game/"):
		return ipc.GameRealm(strings.TrimPrefix(path, "/game/"))
	case strings.HasPrefix(path, "/tournament/"):
		return "tournament." + strings.TrimPrefix(path, "/tournament/")
	case strings.HasPrefix(path, "/chat/"):
		return ipc.ChatRealm(strings.TrimPrefix(path, "/chat/"))
	default:
		return ipc.LobbyRealm
	}
}
