package game

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"wordwire/internal/ipc"
)

// ConnInfo identifies the authenticated connection behind an inbound
// message. Auth itself happens upstream; this core only carries the result.
type ConnInfo struct {
	ConnID   string
	UserID   string
	Username string
	Rating   int32
}

// Manager owns the seek pool and every live game session. Each session is
// its own serialization domain; the manager only routes into their inboxes.
type Manager struct {
	log      *zap.Logger
	emitter  Emitter
	judge    Judge
	rater    Rater
	archiver Archiver

	mu       sync.Mutex
	sessions map[string]*Session
	seeks    *SeekStore

	tourneyEvents chan ipc.TournamentGameEndedEvent
	sweep         time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	newID  func() string
}

type ManagerParams struct {
	Emitter  Emitter
	Judge    Judge
	Rater    Rater
	Archiver Archiver // optional
	Log      *zap.Logger

	SweepInterval time.Duration
}

func NewManager(parent context.Context, p ManagerParams) *Manager {
	ctx, cancel := context.WithCancel(parent)
	rater := p.Rater
	if rater == nil {
		rater = NoopRater{}
	}
	if p.Log == nil {
		p.Log = zap.NewNop()
	}
	return &Manager{
		log:           p.Log,
		emitter:       p.Emitter,
		judge:         p.Judge,
		rater:         rater,
		archiver:      p.Archiver,
		sessions:      make(map[string]*Session),
		seeks:         NewSeekStore(),
		tourneyEvents: make(chan ipc.TournamentGameEndedEvent, 64),
		sweep:         p.SweepInterval,
		ctx:           ctx,
		cancel:        cancel,
		newID:         func() string { return randID(12) },
	}
}

// TournamentEvents is the one-way channel game completions flow out on; the
// tournament domain subscribes, this domain never calls into it.
func (m *Manager) TournamentEvents() <-chan ipc.TournamentGameEndedEvent {
	return m.tourneyEvents
}

// ================= seeks and matches =================

func (m *Manager) HandleSeek(ci ConnInfo, sr ipc.SeekRequest) {
	sr.UserID = ci.UserID
	sr.Username = ci.Username
	sr.ConnectionID = ci.ConnID
	if err := m.seeks.AddSeek(sr); err != nil {
		m.emitter.ToUser(ci.UserID, ipc.MustWrap(ipc.ErrorMessage{Message: err.Error()}))
		return
	}
	m.emitter.ToRealm(ipc.LobbyRealm, ipc.MustWrap(sr))
}

func (m *Manager) HandleMatch(ci ConnInfo, mr ipc.MatchRequest) {
	mr.UserID = ci.UserID
	mr.Username = ci.Username
	mr.ConnectionID = ci.ConnID
	if mr.ReceivingUser == "" {
		m.emitter.ToUser(ci.UserID, ipc.MustWrap(ipc.ErrorMessage{Message: "match request needs a receiver"}))
		return
	}
	if err := m.seeks.AddMatch(mr); err != nil {
		m.emitter.ToUser(ci.UserID, ipc.MustWrap(ipc.ErrorMessage{Message: err.Error()}))
		return
	}
	m.emitter.ToUser(mr.ReceivingUser, ipc.MustWrap(mr))
}

// Accept consumes a pending seek or match. Inbound SoughtGameProcessEvent
// from the request's own connection means cancel instead.
func (m *Manager) Accept(ci ConnInfo, requestID string) {
	if m.seeks.Cancel(requestID, ci.ConnID) {
		m.emitter.ToRealm(ipc.LobbyRealm, ipc.MustWrap(ipc.SoughtGameProcessEvent{RequestID: requestID}))
		return
	}

	var (
		req        ipc.GameRequest
		seeker     ipc.GamePlayerInfo
		seekerCID  string
		rematchFor string
	)
	if sr, err := m.seeks.ConsumeSeek(requestID, ci.UserID, ci.Rating); err == nil {
		req = sr.GameRequest
		seeker = ipc.GamePlayerInfo{UserID: sr.UserID, Nickname: sr.Username}
		seekerCID = sr.ConnectionID
	} else if mr, merr := m.seeks.ConsumeMatch(requestID, ci.UserID); merr == nil {
		req = mr.GameRequest
		seeker = ipc.GamePlayerInfo{UserID: mr.UserID, Nickname: mr.Username}
		seekerCID = mr.ConnectionID
		rematchFor = mr.RematchFor
	} else {
		// The seek may have just been consumed by someone else; the race
		// loser gets a user-scoped error only.
		m.emitter.ToUser(ci.UserID, ipc.MustWrap(ipc.ErrorMessage{Message: "that game request is no longer available"}))
		return
	}

	m.emitter.ToRealm(ipc.LobbyRealm, ipc.MustWrap(ipc.SoughtGameProcessEvent{RequestID: requestID}))

	accepter := ipc.GamePlayerInfo{UserID: ci.UserID, Nickname: ci.Username}
	gameID := m.startSession(SessionParams{
		Request: req,
		Players: [2]ipc.GamePlayerInfo{seeker, accepter},
	})

	newGame := ipc.MustWrap(ipc.NewGameEvent{
		GameID:       gameID,
		RequesterCID: seekerCID,
		AccepterCID:  ci.ConnID,
	})
	m.emitter.ToUser(seeker.UserID, newGame)
	m.emitter.ToUser(accepter.UserID, newGame)

	if rematchFor != "" {
		m.emitter.ToRealm(ipc.GameRealm(rematchFor),
			ipc.MustWrap(ipc.RematchStartedEvent{RematchGameID: gameID}))
	}
	m.emitter.ToRealm(ipc.LobbyRealm, ipc.MustWrap(ipc.OngoingGameEvent{
		GameID:      gameID,
		Players:     []ipc.GamePlayerInfo{seeker, accepter},
		GameRequest: req,
	}))
}

func (m *Manager) Decline(ci ConnInfo, requestID string) {
	mr, ok := m.seeks.Decline(requestID, ci.UserID)
	if !ok {
		return
	}
	m.emitter.ToUser(mr.UserID, ipc.MustWrap(ipc.DeclineSeekRequest{RequestID: requestID}))
}

// OpenSeeks and OpenMatchesFor feed lobby rehydration.
func (m *Manager) OpenSeeks() ipc.SeekRequests { return m.seeks.OpenSeeks() }
func (m *Manager) OpenMatchesFor(userID string) ipc.MatchRequests {
	return m.seeks.OpenMatchesFor(userID)
}

// RemoveConn clears a disconnected connection's pending requests.
func (m *Manager) RemoveConn(connID string) {
	for _, id := range m.seeks.RemoveConn(connID) {
		m.emitter.ToRealm(ipc.LobbyRealm, ipc.MustWrap(ipc.SoughtGameProcessEvent{RequestID: id}))
	}
}

// ================= tournament handoff =================

// StartTournamentGame is called by the tournament domain once a pairing's
// players are all ready. The game reports back only via TournamentEvents.
func (m *Manager) StartTournamentGame(tournamentID, division string, round, gameIndex int32,
	players [2]ipc.GamePlayerInfo, req ipc.GameRequest) string {

	gameID := m.startSession(SessionParams{
		Request:      req,
		Players:      players,
		TournamentID: tournamentID,
		Division:     division,
		Round:        round,
		GameIndex:    gameIndex,
	})
	newGame := ipc.MustWrap(ipc.NewGameEvent{GameID: gameID})
	m.emitter.ToUser(players[0].UserID, newGame)
	m.emitter.ToUser(players[1].UserID, newGame)
	return gameID
}

// ================= session routing =================

func (m *Manager) session(gameID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[gameID]
}

// Route sends an inbound gameplay message to its session. Returns false for
// an unknown game id (logged and dropped by the caller).
func (m *Manager) Ready(ci ConnInfo, gameID string) bool {
	s := m.session(gameID)
	if s == nil {
		return false
	}
	s.Ready(ci.UserID)
	return true
}

func (m *Manager) MoveEvent(ci ConnInfo, evt ipc.ClientGameplayEvent) bool {
	s := m.session(evt.GameID)
	if s == nil {
		return false
	}
	s.Move(ci.UserID, evt)
	return true
}

func (m *Manager) MetaEvent(ci ConnInfo, evt ipc.GameMetaEvent) bool {
	s := m.session(evt.GameID)
	if s == nil {
		return false
	}
	s.Meta(ci.UserID, evt)
	return true
}

func (m *Manager) TimedOutClaim(claim ipc.TimedOut) bool {
	s := m.session(claim.GameID)
	if s == nil {
		return false
	}
	s.TimedOut(claim.UserID)
	return true
}

// CancelGame is the administrative teardown used when a tournament is
// deleted before a pairing started; an in-progress game is left to finish.
func (m *Manager) CancelGame(gameID string) bool {
	s := m.session(gameID)
	if s == nil {
		return false
	}
	s.Cancel()
	return true
}

// OngoingGames snapshots the active sessions for lobby rehydration.
func (m *Manager) OngoingGames() ipc.OngoingGames {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := ipc.OngoingGames{Games: []ipc.OngoingGameEvent{}}
	for id, s := range m.sessions {
		players := s.Players()
		out.Games = append(out.Games, ipc.OngoingGameEvent{
			GameID:       id,
			Players:      players[:],
			GameRequest:  s.req,
			TournamentID: s.tournamentID,
		})
	}
	return out
}

func (m *Manager) startSession(p SessionParams) string {
	gameID := m.newID()
	p.GameID = gameID
	p.Judge = m.judge
	p.Rater = m.rater
	p.Emitter = m.emitter
	p.Log = m.log
	p.SweepInterval = m.sweep
	p.OnEnd = func(ended ipc.GameEndedEvent, tevt *ipc.TournamentGameEndedEvent) {
		m.finishGame(gameID, ended, tevt)
	}

	s := NewSession(m.ctx, p)
	m.mu.Lock()
	m.sessions[gameID] = s
	m.mu.Unlock()
	return gameID
}

func (m *Manager) finishGame(gameID string, ended ipc.GameEndedEvent, tevt *ipc.TournamentGameEndedEvent) {
	m.emitter.ToRealm(ipc.LobbyRealm, ipc.MustWrap(ipc.GameDeletion{ID: gameID}))

	if m.archiver != nil {
		if err := m.archiver.SaveGame(m.ctx, ended); err != nil {
			m.log.Warn("archive game", zap.String("gameID", gameID), zap.Error(err))
		}
	}
	if tevt != nil {
		select {
		case m.tourneyEvents <- *tevt:
		default:
			m.log.Error("tournament event channel full, dropping",
				zap.String("gameID", gameID))
		}
	}
}

// Stop tears down every session loop.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		s.Stop()
	}
	m.cancel()
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
