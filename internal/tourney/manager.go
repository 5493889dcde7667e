package tourney

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"wordwire/internal/ipc"
)

var (
	ErrNoSuchTournament = errors.New("no such tournament")
	ErrNoSuchDivision   = errors.New("no such division")
)

// Emitter sends envelopes out of the tournament domain. The dispatch layer
// satisfies it.
type Emitter interface {
	ToUser(userID string, env ipc.Envelope)
	ToRealm(realm string, env ipc.Envelope)
}

// GameStarter hands game creation back to the game domain once a pairing's
// ready handshake completes. The returned id names the new game.
type GameStarter interface {
	StartTournamentGame(tournamentID, division string, round, gameIndex int32,
		players [2]ipc.GamePlayerInfo, req ipc.GameRequest) string
}

// SnapshotArchiver persists division snapshots; failures are logged and never
// block tournament progress.
type SnapshotArchiver interface {
	SaveDivision(ctx context.Context, snap ipc.TournamentDivisionDataResponse) error
}

type tournament struct {
	id          string
	name        string
	description string
	started     bool
	finished    bool
	divisions   map[string]*Division
}

// Manager owns every tournament and routes division operations. Division
// state itself is guarded per-division; the manager lock only covers the
// registry maps.
type Manager struct {
	mu          sync.RWMutex
	tournaments map[string]*tournament

	pairer   Pairer
	emitter  Emitter
	starter  GameStarter
	archiver SnapshotArchiver
	log      *zap.Logger
}

type ManagerParams struct {
	Pairer   Pairer
	Emitter  Emitter
	Starter  GameStarter
	Archiver SnapshotArchiver
	Log      *zap.Logger
}

func NewManager(p ManagerParams) *Manager {
	if p.Log == nil {
		p.Log = zap.NewNop()
	}
	return &Manager{
		tournaments: make(map[string]*tournament),
		pairer:      p.Pairer,
		emitter:     p.Emitter,
		starter:     p.Starter,
		archiver:    p.Archiver,
		log:         p.Log.Named("tourney"),
	}
}

// Run consumes game-completion events until ctx ends or the channel closes.
// It is the only path by which game results enter tournament state.
func (m *Manager) Run(ctx context.Context, events <-chan ipc.TournamentGameEndedEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case tevt, ok := <-events:
			if !ok {
				return
			}
			if err := m.HandleGameEnd(ctx, tevt); err != nil {
				m.log.Warn("dropping game result",
					zap.String("tournamentId", tevt.TournamentID),
					zap.String("gameId", tevt.GameID),
					zap.Error(err))
			}
		}
	}
}

// ================= registry =================

func (m *Manager) NewTournament(id, name, description string) ipc.TournamentDataResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tournaments[id]
	if !ok {
		t = &tournament{id: id, name: name, description: description, divisions: map[string]*Division{}}
		m.tournaments[id] = t
	}
	return tournamentData(t)
}

func tournamentData(t *tournament) ipc.TournamentDataResponse {
	return ipc.TournamentDataResponse{ID: t.id, Name: t.name, Description: t.description, IsStarted: t.started}
}

func (m *Manager) tournamentFor(id string) (*tournament, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tournaments[id]
	if !ok {
		return nil, ErrNoSuchTournament
	}
	return t, nil
}

func (m *Manager) divisionFor(id, division string) (*tournament, *Division, error) {
	t, err := m.tournamentFor(id)
	if err != nil {
		return nil, nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := t.divisions[division]
	if !ok {
		return nil, nil, ErrNoSuchDivision
	}
	return t, d, nil
}

func (m *Manager) AddDivision(id, division string) error {
	t, err := m.tournamentFor(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.started {
		return ErrAlreadyStarted
	}
	if _, ok := t.divisions[division]; !ok {
		t.divisions[division] = NewDivision(id, division)
	}
	return nil
}

func (m *Manager) RemoveDivision(id, division string) error {
	_, d, err := m.divisionFor(id, division)
	if err != nil {
		return err
	}
	resp := d.Delete()
	m.mu.Lock()
	t := m.tournaments[id]
	delete(t.divisions, division)
	m.mu.Unlock()
	m.broadcast(id, division, ipc.MustWrap(resp))
	return nil
}

// ================= configuration =================

func (m *Manager) SetDivisionControls(id, division string, c ipc.DivisionControls) error {
	_, d, err := m.divisionFor(id, division)
	if err != nil {
		return err
	}
	m.broadcast(id, division, ipc.MustWrap(d.SetControls(c)))
	return nil
}

func (m *Manager) SetRoundControls(id, division string, rcs []ipc.RoundControl) error {
	_, d, err := m.divisionFor(id, division)
	if err != nil {
		return err
	}
	resp, err := d.SetRoundControls(rcs)
	if err != nil {
		return err
	}
	m.broadcast(id, division, ipc.MustWrap(resp))
	return nil
}

func (m *Manager) AddPlayers(id, division string, persons []ipc.TournamentPerson) error {
	_, d, err := m.divisionFor(id, division)
	if err != nil {
		return err
	}
	resp, err := d.AddPlayers(persons)
	if err != nil {
		return err
	}
	m.broadcast(id, division, ipc.MustWrap(resp))
	return nil
}

func (m *Manager) RemovePlayers(id, division string, playerIDs []string) error {
	_, d, err := m.divisionFor(id, division)
	if err != nil {
		return err
	}
	resp, err := d.RemovePlayers(playerIDs)
	if err != nil {
		return err
	}
	m.broadcast(id, division, ipc.MustWrap(resp))
	return nil
}

// ================= lifecycle =================

// StartTournament pairs round 0 in every division and broadcasts the
// pairings to each division realm.
func (m *Manager) StartTournament(ctx context.Context, id string) error {
	t, err := m.tournamentFor(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if t.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	t.started = true
	divisions := make(map[string]*Division, len(t.divisions))
	for name, d := range t.divisions {
		divisions[name] = d
	}
	m.mu.Unlock()

	for name, d := range divisions {
		resp, err := d.Start(m.pairer)
		if err != nil {
			return err
		}
		m.broadcast(id, name, ipc.MustWrap(resp))
		m.archive(ctx, d)
	}
	return nil
}

// FinishTournament stops all pairing and standings propagation. Games
// already running complete under their own rules; their late results are
// recorded silently.
func (m *Manager) FinishTournament(id string) error {
	t, err := m.tournamentFor(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	t.finished = true
	divisions := make(map[string]*Division, len(t.divisions))
	for name, d := range t.divisions {
		divisions[name] = d
	}
	m.mu.Unlock()

	for name, d := range divisions {
		d.Finish()
		m.broadcast(id, name, ipc.MustWrap(ipc.TournamentFinishedResponse{ID: id}))
	}
	return nil
}

// SetPairing is the director's manual override for one round slot.
func (m *Manager) SetPairing(id, division string, round, index int32, playerIDs []string) error {
	_, d, err := m.divisionFor(id, division)
	if err != nil {
		return err
	}
	resp, err := d.SetPairing(round, index, playerIDs)
	if err != nil {
		return err
	}
	m.broadcast(id, division, ipc.MustWrap(resp))
	return nil
}

func (m *Manager) DeletePairings(id, division string, round int32) error {
	_, d, err := m.divisionFor(id, division)
	if err != nil {
		return err
	}
	resp, err := d.DeletePairings(round)
	if err != nil {
		return err
	}
	m.broadcast(id, division, ipc.MustWrap(resp))
	return nil
}

// ================= gameplay hooks =================

// HandleReady processes a player's ready handshake. When the whole pairing
// is ready it announces the round slot and asks the game domain to create
// the game.
func (m *Manager) HandleReady(rfg ipc.ReadyForTournamentGame) error {
	_, d, err := m.divisionFor(rfg.TournamentID, rfg.Division)
	if err != nil {
		return err
	}
	allReady, opponents, err := d.Ready(rfg)
	if err != nil {
		return err
	}
	if !allReady {
		// Echo the partial handshake so the opponent's client can show it.
		m.broadcast(rfg.TournamentID, rfg.Division, ipc.MustWrap(rfg))
		return nil
	}
	if len(opponents) != 2 {
		return ErrNoSuchPairing
	}
	req := d.Snapshot().Controls.GameRequest
	m.broadcast(rfg.TournamentID, rfg.Division, ipc.MustWrap(ipc.TournamentRoundStarted{
		TournamentID: rfg.TournamentID,
		Division:     rfg.Division,
		Round:        rfg.Round,
		GameIndex:    rfg.GameIndex,
		Deadline:     roundDeadline(req),
	}))
	if m.starter != nil {
		players := [2]ipc.GamePlayerInfo{
			{UserID: opponents[0].ID, Nickname: opponents[0].ID},
			{UserID: opponents[1].ID, Nickname: opponents[1].ID},
		}
		m.starter.StartTournamentGame(rfg.TournamentID, rfg.Division, rfg.Round, rfg.GameIndex, players, req)
	}
	return nil
}

// roundDeadline is the latest a slot's game can still be running: both
// players' full clocks plus any overtime allowance, in unix millis.
func roundDeadline(req ipc.GameRequest) int64 {
	budget := time.Duration(2*(req.InitialTimeSeconds+req.MaxOvertimeMinutes*60)) * time.Second
	return time.Now().Add(budget).UnixMilli()
}

// HandleGameEnd folds one completed game into its division. Replays are
// no-ops; results for finished or deleted divisions are recorded but not
// propagated.
func (m *Manager) HandleGameEnd(ctx context.Context, tevt ipc.TournamentGameEndedEvent) error {
	t, d, err := m.divisionFor(tevt.TournamentID, tevt.Division)
	if err != nil {
		return err
	}
	resp, changed, advanced, suppressed, err := d.SubmitOutcome(m.pairer, tevt)
	if err != nil {
		return err
	}
	if !changed || suppressed {
		return nil
	}
	m.broadcast(tevt.TournamentID, tevt.Division, ipc.MustWrap(resp))
	if advanced {
		m.log.Info("round advanced",
			zap.String("tournamentId", tevt.TournamentID),
			zap.String("division", tevt.Division),
			zap.Int32("round", d.CurrentRound()))
	}
	m.archive(ctx, d)

	if m.allDivisionsDone(t) {
		if err := m.FinishTournament(t.id); err != nil {
			m.log.Warn("finishing tournament", zap.String("tournamentId", t.id), zap.Error(err))
		}
	}
	return nil
}

func (m *Manager) allDivisionsDone(t *tournament) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t.finished || len(t.divisions) == 0 {
		return false
	}
	for _, d := range t.divisions {
		d.mu.Lock()
		done := d.finished || d.deleted
		d.mu.Unlock()
		if !done {
			return false
		}
	}
	return true
}

// ================= snapshots =================

func (m *Manager) TournamentData(id string) (ipc.TournamentDataResponse, error) {
	t, err := m.tournamentFor(id)
	if err != nil {
		return ipc.TournamentDataResponse{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return tournamentData(t), nil
}

func (m *Manager) DivisionData(id, division string) (ipc.TournamentDivisionDataResponse, error) {
	_, d, err := m.divisionFor(id, division)
	if err != nil {
		return ipc.TournamentDivisionDataResponse{}, err
	}
	return d.Snapshot(), nil
}

// FullDivisions is sent to a client joining a tournament realm.
func (m *Manager) FullDivisions(id string) (ipc.FullTournamentDivisions, error) {
	t, err := m.tournamentFor(id)
	if err != nil {
		return ipc.FullTournamentDivisions{}, err
	}
	m.mu.RLock()
	started := t.started
	divisions := make(map[string]*Division, len(t.divisions))
	for name, d := range t.divisions {
		divisions[name] = d
	}
	m.mu.RUnlock()

	out := ipc.FullTournamentDivisions{
		Divisions: make(map[string]ipc.TournamentDivisionDataResponse, len(divisions)),
		Started:   started,
	}
	for name, d := range divisions {
		out.Divisions[name] = d.Snapshot()
	}
	return out, nil
}

// ================= plumbing =================

func (m *Manager) broadcast(id, division string, env ipc.Envelope) {
	if m.emitter == nil {
		return
	}
	m.emitter.ToRealm(ipc.TournamentRealm(id, division), env)
}

func (m *Manager) archive(ctx context.Context, d *Division) {
	if m.archiver == nil {
		return
	}
	snap := d.Snapshot()
	if err := m.archiver.SaveDivision(ctx, snap); err != nil {
		m.log.Warn("archiving division snapshot",
			zap.String("tournamentId", snap.ID),
			zap.String("division", snap.Division),
			zap.Error(err))
	}
}
