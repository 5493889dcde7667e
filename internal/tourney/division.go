package tourney

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"wordwire/internal/ipc"
)

var (
	ErrNotStarted       = errors.New("division has not started")
	ErrAlreadyStarted   = errors.New("division has already started")
	ErrNoRoundControls  = errors.New("division has no round controls")
	ErrNoSuchPairing    = errors.New("no pairing at that round and index")
	ErrRoundMismatch    = errors.New("result round does not match pairing round")
	ErrUnknownPlayer    = errors.New("player is not in this division")
	ErrDivisionFinished = errors.New("division is finished")
)

// ByeSpread is the spread credited for a bye (and debited for a forfeit).
const ByeSpread = 50

// Pairer is the pairing-algorithm collaborator: it consumes the controls and
// the previous round's standings and returns the round's pairings. It never
// mutates division state.
type Pairer interface {
	Pair(controls ipc.DivisionControls, rc ipc.RoundControl,
		players []ipc.TournamentPerson, prev *ipc.RoundStandings) ([]ipc.Pairing, error)
}

// Division owns the pairings, standings and controls for one
// (tournament, division) pair. All methods serialize on the division lock:
// it is a single-writer domain. It observes game completions only through
// SubmitOutcome and never reaches into game state.
type Division struct {
	mu sync.Mutex

	tournamentID string
	name         string

	players       []ipc.TournamentPerson
	controls      ipc.DivisionControls
	roundControls []ipc.RoundControl

	pairings     map[string]*ipc.Pairing
	standings    map[int32]ipc.RoundStandings
	gibsonized   map[string]int32 // playerID -> round clinched
	currentRound int32            // -1 until started
	finished     bool
	deleted      bool
}

func NewDivision(tournamentID, name string) *Division {
	return &Division{
		tournamentID: tournamentID,
		name:         name,
		pairings:     make(map[string]*ipc.Pairing),
		standings:    make(map[int32]ipc.RoundStandings),
		gibsonized:   make(map[string]int32),
		currentRound: -1,
	}
}

func pairingKey(round, index int32) string {
	return fmt.Sprintf("%d:%d", round, index)
}

func (d *Division) Name() string { return d.name }

// ================= configuration =================

func (d *Division) SetControls(c ipc.DivisionControls) ipc.DivisionControlsResponse {
	d.mu.Lock()
	defer d.mu.Unlock()
	c.ID = d.tournamentID
	c.Division = d.name
	d.controls = c
	return ipc.DivisionControlsResponse{ID: d.tournamentID, Division: d.name, DivisionControls: c}
}

func (d *Division) SetRoundControls(rcs []ipc.RoundControl) (ipc.DivisionRoundControls, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.currentRound >= 0 {
		return ipc.DivisionRoundControls{}, ErrAlreadyStarted
	}
	out := make([]ipc.RoundControl, len(rcs))
	for i, rc := range rcs {
		rc.Round = int32(i)
		if rc.GamesPerRound == 0 {
			rc.GamesPerRound = 1
		}
		out[i] = rc
	}
	d.roundControls = out
	return ipc.DivisionRoundControls{ID: d.tournamentID, Division: d.name, RoundControls: out}, nil
}

// AddPlayers registers players; allowed mid-tournament, in which case only
// future rounds are affected.
func (d *Division) AddPlayers(persons []ipc.TournamentPerson) (ipc.PlayersAddedOrRemovedResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.finished || d.deleted {
		return ipc.PlayersAddedOrRemovedResponse{}, ErrDivisionFinished
	}
	for _, p := range persons {
		if d.playerIndexLocked(p.ID) >= 0 {
			continue
		}
		d.players = append(d.players, p)
	}
	return d.playerChangeResponseLocked(), nil
}

// RemovePlayers suspends started players (they stop being paired) and drops
// unstarted ones entirely.
func (d *Division) RemovePlayers(ids []string) (ipc.PlayersAddedOrRemovedResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.finished || d.deleted {
		return ipc.PlayersAddedOrRemovedResponse{}, ErrDivisionFinished
	}
	for _, id := range ids {
		idx := d.playerIndexLocked(id)
		if idx < 0 {
			return ipc.PlayersAddedOrRemovedResponse{}, ErrUnknownPlayer
		}
		if d.currentRound >= 0 {
			d.players[idx].Suspended = true
		} else {
			d.players = append(d.players[:idx], d.players[idx+1:]...)
		}
	}
	return d.playerChangeResponseLocked(), nil
}

func (d *Division) playerChangeResponseLocked() ipc.PlayersAddedOrRemovedResponse {
	return ipc.PlayersAddedOrRemovedResponse{
		ID:                d.tournamentID,
		Division:          d.name,
		Players:           d.personsLocked(),
		DivisionPairings:  d.currentPairingsLocked(),
		DivisionStandings: d.standingsCopyLocked(),
	}
}

func (d *Division) playerIndexLocked(id string) int {
	for i := range d.players {
		if d.players[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *Division) personsLocked() ipc.TournamentPersons {
	out := make([]ipc.TournamentPerson, len(d.players))
	copy(out, d.players)
	return ipc.TournamentPersons{ID: d.tournamentID, Division: d.name, Persons: out}
}

// ================= lifecycle =================

// Start pairs round 0. Precondition: currentRound == -1.
func (d *Division) Start(pairer Pairer) (ipc.DivisionPairingsResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.currentRound >= 0 {
		return ipc.DivisionPairingsResponse{}, ErrAlreadyStarted
	}
	if len(d.roundControls) == 0 {
		return ipc.DivisionPairingsResponse{}, ErrNoRoundControls
	}
	d.currentRound = 0
	return d.pairRoundLocked(pairer, 0)
}

func (d *Division) pairRoundLocked(pairer Pairer, round int32) (ipc.DivisionPairingsResponse, error) {
	rc := d.roundControls[round]
	var prev *ipc.RoundStandings
	if round > 0 {
		st := d.computeStandingsLocked(round - 1)
		prev = &st
	}
	active := make([]ipc.TournamentPerson, 0, len(d.players))
	activeIdx := make([]int32, 0, len(d.players))
	for i, p := range d.players {
		if !p.Suspended {
			active = append(active, p)
			activeIdx = append(activeIdx, int32(i))
		}
	}
	pairings, err := pairer.Pair(d.controls, rc, active, prev)
	if err != nil {
		return ipc.DivisionPairingsResponse{}, err
	}
	for i := range pairings {
		p := pairings[i]
		p.Round = round
		// The pairer indexes the active slice; remap to division indices.
		for j, pi := range p.Players {
			p.Players[j] = activeIdx[pi]
		}
		if p.ReadyStates == nil {
			p.ReadyStates = make([]string, len(p.Players))
		}
		// A self-paired player has a bye; it completes immediately.
		if len(p.Players) == 2 && p.Players[0] == p.Players[1] {
			p.Games = []ipc.TournamentGame{{
				Scores:        []int32{ByeSpread, 0},
				Results:       []ipc.TournamentGameResult{ipc.ResultBye, ipc.ResultBye},
				GameEndReason: ipc.EndReasonNone,
			}}
			p.Outcomes = []ipc.TournamentGameResult{ipc.ResultBye, ipc.ResultBye}
		}
		d.pairings[pairingKey(round, int32(i))] = &p
	}
	d.standings[round] = d.computeStandingsLocked(round)
	return d.pairingsResponseLocked(round), nil
}

func (d *Division) pairingsResponseLocked(rounds ...int32) ipc.DivisionPairingsResponse {
	resp := ipc.DivisionPairingsResponse{
		ID:                d.tournamentID,
		Division:          d.name,
		DivisionStandings: map[int32]ipc.RoundStandings{},
	}
	for _, r := range rounds {
		resp.DivisionPairings = append(resp.DivisionPairings, d.roundPairingsLocked(r)...)
		if st, ok := d.standings[r]; ok {
			resp.DivisionStandings[r] = st
		}
	}
	return resp
}

func (d *Division) roundPairingsLocked(round int32) []ipc.Pairing {
	var keys []string
	for k, p := range d.pairings {
		if p.Round == round {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]ipc.Pairing, 0, len(keys))
	for _, k := range keys {
		out = append(out, *d.pairings[k])
	}
	return out
}

func (d *Division) currentPairingsLocked() []ipc.Pairing {
	if d.currentRound < 0 {
		return nil
	}
	return d.roundPairingsLocked(d.currentRound)
}

// Finish marks the division done. Results for in-flight games are still
// recorded, but callers are told not to propagate them.
func (d *Division) Finish() {
	d.mu.Lock()
	d.finished = true
	d.mu.Unlock()
}

// Delete tombstones the division.
func (d *Division) Delete() ipc.TournamentDivisionDeletedResponse {
	d.mu.Lock()
	d.deleted = true
	d.mu.Unlock()
	return ipc.TournamentDivisionDeletedResponse{ID: d.tournamentID, Division: d.name}
}

// SetPairing places players into a round slot by hand. It backs the MANUAL
// pairing method and director repairs; an existing pairing at the slot is
// replaced along with any results it held.
func (d *Division) SetPairing(round, index int32, playerIDs []string) (ipc.DivisionPairingsResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.finished || d.deleted {
		return ipc.DivisionPairingsResponse{}, ErrDivisionFinished
	}
	p := &ipc.Pairing{Round: round}
	for _, id := range playerIDs {
		idx := d.playerIndexLocked(id)
		if idx < 0 {
			return ipc.DivisionPairingsResponse{}, ErrUnknownPlayer
		}
		p.Players = append(p.Players, int32(idx))
	}
	if len(p.Players) == 1 {
		p.Players = append(p.Players, p.Players[0])
	}
	p.ReadyStates = make([]string, len(p.Players))
	if len(p.Players) == 2 && p.Players[0] == p.Players[1] {
		p.Games = []ipc.TournamentGame{{
			Scores:        []int32{ByeSpread, 0},
			Results:       []ipc.TournamentGameResult{ipc.ResultBye, ipc.ResultBye},
			GameEndReason: ipc.EndReasonNone,
		}}
		p.Outcomes = []ipc.TournamentGameResult{ipc.ResultBye, ipc.ResultBye}
	}
	d.pairings[pairingKey(round, index)] = p
	d.standings[round] = d.computeStandingsLocked(round)
	return d.pairingsResponseLocked(round), nil
}

// DeletePairings invalidates one round's pairings only, never the whole
// division.
func (d *Division) DeletePairings(round int32) (ipc.DivisionPairingsDeletedResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, p := range d.pairings {
		if p.Round == round {
			delete(d.pairings, k)
		}
	}
	delete(d.standings, round)
	return ipc.DivisionPairingsDeletedResponse{ID: d.tournamentID, Division: d.name, Round: round}, nil
}

// ================= results =================

// SubmitOutcome records a completed game into its pairing slot.
//
// Redelivery is detected by the game id already being resolved in the
// pairing; a replay is a success-no-op so standings are never
// double-counted. The advanced return reports whether the round completed
// and currentRound moved. suppressed is set when the division is finished
// or deleted: the result is recorded but must not be propagated.
func (d *Division) SubmitOutcome(pairer Pairer, tevt ipc.TournamentGameEndedEvent) (resp ipc.DivisionPairingsResponse, changed, advanced, suppressed bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.currentRound < 0 {
		return resp, false, false, false, ErrNotStarted
	}
	p, ok := d.pairings[pairingKey(tevt.Round, tevt.GameIndex)]
	if !ok {
		return resp, false, false, false, ErrNoSuchPairing
	}
	if p.Round != tevt.Round {
		return resp, false, false, false, ErrRoundMismatch
	}
	for _, g := range p.Games {
		if g.ID != "" && g.ID == tevt.GameID {
			// Idempotent replay.
			return d.pairingsResponseLocked(tevt.Round), false, false, d.finished || d.deleted, nil
		}
	}

	game := ipc.TournamentGame{
		GameEndReason: tevt.EndReason,
		ID:            tevt.GameID,
	}
	outcomes := make([]ipc.TournamentGameResult, len(p.Players))
	for slot, pi := range p.Players {
		username := d.players[pi].ID
		for _, gp := range tevt.Players {
			if gp.Username == username {
				game.Scores = append(game.Scores, gp.Score)
				game.Results = append(game.Results, gp.Result)
				outcomes[slot] = gp.Result
				break
			}
		}
	}
	if len(game.Scores) != len(p.Players) {
		return resp, false, false, false, ErrUnknownPlayer
	}
	p.Games = append(p.Games, game)
	p.Outcomes = outcomes

	d.standings[tevt.Round] = d.computeStandingsLocked(tevt.Round)

	if d.finished || d.deleted {
		return d.pairingsResponseLocked(tevt.Round), true, false, true, nil
	}

	rounds := []int32{tevt.Round}
	if d.controls.AutoStart && tevt.Round == d.currentRound && d.roundCompleteLocked(tevt.Round) {
		if int(d.currentRound+1) < len(d.roundControls) {
			d.currentRound++
			if _, err := d.pairRoundLocked(pairer, d.currentRound); err != nil {
				return resp, true, false, false, err
			}
			rounds = append(rounds, d.currentRound)
			advanced = true
		} else {
			d.finished = true
		}
	}
	return d.pairingsResponseLocked(rounds...), true, advanced, false, nil
}

func (d *Division) roundCompleteLocked(round int32) bool {
	found := false
	for _, p := range d.pairings {
		if p.Round != round {
			continue
		}
		found = true
		games := int32(1)
		if int(round) < len(d.roundControls) && d.roundControls[round].GamesPerRound > 0 {
			games = d.roundControls[round].GamesPerRound
		}
		if int32(len(p.Games)) < games {
			return false
		}
	}
	return found
}

// ================= ready handshake =================

// Ready toggles one player's ready flag in a pairing. When every active
// player in the pairing is ready, it reports allReady along with the paired
// opponents so the caller can hand game creation off to the game domain.
func (d *Division) Ready(rfg ipc.ReadyForTournamentGame) (allReady bool, opponents []ipc.TournamentPerson, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.currentRound < 0 {
		return false, nil, ErrNotStarted
	}
	if d.finished || d.deleted {
		return false, nil, ErrDivisionFinished
	}
	p, ok := d.pairings[pairingKey(rfg.Round, rfg.GameIndex)]
	if !ok {
		return false, nil, ErrNoSuchPairing
	}
	slot := -1
	for i, pi := range p.Players {
		if d.players[pi].ID == rfg.PlayerID {
			slot = i
			break
		}
	}
	if slot < 0 {
		return false, nil, ErrUnknownPlayer
	}
	if rfg.Unready {
		p.ReadyStates[slot] = ""
	} else {
		p.ReadyStates[slot] = rfg.PlayerID
	}

	for i, pi := range p.Players {
		if d.players[pi].Suspended {
			continue
		}
		if p.ReadyStates[i] == "" {
			return false, nil, nil
		}
	}
	// Everyone is ready; clear the states so a rematch of the slot (multi
	// game rounds) needs a fresh handshake.
	for i := range p.ReadyStates {
		p.ReadyStates[i] = ""
	}
	for _, pi := range p.Players {
		opponents = append(opponents, d.players[pi])
	}
	return true, opponents, nil
}

// ================= standings =================

// computeStandingsLocked derives the standings for a round fresh from the
// stored per-pairing results; nothing is incrementally patched.
func (d *Division) computeStandingsLocked(round int32) ipc.RoundStandings {
	type tally struct {
		wins, losses, draws, spread int32
	}
	tallies := make(map[string]*tally, len(d.players))
	for _, p := range d.players {
		tallies[p.ID] = &tally{}
	}

	for _, pairing := range d.pairings {
		if pairing.Round > round {
			continue
		}
		for _, g := range pairing.Games {
			for slot, pi := range pairing.Players {
				if int(pi) >= len(d.players) || slot >= len(g.Results) {
					continue
				}
				id := d.players[pi].ID
				tl := tallies[id]
				if tl == nil {
					continue
				}
				spread := g.Scores[slot]
				if len(g.Scores) == 2 {
					spread -= g.Scores[1-slot]
				}
				if sc := d.controls.SpreadCap; sc > 0 {
					if spread > sc {
						spread = sc
					} else if spread < -sc {
						spread = -sc
					}
				}
				switch g.Results[slot] {
				case ipc.ResultWin, ipc.ResultForfeitWin:
					tl.wins++
					tl.spread += spread
				case ipc.ResultBye:
					if slot == 0 {
						tl.wins++
						tl.spread += ByeSpread
					}
				case ipc.ResultLoss, ipc.ResultEliminated:
					tl.losses++
					tl.spread += spread
				case ipc.ResultForfeitLoss:
					tl.losses++
					tl.spread -= ByeSpread
				case ipc.ResultDraw:
					tl.draws++
					tl.spread += spread
				}
			}
		}
	}

	out := make([]ipc.PlayerStanding, 0, len(d.players))
	for _, p := range d.players {
		tl := tallies[p.ID]
		out = append(out, ipc.PlayerStanding{
			PlayerID: p.ID,
			Wins:     tl.wins,
			Losses:   tl.losses,
			Draws:    tl.draws,
			Spread:   tl.spread,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		wi, wj := out[i].Wins*2+out[i].Draws, out[j].Wins*2+out[j].Draws
		if wi != wj {
			return wi > wj
		}
		if out[i].Spread != out[j].Spread {
			return out[i].Spread > out[j].Spread
		}
		return out[i].PlayerID < out[j].PlayerID
	})

	d.markGibsonizationsLocked(out, round)
	return ipc.RoundStandings{Standings: out}
}

// markGibsonizationsLocked flags players who have clinched first place: the
// remaining rounds cannot close the game gap, or can only tie it with the
// spread gap already beyond GibsonSpread per round.
func (d *Division) markGibsonizationsLocked(standings []ipc.PlayerStanding, round int32) {
	if !d.controls.Gibsonize || len(standings) < 2 {
		return
	}
	remaining := int32(len(d.roundControls)) - round - 1
	if remaining <= 0 {
		return
	}
	lead := standings[0]
	second := standings[1]
	gameGap := (lead.Wins*2 + lead.Draws) - (second.Wins*2 + second.Draws)
	clinched := gameGap > remaining*2
	if !clinched && gameGap == remaining*2 && d.controls.GibsonSpread > 0 {
		clinched = lead.Spread-second.Spread > d.controls.GibsonSpread*remaining
	}
	if clinched {
		standings[0].Gibsonized = true
		if _, ok := d.gibsonized[lead.PlayerID]; !ok {
			d.gibsonized[lead.PlayerID] = round
		}
	}
}

// GibsonizedPlayers maps clinched players to the round they clinched in.
func (d *Division) GibsonizedPlayers() map[string]int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]int32, len(d.gibsonized))
	for k, v := range d.gibsonized {
		out[k] = v
	}
	return out
}

// ================= snapshots =================

func (d *Division) standingsCopyLocked() map[int32]ipc.RoundStandings {
	out := make(map[int32]ipc.RoundStandings, len(d.standings))
	for k, v := range d.standings {
		out[k] = v
	}
	return out
}

// Snapshot is the authoritative rehydration object sent to a client on
// (re)join.
func (d *Division) Snapshot() ipc.TournamentDivisionDataResponse {
	d.mu.Lock()
	defer d.mu.Unlock()

	pairingMap := make(map[string]ipc.Pairing, len(d.pairings))
	for k, p := range d.pairings {
		pairingMap[k] = *p
	}
	rcs := make([]ipc.RoundControl, len(d.roundControls))
	copy(rcs, d.roundControls)

	return ipc.TournamentDivisionDataResponse{
		ID:            d.tournamentID,
		Division:      d.name,
		Players:       d.personsLocked(),
		Standings:     d.standingsCopyLocked(),
		PairingMap:    pairingMap,
		Controls:      d.controls,
		RoundControls: rcs,
		CurrentRound:  d.currentRound,
	}
}

// CurrentRound is -1 until the division starts.
func (d *Division) CurrentRound() int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currentRound
}
