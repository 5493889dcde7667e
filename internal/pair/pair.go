// Package pair implements the default pairing algorithms for tournament
// divisions. Pairings index into the player slice handed in; a player paired
// with themselves has a bye.
package pair

import (
	"errors"
	"math/rand"
	"sort"

	"wordwire/internal/ipc"
)

// ErrManualPairings is returned for the MANUAL method: the director sets
// those pairings explicitly, the algorithm never does.
var ErrManualPairings = errors.New("manual pairings are set by the director")

var errUnsupportedMethod = errors.New("unsupported pairing method")

// Standard handles the built-in pairing methods. The zero value is not
// usable; construct with New.
type Standard struct {
	rng *rand.Rand
}

func New(seed int64) *Standard {
	return &Standard{rng: rand.New(rand.NewSource(seed))}
}

func (s *Standard) Pair(controls ipc.DivisionControls, rc ipc.RoundControl,
	players []ipc.TournamentPerson, prev *ipc.RoundStandings) ([]ipc.Pairing, error) {
	if len(players) == 0 {
		return nil, nil
	}
	switch rc.PairingMethod {
	case ipc.PairRandom, ipc.PairInitialFontes:
		return s.random(rc.Round, len(players)), nil
	case ipc.PairRoundRobin, ipc.PairTeamRoundRobin:
		return roundRobin(rc.Round, len(players)), nil
	case ipc.PairKingOfTheHill, ipc.PairElimination, ipc.PairFactor, ipc.PairSwiss:
		return kingOfTheHill(rc.Round, players, prev), nil
	case ipc.PairManual:
		return nil, ErrManualPairings
	default:
		return nil, errUnsupportedMethod
	}
}

func pairUp(order []int32, round int32) []ipc.Pairing {
	var out []ipc.Pairing
	for i := 0; i+1 < len(order); i += 2 {
		out = append(out, ipc.Pairing{
			Players: []int32{order[i], order[i+1]},
			Round:   round,
		})
	}
	if len(order)%2 == 1 {
		last := order[len(order)-1]
		out = append(out, ipc.Pairing{
			Players: []int32{last, last},
			Round:   round,
		})
	}
	return out
}

func (s *Standard) random(round int32, n int) []ipc.Pairing {
	order := identity(n)
	s.rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	return pairUp(order, round)
}

// kingOfTheHill pairs 1v2, 3v4 and so on down the previous standings. With
// no standings yet, rating order seeds the ladder.
func kingOfTheHill(round int32, players []ipc.TournamentPerson, prev *ipc.RoundStandings) []ipc.Pairing {
	order := identity(len(players))
	if prev != nil && len(prev.Standings) > 0 {
		rank := make(map[string]int, len(prev.Standings))
		for i, st := range prev.Standings {
			rank[st.PlayerID] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			ra, oka := rank[players[order[a]].ID]
			rb, okb := rank[players[order[b]].ID]
			if oka != okb {
				return oka
			}
			return ra < rb
		})
	} else {
		sort.SliceStable(order, func(a, b int) bool {
			return players[order[a]].Rating > players[order[b]].Rating
		})
	}
	return pairUp(order, round)
}

// roundRobin is the classic circle method: player 0 is fixed and the rest
// rotate by the round number, so every pair meets exactly once across n-1
// rounds.
func roundRobin(round int32, n int) []ipc.Pairing {
	order := identity(n)
	odd := n%2 == 1
	if odd {
		// Sentinel seat; whoever lands across from it gets the bye.
		order = append(order, -1)
		n++
	}
	rot := int(round) % (n - 1)
	rotated := make([]int32, n)
	rotated[0] = order[0]
	for i := 1; i < n; i++ {
		src := (i-1-rot+n-1)%(n-1) + 1
		rotated[i] = order[src]
	}
	var out []ipc.Pairing
	for i := 0; i < n/2; i++ {
		a, b := rotated[i], rotated[n-1-i]
		if a == -1 {
			a = b
		} else if b == -1 {
			b = a
		}
		out = append(out, ipc.Pairing{Players: []int32{a, b}, Round: round})
	}
	return out
}

func identity(n int) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(i)
	}
	return out
}
