package game

import (
	"errors"
	"sort"
	"sync"

	"wordwire/internal/ipc"
)

var (
	ErrDuplicateRequest = errors.New("request id already in use")
	ErrNoSuchRequest    = errors.New("no such request")
	ErrRatingBounds     = errors.New("rating outside the seek's bounds")
	ErrOwnSeek          = errors.New("cannot accept your own request")
	ErrNotReceiver      = errors.New("request was not directed at you")
)

// SeekStore holds the open seek and match pool. A request lives here from
// creation until it is matched, cancelled, or declined; Consume removes it
// atomically so a seek can be matched exactly once.
type SeekStore struct {
	mu      sync.Mutex
	seeks   map[string]ipc.SeekRequest  // requestID
	matches map[string]ipc.MatchRequest // requestID
	byConn  map[string]map[string]bool  // connectionID -> requestIDs
}

func NewSeekStore() *SeekStore {
	return &SeekStore{
		seeks:   make(map[string]ipc.SeekRequest),
		matches: make(map[string]ipc.MatchRequest),
		byConn:  make(map[string]map[string]bool),
	}
}

// AddSeek registers an open seek. At most one active request per
// (connection, request id): re-adding the same id from the same connection
// replaces the old entry, from another connection it is rejected.
func (s *SeekStore) AddSeek(sr ipc.SeekRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.claimLocked(sr.GameRequest.RequestID, sr.ConnectionID); err != nil {
		return err
	}
	s.seeks[sr.GameRequest.RequestID] = sr
	return nil
}

// AddMatch registers a directed match request.
func (s *SeekStore) AddMatch(mr ipc.MatchRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.claimLocked(mr.GameRequest.RequestID, mr.ConnectionID); err != nil {
		return err
	}
	s.matches[mr.GameRequest.RequestID] = mr
	return nil
}

func (s *SeekStore) claimLocked(requestID, connID string) error {
	if requestID == "" || connID == "" {
		return ErrNoSuchRequest
	}
	if prev, ok := s.seeks[requestID]; ok && prev.ConnectionID != connID {
		return ErrDuplicateRequest
	}
	if prev, ok := s.matches[requestID]; ok && prev.ConnectionID != connID {
		return ErrDuplicateRequest
	}
	conns, ok := s.byConn[connID]
	if !ok {
		conns = make(map[string]bool)
		s.byConn[connID] = conns
	}
	conns[requestID] = true
	return nil
}

// ConsumeSeek removes a seek for the accepting user, enforcing the rating
// bounds. Exactly one concurrent accepter can win the removal.
func (s *SeekStore) ConsumeSeek(requestID, accepterID string, accepterRating int32) (ipc.SeekRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sr, ok := s.seeks[requestID]
	if !ok {
		return ipc.SeekRequest{}, ErrNoSuchRequest
	}
	if sr.UserID == accepterID {
		return ipc.SeekRequest{}, ErrOwnSeek
	}
	if sr.MinimumRating != 0 && accepterRating < sr.MinimumRating {
		return ipc.SeekRequest{}, ErrRatingBounds
	}
	if sr.MaximumRating != 0 && accepterRating > sr.MaximumRating {
		return ipc.SeekRequest{}, ErrRatingBounds
	}
	s.removeLocked(requestID, sr.ConnectionID)
	return sr, nil
}

// ConsumeMatch removes a directed request; only its receiver may accept.
func (s *SeekStore) ConsumeMatch(requestID, accepterID string) (ipc.MatchRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mr, ok := s.matches[requestID]
	if !ok {
		return ipc.MatchRequest{}, ErrNoSuchRequest
	}
	if mr.ReceivingUser != accepterID {
		return ipc.MatchRequest{}, ErrNotReceiver
	}
	s.removeLocked(requestID, mr.ConnectionID)
	return mr, nil
}

// Cancel removes the sender's own pending request. Cancelling after the
// request was consumed is a no-op, never an error: a race against a match
// resolves in favor of the match.
func (s *SeekStore) Cancel(requestID, connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sr, ok := s.seeks[requestID]; ok && sr.ConnectionID == connID {
		s.removeLocked(requestID, connID)
		return true
	}
	if mr, ok := s.matches[requestID]; ok && mr.ConnectionID == connID {
		s.removeLocked(requestID, connID)
		return true
	}
	return false
}

// Decline removes a directed request on behalf of its receiver.
func (s *SeekStore) Decline(requestID, receiverID string) (ipc.MatchRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mr, ok := s.matches[requestID]
	if !ok || mr.ReceivingUser != receiverID {
		return ipc.MatchRequest{}, false
	}
	s.removeLocked(requestID, mr.ConnectionID)
	return mr, true
}

// RemoveConn drops every pending request a connection owns (disconnect).
func (s *SeekStore) RemoveConn(connID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for id := range s.byConn[connID] {
		removed = append(removed, id)
		delete(s.seeks, id)
		delete(s.matches, id)
	}
	delete(s.byConn, connID)
	sort.Strings(removed)
	return removed
}

// OpenSeeks is the lobby snapshot, ordered by request id.
func (s *SeekStore) OpenSeeks() ipc.SeekRequests {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ipc.SeekRequest, 0, len(s.seeks))
	for _, sr := range s.seeks {
		out = append(out, sr)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GameRequest.RequestID < out[j].GameRequest.RequestID
	})
	return ipc.SeekRequests{Requests: out}
}

// OpenMatchesFor lists directed requests awaiting a specific receiver.
func (s *SeekStore) OpenMatchesFor(userID string) ipc.MatchRequests {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ipc.MatchRequest, 0)
	for _, mr := range s.matches {
		if mr.ReceivingUser == userID {
			out = append(out, mr)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GameRequest.RequestID < out[j].GameRequest.RequestID
	})
	return ipc.MatchRequests{Requests: out}
}

func (s *SeekStore) removeLocked(requestID, connID string) {
	delete(s.seeks, requestID)
	delete(s.matches, requestID)
	if conns, ok := s.byConn[connID]; ok {
		delete(conns, requestID)
		if len(conns) == 0 {
			delete(s.byConn, connID)
		}
	}
}
