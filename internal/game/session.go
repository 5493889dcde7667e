package game

import (
	"context"
	"time"

	"go.uber.org/zap"

	"wordwire/internal/ipc"
)

// Limits on meta-event traffic, per player per game.
const (
	MaxAbortRequests = 1
	MaxNudges        = 2
	// Aborting is disallowed once this many moves have been played.
	AbortDisallowTurns = 7
	// No meta requests may target a player with this little clock left.
	DisallowMsecsRemaining = 30 * 1000

	AbortTimeout = 60 * time.Second
	NudgeTimeout = 120 * time.Second
	AddTimeMsecs = 60 * 1000

	// Six consecutive zero-score events end the game.
	ConsecutiveZeroesLimit = 6
)

type SessionState int

const (
	StateMatched SessionState = iota
	StateInProgress
	StateEnded
)

type playerSlot struct {
	userID   string
	username string
	ready    bool
	aborts   int
	nudges   int
}

type sessionMsg interface{ isSessionMsg() }

type readyMsg struct{ UserID string }

type moveMsg struct {
	UserID string
	Evt    ipc.ClientGameplayEvent
}

type metaMsg struct {
	UserID string
	Evt    ipc.GameMetaEvent
}

type timedOutMsg struct{ UserID string }

type adminCancelMsg struct{}

type viewMsg struct{ Reply chan SessionView }

// SessionView reflects internal state without data races; test and admin use.
type SessionView struct {
	State         SessionState
	OnTurn        int
	Scores        [2]int32
	TimeRemaining [2]int64
	Events        int
	OpenMetas     []ipc.GameMetaEvent
}

// endFn receives the terminal snapshot; the tournament event is nil for
// non-tournament games.
type endFn func(ended ipc.GameEndedEvent, tevt *ipc.TournamentGameEndedEvent)

// Session drives one game through MATCHED -> IN_PROGRESS -> ENDED. It is the
// single writer for everything keyed by its game id; all input goes through
// the inbox and the loop below.
type Session struct {
	id      string
	req     ipc.GameRequest
	players [2]playerSlot

	tournamentID string
	division     string
	round        int32
	gameIndex    int32

	state      SessionState
	onTurn     int
	scores     [2]int32
	remaining  [2]int64 // msecs, may go negative up to the overtime budget
	turnStart  time.Time
	events     []ipc.ServerGameplayEvent
	metas      []ipc.GameMetaEvent
	zeroStreak int

	judge   Judge
	rater   Rater
	emitter Emitter
	onEnd   endFn
	log     *zap.Logger
	now     func() time.Time
	newID   func() string

	inbox  chan sessionMsg
	sweep  time.Duration
	ctx    context.Context
	cancel context.CancelFunc
}

type SessionParams struct {
	GameID  string
	Request ipc.GameRequest
	Players [2]ipc.GamePlayerInfo

	TournamentID string
	Division     string
	Round        int32
	GameIndex    int32

	Judge   Judge
	Rater   Rater
	Emitter Emitter
	OnEnd   endFn
	Log     *zap.Logger

	// SweepInterval drives clock and meta-expiry checks; defaults to 1s.
	SweepInterval time.Duration
}

func NewSession(parent context.Context, p SessionParams) *Session {
	ctx, cancel := context.WithCancel(parent)
	initial := int64(p.Request.InitialTimeSeconds) * 1000
	s := &Session{
		id:  p.GameID,
		req: p.Request,
		players: [2]playerSlot{
			{userID: p.Players[0].UserID, username: p.Players[0].Nickname},
			{userID: p.Players[1].UserID, username: p.Players[1].Nickname},
		},
		tournamentID: p.TournamentID,
		division:     p.Division,
		round:        p.Round,
		gameIndex:    p.GameIndex,
		state:        StateMatched,
		remaining:    [2]int64{initial, initial},
		judge:        p.Judge,
		rater:        p.Rater,
		emitter:      p.Emitter,
		onEnd:        p.OnEnd,
		log:          p.Log.With(zap.String("gameID", p.GameID)),
		now:          time.Now,
		newID:        func() string { return randID(12) },
		inbox:        make(chan sessionMsg, 64),
		sweep:        p.SweepInterval,
		ctx:          ctx,
		cancel:       cancel,
	}
	if s.sweep <= 0 {
		s.sweep = time.Second
	}
	go s.loop()
	return s
}

func (s *Session) ID() string                 { return s.id }
func (s *Session) Inbox() chan<- sessionMsg   { return s.inbox }
func (s *Session) Players() [2]ipc.GamePlayerInfo {
	return [2]ipc.GamePlayerInfo{
		{UserID: s.players[0].userID, Nickname: s.players[0].username},
		{UserID: s.players[1].userID, Nickname: s.players[1].username},
	}
}

// Ready, Move, Meta, TimedOut, Cancel and Snapshot are the inbox API used by
// the manager.
func (s *Session) Ready(userID string)                           { s.inbox <- readyMsg{UserID: userID} }
func (s *Session) Move(userID string, evt ipc.ClientGameplayEvent) { s.inbox <- moveMsg{UserID: userID, Evt: evt} }
func (s *Session) Meta(userID string, evt ipc.GameMetaEvent)       { s.inbox <- metaMsg{UserID: userID, Evt: evt} }
func (s *Session) TimedOut(userID string)                          { s.inbox <- timedOutMsg{UserID: userID} }
func (s *Session) Cancel()                                         { s.inbox <- adminCancelMsg{} }

func (s *Session) Snapshot() SessionView {
	reply := make(chan SessionView, 1)
	s.inbox <- viewMsg{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-s.ctx.Done():
		return SessionView{State: StateEnded}
	}
}

func (s *Session) loop() {
	ticker := time.NewTicker(s.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.handleSweep()
		case m := <-s.inbox:
			switch msg := m.(type) {
			case readyMsg:
				s.handleReady(msg.UserID)
			case moveMsg:
				s.handleMove(msg.UserID, msg.Evt)
			case metaMsg:
				s.handleMeta(msg.UserID, msg.Evt)
			case timedOutMsg:
				s.handleTimedOut(msg.UserID)
			case adminCancelMsg:
				s.endGame(ipc.EndReasonCancelled, -1)
			case viewMsg:
				msg.Reply <- s.view()
			}
		}
	}
}

func (readyMsg) isSessionMsg()       {}
func (moveMsg) isSessionMsg()        {}
func (metaMsg) isSessionMsg()        {}
func (timedOutMsg) isSessionMsg()    {}
func (adminCancelMsg) isSessionMsg() {}
func (viewMsg) isSessionMsg()        {}

func (s *Session) view() SessionView {
	v := SessionView{
		State:     s.state,
		OnTurn:    s.onTurn,
		Scores:    s.scores,
		Events:    len(s.events),
		OpenMetas: s.openRequests(),
	}
	v.TimeRemaining = [2]int64{s.remainingNow(0), s.remainingNow(1)}
	return v
}

func (s *Session) playerIndex(userID string) int {
	for i := range s.players {
		if s.players[i].userID == userID {
			return i
		}
	}
	return -1
}

func (s *Session) realm() string { return ipc.GameRealm(s.id) }

func (s *Session) errorTo(userID, msg string) {
	s.emitter.ToUser(userID, ipc.MustWrap(ipc.ErrorMessage{Message: msg}))
}

// ================= ready handshake =================

func (s *Session) handleReady(userID string) {
	idx := s.playerIndex(userID)
	if idx < 0 {
		return
	}
	if s.state != StateMatched {
		// Rejoin: resend the refresher to the one asking.
		if s.state == StateInProgress {
			s.emitter.ToUser(userID, ipc.MustWrap(s.refresher()))
		}
		return
	}
	s.players[idx].ready = true
	if !(s.players[0].ready && s.players[1].ready) {
		return
	}
	s.state = StateInProgress
	s.turnStart = s.now()
	s.emitter.ToRealm(s.realm(), ipc.MustWrap(s.refresher()))
	s.log.Info("game started",
		zap.String("p1", s.players[0].username),
		zap.String("p2", s.players[1].username))
}

func (s *Session) refresher() ipc.GameHistoryRefresher {
	return ipc.GameHistoryRefresher{
		History:            s.history(),
		TimePlayer1:        int32(s.remainingNow(0)),
		TimePlayer2:        int32(s.remainingNow(1)),
		MaxOvertimeMinutes: s.req.MaxOvertimeMinutes,
	}
}

func (s *Session) history() ipc.GameHistory {
	evts := make([]ipc.ServerGameplayEvent, len(s.events))
	copy(evts, s.events)
	return ipc.GameHistory{
		GameID:  s.id,
		Players: []ipc.GamePlayerInfo{s.Players()[0], s.Players()[1]},
		Events:  evts,
	}
}

// ================= clock =================

func (s *Session) remainingNow(idx int) int64 {
	rem := s.remaining[idx]
	if s.state == StateInProgress && idx == s.onTurn {
		rem -= s.now().Sub(s.turnStart).Milliseconds()
	}
	return rem
}

func (s *Session) overtimeBudget() int64 {
	return int64(s.req.MaxOvertimeMinutes) * 60 * 1000
}

func (s *Session) clockExpired(idx int) bool {
	return s.remainingNow(idx) < -s.overtimeBudget()
}

// chargeClock settles the mover's clock at the moment of an accepted move.
func (s *Session) chargeClock(idx int) {
	now := s.now()
	s.remaining[idx] -= now.Sub(s.turnStart).Milliseconds()
	s.remaining[idx] += int64(s.req.IncrementSeconds) * 1000
	s.turnStart = now
}

// ================= moves =================

func (s *Session) handleMove(userID string, evt ipc.ClientGameplayEvent) {
	idx := s.playerIndex(userID)
	if idx < 0 {
		s.errorTo(userID, "you are not playing in this game")
		return
	}
	if s.state != StateInProgress {
		s.errorTo(userID, "game is not in progress")
		return
	}

	// Resigning is legal off-turn; everything else must wait.
	if evt.Type == ipc.EventResign {
		s.endGame(ipc.EndReasonResigned, 1-idx)
		return
	}
	if idx != s.onTurn {
		s.errorTo(userID, "it is not your turn")
		return
	}
	if s.clockExpired(idx) {
		s.endGame(ipc.EndReasonTime, 1-idx)
		return
	}

	verdict, err := s.judge.Judge(s.ctx, s.history(), evt)
	if err != nil {
		// Validation rejection: user-scoped error, no state change.
		s.errorTo(userID, err.Error())
		return
	}

	s.chargeClock(idx)
	sge := verdict.Event
	sge.UserID = userID
	sge.GameID = s.id
	sge.TimeRemaining = int32(s.remaining[idx])
	if sge.Playing == ipc.StatePlaying && verdict.GameOver {
		sge.Playing = ipc.StateGameOver
	}
	s.events = append(s.events, sge)
	s.scores[idx] += sge.Score

	if sge.Score == 0 {
		s.zeroStreak++
	} else {
		s.zeroStreak = 0
	}

	s.emitter.ToRealm(s.realm(), ipc.MustWrap(sge))
	if verdict.ChallengeResult != nil {
		s.emitter.ToRealm(s.realm(), ipc.MustWrap(*verdict.ChallengeResult))
	}

	s.onTurn = 1 - s.onTurn

	switch {
	case verdict.GameOver:
		reason := verdict.EndReason
		if reason == ipc.EndReasonNone {
			reason = ipc.EndReasonStandard
		}
		s.endGame(reason, s.leaderIndex())
	case s.zeroStreak >= ConsecutiveZeroesLimit:
		s.endGame(ipc.EndReasonConsecutiveZeroes, s.leaderIndex())
	}
}

// leaderIndex is the winner by score; -1 for a tie.
func (s *Session) leaderIndex() int {
	switch {
	case s.scores[0] > s.scores[1]:
		return 0
	case s.scores[1] > s.scores[0]:
		return 1
	default:
		return -1
	}
}

func (s *Session) handleTimedOut(userID string) {
	if s.state != StateInProgress {
		return
	}
	idx := s.playerIndex(userID)
	if idx < 0 {
		return
	}
	// TimedOut is a claim; the clock is the authority.
	if !s.clockExpired(idx) {
		return
	}
	s.endGame(ipc.EndReasonTime, 1-idx)
}

// ================= meta events =================

func isMetaRequest(t ipc.MetaEventType) bool {
	switch t {
	case ipc.MetaRequestAbort, ipc.MetaRequestAdjudication,
		ipc.MetaRequestUndo, ipc.MetaRequestAdjourn:
		return true
	}
	return false
}

func metaResponseMatches(req, resp ipc.MetaEventType) bool {
	switch req {
	case ipc.MetaRequestAbort:
		return resp == ipc.MetaAbortAccepted || resp == ipc.MetaAbortDenied
	case ipc.MetaRequestAdjudication:
		return resp == ipc.MetaAdjudicationAccepted || resp == ipc.MetaAdjudicationDenied
	case ipc.MetaRequestUndo:
		return resp == ipc.MetaUndoAccepted || resp == ipc.MetaUndoDenied
	}
	return false
}

func defaultExpiry(t ipc.MetaEventType) int32 {
	if t == ipc.MetaRequestAbort {
		return int32(AbortTimeout.Milliseconds())
	}
	return int32(NudgeTimeout.Milliseconds())
}

// openRequests are requests with no response and no expiry event yet.
func (s *Session) openRequests() []ipc.GameMetaEvent {
	closed := make(map[string]bool)
	for _, e := range s.metas {
		if !isMetaRequest(e.Type) {
			closed[e.OrigEventID] = true
		}
	}
	var open []ipc.GameMetaEvent
	for _, e := range s.metas {
		if isMetaRequest(e.Type) && !closed[e.OrigEventID] {
			open = append(open, e)
		}
	}
	return open
}

func (s *Session) handleMeta(userID string, evt ipc.GameMetaEvent) {
	idx := s.playerIndex(userID)
	if idx < 0 {
		s.errorTo(userID, "you are not playing in this game")
		return
	}
	if s.state != StateInProgress {
		s.errorTo(userID, "game is not in progress")
		return
	}
	evt.PlayerID = userID
	evt.GameID = s.id
	evt.Timestamp = s.now().UnixMilli()

	switch {
	case evt.Type == ipc.MetaAddTime:
		// Immediate, no handshake: gives the opponent time.
		s.remaining[1-idx] += AddTimeMsecs
		s.emitter.ToRealm(s.realm(), ipc.MustWrap(evt))
		return
	case isMetaRequest(evt.Type):
		s.handleMetaRequest(idx, evt)
	default:
		s.handleMetaResponse(idx, evt)
	}
}

func (s *Session) handleMetaRequest(idx int, evt ipc.GameMetaEvent) {
	userID := s.players[idx].userID
	if len(s.openRequests()) > 0 {
		s.errorTo(userID, "please respond to the existing request first")
		return
	}
	switch evt.Type {
	case ipc.MetaRequestAbort:
		if s.players[idx].aborts >= MaxAbortRequests {
			s.errorTo(userID, "you have made too many abort requests in this game")
			return
		}
		if len(s.events) > AbortDisallowTurns {
			s.errorTo(userID, "it is too late to abort")
			return
		}
	case ipc.MetaRequestAdjudication:
		if s.players[idx].nudges >= MaxNudges {
			s.errorTo(userID, "you have nudged too many times in this game")
			return
		}
	}
	if s.remainingNow(1-idx) <= DisallowMsecsRemaining {
		s.errorTo(userID, "this game is almost over; request not sent")
		return
	}
	switch evt.Type {
	case ipc.MetaRequestAbort:
		s.players[idx].aborts++
	case ipc.MetaRequestAdjudication:
		s.players[idx].nudges++
	}

	if evt.OrigEventID == "" {
		evt.OrigEventID = s.newID()
	}
	if evt.Expiry == 0 {
		evt.Expiry = defaultExpiry(evt.Type)
	}
	s.metas = append(s.metas, evt)
	s.emitter.ToRealm(s.realm(), ipc.MustWrap(evt))
}

func (s *Session) handleMetaResponse(idx int, evt ipc.GameMetaEvent) {
	userID := s.players[idx].userID
	var req *ipc.GameMetaEvent
	for _, open := range s.openRequests() {
		if open.OrigEventID == evt.OrigEventID {
			r := open
			req = &r
			break
		}
	}
	if req == nil {
		// Out-of-window response (already resolved or expired): user-scoped
		// error, nothing mutated.
		s.errorTo(userID, "no matching request to respond to")
		return
	}
	if req.PlayerID == userID {
		s.errorTo(userID, "you cannot respond to your own request")
		return
	}
	if !metaResponseMatches(req.Type, evt.Type) {
		s.errorTo(userID, "that response does not match the request")
		return
	}

	s.metas = append(s.metas, evt)
	s.emitter.ToRealm(s.realm(), ipc.MustWrap(evt))

	requesterIdx := s.playerIndex(req.PlayerID)
	switch evt.Type {
	case ipc.MetaAbortAccepted:
		s.endGame(ipc.EndReasonAborted, -1)
	case ipc.MetaAdjudicationAccepted:
		s.endGame(ipc.EndReasonForceForfeit, requesterIdx)
	case ipc.MetaUndoAccepted:
		s.undoLastEvent()
	}
}

func (s *Session) undoLastEvent() {
	if len(s.events) == 0 {
		return
	}
	last := s.events[len(s.events)-1]
	s.events = s.events[:len(s.events)-1]
	if idx := s.playerIndex(last.UserID); idx >= 0 {
		s.scores[idx] -= last.Score
		s.onTurn = idx
	}
	// Recount the trailing zero streak from what remains.
	s.zeroStreak = 0
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Score != 0 {
			break
		}
		s.zeroStreak++
	}
	s.turnStart = s.now()
	s.emitter.ToRealm(s.realm(), ipc.MustWrap(s.refresher()))
}

// ================= sweep =================

// handleSweep fires on a timer independent of any connection's liveness, so
// fully disconnected clients still experience correct expiry behavior.
func (s *Session) handleSweep() {
	if s.state != StateInProgress {
		return
	}
	now := s.now().UnixMilli()
	for _, req := range s.openRequests() {
		if req.Expiry > 0 && now > req.Timestamp+int64(req.Expiry) {
			expired := ipc.GameMetaEvent{
				OrigEventID: req.OrigEventID,
				Timestamp:   now,
				Type:        ipc.MetaTimerExpired,
				PlayerID:    req.PlayerID,
				GameID:      s.id,
			}
			s.metas = append(s.metas, expired)
			s.emitter.ToRealm(s.realm(), ipc.MustWrap(expired))
		}
	}
	for idx := range s.players {
		if s.clockExpired(idx) {
			s.endGame(ipc.EndReasonTime, 1-idx)
			return
		}
	}
}

// ================= ending =================

func (s *Session) endGame(reason ipc.GameEndReason, winnerIdx int) {
	if s.state == StateEnded {
		return
	}
	// The loop stays alive after this so late arrivals (a second resign, a
	// stale move) still get their user-scoped rejection; Stop disposes it.
	s.state = StateEnded

	scores := map[string]int32{
		s.players[0].username: s.scores[0],
		s.players[1].username: s.scores[1],
	}
	ended := ipc.GameEndedEvent{
		Scores:    scores,
		EndReason: reason,
		Time:      s.now().UnixMilli(),
		History:   s.history(),
	}
	ended.History.FinalScores = []int32{s.scores[0], s.scores[1]}

	voided := reason == ipc.EndReasonAborted || reason == ipc.EndReasonCancelled
	switch {
	case voided:
		// No winner for a game that never counted.
	case winnerIdx < 0:
		ended.Tie = true
	default:
		ended.Winner = s.players[winnerIdx].username
		ended.Loser = s.players[1-winnerIdx].username
	}

	if s.req.RatingMode == ipc.RatingModeRated && !voided {
		players := s.history().Players
		newRatings, deltas := s.rater.Rate(context.Background(), players, scores, reason)
		ended.NewRatings = newRatings
		ended.RatingDeltas = deltas
	}

	s.emitter.ToRealm(s.realm(), ipc.MustWrap(ended))
	s.emitter.ToUser(s.players[0].userID, ipc.MustWrap(ended))
	s.emitter.ToUser(s.players[1].userID, ipc.MustWrap(ended))
	s.log.Info("game ended",
		zap.Int32("reason", int32(reason)),
		zap.String("winner", ended.Winner))

	var tevt *ipc.TournamentGameEndedEvent
	if s.tournamentID != "" {
		tevt = &ipc.TournamentGameEndedEvent{
			GameID:       s.id,
			TournamentID: s.tournamentID,
			Division:     s.division,
			EndReason:    reason,
			Time:         ended.Time,
			Round:        s.round,
			GameIndex:    s.gameIndex,
			Players: []ipc.TournamentGameEndedPlayer{
				{Username: s.players[0].username, Score: s.scores[0], Result: tournamentResult(voided, winnerIdx, 0)},
				{Username: s.players[1].username, Score: s.scores[1], Result: tournamentResult(voided, winnerIdx, 1)},
			},
		}
	}
	if s.onEnd != nil {
		s.onEnd(ended, tevt)
	}
}

func tournamentResult(voided bool, winnerIdx, idx int) ipc.TournamentGameResult {
	switch {
	case voided:
		return ipc.ResultVoid
	case winnerIdx < 0:
		return ipc.ResultDraw
	case winnerIdx == idx:
		return ipc.ResultWin
	default:
		return ipc.ResultLoss
	}
}

// Stop shuts the session loop down. Called by the manager when the game is
// disposed of, not as part of the normal ENDED transition.
func (s *Session) Stop() { s.cancel() }
