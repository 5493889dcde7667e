package ipc

// Wire enumerations. Values are part of the deployed protocol: append new
// entries, never renumber.

type GameEndReason int32

const (
	EndReasonNone GameEndReason = iota
	EndReasonTime
	EndReasonStandard
	EndReasonConsecutiveZeroes
	EndReasonResigned
	EndReasonAborted
	EndReasonTripleChallenge
	EndReasonCancelled
	EndReasonForceForfeit
)

type GameMode int32

const (
	GameModeRealTime GameMode = iota
	GameModeCorrespondence
)

type RatingMode int32

const (
	RatingModeRated RatingMode = iota
	RatingModeCasual
)

type ChallengeRule int32

const (
	ChallengeRuleVoid ChallengeRule = iota
	ChallengeRuleSingle
	ChallengeRuleDouble
	ChallengeRuleFivePoint
	ChallengeRuleTenPoint
	ChallengeRuleTriple
)

// GameplayEventType is the move kind a client proposes.
type GameplayEventType int32

const (
	EventTilePlacement GameplayEventType = iota
	EventPass
	EventExchange
	EventChallengePlay
	EventResign
)

// PlayState is the server-reported phase of a game after a move.
type PlayState int32

const (
	StatePlaying PlayState = iota
	StateWaitingFinalPass
	StateGameOver
)

// MetaEventType labels the out-of-band request/response exchanges that run
// alongside an in-progress game.
type MetaEventType int32

const (
	MetaRequestAbort MetaEventType = iota
	MetaRequestAdjudication
	MetaRequestUndo
	MetaRequestAdjourn
	MetaAbortAccepted
	MetaAbortDenied
	MetaAdjudicationAccepted
	MetaAdjudicationDenied
	MetaUndoAccepted
	MetaUndoDenied
	MetaAddTime
	MetaTimerExpired
)

type TournamentGameResult int32

const (
	ResultNoResult TournamentGameResult = iota
	ResultWin
	ResultLoss
	ResultDraw
	ResultBye
	ResultForfeitWin
	ResultForfeitLoss
	ResultEliminated
	ResultVoid
)

type PairingMethod int32

const (
	PairRandom PairingMethod = iota
	PairRoundRobin
	PairKingOfTheHill
	PairElimination
	PairFactor
	PairInitialFontes
	PairSwiss
	PairQuickpair
	PairManual
	PairTeamRoundRobin
)

type FirstMethod int32

const (
	FirstManual FirstMethod = iota
	FirstRandom
	FirstAutomatic
)
