package ipc

// Payload structs for every wire message. Each implements Message so the
// dispatcher can switch exhaustively over decoded envelopes.

// Message is the closed union of all known payloads plus Unknown.
type Message interface {
	WireType() MessageType
}

// ================= seeks / matches =================

type GameRules struct {
	BoardLayout        string `json:"boardLayout"`
	LetterDistribution string `json:"letterDistribution"`
	Variant            string `json:"variant,omitempty"`
}

// GameRequest is immutable once a game starts.
type GameRequest struct {
	Lexicon            string        `json:"lexicon"`
	Rules              GameRules     `json:"rules"`
	InitialTimeSeconds int32         `json:"initialTimeSeconds"`
	IncrementSeconds   int32         `json:"incrementSeconds"`
	ChallengeRule      ChallengeRule `json:"challengeRule"`
	GameMode           GameMode      `json:"gameMode"`
	RatingMode         RatingMode    `json:"ratingMode"`
	RequestID          string        `json:"requestId"`
	MaxOvertimeMinutes int32         `json:"maxOvertimeMinutes"`
	PlayerVsBot        bool          `json:"playerVsBot,omitempty"`
	OriginalRequestID  string        `json:"originalRequestId,omitempty"`
}

// SeekRequest is an open offer to play, visible to anyone within the
// rating bounds.
type SeekRequest struct {
	GameRequest   GameRequest `json:"gameRequest"`
	UserID        string      `json:"userId"`
	Username      string      `json:"username"`
	MinimumRating int32       `json:"minimumRating,omitempty"`
	MaximumRating int32       `json:"maximumRating,omitempty"`
	ConnectionID  string      `json:"connectionId"`
}

// MatchRequest is a directed offer to a specific receiver. RematchFor holds
// the finished game id when this is a rematch offer.
type MatchRequest struct {
	GameRequest   GameRequest `json:"gameRequest"`
	UserID        string      `json:"userId"`
	Username      string      `json:"username"`
	ReceivingUser string      `json:"receivingUser"`
	RematchFor    string      `json:"rematchFor,omitempty"`
	TournamentID  string      `json:"tournamentId,omitempty"`
	ConnectionID  string      `json:"connectionId"`
}

// SoughtGameProcessEvent announces that a seek or match request left the
// pool (matched, cancelled, or declined).
type SoughtGameProcessEvent struct {
	RequestID string `json:"requestId"`
}

type SeekRequests struct {
	Requests []SeekRequest `json:"requests"`
}

type MatchRequests struct {
	Requests []MatchRequest `json:"requests"`
}

type DeclineSeekRequest struct {
	RequestID string `json:"requestId"`
}

// ================= gameplay =================

// ClientGameplayEvent is a move proposal; the server's echo is authoritative.
type ClientGameplayEvent struct {
	Type           GameplayEventType `json:"type"`
	GameID         string            `json:"gameId"`
	PositionCoords string            `json:"positionCoords,omitempty"`
	Tiles          string            `json:"tiles,omitempty"`
}

// ServerGameplayEvent is the canonicalized move with the updated clock and
// next-to-play state.
type ServerGameplayEvent struct {
	UserID         string            `json:"userId"`
	GameID         string            `json:"gameId"`
	Type           GameplayEventType `json:"type"`
	PositionCoords string            `json:"positionCoords,omitempty"`
	Tiles          string            `json:"tiles,omitempty"`
	Score          int32             `json:"score"`
	NewRack        string            `json:"newRack"`
	TimeRemaining  int32             `json:"timeRemaining"`
	Playing        PlayState         `json:"playing"`
}

type GamePlayerInfo struct {
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
}

type GameHistory struct {
	GameID      string                `json:"gameId"`
	Players     []GamePlayerInfo      `json:"players"`
	Events      []ServerGameplayEvent `json:"events"`
	FinalScores []int32               `json:"finalScores,omitempty"`
}

// GameHistoryRefresher rehydrates a client's view of a game on (re)join.
type GameHistoryRefresher struct {
	History            GameHistory `json:"history"`
	TimePlayer1        int32       `json:"timePlayer1"`
	TimePlayer2        int32       `json:"timePlayer2"`
	MaxOvertimeMinutes int32       `json:"maxOvertimeMinutes"`
}

// GameEndedEvent is the terminal snapshot of a game. Keys of the maps are
// usernames. Exactly one is emitted per completed game.
type GameEndedEvent struct {
	Scores       map[string]int32 `json:"scores"`
	NewRatings   map[string]int32 `json:"newRatings,omitempty"`
	RatingDeltas map[string]int32 `json:"ratingDeltas,omitempty"`
	EndReason    GameEndReason    `json:"endReason"`
	Winner       string           `json:"winner,omitempty"`
	Loser        string           `json:"loser,omitempty"`
	Tie          bool             `json:"tie,omitempty"`
	Time         int64            `json:"time"`
	History      GameHistory      `json:"history"`
}

type NewGameEvent struct {
	GameID       string `json:"gameId"`
	RequesterCID string `json:"requesterCid"`
	AccepterCID  string `json:"accepterCid"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}

type ServerMessage struct {
	Message string `json:"message"`
}

type ServerChallengeResultEvent struct {
	Valid         bool          `json:"valid"`
	Challenger    string        `json:"challenger"`
	ChallengeRule ChallengeRule `json:"challengeRule"`
	ReturnedTiles string        `json:"returnedTiles,omitempty"`
}

type TimedOut struct {
	GameID string `json:"gameId"`
	UserID string `json:"userId"`
}

type ReadyForGame struct {
	GameID string `json:"gameId"`
}

type RematchStartedEvent struct {
	RematchGameID string `json:"rematchGameId"`
}

type GameDeletion struct {
	ID string `json:"id"`
}

// GameMetaEvent is an expiring out-of-band request or its response,
// correlated by OrigEventID.
type GameMetaEvent struct {
	OrigEventID string        `json:"origEventId"`
	Timestamp   int64         `json:"timestamp"`
	Type        MetaEventType `json:"type"`
	PlayerID    string        `json:"playerId"`
	GameID      string        `json:"gameId"`
	// Expiry is milliseconds from Timestamp after which the request
	// auto-resolves to its deny/no-op outcome.
	Expiry int32 `json:"expiry,omitempty"`
}

type OngoingGameEvent struct {
	GameID       string           `json:"gameId"`
	Players      []GamePlayerInfo `json:"players"`
	GameRequest  GameRequest      `json:"gameRequest"`
	TournamentID string           `json:"tournamentId,omitempty"`
}

type OngoingGames struct {
	Games []OngoingGameEvent `json:"games"`
}

type ActiveGameEntry struct {
	ID    string   `json:"id"`
	Users []string `json:"users"`
	TTL   int64    `json:"ttl"`
}

type GameInstantiation struct {
	GameID string `json:"gameId"`
}

type ProfileUpdateEvent struct {
	UserID  string           `json:"userId"`
	Ratings map[string]int32 `json:"ratings,omitempty"`
}

type LagMeasurement struct {
	LagMS int32 `json:"lagMs"`
}

// ================= chat / presence / realms =================

type ChatMessage struct {
	Username  string `json:"username"`
	UserID    string `json:"userId"`
	Channel   string `json:"channel"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	ID        string `json:"id"`
}

type ChatMessageDeleted struct {
	Channel string `json:"channel"`
	ID      string `json:"id"`
}

// UserPresence is a per-channel delta. Deleting marks a tombstone removal
// rather than a fresh presence.
type UserPresence struct {
	Username    string `json:"username"`
	UserID      string `json:"userId"`
	Channel     string `json:"channel"`
	IsAnonymous bool   `json:"isAnonymous,omitempty"`
	Deleting    bool   `json:"deleting,omitempty"`
}

type UserPresences struct {
	Presences []UserPresence `json:"presences"`
}

// PresenceEntry is the cross-channel view of one user.
type PresenceEntry struct {
	Username string   `json:"username"`
	UserID   string   `json:"userId"`
	Channels []string `json:"channels"`
}

type JoinPath struct {
	Path string `json:"path"`
}

type UnjoinRealm struct{}

// ================= tournaments =================

type TournamentPerson struct {
	ID        string `json:"id"`
	Rating    int32  `json:"rating"`
	Suspended bool   `json:"suspended,omitempty"`
}

type TournamentPersons struct {
	ID       string             `json:"id"`
	Division string             `json:"division"`
	Persons  []TournamentPerson `json:"persons"`
}

type RoundControl struct {
	PairingMethod               PairingMethod `json:"pairingMethod"`
	FirstMethod                 FirstMethod   `json:"firstMethod"`
	GamesPerRound               int32         `json:"gamesPerRound"`
	Round                       int32         `json:"round"`
	Factor                      int32         `json:"factor,omitempty"`
	InitialFontes               int32         `json:"initialFontes,omitempty"`
	MaxRepeats                  int32         `json:"maxRepeats,omitempty"`
	AllowOverMaxRepeats         bool          `json:"allowOverMaxRepeats,omitempty"`
	RepeatRelativeWeight        int32         `json:"repeatRelativeWeight,omitempty"`
	WinDifferenceRelativeWeight int32         `json:"winDifferenceRelativeWeight,omitempty"`
}

type DivisionControls struct {
	ID                  string               `json:"id"`
	Division            string               `json:"division"`
	GameRequest         GameRequest          `json:"gameRequest"`
	SuspendedResult     TournamentGameResult `json:"suspendedResult,omitempty"`
	SuspendedSpread     int32                `json:"suspendedSpread,omitempty"`
	AutoStart           bool                 `json:"autoStart,omitempty"`
	SpreadCap           int32                `json:"spreadCap,omitempty"`
	Gibsonize           bool                 `json:"gibsonize,omitempty"`
	GibsonSpread        int32                `json:"gibsonSpread,omitempty"`
	MinimumPlacement    int32                `json:"minimumPlacement,omitempty"`
	MaximumByePlacement int32                `json:"maximumByePlacement,omitempty"`
}

type TournamentGame struct {
	Scores        []int32                `json:"scores"`
	Results       []TournamentGameResult `json:"results"`
	GameEndReason GameEndReason          `json:"gameEndReason"`
	ID            string                 `json:"id,omitempty"`
}

// Pairing assigns two player indices to a slot in a round. Players of length
// one paired with themselves denotes a bye. Invariant once a game completes:
// len(scores) == len(results) == len(players).
type Pairing struct {
	Players     []int32                `json:"players"`
	Round       int32                  `json:"round"`
	Games       []TournamentGame       `json:"games"`
	Outcomes    []TournamentGameResult `json:"outcomes"`
	ReadyStates []string               `json:"readyStates"`
}

type PlayerStanding struct {
	PlayerID   string `json:"playerId"`
	Wins       int32  `json:"wins"`
	Losses     int32  `json:"losses"`
	Draws      int32  `json:"draws"`
	Spread     int32  `json:"spread"`
	Gibsonized bool   `json:"gibsonized,omitempty"`
}

type RoundStandings struct {
	Standings []PlayerStanding `json:"standings"`
}

type TournamentGameEndedPlayer struct {
	Username string               `json:"username"`
	Score    int32                `json:"score"`
	Result   TournamentGameResult `json:"result"`
}

// TournamentGameEndedEvent is the game domain's notification to the division
// orchestrator; the orchestrator never reads game state directly.
type TournamentGameEndedEvent struct {
	GameID       string                      `json:"gameId"`
	TournamentID string                      `json:"tournamentId"`
	Division     string                      `json:"division"`
	Players      []TournamentGameEndedPlayer `json:"players"`
	EndReason    GameEndReason               `json:"endReason"`
	Time         int64                       `json:"time"`
	Round        int32                       `json:"round"`
	GameIndex    int32                       `json:"gameIndex"`
}

type TournamentRoundStarted struct {
	TournamentID string `json:"tournamentId"`
	Division     string `json:"division"`
	Round        int32  `json:"round"`
	GameIndex    int32  `json:"gameIndex"`
	Deadline     int64  `json:"deadline,omitempty"`
}

type ReadyForTournamentGame struct {
	TournamentID string `json:"tournamentId"`
	Division     string `json:"division"`
	Round        int32  `json:"round"`
	PlayerID     string `json:"playerId"`
	GameIndex    int32  `json:"gameIndex"`
	Unready      bool   `json:"unready,omitempty"`
}

type TournamentDataResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsStarted   bool   `json:"isStarted"`
}

// TournamentDivisionDataResponse is the authoritative rehydration snapshot
// for one division. Standings are keyed by round index; PairingMap is keyed
// by "round:gameIndex".
type TournamentDivisionDataResponse struct {
	ID            string                   `json:"id"`
	Division      string                   `json:"division"`
	Players       TournamentPersons        `json:"players"`
	Standings     map[int32]RoundStandings `json:"standings"`
	PairingMap    map[string]Pairing       `json:"pairingMap"`
	Controls      DivisionControls         `json:"controls"`
	RoundControls []RoundControl           `json:"roundControls"`
	CurrentRound  int32                    `json:"currentRound"`
}

type FullTournamentDivisions struct {
	Divisions map[string]TournamentDivisionDataResponse `json:"divisions"`
	Started   bool                                      `json:"started"`
}

type DivisionPairingsResponse struct {
	ID                string                   `json:"id"`
	Division          string                   `json:"division"`
	DivisionPairings  []Pairing                `json:"divisionPairings"`
	DivisionStandings map[int32]RoundStandings `json:"divisionStandings"`
}

type DivisionPairingsDeletedResponse struct {
	ID       string `json:"id"`
	Division string `json:"division"`
	Round    int32  `json:"round"`
}

type PlayersAddedOrRemovedResponse struct {
	ID                string                   `json:"id"`
	Division          string                   `json:"division"`
	Players           TournamentPersons        `json:"players"`
	DivisionPairings  []Pairing                `json:"divisionPairings"`
	DivisionStandings map[int32]RoundStandings `json:"divisionStandings"`
}

type DivisionRoundControls struct {
	ID            string         `json:"id"`
	Division      string         `json:"division"`
	RoundControls []RoundControl `json:"roundControls"`
}

type DivisionControlsResponse struct {
	ID               string           `json:"id"`
	Division         string           `json:"division"`
	DivisionControls DivisionControls `json:"divisionControls"`
}

type TournamentDivisionDeletedResponse struct {
	ID       string `json:"id"`
	Division string `json:"division"`
}

type TournamentFinishedResponse struct {
	ID string `json:"id"`
}

// Unknown carries an unregistered tag's raw payload through untouched.
type Unknown struct {
	Tag MessageType
	Raw []byte
}

func (m SeekRequest) WireType() MessageType            { return MsgSeekRequest }
func (m MatchRequest) WireType() MessageType           { return MsgMatchRequest }
func (m SoughtGameProcessEvent) WireType() MessageType { return MsgSoughtGameProcessEvent }
func (m ClientGameplayEvent) WireType() MessageType    { return MsgClientGameplayEvent }
func (m ServerGameplayEvent) WireType() MessageType    { return MsgServerGameplayEvent }
func (m GameEndedEvent) WireType() MessageType         { return MsgGameEndedEvent }
func (m GameHistoryRefresher) WireType() MessageType   { return MsgGameHistoryRefresher }
func (m ErrorMessage) WireType() MessageType           { return MsgErrorMessage }
func (m NewGameEvent) WireType() MessageType           { return MsgNewGameEvent }
func (m ServerChallengeResultEvent) WireType() MessageType {
	return MsgServerChallengeResultEvent
}
func (m SeekRequests) WireType() MessageType           { return MsgSeekRequests }
func (m OngoingGameEvent) WireType() MessageType       { return MsgOngoingGameEvent }
func (m TimedOut) WireType() MessageType               { return MsgTimedOut }
func (m OngoingGames) WireType() MessageType           { return MsgOngoingGames }
func (m ReadyForTournamentGame) WireType() MessageType { return MsgReadyForTournamentGame }
func (m TournamentRoundStarted) WireType() MessageType { return MsgTournamentRoundStarted }
func (m GameDeletion) WireType() MessageType           { return MsgGameDeletion }
func (m MatchRequests) WireType() MessageType          { return MsgMatchRequests }
func (m DeclineSeekRequest) WireType() MessageType     { return MsgDeclineSeekRequest }
func (m ChatMessage) WireType() MessageType            { return MsgChatMessage }
func (m ChatMessageDeleted) WireType() MessageType     { return MsgChatMessageDeleted }
func (m UserPresence) WireType() MessageType           { return MsgUserPresence }
func (m UserPresences) WireType() MessageType          { return MsgUserPresences }
func (m ServerMessage) WireType() MessageType          { return MsgServerMessage }
func (m ReadyForGame) WireType() MessageType           { return MsgReadyForGame }
func (m LagMeasurement) WireType() MessageType         { return MsgLagMeasurement }
func (m TournamentGameEndedEvent) WireType() MessageType {
	return MsgTournamentGameEndedEvent
}
func (m TournamentDataResponse) WireType() MessageType { return MsgTournamentMessage }
func (m RematchStartedEvent) WireType() MessageType    { return MsgRematchStarted }
func (m TournamentDivisionDataResponse) WireType() MessageType {
	return MsgTournamentDivisionMessage
}
func (m TournamentDivisionDeletedResponse) WireType() MessageType {
	return MsgTournamentDivisionDeleted
}
func (m FullTournamentDivisions) WireType() MessageType { return MsgTournamentFullDivisions }
func (m DivisionRoundControls) WireType() MessageType {
	return MsgTournamentDivisionRoundControls
}
func (m DivisionPairingsResponse) WireType() MessageType {
	return MsgTournamentDivisionPairings
}
func (m DivisionControlsResponse) WireType() MessageType {
	return MsgTournamentDivisionControls
}
func (m PlayersAddedOrRemovedResponse) WireType() MessageType {
	return MsgTournamentDivisionPlayerChange
}
func (m TournamentFinishedResponse) WireType() MessageType { return MsgTournamentFinished }
func (m DivisionPairingsDeletedResponse) WireType() MessageType {
	return MsgTournamentDivisionPairingsDelete
}
func (m PresenceEntry) WireType() MessageType      { return MsgPresenceEntry }
func (m ActiveGameEntry) WireType() MessageType    { return MsgActiveGameEntry }
func (m GameMetaEvent) WireType() MessageType      { return MsgGameMetaEvent }
func (m ProfileUpdateEvent) WireType() MessageType { return MsgProfileUpdateEvent }
func (m GameInstantiation) WireType() MessageType  { return MsgGameInstantiation }
func (m JoinPath) WireType() MessageType           { return MsgJoinPath }
func (m UnjoinRealm) WireType() MessageType        { return MsgUnjoinRealm }
func (m Unknown) WireType() MessageType            { return m.Tag }
