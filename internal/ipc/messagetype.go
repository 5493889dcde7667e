package ipc

// MessageType is the envelope tag. The numbering is frozen by deployed
// clients: new types are appended, gaps (11, 33) stay reserved.
type MessageType uint8

const (
	MsgSeekRequest                      MessageType = 0
	MsgMatchRequest                     MessageType = 1
	MsgSoughtGameProcessEvent           MessageType = 2
	MsgClientGameplayEvent              MessageType = 3
	MsgServerGameplayEvent              MessageType = 4
	MsgGameEndedEvent                   MessageType = 5
	MsgGameHistoryRefresher             MessageType = 6
	MsgErrorMessage                     MessageType = 7
	MsgNewGameEvent                     MessageType = 8
	MsgServerChallengeResultEvent       MessageType = 9
	MsgSeekRequests                     MessageType = 10
	MsgOngoingGameEvent                 MessageType = 12
	MsgTimedOut                         MessageType = 13
	MsgOngoingGames                     MessageType = 14
	MsgReadyForTournamentGame           MessageType = 15
	MsgTournamentRoundStarted           MessageType = 16
	MsgGameDeletion                     MessageType = 17
	MsgMatchRequests                    MessageType = 18
	MsgDeclineSeekRequest               MessageType = 19
	MsgChatMessage                      MessageType = 20
	MsgChatMessageDeleted               MessageType = 21
	MsgUserPresence                     MessageType = 22
	MsgUserPresences                    MessageType = 23
	MsgServerMessage                    MessageType = 24
	MsgReadyForGame                     MessageType = 25
	MsgLagMeasurement                   MessageType = 26
	MsgTournamentGameEndedEvent         MessageType = 27
	MsgTournamentMessage                MessageType = 28
	MsgRematchStarted                   MessageType = 29
	MsgTournamentDivisionMessage        MessageType = 30
	MsgTournamentDivisionDeleted        MessageType = 31
	MsgTournamentFullDivisions          MessageType = 32
	MsgTournamentDivisionRoundControls  MessageType = 34
	MsgTournamentDivisionPairings       MessageType = 35
	MsgTournamentDivisionControls       MessageType = 36
	MsgTournamentDivisionPlayerChange   MessageType = 37
	MsgTournamentFinished               MessageType = 38
	MsgTournamentDivisionPairingsDelete MessageType = 39
	MsgPresenceEntry                    MessageType = 40
	MsgActiveGameEntry                  MessageType = 41
	MsgGameMetaEvent                    MessageType = 42
	MsgProfileUpdateEvent               MessageType = 43
	MsgGameInstantiation                MessageType = 44
	MsgJoinPath                         MessageType = 45
	MsgUnjoinRealm                      MessageType = 46
)
