package ipc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Envelope is the outer wrapper around every wire message: one tag byte
// followed by the payload. On byte streams a big-endian uint16 length
// (covering tag + payload) frames each envelope.
//
// Payloads are JSON with fixed struct field order and sorted map keys, so
// re-encoding a decoded envelope is byte-identical; redelivery can be
// detected by hash.
type Envelope struct {
	Type    MessageType
	Payload []byte
}

// MaxPayload keeps an envelope addressable by the uint16 frame length.
const MaxPayload = 1<<16 - 2

var ErrPayloadTooLarge = fmt.Errorf("payload exceeds %d bytes", MaxPayload)

// Wrap serializes a message into an envelope.
func Wrap(m Message) (Envelope, error) {
	if u, ok := m.(Unknown); ok {
		return Envelope{Type: u.Tag, Payload: u.Raw}, nil
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return Envelope{}, err
	}
	if len(payload) > MaxPayload {
		return Envelope{}, ErrPayloadTooLarge
	}
	return Envelope{Type: m.WireType(), Payload: payload}, nil
}

// MustWrap is for messages whose marshaling cannot fail (all of ours can't;
// they are plain data structs). It panics otherwise.
func MustWrap(m Message) Envelope {
	env, err := Wrap(m)
	if err != nil {
		panic(err)
	}
	return env
}

// Bytes lays the envelope out as tag byte + payload.
func (e Envelope) Bytes() []byte {
	out := make([]byte, 1+len(e.Payload))
	out[0] = byte(e.Type)
	copy(out[1:], e.Payload)
	return out
}

// Unmarshal parses a tag byte + payload layout. Any tag value is accepted;
// unknown tags surface later as the Unknown variant.
func Unmarshal(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("empty envelope")
	}
	if len(b)-1 > MaxPayload {
		return Envelope{}, ErrPayloadTooLarge
	}
	payload := make([]byte, len(b)-1)
	copy(payload, b[1:])
	return Envelope{Type: MessageType(b[0]), Payload: payload}, nil
}

// WriteEnvelope frames an envelope onto a byte stream.
func WriteEnvelope(w io.Writer, e Envelope) error {
	body := e.Bytes()
	if len(body) > 1+MaxPayload {
		return ErrPayloadTooLarge
	}
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// ReadEnvelope reads one framed envelope from a byte stream.
func ReadEnvelope(r io.Reader) (Envelope, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Envelope{}, err
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	if n == 0 {
		return Envelope{}, fmt.Errorf("zero-length frame")
	}
	body := make([]byte, int(n))
	if _, err := io.ReadFull(r, body); err != nil {
		return Envelope{}, err
	}
	return Unmarshal(body)
}

// Message decodes the payload into its typed struct. Unregistered tags
// return Unknown with the raw payload preserved; they are valid, not errors.
func (e Envelope) Message() (Message, error) {
	switch e.Type {
	case MsgSeekRequest:
		return decodeAs[SeekRequest](e)
	case MsgMatchRequest:
		return decodeAs[MatchRequest](e)
	case MsgSoughtGameProcessEvent:
		return decodeAs[SoughtGameProcessEvent](e)
	case MsgClientGameplayEvent:
		return decodeAs[ClientGameplayEvent](e)
	case MsgServerGameplayEvent:
		return decodeAs[ServerGameplayEvent](e)
	case MsgGameEndedEvent:
		return decodeAs[GameEndedEvent](e)
	case MsgGameHistoryRefresher:
		return decodeAs[GameHistoryRefresher](e)
	case MsgErrorMessage:
		return decodeAs[ErrorMessage](e)
	case MsgNewGameEvent:
		return decodeAs[NewGameEvent](e)
	case MsgServerChallengeResultEvent:
		return decodeAs[ServerChallengeResultEvent](e)
	case MsgSeekRequests:
		return decodeAs[SeekRequests](e)
	case MsgOngoingGameEvent:
		return decodeAs[OngoingGameEvent](e)
	case MsgTimedOut:
		return decodeAs[TimedOut](e)
	case MsgOngoingGames:
		return decodeAs[OngoingGames](e)
	case MsgReadyForTournamentGame:
		return decodeAs[ReadyForTournamentGame](e)
	case MsgTournamentRoundStarted:
		return decodeAs[TournamentRoundStarted](e)
	case MsgGameDeletion:
		return decodeAs[GameDeletion](e)
	case MsgMatchRequests:
		return decodeAs[MatchRequests](e)
	case MsgDeclineSeekRequest:
		return decodeAs[DeclineSeekRequest](e)
	case MsgChatMessage:
		return decodeAs[ChatMessage](e)
	case MsgChatMessageDeleted:
		return decodeAs[ChatMessageDeleted](e)
	case MsgUserPresence:
		return decodeAs[UserPresence](e)
	case MsgUserPresences:
		return decodeAs[UserPresences](e)
	case MsgServerMessage:
		return decodeAs[ServerMessage](e)
	case MsgReadyForGame:
		return decodeAs[ReadyForGame](e)
	case MsgLagMeasurement:
		return decodeAs[LagMeasurement](e)
	case MsgTournamentGameEndedEvent:
		return decodeAs[TournamentGameEndedEvent](e)
	case MsgTournamentMessage:
		return decodeAs[TournamentDataResponse](e)
	case MsgRematchStarted:
		return decodeAs[RematchStartedEvent](e)
	case MsgTournamentDivisionMessage:
		return decodeAs[TournamentDivisionDataResponse](e)
	case MsgTournamentDivisionDeleted:
		return decodeAs[TournamentDivisionDeletedResponse](e)
	case MsgTournamentFullDivisions:
		return decodeAs[FullTournamentDivisions](e)
	case MsgTournamentDivisionRoundControls:
		return decodeAs[DivisionRoundControls](e)
	case MsgTournamentDivisionPairings:
		return decodeAs[DivisionPairingsResponse](e)
	case MsgTournamentDivisionControls:
		return decodeAs[DivisionControlsResponse](e)
	case MsgTournamentDivisionPlayerChange:
		return decodeAs[PlayersAddedOrRemovedResponse](e)
	case MsgTournamentFinished:
		return decodeAs[TournamentFinishedResponse](e)
	case MsgTournamentDivisionPairingsDelete:
		return decodeAs[DivisionPairingsDeletedResponse](e)
	case MsgPresenceEntry:
		return decodeAs[PresenceEntry](e)
	case MsgActiveGameEntry:
		return decodeAs[ActiveGameEntry](e)
	case MsgGameMetaEvent:
		return decodeAs[GameMetaEvent](e)
	case MsgProfileUpdateEvent:
		return decodeAs[ProfileUpdateEvent](e)
	case MsgGameInstantiation:
		return decodeAs[GameInstantiation](e)
	case MsgJoinPath:
		return decodeAs[JoinPath](e)
	case MsgUnjoinRealm:
		return decodeAs[UnjoinRealm](e)
	default:
		return Unknown{Tag: e.Type, Raw: e.Payload}, nil
	}
}

func decodeAs[T Message](e Envelope) (Message, error) {
	var m T
	if err := json.Unmarshal(e.Payload, &m); err != nil {
		return nil, fmt.Errorf("decode type %d: %w", e.Type, err)
	}
	return m, nil
}
