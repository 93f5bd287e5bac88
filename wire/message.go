package wire

import (
	"encoding/json"

	"ocppcs/types"
	"ocppcs/utility"
)

type MessageKind int

const (
	KindCall       MessageKind = 2
	KindCallResult MessageKind = 3
	KindCallError  MessageKind = 4
)

// ErrorCode is the protocol error taxonomy surfaced to stations. The 1.6
// dialect sends these names verbatim; the 2.x dialects map them to rpc-style
// numeric codes.
type ErrorCode string

const (
	ErrFormationViolation          ErrorCode = "FormationViolation"
	ErrPropertyConstraintViolation ErrorCode = "PropertyConstraintViolation"
	ErrInternalError               ErrorCode = "InternalError"
	ErrGenericError                ErrorCode = "GenericError"
	ErrNotSupported                ErrorCode = "NotSupported"
)

// Message is the version-neutral envelope every inbound frame is normalized
// to before dispatch, and every outbound frame is rendered from. Payload
// stays raw until the action handler binds it to a concrete request type.
type Message struct {
	Kind             MessageKind
	UniqueId         string
	Action           string
	Payload          json.RawMessage
	ErrorCode        ErrorCode
	ErrorDescription string
	ErrorDetails     json.RawMessage
}

func NewCall(uniqueId, action string, payload interface{}) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Kind: KindCall, UniqueId: uniqueId, Action: action, Payload: raw}, nil
}

func NewCallResult(uniqueId string, payload interface{}) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Kind: KindCallResult, UniqueId: uniqueId, Payload: raw}, nil
}

func NewCallError(uniqueId string, code ErrorCode, description string) *Message {
	return &Message{
		Kind:             KindCallError,
		UniqueId:         uniqueId,
		ErrorCode:        code,
		ErrorDescription: description,
	}
}

// Bind unmarshals the raw payload into a concrete request or response type.
func (m *Message) Bind(v interface{}) error {
	if len(m.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}

// Codec translates between raw frames and the neutral Message shape for one
// protocol generation.
type Codec interface {
	Decode(data []byte) (*Message, error)
	Encode(msg *Message) ([]byte, error)
}

func CodecFor(version types.ProtocolVersion) Codec {
	switch version {
	case types.ProtocolVersion20, types.ProtocolVersion21:
		return &RpcCodec{}
	default:
		return &ArrayCodec{}
	}
}

var errEmptyFrame = utility.Err("empty frame")
