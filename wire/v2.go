package wire

import (
	"encoding/json"
	"fmt"
	"strconv"

	"ocppcs/utility"
)

// RpcCodec implements the tagged-object framing of the 2.x dialects:
//
//	{"id": "...", "method": "Action", "params": {...}}
//	{"id": "...", "result": {...}}
//	{"id": "...", "error": {"code": -32601, "message": "...", "data": ...}}
type RpcCodec struct{}

const (
	rpcCodeMethodNotFound = -32601
	rpcCodeInvalidParams  = -32602
	rpcCodeInternalError  = -32603
	rpcCodeServerError    = -32000
)

type rpcFrame struct {
	Id     json.RawMessage `json:"id"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (c *RpcCodec) Decode(data []byte) (*Message, error) {
	if len(data) == 0 {
		return nil, errEmptyFrame
	}
	var frame rpcFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, utility.Err(fmt.Sprintf("message is not a json object: %s", err))
	}
	if len(frame.Id) == 0 {
		return nil, utility.Err("message id is missing")
	}
	message := &Message{UniqueId: decodeId(frame.Id)}
	switch {
	case frame.Method != "":
		message.Kind = KindCall
		message.Action = frame.Method
		message.Payload = frame.Params
	case frame.Error != nil:
		message.Kind = KindCallError
		message.ErrorCode = errorCodeFromRpc(frame.Error.Code)
		message.ErrorDescription = frame.Error.Message
		message.ErrorDetails = frame.Error.Data
	default:
		message.Kind = KindCallResult
		message.Payload = frame.Result
	}
	return message, nil
}

func (c *RpcCodec) Encode(msg *Message) ([]byte, error) {
	id, err := json.Marshal(msg.UniqueId)
	if err != nil {
		return nil, err
	}
	frame := rpcFrame{Id: id}
	switch msg.Kind {
	case KindCall:
		frame.Method = msg.Action
		frame.Params = rawOrEmptyObject(msg.Payload)
	case KindCallResult:
		frame.Result = rawOrEmptyObject(msg.Payload)
	case KindCallError:
		frame.Error = &rpcError{
			Code:    rpcCodeFromError(msg.ErrorCode),
			Message: string(msg.ErrorCode),
			Data:    msg.ErrorDetails,
		}
		if msg.ErrorDescription != "" {
			frame.Error.Message = msg.ErrorDescription
		}
	default:
		return nil, utility.Err(fmt.Sprintf("invalid message type id: %d", msg.Kind))
	}
	return json.Marshal(frame)
}

// decodeId accepts both string and numeric message ids; stations are not
// consistent here.
func decodeId(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return string(raw)
}

func rpcCodeFromError(code ErrorCode) int {
	switch code {
	case ErrNotSupported:
		return rpcCodeMethodNotFound
	case ErrFormationViolation, ErrPropertyConstraintViolation:
		return rpcCodeInvalidParams
	case ErrInternalError:
		return rpcCodeInternalError
	default:
		return rpcCodeServerError
	}
}

func errorCodeFromRpc(code int) ErrorCode {
	switch code {
	case rpcCodeMethodNotFound:
		return ErrNotSupported
	case rpcCodeInvalidParams:
		return ErrFormationViolation
	case rpcCodeInternalError:
		return ErrInternalError
	default:
		return ErrGenericError
	}
}
