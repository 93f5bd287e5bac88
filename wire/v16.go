package wire

import (
	"encoding/json"
	"fmt"

	"ocppcs/utility"
)

// ArrayCodec implements the OCPP-J 1.6 framing: an ordered json array with
// the message type id in the first element.
//
//	[2, "uniqueId", "Action", {payload}]
//	[3, "uniqueId", {payload}]
//	[4, "uniqueId", "errorCode", "errorDescription", {details}]
type ArrayCodec struct{}

func (c *ArrayCodec) Decode(data []byte) (*Message, error) {
	if len(data) == 0 {
		return nil, errEmptyFrame
	}
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, utility.Err(fmt.Sprintf("message is not a json array: %s", err))
	}
	if len(fields) < 3 {
		return nil, utility.Err(fmt.Sprintf("incompatible message structure; %d elements", len(fields)))
	}
	var typeId int
	if err := json.Unmarshal(fields[0], &typeId); err != nil {
		return nil, utility.Err("invalid message type id")
	}
	var uniqueId string
	if err := json.Unmarshal(fields[1], &uniqueId); err != nil {
		return nil, utility.Err("invalid message unique id")
	}
	message := &Message{Kind: MessageKind(typeId), UniqueId: uniqueId}

	switch message.Kind {
	case KindCall:
		if len(fields) != 4 {
			return nil, utility.Err("unsupported request format; expected length: 4 elements")
		}
		if err := json.Unmarshal(fields[2], &message.Action); err != nil {
			return nil, utility.Err("invalid action name")
		}
		message.Payload = fields[3]
	case KindCallResult:
		message.Payload = fields[2]
	case KindCallError:
		var code string
		if err := json.Unmarshal(fields[2], &code); err != nil {
			return nil, utility.Err("invalid error code")
		}
		message.ErrorCode = ErrorCode(code)
		if len(fields) > 3 {
			_ = json.Unmarshal(fields[3], &message.ErrorDescription)
		}
		if len(fields) > 4 {
			message.ErrorDetails = fields[4]
		}
	default:
		return nil, utility.Err(fmt.Sprintf("invalid message type id: %d", typeId))
	}
	return message, nil
}

func (c *ArrayCodec) Encode(msg *Message) ([]byte, error) {
	var fields []interface{}
	switch msg.Kind {
	case KindCall:
		fields = []interface{}{int(msg.Kind), msg.UniqueId, msg.Action, rawOrEmptyObject(msg.Payload)}
	case KindCallResult:
		fields = []interface{}{int(msg.Kind), msg.UniqueId, rawOrEmptyObject(msg.Payload)}
	case KindCallError:
		details := msg.ErrorDetails
		if len(details) == 0 {
			details = json.RawMessage("{}")
		}
		fields = []interface{}{int(msg.Kind), msg.UniqueId, string(msg.ErrorCode), msg.ErrorDescription, details}
	default:
		return nil, utility.Err(fmt.Sprintf("invalid message type id: %d", msg.Kind))
	}
	return json.Marshal(fields)
}

func rawOrEmptyObject(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return json.RawMessage("{}")
	}
	return raw
}
