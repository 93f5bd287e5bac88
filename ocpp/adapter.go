package ocpp

import (
	"encoding/json"
	"fmt"

	"ocppcs/types"
	"ocppcs/wire"
)

// Adapter translates one protocol generation's wire payloads into the
// version-neutral system handler operations. One adapter exists per dialect;
// all of them compose the same authorization engine and transaction state
// machine through the SystemHandler.
type Adapter interface {
	Version() types.ProtocolVersion

	// HandleCall binds the raw payload of an inbound Call, runs the action
	// and returns the response payload. Faults carry the protocol error code
	// to send back.
	HandleCall(chargePointId, action string, payload json.RawMessage) (interface{}, error)

	// HandleAnswer runs on the answer path for replies to Calls this server
	// sent earlier. sentAction and sentPayload describe the original Call.
	HandleAnswer(chargePointId, sentAction string, sentPayload json.RawMessage, msg *wire.Message)

	// CommandRequest builds the version-specific Call payload for a
	// server-to-station command addressed by its neutral name.
	CommandRequest(command Command) (action string, payload interface{}, err error)
}

// Command is a server-to-station request in version-neutral form. Payload
// carries optional json parameters passed through from the caller.
type Command struct {
	ChargePointId string `json:"charge_point_id"`
	ConnectorId   int    `json:"connector_id"`
	FeatureName   string `json:"feature_name"`
	Payload       string `json:"payload"`
}

// Neutral command names accepted by CommandRequest. Dialects rename some of
// them on the wire (RemoteStartTransaction vs RequestStartTransaction).
const (
	CommandReset                  = "Reset"
	CommandUnlockConnector        = "UnlockConnector"
	CommandSetChargingProfile     = "SetChargingProfile"
	CommandClearChargingProfile   = "ClearChargingProfile"
	CommandChangeAvailability     = "ChangeAvailability"
	CommandTriggerMessage         = "TriggerMessage"
	CommandRemoteStartTransaction = "RemoteStartTransaction"
	CommandRemoteStopTransaction  = "RemoteStopTransaction"
)

// Fault is an error that maps onto the protocol error taxonomy. Anything a
// handler returns that is not a Fault is reported to the station as an
// InternalError.
type Fault struct {
	Code        wire.ErrorCode
	Description string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Description)
}

func NewFault(code wire.ErrorCode, description string) *Fault {
	return &Fault{Code: code, Description: description}
}
