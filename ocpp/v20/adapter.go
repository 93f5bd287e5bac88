package v20

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"ocppcs/internal"
	"ocppcs/metering"
	"ocppcs/ocpp"
	"ocppcs/types"
	"ocppcs/utility"
	"ocppcs/wire"
)

// Adapter speaks the 2.0.1 dialect: rpc-style object frames, structured
// tokens, station-assigned transaction ids carried as refs on the server
// side.
type Adapter struct {
	handler *ocpp.SystemHandler
	logger  internal.LogHandler
	version types.ProtocolVersion
}

func NewAdapter(handler *ocpp.SystemHandler, logger internal.LogHandler) *Adapter {
	return &Adapter{handler: handler, logger: logger, version: types.ProtocolVersion20}
}

// NewAdapter21 reuses the 2.0.1 feature set under the 2.1 subprotocol. The
// 2.1 additions this server does not command (DER control, battery swap) are
// reported back as NotSupported by the generic fallthrough.
func NewAdapter21(handler *ocpp.SystemHandler, logger internal.LogHandler) *Adapter {
	return &Adapter{handler: handler, logger: logger, version: types.ProtocolVersion21}
}

func (a *Adapter) Version() types.ProtocolVersion {
	return a.version
}

func bind(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return ocpp.NewFault(wire.ErrFormationViolation, err.Error())
	}
	return nil
}

func timestampOrNow(timestamp *types.DateTime) time.Time {
	if timestamp != nil {
		return timestamp.Time
	}
	return time.Now()
}

// samples lifts 2.x meter values into neutral measurement samples. The
// multiplier scales the value before unit normalization.
func samples(meterValues []MeterValue) []metering.Sample {
	var out []metering.Sample
	for _, meterValue := range meterValues {
		timestamp := time.Now()
		if meterValue.Timestamp != nil {
			timestamp = meterValue.Timestamp.Time
		}
		for _, sampled := range meterValue.SampledValue {
			value := sampled.Value
			var unit types.UnitOfMeasure
			if sampled.UnitOfMeasure != nil {
				unit = types.UnitOfMeasure(sampled.UnitOfMeasure.Unit)
				if sampled.UnitOfMeasure.Multiplier != 0 {
					value *= math.Pow10(sampled.UnitOfMeasure.Multiplier)
				}
			}
			out = append(out, metering.Sample{
				Timestamp: timestamp,
				Value:     value,
				Measurand: types.Measurand(sampled.Measurand),
				Unit:      unit,
				Phase:     types.Phase(sampled.Phase),
				Location:  types.Location(sampled.Location),
			})
		}
	}
	return out
}

// energyOf extracts the normalized meter register from event samples, or a
// negative sentinel when the event carried none.
func energyOf(meterValues []MeterValue) float64 {
	reading := metering.Interpret(samples(meterValues))
	if reading.EnergyKWh == nil {
		return -1
	}
	return *reading.EnergyKWh
}

func (a *Adapter) HandleCall(chargePointId, action string, payload json.RawMessage) (interface{}, error) {
	switch action {
	case BootNotificationFeatureName:
		var request BootNotificationRequest
		if err := bind(payload, &request); err != nil {
			return nil, err
		}
		status := RegistrationStatusRejected
		accepted := a.handler.OnBoot(chargePointId, ocpp.BootInfo{
			Vendor:          request.ChargingStation.VendorName,
			Model:           request.ChargingStation.Model,
			SerialNumber:    request.ChargingStation.SerialNumber,
			FirmwareVersion: request.ChargingStation.FirmwareVersion,
		}, a.version)
		if accepted {
			status = RegistrationStatusAccepted
		}
		return NewBootNotificationResponse(types.NewDateTime(a.handler.Now()), a.handler.HeartbeatInterval(), status), nil

	case HeartbeatFeatureName:
		return NewHeartbeatResponse(types.NewDateTime(a.handler.OnHeartbeat(chargePointId))), nil

	case AuthorizeFeatureName:
		var request AuthorizeRequest
		if err := bind(payload, &request); err != nil {
			return nil, err
		}
		info := a.handler.OnAuthorize(chargePointId, request.IdToken.IdToken)
		return NewAuthorizeResponse(NewIdTokenInfo(info)), nil

	case TransactionEventFeatureName:
		var request TransactionEventRequest
		if err := bind(payload, &request); err != nil {
			return nil, err
		}
		return a.handleTransactionEvent(chargePointId, &request)

	case StatusNotificationFeatureName:
		var request StatusNotificationRequest
		if err := bind(payload, &request); err != nil {
			return nil, err
		}
		connectorId := request.ConnectorId
		if connectorId == 0 {
			connectorId = request.EvseId
		}
		if err := a.handler.OnStatusNotification(chargePointId, connectorId, NormalizeStatus(request.ConnectorStatus), "", ""); err != nil {
			return nil, err
		}
		return NewStatusNotificationResponse(), nil

	case MeterValuesFeatureName:
		var request MeterValuesRequest
		if err := bind(payload, &request); err != nil {
			return nil, err
		}
		if err := a.handler.OnMeterValues(chargePointId, request.EvseId, samples(request.MeterValue)); err != nil {
			return nil, err
		}
		return NewMeterValuesResponse(), nil

	case DataTransferFeatureName:
		var request DataTransferRequest
		if err := bind(payload, &request); err != nil {
			return nil, err
		}
		if err := a.handler.OnDataTransfer(chargePointId, request.VendorId, request.MessageId, request.Data); err != nil {
			return nil, err
		}
		return NewDataTransferResponse(DataTransferStatusAccepted), nil
	}
	return nil, ocpp.NewFault(wire.ErrNotSupported, fmt.Sprintf("action not supported: %s", action))
}

func (a *Adapter) handleTransactionEvent(chargePointId string, request *TransactionEventRequest) (interface{}, error) {
	ref := request.TransactionInfo.TransactionId
	if ref == "" {
		return nil, ocpp.NewFault(wire.ErrPropertyConstraintViolation, "transactionId is required")
	}
	idTag := ""
	if request.IdToken != nil {
		idTag = request.IdToken.IdToken
	}

	switch request.EventType {
	case TransactionEventStarted:
		connectorId := request.Evse.connector()
		if connectorId <= 0 {
			return nil, ocpp.NewFault(wire.ErrPropertyConstraintViolation, "evse is required on a Started event")
		}
		meterStart := energyOf(request.MeterValue)
		if meterStart < 0 {
			meterStart = 0
		}
		result, err := a.handler.OnStartTransaction(chargePointId, connectorId, idTag, ref,
			meterStart, timestampOrNow(request.Timestamp))
		if err != nil {
			return nil, err
		}
		response := NewTransactionEventResponse()
		response.IdTokenInfo = NewIdTokenInfo(result.IdTagInfo)
		return response, nil

	case TransactionEventUpdated:
		if err := a.handler.OnTransactionUpdate(chargePointId, ref, request.Evse.connector(), samples(request.MeterValue)); err != nil {
			return nil, err
		}
		return NewTransactionEventResponse(), nil

	case TransactionEventEnded:
		result, err := a.handler.OnStopByRef(chargePointId, ref, idTag,
			energyOf(request.MeterValue), timestampOrNow(request.Timestamp), request.TransactionInfo.StoppedReason)
		if err != nil {
			return nil, err
		}
		response := NewTransactionEventResponse()
		if result.IdTagInfo != nil {
			response.IdTokenInfo = NewIdTokenInfo(result.IdTagInfo)
		}
		return response, nil
	}
	return nil, ocpp.NewFault(wire.ErrPropertyConstraintViolation, fmt.Sprintf("unknown event type: %s", request.EventType))
}

func (a *Adapter) HandleAnswer(chargePointId, sentAction string, sentPayload json.RawMessage, msg *wire.Message) {
	if msg.Kind == wire.KindCallError {
		a.logger.Warn(fmt.Sprintf("%s rejected %s: %s (%s)", chargePointId, sentAction, msg.ErrorCode, msg.ErrorDescription))
		return
	}
	var result struct {
		Status string `json:"status"`
	}
	if err := msg.Bind(&result); err != nil {
		a.logger.Error("decode command response", err)
		return
	}
	a.logger.FeatureEvent(sentAction, chargePointId, fmt.Sprintf("command response status: %s", result.Status))
}

func (a *Adapter) CommandRequest(command ocpp.Command) (string, interface{}, error) {
	switch command.FeatureName {
	case ocpp.CommandReset:
		resetType := ResetTypeImmediate
		if command.Payload == string(ResetTypeOnIdle) {
			resetType = ResetTypeOnIdle
		}
		request := &ResetRequest{Type: resetType}
		if command.ConnectorId > 0 {
			request.EvseId = &command.ConnectorId
		}
		return ResetFeatureName, request, nil

	case ocpp.CommandUnlockConnector:
		if command.ConnectorId <= 0 {
			return "", nil, ocpp.NewFault(wire.ErrPropertyConstraintViolation, "connector id is required")
		}
		return UnlockConnectorFeatureName, &UnlockConnectorRequest{
			EvseId:      command.ConnectorId,
			ConnectorId: command.ConnectorId,
		}, nil

	case ocpp.CommandChangeAvailability:
		status := OperationalStatusOperative
		if command.Payload == string(OperationalStatusInoperative) {
			status = OperationalStatusInoperative
		}
		request := &ChangeAvailabilityRequest{OperationalStatus: status}
		if command.ConnectorId > 0 {
			request.Evse = &EVSE{Id: command.ConnectorId}
		}
		return ChangeAvailabilityFeatureName, request, nil

	case ocpp.CommandTriggerMessage:
		requested := command.Payload
		if requested == "" {
			requested = StatusNotificationFeatureName
		}
		request := &TriggerMessageRequest{RequestedMessage: requested}
		if command.ConnectorId > 0 {
			request.Evse = &EVSE{Id: command.ConnectorId}
		}
		return TriggerMessageFeatureName, request, nil

	case ocpp.CommandSetChargingProfile:
		var profile types.ChargingProfile
		if err := json.Unmarshal([]byte(command.Payload), &profile); err != nil {
			return "", nil, ocpp.NewFault(wire.ErrFormationViolation, fmt.Sprintf("invalid charging profile: %s", err))
		}
		return SetChargingProfileFeatureName, &SetChargingProfileRequest{
			EvseId:          command.ConnectorId,
			ChargingProfile: &profile,
		}, nil

	case ocpp.CommandClearChargingProfile:
		request := &ClearChargingProfileRequest{}
		if command.Payload != "" {
			if err := json.Unmarshal([]byte(command.Payload), request); err != nil {
				return "", nil, ocpp.NewFault(wire.ErrFormationViolation, fmt.Sprintf("invalid clear profile filter: %s", err))
			}
		}
		return ClearChargingProfileFeatureName, request, nil

	case ocpp.CommandRemoteStartTransaction:
		if command.Payload == "" {
			return "", nil, ocpp.NewFault(wire.ErrPropertyConstraintViolation, "id token is required")
		}
		request := &RequestStartTransactionRequest{
			RemoteStartId: int(time.Now().Unix()),
			IdToken:       IdToken{IdToken: utility.CleanTag(command.Payload), Type: "Central"},
		}
		if command.ConnectorId > 0 {
			request.EvseId = &command.ConnectorId
		}
		return RequestStartTransactionFeatureName, request, nil

	case ocpp.CommandRemoteStopTransaction:
		if command.Payload == "" {
			return "", nil, ocpp.NewFault(wire.ErrPropertyConstraintViolation, "transaction id is required")
		}
		return RequestStopTransactionFeatureName, &RequestStopTransactionRequest{TransactionId: command.Payload}, nil
	}
	return "", nil, ocpp.NewFault(wire.ErrNotSupported, fmt.Sprintf("command not supported: %s", command.FeatureName))
}
