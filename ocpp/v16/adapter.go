package v16

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"ocppcs/internal"
	"ocppcs/metering"
	"ocppcs/ocpp"
	"ocppcs/types"
	"ocppcs/utility"
	"ocppcs/wire"
)

// Adapter speaks the 1.6 dialect: array frames, integer server-assigned
// transaction ids, Wh meter registers.
type Adapter struct {
	handler *ocpp.SystemHandler
	logger  internal.LogHandler
}

func NewAdapter(handler *ocpp.SystemHandler, logger internal.LogHandler) *Adapter {
	return &Adapter{handler: handler, logger: logger}
}

func (a *Adapter) Version() types.ProtocolVersion {
	return types.ProtocolVersion16
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

// samples lifts the wire meter values into neutral measurement samples,
// keeping wire order so later readings win during interpretation.
func samples(meterValues []types.MeterValue) []metering.Sample {
	var out []metering.Sample
	for _, meterValue := range meterValues {
		timestamp := time.Now()
		if meterValue.Timestamp != nil {
			timestamp = meterValue.Timestamp.Time
		}
		for _, sampled := range meterValue.SampledValue {
			out = append(out, metering.Sample{
				Timestamp: timestamp,
				Value:     utility.ToFloat(sampled.Value),
				Measurand: sampled.Measurand,
				Unit:      sampled.Unit,
				Phase:     sampled.Phase,
				Location:  sampled.Location,
			})
		}
	}
	return out
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
			Vendor:          request.ChargePointVendor,
			Model:           request.ChargePointModel,
			SerialNumber:    request.ChargePointSerialNumber,
			FirmwareVersion: request.FirmwareVersion,
		}, types.ProtocolVersion16)
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
		return NewAuthorizeResponse(a.handler.OnAuthorize(chargePointId, request.IdTag)), nil

	case StartTransactionFeatureName:
		var request StartTransactionRequest
		if err := bind(payload, &request); err != nil {
			return nil, err
		}
		result, err := a.handler.OnStartTransaction(chargePointId, request.ConnectorId, request.IdTag, "",
			float64(request.MeterStart)/1000, timestampOrNow(request.Timestamp))
		if err != nil {
			return nil, err
		}
		transactionId := 0
		if result.Transaction != nil {
			transactionId = result.Transaction.Id
		}
		return NewStartTransactionResponse(result.IdTagInfo, transactionId), nil

	case StopTransactionFeatureName:
		var request StopTransactionRequest
		if err := bind(payload, &request); err != nil {
			return nil, err
		}
		result, err := a.handler.OnStopById(chargePointId, request.TransactionId, request.IdTag,
			float64(request.MeterStop)/1000, timestampOrNow(request.Timestamp), string(request.Reason))
		if err != nil {
			return nil, err
		}
		response := NewStopTransactionResponse()
		response.IdTagInfo = result.IdTagInfo
		return response, nil

	case MeterValuesFeatureName:
		var request MeterValuesRequest
		if err := bind(payload, &request); err != nil {
			return nil, err
		}
		if err := a.handler.OnMeterValues(chargePointId, request.ConnectorId, samples(request.MeterValue)); err != nil {
			return nil, err
		}
		return NewMeterValuesResponse(), nil

	case StatusNotificationFeatureName:
		var request StatusNotificationRequest
		if err := bind(payload, &request); err != nil {
			return nil, err
		}
		errorCode := request.ErrorCode
		if request.VendorErrorCode != "" {
			errorCode = request.VendorErrorCode
		}
		if err := a.handler.OnStatusNotification(chargePointId, request.ConnectorId, NormalizeStatus(request.Status), errorCode, request.Info); err != nil {
			return nil, err
		}
		return NewStatusNotificationResponse(), nil

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
		resetType := ResetTypeSoft
		if command.Payload == string(ResetTypeHard) {
			resetType = ResetTypeHard
		}
		return ResetFeatureName, &ResetRequest{Type: resetType}, nil

	case ocpp.CommandUnlockConnector:
		if command.ConnectorId <= 0 {
			return "", nil, ocpp.NewFault(wire.ErrPropertyConstraintViolation, "connector id is required")
		}
		return UnlockConnectorFeatureName, &UnlockConnectorRequest{ConnectorId: command.ConnectorId}, nil

	case ocpp.CommandChangeAvailability:
		availability := AvailabilityTypeOperative
		if command.Payload == string(AvailabilityTypeInoperative) {
			availability = AvailabilityTypeInoperative
		}
		return ChangeAvailabilityFeatureName, &ChangeAvailabilityRequest{ConnectorId: command.ConnectorId, Type: availability}, nil

	case ocpp.CommandTriggerMessage:
		requested := command.Payload
		if requested == "" {
			requested = StatusNotificationFeatureName
		}
		request := &TriggerMessageRequest{RequestedMessage: requested}
		if command.ConnectorId > 0 {
			request.ConnectorId = &command.ConnectorId
		}
		return TriggerMessageFeatureName, request, nil

	case ocpp.CommandSetChargingProfile:
		var profile types.ChargingProfile
		if err := json.Unmarshal([]byte(command.Payload), &profile); err != nil {
			return "", nil, ocpp.NewFault(wire.ErrFormationViolation, fmt.Sprintf("invalid charging profile: %s", err))
		}
		return SetChargingProfileFeatureName, &SetChargingProfileRequest{
			ConnectorId:        command.ConnectorId,
			CsChargingProfiles: &profile,
		}, nil

	case ocpp.CommandClearChargingProfile:
		request := &ClearChargingProfileRequest{}
		if command.ConnectorId > 0 {
			request.ConnectorId = &command.ConnectorId
		}
		if command.Payload != "" {
			if err := json.Unmarshal([]byte(command.Payload), request); err != nil {
				return "", nil, ocpp.NewFault(wire.ErrFormationViolation, fmt.Sprintf("invalid clear profile filter: %s", err))
			}
		}
		return ClearChargingProfileFeatureName, request, nil

	case ocpp.CommandRemoteStartTransaction:
		if command.Payload == "" {
			return "", nil, ocpp.NewFault(wire.ErrPropertyConstraintViolation, "id tag is required")
		}
		request := &RemoteStartTransactionRequest{IdTag: utility.CleanTag(command.Payload)}
		if command.ConnectorId > 0 {
			request.ConnectorId = &command.ConnectorId
		}
		return RemoteStartTransactionFeatureName, request, nil

	case ocpp.CommandRemoteStopTransaction:
		transactionId, err := strconv.Atoi(command.Payload)
		if err != nil {
			return "", nil, ocpp.NewFault(wire.ErrPropertyConstraintViolation, "transaction id is required")
		}
		return RemoteStopTransactionFeatureName, &RemoteStopTransactionRequest{TransactionId: transactionId}, nil
	}
	return "", nil, ocpp.NewFault(wire.ErrNotSupported, fmt.Sprintf("command not supported: %s", command.FeatureName))
}
