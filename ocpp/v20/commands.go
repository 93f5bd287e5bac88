package v20

import "ocppcs/types"

// Server-to-station requests of the 2.x dialects. Remote session control is
// RequestStart/RequestStopTransaction here; 1.6 calls the same operations
// RemoteStart/RemoteStopTransaction.

const ResetFeatureName = "Reset"

type ResetType string

const (
	ResetTypeImmediate ResetType = "Immediate"
	ResetTypeOnIdle    ResetType = "OnIdle"
)

type ResetRequest struct {
	Type   ResetType `json:"type" validate:"required"`
	EvseId *int      `json:"evseId,omitempty" validate:"omitempty,gt=0"`
}

type ResetResponse struct {
	Status string `json:"status" validate:"required"`
}

const UnlockConnectorFeatureName = "UnlockConnector"

type UnlockConnectorRequest struct {
	EvseId      int `json:"evseId" validate:"gt=0"`
	ConnectorId int `json:"connectorId" validate:"gt=0"`
}

type UnlockConnectorResponse struct {
	Status string `json:"status" validate:"required"`
}

const ChangeAvailabilityFeatureName = "ChangeAvailability"

type OperationalStatus string

const (
	OperationalStatusOperative   OperationalStatus = "Operative"
	OperationalStatusInoperative OperationalStatus = "Inoperative"
)

type ChangeAvailabilityRequest struct {
	OperationalStatus OperationalStatus `json:"operationalStatus" validate:"required"`
	Evse              *EVSE             `json:"evse,omitempty"`
}

type ChangeAvailabilityResponse struct {
	Status string `json:"status" validate:"required"`
}

const TriggerMessageFeatureName = "TriggerMessage"

type TriggerMessageRequest struct {
	RequestedMessage string `json:"requestedMessage" validate:"required"`
	Evse             *EVSE  `json:"evse,omitempty"`
}

type TriggerMessageResponse struct {
	Status string `json:"status" validate:"required"`
}

const SetChargingProfileFeatureName = "SetChargingProfile"

type SetChargingProfileRequest struct {
	EvseId          int                    `json:"evseId" validate:"gte=0"`
	ChargingProfile *types.ChargingProfile `json:"chargingProfile" validate:"required"`
}

type SetChargingProfileResponse struct {
	Status string `json:"status" validate:"required"`
}

const ClearChargingProfileFeatureName = "ClearChargingProfile"

type ClearChargingProfileRequest struct {
	ChargingProfileId       *int                   `json:"chargingProfileId,omitempty"`
	ChargingProfileCriteria map[string]interface{} `json:"chargingProfileCriteria,omitempty"`
}

type ClearChargingProfileResponse struct {
	Status string `json:"status" validate:"required"`
}

const RequestStartTransactionFeatureName = "RequestStartTransaction"

type RequestStartTransactionRequest struct {
	EvseId          *int                   `json:"evseId,omitempty" validate:"omitempty,gt=0"`
	RemoteStartId   int                    `json:"remoteStartId" validate:"required"`
	IdToken         IdToken                `json:"idToken" validate:"required"`
	ChargingProfile *types.ChargingProfile `json:"chargingProfile,omitempty"`
}

type RequestStartTransactionResponse struct {
	Status        string `json:"status" validate:"required"`
	TransactionId string `json:"transactionId,omitempty"`
}

const RequestStopTransactionFeatureName = "RequestStopTransaction"

type RequestStopTransactionRequest struct {
	TransactionId string `json:"transactionId" validate:"required,max=36"`
}

type RequestStopTransactionResponse struct {
	Status string `json:"status" validate:"required"`
}
