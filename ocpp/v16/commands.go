package v16

import "ocppcs/types"

// Server-to-station requests of the 1.6 dialect.

const ResetFeatureName = "Reset"

type ResetType string

const (
	ResetTypeHard ResetType = "Hard"
	ResetTypeSoft ResetType = "Soft"
)

type ResetRequest struct {
	Type ResetType `json:"type" validate:"required"`
}

type ResetResponse struct {
	Status string `json:"status" validate:"required"`
}

const UnlockConnectorFeatureName = "UnlockConnector"

type UnlockConnectorRequest struct {
	ConnectorId int `json:"connectorId" validate:"gt=0"`
}

type UnlockConnectorResponse struct {
	Status string `json:"status" validate:"required"`
}

const ChangeAvailabilityFeatureName = "ChangeAvailability"

type AvailabilityType string

const (
	AvailabilityTypeOperative   AvailabilityType = "Operative"
	AvailabilityTypeInoperative AvailabilityType = "Inoperative"
)

type ChangeAvailabilityRequest struct {
	ConnectorId int              `json:"connectorId" validate:"gte=0"`
	Type        AvailabilityType `json:"type" validate:"required"`
}

type ChangeAvailabilityResponse struct {
	Status string `json:"status" validate:"required"`
}

const TriggerMessageFeatureName = "TriggerMessage"

type TriggerMessageRequest struct {
	RequestedMessage string `json:"requestedMessage" validate:"required"`
	ConnectorId      *int   `json:"connectorId,omitempty" validate:"omitempty,gt=0"`
}

type TriggerMessageResponse struct {
	Status string `json:"status" validate:"required"`
}

const SetChargingProfileFeatureName = "SetChargingProfile"

type SetChargingProfileRequest struct {
	ConnectorId        int                    `json:"connectorId" validate:"gte=0"`
	CsChargingProfiles *types.ChargingProfile `json:"csChargingProfiles" validate:"required"`
}

type SetChargingProfileResponse struct {
	Status string `json:"status" validate:"required"`
}

const ClearChargingProfileFeatureName = "ClearChargingProfile"

type ClearChargingProfileRequest struct {
	Id                     *int                              `json:"id,omitempty"`
	ConnectorId            *int                              `json:"connectorId,omitempty"`
	ChargingProfilePurpose *types.ChargingProfilePurposeType `json:"chargingProfilePurpose,omitempty"`
	StackLevel             *int                              `json:"stackLevel,omitempty"`
}

type ClearChargingProfileResponse struct {
	Status string `json:"status" validate:"required"`
}

const RemoteStartTransactionFeatureName = "RemoteStartTransaction"

type RemoteStartTransactionRequest struct {
	ConnectorId     *int                   `json:"connectorId,omitempty" validate:"omitempty,gt=0"`
	IdTag           string                 `json:"idTag" validate:"required,max=20"`
	ChargingProfile *types.ChargingProfile `json:"chargingProfile,omitempty"`
}

type RemoteStartTransactionResponse struct {
	Status types.RemoteStartStopStatus `json:"status" validate:"required"`
}

const RemoteStopTransactionFeatureName = "RemoteStopTransaction"

type RemoteStopTransactionRequest struct {
	TransactionId int `json:"transactionId"`
}

type RemoteStopTransactionResponse struct {
	Status types.RemoteStartStopStatus `json:"status" validate:"required"`
}
