package v16

import "ocppcs/types"

const StatusNotificationFeatureName = "StatusNotification"

// ChargePointStatus is the 1.6 connector status enumeration. It is richer
// than the neutral one; NormalizeStatus folds the transient charging states
// into Occupied.
type ChargePointStatus string

const (
	ChargePointStatusAvailable     ChargePointStatus = "Available"
	ChargePointStatusPreparing     ChargePointStatus = "Preparing"
	ChargePointStatusCharging      ChargePointStatus = "Charging"
	ChargePointStatusSuspendedEVSE ChargePointStatus = "SuspendedEVSE"
	ChargePointStatusSuspendedEV   ChargePointStatus = "SuspendedEV"
	ChargePointStatusFinishing     ChargePointStatus = "Finishing"
	ChargePointStatusReserved      ChargePointStatus = "Reserved"
	ChargePointStatusUnavailable   ChargePointStatus = "Unavailable"
	ChargePointStatusFaulted       ChargePointStatus = "Faulted"
)

func NormalizeStatus(status ChargePointStatus) types.ConnectorStatus {
	switch status {
	case ChargePointStatusAvailable:
		return types.ConnectorStatusAvailable
	case ChargePointStatusPreparing, ChargePointStatusCharging, ChargePointStatusSuspendedEVSE,
		ChargePointStatusSuspendedEV, ChargePointStatusFinishing, ChargePointStatusReserved:
		return types.ConnectorStatusOccupied
	case ChargePointStatusUnavailable:
		return types.ConnectorStatusUnavailable
	case ChargePointStatusFaulted:
		return types.ConnectorStatusFaulted
	}
	return types.ConnectorStatusUndefined
}

type StatusNotificationRequest struct {
	ConnectorId     int               `json:"connectorId" validate:"gte=0"`
	ErrorCode       string            `json:"errorCode" validate:"required"`
	Info            string            `json:"info,omitempty" validate:"omitempty,max=50"`
	Status          ChargePointStatus `json:"status" validate:"required"`
	Timestamp       *types.DateTime   `json:"timestamp,omitempty"`
	VendorId        string            `json:"vendorId,omitempty" validate:"omitempty,max=255"`
	VendorErrorCode string            `json:"vendorErrorCode,omitempty" validate:"omitempty,max=50"`
}

type StatusNotificationResponse struct {
}

func NewStatusNotificationResponse() *StatusNotificationResponse {
	return &StatusNotificationResponse{}
}
