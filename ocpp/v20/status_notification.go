package v20

import "ocppcs/types"

const StatusNotificationFeatureName = "StatusNotification"

// ConnectorStatus is the 2.x connector status enumeration. Reserved folds
// into the neutral Occupied state.
type ConnectorStatus string

const (
	ConnectorStatusAvailable   ConnectorStatus = "Available"
	ConnectorStatusOccupied    ConnectorStatus = "Occupied"
	ConnectorStatusReserved    ConnectorStatus = "Reserved"
	ConnectorStatusUnavailable ConnectorStatus = "Unavailable"
	ConnectorStatusFaulted     ConnectorStatus = "Faulted"
)

func NormalizeStatus(status ConnectorStatus) types.ConnectorStatus {
	switch status {
	case ConnectorStatusAvailable:
		return types.ConnectorStatusAvailable
	case ConnectorStatusOccupied, ConnectorStatusReserved:
		return types.ConnectorStatusOccupied
	case ConnectorStatusUnavailable:
		return types.ConnectorStatusUnavailable
	case ConnectorStatusFaulted:
		return types.ConnectorStatusFaulted
	}
	return types.ConnectorStatusUndefined
}

type StatusNotificationRequest struct {
	Timestamp       *types.DateTime `json:"timestamp" validate:"required"`
	ConnectorStatus ConnectorStatus `json:"connectorStatus" validate:"required"`
	EvseId          int             `json:"evseId" validate:"gte=0"`
	ConnectorId     int             `json:"connectorId" validate:"gte=0"`
}

type StatusNotificationResponse struct {
}

func NewStatusNotificationResponse() *StatusNotificationResponse {
	return &StatusNotificationResponse{}
}
