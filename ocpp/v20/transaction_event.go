package v20

import "ocppcs/types"

const TransactionEventFeatureName = "TransactionEvent"

type TransactionEventType string

const (
	TransactionEventStarted TransactionEventType = "Started"
	TransactionEventUpdated TransactionEventType = "Updated"
	TransactionEventEnded   TransactionEventType = "Ended"
)

type TransactionInfo struct {
	TransactionId     string `json:"transactionId" validate:"required,max=36"`
	ChargingState     string `json:"chargingState,omitempty"`
	StoppedReason     string `json:"stoppedReason,omitempty"`
	RemoteStartId     *int   `json:"remoteStartId,omitempty"`
	TimeSpentCharging *int   `json:"timeSpentCharging,omitempty"`
}

type TransactionEventRequest struct {
	EventType       TransactionEventType `json:"eventType" validate:"required"`
	Timestamp       *types.DateTime      `json:"timestamp" validate:"required"`
	TriggerReason   string               `json:"triggerReason" validate:"required"`
	SeqNo           int                  `json:"seqNo" validate:"gte=0"`
	TransactionInfo TransactionInfo      `json:"transactionInfo" validate:"required"`
	Offline         bool                 `json:"offline,omitempty"`
	IdToken         *IdToken             `json:"idToken,omitempty"`
	Evse            *EVSE                `json:"evse,omitempty"`
	MeterValue      []MeterValue         `json:"meterValue,omitempty"`
}

type TransactionEventResponse struct {
	TotalCost   *float64     `json:"totalCost,omitempty"`
	IdTokenInfo *IdTokenInfo `json:"idTokenInfo,omitempty"`
}

func NewTransactionEventResponse() *TransactionEventResponse {
	return &TransactionEventResponse{}
}
