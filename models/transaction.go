package models

import "time"

type TransactionStatus string

const (
	TransactionStatusStarted    TransactionStatus = "Started"
	TransactionStatusInProgress TransactionStatus = "InProgress"
	TransactionStatusStopped    TransactionStatus = "Stopped"
)

// Transaction is one charge session. Id is assigned by the server; Ref holds
// the station-assigned transaction id used by the 2.x dialects, empty for 1.6.
// Meter readings are stored normalized to kWh.
type Transaction struct {
	Id            int               `json:"transaction_id" bson:"transaction_id"`
	Ref           string            `json:"transaction_ref" bson:"transaction_ref"`
	ChargePointId string            `json:"charge_point_id" bson:"charge_point_id"`
	ConnectorId   int               `json:"connector_id" bson:"connector_id"`
	IdTag         string            `json:"id_tag" bson:"id_tag"`
	StopIdTag     string            `json:"stop_id_tag" bson:"stop_id_tag"`
	Status        TransactionStatus `json:"status" bson:"status"`
	IsFinished    bool              `json:"is_finished" bson:"is_finished"`
	MeterStart    float64           `json:"meter_start" bson:"meter_start"`
	MeterLast     float64           `json:"meter_last" bson:"meter_last"`
	MeterStop     float64           `json:"meter_stop" bson:"meter_stop"`
	TimeStart     time.Time         `json:"time_start" bson:"time_start"`
	TimeStop      time.Time         `json:"time_stop" bson:"time_stop"`
	Reason        string            `json:"reason" bson:"reason"`
	Username      string            `json:"username" bson:"username"`
}

// Consumed returns the energy delivered during the session in kWh.
func (t *Transaction) Consumed() float64 {
	if !t.IsFinished {
		return t.MeterLast - t.MeterStart
	}
	return t.MeterStop - t.MeterStart
}
