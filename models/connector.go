package models

import "sync"

type Connector struct {
	Id                   int     `json:"connector_id" bson:"connector_id"`
	ChargePointId        string  `json:"charge_point_id" bson:"charge_point_id"`
	IsEnabled            bool    `json:"is_enabled" bson:"is_enabled"`
	Status               string  `json:"status" bson:"status"`
	Info                 string  `json:"info" bson:"info"`
	ErrorCode            string  `json:"error_code" bson:"error_code"`
	VendorId             string  `json:"vendor_id" bson:"vendor_id"`
	MeterValue           float64 `json:"meter_value" bson:"meter_value"`
	PowerRate            float64 `json:"power_rate" bson:"power_rate"`
	SoC                  float64 `json:"soc" bson:"soc"`
	CurrentTransactionId int     `json:"current_transaction_id" bson:"current_transaction_id"`
	mutex                *sync.Mutex
}

func NewConnector(id int, chargePointId string) *Connector {
	connector := &Connector{
		Id:                   id,
		ChargePointId:        chargePointId,
		IsEnabled:            true,
		CurrentTransactionId: -1,
		mutex:                &sync.Mutex{},
	}
	return connector
}

// Init restores the mutex after the connector was decoded from the database.
func (c *Connector) Init() {
	if c.mutex == nil {
		c.mutex = &sync.Mutex{}
	}
	if c.CurrentTransactionId == 0 {
		c.CurrentTransactionId = -1
	}
}

func (c *Connector) Lock() {
	c.mutex.Lock()
}

func (c *Connector) Unlock() {
	c.mutex.Unlock()
}
