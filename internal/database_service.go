package internal

import "ocppcs/models"

type Database interface {
	WriteLogMessage(data Data) error
	ReadLog() (interface{}, error)

	GetChargePoints() ([]models.ChargePoint, error)
	GetChargePoint(id string) (*models.ChargePoint, error)
	AddChargePoint(chargePoint *models.ChargePoint) error
	UpdateChargePoint(chargePoint *models.ChargePoint) error

	GetConnectors() ([]*models.Connector, error)
	AddConnector(connector *models.Connector) error
	UpdateConnector(connector *models.Connector) error

	GetSubscriptions() ([]models.UserSubscription, error)
	AddSubscription(subscription *models.UserSubscription) error
	DeleteSubscription(subscription *models.UserSubscription) error

	GetUserTag(id string) (*models.UserTag, error)
	AddUserTag(userTag *models.UserTag) error
	UpdateUserTag(userTag *models.UserTag) error

	AddTransaction(transaction *models.Transaction) error
	UpdateTransaction(transaction *models.Transaction) error
	GetTransaction(id int) (*models.Transaction, error)
	GetTransactionByRef(ref string) (*models.Transaction, error)
	GetLastTransaction() (*models.Transaction, error)
	FindOpenTransaction(chargePointId string, connectorId int) (*models.Transaction, error)
	FindOpenTransactionByTag(idTag string) (*models.Transaction, error)
}

type Data interface {
	DataType() string
}
