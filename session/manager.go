package session

import (
	"fmt"
	"sync"
	"time"

	"ocppcs/internal"
	"ocppcs/models"
	"ocppcs/utility"
)

var (
	ErrConnectorBusy  = utility.Err("connector is busy with another transaction")
	ErrNotFound       = utility.Err("transaction not found")
	ErrAlreadyStopped = utility.Err("transaction is already finished")
	ErrWrongStation   = utility.Err("transaction belongs to another charge point")
)

// TransactionStore is the persistence contract the state machine drives.
type TransactionStore interface {
	AddTransaction(transaction *models.Transaction) error
	UpdateTransaction(transaction *models.Transaction) error
	GetTransaction(id int) (*models.Transaction, error)
	GetTransactionByRef(ref string) (*models.Transaction, error)
	GetLastTransaction() (*models.Transaction, error)
	FindOpenTransaction(chargePointId string, connectorId int) (*models.Transaction, error)
}

// Manager owns the transaction lifecycle: Started -> InProgress -> Stopped,
// no way back from Stopped. The single-open-transaction-per-connector
// invariant is enforced under a per-connector lock, so two racing start
// events on the same connector cannot both pass the read-then-write window.
type Manager struct {
	store  TransactionStore
	logger internal.LogHandler

	idMux  sync.Mutex
	nextId int

	locks sync.Map // "chargePointId:connectorId" -> *sync.Mutex
}

func NewManager(store TransactionStore, logger internal.LogHandler) *Manager {
	return &Manager{store: store, logger: logger, nextId: 1}
}

// OnStart seeds the transaction id counter from the last persisted record.
func (m *Manager) OnStart() error {
	last, err := m.store.GetLastTransaction()
	if err != nil {
		m.logger.Warn(fmt.Sprintf("failed to load last transaction: %s", err))
		return nil
	}
	if last != nil {
		m.idMux.Lock()
		m.nextId = last.Id + 1
		m.idMux.Unlock()
	}
	return nil
}

func (m *Manager) newTransactionId() int {
	m.idMux.Lock()
	defer m.idMux.Unlock()
	id := m.nextId
	m.nextId++
	return id
}

func (m *Manager) connectorLock(chargePointId string, connectorId int) *sync.Mutex {
	key := fmt.Sprintf("%s:%d", chargePointId, connectorId)
	lock, _ := m.locks.LoadOrStore(key, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// Start creates a new transaction. ref carries the station-assigned
// transaction id of the 2.x dialects; empty for 1.6.
func (m *Manager) Start(chargePointId string, connectorId int, idTag, ref string, meterStart float64, startTime time.Time) (*models.Transaction, error) {
	lock := m.connectorLock(chargePointId, connectorId)
	lock.Lock()
	defer lock.Unlock()

	open, err := m.store.FindOpenTransaction(chargePointId, connectorId)
	if err != nil {
		return nil, err
	}
	if open != nil {
		m.logger.Warn(fmt.Sprintf("connector %s@%d is busy with transaction #%d", chargePointId, connectorId, open.Id))
		return nil, ErrConnectorBusy
	}

	transaction := &models.Transaction{
		Id:            m.newTransactionId(),
		Ref:           ref,
		ChargePointId: chargePointId,
		ConnectorId:   connectorId,
		IdTag:         idTag,
		Status:        models.TransactionStatusStarted,
		MeterStart:    meterStart,
		MeterLast:     meterStart,
		TimeStart:     startTime,
	}
	if err = m.store.AddTransaction(transaction); err != nil {
		return nil, err
	}
	return transaction, nil
}

// UpdateMeter records a running meter reading (kWh) on the open transaction
// of the given connector. Missing open transaction is not an error; stations
// report meter values outside of sessions too.
func (m *Manager) UpdateMeter(chargePointId string, connectorId int, energyKWh float64, at time.Time) (*models.Transaction, error) {
	lock := m.connectorLock(chargePointId, connectorId)
	lock.Lock()
	defer lock.Unlock()

	transaction, err := m.store.FindOpenTransaction(chargePointId, connectorId)
	if err != nil || transaction == nil {
		return nil, err
	}
	transaction.MeterLast = energyKWh
	transaction.Status = models.TransactionStatusInProgress
	if err = m.store.UpdateTransaction(transaction); err != nil {
		return nil, err
	}
	return transaction, nil
}

// Find returns the transaction matched by the server-assigned id.
func (m *Manager) Find(id int) (*models.Transaction, error) {
	transaction, err := m.store.GetTransaction(id)
	if err != nil || transaction == nil {
		return nil, ErrNotFound
	}
	return transaction, nil
}

// FindByRef returns the transaction matched by the station-assigned id.
func (m *Manager) FindByRef(ref string) (*models.Transaction, error) {
	transaction, err := m.store.GetTransactionByRef(ref)
	if err != nil || transaction == nil {
		return nil, ErrNotFound
	}
	return transaction, nil
}

// Stop moves the transaction to its terminal state. The transaction must
// belong to the given charge point and must not be finished yet; violations
// are logged with the attempted id and meter value since they point at a
// data integrity problem, not a transient fault.
func (m *Manager) Stop(chargePointId string, transaction *models.Transaction, stopIdTag string, meterStop float64, at time.Time, reason string) error {
	lock := m.connectorLock(transaction.ChargePointId, transaction.ConnectorId)
	lock.Lock()
	defer lock.Unlock()

	if transaction.ChargePointId != chargePointId {
		m.logger.Warn(fmt.Sprintf("stop rejected: transaction #%d belongs to %s, not %s (meter %f)",
			transaction.Id, transaction.ChargePointId, chargePointId, meterStop))
		return ErrWrongStation
	}
	if transaction.IsFinished {
		m.logger.Warn(fmt.Sprintf("stop rejected: transaction #%d is already finished (meter %f)",
			transaction.Id, meterStop))
		return ErrAlreadyStopped
	}

	transaction.Status = models.TransactionStatusStopped
	transaction.IsFinished = true
	transaction.StopIdTag = stopIdTag
	transaction.MeterStop = meterStop
	transaction.TimeStop = at
	transaction.Reason = reason
	return m.store.UpdateTransaction(transaction)
}
