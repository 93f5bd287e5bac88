package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ocppcs/models"
)

type nopLogger struct{}

func (l *nopLogger) FeatureEvent(feature, id, text string) {}
func (l *nopLogger) Debug(text string)                     {}
func (l *nopLogger) Warn(text string)                      {}
func (l *nopLogger) Error(text string, err error)          {}
func (l *nopLogger) RawDataEvent(direction, data string)   {}

func newTestManager() (*Manager, *MemoryStore) {
	store := NewMemoryStore()
	return NewManager(store, &nopLogger{}), store
}

func TestStart_CreatesTransaction(t *testing.T) {
	manager, _ := newTestManager()
	started := time.Now()

	transaction, err := manager.Start("CP1", 1, "TAG1", "", 1.0, started)
	assert.Nil(t, err)
	assert.Equal(t, 1, transaction.Id)
	assert.Equal(t, models.TransactionStatusStarted, transaction.Status)
	assert.Equal(t, 1.0, transaction.MeterStart)
	assert.False(t, transaction.IsFinished)
}

func TestStart_SecondOnSameConnectorRejected(t *testing.T) {
	manager, _ := newTestManager()

	_, err := manager.Start("CP1", 1, "TAG1", "", 0, time.Now())
	assert.Nil(t, err)
	_, err = manager.Start("CP1", 1, "TAG2", "", 0, time.Now())
	assert.Equal(t, ErrConnectorBusy, err)

	// a different connector on the same station is free
	_, err = manager.Start("CP1", 2, "TAG2", "", 0, time.Now())
	assert.Nil(t, err)
}

func TestStart_AfterStopAllowed(t *testing.T) {
	manager, _ := newTestManager()

	first, err := manager.Start("CP1", 1, "TAG1", "", 0, time.Now())
	assert.Nil(t, err)
	err = manager.Stop("CP1", first, "TAG1", 5.0, time.Now(), "Local")
	assert.Nil(t, err)

	second, err := manager.Start("CP1", 1, "TAG2", "", 5.0, time.Now())
	assert.Nil(t, err)
	assert.Equal(t, first.Id+1, second.Id)
}

func TestUpdateMeter_MarksInProgress(t *testing.T) {
	manager, store := newTestManager()

	started, err := manager.Start("CP1", 1, "TAG1", "", 1.0, time.Now())
	assert.Nil(t, err)

	updated, err := manager.UpdateMeter("CP1", 1, 3.5, time.Now())
	assert.Nil(t, err)
	assert.Equal(t, 3.5, updated.MeterLast)
	assert.Equal(t, models.TransactionStatusInProgress, updated.Status)

	persisted, _ := store.GetTransaction(started.Id)
	assert.Equal(t, 3.5, persisted.MeterLast)
}

func TestUpdateMeter_NoOpenTransaction(t *testing.T) {
	manager, _ := newTestManager()
	transaction, err := manager.UpdateMeter("CP1", 1, 3.5, time.Now())
	assert.Nil(t, err)
	assert.Nil(t, transaction)
}

func TestStop_Terminal(t *testing.T) {
	manager, store := newTestManager()

	transaction, err := manager.Start("CP1", 1, "TAG1", "", 1.0, time.Now())
	assert.Nil(t, err)
	stopTime := time.Now()

	err = manager.Stop("CP1", transaction, "TAG1", 8.0, stopTime, "Remote")
	assert.Nil(t, err)

	persisted, _ := store.GetTransaction(transaction.Id)
	assert.True(t, persisted.IsFinished)
	assert.Equal(t, models.TransactionStatusStopped, persisted.Status)
	assert.Equal(t, 8.0, persisted.MeterStop)
	assert.Equal(t, "Remote", persisted.Reason)

	// no transition out of Stopped
	err = manager.Stop("CP1", persisted, "TAG1", 9.0, time.Now(), "Local")
	assert.Equal(t, ErrAlreadyStopped, err)
}

func TestStop_WrongStation(t *testing.T) {
	manager, _ := newTestManager()

	transaction, err := manager.Start("CP1", 1, "TAG1", "", 1.0, time.Now())
	assert.Nil(t, err)

	err = manager.Stop("CP2", transaction, "TAG1", 8.0, time.Now(), "Local")
	assert.Equal(t, ErrWrongStation, err)
}

func TestFind_UnknownId(t *testing.T) {
	manager, _ := newTestManager()
	_, err := manager.Find(12345)
	assert.Equal(t, ErrNotFound, err)
}

func TestFindByRef(t *testing.T) {
	manager, _ := newTestManager()
	started, err := manager.Start("CP1", 1, "TAG1", "evt-17", 0, time.Now())
	assert.Nil(t, err)

	found, err := manager.FindByRef("evt-17")
	assert.Nil(t, err)
	assert.Equal(t, started.Id, found.Id)

	_, err = manager.FindByRef("missing")
	assert.Equal(t, ErrNotFound, err)
}

func TestOnStart_SeedsCounter(t *testing.T) {
	store := NewMemoryStore()
	_ = store.AddTransaction(&models.Transaction{Id: 41, ChargePointId: "CP1", ConnectorId: 1, IsFinished: true})

	manager := NewManager(store, &nopLogger{})
	assert.Nil(t, manager.OnStart())

	transaction, err := manager.Start("CP1", 1, "TAG1", "", 0, time.Now())
	assert.Nil(t, err)
	assert.Equal(t, 42, transaction.Id)
}

func TestStart_ConcurrentRace(t *testing.T) {
	manager, _ := newTestManager()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Start("CP1", 1, "TAG1", "", 0, time.Now())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	started := 0
	for err := range errs {
		if err == nil {
			started++
		} else {
			assert.Equal(t, ErrConnectorBusy, err)
		}
	}
	assert.Equal(t, 1, started)
}
