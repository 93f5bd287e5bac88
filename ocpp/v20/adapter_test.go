package v20

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ocppcs/auth"
	"ocppcs/models"
	"ocppcs/ocpp"
	"ocppcs/session"
	"ocppcs/types"
	"ocppcs/wire"
)

type fakeTagStore struct {
	tags map[string]*models.UserTag
	open *session.MemoryStore
}

func (f *fakeTagStore) GetUserTag(id string) (*models.UserTag, error) {
	return f.tags[id], nil
}

func (f *fakeTagStore) FindOpenTransactionByTag(idTag string) (*models.Transaction, error) {
	return f.open.FindOpenTransactionByTag(idTag)
}

type nopLogger struct{}

func (l *nopLogger) FeatureEvent(feature, id, text string) {}
func (l *nopLogger) Debug(text string)                     {}
func (l *nopLogger) Warn(text string)                      {}
func (l *nopLogger) Error(text string, err error)          {}
func (l *nopLogger) RawDataEvent(direction, data string)   {}

func newTestAdapter() (*Adapter, *session.MemoryStore) {
	store := session.NewMemoryStore()
	tags := &fakeTagStore{
		tags: map[string]*models.UserTag{
			"TAG1": {IdTag: "TAG1"},
		},
		open: store,
	}
	logger := &nopLogger{}
	engine := auth.NewEngine(tags, logger)
	sessions := session.NewManager(store, logger)
	handler := ocpp.NewSystemHandler(time.UTC, engine, sessions, logger)
	handler.SetParameters(120, true, true)
	return NewAdapter(handler, logger), store
}

func call(t *testing.T, adapter *Adapter, action string, payload interface{}) (interface{}, error) {
	raw, err := json.Marshal(payload)
	assert.Nil(t, err)
	return adapter.HandleCall("CP2", action, raw)
}

func boot(t *testing.T, adapter *Adapter) {
	response, err := call(t, adapter, BootNotificationFeatureName, &BootNotificationRequest{
		Reason: "PowerUp",
		ChargingStation: ChargingStation{
			Model:      "model",
			VendorName: "vendor",
		},
	})
	assert.Nil(t, err)
	assert.Equal(t, RegistrationStatusAccepted, response.(*BootNotificationResponse).Status)
}

func energySample(at time.Time, wh float64) MeterValue {
	return MeterValue{
		Timestamp: types.NewDateTime(at),
		SampledValue: []SampledValue{{
			Value:         wh,
			Measurand:     string(types.MeasurandEnergyActiveImportRegister),
			UnitOfMeasure: &UnitOfMeasure{Unit: "Wh"},
		}},
	}
}

func TestTransactionEventLifecycle(t *testing.T) {
	adapter, store := newTestAdapter()
	boot(t, adapter)

	response, err := call(t, adapter, TransactionEventFeatureName, &TransactionEventRequest{
		EventType:       TransactionEventStarted,
		Timestamp:       types.NewDateTime(time.Now()),
		TriggerReason:   "Authorized",
		TransactionInfo: TransactionInfo{TransactionId: "evt-1"},
		IdToken:         &IdToken{IdToken: "TAG1"},
		Evse:            &EVSE{Id: 1, ConnectorId: 1},
		MeterValue:      []MeterValue{energySample(time.Now(), 1000)},
	})
	assert.Nil(t, err)
	started := response.(*TransactionEventResponse)
	assert.Equal(t, "Accepted", started.IdTokenInfo.Status)

	transaction, _ := store.GetTransactionByRef("evt-1")
	assert.NotNil(t, transaction)
	assert.Equal(t, 1.0, transaction.MeterStart)

	// updates may omit the evse; the open transaction supplies the connector
	_, err = call(t, adapter, TransactionEventFeatureName, &TransactionEventRequest{
		EventType:       TransactionEventUpdated,
		Timestamp:       types.NewDateTime(time.Now()),
		TriggerReason:   "MeterValuePeriodic",
		SeqNo:           1,
		TransactionInfo: TransactionInfo{TransactionId: "evt-1"},
		MeterValue:      []MeterValue{energySample(time.Now(), 3000)},
	})
	assert.Nil(t, err)
	transaction, _ = store.GetTransactionByRef("evt-1")
	assert.Equal(t, 3.0, transaction.MeterLast)

	_, err = call(t, adapter, TransactionEventFeatureName, &TransactionEventRequest{
		EventType:       TransactionEventEnded,
		Timestamp:       types.NewDateTime(time.Now()),
		TriggerReason:   "EVDeparted",
		SeqNo:           2,
		TransactionInfo: TransactionInfo{TransactionId: "evt-1", StoppedReason: "EVDisconnected"},
		MeterValue:      []MeterValue{energySample(time.Now(), 6000)},
	})
	assert.Nil(t, err)

	transaction, _ = store.GetTransactionByRef("evt-1")
	assert.True(t, transaction.IsFinished)
	assert.Equal(t, 5.0, transaction.Consumed())
}

func TestEndedWithoutMeterFallsBackToLastReading(t *testing.T) {
	adapter, store := newTestAdapter()
	boot(t, adapter)

	_, err := call(t, adapter, TransactionEventFeatureName, &TransactionEventRequest{
		EventType:       TransactionEventStarted,
		Timestamp:       types.NewDateTime(time.Now()),
		TriggerReason:   "Authorized",
		TransactionInfo: TransactionInfo{TransactionId: "evt-2"},
		IdToken:         &IdToken{IdToken: "TAG1"},
		Evse:            &EVSE{Id: 1},
		MeterValue:      []MeterValue{energySample(time.Now(), 1000)},
	})
	assert.Nil(t, err)
	_, err = call(t, adapter, TransactionEventFeatureName, &TransactionEventRequest{
		EventType:       TransactionEventUpdated,
		Timestamp:       types.NewDateTime(time.Now()),
		TriggerReason:   "MeterValuePeriodic",
		TransactionInfo: TransactionInfo{TransactionId: "evt-2"},
		MeterValue:      []MeterValue{energySample(time.Now(), 4500)},
	})
	assert.Nil(t, err)

	_, err = call(t, adapter, TransactionEventFeatureName, &TransactionEventRequest{
		EventType:       TransactionEventEnded,
		Timestamp:       types.NewDateTime(time.Now()),
		TriggerReason:   "EVDeparted",
		TransactionInfo: TransactionInfo{TransactionId: "evt-2"},
	})
	assert.Nil(t, err)

	transaction, _ := store.GetTransactionByRef("evt-2")
	assert.True(t, transaction.IsFinished)
	assert.Equal(t, 4.5, transaction.MeterStop)
}

func TestEndedUnknownTransaction(t *testing.T) {
	adapter, store := newTestAdapter()
	boot(t, adapter)

	_, err := call(t, adapter, TransactionEventFeatureName, &TransactionEventRequest{
		EventType:       TransactionEventEnded,
		Timestamp:       types.NewDateTime(time.Now()),
		TriggerReason:   "EVDeparted",
		TransactionInfo: TransactionInfo{TransactionId: "missing"},
	})
	var fault *ocpp.Fault
	assert.True(t, errors.As(err, &fault))
	assert.Equal(t, wire.ErrPropertyConstraintViolation, fault.Code)

	last, _ := store.GetLastTransaction()
	assert.Nil(t, last)
}

func TestStatusNotificationReservedIsOccupied(t *testing.T) {
	adapter, _ := newTestAdapter()
	boot(t, adapter)

	_, err := call(t, adapter, StatusNotificationFeatureName, &StatusNotificationRequest{
		Timestamp:       types.NewDateTime(time.Now()),
		ConnectorStatus: ConnectorStatusReserved,
		EvseId:          1,
		ConnectorId:     1,
	})
	assert.Nil(t, err)
	assert.Equal(t, types.ConnectorStatusOccupied, adapter.handler.ConnectorStatus("CP2", 1))
}

func TestCommandRequestNames(t *testing.T) {
	adapter, _ := newTestAdapter()

	action, payload, err := adapter.CommandRequest(ocpp.Command{
		ChargePointId: "CP2",
		FeatureName:   ocpp.CommandRemoteStartTransaction,
		ConnectorId:   1,
		Payload:       "TAG1",
	})
	assert.Nil(t, err)
	assert.Equal(t, RequestStartTransactionFeatureName, action)
	request := payload.(*RequestStartTransactionRequest)
	assert.Equal(t, "TAG1", request.IdToken.IdToken)

	action, payload, err = adapter.CommandRequest(ocpp.Command{
		ChargePointId: "CP2",
		FeatureName:   ocpp.CommandRemoteStopTransaction,
		Payload:       "evt-1",
	})
	assert.Nil(t, err)
	assert.Equal(t, RequestStopTransactionFeatureName, action)
	assert.Equal(t, "evt-1", payload.(*RequestStopTransactionRequest).TransactionId)
}
