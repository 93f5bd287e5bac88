package v16

import (
	"encoding/json"
	"errors"
	"fmt"
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
			"TAG1": {IdTag: "TAG1", ParentIdTag: "FLEET"},
			"TAG2": {IdTag: "TAG2", ParentIdTag: "FLEET"},
		},
		open: store,
	}
	logger := &nopLogger{}
	engine := auth.NewEngine(tags, logger)
	sessions := session.NewManager(store, logger)
	handler := ocpp.NewSystemHandler(time.UTC, engine, sessions, logger)
	handler.SetParameters(60, true, true)
	return NewAdapter(handler, logger), store
}

func call(t *testing.T, adapter *Adapter, action string, payload interface{}) (interface{}, error) {
	raw, err := json.Marshal(payload)
	assert.Nil(t, err)
	return adapter.HandleCall("CP1", action, raw)
}

func TestChargingSession(t *testing.T) {
	adapter, store := newTestAdapter()

	response, err := call(t, adapter, BootNotificationFeatureName, &BootNotificationRequest{
		ChargePointVendor: "vendor",
		ChargePointModel:  "model",
	})
	assert.Nil(t, err)
	boot := response.(*BootNotificationResponse)
	assert.Equal(t, RegistrationStatusAccepted, boot.Status)
	assert.Equal(t, 60, boot.Interval)

	response, err = call(t, adapter, AuthorizeFeatureName, &AuthorizeRequest{IdTag: "TAG1_CONTACTLESS"})
	assert.Nil(t, err)
	assert.Equal(t, types.AuthorizationStatusAccepted, response.(*AuthorizeResponse).IdTagInfo.Status)

	response, err = call(t, adapter, StartTransactionFeatureName, &StartTransactionRequest{
		ConnectorId: 1,
		IdTag:       "TAG1",
		MeterStart:  1000,
		Timestamp:   types.NewDateTime(time.Now()),
	})
	assert.Nil(t, err)
	started := response.(*StartTransactionResponse)
	assert.Equal(t, types.AuthorizationStatusAccepted, started.IdTagInfo.Status)
	assert.Equal(t, 1, started.TransactionId)

	// the connector is busy, a second start is downgraded to ConcurrentTx
	response, err = call(t, adapter, StartTransactionFeatureName, &StartTransactionRequest{
		ConnectorId: 1,
		IdTag:       "TAG2",
		MeterStart:  1000,
		Timestamp:   types.NewDateTime(time.Now()),
	})
	assert.Nil(t, err)
	denied := response.(*StartTransactionResponse)
	assert.Equal(t, types.AuthorizationStatusConcurrentTx, denied.IdTagInfo.Status)
	assert.Equal(t, 0, denied.TransactionId)

	_, err = call(t, adapter, MeterValuesFeatureName, &MeterValuesRequest{
		ConnectorId: 1,
		MeterValue: []types.MeterValue{{
			Timestamp: types.NewDateTime(time.Now()),
			SampledValue: []types.SampledValue{
				{Value: "2500", Unit: types.UnitOfMeasureWh},
				{Value: "3600", Measurand: types.MeasurandPowerActiveImport, Unit: types.UnitOfMeasureW},
			},
		}},
	})
	assert.Nil(t, err)
	transaction, _ := store.GetTransaction(1)
	assert.Equal(t, 2.5, transaction.MeterLast)

	response, err = call(t, adapter, StopTransactionFeatureName, &StopTransactionRequest{
		TransactionId: 1,
		IdTag:         "TAG1",
		MeterStop:     5000,
		Timestamp:     types.NewDateTime(time.Now()),
		Reason:        ReasonLocal,
	})
	assert.Nil(t, err)
	stopped := response.(*StopTransactionResponse)
	assert.Equal(t, types.AuthorizationStatusAccepted, stopped.IdTagInfo.Status)

	transaction, _ = store.GetTransaction(1)
	assert.True(t, transaction.IsFinished)
	assert.Equal(t, 4.0, transaction.Consumed())
}

func TestStopUnknownTransaction(t *testing.T) {
	adapter, store := newTestAdapter()
	_, err := call(t, adapter, BootNotificationFeatureName, &BootNotificationRequest{})
	assert.Nil(t, err)

	_, err = call(t, adapter, StopTransactionFeatureName, &StopTransactionRequest{
		TransactionId: 999,
		MeterStop:     5000,
		Timestamp:     types.NewDateTime(time.Now()),
	})
	var fault *ocpp.Fault
	assert.True(t, errors.As(err, &fault))
	assert.Equal(t, wire.ErrPropertyConstraintViolation, fault.Code)

	// nothing was created or mutated
	last, _ := store.GetLastTransaction()
	assert.Nil(t, last)
}

func TestUnknownActionNotSupported(t *testing.T) {
	adapter, _ := newTestAdapter()
	_, err := adapter.HandleCall("CP1", "GetDiagnostics", json.RawMessage(`{}`))
	var fault *ocpp.Fault
	assert.True(t, errors.As(err, &fault))
	assert.Equal(t, wire.ErrNotSupported, fault.Code)
}

func TestStatusNotificationMapping(t *testing.T) {
	adapter, _ := newTestAdapter()
	_, err := call(t, adapter, BootNotificationFeatureName, &BootNotificationRequest{})
	assert.Nil(t, err)

	cases := map[ChargePointStatus]types.ConnectorStatus{
		ChargePointStatusAvailable:   types.ConnectorStatusAvailable,
		ChargePointStatusCharging:    types.ConnectorStatusOccupied,
		ChargePointStatusPreparing:   types.ConnectorStatusOccupied,
		ChargePointStatusUnavailable: types.ConnectorStatusUnavailable,
		ChargePointStatusFaulted:     types.ConnectorStatusFaulted,
	}
	connectorId := 1
	for wireStatus, want := range cases {
		_, err = call(t, adapter, StatusNotificationFeatureName, &StatusNotificationRequest{
			ConnectorId: connectorId,
			ErrorCode:   "NoError",
			Status:      wireStatus,
		})
		assert.Nil(t, err, fmt.Sprintf("status %s", wireStatus))
		assert.Equal(t, want, adapterStatus(adapter, connectorId))
		connectorId++
	}
}

func adapterStatus(a *Adapter, connectorId int) types.ConnectorStatus {
	return a.handler.ConnectorStatus("CP1", connectorId)
}

func TestCommandRequest(t *testing.T) {
	adapter, _ := newTestAdapter()

	action, payload, err := adapter.CommandRequest(ocpp.Command{
		ChargePointId: "CP1",
		FeatureName:   ocpp.CommandRemoteStartTransaction,
		ConnectorId:   2,
		Payload:       "TAG1",
	})
	assert.Nil(t, err)
	assert.Equal(t, RemoteStartTransactionFeatureName, action)
	request := payload.(*RemoteStartTransactionRequest)
	assert.Equal(t, "TAG1", request.IdTag)
	assert.Equal(t, 2, *request.ConnectorId)

	_, _, err = adapter.CommandRequest(ocpp.Command{FeatureName: "GetLog"})
	var fault *ocpp.Fault
	assert.True(t, errors.As(err, &fault))
	assert.Equal(t, wire.ErrNotSupported, fault.Code)
}
