package ocpp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ocppcs/auth"
	"ocppcs/internal"
	"ocppcs/metering"
	"ocppcs/models"
	"ocppcs/session"
	"ocppcs/types"
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

type eventRecorder struct {
	events []string
}

func (r *eventRecorder) OnStatusNotification(event *internal.EventMessage) {
	r.events = append(r.events, "status")
}
func (r *eventRecorder) OnTransactionStart(event *internal.EventMessage) {
	r.events = append(r.events, "start")
}
func (r *eventRecorder) OnTransactionStop(event *internal.EventMessage) {
	r.events = append(r.events, "stop")
}
func (r *eventRecorder) OnAuthorize(event *internal.EventMessage) {
	r.events = append(r.events, "authorize")
}

func newTestHandler(acceptUnknown bool) (*SystemHandler, *eventRecorder) {
	store := session.NewMemoryStore()
	tags := &fakeTagStore{
		tags: map[string]*models.UserTag{"TAG1": {IdTag: "TAG1"}},
		open: store,
	}
	logger := &nopLogger{}
	handler := NewSystemHandler(time.UTC, auth.NewEngine(tags, logger), session.NewManager(store, logger), logger)
	handler.SetParameters(90, true, acceptUnknown)
	recorder := &eventRecorder{}
	handler.SetEventHandler(recorder)
	return handler, recorder
}

func TestOnBoot_UnknownRejectedUnlessAccepting(t *testing.T) {
	handler, _ := newTestHandler(false)
	assert.False(t, handler.OnBoot("CP9", BootInfo{Vendor: "v"}, types.ProtocolVersion16))

	handler, _ = newTestHandler(true)
	assert.True(t, handler.OnBoot("CP9", BootInfo{Vendor: "v"}, types.ProtocolVersion16))
	assert.True(t, handler.IsKnown("CP9"))
}

func TestOnAuthorize_CleansTagAndFiresEvent(t *testing.T) {
	handler, recorder := newTestHandler(true)
	info := handler.OnAuthorize("CP1", "TAG1_NFC")
	assert.Equal(t, types.AuthorizationStatusAccepted, info.Status)
	assert.Equal(t, []string{"authorize"}, recorder.events)
}

func TestStatusNotification_ConnectorZeroUpdatesStation(t *testing.T) {
	handler, recorder := newTestHandler(true)
	assert.True(t, handler.OnBoot("CP1", BootInfo{}, types.ProtocolVersion16))
	recorder.events = nil

	err := handler.OnStatusNotification("CP1", 0, types.ConnectorStatusFaulted, "HighTemperature", "overheated")
	assert.Nil(t, err)
	assert.Equal(t, []string{"status"}, recorder.events)
	// no connector record is created for the station itself
	assert.Equal(t, types.ConnectorStatusUndefined, handler.ConnectorStatus("CP1", 0))
}

func TestMeterValues_UpdatesConnectorAndTransaction(t *testing.T) {
	handler, _ := newTestHandler(true)
	assert.True(t, handler.OnBoot("CP1", BootInfo{}, types.ProtocolVersion16))

	result, err := handler.OnStartTransaction("CP1", 1, "TAG1", "", 1.0, time.Now())
	assert.Nil(t, err)
	assert.Equal(t, types.AuthorizationStatusAccepted, result.IdTagInfo.Status)

	err = handler.OnMeterValues("CP1", 1, []metering.Sample{
		{Timestamp: time.Now(), Value: 2500, Unit: types.UnitOfMeasureWh},
	})
	assert.Nil(t, err)

	stop, err := handler.OnStopById("CP1", result.Transaction.Id, "TAG1", -1, time.Now(), "Local")
	assert.Nil(t, err)
	assert.Equal(t, 2.5, stop.Transaction.MeterStop)
	assert.Equal(t, types.ConnectorStatusAvailable, handler.ConnectorStatus("CP1", 1))
}
