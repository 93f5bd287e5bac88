package ocpp

import (
	"fmt"
	"sync"
	"time"

	"ocppcs/auth"
	"ocppcs/internal"
	"ocppcs/metering"
	"ocppcs/metrics/counters"
	"ocppcs/models"
	"ocppcs/session"
	"ocppcs/types"
	"ocppcs/utility"
	"ocppcs/wire"
)

const defaultHeartbeatInterval = 300

// BootInfo is the version-neutral shape of a boot notification.
type BootInfo struct {
	Vendor          string
	Model           string
	SerialNumber    string
	FirmwareVersion string
}

// StartResult is what a start event reports back to the station, in neutral
// form: the authorization outcome and, when accepted, the transaction.
type StartResult struct {
	IdTagInfo   *types.IdTagInfo
	Transaction *models.Transaction
}

// StopResult mirrors StartResult for the end of a session.
type StopResult struct {
	IdTagInfo   *types.IdTagInfo
	Transaction *models.Transaction
}

type chargePointState struct {
	model      models.ChargePoint
	mux        sync.Mutex
	connectors map[int]*models.Connector
}

func (state *chargePointState) connector(id int, database internal.Database, logger internal.LogHandler) *models.Connector {
	state.mux.Lock()
	defer state.mux.Unlock()
	connector, ok := state.connectors[id]
	if !ok {
		connector = models.NewConnector(id, state.model.Id)
		state.connectors[id] = connector
		if database != nil {
			if err := database.AddConnector(connector); err != nil {
				logger.Error("failed to add connector to database", err)
			}
		}
	}
	return connector
}

// SystemHandler implements the shared business rules behind every protocol
// adapter: provisioning checks, authorization, the transaction state machine
// and connector status bookkeeping. The charge point map doubles as the
// online connector status map; the persisted store keeps the state across
// restarts.
type SystemHandler struct {
	chargePoints sync.Map // chargePointId -> *chargePointState
	database     internal.Database
	logger       internal.LogHandler
	eventHandler internal.EventHandler
	engine       *auth.Engine
	sessions     *session.Manager
	location     *time.Location

	heartbeatInterval int
	denyConcurrentTx  bool
	acceptUnknownChp  bool
}

func NewSystemHandler(location *time.Location, engine *auth.Engine, sessions *session.Manager, logger internal.LogHandler) *SystemHandler {
	return &SystemHandler{
		engine:            engine,
		sessions:          sessions,
		logger:            logger,
		location:          location,
		heartbeatInterval: defaultHeartbeatInterval,
	}
}

func (h *SystemHandler) SetDatabase(database internal.Database) {
	h.database = database
}

func (h *SystemHandler) SetEventHandler(eventHandler internal.EventHandler) {
	h.eventHandler = eventHandler
}

func (h *SystemHandler) SetParameters(heartbeatInterval int, denyConcurrentTx, acceptUnknownChp bool) {
	if heartbeatInterval > 0 {
		h.heartbeatInterval = heartbeatInterval
	}
	h.denyConcurrentTx = denyConcurrentTx
	h.acceptUnknownChp = acceptUnknownChp
}

// OnStart loads provisioned charge points and their connectors and seeds the
// transaction counter.
func (h *SystemHandler) OnStart() error {
	if h.database == nil {
		return nil
	}
	chargePoints, err := h.database.GetChargePoints()
	if err != nil {
		return fmt.Errorf("failed to load charge points from database: %s", err)
	}
	connectors, err := h.database.GetConnectors()
	if err != nil {
		return fmt.Errorf("failed to load connectors from database: %s", err)
	}
	for _, cp := range chargePoints {
		state := &chargePointState{
			model:      cp,
			connectors: make(map[int]*models.Connector),
		}
		for _, c := range connectors {
			if c.ChargePointId == cp.Id {
				c.Init()
				state.connectors[c.Id] = c
			}
		}
		h.chargePoints.Store(cp.Id, state)
	}
	h.logger.Debug(fmt.Sprintf("loaded %d charge points, %d connectors from database", len(chargePoints), len(connectors)))

	return h.sessions.OnStart()
}

func (h *SystemHandler) addChargePoint(chargePointId string, version types.ProtocolVersion) *chargePointState {
	cp := models.ChargePoint{
		Id:              chargePointId,
		IsEnabled:       true,
		ProtocolVersion: string(version),
		Status:          string(types.ConnectorStatusAvailable),
	}
	if h.database != nil {
		if err := h.database.AddChargePoint(&cp); err != nil {
			h.logger.Error("failed to add charge point to database", err)
		}
	}
	state := &chargePointState{
		model:      cp,
		connectors: make(map[int]*models.Connector),
	}
	h.chargePoints.Store(chargePointId, state)
	return state
}

func (h *SystemHandler) getChargePoint(chargePointId string) (*chargePointState, bool) {
	value, ok := h.chargePoints.Load(chargePointId)
	if ok {
		return value.(*chargePointState), true
	}
	h.logger.Warn(fmt.Sprintf("unknown charge point: %s", chargePointId))
	if h.acceptUnknownChp {
		h.logger.Debug("registering unknown charge point")
		return h.addChargePoint(chargePointId, types.ProtocolVersion16), true
	}
	return nil, false
}

// IsKnown reports whether a charge point is provisioned without registering
// anything.
func (h *SystemHandler) IsKnown(chargePointId string) bool {
	_, ok := h.chargePoints.Load(chargePointId)
	return ok
}

// HeartbeatInterval is the interval handed out in boot responses.
func (h *SystemHandler) HeartbeatInterval() int {
	return h.heartbeatInterval
}

// Now returns the server time sent in boot and heartbeat responses.
func (h *SystemHandler) Now() time.Time {
	return time.Now().In(h.location)
}

// OnBoot accepts provisioned stations and refreshes their hardware record.
func (h *SystemHandler) OnBoot(chargePointId string, info BootInfo, version types.ProtocolVersion) bool {
	state, ok := h.getChargePoint(chargePointId)
	if !ok {
		h.logger.FeatureEvent("BootNotification", chargePointId, "rejected: not provisioned")
		return false
	}
	if state.model.SerialNumber != info.SerialNumber || state.model.FirmwareVersion != info.FirmwareVersion ||
		state.model.ProtocolVersion != string(version) {
		state.model.SerialNumber = info.SerialNumber
		state.model.FirmwareVersion = info.FirmwareVersion
		state.model.Model = info.Model
		state.model.Vendor = info.Vendor
		state.model.ProtocolVersion = string(version)
		if h.database != nil {
			if err := h.database.UpdateChargePoint(&state.model); err != nil {
				h.logger.Error("update charge point", err)
			}
		}
	}
	h.logger.FeatureEvent("BootNotification", chargePointId, fmt.Sprintf("accepted (vendor: %s; model: %s)", info.Vendor, info.Model))
	return state.model.IsEnabled
}

func (h *SystemHandler) OnHeartbeat(chargePointId string) time.Time {
	now := h.Now()
	h.logger.FeatureEvent("Heartbeat", chargePointId, now.Format(time.RFC3339))
	return now
}

// OnAuthorize cleans the presented tag and runs the authorization engine.
func (h *SystemHandler) OnAuthorize(chargePointId, rawTag string) *types.IdTagInfo {
	idTag := utility.CleanTag(rawTag)
	info := h.engine.Authorize(idTag, false)
	h.logger.FeatureEvent("Authorize", chargePointId, fmt.Sprintf("id tag: %s; authorization status: %s", idTag, info.Status))

	if h.eventHandler != nil {
		h.eventHandler.OnAuthorize(&internal.EventMessage{
			ChargePointId: chargePointId,
			Time:          h.Now(),
			IdTag:         idTag,
			Status:        string(info.Status),
		})
	}
	return info
}

// OnStartTransaction authorizes the tag under the concurrency policy and, on
// acceptance, opens a transaction and occupies the connector.
func (h *SystemHandler) OnStartTransaction(chargePointId string, connectorId int, rawTag, ref string, meterStart float64, startTime time.Time) (*StartResult, error) {
	state, ok := h.getChargePoint(chargePointId)
	if !ok {
		return nil, NewFault(wire.ErrGenericError, fmt.Sprintf("unknown charge point: %s", chargePointId))
	}

	idTag := utility.CleanTag(rawTag)
	info := h.engine.Authorize(idTag, h.denyConcurrentTx)
	if info.Status != types.AuthorizationStatusAccepted {
		h.logger.FeatureEvent("StartTransaction", chargePointId, fmt.Sprintf("start denied for %s: %s", idTag, info.Status))
		return &StartResult{IdTagInfo: info}, nil
	}

	transaction, err := h.sessions.Start(chargePointId, connectorId, idTag, ref, meterStart, startTime)
	if err != nil {
		if err == session.ErrConnectorBusy {
			return &StartResult{IdTagInfo: types.NewIdTagInfo(types.AuthorizationStatusConcurrentTx)}, nil
		}
		return nil, err
	}

	connector := state.connector(connectorId, h.database, h.logger)
	connector.Lock()
	connector.Status = string(types.ConnectorStatusOccupied)
	connector.CurrentTransactionId = transaction.Id
	connector.MeterValue = meterStart
	h.persistConnector(connector)
	connector.Unlock()

	counters.CountTransaction(chargePointId)
	h.logger.FeatureEvent("StartTransaction", chargePointId, fmt.Sprintf("started transaction #%v for connector %v", transaction.Id, connectorId))

	if h.eventHandler != nil {
		h.eventHandler.OnTransactionStart(&internal.EventMessage{
			ChargePointId: chargePointId,
			ConnectorId:   connectorId,
			Time:          startTime,
			IdTag:         idTag,
			Status:        string(types.ConnectorStatusOccupied),
			TransactionId: transaction.Id,
		})
	}
	return &StartResult{IdTagInfo: info, Transaction: transaction}, nil
}

// OnMeterValues applies a normalized reading to the connector's live values
// and to the open transaction, if any.
func (h *SystemHandler) OnMeterValues(chargePointId string, connectorId int, samples []metering.Sample) error {
	state, ok := h.getChargePoint(chargePointId)
	if !ok {
		return NewFault(wire.ErrGenericError, fmt.Sprintf("unknown charge point: %s", chargePointId))
	}
	if connectorId <= 0 || len(samples) == 0 {
		return nil
	}

	reading := metering.Interpret(samples)
	for _, sample := range reading.Unrecognized {
		h.logger.Warn(fmt.Sprintf("unrecognized unit %s for measurand %s on %s@%d, using raw value",
			sample.Unit, sample.Measurand, chargePointId, connectorId))
	}

	connector := state.connector(connectorId, h.database, h.logger)
	connector.Lock()
	if reading.EnergyKWh != nil {
		connector.MeterValue = *reading.EnergyKWh
	}
	if reading.PowerKW != nil {
		connector.PowerRate = *reading.PowerKW
		counters.ObservePowerRate(chargePointId, fmt.Sprintf("%d", connectorId), *reading.PowerKW)
	}
	if reading.SoC != nil {
		connector.SoC = *reading.SoC
	}
	h.persistConnector(connector)
	connector.Unlock()

	if reading.EnergyKWh != nil {
		transaction, err := h.sessions.UpdateMeter(chargePointId, connectorId, *reading.EnergyKWh, reading.EnergyTime)
		if err != nil {
			h.logger.Error("update transaction meter", err)
		} else if transaction != nil {
			h.logger.FeatureEvent("MeterValues", chargePointId, fmt.Sprintf("transaction #%v meter %.3f kWh", transaction.Id, *reading.EnergyKWh))
		}
	}
	return nil
}

// OnTransactionUpdate applies meter samples reported against a
// station-assigned transaction id. The 2.x dialects may omit the connector on
// update events; the open transaction then supplies it.
func (h *SystemHandler) OnTransactionUpdate(chargePointId, ref string, connectorId int, samples []metering.Sample) error {
	if connectorId <= 0 {
		transaction, err := h.sessions.FindByRef(ref)
		if err != nil || transaction == nil {
			h.logger.Warn(fmt.Sprintf("update for unknown transaction %s on %s", ref, chargePointId))
			return NewFault(wire.ErrPropertyConstraintViolation, fmt.Sprintf("transaction %s not found", ref))
		}
		connectorId = transaction.ConnectorId
	}
	return h.OnMeterValues(chargePointId, connectorId, samples)
}

// OnStopById ends the session matched by the server-assigned transaction id
// of the 1.6 dialect.
func (h *SystemHandler) OnStopById(chargePointId string, transactionId int, rawTag string, meterStop float64, stopTime time.Time, reason string) (*StopResult, error) {
	transaction, err := h.sessions.Find(transactionId)
	return h.stopTransaction(chargePointId, transaction, err, fmt.Sprintf("#%d", transactionId), rawTag, meterStop, stopTime, reason)
}

// OnStopByRef ends the session matched by the station-assigned transaction id
// of the 2.x dialects.
func (h *SystemHandler) OnStopByRef(chargePointId, ref, rawTag string, meterStop float64, stopTime time.Time, reason string) (*StopResult, error) {
	transaction, err := h.sessions.FindByRef(ref)
	return h.stopTransaction(chargePointId, transaction, err, ref, rawTag, meterStop, stopTime, reason)
}

// stopTransaction ends a located session. An unknown transaction is a data
// integrity signal and reports a PropertyConstraintViolation without touching
// any state.
func (h *SystemHandler) stopTransaction(chargePointId string, transaction *models.Transaction, lookupErr error, attempted string, rawTag string, meterStop float64, stopTime time.Time, reason string) (*StopResult, error) {
	state, ok := h.getChargePoint(chargePointId)
	if !ok {
		return nil, NewFault(wire.ErrGenericError, fmt.Sprintf("unknown charge point: %s", chargePointId))
	}
	if lookupErr != nil || transaction == nil {
		h.logger.Warn(fmt.Sprintf("stop for unknown transaction %s on %s, meter %f", attempted, chargePointId, meterStop))
		return nil, NewFault(wire.ErrPropertyConstraintViolation, fmt.Sprintf("transaction %s not found", attempted))
	}

	stopTag := utility.CleanTag(rawTag)
	if stopTag == "" {
		stopTag = transaction.IdTag
	}
	// a negative meter value means the stop event carried no register reading
	if meterStop < 0 {
		meterStop = transaction.MeterLast
	}
	info := h.engine.AuthorizeStop(stopTag, transaction.IdTag)
	if info.Status != types.AuthorizationStatusAccepted {
		h.logger.FeatureEvent("StopTransaction", chargePointId, fmt.Sprintf("stop denied for %s on transaction #%v: %s", stopTag, transaction.Id, info.Status))
		return &StopResult{IdTagInfo: info}, nil
	}

	if err := h.sessions.Stop(chargePointId, transaction, stopTag, meterStop, stopTime, reason); err != nil {
		if err == session.ErrAlreadyStopped || err == session.ErrWrongStation {
			return nil, NewFault(wire.ErrPropertyConstraintViolation, err.Error())
		}
		return nil, err
	}

	connector := state.connector(transaction.ConnectorId, h.database, h.logger)
	connector.Lock()
	connector.Status = string(types.ConnectorStatusAvailable)
	connector.CurrentTransactionId = -1
	connector.MeterValue = meterStop
	connector.PowerRate = 0
	h.persistConnector(connector)
	connector.Unlock()

	counters.CountConsumedEnergy(chargePointId, transaction.Consumed())
	h.logger.FeatureEvent("StopTransaction", chargePointId, fmt.Sprintf("stopped transaction #%v, consumed %.3f kWh", transaction.Id, transaction.Consumed()))

	if h.eventHandler != nil {
		h.eventHandler.OnTransactionStop(&internal.EventMessage{
			ChargePointId: chargePointId,
			ConnectorId:   transaction.ConnectorId,
			Time:          stopTime,
			IdTag:         stopTag,
			Status:        string(types.ConnectorStatusAvailable),
			TransactionId: transaction.Id,
			Info:          fmt.Sprintf("consumed %.1f kWh", transaction.Consumed()),
		})
	}
	return &StopResult{IdTagInfo: info, Transaction: transaction}, nil
}

// OnStatusNotification records a normalized connector status in the online
// map and the persisted store. Connector id 0 addresses the station itself.
func (h *SystemHandler) OnStatusNotification(chargePointId string, connectorId int, status types.ConnectorStatus, errorCode, info string) error {
	state, ok := h.getChargePoint(chargePointId)
	if !ok {
		return NewFault(wire.ErrGenericError, fmt.Sprintf("unknown charge point: %s", chargePointId))
	}
	currentTransactionId := -1
	if connectorId > 0 {
		connector := state.connector(connectorId, h.database, h.logger)
		connector.Lock()
		connector.Status = string(status)
		connector.Info = info
		connector.ErrorCode = errorCode
		if status == types.ConnectorStatusAvailable {
			connector.CurrentTransactionId = -1
		}
		currentTransactionId = connector.CurrentTransactionId
		h.persistConnector(connector)
		connector.Unlock()
		h.logger.FeatureEvent("StatusNotification", chargePointId, fmt.Sprintf("updated connector #%v status to %v", connectorId, status))
	} else {
		state.model.Status = string(status)
		state.model.Info = info
		if h.database != nil {
			if err := h.database.UpdateChargePoint(&state.model); err != nil {
				h.logger.Error("update status", err)
			}
		}
		h.logger.FeatureEvent("StatusNotification", chargePointId, fmt.Sprintf("updated main controller status to %v", status))
	}
	if errorCode != "" && errorCode != "NoError" {
		counters.ObserveError(chargePointId, errorCode)
	}

	if h.eventHandler != nil {
		h.eventHandler.OnStatusNotification(&internal.EventMessage{
			ChargePointId: chargePointId,
			ConnectorId:   connectorId,
			Time:          h.Now(),
			Status:        string(status),
			TransactionId: currentTransactionId,
			Info:          info,
		})
	}
	return nil
}

// OnDataTransfer logs the opaque payload of a known station.
func (h *SystemHandler) OnDataTransfer(chargePointId, vendorId, messageId, data string) error {
	if !h.IsKnown(chargePointId) {
		return NewFault(wire.ErrGenericError, fmt.Sprintf("unknown charge point: %s", chargePointId))
	}
	h.logger.FeatureEvent("DataTransfer", chargePointId, fmt.Sprintf("vendor %s message %s data: %s", vendorId, messageId, data))
	return nil
}

// ConnectorStatus exposes the online map for reporting surfaces.
func (h *SystemHandler) ConnectorStatus(chargePointId string, connectorId int) types.ConnectorStatus {
	value, ok := h.chargePoints.Load(chargePointId)
	if !ok {
		return types.ConnectorStatusUndefined
	}
	state := value.(*chargePointState)
	state.mux.Lock()
	connector, ok := state.connectors[connectorId]
	state.mux.Unlock()
	if !ok || connector.Status == "" {
		return types.ConnectorStatusUndefined
	}
	return types.ConnectorStatus(connector.Status)
}

func (h *SystemHandler) persistConnector(connector *models.Connector) {
	if h.database == nil {
		return
	}
	if err := h.database.UpdateConnector(connector); err != nil {
		h.logger.Error("update connector", err)
	}
}
