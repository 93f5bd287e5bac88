package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"ocppcs/auth"
	"ocppcs/internal"
	"ocppcs/internal/config"
	"ocppcs/ocpp"
	"ocppcs/ocpp/v16"
	"ocppcs/ocpp/v20"
	"ocppcs/ocpp/v21"
	"ocppcs/pusher"
	"ocppcs/session"
	"ocppcs/telegram"
	"ocppcs/types"
	"ocppcs/wire"
)

// CentralSystem ties the websocket transport to the protocol adapters: it
// decodes frames with the codec of the connection's dialect, dispatches Calls
// to the adapter, and routes answers back to whoever sent the matching
// command.
type CentralSystem struct {
	conf       *config.Config
	server     *Server
	api        *Api
	registry   *Registry
	correlator *Correlator
	adapters   map[types.ProtocolVersion]ocpp.Adapter
	handler    *ocpp.SystemHandler
	logger     internal.LogHandler
	cancel     context.CancelFunc
}

func (cs *CentralSystem) onConnection(ws *WebSocket, connected bool) {
	if connected {
		cs.registry.Add(ws)
		cs.logger.Debug(fmt.Sprintf("%s connected with protocol %s", ws.ID(), ws.Version()))
	} else {
		cs.registry.Remove(ws)
		cs.logger.Debug(fmt.Sprintf("%s disconnected", ws.ID()))
	}
}

func (cs *CentralSystem) handleIncomingMessage(ws *WebSocket, data []byte) error {
	chargePointId := ws.ID()
	codec := wire.CodecFor(ws.Version())
	adapter := cs.adapters[ws.Version()]

	msg, err := codec.Decode(data)
	if err != nil {
		// a malformed frame with a recoverable id still gets an answer
		if uniqueId := extractUniqueId(data); uniqueId != "" {
			cs.sendMessage(ws, codec, wire.NewCallError(uniqueId, wire.ErrFormationViolation, err.Error()))
			return nil
		}
		cs.logger.Warn(fmt.Sprintf("dropping unreadable frame from %s: %s", chargePointId, err))
		return nil
	}

	switch msg.Kind {
	case wire.KindCall:
		payload, err := cs.safeHandleCall(adapter, chargePointId, msg.Action, msg.Payload)
		var out *wire.Message
		if err != nil {
			var fault *ocpp.Fault
			if errors.As(err, &fault) {
				out = wire.NewCallError(msg.UniqueId, fault.Code, fault.Description)
			} else {
				cs.logger.Error(fmt.Sprintf("handling %s from %s", msg.Action, chargePointId), err)
				out = wire.NewCallError(msg.UniqueId, wire.ErrInternalError, "internal error")
			}
		} else {
			out, err = wire.NewCallResult(msg.UniqueId, payload)
			if err != nil {
				cs.logger.Error(fmt.Sprintf("encoding %s response for %s", msg.Action, chargePointId), err)
				out = wire.NewCallError(msg.UniqueId, wire.ErrInternalError, "internal error")
			}
		}
		return cs.sendMessage(ws, codec, out)

	case wire.KindCallResult, wire.KindCallError:
		pending, ok := cs.correlator.Resolve(msg.UniqueId)
		if !ok {
			cs.logger.Warn(fmt.Sprintf("unexpected answer %s from %s", msg.UniqueId, chargePointId))
			return nil
		}
		adapter.HandleAnswer(chargePointId, pending.Action, pending.Payload, msg)
		pending.Response <- msg
		return nil
	}
	cs.logger.Warn(fmt.Sprintf("unsupported message kind %d from %s", msg.Kind, chargePointId))
	return nil
}

// safeHandleCall keeps a panicking action handler from taking the reader
// goroutine down; the station still gets its error envelope.
func (cs *CentralSystem) safeHandleCall(adapter ocpp.Adapter, chargePointId, action string, payload json.RawMessage) (response interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s handler: %v", action, r)
		}
	}()
	return adapter.HandleCall(chargePointId, action, payload)
}

func (cs *CentralSystem) sendMessage(ws *WebSocket, codec wire.Codec, msg *wire.Message) error {
	data, err := codec.Encode(msg)
	if err != nil {
		cs.logger.Error("encoding outbound message", err)
		return err
	}
	cs.logger.RawDataEvent("OUT", string(data))
	if err = ws.Send(data); err != nil {
		cs.logger.Error(fmt.Sprintf("sending to %s", ws.ID()), err)
	}
	return err
}

// extractUniqueId makes a best effort to pull the message id out of a frame
// the codec rejected; both the 1.6 array and the 2.x object shape are tried.
func extractUniqueId(data []byte) string {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err == nil && len(fields) > 1 {
		var id string
		if json.Unmarshal(fields[1], &id) == nil {
			return id
		}
		return ""
	}
	var frame struct {
		Id json.Number `json:"id"`
	}
	if err := json.Unmarshal(data, &frame); err == nil {
		return frame.Id.String()
	}
	return ""
}

// HandleCommand sends a server-to-station command and waits for the answer.
// Stations that are not connected fail immediately.
func (cs *CentralSystem) HandleCommand(command ocpp.Command) (json.RawMessage, error) {
	ws, ok := cs.registry.Get(command.ChargePointId)
	if !ok {
		return nil, ErrNotConnected
	}
	adapter := cs.adapters[ws.Version()]
	action, payload, err := adapter.CommandRequest(command)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	pending := cs.correlator.Add(command.ChargePointId, action, raw)
	call, err := wire.NewCall(pending.UniqueId, action, payload)
	if err != nil {
		cs.correlator.Forget(pending.UniqueId)
		return nil, err
	}
	if err = cs.sendMessage(ws, wire.CodecFor(ws.Version()), call); err != nil {
		cs.correlator.Forget(pending.UniqueId)
		return nil, err
	}

	timeout := time.Duration(cs.conf.Command.TimeoutSeconds) * time.Second
	select {
	case answer := <-pending.Response:
		if answer == nil {
			return nil, ErrCommandTimeout
		}
		if answer.Kind == wire.KindCallError {
			return nil, fmt.Errorf("station rejected %s: %s (%s)", action, answer.ErrorCode, answer.ErrorDescription)
		}
		return answer.Payload, nil
	case <-time.After(timeout):
		cs.correlator.Forget(pending.UniqueId)
		return nil, ErrCommandTimeout
	}
}

func (cs *CentralSystem) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	cs.cancel = cancel

	go cs.correlator.Sweep(ctx, time.Duration(cs.conf.Command.SweepSeconds)*time.Second)

	go func() {
		if err := cs.server.Start(); err != nil {
			cs.logger.Error("websocket server failed", err)
		}
	}()

	go func() {
		if err := cs.api.Start(); err != nil {
			cs.logger.Error("api server failed", err)
		}
	}()
}

// Stop cancels the sweep, stops both listeners and closes the live sockets.
func (cs *CentralSystem) Stop() {
	if cs.cancel != nil {
		cs.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cs.api.Shutdown(ctx); err != nil {
		cs.logger.Warn(fmt.Sprintf("api shutdown: %s", err))
	}
	if err := cs.server.Shutdown(ctx); err != nil {
		cs.logger.Warn(fmt.Sprintf("server shutdown: %s", err))
	}
	cs.registry.CloseAll()
}

func NewCentralSystem(conf *config.Config) (*CentralSystem, error) {
	cs := &CentralSystem{conf: conf}

	log.Println("set time zone to " + conf.TimeZone)
	location, err := time.LoadLocation(conf.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time zone initialization failed: %s", err)
	}

	var database internal.Database
	if conf.Mongo.Enabled {
		database, err = internal.NewMongoClient(conf)
		if err != nil {
			return nil, fmt.Errorf("mongodb setup failed: %s", err)
		}
		log.Println("mongodb is configured and enabled")
	} else {
		log.Println("database is disabled")
	}

	var messageService internal.MessageService
	if conf.Pusher.Enabled {
		messageService, err = pusher.NewPusher(conf)
		if err != nil {
			return nil, fmt.Errorf("pusher setup failed: %s", err)
		}
		log.Println("pusher service is configured and enabled")
	} else {
		log.Println("message pushing service is disabled")
	}

	// logger with database and push service for the message handling
	logService := internal.NewLogger(location)
	logService.SetDebugMode(conf.IsDebug)
	logService.SetDatabase(database)
	logService.SetMessageService(messageService)
	cs.logger = logService

	engine := auth.NewEngine(database, logService)

	var transactionStore session.TransactionStore = database
	if database == nil {
		log.Println("using in-memory transaction store")
		transactionStore = session.NewMemoryStore()
	}
	sessions := session.NewManager(transactionStore, logService)

	systemHandler := ocpp.NewSystemHandler(location, engine, sessions, logService)
	systemHandler.SetDatabase(database)
	systemHandler.SetParameters(conf.HeartbeatInterval, conf.DenyConcurrentTx, conf.AcceptUnknownChp && conf.IsDebug)
	cs.handler = systemHandler

	if conf.Telegram.Enabled {
		telegramBot, err := telegram.NewBot(conf.Telegram.ApiKey)
		if err != nil {
			return nil, fmt.Errorf("telegram bot setup failed: %s", err)
		}
		telegramBot.SetDatabase(database)
		telegramBot.SetLogger(logService)
		telegramBot.Start()
		systemHandler.SetEventHandler(telegramBot)
		log.Println("telegram bot is configured and enabled")
	}

	cs.adapters = map[types.ProtocolVersion]ocpp.Adapter{
		types.ProtocolVersion16: v16.NewAdapter(systemHandler, logService),
		types.ProtocolVersion20: v20.NewAdapter(systemHandler, logService),
		types.ProtocolVersion21: v21.NewAdapter(systemHandler, logService),
	}

	cs.registry = NewRegistry()
	cs.correlator = NewCorrelator(time.Duration(conf.Command.TimeoutSeconds)*time.Second, logService)

	// websocket listener
	wsServer := NewServer(conf, logService)
	wsServer.AddSupportedSubProtocol(types.SubProtocol16)
	wsServer.AddSupportedSubProtocol(types.SubProtocol20)
	wsServer.AddSupportedSubProtocol(types.SubProtocol21)
	wsServer.SetMessageHandler(cs.handleIncomingMessage)
	wsServer.SetConnectionHook(cs.onConnection)
	cs.server = wsServer

	if err = systemHandler.OnStart(); err != nil {
		return nil, err
	}

	// api server
	apiServer := NewServerApi(conf, logService)
	apiServer.SetRequestHandler(cs.HandleCommand)
	cs.api = apiServer

	return cs, nil
}
