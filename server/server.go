package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"ocppcs/internal"
	"ocppcs/internal/config"
	"ocppcs/types"
	"ocppcs/utility"
)

const (
	wsEndpoint = "/ws/:id"
)

type Server struct {
	conf           *config.Config
	httpServer     *http.Server
	upgrader       websocket.Upgrader
	messageHandler func(ws *WebSocket, data []byte) error
	connectionHook func(ws *WebSocket, connected bool)
	logger         internal.LogHandler
}

// WebSocket is one station connection. The negotiated subprotocol fixes the
// dialect for its whole lifetime; writes are serialized so the dispatcher and
// the command sender cannot interleave frames.
type WebSocket struct {
	conn     *websocket.Conn
	id       string
	version  types.ProtocolVersion
	writeMux sync.Mutex
}

func (ws *WebSocket) ID() string {
	return ws.id
}

func (ws *WebSocket) Version() types.ProtocolVersion {
	return ws.version
}

func (ws *WebSocket) Send(data []byte) error {
	ws.writeMux.Lock()
	defer ws.writeMux.Unlock()
	return ws.conn.WriteMessage(websocket.TextMessage, data)
}

func (ws *WebSocket) Close() error {
	return ws.conn.Close()
}

func NewServer(conf *config.Config, logger internal.LogHandler) *Server {
	server := Server{
		conf:     conf,
		logger:   logger,
		upgrader: websocket.Upgrader{Subprotocols: []string{}},
	}
	// register itself as a router for httpServer handler
	router := httprouter.New()
	server.Register(router)
	server.httpServer = &http.Server{
		Handler: router,
	}
	return &server
}

func (s *Server) AddSupportedSubProtocol(proto string) {
	for _, sub := range s.upgrader.Subprotocols {
		if sub == proto {
			return
		}
	}
	s.upgrader.Subprotocols = append(s.upgrader.Subprotocols, proto)
}

func (s *Server) SetMessageHandler(handler func(ws *WebSocket, data []byte) error) {
	s.messageHandler = handler
}

// SetConnectionHook is called with connected=true after the upgrade and with
// connected=false when the reader exits.
func (s *Server) SetConnectionHook(hook func(ws *WebSocket, connected bool)) {
	s.connectionHook = hook
}

func (s *Server) Register(router *httprouter.Router) {
	router.GET(wsEndpoint, s.handleWsRequest)
}

func (s *Server) handleWsRequest(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := params.ByName("id")
	s.logger.Debug(fmt.Sprintf("connection initiated from remote %s", r.RemoteAddr))

	s.upgrader.CheckOrigin = func(r *http.Request) bool {
		return true
	}

	clientSubProto := websocket.Subprotocols(r)
	requestedProto := ""
	for _, proto := range clientSubProto {
		if len(s.upgrader.Subprotocols) == 0 {
			// supporting all protocols
			requestedProto = proto
			break
		}
		if utility.Contains(s.upgrader.Subprotocols, proto) {
			requestedProto = proto
			break
		}
	}
	responseHeader := http.Header{}
	if requestedProto != "" {
		responseHeader.Add("Sec-WebSocket-Protocol", requestedProto)
	}

	conn, err := s.upgrader.Upgrade(w, r, responseHeader)
	if err != nil {
		s.logger.Error("upgrade failed: ", err)
		return
	}

	s.logger.Debug(fmt.Sprintf("upgraded socket for %s with subprotocol %q", id, requestedProto))
	ws := WebSocket{
		conn:    conn,
		id:      id,
		version: types.VersionFromSubProtocol(requestedProto),
	}
	if s.connectionHook != nil {
		s.connectionHook(&ws, true)
	}

	go s.messageReader(&ws)
}

func (s *Server) messageReader(ws *WebSocket) {
	conn := ws.conn
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, 3001) {
				s.logger.Debug(fmt.Sprintf("id %s leaving session", ws.id))
			} else {
				s.logger.Debug(fmt.Sprintf("id %s is closing session %s", ws.id, err))
			}
			err = conn.Close()
			if err != nil {
				s.logger.Warn(fmt.Sprintf("error while closing socket %s %s", ws.id, err))
			}
			if s.connectionHook != nil {
				s.connectionHook(ws, false)
			}
			return
		}
		s.logger.RawDataEvent("IN", string(message))
		if s.messageHandler != nil {
			err = s.messageHandler(ws, message)
			if err != nil {
				s.logger.Error(fmt.Sprintf("handling message from %s", ws.id), err)
				continue
			}
		}
	}
}

func (s *Server) Start() error {
	if s.conf == nil {
		return utility.Err("configuration not loaded")
	}
	serverAddress := fmt.Sprintf("%s:%s", s.conf.Listen.BindIP, s.conf.Listen.Port)
	s.logger.Debug(fmt.Sprintf("starting server on %s", serverAddress))
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}
	if s.conf.Listen.TLS {
		s.logger.Debug("starting https TLS server")
		err = s.httpServer.ServeTLS(listener, s.conf.Listen.CertFile, s.conf.Listen.KeyFile)
	} else {
		s.logger.Debug("starting http server")
		err = s.httpServer.Serve(listener)
	}
	return err
}

// Shutdown stops accepting new connections; live sockets are closed through
// the registry.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
