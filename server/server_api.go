package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"ocppcs/internal"
	"ocppcs/internal/config"
	"ocppcs/ocpp"
	"ocppcs/utility"
)

const (
	apiEndpoint = "/api"
)

var (
	ErrNotConnected   = utility.Err("charge point is not connected")
	ErrCommandTimeout = utility.Err("timeout waiting for command response")
)

// Api accepts operator commands over http and relays them to a station
// through the central system. Stations that are offline answer 503, stations
// that stay silent answer 504.
type Api struct {
	conf           *config.Config
	httpServer     *http.Server
	requestHandler func(command ocpp.Command) (json.RawMessage, error)
	logger         internal.LogHandler
}

func NewServerApi(conf *config.Config, logger internal.LogHandler) *Api {
	server := Api{
		conf:   conf,
		logger: logger,
	}
	server.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%s", conf.Api.BindIP, conf.Api.Port),
		Handler: http.HandlerFunc(server.handleRoot),
	}
	return &server
}

func (s *Api) Start() error {
	var err error
	if s.conf.Api.TLS {
		cert, err := tls.LoadX509KeyPair(s.conf.Api.CertFile, s.conf.Api.KeyFile)
		if err != nil {
			return fmt.Errorf("api: failed to load certificate: %v", err)
		}
		s.httpServer.TLSConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{cert},
		}
		err = s.httpServer.ListenAndServeTLS("", "")
	} else {
		err = s.httpServer.ListenAndServe()
	}
	return err
}

func (s *Api) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Api) SetRequestHandler(handler func(command ocpp.Command) (json.RawMessage, error)) {
	s.requestHandler = handler
}

// handle requests to the root path
func (s *Api) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.logger.Warn(fmt.Sprintf("api: invalid method %s from %s", r.Method, r.RemoteAddr))
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path != apiEndpoint {
		s.logger.Warn(fmt.Sprintf("api: invalid path %s from %s", r.URL.Path, r.RemoteAddr))
		w.WriteHeader(http.StatusNotFound)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("api: error reading body from %s: %s", r.RemoteAddr, err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var command ocpp.Command
	if err = json.Unmarshal(body, &command); err != nil {
		s.logger.Warn(fmt.Sprintf("api: error parsing command from %s: %s", r.RemoteAddr, err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if command.FeatureName == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	payload, err := s.requestHandler(command)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("api: command %s to %s failed: %s", command.FeatureName, command.ChargePointId, err))
		switch {
		case errors.Is(err, ErrNotConnected):
			w.WriteHeader(http.StatusServiceUnavailable)
		case errors.Is(err, ErrCommandTimeout):
			w.WriteHeader(http.StatusGatewayTimeout)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
		_, _ = w.Write([]byte(err.Error()))
		return
	}
	if len(payload) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Add("Content-Type", "application/json; charset=utf-8")
	if _, err = w.Write(payload); err != nil {
		s.logger.Error("api: writing command response", err)
	}
}
