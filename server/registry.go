package server

import (
	"sync"

	"ocppcs/metrics/counters"
	"ocppcs/types"
)

// Registry tracks the live station connections. A reconnect replaces the
// previous entry; commands to an absent station fail immediately instead of
// queueing.
type Registry struct {
	mux         sync.Mutex
	connections map[string]*WebSocket
}

func NewRegistry() *Registry {
	return &Registry{connections: make(map[string]*WebSocket)}
}

func (r *Registry) Add(ws *WebSocket) {
	r.mux.Lock()
	r.connections[ws.ID()] = ws
	counters.ObserveConnections(len(r.connections))
	r.mux.Unlock()
}

// Remove drops the entry only when it still points at the same socket, so a
// reconnect racing a stale reader does not unregister the fresh connection.
func (r *Registry) Remove(ws *WebSocket) {
	r.mux.Lock()
	if current, ok := r.connections[ws.ID()]; ok && current == ws {
		delete(r.connections, ws.ID())
	}
	counters.ObserveConnections(len(r.connections))
	r.mux.Unlock()
}

func (r *Registry) Get(chargePointId string) (*WebSocket, bool) {
	r.mux.Lock()
	defer r.mux.Unlock()
	ws, ok := r.connections[chargePointId]
	return ws, ok
}

func (r *Registry) IsConnected(chargePointId string) bool {
	_, ok := r.Get(chargePointId)
	return ok
}

// Version reports the dialect of a live connection.
func (r *Registry) Version(chargePointId string) (types.ProtocolVersion, bool) {
	ws, ok := r.Get(chargePointId)
	if !ok {
		return "", false
	}
	return ws.Version(), true
}

func (r *Registry) Count() int {
	r.mux.Lock()
	defer r.mux.Unlock()
	return len(r.connections)
}

// CloseAll closes every live socket; the readers unregister themselves.
func (r *Registry) CloseAll() {
	r.mux.Lock()
	defer r.mux.Unlock()
	for _, ws := range r.connections {
		_ = ws.Close()
	}
}
