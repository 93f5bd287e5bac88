package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ocppcs/internal"
	"ocppcs/utility"
	"ocppcs/wire"
)

// PendingCommand is one server-to-station Call awaiting its answer. The
// response channel is buffered so the dispatcher never blocks on a waiter
// that already gave up.
type PendingCommand struct {
	UniqueId      string
	ChargePointId string
	Action        string
	Payload       json.RawMessage
	Response      chan *wire.Message
	created       time.Time
}

// Correlator matches station answers to the Calls this server sent. Every
// pending command is released exactly once: either by the matching answer,
// or by the sweep after it went stale.
type Correlator struct {
	mux     sync.Mutex
	pending map[string]*PendingCommand
	ttl     time.Duration
	logger  internal.LogHandler
}

func NewCorrelator(ttl time.Duration, logger internal.LogHandler) *Correlator {
	return &Correlator{
		pending: make(map[string]*PendingCommand),
		ttl:     ttl,
		logger:  logger,
	}
}

// Add registers a new pending command and returns it with a fresh unique id.
func (c *Correlator) Add(chargePointId, action string, payload json.RawMessage) *PendingCommand {
	command := &PendingCommand{
		UniqueId:      utility.NewUUID(),
		ChargePointId: chargePointId,
		Action:        action,
		Payload:       payload,
		Response:      make(chan *wire.Message, 1),
		created:       time.Now(),
	}
	c.mux.Lock()
	c.pending[command.UniqueId] = command
	c.mux.Unlock()
	return command
}

// Resolve removes and returns the pending command matching the answer's
// unique id. The second call with the same id returns false.
func (c *Correlator) Resolve(uniqueId string) (*PendingCommand, bool) {
	c.mux.Lock()
	defer c.mux.Unlock()
	command, ok := c.pending[uniqueId]
	if ok {
		delete(c.pending, uniqueId)
	}
	return command, ok
}

// Forget drops a pending command without resolving it, used by waiters that
// timed out on their own.
func (c *Correlator) Forget(uniqueId string) {
	c.mux.Lock()
	delete(c.pending, uniqueId)
	c.mux.Unlock()
}

func (c *Correlator) Count() int {
	c.mux.Lock()
	defer c.mux.Unlock()
	return len(c.pending)
}

// Sweep runs the periodic cleanup until the context is cancelled. Stale
// commands get a nil response so their waiters unblock.
func (c *Correlator) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweepOnce()
		}
	}
}

func (c *Correlator) sweepOnce() {
	deadline := time.Now().Add(-c.ttl)
	c.mux.Lock()
	var stale []*PendingCommand
	for id, command := range c.pending {
		if command.created.Before(deadline) {
			stale = append(stale, command)
			delete(c.pending, id)
		}
	}
	c.mux.Unlock()
	for _, command := range stale {
		c.logger.Warn(fmt.Sprintf("no answer from %s for %s, dropping command %s",
			command.ChargePointId, command.Action, command.UniqueId))
		command.Response <- nil
	}
}
