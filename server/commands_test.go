package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ocppcs/wire"
)

type nopLogger struct{}

func (l *nopLogger) FeatureEvent(feature, id, text string) {}
func (l *nopLogger) Debug(text string)                     {}
func (l *nopLogger) Warn(text string)                      {}
func (l *nopLogger) Error(text string, err error)          {}
func (l *nopLogger) RawDataEvent(direction, data string)   {}

func TestCorrelator_ResolveOnce(t *testing.T) {
	correlator := NewCorrelator(time.Minute, &nopLogger{})
	pending := correlator.Add("CP1", "Reset", json.RawMessage(`{}`))
	assert.Equal(t, 1, correlator.Count())

	resolved, ok := correlator.Resolve(pending.UniqueId)
	assert.True(t, ok)
	assert.Equal(t, pending, resolved)
	assert.Equal(t, 0, correlator.Count())

	// the second resolution of the same id misses
	_, ok = correlator.Resolve(pending.UniqueId)
	assert.False(t, ok)
}

func TestCorrelator_UniqueIds(t *testing.T) {
	correlator := NewCorrelator(time.Minute, &nopLogger{})
	first := correlator.Add("CP1", "Reset", nil)
	second := correlator.Add("CP1", "Reset", nil)
	assert.NotEqual(t, first.UniqueId, second.UniqueId)
}

func TestCorrelator_SweepReleasesStale(t *testing.T) {
	correlator := NewCorrelator(10*time.Millisecond, &nopLogger{})
	pending := correlator.Add("CP1", "Reset", nil)

	time.Sleep(20 * time.Millisecond)
	correlator.sweepOnce()

	assert.Equal(t, 0, correlator.Count())
	select {
	case answer := <-pending.Response:
		assert.Nil(t, answer)
	default:
		t.Fatal("stale command was not released")
	}

	// the swept command cannot be resolved by a late answer
	_, ok := correlator.Resolve(pending.UniqueId)
	assert.False(t, ok)
}

func TestCorrelator_SweepKeepsFresh(t *testing.T) {
	correlator := NewCorrelator(time.Minute, &nopLogger{})
	correlator.Add("CP1", "Reset", nil)
	correlator.sweepOnce()
	assert.Equal(t, 1, correlator.Count())
}

func TestCorrelator_SweepStopsOnCancel(t *testing.T) {
	correlator := NewCorrelator(time.Minute, &nopLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		correlator.Sweep(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep did not stop")
	}
}

func TestCorrelator_AnswerAfterForgetIsDropped(t *testing.T) {
	correlator := NewCorrelator(time.Minute, &nopLogger{})
	pending := correlator.Add("CP1", "Reset", nil)
	correlator.Forget(pending.UniqueId)

	_, ok := correlator.Resolve(pending.UniqueId)
	assert.False(t, ok)
}

func TestPendingResponseIsBuffered(t *testing.T) {
	correlator := NewCorrelator(time.Minute, &nopLogger{})
	pending := correlator.Add("CP1", "Reset", nil)

	// the dispatcher must not block even if nobody is waiting anymore
	pending.Response <- &wire.Message{Kind: wire.KindCallResult, UniqueId: pending.UniqueId}
}
