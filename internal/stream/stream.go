// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package stream binds sensor subscriptions to sinks, throttles them to a
// minimum interval and normalizes what the subsystem delivers.
package stream

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/motion_bridge/internal/sample"
	"github.com/relabs-tech/motion_bridge/internal/sensors"
)

// Option configures a Stream (and every stream a Registry creates).
type Option func(*Stream)

// WithClock replaces time.Now for gate decisions.
func WithClock(now func() time.Time) Option {
	return func(s *Stream) { s.now = now }
}

// WithObserver reports per-sample outcomes and state changes.
func WithObserver(o Observer) Option {
	return func(s *Stream) {
		if o != nil {
			s.obs = o
		}
	}
}

// Stream owns one sensor subscription and its interval gate.
type Stream struct {
	id        sample.SensorID
	subsystem sensors.Subsystem
	now       func() time.Time
	obs       Observer

	mu     sync.Mutex
	state  State
	gate   IntervalGate
	sink   Sink
	handle sensors.Subscription
	gen    uint64 // bumped on every (un)subscribe; stale callbacks carry an old value
}

func NewStream(id sample.SensorID, subsystem sensors.Subsystem, opts ...Option) *Stream {
	s := &Stream{
		id:        id,
		subsystem: subsystem,
		now:       time.Now,
		obs:       nopObserver{},
		gate:      NewIntervalGate(sample.DefaultInterval),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Stream) ID() sample.SensorID { return s.id }

func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Stream) Interval() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.Interval()
}

// Listen binds sink and subscribes with interval. Any previous subscription
// is torn down first. An unavailable sensor leaves the stream Inactive
// without error; it can be retried with UpdateInterval or another Listen.
func (s *Stream) Listen(sink Sink, interval int) {
	if sink == nil {
		log.Warnf("stream %s: listen without sink ignored", s.id)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.unsubscribeLocked()
	s.sink = sink
	s.gate.Configure(interval)
	s.subscribeLocked()
}

// Cancel unsubscribes and releases the sink. Safe to call in any state.
func (s *Stream) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.unsubscribeLocked()
	s.sink = nil
	s.setStateLocked(Unbound)
}

// UpdateInterval reconfigures the gate. A bound stream resubscribes, since
// the subsystem's delivery rate follows the interval too.
func (s *Stream) UpdateInterval(interval int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gate.Configure(interval)
	if s.sink == nil {
		return
	}
	s.unsubscribeLocked()
	s.subscribeLocked()
}

func (s *Stream) subscribeLocked() {
	if !s.subsystem.Available(s.id) {
		log.Debugf("stream %s: sensor unavailable, staying inactive", s.id)
		s.setStateLocked(Inactive)
		return
	}

	s.gen++
	hint := sample.RateHint(s.gate.Interval())
	handle, err := s.subsystem.Register(s.id, hint, &binding{stream: s, gen: s.gen})
	if err != nil {
		log.Warnf("stream %s: register: %v", s.id, err)
		s.setStateLocked(Inactive)
		return
	}

	s.handle = handle
	s.gate.Reset()
	s.setStateLocked(Active)
	log.Debugf("stream %s: subscribed (interval=%d hint=%v)", s.id, s.gate.Interval(), hint)
}

func (s *Stream) unsubscribeLocked() {
	s.gen++
	if s.handle == nil {
		return
	}
	s.handle.Unregister()
	s.handle = nil
	s.setStateLocked(Inactive)
	log.Debugf("stream %s: unsubscribed", s.id)
}

func (s *Stream) setStateLocked(st State) {
	if s.state == st {
		return
	}
	s.state = st
	s.obs.StateChanged(s.id, st)
}

// deliver runs on the subsystem's delivery goroutine.
func (s *Stream) deliver(gen uint64, raw *sample.Raw) {
	s.mu.Lock()
	// Stale callbacks are discarded before they count as anything.
	if gen != s.gen || s.state != Active || s.sink == nil {
		s.mu.Unlock()
		return
	}
	out, ok := sample.Normalize(s.id, raw)
	if !ok {
		s.mu.Unlock()
		s.obs.Dropped(s.id)
		return
	}
	now := s.now()
	if !s.gate.ShouldForward(now) {
		s.mu.Unlock()
		s.obs.Suppressed(s.id)
		return
	}
	s.gate.MarkForwarded(now)
	sink := s.sink
	s.mu.Unlock()

	sink.Emit(out)
	s.obs.Forwarded(s.id)
}

// binding is the handler for one subscription generation of a stream.
type binding struct {
	stream *Stream
	gen    uint64
}

func (b *binding) OnSample(raw *sample.Raw) {
	b.stream.deliver(b.gen, raw)
}

// OnAccuracyChanged carries nothing to forward.
func (b *binding) OnAccuracyChanged(sample.SensorID, int) {}
