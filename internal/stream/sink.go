package stream

import (
	"sync"
	"sync/atomic"

	"github.com/relabs-tech/motion_bridge/internal/sample"
)

// Sink receives forwarded samples. Emit is called from the subsystem's
// delivery goroutine and must not block for long.
type Sink interface {
	Emit(s sample.SensorSample)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(s sample.SensorSample)

func (f SinkFunc) Emit(s sample.SensorSample) { f(s) }

type teeSink []Sink

func (t teeSink) Emit(s sample.SensorSample) {
	for _, sink := range t {
		sink.Emit(s)
	}
}

// Tee fans one stream out to several sinks. Nil sinks are skipped.
func Tee(sinks ...Sink) Sink {
	out := make(teeSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

// ChannelSink hands samples to a consumer goroutine through a buffered
// channel. A full buffer drops the sample instead of blocking delivery.
type ChannelSink struct {
	mu      sync.Mutex
	ch      chan sample.SensorSample
	closed  bool
	dropped atomic.Uint64
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelSink{ch: make(chan sample.SensorSample, buffer)}
}

// Events is closed once Close is called.
func (c *ChannelSink) Events() <-chan sample.SensorSample {
	return c.ch
}

func (c *ChannelSink) Emit(s sample.SensorSample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- s:
	default:
		c.dropped.Add(1)
	}
}

// Dropped counts samples lost to a full buffer.
func (c *ChannelSink) Dropped() uint64 {
	return c.dropped.Load()
}

// Close is idempotent; emits after Close are discarded.
func (c *ChannelSink) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}
