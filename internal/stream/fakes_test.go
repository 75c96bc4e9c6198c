package stream

import (
	"fmt"
	"sync"
	"time"

	"github.com/relabs-tech/motion_bridge/internal/sample"
	"github.com/relabs-tech/motion_bridge/internal/sensors"
)

// fakeSubsystem records registrations; tests push samples by hand.
type fakeSubsystem struct {
	mu          sync.Mutex
	available   map[sample.SensorID]bool
	refuse      bool
	subs        []*fakeSub
	registerLog []time.Duration
}

type fakeSub struct {
	id     sample.SensorID
	hint   time.Duration
	h      sensors.Handler
	active bool
}

func (f *fakeSub) Unregister() { f.active = false }

func newFakeSubsystem(ids ...sample.SensorID) *fakeSubsystem {
	f := &fakeSubsystem{available: make(map[sample.SensorID]bool)}
	for _, id := range ids {
		f.available[id] = true
	}
	return f
}

func (f *fakeSubsystem) setAvailable(id sample.SensorID, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.available[id] = ok
}

func (f *fakeSubsystem) Available(id sample.SensorID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available[id]
}

func (f *fakeSubsystem) Register(id sample.SensorID, hint time.Duration, h sensors.Handler) (sensors.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refuse {
		return nil, fmt.Errorf("fake: refused")
	}
	sub := &fakeSub{id: id, hint: hint, h: h, active: true}
	f.subs = append(f.subs, sub)
	f.registerLog = append(f.registerLog, hint)
	return sub, nil
}

// activeSubs counts subscriptions for id that were never unregistered.
func (f *fakeSubsystem) activeSubs(id sample.SensorID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.subs {
		if s.id == id && s.active {
			n++
		}
	}
	return n
}

// latest returns the newest subscription for id, active or not.
func (f *fakeSubsystem) latest(id sample.SensorID) *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.subs) - 1; i >= 0; i-- {
		if f.subs[i].id == id {
			return f.subs[i]
		}
	}
	return nil
}

func (f *fakeSubsystem) registrations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// push delivers a 3-axis sample through sub, even if it was unregistered,
// the way a late OS callback would.
func (s *fakeSub) push(ts int64) {
	s.h.OnSample(&sample.Raw{SensorID: s.id, Values: []float64{1, 2, 3}, TimestampNanos: ts})
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(offset time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(offset)
}

type collectSink struct {
	mu  sync.Mutex
	got []sample.SensorSample
}

func (c *collectSink) Emit(s sample.SensorSample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, s)
}

func (c *collectSink) timestamps() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int64, len(c.got))
	for i, s := range c.got {
		out[i] = s.Timestamp
	}
	return out
}

func (c *collectSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.got)
}
