package stream

import (
	"time"

	"github.com/relabs-tech/motion_bridge/internal/sample"
)

// IntervalGate decides whether enough time has passed since the last
// forwarded sample. It is a pass/suppress filter: suppressed samples are
// dropped, never queued or merged.
//
// The zero value forwards everything.
type IntervalGate struct {
	interval  int           // as configured: delay class or microseconds
	period    time.Duration // 0 when unthrottled
	last      time.Time
	forwarded bool
}

func NewIntervalGate(interval int) IntervalGate {
	var g IntervalGate
	g.Configure(interval)
	return g
}

// Configure sets a new interval and forgets the last forwarded instant.
func (g *IntervalGate) Configure(interval int) {
	g.interval = interval
	g.period = sample.Period(interval)
	g.Reset()
}

// Reset forgets the last forwarded instant, so the next sample always passes.
func (g *IntervalGate) Reset() {
	g.last = time.Time{}
	g.forwarded = false
}

func (g *IntervalGate) Interval() int { return g.interval }

func (g *IntervalGate) Throttled() bool { return g.period > 0 }

// ShouldForward reports whether a sample arriving at now may pass.
func (g *IntervalGate) ShouldForward(now time.Time) bool {
	if g.period <= 0 || !g.forwarded {
		return true
	}
	return now.Sub(g.last) >= g.period
}

// MarkForwarded records that a sample arriving at now was forwarded.
func (g *IntervalGate) MarkForwarded(now time.Time) {
	g.last = now
	g.forwarded = true
}
