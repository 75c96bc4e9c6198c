package sample

import "time"

// Delay classes. Intervals at or below DelayNormal select an OS delivery rate and
// are never throttled; anything above is a period in microseconds.
const (
	DelayFastest = 0
	DelayGame    = 1
	DelayUI      = 2
	DelayNormal  = 3

	DefaultInterval = DelayNormal
)

var classPeriods = [...]time.Duration{
	DelayFastest: 0,
	DelayGame:    20 * time.Millisecond,
	DelayUI:      60 * time.Millisecond,
	DelayNormal:  200 * time.Millisecond,
}

// Throttled reports whether interval asks for a minimum spacing between samples.
func Throttled(interval int) bool {
	return interval > DelayNormal
}

// Period returns the minimum spacing for a throttled interval, 0 otherwise.
func Period(interval int) time.Duration {
	if !Throttled(interval) {
		return 0
	}
	return time.Duration(interval) * time.Microsecond
}

// RateHint is the delivery period requested from the sensor subsystem.
// Negative intervals are treated as DelayFastest.
func RateHint(interval int) time.Duration {
	if interval < 0 {
		return 0
	}
	if Throttled(interval) {
		return Period(interval)
	}
	return classPeriods[interval]
}
