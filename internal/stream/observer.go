package stream

import "github.com/relabs-tech/motion_bridge/internal/sample"

// State is the lifecycle state of a stream.
type State int

const (
	// Unbound streams have no sink.
	Unbound State = iota
	// Inactive streams hold a sink but no subscription: the sensor was
	// unavailable or refused registration.
	Inactive
	// Active streams are subscribed and forwarding.
	Active
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Inactive:
		return "inactive"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// Observer is told what happens to every delivered sample.
type Observer interface {
	Forwarded(id sample.SensorID)
	Suppressed(id sample.SensorID)
	Dropped(id sample.SensorID)
	StateChanged(id sample.SensorID, st State)
}

type nopObserver struct{}

func (nopObserver) Forwarded(sample.SensorID)           {}
func (nopObserver) Suppressed(sample.SensorID)          {}
func (nopObserver) Dropped(sample.SensorID)             {}
func (nopObserver) StateChanged(sample.SensorID, State) {}
