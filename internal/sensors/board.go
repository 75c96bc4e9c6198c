package sensors

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/relabs-tech/motion_bridge/internal/sample"
)

// Board routes each sensor id to the subsystem that owns it, so a host with
// an IMU, a barometer and a GPS receiver looks like one sensor subsystem.
type Board struct {
	mu     sync.RWMutex
	routes map[sample.SensorID]Subsystem
}

func NewBoard() *Board {
	return &Board{routes: make(map[sample.SensorID]Subsystem)}
}

// Attach routes ids to s, replacing any previous owner.
func (b *Board) Attach(s Subsystem, ids ...sample.SensorID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range ids {
		b.routes[id] = s
	}
}

// IDs lists the routed sensor ids in ascending order.
func (b *Board) IDs() []sample.SensorID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]sample.SensorID, 0, len(b.routes))
	for id := range b.routes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (b *Board) route(id sample.SensorID) Subsystem {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.routes[id]
}

func (b *Board) Available(id sample.SensorID) bool {
	s := b.route(id)
	return s != nil && s.Available(id)
}

func (b *Board) Register(id sample.SensorID, hint time.Duration, h Handler) (Subscription, error) {
	s := b.route(id)
	if s == nil {
		return nil, fmt.Errorf("board %s: %w", id.Name(), ErrUnavailable)
	}
	return s.Register(id, hint, h)
}
