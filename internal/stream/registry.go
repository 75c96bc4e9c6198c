package stream

import (
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/motion_bridge/internal/sample"
	"github.com/relabs-tech/motion_bridge/internal/sensors"
)

// Registry routes requests to one Stream per sensor id. It never holds two
// subscriptions for the same id.
type Registry struct {
	subsystem sensors.Subsystem
	opts      []Option

	mu      sync.Mutex
	streams map[sample.SensorID]*Stream
	owned   map[sample.SensorID]*ChannelSink // sinks created by Start
	closed  bool
}

func NewRegistry(subsystem sensors.Subsystem, opts ...Option) *Registry {
	return &Registry{
		subsystem: subsystem,
		opts:      opts,
		streams:   make(map[sample.SensorID]*Stream),
		owned:     make(map[sample.SensorID]*ChannelSink),
	}
}

// Listen binds sink to the stream for id, creating it on first use.
func (r *Registry) Listen(id sample.SensorID, interval int, sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listenLocked(id, interval, sink)
}

func (r *Registry) listenLocked(id sample.SensorID, interval int, sink Sink) {
	if r.closed {
		log.Debugf("registry: listen %s after close ignored", id)
		return
	}
	if sink == nil {
		log.Warnf("registry: listen %s without sink ignored", id)
		return
	}
	s, ok := r.streams[id]
	if !ok {
		s = NewStream(id, r.subsystem, r.opts...)
		r.streams[id] = s
	}
	s.Listen(sink, interval)
	r.releaseOwnedLocked(id, sink)
}

// Start listens on id with a registry-owned channel sink and returns it as
// the handle to consume. The channel closes on Stop, Close or the next Start.
func (r *Registry) Start(id sample.SensorID, interval int, buffer int) *ChannelSink {
	r.mu.Lock()
	defer r.mu.Unlock()

	sink := NewChannelSink(buffer)
	if r.closed {
		sink.Close()
		return sink
	}
	r.listenLocked(id, interval, sink)
	r.owned[id] = sink
	return sink
}

// Stop cancels the stream for id and forgets it. Unknown ids are ignored.
func (r *Registry) Stop(id sample.SensorID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.streams[id]; ok {
		s.Cancel()
		delete(r.streams, id)
	}
	r.releaseOwnedLocked(id, nil)
}

// UpdateInterval reconfigures an existing stream; it never creates one.
func (r *Registry) UpdateInterval(id sample.SensorID, interval int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.streams[id]; ok {
		s.UpdateInterval(interval)
	}
}

// State reports Unbound for ids without a stream.
func (r *Registry) State(id sample.SensorID) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.streams[id]; ok {
		return s.State()
	}
	return Unbound
}

// Status describes one registered stream.
type Status struct {
	SensorID sample.SensorID `json:"sensorId"`
	Name     string          `json:"name"`
	State    string          `json:"state"`
	Interval int             `json:"interval"`
}

// Sensors snapshots every registered stream, ordered by id.
func (r *Registry) Sensors() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Status, 0, len(r.streams))
	for id, s := range r.streams {
		out = append(out, Status{
			SensorID: id,
			Name:     id.Name(),
			State:    s.State().String(),
			Interval: s.Interval(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SensorID < out[j].SensorID })
	return out
}

// Close cancels every stream. Later requests are ignored.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.streams {
		s.Cancel()
		delete(r.streams, id)
		r.releaseOwnedLocked(id, nil)
	}
	r.closed = true
}

// releaseOwnedLocked closes the owned sink for id unless it is still in use.
func (r *Registry) releaseOwnedLocked(id sample.SensorID, current Sink) {
	owned, ok := r.owned[id]
	if !ok {
		return
	}
	if cs, isOwned := current.(*ChannelSink); isOwned && cs == owned {
		return
	}
	owned.Close()
	delete(r.owned, id)
}
