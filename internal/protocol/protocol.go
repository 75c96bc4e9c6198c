// Package protocol decodes stream requests arriving over any transport and
// routes them to a registry.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/relabs-tech/motion_bridge/internal/sample"
	"github.com/relabs-tech/motion_bridge/internal/stream"
)

const (
	MethodListen         = "listen"
	MethodCancel         = "cancel"
	MethodUpdateInterval = "updateInterval"
)

var (
	ErrUnknownMethod   = errors.New("unknown method")
	ErrMissingSensorID = errors.New("missing sensorId")
	ErrMissingInterval = errors.New("missing interval")
)

// Request is one logical call: listen, cancel or updateInterval.
type Request struct {
	Method   string `json:"method"`
	SensorID *int   `json:"sensorId"`
	Interval *int   `json:"interval,omitempty"`
}

// Router is what requests are dispatched to; *stream.Registry satisfies it.
type Router interface {
	Listen(id sample.SensorID, interval int, sink stream.Sink)
	Stop(id sample.SensorID)
	UpdateInterval(id sample.SensorID, interval int)
}

// Decode parses and validates a JSON request.
func Decode(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

func (r Request) Validate() error {
	switch r.Method {
	case MethodListen, MethodCancel, MethodUpdateInterval:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMethod, r.Method)
	}
	if r.SensorID == nil {
		return fmt.Errorf("%s: %w", r.Method, ErrMissingSensorID)
	}
	if r.Method == MethodUpdateInterval && r.Interval == nil {
		return fmt.Errorf("%s: %w", r.Method, ErrMissingInterval)
	}
	return nil
}

// ID returns the requested sensor id; Validate must have passed.
func (r Request) ID() sample.SensorID {
	return sample.SensorID(*r.SensorID)
}

// IntervalOr returns the requested interval, or def when none was given.
func (r Request) IntervalOr(def int) int {
	if r.Interval == nil {
		return def
	}
	return *r.Interval
}

// Dispatch applies req to router; sink receives the stream for listen.
// A listen without an interval uses defaultInterval.
func Dispatch(router Router, req Request, sink stream.Sink, defaultInterval int) error {
	if err := req.Validate(); err != nil {
		return err
	}
	switch req.Method {
	case MethodListen:
		router.Listen(req.ID(), req.IntervalOr(defaultInterval), sink)
	case MethodCancel:
		router.Stop(req.ID())
	case MethodUpdateInterval:
		router.UpdateInterval(req.ID(), *req.Interval)
	}
	return nil
}

// NewListen builds a listen request, mostly for clients and tests.
func NewListen(id sample.SensorID, interval int) Request {
	sid, iv := int(id), interval
	return Request{Method: MethodListen, SensorID: &sid, Interval: &iv}
}
