// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/relabs-tech/motion_bridge/internal/sample"
)

const (
	standardGravity = 9.80665
	degToRad        = math.Pi / 180.0
)

// MockSource is a Subsystem that generates smooth changing values, for
// development without hardware and for exercising the bridge end to end.
type MockSource struct {
	start time.Time

	mu        sync.RWMutex
	available map[sample.SensorID]bool
}

// NewMockSource creates a mock subsystem exposing ids. With no ids every
// known sensor is available.
func NewMockSource(ids ...sample.SensorID) *MockSource {
	if len(ids) == 0 {
		ids = sample.Known()
	}
	m := &MockSource{
		start:     time.Now(),
		available: make(map[sample.SensorID]bool, len(ids)),
	}
	for _, id := range ids {
		m.available[id] = true
	}
	return m
}

// SetAvailable plugs or unplugs a simulated sensor.
func (m *MockSource) SetAvailable(id sample.SensorID, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available[id] = ok
}

func (m *MockSource) Available(id sample.SensorID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.available[id]
}

func (m *MockSource) Register(id sample.SensorID, hint time.Duration, h Handler) (Subscription, error) {
	if !m.Available(id) {
		return nil, fmt.Errorf("mock %s: %w", id.Name(), ErrUnavailable)
	}
	read := func() (*sample.Raw, error) {
		return m.Read(id, time.Now())
	}
	return startPolling("mock "+id.Name(), hint, read, h), nil
}

// Read synthesizes the sample id would report at instant t.
func (m *MockSource) Read(id sample.SensorID, t time.Time) (*sample.Raw, error) {
	elapsed := t.Sub(m.start).Seconds()

	roll := 20 * math.Sin(elapsed) * degToRad
	pitch := 15 * math.Cos(elapsed*0.7) * degToRad
	yaw := math.Mod(elapsed*30, 360) * degToRad

	var values []float64
	switch id {
	case sample.Accelerometer:
		values = []float64{
			-standardGravity * math.Sin(pitch),
			standardGravity * math.Sin(roll) * math.Cos(pitch),
			standardGravity * math.Cos(roll) * math.Cos(pitch),
		}
	case sample.Gyroscope:
		values = []float64{
			20 * math.Cos(elapsed) * degToRad,
			-15 * 0.7 * math.Sin(elapsed*0.7) * degToRad,
			30 * degToRad,
		}
	case sample.MagneticField:
		values = []float64{45 * math.Cos(yaw), -45 * math.Sin(yaw), -20}
	case sample.Pressure:
		values = []float64{1013.25 + 0.5*math.Sin(elapsed/10)}
	case sample.AmbientTemperature:
		values = []float64{21 + math.Sin(elapsed/60)}
	case sample.Location:
		values = []float64{40.4168 + 0.0001*math.Sin(elapsed/30), -3.7038 + 0.0001*math.Cos(elapsed/30), 2.5, math.Mod(elapsed, 360)}
	default:
		return nil, fmt.Errorf("mock: no generator for %s", id)
	}

	return &sample.Raw{
		SensorID:       id,
		Values:         values,
		TimestampNanos: t.UnixNano(),
	}, nil
}
