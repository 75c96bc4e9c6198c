// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors holds the sensor subsystems a stream can register with:
// the board's SPI/serial hardware, and a synthetic source for development.
package sensors

import (
	"errors"
	"time"

	"github.com/relabs-tech/motion_bridge/internal/sample"
)

// ErrUnavailable is returned by Register when the sensor has no backing device.
var ErrUnavailable = errors.New("sensor unavailable")

// Handler receives callbacks for one subscription. Calls for a single
// subscription are serialized on a goroutine owned by the subsystem.
type Handler interface {
	OnSample(raw *sample.Raw)
	OnAccuracyChanged(id sample.SensorID, accuracy int)
}

// Subscription is the handle returned by Register.
// Unregister stops delivery; it does not wait for a callback already running.
type Subscription interface {
	Unregister()
}

// Subsystem is the device side of the bridge: it knows which sensors exist and
// pushes their samples to registered handlers at roughly the hinted period.
// Register must not call h before returning.
type Subsystem interface {
	Available(id sample.SensorID) bool
	Register(id sample.SensorID, hint time.Duration, h Handler) (Subscription, error)
}
