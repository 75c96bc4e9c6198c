// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sample

import (
	"math"
	"time"
)

// SensorSample is one normalized reading, the only payload a stream emits.
type SensorSample struct {
	SensorID  SensorID  `json:"sensorId"`
	Timestamp int64     `json:"timestamp"` // milliseconds
	Values    []float64 `json:"data"`      // fixed arity per sensor id
	Accuracy  int       `json:"accuracy"`  // 0 when the source has no notion of accuracy
}

// Raw is a sample as delivered by a sensor subsystem, before normalization.
type Raw struct {
	SensorID       SensorID
	Values         []float64
	TimestampNanos int64
	Accuracy       int
}

// Normalize converts a raw sample delivered for sensor id into a SensorSample.
// ok is false for nil, empty, wrongly sized or non-finite payloads; callers drop those.
func Normalize(id SensorID, raw *Raw) (SensorSample, bool) {
	if raw == nil || len(raw.Values) == 0 {
		return SensorSample{}, false
	}
	if n := id.Arity(); n > 0 && len(raw.Values) != n {
		return SensorSample{}, false
	}

	values := make([]float64, len(raw.Values))
	for i, v := range raw.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return SensorSample{}, false
		}
		values[i] = v
	}

	return SensorSample{
		SensorID:  id,
		Timestamp: time.Duration(raw.TimestampNanos).Milliseconds(),
		Values:    values,
		Accuracy:  raw.Accuracy,
	}, true
}
