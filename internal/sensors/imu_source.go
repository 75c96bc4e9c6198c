// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/motion_bridge/internal/sample"
)

// MPU9250 power-on full scale ranges: ±2g and ±250°/s.
const (
	accelLSBPerG   = 16384.0
	gyroLSBPerDegS = 131.0
)

// IMUSource exposes an MPU9250 on SPI as accelerometer and gyroscope sensors.
// The magnetometer is not reachable through the upstream driver and is
// therefore reported unavailable.
type IMUSource struct {
	name string

	mu  sync.Mutex // one SPI transaction at a time across subscriptions
	imu *mpu9250.MPU9250
}

// NewIMUSource initializes the MPU9250 behind spiDev with chip select csPin.
func NewIMUSource(spiDev, csPin string) (*IMUSource, error) {
	name := "imu " + spiDev
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%s: periph host init: %w", name, err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("%s: CS pin %q not found", name, csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("%s: SPI transport: %w", name, err)
	}

	imu, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("%s: device creation: %w", name, err)
	}

	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("%s: initialization: %w", name, err)
	}

	if _, err := imu.SelfTest(); err != nil {
		log.Warnf("%s: self-test failed: %v", name, err)
	}
	if err := imu.Calibrate(); err != nil {
		log.Warnf("%s: calibration failed: %v", name, err)
	} else {
		log.Infof("%s: calibration complete", name)
	}

	return &IMUSource{name: name, imu: imu}, nil
}

// IDs are the sensors this source serves.
func (s *IMUSource) IDs() []sample.SensorID {
	return []sample.SensorID{sample.Accelerometer, sample.Gyroscope}
}

func (s *IMUSource) Available(id sample.SensorID) bool {
	return s != nil && s.imu != nil && (id == sample.Accelerometer || id == sample.Gyroscope)
}

func (s *IMUSource) Register(id sample.SensorID, hint time.Duration, h Handler) (Subscription, error) {
	if !s.Available(id) {
		return nil, fmt.Errorf("%s %s: %w", s.name, id.Name(), ErrUnavailable)
	}
	read := func() (*sample.Raw, error) { return s.read(id) }
	return startPolling(s.name+" "+id.Name(), hint, read, h), nil
}

type axisReader func() (int16, error)

func (s *IMUSource) read(id sample.SensorID) (*sample.Raw, error) {
	var (
		axes  [3]axisReader
		scale float64
	)
	switch id {
	case sample.Accelerometer:
		axes = [3]axisReader{s.imu.GetAccelerationX, s.imu.GetAccelerationY, s.imu.GetAccelerationZ}
		scale = standardGravity / accelLSBPerG
	case sample.Gyroscope:
		axes = [3]axisReader{s.imu.GetRotationX, s.imu.GetRotationY, s.imu.GetRotationZ}
		scale = degToRad / gyroLSBPerDegS
	default:
		return nil, fmt.Errorf("%s: %w", s.name, ErrUnavailable)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values := make([]float64, 3)
	for i, axis := range axes {
		v, err := axis()
		if err != nil {
			return nil, fmt.Errorf("%s %s axis %d: %w", s.name, id.Name(), i, err)
		}
		values[i] = float64(v) * scale
	}

	return &sample.Raw{
		SensorID:       id,
		Values:         values,
		TimestampNanos: time.Now().UnixNano(),
	}, nil
}
