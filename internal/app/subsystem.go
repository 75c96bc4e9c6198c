package app

import (
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/motion_bridge/internal/config"
	"github.com/relabs-tech/motion_bridge/internal/sensors"
)

// board is a subsystem plus the hardware handles to release on exit.
type board struct {
	sensors.Subsystem
	closers []io.Closer
}

func (b *board) Close() {
	for _, c := range b.closers {
		if err := c.Close(); err != nil {
			log.Printf("sensors: close: %v", err)
		}
	}
}

// newBoard builds the sensor subsystem from config. A hardware device that
// fails to initialize is logged and its sensors stay unavailable, so streams
// on them go Inactive instead of failing the bridge.
func newBoard(cfg *config.Config) *board {
	if cfg.SensorSource == config.SourceMock {
		log.Printf("sensors: using mock source")
		return &board{Subsystem: sensors.NewMockSource(cfg.MockSensors...)}
	}

	b := &board{}
	hw := sensors.NewBoard()

	if cfg.IMUSPIDevice != "" {
		imu, err := sensors.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin)
		if err != nil {
			log.Warnf("sensors: IMU on %s unavailable: %v", cfg.IMUSPIDevice, err)
		} else {
			hw.Attach(imu, imu.IDs()...)
		}
	}
	if cfg.BMPSPIDevice != "" {
		env, err := sensors.NewEnvSource(cfg.BMPSPIDevice)
		if err != nil {
			log.Warnf("sensors: BMP280 on %s unavailable: %v", cfg.BMPSPIDevice, err)
		} else {
			hw.Attach(env, env.IDs()...)
			b.closers = append(b.closers, env)
		}
	}
	if cfg.GNSSSerialPort != "" {
		gnss := sensors.NewGNSSSource(cfg.GNSSSerialPort, cfg.GNSSBaudRate)
		hw.Attach(gnss, gnss.IDs()...)
	}

	log.Printf("sensors: hardware board with %v", hw.IDs())
	b.Subsystem = hw
	return b
}
