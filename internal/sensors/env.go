package sensors

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/motion_bridge/internal/env"
	"github.com/relabs-tech/motion_bridge/internal/sample"
)

// EnvSource exposes a BMP280/BME280 on SPI as pressure and ambient temperature sensors.
type EnvSource struct {
	name string

	mu   sync.Mutex
	port spi.PortCloser
	dev  *bmxx80.Dev
}

// NewEnvSource opens the barometer behind spiDev.
func NewEnvSource(spiDev string) (*EnvSource, error) {
	name := "bmp " + spiDev
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%s: periph host init: %w", name, err)
	}

	port, err := spireg.Open(spiDev)
	if err != nil {
		return nil, fmt.Errorf("%s: SPI open: %w", name, err)
	}

	dev, err := bmxx80.NewSPI(port, &bmxx80.DefaultOpts)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("%s: init: %w", name, err)
	}

	return &EnvSource{name: name, port: port, dev: dev}, nil
}

func (s *EnvSource) IDs() []sample.SensorID {
	return []sample.SensorID{sample.Pressure, sample.AmbientTemperature}
}

func (s *EnvSource) Available(id sample.SensorID) bool {
	return s != nil && s.dev != nil && (id == sample.Pressure || id == sample.AmbientTemperature)
}

func (s *EnvSource) Register(id sample.SensorID, hint time.Duration, h Handler) (Subscription, error) {
	if !s.Available(id) {
		return nil, fmt.Errorf("%s %s: %w", s.name, id.Name(), ErrUnavailable)
	}
	read := func() (*sample.Raw, error) {
		e, err := s.sense()
		if err != nil {
			return nil, err
		}
		return envRaw(id, e, time.Now()), nil
	}
	return startPolling(s.name+" "+id.Name(), hint, read, h), nil
}

func (s *EnvSource) sense() (env.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var e physic.Env
	if err := s.dev.Sense(&e); err != nil {
		return env.Sample{}, fmt.Errorf("%s: sense: %w", s.name, err)
	}
	return env.FromPhysic(e), nil
}

// Close halts the device and releases the SPI port.
func (s *EnvSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.dev.Halt(); err != nil {
		return fmt.Errorf("%s: halt: %w", s.name, err)
	}
	return s.port.Close()
}

func envRaw(id sample.SensorID, e env.Sample, t time.Time) *sample.Raw {
	raw := &sample.Raw{SensorID: id, TimestampNanos: t.UnixNano()}
	switch id {
	case sample.Pressure:
		raw.Values = []float64{e.PressureHPa}
	case sample.AmbientTemperature:
		raw.Values = []float64{e.Temperature}
	}
	return raw
}
