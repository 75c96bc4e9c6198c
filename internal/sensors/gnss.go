package sensors

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/motion_bridge/internal/gps"
	"github.com/relabs-tech/motion_bridge/internal/sample"
)

// GNSSSource exposes a serial NMEA receiver as the location sensor.
// The receiver sets its own cadence, so the rate hint is ignored. One reader
// serves every subscription; the port is open while anyone is subscribed.
type GNSSSource struct {
	name string
	open func() (io.ReadCloser, error)

	mu     sync.Mutex
	port   io.ReadCloser
	nextID int
	subs   map[int]Handler
}

// NewGNSSSource reads NMEA sentences from portName at baud.
func NewGNSSSource(portName string, baud int) *GNSSSource {
	opts := serial.OpenOptions{
		PortName:        portName,
		BaudRate:        uint(baud),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}
	return newGNSSSource("gnss "+portName, func() (io.ReadCloser, error) {
		return serial.Open(opts)
	})
}

func newGNSSSource(name string, open func() (io.ReadCloser, error)) *GNSSSource {
	return &GNSSSource{name: name, open: open, subs: make(map[int]Handler)}
}

func (g *GNSSSource) IDs() []sample.SensorID {
	return []sample.SensorID{sample.Location}
}

func (g *GNSSSource) Available(id sample.SensorID) bool {
	return g != nil && id == sample.Location
}

func (g *GNSSSource) Register(id sample.SensorID, _ time.Duration, h Handler) (Subscription, error) {
	if !g.Available(id) {
		return nil, fmt.Errorf("%s %s: %w", g.name, id.Name(), ErrUnavailable)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.port == nil {
		port, err := g.open()
		if err != nil {
			return nil, fmt.Errorf("%s: open: %w", g.name, err)
		}
		g.port = port
		go g.readLoop(port)
		log.Infof("%s: port opened", g.name)
	}

	g.nextID++
	key := g.nextID
	g.subs[key] = h
	return &gnssSubscription{g: g, key: key}, nil
}

type gnssSubscription struct {
	g    *GNSSSource
	key  int
	once sync.Once
}

func (s *gnssSubscription) Unregister() {
	s.once.Do(func() { s.g.remove(s.key) })
}

func (g *GNSSSource) remove(key int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.subs, key)
	if len(g.subs) == 0 && g.port != nil {
		if err := g.port.Close(); err != nil {
			log.Debugf("%s: close: %v", g.name, err)
		}
		g.port = nil
	}
}

func (g *GNSSSource) handlers(port io.ReadCloser) []Handler {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.port != port {
		return nil
	}
	hs := make([]Handler, 0, len(g.subs))
	for _, h := range g.subs {
		hs = append(hs, h)
	}
	return hs
}

func (g *GNSSSource) readLoop(port io.ReadCloser) {
	reader := bufio.NewReader(port)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			log.Debugf("%s: reader stopped: %v", g.name, err)
			return
		}

		fix, ok := ParseFix(line)
		if !ok {
			continue
		}

		raw := &sample.Raw{
			SensorID:       sample.Location,
			Values:         fix.Values(),
			TimestampNanos: time.Now().UnixNano(),
		}
		for _, h := range g.handlers(port) {
			h.OnSample(raw)
		}
	}
}

// ParseFix extracts a valid fix from one NMEA line. Partial sentences, other
// sentence types and void fixes are skipped.
func ParseFix(line string) (gps.Fix, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return gps.Fix{}, false
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return gps.Fix{}, false
	}
	if sentence.DataType() != nmea.TypeRMC {
		return gps.Fix{}, false
	}

	fix := gps.FromRMC(sentence.(nmea.RMC))
	if !fix.Valid() {
		return gps.Fix{}, false
	}
	return fix, true
}
