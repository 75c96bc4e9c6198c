package sensors

import (
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/relabs-tech/motion_bridge/internal/sample"
)

type recordingHandler struct {
	mu   sync.Mutex
	raws []*sample.Raw
	got  chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{got: make(chan struct{}, 64)}
}

func (h *recordingHandler) OnSample(raw *sample.Raw) {
	h.mu.Lock()
	h.raws = append(h.raws, raw)
	h.mu.Unlock()
	select {
	case h.got <- struct{}{}:
	default:
	}
}

func (h *recordingHandler) OnAccuracyChanged(sample.SensorID, int) {}

func (h *recordingHandler) wait(t *testing.T) {
	t.Helper()
	select {
	case <-h.got:
	case <-time.After(2 * time.Second):
		t.Fatalf("no sample delivered")
	}
}

func TestMockSourceGeneratesNormalizableSamples(t *testing.T) {
	m := NewMockSource()
	at := m.start.Add(1234 * time.Millisecond)
	for _, id := range sample.Known() {
		raw, err := m.Read(id, at)
		if err != nil {
			t.Fatalf("%v: %v", id, err)
		}
		if _, ok := sample.Normalize(id, raw); !ok {
			t.Fatalf("%v: mock sample does not normalize: %+v", id, raw)
		}
	}
}

func TestMockSourceAvailability(t *testing.T) {
	m := NewMockSource(sample.Accelerometer)
	if !m.Available(sample.Accelerometer) || m.Available(sample.Gyroscope) {
		t.Fatalf("unexpected availability")
	}
	if _, err := m.Register(sample.Gyroscope, 0, newRecordingHandler()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	m.SetAvailable(sample.Gyroscope, true)
	if !m.Available(sample.Gyroscope) {
		t.Fatalf("gyroscope should be plugged in")
	}
}

func TestMockSourceDeliversUntilUnregistered(t *testing.T) {
	m := NewMockSource(sample.Gyroscope)
	h := newRecordingHandler()

	sub, err := m.Register(sample.Gyroscope, time.Millisecond, h)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	h.wait(t)
	sub.Unregister()
	sub.Unregister()

	time.Sleep(20 * time.Millisecond)
	h.mu.Lock()
	n := len(h.raws)
	h.mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.raws) != n {
		t.Fatalf("delivery continued after unregister: %d -> %d", n, len(h.raws))
	}
}

func TestBoardRoutesByID(t *testing.T) {
	motion := NewMockSource(sample.Accelerometer, sample.Gyroscope)
	baro := NewMockSource(sample.Pressure)

	b := NewBoard()
	b.Attach(motion, sample.Accelerometer, sample.Gyroscope)
	b.Attach(baro, sample.Pressure)

	if !b.Available(sample.Pressure) || !b.Available(sample.Gyroscope) {
		t.Fatalf("routed sensors should be available")
	}
	if b.Available(sample.MagneticField) {
		t.Fatalf("unrouted sensor must be unavailable")
	}
	if _, err := b.Register(sample.MagneticField, 0, newRecordingHandler()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	ids := b.IDs()
	if len(ids) != 3 || ids[0] != sample.Accelerometer || ids[2] != sample.Pressure {
		t.Fatalf("unexpected ids %v", ids)
	}

	h := newRecordingHandler()
	sub, err := b.Register(sample.Pressure, time.Millisecond, h)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer sub.Unregister()
	h.wait(t)
}

const rmcValid = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"

func TestParseFix(t *testing.T) {
	fix, ok := ParseFix(rmcValid + "\r\n")
	if !ok {
		t.Fatalf("expected valid fix")
	}
	if fix.Latitude < 48.11 || fix.Latitude > 48.12 || fix.SpeedKnots != 22.4 || fix.CourseDeg != 84.4 {
		t.Fatalf("unexpected fix %+v", fix)
	}

	for _, line := range []string{"", "garbage", "$GPRMC,123519,A,4807.0", "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"} {
		if _, ok := ParseFix(line); ok {
			t.Fatalf("%q should be skipped", line)
		}
	}
}

type nopCloser struct{ io.Reader }

func (nopCloser) Close() error { return nil }

func TestGNSSSourceSharesOneReader(t *testing.T) {
	opens := 0
	g := newGNSSSource("gnss test", func() (io.ReadCloser, error) {
		opens++
		pr, pw := io.Pipe()
		go func() {
			for i := 0; i < 50; i++ {
				if _, err := io.Copy(pw, strings.NewReader(rmcValid+"\r\n")); err != nil {
					return
				}
				time.Sleep(time.Millisecond)
			}
			pw.Close()
		}()
		return pr, nil
	})

	if !g.Available(sample.Location) || g.Available(sample.Accelerometer) {
		t.Fatalf("unexpected availability")
	}

	h1, h2 := newRecordingHandler(), newRecordingHandler()
	s1, err := g.Register(sample.Location, 0, h1)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	s2, err := g.Register(sample.Location, 0, h2)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	h1.wait(t)
	h2.wait(t)
	if opens != 1 {
		t.Fatalf("expected one port open, got %d", opens)
	}

	s1.Unregister()
	s2.Unregister()

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.port != nil || len(g.subs) != 0 {
		t.Fatalf("port should close with the last subscription")
	}
}
