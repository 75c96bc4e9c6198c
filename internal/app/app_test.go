package app

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/motion_bridge/internal/config"
	"github.com/relabs-tech/motion_bridge/internal/metrics"
	"github.com/relabs-tech/motion_bridge/internal/sample"
	"github.com/relabs-tech/motion_bridge/internal/sensors"
	"github.com/relabs-tech/motion_bridge/internal/stream"
	"github.com/relabs-tech/motion_bridge/internal/transport"
)

func litPixels(img *image1bit.VerticalLSB) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.BitAt(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestFormatEvent(t *testing.T) {
	line := formatEvent(sample.SensorSample{
		SensorID:  sample.Gyroscope,
		Timestamp: 1500,
		Values:    []float64{0.5, -0.25, 1},
		Accuracy:  2,
	})
	for _, want := range []string{"[GYROSCOPE]", "00:00:01.500", "0.5000", "-0.2500", "acc=2"} {
		if !strings.Contains(line, want) {
			t.Fatalf("%q missing from %q", want, line)
		}
	}
}

func TestRenderSample(t *testing.T) {
	waiting := renderSample(sample.Accelerometer, sample.SensorSample{}, false)
	full := renderSample(sample.Accelerometer, sample.SensorSample{Values: []float64{0.12, 9.81, -0.3}}, true)

	if b := full.Bounds(); b.Dx() != displayWidth || b.Dy() != displayHeight {
		t.Fatalf("unexpected bounds %v", b)
	}
	if litPixels(waiting) == 0 || litPixels(full) <= litPixels(waiting) {
		t.Fatalf("expected values to draw more than the waiting screen: %d vs %d", litPixels(full), litPixels(waiting))
	}

	// Location carries four values; all must fit below the title.
	loc := renderSample(sample.Location, sample.SensorSample{Values: []float64{48.1, 11.5, 22.4, 84.4}}, true)
	if litPixels(loc) == 0 {
		t.Fatalf("location render is empty")
	}
}

func TestShortName(t *testing.T) {
	if got := shortName(sample.AmbientTemperature); got != "ambient temperatur" {
		t.Fatalf("unexpected short name %q", got)
	}
}

func TestProbe(t *testing.T) {
	src := sensors.NewMockSource(sample.Accelerometer, sample.Pressure)
	results := probe(src, true, 2*time.Second)

	if len(results) != len(sample.Known()) {
		t.Fatalf("expected a row per known sensor, got %d", len(results))
	}
	for _, r := range results {
		wantAvail := r.id == sample.Accelerometer || r.id == sample.Pressure
		if r.available != wantAvail {
			t.Fatalf("%s: available=%v", r.id, r.available)
		}
		if wantAvail && (r.first == nil || r.first.SensorID != r.id) {
			t.Fatalf("%s: expected a first sample", r.id)
		}
		if !wantAvail && r.first != nil {
			t.Fatalf("%s: unavailable sensor produced a sample", r.id)
		}
	}

	out := probeTable(results, true)
	if !strings.Contains(out, "accelerometer") || !strings.Contains(out, "LATENCY") {
		t.Fatalf("unexpected table:\n%s", out)
	}
}

func TestNewBoardMock(t *testing.T) {
	cfg := config.Default()
	cfg.MockSensors = []sample.SensorID{sample.Gyroscope}

	b := newBoard(cfg)
	defer b.Close()
	if !b.Available(sample.Gyroscope) || b.Available(sample.Accelerometer) {
		t.Fatalf("mock board must honour MOCK_SENSORS")
	}
}

func TestSensorsEndpoint(t *testing.T) {
	src := sensors.NewMockSource(sample.Accelerometer)
	collector := metrics.New(prometheus.NewRegistry())
	registry := stream.NewRegistry(src, stream.WithObserver(collector.Scope(metrics.ScopeBridge)))
	defer registry.Close()

	registry.Listen(sample.Accelerometer, 200000, stream.SinkFunc(func(sample.SensorSample) {}))
	registry.Listen(sample.Gyroscope, sample.DelayUI, stream.SinkFunc(func(sample.SensorSample) {}))

	router := newRouter(src, registry, transport.NewWSHandler(src, 8), collector.Handler())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/sensors", nil))
	var infos []SensorInfo
	if err := json.NewDecoder(rec.Body).Decode(&infos); err != nil {
		t.Fatalf("decode: %v", err)
	}

	byID := make(map[sample.SensorID]SensorInfo)
	for _, info := range infos {
		byID[info.SensorID] = info
	}
	acc := byID[sample.Accelerometer]
	if !acc.Available || acc.State != "active" || acc.Interval == nil || *acc.Interval != 200000 {
		t.Fatalf("unexpected accelerometer info %+v", acc)
	}
	if gyro := byID[sample.Gyroscope]; gyro.Available || gyro.State != "inactive" {
		t.Fatalf("unexpected gyroscope info %+v", gyro)
	}
	if mag := byID[sample.MagneticField]; mag.State != "unbound" || mag.Interval != nil {
		t.Fatalf("unexpected magnetometer info %+v", mag)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/sensors/pressure", nil))
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), `"name":"pressure"`) {
		t.Fatalf("unexpected single sensor response %d %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/sensors/barometer", nil))
	if rec.Code != 404 {
		t.Fatalf("expected 404 for unknown sensor, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "motion_bridge_stream_state") {
		t.Fatalf("metrics endpoint missing stream state:\n%s", rec.Body)
	}
}
