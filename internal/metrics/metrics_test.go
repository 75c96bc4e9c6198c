package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/relabs-tech/motion_bridge/internal/sample"
	"github.com/relabs-tech/motion_bridge/internal/sensors"
	"github.com/relabs-tech/motion_bridge/internal/stream"
)

func TestCollectorCountsOutcomes(t *testing.T) {
	c := New(prometheus.NewRegistry())
	obs := c.Scope(ScopeBridge)

	obs.Forwarded(sample.Accelerometer)
	obs.Forwarded(sample.Accelerometer)
	obs.Suppressed(sample.Accelerometer)
	obs.Dropped(sample.Gyroscope)
	obs.StateChanged(sample.Gyroscope, stream.Active)

	if got := testutil.ToFloat64(c.samples.WithLabelValues("accelerometer", "forwarded")); got != 2 {
		t.Fatalf("forwarded: got %v", got)
	}
	if got := testutil.ToFloat64(c.samples.WithLabelValues("accelerometer", "suppressed")); got != 1 {
		t.Fatalf("suppressed: got %v", got)
	}
	if got := testutil.ToFloat64(c.samples.WithLabelValues("gyroscope", "dropped")); got != 1 {
		t.Fatalf("dropped: got %v", got)
	}
	if got := testutil.ToFloat64(c.state.WithLabelValues(ScopeBridge, "gyroscope")); got != 2 {
		t.Fatalf("state: got %v", got)
	}

	obs.StateChanged(sample.Gyroscope, stream.Unbound)
	if n := testutil.CollectAndCount(c.state); n != 0 {
		t.Fatalf("unbound stream should leave no series, got %d", n)
	}
}

func TestRegistriesSharingCollectorKeepTheirOwnState(t *testing.T) {
	c := New(prometheus.NewRegistry())
	src := sensors.NewMockSource(sample.Accelerometer)

	bridge := stream.NewRegistry(src, stream.WithObserver(c.Scope(ScopeBridge)))
	defer bridge.Close()
	session := stream.NewRegistry(src, stream.WithObserver(c.Scope("session-1")))

	bridge.Listen(sample.Accelerometer, 1_000_000, stream.SinkFunc(func(sample.SensorSample) {}))
	session.Listen(sample.Accelerometer, 1_000_000, stream.SinkFunc(func(sample.SensorSample) {}))
	if n := testutil.CollectAndCount(c.state); n != 2 {
		t.Fatalf("expected one series per scope, got %d", n)
	}

	session.Close()

	if got := testutil.ToFloat64(c.state.WithLabelValues(ScopeBridge, "accelerometer")); got != float64(stream.Active) {
		t.Fatalf("bridge stream still active, gauge reports %v", got)
	}
	if n := testutil.CollectAndCount(c.state); n != 1 {
		t.Fatalf("closed session should drop its series, got %d", n)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	c := New(prometheus.NewRegistry())
	c.Scope(ScopeBridge).Forwarded(sample.Pressure)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `motion_bridge_samples_total{outcome="forwarded",sensor="pressure"} 1`) {
		t.Fatalf("metric missing from output:\n%s", body)
	}
}
