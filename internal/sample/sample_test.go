package sample

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestNormalizeConvertsNanosToMillis(t *testing.T) {
	raw := &Raw{Values: []float64{0.1, 9.8, -0.2}, TimestampNanos: 1_500_000_000, Accuracy: 3}

	s, ok := Normalize(Accelerometer, raw)
	if !ok {
		t.Fatalf("expected sample to normalize")
	}
	if s.Timestamp != 1500 {
		t.Fatalf("expected timestamp 1500ms, got %d", s.Timestamp)
	}
	if s.SensorID != Accelerometer || s.Accuracy != 3 || len(s.Values) != 3 {
		t.Fatalf("unexpected sample %+v", s)
	}

	raw.Values[0] = 42
	if s.Values[0] != 0.1 {
		t.Fatalf("sample must not alias raw values")
	}
}

func TestNormalizeRejectsMalformed(t *testing.T) {
	cases := map[string]*Raw{
		"nil":          nil,
		"empty":        {Values: nil},
		"short":        {Values: []float64{1, 2}},
		"nan":          {Values: []float64{1, math.NaN(), 3}},
		"inf":          {Values: []float64{1, 2, math.Inf(1)}},
		"extra values": {Values: []float64{1, 2, 3, 4}},
	}
	for name, raw := range cases {
		if _, ok := Normalize(Gyroscope, raw); ok {
			t.Fatalf("%s: expected rejection", name)
		}
	}
}

func TestNormalizeUnknownSensorAcceptsAnyArity(t *testing.T) {
	if _, ok := Normalize(SensorID(99), &Raw{Values: []float64{1, 2, 3, 4, 5}}); !ok {
		t.Fatalf("unknown sensors have no fixed arity")
	}
}

func TestEventSchema(t *testing.T) {
	b, err := json.Marshal(SensorSample{SensorID: Gyroscope, Timestamp: 7, Values: []float64{1, 2, 3}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"sensorId":4,"timestamp":7,"data":[1,2,3],"accuracy":0}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}
}

func TestParseSensorID(t *testing.T) {
	for in, want := range map[string]SensorID{
		"1":              Accelerometer,
		"gyroscope":      Gyroscope,
		"Magnetic_Field": MagneticField,
		" 65536 ":        Location,
	} {
		got, err := ParseSensorID(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got != want {
			t.Fatalf("%q: got %v, want %v", in, got, want)
		}
	}
	if _, err := ParseSensorID("barometer2000"); err == nil {
		t.Fatalf("expected error for unknown name")
	}
}

func TestIntervalSemantics(t *testing.T) {
	for _, i := range []int{DelayFastest, DelayGame, DelayUI, DelayNormal} {
		if Throttled(i) {
			t.Fatalf("delay class %d must not throttle", i)
		}
		if Period(i) != 0 {
			t.Fatalf("delay class %d has no period", i)
		}
	}
	if RateHint(DelayNormal) != 200*time.Millisecond {
		t.Fatalf("normal hint: got %v", RateHint(DelayNormal))
	}
	if !Throttled(4) || Period(250_000) != 250*time.Millisecond || RateHint(250_000) != 250*time.Millisecond {
		t.Fatalf("microsecond intervals must throttle with matching hint")
	}
	if RateHint(-5) != 0 {
		t.Fatalf("negative interval should map to fastest")
	}
}
