package app

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/relabs-tech/motion_bridge/internal/config"
	"github.com/relabs-tech/motion_bridge/internal/sample"
	"github.com/relabs-tech/motion_bridge/internal/sensors"
	"github.com/relabs-tech/motion_bridge/internal/stream"
)

// probeResult is one row of the probe table.
type probeResult struct {
	id        sample.SensorID
	available bool
	first     *sample.SensorSample
	latency   time.Duration
}

// RunProbe lists which sensors the configured subsystem offers. With watch
// set it also streams each available sensor until its first sample arrives
// or timeout passes.
func RunProbe(watch bool, timeout time.Duration) error {
	cfg := config.Get()

	b := newBoard(cfg)
	defer b.Close()

	results := probe(b, watch, timeout)
	fmt.Println(probeTable(results, watch))
	return nil
}

func probe(subsystem sensors.Subsystem, watch bool, timeout time.Duration) []probeResult {
	registry := stream.NewRegistry(subsystem)
	defer registry.Close()

	results := make([]probeResult, 0, len(sample.Known()))
	for _, id := range sample.Known() {
		r := probeResult{id: id, available: subsystem.Available(id)}
		if watch && r.available {
			start := time.Now()
			events := registry.Start(id, sample.DelayFastest, 1).Events()
			select {
			case s, ok := <-events:
				if ok {
					r.first = &s
					r.latency = time.Since(start)
				}
			case <-time.After(timeout):
			}
			registry.Stop(id)
		}
		results = append(results, r)
	}
	return results
}

func probeTable(results []probeResult, watch bool) string {
	headers := []string{"ID", "SENSOR", "AVAILABLE"}
	if watch {
		headers = append(headers, "FIRST SAMPLE", "LATENCY")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...)

	for _, r := range results {
		row := []string{strconv.Itoa(int(r.id)), r.id.Name(), yesNo(r.available)}
		if watch {
			if r.first != nil {
				row = append(row, fmt.Sprintf("%.3f", r.first.Values), r.latency.Round(time.Millisecond).String())
			} else {
				row = append(row, "-", "-")
			}
		}
		t.Row(row...)
	}
	return t.String()
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}
