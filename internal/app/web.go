package app

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/motion_bridge/internal/sample"
	"github.com/relabs-tech/motion_bridge/internal/sensors"
	"github.com/relabs-tech/motion_bridge/internal/stream"
)

// SensorInfo is one entry of /api/sensors.
type SensorInfo struct {
	SensorID  sample.SensorID `json:"sensorId"`
	Name      string          `json:"name"`
	Available bool            `json:"available"`
	State     string          `json:"state"`
	Interval  *int            `json:"interval,omitempty"`
}

// sensorInfo merges what the subsystem offers with what the bridge
// registry currently streams.
func sensorInfo(subsystem sensors.Subsystem, registry *stream.Registry) []SensorInfo {
	streams := make(map[sample.SensorID]stream.Status)
	for _, st := range registry.Sensors() {
		streams[st.SensorID] = st
	}

	out := make([]SensorInfo, 0, len(sample.Known()))
	for _, id := range sample.Known() {
		info := SensorInfo{
			SensorID:  id,
			Name:      id.Name(),
			Available: subsystem.Available(id),
			State:     stream.Unbound.String(),
		}
		if st, ok := streams[id]; ok {
			interval := st.Interval
			info.State = st.State
			info.Interval = &interval
		}
		out = append(out, info)
	}
	return out
}

func newRouter(subsystem sensors.Subsystem, registry *stream.Registry, ws http.Handler, metrics http.Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/sensors", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, sensorInfo(subsystem, registry))
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/sensors/{sensor}", func(w http.ResponseWriter, req *http.Request) {
		id, err := sample.ParseSensorID(mux.Vars(req)["sensor"])
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		for _, info := range sensorInfo(subsystem, registry) {
			if info.SensorID == id {
				writeJSON(w, info)
				return
			}
		}
		http.Error(w, "unknown sensor", http.StatusNotFound)
	}).Methods(http.MethodGet)

	r.Handle("/ws", ws)
	r.Handle("/metrics", metrics).Methods(http.MethodGet)
	return r
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("json encode error: %v", err)
	}
}
