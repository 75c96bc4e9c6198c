package sample

import (
	"fmt"
	"strconv"
	"strings"
)

// SensorID names a sensor type. Values follow the Android Sensor.TYPE_* numbering
// so events stay interoperable with mobile clients.
type SensorID int

const (
	Accelerometer      SensorID = 1
	MagneticField      SensorID = 2
	Gyroscope          SensorID = 4
	Pressure           SensorID = 6
	AmbientTemperature SensorID = 13

	// Location has no platform type; it sits at the device-private base.
	Location SensorID = 65536
)

type sensorInfo struct {
	name  string
	arity int
}

var knownSensors = map[SensorID]sensorInfo{
	Accelerometer:      {name: "accelerometer", arity: 3},       // m/s²
	MagneticField:      {name: "magnetic_field", arity: 3},      // µT
	Gyroscope:          {name: "gyroscope", arity: 3},           // rad/s
	Pressure:           {name: "pressure", arity: 1},            // hPa
	AmbientTemperature: {name: "ambient_temperature", arity: 1}, // °C
	Location:           {name: "location", arity: 4},            // lat, lon, speed knots, course deg
}

// Known returns every sensor id this bridge knows how to normalize, in ascending order.
func Known() []SensorID {
	return []SensorID{Accelerometer, MagneticField, Gyroscope, Pressure, AmbientTemperature, Location}
}

// Name returns the topic-friendly name of the sensor, or "sensor_<id>" for unknown ids.
func (id SensorID) Name() string {
	if info, ok := knownSensors[id]; ok {
		return info.name
	}
	return "sensor_" + strconv.Itoa(int(id))
}

func (id SensorID) String() string {
	return fmt.Sprintf("%s(%d)", id.Name(), int(id))
}

// Arity is the number of values a sample of this sensor carries, 0 if unknown.
func (id SensorID) Arity() int {
	return knownSensors[id].arity
}

// ParseSensorID accepts either a numeric id or a sensor name.
func ParseSensorID(s string) (SensorID, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return SensorID(n), nil
	}
	for id, info := range knownSensors {
		if strings.EqualFold(info.name, s) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown sensor %q", s)
}
