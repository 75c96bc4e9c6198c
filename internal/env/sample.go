package env

import "periph.io/x/conn/v3/physic"

// Sample represents a single environmental measurement (BMP).
type Sample struct {
	Temperature float64 `json:"temp_c"`       // °C
	Pressure    float64 `json:"pressure_pa"`  // Pa
	PressureHPa float64 `json:"pressure_hpa"` // hPa, the unit pressure sensor events carry
}

// FromPhysic converts a periph environment reading.
func FromPhysic(e physic.Env) Sample {
	pressurePa := float64(e.Pressure) / float64(physic.Pascal)
	return Sample{
		Temperature: e.Temperature.Celsius(),
		Pressure:    pressurePa,
		PressureHPa: pressurePa / 100.0, // 1 hPa = 100 Pa
	}
}
