package env

import "time"

// Sample represents a single environmental measurement from the BME680.
type Sample struct {
	Temperature float64 `json:"temp_c"`       // °C
	Humidity    float64 `json:"humidity_rh"`  // %RH
	Pressure    float64 `json:"pressure_hpa"` // hPa

	GasResistance float64 `json:"gas_resistance_ohms"` // Ω, always > 0 for a valid read
	HeatStable    bool    `json:"heat_stable"`         // gas heater has reached its setpoint

	Timestamp time.Time `json:"timestamp"`
}
