// Package comfort interprets temperature, humidity, and pressure readings
// into human-readable comfort and weather assessments.
package comfort

import (
	"fmt"
	"math"
)

// HumidityLevel classifies relative humidity.
type HumidityLevel int

const (
	HumidityVeryDry HumidityLevel = iota
	HumidityDry
	HumidityOptimal
	HumidityHumid
	HumidityVeryHumid
)

// PressureLevel classifies atmospheric pressure.
type PressureLevel int

const (
	PressureVeryLow PressureLevel = iota
	PressureLow
	PressureNormal
	PressureHigh
	PressureVeryHigh
)

// ComfortLevel is the combined environmental assessment.
type ComfortLevel int

const (
	VeryUncomfortable ComfortLevel = iota
	Uncomfortable
	Acceptable
	Comfortable
	VeryComfortable
)

// Calculator assesses readings against configurable comfort bands.
// The zero value is not usable; use NewCalculator.
type Calculator struct {
	HumidityVeryDryPct float64
	HumidityDryPct     float64
	HumidityOptimalMax float64
	HumidityHumidPct   float64

	PressureVeryLowHPa float64
	PressureLowHPa     float64
	PressureNormalMax  float64
	PressureHighHPa    float64

	ComfortTempMinC float64
	ComfortTempMaxC float64
}

// NewCalculator returns a calculator with indoor-comfort defaults.
func NewCalculator() *Calculator {
	return &Calculator{
		HumidityVeryDryPct: 30,
		HumidityDryPct:     40,
		HumidityOptimalMax: 60,
		HumidityHumidPct:   70,
		PressureVeryLowHPa: 980,
		PressureLowHPa:     1000,
		PressureNormalMax:  1025,
		PressureHighHPa:    1035,
		ComfortTempMinC:    18,
		ComfortTempMaxC:    24,
	}
}

// AssessHumidity classifies relative humidity and returns a short label.
func (c *Calculator) AssessHumidity(rh float64) (HumidityLevel, string) {
	switch {
	case rh < c.HumidityVeryDryPct:
		return HumidityVeryDry, fmt.Sprintf("Very dry %.0f%%", rh)
	case rh < c.HumidityDryPct:
		return HumidityDry, fmt.Sprintf("Dry %.0f%%", rh)
	case rh <= c.HumidityOptimalMax:
		return HumidityOptimal, fmt.Sprintf("Optimal %.0f%%", rh)
	case rh <= c.HumidityHumidPct:
		return HumidityHumid, fmt.Sprintf("Humid %.0f%%", rh)
	default:
		return HumidityVeryHumid, fmt.Sprintf("Very humid %.0f%%", rh)
	}
}

// AssessPressure classifies pressure and returns a short weather hint.
func (c *Calculator) AssessPressure(hpa float64) (PressureLevel, string) {
	switch {
	case hpa < c.PressureVeryLowHPa:
		return PressureVeryLow, fmt.Sprintf("Stormy (%.0f hPa)", hpa)
	case hpa < c.PressureLowHPa:
		return PressureLow, fmt.Sprintf("Unsettled (%.0f hPa)", hpa)
	case hpa <= c.PressureNormalMax:
		return PressureNormal, fmt.Sprintf("Stable (%.0f hPa)", hpa)
	case hpa <= c.PressureHighHPa:
		return PressureHigh, fmt.Sprintf("Fair (%.0f hPa)", hpa)
	default:
		return PressureVeryHigh, fmt.Sprintf("Dry spell (%.0f hPa)", hpa)
	}
}

// AssessTemperature returns a short comfort label for the temperature.
func (c *Calculator) AssessTemperature(tempC float64) string {
	switch {
	case tempC < 10:
		return fmt.Sprintf("Very cold %.1f°C", tempC)
	case tempC < c.ComfortTempMinC:
		return fmt.Sprintf("Cold %.1f°C", tempC)
	case tempC <= c.ComfortTempMaxC:
		return fmt.Sprintf("Comfortable %.1f°C", tempC)
	case tempC <= 28:
		return fmt.Sprintf("Warm %.1f°C", tempC)
	default:
		return fmt.Sprintf("Hot %.1f°C", tempC)
	}
}

// HeatIndex estimates perceived temperature (°C) from temperature and
// humidity using the Rothfusz regression. Below 27 °C the index is not
// meaningful and the input temperature is returned unchanged.
func HeatIndex(tempC, rh float64) float64 {
	if tempC < 27 {
		return tempC
	}
	tf := tempC*9/5 + 32

	hi := -42.379 +
		2.04901523*tf +
		10.14333127*rh -
		0.22475541*tf*rh -
		0.00683783*tf*tf -
		0.05481717*rh*rh +
		0.00122874*tf*tf*rh +
		0.00085282*tf*rh*rh -
		0.00000199*tf*tf*rh*rh

	return (hi - 32) * 5 / 9
}

// DewPoint estimates the dew point (°C) from temperature and relative
// humidity using the Magnus approximation.
func DewPoint(tempC, rh float64) float64 {
	if rh <= 0 {
		rh = 0.1 // log of zero is unusable; treat as trace humidity
	}
	const a, b = 17.27, 237.7
	gamma := a*tempC/(b+tempC) + math.Log(rh/100)
	return b * gamma / (a - gamma)
}

// Overall combines temperature, humidity, and pressure into one comfort
// level with a short summary. Pressure contributes the least: it signals
// weather more than comfort.
func (c *Calculator) Overall(tempC, rh, hpa float64) (ComfortLevel, string) {
	humidLevel, _ := c.AssessHumidity(rh)
	pressLevel, _ := c.AssessPressure(hpa)

	tempScore := 1
	switch {
	case tempC >= c.ComfortTempMinC && tempC <= c.ComfortTempMaxC:
		tempScore = 2
	case tempC < 10 || tempC > 30:
		tempScore = 0
	}

	humidScore := 0
	switch humidLevel {
	case HumidityOptimal:
		humidScore = 2
	case HumidityDry, HumidityHumid:
		humidScore = 1
	}

	pressScore := 0
	if pressLevel == PressureNormal {
		pressScore = 1
	}

	switch total := tempScore + humidScore + pressScore; {
	case total >= 5:
		return VeryComfortable, "Excellent"
	case total >= 4:
		return Comfortable, "Good"
	case total >= 3:
		return Acceptable, "Acceptable"
	case total >= 2:
		return Uncomfortable, "Uncomfortable"
	default:
		return VeryUncomfortable, "Very uncomfortable"
	}
}
