package app

import (
	"testing"
	"time"

	"github.com/relabs-tech/airq_monitor/internal/airquality"
	"github.com/relabs-tech/airq_monitor/internal/env"
	"github.com/relabs-tech/airq_monitor/internal/sensors"
)

func TestProcessReadingDuringHeaterWarmUp(t *testing.T) {
	cal := airquality.NewCalibrator(airquality.DefaultThresholds(), nil)

	// No valid gas measurement yet: the resistance channel is empty.
	warmUp := env.Sample{
		Temperature: 21.5,
		Humidity:    45,
		Pressure:    1013,
		Timestamp:   time.Now(),
	}
	v, err := processReading(cal, warmUp)
	if err != nil {
		t.Fatalf("warm-up reading must still yield a verdict: %v", err)
	}
	if v.Index != airquality.LevelCalibrating || v.Label != "Gas heating" {
		t.Errorf("warm-up verdict = {%v, %q}, want {Calibrating, Gas heating}", v.Index, v.Label)
	}
	if cal.Phase() != airquality.PhaseBurnIn {
		t.Errorf("warm-up reading must not touch the state machine, phase = %s", cal.Phase())
	}

	// A valid reading flows through to the calibrator as before.
	v, err = processReading(cal, env.Sample{
		GasResistance: 120000,
		HeatStable:    true,
		Timestamp:     time.Now(),
	})
	if err != nil {
		t.Fatalf("valid reading: %v", err)
	}
	if v.Index != airquality.LevelCalibrating {
		t.Errorf("burn-in verdict index = %v, want Calibrating", v.Index)
	}
}

func TestProcessReadingFirstMockSample(t *testing.T) {
	// The mock source starts inside its heater warm-up, so its first sample
	// has no gas reading. Every cycle must still produce a verdict.
	s, err := sensors.NewMockSource().Next()
	if err != nil {
		t.Fatalf("mock next: %v", err)
	}
	if s.GasResistance != 0 {
		t.Fatalf("first mock sample should be in warm-up, gas = %f", s.GasResistance)
	}

	cal := airquality.NewCalibrator(airquality.DefaultThresholds(), nil)
	v, err := processReading(cal, s)
	if err != nil {
		t.Fatalf("first mock sample must not be rejected: %v", err)
	}
	if v.Index != airquality.LevelCalibrating || v.Label != "Gas heating" {
		t.Errorf("first mock verdict = {%v, %q}, want {Calibrating, Gas heating}", v.Index, v.Label)
	}
}
