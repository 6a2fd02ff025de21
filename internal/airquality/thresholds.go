package airquality

import "time"

// Thresholds holds every tunable the calibration state machine and the
// hybrid scorer consume. Immutable for the process lifetime; owned by the
// caller and passed in, never read from a global.
type Thresholds struct {
	// Relative (ratio against the personal baseline)
	GoodRatio float64 // above this ratio the air is Good
	PoorRatio float64 // below this ratio the air is Poor

	// Absolute (Ω, fixed scientific tiers)
	ExcellentOhms float64
	GoodOhms      float64
	ModerateOhms  float64

	// Baseline sanity bounds (Ω) for typical clean air
	CleanAirMinOhms float64
	CleanAirMaxOhms float64

	// Calibration timing
	BurnIn                time.Duration
	BaselineSampling      time.Duration
	RecalibrationInterval time.Duration // <= 0 disables periodic recalibration

	// Persisted baselines older than this are discarded on startup.
	BaselineMaxAge time.Duration
}

// DefaultThresholds returns the documented defaults for a BME680 in indoor air.
func DefaultThresholds() Thresholds {
	return Thresholds{
		GoodRatio:             1.35,
		PoorRatio:             0.70,
		ExcellentOhms:         150000,
		GoodOhms:              100000,
		ModerateOhms:          50000,
		CleanAirMinOhms:       50000,
		CleanAirMaxOhms:       200000,
		BurnIn:                300 * time.Second,
		BaselineSampling:      300 * time.Second,
		RecalibrationInterval: 14400 * time.Second,
		BaselineMaxAge:        86400 * time.Second,
	}
}
