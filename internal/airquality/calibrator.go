package airquality

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/airq_monitor/internal/baseline"
	"github.com/relabs-tech/airq_monitor/internal/env"
)

// Phase is the calibration lifecycle stage.
type Phase int

const (
	PhaseBurnIn Phase = iota
	PhaseBaselineSampling
	PhaseNormal
)

func (p Phase) String() string {
	switch p {
	case PhaseBurnIn:
		return "burn-in"
	case PhaseBaselineSampling:
		return "baseline-sampling"
	case PhaseNormal:
		return "normal"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// ErrInvalidReading means a non-positive gas resistance was handed to the
// state machine. Such values come from failed bus reads and must be dropped
// by the driver; they never contribute to calibration or scoring.
var ErrInvalidReading = errors.New("airquality: gas resistance must be positive")

// BaselineInfo describes the committed baseline for display and logging.
type BaselineInfo struct {
	BaselineOhms float64   `json:"baseline_ohms"`
	CommittedAt  time.Time `json:"committed_at"`
	AgeHours     float64   `json:"age_hours"`
}

// Calibrator owns the calibration lifecycle: burn-in, baseline sampling,
// normal scoring, and periodic recalibration. One reading enters at a time,
// in arrival order; it is not safe for concurrent use.
type Calibrator struct {
	th    Thresholds
	store *baseline.Store

	phase          Phase
	phaseStartedAt time.Time

	sampleSum   float64
	sampleCount uint

	baselineOhms        *float64
	baselineCommittedAt time.Time
	lastRecalibrationAt time.Time

	now func() time.Time
}

// NewCalibrator builds the state machine and attempts to adopt a persisted
// baseline. A usable record skips calibration and enters normal operation
// directly; anything else starts cold in burn-in. store may be nil, in which
// case baselines live only in memory.
func NewCalibrator(th Thresholds, store *baseline.Store) *Calibrator {
	c := &Calibrator{
		th:    th,
		store: store,
		now:   time.Now,
	}
	start := c.now()
	c.phase = PhaseBurnIn
	c.phaseStartedAt = start
	c.lastRecalibrationAt = start

	if store != nil {
		if rec, ok := store.Load(); ok {
			b := rec.BaselineOhms
			c.baselineOhms = &b
			c.baselineCommittedAt = rec.SavedAt
			c.lastRecalibrationAt = rec.SavedAt
			c.phase = PhaseNormal
			log.Printf("calibration: adopted persisted baseline %.2f Ω (%.1fh old)",
				b, start.Sub(rec.SavedAt).Hours())
			c.checkCleanAir(b)
		} else {
			log.Printf("calibration: no usable persisted baseline, starting burn-in (%s)", th.BurnIn)
		}
	}
	return c
}

// Process feeds one reading through the state machine and returns its
// quality verdict. During calibration without a committed baseline the
// verdict index is LevelCalibrating with a label describing the phase.
func (c *Calibrator) Process(s env.Sample) (Verdict, error) {
	if s.GasResistance <= 0 {
		return Verdict{}, fmt.Errorf("%w: got %g Ω", ErrInvalidReading, s.GasResistance)
	}

	now := c.now()

	// Periodic recalibration opens a new epoch. The committed baseline is
	// kept so scoring continues uninterrupted until a new one replaces it.
	if c.phase == PhaseNormal && c.th.RecalibrationInterval > 0 &&
		now.Sub(c.lastRecalibrationAt) >= c.th.RecalibrationInterval {
		log.Printf("calibration: recalibration due after %s, restarting burn-in (ensure clean air)",
			c.th.RecalibrationInterval)
		c.phase = PhaseBurnIn
		c.phaseStartedAt = now
	}

	if c.phase == PhaseBurnIn && now.Sub(c.phaseStartedAt) >= c.th.BurnIn {
		c.phase = PhaseBaselineSampling
		c.phaseStartedAt = now
		c.sampleSum = 0
		c.sampleCount = 0
		log.Printf("calibration: burn-in complete, sampling baseline for %s", c.th.BaselineSampling)
	}

	if c.phase == PhaseBaselineSampling && now.Sub(c.phaseStartedAt) >= c.th.BaselineSampling {
		if c.sampleCount == 0 {
			// Never commit a baseline from zero samples; re-arm the window.
			log.Printf("calibration: sampling window elapsed with no stable samples, retrying")
			c.phaseStartedAt = now
			if c.baselineOhms != nil {
				return Score(s.GasResistance, c.baselineOhms, c.th)
			}
			return c.calibratingVerdict(s, now, "Baseline retry")
		}
		c.commit(now)
	}

	switch c.phase {
	case PhaseBurnIn:
		if c.baselineOhms != nil {
			return Score(s.GasResistance, c.baselineOhms, c.th)
		}
		return c.calibratingVerdict(s, now, "")

	case PhaseBaselineSampling:
		if s.HeatStable {
			c.sampleSum += s.GasResistance
			c.sampleCount++
		}
		if c.baselineOhms != nil {
			return Score(s.GasResistance, c.baselineOhms, c.th)
		}
		return c.calibratingVerdict(s, now, "")

	default: // PhaseNormal
		return Score(s.GasResistance, c.baselineOhms, c.th)
	}
}

// commit turns the accumulated samples into the new baseline, persists it,
// and enters normal operation.
func (c *Calibrator) commit(now time.Time) {
	b := c.sampleSum / float64(c.sampleCount)
	count := c.sampleCount

	c.baselineOhms = &b
	c.baselineCommittedAt = now
	c.lastRecalibrationAt = now
	c.sampleSum = 0
	c.sampleCount = 0
	c.phase = PhaseNormal

	log.Printf("calibration: baseline established: %.2f Ω (%.1f kΩ) from %d samples",
		b, b/1000, count)
	c.checkCleanAir(b)

	if c.store != nil {
		rec := baseline.Record{BaselineOhms: b, SavedAt: now}
		if err := c.store.Save(rec); err != nil {
			// The in-memory baseline stays valid; only restart recovery suffers.
			log.Printf("calibration: failed to persist baseline: %v", err)
		} else {
			log.Printf("calibration: baseline saved to %s", c.store.Path())
		}
	}
}

// checkCleanAir warns when a baseline falls outside the typical clean-air
// band. A contaminated baseline is still used: the absolute assessment in
// the hybrid scorer compensates for it.
func (c *Calibrator) checkCleanAir(b float64) {
	switch {
	case b < c.th.CleanAirMinOhms:
		log.Printf("calibration: WARNING baseline %.1f kΩ is below the typical clean-air range (%.0f-%.0f kΩ)",
			b/1000, c.th.CleanAirMinOhms/1000, c.th.CleanAirMaxOhms/1000)
		log.Printf("calibration: the environment may have been contaminated; consider recalibrating in cleaner air")
	case b > c.th.CleanAirMaxOhms:
		log.Printf("calibration: baseline indicates very clean air")
	default:
		log.Printf("calibration: baseline is within the typical clean-air range")
	}
}

// calibratingVerdict builds the phase-describing verdict used before the
// first baseline exists.
func (c *Calibrator) calibratingVerdict(s env.Sample, now time.Time, label string) (Verdict, error) {
	if label == "" {
		switch {
		case !s.HeatStable:
			label = "Gas heating"
		case c.phase == PhaseBurnIn:
			remaining := c.th.BurnIn - now.Sub(c.phaseStartedAt)
			label = fmt.Sprintf("Burn-in (%ds)", int(remaining.Seconds()))
		default:
			label = fmt.Sprintf("Baseline (%d)", c.sampleCount)
		}
	}
	return Verdict{Index: LevelCalibrating, Label: label}, nil
}

// Phase returns the current calibration phase.
func (c *Calibrator) Phase() Phase {
	return c.phase
}

// Baseline returns the committed baseline, if any.
func (c *Calibrator) Baseline() (BaselineInfo, bool) {
	if c.baselineOhms == nil {
		return BaselineInfo{}, false
	}
	return BaselineInfo{
		BaselineOhms: *c.baselineOhms,
		CommittedAt:  c.baselineCommittedAt,
		AgeHours:     c.now().Sub(c.baselineCommittedAt).Hours(),
	}, true
}
