package airquality

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/relabs-tech/airq_monitor/internal/baseline"
	"github.com/relabs-tech/airq_monitor/internal/env"
)

// fakeClock drives the state machine deterministically.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func testThresholds() Thresholds {
	th := DefaultThresholds()
	th.BurnIn = 60 * time.Second
	th.BaselineSampling = 60 * time.Second
	th.RecalibrationInterval = 3600 * time.Second
	return th
}

func newTestCalibrator(t *testing.T, th Thresholds, store *baseline.Store) (*Calibrator, *fakeClock) {
	t.Helper()
	// Anchor the fake clock to wall time so records the calibrator persists
	// pass the store's real-clock staleness check; tests only ever rely on
	// relative advances.
	clk := &fakeClock{t: time.Now()}
	c := NewCalibrator(th, store)
	c.now = clk.now
	c.phaseStartedAt = clk.t
	c.lastRecalibrationAt = clk.t
	return c, clk
}

func stable(gas float64) env.Sample {
	return env.Sample{Temperature: 21.5, Humidity: 45, Pressure: 1013, GasResistance: gas, HeatStable: true}
}

func unstable(gas float64) env.Sample {
	s := stable(gas)
	s.HeatStable = false
	return s
}

func TestCalibratorRejectsInvalidReading(t *testing.T) {
	c, _ := newTestCalibrator(t, testThresholds(), nil)

	for _, gas := range []float64{0, -42} {
		if _, err := c.Process(stable(gas)); !errors.Is(err, ErrInvalidReading) {
			t.Errorf("gas %g: expected ErrInvalidReading, got %v", gas, err)
		}
	}
	if c.Phase() != PhaseBurnIn {
		t.Errorf("invalid readings must not advance the phase, got %v", c.Phase())
	}
}

func TestCalibratorBurnInDiscardsReadings(t *testing.T) {
	c, clk := newTestCalibrator(t, testThresholds(), nil)

	for i := 0; i < 5; i++ {
		v, err := c.Process(stable(100000))
		if err != nil {
			t.Fatalf("process: %v", err)
		}
		if v.Index != LevelCalibrating {
			t.Fatalf("expected Calibrating during burn-in, got %v", v.Index)
		}
		clk.advance(10 * time.Second)
	}
	if c.Phase() != PhaseBurnIn {
		t.Fatalf("expected burn-in after 50s, got %v", c.Phase())
	}

	clk.advance(10 * time.Second) // 60s elapsed
	if _, err := c.Process(unstable(100000)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if c.Phase() != PhaseBaselineSampling {
		t.Fatalf("expected baseline sampling after burn-in elapsed, got %v", c.Phase())
	}
	if c.sampleSum != 0 || c.sampleCount != 0 {
		t.Fatalf("accumulators must start the sampling window empty, got sum=%g count=%d",
			c.sampleSum, c.sampleCount)
	}
}

func TestCalibratorCommitsMeanOfStableSamples(t *testing.T) {
	th := testThresholds()
	store := baseline.NewStore(filepath.Join(t.TempDir(), "gas_baseline.json"), th.BaselineMaxAge)
	c, clk := newTestCalibrator(t, th, store)

	clk.advance(th.BurnIn)
	if _, err := c.Process(stable(90000)); err != nil { // enters sampling, reading folded
		t.Fatalf("process: %v", err)
	}
	values := []float64{110000, 130000}
	for _, v := range values {
		clk.advance(10 * time.Second)
		if _, err := c.Process(stable(v)); err != nil {
			t.Fatalf("process: %v", err)
		}
	}
	// Unstable readings are ignored, not counted.
	clk.advance(10 * time.Second)
	if _, err := c.Process(unstable(999999)); err != nil {
		t.Fatalf("process unstable: %v", err)
	}
	if c.sampleCount != 3 {
		t.Fatalf("expected 3 stable samples accumulated, got %d", c.sampleCount)
	}

	clk.advance(th.BaselineSampling) // window elapsed
	v, err := c.Process(stable(120000))
	if err != nil {
		t.Fatalf("process commit: %v", err)
	}
	if c.Phase() != PhaseNormal {
		t.Fatalf("expected normal phase after commit, got %v", c.Phase())
	}

	info, ok := c.Baseline()
	if !ok {
		t.Fatal("expected a committed baseline")
	}
	want := (90000.0 + 110000.0 + 130000.0) / 3
	if info.BaselineOhms != want {
		t.Fatalf("baseline = %g, want exact mean %g", info.BaselineOhms, want)
	}

	// The committing reading is scored, not Calibrating.
	if v.Index == LevelCalibrating {
		t.Fatalf("commit-cycle reading must be scored, got %v", v.Index)
	}

	// Commit must have been persisted.
	rec, ok := store.Load()
	if !ok {
		t.Fatal("expected persisted baseline record")
	}
	if rec.BaselineOhms != want {
		t.Fatalf("persisted baseline = %g, want %g", rec.BaselineOhms, want)
	}
}

func TestCalibratorZeroSampleWindowRearms(t *testing.T) {
	th := testThresholds()
	c, clk := newTestCalibrator(t, th, nil)

	clk.advance(th.BurnIn)
	if _, err := c.Process(unstable(80000)); err != nil { // enters sampling, nothing folded
		t.Fatalf("process: %v", err)
	}
	windowStart := c.phaseStartedAt

	clk.advance(th.BaselineSampling)
	v, err := c.Process(unstable(80000))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if c.Phase() != PhaseBaselineSampling {
		t.Fatalf("zero-sample window must not transition, got %v", c.Phase())
	}
	if !c.phaseStartedAt.After(windowStart) {
		t.Fatal("zero-sample window must re-arm the sampling window")
	}
	if _, ok := c.Baseline(); ok {
		t.Fatal("zero samples must never commit a baseline")
	}
	if v.Index != LevelCalibrating {
		t.Fatalf("expected Calibrating verdict, got %v", v.Index)
	}
}

func TestCalibratorContaminatedBaselineStillCommits(t *testing.T) {
	th := testThresholds()
	c, clk := newTestCalibrator(t, th, nil)

	clk.advance(th.BurnIn)
	if _, err := c.Process(stable(20000)); err != nil { // well below clean_air_min
		t.Fatalf("process: %v", err)
	}
	clk.advance(th.BaselineSampling)
	if _, err := c.Process(stable(20000)); err != nil {
		t.Fatalf("process: %v", err)
	}

	info, ok := c.Baseline()
	if !ok {
		t.Fatal("contaminated baseline must still be committed")
	}
	if info.BaselineOhms != 20000 {
		t.Fatalf("baseline = %g, want 20000", info.BaselineOhms)
	}
	if c.Phase() != PhaseNormal {
		t.Fatalf("expected normal phase, got %v", c.Phase())
	}
}

func TestCalibratorRecalibrationKeepsScoring(t *testing.T) {
	th := testThresholds()
	c, clk := newTestCalibrator(t, th, nil)

	// Establish a baseline of 100000.
	clk.advance(th.BurnIn)
	if _, err := c.Process(stable(100000)); err != nil {
		t.Fatalf("process: %v", err)
	}
	clk.advance(th.BaselineSampling)
	if _, err := c.Process(stable(100000)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if c.Phase() != PhaseNormal {
		t.Fatalf("expected normal, got %v", c.Phase())
	}

	// Trip the recalibration interval.
	clk.advance(th.RecalibrationInterval)
	v, err := c.Process(stable(140000))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if c.Phase() != PhaseBurnIn {
		t.Fatalf("expected recalibration to restart burn-in, got %v", c.Phase())
	}
	// Scoring continues against the outgoing baseline throughout the new cycle.
	if v.Index == LevelCalibrating {
		t.Fatal("recalibration must not blank out scoring")
	}
	if _, ok := c.Baseline(); !ok {
		t.Fatal("old baseline must survive until a new one is committed")
	}

	// The fresh cycle commits a new mean.
	clk.advance(th.BurnIn)
	if _, err := c.Process(stable(140000)); err != nil {
		t.Fatalf("process: %v", err)
	}
	clk.advance(th.BaselineSampling)
	if _, err := c.Process(stable(140000)); err != nil {
		t.Fatalf("process: %v", err)
	}
	info, _ := c.Baseline()
	if info.BaselineOhms != 140000 {
		t.Fatalf("new baseline = %g, want 140000", info.BaselineOhms)
	}
}

func TestCalibratorDisabledRecalibration(t *testing.T) {
	th := testThresholds()
	th.RecalibrationInterval = 0
	c, clk := newTestCalibrator(t, th, nil)

	clk.advance(th.BurnIn)
	if _, err := c.Process(stable(100000)); err != nil {
		t.Fatalf("process: %v", err)
	}
	clk.advance(th.BaselineSampling)
	if _, err := c.Process(stable(100000)); err != nil {
		t.Fatalf("process: %v", err)
	}

	clk.advance(1000 * time.Hour)
	if _, err := c.Process(stable(100000)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if c.Phase() != PhaseNormal {
		t.Fatalf("interval 0 must disable recalibration, got %v", c.Phase())
	}
}

func TestCalibratorAdoptsFreshPersistedBaseline(t *testing.T) {
	th := testThresholds()
	path := filepath.Join(t.TempDir(), "gas_baseline.json")
	store := baseline.NewStore(path, th.BaselineMaxAge)

	saved := time.Now().Add(-2 * time.Hour)
	if err := store.Save(baseline.Record{BaselineOhms: 123456, SavedAt: saved}); err != nil {
		t.Fatalf("save: %v", err)
	}

	c := NewCalibrator(th, store)
	if c.Phase() != PhaseNormal {
		t.Fatalf("fresh record must enter normal directly, got %v", c.Phase())
	}
	info, ok := c.Baseline()
	if !ok || info.BaselineOhms != 123456 {
		t.Fatalf("expected adopted baseline 123456, got %+v ok=%v", info, ok)
	}
	if !c.lastRecalibrationAt.Equal(saved) {
		t.Fatalf("lastRecalibrationAt = %v, want saved_at %v", c.lastRecalibrationAt, saved)
	}

	v, err := c.Process(stable(123456))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if v.Index == LevelCalibrating {
		t.Fatal("adopted baseline must score immediately")
	}
}

func TestCalibratorColdStartOnStaleRecord(t *testing.T) {
	th := testThresholds()
	path := filepath.Join(t.TempDir(), "gas_baseline.json")
	store := baseline.NewStore(path, th.BaselineMaxAge)

	old := time.Now().Add(-th.BaselineMaxAge - time.Hour)
	if err := store.Save(baseline.Record{BaselineOhms: 123456, SavedAt: old}); err != nil {
		t.Fatalf("save: %v", err)
	}

	c := NewCalibrator(th, store)
	if c.Phase() != PhaseBurnIn {
		t.Fatalf("stale record must force cold start, got %v", c.Phase())
	}
	if _, ok := c.Baseline(); ok {
		t.Fatal("stale record must not be adopted")
	}
}

func TestCalibratorNeverNormalWithoutBaseline(t *testing.T) {
	th := testThresholds()
	c, clk := newTestCalibrator(t, th, nil)

	// Push through many cycles of unstable readings: windows keep re-arming
	// and the machine must never claim normal operation.
	for i := 0; i < 200; i++ {
		if _, err := c.Process(unstable(80000)); err != nil {
			t.Fatalf("process %d: %v", i, err)
		}
		if c.Phase() == PhaseNormal {
			if _, ok := c.Baseline(); !ok {
				t.Fatal("entered normal phase without a baseline")
			}
		}
		clk.advance(20 * time.Second)
	}
	if c.Phase() == PhaseNormal {
		t.Fatal("unstable-only input must never produce a baseline")
	}
}
