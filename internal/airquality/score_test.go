package airquality

import (
	"errors"
	"testing"
)

func ptr(v float64) *float64 { return &v }

func TestScoreWithoutBaseline(t *testing.T) {
	th := DefaultThresholds()

	v, err := Score(120000, nil, th)
	if err != nil {
		t.Fatalf("score without baseline: %v", err)
	}
	if v.Index != LevelCalibrating || v.Label != "Calibrating" {
		t.Errorf("expected {Calibrating, Calibrating}, got {%v, %q}", v.Index, v.Label)
	}
}

func TestScoreInvalidBaseline(t *testing.T) {
	th := DefaultThresholds()

	for _, b := range []float64{0, -1, -120000} {
		if _, err := Score(120000, ptr(b), th); !errors.Is(err, ErrInvalidBaseline) {
			t.Errorf("baseline %g: expected ErrInvalidBaseline, got %v", b, err)
		}
	}
}

func TestScoreSafetyMin(t *testing.T) {
	th := DefaultThresholds()

	// absolute Poor (40000 <= 50000), relative Moderate (ratio 1.33):
	// the worse assessment wins.
	v, err := Score(40000, ptr(30000), th)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if v.Index != LevelPoor {
		t.Errorf("expected Poor, got %v", v.Index)
	}

	// absolute Good (>100000), relative Moderate (ratio 1.25): min is Moderate.
	v, err = Score(150000, ptr(120000), th)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if v.Index != LevelModerate {
		t.Errorf("expected Moderate, got %v", v.Index)
	}

	// absolute Moderate (60000), relative Poor (ratio 0.4): min is Poor.
	v, err = Score(60000, ptr(150000), th)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if v.Index != LevelPoor {
		t.Errorf("expected Poor, got %v", v.Index)
	}
}

func TestScoreGoodRequiresBothAssessments(t *testing.T) {
	th := DefaultThresholds()

	// Above excellent absolute tier and ratio above good threshold.
	v, err := Score(160000, ptr(100000), th)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if v.Index != LevelGood || v.Label != "Good" {
		t.Errorf("expected {Good, Good}, got {%v, %q}", v.Index, v.Label)
	}

	// Excellent and good absolute tiers collapse into one verdict level.
	v, _ = Score(110000, ptr(70000), th)
	if v.Index != LevelGood {
		t.Errorf("expected Good in collapsed tier, got %v", v.Index)
	}
}

func TestScoreBoundaries(t *testing.T) {
	th := DefaultThresholds()

	// Exactly at moderate_ohms is Poor (strictly-greater comparison),
	// ratio 1.0 is Moderate, so the final verdict is Poor.
	v, _ := Score(50000, ptr(50000), th)
	if v.Index != LevelPoor {
		t.Errorf("at moderate threshold: expected Poor, got %v", v.Index)
	}

	// Just above moderate with a neutral ratio is Moderate.
	v, _ = Score(50001, ptr(50001), th)
	if v.Index != LevelModerate {
		t.Errorf("just above moderate threshold: expected Moderate, got %v", v.Index)
	}
}

func TestScoreIdempotent(t *testing.T) {
	th := DefaultThresholds()

	first, err := Score(87500, ptr(91000), th)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Score(87500, ptr(91000), th)
		if err != nil {
			t.Fatalf("score repeat %d: %v", i, err)
		}
		if again != first {
			t.Fatalf("verdict changed between identical calls: %+v vs %+v", first, again)
		}
	}
}

func TestLevelOrdering(t *testing.T) {
	if !(LevelPoor < LevelModerate && LevelModerate < LevelGood) {
		t.Fatal("level ordering must be Poor < Moderate < Good")
	}
	if LevelCalibrating >= LevelPoor {
		t.Fatal("Calibrating must rank below scored levels")
	}
}
