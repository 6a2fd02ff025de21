package airquality

import (
	"errors"
	"fmt"
)

// Level is an air quality tier. The numeric order matters: the hybrid
// scorer keeps the worse (lower) of the absolute and relative assessments.
type Level int

const (
	LevelCalibrating Level = iota
	LevelPoor
	LevelModerate
	LevelGood
)

func (l Level) String() string {
	switch l {
	case LevelCalibrating:
		return "Calibrating"
	case LevelPoor:
		return "Poor"
	case LevelModerate:
		return "Moderate"
	case LevelGood:
		return "Good"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Verdict is the scored result for one reading.
type Verdict struct {
	Index Level  `json:"index"`
	Label string `json:"label"`
}

// ErrInvalidBaseline means the scorer was handed a non-positive baseline.
// That is a contract violation by the caller, not a sensor condition.
var ErrInvalidBaseline = errors.New("airquality: baseline must be positive")

// Score computes the hybrid quality verdict for one gas-resistance reading.
// A nil baseline means calibration has not produced one yet, which always
// yields the Calibrating verdict. Pure and safe for concurrent use.
func Score(gasOhms float64, baselineOhms *float64, th Thresholds) (Verdict, error) {
	if baselineOhms == nil {
		return Verdict{Index: LevelCalibrating, Label: "Calibrating"}, nil
	}
	if *baselineOhms <= 0 {
		return Verdict{}, fmt.Errorf("%w: got %g Ω", ErrInvalidBaseline, *baselineOhms)
	}

	abs := absoluteLevel(gasOhms, th)
	rel := relativeLevel(gasOhms / *baselineOhms, th)

	// Safety-biased minimum: never report better than the worse assessment.
	final := abs
	if rel < abs {
		final = rel
	}
	return Verdict{Index: final, Label: final.String()}, nil
}

// absoluteLevel tiers the raw resistance against fixed thresholds. The
// excellent and good tiers collapse into one verdict level on purpose.
func absoluteLevel(gasOhms float64, th Thresholds) Level {
	switch {
	case gasOhms > th.ExcellentOhms || gasOhms > th.GoodOhms:
		return LevelGood
	case gasOhms > th.ModerateOhms:
		return LevelModerate
	default:
		return LevelPoor
	}
}

// relativeLevel tiers the reading-to-baseline ratio.
func relativeLevel(ratio float64, th Thresholds) Level {
	switch {
	case ratio > th.GoodRatio:
		return LevelGood
	case ratio < th.PoorRatio:
		return LevelPoor
	default:
		return LevelModerate
	}
}
