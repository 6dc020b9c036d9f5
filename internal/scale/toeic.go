package scale

import "math"

const (
	// Each section scales to half of the 990-point exam.
	SectionMax = 495
	OverallMax = 990

	MinLevel = 1
	MaxLevel = 4
)

// LevelFromAccuracy maps overall accuracy to a proficiency tier.
// Thresholds are inclusive lower bounds: exactly 0.85 is level 4.
func LevelFromAccuracy(acc float64) int {
	switch {
	case acc >= 0.85:
		return 4
	case acc >= 0.70:
		return 3
	case acc >= 0.55:
		return 2
	default:
		return 1
	}
}

// ClampLevel coerces an arbitrary stored level into the valid tier range.
func ClampLevel(lvl int) int {
	if lvl < MinLevel {
		return MinLevel
	}
	if lvl > MaxLevel {
		return MaxLevel
	}
	return lvl
}

type Predicted struct {
	Listening int `json:"listening"`
	Reading   int `json:"reading"`
	Overall   int `json:"overall"`
}

// PredictScore derives a TOEIC-style scaled score from section accuracies.
// Each section is acc*495 rounded to the nearest multiple of 5 and clamped to
// [0,495]; overall caps at 990. A deterministic heuristic, not a calibrated model.
func PredictScore(listeningAcc, readingAcc float64) Predicted {
	l := sectionScore(listeningAcc)
	r := sectionScore(readingAcc)
	overall := l + r
	if overall > OverallMax {
		overall = OverallMax
	}
	return Predicted{Listening: l, Reading: r, Overall: overall}
}

func sectionScore(acc float64) int {
	raw := acc * SectionMax
	s := int(math.Round(raw/5)) * 5
	if s < 0 {
		s = 0
	}
	if s > SectionMax {
		s = SectionMax
	}
	return s
}

// TOEICScale exposes PredictScore through the mapper registry so the attempt
// version tag can select the scaling in force when the attempt was graded.
// Raw buckets: {"listening_acc": x, "reading_acc": y}, accuracies in [0,1].
type TOEICScale struct{}

func (TOEICScale) Scale(raw map[string]float64) map[string]float64 {
	p := PredictScore(raw["listening_acc"], raw["reading_acc"])
	return map[string]float64{
		"listening": float64(p.Listening),
		"reading":   float64(p.Reading),
		"overall":   float64(p.Overall),
	}
}

func init() {
	Register("toeic.v1.scale", TOEICScale{})
}
