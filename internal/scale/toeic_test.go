package scale

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFromAccuracyThresholds(t *testing.T) {
	cases := []struct {
		acc  float64
		want int
	}{
		{0, 1},
		{0.54, 1},
		{0.55, 2}, // boundaries round up
		{0.667, 2},
		{0.69, 2},
		{0.70, 3},
		{0.84, 3},
		{0.85, 4},
		{1.0, 4},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, LevelFromAccuracy(c.acc), "acc=%v", c.acc)
	}
}

func TestLevelFromAccuracyMonotonic(t *testing.T) {
	prev := LevelFromAccuracy(0)
	for i := 1; i <= 1000; i++ {
		lvl := LevelFromAccuracy(float64(i) / 1000)
		assert.GreaterOrEqual(t, lvl, prev)
		prev = lvl
	}
}

func TestPredictScoreBounds(t *testing.T) {
	for li := 0; li <= 20; li++ {
		for ri := 0; ri <= 20; ri++ {
			p := PredictScore(float64(li)/20, float64(ri)/20)
			assert.GreaterOrEqual(t, p.Overall, 0)
			assert.LessOrEqual(t, p.Overall, OverallMax)
			assert.Zero(t, p.Listening%5)
			assert.Zero(t, p.Reading%5)
			assert.Zero(t, p.Overall%5)
			assert.LessOrEqual(t, p.Listening, SectionMax)
			assert.LessOrEqual(t, p.Reading, SectionMax)
		}
	}
}

func TestPredictScoreValues(t *testing.T) {
	p := PredictScore(1, 1)
	assert.Equal(t, Predicted{Listening: 495, Reading: 495, Overall: 990}, p)

	p = PredictScore(0, 0)
	assert.Equal(t, Predicted{}, p)

	// 0.5*495 = 247.5 → nearest multiple of 5 is 250.
	p = PredictScore(0.5, 0)
	assert.Equal(t, 250, p.Listening)

	// Overall is the sum of the rounded sections, capped at 990.
	p = PredictScore(0.5, 1)
	assert.Equal(t, 250+495, p.Overall)
}

func TestClampLevel(t *testing.T) {
	assert.Equal(t, 1, ClampLevel(-3))
	assert.Equal(t, 1, ClampLevel(0))
	assert.Equal(t, 2, ClampLevel(2))
	assert.Equal(t, 4, ClampLevel(9))
}

func TestTOEICScaleRegistered(t *testing.T) {
	out := Apply("toeic.v1.scale", map[string]float64{"listening_acc": 1, "reading_acc": 1})
	assert.Equal(t, 495.0, out["listening"])
	assert.Equal(t, 990.0, out["overall"])

	// Unknown keys pass raw through unchanged.
	raw := map[string]float64{"x": 2}
	assert.Equal(t, raw, Apply("nope", raw))
}
