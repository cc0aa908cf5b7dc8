package score

import (
	"fmt"
	"math"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Counts holds the number of categorized sources per stance
type Counts struct {
	Supporting    int `json:"supporting"`
	Contradicting int `json:"contradicting"`
	Neutral       int `json:"neutral"`
}

// Total returns the number of counted sources
func (c Counts) Total() int {
	return c.Supporting + c.Contradicting + c.Neutral
}

// Breakdown is the stance distribution in percent, one decimal place.
// Agreement + Disagreement + Neutral is always exactly 100.0.
type Breakdown struct {
	Agreement    float64 `json:"agreement"`
	Disagreement float64 `json:"disagreement"`
	Neutral      float64 `json:"neutral"`
}

// Count tallies stance labels over all categorized sources. Unknown labels
// are counted as neutral.
func Count(sources []model.CategorizedSource) Counts {
	var c Counts
	for _, s := range sources {
		switch s.Relevance {
		case model.RelevanceSupporting:
			c.Supporting++
		case model.RelevanceContradicting:
			c.Contradicting++
		default:
			c.Neutral++
		}
	}
	return c
}

// Normalize converts stance counts into percentages that sum to exactly
// 100.0. Each share is rounded to one decimal independently; any rounding
// drift is added to the largest share, preferring agreement, then
// disagreement, then neutral on ties. With no sources everything is neutral.
func Normalize(c Counts) Breakdown {
	total := c.Total()
	if total <= 0 {
		return Breakdown{Neutral: 100}
	}

	// Work in tenths of a percent so the sum is exact
	shares := [3]int{
		tenths(c.Supporting, total),
		tenths(c.Contradicting, total),
		tenths(c.Neutral, total),
	}

	if residual := 1000 - (shares[0] + shares[1] + shares[2]); residual != 0 {
		shares[largest(shares)] += residual
	}

	return Breakdown{
		Agreement:    float64(shares[0]) / 10,
		Disagreement: float64(shares[1]) / 10,
		Neutral:      float64(shares[2]) / 10,
	}
}

// Verify checks the sum-to-100 invariant of a breakdown
func Verify(b Breakdown) error {
	a, d, n := toTenths(b.Agreement), toTenths(b.Disagreement), toTenths(b.Neutral)
	for _, v := range []int{a, d, n} {
		if v < 0 || v > 1000 {
			return fmt.Errorf("percentage out of range: %.1f/%.1f/%.1f", b.Agreement, b.Disagreement, b.Neutral)
		}
	}
	if sum := a + d + n; sum != 1000 {
		return fmt.Errorf("percentages sum to %.1f, not 100.0", float64(sum)/10)
	}
	return nil
}

// Accuracy clamps a model-reported accuracy score to [0,100] with one
// decimal place
func Accuracy(raw float64) float64 {
	if math.IsNaN(raw) || raw < 0 {
		return 0
	}
	if raw > 100 {
		return 100
	}
	return float64(toTenths(raw)) / 10
}

// tenths returns round(1000*part/total) using integer arithmetic, halves up
func tenths(part, total int) int {
	return (2000*part + total) / (2 * total)
}

func toTenths(v float64) int {
	return int(math.Round(v * 10))
}

// largest returns the index of the biggest share; earlier indexes win ties
func largest(shares [3]int) int {
	idx := 0
	for i := 1; i < len(shares); i++ {
		if shares[i] > shares[idx] {
			idx = i
		}
	}
	return idx
}
