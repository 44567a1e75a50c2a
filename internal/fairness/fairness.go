// Package fairness runs offline goodness-of-fit checks against a
// random source. It samples at volume and applies Pearson's chi-square
// test against the uniform expectation; it is O(sampleSize) by design
// and never sits on the per-roll hot path.
package fairness

import (
	"errors"
	"fmt"

	"github.com/louisbranch/dice-engine/internal/random"
)

// DefaultAlpha is the default significance threshold. A report passes
// when its p-value exceeds alpha.
const DefaultAlpha = 0.01

// ErrInvalidSides indicates a die shape the test cannot score.
var ErrInvalidSides = errors.New("fairness check requires at least two sides")

// ErrSampleTooSmall indicates too few draws for the expected
// frequencies to be meaningful.
var ErrSampleTooSmall = errors.New("sample size must be at least five draws per face")

// Report is the outcome of a single goodness-of-fit run.
type Report struct {
	Sides            int     `json:"sides"`
	SampleSize       int     `json:"sample_size"`
	ChiSquare        float64 `json:"chi_square"`
	DegreesOfFreedom int     `json:"degrees_of_freedom"`
	PValue           float64 `json:"p_value"`
	Alpha            float64 `json:"alpha"`
	Passed           bool    `json:"passed"`
	// Observed is the frequency histogram; index i counts face i+1.
	Observed []int `json:"observed,omitempty"`
}

// Validate samples the source and scores it at DefaultAlpha.
func Validate(src random.Source, sides, sampleSize int) (Report, error) {
	return ValidateWithAlpha(src, sides, sampleSize, DefaultAlpha)
}

// ValidateWithAlpha draws sampleSize values in [1, sides], builds the
// observed histogram, computes Pearson's chi-square statistic against
// the uniform expectation sampleSize/sides, and compares the p-value
// against alpha.
//
// Hypothesis tests are flaky by construction: a fair source fails
// roughly alpha of the time. Callers comparing repeated runs should
// budget for that.
func ValidateWithAlpha(src random.Source, sides, sampleSize int, alpha float64) (Report, error) {
	if src == nil {
		return Report{}, fmt.Errorf("random source is required")
	}
	if sides < 2 {
		return Report{}, ErrInvalidSides
	}
	if sampleSize < 5*sides {
		return Report{}, ErrSampleTooSmall
	}
	if alpha <= 0 || alpha >= 1 {
		return Report{}, fmt.Errorf("alpha must be in (0, 1), got %g", alpha)
	}

	observed := make([]int, sides)
	for i := 0; i < sampleSize; i++ {
		value, err := src.Next(sides)
		if err != nil {
			return Report{}, fmt.Errorf("draw sample %d: %w", i, err)
		}
		if value < 1 || value > sides {
			return Report{}, fmt.Errorf("sample %d: source returned %d, outside [1, %d]", i, value, sides)
		}
		observed[value-1]++
	}

	expected := float64(sampleSize) / float64(sides)
	chiSquare := 0.0
	for _, count := range observed {
		diff := float64(count) - expected
		chiSquare += diff * diff / expected
	}

	df := sides - 1
	pValue := chiSquareSurvival(chiSquare, df)

	return Report{
		Sides:            sides,
		SampleSize:       sampleSize,
		ChiSquare:        chiSquare,
		DegreesOfFreedom: df,
		PValue:           pValue,
		Alpha:            alpha,
		Passed:           pValue > alpha,
		Observed:         observed,
	}, nil
}
