// Package report condenses and renders analysis reports.
package report

import (
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"relana/domain/project"
)

// Summarize computes summary statistics over the output probabilities.
func Summarize(results []project.Result) (*project.Summary, error) {
	if len(results) == 0 {
		return &project.Summary{}, nil
	}
	data := make(stats.Float64Data, len(results))
	riskiest := 0
	for i, r := range results {
		data[i] = r.Float()
		if data[i] > data[riskiest] {
			riskiest = i
		}
	}

	s := &project.Summary{Outputs: len(results), Riskiest: results[riskiest].Path.String()}
	var err error
	if s.Min, err = stats.Min(data); err != nil {
		return nil, err
	}
	if s.Max, err = stats.Max(data); err != nil {
		return nil, err
	}
	if s.Mean, err = stats.Mean(data); err != nil {
		return nil, err
	}
	if s.Median, err = stats.Median(data); err != nil {
		return nil, err
	}
	if s.StdDev, err = stats.StandardDeviation(data); err != nil {
		return nil, err
	}
	for _, p := range data {
		s.Entropy += Spread(p).Entropy
	}
	return s, nil
}

// Dispersion describes an output as a Bernoulli variable.
type Dispersion struct {
	StdDev  float64
	Entropy float64
}

// Spread returns the dispersion of a Bernoulli variable with success
// probability p. Certain outcomes have none.
func Spread(p float64) Dispersion {
	if p <= 0 || p >= 1 {
		return Dispersion{}
	}
	b := distuv.Bernoulli{P: p}
	return Dispersion{StdDev: b.StdDev(), Entropy: b.Entropy()}
}
