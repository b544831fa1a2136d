package project

import (
	"encoding/json"
	"math/big"

	"relana/domain/core"
)

// Result is the probability of one output effect.
type Result struct {
	Path core.Path
	Prob *big.Rat
}

// Float is Prob rounded to the nearest float64.
func (r Result) Float() float64 {
	f, _ := r.Prob.Float64()
	return f
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Path  string  `json:"path"`
		Exact string  `json:"exact"`
		Prob  float64 `json:"probability"`
	}{r.Path.String(), r.Prob.RatString(), r.Float()})
}

// Summary condenses the output probabilities of a report.
type Summary struct {
	Outputs int     `json:"outputs"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	StdDev  float64 `json:"std_dev"`
	// Entropy is the total entropy in nats of the outputs taken as
	// independent Bernoulli variables.
	Entropy float64 `json:"entropy"`
	// Riskiest is the output most likely to exhibit a deficiency.
	Riskiest string `json:"riskiest"`
}

// Report is the outcome of analysing a project.
type Report struct {
	ID        core.ID        `json:"id"`
	Project   string         `json:"project"`
	CreatedAt core.Timestamp `json:"created_at"`
	Results   []Result       `json:"results"`
	Warnings  []string       `json:"warnings"`
	Summary   *Summary       `json:"summary,omitempty"`
	// Fingerprint identifies the evaluated model by the types of its outputs.
	Fingerprint core.Hash `json:"fingerprint"`
}

// Result returns the result for path.
func (r *Report) Result(path core.Path) (Result, bool) {
	for _, res := range r.Results {
		if res.Path.Equal(path) {
			return res, true
		}
	}
	return Result{}, false
}
