// Package probdistr holds the probability distributions attached to random
// effects and the derivation of the conditional probabilities they imply.
//
// Probabilities are exact rationals. A distribution assigns every deficiency
// of its type the probability that it occurs. Since an occurring deficiency
// brings all deficiencies it implies, those figures are not independent: the
// derivation in validator.go factors them into independent elementary events.
package probdistr

import (
	"math/big"
	"sort"
	"strings"
	"sync"

	"relana/domain/core"
	"relana/domain/deficiency"
	"relana/domain/lattice"
)

var (
	zero = big.NewRat(0, 1)
	one  = big.NewRat(1, 1)
)

// Distr is an immutable probability distribution over a Type.
type Distr struct {
	typ   *lattice.Type
	probs map[deficiency.Deficiency]*big.Rat

	once       sync.Once
	validators [2]*Validator
	derivErr   error
}

// New builds a distribution. Every deficiency of typ needs a probability in
// the open interval (0,1).
func New(typ *lattice.Type, probs map[deficiency.Deficiency]*big.Rat) (*Distr, error) {
	return NewComposite(typ, probs, nil)
}

// NewComposite builds a distribution for a type refined by inner classes:
// the probabilities of the inner distributions are merged with probs.
func NewComposite(typ *lattice.Type, probs map[deficiency.Deficiency]*big.Rat, inner []*Distr) (*Distr, error) {
	merged := make(map[deficiency.Deficiency]*big.Rat, typ.Size())
	for _, in := range inner {
		for d, p := range in.probs {
			merged[d] = p
		}
	}
	for d, p := range probs {
		if p == nil {
			return nil, core.NewDistributionError("no probability given for %s", d)
		}
		if p.Cmp(zero) <= 0 || p.Cmp(one) >= 0 {
			return nil, core.NewDomainError(core.ErrProbabilityOutside,
				"probability %s of %s is not in (0,1)", p.RatString(), d)
		}
		merged[d] = new(big.Rat).Set(p)
	}
	for d := range merged {
		if !typ.Contains(d) {
			return nil, core.NewDomainError(core.ErrUnknownDeficiency, "probability given for %s not in %s", d, typ)
		}
	}
	var missing []string
	typ.Deficiencies().Each(func(d deficiency.Deficiency) {
		if _, ok := merged[d]; !ok {
			missing = append(missing, string(d))
		}
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, core.NewDistributionError("no probability for %s in %s", strings.Join(missing, ","), typ)
	}
	return &Distr{typ: typ, probs: merged}, nil
}

// ParseProb reads a probability written as a decimal or a fraction.
func ParseProb(s string) (*big.Rat, error) {
	p, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return nil, core.NewDistributionError("cannot read probability %q", s)
	}
	return p, nil
}

func (d *Distr) Type() *lattice.Type { return d.typ }

// Prob returns the probability that def occurs.
func (d *Distr) Prob(def deficiency.Deficiency) (*big.Rat, error) {
	p, ok := d.probs[def]
	if !ok {
		return nil, core.NewDomainError(core.ErrUnknownDeficiency, "no probability for %s", def)
	}
	return new(big.Rat).Set(p), nil
}

// CondProb returns the probability that def occurs given that everything
// def implies has occurred. For a minimal deficiency it equals Prob.
func (d *Distr) CondProb(def deficiency.Deficiency) (*big.Rat, error) {
	v, err := d.Validator(Identity)
	if err != nil {
		return nil, err
	}
	p, ok := v.cond[def]
	if !ok {
		return nil, core.NewDomainError(core.ErrUnknownDeficiency, "no probability for %s", def)
	}
	return new(big.Rat).Set(p), nil
}

// Validator returns the derivation for the given orientation.
func (d *Distr) Validator(o Orientation) (*Validator, error) {
	d.once.Do(func() {
		for _, or := range []Orientation{Identity, Inverted} {
			v, err := derive(d, or)
			if err != nil {
				d.derivErr = err
				return
			}
			d.validators[or] = v
		}
	})
	if d.derivErr != nil {
		return nil, d.derivErr
	}
	return d.validators[o], nil
}

// Validation lists the findings that do not make a distribution unusable.
type Validation struct {
	// Degenerate names conditional events of probability exactly one.
	Degenerate []string
}

// Validate derives both orientations. A conditional probability above one
// is an error; one equal to one is reported as degenerate.
func (d *Distr) Validate() (*Validation, error) {
	res := &Validation{}
	for _, o := range []Orientation{Identity, Inverted} {
		v, err := d.Validator(o)
		if err != nil {
			return nil, err
		}
		if len(v.invalid) > 0 {
			return nil, core.NewDistributionError("%s orientation invalid: %s", o, strings.Join(v.invalid, ", "))
		}
		res.Degenerate = append(res.Degenerate, v.degenerate...)
	}
	return res, nil
}

func (d *Distr) String() string {
	names := d.typ.Deficiencies().Sorted()
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n) + "=" + d.probs[n].FloatString(6)
	}
	return "Distr{" + strings.Join(parts, " ") + "}"
}
