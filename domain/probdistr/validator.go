package probdistr

import (
	"math/big"
	"sort"
	"strings"

	"relana/domain/core"
	"relana/domain/deficiency"
)

// Orientation selects the direction of the derivation.
type Orientation int

const (
	// Identity walks the type as declared: a deficiency occurs iff all
	// deficiencies it implies occur and its own conditional event occurs.
	Identity Orientation = iota
	// Inverted walks the inverse type with complemented probabilities.
	Inverted
)

func (o Orientation) String() string {
	if o == Inverted {
		return "inverted"
	}
	return "identity"
}

func (o Orientation) neighbours(d *Distr, def deficiency.Deficiency) deficiency.Set {
	if o == Inverted {
		return d.typ.Predecessors(def)
	}
	return d.typ.Successors(def)
}

func (o Orientation) filter(p *big.Rat) *big.Rat {
	if o == Inverted {
		return new(big.Rat).Sub(one, p)
	}
	return new(big.Rat).Set(p)
}

func (o Orientation) neg() string {
	if o == Inverted {
		return "~"
	}
	return ""
}

func (o Orientation) condName(def deficiency.Deficiency, below []string) string {
	if o == Inverted {
		return "OR[" + strings.Join(below, ",") + "]|~" + string(def)
	}
	return string(def) + "|AND[" + strings.Join(below, ",") + "]"
}

// Validator is the derivation of a distribution in one orientation.
type Validator struct {
	orientation Orientation

	// probability of every named event: deficiencies and conditional events
	probs map[string]*big.Rat
	// conditional probability of each deficiency given its neighbours
	cond map[deficiency.Deficiency]*big.Rat
	// names of the independent conditional events a deficiency decomposes into
	elementary map[deficiency.Deficiency][]string

	invalid    []string
	degenerate []string
}

// derive resolves the deficiencies of d's type from the ones without
// neighbours upwards, a deficiency once all its neighbours are resolved.
func derive(d *Distr, o Orientation) (*Validator, error) {
	v := &Validator{
		orientation: o,
		probs:       make(map[string]*big.Rat),
		cond:        make(map[deficiency.Deficiency]*big.Rat),
		elementary:  make(map[deficiency.Deficiency][]string),
	}

	pending := make(map[deficiency.Deficiency]map[deficiency.Deficiency]struct{})
	var stack []deficiency.Deficiency
	all := d.typ.Deficiencies().Sorted()
	for i := len(all) - 1; i >= 0; i-- {
		def := all[i]
		v.probs[string(def)] = o.filter(d.probs[def])
		neigh := o.neighbours(d, def)
		if neigh.IsEmpty() {
			stack = append(stack, def)
			continue
		}
		set := make(map[deficiency.Deficiency]struct{}, neigh.Len())
		neigh.Each(func(n deficiency.Deficiency) { set[n] = struct{}{} })
		pending[def] = set
	}

	for len(stack) > 0 {
		def := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		neigh := o.neighbours(d, def).Sorted()
		below := make([]string, len(neigh))
		elems := make(map[string]struct{})
		for i, n := range neigh {
			below[i] = o.neg() + string(n)
			for _, e := range v.elementary[n] {
				elems[e] = struct{}{}
			}
		}

		andProb := new(big.Rat).Set(one)
		names := make([]string, 0, len(elems)+1)
		for e := range elems {
			andProb.Mul(andProb, v.probs[e])
			names = append(names, e)
		}

		condName := o.condName(def, below)
		condProb := new(big.Rat).Quo(v.probs[string(def)], andProb)
		v.record(condName, condProb)
		v.cond[def] = condProb

		names = append(names, condName)
		sort.Strings(names)
		v.elementary[def] = names

		var ready []deficiency.Deficiency
		for p, waiting := range pending {
			if _, ok := waiting[def]; !ok {
				continue
			}
			delete(waiting, def)
			if len(waiting) == 0 {
				ready = append(ready, p)
			}
		}
		sort.Slice(ready, func(i, j int) bool { return ready[i] > ready[j] })
		for _, p := range ready {
			delete(pending, p)
			stack = append(stack, p)
		}
	}

	if len(pending) > 0 {
		left := make([]string, 0, len(pending))
		for p := range pending {
			left = append(left, string(p))
		}
		sort.Strings(left)
		return nil, core.NewDomainError(core.ErrCyclicRelation, "cannot resolve %s", strings.Join(left, ","))
	}
	return v, nil
}

func (v *Validator) record(name string, p *big.Rat) {
	v.probs[name] = p
	switch p.Cmp(one) {
	case 1:
		v.invalid = append(v.invalid, name+"="+p.FloatString(6))
	case 0:
		v.degenerate = append(v.degenerate, name)
	}
}

func (v *Validator) Orientation() Orientation { return v.orientation }

// Prob returns the probability of a named event.
func (v *Validator) Prob(name string) (*big.Rat, bool) {
	p, ok := v.probs[name]
	if !ok {
		return nil, false
	}
	return new(big.Rat).Set(p), true
}

// Conditional returns the probability of def given its neighbours.
func (v *Validator) Conditional(def deficiency.Deficiency) (*big.Rat, bool) {
	p, ok := v.cond[def]
	if !ok {
		return nil, false
	}
	return new(big.Rat).Set(p), true
}

// Elementary returns the conditional events def decomposes into.
func (v *Validator) Elementary(def deficiency.Deficiency) []string {
	return append([]string(nil), v.elementary[def]...)
}

// Invalid lists conditional events with probability above one.
func (v *Validator) Invalid() []string { return append([]string(nil), v.invalid...) }

// Degenerate lists conditional events with probability one.
func (v *Validator) Degenerate() []string { return append([]string(nil), v.degenerate...) }
