package model

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"relana/domain/core"
	"relana/domain/deficiency"
	"relana/domain/formula"
	"relana/domain/lattice"
	"relana/domain/probdistr"
)

// diamondConds are the conditional probabilities of a diamond lattice in
// which D implies X and Y, and both imply Z.
type diamondConds struct {
	z, x, y, d *big.Rat
}

func newDiamondConds(z, x, y, d int) diamondConds {
	return diamondConds{big.NewRat(int64(z), 10), big.NewRat(int64(x), 10), big.NewRat(int64(y), 10), big.NewRat(int64(d), 10)}
}

func mulRat(a, b *big.Rat) *big.Rat { return new(big.Rat).Mul(a, b) }

func (c diamondConds) distr(typ *lattice.Type) (*probdistr.Distr, error) {
	x := mulRat(c.z, c.x)
	y := mulRat(c.z, c.y)
	return probdistr.New(typ, map[deficiency.Deficiency]*big.Rat{
		"Z": c.z,
		"X": x,
		"Y": y,
		"D": mulRat(mulRat(x, c.y), c.d),
	})
}

type outcome struct {
	set deficiency.Set
	p   *big.Rat
}

// outcomes enumerates the independent conditional events of the lattice.
func (c diamondConds) outcomes() []outcome {
	one := big.NewRat(1, 1)
	res := make([]outcome, 0, 16)
	for mask := 0; mask < 16; mask++ {
		p := big.NewRat(1, 1)
		draw := func(bit uint, q *big.Rat) bool {
			if mask&(1<<bit) != 0 {
				p.Mul(p, q)
				return true
			}
			p.Mul(p, new(big.Rat).Sub(one, q))
			return false
		}
		ez, ex, ey, ed := draw(0, c.z), draw(1, c.x), draw(2, c.y), draw(3, c.d)
		set := deficiency.NewSet()
		if ez {
			set = set.With("Z")
			if ex {
				set = set.With("X")
			}
			if ey {
				set = set.With("Y")
			}
			if ex && ey && ed {
				set = set.With("D")
			}
		}
		res = append(res, outcome{set, p})
	}
	return res
}

// enumerate sums the probability of every joint outcome of two independent
// diamonds for which holds is true.
func enumerate(cx, cy diamondConds, holds func(x, y deficiency.Set) bool) *big.Rat {
	sum := new(big.Rat)
	for _, ox := range cx.outcomes() {
		for _, oy := range cy.outcomes() {
			if holds(ox.set, oy.set) {
				sum.Add(sum, mulRat(ox.p, oy.p))
			}
		}
	}
	return sum
}

var diamondChecks = map[string]func(x, y deficiency.Set) bool{
	"x":         func(x, _ deficiency.Set) bool { return !x.IsEmpty() },
	"nx":        func(x, _ deficiency.Set) bool { return x.Len() < 4 },
	"both":      func(x, y deficiency.Set) bool { return !x.Intersect(y).IsEmpty() },
	"either":    func(x, y deficiency.Set) bool { return !x.Union(y).IsEmpty() },
	"notBoth":   func(x, y deficiency.Set) bool { return x.Intersect(y).Len() < 4 },
	"notEither": func(x, y deficiency.Set) bool { return x.Union(y).Len() < 4 },
}

func diamondTypes() (diamond, flipped SClassSpec) {
	all := defs{"D", "X", "Y", "Z"}
	diamond = SClassSpec{Name: "Diamond", Deficiencies: all,
		Relations: []lattice.Relation{rel("D", "X"), rel("D", "Y"), rel("X", "Z"), rel("Y", "Z")}}
	flipped = SClassSpec{Name: "Flipped", Deficiencies: all,
		Relations: []lattice.Relation{rel("X", "D"), rel("Y", "D"), rel("Z", "X"), rel("Z", "Y")}}
	return diamond, flipped
}

// diamondSystem declares two independent diamonds x and y and the effects
// named in diamondChecks.
func diamondSystem(cx, cy diamondConds) (*FlatCInstance, error) {
	ds, fs := diamondTypes()
	diamond, err := NewSClass(ds)
	if err != nil {
		return nil, err
	}
	flipped, err := NewSClass(fs)
	if err != nil {
		return nil, err
	}
	px, err := cx.distr(diamond.Type())
	if err != nil {
		return nil, err
	}
	py, err := cy.distr(diamond.Type())
	if err != nil {
		return nil, err
	}
	comp := func(op formula.Operation, args ...formula.Decl) formula.DeclComp {
		return formula.DeclComp{Op: op, Args: args}
	}
	x, y := ref("x", diamond), ref("y", diamond)
	c, err := NewCClass(CClassSpec{Name: "Pair", Effects: []*EffectDecl{
		{Name: "x", Output: true, Class: diamond, Distr: px},
		{Name: "y", Output: true, Class: diamond, Distr: py},
		{Name: "nx", Output: true, Class: flipped, Formula: comp(formula.Complement{}, x)},
		{Name: "both", Output: true, Class: diamond, Formula: comp(formula.Intersection{}, x, y)},
		{Name: "either", Output: true, Class: diamond, Formula: comp(formula.Union{}, x, y)},
		{Name: "notBoth", Output: true, Class: flipped, Formula: comp(formula.Complement{}, comp(formula.Intersection{}, x, y))},
		{Name: "notEither", Output: true, Class: flipped, Formula: comp(formula.Complement{}, comp(formula.Union{}, x, y))},
	}})
	if err != nil {
		return nil, err
	}
	ci, err := c.Instantiate()
	if err != nil {
		return nil, err
	}
	return ci.Flatten(), nil
}

func TestProbOnDiamond(t *testing.T) {
	half := newDiamondConds(5, 5, 5, 5)
	f, err := diamondSystem(half, half)
	require.NoError(t, err)

	// P(Z)=1/2, P(X)=P(Y)=1/4, P(D)=1/16
	tests := map[string]string{
		"x":         "1/2",
		"nx":        "15/16",
		"both":      "1/4",
		"either":    "3/4",
		"notBoth":   "255/256",
		"notEither": "225/256",
	}
	for path, want := range tests {
		t.Run(path, func(t *testing.T) {
			assertProb(t, want, probAt(t, f, path))
			assertProb(t, want, enumerate(half, half, diamondChecks[path]))
		})
	}
}

func TestEngineProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	properties := gopter.NewProperties(parameters)
	cond := gen.IntRange(1, 9)

	properties.Property("exact probabilities agree with enumeration", prop.ForAll(
		func(xz, xx, xy, xd, yz, yx, yy, yd int) bool {
			cx, cy := newDiamondConds(xz, xx, xy, xd), newDiamondConds(yz, yx, yy, yd)
			f, err := diamondSystem(cx, cy)
			if err != nil {
				t.Logf("building diamonds: %v", err)
				return false
			}
			for path, holds := range diamondChecks {
				got, err := f.Prob(core.Path{path})
				if err != nil {
					t.Logf("%s: %v", path, err)
					return false
				}
				if want := enumerate(cx, cy, holds); got.Cmp(want) != 0 {
					t.Logf("%s: got %s, enumeration gives %s", path, got.RatString(), want.RatString())
					return false
				}
			}
			return true
		},
		cond, cond, cond, cond, cond, cond, cond, cond,
	))

	properties.Property("first split obeys total probability", prop.ForAll(
		func(z, x, y, d int) bool {
			c := newDiamondConds(z, x, y, d)
			f, err := diamondSystem(c, c)
			if err != nil {
				return false
			}
			path := core.Path{"notEither"}
			s, err := f.Effect(path)
			if err != nil {
				return false
			}
			random, _, err := f.ground(s.Formula())
			if err != nil || random == nil {
				return false
			}
			first := random.Type().Min().Sorted()[0]
			p, err := random.Distr().CondProb(first)
			if err != nil {
				return false
			}
			occurs, err := f.Condition(random, first, true)
			if err != nil {
				return false
			}
			absent, err := f.Condition(random, first, false)
			if err != nil {
				return false
			}
			whole, err1 := f.Prob(path)
			pOcc, err2 := occurs.Prob(path)
			pAbs, err3 := absent.Prob(path)
			if err1 != nil || err2 != nil || err3 != nil {
				return false
			}
			return whole.Cmp(Combine(p, pOcc, pAbs)) == 0
		},
		cond, cond, cond, cond,
	))

	properties.TestingRun(t)
}
