package probdistr

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relana/domain/core"
	"relana/domain/deficiency"
	"relana/domain/lattice"
)

func rat(t *testing.T, s string) *big.Rat {
	t.Helper()
	p, err := ParseProb(s)
	require.NoError(t, err)
	return p
}

func assertRat(t *testing.T, want string, got *big.Rat) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, 0, rat(t, want).Cmp(got), "want %s, got %s", want, got.RatString())
}

// chainAB is A implies B.
func chainAB(t *testing.T) *lattice.Type {
	t.Helper()
	typ, err := lattice.New([]deficiency.Deficiency{"A", "B"}, []lattice.Relation{{From: "A", To: "B"}})
	require.NoError(t, err)
	return typ
}

func distr(t *testing.T, typ *lattice.Type, probs map[deficiency.Deficiency]string) *Distr {
	t.Helper()
	m := make(map[deficiency.Deficiency]*big.Rat, len(probs))
	for d, s := range probs {
		m[d] = rat(t, s)
	}
	res, err := New(typ, m)
	require.NoError(t, err)
	return res
}

func TestNewRejectsBadProbabilities(t *testing.T) {
	typ := chainAB(t)
	tests := []struct {
		name  string
		probs map[deficiency.Deficiency]*big.Rat
		want  error
	}{
		{name: "zero", probs: map[deficiency.Deficiency]*big.Rat{"A": big.NewRat(0, 1), "B": big.NewRat(1, 2)}, want: core.ErrProbabilityOutside},
		{name: "one", probs: map[deficiency.Deficiency]*big.Rat{"A": big.NewRat(1, 1), "B": big.NewRat(1, 2)}, want: core.ErrProbabilityOutside},
		{name: "unknown deficiency", probs: map[deficiency.Deficiency]*big.Rat{"A": big.NewRat(1, 4), "B": big.NewRat(1, 2), "C": big.NewRat(1, 2)}, want: core.ErrUnknownDeficiency},
		{name: "missing deficiency", probs: map[deficiency.Deficiency]*big.Rat{"A": big.NewRat(1, 4)}, want: core.ErrDistributionValidity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(typ, tt.probs)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := ParseProb("often")
	assert.True(t, core.IsDistributionError(err))
}

func TestProb(t *testing.T) {
	d := distr(t, chainAB(t), map[deficiency.Deficiency]string{"A": "0.2", "B": "1/2"})

	p, err := d.Prob("A")
	require.NoError(t, err)
	assertRat(t, "0.2", p)

	// returned values are copies
	p.SetInt64(7)
	p, err = d.Prob("A")
	require.NoError(t, err)
	assertRat(t, "0.2", p)

	_, err = d.Prob("Z")
	assert.ErrorIs(t, err, core.ErrUnknownDeficiency)
}

func TestDerivation(t *testing.T) {
	d := distr(t, chainAB(t), map[deficiency.Deficiency]string{"A": "0.2", "B": "0.5"})

	id, err := d.Validator(Identity)
	require.NoError(t, err)
	p, ok := id.Prob("B|AND[]")
	require.True(t, ok)
	assertRat(t, "0.5", p)
	p, ok = id.Prob("A|AND[B]")
	require.True(t, ok)
	assertRat(t, "0.4", p)
	assert.Equal(t, []string{"A|AND[B]", "B|AND[]"}, id.Elementary("A"))

	inv, err := d.Validator(Inverted)
	require.NoError(t, err)
	p, ok = inv.Prob("OR[]|~A")
	require.True(t, ok)
	assertRat(t, "0.8", p)
	p, ok = inv.Conditional("B")
	require.True(t, ok)
	assertRat(t, "0.625", p)
	_, ok = inv.Prob("OR[~A]|~B")
	assert.True(t, ok)

	cond, err := d.CondProb("A")
	require.NoError(t, err)
	assertRat(t, "0.4", cond)
	cond, err = d.CondProb("B")
	require.NoError(t, err)
	assertRat(t, "0.5", cond)

	val, err := d.Validate()
	require.NoError(t, err)
	assert.Empty(t, val.Degenerate)
}

func TestValidateRejectsDerivedProbabilityAboveOne(t *testing.T) {
	d := distr(t, chainAB(t), map[deficiency.Deficiency]string{"A": "0.535", "B": "0.5"})

	id, err := d.Validator(Identity)
	require.NoError(t, err)
	p, _ := id.Conditional("A")
	assertRat(t, "1.07", p)
	assert.Equal(t, []string{"A|AND[B]=1.070000"}, id.Invalid())

	_, err = d.Validate()
	require.Error(t, err)
	assert.True(t, core.IsDistributionError(err))
	assert.Contains(t, err.Error(), "1.07")
}

func TestValidateReportsDegenerate(t *testing.T) {
	d := distr(t, chainAB(t), map[deficiency.Deficiency]string{"A": "0.5", "B": "0.5"})

	val, err := d.Validate()
	require.NoError(t, err)
	assert.Equal(t, []string{"A|AND[B]", "OR[~A]|~B"}, val.Degenerate)
}

func TestDiamondSharesElementaryEvents(t *testing.T) {
	// T implies L and R, both imply B
	typ, err := lattice.New([]deficiency.Deficiency{"T", "L", "R", "B"}, []lattice.Relation{
		{From: "T", To: "L"}, {From: "T", To: "R"}, {From: "L", To: "B"}, {From: "R", To: "B"},
	})
	require.NoError(t, err)
	d := distr(t, typ, map[deficiency.Deficiency]string{"B": "0.5", "L": "0.25", "R": "0.25", "T": "0.0625"})

	id, err := d.Validator(Identity)
	require.NoError(t, err)
	// B once, then L|AND[B] and R|AND[B] at 1/2 each
	p, _ := id.Conditional("T")
	assertRat(t, "0.5", p)
	assert.Len(t, id.Elementary("T"), 4)
}

func TestComposite(t *testing.T) {
	inner, err := lattice.New([]deficiency.Deficiency{"LEAK", "DRIP"}, []lattice.Relation{{From: "LEAK", To: "DRIP"}})
	require.NoError(t, err)
	innerDistr := distr(t, inner, map[deficiency.Deficiency]string{"LEAK": "0.1", "DRIP": "0.3"})

	outer, err := lattice.New([]deficiency.Deficiency{"HIGH", "LEAK", "DRIP"}, []lattice.Relation{
		{From: "HIGH", To: "LEAK"}, {From: "LEAK", To: "DRIP"},
	})
	require.NoError(t, err)

	d, err := NewComposite(outer, map[deficiency.Deficiency]*big.Rat{"HIGH": rat(t, "0.05")}, []*Distr{innerDistr})
	require.NoError(t, err)
	p, err := d.Prob("DRIP")
	require.NoError(t, err)
	assertRat(t, "0.3", p)
	assert.Same(t, outer, d.Type())
	assert.Equal(t, "Distr{DRIP=0.300000 HIGH=0.050000 LEAK=0.100000}", d.String())
}
