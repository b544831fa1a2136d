package model

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"relana/domain/core"
	"relana/domain/deficiency"
	"relana/domain/formula"
	"relana/domain/lattice"
	"relana/domain/probdistr"
)

type defs = []deficiency.Deficiency

func rel(from, to deficiency.Deficiency) lattice.Relation {
	return lattice.Relation{From: from, To: to}
}

func sclass(t *testing.T, spec SClassSpec) *SClass {
	t.Helper()
	c, err := NewSClass(spec)
	require.NoError(t, err)
	return c
}

// chainClass has A implying B.
func chainClass(t *testing.T) *SClass {
	return sclass(t, SClassSpec{Name: "Chain", Deficiencies: defs{"A", "B"}, Relations: []lattice.Relation{rel("A", "B")}})
}

func distrOf(t *testing.T, typ *lattice.Type, probs map[deficiency.Deficiency]string) *probdistr.Distr {
	t.Helper()
	m := make(map[deficiency.Deficiency]*big.Rat, len(probs))
	for d, s := range probs {
		p, err := probdistr.ParseProb(s)
		require.NoError(t, err)
		m[d] = p
	}
	d, err := probdistr.New(typ, m)
	require.NoError(t, err)
	return d
}

func boolDistr(t *testing.T, p string) *probdistr.Distr {
	return distrOf(t, lattice.Boolean(), map[deficiency.Deficiency]string{deficiency.Undet: p})
}

func randomBool(t *testing.T, name, p string) *EffectDecl {
	return &EffectDecl{Name: name, Class: Boolean(), Distr: boolDistr(t, p)}
}

func ref(name string, c *SClass) formula.DeclVar {
	return formula.DeclVar{Path: core.MustParsePath(name), Type: c.Type()}
}

func cclass(t *testing.T, spec CClassSpec) *CClass {
	t.Helper()
	c, err := NewCClass(spec)
	require.NoError(t, err)
	return c
}

func flatten(t *testing.T, c *CClass) *FlatCInstance {
	t.Helper()
	ci, err := c.Instantiate()
	require.NoError(t, err)
	return ci.Flatten()
}

func assertProb(t *testing.T, want string, got *big.Rat) {
	t.Helper()
	w, ok := new(big.Rat).SetString(want)
	require.True(t, ok)
	require.NotNil(t, got)
	require.Equal(t, 0, w.Cmp(got), "want %s, got %s", want, got.RatString())
}
