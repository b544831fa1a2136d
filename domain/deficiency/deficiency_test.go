package deficiency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetOperationsArePersistent(t *testing.T) {
	a := NewSet("A", "B")
	b := NewSet("B", "C")

	union := a.Union(b)
	inter := a.Intersect(b)
	minus := a.Minus(b)

	assert.Equal(t, []Deficiency{"A", "B", "C"}, union.Sorted())
	assert.Equal(t, []Deficiency{"B"}, inter.Sorted())
	assert.Equal(t, []Deficiency{"A"}, minus.Sorted())

	// operands untouched
	assert.Equal(t, "{A,B}", a.String())
	assert.Equal(t, "{B,C}", b.String())
}

func TestSetPredicates(t *testing.T) {
	tests := []struct {
		name       string
		s, other   Set
		subset     bool
		intersects bool
		equal      bool
	}{
		{name: "empty in empty", s: Set{}, other: Set{}, subset: true, equal: true},
		{name: "empty in any", s: Set{}, other: NewSet("A"), subset: true},
		{name: "proper subset", s: NewSet("A"), other: NewSet("A", "B"), subset: true, intersects: true},
		{name: "disjoint", s: NewSet("A"), other: NewSet("B")},
		{name: "equal", s: NewSet("A", "B"), other: NewSet("B", "A"), subset: true, intersects: true, equal: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.subset, tt.s.SubsetOf(tt.other))
			assert.Equal(t, tt.intersects, tt.s.Intersects(tt.other))
			assert.Equal(t, tt.equal, tt.s.Equal(tt.other))
		})
	}
}

func TestWithWithout(t *testing.T) {
	s := NewSet(Undet)
	assert.True(t, s.With("A").Contains("A"))
	assert.False(t, s.Contains("A"))
	assert.True(t, s.Without(Undet).IsEmpty())
	assert.Equal(t, 1, s.Len())

	var zero Set
	assert.True(t, zero.IsEmpty())
	assert.Equal(t, "{}", zero.String())
	assert.Equal(t, []string{"A"}, zero.With("A").Names())
}
