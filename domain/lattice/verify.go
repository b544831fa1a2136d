package lattice

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"relana/domain/core"
	"relana/domain/deficiency"
)

// Verify checks that t is acyclic and, if unique is set, that it has exactly
// one minimal and one maximal deficiency, as declared effect classes must.
func (t *Type) Verify(unique bool) error {
	if t.IsEmpty() {
		return core.NewLatticeError("no deficiencies found")
	}
	if cycle := t.Cycle(); len(cycle) > 0 {
		return core.NewDomainError(core.ErrCyclicRelation, "deficiencies %v cyclically related", cycle)
	}
	if !unique {
		return nil
	}
	if t.min.Len() != 1 {
		return core.NewDomainError(core.ErrNotUnique, "minimal element not unique: %s", t.min)
	}
	if t.max.Len() != 1 {
		return core.NewDomainError(core.ErrNotUnique, "maximal element not unique: %s", t.max)
	}
	return nil
}

// Cycle returns the deficiencies of one implication cycle, or nil.
func (t *Type) Cycle() []deficiency.Deficiency {
	defs := t.all.Sorted()
	ids := make(map[deficiency.Deficiency]int64, len(defs))
	g := simple.NewDirectedGraph()
	for i, d := range defs {
		ids[d] = int64(i)
		g.AddNode(simple.Node(i))
	}
	for _, r := range t.Relations() {
		g.SetEdge(g.NewEdge(simple.Node(ids[r.From]), simple.Node(ids[r.To])))
	}
	_, err := topo.Sort(g)
	if err == nil {
		return nil
	}
	unorderable, ok := err.(topo.Unorderable)
	if !ok || len(unorderable) == 0 {
		return nil
	}
	return namesOf(unorderable[0], defs)
}

func namesOf(nodes []graph.Node, defs []deficiency.Deficiency) []deficiency.Deficiency {
	res := make([]deficiency.Deficiency, 0, len(nodes))
	for _, n := range nodes {
		res = append(res, defs[n.ID()])
	}
	sort.Slice(res, func(i, j int) bool { return strings.Compare(string(res[i]), string(res[j])) < 0 })
	return res
}
