// Package lattice implements Type, the implication order over the
// deficiencies an effect may exhibit.
//
// A Type is a finite directed graph: the successors of a deficiency are the
// deficiencies it implies. A set of deficiencies is a legal value of the
// Type iff it is closed under successors. Types are immutable; every edit
// returns a fresh Type.
package lattice

import (
	"fmt"
	"strings"

	"relana/domain/core"
	"relana/domain/deficiency"
)

// Relation states that From implies To, i.e. To is a successor of From.
type Relation struct {
	From deficiency.Deficiency
	To   deficiency.Deficiency
}

func (r Relation) String() string {
	return fmt.Sprintf("%s==>%s", r.From, r.To)
}

type node struct {
	preds deficiency.Set
	succs deficiency.Set
}

// Type is an implication order over deficiencies.
type Type struct {
	nodes map[deficiency.Deficiency]node
	all   deficiency.Set
	min   deficiency.Set
	max   deficiency.Set
}

var (
	emptyType   = mustNew(nil, nil)
	booleanType = mustNew([]deficiency.Deficiency{deficiency.Undet}, nil)
)

// Empty returns the type without deficiencies.
func Empty() *Type { return emptyType }

// Boolean returns the type of a boolean effect: the single deficiency UNDET.
func Boolean() *Type { return booleanType }

// New builds a type from its deficiencies and implications. Every relation
// endpoint must be among defs.
func New(defs []deficiency.Deficiency, rels []Relation) (*Type, error) {
	nodes := make(map[deficiency.Deficiency]node, len(defs))
	for _, d := range defs {
		if d == "" {
			return nil, core.NewLatticeError("empty deficiency name")
		}
		nodes[d] = node{}
	}
	for _, r := range rels {
		if _, ok := nodes[r.From]; !ok {
			return nil, core.NewLatticeError("relation %s refers to unknown deficiency %s", r, r.From)
		}
		if _, ok := nodes[r.To]; !ok {
			return nil, core.NewLatticeError("relation %s refers to unknown deficiency %s", r, r.To)
		}
		if r.From == r.To {
			return nil, core.NewDomainError(core.ErrCyclicRelation, "deficiency %s related with itself", r.From)
		}
		link(nodes, r.From, r.To)
	}
	return build(nodes), nil
}

func mustNew(defs []deficiency.Deficiency, rels []Relation) *Type {
	t, err := New(defs, rels)
	if err != nil {
		panic(err)
	}
	return t
}

func link(nodes map[deficiency.Deficiency]node, from, to deficiency.Deficiency) {
	f := nodes[from]
	f.succs = f.succs.With(to)
	nodes[from] = f
	t := nodes[to]
	t.preds = t.preds.With(from)
	nodes[to] = t
}

// build freezes nodes into a Type, computing the extremal sets.
func build(nodes map[deficiency.Deficiency]node) *Type {
	var all, min, max []deficiency.Deficiency
	for d, n := range nodes {
		all = append(all, d)
		if n.succs.IsEmpty() {
			min = append(min, d)
		}
		if n.preds.IsEmpty() {
			max = append(max, d)
		}
	}
	return &Type{
		nodes: nodes,
		all:   deficiency.NewSet(all...),
		min:   deficiency.NewSet(min...),
		max:   deficiency.NewSet(max...),
	}
}

func (t *Type) copyNodes() map[deficiency.Deficiency]node {
	res := make(map[deficiency.Deficiency]node, len(t.nodes))
	for d, n := range t.nodes {
		res[d] = n
	}
	return res
}

// Deficiencies returns the set of all deficiencies of t.
func (t *Type) Deficiencies() deficiency.Set { return t.all }

func (t *Type) Size() int { return len(t.nodes) }

func (t *Type) IsEmpty() bool { return len(t.nodes) == 0 }

func (t *Type) Contains(d deficiency.Deficiency) bool {
	_, ok := t.nodes[d]
	return ok
}

// Min returns the deficiencies without successors.
func (t *Type) Min() deficiency.Set { return t.min }

// Max returns the deficiencies without predecessors.
func (t *Type) Max() deficiency.Set { return t.max }

// Successors returns the deficiencies immediately implied by d.
func (t *Type) Successors(d deficiency.Deficiency) deficiency.Set { return t.nodes[d].succs }

// Predecessors returns the deficiencies immediately implying d.
func (t *Type) Predecessors(d deficiency.Deficiency) deficiency.Set { return t.nodes[d].preds }

// IsValid reports whether set is a legal value: all members belong to t and
// the set is closed under successors.
func (t *Type) IsValid(set deficiency.Set) bool {
	valid := true
	set.Each(func(d deficiency.Deficiency) {
		n, ok := t.nodes[d]
		if !ok || !n.succs.SubsetOf(set) {
			valid = false
		}
	})
	return valid
}

// Cone returns every deficiency reachable from d via successors, d included.
func (t *Type) Cone(d deficiency.Deficiency) (deficiency.Set, error) {
	if !t.Contains(d) {
		return deficiency.Set{}, core.NewDomainError(core.ErrUnknownDeficiency, "%s not in type %s", d, t)
	}
	return t.closure(d, func(n node) deficiency.Set { return n.succs }), nil
}

func (t *Type) closure(d deficiency.Deficiency, next func(node) deficiency.Set) deficiency.Set {
	seen := map[deficiency.Deficiency]struct{}{d: {}}
	res := []deficiency.Deficiency{d}
	stack := []deficiency.Deficiency{d}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		next(t.nodes[cur]).Each(func(s deficiency.Deficiency) {
			if _, ok := seen[s]; ok {
				return
			}
			seen[s] = struct{}{}
			res = append(res, s)
			stack = append(stack, s)
		})
	}
	return deficiency.NewSet(res...)
}

// Implies reports whether d2 is reachable from d1. d1 must belong to t.
func (t *Type) Implies(d1, d2 deficiency.Deficiency) (bool, error) {
	cone, err := t.Cone(d1)
	if err != nil {
		return false, err
	}
	return cone.Contains(d2), nil
}

// Remove drops a minimal deficiency. This is the type seen after d is known
// to occur.
func (t *Type) Remove(d deficiency.Deficiency) (*Type, error) {
	n, ok := t.nodes[d]
	if !ok {
		return nil, core.NewDomainError(core.ErrUnknownDeficiency, "cannot remove %s: not present in type %s", d, t)
	}
	if !n.succs.IsEmpty() {
		return nil, core.NewDomainError(core.ErrNotMinimal, "cannot remove %s: %s are below", d, n.succs)
	}
	nodes := t.copyNodes()
	delete(nodes, d)
	n.preds.Each(func(p deficiency.Deficiency) {
		pn := nodes[p]
		pn.succs = pn.succs.Without(d)
		nodes[p] = pn
	})
	return build(nodes), nil
}

// RemoveAndAbove drops d together with every deficiency implying it. This is
// the type seen after d is known not to occur.
func (t *Type) RemoveAndAbove(d deficiency.Deficiency) (*Type, error) {
	if !t.Contains(d) {
		return nil, core.NewDomainError(core.ErrUnknownDeficiency, "cannot remove %s: not present in type %s", d, t)
	}
	above := t.closure(d, func(n node) deficiency.Set { return n.preds })
	nodes := make(map[deficiency.Deficiency]node, len(t.nodes))
	for def, n := range t.nodes {
		if above.Contains(def) {
			continue
		}
		nodes[def] = node{preds: n.preds.Minus(above), succs: n.succs}
	}
	return build(nodes), nil
}

// Replace splices sub in place of old: whatever implied old now implies
// newMax, and newMin implies whatever old implied.
func (t *Type) Replace(old, newMin, newMax deficiency.Deficiency, sub *Type) (*Type, error) {
	oldNode, ok := t.nodes[old]
	if !ok {
		return nil, core.NewDomainError(core.ErrUnknownDeficiency, "cannot replace %s: not present in type %s", old, t)
	}
	if !sub.min.Contains(newMin) {
		return nil, core.NewLatticeError("%s is not minimal in %s", newMin, sub)
	}
	if !sub.max.Contains(newMax) {
		return nil, core.NewLatticeError("%s is not maximal in %s", newMax, sub)
	}
	nodes := t.copyNodes()
	delete(nodes, old)
	for d, n := range sub.nodes {
		if _, clash := nodes[d]; clash {
			return nil, core.NewLatticeError("cannot replace %s: %s already present", old, d)
		}
		nodes[d] = n
	}
	oldNode.preds.Each(func(p deficiency.Deficiency) {
		pn := nodes[p]
		pn.succs = pn.succs.Without(old)
		nodes[p] = pn
		link(nodes, p, newMax)
	})
	oldNode.succs.Each(func(s deficiency.Deficiency) {
		sn := nodes[s]
		sn.preds = sn.preds.Without(old)
		nodes[s] = sn
		link(nodes, newMin, s)
	})
	return build(nodes), nil
}

// Inverse returns t with all edges reversed.
func (t *Type) Inverse() *Type {
	nodes := make(map[deficiency.Deficiency]node, len(t.nodes))
	for d, n := range t.nodes {
		nodes[d] = node{preds: n.succs, succs: n.preds}
	}
	return build(nodes)
}

// AddAll merges the deficiencies and implications of other into t.
func (t *Type) AddAll(other *Type) *Type {
	nodes := t.copyNodes()
	for d := range other.nodes {
		if _, ok := nodes[d]; !ok {
			nodes[d] = node{}
		}
	}
	for _, r := range other.Relations() {
		link(nodes, r.From, r.To)
	}
	return build(nodes)
}

// Relations lists the immediate implications in deterministic order.
func (t *Type) Relations() []Relation {
	var res []Relation
	for _, d := range t.all.Sorted() {
		for _, s := range t.nodes[d].succs.Sorted() {
			res = append(res, Relation{From: d, To: s})
		}
	}
	return res
}

// Equal reports whether both types have the same deficiencies and edges.
func (t *Type) Equal(other *Type) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil || len(t.nodes) != len(other.nodes) {
		return false
	}
	for d, n := range t.nodes {
		on, ok := other.nodes[d]
		if !ok || !n.succs.Equal(on.succs) {
			return false
		}
	}
	return true
}

// Fingerprint hashes the graph; equal types have equal fingerprints.
func (t *Type) Fingerprint() core.Hash {
	edges := make(map[string][]string, len(t.nodes))
	for d, n := range t.nodes {
		edges[string(d)] = n.succs.Names()
	}
	return core.ComputeEdgeHash(edges)
}

func (t *Type) String() string {
	if t == nil {
		return "<nil type>"
	}
	parts := make([]string, 0, len(t.nodes))
	for _, d := range t.all.Sorted() {
		succs := t.nodes[d].succs
		if succs.IsEmpty() {
			parts = append(parts, string(d))
			continue
		}
		parts = append(parts, string(d)+"->"+succs.String())
	}
	return "Type[" + strings.Join(parts, " ") + "]"
}
