package model

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"relana/domain/core"
	"relana/domain/formula"
)

// CInstance is an instance of a component class: its effects and its
// subcomponent instances by name.
type CInstance struct {
	class      string
	effects    map[string]*SInstance
	components map[string]*CInstance
}

func newCInstance(class string) *CInstance {
	return &CInstance{
		class:      class,
		effects:    map[string]*SInstance{},
		components: map[string]*CInstance{},
	}
}

// Class names the component class c was built from.
func (c *CInstance) Class() string { return c.class }

// Component returns the subcomponent with the given name, or nil.
func (c *CInstance) Component(name string) *CInstance { return c.components[name] }

// Effect follows the components of path to the effect it names.
func (c *CInstance) Effect(path core.Path) (*SInstance, error) {
	if len(path) == 0 {
		return nil, core.NewNotFoundError("effect", "")
	}
	cur := c
	for i := 0; i < len(path)-1; i++ {
		next, ok := cur.components[path[i]]
		if !ok {
			return nil, core.NewNotFoundError("component", core.Path(path[:i+1]).String())
		}
		cur = next
	}
	s, ok := cur.effects[path[len(path)-1]]
	if !ok {
		return nil, core.NewNotFoundError("effect", path.String())
	}
	return s, nil
}

// Lookup resolves formula variables against c.
func (c *CInstance) Lookup(path core.Path) (formula.Binding, error) {
	s, err := c.Effect(path)
	if err != nil {
		return formula.Binding{}, err
	}
	return formula.Binding{Ref: s.id, Name: path.String(), Type: s.typ}, nil
}

// Flatten lists every effect of the tree under its full path.
func (c *CInstance) Flatten() *FlatCInstance {
	f := &FlatCInstance{
		effects:  map[string]*SInstance{},
		registry: map[core.ID]*SInstance{},
	}
	c.flattenInto(f, nil)
	f.sortPaths()
	return f
}

func (c *CInstance) flattenInto(f *FlatCInstance, prefix core.Path) {
	for name, s := range c.effects {
		path := append(append(core.Path(nil), prefix...), name)
		f.paths = append(f.paths, path)
		f.effects[path.String()] = s
		f.registry[s.id] = s
	}
	for name, sub := range c.components {
		sub.flattenInto(f, append(append(core.Path(nil), prefix...), name))
	}
}

// checkAcyclic rejects effects whose formulas depend on themselves.
// Subcomponent formulas never refer to their parent, so every cycle lies
// among the effects of c itself.
func (c *CInstance) checkAcyclic() error {
	names := sortedNames(c.effects)
	nodes := make(map[core.ID]int64, len(names))
	g := simple.NewDirectedGraph()
	for i, name := range names {
		nodes[c.effects[name].id] = int64(i)
		g.AddNode(simple.Node(i))
	}
	for i, name := range names {
		f := c.effects[name].form
		if f == nil {
			continue
		}
		for _, v := range f.Vars() {
			j, ok := nodes[v.Ref()]
			if !ok {
				continue
			}
			if j == int64(i) {
				return core.NewVerifyError("formula of effect %s in %s refers to itself", name, c.class)
			}
			g.SetEdge(g.NewEdge(simple.Node(i), simple.Node(j)))
		}
	}
	_, err := topo.Sort(g)
	if err == nil {
		return nil
	}
	unorderable, ok := err.(topo.Unorderable)
	if !ok || len(unorderable) == 0 {
		return core.NewInvariantError(err)
	}
	cycle := make([]string, 0, len(unorderable[0]))
	for _, n := range unorderable[0] {
		cycle = append(cycle, names[n.ID()])
	}
	sort.Strings(cycle)
	return core.NewVerifyError("formulas of effects %v in %s depend on each other", cycle, c.class)
}
