package model

import (
	"fmt"
	"sort"

	"relana/domain/core"
	"relana/domain/deficiency"
	"relana/domain/formula"
)

// FlatCInstance is the flattened view of an instance tree: every effect by
// its full path, plus every instance a formula may refer to. It is
// immutable; conditioning returns new snapshots sharing unchanged instances.
type FlatCInstance struct {
	paths    []core.Path
	effects  map[string]*SInstance
	registry map[core.ID]*SInstance
}

func (f *FlatCInstance) sortPaths() {
	sort.Slice(f.paths, func(i, j int) bool { return f.paths[i].Compare(f.paths[j]) < 0 })
}

// Paths lists the effect paths in lexicographic order.
func (f *FlatCInstance) Paths() []core.Path {
	return append([]core.Path(nil), f.paths...)
}

// Effect returns the instance at path.
func (f *FlatCInstance) Effect(path core.Path) (*SInstance, error) {
	s, ok := f.effects[path.String()]
	if !ok {
		return nil, core.NewNotFoundError("effect", path.String())
	}
	return s, nil
}

// Instance returns the instance with the given ID.
func (f *FlatCInstance) Instance(id core.ID) (*SInstance, bool) {
	s, ok := f.registry[id]
	return s, ok
}

// Substitute replaces the instance ref by form in every formula. The
// instance ref itself becomes defined by form.
func (f *FlatCInstance) Substitute(ref core.ID, form formula.Formula) *FlatCInstance {
	res := &FlatCInstance{
		paths:    f.paths,
		effects:  make(map[string]*SInstance, len(f.effects)),
		registry: make(map[core.ID]*SInstance, len(f.registry)),
	}
	for id, s := range f.registry {
		switch {
		case id == ref:
			res.registry[id] = s.defined(form)
		case s.form != nil:
			if sub := s.form.Substitute(ref, form); sub != s.form {
				res.registry[id] = s.defined(sub)
				continue
			}
			res.registry[id] = s
		default:
			res.registry[id] = s
		}
	}
	for key, s := range f.effects {
		res.effects[key] = res.registry[s.id]
	}
	return res
}

func (f *FlatCInstance) register(s *SInstance) *FlatCInstance {
	res := &FlatCInstance{
		paths:    f.paths,
		effects:  f.effects,
		registry: make(map[core.ID]*SInstance, len(f.registry)+1),
	}
	for id, inst := range f.registry {
		res.registry[id] = inst
	}
	res.registry[s.id] = s
	return res
}

// Condition returns the snapshot in which the minimal deficiency d of s is
// known to occur or known not to occur. s is replaced by a formula over an
// instance of the remaining type.
func (f *FlatCInstance) Condition(s *SInstance, d deficiency.Deficiency, occurs bool) (*FlatCInstance, error) {
	if !s.typ.Min().Contains(d) {
		return nil, core.NewDomainError(core.ErrNotMinimal, "cannot condition %s on %s", s.name, d)
	}
	if occurs {
		occ, err := formula.NewConst(deficiency.NewSet(d), s.typ)
		if err != nil {
			return nil, err
		}
		if s.typ.Size() == 1 {
			return f.Substitute(s.id, occ), nil
		}
		rest, err := s.Occurs(d)
		if err != nil {
			return nil, err
		}
		form, err := formula.Build(formula.Union{}, occ, rest.Var())
		if err != nil {
			return nil, err
		}
		return f.register(rest).Substitute(s.id, form), nil
	}

	rest, err := s.Absent(d)
	if err != nil {
		return nil, err
	}
	if rest == nil {
		return f.Substitute(s.id, formula.Empty), nil
	}
	return f.register(rest).Substitute(s.id, rest.Var()), nil
}

// rootFormula is the formula defining s; a random instance stands for itself.
func rootFormula(s *SInstance) (formula.Formula, error) {
	switch {
	case s.form != nil:
		return s.form, nil
	case s.distr != nil:
		return s.Var(), nil
	}
	return nil, core.NewModelingError("effect %s has neither distribution nor formula", s.name)
}

// ground rewrites root until it mentions a random instance, which is
// returned, or until it is constant. The rewritten formula is returned in
// both cases; no instance is modified.
func (f *FlatCInstance) ground(root formula.Formula) (*SInstance, formula.Formula, error) {
	for i := 0; i <= len(f.registry); i++ {
		vars := root.Vars()
		if len(vars) == 0 {
			return nil, root, nil
		}
		insts := make([]*SInstance, len(vars))
		for j, v := range vars {
			s, ok := f.registry[v.Ref()]
			if !ok {
				return nil, nil, core.NewInvariantError(fmt.Errorf("variable %s refers to no instance", v.Name()))
			}
			if s.distr != nil {
				return s, root, nil
			}
			insts[j] = s
		}
		for _, s := range insts {
			if s.form == nil {
				return nil, nil, core.NewModelingError("effect %s has neither distribution nor formula", s.name)
			}
			root = root.Substitute(s.id, s.form)
		}
	}
	return nil, nil, core.NewInvariantError(fmt.Errorf("formula %s does not ground: cyclic definition", root))
}

func errNotConstant(f formula.Formula) error {
	return fmt.Errorf("formula %s without variables is not constant", f)
}
