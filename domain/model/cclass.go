package model

import (
	"fmt"
	"sort"

	"relana/domain/core"
	"relana/domain/defmap"
	"relana/domain/formula"
	"relana/domain/probdistr"
)

// EffectDecl declares an effect of a component class.
type EffectDecl struct {
	Name      string
	Redeclare bool
	Input     bool
	Output    bool
	Class     *SClass
	// Distr makes the effect random; Formula defines it by other effects.
	Distr   *probdistr.Distr
	Formula formula.Decl
}

// Validate checks the declaration on its own.
func (e *EffectDecl) Validate() error {
	if e.Name == "" {
		return core.NewVerifyError("effect without name")
	}
	if e.Class == nil {
		return core.NewVerifyError("effect %s without class", e.Name)
	}
	if e.Input && (e.Distr != nil || e.Formula != nil) {
		return core.NewVerifyError("input effect %s may have neither distribution nor formula", e.Name)
	}
	if e.Distr != nil && e.Formula != nil {
		return core.NewVerifyError("effect %s may have a distribution or a formula but not both", e.Name)
	}
	if e.Distr != nil && !e.Distr.Type().Equal(e.Class.Type()) {
		return core.NewTypeMismatchError("distribution of effect %s is over %s but class %s has %s",
			e.Name, e.Distr.Type(), e.Class.Name(), e.Class.Type())
	}
	if e.Distr != nil {
		// degenerate events are reported by the caller, not rejected
		if _, err := e.Distr.Validate(); err != nil {
			return fmt.Errorf("distribution of effect %s: %w", e.Name, err)
		}
	}
	if e.Formula != nil {
		ret, err := e.Formula.RetType()
		if err != nil {
			return err
		}
		if !ret.Equal(e.Class.Type()) {
			return core.NewTypeMismatchError("formula %s of effect %s has type %s but class %s has %s",
				e.Formula, e.Name, ret, e.Class.Name(), e.Class.Type())
		}
	}
	return nil
}

// CClass is a component class: effects, subcomponents and maps, inherited
// along a single superclass chain rooted at Component.
type CClass struct {
	name       string
	super      *CClass
	maps       map[string]*defmap.Map
	components map[string]*CClass
	effects    map[string]*EffectDecl
}

// CClassSpec describes a component class to be built.
type CClassSpec struct {
	Name string
	// Super defaults to Component.
	Super      *CClass
	Maps       map[string]*defmap.Map
	Components map[string]*CClass
	Effects    []*EffectDecl
}

var componentClass = &CClass{
	name:       "Component",
	maps:       map[string]*defmap.Map{},
	components: map[string]*CClass{},
	effects:    map[string]*EffectDecl{},
}

// Component is the root of all component classes.
func Component() *CClass { return componentClass }

// NewCClass builds and verifies a component class.
func NewCClass(spec CClassSpec) (*CClass, error) {
	if spec.Name == "" {
		return nil, core.NewVerifyError("component class without name")
	}
	super := spec.Super
	if super == nil {
		super = componentClass
	}
	c := &CClass{
		name:       spec.Name,
		super:      super,
		maps:       make(map[string]*defmap.Map, len(spec.Maps)),
		components: make(map[string]*CClass, len(spec.Components)),
		effects:    make(map[string]*EffectDecl, len(spec.Effects)),
	}
	for k, m := range spec.Maps {
		c.maps[k] = m
	}
	for k, cc := range spec.Components {
		c.components[k] = cc
	}
	for _, e := range spec.Effects {
		if _, dup := c.effects[e.Name]; dup {
			return nil, core.NewVerifyError("effect %s declared twice in class %s", e.Name, c.name)
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		c.effects[e.Name] = e
	}
	if err := c.verify(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *CClass) verify() error {
	for _, name := range sortedNames(c.effects) {
		overwrite := c.effects[name]
		overwritten := c.super.EffectDecl(name)
		if !overwrite.Redeclare {
			if overwritten != nil {
				return core.NewVerifyError("found effect %q declared in class %q and in a superclass; consider redeclare", name, c.name)
			}
			continue
		}
		if overwritten == nil {
			return core.NewVerifyError("found effect %q redeclared in class %q without being declared in any superclass", name, c.name)
		}
		if (overwritten.Output && !overwrite.Output) || (overwritten.Input && !overwrite.Input) {
			return core.NewVerifyError("weakened access privileges of effect %q by redeclaration in class %s", name, c.name)
		}
		if _, err := overwrite.Class.MapTo(overwritten.Class); err != nil {
			return core.NewVerifyError("redeclared effect %q of class %s as %s which is no subclass",
				name, overwritten.Class.Name(), overwrite.Class.Name())
		}
	}

	var dup []string
	for name := range c.components {
		if c.super.ComponentClass(name) != nil {
			dup = append(dup, name)
		}
	}
	if len(dup) > 0 {
		sort.Strings(dup)
		return core.NewVerifyError("found components declared in class %q and in a superclass: %v", c.name, dup)
	}
	return nil
}

func (c *CClass) Name() string { return c.name }

// Super returns the superclass, nil for Component.
func (c *CClass) Super() *CClass { return c.super }

// EffectDecl looks name up along the superclass chain.
func (c *CClass) EffectDecl(name string) *EffectDecl {
	for cur := c; cur != nil; cur = cur.super {
		if e, ok := cur.effects[name]; ok {
			return e
		}
	}
	return nil
}

// ComponentClass looks a subcomponent up along the superclass chain.
func (c *CClass) ComponentClass(name string) *CClass {
	for cur := c; cur != nil; cur = cur.super {
		if cc, ok := cur.components[name]; ok {
			return cc
		}
	}
	return nil
}

// Map looks a declared map up along the superclass chain.
func (c *CClass) Map(name string) *defmap.Map {
	for cur := c; cur != nil; cur = cur.super {
		if m, ok := cur.maps[name]; ok {
			return m
		}
	}
	return nil
}

// EffectDeclAt follows the components of path to the declaring class.
func (c *CClass) EffectDeclAt(path core.Path) (*EffectDecl, error) {
	cur := c
	for i := 0; i < len(path)-1; i++ {
		next := cur.ComponentClass(path[i])
		if next == nil {
			return nil, core.NewNotFoundError("component", core.Path(path[:i+1]).String())
		}
		cur = next
	}
	if len(path) == 0 {
		return nil, core.NewNotFoundError("effect", "")
	}
	e := cur.EffectDecl(path[len(path)-1])
	if e == nil {
		return nil, core.NewNotFoundError("effect", path.String())
	}
	return e, nil
}

// Effects returns the effective effect declarations, redeclarations
// replacing what they redeclare.
func (c *CClass) Effects() map[string]*EffectDecl {
	res := map[string]*EffectDecl{}
	if c.super != nil {
		res = c.super.Effects()
	}
	for name, e := range c.effects {
		res[name] = e
	}
	return res
}

// Components returns the effective subcomponent classes.
func (c *CClass) Components() map[string]*CClass {
	res := map[string]*CClass{}
	if c.super != nil {
		res = c.super.Components()
	}
	for name, cc := range c.components {
		res[name] = cc
	}
	return res
}

// Instantiate builds the instance tree of c: effects and subcomponents are
// created first, then every formula is resolved against the finished tree.
// Formulas that depend on themselves are rejected.
func (c *CClass) Instantiate() (*CInstance, error) {
	ci := newCInstance(c.name)
	comps := c.Components()
	for _, name := range sortedNames(comps) {
		sub, err := comps[name].Instantiate()
		if err != nil {
			return nil, err
		}
		ci.components[name] = sub
	}

	effects := c.Effects()
	names := sortedNames(effects)
	for _, name := range names {
		e := effects[name]
		ci.effects[name] = NewSInstance(name, e.Class.Type(), e.Distr)
	}
	for _, name := range names {
		e := effects[name]
		if e.Formula == nil {
			continue
		}
		f, err := e.Formula.Resolve(ci)
		if err != nil {
			return nil, fmt.Errorf("formula of effect %s in %s: %w", name, c.name, err)
		}
		if err := ci.effects[name].bindFormula(f); err != nil {
			return nil, err
		}
	}
	if err := ci.checkAcyclic(); err != nil {
		return nil, err
	}
	return ci, nil
}

func (c *CClass) String() string { return c.name }

func sortedNames[V any](m map[string]V) []string {
	res := make([]string, 0, len(m))
	for k := range m {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}
