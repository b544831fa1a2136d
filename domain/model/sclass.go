package model

import (
	"relana/domain/core"
	"relana/domain/deficiency"
	"relana/domain/defmap"
	"relana/domain/lattice"
)

// SClass is an effect class: the type of an effect together with the way it
// refines its superclass.
type SClass struct {
	name      string
	super     *SClass
	declared  deficiency.Set
	relations []lattice.Relation
	inner     map[deficiency.Deficiency]*SClass
	typ       *lattice.Type
	toSuper   *defmap.Map
}

// SClassSpec describes an effect class to be built.
type SClassSpec struct {
	Name string
	// Super defaults to Boolean.
	Super *SClass
	// Deficiencies are the newly declared ones; only inner classes have any.
	Deficiencies []deficiency.Deficiency
	// Relations are declared implications, possibly among inherited deficiencies.
	Relations []lattice.Relation
	// Inner refines inherited deficiencies by finer classes.
	Inner map[deficiency.Deficiency]*SClass
}

var booleanClass = &SClass{
	name:     "Boolean",
	declared: deficiency.NewSet(deficiency.Undet),
	typ:      lattice.Boolean(),
}

// Boolean is the root of all effect classes, with UNDET as only deficiency.
func Boolean() *SClass { return booleanClass }

// NewSClass builds and verifies an effect class.
func NewSClass(spec SClassSpec) (*SClass, error) {
	if spec.Name == "" {
		return nil, core.NewVerifyError("effect class without name")
	}
	super := spec.Super
	if super == nil {
		super = booleanClass
	}
	c := &SClass{
		name:      spec.Name,
		super:     super,
		declared:  deficiency.NewSet(spec.Deficiencies...),
		relations: append([]lattice.Relation(nil), spec.Relations...),
		inner:     make(map[deficiency.Deficiency]*SClass, len(spec.Inner)),
	}
	for d, in := range spec.Inner {
		c.inner[d] = in
	}

	typ, err := c.createType()
	if err != nil {
		return nil, err
	}
	if err := typ.Verify(true); err != nil {
		return nil, core.NewVerifyError("effect class %s: %v", c.name, err)
	}
	c.typ = typ

	groups := make(map[deficiency.Deficiency]deficiency.Set)
	if c.IsInner() {
		groups[deficiency.Undet] = c.declared
	} else {
		for d, in := range c.inner {
			groups[d] = in.typ.Deficiencies()
		}
	}
	m, err := defmap.NewSubclass(typ, super.typ, groups)
	if err != nil {
		return nil, core.NewVerifyError("effect class %s is no subclass of %s: %v", c.name, super.name, err)
	}
	c.toSuper = m

	if !c.IsInner() {
		if err := c.verifyRelations(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// IsInner reports whether c directly refines Boolean with its own
// deficiencies rather than refining deficiencies of its superclass.
func (c *SClass) IsInner() bool {
	return c.super == booleanClass && len(c.inner) == 0
}

func (c *SClass) createType() (*lattice.Type, error) {
	var typ *lattice.Type
	if c.IsInner() {
		typ = lattice.Empty()
	} else {
		typ = c.super.typ
		for _, d := range sortedKeys(c.inner) {
			in := c.inner[d]
			if in.typ.Min().Len() != 1 || in.typ.Max().Len() != 1 {
				return nil, core.NewVerifyError("inner class %s of %s needs a unique minimum and maximum", in.name, c.name)
			}
			var err error
			typ, err = typ.Replace(d, in.typ.Min().Sorted()[0], in.typ.Max().Sorted()[0], in.typ)
			if err != nil {
				return nil, core.NewVerifyError("effect class %s: %v", c.name, err)
			}
		}
	}

	defs := c.declared
	for _, r := range c.relations {
		for _, d := range []deficiency.Deficiency{r.From, r.To} {
			if !defs.Contains(d) && !typ.Contains(d) {
				return nil, core.NewVerifyError("relation %s of %s refers to unknown deficiency %s", r, c.name, d)
			}
		}
		defs = defs.With(r.From, r.To)
	}
	ordering, err := lattice.New(defs.Sorted(), c.relations)
	if err != nil {
		return nil, core.NewVerifyError("effect class %s: %v", c.name, err)
	}
	return typ.AddAll(ordering), nil
}

// verifyRelations checks that every declared relation is seen by the
// superclass as a proper implication.
func (c *SClass) verifyRelations() error {
	for _, r := range c.relations {
		from, _ := c.toSuper.Apply(r.From)
		to, _ := c.toSuper.Apply(r.To)
		if from == to {
			return core.NewVerifyError("relation %s should be specified in inner class because %s maps both to %s",
				r, c.super.name, from)
		}
		ok, err := c.super.typ.Implies(from, to)
		if err != nil || !ok {
			return core.NewVerifyError("relation %s not reflected by superclass %s: %s=/=>%s",
				r, c.super.name, from, to)
		}
	}
	return nil
}

func (c *SClass) Name() string { return c.name }

// Super returns the superclass, nil for Boolean.
func (c *SClass) Super() *SClass { return c.super }

func (c *SClass) Type() *lattice.Type { return c.typ }

// SuperMap is the subclass map into the superclass, nil for Boolean.
func (c *SClass) SuperMap() *defmap.Map { return c.toSuper }

// Inner returns the class refining d, or nil.
func (c *SClass) Inner(d deficiency.Deficiency) *SClass { return c.inner[d] }

// IsSubclassOf reports whether other is c or one of its ancestors.
func (c *SClass) IsSubclassOf(other *SClass) bool {
	for cur := c; cur != nil; cur = cur.super {
		if cur == other {
			return true
		}
	}
	return false
}

// MapTo composes the subclass maps from c up to the ancestor.
func (c *SClass) MapTo(ancestor *SClass) (*defmap.Map, error) {
	m := defmap.Identity(c.typ)
	for cur := c; cur != ancestor; cur = cur.super {
		if cur.super == nil {
			return nil, core.NewVerifyError("%s is no subclass of %s", c.name, ancestor.name)
		}
		var err error
		if m, err = m.Compose(cur.toSuper); err != nil {
			return nil, core.NewVerifyError("%s is no subclass of %s: %v", c.name, ancestor.name, err)
		}
	}
	return m, nil
}

func (c *SClass) String() string { return c.name }

func sortedKeys[V any](m map[deficiency.Deficiency]V) []deficiency.Deficiency {
	keys := make([]deficiency.Deficiency, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return deficiency.NewSet(keys...).Sorted()
}
