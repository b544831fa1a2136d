// Package defmap implements maps between the deficiency types of related
// effect classes. A Map sends each source deficiency of its domain either
// to itself or, together with the rest of its group, to a single target
// deficiency.
package defmap

import (
	"fmt"
	"sort"
	"strings"

	"relana/domain/core"
	"relana/domain/deficiency"
	"relana/domain/lattice"
)

// Map is an immutable, verified map from a source Type to a target Type.
type Map struct {
	source *lattice.Type
	target *lattice.Type

	// inverse image of each non-identical image
	groups map[deficiency.Deficiency]deficiency.Set
	idDom  deficiency.Set

	domain deficiency.Set
	rng    deficiency.Set
}

// New builds a map from its groups (image -> inverse image) and the set of
// deficiencies mapped to themselves.
func New(source, target *lattice.Type, groups map[deficiency.Deficiency]deficiency.Set, idDom deficiency.Set) (*Map, error) {
	m, err := fold(source, target, groups, idDom)
	if err != nil {
		return nil, err
	}
	if err := m.check(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewSubclass builds the map from a subclass Type to its superclass Type.
// Whatever the groups leave unmapped must coincide on both sides and is
// mapped identically.
func NewSubclass(source, target *lattice.Type, groups map[deficiency.Deficiency]deficiency.Set) (*Map, error) {
	m, err := fold(source, target, groups, deficiency.Set{})
	if err != nil {
		return nil, err
	}
	srcRest := source.Deficiencies().Minus(m.domain)
	tgtRest := target.Deficiencies().Minus(m.rng)
	if !srcRest.Equal(tgtRest) {
		return nil, core.NewMapError(core.ErrMapLegality,
			"no subclass map extending %s: unmapped source %s differs from unmapped target %s", m, srcRest, tgtRest)
	}
	m.idDom = m.idDom.Union(srcRest)
	m.domain = m.domain.Union(srcRest)
	m.rng = m.rng.Union(tgtRest)
	if err := m.check(); err != nil {
		return nil, err
	}
	return m, nil
}

// Identity maps every deficiency of t to itself.
func Identity(t *lattice.Type) *Map {
	return &Map{
		source: t,
		target: t,
		groups: map[deficiency.Deficiency]deficiency.Set{},
		idDom:  t.Deficiencies(),
		domain: t.Deficiencies(),
		rng:    t.Deficiencies(),
	}
}

// fold copies the groups, rejecting empty ones and moving singletons that
// map to themselves into the identity domain.
func fold(source, target *lattice.Type, groups map[deficiency.Deficiency]deficiency.Set, idDom deficiency.Set) (*Map, error) {
	m := &Map{
		source: source,
		target: target,
		groups: make(map[deficiency.Deficiency]deficiency.Set, len(groups)),
		idDom:  idDom,
	}
	for img, keys := range groups {
		switch {
		case keys.IsEmpty():
			return nil, core.NewMapError(core.ErrMapLegality, "found empty inverse image for %s", img)
		case keys.Len() == 1 && keys.Contains(img):
			m.idDom = m.idDom.With(img)
		default:
			m.groups[img] = keys
		}
	}
	m.domain = m.idDom
	m.rng = m.idDom
	for img, keys := range m.groups {
		m.domain = m.domain.Union(keys)
		m.rng = m.rng.With(img)
	}
	return m, nil
}

func (m *Map) check() error {
	if !m.domain.SubsetOf(m.source.Deficiencies()) {
		return core.NewMapError(core.ErrMapLegality, "domain %s not inside type %s", m.domain, m.source)
	}
	num := m.idDom.Len()
	for _, keys := range m.groups {
		num += keys.Len()
	}
	if num != m.domain.Len() {
		return core.NewMapError(core.ErrMapLegality, "inverse images %s and identity domain %s are not pairwise disjoint", m.groupString(), m.idDom)
	}
	if !m.rng.SubsetOf(m.target.Deficiencies()) {
		return core.NewMapError(core.ErrMapLegality, "range %s not inside type %s", m.rng, m.target)
	}
	if len(m.groups)+m.idDom.Len() != m.rng.Len() {
		return core.NewMapError(core.ErrMapLegality, "images %s and identity domain %s are not pairwise disjoint", m.groupString(), m.idDom)
	}
	return nil
}

func (m *Map) Source() *lattice.Type { return m.source }

func (m *Map) Target() *lattice.Type { return m.target }

func (m *Map) Domain() deficiency.Set { return m.domain }

func (m *Map) Range() deficiency.Set { return m.rng }

// IdentityDomain returns the deficiencies mapped to themselves.
func (m *Map) IdentityDomain() deficiency.Set { return m.idDom }

// Apply returns the image of d; ok is false outside the domain.
func (m *Map) Apply(d deficiency.Deficiency) (img deficiency.Deficiency, ok bool) {
	if m.idDom.Contains(d) {
		return d, true
	}
	for img, keys := range m.groups {
		if keys.Contains(d) {
			return img, true
		}
	}
	return "", false
}

// InverseImage returns all domain deficiencies mapped to d.
func (m *Map) InverseImage(d deficiency.Deficiency) deficiency.Set {
	if m.idDom.Contains(d) {
		return deficiency.NewSet(d)
	}
	if keys, ok := m.groups[d]; ok {
		return keys
	}
	return deficiency.Set{}
}

// Inverse swaps source and target. Only bijections are invertible.
func (m *Map) Inverse() (*Map, error) {
	if m.domain.Len() != m.rng.Len() {
		return nil, core.NewMapError(core.ErrNotInvertible, "map is not invertible: %s", m)
	}
	inv := make(map[deficiency.Deficiency]deficiency.Set, len(m.groups))
	for img, keys := range m.groups {
		inv[keys.Sorted()[0]] = deficiency.NewSet(img)
	}
	return New(m.target, m.source, inv, m.idDom)
}

// Compose returns the map applying m first and second afterwards.
func (m *Map) Compose(second *Map) (*Map, error) {
	if !m.target.Equal(second.source) {
		return nil, core.NewMapError(core.ErrNotComposable,
			"composition requires matching types but found %s and %s", m.target, second.source)
	}
	groups := make(map[deficiency.Deficiency]deficiency.Set, len(second.groups)+len(m.groups))
	for img, keys := range second.groups {
		if inv := m.Cont(keys); !inv.IsEmpty() {
			groups[img] = inv
		}
	}
	for img, keys := range m.groups {
		if second.idDom.Contains(img) {
			groups[img] = keys
		}
	}
	return New(m.source, second.target, groups, m.idDom.Intersect(second.idDom))
}

// IsIsotone reports whether implication is preserved: the cone of every
// domain member lies in the domain and maps into the cone of its image.
func (m *Map) IsIsotone() bool {
	for _, d1 := range m.domain.Sorted() {
		cone, err := m.source.Cone(d1)
		if err != nil || !cone.SubsetOf(m.domain) {
			return false
		}
		img1, _ := m.Apply(d1)
		for _, d2 := range cone.Sorted() {
			img2, _ := m.Apply(d2)
			if ok, err := m.target.Implies(img1, img2); err != nil || !ok {
				return false
			}
		}
	}
	return true
}

// IsTwistIsotone reports whether every deficiency in the target cone of an
// image has a witness in the source cone of the preimage.
func (m *Map) IsTwistIsotone() bool {
	for _, d1 := range m.domain.Sorted() {
		cone, err := m.source.Cone(d1)
		if err != nil {
			return false
		}
		img, _ := m.Apply(d1)
		coneT, err := m.target.Cone(img)
		if err != nil {
			return false
		}
		for _, t := range coneT.Sorted() {
			if !m.InverseImage(t).Intersects(cone) {
				return false
			}
		}
	}
	return true
}

// Cov maps a set of source deficiencies forward.
func (m *Map) Cov(defs deficiency.Set) deficiency.Set {
	toMap := defs.Intersect(m.domain)
	var imgs []deficiency.Deficiency
	for img, keys := range m.groups {
		if keys.Intersects(toMap) {
			imgs = append(imgs, img)
		}
	}
	return deficiency.NewSet(imgs...).Union(toMap.Intersect(m.idDom))
}

// Cont pulls a set of target deficiencies back.
func (m *Map) Cont(defs deficiency.Set) deficiency.Set {
	res := m.idDom.Intersect(defs)
	for img, keys := range m.groups {
		if defs.Contains(img) {
			res = res.Union(keys)
		}
	}
	return res
}

func (m *Map) groupString() string {
	imgs := make([]string, 0, len(m.groups))
	for img := range m.groups {
		imgs = append(imgs, string(img))
	}
	sort.Strings(imgs)
	parts := make([]string, len(imgs))
	for i, img := range imgs {
		parts[i] = m.groups[deficiency.Deficiency(img)].String() + "->" + img
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func (m *Map) String() string {
	return fmt.Sprintf("Map{groups=%s id=%s}", m.groupString(), m.idDom)
}
