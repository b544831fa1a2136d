package model

import (
	"fmt"

	"relana/domain/core"
	"relana/domain/deficiency"
	"relana/domain/formula"
	"relana/domain/lattice"
	"relana/domain/probdistr"
)

// SInstance is an effect instance: a random variable over the valid sets of
// its type, either random by its distribution or defined by its formula.
// Formulas refer to instances by ID only.
type SInstance struct {
	id    core.ID
	name  string
	typ   *lattice.Type
	distr *probdistr.Distr
	form  formula.Formula
}

// NewSInstance creates an instance with a fresh ID.
func NewSInstance(name string, typ *lattice.Type, distr *probdistr.Distr) *SInstance {
	return &SInstance{id: core.NewID(), name: name, typ: typ, distr: distr}
}

func (s *SInstance) ID() core.ID              { return s.id }
func (s *SInstance) Name() string             { return s.name }
func (s *SInstance) Type() *lattice.Type      { return s.typ }
func (s *SInstance) Distr() *probdistr.Distr  { return s.distr }
func (s *SInstance) Formula() formula.Formula { return s.form }

// Var returns a variable standing for s.
func (s *SInstance) Var() *formula.Var {
	return formula.NewVar(s.id, s.name, s.typ)
}

// bindFormula sets the defining formula while the instance tree is built.
func (s *SInstance) bindFormula(f formula.Formula) error {
	if s.form != nil {
		return core.NewInvariantError(fmt.Errorf("formula of %s already set", s.name))
	}
	s.form = f
	return nil
}

// defined returns the same instance defined by f instead of its current
// formula or distribution.
func (s *SInstance) defined(f formula.Formula) *SInstance {
	return &SInstance{id: s.id, name: s.name, typ: s.typ, form: f}
}

// Occurs returns the instance seen after the minimal deficiency d has
// occurred: the remaining deficiencies, same distribution, fresh ID.
func (s *SInstance) Occurs(d deficiency.Deficiency) (*SInstance, error) {
	typ, err := s.typ.Remove(d)
	if err != nil {
		return nil, err
	}
	return &SInstance{id: core.NewID(), name: s.name, typ: typ, distr: s.distr}, nil
}

// Absent returns the instance seen after d is known not to occur, or nil if
// no deficiency can occur any more.
func (s *SInstance) Absent(d deficiency.Deficiency) (*SInstance, error) {
	typ, err := s.typ.RemoveAndAbove(d)
	if err != nil {
		return nil, err
	}
	if typ.IsEmpty() {
		return nil, nil
	}
	return &SInstance{id: core.NewID(), name: s.name, typ: typ, distr: s.distr}, nil
}

func (s *SInstance) String() string {
	switch {
	case s.form != nil:
		return fmt.Sprintf("%s = %s", s.name, s.form)
	case s.distr != nil:
		return fmt.Sprintf("%s ~ %s", s.name, s.distr)
	}
	return s.name
}
