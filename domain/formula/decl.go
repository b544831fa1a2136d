package formula

import (
	"strings"

	"relana/domain/core"
	"relana/domain/deficiency"
	"relana/domain/lattice"
)

// Binding is what a Scope knows about an effect instance.
type Binding struct {
	Ref  core.ID
	Name string
	Type *lattice.Type
}

// Scope resolves effect locators to instances.
type Scope interface {
	Lookup(path core.Path) (Binding, error)
}

// Decl is a formula as declared in a component class, before the effects it
// refers to are instantiated. It is one of DeclConst, DeclVar or DeclComp.
type Decl interface {
	// RetType is the type of the value of the formula.
	RetType() (*lattice.Type, error)
	// Resolve builds the formula for the instances found in scope.
	Resolve(scope Scope) (Formula, error)
	String() string
	isDecl()
}

// DeclConst declares a constant of a given type.
type DeclConst struct {
	Type *lattice.Type
	Val  deficiency.Set
}

// DeclVar refers to the effect at Path, declared with Type.
type DeclVar struct {
	Path core.Path
	Type *lattice.Type
}

// DeclComp applies Op to declared arguments.
type DeclComp struct {
	Op   Operation
	Args []Decl
}

func (DeclConst) isDecl() {}
func (DeclVar) isDecl()   {}
func (DeclComp) isDecl()  {}

func (d DeclConst) RetType() (*lattice.Type, error) { return d.Type, nil }

func (d DeclConst) Resolve(Scope) (Formula, error) {
	return NewConst(d.Val, d.Type)
}

func (d DeclConst) String() string { return d.Val.String() }

func (d DeclVar) RetType() (*lattice.Type, error) { return d.Type, nil }

func (d DeclVar) Resolve(scope Scope) (Formula, error) {
	b, err := scope.Lookup(d.Path)
	if err != nil {
		return nil, err
	}
	if !b.Type.Equal(d.Type) {
		return nil, core.NewTypeMismatchError("effect %s has type %s but is used as %s", d.Path, b.Type, d.Type)
	}
	return NewVar(b.Ref, b.Name, b.Type), nil
}

func (d DeclVar) String() string { return d.Path.String() }

func (d DeclComp) argTypes() ([]*lattice.Type, error) {
	types := make([]*lattice.Type, len(d.Args))
	for i, a := range d.Args {
		t, err := a.RetType()
		if err != nil {
			return nil, err
		}
		types[i] = t
	}
	return types, nil
}

func (d DeclComp) RetType() (*lattice.Type, error) {
	types, err := d.argTypes()
	if err != nil {
		return nil, err
	}
	return RetType(d.Op, types)
}

func (d DeclComp) Resolve(scope Scope) (Formula, error) {
	types, err := d.argTypes()
	if err != nil {
		return nil, err
	}
	if _, err := RetType(d.Op, types); err != nil {
		return nil, err
	}
	op := d.Op
	if c, ok := op.(Complement); ok && c.Over == nil {
		op = NewComplement(types[0])
	}
	args := make([]Formula, len(d.Args))
	for i, a := range d.Args {
		f, err := a.Resolve(scope)
		if err != nil {
			return nil, err
		}
		args[i] = f
	}
	return Build(op, args...)
}

func (d DeclComp) String() string {
	parts := make([]string, len(d.Args))
	for i, a := range d.Args {
		parts[i] = a.String()
	}
	return d.Op.Symbol() + "(" + strings.Join(parts, ", ") + ")"
}
