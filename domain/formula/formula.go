// Package formula implements the symbolic expressions defining effects in
// terms of other effects: constants, variables and composites built with an
// Operation. Every formula carries lower and upper bounds on the deficiency
// set it can evaluate to. Formulas are immutable.
package formula

import (
	"fmt"
	"sort"
	"strings"

	"relana/domain/core"
	"relana/domain/deficiency"
	"relana/domain/lattice"
)

// Formula is one of *Const, *Var or *Comp.
type Formula interface {
	// Min is a lower bound of the value.
	Min() deficiency.Set
	// Max is an upper bound of the value.
	Max() deficiency.Set
	// Vars returns the free variables ordered by name.
	Vars() []*Var
	// Substitute replaces every variable referring to ref by f.
	Substitute(ref core.ID, f Formula) Formula
	// Add conditions on d occurring in the instance ref.
	Add(ref core.ID, d deficiency.Deficiency) (Formula, error)
	// Remove conditions on d not occurring in the instance ref.
	Remove(ref core.ID, d deficiency.Deficiency) (Formula, error)
	String() string
	isFormula()
}

// Empty is the constant empty set.
var Empty Formula = &Const{typ: lattice.Empty()}

// ============================================================================
// Const
// ============================================================================

// Const is a fixed deficiency set. Its type is nil for constants produced
// by folding.
type Const struct {
	val deficiency.Set
	typ *lattice.Type
}

// NewConst builds a constant, checking val against typ when typ is given.
func NewConst(val deficiency.Set, typ *lattice.Type) (*Const, error) {
	if typ != nil && !typ.IsValid(val) {
		return nil, core.NewDomainError(core.ErrInvalidDeficiency, "%s is not valid for %s", val, typ)
	}
	return &Const{val: val, typ: typ}, nil
}

func (c *Const) isFormula() {}

// Value returns the constant set.
func (c *Const) Value() deficiency.Set { return c.val }

// Type returns the declared type, or nil.
func (c *Const) Type() *lattice.Type { return c.typ }

func (c *Const) Min() deficiency.Set { return c.val }
func (c *Const) Max() deficiency.Set { return c.val }
func (c *Const) Vars() []*Var        { return nil }

func (c *Const) Substitute(core.ID, Formula) Formula { return c }

func (c *Const) Add(core.ID, deficiency.Deficiency) (Formula, error)    { return c, nil }
func (c *Const) Remove(core.ID, deficiency.Deficiency) (Formula, error) { return c, nil }

func (c *Const) String() string { return c.val.String() }

// ConstValue returns the value of f if f is constant.
func ConstValue(f Formula) (deficiency.Set, bool) {
	if c, ok := f.(*Const); ok {
		return c.val, true
	}
	return deficiency.Set{}, false
}

// ============================================================================
// Var
// ============================================================================

// Var stands for the value of the effect instance with the given ID.
type Var struct {
	ref  core.ID
	name string
	typ  *lattice.Type
}

func NewVar(ref core.ID, name string, typ *lattice.Type) *Var {
	return &Var{ref: ref, name: name, typ: typ}
}

func (v *Var) isFormula() {}

func (v *Var) Ref() core.ID        { return v.ref }
func (v *Var) Name() string        { return v.name }
func (v *Var) Type() *lattice.Type { return v.typ }

func (v *Var) Min() deficiency.Set { return deficiency.Set{} }
func (v *Var) Max() deficiency.Set { return v.typ.Deficiencies() }
func (v *Var) Vars() []*Var        { return []*Var{v} }

func (v *Var) Substitute(ref core.ID, f Formula) Formula {
	if v.ref == ref {
		return f
	}
	return v
}

func (v *Var) Add(core.ID, deficiency.Deficiency) (Formula, error) {
	return nil, fmt.Errorf("%w: conditioning variable %s", core.ErrNotSupported, v.name)
}

func (v *Var) Remove(core.ID, deficiency.Deficiency) (Formula, error) {
	return nil, fmt.Errorf("%w: conditioning variable %s", core.ErrNotSupported, v.name)
}

func (v *Var) String() string { return v.name }

// ============================================================================
// Comp
// ============================================================================

// Comp applies an operation to argument formulas.
type Comp struct {
	op   Operation
	args []Formula
	min  deficiency.Set
	max  deficiency.Set
}

// Build applies op to args. If the bounds of the result have the same size
// they coincide and the constant is returned instead.
func Build(op Operation, args ...Formula) (Formula, error) {
	if err := checkArity(op, len(args)); err != nil {
		return nil, err
	}
	if c, ok := op.(Complement); ok && c.Over == nil {
		return nil, core.NewTypeMismatchError("complement of %s without type", args[0])
	}
	return build(op, args), nil
}

func build(op Operation, args []Formula) Formula {
	mins := make([]deficiency.Set, len(args))
	maxs := make([]deficiency.Set, len(args))
	for i, a := range args {
		mins[i] = a.Min()
		maxs[i] = a.Max()
	}
	lo, hi := Eval(op, mins), Eval(op, maxs)
	if !IsIsotone(op) {
		lo, hi = hi, lo
	}
	if lo.Len() == hi.Len() {
		return &Const{val: lo}
	}
	return &Comp{op: op, args: append([]Formula(nil), args...), min: lo, max: hi}
}

func (c *Comp) isFormula() {}

func (c *Comp) Operation() Operation { return c.op }

// Args returns a copy of the arguments.
func (c *Comp) Args() []Formula { return append([]Formula(nil), c.args...) }

func (c *Comp) Min() deficiency.Set { return c.min }
func (c *Comp) Max() deficiency.Set { return c.max }

func (c *Comp) Vars() []*Var {
	seen := make(map[core.ID]bool)
	var res []*Var
	for _, a := range c.args {
		for _, v := range a.Vars() {
			if !seen[v.ref] {
				seen[v.ref] = true
				res = append(res, v)
			}
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].name != res[j].name {
			return res[i].name < res[j].name
		}
		return res[i].ref < res[j].ref
	})
	return res
}

func (c *Comp) Substitute(ref core.ID, f Formula) Formula {
	args := make([]Formula, len(c.args))
	changed := false
	for i, a := range c.args {
		args[i] = a.Substitute(ref, f)
		changed = changed || args[i] != a
	}
	if !changed {
		return c
	}
	return build(c.op, args)
}

func (c *Comp) Add(ref core.ID, d deficiency.Deficiency) (Formula, error) {
	return c.mapArgs(func(a Formula) (Formula, error) { return a.Add(ref, d) })
}

func (c *Comp) Remove(ref core.ID, d deficiency.Deficiency) (Formula, error) {
	return c.mapArgs(func(a Formula) (Formula, error) { return a.Remove(ref, d) })
}

func (c *Comp) mapArgs(fn func(Formula) (Formula, error)) (Formula, error) {
	args := make([]Formula, len(c.args))
	for i, a := range c.args {
		res, err := fn(a)
		if err != nil {
			return nil, err
		}
		args[i] = res
	}
	return build(c.op, args), nil
}

func (c *Comp) String() string {
	parts := make([]string, len(c.args))
	for i, a := range c.args {
		parts[i] = a.String()
	}
	if IsUnary(c.op) {
		return c.op.Symbol() + "(" + parts[0] + ")"
	}
	return "(" + strings.Join(parts, " "+c.op.Symbol()+" ") + ")"
}
