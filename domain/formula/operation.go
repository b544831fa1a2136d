package formula

import (
	"fmt"
	"strings"

	"relana/domain/core"
	"relana/domain/deficiency"
	"relana/domain/defmap"
	"relana/domain/lattice"
)

// Operation is one of Intersection, Union, Complement or MapOp. The set of
// variants is closed; every function below switches over all of them.
type Operation interface {
	Symbol() string
	isOperation()
}

// Intersection is the n-ary set intersection.
type Intersection struct{}

// Union is the n-ary set union.
type Union struct{}

// Complement is the unary complement relative to the deficiencies of Over.
// A Complement with nil Over is bound when its declaration is resolved.
type Complement struct {
	Over *lattice.Type
}

// Variance selects how a MapOp uses its deficiency map.
type Variance int

const (
	// Covariant pushes sets forward along the map.
	Covariant Variance = iota
	// Contravariant pulls sets back against the map.
	Contravariant
)

func (v Variance) String() string {
	if v == Contravariant {
		return "contravariant"
	}
	return "covariant"
}

// MapOp applies a named deficiency map as a lattice functor.
type MapOp struct {
	name     string
	variance Variance
	m        *defmap.Map
}

func (Intersection) isOperation() {}
func (Union) isOperation()        {}
func (Complement) isOperation()   {}
func (MapOp) isOperation()        {}

func (Intersection) Symbol() string { return "&" }
func (Union) Symbol() string        { return "|" }
func (Complement) Symbol() string   { return "~" }

func (op MapOp) Symbol() string {
	if op.variance == Contravariant {
		return op.name + "'"
	}
	return op.name + ","
}

// NewComplement returns the complement relative to t.
func NewComplement(t *lattice.Type) Complement {
	return Complement{Over: t}
}

// NewMapOp builds a functor operation. A covariant map must be
// twist-isotone, a contravariant one isotone.
func NewMapOp(name string, v Variance, m *defmap.Map) (MapOp, error) {
	switch v {
	case Covariant:
		if !m.IsTwistIsotone() {
			return MapOp{}, core.NewMapError(core.ErrNotTwistIsotone,
				"map %s is not twist-isotone and so cannot be used covariantly", name)
		}
	case Contravariant:
		if !m.IsIsotone() {
			return MapOp{}, core.NewMapError(core.ErrNotIsotone,
				"map %s is not isotone and so cannot be used contravariantly", name)
		}
	default:
		return MapOp{}, core.NewMapError(core.ErrMapLegality, "unknown variance %d for map %s", v, name)
	}
	return MapOp{name: name, variance: v, m: m}, nil
}

func (op MapOp) Name() string { return op.name }

func (op MapOp) Variance() Variance { return op.variance }

// SourceType is the type accepted by the functor.
func (op MapOp) SourceType() *lattice.Type {
	if op.variance == Contravariant {
		return op.m.Target()
	}
	return op.m.Source()
}

// TargetType is the type returned by the functor.
func (op MapOp) TargetType() *lattice.Type {
	if op.variance == Contravariant {
		return op.m.Source()
	}
	return op.m.Target()
}

// IsUnary reports whether op takes exactly one argument.
func IsUnary(op Operation) bool {
	switch op.(type) {
	case Intersection, Union:
		return false
	case Complement, MapOp:
		return true
	}
	panic(fmt.Sprintf("unknown operation %T", op))
}

// IsIsotone reports whether op preserves inclusion. Antitone operations
// swap the bounds of their operands.
func IsIsotone(op Operation) bool {
	switch op.(type) {
	case Intersection, Union, MapOp:
		return true
	case Complement:
		return false
	}
	panic(fmt.Sprintf("unknown operation %T", op))
}

func checkArity(op Operation, n int) error {
	if IsUnary(op) && n != 1 {
		return core.NewTypeMismatchError("operation %s expects exactly one argument but found %d", op.Symbol(), n)
	}
	if n == 0 {
		return core.NewTypeMismatchError("operation %s expects at least one argument", op.Symbol())
	}
	return nil
}

// RetType returns the type of op applied to arguments of the given types.
func RetType(op Operation, args []*lattice.Type) (*lattice.Type, error) {
	if err := checkArity(op, len(args)); err != nil {
		return nil, err
	}
	switch o := op.(type) {
	case Intersection, Union:
		for _, a := range args[1:] {
			if !a.Equal(args[0]) {
				return nil, core.NewTypeMismatchError("expected uniform type for operation %s but found %s", op.Symbol(), typeList(args))
			}
		}
		return args[0], nil
	case Complement:
		if o.Over != nil && !o.Over.Equal(args[0]) {
			return nil, core.NewTypeMismatchError("complement over %s applied to %s", o.Over, args[0])
		}
		return args[0].Inverse(), nil
	case MapOp:
		if !o.SourceType().Equal(args[0]) {
			return nil, core.NewTypeMismatchError("map %s expects %s but found %s", o.name, o.SourceType(), args[0])
		}
		return o.TargetType(), nil
	}
	panic(fmt.Sprintf("unknown operation %T", op))
}

// Eval applies op to concrete deficiency sets.
func Eval(op Operation, params []deficiency.Set) deficiency.Set {
	switch o := op.(type) {
	case Intersection:
		res := params[0]
		for _, p := range params[1:] {
			res = res.Intersect(p)
		}
		return res
	case Union:
		res := params[0]
		for _, p := range params[1:] {
			res = res.Union(p)
		}
		return res
	case Complement:
		return o.Over.Deficiencies().Minus(params[0])
	case MapOp:
		if o.variance == Contravariant {
			return o.m.Cont(params[0])
		}
		return o.m.Cov(params[0])
	}
	panic(fmt.Sprintf("unknown operation %T", op))
}

func typeList(ts []*lattice.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
