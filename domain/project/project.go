// Package project binds a base component class to the output effects whose
// probabilities are wanted.
package project

import (
	"sort"

	"relana/domain/core"
	"relana/domain/model"
)

// Project is one analysis: the class to instantiate and the effects to
// evaluate.
type Project struct {
	Name    string
	Base    *model.CClass
	Outputs []core.Path
}

// New builds a project. Without explicit outputs every effect of base
// declared output is evaluated.
func New(name string, base *model.CClass, outputs []core.Path) (*Project, error) {
	if base == nil {
		return nil, core.NewModelingError("project %q without base class", name)
	}
	if name == "" {
		name = base.Name()
	}
	if len(outputs) == 0 {
		outputs = DeclaredOutputs(base)
	}
	if len(outputs) == 0 {
		return nil, core.NewModelingError("project %q has no output effects", name)
	}
	seen := make(map[string]bool, len(outputs))
	res := make([]core.Path, 0, len(outputs))
	for _, p := range outputs {
		if len(p) == 0 {
			return nil, core.NewModelingError("project %q has an empty output locator", name)
		}
		if seen[p.String()] {
			continue
		}
		seen[p.String()] = true
		res = append(res, p)
	}
	return &Project{Name: name, Base: base, Outputs: res}, nil
}

// DeclaredOutputs lists the effects of base declared output, in path order.
func DeclaredOutputs(base *model.CClass) []core.Path {
	var res []core.Path
	for name, e := range base.Effects() {
		if e.Output {
			res = append(res, core.Path{name})
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Compare(res[j]) < 0 })
	return res
}

// InputEffects names the effects of base declared input. A project base
// must have none: nothing could feed them.
func (p *Project) InputEffects() []string {
	var res []string
	for name, e := range p.Base.Effects() {
		if e.Input {
			res = append(res, name)
		}
	}
	sort.Strings(res)
	return res
}
