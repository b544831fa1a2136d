package yamlmodel

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"gopkg.in/yaml.v3"

	"relana/domain/core"
	"relana/domain/deficiency"
	"relana/domain/defmap"
	"relana/domain/formula"
	"relana/domain/lattice"
	"relana/domain/model"
	"relana/domain/probdistr"
	"relana/domain/project"
	apperrors "relana/internal/errors"
)

// Parse decodes a model file and resolves it into a project.
func Parse(data []byte) (*project.Project, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, &apperrors.AppError{Code: apperrors.CodeInvalidInput, Message: "cannot decode model", Cause: err}
	}
	return Resolve(&doc)
}

// Resolve builds the classes doc declares, dependencies first, and the
// project on top of its base class. Classes may be declared in any order;
// cyclic class references are rejected, and so are effects whose formulas
// depend on themselves once the base class is instantiated.
func Resolve(doc *Document) (*project.Project, error) {
	r, err := newResolver(doc)
	if err != nil {
		return nil, err
	}
	if doc.Base == "" {
		return nil, core.NewModelingError("project %q names no base class", doc.Project)
	}
	base, err := r.componentClass(doc.Base)
	if err != nil {
		return nil, err
	}
	if _, err := base.Instantiate(); err != nil {
		return nil, err
	}
	// classes the base does not use are still verified
	for _, d := range doc.EffectClasses {
		if _, err := r.effectClass(d.Name); err != nil {
			return nil, err
		}
	}
	for _, d := range doc.ComponentClasses {
		if _, err := r.componentClass(d.Name); err != nil {
			return nil, err
		}
	}

	outputs := make([]core.Path, 0, len(doc.Outputs))
	for _, o := range doc.Outputs {
		p, err := core.ParsePath(o)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, p)
	}
	return project.New(doc.Project, base, outputs)
}

type resolver struct {
	effectDocs    map[string]*EffectClassDoc
	componentDocs map[string]*ComponentClassDoc
	effects       map[string]*model.SClass
	components    map[string]*model.CClass
	// stack of classes under construction, for cycle reports
	stack []string
}

func newResolver(doc *Document) (*resolver, error) {
	r := &resolver{
		effectDocs:    map[string]*EffectClassDoc{},
		componentDocs: map[string]*ComponentClassDoc{},
		effects:       map[string]*model.SClass{model.Boolean().Name(): model.Boolean()},
		components:    map[string]*model.CClass{model.Component().Name(): model.Component()},
	}
	for i := range doc.EffectClasses {
		d := &doc.EffectClasses[i]
		if _, dup := r.effectDocs[d.Name]; dup || d.Name == model.Boolean().Name() {
			return nil, core.NewVerifyError("effect class %q declared twice", d.Name)
		}
		r.effectDocs[d.Name] = d
	}
	for i := range doc.ComponentClasses {
		d := &doc.ComponentClasses[i]
		if _, dup := r.componentDocs[d.Name]; dup || d.Name == model.Component().Name() {
			return nil, core.NewVerifyError("component class %q declared twice", d.Name)
		}
		r.componentDocs[d.Name] = d
	}
	return r, nil
}

func (r *resolver) enter(key string) error {
	for i, k := range r.stack {
		if k == key {
			return core.NewVerifyError("cyclic class dependency: %s", strings.Join(append(r.stack[i:], key), " -> "))
		}
	}
	r.stack = append(r.stack, key)
	return nil
}

func (r *resolver) leave() { r.stack = r.stack[:len(r.stack)-1] }

func (r *resolver) effectClass(name string) (*model.SClass, error) {
	if c, ok := r.effects[name]; ok {
		return c, nil
	}
	doc, ok := r.effectDocs[name]
	if !ok {
		return nil, core.NewNotFoundError("effect class", name)
	}
	if err := r.enter("effect class " + name); err != nil {
		return nil, err
	}
	defer r.leave()

	spec := model.SClassSpec{Name: name, Inner: map[deficiency.Deficiency]*model.SClass{}}
	if doc.Super != "" {
		super, err := r.effectClass(doc.Super)
		if err != nil {
			return nil, err
		}
		spec.Super = super
	}
	for _, d := range doc.Deficiencies {
		spec.Deficiencies = append(spec.Deficiencies, deficiency.Deficiency(d))
	}
	for _, s := range doc.Relations {
		rel, err := parseRelation(s)
		if err != nil {
			return nil, fmt.Errorf("effect class %s: %w", name, err)
		}
		spec.Relations = append(spec.Relations, rel)
	}
	for d, innerName := range doc.Inner {
		inner, err := r.effectClass(innerName)
		if err != nil {
			return nil, err
		}
		spec.Inner[deficiency.Deficiency(d)] = inner
	}

	c, err := model.NewSClass(spec)
	if err != nil {
		return nil, err
	}
	r.effects[name] = c
	return c, nil
}

// parseRelation reads "FROM => TO"; "==>" is accepted as well.
func parseRelation(s string) (lattice.Relation, error) {
	idx := strings.Index(s, "=>")
	if idx < 0 {
		return lattice.Relation{}, core.NewModelingError("relation %q lacks \"=>\"", s)
	}
	from := strings.TrimSpace(strings.TrimRight(s[:idx], "="))
	to := strings.TrimSpace(s[idx+2:])
	if from == "" || to == "" {
		return lattice.Relation{}, core.NewModelingError("relation %q needs deficiencies on both sides", s)
	}
	return lattice.Relation{From: deficiency.Deficiency(from), To: deficiency.Deficiency(to)}, nil
}

func (r *resolver) componentClass(name string) (*model.CClass, error) {
	if c, ok := r.components[name]; ok {
		return c, nil
	}
	doc, ok := r.componentDocs[name]
	if !ok {
		return nil, core.NewNotFoundError("component class", name)
	}
	if err := r.enter("component class " + name); err != nil {
		return nil, err
	}
	defer r.leave()

	b := &classBuilder{r: r, doc: doc, spec: model.CClassSpec{
		Name:       name,
		Super:      model.Component(),
		Maps:       map[string]*defmap.Map{},
		Components: map[string]*model.CClass{},
	}}
	if doc.Super != "" {
		super, err := r.componentClass(doc.Super)
		if err != nil {
			return nil, err
		}
		b.spec.Super = super
	}
	for compName, className := range doc.Components {
		cc, err := r.componentClass(className)
		if err != nil {
			return nil, err
		}
		b.spec.Components[compName] = cc
	}
	for mapName, md := range doc.Maps {
		m, err := r.deficiencyMap(md)
		if err != nil {
			return nil, fmt.Errorf("map %s of %s: %w", mapName, name, err)
		}
		b.spec.Maps[mapName] = m
	}
	if err := b.effects(); err != nil {
		return nil, err
	}

	c, err := model.NewCClass(b.spec)
	if err != nil {
		return nil, err
	}
	r.components[name] = c
	return c, nil
}

func (r *resolver) deficiencyMap(doc MapDoc) (*defmap.Map, error) {
	src, err := r.effectClass(doc.Source)
	if err != nil {
		return nil, err
	}
	tgt, err := r.effectClass(doc.Target)
	if err != nil {
		return nil, err
	}
	if len(doc.Groups) == 0 && len(doc.Identity) == 0 {
		return src.MapTo(tgt)
	}
	groups := make(map[deficiency.Deficiency]deficiency.Set, len(doc.Groups))
	for img, keys := range doc.Groups {
		groups[deficiency.Deficiency(img)] = toSet(keys)
	}
	return defmap.New(src.Type(), tgt.Type(), groups, toSet(doc.Identity))
}

func toSet(names []string) deficiency.Set {
	defs := make([]deficiency.Deficiency, len(names))
	for i, n := range names {
		defs[i] = deficiency.Deficiency(n)
	}
	return deficiency.NewSet(defs...)
}

// classBuilder collects the effect declarations of one component class.
// Formulas see the class's own effects, its components and whatever the
// superclass chain declares.
type classBuilder struct {
	r    *resolver
	doc  *ComponentClassDoc
	spec model.CClassSpec
	// classes of the locally declared effects
	local map[string]*model.SClass
}

func (b *classBuilder) effects() error {
	b.local = make(map[string]*model.SClass, len(b.doc.Effects))
	for _, ed := range b.doc.Effects {
		if ed.Class == "" {
			return core.NewVerifyError("effect %s of %s without class", ed.Name, b.spec.Name)
		}
		c, err := b.r.effectClass(ed.Class)
		if err != nil {
			return err
		}
		b.local[ed.Name] = c
	}
	for _, ed := range b.doc.Effects {
		decl := &model.EffectDecl{
			Name:      ed.Name,
			Redeclare: ed.Redeclare,
			Input:     ed.Input,
			Output:    ed.Output,
			Class:     b.local[ed.Name],
		}
		if len(ed.Distribution) > 0 {
			d, err := distribution(decl.Class, ed.Distribution)
			if err != nil {
				return fmt.Errorf("distribution of effect %s in %s: %w", ed.Name, b.spec.Name, err)
			}
			decl.Distr = d
		}
		if ed.Formula != nil {
			f, err := b.formula(*ed.Formula)
			if err != nil {
				return fmt.Errorf("formula of effect %s in %s: %w", ed.Name, b.spec.Name, err)
			}
			decl.Formula = f
		}
		b.spec.Effects = append(b.spec.Effects, decl)
	}
	return nil
}

func distribution(c *model.SClass, probs map[string]string) (*probdistr.Distr, error) {
	m := make(map[deficiency.Deficiency]*big.Rat, len(probs))
	for d, s := range probs {
		p, err := probdistr.ParseProb(s)
		if err != nil {
			return nil, err
		}
		m[deficiency.Deficiency(d)] = p
	}
	return probdistr.New(c.Type(), m)
}

// effectType is the type of the effect at path as seen from the class
// under construction.
func (b *classBuilder) effectType(path core.Path) (*lattice.Type, error) {
	head, rest := path.Head()
	if len(rest) == 0 {
		if c, ok := b.local[head]; ok {
			return c.Type(), nil
		}
		if e := b.spec.Super.EffectDecl(head); e != nil {
			return e.Class.Type(), nil
		}
		return nil, core.NewNotFoundError("effect", path.String())
	}
	comp, ok := b.spec.Components[head]
	if !ok {
		comp = b.spec.Super.ComponentClass(head)
	}
	if comp == nil {
		return nil, core.NewNotFoundError("component", head)
	}
	e, err := comp.EffectDeclAt(rest)
	if err != nil {
		return nil, err
	}
	return e.Class.Type(), nil
}

func (b *classBuilder) mapOp(name, variance string) (formula.MapOp, error) {
	m, ok := b.spec.Maps[name]
	if !ok {
		m = b.spec.Super.Map(name)
	}
	if m == nil {
		return formula.MapOp{}, core.NewNotFoundError("map", name)
	}
	v := formula.Covariant
	switch strings.ToLower(variance) {
	case "", "covariant", "cov":
	case "contravariant", "cont":
		v = formula.Contravariant
	default:
		return formula.MapOp{}, core.NewModelingError("unknown variance %q of map %s", variance, name)
	}
	return formula.NewMapOp(name, v, m)
}

func (b *classBuilder) formula(doc FormulaDoc) (formula.Decl, error) {
	switch {
	case doc.Effect != "":
		path, err := core.ParsePath(doc.Effect)
		if err != nil {
			return nil, err
		}
		typ, err := b.effectType(path)
		if err != nil {
			return nil, err
		}
		return formula.DeclVar{Path: path, Type: typ}, nil
	case doc.Const != nil:
		if doc.Type == "" {
			return nil, core.NewModelingError("constant %v without type", *doc.Const)
		}
		c, err := b.r.effectClass(doc.Type)
		if err != nil {
			return nil, err
		}
		val := toSet(*doc.Const)
		if !c.Type().IsValid(val) {
			return nil, core.NewDomainError(core.ErrInvalidDeficiency, "constant %s is no valid set of %s", val, doc.Type)
		}
		return formula.DeclConst{Type: c.Type(), Val: val}, nil
	}

	var op formula.Operation
	switch strings.ToLower(doc.Op) {
	case "union", "or":
		op = formula.Union{}
	case "intersection", "and":
		op = formula.Intersection{}
	case "complement", "not":
		op = formula.Complement{}
	case "map", "":
		if doc.Map == "" {
			return nil, core.NewModelingError("formula node without effect, constant or operation")
		}
		m, err := b.mapOp(doc.Map, doc.Variance)
		if err != nil {
			return nil, err
		}
		op = m
	default:
		return nil, core.NewModelingError("unknown operation %q", doc.Op)
	}

	args := make([]formula.Decl, len(doc.Args))
	for i, a := range doc.Args {
		d, err := b.formula(a)
		if err != nil {
			return nil, err
		}
		args[i] = d
	}
	decl := formula.DeclComp{Op: op, Args: args}
	if _, err := decl.RetType(); err != nil {
		return nil, err
	}
	return decl, nil
}
