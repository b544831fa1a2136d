// Package yamlmodel reads a project with its class library from YAML and
// resolves it into verified effect and component classes.
package yamlmodel

// Document is the root of a model file.
type Document struct {
	Project string `yaml:"project"`
	// Base names the component class to analyze.
	Base string `yaml:"base"`
	// Outputs lists effect locators; empty means every declared output.
	Outputs          []string            `yaml:"outputs,omitempty"`
	EffectClasses    []EffectClassDoc    `yaml:"effect_classes,omitempty"`
	ComponentClasses []ComponentClassDoc `yaml:"component_classes,omitempty"`
}

// EffectClassDoc declares an effect class.
type EffectClassDoc struct {
	Name         string   `yaml:"name"`
	Super        string   `yaml:"super,omitempty"`
	Deficiencies []string `yaml:"deficiencies,omitempty"`
	// Relations are written "FROM => TO": FROM implies TO.
	Relations []string `yaml:"relations,omitempty"`
	// Inner maps inherited deficiencies to the effect classes refining them.
	Inner map[string]string `yaml:"inner,omitempty"`
}

// ComponentClassDoc declares a component class.
type ComponentClassDoc struct {
	Name       string            `yaml:"name"`
	Super      string            `yaml:"super,omitempty"`
	Maps       map[string]MapDoc `yaml:"maps,omitempty"`
	Components map[string]string `yaml:"components,omitempty"`
	Effects    []EffectDoc       `yaml:"effects,omitempty"`
}

// MapDoc declares a deficiency map between two effect classes. Without
// groups and identity it is the subclass map from source up to target.
type MapDoc struct {
	Source   string              `yaml:"source"`
	Target   string              `yaml:"target"`
	Groups   map[string][]string `yaml:"groups,omitempty"`
	Identity []string            `yaml:"identity,omitempty"`
}

// EffectDoc declares an effect of a component class.
type EffectDoc struct {
	Name      string `yaml:"name"`
	Class     string `yaml:"class"`
	Input     bool   `yaml:"input,omitempty"`
	Output    bool   `yaml:"output,omitempty"`
	Redeclare bool   `yaml:"redeclare,omitempty"`
	// Distribution gives each deficiency its probability as decimal or fraction.
	Distribution map[string]string `yaml:"distribution,omitempty"`
	Formula      *FormulaDoc       `yaml:"formula,omitempty"`
}

// FormulaDoc is one node of a formula: an effect reference, a constant or
// an operation on argument nodes.
type FormulaDoc struct {
	Effect string    `yaml:"effect,omitempty"`
	Const  *[]string `yaml:"const,omitempty"`
	// Type names the effect class of a constant.
	Type string `yaml:"type,omitempty"`
	// Op is one of union, intersection, complement and map.
	Op       string       `yaml:"op,omitempty"`
	Map      string       `yaml:"map,omitempty"`
	Variance string       `yaml:"variance,omitempty"`
	Args     []FormulaDoc `yaml:"args,omitempty"`
}
