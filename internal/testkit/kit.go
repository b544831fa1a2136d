package testkit

import (
	"context"
	"math/big"
	"sync"

	"relana/domain/core"
	"relana/domain/deficiency"
	"relana/domain/formula"
	"relana/domain/lattice"
	"relana/domain/model"
	"relana/domain/probdistr"
	"relana/domain/project"
	"relana/ports"
)

// BoolDistr is the distribution over Boolean with P(UNDET) = p, p given as
// a decimal or fraction.
func BoolDistr(p string) (*probdistr.Distr, error) {
	r, err := probdistr.ParseProb(p)
	if err != nil {
		return nil, err
	}
	return probdistr.New(lattice.Boolean(), map[deficiency.Deficiency]*big.Rat{deficiency.Undet: r})
}

// RandomSwitch is a component class with a single random Boolean output
// effect "fail".
func RandomSwitch(name, p string) (*model.CClass, error) {
	d, err := BoolDistr(p)
	if err != nil {
		return nil, err
	}
	return model.NewCClass(model.CClassSpec{
		Name: name,
		Effects: []*model.EffectDecl{
			{Name: "fail", Output: true, Class: model.Boolean(), Distr: d},
		},
	})
}

// SeriesParallel builds the two-pump system: output "series" fails when any
// pump fails, "parallel" when both do.
func SeriesParallel(p1, p2 string) (*project.Project, error) {
	a, err := RandomSwitch("PumpA", p1)
	if err != nil {
		return nil, err
	}
	b, err := RandomSwitch("PumpB", p2)
	if err != nil {
		return nil, err
	}
	boolType := lattice.Boolean()
	args := []formula.Decl{
		formula.DeclVar{Path: core.Path{"a", "fail"}, Type: boolType},
		formula.DeclVar{Path: core.Path{"b", "fail"}, Type: boolType},
	}
	sys, err := model.NewCClass(model.CClassSpec{
		Name:       "Plant",
		Components: map[string]*model.CClass{"a": a, "b": b},
		Effects: []*model.EffectDecl{
			{Name: "series", Output: true, Class: model.Boolean(), Formula: formula.DeclComp{Op: formula.Union{}, Args: args}},
			{Name: "parallel", Output: true, Class: model.Boolean(), Formula: formula.DeclComp{Op: formula.Intersection{}, Args: args}},
		},
	})
	if err != nil {
		return nil, err
	}
	return project.New("plant", sys, nil)
}

// MustSeriesParallel is SeriesParallel panicking on error
func MustSeriesParallel(p1, p2 string) *project.Project {
	p, err := SeriesParallel(p1, p2)
	if err != nil {
		panic(err)
	}
	return p
}

// StaticModelSource serves a fixed project
type StaticModelSource struct {
	Project *project.Project
	Err     error
}

var _ ports.ModelSource = (*StaticModelSource)(nil)

func (s *StaticModelSource) Load(ctx context.Context) (*project.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Project, s.Err
}

// InMemoryReportStore keeps written reports in memory
type InMemoryReportStore struct {
	mu      sync.RWMutex
	reports []*project.Report
}

var _ ports.ReportWriter = (*InMemoryReportStore)(nil)

// NewInMemoryReportStore creates an empty store
func NewInMemoryReportStore() *InMemoryReportStore {
	return &InMemoryReportStore{}
}

func (s *InMemoryReportStore) Write(ctx context.Context, rep *project.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, rep)
	return nil
}

// Reports returns the written reports in order
func (s *InMemoryReportStore) Reports() []*project.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*project.Report(nil), s.reports...)
}

// Get returns the report with the given ID
func (s *InMemoryReportStore) Get(id core.ID) (*project.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reports {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}
