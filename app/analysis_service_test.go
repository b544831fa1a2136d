package app

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"relana/domain/core"
	"relana/domain/deficiency"
	"relana/domain/formula"
	"relana/domain/lattice"
	"relana/domain/model"
	"relana/domain/probdistr"
	"relana/domain/project"
	"relana/internal"
	"relana/internal/testkit"
)

type MockModelSource struct {
	mock.Mock
}

func (m *MockModelSource) Load(ctx context.Context) (*project.Project, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).(*project.Project)
	return p, args.Error(1)
}

type MockReportWriter struct {
	mock.Mock
}

func (m *MockReportWriter) Write(ctx context.Context, rep *project.Report) error {
	return m.Called(ctx, rep).Error(0)
}

func quietLogger(buf *bytes.Buffer) *internal.Logger {
	return internal.NewLoggerTo(buf, internal.LogLevelWarn)
}

func TestAnalyzeSeriesParallel(t *testing.T) {
	var logs bytes.Buffer
	writer := &MockReportWriter{}
	writer.On("Write", mock.Anything, mock.AnythingOfType("*project.Report")).Return(nil).Once()

	svc := NewAnalysisService(AnalysisConfig{MaxWorkers: 2, ParallelDepth: 1}, quietLogger(&logs), writer)
	rep, err := svc.Analyze(context.Background(), testkit.MustSeriesParallel("0.3", "0.5"))
	require.NoError(t, err)
	writer.AssertExpectations(t)

	series, ok := rep.Result(core.Path{"series"})
	require.True(t, ok)
	assert.Equal(t, "13/20", series.Prob.RatString())
	parallel, ok := rep.Result(core.Path{"parallel"})
	require.True(t, ok)
	assert.Equal(t, "3/20", parallel.Prob.RatString())

	require.NotNil(t, rep.Summary)
	assert.Equal(t, 2, rep.Summary.Outputs)
	assert.Equal(t, "series", rep.Summary.Riskiest)
	assert.Empty(t, rep.Warnings)
	assert.False(t, rep.Fingerprint.IsEmpty())
	assert.Equal(t, "plant", rep.Project)
}

func TestAnalyzeDeterministicFingerprint(t *testing.T) {
	svc := NewAnalysisService(AnalysisConfig{}, quietLogger(&bytes.Buffer{}))
	r1, err := svc.Analyze(context.Background(), testkit.MustSeriesParallel("0.3", "0.5"))
	require.NoError(t, err)
	r2, err := svc.Analyze(context.Background(), testkit.MustSeriesParallel("0.1", "0.2"))
	require.NoError(t, err)
	assert.Equal(t, r1.Fingerprint, r2.Fingerprint)
	assert.NotEqual(t, r1.ID, r2.ID)
}

func TestRunLoadsFromSource(t *testing.T) {
	src := &MockModelSource{}
	src.On("Load", mock.Anything).Return(testkit.MustSeriesParallel("0.3", "0.5"), nil).Once()
	svc := NewAnalysisService(AnalysisConfig{MaxWorkers: 1}, quietLogger(&bytes.Buffer{}))

	rep, err := svc.Run(context.Background(), src)
	require.NoError(t, err)
	assert.Len(t, rep.Results, 2)
	src.AssertExpectations(t)

	failing := &MockModelSource{}
	failing.On("Load", mock.Anything).Return(nil, core.NewModelingError("bad file")).Once()
	_, err = svc.Run(context.Background(), failing)
	assert.ErrorIs(t, err, core.ErrModeling)
}

func TestAnalyzeReportsWriterFailure(t *testing.T) {
	writer := &MockReportWriter{}
	writer.On("Write", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	svc := NewAnalysisService(AnalysisConfig{}, quietLogger(&bytes.Buffer{}), writer)
	_, err := svc.Analyze(context.Background(), testkit.MustSeriesParallel("0.3", "0.5"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestAnalyzeRejectsBadProjects(t *testing.T) {
	d, err := testkit.BoolDistr("0.2")
	require.NoError(t, err)
	withInput, err := model.NewCClass(model.CClassSpec{Name: "Open", Effects: []*model.EffectDecl{
		{Name: "feed", Input: true, Class: model.Boolean()},
		{Name: "out", Output: true, Class: model.Boolean(), Distr: d},
	}})
	require.NoError(t, err)
	hidden, err := model.NewCClass(model.CClassSpec{Name: "Hidden", Effects: []*model.EffectDecl{
		{Name: "inner", Class: model.Boolean(), Distr: d},
		{Name: "out", Output: true, Class: model.Boolean(), Distr: d},
	}})
	require.NoError(t, err)

	tests := []struct {
		name    string
		outputs []core.Path
		base    *model.CClass
		kind    error
	}{
		{"input effect in base", nil, withInput, core.ErrModeling},
		{"non-output effect", []core.Path{{"inner"}}, hidden, core.ErrModeling},
		{"unknown output", []core.Path{{"nothing"}}, hidden, core.ErrNotFound},
	}
	svc := NewAnalysisService(AnalysisConfig{}, quietLogger(&bytes.Buffer{}))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := project.New(tt.name, tt.base, tt.outputs)
			require.NoError(t, err)
			_, err = svc.Analyze(context.Background(), p)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestCyclicFormulasFailValidation(t *testing.T) {
	boolRef := func(name string) formula.DeclVar {
		return formula.DeclVar{Path: core.Path{name}, Type: model.Boolean().Type()}
	}
	c, err := model.NewCClass(model.CClassSpec{Name: "Loop", Effects: []*model.EffectDecl{
		{Name: "a", Output: true, Class: model.Boolean(), Formula: boolRef("b")},
		{Name: "b", Class: model.Boolean(), Formula: boolRef("a")},
	}})
	require.NoError(t, err)
	p, err := project.New("cyc", c, nil)
	require.NoError(t, err)

	svc := NewAnalysisService(AnalysisConfig{}, quietLogger(&bytes.Buffer{}))
	_, err = svc.Validate(context.Background(), p)
	assert.ErrorIs(t, err, core.ErrVerification)
	assert.False(t, core.IsInvariantError(err))

	_, err = svc.Analyze(context.Background(), p)
	assert.ErrorIs(t, err, core.ErrVerification)
	assert.False(t, core.IsInvariantError(err))
}

func degenerateProject(t *testing.T) *project.Project {
	t.Helper()
	chain, err := model.NewSClass(model.SClassSpec{Name: "Leak", Deficiencies: []deficiency.Deficiency{"BURST", "DRIP"},
		Relations: []lattice.Relation{{From: "BURST", To: "DRIP"}}})
	require.NoError(t, err)
	half := big.NewRat(1, 2)
	d, err := probdistr.New(chain.Type(), map[deficiency.Deficiency]*big.Rat{"BURST": half, "DRIP": half})
	require.NoError(t, err)
	c, err := model.NewCClass(model.CClassSpec{Name: "Pipe", Effects: []*model.EffectDecl{
		{Name: "leak", Output: true, Class: chain, Distr: d},
	}})
	require.NoError(t, err)
	p, err := project.New("pipe", c, nil)
	require.NoError(t, err)
	return p
}

func TestValidateCollectsDegenerateWarnings(t *testing.T) {
	var logs bytes.Buffer
	svc := NewAnalysisService(AnalysisConfig{}, quietLogger(&logs))
	res, err := svc.Validate(context.Background(), degenerateProject(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"leak"}, res.Effects)
	assert.Equal(t, []string{"leak"}, res.Outputs)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "effect leak: degenerate")
	assert.Contains(t, logs.String(), "level=WARN")

	rep, err := svc.Analyze(context.Background(), degenerateProject(t))
	require.NoError(t, err)
	assert.Equal(t, "1/2", rep.Results[0].Prob.RatString())
	assert.NotEmpty(t, rep.Warnings)
}

func TestAnalyzeHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := NewAnalysisService(AnalysisConfig{}, quietLogger(&bytes.Buffer{}))
	_, err := svc.Analyze(ctx, testkit.MustSeriesParallel("0.3", "0.5"))
	assert.ErrorIs(t, err, context.Canceled)
	_, err = svc.Validate(ctx, testkit.MustSeriesParallel("0.3", "0.5"))
	assert.ErrorIs(t, err, context.Canceled)
}
