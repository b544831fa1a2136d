package app

import (
	"context"
	"fmt"
	"math/big"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"relana/domain/core"
	"relana/domain/model"
	"relana/domain/probdistr"
	"relana/domain/project"
	"relana/internal"
	"relana/internal/report"
	"relana/ports"
)

// AnalysisConfig tunes evaluation
type AnalysisConfig struct {
	// ParallelDepth is passed to the engine for every output
	ParallelDepth int
	// MaxWorkers bounds the outputs evaluated concurrently
	MaxWorkers int
}

// AnalysisService verifies projects and computes the probabilities of their outputs
type AnalysisService struct {
	cfg     AnalysisConfig
	logger  *internal.Logger
	writers []ports.ReportWriter
}

// ValidationResult is what a project check finds without evaluating anything
type ValidationResult struct {
	Project  string   `json:"project"`
	Effects  []string `json:"effects"`
	Outputs  []string `json:"outputs"`
	Warnings []string `json:"warnings"`
}

// NewAnalysisService creates an analysis service; every report is handed to the writers
func NewAnalysisService(cfg AnalysisConfig, logger *internal.Logger, writers ...ports.ReportWriter) *AnalysisService {
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &AnalysisService{cfg: cfg, logger: logger, writers: writers}
}

// Run loads the project from src and analyzes it
func (s *AnalysisService) Run(ctx context.Context, src ports.ModelSource) (*project.Report, error) {
	proj, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return s.Analyze(ctx, proj)
}

// Analyze evaluates every output of proj
func (s *AnalysisService) Analyze(ctx context.Context, proj *project.Project) (*project.Report, error) {
	log := s.logger.With("project", proj.Name)
	flat, warnings, err := s.prepare(proj)
	if err != nil {
		return nil, err
	}
	log.Info("evaluating %d outputs of %d effects", len(proj.Outputs), len(flat.Paths()))

	probs := make([]*big.Rat, len(proj.Outputs))
	sem := semaphore.NewWeighted(int64(s.cfg.MaxWorkers))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range proj.Outputs {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			p, err := flat.ProbParallel(gctx, path, s.cfg.ParallelDepth)
			if err != nil {
				return fmt.Errorf("output %s: %w", path, err)
			}
			log.Debug("output %s has probability %s", path, p.RatString())
			probs[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rep := &project.Report{
		ID:          core.NewID(),
		Project:     proj.Name,
		CreatedAt:   core.Now(),
		Warnings:    warnings,
		Fingerprint: fingerprint(flat),
	}
	for i, path := range proj.Outputs {
		rep.Results = append(rep.Results, project.Result{Path: path, Prob: probs[i]})
	}
	if rep.Summary, err = report.Summarize(rep.Results); err != nil {
		return nil, fmt.Errorf("failed to summarize report: %w", err)
	}

	for _, w := range s.writers {
		if err := w.Write(ctx, rep); err != nil {
			return nil, fmt.Errorf("failed to write report: %w", err)
		}
	}
	log.Info("analysis %s finished", rep.ID.Short())
	return rep, nil
}

// Validate checks proj as Analyze would, without evaluating outputs
func (s *AnalysisService) Validate(ctx context.Context, proj *project.Project) (*ValidationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	flat, warnings, err := s.prepare(proj)
	if err != nil {
		return nil, err
	}
	res := &ValidationResult{Project: proj.Name, Warnings: warnings}
	for _, p := range flat.Paths() {
		res.Effects = append(res.Effects, p.String())
	}
	for _, p := range proj.Outputs {
		res.Outputs = append(res.Outputs, p.String())
	}
	return res, nil
}

// prepare instantiates the base class and checks everything evaluation
// relies on. It returns the degenerate distribution warnings.
func (s *AnalysisService) prepare(proj *project.Project) (*model.FlatCInstance, []string, error) {
	if inputs := proj.InputEffects(); len(inputs) > 0 {
		return nil, nil, core.NewModelingError("found declaration of input effects %v in base class %s", inputs, proj.Base.Name())
	}
	ci, err := proj.Base.Instantiate()
	if err != nil {
		return nil, nil, err
	}
	flat := ci.Flatten()

	for _, path := range proj.Outputs {
		decl, err := proj.Base.EffectDeclAt(path)
		if err != nil {
			return nil, nil, err
		}
		if !decl.Output {
			return nil, nil, core.NewModelingError("found non-output effect %s", path)
		}
	}

	warnings, err := s.validateDistributions(flat)
	if err != nil {
		return nil, nil, err
	}
	return flat, warnings, nil
}

func (s *AnalysisService) validateDistributions(flat *model.FlatCInstance) ([]string, error) {
	warnings := []string{}
	seen := map[*probdistr.Distr]bool{}
	for _, path := range flat.Paths() {
		inst, err := flat.Effect(path)
		if err != nil {
			return nil, err
		}
		d := inst.Distr()
		if d == nil || seen[d] {
			continue
		}
		seen[d] = true
		v, err := d.Validate()
		if err != nil {
			return nil, fmt.Errorf("distribution of effect %s: %w", path, err)
		}
		for _, deg := range v.Degenerate {
			w := fmt.Sprintf("effect %s: degenerate conditional probability %s", path, deg)
			s.logger.Warn("%s", w)
			warnings = append(warnings, w)
		}
	}
	return warnings, nil
}

// fingerprint hashes the dependency graph of the flattened effects.
func fingerprint(flat *model.FlatCInstance) core.Hash {
	edges := map[string][]string{}
	for _, path := range flat.Paths() {
		inst, err := flat.Effect(path)
		if err != nil {
			continue
		}
		var deps []string
		if f := inst.Formula(); f != nil {
			for _, v := range f.Vars() {
				deps = append(deps, v.Name())
			}
		}
		edges[path.String()+":"+inst.Type().Fingerprint().String()] = deps
	}
	return core.ComputeEdgeHash(edges)
}
