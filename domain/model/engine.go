package model

import (
	"context"
	"math/big"

	"golang.org/x/sync/errgroup"

	"relana/domain/core"
	"relana/domain/formula"
)

// Prob returns the exact probability that the effect at path exhibits at
// least one deficiency.
//
// The defining formula is rewritten until it mentions a random instance.
// The instance is then conditioned on one of its minimal deficiencies d
// occurring or not; both snapshots are evaluated recursively and combined
// with the conditional probability p of d:
//
//	P = p * P(d occurs) + (1-p) * P(d absent)
//
// Each step removes at least one deficiency from some instance, so the
// recursion ends with constant formulas.
func (f *FlatCInstance) Prob(path core.Path) (*big.Rat, error) {
	return f.prob(context.Background(), path, 0)
}

// ProbParallel is Prob evaluating the two branches of the first depth
// levels of the recursion concurrently.
func (f *FlatCInstance) ProbParallel(ctx context.Context, path core.Path, depth int) (*big.Rat, error) {
	return f.prob(ctx, path, depth)
}

func (f *FlatCInstance) prob(ctx context.Context, path core.Path, depth int) (*big.Rat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := f.Effect(path)
	if err != nil {
		return nil, err
	}
	root, err := rootFormula(s)
	if err != nil {
		return nil, err
	}
	random, root, err := f.ground(root)
	if err != nil {
		return nil, err
	}
	if random == nil {
		val, ok := formula.ConstValue(root)
		if !ok {
			return nil, core.NewInvariantError(errNotConstant(root))
		}
		if val.IsEmpty() {
			return new(big.Rat), nil
		}
		return big.NewRat(1, 1), nil
	}

	d := random.typ.Min().Sorted()[0]
	p, err := random.distr.CondProb(d)
	if err != nil {
		return nil, core.NewInvariantError(err)
	}
	occurs, err := f.Condition(random, d, true)
	if err != nil {
		return nil, core.NewInvariantError(err)
	}
	absent, err := f.Condition(random, d, false)
	if err != nil {
		return nil, core.NewInvariantError(err)
	}

	var pOcc, pAbs *big.Rat
	if depth > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			pOcc, err = occurs.prob(gctx, path, depth-1)
			return err
		})
		g.Go(func() error {
			var err error
			pAbs, err = absent.prob(gctx, path, depth-1)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		if pOcc, err = occurs.prob(ctx, path, 0); err != nil {
			return nil, err
		}
		if pAbs, err = absent.prob(ctx, path, 0); err != nil {
			return nil, err
		}
	}
	return Combine(p, pOcc, pAbs), nil
}

// Combine applies the law of total probability: p*occ + (1-p)*abs.
func Combine(p, occ, abs *big.Rat) *big.Rat {
	res := new(big.Rat).Mul(p, occ)
	q := new(big.Rat).Sub(big.NewRat(1, 1), p)
	return res.Add(res, q.Mul(q, abs))
}
