//go:build !no_cgo

package nlp

import (
	"context"
	"sync"

	"github.com/go-nlopt/nlopt"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/parkplan/logging"
)

// NloptConfig configures the SLSQP solver.
type NloptConfig struct {
	Options
}

type nloptSolver struct {
	conf   NloptConfig
	logger logging.Logger
}

// NewNlopt returns a solver running nlopt's SLSQP algorithm.
func NewNlopt(conf NloptConfig, logger logging.Logger) (Solver, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	conf.fillDefaults()
	return &nloptSolver{conf: conf, logger: logger}, nil
}

func (s *nloptSolver) Name() string {
	return NloptName
}

type optimizeReturn struct {
	solution []float64
	score    float64
	err      error
}

// Solve runs SLSQP from x0. Equality rows are registered one by one against a shared cache, so
// every constraint is still evaluated once per point.
func (s *nloptSolver) Solve(ctx context.Context, p *Problem, x0 []float64) (*Result, error) {
	if err := p.Validate(x0); err != nil {
		return nil, err
	}

	opt, err := nlopt.NewNLopt(nlopt.LD_SLSQP, uint(p.Dim))
	if err != nil {
		return nil, errors.Wrap(err, "nlopt creation error")
	}
	defer opt.Destroy()

	var mu sync.Mutex
	evaluations := 0
	last := append([]float64(nil), x0...)
	clampToBounds(p, last)

	// Gradient is, under the hood, a C array that nlopt expects to be filled in place.
	nloptMinFunc := func(x, gradient []float64) float64 {
		mu.Lock()
		evaluations++
		copy(last, x)
		mu.Unlock()
		return p.Objective.Eval(x, gradient)
	}

	err = multierr.Combine(
		opt.SetMinObjective(nloptMinFunc),
		opt.SetFtolRel(s.conf.Tolerance),
		opt.SetXtolRel(s.conf.Tolerance),
		opt.SetMaxEval(s.conf.MaxEvaluations),
	)
	if s.conf.MaxTimeSeconds > 0 {
		err = multierr.Combine(err, opt.SetMaxTime(s.conf.MaxTimeSeconds))
	}
	if p.Lower != nil {
		err = multierr.Combine(err, opt.SetLowerBounds(p.Lower))
	}
	if p.Upper != nil {
		err = multierr.Combine(err, opt.SetUpperBounds(p.Upper))
	}
	cache := newEqualityCache(p)
	for r := 0; r < cache.m; r++ {
		row := r
		err = multierr.Combine(err, opt.AddEqualityConstraint(func(x, gradient []float64) float64 {
			return cache.row(row, x, gradient)
		}, s.conf.ConstraintTolerance))
	}
	if err != nil {
		return nil, errors.Wrap(err, "configuring nlopt")
	}
	s.logger.Debugw("starting nlopt", "dim", p.Dim, "equality_rows", cache.m, "max_evaluations", s.conf.MaxEvaluations)

	start := append([]float64(nil), last...)
	solveChan := make(chan *optimizeReturn, 1)
	var activeSolvers sync.WaitGroup
	activeSolvers.Add(1)
	utils.PanicCapturingGo(func() {
		defer activeSolvers.Done()
		solution, score, nloptErr := opt.Optimize(start)
		solveChan <- &optimizeReturn{solution, score, nloptErr}
	})

	var ret *optimizeReturn
	select {
	case <-ctx.Done():
		stopErr := opt.ForceStop()
		activeSolvers.Wait()
		<-solveChan
		return nil, multierr.Combine(stopErr, ctx.Err())
	case ret = <-solveChan:
	}

	status := opt.LastStatus()
	res := &Result{Status: status}
	mu.Lock()
	res.Evaluations = evaluations
	if ret.solution != nil {
		res.X = ret.solution
		res.Objective = ret.score
	} else {
		res.X = append([]float64(nil), last...)
		res.Objective = p.Objective.Eval(res.X, nil)
	}
	mu.Unlock()

	switch status {
	case "SUCCESS", "STOPVAL_REACHED", "FTOL_REACHED", "XTOL_REACHED":
		res.Converged = ret.err == nil
	}
	if ret.err != nil {
		s.logger.Debugw("nlopt stopped with an error", "status", status, "error", ret.err)
	}
	s.logger.Debugw("nlopt finished", "status", status, "objective", res.Objective, "evaluations", res.Evaluations)
	return finish(p, res, s.conf.ConstraintTolerance)
}
