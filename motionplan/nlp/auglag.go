package nlp

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/optimize"

	"go.viam.com/parkplan/logging"
)

// Default augmented Lagrangian settings.
const (
	DefaultOuterIterations = 60
	DefaultInnerIterations = 400
	DefaultInitialPenalty  = 10.0
	DefaultPenaltyGrowth   = 10.0
	DefaultMaxPenalty      = 1e8
)

// AugLagConfig configures the augmented Lagrangian solver.
type AugLagConfig struct {
	Options
	// OuterIterations caps multiplier updates.
	OuterIterations int `json:"outer_iterations,omitempty"`
	// InnerIterations caps L-BFGS major iterations per subproblem.
	InnerIterations int     `json:"inner_iterations,omitempty"`
	InitialPenalty  float64 `json:"initial_penalty,omitempty"`
	PenaltyGrowth   float64 `json:"penalty_growth,omitempty"`
	MaxPenalty      float64 `json:"max_penalty,omitempty"`
}

func (c *AugLagConfig) fillDefaults() {
	c.Options.fillDefaults()
	if c.OuterIterations == 0 {
		c.OuterIterations = DefaultOuterIterations
	}
	if c.InnerIterations == 0 {
		c.InnerIterations = DefaultInnerIterations
	}
	if c.InitialPenalty == 0 {
		c.InitialPenalty = DefaultInitialPenalty
	}
	if c.PenaltyGrowth == 0 {
		c.PenaltyGrowth = DefaultPenaltyGrowth
	}
	if c.MaxPenalty == 0 {
		c.MaxPenalty = DefaultMaxPenalty
	}
}

// Validate ensures all parts of the config are valid.
func (c *AugLagConfig) Validate() error {
	if err := c.Options.Validate(); err != nil {
		return err
	}
	if c.OuterIterations < 0 || c.InnerIterations < 0 || c.InitialPenalty < 0 || c.MaxPenalty < 0 {
		return errors.New("auglag iterations and penalties cannot be negative")
	}
	if c.PenaltyGrowth != 0 && c.PenaltyGrowth < 1 {
		return errors.New("auglag penalty_growth must be at least 1")
	}
	return nil
}

type augLag struct {
	conf   AugLagConfig
	logger logging.Logger
}

// NewAugLag returns a pure Go solver using the Powell-Hestenes-Rockafellar augmented Lagrangian
// method. Each subproblem is minimized with gonum's L-BFGS; bounds enter as inequality
// penalties and variables whose lower and upper bounds coincide are removed from the subproblem.
func NewAugLag(conf AugLagConfig, logger logging.Logger) (Solver, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	conf.fillDefaults()
	return &augLag{conf: conf, logger: logger}, nil
}

func (s *augLag) Name() string {
	return AugLagName
}

// augLagState is the working data of one solve.
type augLagState struct {
	p      *Problem
	cache  *equalityCache
	free   []int
	x      []float64 // full point, fixed variables already set
	fgrad  []float64
	lambda []float64 // equality multipliers
	lowMul []float64 // lower bound multipliers, per variable
	upMul  []float64
	mu     float64
	evals  int
}

// expand writes the free variables z into the full point.
func (st *augLagState) expand(z []float64) []float64 {
	for k, i := range st.free {
		st.x[i] = z[k]
	}
	return st.x
}

// boundTerm is the PHR penalty of g ≤ 0 with multiplier nu and its derivative with respect to g.
func boundTerm(g, nu, mu float64) (float64, float64) {
	shifted := math.Max(0, nu+mu*g)
	return (shifted*shifted - nu*nu) / (2 * mu), shifted
}

func (st *augLagState) value(z []float64) float64 {
	x := st.expand(z)
	st.evals++
	f := st.p.Objective.Eval(x, nil)
	for r, c := range st.cache.residuals(x) {
		f += st.lambda[r]*c + st.mu/2*c*c
	}
	for _, i := range st.free {
		if lo := st.p.lower(i); !math.IsInf(lo, -1) {
			t, _ := boundTerm(lo-x[i], st.lowMul[i], st.mu)
			f += t
		}
		if hi := st.p.upper(i); !math.IsInf(hi, 1) {
			t, _ := boundTerm(x[i]-hi, st.upMul[i], st.mu)
			f += t
		}
	}
	return f
}

func (st *augLagState) gradient(grad, z []float64) {
	x := st.expand(z)
	st.p.Objective.Eval(x, st.fgrad)
	c := st.cache.residuals(x)
	w := make([]float64, len(c))
	for r := range c {
		w[r] = st.lambda[r] + st.mu*c[r]
	}
	st.cache.addJacobianTransposed(st.fgrad, x, w)
	for k, i := range st.free {
		g := st.fgrad[i]
		if lo := st.p.lower(i); !math.IsInf(lo, -1) {
			_, d := boundTerm(lo-x[i], st.lowMul[i], st.mu)
			g -= d
		}
		if hi := st.p.upper(i); !math.IsInf(hi, 1) {
			_, d := boundTerm(x[i]-hi, st.upMul[i], st.mu)
			g += d
		}
		grad[k] = g
	}
}

// updateMultipliers applies the first order multiplier update at x.
func (st *augLagState) updateMultipliers(x []float64) {
	for r, c := range st.cache.residuals(x) {
		st.lambda[r] += st.mu * c
	}
	for _, i := range st.free {
		if lo := st.p.lower(i); !math.IsInf(lo, -1) {
			st.lowMul[i] = math.Max(0, st.lowMul[i]+st.mu*(lo-x[i]))
		}
		if hi := st.p.upper(i); !math.IsInf(hi, 1) {
			st.upMul[i] = math.Max(0, st.upMul[i]+st.mu*(x[i]-hi))
		}
	}
}

// Solve runs the outer multiplier loop from x0, checking ctx between subproblems.
func (s *augLag) Solve(ctx context.Context, p *Problem, x0 []float64) (*Result, error) {
	if err := p.Validate(x0); err != nil {
		return nil, err
	}
	start := time.Now()

	st := &augLagState{
		p:      p,
		cache:  newEqualityCache(p),
		x:      append([]float64(nil), x0...),
		fgrad:  make([]float64, p.Dim),
		lowMul: make([]float64, p.Dim),
		upMul:  make([]float64, p.Dim),
		mu:     s.conf.InitialPenalty,
	}
	clampToBounds(p, st.x)
	for i := 0; i < p.Dim; i++ {
		if p.lower(i) < p.upper(i) {
			st.free = append(st.free, i)
		}
	}
	st.lambda = make([]float64, st.cache.m)

	z := make([]float64, len(st.free))
	for k, i := range st.free {
		z[k] = st.x[i]
	}

	res := &Result{Status: "MAX_OUTER_ITERATIONS"}
	violation := p.MaxViolation(st.x)
	prevObjective := math.Inf(1)
	s.logger.Debugw("starting auglag",
		"dim", p.Dim, "free", len(st.free), "equality_rows", st.cache.m, "initial_violation", violation)

	for outer := 0; outer < s.conf.OuterIterations; outer++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if st.evals >= s.conf.MaxEvaluations {
			res.Status = "MAXEVAL_REACHED"
			break
		}
		if s.conf.MaxTimeSeconds > 0 && time.Since(start).Seconds() > s.conf.MaxTimeSeconds {
			res.Status = "MAXTIME_REACHED"
			break
		}

		innerStatus := optimize.Success
		if len(z) > 0 {
			settings := &optimize.Settings{
				GradientThreshold: s.conf.Tolerance,
				MajorIterations:   s.conf.InnerIterations,
				FuncEvaluations:   s.conf.MaxEvaluations - st.evals,
				Converger: &optimize.FunctionConverge{
					Absolute:   s.conf.Tolerance * s.conf.Tolerance,
					Relative:   s.conf.Tolerance,
					Iterations: 25,
				},
			}
			inner, err := optimize.Minimize(
				optimize.Problem{Func: st.value, Grad: st.gradient}, z, settings, &optimize.LBFGS{})
			if inner == nil {
				return nil, errors.Wrap(err, "auglag subproblem")
			}
			if err != nil {
				s.logger.Debugw("auglag subproblem stopped early", "outer", outer, "status", inner.Status, "error", err)
			}
			innerStatus = inner.Status
			copy(z, inner.X)
		}

		x := st.expand(z)
		objective := p.Objective.Eval(x, nil)
		newViolation := p.MaxViolation(x)
		s.logger.Debugw("auglag outer iteration",
			"outer", outer, "objective", objective, "violation", newViolation, "penalty", st.mu, "inner", innerStatus)

		stalled := math.Abs(objective-prevObjective) <= s.conf.Tolerance*(1+math.Abs(objective))
		if newViolation <= s.conf.ConstraintTolerance && (!innerStatus.Early() || stalled) {
			res.Status = "SUCCESS"
			res.Converged = true
			break
		}
		st.updateMultipliers(x)
		if newViolation > 0.25*violation {
			st.mu = math.Min(st.mu*s.conf.PenaltyGrowth, s.conf.MaxPenalty)
		}
		violation = newViolation
		prevObjective = objective
	}

	res.X = append([]float64(nil), st.expand(z)...)
	res.Objective = p.Objective.Eval(res.X, nil)
	res.Evaluations = st.evals
	s.logger.Debugw("auglag finished", "status", res.Status, "objective", res.Objective, "evaluations", res.Evaluations)
	return finish(p, res, s.conf.ConstraintTolerance)
}

// clampToBounds moves x into the problem bounds in place.
func clampToBounds(p *Problem, x []float64) {
	for i := range x {
		x[i] = math.Min(math.Max(x[i], p.lower(i)), p.upper(i))
	}
}
