// Package nlp solves smooth nonlinear programs with equality constraints and variable bounds.
//
// Two solvers are provided: nlopt's SLSQP through cgo, and a pure Go augmented Lagrangian method
// built on gonum's unconstrained optimizers.
package nlp

import (
	"context"
	"fmt"
	"math"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/parkplan/logging"
)

// Solver names accepted by New.
const (
	NloptName   = "nlopt"
	AugLagName  = "auglag"
	DefaultName = NloptName
)

// Objective is a scalar function with an analytic gradient. Eval writes the gradient at x into
// grad when grad is not empty.
type Objective interface {
	Eval(x, grad []float64) float64
}

// ObjectiveFunc adapts a plain function to Objective.
type ObjectiveFunc func(x, grad []float64) float64

// Eval calls f.
func (f ObjectiveFunc) Eval(x, grad []float64) float64 {
	return f(x, grad)
}

// Constraint is a vector of Dim equality residuals that must be driven to zero. Eval writes the
// residuals at x into result and, when jac is not empty, the dense row major Dim×len(x) Jacobian
// into jac.
type Constraint interface {
	Name() string
	Dim() int
	Eval(result, x, jac []float64)
}

// Problem is a nonlinear program: minimize Objective subject to every Equality constraint being zero
// and Lower ≤ x ≤ Upper. Nil bounds leave every variable unbounded.
type Problem struct {
	Dim       int
	Objective Objective
	Equality  []Constraint
	Lower     []float64
	Upper     []float64
}

// Validate checks the problem against an initial guess.
func (p *Problem) Validate(x0 []float64) error {
	if p.Dim <= 0 {
		return errors.New("problem dimension must be positive")
	}
	if p.Objective == nil {
		return errors.New("problem has no objective")
	}
	if len(x0) != p.Dim {
		return errors.Errorf("initial guess has %d values, problem has %d", len(x0), p.Dim)
	}
	if floats.HasNaN(x0) {
		return errors.New("initial guess contains NaN")
	}
	if (p.Lower != nil && len(p.Lower) != p.Dim) || (p.Upper != nil && len(p.Upper) != p.Dim) {
		return errors.Errorf("bounds must have %d values", p.Dim)
	}
	for i := range p.Lower {
		if p.Upper != nil && p.Lower[i] > p.Upper[i] {
			return errors.Errorf("variable %d has lower bound %v above upper bound %v", i, p.Lower[i], p.Upper[i])
		}
	}
	return nil
}

// Rows returns the total number of equality residuals.
func (p *Problem) Rows() int {
	m := 0
	for _, c := range p.Equality {
		m += c.Dim()
	}
	return m
}

func (p *Problem) lower(i int) float64 {
	if p.Lower == nil {
		return math.Inf(-1)
	}
	return p.Lower[i]
}

func (p *Problem) upper(i int) float64 {
	if p.Upper == nil {
		return math.Inf(1)
	}
	return p.Upper[i]
}

// MaxViolation returns the largest absolute equality residual or bound excess at x.
func (p *Problem) MaxViolation(x []float64) float64 {
	worst := 0.
	for i, v := range x {
		worst = math.Max(worst, math.Max(p.lower(i)-v, v-p.upper(i)))
	}
	for _, c := range p.Equality {
		r := make([]float64, c.Dim())
		c.Eval(r, x, nil)
		worst = math.Max(worst, floats.Norm(r, math.Inf(1)))
	}
	return worst
}

// Result is the outcome of a solve.
type Result struct {
	X            []float64 `json:"x"`
	Objective    float64   `json:"objective"`
	Status       string    `json:"status"`
	Evaluations  int       `json:"evaluations"`
	MaxViolation float64   `json:"max_violation"`
	Converged    bool      `json:"converged"`
}

// NotConvergedError is returned when a solver stops without meeting its tolerances. Result holds
// the last iterate.
type NotConvergedError struct {
	Result *Result
}

func (e *NotConvergedError) Error() string {
	return fmt.Sprintf("solver did not converge: status %s, max violation %g after %d evaluations",
		e.Result.Status, e.Result.MaxViolation, e.Result.Evaluations)
}

// Solver minimizes a Problem from an initial guess. Solve never modifies x0.
type Solver interface {
	Name() string
	Solve(ctx context.Context, p *Problem, x0 []float64) (*Result, error)
}

// Options are the settings shared by every solver.
type Options struct {
	// Tolerance is the relative objective and step tolerance.
	Tolerance float64 `json:"tolerance,omitempty"`
	// ConstraintTolerance is the largest residual accepted as feasible.
	ConstraintTolerance float64 `json:"constraint_tolerance,omitempty"`
	// MaxEvaluations caps objective evaluations; zero means no cap.
	MaxEvaluations int `json:"max_evaluations,omitempty"`
	// MaxTimeSeconds caps the wall time of a solve; zero means no cap.
	MaxTimeSeconds float64 `json:"max_time_s,omitempty"`
}

// Default solver settings.
const (
	DefaultTolerance           = 1e-8
	DefaultConstraintTolerance = 1e-6
	DefaultMaxEvaluations      = 20000
)

func (o *Options) fillDefaults() {
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.ConstraintTolerance == 0 {
		o.ConstraintTolerance = DefaultConstraintTolerance
	}
	if o.MaxEvaluations == 0 {
		o.MaxEvaluations = DefaultMaxEvaluations
	}
}

// Validate ensures all parts of the config are valid.
func (o *Options) Validate() error {
	if o.Tolerance < 0 || o.ConstraintTolerance < 0 || o.MaxEvaluations < 0 || o.MaxTimeSeconds < 0 {
		return errors.New("solver tolerances and limits cannot be negative")
	}
	return nil
}

// decodeAttributes fills conf from a loosely typed attribute map using its json tags.
func decodeAttributes(attrs map[string]interface{}, conf interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           conf,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Squash:           true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(attrs)
}

// New returns the named solver configured from attrs. The empty name selects DefaultName.
func New(name string, attrs map[string]interface{}, logger logging.Logger) (Solver, error) {
	if logger == nil {
		logger = logging.NewBlankLogger("nlp")
	}
	switch name {
	case "", NloptName:
		var conf NloptConfig
		if err := decodeAttributes(attrs, &conf); err != nil {
			return nil, errors.Wrapf(err, "decoding %s attributes", NloptName)
		}
		return NewNlopt(conf, logger)
	case AugLagName:
		var conf AugLagConfig
		if err := decodeAttributes(attrs, &conf); err != nil {
			return nil, errors.Wrapf(err, "decoding %s attributes", AugLagName)
		}
		return NewAugLag(conf, logger)
	}
	return nil, errors.Errorf("unknown solver %q", name)
}

func finish(p *Problem, res *Result, tol float64) (*Result, error) {
	res.MaxViolation = p.MaxViolation(res.X)
	if !res.Converged || res.MaxViolation > tol {
		res.Converged = false
		return res, &NotConvergedError{Result: res}
	}
	return res, nil
}
