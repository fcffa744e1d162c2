package ocp

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// DefaultWheelbase is the bicycle model wheelbase used when Options leaves it unset, in meters.
const DefaultWheelbase = 2.8

// selection holds the decision vector index of every channel of every knot. It is built once per
// shape and shared by the objective and all constraints.
type selection struct {
	steps int
	tf    int

	x, y, heading, v, a, steering, rate []int
}

func newSelection(shape Shape) *selection {
	stride := func(channel int) []int {
		idx := make([]int, shape.Knots)
		for i := range idx {
			idx[i] = shape.Index(i, channel)
		}
		return idx
	}
	return &selection{
		steps:    shape.Steps(),
		x:        stride(ChannelX),
		y:        stride(ChannelY),
		heading:  stride(ChannelHeading),
		v:        stride(ChannelVelocity),
		a:        stride(ChannelAcceleration),
		steering: stride(ChannelSteering),
		rate:     stride(ChannelSteeringRate),
		tf:       shape.DurationIndex(),
	}
}

// Options configure the problem formulation.
type Options struct {
	// Wheelbase is Lw in the heading constraint. Zero selects DefaultWheelbase.
	Wheelbase float64
	// Weights scale the objective terms. The zero value selects DefaultWeights.
	Weights Weights
	// ExtendedDynamics adds the velocity and steering channels linking the controls.
	ExtendedDynamics bool
}

// Problem is the objective and equality constraints of one problem shape.
type Problem struct {
	shape       Shape
	objective   *Objective
	constraints []*Constraint

	// scratch for MaxViolation
	residuals []float64
}

// NewProblem builds the objective and constraints for shape.
func NewProblem(shape Shape, opts Options) (*Problem, error) {
	if shape.Knots < MinKnots {
		return nil, errors.Wrapf(ErrBadShape, "%d knots", shape.Knots)
	}
	wheelbase := opts.Wheelbase
	if wheelbase == 0 {
		wheelbase = DefaultWheelbase
	}
	if wheelbase < 0 || math.IsNaN(wheelbase) || math.IsInf(wheelbase, 0) {
		return nil, errors.Errorf("wheelbase must be positive, got %v", wheelbase)
	}
	weights := opts.Weights
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	if err := weights.Validate("weights"); err != nil {
		return nil, err
	}

	sel := newSelection(shape)
	kinds := []ConstraintKind{KinematicX, KinematicY, KinematicHeading}
	if opts.ExtendedDynamics {
		kinds = append(kinds, KinematicVelocity, KinematicSteering)
	}
	constraints := make([]*Constraint, 0, len(kinds))
	for _, kind := range kinds {
		constraints = append(constraints, &Constraint{kind: kind, sel: sel, wheelbase: wheelbase})
	}
	return &Problem{
		shape:       shape,
		objective:   &Objective{sel: sel, weights: weights},
		constraints: constraints,
		residuals:   make([]float64, sel.steps),
	}, nil
}

// Shape returns the problem shape.
func (p *Problem) Shape() Shape {
	return p.shape
}

// Objective returns the objective.
func (p *Problem) Objective() *Objective {
	return p.objective
}

// Constraints returns the equality constraint channels.
func (p *Problem) Constraints() []*Constraint {
	return p.constraints
}

// Residuals evaluates every constraint channel at x, keyed by channel name.
func (p *Problem) Residuals(x []float64) (map[string][]float64, error) {
	if err := p.shape.Check(x); err != nil {
		return nil, err
	}
	out := make(map[string][]float64, len(p.constraints))
	for _, c := range p.constraints {
		r := make([]float64, c.Dim())
		c.Eval(r, x, nil)
		out[c.Name()] = r
	}
	return out, nil
}

// MaxViolation returns the largest absolute residual over every constraint channel at x.
func (p *Problem) MaxViolation(x []float64) (float64, error) {
	if err := p.shape.Check(x); err != nil {
		return 0, err
	}
	worst := 0.
	for _, c := range p.constraints {
		c.Eval(p.residuals, x, nil)
		worst = math.Max(worst, floats.Norm(p.residuals, math.Inf(1)))
	}
	return worst, nil
}
