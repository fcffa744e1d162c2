package ocp

import (
	"math"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// Weights scale the terms of the objective. The default weights are all 1.
type Weights struct {
	Duration     float64 `json:"duration"`
	Velocity     float64 `json:"velocity"`
	Acceleration float64 `json:"acceleration"`
	Steering     float64 `json:"steering"`
	SteeringRate float64 `json:"steering_rate"`
}

// DefaultWeights returns unit weights.
func DefaultWeights() Weights {
	return Weights{Duration: 1, Velocity: 1, Acceleration: 1, Steering: 1, SteeringRate: 1}
}

// namedValue pairs a config key with its value for ordered validation.
type namedValue struct {
	name  string
	value float64
}

// Validate ensures every weight is a finite, non-negative number.
func (w Weights) Validate(path string) error {
	for _, nv := range []namedValue{
		{"duration", w.Duration},
		{"velocity", w.Velocity},
		{"acceleration", w.Acceleration},
		{"steering", w.Steering},
		{"steering_rate", w.SteeringRate},
	} {
		if nv.value < 0 || math.IsNaN(nv.value) || math.IsInf(nv.value, 0) {
			return goutils.NewConfigValidationError(path,
				errors.Errorf("weight %s must be a finite non-negative number, got %v", nv.name, nv.value))
		}
	}
	return nil
}

// Objective is the cost
//
//	wt·tf + Σ wv·v² + wa·a² + ws·steering² + wr·steeringRate²
//
// summed over every knot.
type Objective struct {
	sel     *selection
	weights Weights
}

// Eval returns the cost at x and, when grad is not empty, writes its gradient into grad.
func (o *Objective) Eval(x, grad []float64) float64 {
	w := o.weights
	cost := w.Duration * x[o.sel.tf]
	for i := range o.sel.v {
		v, a, s, r := x[o.sel.v[i]], x[o.sel.a[i]], x[o.sel.steering[i]], x[o.sel.rate[i]]
		cost += w.Velocity*v*v + w.Acceleration*a*a + w.Steering*s*s + w.SteeringRate*r*r
	}
	if len(grad) == 0 {
		return cost
	}
	clear(grad)
	grad[o.sel.tf] = w.Duration
	for i := range o.sel.v {
		grad[o.sel.v[i]] = 2 * w.Velocity * x[o.sel.v[i]]
		grad[o.sel.a[i]] = 2 * w.Acceleration * x[o.sel.a[i]]
		grad[o.sel.steering[i]] = 2 * w.Steering * x[o.sel.steering[i]]
		grad[o.sel.rate[i]] = 2 * w.SteeringRate * x[o.sel.rate[i]]
	}
	return cost
}

// Weights returns the term weights.
func (o *Objective) Weights() Weights {
	return o.weights
}
