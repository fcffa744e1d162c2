package nlp

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// DerivativeReport is the largest gap between the analytic derivatives of a problem and central
// finite differences at one point.
type DerivativeReport struct {
	Objective   float64            `json:"objective"`
	Constraints map[string]float64 `json:"constraints"`
}

// Worst returns the largest gap in the report.
func (r *DerivativeReport) Worst() float64 {
	worst := r.Objective
	for _, v := range r.Constraints {
		worst = math.Max(worst, v)
	}
	return worst
}

// CheckDerivatives compares the objective gradient and every constraint Jacobian of p at x against
// central finite differences.
func CheckDerivatives(p *Problem, x []float64) (*DerivativeReport, error) {
	if err := p.Validate(x); err != nil {
		return nil, err
	}
	settings := &fd.Settings{Formula: fd.Central}

	grad := make([]float64, p.Dim)
	p.Objective.Eval(x, grad)
	numeric := fd.Gradient(nil, func(x []float64) float64 { return p.Objective.Eval(x, nil) }, x, settings)
	report := &DerivativeReport{
		Objective:   maxAbsDiff(grad, numeric),
		Constraints: make(map[string]float64, len(p.Equality)),
	}

	for _, c := range p.Equality {
		m := c.Dim()
		jac := make([]float64, m*p.Dim)
		c.Eval(make([]float64, m), x, jac)
		approx := mat.NewDense(m, p.Dim, nil)
		fd.Jacobian(approx, func(y, x []float64) { c.Eval(y, x, nil) }, x, &fd.JacobianSettings{Formula: fd.Central})
		report.Constraints[c.Name()] = maxAbsDiff(jac, approx.RawMatrix().Data)
	}
	return report, nil
}

func maxAbsDiff(a, b []float64) float64 {
	worst := 0.
	for i := range a {
		worst = math.Max(worst, math.Abs(a[i]-b[i]))
	}
	return worst
}
