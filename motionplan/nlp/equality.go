package nlp

import (
	"gonum.org/v1/gonum/floats"
)

// equalityCache stacks every equality constraint of a problem into one residual vector and one
// dense Jacobian, and remembers them for the last point evaluated. Solvers that ask for the same
// point row by row, or for the value and the gradient separately, evaluate each constraint once.
type equalityCache struct {
	constraints []Constraint
	offsets     []int
	m, n        int

	x      []float64
	values []float64
	jac    []float64
	valid  bool
	hasJac bool
}

func newEqualityCache(p *Problem) *equalityCache {
	c := &equalityCache{constraints: p.Equality, n: p.Dim}
	for _, con := range p.Equality {
		c.offsets = append(c.offsets, c.m)
		c.m += con.Dim()
	}
	c.x = make([]float64, c.n)
	c.values = make([]float64, c.m)
	c.jac = make([]float64, c.m*c.n)
	return c
}

// at evaluates every constraint at x unless x is the cached point.
func (c *equalityCache) at(x []float64, needJac bool) {
	if c.valid && (c.hasJac || !needJac) && floats.Equal(x, c.x) {
		return
	}
	copy(c.x, x)
	for k, con := range c.constraints {
		off, d := c.offsets[k], con.Dim()
		var jac []float64
		if needJac {
			jac = c.jac[off*c.n : (off+d)*c.n]
		}
		con.Eval(c.values[off:off+d], x, jac)
	}
	c.valid = true
	c.hasJac = needJac
}

// row returns residual r at x, writing its gradient into grad when grad is not empty.
func (c *equalityCache) row(r int, x, grad []float64) float64 {
	c.at(x, len(grad) > 0)
	if len(grad) > 0 {
		copy(grad, c.jac[r*c.n:(r+1)*c.n])
	}
	return c.values[r]
}

// residuals returns the stacked residuals at x. The slice is owned by the cache.
func (c *equalityCache) residuals(x []float64) []float64 {
	c.at(x, false)
	return c.values
}

// addJacobianTransposed adds Jᵀw to dst, with J the stacked Jacobian at x.
func (c *equalityCache) addJacobianTransposed(dst, x, w []float64) {
	c.at(x, true)
	for r := 0; r < c.m; r++ {
		if w[r] == 0 {
			continue
		}
		floats.AddScaled(dst, w[r], c.jac[r*c.n:(r+1)*c.n])
	}
}
