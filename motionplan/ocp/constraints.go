package ocp

import (
	"math"
)

// ConstraintKind names one channel of the discretized bicycle model.
type ConstraintKind int

// Constraint channels. The last two link the control channels and are only built when extended
// dynamics are requested.
const (
	KinematicX ConstraintKind = iota
	KinematicY
	KinematicHeading
	KinematicVelocity
	KinematicSteering
)

func (k ConstraintKind) String() string {
	switch k {
	case KinematicX:
		return "kinematic_x"
	case KinematicY:
		return "kinematic_y"
	case KinematicHeading:
		return "kinematic_heading"
	case KinematicVelocity:
		return "kinematic_v"
	case KinematicSteering:
		return "kinematic_steering"
	}
	return "unknown"
}

// Constraint is one channel of equality residuals, one per consecutive knot pair:
//
//	x:        x[i+1] - (x[i] + v[i]·dt·cos(heading[i]))
//	y:        y[i+1] - (y[i] + v[i]·dt·sin(heading[i]))
//	heading:  heading[i+1] - (heading[i] + v[i]·dt·tan(steering[i])/Lw)
//	v:        v[i+1] - (v[i] + a[i]·dt)
//	steering: steering[i+1] - (steering[i] + steeringRate[i]·dt)
type Constraint struct {
	kind      ConstraintKind
	sel       *selection
	wheelbase float64
}

// Kind returns the channel the constraint enforces.
func (c *Constraint) Kind() ConstraintKind {
	return c.kind
}

// Name returns the channel name.
func (c *Constraint) Name() string {
	return c.kind.String()
}

// Dim returns the number of residuals.
func (c *Constraint) Dim() int {
	return c.sel.steps
}

// Eval writes the residuals at x into result and, when jac is not empty, the dense row major
// Dim()×len(x) Jacobian into jac. It does not allocate.
func (c *Constraint) Eval(result, x, jac []float64) {
	s := c.sel
	n := len(x)
	h := float64(s.steps)
	tf := x[s.tf]
	dt := tf / h
	withJac := len(jac) > 0
	if withJac {
		clear(jac)
	}

	for i := 0; i < s.steps; i++ {
		row := jac
		if withJac {
			row = jac[i*n : (i+1)*n]
		}
		v := x[s.v[i]]
		switch c.kind {
		case KinematicX:
			sin, cos := math.Sincos(x[s.heading[i]])
			result[i] = x[s.x[i+1]] - (x[s.x[i]] + v*dt*cos)
			if withJac {
				row[s.x[i+1]] = 1
				row[s.x[i]] = -1
				row[s.v[i]] = -dt * cos
				row[s.heading[i]] = v * dt * sin
				row[s.tf] = -v * cos / h
			}
		case KinematicY:
			sin, cos := math.Sincos(x[s.heading[i]])
			result[i] = x[s.y[i+1]] - (x[s.y[i]] + v*dt*sin)
			if withJac {
				row[s.y[i+1]] = 1
				row[s.y[i]] = -1
				row[s.v[i]] = -dt * sin
				row[s.heading[i]] = -v * dt * cos
				row[s.tf] = -v * sin / h
			}
		case KinematicHeading:
			steer := x[s.steering[i]]
			tan := math.Tan(steer)
			result[i] = x[s.heading[i+1]] - (x[s.heading[i]] + v*dt*tan/c.wheelbase)
			if withJac {
				sec := 1 / math.Cos(steer)
				row[s.heading[i+1]] = 1
				row[s.heading[i]] = -1
				row[s.v[i]] = -dt * tan / c.wheelbase
				row[s.steering[i]] = -v * dt * sec * sec / c.wheelbase
				row[s.tf] = -v * tan / (c.wheelbase * h)
			}
		case KinematicVelocity:
			a := x[s.a[i]]
			result[i] = x[s.v[i+1]] - (v + a*dt)
			if withJac {
				row[s.v[i+1]] = 1
				row[s.v[i]] = -1
				row[s.a[i]] = -dt
				row[s.tf] = -a / h
			}
		case KinematicSteering:
			rate := x[s.rate[i]]
			result[i] = x[s.steering[i+1]] - (x[s.steering[i]] + rate*dt)
			if withJac {
				row[s.steering[i+1]] = 1
				row[s.steering[i]] = -1
				row[s.rate[i]] = -dt
				row[s.tf] = -rate / h
			}
		}
	}
}
