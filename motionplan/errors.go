package motionplan

import (
	"github.com/pkg/errors"
)

var (
	errNoPath     = errors.New("plan request has no path")
	errNoObstacle = errors.New("plan request has no obstacle index")
	errNoSolver   = errors.New("plan request has no solver")
)

// NewCorridorError wraps a failure to compute the corridor of a path.
func NewCorridorError(err error) error {
	return errors.Wrap(err, "computing corridor")
}

// NewSolverError wraps a solver failure other than non-convergence.
func NewSolverError(name string, err error) error {
	return errors.Wrapf(err, "%s solver failed", name)
}
