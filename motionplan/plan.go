// Package motionplan refines an initial parking path into a time parameterized trajectory that
// respects a discretized bicycle model and stays inside a free space corridor.
package motionplan

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/parkplan/costmap"
	"go.viam.com/parkplan/logging"
	"go.viam.com/parkplan/motionplan/corridor"
	"go.viam.com/parkplan/motionplan/nlp"
	"go.viam.com/parkplan/motionplan/ocp"
	"go.viam.com/parkplan/vehicle"
)

// PlanRequest is everything PlanParking needs for one maneuver.
type PlanRequest struct {
	Path      *Path
	Obstacles costmap.ObstacleIndex
	// Vehicle defaults to vehicle.DefaultConfig.
	Vehicle  *vehicle.Config
	Corridor corridor.Options
	Limits   ocp.Limits
	Weights  ocp.Weights
	// ExtendedDynamics links v to a and steering to steering rate with extra equality channels.
	ExtendedDynamics bool
	// SeedVelocities replaces the zero velocity guess with velocities that reproduce the path.
	SeedVelocities bool
	// CheckDerivatives compares analytic and numeric derivatives at the initial guess and logs the
	// worst gap.
	CheckDerivatives bool
	Solver           nlp.Solver
}

// validate checks the request and returns the vehicle to plan for, the default vehicle when the
// request leaves it unset.
func (req *PlanRequest) validate() (*vehicle.Config, error) {
	if req.Path == nil {
		return nil, errNoPath
	}
	if err := req.Path.Validate(); err != nil {
		return nil, err
	}
	if req.Obstacles == nil {
		return nil, errNoObstacle
	}
	if req.Solver == nil {
		return nil, errNoSolver
	}
	vcfg := req.Vehicle
	if vcfg == nil {
		vcfg = vehicle.DefaultConfig()
	}
	if err := vcfg.Validate("vehicle"); err != nil {
		return nil, err
	}
	if err := req.Limits.Validate("limits"); err != nil {
		return nil, err
	}
	return vcfg, nil
}

// Plan is the outcome of a planning request.
type Plan struct {
	ID       uuid.UUID        `json:"id"`
	Corridor *corridor.Bounds `json:"corridor"`

	// Initial is the decision vector the solver started from.
	Initial    []float64       `json:"initial"`
	Result     *nlp.Result     `json:"result"`
	Trajectory *ocp.Trajectory `json:"trajectory"`
	Elapsed    time.Duration   `json:"elapsed_ns"`
}

// Artifact is the persisted form of a plan: the optimized decision vector in
// (x, y, heading, v, a, steering, steeringRate)×N + tf layout and its timestamped knots.
type Artifact struct {
	ID        string     `json:"id"`
	Vector    []float64  `json:"vector"`
	Duration  float64    `json:"duration"`
	Converged bool       `json:"converged"`
	Knots     []ocp.Knot `json:"knots"`
}

// Artifact returns the persisted form of the plan.
func (p *Plan) Artifact() *Artifact {
	return &Artifact{
		ID:        p.ID.String(),
		Vector:    p.Result.X,
		Duration:  p.Trajectory.Duration,
		Converged: p.Result.Converged,
		Knots:     p.Trajectory.Knots,
	}
}

// PlanParking computes the corridor of the request path, formulates the trajectory optimization
// problem and solves it. When the solver does not converge the plan built from its last iterate
// is returned together with a *nlp.NotConvergedError.
func PlanParking(ctx context.Context, logger logging.Logger, req *PlanRequest) (*Plan, error) {
	start := time.Now()
	if logger == nil {
		logger = logging.Global()
	}
	vcfg, err := req.validate()
	if err != nil {
		return nil, errors.Wrap(err, "invalid plan request")
	}
	waypoints := req.Path.Waypoints

	computer, err := corridor.NewComputer(req.Obstacles, vcfg, req.Corridor, logger.Sublogger("corridor"))
	if err != nil {
		return nil, NewCorridorError(err)
	}
	bounds, err := computer.Compute(waypoints)
	if err != nil {
		return nil, NewCorridorError(err)
	}

	shape, err := ocp.NewShape(len(waypoints))
	if err != nil {
		return nil, err
	}
	problem, err := ocp.NewProblem(shape, ocp.Options{
		Wheelbase:        vcfg.Wheelbase,
		Weights:          req.Weights,
		ExtendedDynamics: req.ExtendedDynamics,
	})
	if err != nil {
		return nil, err
	}
	initial, err := ocp.Pack(waypoints, req.Path.Duration)
	if err != nil {
		return nil, err
	}
	if req.SeedVelocities {
		ocp.SeedVelocities(shape, initial)
	}
	lower, upper, err := ocp.BoxBounds(shape, bounds, waypoints, req.Limits)
	if err != nil {
		return nil, err
	}
	ocp.Clamp(initial, lower, upper)

	nlpProblem := &nlp.Problem{
		Dim:       shape.Len(),
		Objective: problem.Objective(),
		Equality:  lo.Map(problem.Constraints(), func(c *ocp.Constraint, _ int) nlp.Constraint { return c }),
		Lower:     lower,
		Upper:     upper,
	}
	if req.CheckDerivatives {
		report, err := nlp.CheckDerivatives(nlpProblem, initial)
		if err != nil {
			return nil, err
		}
		logger.Infow("derivative check", "objective", report.Objective, "constraints", report.Constraints)
	}

	logger.Debugw("solving parking trajectory",
		"knots", shape.Knots,
		"variables", shape.Len(),
		"equality_rows", nlpProblem.Rows(),
		"solver", req.Solver.Name(),
	)
	result, solveErr := req.Solver.Solve(ctx, nlpProblem, initial)
	var notConverged *nlp.NotConvergedError
	if solveErr != nil && !errors.As(solveErr, &notConverged) {
		return nil, NewSolverError(req.Solver.Name(), solveErr)
	}
	if result == nil && notConverged != nil {
		result = notConverged.Result
	}
	if result == nil {
		return nil, NewSolverError(req.Solver.Name(), errors.New("no result"))
	}

	trajectory, err := ocp.NewTrajectory(result.X)
	if err != nil {
		return nil, err
	}
	plan := &Plan{
		ID:         uuid.New(),
		Corridor:   bounds,
		Initial:    initial,
		Result:     result,
		Trajectory: trajectory,
		Elapsed:    time.Since(start),
	}
	if notConverged != nil {
		logger.Warnw("trajectory optimization did not converge",
			"plan", plan.ID, "status", result.Status, "max_violation", result.MaxViolation)
		return plan, solveErr
	}
	logger.Infow("planned parking trajectory",
		"plan", plan.ID,
		"duration", trajectory.Duration,
		"objective", result.Objective,
		"evaluations", result.Evaluations,
		"elapsed", plan.Elapsed,
	)
	return plan, nil
}
