package motionplan

import (
	"context"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/parkplan/costmap"
	"go.viam.com/parkplan/logging"
	"go.viam.com/parkplan/motionplan/corridor"
	"go.viam.com/parkplan/motionplan/nlp"
	"go.viam.com/parkplan/motionplan/ocp"
	"go.viam.com/parkplan/spatialmath"
)

// fakeSolver returns a canned result, or the initial guess when none is set.
type fakeSolver struct {
	result *nlp.Result
	err    error
	seen   *nlp.Problem
}

func (f *fakeSolver) Name() string { return "fake" }

func (f *fakeSolver) Solve(ctx context.Context, p *nlp.Problem, x0 []float64) (*nlp.Result, error) {
	f.seen = p
	if f.result == nil && f.err == nil {
		return &nlp.Result{X: append([]float64(nil), x0...), Converged: true, Status: "SUCCESS"}, nil
	}
	return f.result, f.err
}

func straightPath(n int, spacing, duration float64) *Path {
	path := &Path{Duration: duration}
	for i := 0; i < n; i++ {
		path.Waypoints = append(path.Waypoints, spatialmath.NewPose2D(float64(i)*spacing, 0, 0))
	}
	return path
}

func TestNewPathFromRows(t *testing.T) {
	path, err := NewPathFromRows([][]float64{
		{0, 0, 0, 0.0},
		{1, 0.5, 0.2, 1.0},
		{2, 1, 0.4, 1.5, 2.5},
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, path.Waypoints, test.ShouldHaveLength, 3)
	test.That(t, path.Duration, test.ShouldEqual, 2.5)
	test.That(t, path.Waypoints[1], test.ShouldResemble, spatialmath.NewPose2D(1, 0.5, 0.2))
	test.That(t, path.Length(), test.ShouldAlmostEqual, 2*math.Sqrt(1.25))

	_, err = NewPathFromRows([][]float64{{0, 0, 0, 1}})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewPathFromRows([][]float64{{0, 0, 0, 1}, {1, 0}})
	test.That(t, err, test.ShouldNotBeNil)
	// zero duration
	_, err = NewPathFromRows([][]float64{{0, 0, 0, 0}, {1, 0, 0, 0}})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPlanParkingWiring(t *testing.T) {
	obstacles := costmap.NewObstacleIndexFromPoints([]r2.Point{{X: 7.1, Y: 0}})
	solver := &fakeSolver{}
	req := &PlanRequest{
		Path:      straightPath(4, 1, 3),
		Obstacles: obstacles,
		Corridor:  corridor.Options{ExpandDistance: 0.5},
		Limits:    ocp.Limits{MaxSpeed: 2, PinEndpoints: true},
		Solver:    solver,
	}
	plan, err := PlanParking(context.Background(), logging.NewTestLogger(t), req)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plan.ID.String(), test.ShouldNotBeEmpty)

	// the default vehicle's front edge at x = 3 sits at 6.86, 0.24 short of the obstacle
	test.That(t, plan.Corridor.Len(), test.ShouldEqual, 4)
	last, ok := plan.Corridor.Margins(3)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, last.XMax, test.ShouldAlmostEqual, 0.24, 1e-9)
	first, ok := plan.Corridor.Margins(0)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, first.XMax, test.ShouldEqual, 0.5)

	p := solver.seen
	test.That(t, p.Dim, test.ShouldEqual, 29)
	test.That(t, p.Equality, test.ShouldHaveLength, 3)
	test.That(t, p.Rows(), test.ShouldEqual, 9)
	test.That(t, p.Upper[ocp.StatesPerKnot*3], test.ShouldEqual, 3.0)
	test.That(t, p.Lower[ocp.StatesPerKnot*3], test.ShouldEqual, 3.0)
	test.That(t, p.Upper[ocp.StatesPerKnot*2], test.ShouldAlmostEqual, 2.5)

	test.That(t, plan.Initial, test.ShouldResemble, plan.Result.X)
	test.That(t, plan.Trajectory.Knots, test.ShouldHaveLength, 4)
	test.That(t, plan.Trajectory.Duration, test.ShouldEqual, 3.0)

	artifact := plan.Artifact()
	test.That(t, artifact.ID, test.ShouldEqual, plan.ID.String())
	test.That(t, artifact.Vector, test.ShouldHaveLength, 29)
	test.That(t, artifact.Converged, test.ShouldBeTrue)
}

func TestPlanParkingExtended(t *testing.T) {
	solver := &fakeSolver{}
	_, err := PlanParking(context.Background(), logging.NewTestLogger(t), &PlanRequest{
		Path:             straightPath(3, 1, 2),
		Obstacles:        costmap.NewObstacleIndexFromPoints(nil),
		ExtendedDynamics: true,
		SeedVelocities:   true,
		CheckDerivatives: true,
		Solver:           solver,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, solver.seen.Equality, test.ShouldHaveLength, 5)
}

func TestPlanParkingNotConverged(t *testing.T) {
	x := make([]float64, 22)
	x[21] = 2
	partial := &nlp.Result{X: x, Status: "MAXEVAL_REACHED", MaxViolation: 0.3}
	solver := &fakeSolver{result: partial, err: &nlp.NotConvergedError{Result: partial}}

	plan, err := PlanParking(context.Background(), logging.NewTestLogger(t), &PlanRequest{
		Path:      straightPath(3, 1, 2),
		Obstacles: costmap.NewObstacleIndexFromPoints(nil),
		Solver:    solver,
	})
	var notConverged *nlp.NotConvergedError
	test.That(t, errors.As(err, &notConverged), test.ShouldBeTrue)
	test.That(t, plan, test.ShouldNotBeNil)
	test.That(t, plan.Result, test.ShouldPointTo, partial)
	test.That(t, plan.Trajectory.Duration, test.ShouldEqual, 2.0)
}

func TestPlanParkingErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	ctx := context.Background()
	obstacles := costmap.NewObstacleIndexFromPoints(nil)

	_, err := PlanParking(ctx, logger, &PlanRequest{Obstacles: obstacles, Solver: &fakeSolver{}})
	test.That(t, errors.Is(err, errNoPath), test.ShouldBeTrue)
	_, err = PlanParking(ctx, logger, &PlanRequest{Path: straightPath(3, 1, 2), Solver: &fakeSolver{}})
	test.That(t, errors.Is(err, errNoObstacle), test.ShouldBeTrue)
	_, err = PlanParking(ctx, logger, &PlanRequest{Path: straightPath(3, 1, 2), Obstacles: obstacles})
	test.That(t, errors.Is(err, errNoSolver), test.ShouldBeTrue)

	bad := straightPath(3, 1, 2)
	bad.Waypoints[1].Theta = math.Inf(1)
	_, err = PlanParking(ctx, logger, &PlanRequest{Path: bad, Obstacles: obstacles, Solver: &fakeSolver{}})
	test.That(t, errors.Is(err, corridor.ErrNoHeadingCase), test.ShouldBeTrue)

	failing := &fakeSolver{err: errors.New("boom")}
	_, err = PlanParking(ctx, logger, &PlanRequest{Path: straightPath(3, 1, 2), Obstacles: obstacles, Solver: failing})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "fake solver failed")
}

func TestPlanParkingAugLag(t *testing.T) {
	logger := logging.NewTestLogger(t)
	solver, err := nlp.New(nlp.AugLagName, map[string]interface{}{"constraint_tolerance": 1e-5}, logger)
	test.That(t, err, test.ShouldBeNil)

	path := straightPath(6, 1, 5)
	plan, err := PlanParking(context.Background(), logger, &PlanRequest{
		Path:           path,
		Obstacles:      costmap.NewObstacleIndexFromPoints(nil),
		Corridor:       corridor.Options{ExpandDistance: 0.5},
		Limits:         ocp.Limits{MaxSpeed: 2.5, MaxSteering: 0.6, MinDuration: 0.1, MaxDuration: 60, PinEndpoints: true},
		SeedVelocities: true,
		Solver:         solver,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plan.Result.Converged, test.ShouldBeTrue)

	shape, err := ocp.NewShape(6)
	test.That(t, err, test.ShouldBeNil)
	problem, err := ocp.NewProblem(shape, ocp.Options{})
	test.That(t, err, test.ShouldBeNil)
	worst, err := problem.MaxViolation(plan.Result.X)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, worst, test.ShouldBeLessThan, 1e-4)

	last := plan.Trajectory.Knots[5]
	test.That(t, last.X, test.ShouldAlmostEqual, 5, 1e-6)
	test.That(t, last.Y, test.ShouldAlmostEqual, 0, 1e-6)
	for i, k := range plan.Trajectory.Knots {
		box := plan.Corridor.Box(i)
		test.That(t, k.X, test.ShouldBeBetweenOrEqual, box.X.Lo-1e-4, box.X.Hi+1e-4)
		test.That(t, math.Abs(k.Velocity), test.ShouldBeLessThanOrEqualTo, 2.5+1e-4)
	}
	test.That(t, plan.Trajectory.Duration, test.ShouldBeGreaterThan, 0)
}

func TestPlanParkingInitialGuessWithinBounds(t *testing.T) {
	solver := &fakeSolver{}
	req := &PlanRequest{
		Path:           straightPath(4, 1, 3),
		Obstacles:      costmap.NewObstacleIndexFromPoints(nil),
		Limits:         ocp.Limits{MaxSpeed: 0.5, PinEndpoints: true},
		SeedVelocities: true,
		Solver:         solver,
	}
	plan, err := PlanParking(context.Background(), logging.NewTestLogger(t), req)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, req.Vehicle, test.ShouldBeNil)

	shape, err := ocp.NewShape(4)
	test.That(t, err, test.ShouldBeNil)
	// seeded velocities of 1 m/s are pulled down to the speed limit
	for i := 0; i < shape.Steps(); i++ {
		test.That(t, plan.Initial[shape.Index(i, ocp.ChannelVelocity)], test.ShouldEqual, 0.5)
	}
	for i, v := range plan.Initial {
		test.That(t, v >= solver.seen.Lower[i] && v <= solver.seen.Upper[i], test.ShouldBeTrue)
	}
}
