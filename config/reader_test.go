package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"go.viam.com/parkplan/costmap"
	"go.viam.com/parkplan/logging"
	"go.viam.com/parkplan/motionplan/corridor"
	"go.viam.com/parkplan/motionplan/nlp"
	"go.viam.com/parkplan/motionplan/ocp"
	"go.viam.com/parkplan/spatialmath"
	"go.viam.com/parkplan/vehicle"
)

const minimalConfig = `{"map": {"bounds": {"x_min": -5, "x_max": 20, "y_min": -5, "y_max": 10}}}`

func TestFromReaderValidate(t *testing.T) {
	logger := logging.NewTestLogger(t)

	_, err := FromReader("somepath", strings.NewReader(""), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "EOF")

	_, err = FromReader("somepath", strings.NewReader(`{"map": 1}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unmarshal")

	_, err = FromReader("somepath", strings.NewReader(`{}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"bounds" is required`)

	conf, err := FromReader("somepath", strings.NewReader(minimalConfig), logger)
	test.That(t, err, test.ShouldBeNil)
	limits := ocp.DefaultLimits()
	test.That(t, conf, test.ShouldResemble, &Config{
		ConfigFilePath: "somepath",
		Vehicle:        vehicle.DefaultConfig(),
		Map: costmap.Config{
			Bounds:     costmap.RectConfig{XMin: -5, XMax: 20, YMin: -5, YMax: 10},
			Resolution: costmap.DefaultResolution,
		},
		Corridor:  corridor.Options{ExpandDistance: corridor.DefaultExpandDistance, Attribution: corridor.FirstMatchName},
		Limits:    &limits,
		Objective: ocp.DefaultWeights(),
		Solver:    SolverConfig{Type: nlp.DefaultName},
	})
}

func TestValidateCollectsErrors(t *testing.T) {
	conf := &Config{
		Vehicle:  &vehicle.Config{Wheelbase: -1, Width: 2},
		Map:      costmap.Config{Bounds: costmap.RectConfig{XMax: 1, YMax: 1}, Resolution: -1},
		Corridor: corridor.Options{ExpandDistance: -0.5, Attribution: "closest"},
		Limits:   &ocp.Limits{MaxSpeed: -2},
		Solver:   SolverConfig{Type: "ipopt"},
	}
	err := conf.Validate("")
	test.That(t, err, test.ShouldNotBeNil)
	for _, part := range []string{
		`"vehicle"`,
		`"map"`,
		`"corridor"`,
		`"limits"`,
		`unknown solver type "ipopt"`,
		`unknown attribution strategy "closest"`,
	} {
		test.That(t, err.Error(), test.ShouldContainSubstring, part)
	}

	conf.Vehicle = nil
	err = conf.Validate("planner")
	test.That(t, err.Error(), test.ShouldContainSubstring, `"vehicle" is required`)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"planner.map"`)
}

func TestExplicitSectionsKept(t *testing.T) {
	raw := `{
		"vehicle": {"wheelbase_m": 2.5, "front_hang_m": 0.8, "rear_hang_m": 0.7, "width_m": 1.8, "safety_margin_m": 0},
		"map": {"bounds": {"x_min": 0, "x_max": 10, "y_min": 0, "y_max": 10}, "resolution_m": 0.25},
		"corridor": {"expand_distance_m": 0.8, "attribution": "exhaustive"},
		"limits": {"max_speed_mps": 1.5, "pin_endpoints": true},
		"objective": {"duration": 10, "velocity": 1},
		"solver": {"type": "auglag", "attributes": {"outer_iterations": 20}},
		"extended_dynamics": true
	}`
	conf, err := FromReader("", strings.NewReader(raw), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.Vehicle.Wheelbase, test.ShouldEqual, 2.5)
	test.That(t, conf.Map.Resolution, test.ShouldEqual, 0.25)
	test.That(t, conf.Corridor.Attribution, test.ShouldEqual, corridor.ExhaustiveName)
	limits := ocp.DefaultLimits()
	limits.MaxSpeed = 1.5
	test.That(t, conf.Limits, test.ShouldResemble, &limits)
	weights := ocp.DefaultWeights()
	weights.Duration = 10
	test.That(t, conf.Objective, test.ShouldResemble, weights)
	test.That(t, conf.ExtendedDynamics, test.ShouldBeTrue)

	solver, err := conf.Solver.Build(logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, solver.Name(), test.ShouldEqual, nlp.AugLagName)
}

func TestPartialSectionsKeepDefaults(t *testing.T) {
	raw := `{
		"vehicle": {"wheelbase_m": 3.1},
		"map": {"bounds": {"x_min": 0, "x_max": 10, "y_min": 0, "y_max": 10}},
		"limits": {"max_speed_mps": 3},
		"objective": {"velocity": 2}
	}`
	conf, err := FromReader("", strings.NewReader(raw), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	weights := ocp.DefaultWeights()
	weights.Velocity = 2
	test.That(t, conf.Objective, test.ShouldResemble, weights)
	test.That(t, conf.Objective.Duration, test.ShouldEqual, 1)

	limits := ocp.DefaultLimits()
	limits.MaxSpeed = 3
	test.That(t, conf.Limits, test.ShouldResemble, &limits)
	test.That(t, conf.Limits.PinEndpoints, test.ShouldBeTrue)

	vcfg := vehicle.DefaultConfig()
	vcfg.Wheelbase = 3.1
	test.That(t, conf.Vehicle, test.ShouldResemble, vcfg)

	conf, err = FromReader("", strings.NewReader(`{
		"map": {"bounds": {"x_min": 0, "x_max": 10, "y_min": 0, "y_max": 10}},
		"limits": {"pin_endpoints": false, "max_steering_rad": 0}
	}`), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.Limits.PinEndpoints, test.ShouldBeFalse)
	test.That(t, conf.Limits.MaxSteering, test.ShouldEqual, 0)
	test.That(t, conf.Limits.MaxSpeed, test.ShouldEqual, ocp.DefaultLimits().MaxSpeed)
}

func TestReadSubstitutesEnvironment(t *testing.T) {
	t.Setenv("PARKPLAN_TEST_SOLVER", "auglag")
	dir := t.TempDir()
	file := filepath.Join(dir, "planner.json")
	raw := `{"map": {"bounds": {"x_min": 0, "x_max": 10, "y_min": 0, "y_max": 10}}, "solver": {"type": "${PARKPLAN_TEST_SOLVER}"}}`
	test.That(t, os.WriteFile(file, []byte(raw), 0o600), test.ShouldBeNil)

	conf, err := Read(file, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.ConfigFilePath, test.ShouldEqual, file)
	test.That(t, conf.Solver.Type, test.ShouldEqual, nlp.AugLagName)

	_, err = Read(filepath.Join(dir, "missing.json"), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReadPath(t *testing.T) {
	file := filepath.Join(t.TempDir(), "path.json")
	rows := `[[0, 0, 0, 0], [1.5, 0.2, 0.1, 1], [3, 0.5, 0.2, 2.5]]`
	test.That(t, os.WriteFile(file, []byte(rows), 0o600), test.ShouldBeNil)

	path, err := ReadPath(file)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, path.Duration, test.ShouldEqual, 2.5)
	test.That(t, path.Waypoints, test.ShouldHaveLength, 3)
	test.That(t, path.Waypoints[2], test.ShouldResemble, spatialmath.NewPose2D(3, 0.5, 0.2))

	_, err = PathFromReader(strings.NewReader(`{"x": 1}`))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = PathFromReader(strings.NewReader(`[[0, 0, 0, 1]]`))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPlanRequest(t *testing.T) {
	raw := `{
		"map": {"bounds": {"x_min": 0, "x_max": 10, "y_min": 0, "y_max": 10}, "obstacles": [{"x_min": 4, "x_max": 5, "y_min": 4, "y_max": 5}]},
		"solver": {"type": "auglag"},
		"seed_velocities": true
	}`
	conf, err := FromReader("", strings.NewReader(raw), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	path, err := PathFromReader(strings.NewReader(`[[1, 1, 0, 0], [2, 1, 0, 2]]`))
	test.That(t, err, test.ShouldBeNil)

	req, err := conf.PlanRequest(path, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, req.Path, test.ShouldPointTo, path)
	test.That(t, req.Solver.Name(), test.ShouldEqual, nlp.AugLagName)
	test.That(t, req.Limits, test.ShouldResemble, ocp.DefaultLimits())
	test.That(t, req.SeedVelocities, test.ShouldBeTrue)
	test.That(t, req.Obstacles.(*costmap.SortedIndex).Len(), test.ShouldBeGreaterThan, 0)

	conf.Solver.Attributes = map[string]interface{}{"no_such_option": 1}
	_, err = conf.PlanRequest(path, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSchema(t *testing.T) {
	out, err := json.Marshal(Schema())
	test.That(t, err, test.ShouldBeNil)
	for _, field := range []string{"vehicle", "map", "corridor", "limits", "solver", "expand_distance_m"} {
		test.That(t, string(out), test.ShouldContainSubstring, `"`+field+`"`)
	}
}
