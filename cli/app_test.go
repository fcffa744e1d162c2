package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"go.viam.com/parkplan/motionplan"
)

const testConfig = `{
	"map": {
		"bounds": {"x_min": -5, "x_max": 15, "y_min": -5, "y_max": 5},
		"resolution_m": 0.1,
		"obstacles": [{"x_min": 9.3, "x_max": 9.6, "y_min": -0.5, "y_max": 0.5}]
	},
	"corridor": {"expand_distance_m": 0.5},
	"limits": {"max_speed_mps": 2.5, "max_steering_rad": 0.6, "min_duration_s": 0.1, "max_duration_s": 60, "pin_endpoints": true},
	"solver": {"type": "auglag", "attributes": {"constraint_tolerance": 1e-5}},
	"seed_velocities": true
}`

const testPath = `[[0, 0, 0, 0], [1, 0, 0, 1], [2, 0, 0, 2], [3, 0, 0, 3], [4, 0, 0, 4], [5, 0, 0, 5]]`

func writeInputs(t *testing.T) (string, string, string) {
	t.Helper()
	dir := t.TempDir()
	conf := filepath.Join(dir, "config.json")
	path := filepath.Join(dir, "path.json")
	test.That(t, os.WriteFile(conf, []byte(testConfig), 0o600), test.ShouldBeNil)
	test.That(t, os.WriteFile(path, []byte(testPath), 0o600), test.ShouldBeNil)
	return dir, conf, path
}

func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := NewApp(&out, &errOut).RunContext(context.Background(), append([]string{"parkplan"}, args...))
	return out.String(), errOut.String(), err
}

func TestSchemaAction(t *testing.T) {
	out, _, err := runApp(t, "schema")
	test.That(t, err, test.ShouldBeNil)
	var schema map[string]interface{}
	test.That(t, json.Unmarshal([]byte(out), &schema), test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, `"expand_distance_m"`)
}

func TestCorridorAction(t *testing.T) {
	_, conf, path := writeInputs(t)
	out, _, err := runApp(t, "corridor", "--config", conf, "--path", path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "TIGHTENED")
	// the last waypoint's front edge at 8.86 is within reach of the first occupied cell center at 9.35
	test.That(t, out, test.ShouldContainSubstring, "[x_max]")
	test.That(t, out, test.ShouldContainSubstring, "[4.500, 9.350]")

	_, _, err = runApp(t, "corridor", "--config", conf)
	test.That(t, err, test.ShouldNotBeNil)
	_, _, err = runApp(t, "corridor", "--config", conf, "--path", filepath.Join(t.TempDir(), "nope.json"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPlanAction(t *testing.T) {
	dir, conf, path := writeInputs(t)
	outFile := filepath.Join(dir, "traj.json")
	plotFile := filepath.Join(dir, "plan.svg")

	_, errOut, err := runApp(t, "plan", "--config", conf, "--path", path, "--out", outFile, "--plot", plotFile, "--knots")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, errOut, test.ShouldContainSubstring, "STEERING RATE")
	test.That(t, errOut, test.ShouldContainSubstring, "duration")

	raw, err := os.ReadFile(outFile)
	test.That(t, err, test.ShouldBeNil)
	var artifact motionplan.Artifact
	test.That(t, json.Unmarshal(raw, &artifact), test.ShouldBeNil)
	test.That(t, artifact.ID, test.ShouldNotBeEmpty)
	test.That(t, artifact.Converged, test.ShouldBeTrue)
	test.That(t, artifact.Vector, test.ShouldHaveLength, 7*6+1)
	test.That(t, artifact.Knots, test.ShouldHaveLength, 6)
	test.That(t, artifact.Knots[5].X, test.ShouldAlmostEqual, 5, 1e-6)
	test.That(t, artifact.Duration, test.ShouldEqual, artifact.Vector[7*6])

	info, err := os.Stat(plotFile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
}

func TestPlanActionStdout(t *testing.T) {
	_, conf, path := writeInputs(t)
	out, _, err := runApp(t, "plan", "--config", conf, "--path", path)
	test.That(t, err, test.ShouldBeNil)
	var artifact motionplan.Artifact
	test.That(t, json.Unmarshal([]byte(out), &artifact), test.ShouldBeNil)
	test.That(t, artifact.Knots, test.ShouldHaveLength, 6)
}
