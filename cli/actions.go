package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/golang/geo/r2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/parkplan/config"
	"go.viam.com/parkplan/costmap"
	"go.viam.com/parkplan/logging"
	"go.viam.com/parkplan/motionplan"
	"go.viam.com/parkplan/motionplan/corridor"
	"go.viam.com/parkplan/motionplan/nlp"
	"go.viam.com/parkplan/motionplan/ocp"
	"go.viam.com/parkplan/utils"
	"go.viam.com/parkplan/vis"
)

// printf prints a message with no decoration.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// warningf prints a message prefixed with a bold "Warning: ".
func warningf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, "\033[1mWarning:\033[0m "+format+"\n", a...)
}

type inputs struct {
	conf   *config.Config
	path   *motionplan.Path
	logger logging.Logger
}

func loadInputs(c *cli.Context) (*inputs, error) {
	logger := logging.NewLogger("parkplan")
	if c.Bool(debugFlag) {
		logger = logging.NewDebugLogger("parkplan")
	}
	conf, err := config.Read(c.Path(configFlag), logger)
	if err != nil {
		return nil, err
	}
	if conf.Debug {
		logger.SetLevel(logging.DEBUG)
	}
	logging.ReplaceGlobal(logger)
	path, err := config.ReadPath(c.Path(pathFlag))
	if err != nil {
		return nil, err
	}
	return &inputs{conf: conf, path: path, logger: logger}, nil
}

// PlanAction optimizes a trajectory along the initial path and writes the artifact.
func PlanAction(c *cli.Context) error {
	in, err := loadInputs(c)
	if err != nil {
		return err
	}
	defer func() {
		//nolint:errcheck
		in.logger.Sync()
	}()

	req, err := in.conf.PlanRequest(in.path, in.logger)
	if err != nil {
		return err
	}
	req.CheckDerivatives = c.Bool(checkDerivativesFlag)

	ctx := c.Context
	if timeout := c.Duration(timeoutFlag); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	plan, planErr := motionplan.PlanParking(ctx, in.logger, req)
	var notConverged *nlp.NotConvergedError
	if planErr != nil && !errors.As(planErr, &notConverged) {
		return planErr
	}

	if err := writeArtifact(c, plan.Artifact()); err != nil {
		return multierr.Combine(planErr, err)
	}
	if file := c.Path(plotFlag); file != "" {
		var obstacles []r2.Point
		if idx, ok := req.Obstacles.(*costmap.SortedIndex); ok {
			obstacles = idx.Points()
		}
		scene := vis.NewScene(fmt.Sprintf("plan %s", plan.ID), plan, in.path, obstacles, req.Vehicle)
		if err := scene.Save(file); err != nil {
			return multierr.Combine(planErr, err)
		}
	}
	if c.Bool(knotsFlag) {
		printf(c.App.ErrWriter, "%s", knotTable(plan.Trajectory))
	}

	if notConverged != nil {
		warningf(c.App.ErrWriter, "solver stopped with %s, worst constraint violation %.3g",
			notConverged.Result.Status, notConverged.Result.MaxViolation)
		return planErr
	}
	printf(c.App.ErrWriter, "plan %s: duration %.3fs, objective %.4g, %d evaluations",
		plan.ID, plan.Trajectory.Duration, plan.Result.Objective, plan.Result.Evaluations)
	return nil
}

func writeArtifact(c *cli.Context, artifact *motionplan.Artifact) error {
	out, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return err
	}
	file := c.Path(outFlag)
	if file == "" {
		printf(c.App.Writer, "%s", out)
		return nil
	}
	return os.WriteFile(file, out, 0o600)
}

// CorridorAction prints the corridor of the initial path without solving.
func CorridorAction(c *cli.Context) error {
	in, err := loadInputs(c)
	if err != nil {
		return err
	}
	m, err := in.conf.Map.Build()
	if err != nil {
		return err
	}
	computer, err := corridor.NewComputer(costmap.NewObstacleIndex(m), in.conf.Vehicle, in.conf.Corridor, in.logger)
	if err != nil {
		return err
	}
	bounds, err := computer.Compute(in.path.Waypoints)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", corridorTable(in.path, bounds, computer.ExpandDistance()))
	return nil
}

func corridorTable(path *motionplan.Path, bounds *corridor.Bounds, expand float64) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "X", "Y", "Heading", "X range", "Y range", "Tightened"})
	for i, wp := range path.Waypoints {
		box := bounds.Box(i)
		m, ok := bounds.Margins(i)
		if !ok {
			m = corridor.Margins{XMin: expand, XMax: expand, YMin: expand, YMax: expand}
		}
		tightened := lo.Filter(
			[]string{"x_min", "x_max", "y_min", "y_max"},
			func(_ string, idx int) bool { return []float64{m.XMin, m.XMax, m.YMin, m.YMax}[idx] < expand },
		)
		t.AppendRow(table.Row{
			i,
			fmt.Sprintf("%.3f", wp.X),
			fmt.Sprintf("%.3f", wp.Y),
			fmt.Sprintf("%.1f°", utils.HeadingDeg(wp.Theta)),
			fmt.Sprintf("[%.3f, %.3f]", box.X.Lo, box.X.Hi),
			fmt.Sprintf("[%.3f, %.3f]", box.Y.Lo, box.Y.Hi),
			lo.Ternary(len(tightened) == 0, "-", fmt.Sprint(tightened)),
		})
	}
	return t.Render()
}

func knotTable(traj *ocp.Trajectory) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"t", "X", "Y", "Heading", "V", "A", "Steering", "Steering rate"})
	t.AppendRows(lo.Map(traj.Knots, func(k ocp.Knot, _ int) table.Row {
		return table.Row{
			fmt.Sprintf("%.2f", k.Time),
			fmt.Sprintf("%.3f", k.X),
			fmt.Sprintf("%.3f", k.Y),
			fmt.Sprintf("%.1f°", utils.HeadingDeg(k.Heading)),
			fmt.Sprintf("%.3f", k.Velocity),
			fmt.Sprintf("%.3f", k.Acceleration),
			fmt.Sprintf("%.1f°", utils.RadToDeg(k.Steering)),
			fmt.Sprintf("%.1f°/s", utils.RadToDeg(k.SteeringRate)),
		}
	}))
	return t.Render()
}

// SchemaAction prints the JSON schema of the planner configuration.
func SchemaAction(c *cli.Context) error {
	out, err := json.MarshalIndent(config.Schema(), "", "  ")
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", out)
	return nil
}
