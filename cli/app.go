// Package cli contains the parkplan command line interface.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

// CLI flags.
const (
	debugFlag            = "debug"
	configFlag           = "config"
	pathFlag             = "path"
	outFlag              = "out"
	plotFlag             = "plot"
	timeoutFlag          = "timeout"
	checkDerivativesFlag = "check-derivatives"
	knotsFlag            = "knots"
)

func inputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.PathFlag{
			Name:     configFlag,
			Aliases:  []string{"c"},
			Required: true,
			Usage:    "load planner configuration from `FILE`",
		},
		&cli.PathFlag{
			Name:     pathFlag,
			Aliases:  []string{"p"},
			Required: true,
			Usage:    "load the initial path from `FILE`, a JSON array of [x, y, heading, ..., t] rows",
		},
	}
}

var app = &cli.App{
	Name:            "parkplan",
	Usage:           "refine parking paths into kinematically feasible trajectories",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    debugFlag,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "plan",
			Usage:     "optimize a trajectory along an initial path",
			UsageText: "parkplan plan --config <config.json> --path <path.json> [--out traj.json] [--plot plan.png]",
			Flags: append(inputFlags(),
				&cli.PathFlag{
					Name:    outFlag,
					Aliases: []string{"o"},
					Usage:   "write the trajectory artifact to `FILE` instead of stdout",
				},
				&cli.PathFlag{
					Name:  plotFlag,
					Usage: "render obstacles, corridor and trajectory to `FILE` (.png, .svg, .pdf)",
				},
				&cli.DurationFlag{
					Name:  timeoutFlag,
					Usage: "give up solving after this long",
				},
				&cli.BoolFlag{
					Name:  checkDerivativesFlag,
					Usage: "compare analytic and finite difference derivatives before solving",
				},
				&cli.BoolFlag{
					Name:  knotsFlag,
					Usage: "print the optimized knots as a table",
				},
			),
			Action: PlanAction,
		},
		{
			Name:      "corridor",
			Usage:     "print the free space corridor of an initial path",
			UsageText: "parkplan corridor --config <config.json> --path <path.json>",
			Flags:     inputFlags(),
			Action:    CorridorAction,
		},
		{
			Name:   "schema",
			Usage:  "print the JSON schema of the planner configuration",
			Action: SchemaAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
