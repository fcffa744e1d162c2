// Package main is the parkplan command line tool.
package main

import (
	"os"

	"go.viam.com/parkplan/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		//nolint:errcheck
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
