package main

import (
	"github.com/urfave/cli/v2"

	"github.com/Zeeeepa/scalpel/internal/output"
)

func cyclesCmd() *cli.Command {
	return &cli.Command{
		Name:      "cycles",
		Usage:     "Detect circular import chains between modules",
		ArgsUsage: "[path]",
		Action:    runCyclesCmd,
	}
}

func runCyclesCmd(c *cli.Context) error {
	build, cfg, err := buildGraph(c.Context, c, getPath(c, 0))
	if err != nil {
		return err
	}

	formatter, err := output.NewFormatter(output.ParseFormat(c.String("format")), c.String("output"), cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(output.CyclesRenderable(build.Cycles))
}
