package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Zeeeepa/scalpel/internal/output"
	"github.com/Zeeeepa/scalpel/pkg/analyzer/deps"
)

func depsCmd() *cli.Command {
	return &cli.Command{
		Name:      "deps",
		Aliases:   []string{"dependencies"},
		Usage:     "Trace transitive dependencies of a function or class",
		ArgsUsage: "<module> <symbol> [path]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "max-depth",
				Usage: "Maximum traversal depth (0 = config default)",
			},
			&cli.IntFlag{
				Name:  "max-modules",
				Usage: "Maximum modules to touch before truncating (0 = config default)",
			},
			&cli.Float64Flag{
				Name:  "decay",
				Usage: "Per-hop confidence decay factor (0 = config default)",
			},
		},
		Action: runDepsCmd,
	}
}

func runDepsCmd(c *cli.Context) error {
	if c.Args().Len() < 2 {
		return fmt.Errorf("usage: scalpel deps <module> <symbol> [path]")
	}
	module := c.Args().Get(0)
	symbol := c.Args().Get(1)

	build, cfg, err := buildGraph(c.Context, c, getPath(c, 2))
	if err != nil {
		return err
	}

	maxDepth := cfg.Budgets.MaxDepth
	if n := c.Int("max-depth"); n > 0 {
		maxDepth = n
	}
	maxModules := cfg.Budgets.MaxModules
	if n := c.Int("max-modules"); n > 0 {
		maxModules = n
	}
	decay := cfg.Budgets.DecayFactor
	if f := c.Float64("decay"); f > 0 {
		decay = f
	}

	result, err := deps.New(
		deps.WithMaxDepth(maxDepth),
		deps.WithMaxModules(maxModules),
		deps.WithDecay(decay),
	).Traverse(c.Context, build.Graph, module, symbol)
	if err != nil {
		return fmt.Errorf("dependency traversal failed: %w", err)
	}

	formatter, err := output.NewFormatter(output.ParseFormat(c.String("format")), c.String("output"), cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	target := fmt.Sprintf("%s:%s", module, symbol)
	return formatter.Output(output.DepsRenderable(target, result))
}
