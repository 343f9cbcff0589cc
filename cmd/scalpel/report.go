package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/Zeeeepa/scalpel/internal/output"
	"github.com/Zeeeepa/scalpel/pkg/analyzer/assemble"
	"github.com/Zeeeepa/scalpel/pkg/analyzer/deps"
	"github.com/Zeeeepa/scalpel/pkg/analyzer/neighborhood"
	"github.com/Zeeeepa/scalpel/pkg/analyzer/taint"
)

func reportCmd() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Aliases:   []string{"analyze"},
		Usage:     "Run taint, cycle, and hub analysis and merge into one report",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "target",
				Usage: "Also trace dependencies of this module:symbol target",
			},
			&cli.StringFlag{
				Name:  "center",
				Usage: "Also extract the import neighborhood around this module",
			},
			&cli.IntFlag{
				Name:  "top-hubs",
				Value: 10,
				Usage: "Number of hub modules to rank",
			},
		},
		Action: runReportCmd,
	}
}

func runReportCmd(c *cli.Context) error {
	path := getPath(c, 0)
	build, cfg, err := buildGraph(c.Context, c, path)
	if err != nil {
		return err
	}

	var parts assemble.Parts

	if target := c.String("target"); target != "" {
		module, symbol, ok := strings.Cut(target, ":")
		if !ok || module == "" || symbol == "" {
			return fmt.Errorf("--target must be module:symbol (got %q)", target)
		}
		result, err := deps.New(
			deps.WithMaxDepth(cfg.Budgets.MaxDepth),
			deps.WithMaxModules(cfg.Budgets.MaxModules),
			deps.WithDecay(cfg.Budgets.DecayFactor),
		).Traverse(c.Context, build.Graph, module, symbol)
		if err != nil {
			return fmt.Errorf("dependency traversal failed: %w", err)
		}
		parts.Dependencies = result
	}

	sigs, err := taint.DefaultSignatures()
	if err != nil {
		return fmt.Errorf("loading built-in signatures: %w", err)
	}
	for _, pack := range cfg.Taint.SignaturePacks {
		extra, err := taint.LoadPack(pack)
		if err != nil {
			return fmt.Errorf("signature pack %s: %w", pack, err)
		}
		sigs.Merge(extra)
	}
	taintOpts := []taint.Option{
		taint.WithSignatures(sigs),
		taint.WithMaxDepth(cfg.Taint.MaxDepth),
	}
	if len(cfg.Taint.EntryPoints) > 0 {
		taintOpts = append(taintOpts, taint.WithEntryPoints(cfg.Taint.EntryPoints))
	}
	analyzer, err := taint.New(taintOpts...)
	if err != nil {
		return err
	}
	parts.Taint, err = analyzer.Analyze(c.Context, build.Graph)
	if err != nil {
		return fmt.Errorf("taint analysis failed: %w", err)
	}

	if center := c.String("center"); center != "" {
		result, err := neighborhood.New(
			neighborhood.WithMaxNodes(cfg.Budgets.MaxNodes),
		).Extract(c.Context, build.Graph, center)
		if err != nil {
			return fmt.Errorf("neighborhood extraction failed: %w", err)
		}
		parts.Neighborhood = result
	}

	project := filepath.Base(path)
	if abs, err := filepath.Abs(path); err == nil {
		project = filepath.Base(abs)
	}

	report := assemble.New(assemble.WithTopHubs(c.Int("top-hubs"))).
		Assemble(project, build, parts)

	formatter, err := output.NewFormatter(output.ParseFormat(c.String("format")), c.String("output"), cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(output.ReportRenderable(report))
}
