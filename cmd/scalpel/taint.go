package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Zeeeepa/scalpel/internal/output"
	"github.com/Zeeeepa/scalpel/pkg/analyzer/taint"
)

func taintCmd() *cli.Command {
	return &cli.Command{
		Name:      "taint",
		Aliases:   []string{"scan"},
		Usage:     "Trace untrusted input from sources to dangerous sinks",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "max-depth",
				Usage: "Maximum call-chain depth to follow (0 = config default)",
			},
			&cli.StringSliceFlag{
				Name:  "entry-points",
				Usage: "Restrict scanning to these module:function entry points",
			},
			&cli.StringSliceFlag{
				Name:  "signature-packs",
				Usage: "Extra source/sink signature pack files (yaml or json)",
			},
			&cli.BoolFlag{
				Name:  "vulnerable-only",
				Usage: "Hide flows covered by a recognized sanitizer",
			},
		},
		Action: runTaintCmd,
	}
}

func runTaintCmd(c *cli.Context) error {
	build, cfg, err := buildGraph(c.Context, c, getPath(c, 0))
	if err != nil {
		return err
	}

	sigs, err := taint.DefaultSignatures()
	if err != nil {
		return fmt.Errorf("loading built-in signatures: %w", err)
	}
	packs := c.StringSlice("signature-packs")
	if len(packs) == 0 {
		packs = cfg.Taint.SignaturePacks
	}
	for _, pack := range packs {
		extra, err := taint.LoadPack(pack)
		if err != nil {
			return fmt.Errorf("signature pack %s: %w", pack, err)
		}
		sigs.Merge(extra)
	}

	maxDepth := cfg.Taint.MaxDepth
	if n := c.Int("max-depth"); n > 0 {
		maxDepth = n
	}
	entryPoints := c.StringSlice("entry-points")
	if len(entryPoints) == 0 {
		entryPoints = cfg.Taint.EntryPoints
	}

	opts := []taint.Option{
		taint.WithSignatures(sigs),
		taint.WithMaxDepth(maxDepth),
	}
	if len(entryPoints) > 0 {
		opts = append(opts, taint.WithEntryPoints(entryPoints))
	}

	analyzer, err := taint.New(opts...)
	if err != nil {
		return err
	}
	result, err := analyzer.Analyze(c.Context, build.Graph)
	if err != nil {
		return fmt.Errorf("taint analysis failed: %w", err)
	}

	if c.Bool("vulnerable-only") {
		kept := result.Flows[:0]
		for _, f := range result.Flows {
			if !f.Sanitized {
				kept = append(kept, f)
			}
		}
		result.Flows = kept
	}

	formatter, err := output.NewFormatter(output.ParseFormat(c.String("format")), c.String("output"), cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(output.TaintRenderable(result))
}
