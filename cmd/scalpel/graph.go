package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Zeeeepa/scalpel/internal/output"
	"github.com/Zeeeepa/scalpel/pkg/analyzer/neighborhood"
)

func neighborhoodCmd() *cli.Command {
	return &cli.Command{
		Name:      "graph",
		Aliases:   []string{"neighborhood", "nbhd"},
		Usage:     "Extract the k-hop import neighborhood around a module",
		ArgsUsage: "<center> [path]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "hops",
				Value: 2,
				Usage: "Neighborhood radius in import hops",
			},
			&cli.StringFlag{
				Name:  "direction",
				Value: "both",
				Usage: "Edge direction to follow: out, in, or both",
			},
			&cli.IntFlag{
				Name:  "max-nodes",
				Usage: "Maximum modules in the neighborhood (0 = config default)",
			},
			&cli.Float64Flag{
				Name:  "min-confidence",
				Usage: "Drop edges below this confidence",
			},
			&cli.StringFlag{
				Name:  "language",
				Usage: "Only include modules of this language",
			},
			&cli.StringFlag{
				Name:  "contains",
				Usage: "Only include modules whose path contains this substring",
			},
		},
		Action: runNeighborhoodCmd,
	}
}

func runNeighborhoodCmd(c *cli.Context) error {
	if c.Args().Len() < 1 {
		return fmt.Errorf("usage: scalpel graph <center> [path]")
	}
	center := c.Args().Get(0)

	build, cfg, err := buildGraph(c.Context, c, getPath(c, 1))
	if err != nil {
		return err
	}

	maxNodes := cfg.Budgets.MaxNodes
	if n := c.Int("max-nodes"); n > 0 {
		maxNodes = n
	}

	opts := []neighborhood.Option{
		neighborhood.WithMaxHops(c.Int("hops")),
		neighborhood.WithMaxNodes(maxNodes),
		neighborhood.WithDirection(parseDirection(c.String("direction"))),
	}
	if f := c.Float64("min-confidence"); f > 0 {
		opts = append(opts, neighborhood.WithMinConfidence(f))
	}
	if lang, sub := c.String("language"), c.String("contains"); lang != "" || sub != "" {
		opts = append(opts, neighborhood.WithQuery(neighborhood.Query{
			Language: lang,
			Contains: sub,
		}))
	}

	result, err := neighborhood.New(opts...).Extract(c.Context, build.Graph, center)
	if err != nil {
		return fmt.Errorf("neighborhood extraction failed: %w", err)
	}

	formatter, err := output.NewFormatter(output.ParseFormat(c.String("format")), c.String("output"), cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(output.NeighborhoodRenderable(result))
}

func parseDirection(s string) neighborhood.Direction {
	switch s {
	case "out":
		return neighborhood.DirOut
	case "in":
		return neighborhood.DirIn
	default:
		return neighborhood.DirBoth
	}
}
