package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/Zeeeepa/scalpel/internal/progress"
	"github.com/Zeeeepa/scalpel/internal/scanner"
	"github.com/Zeeeepa/scalpel/pkg/config"
	"github.com/Zeeeepa/scalpel/pkg/graph"
)

// setupLogging routes slog to stderr. Debug level only when verbose;
// otherwise warnings and errors, so analysis output stays clean on stdout.
func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// getPath returns the positional arg at index i, defaulting to "."
func getPath(c *cli.Context, i int) string {
	if c.Args().Len() > i {
		return c.Args().Get(i)
	}
	return "."
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadOrDefault(), nil
}

// buildGraph scans the project rooted at path and assembles its module graph.
func buildGraph(ctx context.Context, c *cli.Context, path string) (*graph.BuildResult, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}

	root, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid path %s: %w", path, err)
	}

	files, err := scanner.NewScanner(cfg).ScanDir(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan directory %s: %w", path, err)
	}

	if maxSize := c.Int64("max-file-size"); maxSize > 0 {
		var skipped int
		files, skipped = scanner.FilterBySize(files, maxSize)
		if skipped > 0 && !quiet(c, cfg) {
			color.Yellow("Skipped %d files over %d bytes", skipped, maxSize)
		}
	}

	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no source files found under %s", path)
	}

	opts := []graph.Option{
		graph.WithMaxModules(cfg.Budgets.MaxModules),
		graph.WithTimeout(cfg.Budgets.Timeout),
	}

	var tracker *progress.Tracker
	if !quiet(c, cfg) {
		tracker = progress.NewTracker("Building module graph...", len(files))
		opts = append(opts, graph.WithProgress(tracker.Tick))
	}

	start := time.Now()
	build, err := graph.NewBuilder(opts...).Build(ctx, root, files)
	if tracker != nil {
		if err != nil {
			tracker.FinishError(err)
		} else {
			tracker.FinishSuccess()
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("graph build failed: %w", err)
	}

	slog.Debug("module graph built",
		"root", root,
		"files", len(files),
		"modules", build.ModulesScanned,
		"cycles", len(build.Cycles),
		"parse_errors", len(build.ParseErrors),
		"elapsed", time.Since(start).Round(time.Millisecond))

	return build, cfg, nil
}

func quiet(c *cli.Context, cfg *config.Config) bool {
	return c.Bool("quiet") || cfg.Output.Quiet || c.String("format") != "text"
}
