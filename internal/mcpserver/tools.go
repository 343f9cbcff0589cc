package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	toon "github.com/toon-format/toon-go"

	"github.com/Zeeeepa/scalpel/internal/output"
	"github.com/Zeeeepa/scalpel/internal/scanner"
	"github.com/Zeeeepa/scalpel/pkg/analyzer/deps"
	"github.com/Zeeeepa/scalpel/pkg/analyzer/neighborhood"
	"github.com/Zeeeepa/scalpel/pkg/analyzer/taint"
	"github.com/Zeeeepa/scalpel/pkg/config"
	"github.com/Zeeeepa/scalpel/pkg/graph"
)

// Common input structures for tools

// AnalyzeInput is the base input for all analysis tools.
type AnalyzeInput struct {
	Path   string `json:"path,omitempty" jsonschema:"Project root to analyze. Defaults to current directory if empty."`
	Format string `json:"format,omitempty" jsonschema:"Output format: toon (default) or json."`
}

// DependenciesInput selects a target symbol and traversal budgets.
type DependenciesInput struct {
	AnalyzeInput
	Module     string `json:"module" jsonschema:"Module path of the target symbol, relative to the project root (e.g. src/auth.py)."`
	Symbol     string `json:"symbol" jsonschema:"Name of the function or class to trace."`
	MaxDepth   int    `json:"max_depth,omitempty" jsonschema:"Maximum traversal depth. Default 3."`
	MaxModules int    `json:"max_modules,omitempty" jsonschema:"Maximum modules to touch before truncating. Default 500."`
}

// TaintInput configures a source-to-sink scan.
type TaintInput struct {
	AnalyzeInput
	MaxDepth       int      `json:"max_depth,omitempty" jsonschema:"Maximum call-chain depth to follow. Default 4."`
	EntryPoints    []string `json:"entry_points,omitempty" jsonschema:"Restrict scanning to these module:function entry points."`
	SignaturePacks []string `json:"signature_packs,omitempty" jsonschema:"Extra source/sink signature pack files (yaml or json) merged over the built-in tables."`
}

// NeighborhoodInput selects a center module and expansion bounds.
type NeighborhoodInput struct {
	AnalyzeInput
	Center      string `json:"center" jsonschema:"Module path at the center of the neighborhood, relative to the project root."`
	Hops        int    `json:"hops,omitempty" jsonschema:"Neighborhood radius in import hops. Default 2."`
	Direction   string `json:"direction,omitempty" jsonschema:"Edge direction to follow: out, in, or both. Default both."`
	MaxNodes    int    `json:"max_nodes,omitempty" jsonschema:"Maximum modules in the neighborhood before truncating. Default 200."`
	TokenBudget int    `json:"token_budget,omitempty" jsonschema:"Reject results whose serialized size exceeds this approximate token count."`
}

// CyclesInput has no options beyond the base input.
type CyclesInput struct {
	AnalyzeInput
}

// Helper functions

func getPath(input AnalyzeInput) string {
	if input.Path == "" {
		return "."
	}
	return input.Path
}

func getFormat(input AnalyzeInput) output.Format {
	if input.Format == "json" {
		return output.FormatJSON
	}
	return output.FormatTOON
}

// buildProject scans the project and assembles its module graph.
func buildProject(ctx context.Context, root string) (*graph.BuildResult, error) {
	cfg := config.LoadOrDefault()
	files, err := scanner.NewScanner(cfg).ScanDir(root)
	if err != nil {
		return nil, err
	}
	return graph.NewBuilder(
		graph.WithMaxModules(cfg.Budgets.MaxModules),
		graph.WithTimeout(cfg.Budgets.Timeout),
	).Build(ctx, root, files)
}

func formatOutput(data any, format output.Format) (string, error) {
	if format == output.FormatJSON {
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	out, err := toon.Marshal(data, toon.WithIndent(2))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// Tool handlers

func handleAnalyzeDependencies(ctx context.Context, req *mcp.CallToolRequest, input DependenciesInput) (*mcp.CallToolResult, any, error) {
	if input.Module == "" || input.Symbol == "" {
		return toolError("module and symbol are required")
	}

	root, err := filepath.Abs(getPath(input.AnalyzeInput))
	if err != nil {
		return toolError(err.Error())
	}

	build, err := buildProject(ctx, root)
	if err != nil {
		return toolError(err.Error())
	}

	var opts []deps.Option
	if input.MaxDepth > 0 {
		opts = append(opts, deps.WithMaxDepth(input.MaxDepth))
	}
	if input.MaxModules > 0 {
		opts = append(opts, deps.WithMaxModules(input.MaxModules))
	}

	result, err := deps.New(opts...).Traverse(ctx, build.Graph, input.Module, input.Symbol)
	if err != nil {
		return toolError(err.Error())
	}

	return toolResult(result, getFormat(input.AnalyzeInput))
}

func handleScanTaint(ctx context.Context, req *mcp.CallToolRequest, input TaintInput) (*mcp.CallToolResult, any, error) {
	root, err := filepath.Abs(getPath(input.AnalyzeInput))
	if err != nil {
		return toolError(err.Error())
	}

	build, err := buildProject(ctx, root)
	if err != nil {
		return toolError(err.Error())
	}

	sigs, err := taint.DefaultSignatures()
	if err != nil {
		return toolError(err.Error())
	}
	for _, pack := range input.SignaturePacks {
		extra, err := taint.LoadPack(pack)
		if err != nil {
			return toolError(fmt.Sprintf("signature pack %s: %v", pack, err))
		}
		sigs.Merge(extra)
	}

	opts := []taint.Option{taint.WithSignatures(sigs)}
	if input.MaxDepth > 0 {
		opts = append(opts, taint.WithMaxDepth(input.MaxDepth))
	}
	if len(input.EntryPoints) > 0 {
		opts = append(opts, taint.WithEntryPoints(input.EntryPoints))
	}

	analyzer, err := taint.New(opts...)
	if err != nil {
		return toolError(err.Error())
	}
	result, err := analyzer.Analyze(ctx, build.Graph)
	if err != nil {
		return toolError(err.Error())
	}

	return toolResult(result, getFormat(input.AnalyzeInput))
}

func handleGraphNeighborhood(ctx context.Context, req *mcp.CallToolRequest, input NeighborhoodInput) (*mcp.CallToolResult, any, error) {
	if input.Center == "" {
		return toolError("center module is required")
	}

	root, err := filepath.Abs(getPath(input.AnalyzeInput))
	if err != nil {
		return toolError(err.Error())
	}

	build, err := buildProject(ctx, root)
	if err != nil {
		return toolError(err.Error())
	}

	opts := []neighborhood.Option{
		neighborhood.WithDirection(parseDirection(input.Direction)),
	}
	if input.Hops > 0 {
		opts = append(opts, neighborhood.WithMaxHops(input.Hops))
	}
	if input.MaxNodes > 0 {
		opts = append(opts, neighborhood.WithMaxNodes(input.MaxNodes))
	}

	result, err := neighborhood.New(opts...).Extract(ctx, build.Graph, input.Center)
	if err != nil {
		return toolError(err.Error())
	}

	format := getFormat(input.AnalyzeInput)
	text, err := formatOutput(result, format)
	if err != nil {
		return nil, nil, err
	}

	if input.TokenBudget > 0 {
		info := output.GetTokenBudgetInfo(text, input.TokenBudget)
		if info.Remaining == 0 {
			return toolError(fmt.Sprintf(
				"result is ~%s tokens, over the %s budget; lower hops or max_nodes",
				output.FormatTokenCount(info.Tokens), info.BudgetLabel))
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func handleFindCycles(ctx context.Context, req *mcp.CallToolRequest, input CyclesInput) (*mcp.CallToolResult, any, error) {
	root, err := filepath.Abs(getPath(input.AnalyzeInput))
	if err != nil {
		return toolError(err.Error())
	}

	build, err := buildProject(ctx, root)
	if err != nil {
		return toolError(err.Error())
	}

	result := struct {
		Cycles          []graph.Cycle `json:"cycles" toon:"cycles"`
		ModulesAnalyzed int           `json:"modules_analyzed" toon:"modules_analyzed"`
	}{
		Cycles:          build.Cycles,
		ModulesAnalyzed: build.ModulesScanned,
	}

	return toolResult(result, getFormat(input.AnalyzeInput))
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
