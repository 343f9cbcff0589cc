package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Zeeeepa/scalpel/pkg/analyzer/assemble"
	"github.com/Zeeeepa/scalpel/pkg/analyzer/deps"
	"github.com/Zeeeepa/scalpel/pkg/analyzer/neighborhood"
	"github.com/Zeeeepa/scalpel/pkg/analyzer/taint"
	"github.com/Zeeeepa/scalpel/pkg/graph"
)

// DepsRenderable builds the dependency traversal view. The raw result is
// attached so json and toon formats serialize the full record set.
func DepsRenderable(target string, res *deps.Result) Renderable {
	rows := make([][]string, 0, len(res.Records))
	for _, rec := range res.Records {
		conf := fmt.Sprintf("%.2f", rec.Confidence)
		if rec.LowConfidence {
			conf += " (low)"
		}
		rows = append(rows, []string{
			rec.Symbol,
			string(rec.Kind),
			rec.Module,
			fmt.Sprintf("%d-%d", rec.StartLine, rec.EndLine),
			strconv.Itoa(rec.Depth),
			conf,
		})
	}

	report := &Report{
		Title: fmt.Sprintf("Dependencies of %s", target),
		Data:  res,
	}
	report.Sections = append(report.Sections, NewTable(
		"",
		[]string{"Symbol", "Kind", "Module", "Lines", "Depth", "Confidence"},
		rows,
		nil,
		res,
	))

	if len(res.Unresolved) > 0 {
		lines := make([]string, 0, len(res.Unresolved))
		for _, u := range res.Unresolved {
			lines = append(lines, fmt.Sprintf("%s:%d %s", u.Module, u.Line, u.Name))
		}
		report.Sections = append(report.Sections, &Section{
			Title:   "Unresolved references",
			Content: strings.Join(lines, "\n"),
		})
	}
	if len(res.Warnings) > 0 {
		report.Sections = append(report.Sections, &Section{
			Title:   "Warnings",
			Content: strings.Join(res.Warnings, "\n"),
		})
	}
	report.Sections = append(report.Sections, summarySection(
		res.ModulesAnalyzed, res.DepthReached, res.Truncated, res.TruncationReason,
		fmt.Sprintf("low confidence: %d", res.LowConfidenceCount),
	))
	return report
}

// TaintRenderable builds the taint flow view.
func TaintRenderable(res *taint.Result) Renderable {
	rows := make([][]string, 0, len(res.Flows))
	for _, flow := range res.Flows {
		status := "vulnerable"
		if flow.Sanitized {
			status = "sanitized (" + strings.Join(flow.Sanitizers, ", ") + ")"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%s:%d", flow.Source.Module, flow.Source.Line),
			flow.Source.Signature,
			fmt.Sprintf("%s:%d", flow.Sink.Module, flow.Sink.Line),
			flow.CWE,
			strconv.Itoa(len(flow.Hops)),
			fmt.Sprintf("%.2f", flow.Confidence),
			status,
		})
	}

	report := &Report{
		Title: "Taint Flows",
		Data:  res,
	}
	report.Sections = append(report.Sections, NewTable(
		"",
		[]string{"Source", "Signature", "Sink", "CWE", "Hops", "Confidence", "Status"},
		rows,
		nil,
		res,
	))
	report.Sections = append(report.Sections, summarySection(
		res.ModulesAnalyzed, res.DepthReached, res.Truncated, res.TruncationReason,
		fmt.Sprintf("vulnerable: %d", res.VulnerableCount),
	))
	return report
}

// CyclesRenderable builds the import cycle view.
func CyclesRenderable(cycles []graph.Cycle) Renderable {
	if len(cycles) == 0 {
		return &Section{
			Title:   "Import Cycles",
			Content: "No import cycles detected.",
			Data:    cycles,
		}
	}

	lines := make([]string, 0, len(cycles))
	for _, c := range cycles {
		lines = append(lines, strings.Join(c, " -> "))
	}
	return &Section{
		Title:   fmt.Sprintf("Import Cycles (%d)", len(cycles)),
		Content: strings.Join(lines, "\n"),
		Data:    cycles,
	}
}

// NeighborhoodRenderable builds the k-hop neighborhood view.
func NeighborhoodRenderable(res *neighborhood.Result) Renderable {
	rows := make([][]string, 0, len(res.Nodes))
	for _, n := range res.Nodes {
		rows = append(rows, []string{
			n.ID,
			string(n.Language),
			strconv.Itoa(n.Depth),
			strconv.Itoa(n.FanIn),
			strconv.Itoa(n.FanOut),
		})
	}

	report := &Report{
		Title: fmt.Sprintf("Neighborhood of %s", res.Center),
		Data:  res,
	}
	report.Sections = append(report.Sections, NewTable(
		"",
		[]string{"Module", "Language", "Depth", "Fan-In", "Fan-Out"},
		rows,
		nil,
		res,
	))

	if len(res.Edges) > 0 {
		lines := make([]string, 0, len(res.Edges))
		for _, e := range res.Edges {
			lines = append(lines, fmt.Sprintf("%s -> %s", e.From, e.To))
		}
		report.Sections = append(report.Sections, &Section{
			Title:   "Edges",
			Content: strings.Join(lines, "\n"),
		})
	}
	report.Sections = append(report.Sections, summarySection(
		len(res.Nodes), res.DepthReached, res.Truncated, res.TruncationReason, "",
	))
	return report
}

// ReportRenderable builds the merged analysis view with the hub table.
func ReportRenderable(rep *assemble.Report) Renderable {
	report := &Report{
		Title: fmt.Sprintf("Analysis of %s", rep.Project),
		Data:  rep,
	}

	if len(rep.Hubs) > 0 {
		rows := make([][]string, 0, len(rep.Hubs))
		for _, h := range rep.Hubs {
			rows = append(rows, []string{
				h.ID,
				strconv.Itoa(h.FanIn),
				strconv.Itoa(h.FanOut),
				fmt.Sprintf("%.4f", h.Rank),
			})
		}
		report.Sections = append(report.Sections, NewTable(
			"Hub Modules",
			[]string{"Module", "Fan-In", "Fan-Out", "Rank"},
			rows,
			nil,
			rep.Hubs,
		))
	}

	if len(rep.Cycles) > 0 {
		report.Sections = append(report.Sections, CyclesRenderable(rep.Cycles))
	}

	s := rep.Summary
	extra := ""
	if s.VulnerableCount > 0 {
		extra = fmt.Sprintf("vulnerable: %d", s.VulnerableCount)
	}
	report.Sections = append(report.Sections, summarySection(
		s.ModulesAnalyzed, s.DepthReached, s.Truncated, s.TruncationReason, extra,
	))
	return report
}

func summarySection(modules, depth int, truncated bool, reason graph.TruncationReason, extra string) *Section {
	parts := []string{
		fmt.Sprintf("modules analyzed: %d", modules),
		fmt.Sprintf("depth reached: %d", depth),
	}
	if extra != "" {
		parts = append(parts, extra)
	}
	if truncated {
		parts = append(parts, fmt.Sprintf("truncated: %s", reason))
	}
	return &Section{
		Title:   "Summary",
		Content: strings.Join(parts, "\n"),
	}
}
