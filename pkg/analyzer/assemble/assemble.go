// Package assemble merges traversal, taint, and neighborhood outputs into
// one structured report with summary counters and hub-module rankings.
package assemble

import (
	"sort"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/Zeeeepa/scalpel/pkg/analyzer/deps"
	"github.com/Zeeeepa/scalpel/pkg/analyzer/neighborhood"
	"github.com/Zeeeepa/scalpel/pkg/analyzer/taint"
	"github.com/Zeeeepa/scalpel/pkg/graph"
)

// HubModule is one highly-connected module in the fan table.
type HubModule struct {
	ID     string  `json:"id" toon:"id"`
	FanIn  int     `json:"fan_in" toon:"fan_in"`
	FanOut int     `json:"fan_out" toon:"fan_out"`
	Rank   float64 `json:"rank" toon:"rank"`
}

// Summary carries the cross-cutting counters of one analysis run.
type Summary struct {
	ModulesAnalyzed    int                    `json:"modules_analyzed" toon:"modules_analyzed"`
	DepthReached       int                    `json:"depth_reached" toon:"depth_reached"`
	LowConfidenceCount int                    `json:"low_confidence_count" toon:"low_confidence_count"`
	VulnerableCount    int                    `json:"vulnerable_count,omitempty" toon:"vulnerable_count,omitempty"`
	Truncated          bool                   `json:"truncated" toon:"truncated"`
	TruncationReason   graph.TruncationReason `json:"truncation_reason,omitempty" toon:"truncation_reason,omitempty"`
}

// Report is the final structured record handed to the output layer.
type Report struct {
	Project      string                   `json:"project" toon:"project"`
	Dependencies *deps.Result             `json:"dependencies,omitempty" toon:"dependencies,omitempty"`
	Taint        *taint.Result            `json:"taint,omitempty" toon:"taint,omitempty"`
	Neighborhood *neighborhood.Result     `json:"neighborhood,omitempty" toon:"neighborhood,omitempty"`
	Cycles       []graph.Cycle            `json:"cycles,omitempty" toon:"cycles,omitempty"`
	Unresolved   []graph.UnresolvedImport `json:"unresolved_imports,omitempty" toon:"unresolved_imports,omitempty"`
	ParseErrors  []graph.ParseError       `json:"parse_errors,omitempty" toon:"parse_errors,omitempty"`
	Hubs         []HubModule              `json:"hubs,omitempty" toon:"hubs,omitempty"`
	Summary      Summary                  `json:"summary" toon:"summary"`
}

// Parts are the per-analysis results to merge. Nil members are skipped.
type Parts struct {
	Dependencies *deps.Result
	Taint        *taint.Result
	Neighborhood *neighborhood.Result
}

// Assembler merges analysis outputs. Inputs are aggregated, never mutated.
type Assembler struct {
	topHubs int
}

// Option is a functional option for configuring Assembler.
type Option func(*Assembler)

// WithTopHubs sets how many hub modules the fan table keeps (default 10).
func WithTopHubs(n int) Option {
	return func(a *Assembler) { a.topHubs = n }
}

// New creates an assembler.
func New(opts ...Option) *Assembler {
	a := &Assembler{topHubs: 10}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble merges the build result and analysis parts into one report.
func (a *Assembler) Assemble(project string, build *graph.BuildResult, parts Parts) *Report {
	r := &Report{
		Project:      project,
		Dependencies: parts.Dependencies,
		Taint:        parts.Taint,
		Neighborhood: parts.Neighborhood,
	}

	if build != nil {
		r.Cycles = build.Cycles
		r.Unresolved = build.Unresolved
		r.ParseErrors = build.ParseErrors
		r.Summary.ModulesAnalyzed = build.ModulesScanned
		a.mergeTruncation(&r.Summary, build.Truncated, build.TruncationReason)
		if build.Graph != nil {
			r.Hubs = a.rankHubs(build.Graph)
		}
	}

	if d := parts.Dependencies; d != nil {
		r.Summary.LowConfidenceCount += d.LowConfidenceCount
		if d.DepthReached > r.Summary.DepthReached {
			r.Summary.DepthReached = d.DepthReached
		}
		a.mergeTruncation(&r.Summary, d.Truncated, d.TruncationReason)
	}
	if tn := parts.Taint; tn != nil {
		r.Summary.VulnerableCount += tn.VulnerableCount
		if tn.DepthReached > r.Summary.DepthReached {
			r.Summary.DepthReached = tn.DepthReached
		}
		a.mergeTruncation(&r.Summary, tn.Truncated, tn.TruncationReason)
		if len(r.Cycles) == 0 {
			r.Cycles = tn.Cycles
		}
	}
	if n := parts.Neighborhood; n != nil {
		if n.DepthReached > r.Summary.DepthReached {
			r.Summary.DepthReached = n.DepthReached
		}
		a.mergeTruncation(&r.Summary, n.Truncated, n.TruncationReason)
	}

	return r
}

// mergeTruncation keeps the first reason seen; any truncated part marks the
// whole report partial.
func (a *Assembler) mergeTruncation(s *Summary, truncated bool, reason graph.TruncationReason) {
	if !truncated {
		return
	}
	s.Truncated = true
	if s.TruncationReason == graph.TruncationNone {
		s.TruncationReason = reason
	}
}

// rankHubs scores modules with PageRank over the import graph and returns
// the top entries with their fan counts. Ties break on module id.
func (a *Assembler) rankHubs(g *graph.ModuleGraph) []HubModule {
	if g.Len() == 0 || a.topHubs <= 0 {
		return nil
	}

	dg := simple.NewDirectedGraph()
	for i := 0; i < g.Len(); i++ {
		dg.AddNode(simple.Node(i))
	}
	for i := 0; i < g.Len(); i++ {
		for _, j := range g.Forward(i) {
			if i != j {
				dg.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(j)})
			}
		}
	}

	ranks := network.PageRank(dg, 0.85, 1e-6)

	hubs := make([]HubModule, 0, g.Len())
	for i := 0; i < g.Len(); i++ {
		hubs = append(hubs, HubModule{
			ID:     g.Modules[i].ID,
			FanIn:  g.FanIn(i),
			FanOut: g.FanOut(i),
			Rank:   ranks[int64(i)],
		})
	}
	sort.Slice(hubs, func(i, j int) bool {
		if hubs[i].Rank != hubs[j].Rank {
			return hubs[i].Rank > hubs[j].Rank
		}
		return hubs[i].ID < hubs[j].ID
	})
	if len(hubs) > a.topHubs {
		hubs = hubs[:a.topHubs]
	}
	return hubs
}
