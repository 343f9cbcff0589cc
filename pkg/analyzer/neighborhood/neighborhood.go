// Package neighborhood extracts bounded k-hop subgraphs around a module,
// with direction and confidence filters and an optional attribute query.
package neighborhood

import (
	"context"
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Zeeeepa/scalpel/pkg/graph"
)

// Direction selects which edges to expand.
type Direction string

const (
	DirOut  Direction = "out"  // modules this one imports
	DirIn   Direction = "in"   // modules importing this one
	DirBoth Direction = "both"
)

// Node is one module in the extracted neighborhood.
type Node struct {
	ID       string `json:"id" toon:"id"`
	Language string `json:"language" toon:"language"`
	Depth    int    `json:"depth" toon:"depth"`
	FanIn    int    `json:"fan_in" toon:"fan_in"`
	FanOut   int    `json:"fan_out" toon:"fan_out"`
}

// Edge is one import relation inside the neighborhood.
type Edge struct {
	From       string  `json:"from" toon:"from"`
	To         string  `json:"to" toon:"to"`
	Confidence float64 `json:"confidence" toon:"confidence"`
}

// Result is the extracted neighborhood.
type Result struct {
	Center           string                 `json:"center" toon:"center"`
	Nodes            []Node                 `json:"nodes" toon:"nodes"`
	Edges            []Edge                 `json:"edges" toon:"edges"`
	DepthReached     int                    `json:"depth_reached" toon:"depth_reached"`
	Truncated        bool                   `json:"truncated" toon:"truncated"`
	TruncationReason graph.TruncationReason `json:"truncation_reason,omitempty" toon:"truncation_reason,omitempty"`
}

// Query filters candidate nodes before expansion, so the node budget is
// spent only on matching paths. Zero value matches everything.
type Query struct {
	Language string // exact language match
	Contains string // substring of the module path
}

func (q Query) matches(m *graph.Module) bool {
	if q.Language != "" && string(m.Language) != q.Language {
		return false
	}
	if q.Contains != "" && !strings.Contains(m.ID, q.Contains) {
		return false
	}
	return true
}

// Engine runs neighborhood queries over a built graph.
type Engine struct {
	maxHops       int
	maxNodes      int
	direction     Direction
	minConfidence float64
	query         Query
}

// Option is a functional option for configuring Engine.
type Option func(*Engine)

// WithMaxHops sets k, the hop budget (default 2).
func WithMaxHops(k int) Option {
	return func(e *Engine) { e.maxHops = k }
}

// WithMaxNodes caps the node set size (0 = no cap).
func WithMaxNodes(n int) Option {
	return func(e *Engine) { e.maxNodes = n }
}

// WithDirection selects edge orientation (default both).
func WithDirection(d Direction) Option {
	return func(e *Engine) { e.direction = d }
}

// WithMinConfidence drops edges below the threshold. Structural import
// edges carry confidence 1.0.
func WithMinConfidence(c float64) Option {
	return func(e *Engine) { e.minConfidence = c }
}

// WithQuery installs a per-hop node filter.
func WithQuery(q Query) Option {
	return func(e *Engine) { e.query = q }
}

// New creates a neighborhood engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		maxHops:   2,
		direction: DirBoth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type queueEntry struct {
	node  int
	depth int
}

// Extract runs a BFS from the center module. Expansion halts at the hop
// budget or the node cap, whichever comes first; hitting the cap marks the
// result truncated with the reached depth recorded.
func (e *Engine) Extract(ctx context.Context, g *graph.ModuleGraph, center string) (*Result, error) {
	centerIdx, ok := g.IndexOf(center)
	if !ok {
		return nil, fmt.Errorf("%w: %s", graph.ErrTargetNotFound, center)
	}

	result := &Result{Center: center}
	visited := roaring.New()
	visited.Add(uint32(centerIdx))
	depths := map[int]int{centerIdx: 0}

	queue := []queueEntry{{node: centerIdx}}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			result.Truncated = true
			result.TruncationReason = graph.TruncationTimeout
			break
		}

		entry := queue[0]
		queue = queue[1:]
		if entry.depth > result.DepthReached {
			result.DepthReached = entry.depth
		}
		if entry.depth >= e.maxHops {
			continue
		}

		for _, next := range e.neighbors(g, entry.node) {
			if visited.Contains(uint32(next)) {
				continue
			}
			if !e.query.matches(g.Modules[next]) {
				continue
			}
			if e.maxNodes > 0 && int(visited.GetCardinality()) >= e.maxNodes {
				result.Truncated = true
				result.TruncationReason = graph.TruncationNodeLimit
				continue
			}
			visited.Add(uint32(next))
			depths[next] = entry.depth + 1
			queue = append(queue, queueEntry{node: next, depth: entry.depth + 1})
		}
	}

	// emit nodes in module scan order for stable output
	it := visited.Iterator()
	for it.HasNext() {
		i := int(it.Next())
		m := g.Modules[i]
		result.Nodes = append(result.Nodes, Node{
			ID:       m.ID,
			Language: string(m.Language),
			Depth:    depths[i],
			FanIn:    g.FanIn(i),
			FanOut:   g.FanOut(i),
		})
	}
	result.Edges = e.memberEdges(g, visited)
	return result, nil
}

// neighbors lists adjacent modules honoring direction and confidence.
func (e *Engine) neighbors(g *graph.ModuleGraph, node int) []int {
	if e.minConfidence > 1.0 {
		// structural edges are 1.0, nothing can pass
		return nil
	}
	var out []int
	if e.direction == DirOut || e.direction == DirBoth {
		out = append(out, g.Forward(node)...)
	}
	if e.direction == DirIn || e.direction == DirBoth {
		out = append(out, g.Reverse(node)...)
	}
	return out
}

// memberEdges collects the import edges with both endpoints in the node set.
func (e *Engine) memberEdges(g *graph.ModuleGraph, members *roaring.Bitmap) []Edge {
	seen := make(map[[2]int]bool)
	var edges []Edge
	for _, edge := range g.Edges {
		if !members.Contains(uint32(edge.From)) || !members.Contains(uint32(edge.To)) {
			continue
		}
		key := [2]int{edge.From, edge.To}
		if seen[key] {
			continue
		}
		seen[key] = true
		edges = append(edges, Edge{
			From:       g.Modules[edge.From].ID,
			To:         g.Modules[edge.To].ID,
			Confidence: 1.0,
		})
	}
	return edges
}
