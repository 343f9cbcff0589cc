// Package deps extracts confidence-scored transitive dependencies of a
// symbol by walking the module graph breadth-first.
package deps

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Zeeeepa/scalpel/pkg/graph"
	"github.com/Zeeeepa/scalpel/pkg/parser"
)

// Traverser walks outward from a target symbol, decaying confidence per hop.
type Traverser struct {
	maxDepth   int
	maxModules int
	decay      float64
}

// Option is a functional option for configuring Traverser.
type Option func(*Traverser)

// WithMaxDepth bounds the hop count from the target (default 3).
func WithMaxDepth(n int) Option {
	return func(t *Traverser) { t.maxDepth = n }
}

// WithMaxModules bounds the distinct modules touched (0 = no limit).
func WithMaxModules(n int) Option {
	return func(t *Traverser) { t.maxModules = n }
}

// WithDecay sets the per-hop confidence decay factor (default 0.8).
func WithDecay(f float64) Option {
	return func(t *Traverser) { t.decay = f }
}

// New creates a dependency traverser.
func New(opts ...Option) *Traverser {
	t := &Traverser{
		maxDepth: 3,
		decay:    0.8,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// queueEntry is one pending BFS node.
type queueEntry struct {
	ref   graph.SymbolRef
	depth int
}

// Traverse runs a bounded BFS from the named symbol in the named module.
// The graph is read-only; all traversal state is local, so concurrent
// traversals over one graph are safe.
func (t *Traverser) Traverse(ctx context.Context, g *graph.ModuleGraph, modulePath, symbol string) (*Result, error) {
	loc := graph.NewLocator(g)
	ref, _, err := loc.Locate(modulePath, symbol, graph.LocateOptions{})
	if err != nil {
		return nil, err
	}

	result := &Result{}
	visited := roaring.New()
	touched := make(map[int]bool)

	queue := []queueEntry{{ref: ref, depth: 0}}
	visited.Add(g.SymbolID(ref))
	touched[ref.Module] = true

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			result.Truncated = true
			result.TruncationReason = graph.TruncationTimeout
			break
		}

		entry := queue[0]
		queue = queue[1:]

		mod := g.Modules[entry.ref.Module]
		sym := mod.Symbols[entry.ref.Index]

		confidence := math.Pow(t.decay, float64(entry.depth))
		rec := Record{
			Symbol:     sym.Name,
			Kind:       sym.Kind,
			Class:      sym.Class,
			Module:     mod.ID,
			StartLine:  sym.StartLine,
			EndLine:    sym.EndLine,
			Depth:      entry.depth,
			Confidence: confidence,
		}
		if confidence < LowConfidenceThreshold {
			rec.LowConfidence = true
			result.LowConfidenceCount++
		}
		result.Records = append(result.Records, rec)
		if entry.depth > result.DepthReached {
			result.DepthReached = entry.depth
		}

		deps := t.dependenciesOf(g, entry.ref, result)
		if entry.depth >= t.maxDepth {
			if len(deps) > 0 && !result.Truncated {
				result.Truncated = true
				result.TruncationReason = graph.TruncationDepthLimit
			}
			continue
		}

		for _, next := range deps {
			id := g.SymbolID(next)
			if visited.Contains(id) {
				continue
			}
			if t.maxModules > 0 && !touched[next.Module] && len(touched) >= t.maxModules {
				if !result.Truncated {
					result.Truncated = true
					result.TruncationReason = graph.TruncationModuleLimit
				}
				continue
			}
			visited.Add(id)
			touched[next.Module] = true
			queue = append(queue, queueEntry{ref: next, depth: entry.depth + 1})
		}
	}

	result.ModulesAnalyzed = len(touched)
	return result, nil
}

// dependenciesOf resolves the symbols a symbol's body reaches: callees of
// its call sites, bound through imports when the name is not local.
// Insertion order follows the module's call-site order, so BFS tie-breaking
// is deterministic.
func (t *Traverser) dependenciesOf(g *graph.ModuleGraph, ref graph.SymbolRef, result *Result) []graph.SymbolRef {
	mod := g.Modules[ref.Module]
	sym := mod.Symbols[ref.Index]

	var out []graph.SymbolRef
	seen := make(map[graph.SymbolRef]bool)

	for _, call := range mod.Calls {
		if call.Caller != sym.Name {
			continue
		}
		if sym.Kind == parser.KindMethod && call.CallerClass != sym.Class {
			continue
		}

		next, ok := g.ResolveCall(ref.Module, call.Callee)
		if !ok {
			if isProjectReference(mod, call.Callee) {
				result.Unresolved = append(result.Unresolved, UnresolvedRef{
					Module: mod.ID,
					Name:   call.Callee,
					Line:   call.Line,
				})
			}
			continue
		}
		if n := countCandidates(g, ref.Module, call.Callee); n > 1 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: %q defined in %d imported modules, using first in scan order", mod.ID, call.Callee, n))
		}
		if !seen[next] {
			seen[next] = true
			out = append(out, next)
		}
	}

	// A class depends on its own methods.
	if sym.Kind == parser.KindClass {
		for i, s := range mod.Symbols {
			if s.Kind == parser.KindMethod && s.Class == sym.Name {
				next := graph.SymbolRef{Module: ref.Module, Index: i}
				if !seen[next] {
					seen[next] = true
					out = append(out, next)
				}
			}
		}
	}

	return out
}

// countCandidates counts one-hop import targets that define the callee,
// for ambiguity reporting.
func countCandidates(g *graph.ModuleGraph, module int, callee string) int {
	if strings.ContainsRune(callee, '.') {
		return 0
	}
	n := 0
	for _, e := range g.EdgesFrom(module) {
		target := g.Modules[e.To]
		named := e.Wildcard
		for _, imported := range e.Names {
			orig, alias := splitImportName(imported)
			if orig == callee || alias == callee {
				named = true
				break
			}
		}
		if named && definesSymbol(target, callee) {
			n++
		}
	}
	return n
}

func splitImportName(name string) (orig, alias string) {
	if i := strings.Index(name, " as "); i >= 0 {
		return name[:i], name[i+4:]
	}
	return name, ""
}

func definesSymbol(m *graph.Module, name string) bool {
	for _, s := range m.Symbols {
		if s.Name == name {
			return true
		}
	}
	return false
}

// isProjectReference filters out builtins and external library calls: only
// names the module explicitly imported are worth reporting as unresolved.
func isProjectReference(m *graph.Module, callee string) bool {
	head, _, _ := strings.Cut(callee, ".")
	for _, imp := range m.Imports {
		if imp.Alias == head {
			return true
		}
		for _, name := range imp.Names {
			orig, alias := splitImportName(name)
			if orig == head || alias == head {
				return true
			}
		}
	}
	return false
}
