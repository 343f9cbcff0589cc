package graph

import (
	"strings"
)

// ResolveCall binds a flattened call expression from a module to a project
// symbol. Dotted callees are tried whole first, then as module-qualified
// references where the head names an imported module, then as a bare method
// name on a local instance.
func (g *ModuleGraph) ResolveCall(module int, callee string) (SymbolRef, bool) {
	if ref, ok := g.ResolveSymbol(module, callee); ok {
		return ref, true
	}

	head, rest, dotted := strings.Cut(callee, ".")
	if !dotted || rest == "" {
		return SymbolRef{}, false
	}

	for _, e := range g.EdgesFrom(module) {
		if !g.edgeAnswersTo(e, head) {
			continue
		}
		if ref, ok := g.ResolveSymbol(e.To, rest); ok {
			return ref, true
		}
	}

	last := callee[strings.LastIndexByte(callee, '.')+1:]
	if ref, ok := g.ResolveSymbol(module, last); ok {
		return ref, true
	}
	return SymbolRef{}, false
}

// edgeAnswersTo reports whether a qualified reference head names this edge's
// target module, by alias or by the target's base file name.
func (g *ModuleGraph) edgeAnswersTo(e ImportEdge, head string) bool {
	if e.Alias == head {
		return true
	}
	id := g.Modules[e.To].ID
	base := id
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base == head
}
