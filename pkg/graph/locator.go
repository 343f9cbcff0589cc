package graph

import (
	"fmt"

	"github.com/Zeeeepa/scalpel/pkg/parser"
)

// Locator answers "where is this symbol defined" questions against a built
// module graph.
type Locator struct {
	graph *ModuleGraph
}

func NewLocator(g *ModuleGraph) *Locator {
	return &Locator{graph: g}
}

// LocateOptions narrows a lookup. Zero values match anything.
type LocateOptions struct {
	Kind  parser.SymbolKind // restrict to one symbol kind
	Class string            // for methods, the enclosing class name
}

// Locate finds the named symbol in the module identified by its
// project-relative path. When the module defines the name it wins outright;
// otherwise alias and re-export chains are followed to the defining module.
func (l *Locator) Locate(modulePath, name string, opts LocateOptions) (SymbolRef, *parser.SymbolInfo, error) {
	idx, ok := l.graph.IndexOf(modulePath)
	if !ok {
		return SymbolRef{}, nil, fmt.Errorf("%w: %s", ErrTargetNotFound, modulePath)
	}

	mod := l.graph.Modules[idx]
	best := -1
	for i, s := range mod.Symbols {
		if s.Name != name {
			continue
		}
		if opts.Kind != "" && s.Kind != opts.Kind {
			continue
		}
		if opts.Class != "" && s.Class != opts.Class {
			continue
		}
		if opts.Class == "" && s.Kind == parser.KindMethod && opts.Kind == "" && best >= 0 {
			// Prefer a module-level match over a method of the same name
			// when the caller did not disambiguate.
			continue
		}
		best = i
		if s.Kind != parser.KindMethod {
			break
		}
	}
	if best >= 0 {
		ref := SymbolRef{Module: idx, Index: best}
		return ref, &mod.Symbols[best], nil
	}

	// Not defined here: the name may arrive through an import chain.
	if opts.Kind == "" && opts.Class == "" {
		if ref, ok := l.graph.ResolveSymbol(idx, name); ok {
			sym := &l.graph.Modules[ref.Module].Symbols[ref.Index]
			return ref, sym, nil
		}
	}

	return SymbolRef{}, nil, fmt.Errorf("%w: %s in %s", ErrSymbolNotFound, name, modulePath)
}

// Methods lists the methods of a class defined in the given module.
func (l *Locator) Methods(modulePath, class string) ([]parser.SymbolInfo, error) {
	idx, ok := l.graph.IndexOf(modulePath)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, modulePath)
	}
	var out []parser.SymbolInfo
	for _, s := range l.graph.Modules[idx].Symbols {
		if s.Kind == parser.KindMethod && s.Class == class {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: class %s in %s", ErrSymbolNotFound, class, modulePath)
	}
	return out, nil
}
