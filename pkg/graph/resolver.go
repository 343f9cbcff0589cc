package graph

import (
	"path"
	"strings"

	"github.com/Zeeeepa/scalpel/pkg/parser"
)

// resolver maps raw import statements to module arena indices. Lookup keys
// are registered in scan order so the first-scanned module wins collisions,
// keeping resolution deterministic.
type resolver struct {
	graph *ModuleGraph
	keys  map[string]int   // normalized module path -> arena index
	dirs  map[string][]int // directory -> modules in it (go packages)
	tops  []string         // unique top-level directories in scan order
}

func newResolver(g *ModuleGraph) *resolver {
	r := &resolver{
		graph: g,
		keys:  make(map[string]int, len(g.Modules)),
		dirs:  make(map[string][]int),
	}
	seen := make(map[string]bool)
	for i, m := range g.Modules {
		r.register(i, m)
		if top := topLevel(path.Dir(m.ID)); top != "" && !seen[top] {
			seen[top] = true
			r.tops = append(r.tops, top)
		}
	}
	return r
}

func (r *resolver) register(idx int, m *Module) {
	id := m.ID
	dir := path.Dir(id)
	r.dirs[dir] = append(r.dirs[dir], idx)

	ext := path.Ext(id)
	stem := strings.TrimSuffix(id, ext)
	r.put(stem, idx)
	r.put(strings.ReplaceAll(stem, "/", "."), idx)

	base := path.Base(stem)
	switch base {
	case "__init__", "index":
		// Package entry files answer for their directory.
		r.put(dir, idx)
		r.put(strings.ReplaceAll(dir, "/", "."), idx)
	}
}

func (r *resolver) put(key string, idx int) {
	if key == "" || key == "." {
		return
	}
	if _, exists := r.keys[key]; !exists {
		r.keys[key] = idx
	}
}

// resolve turns one import statement into an edge, or reports it
// unresolvable within the project.
func (r *resolver) resolve(from int, imp parser.ImportInfo) (ImportEdge, bool) {
	mod := r.graph.Modules[from]

	var target int
	var ok bool
	switch {
	case mod.Language == parser.LangPython && (imp.Relative || imp.Dots > 0):
		target, ok = r.resolvePythonRelative(mod, imp)
	case mod.Language == parser.LangPython:
		target, ok = r.resolveDotted(imp.Path)
	case mod.Language == parser.LangGo:
		target, ok = r.resolveGoImport(from, imp.Path)
	case imp.Relative:
		target, ok = r.resolveScriptRelative(mod, imp.Path)
	default:
		// Bare specifier: only resolvable when the project itself provides
		// the path (monorepo-style), otherwise it is an external package.
		target, ok = r.lookup(strings.TrimSuffix(imp.Path, path.Ext(imp.Path)))
	}
	if !ok || target == from {
		return ImportEdge{}, false
	}

	return ImportEdge{
		From:     from,
		To:       target,
		Names:    imp.Names,
		Alias:    imp.Alias,
		Wildcard: imp.Wildcard,
		Relative: imp.Relative || imp.Dots > 0,
		ReExport: imp.ReExport || isPackageEntry(mod.ID),
		Line:     imp.Line,
	}, true
}

func (r *resolver) lookup(key string) (int, bool) {
	i, ok := r.keys[key]
	return i, ok
}

// resolvePythonRelative resolves "from .x import y" style imports against
// the importing module's directory, popping one level per extra leading dot.
func (r *resolver) resolvePythonRelative(mod *Module, imp parser.ImportInfo) (int, bool) {
	dir := path.Dir(mod.ID)
	dots := imp.Dots
	if dots == 0 {
		dots = 1
	}
	for i := 1; i < dots; i++ {
		dir = path.Dir(dir)
	}

	base := dir
	if imp.Path != "" {
		base = path.Join(dir, strings.ReplaceAll(imp.Path, ".", "/"))
	}

	if i, ok := r.lookup(base); ok {
		return i, true
	}
	// "from . import x": x may itself be a sibling module rather than a
	// symbol of the package entry file.
	if imp.Path == "" {
		for _, name := range imp.Names {
			orig, _ := splitAlias(name)
			if i, ok := r.lookup(path.Join(base, orig)); ok {
				return i, true
			}
		}
	}
	return 0, false
}

// resolveDotted resolves absolute python imports with a longest-match
// trailing trim: "a.b.c" may name the module a/b/c.py or the attribute c of
// module a/b.py.
func (r *resolver) resolveDotted(dotted string) (int, bool) {
	parts := strings.Split(dotted, ".")
	for k := len(parts); k >= 1; k-- {
		key := strings.Join(parts[:k], "/")
		if i, ok := r.lookup(key); ok {
			return i, true
		}
	}
	// src-layout projects prefix an extra top-level directory that does not
	// appear in import statements; retry under each scanned root dir. The
	// dirs are tried in scan order so the first-scanned candidate wins
	// when several roots provide the same module name.
	for k := len(parts); k >= 1; k-- {
		suffix := strings.Join(parts[:k], "/")
		for _, top := range r.tops {
			if i, ok := r.lookup(top + "/" + suffix); ok {
				return i, true
			}
		}
	}
	return 0, false
}

// resolveScriptRelative resolves "./x" and "../x" JS/TS specifiers.
func (r *resolver) resolveScriptRelative(mod *Module, spec string) (int, bool) {
	joined := path.Join(path.Dir(mod.ID), spec)
	joined = strings.TrimSuffix(joined, path.Ext(joined))
	return r.lookup(joined)
}

// resolveGoImport matches an import path against project package
// directories by longest path suffix.
func (r *resolver) resolveGoImport(from int, spec string) (int, bool) {
	parts := strings.Split(spec, "/")
	for start := 0; start < len(parts); start++ {
		suffix := strings.Join(parts[start:], "/")
		if mods, ok := r.dirs[suffix]; ok {
			for _, idx := range mods {
				if idx != from {
					return idx, true
				}
			}
		}
	}
	return 0, false
}

func isPackageEntry(id string) bool {
	base := path.Base(id)
	return strings.HasPrefix(base, "__init__.") || strings.HasPrefix(base, "index.")
}

func topLevel(dir string) string {
	if dir == "." || dir == "" {
		return ""
	}
	if i := strings.IndexByte(dir, '/'); i >= 0 {
		return dir[:i]
	}
	return dir
}
