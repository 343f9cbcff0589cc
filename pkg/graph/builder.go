package graph

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/Zeeeepa/scalpel/internal/fileproc"
	"github.com/Zeeeepa/scalpel/pkg/parser"
)

// BuildResult is the outcome of one graph construction. Partial results
// always carry an explicit truncation reason.
type BuildResult struct {
	Graph            *ModuleGraph       `json:"-"`
	Cycles           []Cycle            `json:"cycles,omitempty"`
	Unresolved       []UnresolvedImport `json:"unresolved_imports,omitempty"`
	ParseErrors      []ParseError       `json:"parse_errors,omitempty"`
	ModulesScanned   int                `json:"modules_scanned"`
	Truncated        bool               `json:"truncated"`
	TruncationReason TruncationReason   `json:"truncation_reason,omitempty"`
}

// Builder constructs a ModuleGraph from a project directory.
type Builder struct {
	maxModules int
	timeout    time.Duration
	workers    int
	fileFilter func(string) bool
	onProgress func()
}

// Option is a functional option for configuring Builder.
type Option func(*Builder)

// WithMaxModules caps the number of files scanned (0 = no limit). The cap
// is applied to the lexicographically sorted file list so repeated runs on
// unchanged input truncate at the same boundary.
func WithMaxModules(n int) Option {
	return func(b *Builder) { b.maxModules = n }
}

// WithTimeout bounds the wall-clock build time (0 = no limit).
func WithTimeout(d time.Duration) Option {
	return func(b *Builder) { b.timeout = d }
}

// WithWorkers sets the parse worker count (0 = 2x NumCPU).
func WithWorkers(n int) Option {
	return func(b *Builder) { b.workers = n }
}

// WithFileFilter restricts the scan to files the filter accepts.
func WithFileFilter(filter func(string) bool) Option {
	return func(b *Builder) { b.fileFilter = filter }
}

// WithProgress installs a callback invoked once per parsed file.
func WithProgress(fn func()) Option {
	return func(b *Builder) { b.onProgress = fn }
}

// NewBuilder creates a graph builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// parsedFile is the per-file parse payload collected by the worker pool.
type parsedFile struct {
	info        *parser.FileInfo
	lang        parser.Language
	fingerprint string
}

// Build scans root, parses every supported file, and resolves imports into
// a module graph. Files that fail to parse are recorded and skipped, never
// fatal. The returned graph is immutable.
func (b *Builder) Build(ctx context.Context, root string, files []string) (*BuildResult, error) {
	st, err := os.Stat(root)
	if err != nil || !st.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, root)
	}

	// The caller's slice stays untouched; sorting and filtering happen on
	// a private copy.
	files = append([]string(nil), files...)
	sort.Strings(files)
	if b.fileFilter != nil {
		kept := files[:0]
		for _, f := range files {
			if b.fileFilter(f) {
				kept = append(kept, f)
			}
		}
		files = kept
	}

	result := &BuildResult{}
	if b.maxModules > 0 && len(files) > b.maxModules {
		files = files[:b.maxModules]
		result.Truncated = true
		result.TruncationReason = TruncationModuleLimit
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	parsed := fileproc.MapOrdered(ctx, files, b.workers, func(p *parser.Parser, path string) (parsedFile, error) {
		content, err := os.ReadFile(path)
		if err != nil {
			return parsedFile{}, err
		}
		sum := blake3.Sum256(content)
		info, err := p.Extract(content, path)
		if err != nil {
			return parsedFile{}, err
		}
		if b.onProgress != nil {
			b.onProgress()
		}
		return parsedFile{
			info:        info,
			lang:        parser.DetectLanguage(path),
			fingerprint: hex.EncodeToString(sum[:]),
		}, nil
	})

	g := &ModuleGraph{index: make(map[string]int, len(files))}
	for i, path := range files {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		id := filepath.ToSlash(rel)

		pf := parsed[i]
		if pf.Err != nil {
			if errors.Is(pf.Err, context.DeadlineExceeded) || errors.Is(pf.Err, context.Canceled) {
				result.Truncated = true
				result.TruncationReason = TruncationTimeout
				continue
			}
			result.ParseErrors = append(result.ParseErrors, ParseError{Path: id, Err: pf.Err.Error()})
			mod := &Module{ID: id, AbsPath: path, Language: parser.DetectLanguage(path), hash: HashID(id)}
			g.index[id] = len(g.Modules)
			g.Modules = append(g.Modules, mod)
			continue
		}

		mod := &Module{
			ID:          id,
			AbsPath:     path,
			Language:    pf.Value.lang,
			Symbols:     pf.Value.info.Symbols,
			Imports:     pf.Value.info.Imports,
			Calls:       pf.Value.info.Calls,
			Assignments: pf.Value.info.Assignments,
			Exports:     pf.Value.info.Exports,
			Fingerprint: pf.Value.fingerprint,
			ParseOK:     true,
			hash:        HashID(id),
		}
		g.index[id] = len(g.Modules)
		g.Modules = append(g.Modules, mod)
	}
	result.ModulesScanned = len(g.Modules)

	res := newResolver(g)
	for i, mod := range g.Modules {
		for _, imp := range mod.Imports {
			edge, ok := res.resolve(i, imp)
			if !ok {
				result.Unresolved = append(result.Unresolved, UnresolvedImport{
					Module: mod.ID,
					Path:   imp.Path,
					Line:   imp.Line,
				})
				continue
			}
			if edge.Wildcard {
				edge.Names = expandWildcard(g.Modules[edge.To])
			}
			g.Edges = append(g.Edges, edge)
		}
	}

	g.freeze()
	result.Graph = g
	result.Cycles = DetectCycles(g)
	return result, nil
}

// expandWildcard returns the symbol set a wildcard import brings in: the
// module's declared export list when present, else every exported symbol.
func expandWildcard(target *Module) []string {
	if target == nil {
		return nil
	}
	if target.Exports != nil {
		return append([]string(nil), target.Exports...)
	}
	var names []string
	seen := make(map[string]bool)
	for _, s := range target.Symbols {
		if s.Exported && s.Kind != parser.KindMethod && !seen[s.Name] {
			names = append(names, s.Name)
			seen[s.Name] = true
		}
	}
	return names
}

// ResolveSymbol follows re-export and alias chains from a module to the
// deepest origin of a named symbol. The empty ok return means the name has
// no known origin inside the project graph. The walk uses an explicit
// stack so pathological chain depth cannot exhaust goroutine stacks, and
// the visited set terminates cyclic re-exports.
func (g *ModuleGraph) ResolveSymbol(module int, name string) (SymbolRef, bool) {
	type frame struct {
		mod  int
		name string
	}
	visited := make(map[frame]bool)
	stack := []frame{{module, name}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[f] {
			continue
		}
		visited[f] = true

		// A local definition is the origin.
		m := g.Modules[f.mod]
		localDef := -1
		for idx, s := range m.Symbols {
			if s.Name == f.name {
				localDef = idx
				break
			}
		}
		if localDef >= 0 {
			return SymbolRef{Module: f.mod, Index: localDef}, true
		}

		// Otherwise the name was imported: queue the next hop of every
		// matching re-export/alias chain. Pushing in reverse keeps the
		// first matching edge first in exploration order.
		var next []frame
		for _, e := range g.Edges {
			if e.From != f.mod {
				continue
			}
			for _, imported := range e.Names {
				orig, alias := splitAlias(imported)
				if alias == f.name || (alias == "" && orig == f.name) {
					next = append(next, frame{e.To, orig})
				}
			}
			if e.Wildcard && e.Alias == "" && defines(g.Modules[e.To], f.name) {
				next = append(next, frame{e.To, f.name})
			}
		}
		for i := len(next) - 1; i >= 0; i-- {
			stack = append(stack, next[i])
		}
	}
	return SymbolRef{}, false
}

// splitAlias decomposes "orig as alias" import name entries.
func splitAlias(name string) (orig, alias string) {
	if i := strings.Index(name, " as "); i >= 0 {
		return name[:i], name[i+4:]
	}
	return name, ""
}

func defines(m *Module, name string) bool {
	for _, s := range m.Symbols {
		if s.Name == name {
			return true
		}
	}
	return false
}
