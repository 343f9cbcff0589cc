// Package graph builds and exposes the whole-project module graph: one
// Module per parsed source file, directed import edges between them, and
// stable integer ids suitable for flat-map traversal.
package graph

import (
	"errors"

	"github.com/cespare/xxhash/v2"

	"github.com/Zeeeepa/scalpel/pkg/parser"
)

var (
	// ErrProjectNotFound indicates the project root path is invalid.
	ErrProjectNotFound = errors.New("project root not found")

	// ErrTargetNotFound indicates the requested module is not in the graph.
	ErrTargetNotFound = errors.New("target module not found")

	// ErrSymbolNotFound indicates no symbol matched the requested name/kind.
	ErrSymbolNotFound = errors.New("symbol not found")
)

// TruncationReason states why a result is partial.
type TruncationReason string

const (
	TruncationNone        TruncationReason = ""
	TruncationTimeout     TruncationReason = "timeout"
	TruncationModuleLimit TruncationReason = "module_limit"
	TruncationDepthLimit  TruncationReason = "depth_limit"
	TruncationNodeLimit   TruncationReason = "node_limit"
)

// Module is one parsed source file. Immutable once the graph is built.
type Module struct {
	ID          string `json:"id"` // slash-separated path relative to the project root
	AbsPath     string `json:"-"`
	Language    parser.Language `json:"language"`
	Symbols     []parser.SymbolInfo
	Imports     []parser.ImportInfo
	Calls       []parser.CallSite
	Assignments []parser.Assignment
	Exports     []string // declared export list, nil when absent
	Fingerprint string   `json:"fingerprint,omitempty"` // blake3 content hash
	ParseOK     bool     `json:"parse_ok"`

	hash       uint64
	symbolBase uint32
}

// Hash returns the stable xxhash id of the module path.
func (m *Module) Hash() uint64 { return m.hash }

// ImportEdge is one resolved import statement. Duplicate edges between the
// same module pair are preserved for audit; traversal adjacency is deduped.
type ImportEdge struct {
	From     int      `json:"from"`
	To       int      `json:"to"`
	Names    []string `json:"names,omitempty"`
	Alias    string   `json:"alias,omitempty"`
	Wildcard bool     `json:"wildcard,omitempty"`
	Relative bool     `json:"relative,omitempty"`
	ReExport bool     `json:"reexport,omitempty"`
	Line     uint32   `json:"line"`
}

// UnresolvedImport is an import statement that matched no project module.
type UnresolvedImport struct {
	Module string `json:"module"`
	Path   string `json:"path"`
	Line   uint32 `json:"line"`
}

// ParseError records a per-file parse failure. Parse failures never abort a
// build; the file is carried with ParseOK=false.
type ParseError struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// Cycle is an ordered module-id sequence where the first and last entries
// are the same module.
type Cycle []string

// SymbolRef identifies a symbol by module index and position in the
// module's symbol table.
type SymbolRef struct {
	Module int
	Index  int
}

// ModuleGraph is the arena of modules plus forward and reverse adjacency.
// It is mutable only during Build; afterwards it is safe for unsynchronized
// concurrent reads.
type ModuleGraph struct {
	Modules []*Module
	Edges   []ImportEdge

	index      map[string]int // module ID -> arena index
	fwd        [][]int        // deduped, insertion-ordered
	rev        [][]int
	numSymbols uint32
}

// HashID returns the stable integer id for a module path.
func HashID(path string) uint64 {
	return xxhash.Sum64String(path)
}

// Len returns the number of modules.
func (g *ModuleGraph) Len() int { return len(g.Modules) }

// IndexOf returns the arena index for a module id.
func (g *ModuleGraph) IndexOf(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// ModuleByID returns the module with the given id.
func (g *ModuleGraph) ModuleByID(id string) (*Module, bool) {
	if i, ok := g.index[id]; ok {
		return g.Modules[i], true
	}
	return nil, false
}

// Forward returns the deduped outgoing neighbor indices of a module.
func (g *ModuleGraph) Forward(i int) []int { return g.fwd[i] }

// Reverse returns the deduped incoming neighbor indices of a module.
func (g *ModuleGraph) Reverse(i int) []int { return g.rev[i] }

// FanOut returns the number of distinct modules a module imports.
func (g *ModuleGraph) FanOut(i int) int { return len(g.fwd[i]) }

// FanIn returns the number of distinct modules importing a module.
func (g *ModuleGraph) FanIn(i int) int { return len(g.rev[i]) }

// NumSymbols returns the total symbol count across all modules.
func (g *ModuleGraph) NumSymbols() uint32 { return g.numSymbols }

// SymbolID packs a symbol reference into a graph-wide dense uint32,
// suitable for bitmap visited sets.
func (g *ModuleGraph) SymbolID(ref SymbolRef) uint32 {
	return g.Modules[ref.Module].symbolBase + uint32(ref.Index)
}

// EdgesFrom returns all raw edges leaving a module, duplicates included.
func (g *ModuleGraph) EdgesFrom(i int) []ImportEdge {
	var out []ImportEdge
	for _, e := range g.Edges {
		if e.From == i {
			out = append(out, e)
		}
	}
	return out
}

// freeze computes adjacency lists and symbol id offsets. Called once at the
// end of Build; the graph is read-only afterwards.
func (g *ModuleGraph) freeze() {
	n := len(g.Modules)
	g.fwd = make([][]int, n)
	g.rev = make([][]int, n)

	type pair struct{ from, to int }
	seen := make(map[pair]bool, len(g.Edges))
	for _, e := range g.Edges {
		p := pair{e.From, e.To}
		if seen[p] {
			continue
		}
		seen[p] = true
		g.fwd[e.From] = append(g.fwd[e.From], e.To)
		g.rev[e.To] = append(g.rev[e.To], e.From)
	}

	var base uint32
	for _, m := range g.Modules {
		m.symbolBase = base
		base += uint32(len(m.Symbols))
	}
	g.numSymbols = base
}
