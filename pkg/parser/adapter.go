package parser

// SymbolKind classifies a declared symbol.
type SymbolKind string

const (
	KindFunction SymbolKind = "function"
	KindClass    SymbolKind = "class"
	KindMethod   SymbolKind = "method"
	KindVariable SymbolKind = "variable"
)

// SymbolInfo is a declaration found in a single file.
type SymbolInfo struct {
	Name      string     `json:"name"`
	Kind      SymbolKind `json:"kind"`
	Class     string     `json:"class,omitempty"`  // enclosing class for methods
	Params    []string   `json:"params,omitempty"` // parameter names for functions and methods
	StartLine uint32     `json:"start_line"`
	EndLine   uint32     `json:"end_line"`
	Exported  bool       `json:"exported"`
}

// ImportInfo is a raw import statement before cross-file resolution.
type ImportInfo struct {
	Path     string   `json:"path"`            // module path as written
	Names    []string `json:"names,omitempty"` // imported symbol names; empty for whole-module imports
	Alias    string   `json:"alias,omitempty"`
	Wildcard bool     `json:"wildcard,omitempty"`
	Relative bool     `json:"relative,omitempty"`
	Dots     int      `json:"dots,omitempty"` // python relative level (1 = ".", 2 = "..")
	ReExport bool     `json:"reexport,omitempty"`
	Line     uint32   `json:"line"`
}

// CallSite is a call expression with its enclosing declaration.
type CallSite struct {
	Callee      string `json:"callee"` // flattened callee expression, e.g. "db.cursor.execute"
	Caller      string `json:"caller,omitempty"`
	CallerClass string `json:"caller_class,omitempty"`
	Args        int    `json:"args"`
	ArgText     string `json:"arg_text,omitempty"` // flattened argument list
	InBranch    bool   `json:"in_branch,omitempty"`
	Line        uint32 `json:"line"`
}

// Assignment records a simple "target = value expression" statement, used by
// taint propagation. Value holds the flattened right-hand expression text.
type Assignment struct {
	Target      string `json:"target"`
	Value       string `json:"value"`
	Caller      string `json:"caller,omitempty"`
	CallerClass string `json:"caller_class,omitempty"`
	InBranch    bool   `json:"in_branch,omitempty"`
	Line        uint32 `json:"line"`
}

// FileInfo is the uniform per-file model every adapter produces.
type FileInfo struct {
	Symbols     []SymbolInfo
	Imports     []ImportInfo
	Calls       []CallSite
	Assignments []Assignment
	Exports     []string // declared export list (__all__); nil when absent
}

// Adapter extracts the uniform file model for one language. The graph and
// traversal layers never branch on language outside this boundary.
type Adapter interface {
	Language() Language
	Extract(result *ParseResult) (*FileInfo, error)
}

// AdapterFor returns the adapter for a language.
func AdapterFor(lang Language) (Adapter, bool) {
	switch lang {
	case LangPython:
		return pythonAdapter{}, true
	case LangJavaScript, LangTypeScript, LangTSX:
		return scriptAdapter{lang: lang}, true
	case LangGo:
		return goAdapter{}, true
	default:
		return nil, false
	}
}

// IsPrivateName reports whether a name is private by underscore convention.
func IsPrivateName(name string) bool {
	return len(name) > 0 && name[0] == '_'
}
