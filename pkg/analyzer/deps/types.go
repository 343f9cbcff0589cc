package deps

import (
	"github.com/Zeeeepa/scalpel/pkg/graph"
	"github.com/Zeeeepa/scalpel/pkg/parser"
)

// Record is one symbol reached by the traversal.
type Record struct {
	Symbol        string            `json:"symbol" toon:"symbol"`
	Kind          parser.SymbolKind `json:"kind" toon:"kind"`
	Class         string            `json:"class,omitempty" toon:"class,omitempty"`
	Module        string            `json:"module" toon:"module"`
	StartLine     uint32            `json:"start_line" toon:"start_line"`
	EndLine       uint32            `json:"end_line" toon:"end_line"`
	Depth         int               `json:"depth" toon:"depth"`
	Confidence    float64           `json:"confidence" toon:"confidence"`
	LowConfidence bool              `json:"low_confidence,omitempty" toon:"low_confidence,omitempty"`
}

// UnresolvedRef is a name the traversal could not bind to a project symbol.
type UnresolvedRef struct {
	Module string `json:"module" toon:"module"`
	Name   string `json:"name" toon:"name"`
	Line   uint32 `json:"line,omitempty" toon:"line,omitempty"`
}

// Result is the full outcome of one dependency traversal.
type Result struct {
	Records            []Record               `json:"dependencies" toon:"dependencies"`
	Unresolved         []UnresolvedRef        `json:"unresolved,omitempty" toon:"unresolved,omitempty"`
	Warnings           []string               `json:"warnings,omitempty" toon:"warnings,omitempty"`
	ModulesAnalyzed    int                    `json:"modules_analyzed" toon:"modules_analyzed"`
	DepthReached       int                    `json:"depth_reached" toon:"depth_reached"`
	LowConfidenceCount int                    `json:"low_confidence_count" toon:"low_confidence_count"`
	Truncated          bool                   `json:"truncated" toon:"truncated"`
	TruncationReason   graph.TruncationReason `json:"truncation_reason,omitempty" toon:"truncation_reason,omitempty"`
}

// LowConfidenceThreshold flags records whose decayed confidence falls below
// it. Flagged records stay in the output.
const LowConfidenceThreshold = 0.5
