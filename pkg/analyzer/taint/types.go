package taint

import (
	"github.com/Zeeeepa/scalpel/pkg/graph"
)

// Endpoint is a matched source or sink location.
type Endpoint struct {
	Module    string `json:"module" toon:"module"`
	Function  string `json:"function,omitempty" toon:"function,omitempty"`
	Callee    string `json:"callee" toon:"callee"`
	Signature string `json:"signature" toon:"signature"`
	Line      uint32 `json:"line" toon:"line"`
}

// Hop is one step of a flow's path through the project.
type Hop struct {
	Module   string `json:"module" toon:"module"`
	Function string `json:"function,omitempty" toon:"function,omitempty"`
	Line     uint32 `json:"line" toon:"line"`
}

// Flow is a taint path from a source to a sink. Sanitized flows are kept
// for audit and excluded only from vulnerable counts.
type Flow struct {
	Source     Endpoint `json:"source" toon:"source"`
	Sink       Endpoint `json:"sink" toon:"sink"`
	CWE        string   `json:"cwe" toon:"cwe"`
	Hops       []Hop    `json:"hops,omitempty" toon:"hops,omitempty"`
	Sanitized  bool     `json:"sanitized" toon:"sanitized"`
	Sanitizers []string `json:"sanitizers,omitempty" toon:"sanitizers,omitempty"`
	Confidence float64  `json:"confidence" toon:"confidence"`
}

// Result is the outcome of one taint scan.
type Result struct {
	Flows            []Flow                 `json:"taint_flows" toon:"taint_flows"`
	Cycles           []graph.Cycle          `json:"cycles,omitempty" toon:"cycles,omitempty"`
	VulnerableCount  int                    `json:"vulnerable_count" toon:"vulnerable_count"`
	ModulesAnalyzed  int                    `json:"modules_analyzed" toon:"modules_analyzed"`
	DepthReached     int                    `json:"depth_reached" toon:"depth_reached"`
	Truncated        bool                   `json:"truncated" toon:"truncated"`
	TruncationReason graph.TruncationReason `json:"truncation_reason,omitempty" toon:"truncation_reason,omitempty"`
}
