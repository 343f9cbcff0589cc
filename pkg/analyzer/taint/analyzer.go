// Package taint tracks untrusted data from source patterns to dangerous
// sinks across module boundaries, using the resolved module graph for
// call-edge binding.
package taint

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Zeeeepa/scalpel/pkg/graph"
	"github.com/Zeeeepa/scalpel/pkg/parser"
)

// Analyzer scans a module graph for source-to-sink flows.
type Analyzer struct {
	maxDepth    int
	maxModules  int
	signatures  *SignatureSet
	entryPoints map[string]bool // "module:function" restriction; empty = auto-detect
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithMaxDepth bounds cross-function call hops (default 4).
func WithMaxDepth(n int) Option {
	return func(a *Analyzer) { a.maxDepth = n }
}

// WithMaxModules bounds distinct modules touched per scan (0 = no limit).
func WithMaxModules(n int) Option {
	return func(a *Analyzer) { a.maxModules = n }
}

// WithSignatures replaces the embedded signature tables.
func WithSignatures(set *SignatureSet) Option {
	return func(a *Analyzer) { a.signatures = set }
}

// WithEntryPoints restricts source detection to the given "module:function"
// locations instead of auto-detecting across the whole graph.
func WithEntryPoints(entries []string) Option {
	return func(a *Analyzer) {
		a.entryPoints = make(map[string]bool, len(entries))
		for _, e := range entries {
			a.entryPoints[e] = true
		}
	}
}

// New creates a taint analyzer with the embedded signature tables.
func New(opts ...Option) (*Analyzer, error) {
	a := &Analyzer{maxDepth: 4}
	for _, opt := range opts {
		opt(a)
	}
	if a.signatures == nil {
		set, err := DefaultSignatures()
		if err != nil {
			return nil, err
		}
		a.signatures = set
	}
	return a, nil
}

// flowState is one pending propagation step: a function holding tainted
// names at a call depth.
type flowState struct {
	module     int
	fn         string
	tainted    map[string]bool
	depth      int
	hops       []Hop
	sanitized  bool
	sanitizers []string
	branched   bool
	assignHops int
}

// sourceHit is one matched source call with its binding context.
type sourceHit struct {
	module  int
	fn      string
	call    parser.CallSite
	sig     Signature
	pattern string
}

// Analyze scans the whole graph for taint flows. The graph is read-only;
// each source is propagated with its own local state, so scans over one
// graph may run concurrently.
func (a *Analyzer) Analyze(ctx context.Context, g *graph.ModuleGraph) (*Result, error) {
	result := &Result{Cycles: graph.DetectCycles(g)}

	returners := a.taintedReturners(g)
	sources := a.findSources(g)

	touched := make(map[int]bool)
	var flows []Flow

scan:
	for _, src := range sources {
		states := []flowState{a.initialState(g, src)}
		visited := make(map[string]bool)

		for len(states) > 0 {
			if err := ctx.Err(); err != nil {
				result.Truncated = true
				result.TruncationReason = graph.TruncationTimeout
				break scan
			}

			st := states[0]
			states = states[1:]

			key := stateKey(st)
			if visited[key] {
				continue
			}
			visited[key] = true

			if a.maxModules > 0 && !touched[st.module] && len(touched) >= a.maxModules {
				result.Truncated = true
				result.TruncationReason = graph.TruncationModuleLimit
				continue
			}
			touched[st.module] = true
			if st.depth > result.DepthReached {
				result.DepthReached = st.depth
			}

			a.propagateLocal(g, &st, returners)
			flows = append(flows, a.matchSinks(g, src, st)...)

			if st.depth < a.maxDepth {
				states = append(states, a.expandCalls(g, st)...)
			}
		}
	}

	result.Flows = dedupeFlows(flows)
	for _, f := range result.Flows {
		if !f.Sanitized {
			result.VulnerableCount++
		}
	}
	result.ModulesAnalyzed = len(touched)
	return result, nil
}

// findSources locates every source occurrence in the graph, in module scan
// order. Sources surface either as calls (input(), os.getenv()) or as
// attribute reads on the right side of an assignment (req.query.id).
func (a *Analyzer) findSources(g *graph.ModuleGraph) []sourceHit {
	var hits []sourceHit
	seen := make(map[string]bool)
	add := func(h sourceHit) {
		key := fmt.Sprintf("%d:%s:%d:%s", h.module, h.fn, h.call.Line, h.sig.ID)
		if !seen[key] {
			seen[key] = true
			hits = append(hits, h)
		}
	}

	for i, mod := range g.Modules {
		sigs := a.signatures.ForLanguage(mod.Language)
		if len(sigs.Sources) == 0 {
			continue
		}
		for _, call := range mod.Calls {
			if len(a.entryPoints) > 0 && !a.entryPoints[mod.ID+":"+call.Caller] {
				continue
			}
			if sig, pattern, ok := matchAny(call.Callee, sigs.Sources); ok {
				add(sourceHit{
					module:  i,
					fn:      call.Caller,
					call:    call,
					sig:     sig,
					pattern: pattern,
				})
			}
		}
		for _, as := range mod.Assignments {
			if len(a.entryPoints) > 0 && !a.entryPoints[mod.ID+":"+as.Caller] {
				continue
			}
			for _, sig := range sigs.Sources {
				for _, pattern := range sig.Patterns {
					if !referencesVar(as.Value, pattern) {
						continue
					}
					add(sourceHit{
						module: i,
						fn:     as.Caller,
						call: parser.CallSite{
							Callee:   pattern,
							Caller:   as.Caller,
							InBranch: as.InBranch,
							Line:     as.Line,
						},
						sig:     sig,
						pattern: pattern,
					})
				}
			}
		}
	}
	return hits
}

// taintedReturners marks functions whose body reads a source directly, so
// assignments from their return values can be tainted.
func (a *Analyzer) taintedReturners(g *graph.ModuleGraph) map[graph.SymbolRef]bool {
	out := make(map[graph.SymbolRef]bool)
	for i, mod := range g.Modules {
		sigs := a.signatures.ForLanguage(mod.Language)
		if len(sigs.Sources) == 0 {
			continue
		}
		for _, call := range mod.Calls {
			if call.Caller == "" {
				continue
			}
			if _, _, ok := matchAny(call.Callee, sigs.Sources); ok {
				if ref, found := g.ResolveSymbol(i, call.Caller); found {
					out[ref] = true
				}
			}
		}
	}
	return out
}

// initialState binds the source call's result to the variables assigned
// from it inside the enclosing function.
func (a *Analyzer) initialState(g *graph.ModuleGraph, src sourceHit) flowState {
	mod := g.Modules[src.module]
	st := flowState{
		module:  src.module,
		fn:      src.fn,
		tainted: make(map[string]bool),
		hops: []Hop{{
			Module:   mod.ID,
			Function: src.fn,
			Line:     src.call.Line,
		}},
	}
	for _, as := range mod.Assignments {
		if as.Caller != src.fn {
			continue
		}
		if referencesVar(as.Value, src.pattern) {
			st.tainted[varRoot(as.Target)] = true
			if as.InBranch {
				st.branched = true
			}
		}
	}
	if src.call.InBranch {
		st.branched = true
	}
	return st
}

// propagateLocal runs assignment propagation to a fixed point within the
// state's function, marking sanitizer passes along the way.
func (a *Analyzer) propagateLocal(g *graph.ModuleGraph, st *flowState, returners map[graph.SymbolRef]bool) {
	mod := g.Modules[st.module]
	sigs := a.signatures.ForLanguage(mod.Language)

	for pass := 0; pass <= len(mod.Assignments); pass++ {
		changed := false
		for _, as := range mod.Assignments {
			if as.Caller != st.fn {
				continue
			}
			target := varRoot(as.Target)
			if st.tainted[target] {
				continue
			}

			tainted := referencesAny(as.Value, st.tainted)
			if !tainted {
				// return-value propagation: x = helper(...) where helper
				// reads a source itself
				if head := calleeHead(as.Value); head != "" {
					if ref, ok := g.ResolveCall(st.module, head); ok && returners[ref] {
						tainted = true
						st.assignHops++
					}
				}
			}
			if !tainted {
				continue
			}

			if sig, _, ok := matchAny(calleeHead(as.Value), sigs.Sanitizers); ok {
				st.sanitized = true
				st.sanitizers = appendUnique(st.sanitizers, sig.ID)
			}
			st.tainted[target] = true
			st.assignHops++
			if as.InBranch {
				st.branched = true
			}
			changed = true
		}
		if !changed {
			break
		}
	}

	// sanitizer calls applied to tainted values without reassignment
	for _, call := range mod.Calls {
		if call.Caller != st.fn {
			continue
		}
		if !referencesAny(call.ArgText, st.tainted) {
			continue
		}
		if sig, _, ok := matchAny(call.Callee, sigs.Sanitizers); ok {
			st.sanitized = true
			st.sanitizers = appendUnique(st.sanitizers, sig.ID)
		}
	}
}

// matchSinks reports flows for every sink call in the state's function that
// consumes tainted data.
func (a *Analyzer) matchSinks(g *graph.ModuleGraph, src sourceHit, st flowState) []Flow {
	mod := g.Modules[st.module]
	sigs := a.signatures.ForLanguage(mod.Language)

	var flows []Flow
	for _, call := range mod.Calls {
		if call.Caller != st.fn {
			continue
		}
		sig, _, ok := matchAny(call.Callee, sigs.Sinks)
		if !ok {
			continue
		}

		reached := referencesAny(call.ArgText, st.tainted)
		if !reached && st.depth == 0 {
			// direct use: sink(source())
			reached = referencesVar(call.ArgText, src.pattern)
		}
		if !reached {
			continue
		}
		// a source call is not its own sink
		if call.Line == src.call.Line && call.Callee == src.call.Callee {
			continue
		}

		srcMod := g.Modules[src.module]
		flow := Flow{
			Source: Endpoint{
				Module:    srcMod.ID,
				Function:  src.fn,
				Callee:    src.call.Callee,
				Signature: src.sig.ID,
				Line:      src.call.Line,
			},
			Sink: Endpoint{
				Module:    mod.ID,
				Function:  st.fn,
				Callee:    call.Callee,
				Signature: sig.ID,
				Line:      call.Line,
			},
			CWE:        sig.CWE,
			Hops:       append(append([]Hop(nil), st.hops...), Hop{Module: mod.ID, Function: st.fn, Line: call.Line}),
			Sanitized:  st.sanitized,
			Sanitizers: append([]string(nil), st.sanitizers...),
			Confidence: a.confidence(st, call),
		}
		flows = append(flows, flow)
	}
	return flows
}

// expandCalls carries taint into called project functions by mapping
// tainted argument positions onto parameter names.
func (a *Analyzer) expandCalls(g *graph.ModuleGraph, st flowState) []flowState {
	mod := g.Modules[st.module]

	var next []flowState
	for _, call := range mod.Calls {
		if call.Caller != st.fn {
			continue
		}
		if !referencesAny(call.ArgText, st.tainted) {
			continue
		}
		ref, ok := g.ResolveCall(st.module, call.Callee)
		if !ok {
			continue
		}
		callee := g.Modules[ref.Module].Symbols[ref.Index]
		if callee.Kind != parser.KindFunction && callee.Kind != parser.KindMethod {
			continue
		}

		taintedParams := make(map[string]bool)
		args := splitArgs(call.ArgText)
		for i, arg := range args {
			if i >= len(callee.Params) {
				break
			}
			if referencesAny(arg, st.tainted) {
				taintedParams[callee.Params[i]] = true
			}
		}
		if len(taintedParams) == 0 {
			continue
		}

		next = append(next, flowState{
			module:     ref.Module,
			fn:         callee.Name,
			tainted:    taintedParams,
			depth:      st.depth + 1,
			hops:       append(append([]Hop(nil), st.hops...), Hop{Module: mod.ID, Function: st.fn, Line: call.Line}),
			sanitized:  st.sanitized,
			sanitizers: append([]string(nil), st.sanitizers...),
			branched:   st.branched || call.InBranch,
			assignHops: st.assignHops,
		})
	}
	return next
}

// confidence scores a flow: base 0.5, +0.2 for a direct assignment chain,
// +0.2 for no control-flow divergence, -0.1 when sanitized, clamped to
// [0,1].
func (a *Analyzer) confidence(st flowState, sink parser.CallSite) float64 {
	c := 0.5
	if st.depth == 0 && st.assignHops <= 1 {
		c += 0.2
	}
	if !st.branched && !sink.InBranch {
		c += 0.2
	}
	if st.sanitized {
		c -= 0.1
	}
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}

// dedupeFlows merges flows sharing a (source, sink) location pair, keeping
// the highest confidence and the union of sanitizer evidence, then sorts
// deterministically.
func dedupeFlows(flows []Flow) []Flow {
	type locKey struct {
		srcModule string
		srcLine   uint32
		sinkMod   string
		sinkLine  uint32
	}
	merged := make(map[locKey]*Flow)
	var order []locKey

	for _, f := range flows {
		k := locKey{f.Source.Module, f.Source.Line, f.Sink.Module, f.Sink.Line}
		existing, ok := merged[k]
		if !ok {
			copied := f
			merged[k] = &copied
			order = append(order, k)
			continue
		}
		if f.Confidence > existing.Confidence {
			existing.Confidence = f.Confidence
			existing.Hops = f.Hops
		}
		for _, s := range f.Sanitizers {
			existing.Sanitizers = appendUnique(existing.Sanitizers, s)
		}
		existing.Sanitized = existing.Sanitized || f.Sanitized
	}

	out := make([]Flow, 0, len(order))
	for _, k := range order {
		out = append(out, *merged[k])
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Source.Module != b.Source.Module {
			return a.Source.Module < b.Source.Module
		}
		if a.Source.Line != b.Source.Line {
			return a.Source.Line < b.Source.Line
		}
		if a.Sink.Module != b.Sink.Module {
			return a.Sink.Module < b.Sink.Module
		}
		return a.Sink.Line < b.Sink.Line
	})
	return out
}

func stateKey(st flowState) string {
	names := make([]string, 0, len(st.tainted))
	for n := range st.tainted {
		names = append(names, n)
	}
	sort.Strings(names)
	return fmt.Sprintf("%d:%s:%s:%t", st.module, st.fn, strings.Join(names, ","), st.sanitized)
}

// varRoot strips attribute and index suffixes from an assignment target.
func varRoot(target string) string {
	for i := 0; i < len(target); i++ {
		switch target[i] {
		case '.', '[', '(':
			return target[:i]
		}
	}
	return target
}

// calleeHead extracts the callee expression from a flattened call value,
// e.g. "helper(x,1)" yields "helper".
func calleeHead(value string) string {
	i := strings.IndexByte(value, '(')
	if i <= 0 {
		return ""
	}
	return value[:i]
}

// referencesAny reports whether the expression mentions any of the names as
// a whole identifier.
func referencesAny(expr string, names map[string]bool) bool {
	for name := range names {
		if referencesVar(expr, name) {
			return true
		}
	}
	return false
}

func referencesVar(expr, name string) bool {
	if name == "" {
		return false
	}
	for start := 0; ; {
		i := strings.Index(expr[start:], name)
		if i < 0 {
			return false
		}
		i += start
		before := i == 0 || !isIdentByte(expr[i-1])
		afterIdx := i + len(name)
		after := afterIdx >= len(expr) || !isIdentByte(expr[afterIdx])
		if before && after {
			return true
		}
		start = i + 1
	}
}

func isIdentByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

// splitArgs splits a flattened argument list "(a,f(b),c)" into top-level
// argument expressions.
func splitArgs(argText string) []string {
	s := strings.TrimSpace(argText)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = s[1 : len(s)-1]
	}
	if s == "" {
		return nil
	}

	var args []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, s[start:i])
				start = i + 1
			}
		}
	}
	args = append(args, s[start:])
	return args
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
