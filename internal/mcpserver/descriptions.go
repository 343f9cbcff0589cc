package mcpserver

// Tool descriptions with interpretation guidance for LLMs.
// Each description explains what the tool does, when to use it,
// how to interpret results, and key thresholds.

func describeDependencies() string {
	return `Traces the transitive dependencies of a function or class across file boundaries.

USE WHEN:
- Assembling the minimal context needed to edit a symbol safely
- Estimating the blast radius of a planned change
- Understanding how a function reaches code in other modules
- Checking which imports a symbol actually exercises

INTERPRETING RESULTS:
- Depth 0 is the target itself; each hop through a call multiplies confidence by the decay factor
- Confidence < 0.5 marks a record low-confidence; it is kept so you can judge it yourself
- Unresolved entries are names imported from project modules that matched no definition
- Warnings flag ambiguous references where several modules define the same name
- truncated=true with a truncation_reason means a budget was hit and results are partial

METRICS RETURNED:
- Per-dependency: symbol, kind, module, line span, depth, confidence
- Unresolved references: module, name, line
- Summary: modules_analyzed, depth_reached, low_confidence_count, truncated`
}

func describeTaint() string {
	return `Traces untrusted input from sources (stdin, HTTP parameters, environment) to dangerous sinks (SQL execution, shell commands, file writes) across modules.

USE WHEN:
- Auditing a codebase for injection vulnerabilities
- Checking whether user input reaches a sink without sanitization
- Prioritizing security fixes by flow confidence
- Verifying that a sanitizer actually covers a flow

INTERPRETING RESULTS:
- Each flow lists its source, sink, CWE id, and the hop chain between them
- sanitized=true means a recognized sanitizer intervened; the flow is reported but not counted vulnerable
- Confidence starts at 0.5, rises for direct and branch-free paths, falls past sanitizers
- vulnerable_count counts only unsanitized flows
- Flows are deduplicated per source/sink location pair, keeping the highest confidence

METRICS RETURNED:
- Per-flow: source, sink, cwe, hops, sanitizers, confidence, sanitized
- Cycles: import cycles found while walking the graph
- Summary: vulnerable_count, modules_analyzed, depth_reached, truncated`
}

func describeNeighborhood() string {
	return `Extracts the k-hop import neighborhood around a module, with fan-in and fan-out per node.

USE WHEN:
- Building editing context around a file for an LLM session
- Seeing which modules would notice a change to the center
- Exploring an unfamiliar area of a codebase hop by hop
- Bounding context size with max_nodes or a token budget

INTERPRETING RESULTS:
- Depth is the hop distance from the center; direction controls whether imports, importers, or both are followed
- Nodes failing the language or substring filter are excluded before expansion, so nothing is reached through them
- truncated=true with reason node_limit means the node cap cut the neighborhood short
- Edges are only reported between members of the neighborhood

METRICS RETURNED:
- Per-node: module id, language, depth, fan_in, fan_out
- Edges: from, to, confidence
- Summary: depth_reached, truncated, truncation_reason`
}

func describeCycles() string {
	return `Detects circular import chains between modules.

USE WHEN:
- Diagnosing import-order failures or initialization bugs
- Untangling modules before extracting a package
- Checking architectural layering rules
- Reviewing a dependency refactor

INTERPRETING RESULTS:
- Each cycle lists its members in import order, starting from the lexicographically smallest module id, with the first module repeated at the end
- A cycle is reported exactly once regardless of where the walk entered it
- Two-module cycles (a imports b, b imports a) are the most common and usually the easiest to break

METRICS RETURNED:
- Cycles: ordered module id lists
- modules_analyzed: modules scanned while building the graph`
}
