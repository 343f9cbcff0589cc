package graph

import (
	"sort"
	"strings"
)

// DetectCycles finds import cycles in the module graph. Each cycle is
// reported exactly once regardless of which member the traversal entered it
// through, as a path that starts and ends at the same module.
func DetectCycles(g *ModuleGraph) []Cycle {
	n := g.Len()
	const (
		white = 0 // unvisited
		gray  = 1 // on the current dfs path
		black = 2 // fully explored
	)
	state := make([]uint8, n)
	pathPos := make([]int, n) // index into path while gray

	var cycles []Cycle
	seen := make(map[string]struct{})

	type frame struct {
		node int
		next int // next adjacency index to explore
	}

	for start := 0; start < n; start++ {
		if state[start] != white {
			continue
		}
		stack := []frame{{node: start}}
		var dfsPath []int
		state[start] = gray
		pathPos[start] = 0
		dfsPath = append(dfsPath, start)

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			adj := g.Forward(f.node)
			if f.next < len(adj) {
				next := adj[f.next]
				f.next++
				switch state[next] {
				case white:
					state[next] = gray
					pathPos[next] = len(dfsPath)
					dfsPath = append(dfsPath, next)
					stack = append(stack, frame{node: next})
				case gray:
					cyc := extractCycle(g, dfsPath[pathPos[next]:])
					if key := cycleKey(cyc); key != "" {
						if _, dup := seen[key]; !dup {
							seen[key] = struct{}{}
							cycles = append(cycles, cyc)
						}
					}
				}
				continue
			}
			state[f.node] = black
			dfsPath = dfsPath[:len(dfsPath)-1]
			stack = stack[:len(stack)-1]
		}
	}

	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i][0] < cycles[j][0]
	})
	return cycles
}

// extractCycle copies the cycle members as module ids, rotated so the
// lexicographically smallest id leads, and closes the loop by repeating it.
func extractCycle(g *ModuleGraph, nodes []int) Cycle {
	if len(nodes) == 0 {
		return nil
	}
	min := 0
	for i := 1; i < len(nodes); i++ {
		if g.Modules[nodes[i]].ID < g.Modules[nodes[min]].ID {
			min = i
		}
	}
	cyc := make(Cycle, 0, len(nodes)+1)
	for i := 0; i < len(nodes); i++ {
		cyc = append(cyc, g.Modules[nodes[(min+i)%len(nodes)]].ID)
	}
	cyc = append(cyc, cyc[0])
	return cyc
}

func cycleKey(c Cycle) string {
	if len(c) < 2 {
		return ""
	}
	return strings.Join(c[:len(c)-1], "\x00")
}
