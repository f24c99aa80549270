package contracts

import (
	"sort"

	"github.com/codewithboateng/archlint/internal/ir"
)

// DetectCycles runs a depth-first search with an explicit recursion stack over
// the directed graph and returns every distinct cycle. The source schema only
// checked mutual pairs (A->B plus B->A); the DFS is a strict superset and also
// catches 3+-node loops. Self-loops never reach the graph (Build reports them
// separately), so every cycle here has length >= 2.
func (g *Graph) DetectCycles() []ir.Cycle {
	const (
		white = 0 // unvisited
		gray  = 1 // on stack
		black = 2 // done
	)
	color := map[string]int{}
	var stack []string
	seen := map[string]bool{} // canonical cycle keys
	var cycles []ir.Cycle

	var visit func(n string)
	visit = func(n string) {
		color[n] = gray
		stack = append(stack, n)
		for _, next := range g.adj[n] {
			switch color[next] {
			case white:
				visit(next)
			case gray:
				// Closing edge: the cycle is the stack suffix from next to n.
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == next {
						cyc := canonicalize(append([]string(nil), stack[i:]...))
						key := cycleKey(cyc)
						if !seen[key] {
							seen[key] = true
							cycles = append(cycles, ir.Cycle{
								Modules:     cyc,
								Connections: g.connectionIDs(cyc),
							})
						}
						break
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
	}

	for _, n := range g.Nodes() {
		if color[n] == white {
			visit(n)
		}
	}

	sort.Slice(cycles, func(i, j int) bool {
		return cycleKey(cycles[i].Modules) < cycleKey(cycles[j].Modules)
	})
	return cycles
}

// canonicalize rotates a cycle so its lexicographically smallest module comes
// first, making equal cycles found from different entry points comparable.
func canonicalize(cyc []string) []string {
	if len(cyc) == 0 {
		return cyc
	}
	min := 0
	for i := 1; i < len(cyc); i++ {
		if cyc[i] < cyc[min] {
			min = i
		}
	}
	out := make([]string, 0, len(cyc))
	out = append(out, cyc[min:]...)
	out = append(out, cyc[:min]...)
	return out
}

func cycleKey(cyc []string) string {
	key := ""
	for _, m := range cyc {
		key += m + "|"
	}
	return key
}
