package analysis

// stronglyConnected returns the strongly connected components of the graph
// as lists of node numbers, using Kosaraju's two passes. Both passes use an
// explicit stack and a visited slice owned by the call, so deep graphs do not
// grow the goroutine stack.
func stronglyConnected(fwd, rev [][]int) [][]int {
	n := len(fwd)
	order := make([]int, 0, n)
	visited := make([]bool, n)

	type frame struct {
		node int
		next int // next adjacency position to explore
	}

	// Pass 1: record nodes in DFS finishing order over forward edges.
	for root := 0; root < n; root++ {
		if visited[root] {
			continue
		}
		visited[root] = true
		stack := []frame{{node: root}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(fwd[top.node]) {
				succ := fwd[top.node][top.next]
				top.next++
				if !visited[succ] {
					visited[succ] = true
					stack = append(stack, frame{node: succ})
				}
				continue
			}
			order = append(order, top.node)
			stack = stack[:len(stack)-1]
		}
	}

	// Pass 2: consume the finishing order in reverse over reversed edges.
	assigned := make([]bool, n)
	var comps [][]int
	for i := len(order) - 1; i >= 0; i-- {
		root := order[i]
		if assigned[root] {
			continue
		}
		assigned[root] = true
		comp := []int{root}
		stack := []int{root}
		for len(stack) > 0 {
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, pred := range rev[node] {
				if !assigned[pred] {
					assigned[pred] = true
					comp = append(comp, pred)
					stack = append(stack, pred)
				}
			}
		}
		comps = append(comps, comp)
	}
	return comps
}
