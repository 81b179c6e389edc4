package graph

import (
	"sort"

	"github.com/dagflow/dagflow/internal/block"
)

// topoSort runs Kahn's algorithm over edges, breaking ties between
// simultaneously-ready blocks by name so the order is deterministic
// across runs (the original "remove roots, repeat" traversal this is
// grounded on has no such tiebreak; dump/load needs a stable order).
// It returns the remaining blocks with unresolved incoming edges when a
// cycle exists, mirroring the reference implementation's
// (sorted, remaining) split.
func topoSort(edges []*edge) (sorted []*block.Block, remaining []*block.Block) {
	indeg := map[string]int{}
	blocks := map[string]*block.Block{}
	outgoing := map[string][]*block.Block{}

	for _, e := range edges {
		blocks[e.src.Name] = e.src
		blocks[e.dst.Name] = e.dst
		if _, ok := indeg[e.src.Name]; !ok {
			indeg[e.src.Name] = 0
		}
		indeg[e.dst.Name]++
		outgoing[e.src.Name] = append(outgoing[e.src.Name], e.dst)
	}

	var ready []*block.Block
	for name, b := range blocks {
		if indeg[name] == 0 {
			ready = append(ready, b)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].Name < ready[j].Name })

	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i].Name < ready[j].Name })
		b := ready[0]
		ready = ready[1:]
		sorted = append(sorted, b)
		delete(blocks, b.Name)

		for _, next := range outgoing[b.Name] {
			indeg[next.Name]--
			if indeg[next.Name] == 0 {
				ready = append(ready, next)
			}
		}
	}

	for _, b := range blocks {
		remaining = append(remaining, b)
	}
	sort.Slice(remaining, func(i, j int) bool { return remaining[i].Name < remaining[j].Name })
	return sorted, remaining
}

// hasCycle reports whether edges contains a cycle.
func hasCycle(edges []*edge) bool {
	_, remaining := topoSort(edges)
	return len(remaining) > 0
}

// weaklyConnected reports whether every block touched by edges reaches
// every other one, ignoring edge direction — a plain BFS over an
// adjacency map built from both endpoints of each edge.
func weaklyConnected(edges []*edge) bool {
	if len(edges) == 0 {
		return true
	}

	adj := map[string][]string{}
	for _, e := range edges {
		adj[e.src.Name] = append(adj[e.src.Name], e.dst.Name)
		adj[e.dst.Name] = append(adj[e.dst.Name], e.src.Name)
	}

	var start string
	for name := range adj {
		start = name
		break
	}

	visited := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, next := range adj[name] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	return len(visited) == len(adj)
}
