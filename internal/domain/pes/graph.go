package pes

import (
	"github.com/turtacn/mechstereo/internal/domain/reaction"
)

// Graph is the PES graph of one formula bucket, keyed by stereo-free reaction
// key.  It is built once and only read afterwards.
type Graph struct {
	Formula string
	// Disconnected lists the keys whose adjacency is empty.
	Disconnected []string

	order []string
	nodes map[string]reaction.Reaction
	adj   map[string][]string
}

func newGraph(formula string) *Graph {
	return &Graph{
		Formula: formula,
		nodes:   make(map[string]reaction.Reaction),
		adj:     make(map[string][]string),
	}
}

func (g *Graph) add(r reaction.Reaction) {
	k := r.Key()
	if _, ok := g.nodes[k]; ok {
		return
	}
	g.nodes[k] = r
	g.order = append(g.order, k)
}

// Keys returns every reaction key in bucket order.
func (g *Graph) Keys() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Len returns the number of distinct stereo-free reactions.
func (g *Graph) Len() int { return len(g.order) }

// Reaction returns the stereo-free reaction stored under key.
func (g *Graph) Reaction(key string) (reaction.Reaction, bool) {
	r, ok := g.nodes[key]
	return r, ok
}

// Adjacent returns the keys adjacent to key.  The result is empty, not nil,
// for a known disconnected key.
func (g *Graph) Adjacent(key string) []string {
	return g.adj[key]
}

// Components partitions the graph into connected components.  Each walk
// starts at the first unassigned key in bucket order.
func (g *Graph) Components() []Component {
	visited := make(map[string]bool, len(g.order))
	var out []Component
	for _, root := range g.order {
		if visited[root] {
			continue
		}
		comp := Component{Formula: g.Formula, Index: len(out)}
		for _, k := range g.walk(root, nil, visited) {
			comp.Members = append(comp.Members, g.nodes[k])
		}
		out = append(out, comp)
	}
	return out
}

// Traverse visits keys depth-first along PES edges, never leaving the set
// keys.  Roots are taken in the order of keys, so every key is returned
// exactly once.
func (g *Graph) Traverse(keys []string) []string {
	allowed := make(map[string]bool, len(keys))
	for _, k := range keys {
		allowed[k] = true
	}
	visited := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, root := range keys {
		if visited[root] {
			continue
		}
		out = append(out, g.walk(root, allowed, visited)...)
	}
	return out
}

// walk is an iterative pre-order DFS from root.  Neighbors are pushed in
// reverse so they pop in adjacency order.  A nil allowed set admits every key.
func (g *Graph) walk(root string, allowed, visited map[string]bool) []string {
	var out []string
	stack := []string{root}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[k] {
			continue
		}
		visited[k] = true
		out = append(out, k)

		adj := g.adj[k]
		for i := len(adj) - 1; i >= 0; i-- {
			n := adj[i]
			if visited[n] || (allowed != nil && !allowed[n]) {
				continue
			}
			stack = append(stack, n)
		}
	}
	return out
}
