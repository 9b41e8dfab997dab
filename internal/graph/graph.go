// Package graph builds sentence similarity graphs and partitions them into
// communities.
package graph

import "sort"

// Edge connects sentences I < J with their cosine similarity.
type Edge struct {
	I, J   int
	Weight float64
}

// SentenceGraph has one node per sentence and an edge for every pair whose
// similarity reaches the build threshold.
type SentenceGraph struct {
	n     int
	edges []Edge
	adj   [][]int
}

// Build returns the graph over sim (an n×n similarity matrix) keeping pairs
// with similarity >= threshold. The diagonal is ignored.
func Build(sim [][]float64, threshold float64) *SentenceGraph {
	n := len(sim)
	g := &SentenceGraph{n: n, adj: make([][]int, n)}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n && j < len(sim[i]); j++ {
			if sim[i][j] >= threshold {
				g.edges = append(g.edges, Edge{I: i, J: j, Weight: sim[i][j]})
				g.adj[i] = append(g.adj[i], j)
				g.adj[j] = append(g.adj[j], i)
			}
		}
	}
	for i := range g.adj {
		sort.Ints(g.adj[i])
	}
	return g
}

// Len is the number of nodes.
func (g *SentenceGraph) Len() int { return g.n }

// Edges returns the edges ordered by (I, J).
func (g *SentenceGraph) Edges() []Edge { return g.edges }

// Neighbors returns the sorted neighbors of i.
func (g *SentenceGraph) Neighbors(i int) []int { return g.adj[i] }

// Degree returns the number of edges touching i.
func (g *SentenceGraph) Degree(i int) int { return len(g.adj[i]) }

// Connected returns, in ascending order, the nodes with at least one edge.
func (g *SentenceGraph) Connected() []int {
	var out []int
	for i, a := range g.adj {
		if len(a) > 0 {
			out = append(out, i)
		}
	}
	return out
}

// Clusterer partitions the connected nodes of a graph. Each returned
// community is sorted ascending; communities are disjoint and ordered by
// their smallest member. Nodes without edges are never returned.
type Clusterer interface {
	Cluster(g *SentenceGraph, resolution float64) [][]int
}

// normalize sorts members and orders communities by their first member.
func normalize(comms [][]int) [][]int {
	out := comms[:0]
	for _, c := range comms {
		if len(c) == 0 {
			continue
		}
		sort.Ints(c)
		out = append(out, c)
	}
	sort.Slice(out, func(a, b int) bool { return out[a][0] < out[b][0] })
	return out
}
