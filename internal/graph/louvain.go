package graph

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"
)

// LouvainClusterer maximizes weighted modularity with gonum's Louvain
// implementation. The random source is reseeded on every call so equal
// inputs give equal partitions.
type LouvainClusterer struct {
	Seed uint64
}

// NewLouvainClusterer returns a LouvainClusterer seeded with seed.
func NewLouvainClusterer(seed uint64) *LouvainClusterer {
	return &LouvainClusterer{Seed: seed}
}

func (c *LouvainClusterer) Cluster(g *SentenceGraph, resolution float64) [][]int {
	edges := g.Edges()
	if len(edges) == 0 {
		return nil
	}
	wg := simple.NewWeightedUndirectedGraph(0, 0)
	for _, e := range edges {
		wg.SetWeightedEdge(wg.NewWeightedEdge(simple.Node(e.I), simple.Node(e.J), e.Weight))
	}
	reduced := community.Modularize(wg, resolution, rand.NewSource(c.Seed))

	var out [][]int
	for _, members := range reduced.Communities() {
		ids := make([]int, 0, len(members))
		for _, n := range members {
			ids = append(ids, int(n.ID()))
		}
		out = append(out, ids)
	}
	return normalize(out)
}
