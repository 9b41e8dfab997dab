package graph

import "sort"

const (
	gainEpsilon      = 1e-12
	defaultMaxLevels = 32
)

// CPMClusterer optimizes the Constant Potts Model on the unweighted edge set
// with a Leiden-style loop: fast local moving, splitting every community into
// connected parts, then aggregating and repeating on the coarser graph.
// A node v joins community c when k(v,c) - resolution*size(v)*size(c) beats
// staying put. Results are deterministic for a given graph.
type CPMClusterer struct {
	// MaxLevels bounds the number of aggregation rounds. Zero means 32.
	MaxLevels int
}

// NewCPMClusterer returns a CPMClusterer with default limits.
func NewCPMClusterer() *CPMClusterer { return &CPMClusterer{} }

// level is one (possibly aggregated) graph in the multilevel loop.
type level struct {
	size []float64
	adj  []map[int]float64
}

func (c *CPMClusterer) Cluster(g *SentenceGraph, resolution float64) [][]int {
	nodes := g.Connected()
	if len(nodes) == 0 {
		return nil
	}
	local := make(map[int]int, len(nodes))
	for i, v := range nodes {
		local[v] = i
	}
	lv := &level{size: make([]float64, len(nodes)), adj: make([]map[int]float64, len(nodes))}
	for i, v := range nodes {
		lv.size[i] = 1
		lv.adj[i] = make(map[int]float64, g.Degree(v))
		for _, u := range g.Neighbors(v) {
			lv.adj[i][local[u]] = 1
		}
	}

	// member maps each original node to its node in the current level.
	member := make([]int, len(nodes))
	for i := range member {
		member[i] = i
	}
	comm := identity(len(nodes))

	maxLevels := c.MaxLevels
	if maxLevels <= 0 {
		maxLevels = defaultMaxLevels
	}
	for round := 0; round < maxLevels; round++ {
		lv.moveNodes(comm, resolution)
		if countDistinct(comm) == len(comm) {
			break
		}
		refined := lv.refine(comm)
		groups := countDistinct(refined)
		if groups == len(comm) {
			break
		}
		next := lv.aggregate(refined, groups)
		nextComm := make([]int, groups)
		for v, r := range refined {
			nextComm[r] = comm[v]
		}
		for i, m := range member {
			member[i] = refined[m]
		}
		lv, comm = next, relabel(nextComm)
	}

	byComm := map[int][]int{}
	for i, m := range member {
		byComm[comm[m]] = append(byComm[comm[m]], nodes[i])
	}
	out := make([][]int, 0, len(byComm))
	for _, members := range byComm {
		out = append(out, members)
	}
	return normalize(out)
}

// moveNodes runs fast local moving in place on comm.
func (lv *level) moveNodes(comm []int, gamma float64) {
	n := len(comm)
	tot := make([]float64, n)
	for v, c := range comm {
		tot[c] += lv.size[v]
	}
	queue := identity(n)
	queued := make([]bool, n)
	for i := range queued {
		queued[i] = true
	}

	weights := map[int]float64{}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		queued[v] = false

		cur := comm[v]
		tot[cur] -= lv.size[v]
		clear(weights)
		for u, w := range lv.adj[v] {
			weights[comm[u]] += w
		}

		best := cur
		bestGain := weights[cur] - gamma*lv.size[v]*tot[cur]
		cands := make([]int, 0, len(weights))
		for c := range weights {
			cands = append(cands, c)
		}
		sort.Ints(cands)
		for _, c := range cands {
			if gain := weights[c] - gamma*lv.size[v]*tot[c]; gain > bestGain+gainEpsilon {
				best, bestGain = c, gain
			}
		}
		if bestGain < -gainEpsilon && tot[cur] > 0 {
			best = emptyCommunity(tot)
		}

		tot[best] += lv.size[v]
		if best == cur {
			continue
		}
		comm[v] = best
		for _, u := range lv.neighbors(v) {
			if comm[u] != best && !queued[u] {
				queue = append(queue, u)
				queued[u] = true
			}
		}
	}
}

// refine splits every community into its connected parts. Refined ids are
// assigned in order of each part's smallest node.
func (lv *level) refine(comm []int) []int {
	n := len(comm)
	refined := make([]int, n)
	for i := range refined {
		refined[i] = -1
	}
	next := 0
	for s := 0; s < n; s++ {
		if refined[s] >= 0 {
			continue
		}
		refined[s] = next
		stack := []int{s}
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for u := range lv.adj[v] {
				if refined[u] < 0 && comm[u] == comm[s] {
					refined[u] = next
					stack = append(stack, u)
				}
			}
		}
		next++
	}
	return refined
}

// aggregate collapses each refined group into one node. Internal edges are
// dropped since they do not change any move gain.
func (lv *level) aggregate(refined []int, groups int) *level {
	next := &level{size: make([]float64, groups), adj: make([]map[int]float64, groups)}
	for i := range next.adj {
		next.adj[i] = map[int]float64{}
	}
	for v, r := range refined {
		next.size[r] += lv.size[v]
		for u, w := range lv.adj[v] {
			if ru := refined[u]; ru != r {
				next.adj[r][ru] += w
			}
		}
	}
	return next
}

// neighbors returns the neighbors of v in ascending order.
func (lv *level) neighbors(v int) []int {
	out := make([]int, 0, len(lv.adj[v]))
	for u := range lv.adj[v] {
		out = append(out, u)
	}
	sort.Ints(out)
	return out
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func countDistinct(xs []int) int {
	seen := make(map[int]struct{}, len(xs))
	for _, x := range xs {
		seen[x] = struct{}{}
	}
	return len(seen)
}

// relabel maps community ids onto 0..k-1 in order of first appearance.
func relabel(comm []int) []int {
	ids := map[int]int{}
	out := make([]int, len(comm))
	for i, c := range comm {
		id, ok := ids[c]
		if !ok {
			id = len(ids)
			ids[c] = id
		}
		out[i] = id
	}
	return out
}

func emptyCommunity(tot []float64) int {
	for c, t := range tot {
		if t <= 0 {
			return c
		}
	}
	return len(tot) - 1
}
