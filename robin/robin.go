// Package robin implements C3, the graph-theoretic outlier pruner: it builds
// a compatibility graph over candidate correspondences (edges connect pairs
// whose pairwise distance is preserved across source and target within a
// noise bound) and extracts a max-k-core or max-clique to cull inconsistent
// matches.
package robin

import (
	"context"
	"math"
	"sort"

	"go.viam.com/pointreg/corr"
	"go.viam.com/pointreg/logging"
	"go.viam.com/pointreg/pointcloud"
	"go.viam.com/pointreg/utils"
)

// Mode selects the pruning operator.
type Mode int

const (
	// None performs no graph pruning; C2's output passes through unchanged.
	None Mode = iota
	// MaxKCore extracts the largest non-empty k-core.
	MaxKCore
	// MaxClique extracts the maximum clique (exact, bounded by MaxCliqueVertices).
	MaxClique
)

// MaxCliqueVertices is the |V| threshold above which MaxClique falls back to
// MaxKCore, since exact max-clique is exponential in the worst case.
const MaxCliqueVertices = 1000

// Config holds C3's tunables.
type Config struct {
	Mode       Mode
	NoiseBound float64 // ε in the edge test.
}

// Graph is an undirected adjacency-list compatibility graph over
// correspondence-list indices.
type Graph struct {
	adjacency map[int][]int
	n         int
}

// Build constructs the compatibility graph over corrs: edge (a, b) exists
// iff the pairwise distance between a and b's source points matches their
// target points within 2*noiseBound, and a, b do not share a source or
// target index (one-to-one at the node level).
func Build(ctx context.Context, corrs []corr.Correspondence, S, T pointcloud.Cloud, noiseBound float64) *Graph {
	n := len(corrs)
	g := &Graph{adjacency: make(map[int][]int, n), n: n}
	if n == 0 {
		return g
	}

	results := make([][]int, n)

	before := func(int) {}
	groupWork := func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
		member := func(_, a int) {
			ca := corrs[a]
			ds := S[ca.I]
			dt := T[ca.J]
			neighbors := make([]int, 0)
			for b := 0; b < n; b++ {
				if b == a {
					continue
				}
				cb := corrs[b]
				if ca.I == cb.I || ca.J == cb.J {
					continue
				}
				sDist := ds.Sub(S[cb.I]).Norm()
				tDist := dt.Sub(T[cb.J]).Norm()
				if math.Abs(sDist-tDist) <= 2*noiseBound {
					neighbors = append(neighbors, b)
				}
			}
			results[a] = neighbors
		}
		return member, nil
	}
	_ = utils.GroupWorkParallel(ctx, n, before, groupWork)

	for a, neighbors := range results {
		sort.Ints(neighbors)
		g.adjacency[a] = neighbors
	}
	return g
}

// Degree returns the degree of vertex v.
func (g *Graph) Degree(v int) int {
	return len(g.adjacency[v])
}

// Neighbors returns the sorted neighbor list of vertex v.
func (g *Graph) Neighbors(v int) []int {
	return g.adjacency[v]
}

// NumVertices returns |V|.
func (g *Graph) NumVertices() int {
	return g.n
}

// Prune runs the configured pruning operator over corrs' compatibility
// graph and returns the correspondence subset induced by the surviving
// vertices, preserving input order.
func Prune(ctx context.Context, corrs []corr.Correspondence, S, T pointcloud.Cloud, cfg Config, logger logging.Logger) []corr.Correspondence {
	if cfg.Mode == None || len(corrs) == 0 {
		return corrs
	}
	g := Build(ctx, corrs, S, T, cfg.NoiseBound)

	var surviving []int
	switch cfg.Mode {
	case MaxClique:
		if g.NumVertices() <= MaxCliqueVertices {
			surviving = maxClique(g)
		} else {
			surviving = maxKCore(g)
		}
	case MaxKCore:
		surviving = maxKCore(g)
	default:
		surviving = allVertices(g.NumVertices())
	}

	sort.Ints(surviving)
	out := make([]corr.Correspondence, len(surviving))
	for i, v := range surviving {
		out[i] = corrs[v]
	}
	if logger != nil {
		logger.Debugw("robin: pruned correspondences", "before", len(corrs), "after", len(out))
	}
	return out
}

func allVertices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// maxKCore iteratively removes vertices of degree less than k, for
// increasing k, returning the vertex set of the largest k for which a
// non-empty core remains. Peeling rescans every vertex on each pass until no
// vertex of degree <= k is left; no bucket queue is used, so the running time
// is not linear in |E|.
func maxKCore(g *Graph) []int {
	n := g.NumVertices()
	if n == 0 {
		return nil
	}
	degree := make([]int, n)
	alive := make([]bool, n)
	for v := 0; v < n; v++ {
		degree[v] = g.Degree(v)
		alive[v] = true
	}

	removedAtCoreness := make([]int, n)
	currentK := 0
	remaining := n
	for remaining > 0 {
		// Find all vertices with degree <= currentK and peel them.
		progressed := true
		for progressed {
			progressed = false
			for v := 0; v < n; v++ {
				if alive[v] && degree[v] <= currentK {
					alive[v] = false
					removedAtCoreness[v] = currentK
					remaining--
					progressed = true
					for _, nb := range g.Neighbors(v) {
						if alive[nb] {
							degree[nb]--
						}
					}
				}
			}
		}
		if remaining == 0 {
			break
		}
		currentK++
	}

	maxCoreness := 0
	for v := 0; v < n; v++ {
		maxCoreness = utils.MaxInt(maxCoreness, removedAtCoreness[v])
	}
	out := make([]int, 0)
	for v := 0; v < n; v++ {
		if removedAtCoreness[v] == maxCoreness {
			out = append(out, v)
		}
	}
	return out
}

// maxClique performs exact branch-and-bound search for the maximum clique,
// only reachable when |V| <= MaxCliqueVertices.
func maxClique(g *Graph) []int {
	n := g.NumVertices()
	if n == 0 {
		return nil
	}
	neighborSets := make([]map[int]struct{}, n)
	for v := 0; v < n; v++ {
		neighborSets[v] = make(map[int]struct{}, len(g.Neighbors(v)))
		for _, nb := range g.Neighbors(v) {
			neighborSets[v][nb] = struct{}{}
		}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return g.Degree(order[i]) > g.Degree(order[j]) })

	var best []int
	var current []int

	var candidates = make([]int, len(order))
	copy(candidates, order)

	var expand func(cand []int)
	expand = func(cand []int) {
		if len(current)+len(cand) <= len(best) {
			return
		}
		if len(cand) == 0 {
			if len(current) > len(best) {
				best = append([]int(nil), current...)
			}
			return
		}
		for i := 0; i < len(cand); i++ {
			if len(current)+len(cand)-i <= len(best) {
				return
			}
			v := cand[i]
			current = append(current, v)
			next := make([]int, 0, len(cand)-i-1)
			for _, u := range cand[i+1:] {
				if _, ok := neighborSets[v][u]; ok {
					next = append(next, u)
				}
			}
			expand(next)
			current = current[:len(current)-1]
		}
	}
	expand(candidates)
	return best
}
