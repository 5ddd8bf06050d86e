// Package corr implements C2, correspondence search: mutual-nearest-neighbor
// matching in descriptor space, an optional Lowe-style ratio test, and a
// randomized geometric tuple-consistency filter.
package corr

import (
	"context"
	"math/rand"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"go.viam.com/pointreg/logging"
	"go.viam.com/pointreg/pointcloud"
	"go.viam.com/pointreg/utils"
	"go.viam.com/pointreg/utils/matrix"
)

// Mode selects how aggressively C2 pre-filters before handing its output to
// the graph pruner. None performs only mutual-NN matching; MaxKCore and
// MaxClique are over-approximations, deferring actual pruning to the robin
// package.
type Mode int

const (
	// None performs mutual-NN matching only, no further graph pruning.
	None Mode = iota
	// MaxKCore defers pruning to robin's max-k-core extraction.
	MaxKCore
	// MaxClique defers pruning to robin's max-clique extraction.
	MaxClique
)

// Correspondence pairs a source-keypoint index with a target-keypoint
// index.
type Correspondence struct {
	I, J int
}

// Config holds C2's tunables.
type Config struct {
	Mode         Mode
	UseRatioTest bool
	CrossCheck   bool
	TupleScale   float64 // in (0, 1); 0 disables the tuple filter.
	NumMaxCorr   int
	Seed         int64
}

// NearestNeighborIndex is the k-NN contract C2 queries descriptor space
// through. BruteForceIndex is the package's own linear-scan default; any
// tree-based implementation satisfying this interface is admissible.
type NearestNeighborIndex interface {
	Build(vectors [][]float64) error
	Query(q []float64, k int) (indices []int, dist []float64)
}

// BruteForceIndex is a linear-scan NearestNeighborIndex, grounded on the
// dense distance-matrix-plus-argmin pattern the corpus uses for descriptor
// matching, generalized here to avoid allocating the full matrix at once.
type BruteForceIndex struct {
	data [][]float64
}

// Build implements NearestNeighborIndex.
func (b *BruteForceIndex) Build(vectors [][]float64) error {
	b.data = vectors
	return nil
}

// Query implements NearestNeighborIndex, returning the k nearest rows to q
// by Euclidean distance, ascending. Distances are computed via the same
// dense-matrix-plus-argmin pattern the corpus uses for descriptor matching.
func (b *BruteForceIndex) Query(q []float64, k int) ([]int, []float64) {
	if len(b.data) == 0 || k <= 0 {
		return nil, nil
	}
	if k > len(b.data) {
		k = len(b.data)
	}

	distances, err := utils.PairwiseDistance([][]float64{q}, b.data, utils.Euclidean)
	if err != nil {
		return nil, nil
	}

	if k == 1 {
		idx := utils.GetArgMinDistancesPerRow(distances)
		return idx, []float64{distances.At(0, idx[0])}
	}

	type cand struct {
		idx int
		d   float64
	}
	cands := make([]cand, len(b.data))
	for i := range b.data {
		cands[i] = cand{i, distances.At(0, i)}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].d < cands[j].d })
	idx := make([]int, k)
	dist := make([]float64, k)
	for i := 0; i < k; i++ {
		idx[i] = cands[i].idx
		dist[i] = cands[i].d
	}
	return idx, dist
}

// EstablishCorrespondences is the canonical ("optimized") correspondence
// search path: mutual-NN with an optional ratio test, followed by the
// tuple-consistency filter when cfg.TupleScale is in (0, 1). It swaps
// source/target roles internally when |Tk| > |Sk| and restores index
// orientation before returning, per the symmetry invariant.
func EstablishCorrespondences(
	ctx context.Context,
	srcKeypoints, tgtKeypoints pointcloud.Cloud,
	srcDesc, tgtDesc [][]float64,
	cfg Config,
	logger logging.Logger,
) ([]Correspondence, error) {
	if len(srcKeypoints) == 0 || len(tgtKeypoints) == 0 {
		return nil, nil
	}

	swapped := false
	S, T := srcKeypoints, tgtKeypoints
	Ds, Dt := srcDesc, tgtDesc
	if len(tgtKeypoints) > len(srcKeypoints) {
		swapped = true
		S, T = tgtKeypoints, srcKeypoints
		Ds, Dt = tgtDesc, srcDesc
	}

	corrs, err := mutualNearestNeighbor(ctx, Ds, Dt, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.TupleScale > 0 && cfg.TupleScale < 1 {
		corrs = tupleConsistencyFilter(corrs, S, T, cfg.TupleScale, cfg.Seed)
	}

	sort.Slice(corrs, func(i, j int) bool {
		if corrs[i].I != corrs[j].I {
			return corrs[i].I < corrs[j].I
		}
		return corrs[i].J < corrs[j].J
	})

	if swapped {
		for i := range corrs {
			corrs[i].I, corrs[i].J = corrs[i].J, corrs[i].I
		}
		sort.Slice(corrs, func(i, j int) bool {
			if corrs[i].I != corrs[j].I {
				return corrs[i].I < corrs[j].I
			}
			return corrs[i].J < corrs[j].J
		})
	}

	if cfg.NumMaxCorr > 0 && len(corrs) > cfg.NumMaxCorr {
		corrs = corrs[:cfg.NumMaxCorr]
	}

	if logger != nil {
		logger.Debugw("corr: established correspondences", "count", len(corrs))
	}
	return corrs, nil
}

// EstablishCorrespondencesAdvanced is the legacy matcher: cross-check plus a
// fixed-size 3-point tuple test, kept only for call sites pinned to the
// pre-ROBIN behavior. EstablishCorrespondences is canonical.
func EstablishCorrespondencesAdvanced(
	ctx context.Context,
	srcKeypoints, tgtKeypoints pointcloud.Cloud,
	srcDesc, tgtDesc [][]float64,
	tupleScale float64,
	seed int64,
	logger logging.Logger,
) ([]Correspondence, error) {
	cfg := Config{
		Mode:         None,
		CrossCheck:   true,
		UseRatioTest: false,
		TupleScale:   tupleScale,
		Seed:         seed,
	}
	return EstablishCorrespondences(ctx, srcKeypoints, tgtKeypoints, srcDesc, tgtDesc, cfg, logger)
}

// mutualNearestNeighbor finds, for each target descriptor, its nearest
// source descriptor, then verifies (optionally) that the relationship is
// mutual, applying the ratio test when configured.
func mutualNearestNeighbor(ctx context.Context, Ds, Dt [][]float64, cfg Config) ([]Correspondence, error) {
	srcIndex := &BruteForceIndex{}
	if err := srcIndex.Build(Ds); err != nil {
		return nil, err
	}
	tgtIndex := &BruteForceIndex{}
	if err := tgtIndex.Build(Dt); err != nil {
		return nil, err
	}

	n := len(Dt)
	tentative := make([]Correspondence, n)
	accept := make([]bool, n)

	before := func(int) {}
	groupWork := func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
		member := func(_, workNum int) {
			q := Dt[workNum]
			k := 1
			requireRatio := cfg.UseRatioTest
			if requireRatio {
				k = 2
			}
			idx, dist := srcIndex.Query(q, k)
			if len(idx) == 0 {
				return
			}
			iStar := idx[0]
			if requireRatio && len(idx) > 1 {
				d1, d2 := dist[0], dist[1]
				if d2 == 0 || d1/d2 >= 0.9 {
					return
				}
			}

			needsCrossCheck := cfg.CrossCheck || cfg.Mode == None
			if needsCrossCheck {
				backIdx, _ := tgtIndex.Query(Ds[iStar], 1)
				if len(backIdx) == 0 || backIdx[0] != workNum {
					return
				}
			}
			tentative[workNum] = Correspondence{I: iStar, J: workNum}
			accept[workNum] = true
		}
		return member, nil
	}
	if err := utils.GroupWorkParallel(ctx, n, before, groupWork); err != nil {
		return nil, err
	}

	seen := make(map[Correspondence]struct{}, n)
	out := make([]Correspondence, 0, n)
	for j := 0; j < n; j++ {
		if !accept[j] {
			continue
		}
		if _, ok := seen[tentative[j]]; ok {
			continue
		}
		seen[tentative[j]] = struct{}{}
		out = append(out, tentative[j])
	}
	return out, nil
}

// tupleConsistencyFilter randomly samples triples from corrs, accepting a
// triple iff every pair within it preserves pairwise distance within the
// tupleScale ratio, per the length-preservation geometric test.
func tupleConsistencyFilter(corrs []Correspondence, S, T pointcloud.Cloud, tupleScale float64, seed int64) []Correspondence {
	n := len(corrs)
	if n < 3 {
		return corrs
	}
	src := rand.NewSource(seed)

	maxTrials := 100 * n
	accepted := roaring.New()
	order := make([]int, 0, n)

	consistent := func(u, v Correspondence) bool {
		ds := S[u.I].Sub(S[v.I]).Norm()
		dt := T[u.J].Sub(T[v.J]).Norm()
		if ds == 0 {
			return dt == 0
		}
		lo := tupleScale * ds
		hi := ds / tupleScale
		return dt >= lo && dt <= hi
	}

	for trial := 0; trial < maxTrials; trial++ {
		triple := matrix.SampleNIntegersUniformSeeded(3, 0, float64(n-1), src)
		a, b, c := triple[0], triple[1], triple[2]
		if a == b || b == c || a == c {
			continue
		}
		ca, cb, cc := corrs[a], corrs[b], corrs[c]
		if !consistent(ca, cb) || !consistent(cb, cc) || !consistent(cc, ca) {
			continue
		}
		for _, idx := range []int{a, b, c} {
			key := uint32(idx)
			if !accepted.Contains(key) {
				accepted.Add(key)
				order = append(order, idx)
			}
		}
	}

	sort.Ints(order)
	out := make([]Correspondence, len(order))
	for i, idx := range order {
		out[i] = corrs[idx]
	}
	return out
}
