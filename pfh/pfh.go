// Package pfh implements C1, the descriptor extractor: a variant of a fast
// normal-and-curvature-aware point feature histogram. For every surviving
// point it produces a unit normal and a 33-bin descriptor summarizing the
// local geometry, rejecting neighborhoods that are too linear or too sparse
// to support a stable normal.
package pfh

import (
	"context"
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/pointreg/logging"
	"go.viam.com/pointreg/pointcloud"
	"go.viam.com/pointreg/utils"
)

// numAngleBins is the bin count for each of the three PFH angle histograms;
// three 11-bin histograms concatenate into the 33-bin descriptor spec.md
// requires.
const numAngleBins = 11

// DescriptorDim is the fixed length of every descriptor this package emits.
const DescriptorDim = numAngleBins * 3

// Config holds the extractor's tunables. All radii are in the same units as
// the input point cloud.
type Config struct {
	// NormalRadius is the neighborhood radius used to estimate a point's
	// normal and linearity.
	NormalRadius float64
	// FPFHRadius is the (typically larger) neighborhood radius used to
	// accumulate the pairwise angle histogram.
	FPFHRadius float64
	// ThrLinearity rejects a neighborhood when L = (λ0-λ1)/λ0 >= ThrLinearity.
	// A value of 1.0 effectively disables the filter.
	ThrLinearity float64
	// MinNeighbors is the minimum neighborhood size (including self) required
	// to compute a normal; neighborhoods smaller than this are dropped.
	MinNeighbors int
	// SensorOrigin, when non-nil, disambiguates normal sign by orienting
	// normals to point toward it. When nil, normals are oriented outward
	// from the neighborhood's local centroid, a fallback for when no sensor
	// pose is available (see design notes on the sign-disambiguation rule).
	SensorOrigin *r3.Vector
}

// DefaultConfig returns sensible extractor defaults scaled from a voxel size,
// matching the voxel_size-relative defaults named for normal_radius and
// fpfh_radius.
func DefaultConfig(voxelSize float64) Config {
	return Config{
		NormalRadius: 2 * voxelSize,
		FPFHRadius:   5 * voxelSize,
		ThrLinearity: 1.0,
		MinNeighbors: 4,
	}
}

// SpatialIndex supports radius queries over a fixed point set. Any
// implementation satisfying this interface is admissible; RadiusIndex is the
// package's own grid-hash based default.
type SpatialIndex interface {
	RadiusQuery(p r3.Vector, radius float64) []int
}

// RadiusIndex is the default SpatialIndex: a uniform grid keyed by the
// larger of the two configured radii, generalizing the voxel grid's
// 26-connectivity neighbor expansion to an arbitrary query radius by
// scanning however many grid rings the radius spans.
type RadiusIndex struct {
	cloud    pointcloud.Cloud
	cellSize float64
	grid     *pointcloud.VoxelGrid
}

// NewRadiusIndex builds a RadiusIndex over cloud using cellSize as the grid
// cell edge length. cellSize should be at least as large as the biggest
// radius ever queried, for ring-scan efficiency.
func NewRadiusIndex(cloud pointcloud.Cloud, cellSize float64) *RadiusIndex {
	return &RadiusIndex{
		cloud:    cloud,
		cellSize: cellSize,
		grid:     pointcloud.NewVoxelGrid(cloud, cellSize),
	}
}

// RadiusQuery returns the indices of every point within radius of p.
func (ri *RadiusIndex) RadiusQuery(p r3.Vector, radius float64) []int {
	ring := int64(math.Ceil(radius/ri.cellSize)) + 1

	out := make([]int, 0, 16)
	seen := make(map[int]struct{})
	baseI := int64(math.Floor(p.X / ri.cellSize))
	baseJ := int64(math.Floor(p.Y / ri.cellSize))
	baseK := int64(math.Floor(p.Z / ri.cellSize))
	for di := -ring; di <= ring; di++ {
		for dj := -ring; dj <= ring; dj++ {
			for dk := -ring; dk <= ring; dk++ {
				coords := pointcloud.VoxelCoords{I: baseI + di, J: baseJ + dj, K: baseK + dk}
				for _, idx := range ri.grid.PointIndices(coords) {
					if _, ok := seen[idx]; ok {
						continue
					}
					if ri.cloud[idx].Sub(p).Norm() <= radius {
						seen[idx] = struct{}{}
						out = append(out, idx)
					}
				}
			}
		}
	}
	sort.Ints(out)
	return out
}

// Result is the extractor's output: parallel Keypoints/Descriptors/Normals
// sequences, index-aligned, describing the points of the input cloud that
// survived filtering.
type Result struct {
	// Keypoints are the surviving points, a subsequence of the input cloud.
	Keypoints pointcloud.Cloud
	// Descriptors[k] is the 33-bin, L1-normalized-to-100 histogram for
	// Keypoints[k].
	Descriptors [][]float64
	// Normals[k] is the unit surface normal estimated at Keypoints[k].
	Normals []r3.Vector
	// SourceIndices[k] is the index into the original input cloud that
	// Keypoints[k] came from.
	SourceIndices []int
}

// Compute runs the extractor over cloud, building its own RadiusIndex
// internally; registration.Pipeline calls it for each cloud. Callers that
// want to supply or reuse their own spatial index use ComputeWithIndex.
func Compute(ctx context.Context, cloud pointcloud.Cloud, cfg Config, logger logging.Logger) (*Result, error) {
	cellSize := math.Max(cfg.NormalRadius, cfg.FPFHRadius)
	if cellSize <= 0 {
		cellSize = 1
	}
	index := NewRadiusIndex(cloud, cellSize)
	return ComputeWithIndex(ctx, cloud, index, cfg, logger)
}

// ComputeWithIndex is Compute but over a caller-supplied SpatialIndex.
func ComputeWithIndex(
	ctx context.Context,
	cloud pointcloud.Cloud,
	index SpatialIndex,
	cfg Config,
	logger logging.Logger,
) (*Result, error) {
	n := len(cloud)
	if n == 0 {
		return &Result{}, nil
	}

	normals := make([]r3.Vector, n)
	linearity := make([]float64, n)
	survived := make([]bool, n)

	before := func(int) {}
	groupWork := func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
		member := func(_, workNum int) {
			select {
			case <-ctx.Done():
				return
			default:
			}
			p := cloud[workNum]
			neighbors := index.RadiusQuery(p, cfg.NormalRadius)
			if len(neighbors) < cfg.MinNeighbors {
				return
			}
			normal, lin, ok := estimateNormal(cloud, neighbors, p, cfg.SensorOrigin)
			if !ok {
				return
			}
			if lin >= cfg.ThrLinearity {
				return
			}
			normals[workNum] = normal
			linearity[workNum] = lin
			survived[workNum] = true
		}
		return member, nil
	}
	if err := utils.GroupWorkParallel(ctx, n, before, groupWork); err != nil {
		return nil, err
	}

	keptIdx := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if survived[i] {
			keptIdx = append(keptIdx, i)
		}
	}
	sort.Ints(keptIdx)

	result := &Result{
		Keypoints:     make(pointcloud.Cloud, len(keptIdx)),
		Descriptors:   make([][]float64, len(keptIdx)),
		Normals:       make([]r3.Vector, len(keptIdx)),
		SourceIndices: keptIdx,
	}
	for k, srcIdx := range keptIdx {
		result.Keypoints[k] = cloud[srcIdx]
		result.Normals[k] = normals[srcIdx]
	}

	descGroupWork := func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
		member := func(_, workNum int) {
			srcIdx := keptIdx[workNum]
			p := cloud[srcIdx]
			neighbors := index.RadiusQuery(p, cfg.FPFHRadius)
			result.Descriptors[workNum] = computeDescriptor(cloud, normals, p, normals[srcIdx], neighbors, srcIdx)
		}
		return member, nil
	}
	if err := utils.GroupWorkParallel(ctx, len(keptIdx), before, descGroupWork); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Debugw("pfh: extracted keypoints", "input", n, "keypoints", len(keptIdx))
	}
	return result, nil
}

// estimateNormal computes the centered-covariance eigendecomposition of the
// neighborhood, returning the smallest eigenvector as the normal and the
// linearity ratio L = (λ0-λ1)/λ0.
func estimateNormal(cloud pointcloud.Cloud, neighbors []int, center r3.Vector, sensorOrigin *r3.Vector) (r3.Vector, float64, bool) {
	var mean r3.Vector
	for _, idx := range neighbors {
		mean = mean.Add(cloud[idx])
	}
	mean = mean.Mul(1.0 / float64(len(neighbors)))

	cov := mat.NewSymDense(3, nil)
	for _, idx := range neighbors {
		d := cloud[idx].Sub(mean)
		cov.SetSym(0, 0, cov.At(0, 0)+d.X*d.X)
		cov.SetSym(0, 1, cov.At(0, 1)+d.X*d.Y)
		cov.SetSym(0, 2, cov.At(0, 2)+d.X*d.Z)
		cov.SetSym(1, 1, cov.At(1, 1)+d.Y*d.Y)
		cov.SetSym(1, 2, cov.At(1, 2)+d.Y*d.Z)
		cov.SetSym(2, 2, cov.At(2, 2)+d.Z*d.Z)
	}

	var eig mat.EigenSym
	ok := eig.Factorize(cov, true)
	if !ok {
		return r3.Vector{}, 1.0, false
	}
	values := eig.Values(nil)
	// mat.EigenSym returns eigenvalues ascending; we want λ0 >= λ1 >= λ2.
	_, l1, l0 := values[0], values[1], values[2]
	if l0 <= 0 {
		return r3.Vector{}, 1.0, false
	}
	linearity := (l0 - l1) / l0

	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	// The eigenvector for the smallest eigenvalue is column 0.
	normal := r3.Vector{X: vecs.At(0, 0), Y: vecs.At(1, 0), Z: vecs.At(2, 0)}.Normalize()

	if sensorOrigin != nil {
		toSensor := sensorOrigin.Sub(center)
		if normal.Dot(toSensor) < 0 {
			normal = normal.Mul(-1)
		}
	} else {
		outward := center.Sub(mean)
		if normal.Dot(outward) < 0 {
			normal = normal.Mul(-1)
		}
	}
	return normal, linearity, true
}

// computeDescriptor accumulates the simplified three-angle PFH feature
// between p (with normal np) and every neighbor q (with normal nq) into
// three 11-bin histograms, concatenated and L1-normalized to sum to 100.
func computeDescriptor(cloud pointcloud.Cloud, normals []r3.Vector, p, np r3.Vector, neighbors []int, selfIdx int) []float64 {
	hist := make([]float64, DescriptorDim)
	count := 0
	for _, qIdx := range neighbors {
		if qIdx == selfIdx {
			continue
		}
		q := cloud[qIdx]
		nq := normals[qIdx]
		if nq == (r3.Vector{}) {
			continue
		}
		alpha, phi, theta := pfhFeature(p, np, q, nq)
		addToBin(hist, 0, alpha, -1, 1)
		addToBin(hist, numAngleBins, phi, -1, 1)
		addToBin(hist, 2*numAngleBins, theta, -math.Pi, math.Pi)
		count++
	}
	if count == 0 {
		return hist
	}
	sum := 0.0
	for _, v := range hist {
		sum += v
	}
	if sum > 0 {
		scale := 100.0 / sum
		for i := range hist {
			hist[i] *= scale
		}
	}
	return hist
}

// pfhFeature computes the standard three-angle Darboux-frame feature
// (alpha, phi, theta) between an ordered pair of oriented points.
func pfhFeature(p, np, q, nq r3.Vector) (alpha, phi, theta float64) {
	d := q.Sub(p)
	dist := d.Norm()
	if dist == 0 {
		return 0, 0, 0
	}
	u := np
	v := u.Cross(d).Mul(1 / dist)
	w := u.Cross(v)

	alpha = v.Dot(nq)
	phi = u.Dot(d) / dist
	theta = math.Atan2(w.Dot(nq), u.Dot(nq))
	return alpha, phi, theta
}

func addToBin(hist []float64, offset int, value, lo, hi float64) {
	frac := (value - lo) / (hi - lo)
	bin := int(frac * numAngleBins)
	bin = utils.MaxInt(0, utils.MinInt(bin, numAngleBins-1))
	hist[offset+bin]++
}
