package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

// VoxelCoords is the integer grid address of a voxel in a uniform grid
// keyed by a fixed voxel size. Two points map to the same VoxelCoords iff
// they fall in the same grid cell.
type VoxelCoords struct {
	I, J, K int64
}

func coordsForPoint(p r3.Vector, voxelSize float64) VoxelCoords {
	return VoxelCoords{
		I: int64(math.Floor(p.X / voxelSize)),
		J: int64(math.Floor(p.Y / voxelSize)),
		K: int64(math.Floor(p.Z / voxelSize)),
	}
}

// VoxelGrid buckets a cloud's points into fixed-size grid cells. It is the
// backing structure of the pfh package's radius index, generalizing the
// teacher's VoxelCoords grid-hash pattern from segmentation to registration.
// The default VoxelDownsampler uses the same cell addressing but keeps its
// own per-cell sums rather than a VoxelGrid.
type VoxelGrid struct {
	voxelSize float64
	cells     map[VoxelCoords][]int
}

// NewVoxelGrid buckets every point of cloud into a grid of the given voxel
// size.
func NewVoxelGrid(cloud Cloud, voxelSize float64) *VoxelGrid {
	vg := &VoxelGrid{
		voxelSize: voxelSize,
		cells:     make(map[VoxelCoords][]int, len(cloud)),
	}
	for idx, p := range cloud {
		key := coordsForPoint(p, voxelSize)
		vg.cells[key] = append(vg.cells[key], idx)
	}
	return vg
}

// PointIndices returns the indices of the points falling in the cell at
// coords, or nil if the cell is empty.
func (vg *VoxelGrid) PointIndices(coords VoxelCoords) []int {
	return vg.cells[coords]
}

// VoxelDownsampler reduces a cloud's point density. The default
// implementation (GridCentroidDownsampler) replaces each occupied grid cell
// with its centroid; any implementation satisfying this interface is
// admissible, per the pluggable "black box" design of the registration
// pipeline's external collaborators.
type VoxelDownsampler interface {
	Downsample(cloud Cloud, voxelSize float64) Cloud
}

// GridCentroidDownsampler is the default VoxelDownsampler: every non-empty
// voxel is replaced by the centroid of the points that fall inside it.
type GridCentroidDownsampler struct{}

// Downsample implements VoxelDownsampler.
func (GridCentroidDownsampler) Downsample(cloud Cloud, voxelSize float64) Cloud {
	if len(cloud) == 0 {
		return Cloud{}
	}
	sums := make(map[VoxelCoords]r3.Vector)
	counts := make(map[VoxelCoords]int)
	order := make([]VoxelCoords, 0)
	for _, p := range cloud {
		key := coordsForPoint(p, voxelSize)
		if _, ok := sums[key]; !ok {
			order = append(order, key)
		}
		sums[key] = sums[key].Add(p)
		counts[key]++
	}
	out := make(Cloud, 0, len(order))
	for _, key := range order {
		n := float64(counts[key])
		out = append(out, sums[key].Mul(1/n))
	}
	return out
}

// DownsampleVoxelGrid is a convenience wrapper around GridCentroidDownsampler,
// the pipeline's default voxel downsampling step. A non-positive voxelSize
// disables downsampling.
func DownsampleVoxelGrid(cloud Cloud, voxelSize float64) Cloud {
	if voxelSize <= 0 {
		return cloud
	}
	return GridCentroidDownsampler{}.Downsample(cloud, voxelSize)
}
