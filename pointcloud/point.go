// Package pointcloud provides the point-cloud data model (Vector, Cloud) and
// a default voxel-grid downsampler shared by every stage of the registration
// pipeline.
package pointcloud

import (
	"github.com/golang/geo/r3"
)

// NewVector is a convenience constructor for a three-dimensional point.
func NewVector(x, y, z float64) r3.Vector {
	return r3.Vector{X: x, Y: y, Z: z}
}

// Vectors is a series of three-dimensional vectors, sortable into a
// deterministic canonical order.
type Vectors []r3.Vector

// Len returns the number of vectors.
func (vs Vectors) Len() int {
	return len(vs)
}

// Swap swaps two vectors positionally.
func (vs Vectors) Swap(i, j int) {
	vs[i], vs[j] = vs[j], vs[i]
}

// Less returns which vector is less than the other based on r3.Vector.Cmp,
// giving a total order over points.
func (vs Vectors) Less(i, j int) bool {
	cmp := vs[i].Cmp(vs[j])
	if cmp == 0 {
		return false
	}
	return cmp < 0
}

// Cloud is an ordered, index-stable set of points. Index stability is part
// of the contract: once built, a Cloud's iteration order never changes, so
// downstream components (keypoint sets, correspondence indices) can refer to
// points purely by index.
type Cloud []r3.Vector

// Size returns the number of points in the cloud.
func (c Cloud) Size() int {
	return len(c)
}

// Centroid returns the arithmetic mean of all points in the cloud. The
// zero vector is returned for an empty cloud.
func (c Cloud) Centroid() r3.Vector {
	if len(c) == 0 {
		return r3.Vector{}
	}
	var sum r3.Vector
	for _, p := range c {
		sum = sum.Add(p)
	}
	return sum.Mul(1.0 / float64(len(c)))
}

// Select returns the sub-cloud made of the points at the given indices, in
// the order the indices are given.
func (c Cloud) Select(indices []int) Cloud {
	out := make(Cloud, len(indices))
	for i, idx := range indices {
		out[i] = c[idx]
	}
	return out
}
