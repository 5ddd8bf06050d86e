package pointcloud

import (
	"testing"

	"go.viam.com/test"
)

func TestDownsampleVoxelGrid(t *testing.T) {
	cloud := Cloud{
		NewVector(0.01, 0.01, 0.01),
		NewVector(0.02, 0.02, 0.02),
		NewVector(5, 5, 5),
	}
	out := DownsampleVoxelGrid(cloud, 1.0)
	test.That(t, len(out), test.ShouldEqual, 2)
}

func TestDownsampleVoxelGridDisabled(t *testing.T) {
	cloud := Cloud{NewVector(0, 0, 0), NewVector(1, 1, 1)}
	out := DownsampleVoxelGrid(cloud, 0)
	test.That(t, len(out), test.ShouldEqual, 2)
}

func TestVoxelGridPointIndices(t *testing.T) {
	cloud := Cloud{NewVector(0, 0, 0), NewVector(0.1, 0.1, 0.1), NewVector(10, 10, 10)}
	vg := NewVoxelGrid(cloud, 1.0)
	origin := coordsForPoint(NewVector(0, 0, 0), 1.0)
	test.That(t, len(vg.PointIndices(origin)), test.ShouldEqual, 2)
}
