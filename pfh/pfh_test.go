package pfh

import (
	"context"
	"math"
	"testing"

	"go.viam.com/test"

	"go.viam.com/pointreg/pointcloud"
)

func cubeCloud() pointcloud.Cloud {
	cloud := pointcloud.Cloud{}
	for x := 0.0; x < 3; x++ {
		for y := 0.0; y < 3; y++ {
			for z := 0.0; z < 3; z++ {
				cloud = append(cloud, pointcloud.NewVector(x*0.1, y*0.1, z*0.1))
			}
		}
	}
	return cloud
}

func TestComputeDropsSparseNeighborhoods(t *testing.T) {
	cloud := pointcloud.Cloud{pointcloud.NewVector(0, 0, 0), pointcloud.NewVector(10, 10, 10)}
	cfg := DefaultConfig(0.1)
	cfg.MinNeighbors = 4
	result, err := Compute(context.Background(), cloud, cfg, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(result.Keypoints), test.ShouldEqual, 0)
}

func TestComputeProducesNormalizedDescriptors(t *testing.T) {
	cloud := cubeCloud()
	cfg := DefaultConfig(0.1)
	cfg.ThrLinearity = 1.0
	cfg.MinNeighbors = 4
	result, err := Compute(context.Background(), cloud, cfg, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(result.Keypoints), test.ShouldBeGreaterThan, 0)
	for _, d := range result.Descriptors {
		test.That(t, len(d), test.ShouldEqual, DescriptorDim)
		sum := 0.0
		for _, v := range d {
			test.That(t, v, test.ShouldBeGreaterThanOrEqualTo, 0.0)
			sum += v
		}
		if sum > 0 {
			test.That(t, math.Abs(sum-100), test.ShouldBeLessThan, 1e-6)
		}
	}
}

func TestRadiusIndexFindsNeighbors(t *testing.T) {
	cloud := cubeCloud()
	idx := NewRadiusIndex(cloud, 0.2)
	neighbors := idx.RadiusQuery(pointcloud.NewVector(0.1, 0.1, 0.1), 0.15)
	test.That(t, len(neighbors), test.ShouldBeGreaterThan, 1)
}

func TestEmptyCloud(t *testing.T) {
	result, err := Compute(context.Background(), pointcloud.Cloud{}, DefaultConfig(0.1), nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(result.Keypoints), test.ShouldEqual, 0)
}
