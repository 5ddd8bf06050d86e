package registration

import (
	"context"
	"math"
	"testing"

	"go.viam.com/test"

	"go.viam.com/pointreg/pointcloud"
)

func cubeCorner() pointcloud.Cloud {
	cloud := pointcloud.Cloud{}
	for x := 0.0; x < 10; x++ {
		for y := 0.0; y < 10; y++ {
			for z := 0.0; z < 10; z++ {
				cloud = append(cloud, pointcloud.NewVector(x*0.05, y*0.05, z*0.05))
			}
		}
	}
	return cloud
}

func TestConfigValidateRejectsNegativeVoxelSize(t *testing.T) {
	cfg := DefaultConfig(0.05)
	cfg.VoxelSize = -1
	err := cfg.Validate()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConfigValidateRejectsBadTupleScale(t *testing.T) {
	cfg := DefaultConfig(0.05)
	cfg.TupleScale = 1.5
	err := cfg.Validate()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig(0.05)
	cfg.FPFHRadius = -1
	_, err := New(cfg)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestEstimateIdentity(t *testing.T) {
	cloud := cubeCorner()
	cfg := DefaultConfig(0.05)
	cfg.UseVoxelSampling = false
	p, err := New(cfg)
	test.That(t, err, test.ShouldBeNil)

	sol, err := p.Estimate(context.Background(), cloud, cloud)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sol.Valid, test.ShouldBeTrue)
	test.That(t, sol.T.Norm(), test.ShouldBeLessThan, 1e-3)

	report := p.ScoreReport()
	test.That(t, report.InitialPairs, test.ShouldBeGreaterThan, 0)
}

func TestEstimateEmptyInputs(t *testing.T) {
	cfg := DefaultConfig(0.05)
	p, err := New(cfg)
	test.That(t, err, test.ShouldBeNil)

	sol, err := p.Estimate(context.Background(), pointcloud.Cloud{}, pointcloud.Cloud{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sol.Valid, test.ShouldBeFalse)
	test.That(t, p.Timings().Solving, test.ShouldEqual, 0)
}

func TestEstimateTranslatedCube(t *testing.T) {
	src := cubeCorner()
	translate := pointcloud.NewVector(0.3, 0, 0)
	tgt := make(pointcloud.Cloud, len(src))
	for i, p := range src {
		tgt[i] = p.Add(translate)
	}

	cfg := DefaultConfig(0.05)
	cfg.UseVoxelSampling = false
	p, err := New(cfg)
	test.That(t, err, test.ShouldBeNil)

	sol, err := p.Estimate(context.Background(), src, tgt)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sol.Valid, test.ShouldBeTrue)
	test.That(t, math.Abs(sol.T.X-0.3), test.ShouldBeLessThan, 0.01)
}
