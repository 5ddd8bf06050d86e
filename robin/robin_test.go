package robin

import (
	"context"
	"testing"

	"go.viam.com/test"

	"go.viam.com/pointreg/corr"
	"go.viam.com/pointreg/pointcloud"
)

func TestBuildGraphNoSelfLoops(t *testing.T) {
	S := pointcloud.Cloud{pointcloud.NewVector(0, 0, 0), pointcloud.NewVector(1, 0, 0), pointcloud.NewVector(0, 1, 0)}
	T := pointcloud.Cloud{pointcloud.NewVector(0, 0, 0), pointcloud.NewVector(1, 0, 0), pointcloud.NewVector(0, 1, 0)}
	corrs := []corr.Correspondence{{0, 0}, {1, 1}, {2, 2}}
	g := Build(context.Background(), corrs, S, T, 0.01)
	for v := 0; v < g.NumVertices(); v++ {
		for _, nb := range g.Neighbors(v) {
			test.That(t, nb, test.ShouldNotEqual, v)
		}
	}
}

func TestPruneMaxKCoreKeepsConsistentSet(t *testing.T) {
	S := pointcloud.Cloud{pointcloud.NewVector(0, 0, 0), pointcloud.NewVector(1, 0, 0), pointcloud.NewVector(0, 1, 0), pointcloud.NewVector(10, 10, 10)}
	T := pointcloud.Cloud{pointcloud.NewVector(0, 0, 0), pointcloud.NewVector(1, 0, 0), pointcloud.NewVector(0, 1, 0), pointcloud.NewVector(-5, -5, -5)}
	corrs := []corr.Correspondence{{0, 0}, {1, 1}, {2, 2}, {3, 3}}
	cfg := Config{Mode: MaxKCore, NoiseBound: 0.01}
	out := Prune(context.Background(), corrs, S, T, cfg, nil)
	test.That(t, len(out), test.ShouldBeGreaterThanOrEqualTo, 3)
}

func TestPruneNoneIsPassthrough(t *testing.T) {
	corrs := []corr.Correspondence{{0, 0}, {1, 1}}
	out := Prune(context.Background(), corrs, nil, nil, Config{Mode: None}, nil)
	test.That(t, len(out), test.ShouldEqual, 2)
}

func TestMaxCliqueFindsTriangle(t *testing.T) {
	g := &Graph{n: 4, adjacency: map[int][]int{
		0: {1, 2},
		1: {0, 2},
		2: {0, 1},
		3: {},
	}}
	clique := maxClique(g)
	test.That(t, len(clique), test.ShouldEqual, 3)
}

func TestMaxKCoreAllIsolated(t *testing.T) {
	g := &Graph{n: 3, adjacency: map[int][]int{0: {}, 1: {}, 2: {}}}
	core := maxKCore(g)
	test.That(t, len(core), test.ShouldEqual, 3)
}
