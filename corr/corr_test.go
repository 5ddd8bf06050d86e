package corr

import (
	"context"
	"testing"

	"go.viam.com/test"

	"go.viam.com/pointreg/pointcloud"
)

func TestEstablishCorrespondencesIdentity(t *testing.T) {
	src := pointcloud.Cloud{
		pointcloud.NewVector(0, 0, 0),
		pointcloud.NewVector(1, 0, 0),
		pointcloud.NewVector(0, 1, 0),
	}
	desc := [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

	cfg := Config{Mode: None, NumMaxCorr: 5000}
	corrs, err := EstablishCorrespondences(context.Background(), src, src, desc, desc, cfg, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(corrs), test.ShouldEqual, 3)
	for _, c := range corrs {
		test.That(t, c.I, test.ShouldEqual, c.J)
	}
}

func TestEstablishCorrespondencesEmpty(t *testing.T) {
	cfg := Config{Mode: None}
	corrs, err := EstablishCorrespondences(context.Background(), nil, nil, nil, nil, cfg, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(corrs), test.ShouldEqual, 0)
}

func TestBruteForceIndexQuery(t *testing.T) {
	idx := &BruteForceIndex{}
	test.That(t, idx.Build([][]float64{{0, 0}, {1, 1}, {5, 5}}), test.ShouldBeNil)
	nn, dist := idx.Query([]float64{0.1, 0.1}, 2)
	test.That(t, nn[0], test.ShouldEqual, 0)
	test.That(t, dist[0], test.ShouldBeLessThan, dist[1])
}

func TestTupleConsistencyFilterKeepsConsistentTriple(t *testing.T) {
	S := pointcloud.Cloud{pointcloud.NewVector(0, 0, 0), pointcloud.NewVector(1, 0, 0), pointcloud.NewVector(0, 1, 0)}
	T := pointcloud.Cloud{pointcloud.NewVector(0, 0, 0), pointcloud.NewVector(1, 0, 0), pointcloud.NewVector(0, 1, 0)}
	corrs := []Correspondence{{0, 0}, {1, 1}, {2, 2}}
	out := tupleConsistencyFilter(corrs, S, T, 0.9, 42)
	test.That(t, len(out), test.ShouldEqual, 3)
}
