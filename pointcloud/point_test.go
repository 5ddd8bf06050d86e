package pointcloud

import (
	"sort"
	"testing"

	"go.viam.com/test"
)

func TestCloudCentroid(t *testing.T) {
	c := Cloud{NewVector(0, 0, 0), NewVector(2, 0, 0), NewVector(1, 3, 0)}
	centroid := c.Centroid()
	test.That(t, centroid.X, test.ShouldAlmostEqual, 1.0)
	test.That(t, centroid.Y, test.ShouldAlmostEqual, 1.0)
	test.That(t, centroid.Z, test.ShouldAlmostEqual, 0.0)
}

func TestCloudCentroidEmpty(t *testing.T) {
	var c Cloud
	centroid := c.Centroid()
	test.That(t, centroid.X, test.ShouldEqual, 0.0)
	test.That(t, centroid.Y, test.ShouldEqual, 0.0)
	test.That(t, centroid.Z, test.ShouldEqual, 0.0)
}

func TestCloudSelect(t *testing.T) {
	c := Cloud{NewVector(0, 0, 0), NewVector(1, 1, 1), NewVector(2, 2, 2)}
	sub := c.Select([]int{2, 0})
	test.That(t, len(sub), test.ShouldEqual, 2)
	test.That(t, sub[0], test.ShouldResemble, c[2])
	test.That(t, sub[1], test.ShouldResemble, c[0])
}

func TestVectorsSort(t *testing.T) {
	vs := Vectors{NewVector(1, 0, 0), NewVector(0, 0, 0), NewVector(0, 1, 0)}
	sort.Sort(vs)
	test.That(t, vs[0], test.ShouldResemble, NewVector(0, 0, 0))
}
