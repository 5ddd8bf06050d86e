package spatialmath

import (
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestIdentityRoundTrip(t *testing.T) {
	identity := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	o := NewOrientationFromRotationMatrix(identity)
	q := o.Quaternion()
	test.That(t, q.Real, test.ShouldAlmostEqual, 1.0)
	test.That(t, q.Imag, test.ShouldAlmostEqual, 0.0)
	test.That(t, q.Jmag, test.ShouldAlmostEqual, 0.0)
	test.That(t, q.Kmag, test.ShouldAlmostEqual, 0.0)

	back := o.RotationMatrix()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			test.That(t, back.At(i, j), test.ShouldAlmostEqual, identity.At(i, j))
		}
	}
}

func TestYaw90RoundTrip(t *testing.T) {
	// 90 degree rotation about Z.
	r := mat.NewDense(3, 3, []float64{0, -1, 0, 1, 0, 0, 0, 0, 1})
	o := NewOrientationFromRotationMatrix(r)
	back := o.RotationMatrix()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			test.That(t, back.At(i, j), test.ShouldAlmostEqual, r.At(i, j))
		}
	}
}
