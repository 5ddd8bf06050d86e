// Package spatialmath provides small orientation-representation helpers for
// reporting a solved rotation as something other than a raw 3x3 matrix.
package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Orientation is a view over a rotation that can render itself as either a
// unit quaternion or a row-major 3x3 rotation matrix. registration.Pipeline's
// LastSolution returns one of these alongside the solution's raw mat.Dense so
// callers that prefer a quaternion never have to hand-roll the conversion.
type Orientation interface {
	Quaternion() quat.Number
	RotationMatrix() *mat.Dense
}

type orientation struct {
	q quat.Number
}

// NewOrientationFromRotationMatrix builds an Orientation from a row-major
// 3x3 rotation matrix, as produced by the solve package's Procrustes step.
func NewOrientationFromRotationMatrix(r *mat.Dense) Orientation {
	rows, cols := r.Dims()
	if rows != 3 || cols != 3 {
		panic("spatialmath: rotation matrix must be 3x3")
	}
	return &orientation{q: rotationMatrixToQuat(r)}
}

// NewOrientationFromQuaternion builds an Orientation from a unit quaternion.
func NewOrientationFromQuaternion(q quat.Number) Orientation {
	return &orientation{q: q}
}

func (o *orientation) Quaternion() quat.Number {
	return o.q
}

func (o *orientation) RotationMatrix() *mat.Dense {
	return quatToRotationMatrix(o.q)
}

// rotationMatrixToQuat converts a proper (det=+1) rotation matrix to a unit
// quaternion using the standard trace-based method.
func rotationMatrixToQuat(r *mat.Dense) quat.Number {
	m00, m01, m02 := r.At(0, 0), r.At(0, 1), r.At(0, 2)
	m10, m11, m12 := r.At(1, 0), r.At(1, 1), r.At(1, 2)
	m20, m21, m22 := r.At(2, 0), r.At(2, 1), r.At(2, 2)

	trace := m00 + m11 + m22
	var w, x, y, z float64
	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1.0)
		w = 0.25 / s
		x = (m21 - m12) * s
		y = (m02 - m20) * s
		z = (m10 - m01) * s
	case m00 > m11 && m00 > m22:
		s := 2.0 * math.Sqrt(1.0+m00-m11-m22)
		w = (m21 - m12) / s
		x = 0.25 * s
		y = (m01 + m10) / s
		z = (m02 + m20) / s
	case m11 > m22:
		s := 2.0 * math.Sqrt(1.0+m11-m00-m22)
		w = (m02 - m20) / s
		x = (m01 + m10) / s
		y = 0.25 * s
		z = (m12 + m21) / s
	default:
		s := 2.0 * math.Sqrt(1.0+m22-m00-m11)
		w = (m10 - m01) / s
		x = (m02 + m20) / s
		y = (m12 + m21) / s
		z = 0.25 * s
	}
	return quat.Number{Real: w, Imag: x, Jmag: y, Kmag: z}
}

// quatToRotationMatrix converts a unit quaternion to a row-major 3x3
// rotation matrix.
func quatToRotationMatrix(q quat.Number) *mat.Dense {
	n := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if n == 0 {
		return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	}
	w, x, y, z := q.Real/n, q.Imag/n, q.Jmag/n, q.Kmag/n

	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	})
}
