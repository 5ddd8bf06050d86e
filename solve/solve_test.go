package solve

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestSolveIdentity(t *testing.T) {
	Sm := []r3.Vector{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1},
	}
	cfg := Config{NoiseBound: 0.05}
	sol := Solve(Sm, Sm, cfg, nil)
	test.That(t, sol.Valid, test.ShouldBeTrue)
	test.That(t, sol.T.Norm(), test.ShouldBeLessThan, 1e-4)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			expected := 0.0
			if i == j {
				expected = 1.0
			}
			test.That(t, sol.R.At(i, j), test.ShouldAlmostEqual, expected)
		}
	}
}

func TestSolveExactRigid(t *testing.T) {
	Sm := []r3.Vector{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 1},
	}
	theta := math.Pi / 6
	cos, sin := math.Cos(theta), math.Sin(theta)
	translate := r3.Vector{X: 0.3, Y: -0.1, Z: 0.05}
	Tm := make([]r3.Vector, len(Sm))
	for i, p := range Sm {
		rotated := r3.Vector{X: cos*p.X - sin*p.Y, Y: sin*p.X + cos*p.Y, Z: p.Z}
		Tm[i] = rotated.Add(translate)
	}

	cfg := Config{NoiseBound: 0.02}
	sol := Solve(Sm, Tm, cfg, nil)
	test.That(t, sol.Valid, test.ShouldBeTrue)
	test.That(t, sol.T.Sub(translate).Norm(), test.ShouldBeLessThan, 0.05)
	test.That(t, sol.R.At(0, 0), test.ShouldAlmostEqual, cos)
}

func TestSolveTooFewCorrespondences(t *testing.T) {
	Sm := []r3.Vector{{X: 0, Y: 0, Z: 0}}
	sol := Solve(Sm, Sm, Config{NoiseBound: 0.02}, nil)
	test.That(t, sol.Valid, test.ShouldBeFalse)
}

func TestSolveEmpty(t *testing.T) {
	sol := Solve(nil, nil, Config{NoiseBound: 0.02}, nil)
	test.That(t, sol.Valid, test.ShouldBeFalse)
	test.That(t, sol.T, test.ShouldResemble, r3.Vector{})
}

func TestAdaptiveVoteTLSFindsConsensus(t *testing.T) {
	values := []float64{0.0, 0.01, -0.01, 5.0, -5.0}
	mean, inliers, ok := adaptiveVoteTLS(values, 0.05)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, len(inliers), test.ShouldEqual, 3)
	test.That(t, math.Abs(mean), test.ShouldBeLessThan, 0.02)
}
