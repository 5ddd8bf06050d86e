package matrix

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// SampleNIntegersNormal samples n integers from normal distribution centered around (vMax+vMin) / 2
// and in range [vMin, vMax].
func SampleNIntegersNormal(n int, vMin, vMax float64) []int {
	z := make([]int, n)
	// get normal distribution centered on (vMax+vMin) / 2 and whose sampled are mostly in [vMin, vMax] (var=0.2*(vMax-vMin)^2)
	mean := (vMax + vMin) / 2
	dist := distuv.Normal{
		Mu:    mean,
		Sigma: (vMax - vMin) * 0.4472,
	}
	for i := range z {
		val := math.Round(dist.Rand())
		for val < vMin || val > vMax {
			val = math.Round(dist.Rand())
		}
		z[i] = int(val)
	}

	return z
}

// SampleNIntegersUniform samples n integers uniformly in [vMin, vMax], using
// the global PRNG source.
func SampleNIntegersUniform(n int, vMin, vMax float64) []int {
	return SampleNIntegersUniformSeeded(n, vMin, vMax, nil)
}

// SampleNIntegersUniformSeeded samples n integers uniformly in [vMin, vMax]
// using the given rand.Source. A nil source falls back to distuv's default
// (the global math/rand source). Passing an explicit, caller-owned source is
// what makes the tuple-consistency filter reproducible across runs given the
// same configured seed.
func SampleNIntegersUniformSeeded(n int, vMin, vMax float64, src rand.Source) []int {
	z := make([]int, n)
	dist := distuv.Uniform{
		Min: vMin,
		Max: vMax + 1,
		Src: src,
	}
	for i := range z {
		val := math.Floor(dist.Rand())
		for val < vMin || val > vMax {
			val = math.Floor(dist.Rand())
		}
		z[i] = int(val)
	}

	return z
}
