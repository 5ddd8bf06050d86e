package utils

import (
	"math"
	"sort"
)

// Median returns the median of the given values in place of the common
// gonum/stat call for small odd-sized slices where pulling in stat just for
// this would be overkill relative to what it already brings in elsewhere.
func Median(values ...float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sort.Float64s(values)

	return values[int(math.Floor(float64(len(values))/2))]
}

// MaxInt returns the larger of a and b.
func MaxInt(a, b int) int {
	if a < b {
		return b
	}
	return a
}

// MinInt returns the smaller of a and b.
func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Square returns n*n; faster than math.Pow(n, 2).
func Square(n float64) float64 {
	return n * n
}
