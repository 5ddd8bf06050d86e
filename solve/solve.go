// Package solve implements C4, the robust SE(3) solver: rotation is
// estimated by a graduated non-convexity (GNC) scheme with a
// truncated-least-squares (TLS) loss over translation-invariant measurements
// (TIMS), or by a 2-DoF yaw-only estimator ("Quatro") when roll/pitch are
// ill-observed; translation is estimated independently via componentwise
// adaptive-voting TLS.
package solve

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/pointreg/logging"
	"go.viam.com/pointreg/utils"
)

// gncMuRatio is the constant ratio μ is divided by each GNC iteration.
const gncMuRatio = 1.4

// gncWeightDeltaTol stops the GNC loop once the weight vector stops moving.
const gncWeightDeltaTol = 1e-6

// gncMaxIterations caps the GNC loop regardless of convergence.
const gncMaxIterations = 100

// rotInlierWeightThreshold is the default w_thr used to call a TIMS pair a
// rotation inlier from the final GNC weights.
const rotInlierWeightThreshold = 0.5

// Config holds C4's tunables.
type Config struct {
	// NoiseBound is ĉ, the noise bound used both in the GNC weight update
	// and as the translation TLS consensus half-width.
	NoiseBound float64
	// UseQuatro selects the 2-DoF (yaw-only) rotation estimator instead of
	// full GNC-TLS.
	UseQuatro bool
}

// Solution is the pipeline's final output.
type Solution struct {
	R      *mat.Dense // 3x3, orthogonal, det=+1 when Valid.
	T      r3.Vector
	Scale  float64
	Valid  bool
	RotInliers   []int
	TransInliers []int
}

// InvalidIdentity returns the zeroed, invalid solution returned whenever the
// solver cannot produce a trustworthy estimate.
func InvalidIdentity() Solution {
	return Solution{
		R:     mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}),
		T:     r3.Vector{},
		Scale: 1.0,
		Valid: false,
	}
}

// Solve estimates the SE(3) transform aligning Sm onto Tm, column-matched
// 3xM point sets. Requires M >= 2; otherwise returns the invalid identity
// solution, matching the source's early return for an under-determined
// system.
func Solve(Sm, Tm []r3.Vector, cfg Config, logger logging.Logger) Solution {
	m := len(Sm)
	if m != len(Tm) || m < 2 {
		return InvalidIdentity()
	}

	abar, bbar, pairIdx := buildTIMS(Sm, Tm)
	if len(abar) == 0 {
		return InvalidIdentity()
	}

	var R *mat.Dense
	var weights []float64
	if cfg.UseQuatro {
		R, weights = gncQuatro(abar, bbar, cfg.NoiseBound)
	} else {
		R, weights = gncTLS(abar, bbar, cfg.NoiseBound)
	}
	if R == nil {
		return InvalidIdentity()
	}

	rotInlierPairs := make(map[int]struct{})
	for k, w := range weights {
		if w >= rotInlierWeightThreshold {
			rotInlierPairs[pairIdx[k][0]] = struct{}{}
			rotInlierPairs[pairIdx[k][1]] = struct{}{}
		}
	}
	rotInliers := setToSortedSlice(rotInlierPairs)

	t, transInliers, ok := estimateTranslation(Sm, Tm, R, cfg.NoiseBound)
	if !ok {
		return InvalidIdentity()
	}

	finite := !math.IsNaN(t.X+t.Y+t.Z) && !math.IsInf(t.X+t.Y+t.Z, 0)
	for i := 0; i < 3 && finite; i++ {
		for j := 0; j < 3; j++ {
			if v := R.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				finite = false
			}
		}
	}
	if !finite {
		return InvalidIdentity()
	}

	if len(rotInliers) < 3 || len(transInliers) < 3 {
		return InvalidIdentity()
	}

	if logger != nil {
		logger.Debugw("solve: estimated transform", "rotInliers", len(rotInliers), "transInliers", len(transInliers))
	}

	return Solution{
		R:            R,
		T:            t,
		Scale:        1.0,
		Valid:        true,
		RotInliers:   rotInliers,
		TransInliers: transInliers,
	}
}

func setToSortedSlice(s map[int]struct{}) []int {
	out := make([]int, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// buildTIMS forms translation-invariant measurements for every pair of
// correspondences: abar_k = Sm[j]-Sm[i], bbar_k = Tm[j]-Tm[i]. All O(M^2)
// pairs are used for every M; no subsampling is done. Scale/rotation
// decouple from translation because differencing cancels any common
// translation term.
func buildTIMS(Sm, Tm []r3.Vector) (abar, bbar []r3.Vector, pairIdx [][2]int) {
	m := len(Sm)
	for i := 0; i < m; i++ {
		for j := i + 1; j < m; j++ {
			abar = append(abar, Sm[j].Sub(Sm[i]))
			bbar = append(bbar, Tm[j].Sub(Tm[i]))
			pairIdx = append(pairIdx, [2]int{i, j})
		}
	}
	return abar, bbar, pairIdx
}

// gncTLS runs the graduated non-convexity TLS rotation estimator over the
// full 3D TIMS, returning the estimated rotation and the final GNC weights.
func gncTLS(abar, bbar []r3.Vector, noiseBound float64) (*mat.Dense, []float64) {
	n := len(abar)
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1.0
	}
	if noiseBound <= 0 {
		noiseBound = 1e-3
	}
	cHat := noiseBound
	cHatSq := utils.Square(cHat)

	R := weightedProcrustes3D(abar, bbar, weights)
	if R == nil {
		return nil, nil
	}

	mu := math.Inf(1)
	residuals := make([]float64, n)
	for iter := 0; iter < gncMaxIterations; iter++ {
		maxResidual := 0.0
		for k := range abar {
			residuals[k] = rotatedResidualSq(R, abar[k], bbar[k])
			if residuals[k] > maxResidual {
				maxResidual = residuals[k]
			}
		}
		if math.IsInf(mu, 1) {
			if maxResidual > 0 {
				mu = cHatSq / (2*maxResidual - cHatSq)
				if mu <= 0 || math.IsNaN(mu) {
					mu = 1.0
				}
			} else {
				mu = 1.0
			}
		}

		deltaW := 0.0
		for k := range weights {
			denom := residuals[k] + mu*cHatSq
			newW := 0.0
			if denom > 0 {
				newW = utils.Square(mu * cHatSq / denom)
			}
			if newW > 1 {
				newW = 1
			}
			if newW < 0 {
				newW = 0
			}
			deltaW += math.Abs(newW - weights[k])
			weights[k] = newW
		}

		R = weightedProcrustes3D(abar, bbar, weights)
		if R == nil {
			return nil, nil
		}
		mu /= gncMuRatio

		if deltaW < gncWeightDeltaTol {
			break
		}
	}
	return R, weights
}

// gncQuatro runs the 2-DoF yaw-only GNC-TLS estimator: z-components of the
// TIMS are zeroed, the 2D weighted Procrustes problem is solved for yaw,
// and the result is lifted to a full 3x3 rotation (identity roll/pitch).
func gncQuatro(abar, bbar []r3.Vector, noiseBound float64) (*mat.Dense, []float64) {
	flatA := make([]r3.Vector, len(abar))
	flatB := make([]r3.Vector, len(bbar))
	for i := range abar {
		flatA[i] = r3.Vector{X: abar[i].X, Y: abar[i].Y, Z: 0}
		flatB[i] = r3.Vector{X: bbar[i].X, Y: bbar[i].Y, Z: 0}
	}
	return gncTLS(flatA, flatB, noiseBound)
}

func rotatedResidualSq(R *mat.Dense, a, b r3.Vector) float64 {
	rv := mulVec(R, a)
	d := b.Sub(rv)
	return d.Dot(d)
}

func mulVec(R *mat.Dense, v r3.Vector) r3.Vector {
	x := R.At(0, 0)*v.X + R.At(0, 1)*v.Y + R.At(0, 2)*v.Z
	y := R.At(1, 0)*v.X + R.At(1, 1)*v.Y + R.At(1, 2)*v.Z
	z := R.At(2, 0)*v.X + R.At(2, 1)*v.Y + R.At(2, 2)*v.Z
	return r3.Vector{X: x, Y: y, Z: z}
}

// weightedProcrustes3D solves min_R sum w_k ||b_k - R a_k||^2 over R in
// SO(3) via the weighted-covariance SVD: H = sum w_k a_k b_k^T; R = V U^T
// with the last column of V flipped when det(V U^T) < 0, so the result is a
// proper rotation.
func weightedProcrustes3D(abar, bbar []r3.Vector, weights []float64) *mat.Dense {
	h := mat.NewDense(3, 3, nil)
	for k := range abar {
		w := weights[k]
		if w == 0 {
			continue
		}
		a, b := abar[k], bbar[k]
		h.Set(0, 0, h.At(0, 0)+w*a.X*b.X)
		h.Set(0, 1, h.At(0, 1)+w*a.X*b.Y)
		h.Set(0, 2, h.At(0, 2)+w*a.X*b.Z)
		h.Set(1, 0, h.At(1, 0)+w*a.Y*b.X)
		h.Set(1, 1, h.At(1, 1)+w*a.Y*b.Y)
		h.Set(1, 2, h.At(1, 2)+w*a.Y*b.Z)
		h.Set(2, 0, h.At(2, 0)+w*a.Z*b.X)
		h.Set(2, 1, h.At(2, 1)+w*a.Z*b.Y)
		h.Set(2, 2, h.At(2, 2)+w*a.Z*b.Z)
	}

	var svd mat.SVD
	ok := svd.Factorize(h, mat.SVDFull)
	if !ok {
		return nil
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var vut mat.Dense
	vut.Mul(&v, u.T())
	if mat.Det(&vut) < 0 {
		for i := 0; i < 3; i++ {
			v.Set(i, 2, -v.At(i, 2))
		}
		vut.Mul(&v, u.T())
	}
	return &vut
}

// estimateTranslation runs componentwise adaptive-voting TLS: for each axis,
// the residual q_k = (Tm[k]-R*Sm[k])_axis is computed, and the largest
// consensus window of width 2*noiseBound is found by sweeping sorted
// residuals; the output is the median of that window.
func estimateTranslation(Sm, Tm []r3.Vector, R *mat.Dense, noiseBound float64) (r3.Vector, []int, bool) {
	m := len(Sm)
	if m == 0 {
		return r3.Vector{}, nil, false
	}
	if noiseBound <= 0 {
		noiseBound = 1e-3
	}

	residualsX := make([]float64, m)
	residualsY := make([]float64, m)
	residualsZ := make([]float64, m)
	for k := 0; k < m; k++ {
		rv := mulVec(R, Sm[k])
		d := Tm[k].Sub(rv)
		residualsX[k] = d.X
		residualsY[k] = d.Y
		residualsZ[k] = d.Z
	}

	tx, inliersX, okX := adaptiveVoteTLS(residualsX, noiseBound)
	ty, inliersY, okY := adaptiveVoteTLS(residualsY, noiseBound)
	tz, inliersZ, okZ := adaptiveVoteTLS(residualsZ, noiseBound)
	if !okX || !okY || !okZ {
		return r3.Vector{}, nil, false
	}

	inlierSet := make(map[int]struct{})
	for _, idx := range inliersX {
		inlierSet[idx] = struct{}{}
	}
	for _, idx := range inliersY {
		inlierSet[idx] = struct{}{}
	}
	for _, idx := range inliersZ {
		inlierSet[idx] = struct{}{}
	}

	return r3.Vector{X: tx, Y: ty, Z: tz}, setToSortedSlice(inlierSet), true
}

// adaptiveVoteTLS finds the largest set of indices whose values all fall
// within a window of width 2*noiseBound, via a sweep over sorted values, and
// returns the median of that window.
func adaptiveVoteTLS(values []float64, noiseBound float64) (float64, []int, bool) {
	n := len(values)
	if n == 0 {
		return 0, nil, false
	}
	type indexed struct {
		v   float64
		idx int
	}
	sorted := make([]indexed, n)
	for i, v := range values {
		sorted[i] = indexed{v, i}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].v < sorted[j].v })

	bestStart, bestEnd := 0, 0
	left := 0
	for right := 0; right < n; right++ {
		for sorted[right].v-sorted[left].v > 2*noiseBound {
			left++
		}
		if right-left > bestEnd-bestStart {
			bestStart, bestEnd = left, right
		}
	}

	if bestEnd == bestStart && n > 1 && sorted[bestEnd].v-sorted[bestStart].v > 2*noiseBound {
		return 0, nil, false
	}

	window := make([]float64, 0, bestEnd-bestStart+1)
	indices := make([]int, 0, bestEnd-bestStart+1)
	for i := bestStart; i <= bestEnd; i++ {
		window = append(window, sorted[i].v)
		indices = append(indices, sorted[i].idx)
	}
	center := utils.Median(window...)
	sort.Ints(indices)
	return center, indices, true
}
