// Package stats holds the numeric reductions used on coordinate sub-ranges.
// Every function is pure and returns zero for empty input, so an empty slice
// or a fully lost bunch never produces NaN.
package stats

import (
	"cmp"
	"math"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Number interface {
	constraints.Float | constraints.Integer
}

func Sum[T Number](arr []T) (r T) {
	for i := range arr {
		r += arr[i]
	}
	return
}

// CumSum returns the running sums of arr with a leading zero, so
// out[i+1]-out[i] == arr[i].
func CumSum[T Number](arr []T) []T {
	out := make([]T, len(arr)+1)
	for i := range arr {
		out[i+1] = out[i] + arr[i]
	}
	return out
}

func Argmax[T cmp.Ordered](arr []T) (argmax int) {
	for i := range arr {
		if cmp.Compare(arr[i], arr[argmax]) == 1 {
			argmax = i
		}
	}
	return
}

func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// Std is the population standard deviation.
func Std(x []float64) float64 {
	_, std := MeanStd(x)
	return std
}

// MeanStd returns the mean and the population standard deviation.
func MeanStd(x []float64) (mean, std float64) {
	if len(x) == 0 {
		return 0, 0
	}
	mean, std = stat.PopMeanStdDev(x, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return
}

// Emittance is the rms phase-space area sqrt(<u^2><u'^2> - <uu'>^2) computed
// over centered population moments. u and up must have equal length.
func Emittance(u, up []float64) float64 {
	n := len(u)
	if n == 0 || len(up) != n {
		return 0
	}
	meanU, meanUp := stat.Mean(u, nil), stat.Mean(up, nil)
	var uu, upup, uup float64
	for i := range u {
		du, dup := u[i]-meanU, up[i]-meanUp
		uu += du * du
		upup += dup * dup
		uup += du * dup
	}
	nf := float64(n)
	det := (uu/nf)*(upup/nf) - (uup/nf)*(uup/nf)
	if det <= 0 {
		// rounding on a degenerate (line-like) distribution
		return 0
	}
	return math.Sqrt(det)
}

// Linspace returns n+1 evenly spaced values from lo to hi with both end
// points exact.
func Linspace(lo, hi float64, n int) []float64 {
	if n < 1 {
		return []float64{lo}
	}
	edges := floats.Span(make([]float64, n+1), lo, hi)
	edges[n] = hi
	return edges
}

// Midpoints returns the n-1 centers of n consecutive edges.
func Midpoints(edges []float64) []float64 {
	if len(edges) < 2 {
		return nil
	}
	centers := make([]float64, len(edges)-1)
	for i := range centers {
		centers[i] = edges[i] + (edges[i+1]-edges[i])*0.5
	}
	return centers
}
