package stats

import (
	"math"
	"sort"
)

// DropNaN returns the non-NaN values of x in a new slice.
func DropNaN(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// CountNaN returns how many entries of x are NaN.
func CountNaN(x []float64) int {
	n := 0
	for _, v := range x {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Mean computes the average of the non-NaN values. Empty input yields NaN.
func Mean(x []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range x {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// MinMax returns the minimum and maximum non-NaN values in the slice.
func MinMax(x []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range x {
		if math.IsNaN(v) {
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if math.IsInf(lo, 1) {
		return math.NaN(), math.NaN()
	}
	return lo, hi
}

// Median returns the median of the non-NaN values (allocates a copy).
// If every value is NaN the result is NaN.
func Median(x []float64) float64 {
	return Quantile(x, 0.5)
}

// Quantile returns the q-th quantile (0 <= q <= 1) of the non-NaN values,
// interpolating linearly between the two nearest ranks. If every value is
// NaN the result is NaN.
func Quantile(x []float64, q float64) float64 {
	cp := DropNaN(x)
	n := len(cp)
	if n == 0 || math.IsNaN(q) {
		return math.NaN()
	}
	sort.Float64s(cp)
	if q <= 0 {
		return cp[0]
	}
	if q >= 1 {
		return cp[n-1]
	}
	rank := q * float64(n-1)
	lower := int(rank)
	upper := lower + 1
	weight := rank - float64(lower)
	if upper >= n {
		return cp[lower]
	}
	return cp[lower]*(1-weight) + cp[upper]*weight
}

// Percentile is Quantile with p expressed in [0, 100].
func Percentile(x []float64, p float64) float64 {
	return Quantile(x, p/100)
}

// FillNaN replaces NaN entries of x in place with v and returns how many
// were replaced.
func FillNaN(x []float64, v float64) int {
	n := 0
	for i := range x {
		if math.IsNaN(x[i]) {
			x[i] = v
			n++
		}
	}
	return n
}
