package stats

import "math"

// TukeyFences returns the lower and upper outlier bounds of x,
// Q1 - k*IQR and Q3 + k*IQR. NaN values are ignored; an all-NaN x yields
// NaN bounds.
func TukeyFences(x []float64, k float64) (lo, hi float64) {
	vals := DropNaN(x)
	if len(vals) == 0 {
		return math.NaN(), math.NaN()
	}
	q1 := Quantile(vals, 0.25)
	q3 := Quantile(vals, 0.75)
	iqr := q3 - q1
	return q1 - k*iqr, q3 + k*iqr
}

// CountOutliers counts the non-NaN values of x outside the Tukey fences.
func CountOutliers(x []float64, k float64) int {
	lo, hi := TukeyFences(x, k)
	n := 0
	for _, v := range x {
		if v < lo || v > hi {
			n++
		}
	}
	return n
}
