package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantileLinearInterpolation(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	// rank = 0.75 * 9 = 6.75 -> 7 + 0.75*(8-7)
	assert.InDelta(t, 7.75, Quantile(x, 0.75), 1e-12)
	assert.InDelta(t, 5.5, Median(x), 1e-12)
	assert.Equal(t, 1.0, Quantile(x, 0))
	assert.Equal(t, 10.0, Quantile(x, 1))
	assert.InDelta(t, 7.75, Percentile(x, 75), 1e-12)
}

func TestQuantileSkipsNaN(t *testing.T) {
	nan := math.NaN()
	x := []float64{nan, 4, nan, 1, 3, 2}

	assert.InDelta(t, 2.5, Median(x), 1e-12)
	assert.True(t, math.IsNaN(Median([]float64{nan, nan})))
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestQuantileDoesNotMutateInput(t *testing.T) {
	x := []float64{3, 1, 2}
	Quantile(x, 0.5)
	assert.Equal(t, []float64{3, 1, 2}, x)
}

func TestMeanMinMax(t *testing.T) {
	x := []float64{2, math.NaN(), 4, -1}

	assert.InDelta(t, 5.0/3.0, Mean(x), 1e-12)
	lo, hi := MinMax(x)
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 4.0, hi)
	assert.True(t, math.IsNaN(Mean([]float64{math.NaN()})))
}

func TestFillNaN(t *testing.T) {
	x := []float64{math.NaN(), 1, math.NaN()}

	assert.Equal(t, 2, FillNaN(x, 9))
	assert.Equal(t, []float64{9, 1, 9}, x)
	assert.Equal(t, 0, CountNaN(x))
}

func TestTukeyFences(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	// Q1 = 3.25, Q3 = 7.75, IQR = 4.5
	lo, hi := TukeyFences(x, 1.5)
	assert.InDelta(t, -3.5, lo, 1e-12)
	assert.InDelta(t, 14.5, hi, 1e-12)
	assert.Equal(t, 0, CountOutliers(x, 1.5))

	withSentinel := append([]float64{-200, math.NaN()}, x...)
	assert.Equal(t, 1, CountOutliers(withSentinel, 1.5))

	lo, hi = TukeyFences([]float64{math.NaN()}, 1.5)
	assert.True(t, math.IsNaN(lo))
	assert.True(t, math.IsNaN(hi))
}
