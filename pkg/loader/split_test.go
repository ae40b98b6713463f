package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rows(n int) ([][]float64, []int) {
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range n {
		X[i] = []float64{float64(i), float64(i * 10)}
		y[i] = i % 2
	}
	return X, y
}

func TestTimeOrderedSplit(t *testing.T) {
	for _, tc := range []struct {
		n      int
		ratio  float64
		nTrain int
	}{
		{10, 0.8, 8},
		{9, 0.8, 7},
		{7, 0.5, 3},
		{1, 0.8, 0},
	} {
		X, y := rows(tc.n)
		s, err := TimeOrderedSplit(X, y, tc.ratio)
		require.NoError(t, err)
		require.Len(t, s.XTrain, tc.nTrain)
		require.Len(t, s.XTest, tc.n-tc.nTrain)
		assert.Len(t, s.YTrain, tc.nTrain)

		for i, row := range s.XTrain {
			assert.Equal(t, float64(i), row[0])
		}
		for i, row := range s.XTest {
			assert.Equal(t, float64(tc.nTrain+i), row[0])
			assert.Equal(t, y[tc.nTrain+i], s.YTest[i])
		}
	}
}

func TestTimeOrderedSplitErrors(t *testing.T) {
	X, y := rows(4)
	_, err := TimeOrderedSplit(X, y[:3], 0.8)
	assert.Error(t, err)
	_, err = TimeOrderedSplit(X, y, 0)
	assert.Error(t, err)
	_, err = TimeOrderedSplit(X, y, 1)
	assert.Error(t, err)
}
