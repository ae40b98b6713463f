package loader

import "fmt"

// Split holds the train and test partitions of a feature matrix and its labels.
type Split struct {
	XTrain, XTest [][]float64
	YTrain, YTest []int
}

// TrainSize returns how many of n rows go to training for ratio r.
func TrainSize(n int, r float64) int {
	return int(float64(n) * r)
}

// TimeOrderedSplit puts rows [0, floor(n*trainRatio)) into the training set
// and the remaining rows into the test set. Row order is kept, so the test
// set is always later in time than the training set. The returned slices
// share backing arrays with X and y.
func TimeOrderedSplit(X [][]float64, y []int, trainRatio float64) (*Split, error) {
	if len(X) != len(y) {
		return nil, fmt.Errorf("split: %d feature rows but %d labels", len(X), len(y))
	}
	if trainRatio <= 0 || trainRatio >= 1 {
		return nil, fmt.Errorf("split: train ratio must be in (0,1), got %v", trainRatio)
	}
	nTrain := TrainSize(len(X), trainRatio)
	return &Split{
		XTrain: X[:nTrain],
		XTest:  X[nTrain:],
		YTrain: y[:nTrain],
		YTest:  y[nTrain:],
	}, nil
}
