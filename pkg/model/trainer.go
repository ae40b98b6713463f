package model

import (
	"fmt"
	"time"

	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/errs"
	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/loader"
)

// TrainOptions configures Train.
type TrainOptions struct {
	TrainRatio      float64
	Seed            int64
	NEstimators     int
	MaxDepth        int // 0 => unbounded
	MinSamplesSplit int
	MinSamplesLeaf  int
	Workers         int
}

// DefaultTrainOptions returns an 80/20 split and a 100-tree forest seeded
// with 42.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		TrainRatio:      0.8,
		Seed:            42,
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
}

// TrainingResult is the fitted model together with the split it was fitted
// and scored on.
type TrainingResult struct {
	Model        *RandomForest
	FeatureNames []string

	XTrain, XTest [][]float64
	YTrain, YTest []int

	YPred []int     // test-set predictions
	YProb []float64 // test-set probability of class 1

	FeatureImportance []float64
	Duration          time.Duration
}

// Train splits X and y in time order, fits a random forest on the earlier
// part and predicts the later part. Every failure is a model training error.
func Train(X [][]float64, y []int, featureNames []string, opts TrainOptions) (*TrainingResult, error) {
	fail := func(err error) (*TrainingResult, error) {
		return nil, errs.Wrap(errs.KindModelTraining, err, "train")
	}
	if len(X) > 0 && len(featureNames) != len(X[0]) {
		return fail(fmt.Errorf("%d feature names for %d columns", len(featureNames), len(X[0])))
	}

	split, err := loader.TimeOrderedSplit(X, y, opts.TrainRatio)
	if err != nil {
		return fail(err)
	}
	if len(split.XTrain) == 0 {
		return fail(fmt.Errorf("empty training set (%d rows, ratio %v)", len(X), opts.TrainRatio))
	}
	if len(split.XTest) == 0 {
		return fail(fmt.Errorf("empty test set (%d rows, ratio %v)", len(X), opts.TrainRatio))
	}

	rf := NewRandomForest(
		WithNEstimators(opts.NEstimators),
		WithForestMaxDepth(opts.MaxDepth),
		WithForestMinSamplesSplit(opts.MinSamplesSplit),
		WithForestMinSamplesLeaf(opts.MinSamplesLeaf),
		WithForestRandomState(opts.Seed),
		WithWorkers(opts.Workers),
	)
	start := time.Now()
	if err := rf.Fit(split.XTrain, split.YTrain); err != nil {
		return fail(err)
	}
	if err := validateXY(split.XTest, split.YTest); err != nil {
		return fail(fmt.Errorf("test set: %w", err))
	}

	return &TrainingResult{
		Model:             rf,
		FeatureNames:      append([]string(nil), featureNames...),
		XTrain:            split.XTrain,
		XTest:             split.XTest,
		YTrain:            split.YTrain,
		YTest:             split.YTest,
		YPred:             rf.Predict(split.XTest),
		YProb:             rf.PositiveProba(split.XTest),
		FeatureImportance: rf.FeatureImportances(),
		Duration:          time.Since(start),
	}, nil
}
