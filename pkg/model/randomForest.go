package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// RandomForest for classification
type RandomForest struct {
	// Hyperparameters / options
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 => floor(sqrt(n_features))
	Bootstrap       bool
	RandomState     int64
	Workers         int // trees fitted concurrently. 0 => GOMAXPROCS

	// Internal state
	Trees     []*DecisionTreeClassifier
	classes   []int
	nFeatures int
}

// RandomForestOption functional config for RandomForest
type RandomForestOption func(*RandomForest)

func WithNEstimators(n int) RandomForestOption { return func(rf *RandomForest) { rf.NEstimators = n } }
func WithBootstrap(b bool) RandomForestOption  { return func(rf *RandomForest) { rf.Bootstrap = b } }
func WithForestMaxDepth(d int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxDepth = d }
}
func WithForestMinSamplesSplit(n int) RandomForestOption {
	return func(rf *RandomForest) { rf.MinSamplesSplit = n }
}
func WithForestMinSamplesLeaf(n int) RandomForestOption {
	return func(rf *RandomForest) { rf.MinSamplesLeaf = n }
}
func WithForestMaxFeatures(k int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxFeatures = k }
}
func WithForestRandomState(seed int64) RandomForestOption {
	return func(rf *RandomForest) { rf.RandomState = seed }
}
func WithWorkers(n int) RandomForestOption { return func(rf *RandomForest) { rf.Workers = n } }

// NewRandomForest initializes the forest with sensible defaults.
func NewRandomForest(opts ...RandomForestOption) *RandomForest {
	rf := &RandomForest{
		NEstimators:     100,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     0,
		Bootstrap:       true,
		RandomState:     time.Now().UnixNano(),
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

// Fit trains the random forest. Each tree draws its bootstrap sample as an
// index slice and is seeded from RandomState and its position, so the fitted
// forest does not depend on scheduling.
func (rf *RandomForest) Fit(X [][]float64, y []int) error {
	if rf.NEstimators < 1 {
		return errors.New("randomforest: n_estimators must be >= 1")
	}
	if err := validateXY(X, y); err != nil {
		return fmt.Errorf("randomforest: %w", err)
	}
	classes := uniqueClasses(y)
	if len(classes) < 2 {
		return fmt.Errorf("randomforest: need at least two classes, got %v", classes)
	}

	n := len(X)
	p := len(X[0])
	maxFeatures := rf.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = max(int(math.Sqrt(float64(p))), 1)
	}
	workers := rf.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trees := make([]*DecisionTreeClassifier, rf.NEstimators)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range trees {
		g.Go(func() error {
			treeRand := rand.New(rand.NewSource(rf.RandomState + int64(i)))

			sampleIndices := make([]int, n)
			for j := range sampleIndices {
				if rf.Bootstrap {
					sampleIndices[j] = treeRand.Intn(n)
				} else {
					sampleIndices[j] = j
				}
			}

			tree := NewDecisionTreeClassifier(
				WithMaxDepth(rf.MaxDepth),
				WithMinSamplesSplit(rf.MinSamplesSplit),
				WithMinSamplesLeaf(rf.MinSamplesLeaf),
				WithMaxFeatures(maxFeatures),
				WithRandomState(treeRand.Int63()),
			)
			if err := tree.FitSample(X, y, sampleIndices, classes); err != nil {
				return fmt.Errorf("randomforest: tree %d: %w", i, err)
			}
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	rf.Trees = trees
	rf.classes = classes
	rf.nFeatures = p
	return nil
}

// Classes returns the class labels in probability-column order.
func (rf *RandomForest) Classes() []int { return append([]int(nil), rf.classes...) }

// NFeatures returns the width of the training matrix.
func (rf *RandomForest) NFeatures() int { return rf.nFeatures }

// PredictProba averages the trees' class distributions for every row of X.
func (rf *RandomForest) PredictProba(X [][]float64) [][]float64 {
	perTree := make([][][]float64, len(rf.Trees))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, tree := range rf.Trees {
		g.Go(func() error {
			perTree[i] = tree.PredictProba(X)
			return nil
		})
	}
	_ = g.Wait()

	out := make([][]float64, len(X))
	nt := float64(len(rf.Trees))
	for r := range X {
		row := make([]float64, len(rf.classes))
		for _, probs := range perTree {
			for c, v := range probs[r] {
				row[c] += v
			}
		}
		for c := range row {
			row[c] /= nt
		}
		out[r] = row
	}
	return out
}

// PositiveProba returns the probability of class 1 for every row of X.
func (rf *RandomForest) PositiveProba(X [][]float64) []float64 {
	pos := -1
	for i, c := range rf.classes {
		if c == 1 {
			pos = i
		}
	}
	out := make([]float64, len(X))
	if pos < 0 {
		return out
	}
	for i, row := range rf.PredictProba(X) {
		out[i] = row[pos]
	}
	return out
}

// Predict returns the class with the highest mean probability. Ties go to
// the smaller label.
func (rf *RandomForest) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	for i, row := range rf.PredictProba(X) {
		out[i] = rf.classes[argmaxFloat(row)]
	}
	return out
}

// FeatureImportances returns the mean decrease in impurity per feature,
// averaged over the trees that split at least once and normalized to sum
// to 1.
func (rf *RandomForest) FeatureImportances() []float64 {
	out := make([]float64, rf.nFeatures)
	used := 0
	for _, tree := range rf.Trees {
		if tree.NodeCount() <= 1 {
			continue
		}
		used++
		for i, v := range tree.FeatureImportances() {
			out[i] += v
		}
	}
	if used == 0 {
		return out
	}
	total := 0.0
	for i := range out {
		out[i] /= float64(used)
		total += out[i]
	}
	if total > 0 {
		for i := range out {
			out[i] /= total
		}
	}
	return out
}
