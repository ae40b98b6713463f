package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// ---------------------------
// Types & options
// ---------------------------

// DecisionTreeClassifier is a CART-style classifier with axis-aligned
// "x <= threshold" splits.
type DecisionTreeClassifier struct {
	// Hyperparameters / options
	MaxDepth            int     // maximum depth (root depth = 0). 0 => no limit
	MinSamplesSplit     int     // minimum samples to attempt a split
	MinSamplesLeaf      int     // minimum samples required in each leaf
	Criterion           string  // "gini" (default) or "entropy"
	MaxFeatures         int     // 0 => use all features, >0 => features to draw at each split
	MinImpurityDecrease float64 // minimal impurity decrease to accept a split
	RandomState         int64   // seed for feature subsampling

	// internals
	root        *dtNode
	classes     []int     // class labels, ascending; probas are aligned with it
	nFeatures   int       // width of the training matrix
	importances []float64 // accumulated weighted impurity decrease per feature
	nodeCount   int
}

// dtNode holds a node in the tree.
type dtNode struct {
	isLeaf    bool
	feature   int
	threshold float64 // x <= threshold => left
	left      *dtNode
	right     *dtNode

	n         int
	probas    []float64 // class distribution of the training samples that reached the node
	predIndex int       // index into classes of the majority class
}

// Option functional config
type Option func(*DecisionTreeClassifier)

func WithMaxDepth(d int) Option { return func(t *DecisionTreeClassifier) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesSplit = n }
}
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesLeaf = n }
}
func WithCriterion(c string) Option { return func(t *DecisionTreeClassifier) { t.Criterion = c } }
func WithMaxFeatures(k int) Option  { return func(t *DecisionTreeClassifier) { t.MaxFeatures = k } }
func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeClassifier) { t.MinImpurityDecrease = v }
}
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeClassifier) { t.RandomState = seed }
}

// NewDecisionTreeClassifier returns a classifier with sensible defaults.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	d := &DecisionTreeClassifier{
		MaxDepth:            0,
		MinSamplesSplit:     2,
		MinSamplesLeaf:      1,
		Criterion:           "gini",
		MaxFeatures:         0,
		MinImpurityDecrease: 0.0,
		RandomState:         time.Now().UnixNano(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ---------------------------
// Public API
// ---------------------------

// Fit trains the decision tree on X (n x p) and y (n labels as ints).
// Every row must have the same width and no value may be NaN.
func (t *DecisionTreeClassifier) Fit(X [][]float64, y []int) error {
	if err := validateXY(X, y); err != nil {
		return fmt.Errorf("dtree: %w", err)
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	return t.FitSample(X, y, idx, uniqueClasses(y))
}

// FitSample trains on the rows of X listed in idx, which may repeat. The
// class list fixes the layout of the probability vectors, so trees fitted on
// different samples of the same data stay aligned even when a sample lacks
// a class. X and y are assumed to be validated.
func (t *DecisionTreeClassifier) FitSample(X [][]float64, y []int, idx []int, classes []int) error {
	if len(idx) == 0 {
		return errors.New("dtree: empty sample")
	}
	if len(classes) == 0 {
		return errors.New("dtree: no classes in y")
	}
	t.classes = append([]int(nil), classes...)
	t.nFeatures = len(X[0])
	t.importances = make([]float64, t.nFeatures)
	t.nodeCount = 0

	classPos := make(map[int]int, len(classes))
	for i, c := range classes {
		classPos[c] = i
	}
	yIdx := make([]int, len(y))
	for i, lab := range y {
		ci, ok := classPos[lab]
		if !ok {
			return fmt.Errorf("dtree: label %d not in class list", lab)
		}
		yIdx[i] = ci
	}

	b := &treeBuilder{
		tree:     t,
		X:        X,
		y:        yIdx,
		nClasses: len(classes),
		rnd:      rand.New(rand.NewSource(t.RandomState)),
	}
	if t.Criterion == "entropy" {
		b.impurity = entropyFromCounts
	} else {
		b.impurity = giniFromCounts
	}
	t.root = b.build(append([]int(nil), idx...), 0)
	return nil
}

// Predict returns the majority class of the leaf each row falls into.
func (t *DecisionTreeClassifier) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	for i := range X {
		out[i] = t.classes[argmaxFloat(t.predictProbaSingle(X[i]))]
	}
	return out
}

// PredictProba returns the per-class probability vectors for rows in X,
// aligned with Classes.
func (t *DecisionTreeClassifier) PredictProba(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i := range X {
		out[i] = t.predictProbaSingle(X[i])
	}
	return out
}

// Classes returns the class labels in probability-vector order.
func (t *DecisionTreeClassifier) Classes() []int { return append([]int(nil), t.classes...) }

// NodeCount returns the number of nodes in the fitted tree.
func (t *DecisionTreeClassifier) NodeCount() int { return t.nodeCount }

// FeatureImportances returns the impurity decrease contributed by each
// feature, normalized to sum to 1. A tree that never split returns zeros.
func (t *DecisionTreeClassifier) FeatureImportances() []float64 {
	out := make([]float64, len(t.importances))
	total := 0.0
	for _, v := range t.importances {
		total += v
	}
	if total <= 0 {
		return out
	}
	for i, v := range t.importances {
		out[i] = v / total
	}
	return out
}

// TreeNode is a flattened node. Nodes are numbered in pre-order, so the root
// is 0. Leaves carry the class distribution in Value; split nodes send rows
// with x[Feature] <= Threshold to Left.
type TreeNode struct {
	ID        int
	Leaf      bool
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Samples   int
	Value     []float64
}

// Nodes returns the fitted tree in pre-order.
func (t *DecisionTreeClassifier) Nodes() []TreeNode {
	var out []TreeNode
	var walk func(n *dtNode) int
	walk = func(n *dtNode) int {
		id := len(out)
		out = append(out, TreeNode{ID: id, Leaf: n.isLeaf, Samples: n.n})
		if n.isLeaf {
			out[id].Value = append([]float64(nil), n.probas...)
			return id
		}
		out[id].Feature = n.feature
		out[id].Threshold = n.threshold
		left := walk(n.left)
		right := walk(n.right)
		out[id].Left = left
		out[id].Right = right
		return id
	}
	if t.root != nil {
		walk(t.root)
	}
	return out
}

// ---------------------------
// Internal builders & helpers
// ---------------------------

type treeBuilder struct {
	tree     *DecisionTreeClassifier
	X        [][]float64
	y        []int // class positions
	nClasses int
	impurity func([]int) float64
	rnd      *rand.Rand
}

// splitResult holds the best split found at a node.
type splitResult struct {
	gain      float64
	feature   int
	threshold float64
	pos       int // samples [0,pos) of the sorted order go left
	order     []int
}

func (b *treeBuilder) leaf(node *dtNode, counts []int) *dtNode {
	node.isLeaf = true
	node.probas = countsToProbas(counts)
	node.predIndex = argmax(counts)
	return node
}

func (b *treeBuilder) build(idx []int, depth int) *dtNode {
	t := b.tree
	t.nodeCount++
	node := &dtNode{n: len(idx)}

	counts := make([]int, b.nClasses)
	for _, ii := range idx {
		counts[b.y[ii]]++
	}
	if isPure(counts) ||
		len(idx) < t.MinSamplesSplit ||
		len(idx) < 2*max(t.MinSamplesLeaf, 1) ||
		(t.MaxDepth > 0 && depth >= t.MaxDepth) {
		return b.leaf(node, counts)
	}

	parentImpurity := b.impurity(counts)
	best, ok := b.bestSplit(idx, counts, parentImpurity)
	if !ok || best.gain < t.MinImpurityDecrease {
		return b.leaf(node, counts)
	}

	left := best.order[:best.pos]
	right := best.order[best.pos:]
	lc := make([]int, b.nClasses)
	for _, ii := range left {
		lc[b.y[ii]]++
	}
	rc := make([]int, b.nClasses)
	for i := range rc {
		rc[i] = counts[i] - lc[i]
	}
	n := float64(len(idx))
	t.importances[best.feature] += n*parentImpurity -
		float64(len(left))*b.impurity(lc) - float64(len(right))*b.impurity(rc)

	node.feature = best.feature
	node.threshold = best.threshold
	node.probas = countsToProbas(counts)
	node.predIndex = argmax(counts)
	node.left = b.build(append([]int(nil), left...), depth+1)
	node.right = b.build(append([]int(nil), right...), depth+1)
	return node
}

// bestSplit draws features in random order and scans each one until
// MaxFeatures non-constant features have been evaluated.
func (b *treeBuilder) bestSplit(idx []int, counts []int, parentImpurity float64) (splitResult, bool) {
	t := b.tree
	p := t.nFeatures
	features := make([]int, p)
	for j := range features {
		features[j] = j
	}
	limit := p
	if t.MaxFeatures > 0 && t.MaxFeatures < p {
		limit = t.MaxFeatures
	}

	best := splitResult{gain: math.Inf(-1), feature: -1}
	visited := 0
	for i := 0; i < p && visited < limit; i++ {
		j := i + b.rnd.Intn(p-i)
		features[i], features[j] = features[j], features[i]
		f := features[i]

		res, constant := b.scanFeature(idx, counts, parentImpurity, f)
		if constant {
			continue
		}
		visited++
		if res.feature >= 0 && res.gain > best.gain {
			best = res
		}
	}
	return best, best.feature >= 0
}

// scanFeature sorts the node's samples on feature f and evaluates every
// boundary between distinct values with running class counts.
func (b *treeBuilder) scanFeature(idx []int, counts []int, parentImpurity float64, f int) (splitResult, bool) {
	X := b.X
	order := append([]int(nil), idx...)
	sort.SliceStable(order, func(a, c int) bool { return X[order[a]][f] < X[order[c]][f] })
	if X[order[0]][f] == X[order[len(order)-1]][f] {
		return splitResult{feature: -1}, true
	}

	minLeaf := max(b.tree.MinSamplesLeaf, 1)
	n := len(order)
	left := make([]int, b.nClasses)
	right := append([]int(nil), counts...)
	res := splitResult{gain: math.Inf(-1), feature: -1}

	for s := 1; s < n; s++ {
		ci := b.y[order[s-1]]
		left[ci]++
		right[ci]--

		lo, hi := X[order[s-1]][f], X[order[s]][f]
		if lo == hi || s < minLeaf || n-s < minLeaf {
			continue
		}
		weighted := (float64(s)*b.impurity(left) + float64(n-s)*b.impurity(right)) / float64(n)
		gain := parentImpurity - weighted
		if gain > res.gain {
			thr := lo + (hi-lo)/2
			if thr == hi {
				thr = lo
			}
			res = splitResult{gain: gain, feature: f, threshold: thr, pos: s}
		}
	}
	if res.feature >= 0 {
		res.order = order
	}
	return res, false
}

func validateXY(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errors.New("empty X")
	}
	if len(y) != len(X) {
		return errors.New("X and y length mismatch")
	}
	p := len(X[0])
	if p == 0 {
		return errors.New("X has no features")
	}
	for i, row := range X {
		if len(row) != p {
			return errors.New("inconsistent number of features in X rows")
		}
		for j, v := range row {
			if math.IsNaN(v) {
				return fmt.Errorf("NaN at row %d feature %d", i, j)
			}
		}
	}
	return nil
}

func uniqueClasses(y []int) []int {
	seen := make(map[int]struct{})
	var out []int
	for _, lab := range y {
		if _, ok := seen[lab]; !ok {
			seen[lab] = struct{}{}
			out = append(out, lab)
		}
	}
	sort.Ints(out)
	return out
}

func (t *DecisionTreeClassifier) predictProbaSingle(x []float64) []float64 {
	if t.root == nil {
		p := make([]float64, len(t.classes))
		for i := range p {
			p[i] = 1.0 / float64(len(p))
		}
		return p
	}
	node := t.root
	for !node.isLeaf {
		if x[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.probas
}

// ---------------------------
// Utilities: impurity & misc
// ---------------------------

func giniFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 1.0
	for _, c := range counts {
		p := float64(c) / n
		res -= p * p
	}
	return res
}

func entropyFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		res -= p * math.Log2(p)
	}
	return res
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func countsToProbas(counts []int) []float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	p := make([]float64, len(counts))
	if n == 0 {
		return p
	}
	for i := range counts {
		p[i] = float64(counts[i]) / float64(n)
	}
	return p
}

func argmax(counts []int) int {
	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return best
}

func argmaxFloat(arr []float64) int {
	best := 0
	for i := 1; i < len(arr); i++ {
		if arr[i] > arr[best] {
			best = i
		}
	}
	return best
}
