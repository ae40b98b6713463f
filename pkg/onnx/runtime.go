package onnx

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
)

// Session evaluates a model holding a single TreeEnsembleClassifier node
// with post_transform NONE.
type Session struct {
	Model        *Model
	FeatureNames []string

	nFeatures int
	labels    []int64
	roots     []int // node index of each tree's root
	nodes     []ensembleNode
}

type ensembleNode struct {
	leaf      bool
	feature   int
	threshold float32
	left      int // index into Session.nodes
	right     int
	weights   []float32 // per class, leaves only
}

// Load reads and decodes an exported model.
func Load(path string) (*Session, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("onnx: %w", err)
	}
	m, err := Unmarshal(b)
	if err != nil {
		return nil, err
	}
	return NewSession(m)
}

// NewSession rebuilds the tree ensemble described by m.
func NewSession(m *Model) (*Session, error) {
	var node *Node
	for i := range m.Graph.Nodes {
		if m.Graph.Nodes[i].OpType == opTreeEnsembleClassifier {
			node = &m.Graph.Nodes[i]
			break
		}
	}
	if node == nil {
		return nil, errors.New("onnx: model has no TreeEnsembleClassifier node")
	}
	if pt, ok := node.Attribute("post_transform"); ok && pt.S != "" && pt.S != "NONE" {
		return nil, fmt.Errorf("onnx: unsupported post_transform %q", pt.S)
	}

	ints := func(name string) []int64 {
		if a, ok := node.Attribute(name); ok {
			return a.Ints
		}
		return nil
	}
	treeIDs := ints("nodes_treeids")
	nodeIDs := ints("nodes_nodeids")
	featureIDs := ints("nodes_featureids")
	trueIDs := ints("nodes_truenodeids")
	falseIDs := ints("nodes_falsenodeids")
	var modes []string
	if a, ok := node.Attribute("nodes_modes"); ok {
		modes = a.Strings
	}
	var values []float32
	if a, ok := node.Attribute("nodes_values"); ok {
		values = a.Floats
	}
	n := len(nodeIDs)
	for _, l := range [][]int64{treeIDs, featureIDs, trueIDs, falseIDs} {
		if len(l) != n {
			return nil, errors.New("onnx: node attribute lengths differ")
		}
	}
	if len(modes) != n || len(values) != n {
		return nil, errors.New("onnx: node attribute lengths differ")
	}

	s := &Session{Model: m, labels: ints("classlabels_int64s")}
	if len(s.labels) == 0 {
		return nil, errors.New("onnx: classlabels_int64s is empty")
	}
	if names, ok := m.MetadataValue(MetaFeatureNames); ok && names != "" {
		s.FeatureNames = strings.Split(names, ",")
	}
	for _, in := range m.Graph.Inputs {
		if in.Name == InputName && len(in.Dims) == 2 {
			s.nFeatures = int(in.Dims[1].Value)
		}
	}

	type key struct{ tree, node int64 }
	index := make(map[key]int, n)
	s.nodes = make([]ensembleNode, n)
	for i := range n {
		index[key{treeIDs[i], nodeIDs[i]}] = i
	}
	rootOf := make(map[int64]int)
	for i := range n {
		k := key{treeIDs[i], nodeIDs[i]}
		if r, ok := rootOf[k.tree]; !ok || nodeIDs[i] < nodeIDs[r] {
			rootOf[k.tree] = i
		}
		en := ensembleNode{feature: int(featureIDs[i]), threshold: values[i]}
		switch modes[i] {
		case "LEAF":
			en.leaf = true
			en.weights = make([]float32, len(s.labels))
		case "BRANCH_LEQ":
			l, okL := index[key{k.tree, trueIDs[i]}]
			r, okR := index[key{k.tree, falseIDs[i]}]
			if !okL || !okR {
				return nil, fmt.Errorf("onnx: tree %d node %d has a dangling child", k.tree, k.node)
			}
			en.left, en.right = l, r
		default:
			return nil, fmt.Errorf("onnx: unsupported node mode %q", modes[i])
		}
		s.nodes[i] = en
	}

	classTrees := ints("class_treeids")
	classNodes := ints("class_nodeids")
	classIDs := ints("class_ids")
	var weights []float32
	if a, ok := node.Attribute("class_weights"); ok {
		weights = a.Floats
	}
	if len(classNodes) != len(classTrees) || len(classIDs) != len(classTrees) || len(weights) != len(classTrees) {
		return nil, errors.New("onnx: class attribute lengths differ")
	}
	for i := range classTrees {
		idx, ok := index[key{classTrees[i], classNodes[i]}]
		if !ok || !s.nodes[idx].leaf {
			return nil, fmt.Errorf("onnx: class weight on unknown leaf %d/%d", classTrees[i], classNodes[i])
		}
		c := int(classIDs[i])
		if c < 0 || c >= len(s.labels) {
			return nil, fmt.Errorf("onnx: class id %d out of range", c)
		}
		s.nodes[idx].weights[c] += weights[i]
	}

	trees := make([]int64, 0, len(rootOf))
	for t := range rootOf {
		trees = append(trees, t)
	}
	slices.Sort(trees)
	for _, t := range trees {
		s.roots = append(s.roots, rootOf[t])
	}
	return s, nil
}

// NFeatures returns the declared input width, or 0 if the model does not
// fix it.
func (s *Session) NFeatures() int { return s.nFeatures }

// Run scores every row of X. It returns the predicted label and the class
// scores summed over trees, in classlabels order.
func (s *Session) Run(X [][]float32) ([]int64, [][]float32, error) {
	labels := make([]int64, len(X))
	probs := make([][]float32, len(X))
	for r, x := range X {
		if s.nFeatures > 0 && len(x) != s.nFeatures {
			return nil, nil, fmt.Errorf("onnx: row %d has %d features, want %d", r, len(x), s.nFeatures)
		}
		scores := make([]float32, len(s.labels))
		for _, root := range s.roots {
			i := root
			for !s.nodes[i].leaf {
				nd := &s.nodes[i]
				if nd.feature >= len(x) {
					return nil, nil, fmt.Errorf("onnx: feature %d out of range", nd.feature)
				}
				if x[nd.feature] <= nd.threshold {
					i = nd.left
				} else {
					i = nd.right
				}
			}
			for c, w := range s.nodes[i].weights {
				scores[c] += w
			}
		}
		best := 0
		for c := 1; c < len(scores); c++ {
			if scores[c] > scores[best] {
				best = c
			}
		}
		labels[r] = s.labels[best]
		probs[r] = scores
	}
	return labels, probs, nil
}

// ToFloat32 converts a float64 matrix to the model's input precision.
func ToFloat32(X [][]float64) [][]float32 {
	out := make([][]float32, len(X))
	for i, row := range X {
		r := make([]float32, len(row))
		for j, v := range row {
			r[j] = float32(v)
		}
		out[i] = r
	}
	return out
}
