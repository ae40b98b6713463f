package onnx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/errs"
	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/model"
)

const (
	// IRVersion is the ONNX IR version written to the model.
	IRVersion = 8
	// MLDomain is the domain of the traditional ML operators.
	MLDomain = "ai.onnx.ml"

	InputName         = "float_input"
	LabelOutput       = "label"
	ProbabilityOutput = "probabilities"

	opTreeEnsembleClassifier = "TreeEnsembleClassifier"
	producerName             = "aqrisk"

	// Metadata keys written by Export.
	MetaFeatureNames = "feature_names"
	MetaRunID        = "run_id"
)

// Export converts a fitted random forest into an ONNX model with a single
// TreeEnsembleClassifier node. The input is a float32 tensor of shape
// [N, n_features]; outputs are the int64 label and float32 class
// probabilities. meta is stored as model metadata next to the feature names.
func Export(rf *model.RandomForest, featureNames []string, meta map[string]string) ([]byte, error) {
	m, err := BuildModel(rf, featureNames, meta)
	if err != nil {
		return nil, errs.Wrap(errs.KindONNXExport, err, "export onnx model")
	}
	return m.Marshal(), nil
}

// Save exports rf and writes the model to path, creating parent directories.
func Save(path string, rf *model.RandomForest, featureNames []string, meta map[string]string) error {
	b, err := Export(rf, featureNames, meta)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(errs.KindONNXExport, err, "create model directory")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errs.Wrap(errs.KindONNXExport, err, "write onnx model")
	}
	return nil
}

// BuildModel builds the model message without encoding it.
func BuildModel(rf *model.RandomForest, featureNames []string, meta map[string]string) (*Model, error) {
	if rf == nil || len(rf.Trees) == 0 {
		return nil, errors.New("forest is not fitted")
	}
	nFeatures := rf.NFeatures()
	if len(featureNames) != nFeatures {
		return nil, fmt.Errorf("%d feature names for %d features", len(featureNames), nFeatures)
	}
	classes := rf.Classes()
	if len(classes) != 2 {
		return nil, fmt.Errorf("binary classifier expected, got classes %v", classes)
	}

	var (
		treeIDs, nodeIDs, featureIDs, trueIDs, falseIDs []int64
		modes                                           []string
		values                                          []float32
		classTreeIDs, classNodeIDs, classIDs            []int64
		classWeights                                    []float32
	)
	nTrees := float64(len(rf.Trees))
	for t, tree := range rf.Trees {
		for _, n := range tree.Nodes() {
			treeIDs = append(treeIDs, int64(t))
			nodeIDs = append(nodeIDs, int64(n.ID))
			if n.Leaf {
				featureIDs = append(featureIDs, 0)
				modes = append(modes, "LEAF")
				values = append(values, 0)
				trueIDs = append(trueIDs, 0)
				falseIDs = append(falseIDs, 0)
				for c, p := range n.Value {
					classTreeIDs = append(classTreeIDs, int64(t))
					classNodeIDs = append(classNodeIDs, int64(n.ID))
					classIDs = append(classIDs, int64(c))
					classWeights = append(classWeights, float32(p/nTrees))
				}
				continue
			}
			featureIDs = append(featureIDs, int64(n.Feature))
			modes = append(modes, "BRANCH_LEQ")
			values = append(values, float32(n.Threshold))
			trueIDs = append(trueIDs, int64(n.Left))
			falseIDs = append(falseIDs, int64(n.Right))
		}
	}

	labels := make([]int64, len(classes))
	for i, c := range classes {
		labels[i] = int64(c)
	}

	node := Node{
		Name:    "TreeEnsembleClassifier",
		OpType:  opTreeEnsembleClassifier,
		Domain:  MLDomain,
		Inputs:  []string{InputName},
		Outputs: []string{LabelOutput, ProbabilityOutput},
		Attributes: []Attribute{
			{Name: "class_ids", Type: AttrInts, Ints: classIDs},
			{Name: "class_nodeids", Type: AttrInts, Ints: classNodeIDs},
			{Name: "class_treeids", Type: AttrInts, Ints: classTreeIDs},
			{Name: "class_weights", Type: AttrFloats, Floats: classWeights},
			{Name: "classlabels_int64s", Type: AttrInts, Ints: labels},
			{Name: "nodes_falsenodeids", Type: AttrInts, Ints: falseIDs},
			{Name: "nodes_featureids", Type: AttrInts, Ints: featureIDs},
			{Name: "nodes_modes", Type: AttrStrings, Strings: modes},
			{Name: "nodes_nodeids", Type: AttrInts, Ints: nodeIDs},
			{Name: "nodes_treeids", Type: AttrInts, Ints: treeIDs},
			{Name: "nodes_truenodeids", Type: AttrInts, Ints: trueIDs},
			{Name: "nodes_values", Type: AttrFloats, Floats: values},
			{Name: "post_transform", Type: AttrString, S: "NONE"},
		},
	}

	m := &Model{
		IRVersion:       IRVersion,
		Opsets:          []OperatorSet{{Domain: MLDomain, Version: 3}, {Domain: "", Version: 15}},
		ProducerName:    producerName,
		ProducerVersion: "1.0",
		ModelVersion:    1,
		DocString:       "air quality future risk classifier",
		Graph: Graph{
			Name:  "air_quality_risk",
			Nodes: []Node{node},
			Inputs: []ValueInfo{{
				Name:     InputName,
				ElemType: ElemFloat,
				Dims:     []Dim{{Param: "N"}, {Value: int64(nFeatures)}},
			}},
			Outputs: []ValueInfo{
				{Name: LabelOutput, ElemType: ElemInt64, Dims: []Dim{{Param: "N"}}},
				{Name: ProbabilityOutput, ElemType: ElemFloat, Dims: []Dim{{Param: "N"}, {Value: int64(len(classes))}}},
			},
		},
		Metadata: []KeyValue{{Key: MetaFeatureNames, Value: strings.Join(featureNames, ",")}},
	}
	for _, k := range sortedKeys(meta) {
		m.Metadata = append(m.Metadata, KeyValue{Key: k, Value: meta[k]})
	}
	return m, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
