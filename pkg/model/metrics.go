package model

import (
	"errors"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Classification metrics (labels are ints)

func AccuracyInt(yTrue []int, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

// PrecisionRecallF1 scores the predictions of class positive.
func PrecisionRecallF1(yTrue []int, yPred []int, positive int) (prec, rec, f1 float64) {
	tp, fp, fn := 0, 0, 0
	for i := range yTrue {
		switch {
		case yPred[i] == positive && yTrue[i] == positive:
			tp++
		case yPred[i] == positive:
			fp++
		case yTrue[i] == positive:
			fn++
		}
	}
	if tp+fp > 0 {
		prec = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		rec = float64(tp) / float64(tp+fn)
	}
	if prec+rec > 0 {
		f1 = 2 * prec * rec / (prec + rec)
	}
	return
}

// ConfusionMatrix counts rows by (true, predicted) label. Row i and column j
// follow the order of labels.
func ConfusionMatrix(yTrue, yPred []int, labels []int) [][]int {
	pos := make(map[int]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}
	cm := make([][]int, len(labels))
	for i := range cm {
		cm[i] = make([]int, len(labels))
	}
	for i := range yTrue {
		ti, ok1 := pos[yTrue[i]]
		pi, ok2 := pos[yPred[i]]
		if ok1 && ok2 {
			cm[ti][pi]++
		}
	}
	return cm
}

// ClassScore holds the per-class scores of a classification report.
type ClassScore struct {
	Label     string  `yaml:"label"`
	Precision float64 `yaml:"precision"`
	Recall    float64 `yaml:"recall"`
	F1        float64 `yaml:"f1"`
	Support   int     `yaml:"support"`
}

// ClassificationReport summarizes a binary or multi-class prediction.
type ClassificationReport struct {
	Classes     []ClassScore `yaml:"classes"`
	Accuracy    float64      `yaml:"accuracy"`
	MacroAvg    ClassScore   `yaml:"macro_avg"`
	WeightedAvg ClassScore   `yaml:"weighted_avg"`
	Total       int          `yaml:"total"`
}

// NewClassificationReport scores every label in labels; names gives their
// display names and defaults to the label number.
func NewClassificationReport(yTrue, yPred []int, labels []int, names []string) ClassificationReport {
	r := ClassificationReport{
		Accuracy:    AccuracyInt(yTrue, yPred),
		Total:       len(yTrue),
		MacroAvg:    ClassScore{Label: "macro avg"},
		WeightedAvg: ClassScore{Label: "weighted avg"},
	}
	for i, l := range labels {
		p, rc, f := PrecisionRecallF1(yTrue, yPred, l)
		support := 0
		for _, v := range yTrue {
			if v == l {
				support++
			}
		}
		name := strconv.Itoa(l)
		if i < len(names) {
			name = names[i]
		}
		r.Classes = append(r.Classes, ClassScore{Label: name, Precision: p, Recall: rc, F1: f, Support: support})
	}
	if len(labels) == 0 {
		return r
	}
	for _, c := range r.Classes {
		r.MacroAvg.Precision += c.Precision / float64(len(labels))
		r.MacroAvg.Recall += c.Recall / float64(len(labels))
		r.MacroAvg.F1 += c.F1 / float64(len(labels))
		if r.Total > 0 {
			w := float64(c.Support) / float64(r.Total)
			r.WeightedAvg.Precision += c.Precision * w
			r.WeightedAvg.Recall += c.Recall * w
			r.WeightedAvg.F1 += c.F1 * w
		}
	}
	r.MacroAvg.Support = r.Total
	r.WeightedAvg.Support = r.Total
	return r
}

// ErrSingleClass is returned by ROC when the truth holds only one class.
var ErrSingleClass = errors.New("roc: truth must contain both classes")

// ROCCurve is the receiver operating characteristic of a binary scorer.
// Points run from (0,0) to (1,1) with decreasing threshold.
type ROCCurve struct {
	FPR        []float64
	TPR        []float64
	Thresholds []float64
	AUC        float64
}

// ROC computes the curve of scores against yTrue, where label 1 is the
// positive class, and its area by the trapezoidal rule.
func ROC(yTrue []int, scores []float64) (ROCCurve, error) {
	if len(yTrue) != len(scores) {
		return ROCCurve{}, errors.New("roc: length mismatch")
	}
	y := append([]float64(nil), scores...)
	classes := make([]bool, len(yTrue))
	pos, neg := 0, 0
	for i, v := range yTrue {
		classes[i] = v == 1
		if classes[i] {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return ROCCurve{}, ErrSingleClass
	}
	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, thresh := stat.ROC(nil, y, classes, nil)

	if !sort.Float64sAreSorted(fpr) {
		return ROCCurve{}, errors.New("roc: fpr not monotone")
	}
	return ROCCurve{
		FPR:        fpr,
		TPR:        tpr,
		Thresholds: thresh,
		AUC:        integrate.Trapezoidal(fpr, tpr),
	}, nil
}
