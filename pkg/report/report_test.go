package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/model"
)

func sampleSummary() Summary {
	yTrue := []int{0, 0, 0, 1, 1, 1}
	yPred := []int{0, 1, 0, 1, 1, 0}
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return Summary{
		RunID:           "b6a2d8f4-1111-4a4a-9c9c-000000000001",
		StartedAt:       start,
		FinishedAt:      start.Add(3 * time.Second),
		Dataset:         "data/raw/AirQualityUCI_synthetic.csv",
		Rows:            999,
		Horizon:         1,
		Thresholds:      map[string]float64{"CO(GT)": 2.4},
		TrainRows:       799,
		TestRows:        200,
		PositiveRate:    0.25,
		Accuracy:        model.AccuracyInt(yTrue, yPred),
		ROCAUC:          0.75,
		Report:          model.NewClassificationReport(yTrue, yPred, []int{0, 1}, ClassNames),
		ConfusionMatrix: model.ConfusionMatrix(yTrue, yPred, []int{0, 1}),
		Features:        RankFeatures([]string{"CO(GT)", "T", "hour"}, []float64{0.5, 0.2, 0.3}),
		ModelPath:       "results/air_quality_model.onnx",
		ONNXAgreement:   1,
		TrainingTime:    1500 * time.Millisecond,
	}
}

func TestRankFeatures(t *testing.T) {
	got := RankFeatures([]string{"a", "b", "c"}, []float64{0.1, 0.6, 0.3})
	assert.Equal(t, []FeatureScore{{"b", 0.6}, {"c", 0.3}, {"a", 0.1}}, got)
}

func TestWriteClassificationReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteClassificationReport(&buf, sampleSummary().Report))
	out := buf.String()

	for _, want := range []string{"precision", "recall", "f1-score", "support", "Healthy", "Unhealthy", "accuracy", "macro avg", "weighted avg", "0.67"} {
		assert.Contains(t, out, want)
	}
}

func TestWriteConfusionMatrix(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteConfusionMatrix(&buf, [][]int{{5, 1}, {2, 7}}, ClassNames))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "Healthy")
	assert.Contains(t, lines[2], "7")
}

func TestSummaryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results", "metrics.yaml")
	s := sampleSummary()
	require.NoError(t, WriteSummary(path, s))

	got, err := ReadSummary(path)
	require.NoError(t, err)
	assert.Equal(t, s.RunID, got.RunID)
	assert.True(t, s.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, s.ConfusionMatrix, got.ConfusionMatrix)
	assert.Equal(t, s.Features, got.Features)
	assert.Equal(t, s.TrainingTime, got.TrainingTime)
	assert.InDelta(t, s.Report.MacroAvg.F1, got.Report.MacroAvg.F1, 1e-12)
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aqrisk.prom")
	require.NoError(t, WriteTextfile(path, sampleSummary()))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, "aqrisk_accuracy ")
	assert.Contains(t, out, "aqrisk_roc_auc 0.75")
	assert.Contains(t, out, `aqrisk_feature_importance{feature="CO(GT)"} 0.5`)
	assert.Contains(t, out, `aqrisk_class_score{class="Unhealthy",metric="support"} 3`)
	assert.Contains(t, out, `aqrisk_label_threshold{target="CO(GT)"} 2.4`)
}

func TestPlots(t *testing.T) {
	dir := t.TempDir()
	roc, err := model.ROC([]int{0, 0, 1, 1}, []float64{0.1, 0.4, 0.35, 0.8})
	require.NoError(t, err)

	files := map[string]func(string) error{
		"roc_curve.png": func(p string) error { return PlotROC(p, roc) },
		"confusion_matrix.png": func(p string) error {
			return PlotConfusionMatrix(p, [][]int{{5, 1}, {2, 7}}, ClassNames)
		},
		"feature_importance.png": func(p string) error {
			return PlotFeatureImportance(p, []string{"CO(GT)", "T", "hour"}, []float64{0.5, 0.2, 0.3})
		},
	}
	for name, draw := range files {
		path := filepath.Join(dir, "plots", name)
		require.NoError(t, draw(path), name)
		info, err := os.Stat(path)
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}
}

func TestPlotConfusionMatrixUniform(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cm.png")
	require.NoError(t, PlotConfusionMatrix(path, [][]int{{0, 0}, {0, 0}}, ClassNames))
	assert.Error(t, PlotConfusionMatrix(path, [][]int{{1, 2}, {3, 4}}, []string{"only"}))
}
