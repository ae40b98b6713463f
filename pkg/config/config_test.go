package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsMatchReferenceSettings(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 0.8, cfg.Model.TrainRatio)
	assert.Equal(t, int64(42), cfg.Model.RandomState)
	assert.Equal(t, 100, cfg.Model.NEstimators)
	assert.Equal(t, 0, cfg.Model.MaxDepth)
	assert.Equal(t, []string{"CO(GT)", "NO2(GT)", "NOx(GT)", "C6H6(GT)", "T", "RH", "AH"}, cfg.Preprocess.SensorFeatures)
	assert.Equal(t, []string{"CO(GT)"}, cfg.Preprocess.TargetColumns)
	assert.Equal(t, 1, cfg.Preprocess.Horizon)
	assert.True(t, cfg.Preprocess.UseTimeFeatures)
	assert.Equal(t, 0.75, cfg.Preprocess.ThresholdQuantile)
	assert.True(t, cfg.Data.UseSyntheticData)
	assert.Equal(t, 2000, cfg.Data.SyntheticRows)
	assert.Equal(t, time.Hour, cfg.Data.SyntheticFreq)
	assert.Equal(t, -200.0, cfg.Data.Sentinel)
	assert.Equal(t, filepath.Join("data", "raw", "AirQualityUCI_synthetic.csv"), cfg.SyntheticDataPath())
	assert.Equal(t, filepath.Join("results", "air_quality_model.onnx"), cfg.ResultPath(cfg.Output.ModelFile))
	require.NoError(t, cfg.Validate())
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("AQRISK_PREPROCESS_HORIZON", "3")
	t.Setenv("AQRISK_DATA_USE_SYNTHETIC_DATA", "false")
	t.Setenv("AQRISK_MODEL_N_ESTIMATORS", "25")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Preprocess.Horizon)
	assert.False(t, cfg.Data.UseSyntheticData)
	assert.Equal(t, 25, cfg.Model.NEstimators)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aqrisk.yaml")
	body := []byte(`
preprocess:
  target_columns: ["CO(GT)", "NO2(GT)"]
  horizon: 6
model:
  train_ratio: 0.7
output:
  results_dir: out
`)
	require.NoError(t, os.WriteFile(path, body, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"CO(GT)", "NO2(GT)"}, cfg.Preprocess.TargetColumns)
	assert.Equal(t, 6, cfg.Preprocess.Horizon)
	assert.Equal(t, 0.7, cfg.Model.TrainRatio)
	assert.Equal(t, filepath.Join("out", "roc_curve.png"), cfg.ResultPath(cfg.Output.ROCPlot))
	// untouched keys keep their defaults
	assert.Equal(t, 100, cfg.Model.NEstimators)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Model.TrainRatio = 1
	cfg.Preprocess.Horizon = 0
	cfg.Preprocess.TargetColumns = nil

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "train_ratio")
	assert.Contains(t, err.Error(), "horizon")
	assert.Contains(t, err.Error(), "target_columns")
}
