package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/model"
)

// Summary is the machine-readable record of one pipeline run.
type Summary struct {
	RunID        string             `yaml:"run_id"`
	StartedAt    time.Time          `yaml:"started_at"`
	FinishedAt   time.Time          `yaml:"finished_at"`
	Dataset      string             `yaml:"dataset"`
	Rows         int                `yaml:"rows"`
	Horizon      int                `yaml:"horizon"`
	Thresholds   map[string]float64 `yaml:"thresholds"`
	TrainRows    int                `yaml:"train_rows"`
	TestRows     int                `yaml:"test_rows"`
	PositiveRate float64            `yaml:"positive_rate"`

	Accuracy        float64                    `yaml:"accuracy"`
	ROCAUC          float64                    `yaml:"roc_auc"`
	Report          model.ClassificationReport `yaml:"classification_report"`
	ConfusionMatrix [][]int                    `yaml:"confusion_matrix"`
	Features        []FeatureScore             `yaml:"feature_importance"`

	ModelPath     string        `yaml:"model_path"`
	ONNXAgreement float64       `yaml:"onnx_agreement"`
	TrainingTime  time.Duration `yaml:"training_time"`
}

// WriteSummary writes s to path as YAML.
func WriteSummary(path string, s Summary) error {
	b, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// ReadSummary loads a summary written by WriteSummary.
func ReadSummary(path string) (Summary, error) {
	var s Summary
	b, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("unmarshal summary: %w", err)
	}
	return s, nil
}
