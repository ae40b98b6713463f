package report

import (
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aqrisk"

// WriteTextfile writes the run's metrics in the Prometheus text format, for
// pickup by a node exporter textfile collector.
func WriteTextfile(path string, s Summary) error {
	reg := prometheus.NewRegistry()

	gauge := func(name, help string, v float64) {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
		g.Set(v)
		reg.MustRegister(g)
	}
	gauge("accuracy", "Test set accuracy of the last run.", s.Accuracy)
	gauge("roc_auc", "Test set ROC AUC of the last run.", s.ROCAUC)
	gauge("dataset_rows", "Usable rows after preprocessing.", float64(s.Rows))
	gauge("train_rows", "Rows in the training split.", float64(s.TrainRows))
	gauge("test_rows", "Rows in the test split.", float64(s.TestRows))
	gauge("positive_rate", "Share of rows labelled unhealthy.", s.PositiveRate)
	gauge("training_duration_seconds", "Wall time spent fitting the model.", s.TrainingTime.Seconds())
	gauge("onnx_agreement_ratio", "Share of test rows where the exported model agrees with the forest.", s.ONNXAgreement)
	gauge("last_run_timestamp_seconds", "Unix time the last run finished.", float64(s.FinishedAt.Unix()))

	classScores := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "class_score",
		Help:      "Per-class test set scores.",
	}, []string{"class", "metric"})
	for _, c := range s.Report.Classes {
		classScores.WithLabelValues(c.Label, "precision").Set(c.Precision)
		classScores.WithLabelValues(c.Label, "recall").Set(c.Recall)
		classScores.WithLabelValues(c.Label, "f1").Set(c.F1)
		classScores.WithLabelValues(c.Label, "support").Set(float64(c.Support))
	}
	reg.MustRegister(classScores)

	importance := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "feature_importance",
		Help:      "Mean decrease in impurity per feature.",
	}, []string{"feature"})
	for _, f := range s.Features {
		importance.WithLabelValues(f.Name).Set(f.Importance)
	}
	reg.MustRegister(importance)

	threshold := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "label_threshold",
		Help:      "Dynamic threshold per target column.",
	}, []string{"target"})
	for name, v := range s.Thresholds {
		threshold.WithLabelValues(name).Set(v)
	}
	reg.MustRegister(threshold)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, reg)
}
