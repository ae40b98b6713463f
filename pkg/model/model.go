package model

// Classifier is a fitted-in-place supervised classifier over integer labels.
type Classifier interface {
	Fit(X [][]float64, y []int) error
	Predict(X [][]float64) []int
	PredictProba(X [][]float64) [][]float64
	Classes() []int
}

// ImportanceReporter exposes per-feature importances that sum to 1.
type ImportanceReporter interface {
	FeatureImportances() []float64
}

var (
	_ Classifier         = (*DecisionTreeClassifier)(nil)
	_ Classifier         = (*RandomForest)(nil)
	_ ImportanceReporter = (*DecisionTreeClassifier)(nil)
	_ ImportanceReporter = (*RandomForest)(nil)
)
