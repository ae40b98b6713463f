package dataprep

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/stats"
)

const (
	// DefaultThresholdQuantile is the quantile of each target column above
	// which a future reading counts as unhealthy.
	DefaultThresholdQuantile = 0.75
	// LabelColumn names the label series.
	LabelColumn = "label"
)

type labelConfig struct {
	quantile float64
}

// LabelOption configures GenerateFutureLabels.
type LabelOption func(*labelConfig)

// WithQuantile overrides the threshold quantile.
func WithQuantile(q float64) LabelOption { return func(c *labelConfig) { c.quantile = q } }

// DynamicThreshold returns the q-th quantile of the observed values.
func DynamicThreshold(values []float64, q float64) float64 {
	return stats.Quantile(values, q)
}

// DynamicThresholds computes the threshold of every target column over the
// whole, unshifted table.
func DynamicThresholds(df dataframe.DataFrame, targets []string, q float64) (map[string]float64, error) {
	if q <= 0 || q >= 1 {
		return nil, fmt.Errorf("threshold quantile must be in (0,1), got %v", q)
	}
	if err := requireColumns(df, targets...); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(targets))
	for _, name := range targets {
		col := df.Col(name)
		if !isNumeric(col) {
			return nil, fmt.Errorf("%w: %q", ErrNotNumeric, name)
		}
		out[name] = DynamicThreshold(col.Float(), q)
	}
	return out, nil
}

// GenerateFutureLabels labels row i with 1 when any target column's value at
// row i+horizon exceeds that column's dynamic threshold, and 0 otherwise.
// The result has one entry per row of df. The last horizon rows have no
// future value and are NaN; the caller is expected to trim them. A row whose
// future values are all missing is NaN as well.
//
// The threshold is taken over the full table, so it sees the same sample the
// labels are drawn from.
func GenerateFutureLabels(df dataframe.DataFrame, targets []string, horizon int, opts ...LabelOption) (series.Series, error) {
	cfg := labelConfig{quantile: DefaultThresholdQuantile}
	for _, o := range opts {
		o(&cfg)
	}
	if horizon < 1 {
		return series.Series{}, fmt.Errorf("horizon must be >= 1, got %d", horizon)
	}
	if len(targets) == 0 {
		return series.Series{}, errors.New("no target columns")
	}
	thresholds, err := DynamicThresholds(df, targets, cfg.quantile)
	if err != nil {
		return series.Series{}, err
	}

	n := df.Nrow()
	labels := make([]float64, n)
	for i := range labels {
		labels[i] = math.NaN()
	}
	for _, name := range targets {
		vals := df.Col(name).Float()
		thr := thresholds[name]
		for i := 0; i+horizon < n; i++ {
			future := vals[i+horizon]
			if math.IsNaN(future) {
				continue
			}
			if future > thr {
				labels[i] = 1
			} else if math.IsNaN(labels[i]) {
				labels[i] = 0
			}
		}
	}
	return series.New(labels, series.Float, LabelColumn), nil
}
