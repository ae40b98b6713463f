// Package pipeline turns a cleaned air-quality table into a labelled feature
// dataset and runs the whole train, export and evaluate sequence.
package pipeline

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"go.uber.org/zap"

	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/config"
	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/dataprep"
	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/errs"
)

// combinedTimestamp names the column built from separate date and time
// columns.
const combinedTimestamp = "timestamp"

// Options configures Preprocess.
type Options struct {
	TimestampColumn   string
	TimeColumn        string // optional; joined onto TimestampColumn when present
	SensorFeatures    []string
	TargetColumns     []string
	Horizon           int
	UseTimeFeatures   bool
	ThresholdQuantile float64

	Logger *zap.Logger
}

// OptionsFromConfig maps the preprocess section of the run configuration.
func OptionsFromConfig(c config.PreprocessConfig) Options {
	return Options{
		TimestampColumn:   c.TimestampColumn,
		TimeColumn:        c.TimeColumn,
		SensorFeatures:    c.SensorFeatures,
		TargetColumns:     c.TargetColumns,
		Horizon:           c.Horizon,
		UseTimeFeatures:   c.UseTimeFeatures,
		ThresholdQuantile: c.ThresholdQuantile,
	}
}

// Dataset is the model-ready output of Preprocess. Row i of Features and
// Labels[i] describe the same timestamp.
type Dataset struct {
	Features   dataframe.DataFrame
	Labels     []int
	Thresholds map[string]float64
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Labels) }

// Names returns the feature column names in matrix order.
func (d *Dataset) Names() []string { return d.Features.Names() }

// Schema describes the feature columns.
func (d *Dataset) Schema() Schema { return SchemaOf(d.Features) }

// Matrix returns the features as row-major float64 slices.
func (d *Dataset) Matrix() [][]float64 {
	names := d.Features.Names()
	cols := make([][]float64, len(names))
	for j, name := range names {
		cols[j] = d.Features.Col(name).Float()
	}
	X := make([][]float64, d.Features.Nrow())
	for i := range X {
		row := make([]float64, len(cols))
		for j := range cols {
			row[j] = cols[j][i]
		}
		X[i] = row
	}
	return X
}

// PositiveRate returns the share of rows labelled 1.
func (d *Dataset) PositiveRate() float64 {
	if len(d.Labels) == 0 {
		return 0
	}
	n := 0
	for _, l := range d.Labels {
		n += l
	}
	return float64(n) / float64(len(d.Labels))
}

// Preprocess sorts df by time, derives calendar features, selects the model
// inputs and labels every row by whether any target exceeds its threshold
// Horizon rows later. The last Horizon rows have no label and are dropped.
// Remaining feature gaps are filled with the column median and remaining
// label gaps with 0.
func Preprocess(df dataframe.DataFrame, opts Options) (*Dataset, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	fail := func(err error) (*Dataset, error) {
		return nil, errs.Wrap(errs.KindPreprocessing, err, "preprocess")
	}
	if opts.Horizon < 1 {
		return fail(fmt.Errorf("horizon must be >= 1, got %d", opts.Horizon))
	}
	q := opts.ThresholdQuantile
	if q == 0 {
		q = dataprep.DefaultThresholdQuantile
	}

	tsCol := opts.TimestampColumn
	p := NewPipeline(log)
	if opts.TimeColumn != "" && hasColumn(df, opts.TimeColumn) {
		p.Then("combine date and time", func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
			return dataprep.CombineDateTime(df, opts.TimestampColumn, opts.TimeColumn, combinedTimestamp)
		})
		tsCol = combinedTimestamp
	}
	p.Then("sort by time", func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		return dataprep.SortByTimestamp(df, tsCol)
	}).Then("extract time features", func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
		return dataprep.ExtractTimeFeatures(df, tsCol)
	})

	sorted, err := p.Transform(df)
	if err != nil {
		return fail(err)
	}

	X, err := dataprep.SelectFeatures(sorted, opts.SensorFeatures, opts.UseTimeFeatures)
	if err != nil {
		return fail(err)
	}
	thresholds, err := dataprep.DynamicThresholds(sorted, opts.TargetColumns, q)
	if err != nil {
		return fail(err)
	}
	labels, err := dataprep.GenerateFutureLabels(sorted, opts.TargetColumns, opts.Horizon, dataprep.WithQuantile(q))
	if err != nil {
		return fail(err)
	}
	for name, thr := range thresholds {
		log.Info("dynamic threshold", zap.String("target", name), zap.Float64("threshold", thr))
	}

	n := sorted.Nrow() - opts.Horizon
	if n <= 0 {
		return nil, errs.Newf(errs.KindEmptyDataset,
			"no rows left after shifting %d rows by horizon %d", sorted.Nrow(), opts.Horizon)
	}
	keep := make([]int, n)
	for i := range keep {
		keep[i] = i
	}
	X = X.Subset(keep)
	if X.Err != nil {
		return fail(X.Err)
	}
	X, err = dataprep.FillMedian(X)
	if err != nil {
		return fail(err)
	}

	raw := labels.Float()[:n]
	y := make([]int, n)
	for i, v := range raw {
		if !math.IsNaN(v) && v != 0 {
			y[i] = 1
		}
	}

	ds := &Dataset{Features: X, Labels: y, Thresholds: thresholds}
	log.Info("preprocessed",
		zap.Int("rows", ds.Len()),
		zap.Strings("features", ds.Names()),
		zap.Float64("positive_rate", ds.PositiveRate()),
	)
	return ds, nil
}

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}
