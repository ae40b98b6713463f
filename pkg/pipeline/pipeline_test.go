package pipeline

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/config"
	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/dataprep"
	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/errs"
	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/report"
	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/runstore"
)

// hourly builds a table with one row per hour starting Saturday 2005-01-01.
func hourly(co []float64) dataframe.DataFrame {
	dates := make([]string, len(co))
	times := make([]string, len(co))
	for i := range co {
		dates[i] = "2005-01-01"
		times[i] = []string{"00", "01", "02", "03", "04", "05", "06", "07", "08", "09", "10", "11"}[i%12] + ":00:00"
	}
	return dataframe.New(
		series.New(dates, series.String, "Date"),
		series.New(times, series.String, "Time"),
		series.New(co, series.Float, "CO(GT)"),
	)
}

func tenRowOptions() Options {
	return Options{
		TimestampColumn:   "Date",
		TimeColumn:        "Time",
		SensorFeatures:    []string{"CO(GT)"},
		TargetColumns:     []string{"CO(GT)"},
		Horizon:           1,
		UseTimeFeatures:   true,
		ThresholdQuantile: 0.75,
	}
}

func TestPreprocessTenRows(t *testing.T) {
	opts := tenRowOptions()
	opts.Logger = zaptest.NewLogger(t)

	ds, err := Preprocess(hourly([]float64{5, 1, 9, 3, 7, 2, 10, 4, 8, 6}), opts)
	require.NoError(t, err)

	require.Equal(t, 9, ds.Len())
	assert.Equal(t, 9, ds.Features.Nrow())
	assert.Equal(t, []int{0, 1, 0, 0, 0, 1, 0, 1, 0}, ds.Labels)
	assert.InDelta(t, 7.75, ds.Thresholds["CO(GT)"], 1e-12)
	assert.Equal(t, append([]string{"CO(GT)"}, dataprep.TimeFeatures...), ds.Names())

	X := ds.Matrix()
	require.Len(t, X, 9)
	// CO, hour, day_of_week (Saturday = 5), month, is_weekend
	assert.Equal(t, []float64{5, 0, 5, 1, 1}, X[0])
	assert.Equal(t, []float64{4, 7, 5, 1, 1}, X[7])
	assert.InDelta(t, 3.0/9, ds.PositiveRate(), 1e-12)
}

func TestPreprocessSortsBeforeLabelling(t *testing.T) {
	df := hourly([]float64{5, 1, 9, 3, 7, 2, 10, 4, 8, 6})
	order := []int{9, 3, 0, 7, 1, 5, 2, 8, 6, 4}
	shuffled := df.Subset(order)
	require.NoError(t, shuffled.Err)

	ds, err := Preprocess(shuffled, tenRowOptions())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0, 0, 0, 1, 0, 1, 0}, ds.Labels)
	assert.Equal(t, []float64{5, 1, 9, 3, 7, 2, 10, 4, 8}, ds.Features.Col("CO(GT)").Float())
}

func TestPreprocessRowCountForHorizons(t *testing.T) {
	df := hourly([]float64{5, 1, 9, 3, 7, 2, 10, 4, 8, 6})
	for h := 1; h <= 5; h++ {
		opts := tenRowOptions()
		opts.Horizon = h
		ds, err := Preprocess(df, opts)
		require.NoError(t, err)
		assert.Equal(t, df.Nrow()-h, ds.Len())
		for _, l := range ds.Labels {
			assert.Contains(t, []int{0, 1}, l)
		}
	}
}

func TestPreprocessFillsUnparseableTimestamps(t *testing.T) {
	df := hourly([]float64{1, 2, 3, 4, 5, 6})
	df = df.Mutate(series.New([]string{"00:00:00", "bad", "??", "03:00:00", "04:00:00", "05:00:00"}, series.String, "Time"))
	require.NoError(t, df.Err)

	ds, err := Preprocess(df, tenRowOptions())
	require.NoError(t, err)
	require.Equal(t, 5, ds.Len())
	// rows with unparseable times sort last; one of them survives the trim
	assert.Equal(t, []float64{1, 4, 5, 6, 2}, ds.Features.Col("CO(GT)").Float())
	for _, name := range ds.Names() {
		for _, v := range ds.Features.Col(name).Float() {
			assert.False(t, math.IsNaN(v), name)
		}
	}
}

func TestPreprocessErrors(t *testing.T) {
	df := hourly([]float64{1, 2, 3})

	opts := tenRowOptions()
	opts.Horizon = 3
	_, err := Preprocess(df, opts)
	assert.ErrorIs(t, err, errs.ErrEmptyDataset)

	opts = tenRowOptions()
	opts.SensorFeatures = []string{"NOx(GT)"}
	_, err = Preprocess(df, opts)
	assert.ErrorIs(t, err, errs.ErrPreprocessing)
	assert.ErrorIs(t, err, dataprep.ErrMissingColumn)

	opts = tenRowOptions()
	opts.TimestampColumn = "When"
	opts.TimeColumn = ""
	_, err = Preprocess(df, opts)
	assert.ErrorIs(t, err, errs.ErrPreprocessing)
}

func TestSchemaOf(t *testing.T) {
	s := SchemaOf(hourly([]float64{1}))
	assert.Equal(t, []string{"Date", "Time", "CO(GT)"}, s.FeatureNames)
	assert.Equal(t, "Date:string, Time:string, CO(GT):float", s.String())
}

func TestPipelineStopsAtFailingStep(t *testing.T) {
	calls := 0
	p := NewPipeline(zaptest.NewLogger(t)).
		Then("first", func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
			calls++
			return df, nil
		}).
		Then("broken", func(dataframe.DataFrame) (dataframe.DataFrame, error) {
			return dataframe.DataFrame{}, errors.New("boom")
		}).
		Then("never", func(df dataframe.DataFrame) (dataframe.DataFrame, error) {
			calls++
			return df, nil
		})

	_, err := p.Transform(hourly([]float64{1}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: boom")
	assert.Equal(t, 1, calls)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Data.RawDir = filepath.Join(dir, "data", "raw")
	cfg.Data.ProcessedDir = filepath.Join(dir, "data", "processed")
	cfg.Data.SyntheticRows = 400
	cfg.Output.ResultsDir = filepath.Join(dir, "results")
	cfg.Tracking.RunsDB = filepath.Join(dir, "results", "runs.db")
	cfg.Model.NEstimators = 10
	return cfg
}

func TestRunnerEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	res, err := NewRunner(cfg, zaptest.NewLogger(t), WithOutput(&out)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, cfg.Data.SyntheticRows-cfg.Preprocess.Horizon, res.Dataset.Len())
	assert.GreaterOrEqual(t, res.Summary.ONNXAgreement, 0.95)
	assert.Contains(t, out.String(), "Classification Report:")
	assert.Contains(t, out.String(), "Raw data: 400 rows")

	for _, p := range []string{
		cfg.SyntheticDataPath(),
		cfg.ProcessedPath(cfg.Output.FeaturesFile),
		cfg.ProcessedPath(cfg.Output.LabelsFile),
		cfg.ResultPath(cfg.Output.ModelFile),
		cfg.ResultPath(cfg.Output.ConfusionPlot),
		cfg.ResultPath(cfg.Output.ImportancePlot),
		cfg.ResultPath(cfg.Output.SummaryFile),
		cfg.ResultPath(cfg.Output.MetricsTextfile),
	} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
	if !math.IsNaN(res.Summary.ROCAUC) {
		_, err := os.Stat(cfg.ResultPath(cfg.Output.ROCPlot))
		assert.NoError(t, err)
	}

	X, y, err := LoadProcessed(cfg)
	require.NoError(t, err)
	assert.Equal(t, res.Dataset.Labels, y)
	assert.Equal(t, res.Dataset.Names(), X.Names())
	for _, name := range X.Names() {
		assert.InDeltaSlice(t, res.Dataset.Features.Col(name).Float(), X.Col(name).Float(), 1e-9, name)
	}

	summary, err := report.ReadSummary(cfg.ResultPath(cfg.Output.SummaryFile))
	require.NoError(t, err)
	assert.Equal(t, res.RunID, summary.RunID)

	store, err := runstore.Open(context.Background(), cfg.Tracking.RunsDB)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].ID)
}

func TestRunnerMissingRealData(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.UseSyntheticData = false
	cfg.Tracking.Enabled = false

	_, err := NewRunner(cfg, zaptest.NewLogger(t), WithOutput(&bytes.Buffer{})).Run(context.Background())
	assert.ErrorIs(t, err, errs.ErrDataNotFound)
}
