package data

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/errs"
)

const uciSample = `Date;Time;CO(GT);PT08.S1(CO);T;RH;;
10/03/2004;18.00.00;2,6;1360;13,6;48,9;;
10/03/2004;19.00.00;2;1292;13,3;47,7;;
10/03/2004;20.00.00;-200;1402;11,9;;;
;;;;;;;
`

func TestReadRawUCIConventions(t *testing.T) {
	df, err := ReadRaw(strings.NewReader(uciSample))
	require.NoError(t, err)

	assert.Equal(t, []string{"Date", "Time", "CO(GT)", "PT08.S1(CO)", "T", "RH"}, df.Names())
	assert.Equal(t, 3, df.Nrow())

	assert.Equal(t, series.String, df.Col("Date").Type())
	assert.Equal(t, series.String, df.Col("Time").Type())
	assert.Equal(t, []string{"18.00.00", "19.00.00", "20.00.00"}, df.Col("Time").Records())

	assert.Equal(t, []float64{2.6, 2, -200}, df.Col("CO(GT)").Float())
	assert.Equal(t, []float64{1360, 1292, 1402}, df.Col("PT08.S1(CO)").Float())

	rh := df.Col("RH").Float()
	assert.Equal(t, 48.9, rh[0])
	assert.True(t, math.IsNaN(rh[2]))
}

func TestReadRawEmpty(t *testing.T) {
	_, err := ReadRaw(strings.NewReader(""))
	assert.ErrorIs(t, err, errs.ErrDataNotFound)

	_, err = ReadRaw(strings.NewReader("Date;Time;CO(GT)\n;;\n"))
	assert.ErrorIs(t, err, errs.ErrDataNotFound)
}

func TestLoadRawMissingFile(t *testing.T) {
	_, err := LoadRaw(filepath.Join(t.TempDir(), "AirQualityUCI.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrDataNotFound)
}

func TestDecimalHelpers(t *testing.T) {
	v, err := ParseDecimal("13,6")
	require.NoError(t, err)
	assert.Equal(t, 13.6, v)

	assert.Equal(t, "-0,25", FormatDecimal(-0.25))
	assert.Equal(t, "200", FormatDecimal(200))
	assert.Equal(t, "", FormatDecimal(math.NaN()))
}

func TestGenerateSyntheticSchema(t *testing.T) {
	df, err := GenerateSynthetic(SyntheticOptions{Periods: 48, Seed: 7})
	require.NoError(t, err)

	want := append([]string{"Date", "Time"}, SyntheticSensors...)
	assert.Equal(t, want, df.Names())
	assert.Equal(t, 48, df.Nrow())

	dates := df.Col("Date").Records()
	times := df.Col("Time").Records()
	assert.Equal(t, "2005-01-01", dates[0])
	assert.Equal(t, "00:00:00", times[0])
	assert.Equal(t, "2005-01-02", dates[24])
	assert.Equal(t, "23:00:00", times[47])
}

func TestGenerateSyntheticDeterministic(t *testing.T) {
	a, err := GenerateSynthetic(SyntheticOptions{Periods: 100, Seed: 42})
	require.NoError(t, err)
	b, err := GenerateSynthetic(SyntheticOptions{Periods: 100, Seed: 42})
	require.NoError(t, err)

	for _, name := range SyntheticSensors {
		assert.Equal(t, a.Col(name).Float(), b.Col(name).Float(), name)
	}
}

func TestGenerateSyntheticFailures(t *testing.T) {
	all, err := GenerateSynthetic(SyntheticOptions{Periods: 20, FailureRate: 1, Seed: 1})
	require.NoError(t, err)
	for _, name := range SyntheticSensors {
		for _, v := range all.Col(name).Float() {
			assert.Equal(t, -200.0, v)
		}
	}

	none, err := GenerateSynthetic(SyntheticOptions{Periods: 500, FailureRate: -1, Seed: 1})
	require.NoError(t, err)
	for _, name := range SyntheticSensors {
		assert.NotContains(t, none.Col(name).Float(), -200.0)
	}
}

func TestGenerateSyntheticCustomStartAndFrequency(t *testing.T) {
	start := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	df, err := GenerateSynthetic(SyntheticOptions{Start: start, Periods: 3, Frequency: 30 * time.Minute})
	require.NoError(t, err)
	assert.Equal(t, []string{"12:00:00", "12:30:00", "13:00:00"}, df.Col("Time").Records())
}

func TestSyntheticSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw", "AirQualityUCI_synthetic.csv")
	generated, err := GenerateSynthetic(SyntheticOptions{Periods: 30, SavePath: path, Seed: 3})
	require.NoError(t, err)

	loaded, err := LoadRaw(path)
	require.NoError(t, err)
	assert.Equal(t, generated.Names(), loaded.Names())
	assert.Equal(t, generated.Col("Date").Records(), loaded.Col("Date").Records())
	for _, name := range SyntheticSensors {
		assert.InDeltaSlice(t, generated.Col(name).Float(), loaded.Col(name).Float(), 1e-9, name)
	}
}

func TestFeaturesAndLabelsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	features := dataframe.New(
		series.New([]float64{2.6, 2.0, 1.123456789}, series.Float, "CO(GT)"),
		series.New([]float64{18, 19, 20}, series.Float, "hour"),
		series.New([]float64{0, 0, 1}, series.Float, "is_weekend"),
	)
	labels := []int{1, 0, 1}

	xPath := filepath.Join(dir, "processed", "X_features.csv")
	yPath := filepath.Join(dir, "processed", "y_labels.csv")
	require.NoError(t, SaveFeatures(xPath, features))
	require.NoError(t, SaveLabels(yPath, "label", labels))

	gotX, err := LoadFeatures(xPath)
	require.NoError(t, err)
	assert.Equal(t, features.Names(), gotX.Names())
	for _, name := range features.Names() {
		assert.Equal(t, features.Col(name).Float(), gotX.Col(name).Float(), name)
	}

	gotY, err := LoadLabels(yPath)
	require.NoError(t, err)
	assert.Equal(t, labels, gotY)
}

func TestInspect(t *testing.T) {
	df, err := ReadRaw(strings.NewReader(uciSample))
	require.NoError(t, err)

	var buf bytes.Buffer
	Inspect(&buf, df)
	out := buf.String()
	assert.Contains(t, out, "Raw data: 3 rows x 6 columns")
	assert.Contains(t, out, "First rows:")
	assert.Contains(t, out, "Summary:")
	assert.Contains(t, out, "Outliers (1.5 IQR):")
}
