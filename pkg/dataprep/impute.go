package dataprep

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/stats"
)

var (
	// ErrMissingColumn is returned when a requested column is absent.
	ErrMissingColumn = errors.New("missing column")
	// ErrNoObservedValues is returned when a numeric column has nothing to
	// impute from.
	ErrNoObservedValues = errors.New("no observed values")
	// ErrNotNumeric is returned when a numeric column was expected.
	ErrNotNumeric = errors.New("column is not numeric")
)

// isNumeric reports whether s holds numbers.
func isNumeric(s series.Series) bool {
	t := s.Type()
	return t == series.Float || t == series.Int
}

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

func requireColumns(df dataframe.DataFrame, names ...string) error {
	for _, name := range names {
		if !hasColumn(df, name) {
			return fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}
	return nil
}

// ImputeMedian replaces NaN values in col with the median of its observed
// values and returns that median. The slice is modified in place.
func ImputeMedian(col []float64) (float64, error) {
	median := stats.Median(col)
	if math.IsNaN(median) {
		return median, ErrNoObservedValues
	}
	stats.FillNaN(col, median)
	return median, nil
}

// FillMedian imputes every numeric column of df with its own median.
// Non-numeric columns are returned untouched.
func FillMedian(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	out := df
	for _, name := range df.Names() {
		col := df.Col(name)
		if !isNumeric(col) {
			continue
		}
		vals := col.Float()
		if stats.CountNaN(vals) == 0 {
			continue
		}
		if _, err := ImputeMedian(vals); err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("impute %q: %w", name, err)
		}
		out = out.Mutate(series.New(vals, series.Float, name))
		if out.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("impute %q: %w", name, out.Err)
		}
	}
	return out, nil
}
