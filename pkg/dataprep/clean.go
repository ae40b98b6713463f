package dataprep

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/errs"
)

// DefaultSentinel is the value sensors report when a reading failed.
const DefaultSentinel = -200.0

// HandleMissingValues marks every sentinel reading as missing and fills each
// numeric column's gaps with the median of that column's remaining values.
// Non-numeric columns pass through unchanged and df itself is not modified.
// A column with no usable reading at all fails with a preprocessing error.
func HandleMissingValues(df dataframe.DataFrame, sentinel float64) (dataframe.DataFrame, error) {
	out := df.Copy()
	for _, name := range df.Names() {
		col := df.Col(name)
		if !isNumeric(col) {
			continue
		}
		vals := col.Float()
		for i, v := range vals {
			if v == sentinel {
				vals[i] = math.NaN()
			}
		}
		if _, err := ImputeMedian(vals); err != nil {
			return dataframe.DataFrame{}, errs.Wrap(errs.KindPreprocessing, err,
				fmt.Sprintf("clean column %q", name))
		}
		out = out.Mutate(series.New(vals, series.Float, name))
		if out.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("clean column %q: %w", name, out.Err)
		}
	}
	return out, nil
}

// CountSentinel returns how many cells of numeric columns equal sentinel.
func CountSentinel(df dataframe.DataFrame, sentinel float64) int {
	n := 0
	for _, name := range df.Names() {
		col := df.Col(name)
		if !isNumeric(col) {
			continue
		}
		for _, v := range col.Float() {
			if v == sentinel {
				n++
			}
		}
	}
	return n
}
