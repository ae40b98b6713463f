package data

import (
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/stats"
)

// outlierK is the IQR multiplier of the Tukey fences used by Inspect.
const outlierK = 1.5

// Inspect prints the shape, the first rows, a per-column summary and the
// number of Tukey outliers in each numeric column of df.
func Inspect(w io.Writer, df dataframe.DataFrame) {
	fmt.Fprintf(w, "Raw data: %d rows x %d columns\n", df.Nrow(), df.Ncol())

	head := 5
	if df.Nrow() < head {
		head = df.Nrow()
	}
	if head > 0 {
		idx := make([]int, head)
		for i := range idx {
			idx[i] = i
		}
		fmt.Fprintln(w, "First rows:")
		fmt.Fprintln(w, df.Subset(idx))
	}

	fmt.Fprintln(w, "Summary:")
	fmt.Fprintln(w, df.Describe())

	fmt.Fprintln(w, "Outliers (1.5 IQR):")
	types := df.Types()
	for i, name := range df.Names() {
		if types[i] != series.Float && types[i] != series.Int {
			continue
		}
		fmt.Fprintf(w, "  %s: %d\n", name, stats.CountOutliers(df.Col(name).Float(), outlierK))
	}
}
