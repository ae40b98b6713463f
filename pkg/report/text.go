package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/model"
)

func newTableWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
}

// WriteClassificationReport prints per-class precision, recall, F1 and
// support followed by accuracy and the averages.
func WriteClassificationReport(w io.Writer, r model.ClassificationReport) error {
	tw := newTableWriter(w)
	fmt.Fprintf(tw, "\tprecision\trecall\tf1-score\tsupport\t\n")
	fmt.Fprintf(tw, "\t\t\t\t\t\n")
	for _, c := range r.Classes {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%d\t\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	fmt.Fprintf(tw, "\t\t\t\t\t\n")
	fmt.Fprintf(tw, "accuracy\t\t\t%.2f\t%d\t\n", r.Accuracy, r.Total)
	for _, c := range []model.ClassScore{r.MacroAvg, r.WeightedAvg} {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%d\t\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	return tw.Flush()
}

// WriteConfusionMatrix prints cm with the class names as row and column
// headers.
func WriteConfusionMatrix(w io.Writer, cm [][]int, names []string) error {
	tw := newTableWriter(w)
	fmt.Fprint(tw, "actual \\ predicted\t")
	for _, n := range names {
		fmt.Fprintf(tw, "%s\t", n)
	}
	fmt.Fprintln(tw)
	for i, row := range cm {
		name := fmt.Sprint(i)
		if i < len(names) {
			name = names[i]
		}
		fmt.Fprintf(tw, "%s\t", name)
		for _, v := range row {
			fmt.Fprintf(tw, "%d\t", v)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
