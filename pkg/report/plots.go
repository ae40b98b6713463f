// Package report renders the evaluation of a trained model: charts, a text
// classification report and machine-readable metric summaries.
package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/model"
)

// ClassNames are the display names of labels 0 and 1.
var ClassNames = []string{"Healthy", "Unhealthy"}

func save(p *plot.Plot, w, h vg.Length, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return p.Save(w, h, path)
}

// PlotROC draws the ROC curve with its AUC in the legend and a dashed chance
// diagonal.
func PlotROC(path string, roc model.ROCCurve) error {
	p := plot.New()
	p.Title.Text = "ROC Curve"
	p.X.Label.Text = "False Positive Rate"
	p.Y.Label.Text = "True Positive Rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1.05
	p.Legend.Top = false
	p.Legend.Left = false

	pts := make(plotter.XYs, len(roc.FPR))
	for i := range roc.FPR {
		pts[i].X = roc.FPR[i]
		pts[i].Y = roc.TPR[i]
	}
	if err := plotutil.AddLines(p, fmt.Sprintf("ROC curve (AUC = %.2f)", roc.AUC), pts); err != nil {
		return err
	}

	diag, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return err
	}
	diag.Color = color.Gray{Y: 128}
	diag.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(diag)

	return save(p, 6*vg.Inch, 5*vg.Inch, path)
}

// confusionGrid adapts a confusion matrix to plotter.GridXYZ. Column c is the
// predicted class and row r the true class, with row 0 drawn at the top.
type confusionGrid [][]int

func (g confusionGrid) Dims() (c, r int)   { return len(g), len(g) }
func (g confusionGrid) Z(c, r int) float64 { return float64(g[len(g)-1-r][c]) }
func (g confusionGrid) X(c int) float64    { return float64(c) }
func (g confusionGrid) Y(r int) float64    { return float64(r) }

// PlotConfusionMatrix draws cm as a heat map annotated with the cell counts.
func PlotConfusionMatrix(path string, cm [][]int, names []string) error {
	n := len(cm)
	if n == 0 {
		return fmt.Errorf("confusion matrix is empty")
	}
	if len(names) != n {
		return fmt.Errorf("%d class names for a %dx%d matrix", len(names), n, n)
	}

	p := plot.New()
	p.Title.Text = "Confusion Matrix"
	p.X.Label.Text = "Predicted"
	p.Y.Label.Text = "Actual"

	grid := confusionGrid(cm)
	hm := plotter.NewHeatMap(grid, palette.Heat(12, 1))
	if hm.Min == hm.Max {
		hm.Max = hm.Min + 1
	}
	p.Add(hm)

	var cells plotter.XYLabels
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			cells.XYs = append(cells.XYs, plotter.XY{X: grid.X(c), Y: grid.Y(r)})
			cells.Labels = append(cells.Labels, fmt.Sprint(int(grid.Z(c, r))))
		}
	}
	labels, err := plotter.NewLabels(cells)
	if err != nil {
		return err
	}
	p.Add(labels)

	p.NominalX(names...)
	yNames := make([]string, n)
	for i, name := range names {
		yNames[n-1-i] = name
	}
	p.NominalY(yNames...)

	return save(p, 5*vg.Inch, 5*vg.Inch, path)
}

// FeatureScore pairs a feature with its importance.
type FeatureScore struct {
	Name       string  `yaml:"name"`
	Importance float64 `yaml:"importance"`
}

// RankFeatures returns the features ordered by importance, largest first.
func RankFeatures(names []string, importances []float64) []FeatureScore {
	out := make([]FeatureScore, len(names))
	for i, name := range names {
		if i < len(importances) {
			out[i] = FeatureScore{Name: name, Importance: importances[i]}
		} else {
			out[i] = FeatureScore{Name: name}
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	return out
}

// PlotFeatureImportance draws a horizontal bar chart with the most important
// feature at the top.
func PlotFeatureImportance(path string, names []string, importances []float64) error {
	if len(names) == 0 {
		return fmt.Errorf("no features to plot")
	}
	ranked := RankFeatures(names, importances)

	// bars are laid out bottom-up
	n := len(ranked)
	values := make(plotter.Values, n)
	labels := make([]string, n)
	for i, fs := range ranked {
		values[n-1-i] = fs.Importance
		labels[n-1-i] = fs.Name
	}

	p := plot.New()
	p.Title.Text = "Feature Importance"
	p.X.Label.Text = "Importance"

	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return err
	}
	bars.Horizontal = true
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalY(labels...)

	return save(p, 7*vg.Inch, vg.Length(n)*0.4*vg.Inch+1.5*vg.Inch, path)
}
