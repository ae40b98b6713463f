package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/config"
	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/data"
	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/dataprep"
	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/errs"
	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/model"
	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/onnx"
	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/report"
	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/runstore"
)

// Runner executes the full pipeline for one configuration.
type Runner struct {
	cfg *config.Config
	log *zap.Logger
	out io.Writer
	now func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithOutput sends the human-readable report text to w instead of stdout.
func WithOutput(w io.Writer) RunnerOption { return func(r *Runner) { r.out = w } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) RunnerOption { return func(r *Runner) { r.now = now } }

func NewRunner(cfg *config.Config, log *zap.Logger, opts ...RunnerOption) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Runner{cfg: cfg, log: log, out: os.Stdout, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Result is what a completed run produced.
type Result struct {
	RunID    string
	Dataset  *Dataset
	Training *model.TrainingResult
	Summary  report.Summary
}

// Run generates or loads the raw data, cleans and preprocesses it, writes
// the processed CSVs, trains and exports the model, and writes the
// evaluation report, charts, summaries and run record. The first failing
// stage aborts the run with its stage error.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	cfg := r.cfg
	runID := uuid.NewString()
	started := r.now()
	log := r.log.With(zap.String("run_id", runID))
	log.Info("pipeline started")

	path, err := r.prepareRawData(log)
	if err != nil {
		return nil, err
	}

	raw, err := data.LoadRaw(path)
	if err != nil {
		return nil, err
	}
	log.Info("raw data loaded", zap.String("path", path), zap.Int("rows", raw.Nrow()), zap.Int("cols", raw.Ncol()))
	data.Inspect(r.out, raw)

	failures := dataprep.CountSentinel(raw, cfg.Data.Sentinel)
	cleaned, err := dataprep.HandleMissingValues(raw, cfg.Data.Sentinel)
	if err != nil {
		return nil, err
	}
	log.Info("missing values handled", zap.Int("sentinel_cells", failures))

	opts := OptionsFromConfig(cfg.Preprocess)
	opts.Logger = log
	ds, err := Preprocess(cleaned, opts)
	if err != nil {
		return nil, err
	}
	log.Info("feature schema", zap.Stringer("schema", ds.Schema()))

	if err := r.saveProcessed(ds); err != nil {
		return nil, err
	}

	names := ds.Names()
	trainOpts := model.TrainOptions{
		TrainRatio:      cfg.Model.TrainRatio,
		Seed:            cfg.Model.RandomState,
		NEstimators:     cfg.Model.NEstimators,
		MaxDepth:        cfg.Model.MaxDepth,
		MinSamplesSplit: cfg.Model.MinSamplesSplit,
		MinSamplesLeaf:  cfg.Model.MinSamplesLeaf,
		Workers:         cfg.Model.Workers,
	}
	tr, err := model.Train(ds.Matrix(), ds.Labels, names, trainOpts)
	if err != nil {
		return nil, err
	}
	log.Info("model trained",
		zap.Int("train_rows", len(tr.XTrain)),
		zap.Int("test_rows", len(tr.XTest)),
		zap.Int("trees", len(tr.Model.Trees)),
		zap.Duration("took", tr.Duration),
	)

	modelPath := cfg.ResultPath(cfg.Output.ModelFile)
	if err := onnx.Save(modelPath, tr.Model, names, map[string]string{onnx.MetaRunID: runID}); err != nil {
		return nil, err
	}
	agreement, err := verifyExport(modelPath, tr)
	if err != nil {
		return nil, errs.Wrap(errs.KindONNXExport, err, "verify exported model")
	}
	if agreement < 1 {
		log.Warn("exported model disagrees with forest on some test rows", zap.Float64("agreement", agreement))
	}
	log.Info("model exported", zap.String("path", modelPath), zap.Float64("agreement", agreement))

	summary, err := r.evaluate(log, tr)
	if err != nil {
		return nil, err
	}
	summary.RunID = runID
	summary.StartedAt = started
	summary.FinishedAt = r.now()
	summary.Dataset = path
	summary.Rows = ds.Len()
	summary.Horizon = cfg.Preprocess.Horizon
	summary.Thresholds = ds.Thresholds
	summary.PositiveRate = ds.PositiveRate()
	summary.ModelPath = modelPath
	summary.ONNXAgreement = agreement

	if err := report.WriteSummary(cfg.ResultPath(cfg.Output.SummaryFile), summary); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}
	if err := report.WriteTextfile(cfg.ResultPath(cfg.Output.MetricsTextfile), summary); err != nil {
		return nil, fmt.Errorf("write metrics textfile: %w", err)
	}
	r.recordRun(ctx, log, summary, len(names))

	log.Info("pipeline finished",
		zap.Float64("accuracy", summary.Accuracy),
		zap.Float64("roc_auc", summary.ROCAUC),
		zap.Duration("took", summary.FinishedAt.Sub(started)),
	)
	return &Result{RunID: runID, Dataset: ds, Training: tr, Summary: summary}, nil
}

// prepareRawData makes sure the synthetic file exists and returns the path
// of the dataset the run should read.
func (r *Runner) prepareRawData(log *zap.Logger) (string, error) {
	cfg := r.cfg.Data
	synthetic := r.cfg.SyntheticDataPath()
	if _, err := os.Stat(synthetic); errors.Is(err, os.ErrNotExist) {
		opts := data.SyntheticOptions{
			Periods:     cfg.SyntheticRows,
			Frequency:   cfg.SyntheticFreq,
			SavePath:    synthetic,
			FailureRate: cfg.SensorFailureRate,
			Sentinel:    cfg.Sentinel,
			Seed:        cfg.SyntheticSeed,
		}
		if opts.FailureRate == 0 {
			opts.FailureRate = -1
		}
		if cfg.SyntheticStart != "" {
			start, ok := dataprep.ParseTimestamp(cfg.SyntheticStart)
			if !ok {
				return "", fmt.Errorf("data.synthetic_start: cannot parse %q", cfg.SyntheticStart)
			}
			opts.Start = start
		}
		if _, err := data.GenerateSynthetic(opts); err != nil {
			return "", fmt.Errorf("generate synthetic data: %w", err)
		}
		log.Info("synthetic data generated", zap.String("path", synthetic), zap.Int("rows", cfg.SyntheticRows))
	} else if err != nil {
		return "", fmt.Errorf("stat %s: %w", synthetic, err)
	}

	if cfg.UseSyntheticData {
		return synthetic, nil
	}
	return r.cfg.RealDataPath(), nil
}

func (r *Runner) saveProcessed(ds *Dataset) error {
	xPath := r.cfg.ProcessedPath(r.cfg.Output.FeaturesFile)
	yPath := r.cfg.ProcessedPath(r.cfg.Output.LabelsFile)
	if err := data.SaveFeatures(xPath, ds.Features); err != nil {
		return fmt.Errorf("save features: %w", err)
	}
	if err := data.SaveLabels(yPath, dataprep.LabelColumn, ds.Labels); err != nil {
		return fmt.Errorf("save labels: %w", err)
	}
	r.log.Info("processed data saved", zap.String("features", xPath), zap.String("labels", yPath))
	return nil
}

// verifyExport reloads the exported model and returns the share of test
// rows on which it predicts the same label as the forest.
func verifyExport(path string, tr *model.TrainingResult) (float64, error) {
	sess, err := onnx.Load(path)
	if err != nil {
		return 0, err
	}
	labels, _, err := sess.Run(onnx.ToFloat32(tr.XTest))
	if err != nil {
		return 0, err
	}
	if len(labels) == 0 {
		return 1, nil
	}
	same := 0
	for i, l := range labels {
		if int(l) == tr.YPred[i] {
			same++
		}
	}
	return float64(same) / float64(len(labels)), nil
}

func (r *Runner) evaluate(log *zap.Logger, tr *model.TrainingResult) (report.Summary, error) {
	cfg := r.cfg
	classes := []int{0, 1}
	rep := model.NewClassificationReport(tr.YTest, tr.YPred, classes, report.ClassNames)
	cm := model.ConfusionMatrix(tr.YTest, tr.YPred, classes)

	fmt.Fprintln(r.out, "\nClassification Report:")
	if err := report.WriteClassificationReport(r.out, rep); err != nil {
		return report.Summary{}, err
	}
	fmt.Fprintln(r.out, "\nConfusion Matrix:")
	if err := report.WriteConfusionMatrix(r.out, cm, report.ClassNames); err != nil {
		return report.Summary{}, err
	}

	auc := math.NaN()
	roc, err := model.ROC(tr.YTest, tr.YProb)
	switch {
	case errors.Is(err, model.ErrSingleClass):
		log.Warn("test split holds a single class, skipping ROC curve")
	case err != nil:
		return report.Summary{}, fmt.Errorf("roc: %w", err)
	default:
		auc = roc.AUC
		fmt.Fprintf(r.out, "\nROC AUC: %.4f\n", auc)
		if err := report.PlotROC(cfg.ResultPath(cfg.Output.ROCPlot), roc); err != nil {
			return report.Summary{}, fmt.Errorf("plot roc curve: %w", err)
		}
	}
	if err := report.PlotConfusionMatrix(cfg.ResultPath(cfg.Output.ConfusionPlot), cm, report.ClassNames); err != nil {
		return report.Summary{}, fmt.Errorf("plot confusion matrix: %w", err)
	}
	if err := report.PlotFeatureImportance(cfg.ResultPath(cfg.Output.ImportancePlot), tr.FeatureNames, tr.FeatureImportance); err != nil {
		return report.Summary{}, fmt.Errorf("plot feature importance: %w", err)
	}
	log.Info("evaluation written", zap.String("dir", cfg.Output.ResultsDir))

	return report.Summary{
		TrainRows:       len(tr.XTrain),
		TestRows:        len(tr.XTest),
		Accuracy:        rep.Accuracy,
		ROCAUC:          auc,
		Report:          rep,
		ConfusionMatrix: cm,
		Features:        report.RankFeatures(tr.FeatureNames, tr.FeatureImportance),
		TrainingTime:    tr.Duration,
	}, nil
}

// recordRun appends the run to the history database. Failures are logged
// and do not fail the run.
func (r *Runner) recordRun(ctx context.Context, log *zap.Logger, s report.Summary, nFeatures int) {
	if !r.cfg.Tracking.Enabled {
		return
	}
	store, err := runstore.Open(ctx, r.cfg.Tracking.RunsDB)
	if err != nil {
		log.Warn("run history unavailable", zap.Error(err))
		return
	}
	defer store.Close()

	var pos model.ClassScore
	if len(s.Report.Classes) > 1 {
		pos = s.Report.Classes[1]
	}
	run := runstore.Run{
		ID:         s.RunID,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Dataset:    s.Dataset,
		Rows:       s.Rows,
		Features:   nFeatures,
		Horizon:    s.Horizon,
		Accuracy:   s.Accuracy,
		Precision:  pos.Precision,
		Recall:     pos.Recall,
		F1:         pos.F1,
		ROCAUC:     s.ROCAUC,
		ModelPath:  s.ModelPath,
	}
	if err := store.Record(ctx, run); err != nil {
		log.Warn("run not recorded", zap.Error(err))
	}
}

// LoadProcessed reads back the feature and label files of a previous run.
func LoadProcessed(cfg *config.Config) (dataframe.DataFrame, []int, error) {
	X, err := data.LoadFeatures(cfg.ProcessedPath(cfg.Output.FeaturesFile))
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}
	y, err := data.LoadLabels(cfg.ProcessedPath(cfg.Output.LabelsFile))
	if err != nil {
		return dataframe.DataFrame{}, nil, err
	}
	if X.Nrow() != len(y) {
		return dataframe.DataFrame{}, nil, fmt.Errorf("processed data: %d feature rows but %d labels", X.Nrow(), len(y))
	}
	return X, y, nil
}
