// Command aqrisk runs the air-quality future-risk pipeline end to end:
// data generation or loading, cleaning, labelling, training, ONNX export
// and evaluation. It takes no arguments; see aqrisk.yaml and the AQRISK_*
// environment variables for settings.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/config"
	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/errs"
	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/logger"
	"github.com/shivashj/Air-Quality-Ucl-Analysis/pkg/pipeline"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "aqrisk: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := pipeline.NewRunner(cfg, log).Run(ctx)
	if err != nil {
		log.Error("pipeline failed", zap.String("kind", string(errs.KindOf(err))), zap.Error(err))
		return err
	}
	fmt.Printf("\nRun %s complete. Model saved to %s\n", res.RunID, res.Summary.ModelPath)
	return nil
}
