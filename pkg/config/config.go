// Package config holds the explicit run configuration handed to every
// pipeline stage. Values come from defaults, an optional aqrisk.yaml and
// AQRISK_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "AQRISK"

type Config struct {
	Data       DataConfig       `mapstructure:"data"`
	Preprocess PreprocessConfig `mapstructure:"preprocess"`
	Model      ModelConfig      `mapstructure:"model"`
	Output     OutputConfig     `mapstructure:"output"`
	Log        LogConfig        `mapstructure:"log"`
	Tracking   TrackingConfig   `mapstructure:"tracking"`
}

type DataConfig struct {
	RawDir            string        `mapstructure:"raw_dir"`
	ProcessedDir      string        `mapstructure:"processed_dir"`
	RealDataFile      string        `mapstructure:"real_data_file"`
	SyntheticDataFile string        `mapstructure:"synthetic_data_file"`
	UseSyntheticData  bool          `mapstructure:"use_synthetic_data"`
	SyntheticRows     int           `mapstructure:"synthetic_rows"`
	SyntheticStart    string        `mapstructure:"synthetic_start"`
	SyntheticFreq     time.Duration `mapstructure:"synthetic_freq"`
	SensorFailureRate float64       `mapstructure:"sensor_failure_rate"`
	SyntheticSeed     int64         `mapstructure:"synthetic_seed"`
	Sentinel          float64       `mapstructure:"sentinel"`
}

type PreprocessConfig struct {
	TimestampColumn   string   `mapstructure:"timestamp_column"`
	TimeColumn        string   `mapstructure:"time_column"`
	SensorFeatures    []string `mapstructure:"sensor_features"`
	TargetColumns     []string `mapstructure:"target_columns"`
	Horizon           int      `mapstructure:"horizon"`
	UseTimeFeatures   bool     `mapstructure:"use_time_features"`
	ThresholdQuantile float64  `mapstructure:"threshold_quantile"`
}

type ModelConfig struct {
	TrainRatio      float64 `mapstructure:"train_ratio"`
	RandomState     int64   `mapstructure:"random_state"`
	NEstimators     int     `mapstructure:"n_estimators"`
	MaxDepth        int     `mapstructure:"max_depth"`
	MinSamplesSplit int     `mapstructure:"min_samples_split"`
	MinSamplesLeaf  int     `mapstructure:"min_samples_leaf"`
	Workers         int     `mapstructure:"workers"`
}

type OutputConfig struct {
	ResultsDir      string `mapstructure:"results_dir"`
	ModelFile       string `mapstructure:"model_file"`
	FeaturesFile    string `mapstructure:"features_file"`
	LabelsFile      string `mapstructure:"labels_file"`
	ROCPlot         string `mapstructure:"roc_plot"`
	ConfusionPlot   string `mapstructure:"confusion_plot"`
	ImportancePlot  string `mapstructure:"importance_plot"`
	SummaryFile     string `mapstructure:"summary_file"`
	MetricsTextfile string `mapstructure:"metrics_textfile"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type TrackingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	RunsDB  string `mapstructure:"runs_db"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data.raw_dir", filepath.Join("data", "raw"))
	v.SetDefault("data.processed_dir", filepath.Join("data", "processed"))
	v.SetDefault("data.real_data_file", "AirQualityUCI.csv")
	v.SetDefault("data.synthetic_data_file", "AirQualityUCI_synthetic.csv")
	v.SetDefault("data.use_synthetic_data", true)
	v.SetDefault("data.synthetic_rows", 2000)
	v.SetDefault("data.synthetic_start", "2005-01-01")
	v.SetDefault("data.synthetic_freq", time.Hour)
	v.SetDefault("data.sensor_failure_rate", 0.03)
	v.SetDefault("data.synthetic_seed", 42)
	v.SetDefault("data.sentinel", -200.0)

	v.SetDefault("preprocess.timestamp_column", "Date")
	v.SetDefault("preprocess.time_column", "Time")
	v.SetDefault("preprocess.sensor_features", []string{
		"CO(GT)", "NO2(GT)", "NOx(GT)", "C6H6(GT)", "T", "RH", "AH",
	})
	v.SetDefault("preprocess.target_columns", []string{"CO(GT)"})
	v.SetDefault("preprocess.horizon", 1)
	v.SetDefault("preprocess.use_time_features", true)
	v.SetDefault("preprocess.threshold_quantile", 0.75)

	v.SetDefault("model.train_ratio", 0.8)
	v.SetDefault("model.random_state", 42)
	v.SetDefault("model.n_estimators", 100)
	v.SetDefault("model.max_depth", 0)
	v.SetDefault("model.min_samples_split", 2)
	v.SetDefault("model.min_samples_leaf", 1)
	v.SetDefault("model.workers", 0)

	v.SetDefault("output.results_dir", "results")
	v.SetDefault("output.model_file", "air_quality_model.onnx")
	v.SetDefault("output.features_file", "X_features.csv")
	v.SetDefault("output.labels_file", "y_labels.csv")
	v.SetDefault("output.roc_plot", "roc_curve.png")
	v.SetDefault("output.confusion_plot", "confusion_matrix.png")
	v.SetDefault("output.importance_plot", "feature_importance.png")
	v.SetDefault("output.summary_file", "metrics.yaml")
	v.SetDefault("output.metrics_textfile", "aqrisk.prom")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", true)

	v.SetDefault("tracking.enabled", true)
	v.SetDefault("tracking.runs_db", filepath.Join("results", "runs.db"))
}

// Default returns the configuration with no file and no environment applied.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads configuration. An empty path searches for aqrisk.yaml in the
// working directory and ./config; a missing file is not an error unless the
// path was given explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("aqrisk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values the stages cannot recover from.
func (c *Config) Validate() error {
	var errs []error
	if c.Model.TrainRatio <= 0 || c.Model.TrainRatio >= 1 {
		errs = append(errs, fmt.Errorf("model.train_ratio must be in (0,1), got %v", c.Model.TrainRatio))
	}
	if c.Model.NEstimators < 1 {
		errs = append(errs, fmt.Errorf("model.n_estimators must be positive, got %d", c.Model.NEstimators))
	}
	if c.Preprocess.Horizon < 1 {
		errs = append(errs, fmt.Errorf("preprocess.horizon must be >= 1, got %d", c.Preprocess.Horizon))
	}
	if len(c.Preprocess.SensorFeatures) == 0 {
		errs = append(errs, errors.New("preprocess.sensor_features is empty"))
	}
	if len(c.Preprocess.TargetColumns) == 0 {
		errs = append(errs, errors.New("preprocess.target_columns is empty"))
	}
	if q := c.Preprocess.ThresholdQuantile; q <= 0 || q >= 1 {
		errs = append(errs, fmt.Errorf("preprocess.threshold_quantile must be in (0,1), got %v", q))
	}
	if r := c.Data.SensorFailureRate; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("data.sensor_failure_rate must be in [0,1], got %v", r))
	}
	if c.Data.SyntheticRows < 1 {
		errs = append(errs, fmt.Errorf("data.synthetic_rows must be positive, got %d", c.Data.SyntheticRows))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid: %w", errors.Join(errs...))
	}
	return nil
}

// RealDataPath is the path of the real dataset inside RawDir.
func (c *Config) RealDataPath() string {
	return filepath.Join(c.Data.RawDir, c.Data.RealDataFile)
}

// SyntheticDataPath is the path of the generated dataset inside RawDir.
func (c *Config) SyntheticDataPath() string {
	return filepath.Join(c.Data.RawDir, c.Data.SyntheticDataFile)
}

// ResultPath joins name onto the results directory.
func (c *Config) ResultPath(name string) string {
	return filepath.Join(c.Output.ResultsDir, name)
}

// ProcessedPath joins name onto the processed-data directory.
func (c *Config) ProcessedPath(name string) string {
	return filepath.Join(c.Data.ProcessedDir, name)
}
