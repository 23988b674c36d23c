// Package training runs the end-to-end forecasting pipeline: load and
// normalize telemetry, build features, split in time, gate the relay labels,
// select regression and classification models and persist the artifacts
// together with a JSON report.
package training

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/greenforecast/pkg/errors"
	"github.com/YuminosukeSato/greenforecast/selection"
)

// Config is the full set of training options. All configuration is passed
// explicitly; nothing is read from process-wide state.
type Config struct {
	Dataset            string  `yaml:"dataset"`
	OutputDir          string  `yaml:"output_dir"`
	HorizonSteps       int     `yaml:"horizon_steps"`
	TrainRatio         float64 `yaml:"train_ratio"`
	Seed               uint64  `yaml:"seed"`
	Device             string  `yaml:"device"`
	ModelFamily        string  `yaml:"model_family"`
	WalkForwardSplits  int     `yaml:"walk_forward_splits"`
	MinRelayClassCount int     `yaml:"min_relay_class_count"`
	StrictRelayQuality bool    `yaml:"strict_relay_quality"`
	ShowProgress       bool    `yaml:"show_progress"`
	Plots              bool    `yaml:"plots"`
	// Compact trains far fewer trees per candidate. Useful for smoke runs.
	Compact     bool `yaml:"compact"`
	Parallelism int  `yaml:"parallelism"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	// Registry replaces the candidate registry when non-nil.
	Registry selection.Registry `yaml:"-"`
}

// DefaultConfig returns the defaults of the training command.
func DefaultConfig() Config {
	return Config{
		Dataset:            "data/greenhouse_training_data.csv",
		OutputDir:          "models",
		HorizonSteps:       1,
		TrainRatio:         0.8,
		Seed:               42,
		Device:             "cuda",
		ModelFamily:        selection.FamilyAll,
		WalkForwardSplits:  4,
		MinRelayClassCount: 10,
		ShowProgress:       true,
		Parallelism:        1,
		LogLevel:           "info",
	}
}

// LoadConfig reads a YAML file over DefaultConfig; keys absent from the file
// keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// Validate checks option ranges before any file is touched.
func (c Config) Validate() error {
	if c.Dataset == "" {
		return errors.NewValidationError("dataset", "dataset path is required", c.Dataset)
	}
	if c.OutputDir == "" {
		return errors.NewValidationError("output_dir", "output directory is required", c.OutputDir)
	}
	if c.HorizonSteps < 1 {
		return errors.NewInvalidHorizonError(c.HorizonSteps)
	}
	if c.TrainRatio < 0.6 || c.TrainRatio >= 1.0 {
		return errors.NewValidationError("train_ratio", "train ratio should be between 0.6 and 1.0", c.TrainRatio)
	}
	switch c.Device {
	case "cpu", "cuda", "auto":
	default:
		return errors.NewValidationError("device", "device must be cpu, cuda or auto", c.Device)
	}
	switch c.ModelFamily {
	case selection.FamilyAll, selection.FamilyLightGBM:
	default:
		return errors.NewValidationError("model_family", "model family must be all or lightgbm", c.ModelFamily)
	}
	if c.WalkForwardSplits < 0 {
		return errors.NewValidationError("walk_forward_splits", "must be >= 0", c.WalkForwardSplits)
	}
	if c.Parallelism < 0 {
		return errors.NewValidationError("parallelism", "must be >= 0", c.Parallelism)
	}
	return nil
}

// CUDARequested reports whether the configured device asks for the GPU.
func (c Config) CUDARequested() bool {
	return c.Device == "cuda" || c.Device == "auto"
}

func (c Config) registry() selection.Registry {
	switch {
	case c.Registry != nil:
		return c.Registry
	case c.Compact:
		return selection.CompactRegistry()
	default:
		return selection.DefaultRegistry()
	}
}
