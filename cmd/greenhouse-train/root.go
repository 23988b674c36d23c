package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/YuminosukeSato/greenforecast/pkg/log"
	"github.com/YuminosukeSato/greenforecast/training"
)

const (
	warnSingleValid = "Warning: relay_light validation has one class only; classification metrics are limited."
	warnGateFailed  = "Warning: relay_light quality gate failed; classifier was skipped for this run."
)

type options struct {
	configPath string
	envFile    string
	noProgress bool
	// flags holds flag values; only flags set on the command line are copied
	// into the resolved config.
	flags training.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{flags: training.DefaultConfig()}

	cmd := &cobra.Command{
		Use:           "greenhouse-train",
		Short:         "Train light forecast and relay_light models from greenhouse telemetry",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(opts, cmd.Flags(), os.LookupEnv)
			if err != nil {
				return err
			}
			closer, err := log.Setup(log.SetupOptions{
				Level:   cfg.LogLevel,
				Console: log.IsTerminal(os.Stderr),
				Output:  cmd.ErrOrStderr(),
				File:    cfg.LogFile,
			})
			if err != nil {
				return err
			}
			defer closer.Close()

			rep, err := training.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), cfg, rep)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&opts.configPath, "config", "", "YAML config file read before env and flags")
	fs.StringVar(&opts.envFile, "env-file", "", "env file with GREENHOUSE_* defaults (default ./.env when present)")
	fs.BoolVar(&opts.noProgress, "no-progress", false, "disable the stage progress display")
	bindConfigFlags(fs, &opts.flags)
	return cmd
}

func bindConfigFlags(fs *pflag.FlagSet, c *training.Config) {
	fs.StringVar(&c.Dataset, "dataset", c.Dataset, "telemetry CSV")
	fs.StringVar(&c.OutputDir, "output-dir", c.OutputDir, "artifact directory")
	fs.IntVar(&c.HorizonSteps, "horizon-steps", c.HorizonSteps, "forecast horizon in rows")
	fs.Float64Var(&c.TrainRatio, "train-ratio", c.TrainRatio, "time-ordered training share, in [0.6, 1.0)")
	fs.Uint64Var(&c.Seed, "seed", c.Seed, "random seed")
	fs.StringVar(&c.Device, "device", c.Device, "cpu, cuda or auto")
	fs.StringVar(&c.ModelFamily, "model-family", c.ModelFamily, "all or lightgbm")
	fs.IntVar(&c.WalkForwardSplits, "walk-forward-splits", c.WalkForwardSplits, "walk-forward folds; 0 disables")
	fs.IntVar(&c.MinRelayClassCount, "min-relay-class-count", c.MinRelayClassCount, "minimum samples per relay class on each split")
	fs.BoolVar(&c.StrictRelayQuality, "strict-relay-quality", c.StrictRelayQuality, "fail when the relay quality gate fails")
	fs.BoolVar(&c.Plots, "plots", c.Plots, "write the holdout forecast plot")
	fs.BoolVar(&c.Compact, "compact", c.Compact, "train small candidate models")
	fs.IntVar(&c.Parallelism, "parallelism", c.Parallelism, "candidates evaluated concurrently")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "rotating JSON log file")
}

// flagSetters copies one flag's value from the flag-bound config.
var flagSetters = map[string]func(dst, src *training.Config){
	"dataset":               func(d, s *training.Config) { d.Dataset = s.Dataset },
	"output-dir":            func(d, s *training.Config) { d.OutputDir = s.OutputDir },
	"horizon-steps":         func(d, s *training.Config) { d.HorizonSteps = s.HorizonSteps },
	"train-ratio":           func(d, s *training.Config) { d.TrainRatio = s.TrainRatio },
	"seed":                  func(d, s *training.Config) { d.Seed = s.Seed },
	"device":                func(d, s *training.Config) { d.Device = s.Device },
	"model-family":          func(d, s *training.Config) { d.ModelFamily = s.ModelFamily },
	"walk-forward-splits":   func(d, s *training.Config) { d.WalkForwardSplits = s.WalkForwardSplits },
	"min-relay-class-count": func(d, s *training.Config) { d.MinRelayClassCount = s.MinRelayClassCount },
	"strict-relay-quality":  func(d, s *training.Config) { d.StrictRelayQuality = s.StrictRelayQuality },
	"plots":                 func(d, s *training.Config) { d.Plots = s.Plots },
	"compact":               func(d, s *training.Config) { d.Compact = s.Compact },
	"parallelism":           func(d, s *training.Config) { d.Parallelism = s.Parallelism },
	"log-level":             func(d, s *training.Config) { d.LogLevel = s.LogLevel },
	"log-file":              func(d, s *training.Config) { d.LogFile = s.LogFile },
}

// resolveConfig layers defaults, the YAML file, GREENHOUSE_* variables and
// explicitly set flags, in that order.
func resolveConfig(opts *options, fs *pflag.FlagSet, lookup func(string) (string, bool)) (training.Config, error) {
	cfg := training.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := training.LoadConfig(opts.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	var envFiles []string
	if opts.envFile != "" {
		envFiles = append(envFiles, opts.envFile)
	}
	if err := training.LoadDotEnv(envFiles...); err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return cfg, err
	}

	fs.Visit(func(f *pflag.Flag) {
		if set, ok := flagSetters[f.Name]; ok {
			set(&cfg, &opts.flags)
		}
	})
	if opts.noProgress || !log.IsTerminal(os.Stderr) {
		cfg.ShowProgress = false
	}
	return cfg, cfg.Validate()
}

func printSummary(w io.Writer, cfg training.Config, rep *training.Report) {
	relay := "skipped"
	if rep.BestModels.RelayLight != nil {
		relay = *rep.BestModels.RelayLight
	}
	fmt.Fprintln(w, "Training complete.")
	fmt.Fprintf(w, "Best light forecast model: %s (%s)\n", rep.BestModels.LightForecast, rep.ModelSelection.LightForecast)
	fmt.Fprintf(w, "Best relay_light model: %s (%s)\n", relay, rep.ModelSelection.RelayLight)
	fmt.Fprintf(w, "Report: %s\n", filepath.Join(cfg.OutputDir, training.ReportFile))

	if q, ok := rep.ValidationQuality["relay_light"]; ok && !q.ValidHasBothClasses {
		fmt.Fprintln(w, warnSingleValid)
	}
	if g, ok := rep.QualityGate["relay_light"]; ok && !g.Passed {
		fmt.Fprintln(w, warnGateFailed)
	}
}
