package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/greenforecast/dataset/datasettest"
	"github.com/YuminosukeSato/greenforecast/training"
)

func TestResolveConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.yaml")
	require.NoError(t, os.WriteFile(path, []byte("horizon_steps: 2\nseed: 11\ndevice: cpu\n"), 0o644))
	env := map[string]string{
		"GREENHOUSE_HORIZON_STEPS": "3",
		"GREENHOUSE_MODEL_FAMILY":  "lightgbm",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	resolve := func(args ...string) training.Config {
		opts := &options{configPath: path, flags: training.DefaultConfig()}
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		bindConfigFlags(fs, &opts.flags)
		require.NoError(t, fs.Parse(args))
		cfg, err := resolveConfig(opts, fs, lookup)
		require.NoError(t, err)
		return cfg
	}

	cfg := resolve()
	assert.Equal(t, 3, cfg.HorizonSteps, "env overrides yaml")
	assert.Equal(t, uint64(11), cfg.Seed, "yaml overrides defaults")
	assert.Equal(t, "cpu", cfg.Device)
	assert.Equal(t, "lightgbm", cfg.ModelFamily)
	assert.Equal(t, 0.8, cfg.TrainRatio)

	cfg = resolve("--horizon-steps", "4", "--model-family", "all")
	assert.Equal(t, 4, cfg.HorizonSteps, "flags override env")
	assert.Equal(t, "all", cfg.ModelFamily)
	assert.Equal(t, uint64(11), cfg.Seed, "unset flags keep lower layers")
}

func TestResolveConfigInvalid(t *testing.T) {
	opts := &options{flags: training.DefaultConfig()}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	bindConfigFlags(fs, &opts.flags)
	require.NoError(t, fs.Parse([]string{"--train-ratio", "0.3"}))

	_, err := resolveConfig(opts, fs, func(string) (string, bool) { return "", false })
	assert.Error(t, err)
}

func TestTrainCommand(t *testing.T) {
	data := datasettest.WriteCSV(t, 120, datasettest.Alternating)
	outDir := filepath.Join(t.TempDir(), "models")

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{
		"--dataset", data,
		"--output-dir", outDir,
		"--device", "cpu",
		"--compact",
		"--walk-forward-splits", "0",
		"--min-relay-class-count", "5",
		"--no-progress",
		"--log-level", "warn",
	})
	require.NoError(t, cmd.Execute())

	out := stdout.String()
	assert.Contains(t, out, "Training complete.")
	assert.Contains(t, out, "Best light forecast model: ")
	assert.Contains(t, out, "(holdout_mae)")
	assert.Contains(t, out, filepath.Join(outDir, training.ReportFile))
	assert.NotContains(t, out, warnGateFailed)
	assert.FileExists(t, filepath.Join(outDir, training.RegressorFile))
}

func TestTrainCommandGateWarning(t *testing.T) {
	data := datasettest.WriteCSV(t, 120, datasettest.AlwaysOff)
	outDir := filepath.Join(t.TempDir(), "models")

	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{
		"--dataset", data, "--output-dir", outDir, "--device", "cpu",
		"--compact", "--walk-forward-splits", "0", "--no-progress",
	})
	require.NoError(t, cmd.Execute())

	out := stdout.String()
	assert.Contains(t, out, "Best relay_light model: skipped")
	assert.Contains(t, out, warnSingleValid)
	assert.Contains(t, out, warnGateFailed)
}

func TestTrainCommandFailure(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{
		"--dataset", filepath.Join(t.TempDir(), "missing.csv"),
		"--output-dir", filepath.Join(t.TempDir(), "models"),
		"--no-progress",
	})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataset not found")
}
