// Command greenhouse-predict forecasts the next light level and relay_light
// state from the latest row of a telemetry log.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/greenforecast/core/model"
	"github.com/YuminosukeSato/greenforecast/dataset"
	"github.com/YuminosukeSato/greenforecast/features"
	"github.com/YuminosukeSato/greenforecast/pkg/errors"
	"github.com/YuminosukeSato/greenforecast/pkg/log"
	"github.com/YuminosukeSato/greenforecast/sklearn/pipeline"
	"github.com/YuminosukeSato/greenforecast/training"
)

// Prediction is printed as JSON. Relay fields are absent when no classifier
// artifact exists.
type Prediction struct {
	LightLux         float64  `json:"predicted_light_lux"`
	RelayLight       *int     `json:"predicted_relay_light,omitempty"`
	RelayLightProbOn *float64 `json:"predicted_relay_light_probability_on,omitempty"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var data, modelDir, envFile, logLevel string
	cmd := &cobra.Command{
		Use:           "greenhouse-predict",
		Short:         "Predict the next light level and relay_light state",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var envFiles []string
			if envFile != "" {
				envFiles = append(envFiles, envFile)
			}
			if err := training.LoadDotEnv(envFiles...); err != nil {
				return err
			}
			// 明示フラグ > 環境変数 > 既定値
			if v := os.Getenv(training.EnvPrefix + "DATASET"); v != "" && !cmd.Flags().Changed("data") {
				data = v
			}
			if v := os.Getenv(training.EnvPrefix + "OUTPUT_DIR"); v != "" && !cmd.Flags().Changed("models") {
				modelDir = v
			}

			closer, err := log.Setup(log.SetupOptions{
				Level:   logLevel,
				Console: log.IsTerminal(os.Stderr),
				Output:  cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			defer closer.Close()

			pred, err := predictNext(data, modelDir)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pred)
		},
	}

	defaults := training.DefaultConfig()
	fs := cmd.Flags()
	fs.StringVar(&data, "data", defaults.Dataset, "telemetry CSV whose latest row is used")
	fs.StringVar(&modelDir, "models", defaults.OutputDir, "directory containing trained artifacts")
	fs.StringVar(&envFile, "env-file", "", "env file with GREENHOUSE_* defaults (default ./.env when present)")
	fs.StringVar(&logLevel, "log-level", "warn", "debug, info, warn or error")
	return cmd
}

// predictNext aligns the latest feature row of data to the persisted column
// order and runs the stored pipelines on it.
func predictNext(data, modelDir string) (*Prediction, error) {
	logger := log.GetLoggerWithName("predict")

	regPath := filepath.Join(modelDir, training.RegressorFile)
	clsPath := filepath.Join(modelDir, training.ClassifierFile)
	if !fileExists(regPath) || !fileExists(filepath.Join(modelDir, training.FeatureColumnsFile)) {
		return nil, errors.Newf("model artifacts missing in %s; run greenhouse-train first", modelDir)
	}
	columns, err := training.LoadFeatureColumns(modelDir)
	if err != nil {
		return nil, err
	}
	reg, err := pipeline.LoadArtifact(regPath)
	if err != nil {
		return nil, err
	}

	frame, err := dataset.LoadFrame(data)
	if err != nil {
		return nil, err
	}
	featureFrame, err := features.Build(frame)
	if err != nil {
		return nil, err
	}
	row, err := features.LatestRow(featureFrame)
	if err != nil {
		return nil, err
	}
	X := features.AlignColumns(row, columns)

	out, err := reg.Regressor.Predict(X)
	if err != nil {
		return nil, errors.Wrap(err, "predict light")
	}
	pred := &Prediction{LightLux: round(model.ColumnVector(out)[0], 3)}
	logger.Debug("light forecast", log.ModelNameKey, reg.ModelName, log.FeaturesKey, len(columns))

	if !fileExists(clsPath) {
		return pred, nil
	}
	cls, err := pipeline.LoadArtifact(clsPath)
	if err != nil {
		return nil, err
	}
	labels, err := cls.Classifier.Predict(X)
	if err != nil {
		return nil, errors.Wrap(err, "predict relay_light")
	}
	label := int(model.ColumnVector(labels)[0])
	pred.RelayLight = &label

	// 確率は二値分類器のときだけ出力する
	if proba, err := cls.Classifier.PredictProba(X); err == nil {
		if _, c := proba.Dims(); c > 1 {
			p := round(proba.At(0, 1), 4)
			pred.RelayLightProbOn = &p
		}
	} else {
		logger.Warn("probability unavailable", log.ModelNameKey, cls.ModelName, "error", err)
	}
	return pred, nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(training.Sanitize(v), "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode prediction")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func round(v float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.Round(v*scale) / scale
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
