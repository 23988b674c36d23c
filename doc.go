// Package greenforecast trains short-horizon forecasting models from
// greenhouse telemetry logs.
//
// Two artifacts come out of a training run: a regressor predicting light_lux
// a configurable number of rows ahead, and a classifier predicting the next
// relay_light state. Both are median-imputed tree pipelines chosen from a
// small candidate registry by time-ordered holdout and walk-forward
// validation.
//
// # Quick Start
//
//	go run ./cmd/greenhouse-train --dataset data/greenhouse_training_data.csv --output-dir models
//	go run ./cmd/greenhouse-predict --data data/greenhouse_training_data.csv --models models
//
// Or from Go:
//
//	cfg := training.DefaultConfig()
//	cfg.Dataset = "logs/greenhouse.csv"
//	rep, err := training.Run(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(rep.BestModels.LightForecast)
//
// # Packages
//
//   - dataset: CSV loading and normalization into a time-ordered Frame
//   - features: feature engineering, supervised targets, inference alignment
//   - validation: walk-forward folds, relay quality gate, stability scores
//   - selection: candidate registry and model selection
//   - training: orchestration, configuration, report and artifacts
//   - sklearn/tree, sklearn/ensemble, sklearn/lightgbm: tree estimators
//   - sklearn/pipeline: imputer + estimator pipelines and gob artifacts
//   - metrics: regression and classification metrics, fold summaries
//   - preprocessing: median imputation
//   - core/model, core/parallel: estimator interfaces and worker helpers
//   - pkg/errors, pkg/log: structured errors and logging
//
// # Configuration
//
// Options are resolved from defaults, an optional YAML file, GREENHOUSE_*
// environment variables (a .env file is read when present) and command-line
// flags, later layers winning.
package greenforecast
