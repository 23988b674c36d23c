package training

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/greenforecast/core/model"
	"github.com/YuminosukeSato/greenforecast/dataset"
	"github.com/YuminosukeSato/greenforecast/features"
	"github.com/YuminosukeSato/greenforecast/pkg/errors"
	"github.com/YuminosukeSato/greenforecast/pkg/log"
	"github.com/YuminosukeSato/greenforecast/selection"
	"github.com/YuminosukeSato/greenforecast/validation"
)

// Split constraints of the holdout.
const (
	MinimumRows    = 40
	MinTrainRows   = 20
	MinValidRows   = 10
	pipelineStages = 6
)

// Report notes.
const (
	noteTimeOrdered = "Validation split is time-ordered to avoid lookahead leakage."
	noteSelection   = "Best model prefers walk-forward stability when >=2 folds run; falls back to holdout MAE/F1."
	noteSingleValid = "Classification validation set has a single class; accuracy/F1 can be non-informative. " +
		"Collect more ON/OFF transitions in later time windows or adjust split horizon."
	noteGateFailed = "Relay classifier quality gate failed; classifier artifact was not produced for this run. " +
		"Collect more balanced ON/OFF samples or adjust min_relay_class_count."
	noteNoClassFolds = "Walk-forward classification had zero runnable folds with two training classes. " +
		"Collect more relay transitions for reliable classification evaluation."
	noteDeviceAdvisory = "A CUDA device was requested; the lightgbm candidate trains on CPU in this build, so the device setting is advisory."

	skipGateFailed = "Skipping relay_light classifier: quality gate failed."
)

// SplitIndex returns the time-ordered holdout boundary for n rows:
// int(n*ratio), raised to at least 20 training rows and lowered to leave at
// least 10 validation rows.
func SplitIndex(n int, ratio float64) int {
	split := int(float64(n) * ratio)
	split = max(split, MinTrainRows)
	split = min(split, n-MinValidRows)
	return split
}

// Run executes the full training pipeline and returns the report that was
// written to the output directory. ctx is checked between stages only.
func Run(ctx context.Context, cfg Config) (rep *Report, err error) {
	defer errors.Recover(&err, "training.Run")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	runID := uuid.NewString()
	logger := log.GetLoggerWithName("training").With(log.RunIDKey, runID)
	progress := log.NewProgress("Training pipeline", "stage", pipelineStages, cfg.ShowProgress)
	defer progress.Done()

	logger.Info("training started",
		log.PathKey, cfg.Dataset,
		log.HorizonKey, cfg.HorizonSteps,
		log.RandomSeedKey, cfg.Seed,
		log.DeviceKey, cfg.Device,
		log.ModelFamilyKey, cfg.ModelFamily)

	// 1. 出力ディレクトリ
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create output directory %s", cfg.OutputDir)
	}
	progress.Advance("output directory ready")

	// 2. データセット → 特徴量 → 教師データ
	frame, err := dataset.LoadFrame(cfg.Dataset)
	if err != nil {
		return nil, err
	}
	featureFrame, err := features.Build(frame)
	if err != nil {
		return nil, err
	}
	sup, err := features.MakeSupervised(featureFrame, cfg.HorizonSteps)
	if err != nil {
		return nil, err
	}
	progress.Advance("dataset prepared")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 3. 分割・品質ゲート・フォールド
	n := sup.Len()
	if n < MinimumRows {
		return nil, errors.NewInsufficientDataError(n, MinimumRows)
	}
	split := SplitIndex(n, cfg.TrainRatio)
	trainRelay, validRelay := sup.Relay[:split], sup.Relay[split:]
	quality := validation.DescribeClasses(trainRelay, validRelay)
	gate := validation.EvaluateRelayGate(trainRelay, validRelay, max(1, cfg.MinRelayClassCount))
	minTrain, minValid := validation.FoldSizes(n)
	folds := validation.WalkForwardFolds(n, cfg.WalkForwardSplits, minTrain, minValid)

	logger.Info("holdout split",
		log.SamplesKey, n,
		log.FeaturesKey, len(sup.Columns),
		log.TrainRowsKey, split,
		log.ValidRowsKey, n-split,
		"folds", len(folds),
		"gate_passed", gate.Passed)

	if cfg.StrictRelayQuality && !gate.Passed {
		return nil, errors.NewQualityGateFailedError(gate.Issues, gate.MinClassCount)
	}
	progress.Advance("quality gate evaluated")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 4. 回帰モデル選択
	opts := selection.Options{
		Settings:              selection.Settings{Seed: cfg.Seed, Device: cfg.Device},
		Registry:              cfg.registry(),
		Family:                cfg.ModelFamily,
		Folds:                 folds,
		Parallelism:           cfg.Parallelism,
		RegressionPenalty:     validation.RegressionStabilityPenalty,
		ClassificationPenalty: validation.ClassificationStabilityPenalty,
	}
	regRes, err := selection.EvaluateRegression(selection.Data{X: sup.Features, Y: sup.Light, Split: split}, opts)
	if err != nil {
		return nil, err
	}
	progress.Advance("regressor selected")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 5. 分類モデル選択 (ゲート通過時のみ)
	var clsRes *selection.ClassificationResult
	if gate.Passed {
		clsRes, err = selection.EvaluateClassification(selection.Data{X: sup.Features, Y: sup.Relay, Split: split}, opts)
		if err != nil {
			return nil, err
		}
	} else {
		clsRes = &selection.ClassificationResult{
			SelectionMode: selection.ModeHoldoutF1,
			Metrics:       map[string]selection.ClassificationMetrics{},
			SkipReason:    skipGateFailed,
		}
	}
	progress.Advance("classifier stage finished")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 6. 成果物とレポート
	rep = &Report{
		RunID:           runID,
		GeneratedAt:     time.Now().UTC(),
		Dataset:         cfg.Dataset,
		RowsTotal:       frame.Len(),
		RowsUsed:        n,
		HorizonSteps:    cfg.HorizonSteps,
		TrainRows:       split,
		ValidRows:       n - split,
		RequestedDevice: cfg.Device,
		ModelFamily:     cfg.ModelFamily,
		CUDARequested:   cfg.CUDARequested(),
		BestModels:      BestModels{LightForecast: regRes.BestName},
		ModelSelection: ModelSelection{
			LightForecast: regRes.SelectionMode,
			RelayLight:    clsRes.SelectionMode,
		},
		Metrics: CandidateMetrics{
			Regression:     regRes.Metrics,
			Classification: clsRes.Metrics,
		},
		WalkForward: WalkForwardReport{
			RequestedSplits: cfg.WalkForwardSplits,
			GeneratedFolds:  len(folds),
		},
		ValidationQuality: map[string]validation.ClassQuality{dataset.RelayColumn: quality},
		ClassDistribution: ClassDistribution{
			Train: validation.LabelCounts(validation.ClassCounts(trainRelay)),
			Valid: validation.LabelCounts(validation.ClassCounts(validRelay)),
		},
		QualityGate: map[string]validation.GateResult{dataset.RelayColumn: gate},
	}
	if clsRes.Best != nil {
		name := clsRes.BestName
		rep.BestModels.RelayLight = &name
	}
	rep.CUDAUsedByBestModel = regRes.Best.Model.Device() == "cuda" ||
		(clsRes.Best != nil && clsRes.Best.Model.Device() == "cuda")
	if len(folds) > 0 {
		rep.WalkForward.Regression = regRes.BestWalkForward
		if clsRes.Best != nil {
			rep.WalkForward.Classification = clsRes.BestWalkForward
		}
	}
	rep.Notes = buildNotes(cfg, rep, regRes, clsRes, quality, gate)

	if err := writeArtifacts(cfg, rep, sup, split, regRes, clsRes); err != nil {
		return nil, err
	}
	if err := writeMetrics(filepath.Join(cfg.OutputDir, MetricsFile), rep, time.Since(start)); err != nil {
		return nil, err
	}
	rep.Artifacts = append(rep.Artifacts, MetricsFile, ReportFile)
	if err := WriteJSON(filepath.Join(cfg.OutputDir, ReportFile), rep); err != nil {
		return nil, err
	}
	progress.Advance("artifacts written")

	logger.Info("training finished",
		log.PathKey, cfg.OutputDir,
		"light_forecast", regRes.BestName,
		"relay_light", clsRes.BestName,
		log.DurationMsKey, time.Since(start).Milliseconds())
	return rep, nil
}

func buildNotes(cfg Config, rep *Report, regRes *selection.RegressionResult, clsRes *selection.ClassificationResult,
	quality validation.ClassQuality, gate validation.GateResult) []string {
	notes := []string{noteTimeOrdered, noteSelection}
	notes = append(notes, regRes.Warnings...)
	notes = append(notes, clsRes.Warnings...)
	if !quality.ValidHasBothClasses {
		notes = append(notes, noteSingleValid)
	}
	if !gate.Passed {
		notes = append(notes, noteGateFailed)
	}
	if wf := rep.WalkForward.Classification; wf != nil && wf.FoldsRun == 0 {
		notes = append(notes, noteNoClassFolds)
	}
	if clsRes.SkipReason != "" {
		notes = append(notes, clsRes.SkipReason)
	}
	if cfg.CUDARequested() && !rep.CUDAUsedByBestModel {
		notes = append(notes, noteDeviceAdvisory)
	}
	return notes
}

// writeArtifacts persists the selected pipelines, the feature column order
// and the optional holdout plot, recording each file name in rep.
func writeArtifacts(cfg Config, rep *Report, sup *features.Supervised, split int,
	regRes *selection.RegressionResult, clsRes *selection.ClassificationResult) error {
	dir := cfg.OutputDir

	if err := saveRegressor(dir, regRes.BestName, cfg.HorizonSteps, sup.Columns, regRes.Best); err != nil {
		return errors.Wrap(err, "save light forecast model")
	}
	rep.Artifacts = append(rep.Artifacts, RegressorFile)

	if clsRes.Best != nil {
		if err := saveClassifier(dir, clsRes.BestName, cfg.HorizonSteps, sup.Columns, clsRes.Best); err != nil {
			return errors.Wrap(err, "save relay model")
		}
		rep.Artifacts = append(rep.Artifacts, ClassifierFile)
	} else {
		// 前回の実行で残った分類器を使わせない
		_ = os.Remove(filepath.Join(dir, ClassifierFile))
	}

	if err := WriteJSON(filepath.Join(dir, FeatureColumnsFile), sup.Columns); err != nil {
		return err
	}
	rep.Artifacts = append(rep.Artifacts, FeatureColumnsFile)

	if cfg.Plots {
		pred, err := regRes.Best.Predict(sup.Slice(split, sup.Len()))
		if err != nil {
			return errors.Wrap(err, "predict holdout for plot")
		}
		if err := writeHoldoutPlot(filepath.Join(dir, HoldoutPlotFile), sup.Light[split:], model.ColumnVector(pred)); err != nil {
			return err
		}
		rep.Artifacts = append(rep.Artifacts, HoldoutPlotFile)
	}
	return nil
}
