// Package log defines standard attribute keys for the training pipeline.
//
// Keys follow a hierarchical naming convention ("data.samples", "cv.fold")
// so that training logs can be filtered by stage, target, or candidate.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of estimator.
	// Examples: "RandomForestRegressor", "HistGradientBoostingClassifier"
	ModelNameKey = "model.name"

	// CandidateKey is the registry name of a model candidate.
	// Examples: "hist_gradient_boosting", "random_forest", "lightgbm"
	CandidateKey = "model.candidate"

	// TargetKey names the forecast target being trained.
	// Values: TargetLightForecast, TargetRelayLight
	TargetKey = "model.target"

	// OperationKey specifies the machine learning operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is logging.
	ComponentKey = "ml.component"

	// StageKey identifies the orchestrator stage.
	// Examples: "load", "features", "supervised", "gate", "regression", "persist"
	StageKey = "pipeline.stage"

	// RunIDKey carries the unique identifier of a training run.
	RunIDKey = "pipeline.run_id"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// DroppedRowsKey counts rows removed by a stage (bad timestamps, duplicates,
	// missing future targets).
	DroppedRowsKey = "data.dropped_rows"

	// PathKey is a file-system path (dataset, artifact directory).
	PathKey = "data.path"

	// HorizonKey is the forecast horizon in rows.
	HorizonKey = "data.horizon_steps"
)

// Cross-validation context
const (
	// FoldKey is the 1-based walk-forward fold number.
	FoldKey = "cv.fold"

	// FoldsRunKey counts walk-forward folds that were evaluated.
	FoldsRunKey = "cv.folds_run"

	// FoldsSkippedKey counts walk-forward folds skipped for a single class.
	FoldsSkippedKey = "cv.folds_skipped"

	// TrainRowsKey and ValidRowsKey describe split sizes.
	TrainRowsKey = "cv.train_rows"
	ValidRowsKey = "cv.valid_rows"

	// SelectionModeKey is "holdout_mae", "holdout_f1" or "walk_forward_stability".
	SelectionModeKey = "cv.selection_mode"

	// SelectionScoreKey is the loss or score used to rank a candidate.
	SelectionScoreKey = "cv.selection_score"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	MAEKey      = "metrics.mae"
	RMSEKey     = "metrics.rmse"
	R2ScoreKey  = "metrics.r2_score"
	F1Key       = "metrics.f1"
	AccuracyKey = "metrics.accuracy"
	ROCAUCKey   = "metrics.roc_auc"

	// IterationKey records the current boosting iteration.
	IterationKey = "training.iteration"

	// LossKey records the training loss of a boosting iteration.
	LossKey = "metrics.loss"
)

// Error and Warning Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// SuggestionKey provides helpful suggestions for resolving issues.
	SuggestionKey = "error.suggestion"
)

// Configuration
const (
	RandomSeedKey  = "config.random_seed"
	DeviceKey      = "config.device"
	ModelFamilyKey = "config.model_family"
)

// Standard attribute values.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"

	TargetLightForecast = "light_forecast"
	TargetRelayLight    = "relay_light"

	ErrorQualityGate  = "QUALITY_GATE_FAILED"
	ErrorCandidateFit = "CANDIDATE_FIT_FAILED"
)
