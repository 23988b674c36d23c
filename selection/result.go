package selection

import (
	"github.com/YuminosukeSato/greenforecast/metrics"
	"github.com/YuminosukeSato/greenforecast/sklearn/pipeline"
)

// Selection modes recorded per target.
const (
	ModeHoldoutMAE           = "holdout_mae"
	ModeHoldoutF1            = "holdout_f1"
	ModeWalkForwardStability = "walk_forward_stability"
)

// Classification skip reasons.
const (
	SkipSingleClassTrain = "Skipping relay_light classifier: target has only one class in training split."
	SkipNoClassifier     = "No classification model could be trained."
)

// RegressionMetrics is the report entry of one regression candidate.
type RegressionMetrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`

	WalkForward         map[string]metrics.MeanStd `json:"walk_forward,omitempty"`
	WalkForwardFoldsRun *int                       `json:"walk_forward_folds_run,omitempty"`
}

// ClassificationMetrics is the report entry of one classification candidate.
type ClassificationMetrics struct {
	Accuracy  float64  `json:"accuracy"`
	Precision float64  `json:"precision"`
	Recall    float64  `json:"recall"`
	F1        float64  `json:"f1"`
	ROCAUC    *float64 `json:"roc_auc,omitempty"`

	WalkForward         map[string]metrics.MeanStd `json:"walk_forward,omitempty"`
	WalkForwardFoldsRun *int                       `json:"walk_forward_folds_run,omitempty"`
}

// RegressionFold holds the scores of one walk-forward fold.
type RegressionFold struct {
	Fold      int     `json:"fold"`
	TrainRows int     `json:"train_rows"`
	ValidRows int     `json:"valid_rows"`
	MAE       float64 `json:"mae"`
	RMSE      float64 `json:"rmse"`
	R2        float64 `json:"r2"`
}

// RegressionWalkForward summarises the walk-forward folds of one pipeline.
type RegressionWalkForward struct {
	FoldsRun int                        `json:"folds_run"`
	Metrics  map[string]metrics.MeanStd `json:"metrics"`
	ByFold   []RegressionFold           `json:"by_fold"`
}

// ClassificationFold holds the scores of one walk-forward fold.
type ClassificationFold struct {
	Fold      int      `json:"fold"`
	TrainRows int      `json:"train_rows"`
	ValidRows int      `json:"valid_rows"`
	Accuracy  float64  `json:"accuracy"`
	Precision float64  `json:"precision"`
	Recall    float64  `json:"recall"`
	F1        float64  `json:"f1"`
	ROCAUC    *float64 `json:"roc_auc,omitempty"`
}

// ClassificationWalkForward summarises the walk-forward folds of one pipeline.
// Folds whose training window holds a single class are counted in
// FoldsSkipped.
type ClassificationWalkForward struct {
	FoldsRun     int                        `json:"folds_run"`
	FoldsSkipped int                        `json:"folds_skipped"`
	Metrics      map[string]metrics.MeanStd `json:"metrics"`
	ByFold       []ClassificationFold       `json:"by_fold"`
}

// RegressionResult is the outcome of EvaluateRegression.
type RegressionResult struct {
	BestName        string
	Best            *pipeline.Regressor
	BestWalkForward *RegressionWalkForward
	SelectionMode   string
	SelectionScore  float64
	// Metrics is keyed by candidate name and only holds fitted candidates.
	Metrics  map[string]RegressionMetrics
	Warnings []string
}

// ClassificationResult is the outcome of EvaluateClassification. Best is nil
// and SkipReason is set when no classifier was selected.
type ClassificationResult struct {
	BestName        string
	Best            *pipeline.Classifier
	BestWalkForward *ClassificationWalkForward
	SelectionMode   string
	SelectionScore  float64
	Metrics         map[string]ClassificationMetrics
	SkipReason      string
	Warnings        []string
}
