package lightgbm

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/greenforecast/core/model"
	"github.com/YuminosukeSato/greenforecast/pkg/errors"
)

// Hyperparams holds the scikit-learn style parameters shared by
// LGBMRegressor and LGBMClassifier.
type Hyperparams struct {
	NumLeaves       int     // Number of leaves in one tree (<= 0: limited by MaxDepth)
	MaxDepth        int     // Maximum tree depth
	LearningRate    float64 // Boosting learning rate
	NumIterations   int     // Number of boosting iterations
	MinChildSamples int     // Minimum number of data in one leaf
	MinChildWeight  float64 // Minimum sum of hessians in one leaf
	Subsample       float64 // Subsample ratio of training data
	SubsampleFreq   int     // Frequency of subsample
	ColsampleBytree float64 // Subsample ratio of columns when constructing tree
	RegLambda       float64 // L2 regularization
	RandomState     uint64
	NumThreads      int
	Verbosity       int
	Device          string // Requested device ("cpu", "cuda"); advisory
}

func defaultHyperparams() Hyperparams {
	d := DefaultParams()
	return Hyperparams{
		NumLeaves:       d.NumLeaves,
		MaxDepth:        d.MaxDepth,
		LearningRate:    d.LearningRate,
		NumIterations:   d.NumIterations,
		MinChildSamples: d.MinDataInLeaf,
		MinChildWeight:  d.MinSumHessianInLeaf,
		Subsample:       1.0,
		ColsampleBytree: 1.0,
		RandomState:     42,
		Device:          d.Device,
	}
}

// trainingParams maps the scikit-learn names onto the engine parameters.
func (h Hyperparams) trainingParams(objective string) TrainingParams {
	return TrainingParams{
		NumIterations:       h.NumIterations,
		LearningRate:        h.LearningRate,
		NumLeaves:           h.NumLeaves,
		MaxDepth:            h.MaxDepth,
		MinDataInLeaf:       h.MinChildSamples,
		MinSumHessianInLeaf: h.MinChildWeight,
		Lambda:              h.RegLambda,
		BaggingFraction:     h.Subsample,
		BaggingFreq:         h.SubsampleFreq,
		FeatureFraction:     h.ColsampleBytree,
		MaxBin:              255,
		Objective:           objective,
		Seed:                h.RandomState,
		Verbosity:           h.Verbosity,
		NumThreads:          h.NumThreads,
		Device:              h.Device,
	}
}

// LGBMRegressor implements a LightGBM-style regressor with a scikit-learn compatible API
type LGBMRegressor struct {
	model.BaseEstimator
	Hyperparams

	Model *Model
}

// NewLGBMRegressor creates a new regressor with default parameters
func NewLGBMRegressor() *LGBMRegressor {
	return &LGBMRegressor{Hyperparams: defaultHyperparams()}
}

// WithNumLeaves sets the number of leaves
func (lgb *LGBMRegressor) WithNumLeaves(n int) *LGBMRegressor {
	lgb.NumLeaves = n
	return lgb
}

// WithMaxDepth sets the maximum depth
func (lgb *LGBMRegressor) WithMaxDepth(d int) *LGBMRegressor {
	lgb.MaxDepth = d
	return lgb
}

// WithLearningRate sets the learning rate
func (lgb *LGBMRegressor) WithLearningRate(lr float64) *LGBMRegressor {
	lgb.LearningRate = lr
	return lgb
}

// WithNumIterations sets the number of iterations
func (lgb *LGBMRegressor) WithNumIterations(n int) *LGBMRegressor {
	lgb.NumIterations = n
	return lgb
}

// WithRandomState sets the random seed
func (lgb *LGBMRegressor) WithRandomState(seed uint64) *LGBMRegressor {
	lgb.RandomState = seed
	return lgb
}

// WithHyperparams replaces every hyperparameter at once.
func (lgb *LGBMRegressor) WithHyperparams(h Hyperparams) *LGBMRegressor {
	lgb.Hyperparams = h
	return lgb
}

// Fit trains the regressor on an (n, 1) target.
func (lgb *LGBMRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LGBMRegressor.Fit")

	trainer := NewTrainer(lgb.trainingParams("regression"))
	if err := trainer.Fit(X, y); err != nil {
		return errors.Wrap(err, "LGBMRegressor.Fit")
	}
	lgb.Model = trainer.GetModel()
	lgb.SetFitted()
	return nil
}

// Predict returns an (n, 1) column of predictions.
func (lgb *LGBMRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !lgb.IsFitted() {
		return nil, errors.NewNotFittedError("LGBMRegressor", "Predict")
	}
	preds, err := lgb.Model.Predict(X)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(len(preds), 1, preds), nil
}

// FeatureImportances returns normalized gain importances.
func (lgb *LGBMRegressor) FeatureImportances() []float64 {
	if lgb.Model == nil {
		return nil
	}
	return lgb.Model.FeatureImportance
}
