package ensemble

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/greenforecast/core/model"
	"github.com/YuminosukeSato/greenforecast/pkg/errors"
	"github.com/YuminosukeSato/greenforecast/sklearn/lightgbm"
	"github.com/YuminosukeSato/greenforecast/sklearn/tree"
)

// HistGradientBoostingParams mirrors scikit-learn's HistGradientBoosting* arguments.
type HistGradientBoostingParams struct {
	LearningRate     float64
	MaxIter          int
	MaxDepth         int // <= 0 means unlimited
	MaxLeafNodes     int
	MinSamplesLeaf   int
	L2Regularization float64
	MaxBins          int
	RandomState      uint64
}

// DefaultHistGradientBoostingParams returns scikit-learn's defaults.
func DefaultHistGradientBoostingParams() HistGradientBoostingParams {
	return HistGradientBoostingParams{
		LearningRate:   0.1,
		MaxIter:        100,
		MaxLeafNodes:   31,
		MinSamplesLeaf: 20,
		MaxBins:        255,
	}
}

// HistGradientBoosting is the boosting state shared by the regressor and
// classifier. Training is delegated to the leaf-wise lightgbm engine without
// row or column subsampling.
type HistGradientBoosting struct {
	model.BaseEstimator

	Params HistGradientBoostingParams
	Model  *lightgbm.Model
}

func (h *HistGradientBoosting) fit(op, objective string, X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, op)

	trainer := lightgbm.NewTrainer(lightgbm.TrainingParams{
		NumIterations:       h.Params.MaxIter,
		LearningRate:        h.Params.LearningRate,
		NumLeaves:           h.Params.MaxLeafNodes,
		MaxDepth:            h.Params.MaxDepth,
		MinDataInLeaf:       h.Params.MinSamplesLeaf,
		MinSumHessianInLeaf: 1e-3,
		Lambda:              h.Params.L2Regularization,
		MaxBin:              h.Params.MaxBins,
		Objective:           objective,
		Seed:                h.Params.RandomState,
	})
	if err := trainer.Fit(X, y); err != nil {
		return errors.Wrap(err, op)
	}
	h.Model = trainer.GetModel()
	h.SetFitted()
	return nil
}

func (h *HistGradientBoosting) predictValues(name, method string, X mat.Matrix) ([]float64, error) {
	if !h.IsFitted() {
		return nil, errors.NewNotFittedError(name, method)
	}
	return h.Model.Predict(X)
}

// HistGradientBoostingRegressor is a least-squares histogram boosting regressor.
type HistGradientBoostingRegressor struct {
	HistGradientBoosting
}

// NewHistGradientBoostingRegressor creates a regressor with scikit-learn defaults.
func NewHistGradientBoostingRegressor() *HistGradientBoostingRegressor {
	return &HistGradientBoostingRegressor{HistGradientBoosting{Params: DefaultHistGradientBoostingParams()}}
}

// WithParams replaces the hyperparameters.
func (h *HistGradientBoostingRegressor) WithParams(p HistGradientBoostingParams) *HistGradientBoostingRegressor {
	h.Params = p
	return h
}

// Fit trains the regressor.
func (h *HistGradientBoostingRegressor) Fit(X, y mat.Matrix) error {
	return h.fit("HistGradientBoostingRegressor.Fit", "regression", X, y)
}

// Predict returns an (n, 1) column of predictions.
func (h *HistGradientBoostingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	vals, err := h.predictValues("HistGradientBoostingRegressor", "Predict", X)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(len(vals), 1, vals), nil
}

// HistGradientBoostingClassifier is a binary logloss histogram boosting classifier.
type HistGradientBoostingClassifier struct {
	HistGradientBoosting
}

// NewHistGradientBoostingClassifier creates a classifier with scikit-learn defaults.
func NewHistGradientBoostingClassifier() *HistGradientBoostingClassifier {
	return &HistGradientBoostingClassifier{HistGradientBoosting{Params: DefaultHistGradientBoostingParams()}}
}

// WithParams replaces the hyperparameters.
func (h *HistGradientBoostingClassifier) WithParams(p HistGradientBoostingParams) *HistGradientBoostingClassifier {
	h.Params = p
	return h
}

// Fit trains on labels {0, 1}.
func (h *HistGradientBoostingClassifier) Fit(X, y mat.Matrix) error {
	r, _ := y.Dims()
	for i := 0; i < r; i++ {
		if v := y.At(i, 0); v != 0 && v != 1 {
			return errors.NewValueError("HistGradientBoostingClassifier.Fit", "classification target must be binary (0 or 1)")
		}
	}
	return h.fit("HistGradientBoostingClassifier.Fit", "binary", X, y)
}

// PredictProba returns an (n, 2) matrix of [P(0), P(1)].
func (h *HistGradientBoostingClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	p1, err := h.predictValues("HistGradientBoostingClassifier", "PredictProba", X)
	if err != nil {
		return nil, err
	}
	return tree.ProbaMatrix(p1), nil
}

// Predict returns class labels.
func (h *HistGradientBoostingClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	p1, err := h.predictValues("HistGradientBoostingClassifier", "Predict", X)
	if err != nil {
		return nil, err
	}
	return tree.LabelsFromProba(p1), nil
}
