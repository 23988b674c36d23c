package lightgbm

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/greenforecast/core/model"
	"github.com/YuminosukeSato/greenforecast/pkg/errors"
	"github.com/YuminosukeSato/greenforecast/sklearn/tree"
)

// LGBMClassifier is a binary classifier trained with the logloss objective.
type LGBMClassifier struct {
	model.BaseEstimator
	Hyperparams

	Model *Model
}

// NewLGBMClassifier creates a new classifier with default parameters
func NewLGBMClassifier() *LGBMClassifier {
	return &LGBMClassifier{Hyperparams: defaultHyperparams()}
}

// WithNumIterations sets the number of iterations
func (lgb *LGBMClassifier) WithNumIterations(n int) *LGBMClassifier {
	lgb.NumIterations = n
	return lgb
}

// WithLearningRate sets the learning rate
func (lgb *LGBMClassifier) WithLearningRate(lr float64) *LGBMClassifier {
	lgb.LearningRate = lr
	return lgb
}

// WithMaxDepth sets the maximum depth
func (lgb *LGBMClassifier) WithMaxDepth(d int) *LGBMClassifier {
	lgb.MaxDepth = d
	return lgb
}

// WithHyperparams replaces every hyperparameter at once.
func (lgb *LGBMClassifier) WithHyperparams(h Hyperparams) *LGBMClassifier {
	lgb.Hyperparams = h
	return lgb
}

// Fit trains on labels {0, 1}.
func (lgb *LGBMClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LGBMClassifier.Fit")

	r, _ := y.Dims()
	for i := 0; i < r; i++ {
		if v := y.At(i, 0); v != 0 && v != 1 {
			return errors.NewValueError("LGBMClassifier.Fit", "classification target must be binary (0 or 1)")
		}
	}

	trainer := NewTrainer(lgb.trainingParams("binary"))
	if err := trainer.Fit(X, y); err != nil {
		return errors.Wrap(err, "LGBMClassifier.Fit")
	}
	lgb.Model = trainer.GetModel()
	lgb.SetFitted()
	return nil
}

// PredictProba returns an (n, 2) matrix of [P(0), P(1)].
func (lgb *LGBMClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !lgb.IsFitted() {
		return nil, errors.NewNotFittedError("LGBMClassifier", "PredictProba")
	}
	p1, err := lgb.Model.Predict(X)
	if err != nil {
		return nil, err
	}
	return tree.ProbaMatrix(p1), nil
}

// Predict returns class labels.
func (lgb *LGBMClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !lgb.IsFitted() {
		return nil, errors.NewNotFittedError("LGBMClassifier", "Predict")
	}
	p1, err := lgb.Model.Predict(X)
	if err != nil {
		return nil, err
	}
	return tree.LabelsFromProba(p1), nil
}
