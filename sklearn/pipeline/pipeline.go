package pipeline

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/greenforecast/core/model"
	"github.com/YuminosukeSato/greenforecast/pkg/errors"
	"github.com/YuminosukeSato/greenforecast/preprocessing"
)

// Regressor is median imputation followed by a regression estimator
// trained on log1p(y). Predictions are mapped back with expm1.
type Regressor struct {
	model.BaseEstimator

	Imputer   *preprocessing.SimpleImputer
	Model     RegressorModel
	LogTarget bool
}

// NewRegressor wraps est with a median imputer and a log1p target transform.
func NewRegressor(est model.Regressor) (*Regressor, error) {
	m, err := NewRegressorModel(est)
	if err != nil {
		return nil, err
	}
	return &Regressor{
		Imputer:   preprocessing.NewMedianImputer(),
		Model:     m,
		LogTarget: true,
	}, nil
}

// Fit imputes X, transforms y and fits the estimator.
func (p *Regressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "pipeline.Regressor.Fit")

	est, err := p.Model.Estimator()
	if err != nil {
		return err
	}
	filled, err := p.Imputer.FitTransform(X)
	if err != nil {
		return err
	}

	target := y
	if p.LogTarget {
		r, _ := y.Dims()
		t := mat.NewDense(r, 1, nil)
		for i := 0; i < r; i++ {
			v := y.At(i, 0)
			if v <= -1 {
				return errors.NewValueError("pipeline.Regressor.Fit", "log1p target transform requires values > -1")
			}
			t.Set(i, 0, math.Log1p(v))
		}
		target = t
	}

	if err := est.Fit(filled, target); err != nil {
		return err
	}
	p.SetFitted()
	return nil
}

// Predict returns an (n, 1) column on the original target scale.
func (p *Regressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("pipeline.Regressor", "Predict")
	}
	est, err := p.Model.Estimator()
	if err != nil {
		return nil, err
	}
	filled, err := p.Imputer.Transform(X)
	if err != nil {
		return nil, err
	}
	pred, err := est.Predict(filled)
	if err != nil {
		return nil, err
	}
	if !p.LogTarget {
		return pred, nil
	}
	vals := model.ColumnVector(pred)
	for i, v := range vals {
		vals[i] = math.Expm1(v)
	}
	return mat.NewDense(len(vals), 1, vals), nil
}

// Classifier is median imputation followed by a binary classifier.
type Classifier struct {
	model.BaseEstimator

	Imputer *preprocessing.SimpleImputer
	Model   ClassifierModel
}

// NewClassifier wraps est with a median imputer.
func NewClassifier(est model.Classifier) (*Classifier, error) {
	m, err := NewClassifierModel(est)
	if err != nil {
		return nil, err
	}
	return &Classifier{Imputer: preprocessing.NewMedianImputer(), Model: m}, nil
}

// Fit imputes X and fits the estimator.
func (p *Classifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "pipeline.Classifier.Fit")

	est, err := p.Model.Estimator()
	if err != nil {
		return err
	}
	filled, err := p.Imputer.FitTransform(X)
	if err != nil {
		return err
	}
	if err := est.Fit(filled, y); err != nil {
		return err
	}
	p.SetFitted()
	return nil
}

func (p *Classifier) prepare(method string, X mat.Matrix) (model.Classifier, mat.Matrix, error) {
	if !p.IsFitted() {
		return nil, nil, errors.NewNotFittedError("pipeline.Classifier", method)
	}
	est, err := p.Model.Estimator()
	if err != nil {
		return nil, nil, err
	}
	filled, err := p.Imputer.Transform(X)
	if err != nil {
		return nil, nil, err
	}
	return est, filled, nil
}

// Predict returns class labels.
func (p *Classifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	est, filled, err := p.prepare("Predict", X)
	if err != nil {
		return nil, err
	}
	return est.Predict(filled)
}

// PredictProba returns an (n, 2) matrix of [P(0), P(1)].
func (p *Classifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	est, filled, err := p.prepare("PredictProba", X)
	if err != nil {
		return nil, err
	}
	return est.PredictProba(filled)
}
