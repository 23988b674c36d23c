// Package pipeline chains median imputation with a tree estimator and stores
// the result as a self-describing artifact.
//
// Estimators are held in tagged variants (a Kind plus one concrete pointer)
// rather than behind interfaces, so fitted pipelines encode with gob without
// type registration and dispatch stays a closed switch.
package pipeline

import (
	"fmt"

	"github.com/YuminosukeSato/greenforecast/core/model"
	"github.com/YuminosukeSato/greenforecast/pkg/errors"
	"github.com/YuminosukeSato/greenforecast/sklearn/ensemble"
	"github.com/YuminosukeSato/greenforecast/sklearn/lightgbm"
)

// Kind identifies an estimator family.
type Kind string

const (
	KindHistGradientBoosting Kind = "hist_gradient_boosting"
	KindRandomForest         Kind = "random_forest"
	KindLightGBM             Kind = "lightgbm"
)

// RegressorModel is the closed set of regression estimators.
type RegressorModel struct {
	Kind Kind
	HGB  *ensemble.HistGradientBoostingRegressor
	RF   *ensemble.RandomForestRegressor
	LGBM *lightgbm.LGBMRegressor
}

// NewRegressorModel tags a concrete estimator.
func NewRegressorModel(est model.Regressor) (RegressorModel, error) {
	switch e := est.(type) {
	case *ensemble.HistGradientBoostingRegressor:
		return RegressorModel{Kind: KindHistGradientBoosting, HGB: e}, nil
	case *ensemble.RandomForestRegressor:
		return RegressorModel{Kind: KindRandomForest, RF: e}, nil
	case *lightgbm.LGBMRegressor:
		return RegressorModel{Kind: KindLightGBM, LGBM: e}, nil
	default:
		return RegressorModel{}, errors.NewValidationError("estimator", "unsupported regressor type", fmt.Sprintf("%T", est))
	}
}

// Estimator returns the tagged estimator.
func (m RegressorModel) Estimator() (model.Regressor, error) {
	switch {
	case m.Kind == KindHistGradientBoosting && m.HGB != nil:
		return m.HGB, nil
	case m.Kind == KindRandomForest && m.RF != nil:
		return m.RF, nil
	case m.Kind == KindLightGBM && m.LGBM != nil:
		return m.LGBM, nil
	default:
		return nil, errors.NewValidationError("kind", "regressor variant is empty or unknown", string(m.Kind))
	}
}

// Device reports where the estimator was trained.
func (m RegressorModel) Device() string {
	if m.Kind == KindLightGBM && m.LGBM != nil && m.LGBM.Model != nil {
		return m.LGBM.Model.Device
	}
	return "cpu"
}

// ClassifierModel is the closed set of classification estimators.
type ClassifierModel struct {
	Kind Kind
	HGB  *ensemble.HistGradientBoostingClassifier
	RF   *ensemble.RandomForestClassifier
	LGBM *lightgbm.LGBMClassifier
}

// NewClassifierModel tags a concrete estimator.
func NewClassifierModel(est model.Classifier) (ClassifierModel, error) {
	switch e := est.(type) {
	case *ensemble.HistGradientBoostingClassifier:
		return ClassifierModel{Kind: KindHistGradientBoosting, HGB: e}, nil
	case *ensemble.RandomForestClassifier:
		return ClassifierModel{Kind: KindRandomForest, RF: e}, nil
	case *lightgbm.LGBMClassifier:
		return ClassifierModel{Kind: KindLightGBM, LGBM: e}, nil
	default:
		return ClassifierModel{}, errors.NewValidationError("estimator", "unsupported classifier type", fmt.Sprintf("%T", est))
	}
}

// Estimator returns the tagged estimator.
func (m ClassifierModel) Estimator() (model.Classifier, error) {
	switch {
	case m.Kind == KindHistGradientBoosting && m.HGB != nil:
		return m.HGB, nil
	case m.Kind == KindRandomForest && m.RF != nil:
		return m.RF, nil
	case m.Kind == KindLightGBM && m.LGBM != nil:
		return m.LGBM, nil
	default:
		return nil, errors.NewValidationError("kind", "classifier variant is empty or unknown", string(m.Kind))
	}
}

// Device reports where the estimator was trained.
func (m ClassifierModel) Device() string {
	if m.Kind == KindLightGBM && m.LGBM != nil && m.LGBM.Model != nil {
		return m.LGBM.Model.Device
	}
	return "cpu"
}
