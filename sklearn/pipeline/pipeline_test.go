package pipeline

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/greenforecast/sklearn/ensemble"
	"github.com/YuminosukeSato/greenforecast/sklearn/lightgbm"
	"github.com/YuminosukeSato/greenforecast/sklearn/tree"
)

func trendData(n int) (*mat.Dense, *mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	labels := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%5))
		if i%11 == 0 {
			X.Set(i, 1, math.NaN())
		}
		y.Set(i, 0, 100+3*float64(i))
		if i%10 >= 6 {
			labels.Set(i, 0, 1)
		}
	}
	return X, y, labels
}

func TestRegressorLogTargetRoundTrip(t *testing.T) {
	X, y, _ := trendData(120)
	p := ensemble.DefaultHistGradientBoostingParams()
	p.MaxIter = 80
	p.MinSamplesLeaf = 3

	reg, err := NewRegressor(ensemble.NewHistGradientBoostingRegressor().WithParams(p))
	require.NoError(t, err)
	assert.Equal(t, KindHistGradientBoosting, reg.Model.Kind)
	require.NoError(t, reg.Fit(X, y))

	pred, err := reg.Predict(X)
	require.NoError(t, err)
	for _, i := range []int{10, 60, 110} {
		// expm1 で元のスケールに戻っていること
		assert.InEpsilon(t, y.At(i, 0), pred.At(i, 0), 0.1)
	}
}

func TestRegressorRejectsNegativeTarget(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 1, []float64{0, -1, 2})
	reg, err := NewRegressor(ensemble.NewRandomForestRegressor(ensemble.WithNEstimators(2)))
	require.NoError(t, err)
	assert.Error(t, reg.Fit(X, y))
}

func TestUnsupportedEstimator(t *testing.T) {
	_, err := NewRegressor(tree.NewDecisionTreeRegressor())
	assert.Error(t, err)
	_, err = NewClassifier(tree.NewDecisionTreeClassifier())
	assert.Error(t, err)

	var empty RegressorModel
	_, err = empty.Estimator()
	assert.Error(t, err)
}

func TestClassifierPipeline(t *testing.T) {
	X, _, labels := trendData(150)
	clf, err := NewClassifier(ensemble.NewRandomForestClassifier(
		ensemble.WithNEstimators(15),
		ensemble.WithRandomState(1),
	))
	require.NoError(t, err)
	require.NoError(t, clf.Fit(X, labels))

	proba, err := clf.PredictProba(X)
	require.NoError(t, err)
	r, c := proba.Dims()
	assert.Equal(t, 150, r)
	assert.Equal(t, 2, c)

	_, err = clf.Predict(mat.NewDense(1, 3, nil))
	assert.Error(t, err, "column count mismatch must be reported")
	assert.Equal(t, "cpu", clf.Model.Device())
}

func TestArtifactSaveLoad(t *testing.T) {
	X, y, labels := trendData(100)
	dir := t.TempDir()

	lgb := lightgbm.NewLGBMRegressor().WithNumIterations(30)
	lgb.MinChildSamples = 3
	reg, err := NewRegressor(lgb)
	require.NoError(t, err)
	require.NoError(t, reg.Fit(X, y))

	clf, err := NewClassifier(ensemble.NewRandomForestClassifier(ensemble.WithNEstimators(5)))
	require.NoError(t, err)
	require.NoError(t, clf.Fit(X, labels))

	cases := []struct {
		name     string
		artifact *Artifact
	}{
		{"regressor", &Artifact{Target: "light_lux", ModelName: "lightgbm", Columns: []string{"a", "b"}, Regressor: reg}},
		{"classifier", &Artifact{Target: "relay_light", ModelName: "random_forest", Columns: []string{"a", "b"}, Classifier: clf}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.artifact.HorizonSteps = 1
			tc.artifact.TrainedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
			path := filepath.Join(dir, tc.name+".gob")
			require.NoError(t, SaveArtifact(tc.artifact, path))

			loaded, err := LoadArtifact(path)
			require.NoError(t, err)
			assert.Equal(t, tc.artifact.ModelName, loaded.ModelName)
			assert.Equal(t, tc.artifact.Columns, loaded.Columns)
			assert.True(t, tc.artifact.TrainedAt.Equal(loaded.TrainedAt))

			var want, got mat.Matrix
			if tc.artifact.Regressor != nil {
				want, _ = tc.artifact.Regressor.Predict(X)
				got, err = loaded.Regressor.Predict(X)
			} else {
				want, _ = tc.artifact.Classifier.PredictProba(X)
				got, err = loaded.Classifier.PredictProba(X)
			}
			require.NoError(t, err)
			assert.True(t, mat.Equal(want, got), "loaded pipeline must predict identically")
		})
	}
}

func TestArtifactValidate(t *testing.T) {
	assert.Error(t, (&Artifact{}).Validate())
	reg, _ := NewRegressor(ensemble.NewRandomForestRegressor())
	assert.Error(t, (&Artifact{Regressor: reg}).Validate(), "unfitted pipeline must not be saved")
}
