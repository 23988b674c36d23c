package lightgbm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func linearData(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%7))
		X.Set(i, 2, math.Sin(float64(i)))
		y.Set(i, 0, float64(i)*0.5+10.0)
	}
	return X, y
}

// TestLGBMRegressorFit tests the fit method
func TestLGBMRegressorFit(t *testing.T) {
	X, y := linearData(100)

	reg := NewLGBMRegressor().WithNumIterations(50)
	err := reg.Fit(X, y)
	require.NoError(t, err)

	assert.True(t, reg.IsFitted())
	require.NotNil(t, reg.Model)
	assert.Len(t, reg.Model.Trees, 50)
	assert.InDelta(t, 34.75, reg.Model.InitScore, 1e-9)
}

// TestLGBMRegressorPredict tests that boosting reduces the training error
func TestLGBMRegressorPredict(t *testing.T) {
	X, y := linearData(200)

	reg := NewLGBMRegressor().
		WithNumIterations(100).
		WithLearningRate(0.1)
	reg.MinChildSamples = 5
	require.NoError(t, reg.Fit(X, y))

	pred, err := reg.Predict(X)
	require.NoError(t, err)

	var mae, baseline float64
	mean := reg.Model.InitScore
	for i := 0; i < 200; i++ {
		mae += math.Abs(pred.At(i, 0) - y.At(i, 0))
		baseline += math.Abs(mean - y.At(i, 0))
	}
	assert.Less(t, mae, baseline*0.1, "boosted model should beat the mean predictor")

	imp := reg.FeatureImportances()
	require.Len(t, imp, 3)
	assert.Greater(t, imp[0], imp[1])
}

func TestLGBMRegressorNotFitted(t *testing.T) {
	reg := NewLGBMRegressor()
	_, err := reg.Predict(mat.NewDense(1, 3, nil))
	assert.Error(t, err)
}

func TestLGBMRegressorDimensionMismatch(t *testing.T) {
	X, y := linearData(60)
	reg := NewLGBMRegressor().WithNumIterations(5)
	require.NoError(t, reg.Fit(X, y))
	_, err := reg.Predict(mat.NewDense(2, 2, nil))
	assert.Error(t, err)
}

func TestLGBMRegressorDeterministic(t *testing.T) {
	X, y := linearData(150)
	h := defaultHyperparams()
	h.NumIterations = 20
	h.Subsample = 0.7
	h.SubsampleFreq = 1
	h.ColsampleBytree = 0.67
	h.MinChildSamples = 3

	a := NewLGBMRegressor().WithHyperparams(h)
	b := NewLGBMRegressor().WithHyperparams(h)
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	pa, _ := a.Predict(X)
	pb, _ := b.Predict(X)
	assert.True(t, mat.Equal(pa, pb), "same seed must give identical predictions")
}

func TestLGBMRegressorHandlesNaN(t *testing.T) {
	X, y := linearData(80)
	for i := 0; i < 80; i += 9 {
		X.Set(i, 0, math.NaN())
	}
	reg := NewLGBMRegressor().WithNumIterations(10)
	reg.MinChildSamples = 2
	require.NoError(t, reg.Fit(X, y))

	pred, err := reg.Predict(mat.NewDense(1, 3, []float64{math.NaN(), 1, 0}))
	require.NoError(t, err)
	assert.False(t, math.IsNaN(pred.At(0, 0)))
}

// TestLGBMClassifierBinaryFit tests the fit method for binary classification
func TestLGBMClassifierBinaryFit(t *testing.T) {
	X := mat.NewDense(100, 4, nil)
	y := mat.NewDense(100, 1, nil)
	for i := 0; i < 100; i++ {
		for j := 0; j < 4; j++ {
			X.Set(i, j, float64(i*j)/100.0)
		}
		if i >= 50 {
			y.Set(i, 0, 1)
		}
	}

	clf := NewLGBMClassifier().WithNumIterations(30)
	require.NoError(t, clf.Fit(X, y))
	assert.True(t, clf.IsFitted())
	assert.Equal(t, "binary", clf.Model.Objective)
	assert.InDelta(t, 0.0, clf.Model.InitScore, 1e-9)

	proba, err := clf.PredictProba(X)
	require.NoError(t, err)
	r, c := proba.Dims()
	assert.Equal(t, 100, r)
	assert.Equal(t, 2, c)
	for i := 0; i < r; i++ {
		assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1), 1e-12)
	}

	labels, err := clf.Predict(X)
	require.NoError(t, err)
	correct := 0
	for i := 0; i < 100; i++ {
		if labels.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	assert.GreaterOrEqual(t, correct, 95)
}

func TestLGBMClassifierRejectsMulticlass(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 1, []float64{0, 1, 2})
	assert.Error(t, NewLGBMClassifier().Fit(X, y))
}

func TestObjectives(t *testing.T) {
	l2 := NewL2Objective()
	assert.Equal(t, 2.0, l2.CalculateGradient(5, 3))
	assert.Equal(t, 1.0, l2.CalculateHessian(5, 3))
	assert.Equal(t, 2.0, l2.GetInitScore([]float64{1, 2, 3}))

	bin := NewBinaryLogLoss()
	assert.InDelta(t, -0.5, bin.CalculateGradient(0, 1), 1e-12)
	assert.InDelta(t, 0.25, bin.CalculateHessian(0, 1), 1e-12)
	assert.InDelta(t, math.Log(3), bin.GetInitScore([]float64{1, 1, 1, 0}), 1e-12)
	assert.InDelta(t, math.Log(2), bin.CalculateLoss(0, 0), 1e-12)

	_, err := CreateObjectiveFunction("poisson")
	assert.Error(t, err)
}

func TestLeafWiseRespectsNumLeaves(t *testing.T) {
	X, y := linearData(200)
	params := DefaultParams()
	params.NumIterations = 3
	params.NumLeaves = 4
	params.MinDataInLeaf = 1

	trainer := NewTrainer(params)
	require.NoError(t, trainer.Fit(X, y))
	m := trainer.GetModel()
	for _, tr := range m.Trees {
		assert.LessOrEqual(t, tr.NumLeaves, 4)
	}

	params.NumLeaves = 0
	params.MaxDepth = 2
	trainer = NewTrainer(params)
	require.NoError(t, trainer.Fit(X, y))
	for _, tr := range trainer.GetModel().Trees {
		assert.LessOrEqual(t, tr.MaxDepth, 2)
		assert.LessOrEqual(t, tr.NumLeaves, 4)
	}
}
