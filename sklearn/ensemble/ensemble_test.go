package ensemble

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func stepData(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64((i*7)%11))
		X.Set(i, 2, math.Cos(float64(i)))
		y.Set(i, 0, 2*float64(i)+5)
	}
	return X, y
}

func labelData(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i%20))
		X.Set(i, 1, float64((i*3)%7))
		X.Set(i, 2, float64(i))
		if i%20 >= 14 {
			y.Set(i, 0, 1)
		}
	}
	return X, y
}

func meanAbsError(pred, y mat.Matrix) float64 {
	r, _ := y.Dims()
	var s float64
	for i := 0; i < r; i++ {
		s += math.Abs(pred.At(i, 0) - y.At(i, 0))
	}
	return s / float64(r)
}

func TestRandomForestRegressor(t *testing.T) {
	X, y := stepData(120)
	rf := NewRandomForestRegressor(WithNEstimators(20), WithRandomState(3), WithMinSamplesLeaf(2))
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if len(rf.Trees) != 20 {
		t.Fatalf("trees = %d, want 20", len(rf.Trees))
	}
	pred, err := rf.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	// 平均予測 (MAE ≈ 60) よりはるかに良いはず
	if mae := meanAbsError(pred, y); mae > 10 {
		t.Errorf("training MAE = %v, want < 10", mae)
	}
	var sum float64
	for _, v := range rf.FeatureImportances {
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("importances sum to %v", sum)
	}
}

func TestRandomForestDeterministicAcrossWorkers(t *testing.T) {
	X, y := stepData(80)
	a := NewRandomForestRegressor(WithNEstimators(12), WithRandomState(11), WithNJobs(1))
	b := NewRandomForestRegressor(WithNEstimators(12), WithRandomState(11), WithNJobs(4))
	if err := a.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if err := b.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	pa, _ := a.Predict(X)
	pb, _ := b.Predict(X)
	if !mat.Equal(pa, pb) {
		t.Error("predictions must not depend on the number of workers")
	}
}

func TestRandomForestClassifier(t *testing.T) {
	X, y := labelData(200)
	rf := NewRandomForestClassifier(
		WithNEstimators(25),
		WithMaxDepth(6),
		WithClassWeight("balanced_subsample"),
		WithRandomState(5),
	)
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if rf.Params.MaxFeatures != "sqrt" {
		t.Errorf("classifier MaxFeatures = %q, want sqrt", rf.Params.MaxFeatures)
	}

	proba, err := rf.PredictProba(X)
	if err != nil {
		t.Fatal(err)
	}
	labels, _ := rf.Predict(X)
	correct := 0
	for i := 0; i < 200; i++ {
		p := proba.At(i, 1)
		if p < 0 || p > 1 || math.Abs(proba.At(i, 0)+p-1) > 1e-12 {
			t.Fatalf("row %d: invalid probabilities %v", i, p)
		}
		if labels.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	if correct < 180 {
		t.Errorf("training accuracy %d/200 too low", correct)
	}
}

func TestBalanceSubsample(t *testing.T) {
	y := []float64{0, 0, 0, 1}
	w := []float64{2, 1, 0, 1}
	rows := []int{0, 1, 3}
	balanceSubsample(w, rows, y)

	// n=4, k=2: class 0 has weight 3 -> 4/6 each, class 1 has weight 1 -> 2
	var w0, w1 float64
	for _, i := range rows {
		if y[i] == 0 {
			w0 += w[i]
		} else {
			w1 += w[i]
		}
	}
	if math.Abs(w0-w1) > 1e-12 || math.Abs(w0-2) > 1e-12 {
		t.Errorf("class weights = %v / %v, want 2 / 2", w0, w1)
	}
}

func TestRandomForestErrors(t *testing.T) {
	rf := NewRandomForestClassifier(WithNEstimators(2))
	if _, err := rf.Predict(mat.NewDense(1, 3, nil)); err == nil {
		t.Error("expected NotFittedError")
	}
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	if err := rf.Fit(X, mat.NewDense(3, 1, []float64{0, 1, 3})); err == nil {
		t.Error("expected error for non-binary target")
	}
	if err := NewRandomForestRegressor(WithNEstimators(0)).Fit(X, mat.NewDense(3, 1, nil)); err == nil {
		t.Error("expected validation error for n_estimators=0")
	}
}

func TestHistGradientBoostingRegressor(t *testing.T) {
	X, y := stepData(150)
	p := DefaultHistGradientBoostingParams()
	p.MaxIter = 60
	p.MinSamplesLeaf = 5
	hgb := NewHistGradientBoostingRegressor().WithParams(p)
	if err := hgb.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	pred, err := hgb.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	if mae := meanAbsError(pred, y); mae > 10 {
		t.Errorf("training MAE = %v, want < 10", mae)
	}
	if len(hgb.Model.Trees) != 60 {
		t.Errorf("trees = %d, want 60", len(hgb.Model.Trees))
	}
}

func TestHistGradientBoostingClassifier(t *testing.T) {
	X, y := labelData(200)
	p := DefaultHistGradientBoostingParams()
	p.MaxIter = 40
	hgb := NewHistGradientBoostingClassifier().WithParams(p)
	if err := hgb.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	labels, err := hgb.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	correct := 0
	for i := 0; i < 200; i++ {
		if labels.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	if correct < 190 {
		t.Errorf("training accuracy %d/200 too low", correct)
	}
	if _, err := NewHistGradientBoostingClassifier().PredictProba(X); err == nil {
		t.Error("expected NotFittedError")
	}
}
