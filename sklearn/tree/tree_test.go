package tree

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestDecisionTreeClassifier_FitPredict_Binary(t *testing.T) {
	// 線形分離可能なデータ
	X := mat.NewDense(8, 2, []float64{
		1, 1,
		1, 2,
		2, 1,
		2, 2,
		5, 5,
		5, 6,
		6, 5,
		6, 6,
	})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})

	dt := NewDecisionTreeClassifier(
		WithCriterion("gini"),
		WithMaxDepth(5),
	)
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	predictions, err := dt.Predict(X)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	for i := 0; i < 8; i++ {
		if predictions.At(i, 0) != y.At(i, 0) {
			t.Errorf("sample %d: predicted %v, want %v", i, predictions.At(i, 0), y.At(i, 0))
		}
	}

	XTest := mat.NewDense(2, 2, []float64{
		1.5, 1.5,
		5.5, 5.5,
	})
	testPreds, err := dt.Predict(XTest)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if testPreds.At(0, 0) != 0 || testPreds.At(1, 0) != 1 {
		t.Errorf("unexpected test predictions %v", mat.Formatted(testPreds))
	}
	if dt.Tree.Depth != 1 {
		t.Errorf("separable data should need one split, depth = %d", dt.Tree.Depth)
	}
}

func TestDecisionTreeClassifier_PredictProba(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewDense(6, 1, []float64{0, 0, 1, 0, 1, 1})

	dt := NewDecisionTreeClassifier(WithMaxDepth(1), WithMinSamplesLeaf(3))
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	probas, err := dt.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba failed: %v", err)
	}

	r, c := probas.Dims()
	if r != 6 || c != 2 {
		t.Fatalf("proba shape = (%d,%d), want (6,2)", r, c)
	}
	for i := 0; i < r; i++ {
		if sum := probas.At(i, 0) + probas.At(i, 1); math.Abs(sum-1) > 1e-12 {
			t.Errorf("row %d probabilities sum to %v", i, sum)
		}
	}
	if math.Abs(probas.At(0, 1)-1.0/3.0) > 1e-12 || math.Abs(probas.At(5, 1)-2.0/3.0) > 1e-12 {
		t.Errorf("leaf probabilities = %v / %v", probas.At(0, 1), probas.At(5, 1))
	}
}

func TestDecisionTreeClassifier_Entropy(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		5, 5,
		5, 6,
		6, 5,
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})

	dt := NewDecisionTreeClassifier(WithCriterion("entropy"), WithMaxDepth(3))
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if dt.Params.Criterion != Entropy {
		t.Errorf("criterion = %v", dt.Params.Criterion)
	}
	preds, _ := dt.Predict(X)
	for i := 0; i < 6; i++ {
		if preds.At(i, 0) != y.At(i, 0) {
			t.Errorf("sample %d misclassified", i)
		}
	}
}

func TestDecisionTreeClassifier_RejectsNonBinary(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 1, []float64{0, 1, 2})
	if err := NewDecisionTreeClassifier().Fit(X, y); err == nil {
		t.Error("expected error for label 2")
	}
}

func TestDecisionTreeClassifier_FeatureImportance(t *testing.T) {
	// 特徴量0のみが目的変数に関係する
	X := mat.NewDense(8, 3, []float64{
		0, 7, 3,
		1, 2, 3,
		2, 9, 3,
		3, 1, 3,
		10, 8, 3,
		11, 3, 3,
		12, 6, 3,
		13, 2, 3,
	})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})

	dt := NewDecisionTreeClassifier()
	if err := dt.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	imp := dt.FeatureImportances
	if len(imp) != 3 {
		t.Fatalf("importances length = %d", len(imp))
	}
	if math.Abs(imp[0]-1) > 1e-12 || imp[2] != 0 {
		t.Errorf("importances = %v, want all weight on feature 0", imp)
	}
}

func TestDecisionTree_MaxDepth(t *testing.T) {
	X := mat.NewDense(16, 2, nil)
	y := mat.NewDense(16, 1, nil)
	for i := 0; i < 16; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%4))
		y.Set(i, 0, float64(i%2))
	}

	dt := NewDecisionTreeClassifier(WithMaxDepth(2))
	if err := dt.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if dt.Tree.Depth > 2 {
		t.Errorf("depth = %d, want <= 2", dt.Tree.Depth)
	}
	if dt.Tree.NumLeaves() > 4 {
		t.Errorf("leaves = %d, want <= 4", dt.Tree.NumLeaves())
	}
}

func TestDecisionTree_MinSamplesLeaf(t *testing.T) {
	X := mat.NewDense(10, 1, nil)
	y := mat.NewDense(10, 1, nil)
	for i := 0; i < 10; i++ {
		X.Set(i, 0, float64(i))
		y.Set(i, 0, float64(i*i))
	}

	dt := NewDecisionTreeRegressor(WithMinSamplesLeaf(3))
	if err := dt.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	for _, n := range dt.Tree.Nodes {
		if n.IsLeaf() && n.Samples < 3 {
			t.Errorf("leaf with %d samples violates min_samples_leaf", n.Samples)
		}
	}
}

func TestDecisionTreeRegressor_FitsStepFunction(t *testing.T) {
	n := 100
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		if i < 50 {
			y.Set(i, 0, 10)
		} else {
			y.Set(i, 0, 30)
		}
	}

	dt := NewDecisionTreeRegressor(WithMaxDepth(3))
	if err := dt.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	pred, err := dt.Predict(mat.NewDense(3, 1, []float64{10, 49.4, 75}))
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{10, 10, 30}
	for i, w := range want {
		if pred.At(i, 0) != w {
			t.Errorf("pred[%d] = %v, want %v", i, pred.At(i, 0), w)
		}
	}
}

func TestDecisionTree_NotFittedAndDims(t *testing.T) {
	dt := NewDecisionTreeRegressor()
	if _, err := dt.Predict(mat.NewDense(1, 1, []float64{1})); err == nil {
		t.Error("expected NotFittedError")
	}
	X := mat.NewDense(4, 2, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	y := mat.NewDense(3, 1, []float64{1, 2, 3})
	if err := dt.Fit(X, y); err == nil {
		t.Error("expected DimensionError for mismatched rows")
	}
}

func TestBinMapper(t *testing.T) {
	nan := math.NaN()
	X := mat.NewDense(6, 1, []float64{3, 1, 2, 2, nan, 10})

	bm := NewBinMapper(255)
	if err := bm.Fit(X); err != nil {
		t.Fatal(err)
	}
	wantEdges := []float64{1.5, 2.5, 6.5}
	if len(bm.Edges[0]) != len(wantEdges) {
		t.Fatalf("edges = %v, want %v", bm.Edges[0], wantEdges)
	}
	for i, e := range wantEdges {
		if bm.Edges[0][i] != e {
			t.Errorf("edge %d = %v, want %v", i, bm.Edges[0][i], e)
		}
	}

	data, err := bm.Transform(X)
	if err != nil {
		t.Fatal(err)
	}
	wantBins := []uint8{2, 0, 1, 1, bm.MissingBin(0), 3}
	for i, b := range wantBins {
		if data.At(i, 0) != b {
			t.Errorf("bin[%d] = %d, want %d", i, data.At(i, 0), b)
		}
	}
	if data.NumBins[0] != 5 {
		t.Errorf("NumBins = %d, want 5", data.NumBins[0])
	}
}

func TestBinMapperCapsBins(t *testing.T) {
	n := 1000
	X := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, rand.Float64())
	}
	bm := NewBinMapper(16)
	if err := bm.Fit(X); err != nil {
		t.Fatal(err)
	}
	if got := len(bm.Edges[0]); got > 15 {
		t.Errorf("edges = %d, want <= 15", got)
	}
	for i := 1; i < len(bm.Edges[0]); i++ {
		if bm.Edges[0][i] <= bm.Edges[0][i-1] {
			t.Fatal("edges must be strictly increasing")
		}
	}
}

func TestBuildWithFeatureSampling(t *testing.T) {
	n := 200
	X := mat.NewDense(n, 4, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < 4; j++ {
			X.Set(i, j, float64((i*(j+3))%17))
		}
		y[i] = X.At(i, 0) * 2
	}
	bm := NewBinMapper(255)
	if err := bm.Fit(X); err != nil {
		t.Fatal(err)
	}
	data, _ := bm.Transform(X)
	w := make([]float64, n)
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
		w[i] = 1
	}

	p := DefaultParams()
	p.MaxFeatures = 2
	a, _ := Build(data, bm, y, w, rows, p, rand.New(rand.NewPCG(7, 1)))
	b, _ := Build(data, bm, y, w, rows, p, rand.New(rand.NewPCG(7, 1)))
	if len(a.Nodes) != len(b.Nodes) {
		t.Fatal("same seed must produce the same tree")
	}
	for i := range a.Nodes {
		if a.Nodes[i] != b.Nodes[i] {
			t.Fatalf("node %d differs", i)
		}
	}
}
