package selection

import (
	"math"
	"math/rand/v2"
	"reflect"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/greenforecast/core/model"
	"github.com/YuminosukeSato/greenforecast/pkg/errors"
	"github.com/YuminosukeSato/greenforecast/sklearn/ensemble"
	"github.com/YuminosukeSato/greenforecast/sklearn/pipeline"
	"github.com/YuminosukeSato/greenforecast/validation"
)

// synthetic returns a trend regression target and a blocky relay target.
func synthetic(n int) (*mat.Dense, []float64, []float64) {
	rng := rand.New(rand.NewPCG(7, 11))
	X := mat.NewDense(n, 3, nil)
	light := make([]float64, n)
	relay := make([]float64, n)
	for i := 0; i < n; i++ {
		phase := float64(i%24) / 24
		X.Set(i, 0, float64(i))
		X.Set(i, 1, math.Sin(2*math.Pi*phase))
		X.Set(i, 2, rng.NormFloat64())
		if i%7 == 0 {
			X.Set(i, 2, math.NaN())
		}
		light[i] = 50 + 3*float64(i) + rng.NormFloat64()
		if math.Sin(2*math.Pi*phase) > 0 {
			relay[i] = 1
		}
	}
	return X, light, relay
}

func smallRegressionTree(seed uint64) model.Regressor {
	return ensemble.NewRandomForestRegressor(
		ensemble.WithNEstimators(8),
		ensemble.WithMaxDepth(6),
		ensemble.WithRandomState(seed),
	)
}

func smallClassificationTree(seed uint64) model.Classifier {
	return ensemble.NewRandomForestClassifier(
		ensemble.WithNEstimators(8),
		ensemble.WithMaxDepth(6),
		ensemble.WithRandomState(seed),
	)
}

func forestCandidate(name string) Candidate {
	return Candidate{
		Name:          name,
		Kind:          pipeline.KindRandomForest,
		NewRegressor:  func(s Settings) model.Regressor { return smallRegressionTree(s.Seed) },
		NewClassifier: func(s Settings) model.Classifier { return smallClassificationTree(s.Seed) },
	}
}

func brokenCandidate(name string) Candidate {
	return Candidate{
		Name:          name,
		Kind:          pipeline.KindRandomForest,
		NewRegressor:  func(Settings) model.Regressor { return nil },
		NewClassifier: func(Settings) model.Classifier { return nil },
	}
}

func panickingCandidate(name string) Candidate {
	return Candidate{
		Name:          name,
		Kind:          pipeline.KindRandomForest,
		NewRegressor:  func(Settings) model.Regressor { panic("boom") },
		NewClassifier: func(Settings) model.Classifier { panic("boom") },
	}
}

func testOptions(reg Registry) Options {
	opts := DefaultOptions()
	opts.Registry = reg
	return opts
}

func TestRegistryOrderAndFamily(t *testing.T) {
	reg := DefaultRegistry()
	want := []string{"hist_gradient_boosting", "random_forest", "lightgbm"}
	if !reflect.DeepEqual(reg.Names(), want) {
		t.Errorf("names = %v", reg.Names())
	}
	if !reflect.DeepEqual(CompactRegistry().Names(), want) {
		t.Errorf("compact names = %v", CompactRegistry().Names())
	}

	boosted, err := reg.Family(FamilyLightGBM)
	if err != nil || len(boosted) != 1 || boosted[0].Name != "lightgbm" {
		t.Errorf("lightgbm family = %v, %v", boosted.Names(), err)
	}
	if _, err := reg.Family("xgboost"); err == nil {
		t.Error("unknown family must fail")
	}
	if _, err := (Registry{forestCandidate("rf")}).Family(FamilyLightGBM); err == nil {
		t.Error("lightgbm family without a lightgbm candidate must fail")
	}
}

func TestBoostedDevice(t *testing.T) {
	for device, want := range map[string]string{"cpu": "cpu", "cuda": "cuda", "auto": "cuda"} {
		h := boostedParams(compactSize, Settings{Device: device})
		if h.Device != want {
			t.Errorf("device %s -> %s, want %s", device, h.Device, want)
		}
	}
}

func TestEvaluateRegressionHoldout(t *testing.T) {
	X, light, _ := synthetic(120)
	res, err := EvaluateRegression(Data{X: X, Y: light, Split: 96}, testOptions(Registry{forestCandidate("rf")}))
	if err != nil {
		t.Fatal(err)
	}
	if res.BestName != "rf" || res.Best == nil {
		t.Fatalf("best = %q", res.BestName)
	}
	if res.SelectionMode != ModeHoldoutMAE {
		t.Errorf("mode = %s", res.SelectionMode)
	}
	m := res.Metrics["rf"]
	if res.SelectionScore != m.MAE || m.WalkForward != nil || m.WalkForwardFoldsRun != nil {
		t.Errorf("holdout metrics = %+v", m)
	}
}

func TestEvaluateRegressionWalkForward(t *testing.T) {
	X, light, _ := synthetic(160)
	opts := testOptions(Registry{forestCandidate("rf")})
	opts.Folds = validation.WalkForwardFolds(160, 3, 80, 20)
	if len(opts.Folds) < 2 {
		t.Fatalf("folds = %d", len(opts.Folds))
	}

	res, err := EvaluateRegression(Data{X: X, Y: light, Split: 128}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.SelectionMode != ModeWalkForwardStability {
		t.Errorf("mode = %s", res.SelectionMode)
	}
	wf := res.BestWalkForward
	if wf == nil || wf.FoldsRun != len(opts.Folds) || len(wf.ByFold) != wf.FoldsRun {
		t.Fatalf("walk-forward = %+v", wf)
	}
	mae := wf.Metrics["mae"]
	want := *mae.Mean + 0.25**mae.Std
	if math.Abs(res.SelectionScore-want) > 1e-12 {
		t.Errorf("score = %v, want %v", res.SelectionScore, want)
	}
	if wf.ByFold[0].Fold != 1 || wf.ByFold[0].TrainRows != 80 {
		t.Errorf("fold 1 = %+v", wf.ByFold[0])
	}
}

func TestEvaluateRegressionTieKeepsFirst(t *testing.T) {
	X, light, _ := synthetic(100)
	reg := Registry{forestCandidate("first"), forestCandidate("second")}
	res, err := EvaluateRegression(Data{X: X, Y: light, Split: 80}, testOptions(reg))
	if err != nil {
		t.Fatal(err)
	}
	if res.Metrics["first"].MAE != res.Metrics["second"].MAE {
		t.Fatal("identical candidates must score identically")
	}
	if res.BestName != "first" {
		t.Errorf("best = %s, want first (ties keep the incumbent)", res.BestName)
	}
}

func TestEvaluateRegressionSkipsFailures(t *testing.T) {
	X, light, _ := synthetic(100)
	reg := Registry{brokenCandidate("broken"), panickingCandidate("panics"), forestCandidate("rf")}
	res, err := EvaluateRegression(Data{X: X, Y: light, Split: 80}, testOptions(reg))
	if err != nil {
		t.Fatal(err)
	}
	if res.BestName != "rf" {
		t.Errorf("best = %s", res.BestName)
	}
	if len(res.Warnings) != 2 ||
		!strings.HasPrefix(res.Warnings[0], "Skipped regression model 'broken':") ||
		!strings.HasPrefix(res.Warnings[1], "Skipped regression model 'panics':") {
		t.Errorf("warnings = %v", res.Warnings)
	}
	if _, ok := res.Metrics["broken"]; ok {
		t.Error("failed candidate must not have metrics")
	}
}

func TestEvaluateRegressionNoViableModel(t *testing.T) {
	X, light, _ := synthetic(60)
	_, err := EvaluateRegression(Data{X: X, Y: light, Split: 40}, testOptions(Registry{brokenCandidate("a"), panickingCandidate("b")}))
	if !errors.Is(err, errors.ErrNoViableModel) {
		t.Errorf("got %v, want NoViableModel", err)
	}
}

func TestEvaluateParallelMatchesSequential(t *testing.T) {
	X, light, relay := synthetic(140)
	reg := Registry{forestCandidate("a"), brokenCandidate("b"), forestCandidate("c")}
	folds := validation.WalkForwardFolds(140, 2, 80, 20)

	run := func(parallelism int) (*RegressionResult, *ClassificationResult) {
		opts := testOptions(reg)
		opts.Folds = folds
		opts.Parallelism = parallelism
		r, err := EvaluateRegression(Data{X: X, Y: light, Split: 112}, opts)
		if err != nil {
			t.Fatal(err)
		}
		c, err := EvaluateClassification(Data{X: X, Y: relay, Split: 112}, opts)
		if err != nil {
			t.Fatal(err)
		}
		return r, c
	}

	r1, c1 := run(1)
	r3, c3 := run(3)
	if r1.BestName != r3.BestName || !reflect.DeepEqual(r1.Metrics, r3.Metrics) || !reflect.DeepEqual(r1.Warnings, r3.Warnings) {
		t.Error("regression selection depends on parallelism")
	}
	if c1.BestName != c3.BestName || !reflect.DeepEqual(c1.Metrics, c3.Metrics) {
		t.Error("classification selection depends on parallelism")
	}
}

func TestEvaluateClassification(t *testing.T) {
	X, _, relay := synthetic(160)
	opts := testOptions(Registry{forestCandidate("rf")})
	opts.Folds = validation.WalkForwardFolds(160, 3, 80, 20)

	res, err := EvaluateClassification(Data{X: X, Y: relay, Split: 128}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.SkipReason != "" || res.Best == nil {
		t.Fatalf("skip = %q", res.SkipReason)
	}
	m := res.Metrics["rf"]
	if m.ROCAUC == nil {
		t.Error("roc_auc expected when validation has both classes")
	}
	if res.SelectionMode != ModeWalkForwardStability {
		t.Errorf("mode = %s", res.SelectionMode)
	}
	f1 := res.BestWalkForward.Metrics["f1"]
	if want := *f1.Mean - 0.10**f1.Std; math.Abs(res.SelectionScore-want) > 1e-12 {
		t.Errorf("score = %v, want %v", res.SelectionScore, want)
	}
}

func TestEvaluateClassificationSkips(t *testing.T) {
	X, _, relay := synthetic(100)

	single := make([]float64, len(relay))
	copy(single, relay)
	for i := 0; i < 80; i++ {
		single[i] = 0
	}
	res, err := EvaluateClassification(Data{X: X, Y: single, Split: 80}, testOptions(Registry{forestCandidate("rf")}))
	if err != nil {
		t.Fatal(err)
	}
	if res.SkipReason != SkipSingleClassTrain || res.Best != nil {
		t.Errorf("single class: %+v", res)
	}

	res, err = EvaluateClassification(Data{X: X, Y: relay, Split: 80}, testOptions(Registry{brokenCandidate("x")}))
	if err != nil {
		t.Fatal(err)
	}
	if res.SkipReason != SkipNoClassifier || len(res.Warnings) != 1 {
		t.Errorf("all failed: %+v", res)
	}
}

func TestClassificationWalkForwardSkipsSingleClassFolds(t *testing.T) {
	X, _, relay := synthetic(160)
	y := make([]float64, len(relay))
	copy(y, relay)
	// 先頭100行は単一クラス: 最初のフォールドだけがスキップされる
	for i := 0; i < 100; i++ {
		y[i] = 1
	}
	opts := testOptions(Registry{forestCandidate("rf")})
	opts.Folds = []validation.Fold{
		{Train: validation.Range{Start: 0, End: 80}, Valid: validation.Range{Start: 80, End: 110}},
		{Train: validation.Range{Start: 0, End: 110}, Valid: validation.Range{Start: 110, End: 140}},
		{Train: validation.Range{Start: 0, End: 140}, Valid: validation.Range{Start: 140, End: 160}},
	}
	wf, err := classificationWalkForward(opts.Registry[0], Data{X: X, Y: y, Split: 120}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if wf.FoldsSkipped != 1 || wf.FoldsRun != 2 {
		t.Errorf("run %d skipped %d", wf.FoldsRun, wf.FoldsSkipped)
	}
	if wf.ByFold[0].Fold != 2 {
		t.Errorf("first run fold = %d, want 2", wf.ByFold[0].Fold)
	}
}

func TestDataValidation(t *testing.T) {
	X, light, _ := synthetic(50)
	for name, d := range map[string]Data{
		"nil matrix":   {Y: light, Split: 10},
		"short target": {X: X, Y: light[:10], Split: 5},
		"split at 0":   {X: X, Y: light, Split: 0},
		"split at end": {X: X, Y: light, Split: 50},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := EvaluateRegression(d, testOptions(Registry{forestCandidate("rf")})); err == nil {
				t.Error("expected error")
			}
		})
	}
}
