// Package ensemble provides tree ensembles with a scikit-learn compatible API:
// random forests built from bootstrapped histogram trees, and histogram
// gradient boosting.
package ensemble

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/greenforecast/core/model"
	"github.com/YuminosukeSato/greenforecast/core/parallel"
	"github.com/YuminosukeSato/greenforecast/pkg/errors"
	"github.com/YuminosukeSato/greenforecast/pkg/log"
	"github.com/YuminosukeSato/greenforecast/sklearn/tree"
)

// ForestParams はランダムフォレストのハイパーパラメータ
type ForestParams struct {
	NEstimators     int
	MaxDepth        int // <= 0 means unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	// MaxFeatures is "sqrt", "log2" or "" for every feature.
	MaxFeatures string
	Bootstrap   bool
	// ClassWeight is "" or "balanced_subsample" (classifier only).
	ClassWeight string
	MaxBins     int
	RandomState uint64
	NJobs       int // <= 0 uses every core
}

// Option configures a forest.
type Option func(*ForestParams)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option {
	return func(p *ForestParams) { p.NEstimators = n }
}

// WithMaxDepth sets the maximum tree depth.
func WithMaxDepth(d int) Option {
	return func(p *ForestParams) { p.MaxDepth = d }
}

// WithMinSamplesLeaf sets the minimum number of samples per leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(p *ForestParams) { p.MinSamplesLeaf = n }
}

// WithMaxFeatures sets the per-split feature sampling rule.
func WithMaxFeatures(rule string) Option {
	return func(p *ForestParams) { p.MaxFeatures = rule }
}

// WithBootstrap toggles bootstrap sampling.
func WithBootstrap(b bool) Option {
	return func(p *ForestParams) { p.Bootstrap = b }
}

// WithClassWeight sets the class weighting rule.
func WithClassWeight(cw string) Option {
	return func(p *ForestParams) { p.ClassWeight = cw }
}

// WithRandomState sets the seed; tree k uses the stream (seed, k).
func WithRandomState(seed uint64) Option {
	return func(p *ForestParams) { p.RandomState = seed }
}

// WithNJobs sets the number of worker goroutines.
func WithNJobs(n int) Option {
	return func(p *ForestParams) { p.NJobs = n }
}

func defaultForestParams() ForestParams {
	return ForestParams{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
		MaxBins:         tree.DefaultMaxBins,
	}
}

// Forest holds the state shared by the forest regressor and classifier.
type Forest struct {
	model.BaseEstimator

	Params             ForestParams
	Trees              []*tree.Tree
	NFeatures          int
	FeatureImportances []float64
}

func (f *Forest) maxFeatures(nFeatures int) int {
	switch f.Params.MaxFeatures {
	case "sqrt":
		return max(1, int(math.Sqrt(float64(nFeatures))))
	case "log2":
		return max(1, int(math.Log2(float64(nFeatures))))
	default:
		return 0
	}
}

func (f *Forest) fit(op string, X, y mat.Matrix, classification bool) (err error) {
	defer errors.Recover(&err, op)

	r, c := X.Dims()
	yr, yc := y.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if r != yr {
		return errors.NewDimensionError(op, r, yr, 0)
	}
	if yc != 1 {
		return errors.NewDimensionError(op, 1, yc, 1)
	}
	if f.Params.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", f.Params.NEstimators)
	}

	target := make([]float64, r)
	for i := range target {
		target[i] = y.At(i, 0)
		if !errors.IsFinite(target[i]) {
			return errors.NewValueError(op, "target contains NaN or Inf")
		}
		if classification && target[i] != 0 && target[i] != 1 {
			return errors.NewValueError(op, "classification target must be binary (0 or 1)")
		}
	}

	mapper := tree.NewBinMapper(f.Params.MaxBins)
	if err := mapper.Fit(X); err != nil {
		return err
	}
	data, err := mapper.Transform(X)
	if err != nil {
		return err
	}

	tp := tree.Params{
		Criterion:       tree.SquaredError,
		MaxDepth:        f.Params.MaxDepth,
		MinSamplesSplit: f.Params.MinSamplesSplit,
		MinSamplesLeaf:  f.Params.MinSamplesLeaf,
		MaxFeatures:     f.maxFeatures(c),
		MaxBins:         f.Params.MaxBins,
	}
	if classification {
		tp.Criterion = tree.Gini
	}
	balanced := classification && f.Params.ClassWeight == "balanced_subsample"

	n := f.Params.NEstimators
	trees := make([]*tree.Tree, n)
	importances := make([][]float64, n)
	errs := make([]error, n)
	// 各木は (seed, index) の独立した乱数列を使うため、スケジューリングに依存しない
	parallel.ForEach(n, f.Params.NJobs, func(k int) {
		errs[k] = errors.SafeExecute(op, func() error {
			rng := rand.New(rand.NewPCG(f.Params.RandomState, uint64(k)))
			w, rows := f.sampleRows(rng, r)
			if balanced {
				balanceSubsample(w, rows, target)
			}
			t, gains := tree.Build(data, mapper, target, w, rows, tp, rng)
			trees[k] = t
			importances[k] = tree.Normalize(gains)
			return nil
		})
	})
	for _, e := range errs {
		if e != nil {
			return e
		}
	}

	mean := make([]float64, c)
	for _, imp := range importances {
		for j, v := range imp {
			mean[j] += v / float64(n)
		}
	}

	f.Trees = trees
	f.NFeatures = c
	f.FeatureImportances = tree.Normalize(mean)
	f.SetFitted()

	log.GetLoggerWithName("ensemble.forest").Debug("forest fitted",
		log.OperationKey, op,
		log.SamplesKey, r,
		log.FeaturesKey, c,
		"n_estimators", n)
	return nil
}

// sampleRows draws a bootstrap sample. Weights are draw counts; only drawn
// rows are returned.
func (f *Forest) sampleRows(rng *rand.Rand, n int) ([]float64, []int) {
	w := make([]float64, n)
	if !f.Params.Bootstrap {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = i
			w[i] = 1
		}
		return w, rows
	}
	for i := 0; i < n; i++ {
		w[rng.IntN(n)]++
	}
	rows := make([]int, 0, n)
	for i, c := range w {
		if c > 0 {
			rows = append(rows, i)
		}
	}
	return w, rows
}

// balanceSubsample reweights a bootstrap sample so that every class present
// carries equal total weight: w_c = n / (k * n_c) over the drawn sample.
func balanceSubsample(w []float64, rows []int, y []float64) {
	var counts [2]float64
	var total float64
	for _, i := range rows {
		counts[int(y[i])] += w[i]
		total += w[i]
	}
	present := 0.0
	for _, c := range counts {
		if c > 0 {
			present++
		}
	}
	for _, i := range rows {
		w[i] *= total / (present * counts[int(y[i])])
	}
}

// predictMean averages the tree outputs row by row.
func (f *Forest) predictMean(name string, X mat.Matrix) ([]float64, error) {
	if !f.IsFitted() {
		return nil, errors.NewNotFittedError(name, "Predict")
	}
	r, c := X.Dims()
	if c != f.NFeatures {
		return nil, errors.NewDimensionError(name+".Predict", f.NFeatures, c, 1)
	}
	out := make([]float64, r)
	parallel.ParallelizeWithThreshold(r, 256, f.Params.NJobs, func(start, end int) {
		row := make([]float64, c)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			var sum float64
			for _, t := range f.Trees {
				sum += t.PredictRow(row)
			}
			out[i] = sum / float64(len(f.Trees))
		}
	})
	return out, nil
}

// RandomForestRegressor averages bootstrapped regression trees.
type RandomForestRegressor struct {
	Forest
}

// NewRandomForestRegressor creates a forest regressor. Every feature is
// considered at each split unless WithMaxFeatures says otherwise.
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	p := defaultForestParams()
	for _, o := range opts {
		o(&p)
	}
	return &RandomForestRegressor{Forest{Params: p}}
}

// Fit grows the forest.
func (f *RandomForestRegressor) Fit(X, y mat.Matrix) error {
	return f.fit("RandomForestRegressor.Fit", X, y, false)
}

// Predict returns an (n, 1) column of predictions.
func (f *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	vals, err := f.predictMean("RandomForestRegressor", X)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(len(vals), 1, vals), nil
}

// RandomForestClassifier averages per-tree class probabilities.
type RandomForestClassifier struct {
	Forest
}

// NewRandomForestClassifier creates a forest classifier sampling sqrt(n_features)
// features per split by default.
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	p := defaultForestParams()
	p.MaxFeatures = "sqrt"
	for _, o := range opts {
		o(&p)
	}
	return &RandomForestClassifier{Forest{Params: p}}
}

// Fit grows the forest on labels {0, 1}.
func (f *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	return f.fit("RandomForestClassifier.Fit", X, y, true)
}

// PredictProba returns an (n, 2) matrix of [P(0), P(1)].
func (f *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	p1, err := f.predictMean("RandomForestClassifier", X)
	if err != nil {
		return nil, err
	}
	return tree.ProbaMatrix(p1), nil
}

// Predict returns class labels.
func (f *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	p1, err := f.predictMean("RandomForestClassifier", X)
	if err != nil {
		return nil, err
	}
	return tree.LabelsFromProba(p1), nil
}
