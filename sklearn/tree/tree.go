// Package tree implements histogram-based CART decision trees.
//
// Features are discretised once by a BinMapper; split search then scans
// per-node bin histograms instead of sorting raw values. Fitted trees store
// raw-value thresholds, so prediction needs no binning.
package tree

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/greenforecast/core/model"
	"github.com/YuminosukeSato/greenforecast/pkg/errors"
)

// Node is a single tree node. Leaves have Left == Right == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	// Value is the weighted target mean, or P(class 1) for classifiers.
	Value   float64
	Samples int
	Weight  float64
}

// IsLeaf reports whether n is a terminal node.
func (n *Node) IsLeaf() bool {
	return n.Left < 0
}

// Tree is a fitted binary tree stored in a flat node slice; node 0 is the root.
type Tree struct {
	Nodes []Node
	Depth int
}

// PredictRow returns the leaf value reached by row. NaN goes right.
func (t *Tree) PredictRow(row []float64) float64 {
	n := &t.Nodes[0]
	for !n.IsLeaf() {
		if row[n.Feature] <= n.Threshold {
			n = &t.Nodes[n.Left]
		} else {
			n = &t.Nodes[n.Right]
		}
	}
	return n.Value
}

// NumLeaves counts terminal nodes.
func (t *Tree) NumLeaves() int {
	c := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			c++
		}
	}
	return c
}

// Option configures tree parameters.
type Option func(*Params)

// WithCriterion sets the split criterion ("squared_error", "gini", "entropy").
func WithCriterion(c string) Option {
	return func(p *Params) { p.Criterion = Criterion(c) }
}

// WithMaxDepth sets the maximum depth; <= 0 means unlimited.
func WithMaxDepth(d int) Option {
	return func(p *Params) { p.MaxDepth = d }
}

// WithMinSamplesSplit sets the minimum samples required to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(p *Params) { p.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(p *Params) { p.MinSamplesLeaf = n }
}

// WithMaxFeatures sets the number of features sampled per split.
func WithMaxFeatures(n int) Option {
	return func(p *Params) { p.MaxFeatures = n }
}

// WithMaxBins sets the number of histogram bins per feature.
func WithMaxBins(n int) Option {
	return func(p *Params) { p.MaxBins = n }
}

// WithRandomState seeds feature sampling.
func WithRandomState(seed uint64) Option {
	return func(p *Params) { p.RandomState = seed }
}

// TreeModel holds the state shared by the regressor and classifier.
// It is exported so embedded fields survive gob encoding.
type TreeModel struct {
	model.BaseEstimator

	Params             Params
	Tree               *Tree
	NFeatures          int
	FeatureImportances []float64
}

func (b *TreeModel) fit(op string, X, y mat.Matrix, binaryTarget bool) (err error) {
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

	target := make([]float64, r)
	for i := range target {
		target[i] = y.At(i, 0)
		if binaryTarget && target[i] != 0 && target[i] != 1 {
			return errors.NewValueError(op, "classification target must be binary (0 or 1)")
		}
		if !errors.IsFinite(target[i]) {
			return errors.NewValueError(op, "target contains NaN or Inf")
		}
	}

	mapper := NewBinMapper(b.Params.MaxBins)
	if err := mapper.Fit(X); err != nil {
		return err
	}
	data, err := mapper.Transform(X)
	if err != nil {
		return err
	}

	weights := make([]float64, r)
	rows := make([]int, r)
	for i := range rows {
		rows[i] = i
		weights[i] = 1
	}
	rng := rand.New(rand.NewPCG(b.Params.RandomState, 0))
	t, gains := Build(data, mapper, target, weights, rows, b.Params, rng)

	b.Tree = t
	b.NFeatures = c
	b.FeatureImportances = Normalize(gains)
	b.SetFitted()
	return nil
}

func (b *TreeModel) predictValues(op string, X mat.Matrix) ([]float64, error) {
	if !b.IsFitted() {
		return nil, errors.NewNotFittedError(op, "Predict")
	}
	r, c := X.Dims()
	if c != b.NFeatures {
		return nil, errors.NewDimensionError(op, b.NFeatures, c, 1)
	}
	out := make([]float64, r)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		out[i] = b.Tree.PredictRow(row)
	}
	return out, nil
}

// Normalize scales importances to sum to one. All-zero input stays zero.
func Normalize(gains []float64) []float64 {
	out := make([]float64, len(gains))
	var total float64
	for _, g := range gains {
		total += g
	}
	if total <= 0 {
		return out
	}
	for i, g := range gains {
		out[i] = g / total
	}
	return out
}

// DecisionTreeRegressor is a CART regression tree.
type DecisionTreeRegressor struct {
	TreeModel
}

// NewDecisionTreeRegressor creates a regression tree with the squared error criterion.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	p := DefaultParams()
	for _, o := range opts {
		o(&p)
	}
	p.Criterion = SquaredError
	return &DecisionTreeRegressor{TreeModel{Params: p}}
}

// Fit grows the tree.
func (d *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	return d.fit("DecisionTreeRegressor.Fit", X, y, false)
}

// Predict returns an (n, 1) column of predictions.
func (d *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	vals, err := d.predictValues("DecisionTreeRegressor", X)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(len(vals), 1, vals), nil
}

// DecisionTreeClassifier is a binary CART classification tree.
type DecisionTreeClassifier struct {
	TreeModel
}

// NewDecisionTreeClassifier creates a classification tree (gini by default).
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	p := DefaultParams()
	p.Criterion = Gini
	for _, o := range opts {
		o(&p)
	}
	if p.Criterion != Entropy {
		p.Criterion = Gini
	}
	return &DecisionTreeClassifier{TreeModel{Params: p}}
}

// Fit grows the tree on labels {0, 1}.
func (d *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	return d.fit("DecisionTreeClassifier.Fit", X, y, true)
}

// PredictProba returns an (n, 2) matrix of [P(0), P(1)].
func (d *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	vals, err := d.predictValues("DecisionTreeClassifier", X)
	if err != nil {
		return nil, err
	}
	return ProbaMatrix(vals), nil
}

// Predict returns class labels; P(1) must exceed 0.5 to predict 1.
func (d *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	vals, err := d.predictValues("DecisionTreeClassifier", X)
	if err != nil {
		return nil, err
	}
	return LabelsFromProba(vals), nil
}

// ProbaMatrix builds an (n, 2) probability matrix from P(1) values.
func ProbaMatrix(p1 []float64) *mat.Dense {
	out := mat.NewDense(len(p1), 2, nil)
	for i, p := range p1 {
		out.Set(i, 0, 1-p)
		out.Set(i, 1, p)
	}
	return out
}

// LabelsFromProba thresholds P(1) at 0.5; ties predict class 0.
func LabelsFromProba(p1 []float64) *mat.Dense {
	out := mat.NewDense(len(p1), 1, nil)
	for i, p := range p1 {
		if p > 0.5 {
			out.Set(i, 0, 1)
		}
	}
	return out
}
