package lightgbm

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/greenforecast/core/parallel"
	"github.com/YuminosukeSato/greenforecast/pkg/errors"
	"github.com/YuminosukeSato/greenforecast/pkg/log"
	"github.com/YuminosukeSato/greenforecast/sklearn/tree"
)

const (
	// minSplitGain rejects splits that only move floating-point noise.
	minSplitGain = 1e-12
	// parallelRowThreshold is the leaf size above which per-feature
	// histograms are built concurrently.
	parallelRowThreshold = 2048
)

// Trainer implements the leaf-wise histogram boosting algorithm
type Trainer struct {
	params TrainingParams

	// Binned training data
	mapper *tree.BinMapper
	data   *tree.Binned
	y      []float64

	// Gradient and Hessian
	gradients []float64
	hessians  []float64
	scores    []float64

	objective ObjectiveFunction
	initScore float64
	trees     []Tree
	gains     []float64

	rng *rand.Rand
	bag []int
}

// Histogram represents a histogram bin
type Histogram struct {
	Count   int
	SumGrad float64
	SumHess float64
}

// SplitInfo contains information about a potential split
type SplitInfo struct {
	Feature   int
	Bin       uint8
	Gain      float64
	LeftCount int
	LeftGrad  float64
	LeftHess  float64
	valid     bool
}

type leaf struct {
	node  int
	rows  []int
	depth int
	grad  float64
	hess  float64
	best  SplitInfo
}

// NewTrainer creates a new trainer
func NewTrainer(params TrainingParams) *Trainer {
	return &Trainer{params: params.withDefaults()}
}

// Fit trains the ensemble. y must be a single column.
func (t *Trainer) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "lightgbm.Trainer.Fit")

	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("lightgbm.Trainer.Fit", "empty data", errors.ErrEmptyData)
	}
	yr, yc := y.Dims()
	if yr != rows {
		return errors.NewDimensionError("lightgbm.Trainer.Fit", rows, yr, 0)
	}
	if yc != 1 {
		return errors.NewDimensionError("lightgbm.Trainer.Fit", 1, yc, 1)
	}

	objective, err := CreateObjectiveFunction(t.params.Objective)
	if err != nil {
		return err
	}
	t.objective = objective

	t.y = make([]float64, rows)
	for i := range t.y {
		t.y[i] = y.At(i, 0)
		if !errors.IsFinite(t.y[i]) {
			return errors.NewValueError("lightgbm.Trainer.Fit", "target contains NaN or Inf")
		}
	}

	t.mapper = tree.NewBinMapper(t.params.MaxBin)
	if err := t.mapper.Fit(X); err != nil {
		return errors.Wrap(err, "histogram building failed")
	}
	if t.data, err = t.mapper.Transform(X); err != nil {
		return errors.Wrap(err, "histogram building failed")
	}

	t.initScore = t.objective.GetInitScore(t.y)
	t.scores = make([]float64, rows)
	for i := range t.scores {
		t.scores[i] = t.initScore
	}
	t.gradients = make([]float64, rows)
	t.hessians = make([]float64, rows)
	t.gains = make([]float64, cols)
	t.trees = make([]Tree, 0, t.params.NumIterations)
	t.rng = rand.New(rand.NewPCG(t.params.Seed, 0x9e3779b97f4a7c15))
	t.bag = nil

	logger := log.GetLoggerWithName("lightgbm.trainer")
	if t.params.Device != "cpu" {
		logger.Debug("accelerator requested, training on cpu", log.DeviceKey, t.params.Device)
	}

	// Main training loop
	for iter := 0; iter < t.params.NumIterations; iter++ {
		t.calculateGradients()
		t.sampleBag(iter)
		features := t.sampleFeatures()

		tr := t.buildTree(features)
		t.trees = append(t.trees, tr)
		t.updateScores(&t.trees[len(t.trees)-1])

		if t.params.Verbosity > 0 && iter%10 == 0 {
			logger.Debug("Training progress",
				log.IterationKey, iter,
				log.LossKey, t.calculateLoss())
		}
	}
	return nil
}

func (t *Trainer) workers(items int) int {
	if items < parallelRowThreshold {
		return 1
	}
	return parallel.Workers(t.params.NumThreads)
}

// calculateGradients refreshes gradients and hessians from the cached scores.
func (t *Trainer) calculateGradients() {
	n := len(t.y)
	parallel.ParallelizeWithThreshold(n, parallelRowThreshold, t.params.NumThreads, func(start, end int) {
		for i := start; i < end; i++ {
			t.gradients[i] = t.objective.CalculateGradient(t.scores[i], t.y[i])
			t.hessians[i] = t.objective.CalculateHessian(t.scores[i], t.y[i])
		}
	})
}

// sampleBag redraws the row subsample every BaggingFreq iterations.
func (t *Trainer) sampleBag(iter int) {
	n := len(t.y)
	bagging := t.params.BaggingFreq > 0 && t.params.BaggingFraction < 1
	if t.bag != nil && (!bagging || iter%t.params.BaggingFreq != 0) {
		return
	}

	bag := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if !bagging || t.rng.Float64() < t.params.BaggingFraction {
			bag = append(bag, i)
		}
	}
	if len(bag) == 0 {
		for i := 0; i < n; i++ {
			bag = append(bag, i)
		}
	}
	t.bag = bag
}

// sampleFeatures draws the per-tree column subset, sorted so split search
// visits features in index order.
func (t *Trainer) sampleFeatures() []int {
	nf := t.data.Cols
	if t.params.FeatureFraction >= 1 {
		all := make([]int, nf)
		for j := range all {
			all[j] = j
		}
		return all
	}
	k := int(math.Round(t.params.FeatureFraction * float64(nf)))
	if k < 1 {
		k = 1
	}
	features := t.rng.Perm(nf)[:k]
	sort.Ints(features)
	return features
}

// buildTree grows one tree best-first: the leaf with the largest gain is
// split until NumLeaves is reached or no leaf can be split.
func (t *Trainer) buildTree(features []int) Tree {
	tr := Tree{ShrinkageRate: t.params.LearningRate}
	root := &leaf{node: 0, rows: t.bag}
	for _, i := range root.rows {
		root.grad += t.gradients[i]
		root.hess += t.hessians[i]
	}
	tr.Nodes = append(tr.Nodes, Node{LeftChild: -1, RightChild: -1, LeafCount: len(root.rows)})
	root.best = t.findBestSplit(root, features)

	leaves := []*leaf{root}
	for t.params.NumLeaves <= 0 || len(leaves) < t.params.NumLeaves {
		bi := -1
		for i, l := range leaves {
			if l.best.valid && (bi < 0 || l.best.Gain > leaves[bi].best.Gain) {
				bi = i
			}
		}
		if bi < 0 {
			break
		}

		l := leaves[bi]
		left, right := t.splitData(l)
		li := len(tr.Nodes)
		ri := li + 1
		tr.Nodes = append(tr.Nodes,
			Node{LeftChild: -1, RightChild: -1, LeafCount: len(left)},
			Node{LeftChild: -1, RightChild: -1, LeafCount: len(right)},
		)

		n := &tr.Nodes[l.node]
		n.LeftChild = li
		n.RightChild = ri
		n.SplitFeature = l.best.Feature
		n.SplitBin = l.best.Bin
		n.Threshold = t.mapper.Threshold(l.best.Feature, l.best.Bin)
		n.Gain = l.best.Gain
		t.gains[l.best.Feature] += l.best.Gain

		depth := l.depth + 1
		if depth > tr.MaxDepth {
			tr.MaxDepth = depth
		}
		ll := &leaf{node: li, rows: left, depth: depth, grad: l.best.LeftGrad, hess: l.best.LeftHess}
		rl := &leaf{node: ri, rows: right, depth: depth, grad: l.grad - l.best.LeftGrad, hess: l.hess - l.best.LeftHess}
		ll.best = t.findBestSplit(ll, features)
		rl.best = t.findBestSplit(rl, features)
		leaves[bi] = ll
		leaves = append(leaves, rl)
	}

	for _, l := range leaves {
		tr.Nodes[l.node].LeafValue = t.calculateLeafValue(l.grad, l.hess)
	}
	tr.NumLeaves = len(leaves)
	return tr
}

// findBestSplit scans every candidate feature of a leaf. Per-feature results
// are written by index and reduced in feature order, so the chosen split does
// not depend on goroutine scheduling.
func (t *Trainer) findBestSplit(l *leaf, features []int) SplitInfo {
	if t.params.MaxDepth > 0 && l.depth >= t.params.MaxDepth {
		return SplitInfo{}
	}
	if len(l.rows) < 2*t.params.MinDataInLeaf {
		return SplitInfo{}
	}

	results := make([]SplitInfo, len(features))
	parallel.ForEach(len(features), t.workers(len(l.rows)), func(k int) {
		results[k] = t.findBestSplitForFeature(l, features[k])
	})

	var best SplitInfo
	for _, s := range results {
		if s.valid && (!best.valid || s.Gain > best.Gain) {
			best = s
		}
	}
	return best
}

func (t *Trainer) findBestSplitForFeature(l *leaf, feature int) SplitInfo {
	nb := t.data.NumBins[feature]
	hist := make([]Histogram, nb)
	col := t.data.Column(feature)
	for _, i := range l.rows {
		h := &hist[col[i]]
		h.Count++
		h.SumGrad += t.gradients[i]
		h.SumHess += t.hessians[i]
	}

	best := SplitInfo{Gain: math.Max(t.params.MinGainToSplit, minSplitGain)}
	minData := t.params.MinDataInLeaf
	minHess := t.params.MinSumHessianInLeaf
	var lc int
	var lg, lh float64
	// The missing bin is last and always goes right.
	for bin := 0; bin < nb-2; bin++ {
		lc += hist[bin].Count
		lg += hist[bin].SumGrad
		lh += hist[bin].SumHess
		if hist[bin].Count == 0 || lc < minData || lh < minHess {
			continue
		}
		rc := len(l.rows) - lc
		rh := l.hess - lh
		if rc < minData || rh < minHess {
			break
		}
		gain := t.calculateSplitGain(lg, lh, l.grad-lg, rh, l.grad, l.hess)
		if gain > best.Gain {
			best = SplitInfo{
				Feature:   feature,
				Bin:       uint8(bin),
				Gain:      gain,
				LeftCount: lc,
				LeftGrad:  lg,
				LeftHess:  lh,
				valid:     true,
			}
		}
	}
	return best
}

// calculateSplitGain calculates the gain from a split
func (t *Trainer) calculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess float64) float64 {
	lambda := t.params.Lambda
	return 0.5 * (leftGrad*leftGrad/(leftHess+lambda) +
		rightGrad*rightGrad/(rightHess+lambda) -
		totalGrad*totalGrad/(totalHess+lambda))
}

func (t *Trainer) splitData(l *leaf) ([]int, []int) {
	left := make([]int, 0, l.best.LeftCount)
	right := make([]int, 0, len(l.rows)-l.best.LeftCount)
	col := t.data.Column(l.best.Feature)
	for _, i := range l.rows {
		if col[i] <= l.best.Bin {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

// calculateLeafValue is the Newton step -G/(H+lambda).
func (t *Trainer) calculateLeafValue(sumGrad, sumHess float64) float64 {
	return -errors.SafeDivide(sumGrad, sumHess+t.params.Lambda)
}

// updateScores adds the new tree's output for every row, bagged or not.
func (t *Trainer) updateScores(tr *Tree) {
	n := len(t.y)
	parallel.ParallelizeWithThreshold(n, parallelRowThreshold, t.params.NumThreads, func(start, end int) {
		for i := start; i < end; i++ {
			id := 0
			for !tr.Nodes[id].IsLeaf() {
				node := &tr.Nodes[id]
				if t.data.At(i, node.SplitFeature) <= node.SplitBin {
					id = node.LeftChild
				} else {
					id = node.RightChild
				}
			}
			t.scores[i] += tr.Nodes[id].LeafValue * tr.ShrinkageRate
		}
	})
}

func (t *Trainer) calculateLoss() float64 {
	total := 0.0
	for i, target := range t.y {
		total += t.objective.CalculateLoss(t.scores[i], target)
	}
	return total / float64(len(t.y))
}

// GetModel returns the trained model
func (t *Trainer) GetModel() *Model {
	return &Model{
		Objective:         t.objective.Name(),
		NumIteration:      len(t.trees),
		LearningRate:      t.params.LearningRate,
		NumFeatures:       t.data.Cols,
		Device:            "cpu",
		Trees:             t.trees,
		InitScore:         t.initScore,
		FeatureImportance: tree.Normalize(t.gains),
	}
}
