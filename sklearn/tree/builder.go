package tree

import (
	"math"
	"math/rand/v2"
)

// Criterion selects the impurity measure used to rank splits.
type Criterion string

const (
	SquaredError Criterion = "squared_error"
	Gini         Criterion = "gini"
	Entropy      Criterion = "entropy"
)

// Params are the growth limits shared by regression and classification trees.
type Params struct {
	Criterion       Criterion
	MaxDepth        int // <= 0 means unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	// MaxFeatures is the number of features sampled per split; <= 0 means all.
	MaxFeatures int
	MaxBins     int
	RandomState uint64
}

// DefaultParams mirrors scikit-learn's tree defaults.
func DefaultParams() Params {
	return Params{
		Criterion:       SquaredError,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxBins:         DefaultMaxBins,
	}
}

// minImpurityDecrease guards against splits that only move floating-point noise.
const minImpurityDecrease = 1e-12

// binStats accumulates per-bin sample count, weight and weighted target sum.
// For binary classification the target is the 0/1 label, so sum is the
// weight of class 1.
type binStats struct {
	count int
	w     float64
	s     float64
}

type builder struct {
	data     *Binned
	mapper   *BinMapper
	y        []float64
	w        []float64
	params   Params
	rng      *rand.Rand
	hist     []binStats
	features []int
	tree     *Tree
	gains    []float64
}

// Build grows a tree over the given rows of a binned dataset. w holds per-row
// weights (bootstrap counts times class weights); rows with zero weight should
// be excluded by the caller. The returned importances are the unnormalised
// weighted impurity decreases per feature.
func Build(data *Binned, mapper *BinMapper, y, w []float64, rows []int, params Params, rng *rand.Rand) (*Tree, []float64) {
	if params.MinSamplesLeaf < 1 {
		params.MinSamplesLeaf = 1
	}
	if params.MinSamplesSplit < 2 {
		params.MinSamplesSplit = 2
	}
	if params.Criterion == "" {
		params.Criterion = SquaredError
	}

	b := &builder{
		data:     data,
		mapper:   mapper,
		y:        y,
		w:        w,
		params:   params,
		rng:      rng,
		hist:     make([]binStats, 256),
		features: make([]int, data.Cols),
		tree:     &Tree{},
		gains:    make([]float64, data.Cols),
	}
	for j := range b.features {
		b.features[j] = j
	}

	own := append([]int(nil), rows...)
	b.grow(own, 0)
	return b.tree, b.gains
}

// nodeCost is the weighted impurity of a node up to a constant shared by the
// parent and its children.
func nodeCost(c Criterion, w, s float64) float64 {
	if w <= 0 {
		return 0
	}
	switch c {
	case Gini:
		return 2 * s * (w - s) / w
	case Entropy:
		p := s / w
		if p <= 0 || p >= 1 {
			return 0
		}
		return -w * (p*math.Log2(p) + (1-p)*math.Log2(1-p))
	default:
		// Σw(y-ȳ)² = Σwy² - s²/w; the Σwy² term cancels in a split.
		return -s * s / w
	}
}

type split struct {
	feature  int
	bin      uint8
	decrease float64
}

func (b *builder) grow(rows []int, depth int) int {
	var w, s float64
	for _, i := range rows {
		w += b.w[i]
		s += b.w[i] * b.y[i]
	}

	idx := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{
		Left:    -1,
		Right:   -1,
		Value:   s / w,
		Samples: len(rows),
		Weight:  w,
	})
	if depth > b.tree.Depth {
		b.tree.Depth = depth
	}

	if (b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) ||
		len(rows) < b.params.MinSamplesSplit ||
		len(rows) < 2*b.params.MinSamplesLeaf ||
		b.isPure(rows) {
		return idx
	}

	best, ok := b.bestSplit(rows, w, s)
	if !ok {
		return idx
	}

	left := make([]int, 0, len(rows))
	right := make([]int, 0, len(rows))
	col := b.data.Column(best.feature)
	for _, i := range rows {
		if col[i] <= best.bin {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	b.gains[best.feature] += best.decrease
	b.tree.Nodes[idx].Feature = best.feature
	b.tree.Nodes[idx].Threshold = b.mapper.Threshold(best.feature, best.bin)

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.tree.Nodes[idx].Left = l
	b.tree.Nodes[idx].Right = r
	return idx
}

func (b *builder) isPure(rows []int) bool {
	first := b.y[rows[0]]
	for _, i := range rows[1:] {
		if b.y[i] != first {
			return false
		}
	}
	return true
}

// candidateFeatures returns the features examined at one node, sampled
// without replacement when MaxFeatures is set.
func (b *builder) candidateFeatures() []int {
	k := b.params.MaxFeatures
	if k <= 0 || k >= len(b.features) || b.rng == nil {
		return b.features
	}
	// Partial Fisher-Yates over the scratch slice.
	for i := 0; i < k; i++ {
		j := i + b.rng.IntN(len(b.features)-i)
		b.features[i], b.features[j] = b.features[j], b.features[i]
	}
	return b.features[:k]
}

func (b *builder) bestSplit(rows []int, w, s float64) (split, bool) {
	parent := nodeCost(b.params.Criterion, w, s)
	best := split{decrease: minImpurityDecrease}
	found := false
	minLeaf := b.params.MinSamplesLeaf

	for _, j := range b.candidateFeatures() {
		nb := b.data.NumBins[j]
		hist := b.hist[:nb]
		for k := range hist {
			hist[k] = binStats{}
		}
		col := b.data.Column(j)
		for _, i := range rows {
			h := &hist[col[i]]
			h.count++
			h.w += b.w[i]
			h.s += b.w[i] * b.y[i]
		}

		// The missing bin is last and always goes right.
		var lc int
		var lw, ls float64
		for bin := 0; bin < nb-2; bin++ {
			lc += hist[bin].count
			lw += hist[bin].w
			ls += hist[bin].s
			if hist[bin].count == 0 {
				continue
			}
			rc := len(rows) - lc
			if lc < minLeaf {
				continue
			}
			if rc < minLeaf {
				break
			}
			dec := parent - nodeCost(b.params.Criterion, lw, ls) - nodeCost(b.params.Criterion, w-lw, s-ls)
			if dec > best.decrease {
				best = split{feature: j, bin: uint8(bin), decrease: dec}
				found = true
			}
		}
	}
	return best, found
}
