package tree

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/greenforecast/core/model"
	"github.com/YuminosukeSato/greenforecast/pkg/errors"
)

// DefaultMaxBins is the default number of value bins per feature. One extra
// bin per feature is reserved for missing values, so bins fit in a uint8.
const DefaultMaxBins = 255

// BinMapper discretises continuous features into at most MaxBins ordered bins.
//
// Edges[j] holds ascending upper edges for feature j: a value v falls into the
// first bin b with v <= Edges[j][b], values above every edge fall into bin
// len(Edges[j]), and NaN falls into the missing bin len(Edges[j])+1. Because
// a split "bin <= b" is the same as "v <= Edges[j][b]", trees trained on bins
// predict directly on raw values.
type BinMapper struct {
	model.BaseEstimator

	MaxBins int
	Edges   [][]float64
}

// NewBinMapper creates a BinMapper. maxBins outside [2, 255] falls back to
// DefaultMaxBins.
func NewBinMapper(maxBins int) *BinMapper {
	if maxBins < 2 || maxBins > DefaultMaxBins {
		maxBins = DefaultMaxBins
	}
	return &BinMapper{MaxBins: maxBins}
}

// Fit computes bin edges from the distinct finite values of each column.
func (b *BinMapper) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("BinMapper.Fit", "empty data", errors.ErrEmptyData)
	}

	b.Edges = make([][]float64, c)
	values := make([]float64, 0, r)
	for j := 0; j < c; j++ {
		values = values[:0]
		for i := 0; i < r; i++ {
			v := X.At(i, j)
			if !math.IsNaN(v) {
				values = append(values, v)
			}
		}
		b.Edges[j] = binEdges(values, b.MaxBins)
	}

	b.SetFitted()
	return nil
}

// binEdges returns midpoints between distinct values, thinned to equal
// frequency over the distinct values when there are more than maxBins.
func binEdges(values []float64, maxBins int) []float64 {
	if len(values) == 0 {
		return nil
	}
	sort.Float64s(values)
	unique := []float64{values[0]}
	for i := 1; i < len(values); i++ {
		if values[i] != values[i-1] {
			unique = append(unique, values[i])
		}
	}

	if len(unique) <= maxBins {
		edges := make([]float64, len(unique)-1)
		for i := range edges {
			edges[i] = midpoint(unique[i], unique[i+1])
		}
		return edges
	}

	edges := make([]float64, 0, maxBins-1)
	for k := 1; k < maxBins; k++ {
		idx := k * len(unique) / maxBins
		edge := midpoint(unique[idx-1], unique[idx])
		if len(edges) == 0 || edge > edges[len(edges)-1] {
			edges = append(edges, edge)
		}
	}
	return edges
}

func midpoint(a, b float64) float64 {
	m := a + (b-a)/2
	if math.IsInf(m, 0) {
		// ±Inf neighbours: keep the finite side so the edge still separates them.
		if math.IsInf(a, 0) {
			return b
		}
		return a
	}
	return m
}

// NumFeatures returns the number of fitted features.
func (b *BinMapper) NumFeatures() int {
	return len(b.Edges)
}

// NumBins returns the number of bins of feature j including the missing bin.
func (b *BinMapper) NumBins(j int) int {
	return len(b.Edges[j]) + 2
}

// MissingBin returns the bin index reserved for NaN in feature j.
func (b *BinMapper) MissingBin(j int) uint8 {
	return uint8(len(b.Edges[j]) + 1)
}

// Threshold returns the raw-value threshold of split "bin <= bin" on feature j.
func (b *BinMapper) Threshold(j int, bin uint8) float64 {
	return b.Edges[j][bin]
}

// BinValue maps a single raw value of feature j to its bin.
func (b *BinMapper) BinValue(j int, v float64) uint8 {
	if math.IsNaN(v) {
		return b.MissingBin(j)
	}
	return uint8(sort.SearchFloat64s(b.Edges[j], v))
}

// Binned is a column-major matrix of bin indices.
type Binned struct {
	Rows    int
	Cols    int
	Data    []uint8
	NumBins []int
}

// At returns the bin of sample i, feature j.
func (d *Binned) At(i, j int) uint8 {
	return d.Data[j*d.Rows+i]
}

// Column returns the bins of feature j.
func (d *Binned) Column(j int) []uint8 {
	return d.Data[j*d.Rows : (j+1)*d.Rows]
}

// Transform maps X to bins.
func (b *BinMapper) Transform(X mat.Matrix) (*Binned, error) {
	if !b.IsFitted() {
		return nil, errors.NewNotFittedError("BinMapper", "Transform")
	}
	r, c := X.Dims()
	if c != len(b.Edges) {
		return nil, errors.NewDimensionError("BinMapper.Transform", len(b.Edges), c, 1)
	}

	out := &Binned{Rows: r, Cols: c, Data: make([]uint8, r*c), NumBins: make([]int, c)}
	for j := 0; j < c; j++ {
		out.NumBins[j] = b.NumBins(j)
		col := out.Data[j*r : (j+1)*r]
		for i := 0; i < r; i++ {
			col[i] = b.BinValue(j, X.At(i, j))
		}
	}
	return out, nil
}
