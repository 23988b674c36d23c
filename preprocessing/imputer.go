package preprocessing

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/greenforecast/core/model"
	"github.com/YuminosukeSato/greenforecast/pkg/errors"
)

// SimpleImputer は欠損値 (NaN) を列ごとの統計量で置き換える
//
// Only the median strategy is implemented. Columns with no observed value
// during Fit are filled with 0 so the feature count never changes between
// training and inference.
type SimpleImputer struct {
	model.BaseEstimator

	// Statistics は各特徴量の補完値
	Statistics []float64

	// NFeatures は特徴量の数
	NFeatures int
}

// NewMedianImputer は中央値で補完するSimpleImputerを作成する
//
// 使用例:
//
//	imp := preprocessing.NewMedianImputer()
//	if err := imp.Fit(X); err != nil { ... }
//	filled, err := imp.Transform(X)
func NewMedianImputer() *SimpleImputer {
	return &SimpleImputer{}
}

// Fit は各列の中央値を計算する
func (s *SimpleImputer) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("SimpleImputer.Fit", "empty data", errors.ErrEmptyData)
	}

	s.NFeatures = c
	s.Statistics = make([]float64, c)
	col := make([]float64, 0, r)
	for j := 0; j < c; j++ {
		col = col[:0]
		for i := 0; i < r; i++ {
			v := X.At(i, j)
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				col = append(col, v)
			}
		}
		s.Statistics[j] = median(col)
	}

	s.SetFitted()
	return nil
}

// Transform は欠損値を補完した新しい行列を返す
func (s *SimpleImputer) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("SimpleImputer", "Transform")
	}
	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("SimpleImputer.Transform", s.NFeatures, c, 1)
	}

	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := X.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = s.Statistics[j]
			}
			out.Set(i, j, v)
		}
	}
	return out, nil
}

// FitTransform はFitとTransformを同時に実行する
func (s *SimpleImputer) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// median sorts values in place; an even count averages the two middle values.
// stat.Quantile with stat.Empirical returns the lower middle value instead.
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sort.Float64s(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}
