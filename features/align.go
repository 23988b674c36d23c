package features

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/greenforecast/dataset"
	"github.com/YuminosukeSato/greenforecast/pkg/errors"
)

// Row is one feature row keyed by column name.
type Row map[string]float64

// LatestRow returns the last row of a feature frame without the timestamp.
func LatestRow(frame *dataset.Frame) (Row, error) {
	if frame == nil || frame.Len() == 0 {
		return nil, errors.NewValueError("features.LatestRow", "no feature rows available")
	}
	last := frame.Len() - 1
	row := make(Row, len(frame.Columns))
	for _, c := range frame.Columns {
		row[c] = frame.Data[c][last]
	}
	return row, nil
}

// AlignColumns reindexes row to exactly columns: absent columns become NaN
// and columns not listed are dropped. The result is a (1, len(columns))
// matrix ready for a persisted pipeline.
func AlignColumns(row Row, columns []string) *mat.Dense {
	values := make([]float64, len(columns))
	for j, c := range columns {
		v, ok := row[c]
		if !ok {
			v = math.NaN()
		}
		values[j] = v
	}
	return mat.NewDense(1, len(columns), values)
}
