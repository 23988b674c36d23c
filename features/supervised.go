package features

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/greenforecast/dataset"
	"github.com/YuminosukeSato/greenforecast/pkg/errors"
)

// Supervised pairs feature rows with targets taken HorizonSteps rows later.
// Features is nil when no row has both targets.
type Supervised struct {
	Features     *mat.Dense
	Columns      []string
	Light        []float64
	Relay        []float64
	Timestamps   []time.Time
	HorizonSteps int
}

// MakeSupervised shifts light_lux and relay_light back by horizon rows and
// keeps the rows where both shifted targets are present. The feature matrix
// uses every frame column in order; the timestamp index is not a column.
func MakeSupervised(frame *dataset.Frame, horizon int) (*Supervised, error) {
	if horizon < 1 {
		return nil, errors.NewInvalidHorizonError(horizon)
	}
	var missing []string
	for _, c := range []string{dataset.LightColumn, dataset.RelayColumn} {
		if !frame.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, errors.NewMissingTargetColumnsError(missing...)
	}

	light := frame.Column(dataset.LightColumn)
	relay := frame.Column(dataset.RelayColumn)
	n := frame.Len()

	var keep []int
	for i := 0; i+horizon < n; i++ {
		if !math.IsNaN(light[i+horizon]) && !math.IsNaN(relay[i+horizon]) {
			keep = append(keep, i)
		}
	}

	s := &Supervised{
		Columns:      append([]string(nil), frame.Columns...),
		Light:        make([]float64, len(keep)),
		Relay:        make([]float64, len(keep)),
		Timestamps:   make([]time.Time, len(keep)),
		HorizonSteps: horizon,
	}
	if len(keep) == 0 {
		return s, nil
	}

	s.Features = mat.NewDense(len(keep), len(s.Columns), nil)
	for r, i := range keep {
		s.Light[r] = light[i+horizon]
		s.Relay[r] = relay[i+horizon]
		s.Timestamps[r] = frame.Timestamps[i]
		for j, c := range s.Columns {
			s.Features.Set(r, j, frame.Data[c][i])
		}
	}
	return s, nil
}

// Len returns the number of supervised rows.
func (s *Supervised) Len() int {
	return len(s.Light)
}

// Slice returns the feature rows [start, end) as a view.
func (s *Supervised) Slice(start, end int) *mat.Dense {
	return s.Features.Slice(start, end, 0, len(s.Columns)).(*mat.Dense)
}

// Column wraps values[start:end] as an (n, 1) matrix.
func Column(values []float64, start, end int) *mat.Dense {
	return mat.NewDense(end-start, 1, append([]float64(nil), values[start:end]...))
}
