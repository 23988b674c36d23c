// Package validation provides time-ordered evaluation helpers: expanding
// walk-forward folds, the relay class-balance gate and stability-adjusted
// selection scores.
package validation

// Default fold sizing. The orchestrator scales both with the row count.
const (
	DefaultMinTrainRows = 80
	DefaultMinValidRows = 20
)

// Range is a half-open row interval [Start, End).
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns End - Start.
func (r Range) Len() int {
	return r.End - r.Start
}

// Fold is one walk-forward split. Train always starts at row 0.
type Fold struct {
	Train Range `json:"train"`
	Valid Range `json:"valid"`
}

// WalkForwardFolds generates expanding-window folds over total rows.
//
// The first training window is [0, minTrain). Each validation window spans
// step = max(minValid, (total-minTrain)/nSplits) rows, clipped to total, and
// becomes part of the next training window. Generation stops after nSplits
// folds or when fewer than minValid rows remain. An empty result means
// walk-forward evaluation is skipped.
func WalkForwardFolds(total, nSplits, minTrain, minValid int) []Fold {
	if total < minTrain+minValid || nSplits < 2 {
		return nil
	}

	step := max(minValid, (total-minTrain)/nSplits)
	var folds []Fold
	trainEnd := minTrain
	for len(folds) < nSplits && trainEnd+minValid <= total {
		validEnd := min(trainEnd+step, total)
		if validEnd-trainEnd < minValid {
			break
		}
		folds = append(folds, Fold{
			Train: Range{Start: 0, End: trainEnd},
			Valid: Range{Start: trainEnd, End: validEnd},
		})
		trainEnd = validEnd
	}
	return folds
}

// FoldSizes returns the minimum train and validation rows used for a dataset
// of n supervised rows: max(80, 25% of n) and max(20, 8% of n).
func FoldSizes(n int) (minTrain, minValid int) {
	return max(DefaultMinTrainRows, int(float64(n)*0.25)),
		max(DefaultMinValidRows, int(float64(n)*0.08))
}
