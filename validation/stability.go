package validation

import "github.com/YuminosukeSato/greenforecast/metrics"

// Stability penalties applied to the fold standard deviation. These are
// empirical constants; callers may override them through selection options.
const (
	RegressionStabilityPenalty     = 0.25
	ClassificationStabilityPenalty = 0.10
)

// StabilityAdjustedRegressionLoss returns mean + penalty*std of the fold
// MAE. ok is false when no fold produced an MAE. A missing std counts as 0.
func StabilityAdjustedRegressionLoss(mae metrics.MeanStd, penalty float64) (float64, bool) {
	if mae.Mean == nil {
		return 0, false
	}
	return *mae.Mean + penalty*mae.StdOr(0), true
}

// StabilityAdjustedClassificationScore returns mean - penalty*std of the
// fold F1. ok is false when no fold produced an F1.
func StabilityAdjustedClassificationScore(f1 metrics.MeanStd, penalty float64) (float64, bool) {
	if f1.Mean == nil {
		return 0, false
	}
	return *f1.Mean - penalty*f1.StdOr(0), true
}
