package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MeanStd summarises a metric across walk-forward folds. Both fields are nil
// when no fold produced a value.
type MeanStd struct {
	Mean *float64 `json:"mean"`
	Std  *float64 `json:"std"`
}

// Summarize returns the mean and population standard deviation of values.
func Summarize(values []float64) MeanStd {
	if len(values) == 0 {
		return MeanStd{}
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	return MeanStd{Mean: &mean, Std: &std}
}

// MeanOr returns the mean or def when absent.
func (m MeanStd) MeanOr(def float64) float64 {
	if m.Mean == nil {
		return def
	}
	return *m.Mean
}

// StdOr returns the standard deviation or def when absent.
func (m MeanStd) StdOr(def float64) float64 {
	if m.Std == nil {
		return def
	}
	return *m.Std
}

// RegressionScores holds holdout or per-fold regression metrics.
type RegressionScores struct {
	MAE  float64
	RMSE float64
	// R2 is NaN when yTrue has no variance.
	R2 float64
}

// ScoreRegression computes MAE, RMSE and R² for aligned slices.
func ScoreRegression(yTrue, yPred []float64) (RegressionScores, error) {
	t, p := vecPair(yTrue, yPred)
	mae, err := MAE(t, p)
	if err != nil {
		return RegressionScores{}, err
	}
	rmse, err := RMSE(t, p)
	if err != nil {
		return RegressionScores{}, err
	}
	r2, err := R2Score(t, p)
	if err != nil {
		r2 = math.NaN()
	}
	return RegressionScores{MAE: mae, RMSE: rmse, R2: r2}, nil
}

// ClassificationScores holds holdout or per-fold classification metrics.
type ClassificationScores struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	// ROCAUC is nil when it was not computed.
	ROCAUC *float64
}

// ScoreClassification computes accuracy, precision, recall and F1 from hard
// labels, and ROC-AUC from probabilities when proba is non-nil and yTrue
// holds both classes.
func ScoreClassification(yTrue, yPred, proba []float64) (ClassificationScores, error) {
	t, p := vecPair(yTrue, yPred)
	acc, err := Accuracy(t, p)
	if err != nil {
		return ClassificationScores{}, err
	}
	c, err := Confusion(t, p)
	if err != nil {
		return ClassificationScores{}, err
	}
	out := ClassificationScores{
		Accuracy:  acc,
		Precision: c.Precision(),
		Recall:    c.Recall(),
		F1:        c.F1(),
	}
	if proba != nil && CountClasses(yTrue) > 1 {
		_, s := vecPair(yTrue, proba)
		if auc, err := AUC(t, s); err == nil {
			out.ROCAUC = &auc
		}
	}
	return out, nil
}

// CountClasses returns the number of distinct non-NaN labels.
func CountClasses(y []float64) int {
	seen := make(map[float64]struct{}, 2)
	for _, v := range y {
		if !math.IsNaN(v) {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

func vecPair(a, b []float64) (*mat.VecDense, *mat.VecDense) {
	var va, vb *mat.VecDense
	if len(a) > 0 {
		va = mat.NewVecDense(len(a), a)
	}
	if len(b) > 0 {
		vb = mat.NewVecDense(len(b), b)
	}
	return va, vb
}
