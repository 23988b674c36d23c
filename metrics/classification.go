package metrics

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/greenforecast/pkg/errors"
)

func checkBinary(op string, y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		v := y.AtVec(i)
		if v != 0 && v != 1 {
			return errors.NewValueError(op, "labels must be binary (0 or 1)")
		}
	}
	return nil
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// BinaryConfusion holds confusion counts with label 1 as the positive class.
type BinaryConfusion struct {
	TP, FP, TN, FN int
}

// Confusion counts binary outcomes.
func Confusion(yTrue, yPred *mat.VecDense) (BinaryConfusion, error) {
	n, err := checkPair("Confusion", yTrue, yPred)
	if err != nil {
		return BinaryConfusion{}, err
	}
	if err := checkBinary("Confusion", yTrue); err != nil {
		return BinaryConfusion{}, err
	}
	if err := checkBinary("Confusion", yPred); err != nil {
		return BinaryConfusion{}, err
	}

	var c BinaryConfusion
	for i := 0; i < n; i++ {
		t, p := yTrue.AtVec(i) == 1, yPred.AtVec(i) == 1
		switch {
		case t && p:
			c.TP++
		case !t && p:
			c.FP++
		case t && !p:
			c.FN++
		default:
			c.TN++
		}
	}
	return c, nil
}

// Precision returns TP / (TP + FP). A zero denominator yields 0.
func (c BinaryConfusion) Precision() float64 {
	return ratioOrZero(c.TP, c.TP+c.FP)
}

// Recall returns TP / (TP + FN). A zero denominator yields 0.
func (c BinaryConfusion) Recall() float64 {
	return ratioOrZero(c.TP, c.TP+c.FN)
}

// F1 returns the harmonic mean of precision and recall, 0 when both are 0.
func (c BinaryConfusion) F1() float64 {
	return ratioOrZero(2*c.TP, 2*c.TP+c.FP+c.FN)
}

func ratioOrZero(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// AUC computes the area under the ROC curve from positive-class scores.
//
// Tied scores contribute half a concordant pair. When yTrue holds a single
// class the AUC is undefined; 0.5 is returned and an UndefinedMetricWarning
// is emitted.
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("AUC", yTrue); err != nil {
		return 0, err
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return yScore.AtVec(idx[a]) < yScore.AtVec(idx[b]) })

	// Mann-Whitney U with average ranks for ties.
	var nPos, nNeg int
	var rankSumPos float64
	for i := 0; i < n; {
		j := i
		for j+1 < n && yScore.AtVec(idx[j+1]) == yScore.AtVec(idx[i]) {
			j++
		}
		avgRank := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			if yTrue.AtVec(idx[k]) == 1 {
				nPos++
				rankSumPos += avgRank
			} else {
				nNeg++
			}
		}
		i = j + 1
	}

	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("AUC", "only one class present in yTrue", 0.5))
		return 0.5, nil
	}

	u := rankSumPos - float64(nPos*(nPos+1))/2
	return u / float64(nPos*nNeg), nil
}
