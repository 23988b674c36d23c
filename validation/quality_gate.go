package validation

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// GateResult is the outcome of the relay class-balance check.
type GateResult struct {
	Passed        bool           `json:"passed"`
	MinClassCount int            `json:"min_class_count"`
	TrainCounts   map[string]int `json:"train_counts"`
	ValidCounts   map[string]int `json:"valid_counts"`
	Issues        []string       `json:"issues"`
}

// ClassQuality lists the classes present on each side of the holdout split.
type ClassQuality struct {
	TrainHasBothClasses bool      `json:"train_has_both_classes"`
	ValidHasBothClasses bool      `json:"valid_has_both_classes"`
	TrainClasses        []float64 `json:"train_classes"`
	ValidClasses        []float64 `json:"valid_classes"`
}

// EvaluateRelayGate checks that both splits contain two classes and that
// classes 0 and 1 each occur at least minClassCount times per split. Every
// violation is reported as a separate issue.
func EvaluateRelayGate(train, valid []float64, minClassCount int) GateResult {
	trainCounts := ClassCounts(train)
	validCounts := ClassCounts(valid)

	issues := []string{}
	if len(trainCounts) < 2 {
		issues = append(issues, "train split has a single class")
	}
	if len(validCounts) < 2 {
		issues = append(issues, "validation split has a single class")
	}
	for _, label := range []float64{0, 1} {
		tc, vc := trainCounts[label], validCounts[label]
		if tc < minClassCount {
			issues = append(issues, fmt.Sprintf("train class %s count too low (%d < %d)", formatLabel(label), tc, minClassCount))
		}
		if vc < minClassCount {
			issues = append(issues, fmt.Sprintf("validation class %s count too low (%d < %d)", formatLabel(label), vc, minClassCount))
		}
	}

	return GateResult{
		Passed:        len(issues) == 0,
		MinClassCount: minClassCount,
		TrainCounts:   LabelCounts(trainCounts),
		ValidCounts:   LabelCounts(validCounts),
		Issues:        issues,
	}
}

// DescribeClasses reports the sorted distinct labels of each split.
func DescribeClasses(train, valid []float64) ClassQuality {
	tc, vc := sortedClasses(train), sortedClasses(valid)
	return ClassQuality{
		TrainHasBothClasses: len(tc) >= 2,
		ValidHasBothClasses: len(vc) >= 2,
		TrainClasses:        tc,
		ValidClasses:        vc,
	}
}

// ClassCounts counts each non-NaN label.
func ClassCounts(y []float64) map[float64]int {
	counts := make(map[float64]int, 2)
	for _, v := range y {
		if !math.IsNaN(v) {
			counts[v]++
		}
	}
	return counts
}

// LabelCounts converts label counts to string keys ("0", "1") for JSON.
func LabelCounts(counts map[float64]int) map[string]int {
	out := make(map[string]int, len(counts))
	for label, c := range counts {
		out[formatLabel(label)] = c
	}
	return out
}

func sortedClasses(y []float64) []float64 {
	counts := ClassCounts(y)
	classes := make([]float64, 0, len(counts))
	for label := range counts {
		classes = append(classes, label)
	}
	sort.Float64s(classes)
	return classes
}

func formatLabel(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
