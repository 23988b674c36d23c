package lightgbm

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/greenforecast/pkg/errors"
)

// Node represents a single node in a decision tree
type Node struct {
	LeftChild  int // Left child node ID (-1 if leaf)
	RightChild int // Right child node ID (-1 if leaf)

	// Split information (for non-leaf nodes)
	SplitFeature int
	Threshold    float64 // raw-value threshold; NaN always goes right
	SplitBin     uint8   // same split expressed on binned data
	Gain         float64

	// Leaf information (for leaf nodes)
	LeafValue float64
	LeafCount int
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree represents a single decision tree in the ensemble
type Tree struct {
	NumLeaves     int
	MaxDepth      int
	ShrinkageRate float64 // Learning rate applied to this tree
	Nodes         []Node
}

// Predict makes a prediction for a single sample using this tree
func (t *Tree) Predict(features []float64) float64 {
	n := &t.Nodes[0]
	for !n.IsLeaf() {
		if features[n.SplitFeature] <= n.Threshold {
			n = &t.Nodes[n.LeftChild]
		} else {
			n = &t.Nodes[n.RightChild]
		}
	}
	return n.LeafValue * t.ShrinkageRate
}

// Model represents a complete boosted ensemble
type Model struct {
	Objective    string
	NumIteration int
	LearningRate float64
	NumFeatures  int
	// Device is where training actually ran.
	Device string

	Trees             []Tree
	InitScore         float64 // baseline raw score
	FeatureImportance []float64
}

// PredictRawSingle returns the raw score (before any link function).
func (m *Model) PredictRawSingle(features []float64) float64 {
	score := m.InitScore
	for i := range m.Trees {
		score += m.Trees[i].Predict(features)
	}
	return score
}

// PredictSingle applies the objective's link: identity for regression,
// sigmoid for binary.
func (m *Model) PredictSingle(features []float64) float64 {
	raw := m.PredictRawSingle(features)
	if m.Objective == "binary" {
		return sigmoid(raw)
	}
	return raw
}

// Predict makes predictions for a batch of samples
func (m *Model) Predict(X mat.Matrix) ([]float64, error) {
	rows, cols := X.Dims()
	if cols != m.NumFeatures {
		return nil, errors.NewDimensionError("lightgbm.Model.Predict", m.NumFeatures, cols, 1)
	}
	out := make([]float64, rows)
	features := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(features, i, X)
		out[i] = m.PredictSingle(features)
	}
	return out, nil
}
