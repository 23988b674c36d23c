package lightgbm

import (
	"math"

	"github.com/YuminosukeSato/greenforecast/pkg/errors"
)

// ObjectiveFunction defines the interface for different objective functions
type ObjectiveFunction interface {
	// CalculateGradient calculates the gradient for a single sample
	CalculateGradient(prediction, target float64) float64

	// CalculateHessian calculates the hessian for a single sample
	CalculateHessian(prediction, target float64) float64

	// CalculateLoss calculates the loss for a single sample
	CalculateLoss(prediction, target float64) float64

	// GetInitScore returns the initial score for this objective
	GetInitScore(targets []float64) float64

	// Name returns the name of the objective
	Name() string
}

// L2Objective implements L2 (Mean Squared Error) loss
type L2Objective struct{}

func NewL2Objective() *L2Objective {
	return &L2Objective{}
}

func (o *L2Objective) CalculateGradient(prediction, target float64) float64 {
	return prediction - target
}

func (o *L2Objective) CalculateHessian(prediction, target float64) float64 {
	return 1.0
}

func (o *L2Objective) CalculateLoss(prediction, target float64) float64 {
	diff := prediction - target
	return 0.5 * diff * diff
}

func (o *L2Objective) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	return sum / float64(len(targets))
}

func (o *L2Objective) Name() string {
	return "regression"
}

// BinaryLogLoss implements the binary cross-entropy on raw log-odds scores.
type BinaryLogLoss struct{}

func NewBinaryLogLoss() *BinaryLogLoss {
	return &BinaryLogLoss{}
}

func (o *BinaryLogLoss) CalculateGradient(prediction, target float64) float64 {
	return sigmoid(prediction) - target
}

func (o *BinaryLogLoss) CalculateHessian(prediction, target float64) float64 {
	p := sigmoid(prediction)
	return math.Max(p*(1-p), 1e-16)
}

func (o *BinaryLogLoss) CalculateLoss(prediction, target float64) float64 {
	p := errors.ClipValue(sigmoid(prediction), 1e-15, 1-1e-15)
	return -(target*math.Log(p) + (1-target)*math.Log(1-p))
}

// GetInitScore returns the log-odds of the positive rate.
func (o *BinaryLogLoss) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	pos := 0.0
	for _, t := range targets {
		pos += t
	}
	p := errors.ClipValue(pos/float64(len(targets)), 1e-15, 1-1e-15)
	return math.Log(p / (1 - p))
}

func (o *BinaryLogLoss) Name() string {
	return "binary"
}

// CreateObjectiveFunction creates an objective function by name
func CreateObjectiveFunction(objective string) (ObjectiveFunction, error) {
	switch objective {
	case "regression", "regression_l2", "l2", "mse", "":
		return NewL2Objective(), nil
	case "binary", "binary_logloss":
		return NewBinaryLogLoss(), nil
	default:
		return nil, errors.NewValidationError("objective", "unsupported objective", objective)
	}
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + errors.StabilizeExp(-x))
}
