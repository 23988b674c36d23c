package lightgbm

// TrainingParams contains all training hyperparameters
type TrainingParams struct {
	// Basic parameters
	NumIterations int     `json:"num_iterations"`
	LearningRate  float64 `json:"learning_rate"`
	NumLeaves     int     `json:"num_leaves"` // <= 0 means bounded by MaxDepth only
	MaxDepth      int     `json:"max_depth"`  // <= 0 means unlimited
	MinDataInLeaf int     `json:"min_data_in_leaf"`

	// Regularization
	MinSumHessianInLeaf float64 `json:"min_sum_hessian_in_leaf"`
	Lambda              float64 `json:"lambda_l2"`
	MinGainToSplit      float64 `json:"min_gain_to_split"`

	// Sampling
	BaggingFraction float64 `json:"bagging_fraction"`
	BaggingFreq     int     `json:"bagging_freq"`
	FeatureFraction float64 `json:"feature_fraction"`

	// Histogram parameters
	MaxBin int `json:"max_bin"`

	// Objective ("regression" or "binary")
	Objective string `json:"objective"`

	// Other
	Seed       uint64 `json:"seed"`
	Verbosity  int    `json:"verbosity"`
	NumThreads int    `json:"num_threads"`
	// Device is advisory. Training always runs on the CPU; the requested
	// device is recorded on the fitted model.
	Device string `json:"device"`
}

// DefaultParams returns LightGBM's documented defaults.
func DefaultParams() TrainingParams {
	return TrainingParams{
		NumIterations:       100,
		LearningRate:        0.1,
		NumLeaves:           31,
		MaxDepth:            -1,
		MinDataInLeaf:       20,
		MinSumHessianInLeaf: 1e-3,
		BaggingFraction:     1.0,
		FeatureFraction:     1.0,
		MaxBin:              255,
		Objective:           "regression",
		Device:              "cpu",
	}
}

// withDefaults fills zero values that have no meaningful zero setting.
func (p TrainingParams) withDefaults() TrainingParams {
	if p.NumIterations <= 0 {
		p.NumIterations = 100
	}
	if p.LearningRate <= 0 {
		p.LearningRate = 0.1
	}
	if p.NumLeaves <= 0 && p.MaxDepth <= 0 {
		p.NumLeaves = 31
	}
	if p.MinDataInLeaf < 1 {
		p.MinDataInLeaf = 1
	}
	if p.BaggingFraction <= 0 || p.BaggingFraction > 1 {
		p.BaggingFraction = 1.0
	}
	if p.FeatureFraction <= 0 || p.FeatureFraction > 1 {
		p.FeatureFraction = 1.0
	}
	if p.MaxBin <= 0 {
		p.MaxBin = 255
	}
	if p.Objective == "" {
		p.Objective = "regression"
	}
	if p.Device == "" {
		p.Device = "cpu"
	}
	return p
}
