// Package lightgbm is a pure-Go gradient boosting engine in the style of
// LightGBM: features are binned once, trees grow leaf-wise from per-leaf
// gradient histograms, and rows and columns can be subsampled per iteration.
//
// Only the L2 regression and binary logloss objectives are provided.
//
//	reg := lightgbm.NewLGBMRegressor().
//		WithNumIterations(200).
//		WithLearningRate(0.05)
//	if err := reg.Fit(X, y); err != nil {
//		return err
//	}
//	pred, _ := reg.Predict(XTest)
package lightgbm
