package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	// 戻り値は (n_samples, 1) の列ベクトル
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator reports the fitted state shared by all models.
type Estimator interface {
	IsFitted() bool
}

// Regressor is a fittable model producing continuous predictions.
type Regressor interface {
	Estimator
	Fitter
	Predictor
}

// Classifier is a binary classifier over labels {0, 1}.
type Classifier interface {
	Estimator
	Fitter
	Predictor

	// PredictProba returns an (n_samples, 2) matrix of [P(0), P(1)].
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// Transformer はデータ変換のインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)
}

// ColumnVector returns the first column of m as a slice. Predictions are
// returned as column matrices; callers that need raw values use this.
func ColumnVector(m mat.Matrix) []float64 {
	r, _ := m.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = m.At(i, 0)
	}
	return out
}
