// Package selection evaluates a fixed registry of tree-model candidates on a
// time-ordered holdout split and on walk-forward folds, and picks the best
// one with a stability-adjusted score.
package selection

import (
	"github.com/YuminosukeSato/greenforecast/core/model"
	"github.com/YuminosukeSato/greenforecast/pkg/errors"
	"github.com/YuminosukeSato/greenforecast/sklearn/ensemble"
	"github.com/YuminosukeSato/greenforecast/sklearn/lightgbm"
	"github.com/YuminosukeSato/greenforecast/sklearn/pipeline"
)

// Candidate families.
const (
	FamilyAll      = "all"
	FamilyLightGBM = "lightgbm"
)

// Settings are passed to every candidate factory.
type Settings struct {
	Seed uint64
	// Device is the requested compute device (cpu, cuda, auto). Only boosted
	// candidates look at it and it is advisory.
	Device string
}

// Candidate is one registry entry. Factories return a fresh unfitted
// estimator on every call so folds never share state.
type Candidate struct {
	Name          string
	Kind          pipeline.Kind
	Boosted       bool
	NewRegressor  func(Settings) model.Regressor
	NewClassifier func(Settings) model.Classifier
}

// Registry is an ordered candidate list. Order is the selection tie-break.
type Registry []Candidate

// Names returns the candidate names in registry order.
func (r Registry) Names() []string {
	names := make([]string, len(r))
	for i, c := range r {
		names[i] = c.Name
	}
	return names
}

// Family keeps the candidates of a family: "all" keeps everything and
// "lightgbm" keeps the boosted GPU-preferring candidate only.
func (r Registry) Family(family string) (Registry, error) {
	switch family {
	case "", FamilyAll:
		return r, nil
	case FamilyLightGBM:
		var out Registry
		for _, c := range r {
			if c.Kind == pipeline.KindLightGBM {
				out = append(out, c)
			}
		}
		if len(out) == 0 {
			return nil, errors.NewValidationError("model_family", "lightgbm model requested, but no lightgbm candidate is registered", family)
		}
		return out, nil
	default:
		return nil, errors.NewValidationError("model_family", "unsupported model family", family)
	}
}

// cudaRequested reports whether a device string asks for the GPU.
func cudaRequested(device string) bool {
	return device == "cuda" || device == "auto"
}

// size scales tree counts and iterations.
type size struct {
	hgbIter     int
	forestTrees int
	lgbmIter    int
}

var (
	fullSize    = size{hgbIter: 400, forestTrees: 500, lgbmIter: 700}
	compactSize = size{hgbIter: 60, forestTrees: 40, lgbmIter: 80}
)

// DefaultRegistry returns the production candidates in selection order:
// hist_gradient_boosting, random_forest, lightgbm.
func DefaultRegistry() Registry {
	return newRegistry(fullSize)
}

// CompactRegistry has the same candidates and order with far fewer trees.
// It is meant for smoke runs on small datasets.
func CompactRegistry() Registry {
	return newRegistry(compactSize)
}

func newRegistry(sz size) Registry {
	return Registry{
		{
			Name: string(pipeline.KindHistGradientBoosting),
			Kind: pipeline.KindHistGradientBoosting,
			NewRegressor: func(s Settings) model.Regressor {
				p := ensemble.DefaultHistGradientBoostingParams()
				p.LearningRate = 0.05
				p.MaxDepth = 8
				p.MaxIter = sz.hgbIter
				p.MinSamplesLeaf = 10
				p.RandomState = s.Seed
				return ensemble.NewHistGradientBoostingRegressor().WithParams(p)
			},
			NewClassifier: func(s Settings) model.Classifier {
				p := ensemble.DefaultHistGradientBoostingParams()
				p.LearningRate = 0.05
				p.MaxDepth = 8
				p.MaxIter = sz.hgbIter
				p.RandomState = s.Seed
				return ensemble.NewHistGradientBoostingClassifier().WithParams(p)
			},
		},
		{
			Name: string(pipeline.KindRandomForest),
			Kind: pipeline.KindRandomForest,
			NewRegressor: func(s Settings) model.Regressor {
				return ensemble.NewRandomForestRegressor(
					ensemble.WithNEstimators(sz.forestTrees),
					ensemble.WithMaxDepth(18),
					ensemble.WithMinSamplesLeaf(3),
					ensemble.WithRandomState(s.Seed),
				)
			},
			NewClassifier: func(s Settings) model.Classifier {
				return ensemble.NewRandomForestClassifier(
					ensemble.WithNEstimators(sz.forestTrees),
					ensemble.WithMaxDepth(16),
					ensemble.WithMinSamplesLeaf(2),
					ensemble.WithClassWeight("balanced_subsample"),
					ensemble.WithRandomState(s.Seed),
				)
			},
		},
		{
			Name:    string(pipeline.KindLightGBM),
			Kind:    pipeline.KindLightGBM,
			Boosted: true,
			NewRegressor: func(s Settings) model.Regressor {
				return lightgbm.NewLGBMRegressor().WithHyperparams(boostedParams(sz, s))
			},
			NewClassifier: func(s Settings) model.Classifier {
				return lightgbm.NewLGBMClassifier().WithHyperparams(boostedParams(sz, s))
			},
		},
	}
}

func boostedParams(sz size, s Settings) lightgbm.Hyperparams {
	h := lightgbm.Hyperparams{
		MaxDepth:        8,
		LearningRate:    0.03,
		NumIterations:   sz.lgbmIter,
		MinChildSamples: 1,
		MinChildWeight:  1,
		Subsample:       0.85,
		SubsampleFreq:   1,
		ColsampleBytree: 0.9,
		RegLambda:       1.0,
		RandomState:     s.Seed,
		Device:          "cpu",
	}
	if cudaRequested(s.Device) {
		h.Device = "cuda"
	}
	return h
}
