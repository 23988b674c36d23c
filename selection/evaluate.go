package selection

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/greenforecast/core/model"
	"github.com/YuminosukeSato/greenforecast/metrics"
	"github.com/YuminosukeSato/greenforecast/pkg/errors"
	"github.com/YuminosukeSato/greenforecast/pkg/log"
	"github.com/YuminosukeSato/greenforecast/sklearn/pipeline"
	"github.com/YuminosukeSato/greenforecast/validation"
)

// Data is a supervised matrix with one target, split in time at Split:
// rows [0, Split) train the holdout pipeline and [Split, n) validate it.
// Walk-forward folds index the same rows.
type Data struct {
	X     *mat.Dense
	Y     []float64
	Split int
}

func (d Data) validate(op string) error {
	if d.X == nil {
		return errors.NewValueError(op, "feature matrix is empty")
	}
	r, _ := d.X.Dims()
	if r != len(d.Y) {
		return errors.NewDimensionError(op, r, len(d.Y), 0)
	}
	if d.Split <= 0 || d.Split >= r {
		return errors.NewValidationError("split", fmt.Sprintf("split must be inside (0, %d)", r), d.Split)
	}
	return nil
}

func (d Data) rows(start, end int) mat.Matrix {
	_, c := d.X.Dims()
	return d.X.Slice(start, end, 0, c)
}

func (d Data) target(start, end int) *mat.Dense {
	return mat.NewDense(end-start, 1, append([]float64(nil), d.Y[start:end]...))
}

func (d Data) total() int {
	return len(d.Y)
}

// Options control candidate evaluation.
type Options struct {
	Settings

	// Registry defaults to DefaultRegistry when nil.
	Registry Registry
	// Family is "all" or "lightgbm".
	Family string
	// Folds are the walk-forward folds; none disables walk-forward scoring.
	Folds []validation.Fold
	// Parallelism is the number of candidates evaluated at once. Values
	// below 2 evaluate sequentially. Selection does not depend on it.
	Parallelism int

	RegressionPenalty     float64
	ClassificationPenalty float64
}

// DefaultOptions returns sequential evaluation of the default registry with
// the standard stability penalties.
func DefaultOptions() Options {
	return Options{
		Settings:              Settings{Seed: 42, Device: "cpu"},
		Family:                FamilyAll,
		Parallelism:           1,
		RegressionPenalty:     validation.RegressionStabilityPenalty,
		ClassificationPenalty: validation.ClassificationStabilityPenalty,
	}
}

func (o Options) candidates() (Registry, error) {
	reg := o.Registry
	if reg == nil {
		reg = DefaultRegistry()
	}
	return reg.Family(o.Family)
}

// forEach runs fn for every index, at most limit at a time. Each call writes
// only its own slot, so callers reduce in index order afterwards.
func forEach(n, limit int, fn func(i int)) {
	var g errgroup.Group
	g.SetLimit(max(1, limit))
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

type regressionOutcome struct {
	pipe    *pipeline.Regressor
	metrics RegressionMetrics
	wf      *RegressionWalkForward
	score   float64
	mode    string
	err     error
}

// EvaluateRegression fits every candidate on the holdout split, scores it on
// the holdout and on walk-forward folds, and keeps the lowest selection
// loss. Candidates are compared in registry order and a later candidate
// must be strictly better to replace the incumbent. A candidate whose fit
// fails or panics is skipped with a warning; NoViableModel is returned when
// every candidate failed.
func EvaluateRegression(data Data, opts Options) (*RegressionResult, error) {
	if err := data.validate("selection.EvaluateRegression"); err != nil {
		return nil, err
	}
	reg, err := opts.candidates()
	if err != nil {
		return nil, err
	}
	logger := log.GetLoggerWithName("selection").With(log.TargetKey, "light_forecast")

	outcomes := make([]regressionOutcome, len(reg))
	forEach(len(reg), opts.Parallelism, func(i int) {
		outcomes[i] = evaluateRegressionCandidate(reg[i], data, opts)
	})

	res := &RegressionResult{
		SelectionMode:  ModeHoldoutMAE,
		SelectionScore: math.Inf(1),
		Metrics:        make(map[string]RegressionMetrics, len(reg)),
	}
	var failures []string
	for i, o := range outcomes {
		name := reg[i].Name
		if o.err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Skipped regression model '%s': %v", name, o.err))
			failures = append(failures, name)
			logger.Warn("candidate skipped", log.CandidateKey, name, "error", o.err)
			continue
		}
		res.Metrics[name] = o.metrics
		if o.score < res.SelectionScore {
			res.BestName = name
			res.Best = o.pipe
			res.BestWalkForward = o.wf
			res.SelectionScore = o.score
			res.SelectionMode = o.mode
		}
	}
	if res.Best == nil {
		return nil, errors.NewNoViableModelError("regression", len(reg), failures)
	}

	logger.Info("regressor selected",
		log.CandidateKey, res.BestName,
		log.SelectionModeKey, res.SelectionMode,
		log.SelectionScoreKey, res.SelectionScore)
	return res, nil
}

func evaluateRegressionCandidate(c Candidate, data Data, opts Options) (o regressionOutcome) {
	start := time.Now()
	o.err = errors.SafeExecute("selection.regression."+c.Name, func() error {
		p, err := newRegressionPipeline(c, opts.Settings)
		if err != nil {
			return err
		}
		if err := p.Fit(data.rows(0, data.Split), data.target(0, data.Split)); err != nil {
			return err
		}
		pred, err := p.Predict(data.rows(data.Split, data.total()))
		if err != nil {
			return err
		}
		s, err := metrics.ScoreRegression(data.Y[data.Split:], model.ColumnVector(pred))
		if err != nil {
			return err
		}

		o.pipe = p
		o.metrics = RegressionMetrics{MAE: s.MAE, RMSE: s.RMSE, R2: s.R2}
		o.score, o.mode = s.MAE, ModeHoldoutMAE

		if len(opts.Folds) > 0 {
			wf, err := regressionWalkForward(c, data, opts)
			if err != nil {
				return err
			}
			o.wf = wf
			run := wf.FoldsRun
			o.metrics.WalkForward = wf.Metrics
			o.metrics.WalkForwardFoldsRun = &run
			if run >= 2 {
				if loss, ok := validation.StabilityAdjustedRegressionLoss(wf.Metrics["mae"], opts.RegressionPenalty); ok {
					o.score, o.mode = loss, ModeWalkForwardStability
				}
			}
		}
		return nil
	})

	if o.err == nil {
		log.GetLoggerWithName("selection").Debug("regression candidate evaluated",
			log.CandidateKey, c.Name,
			log.MAEKey, o.metrics.MAE,
			log.RMSEKey, o.metrics.RMSE,
			log.R2ScoreKey, o.metrics.R2,
			log.SelectionModeKey, o.mode,
			log.SelectionScoreKey, o.score,
			log.DurationMsKey, time.Since(start).Milliseconds())
	}
	return o
}

func newRegressionPipeline(c Candidate, s Settings) (*pipeline.Regressor, error) {
	if c.NewRegressor == nil {
		return nil, errors.NewValidationError("candidate", "candidate has no regressor factory", c.Name)
	}
	return pipeline.NewRegressor(c.NewRegressor(s))
}

// regressionWalkForward refits a fresh pipeline on every fold.
func regressionWalkForward(c Candidate, data Data, opts Options) (*RegressionWalkForward, error) {
	var maes, rmses, r2s []float64
	byFold := make([]RegressionFold, 0, len(opts.Folds))
	for k, f := range opts.Folds {
		p, err := newRegressionPipeline(c, opts.Settings)
		if err != nil {
			return nil, err
		}
		if err := p.Fit(data.rows(f.Train.Start, f.Train.End), data.target(f.Train.Start, f.Train.End)); err != nil {
			return nil, errors.Wrapf(err, "walk-forward fold %d", k+1)
		}
		pred, err := p.Predict(data.rows(f.Valid.Start, f.Valid.End))
		if err != nil {
			return nil, errors.Wrapf(err, "walk-forward fold %d", k+1)
		}
		s, err := metrics.ScoreRegression(data.Y[f.Valid.Start:f.Valid.End], model.ColumnVector(pred))
		if err != nil {
			return nil, err
		}
		maes = append(maes, s.MAE)
		rmses = append(rmses, s.RMSE)
		r2s = append(r2s, s.R2)
		byFold = append(byFold, RegressionFold{
			Fold:      k + 1,
			TrainRows: f.Train.Len(),
			ValidRows: f.Valid.Len(),
			MAE:       s.MAE,
			RMSE:      s.RMSE,
			R2:        s.R2,
		})
	}
	return &RegressionWalkForward{
		FoldsRun: len(byFold),
		Metrics: map[string]metrics.MeanStd{
			"mae":  metrics.Summarize(maes),
			"rmse": metrics.Summarize(rmses),
			"r2":   metrics.Summarize(r2s),
		},
		ByFold: byFold,
	}, nil
}

type classificationOutcome struct {
	pipe    *pipeline.Classifier
	metrics ClassificationMetrics
	wf      *ClassificationWalkForward
	score   float64
	mode    string
	err     error
}

// EvaluateClassification is the classification counterpart of
// EvaluateRegression: the highest selection score wins. A training split with
// a single class, or every candidate failing, yields a result with
// SkipReason set and no error.
func EvaluateClassification(data Data, opts Options) (*ClassificationResult, error) {
	if err := data.validate("selection.EvaluateClassification"); err != nil {
		return nil, err
	}
	logger := log.GetLoggerWithName("selection").With(log.TargetKey, "relay_light")

	if metrics.CountClasses(data.Y[:data.Split]) < 2 {
		logger.Info("classifier skipped", "reason", SkipSingleClassTrain)
		return &ClassificationResult{
			SelectionMode: ModeHoldoutF1,
			Metrics:       map[string]ClassificationMetrics{},
			SkipReason:    SkipSingleClassTrain,
		}, nil
	}

	reg, err := opts.candidates()
	if err != nil {
		return nil, err
	}

	outcomes := make([]classificationOutcome, len(reg))
	forEach(len(reg), opts.Parallelism, func(i int) {
		outcomes[i] = evaluateClassificationCandidate(reg[i], data, opts)
	})

	res := &ClassificationResult{
		SelectionMode:  ModeHoldoutF1,
		SelectionScore: -1,
		Metrics:        make(map[string]ClassificationMetrics, len(reg)),
	}
	for i, o := range outcomes {
		name := reg[i].Name
		if o.err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Skipped classification model '%s': %v", name, o.err))
			logger.Warn("candidate skipped", log.CandidateKey, name, "error", o.err)
			continue
		}
		res.Metrics[name] = o.metrics
		if o.score > res.SelectionScore {
			res.BestName = name
			res.Best = o.pipe
			res.BestWalkForward = o.wf
			res.SelectionScore = o.score
			res.SelectionMode = o.mode
		}
	}
	if res.Best == nil {
		return &ClassificationResult{
			SelectionMode: ModeHoldoutF1,
			Metrics:       map[string]ClassificationMetrics{},
			SkipReason:    SkipNoClassifier,
			Warnings:      res.Warnings,
		}, nil
	}

	logger.Info("classifier selected",
		log.CandidateKey, res.BestName,
		log.SelectionModeKey, res.SelectionMode,
		log.SelectionScoreKey, res.SelectionScore)
	return res, nil
}

func evaluateClassificationCandidate(c Candidate, data Data, opts Options) (o classificationOutcome) {
	start := time.Now()
	o.err = errors.SafeExecute("selection.classification."+c.Name, func() error {
		p, err := newClassificationPipeline(c, opts.Settings)
		if err != nil {
			return err
		}
		if err := p.Fit(data.rows(0, data.Split), data.target(0, data.Split)); err != nil {
			return err
		}
		s, err := scoreClassifier(p, data.rows(data.Split, data.total()), data.Y[data.Split:])
		if err != nil {
			return err
		}

		o.pipe = p
		o.metrics = ClassificationMetrics{
			Accuracy:  s.Accuracy,
			Precision: s.Precision,
			Recall:    s.Recall,
			F1:        s.F1,
			ROCAUC:    s.ROCAUC,
		}
		o.score, o.mode = s.F1, ModeHoldoutF1

		if len(opts.Folds) > 0 {
			wf, err := classificationWalkForward(c, data, opts)
			if err != nil {
				return err
			}
			o.wf = wf
			run := wf.FoldsRun
			o.metrics.WalkForward = wf.Metrics
			o.metrics.WalkForwardFoldsRun = &run
			if run >= 2 {
				if score, ok := validation.StabilityAdjustedClassificationScore(wf.Metrics["f1"], opts.ClassificationPenalty); ok {
					o.score, o.mode = score, ModeWalkForwardStability
				}
			}
		}
		return nil
	})

	if o.err == nil {
		log.GetLoggerWithName("selection").Debug("classification candidate evaluated",
			log.CandidateKey, c.Name,
			log.AccuracyKey, o.metrics.Accuracy,
			log.F1Key, o.metrics.F1,
			log.SelectionModeKey, o.mode,
			log.SelectionScoreKey, o.score,
			log.DurationMsKey, time.Since(start).Milliseconds())
	}
	return o
}

func newClassificationPipeline(c Candidate, s Settings) (*pipeline.Classifier, error) {
	if c.NewClassifier == nil {
		return nil, errors.NewValidationError("candidate", "candidate has no classifier factory", c.Name)
	}
	return pipeline.NewClassifier(c.NewClassifier(s))
}

// scoreClassifier predicts labels for X and scores them against y. ROC-AUC is
// attempted only when y holds both classes; a probability failure leaves it
// unset.
func scoreClassifier(p *pipeline.Classifier, X mat.Matrix, y []float64) (metrics.ClassificationScores, error) {
	pred, err := p.Predict(X)
	if err != nil {
		return metrics.ClassificationScores{}, err
	}
	var p1 []float64
	if metrics.CountClasses(y) > 1 {
		if proba, err := p.PredictProba(X); err == nil {
			n, _ := proba.Dims()
			p1 = mat.Col(make([]float64, n), 1, proba)
		}
	}
	return metrics.ScoreClassification(y, model.ColumnVector(pred), p1)
}

// classificationWalkForward refits a fresh pipeline per fold and skips folds
// whose training window has a single class.
func classificationWalkForward(c Candidate, data Data, opts Options) (*ClassificationWalkForward, error) {
	var accs, precs, recs, f1s, aucs []float64
	byFold := make([]ClassificationFold, 0, len(opts.Folds))
	skipped := 0
	for k, f := range opts.Folds {
		if metrics.CountClasses(data.Y[f.Train.Start:f.Train.End]) < 2 {
			skipped++
			continue
		}
		p, err := newClassificationPipeline(c, opts.Settings)
		if err != nil {
			return nil, err
		}
		if err := p.Fit(data.rows(f.Train.Start, f.Train.End), data.target(f.Train.Start, f.Train.End)); err != nil {
			return nil, errors.Wrapf(err, "walk-forward fold %d", k+1)
		}
		s, err := scoreClassifier(p, data.rows(f.Valid.Start, f.Valid.End), data.Y[f.Valid.Start:f.Valid.End])
		if err != nil {
			return nil, errors.Wrapf(err, "walk-forward fold %d", k+1)
		}
		accs = append(accs, s.Accuracy)
		precs = append(precs, s.Precision)
		recs = append(recs, s.Recall)
		f1s = append(f1s, s.F1)
		if s.ROCAUC != nil {
			aucs = append(aucs, *s.ROCAUC)
		}
		byFold = append(byFold, ClassificationFold{
			Fold:      k + 1,
			TrainRows: f.Train.Len(),
			ValidRows: f.Valid.Len(),
			Accuracy:  s.Accuracy,
			Precision: s.Precision,
			Recall:    s.Recall,
			F1:        s.F1,
			ROCAUC:    s.ROCAUC,
		})
	}
	return &ClassificationWalkForward{
		FoldsRun:     len(byFold),
		FoldsSkipped: skipped,
		Metrics: map[string]metrics.MeanStd{
			"accuracy":  metrics.Summarize(accs),
			"precision": metrics.Summarize(precs),
			"recall":    metrics.Summarize(recs),
			"f1":        metrics.Summarize(f1s),
			"roc_auc":   metrics.Summarize(aucs),
		},
		ByFold: byFold,
	}, nil
}
