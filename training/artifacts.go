package training

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/greenforecast/dataset"
	"github.com/YuminosukeSato/greenforecast/pkg/errors"
	"github.com/YuminosukeSato/greenforecast/sklearn/pipeline"
)

// Artifact file names inside the output directory.
const (
	RegressorFile      = "light_forecast_model.gob"
	ClassifierFile     = "relay_light_model.gob"
	FeatureColumnsFile = "feature_columns.json"
	ReportFile         = "training_report.json"
	MetricsFile        = "training_metrics.prom"
	HoldoutPlotFile    = "light_forecast_holdout.png"
)

// saveRegressor persists the selected light-forecast pipeline.
func saveRegressor(dir, name string, horizon int, columns []string, p *pipeline.Regressor) error {
	return pipeline.SaveArtifact(&pipeline.Artifact{
		Target:       dataset.LightColumn,
		ModelName:    name,
		HorizonSteps: horizon,
		Columns:      columns,
		TrainedAt:    time.Now().UTC(),
		Regressor:    p,
	}, filepath.Join(dir, RegressorFile))
}

// saveClassifier persists the selected relay pipeline.
func saveClassifier(dir, name string, horizon int, columns []string, p *pipeline.Classifier) error {
	return pipeline.SaveArtifact(&pipeline.Artifact{
		Target:       dataset.RelayColumn,
		ModelName:    name,
		HorizonSteps: horizon,
		Columns:      columns,
		TrainedAt:    time.Now().UTC(),
		Classifier:   p,
	}, filepath.Join(dir, ClassifierFile))
}

// LoadFeatureColumns reads feature_columns.json from an artifact directory.
func LoadFeatureColumns(dir string) ([]string, error) {
	path := filepath.Join(dir, FeatureColumnsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	var columns []string
	if err := json.Unmarshal(data, &columns); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return columns, nil
}

// writeMetrics exports the headline numbers of a run in the Prometheus
// textfile-collector format.
func writeMetrics(path string, rep *Report, duration time.Duration) error {
	reg := prometheus.NewRegistry()

	rows := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "greenforecast_training_rows",
		Help: "Rows at each stage of the training run",
	}, []string{"set"})
	holdout := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "greenforecast_holdout_metric",
		Help: "Holdout metric per candidate",
	}, []string{"target", "candidate", "metric"})
	selected := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "greenforecast_selected_model",
		Help: "1 for the candidate selected per target",
	}, []string{"target", "candidate", "mode"})
	gate := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "greenforecast_relay_quality_gate_passed",
		Help: "1 when the relay class-balance gate passed",
	})
	folds := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "greenforecast_walk_forward_folds",
		Help: "Walk-forward folds generated for the run",
	})
	elapsed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "greenforecast_training_duration_seconds",
		Help: "Wall time of the training run",
	})
	reg.MustRegister(rows, holdout, selected, gate, folds, elapsed)

	rows.WithLabelValues("total").Set(float64(rep.RowsTotal))
	rows.WithLabelValues("used").Set(float64(rep.RowsUsed))
	rows.WithLabelValues("train").Set(float64(rep.TrainRows))
	rows.WithLabelValues("valid").Set(float64(rep.ValidRows))

	for name, m := range rep.Metrics.Regression {
		holdout.WithLabelValues("light_forecast", name, "mae").Set(m.MAE)
		holdout.WithLabelValues("light_forecast", name, "rmse").Set(m.RMSE)
		holdout.WithLabelValues("light_forecast", name, "r2").Set(m.R2)
	}
	for name, m := range rep.Metrics.Classification {
		holdout.WithLabelValues("relay_light", name, "accuracy").Set(m.Accuracy)
		holdout.WithLabelValues("relay_light", name, "f1").Set(m.F1)
		if m.ROCAUC != nil {
			holdout.WithLabelValues("relay_light", name, "roc_auc").Set(*m.ROCAUC)
		}
	}

	selected.WithLabelValues("light_forecast", rep.BestModels.LightForecast, rep.ModelSelection.LightForecast).Set(1)
	if rep.BestModels.RelayLight != nil {
		selected.WithLabelValues("relay_light", *rep.BestModels.RelayLight, rep.ModelSelection.RelayLight).Set(1)
	}
	if rep.QualityGate[dataset.RelayColumn].Passed {
		gate.Set(1)
	}
	folds.Set(float64(rep.WalkForward.GeneratedFolds))
	elapsed.Set(duration.Seconds())

	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// writeHoldoutPlot draws actual and predicted light over the holdout rows.
func writeHoldoutPlot(path string, actual, predicted []float64) error {
	p := plot.New()
	p.Title.Text = "light_lux forecast on holdout"
	p.X.Label.Text = "holdout row"
	p.Y.Label.Text = "lux"

	a := make(plotter.XYs, len(actual))
	f := make(plotter.XYs, len(predicted))
	for i := range actual {
		a[i].X, a[i].Y = float64(i), actual[i]
	}
	for i := range predicted {
		f[i].X, f[i].Y = float64(i), predicted[i]
	}
	if err := plotutil.AddLines(p, "actual", a, "predicted", f); err != nil {
		return errors.Wrap(err, "build holdout plot")
	}
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
