package training

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/YuminosukeSato/greenforecast/pkg/errors"
	"github.com/YuminosukeSato/greenforecast/selection"
	"github.com/YuminosukeSato/greenforecast/validation"
)

// Report is the training summary written to training_report.json.
type Report struct {
	RunID               string    `json:"run_id"`
	GeneratedAt         time.Time `json:"generated_at"`
	Dataset             string    `json:"dataset"`
	RowsTotal           int       `json:"rows_total"`
	RowsUsed            int       `json:"rows_used"`
	HorizonSteps        int       `json:"horizon_steps"`
	TrainRows           int       `json:"train_rows"`
	ValidRows           int       `json:"valid_rows"`
	RequestedDevice     string    `json:"requested_device"`
	ModelFamily         string    `json:"model_family"`
	CUDARequested       bool      `json:"cuda_requested"`
	CUDAUsedByBestModel bool      `json:"cuda_used_by_best_model"`

	BestModels        BestModels                         `json:"best_models"`
	ModelSelection    ModelSelection                     `json:"model_selection"`
	Metrics           CandidateMetrics                   `json:"metrics"`
	WalkForward       WalkForwardReport                  `json:"walk_forward"`
	ValidationQuality map[string]validation.ClassQuality `json:"validation_quality"`
	ClassDistribution ClassDistribution                  `json:"class_distribution_relay_light"`
	QualityGate       map[string]validation.GateResult   `json:"quality_gate"`
	Notes             []string                           `json:"notes"`
	Artifacts         []string                           `json:"artifacts"`
}

// BestModels names the selected candidate per target. RelayLight is nil when
// no classifier was produced.
type BestModels struct {
	LightForecast string  `json:"light_forecast"`
	RelayLight    *string `json:"relay_light"`
}

// ModelSelection records the selection mode used per target.
type ModelSelection struct {
	LightForecast string `json:"light_forecast"`
	RelayLight    string `json:"relay_light"`
}

// CandidateMetrics holds the per-candidate metric entries.
type CandidateMetrics struct {
	Regression     map[string]selection.RegressionMetrics     `json:"regression"`
	Classification map[string]selection.ClassificationMetrics `json:"classification"`
}

// WalkForwardReport summarises walk-forward folds of the selected pipelines.
type WalkForwardReport struct {
	RequestedSplits int                                  `json:"requested_splits"`
	GeneratedFolds  int                                  `json:"generated_folds"`
	Regression      *selection.RegressionWalkForward     `json:"regression,omitempty"`
	Classification  *selection.ClassificationWalkForward `json:"classification,omitempty"`
}

// ClassDistribution counts relay labels on each side of the holdout split.
type ClassDistribution struct {
	Train map[string]int `json:"train"`
	Valid map[string]int `json:"valid"`
}

// WriteJSON sanitizes v and writes it as indented JSON.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(Sanitize(v), "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", path)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

var jsonMarshaler = reflect.TypeOf((*json.Marshaler)(nil)).Elem()

// Sanitize converts v into plain maps, slices and scalars that encoding/json
// can always encode: NaN and ±Inf become nil (JSON null) at any depth.
// Structs become maps keyed by their json tag names; values implementing
// json.Marshaler, such as time.Time, are kept as they are.
func Sanitize(v any) any {
	return sanitize(reflect.ValueOf(v))
}

func sanitize(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return sanitize(v.Elem())
	}
	if v.Type().Implements(jsonMarshaler) {
		return v.Interface()
	}

	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = sanitize(iter.Value())
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, v.Len())
		for i := range out {
			out[i] = sanitize(v.Index(i))
		}
		return out
	case reflect.Struct:
		return sanitizeStruct(v)
	default:
		return v.Interface()
	}
}

func sanitizeStruct(v reflect.Value) map[string]any {
	t := v.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		fv := v.Field(i)
		if strings.Contains(opts, "omitempty") && isEmpty(fv) {
			continue
		}
		out[name] = sanitize(fv)
	}
	return out
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.String:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
