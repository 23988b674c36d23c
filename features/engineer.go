// Package features derives model inputs from a normalized telemetry frame
// and pairs them with horizon-shifted targets.
package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/greenforecast/dataset"
	"github.com/YuminosukeSato/greenforecast/pkg/errors"
	"github.com/YuminosukeSato/greenforecast/pkg/log"
)

// Signals receive lag and first-difference features.
var Signals = []string{
	"temp_c",
	"humidity_pct",
	"soil_adc",
	"light_lux",
	"relay_light",
	"automation_on",
}

// Lags are the row offsets of the lag features.
var Lags = []int{1, 2, 3, 5}

// RollingWindows are the window sizes of the light rolling statistics.
var RollingWindows = []int{3, 5, 10}

// margins maps a derived margin column to its (signal, threshold) pair.
var margins = []struct{ name, signal, threshold string }{
	{"light_margin", "light_lux", "threshold_light_lux"},
	{"temp_margin", "temp_c", "threshold_temp_on"},
	{"soil_margin", "soil_adc", "threshold_soil_dry"},
}

const secondsPerDay = 86400.0

// Build returns a new frame holding every input column plus the derived
// features. The input frame is not modified. Leading rows keep NaN where a
// lag or window reaches before the first row; imputation happens later.
func Build(frame *dataset.Frame) (*dataset.Frame, error) {
	if frame == nil {
		return nil, errors.NewValueError("features.Build", "expected a normalized frame with a timestamp index")
	}
	out := frame.Clone()
	n := out.Len()

	sin := make([]float64, n)
	cos := make([]float64, n)
	for i, ts := range out.Timestamps {
		sec := float64(ts.Hour()*3600 + ts.Minute()*60 + ts.Second())
		angle := 2 * math.Pi * sec / secondsPerDay
		sin[i] = math.Sin(angle)
		cos[i] = math.Cos(angle)
	}
	out.Set("time_sin", sin)
	out.Set("time_cos", cos)

	for _, sig := range Signals {
		col := frame.Column(sig)
		if col == nil {
			continue
		}
		for _, k := range Lags {
			out.Set(fmt.Sprintf("%s_lag_%d", sig, k), Shift(col, k))
		}
		out.Set(sig+"_delta_1", Diff(col))
	}

	if light := frame.Column(dataset.LightColumn); light != nil {
		for _, w := range RollingWindows {
			mean, std := Rolling(light, w)
			out.Set(fmt.Sprintf("light_roll_mean_%d", w), mean)
			out.Set(fmt.Sprintf("light_roll_std_%d", w), std)
		}
	}

	for _, m := range margins {
		sig, thr := frame.Column(m.signal), frame.Column(m.threshold)
		if sig == nil || thr == nil {
			continue
		}
		diff := make([]float64, n)
		floats.SubTo(diff, sig, thr)
		out.Set(m.name, diff)
	}

	log.GetLoggerWithName("features").Debug("feature frame built",
		log.SamplesKey, n,
		log.FeaturesKey, len(out.Columns))
	return out, nil
}

// Shift returns col delayed by k rows; the first k values are NaN.
func Shift(col []float64, k int) []float64 {
	out := dataset.NaNs(len(col))
	for i := k; i < len(col); i++ {
		out[i] = col[i-k]
	}
	return out
}

// Diff returns the first difference; row 0 is NaN.
func Diff(col []float64) []float64 {
	out := dataset.NaNs(len(col))
	for i := 1; i < len(col); i++ {
		out[i] = col[i] - col[i-1]
	}
	return out
}

// Rolling returns the trailing mean and sample standard deviation over
// window rows. A window that is incomplete or contains NaN yields NaN.
func Rolling(col []float64, window int) (mean, std []float64) {
	mean = dataset.NaNs(len(col))
	std = dataset.NaNs(len(col))
	for i := window - 1; i < len(col); i++ {
		w := col[i-window+1 : i+1]
		if floats.HasNaN(w) {
			continue
		}
		m, s := stat.MeanStdDev(w, nil)
		mean[i] = m
		if window > 1 {
			std[i] = s
		}
	}
	return mean, std
}
