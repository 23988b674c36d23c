package dataset

import (
	"math"
	"time"
)

// Frame is a column-oriented table indexed by timestamp. Missing values are
// NaN. Columns keeps insertion order, which is also the feature order used
// downstream.
type Frame struct {
	Source     string
	Timestamps []time.Time
	Columns    []string
	Data       map[string][]float64
}

// NewFrame creates an empty frame over the given timestamps.
func NewFrame(timestamps []time.Time) *Frame {
	return &Frame{
		Timestamps: timestamps,
		Data:       make(map[string][]float64),
	}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Timestamps)
}

// Has reports whether the column exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.Data[name]
	return ok
}

// Column returns the values of a column, or nil when it is absent.
func (f *Frame) Column(name string) []float64 {
	return f.Data[name]
}

// Set adds or replaces a column. New columns are appended to Columns.
func (f *Frame) Set(name string, values []float64) {
	if !f.Has(name) {
		f.Columns = append(f.Columns, name)
	}
	f.Data[name] = values
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		Source:     f.Source,
		Timestamps: append([]time.Time(nil), f.Timestamps...),
		Columns:    append([]string(nil), f.Columns...),
		Data:       make(map[string][]float64, len(f.Data)),
	}
	for k, v := range f.Data {
		out.Data[k] = append([]float64(nil), v...)
	}
	return out
}

// Row returns the values of row i in Columns order.
func (f *Frame) Row(i int) []float64 {
	row := make([]float64, len(f.Columns))
	for j, c := range f.Columns {
		row[j] = f.Data[c][i]
	}
	return row
}

// NaNs returns a column of n missing values.
func NaNs(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
