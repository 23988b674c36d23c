package dataset

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/YuminosukeSato/greenforecast/pkg/errors"
	"github.com/YuminosukeSato/greenforecast/pkg/log"
)

// timestampLayouts are tried in order; naive timestamps are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
}

// ParseTimestamp parses the timestamp formats written by the logger and by
// common spreadsheet exports.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseNumber coerces a cell to float64; empty or unparseable cells are NaN.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// LoadFrame is Load followed by Normalize.
func LoadFrame(path string) (*Frame, error) {
	raw, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Normalize(raw)
}

// Normalize turns a raw table into a time-ordered frame.
//
// Rows with unparseable timestamps are dropped. Schema columns are coerced to
// numbers (bad cells become NaN), binary flags are clipped to [0, 1] and
// ±Inf becomes NaN elsewhere. Extra columns are kept only when every
// non-empty cell is numeric. Rows are stably sorted by timestamp and, for
// equal timestamps, only the last row in file order survives. No imputation
// happens here.
func Normalize(raw *RawTable) (*Frame, error) {
	tsIdx := -1
	for j, h := range raw.Header {
		if h == TimestampColumn {
			tsIdx = j
			break
		}
	}
	if tsIdx < 0 {
		return nil, errors.NewValidationError(TimestampColumn, "dataset must include a 'timestamp' column", raw.Header)
	}

	type parsedRow struct {
		ts  time.Time
		src int
	}
	rows := make([]parsedRow, 0, len(raw.Records))
	for i, rec := range raw.Records {
		if ts, ok := ParseTimestamp(cell(rec, tsIdx)); ok {
			rows = append(rows, parsedRow{ts: ts, src: i})
		}
	}
	badTimestamps := len(raw.Records) - len(rows)

	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].ts.Before(rows[b].ts)
	})

	// 同一タイムスタンプは最後の行を残す
	kept := rows[:0:0]
	for i := range rows {
		if i+1 < len(rows) && rows[i+1].ts.Equal(rows[i].ts) {
			continue
		}
		kept = append(kept, rows[i])
	}
	duplicates := len(rows) - len(kept)

	timestamps := make([]time.Time, len(kept))
	for i, r := range kept {
		timestamps[i] = r.ts
	}
	frame := NewFrame(timestamps)
	frame.Source = raw.Path

	for j, name := range raw.Header {
		if j == tsIdx || name == "" || frame.Has(name) {
			continue
		}
		if !IsKnown(name) && !numericColumn(raw.Records, j) {
			continue
		}
		values := make([]float64, len(kept))
		binary := IsBinary(name)
		for i, r := range kept {
			v := ParseNumber(cell(raw.Records[r.src], j))
			switch {
			case binary && !math.IsNaN(v):
				v = errors.ClipValue(v, 0, 1)
			case math.IsInf(v, 0):
				v = math.NaN()
			}
			values[i] = v
		}
		frame.Set(name, values)
	}

	log.GetLoggerWithName("dataset").Debug("dataset normalized",
		log.PathKey, raw.Path,
		log.SamplesKey, frame.Len(),
		log.FeaturesKey, len(frame.Columns),
		log.DroppedRowsKey, badTimestamps+duplicates,
		"duplicate_timestamps", duplicates,
		"invalid_timestamps", badTimestamps)
	return frame, nil
}

// numericColumn reports whether every non-empty cell of column j parses as a
// number and at least one cell is non-empty.
func numericColumn(records [][]string, j int) bool {
	seen := false
	for _, rec := range records {
		s := cell(rec, j)
		if s == "" {
			continue
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}
