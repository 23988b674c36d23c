package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/YuminosukeSato/greenforecast/pkg/errors"
)

const header = "timestamp,temp_c,humidity_pct,soil_adc,light_lux,flame_detected,ir_detected,relay_fan,relay_pump,relay_light,relay_buzzer,automation_on,threshold_temp_on,threshold_soil_dry,threshold_light_lux"

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"))
	if !errors.Is(err, errors.ErrDatasetNotFound) {
		t.Errorf("missing file: got %v, want DatasetNotFound", err)
	}

	for name, content := range map[string]string{
		"no bytes":    "",
		"header only": header + "\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeCSV(t, content))
			if !errors.Is(err, errors.ErrDatasetEmpty) {
				t.Errorf("got %v, want DatasetEmpty", err)
			}
		})
	}
}

func TestNormalizeCoercion(t *testing.T) {
	content := strings.Join([]string{
		"timestamp,light_lux,relay_light,temp_c,note,extra",
		"2026-03-01 10:00:00,100,1,21.5,hello,7",
		"not-a-date,200,0,22,x,8",
		"2026-03-01 10:02:00,inf,5,abc,y,",
		"2026-03-01 10:01:00,300,-2,-Inf,z,9",
	}, "\n")

	frame, err := LoadFrame(writeCSV(t, content))
	if err != nil {
		t.Fatalf("LoadFrame() error = %v", err)
	}
	if frame.Len() != 3 {
		t.Fatalf("rows = %d, want 3 (bad timestamp dropped)", frame.Len())
	}
	if frame.Has("note") {
		t.Error("non-numeric extra column must be dropped")
	}
	if !frame.Has("extra") {
		t.Error("numeric extra column must be kept")
	}

	light := frame.Column("light_lux")
	relay := frame.Column("relay_light")
	temp := frame.Column("temp_c")
	// 並び順: 10:00, 10:01, 10:02
	if light[1] != 300 || !math.IsNaN(light[2]) {
		t.Errorf("light = %v", light)
	}
	if relay[0] != 1 || relay[1] != 0 || relay[2] != 1 {
		t.Errorf("relay not clipped: %v", relay)
	}
	if !math.IsNaN(temp[1]) || !math.IsNaN(temp[2]) {
		t.Errorf("temp = %v, want NaN for -Inf and abc", temp)
	}
	if !math.IsNaN(frame.Column("extra")[2]) {
		t.Error("empty cell must be NaN")
	}
}

func TestNormalizeDuplicatesKeepLast(t *testing.T) {
	content := strings.Join([]string{
		"timestamp,light_lux,relay_light",
		"2026-03-01T10:00:00Z,1,0",
		"2026-03-01T10:01:00Z,2,0",
		"2026-03-01T10:00:00Z,3,1",
		"2026-03-01T10:01:00Z,4,1",
		"2026-03-01T10:00:00Z,5,0",
	}, "\n")
	frame, err := LoadFrame(writeCSV(t, content))
	if err != nil {
		t.Fatal(err)
	}
	if frame.Len() != 2 {
		t.Fatalf("rows = %d, want 2", frame.Len())
	}
	if got := frame.Column("light_lux"); got[0] != 5 || got[1] != 4 {
		t.Errorf("light = %v, want [5 4] (last occurrence wins)", got)
	}
}

func TestNormalizeShuffledIsSortedAndUnique(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for trial := 0; trial < 20; trial++ {
		n := 50 + rng.IntN(50)
		lines := make([]string, n)
		for i := range lines {
			// 重複を含むランダムな時刻
			ts := base.Add(time.Duration(rng.IntN(40)) * time.Minute)
			lines[i] = fmt.Sprintf("%s,%d,%d", ts.Format("2006-01-02 15:04:05"), i, i%2)
		}
		rng.Shuffle(len(lines), func(a, b int) { lines[a], lines[b] = lines[b], lines[a] })

		raw, err := Read(strings.NewReader("timestamp,light_lux,relay_light\n" + strings.Join(lines, "\n")))
		if err != nil {
			t.Fatal(err)
		}
		frame, err := Normalize(raw)
		if err != nil {
			t.Fatal(err)
		}
		for i := 1; i < frame.Len(); i++ {
			if !frame.Timestamps[i].After(frame.Timestamps[i-1]) {
				t.Fatalf("trial %d: timestamps not strictly increasing at %d", trial, i)
			}
		}
	}
}

func TestNormalizeRequiresTimestamp(t *testing.T) {
	raw := &RawTable{Header: []string{"light_lux"}, Records: [][]string{{"1"}}}
	if _, err := Normalize(raw); err == nil {
		t.Error("expected error without timestamp column")
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2026-03-01 10:20:30", time.Date(2026, 3, 1, 10, 20, 30, 0, time.UTC), true},
		{"2026-03-01T10:20:30.5", time.Date(2026, 3, 1, 10, 20, 30, 5e8, time.UTC), true},
		{"2026-03-01T10:20:30+09:00", time.Date(2026, 3, 1, 1, 20, 30, 0, time.UTC), true},
		{"2026-03-01", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"yesterday", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFullSchemaHeader(t *testing.T) {
	row := "2026-03-01 10:00:00,21,55,400,120,0,0,1,0,1,0,1,30,500,200"
	frame, err := LoadFrame(writeCSV(t, header+"\n"+row+"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(frame.Columns) != 14 {
		t.Errorf("columns = %d, want 14", len(frame.Columns))
	}
	if frame.Columns[0] != "temp_c" {
		t.Errorf("first column = %s, want CSV order", frame.Columns[0])
	}
}
