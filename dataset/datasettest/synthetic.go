// Package datasettest writes synthetic telemetry logs for tests.
package datasettest

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Header is the full telemetry column set in logger order.
const Header = "timestamp,temp_c,humidity_pct,soil_adc,light_lux,flame_detected,ir_detected," +
	"relay_fan,relay_pump,relay_light,relay_buzzer,automation_on," +
	"threshold_temp_on,threshold_soil_dry,threshold_light_lux"

// Alternating toggles relay_light every six rows.
func Alternating(i int) int { return (i / 6) % 2 }

// AlwaysOff keeps relay_light at 0.
func AlwaysOff(int) int { return 0 }

// WriteCSV writes n one-minute rows with a linear light trend plus small
// gaussian noise and returns the file path. relay decides relay_light of
// row i. Output is deterministic.
func WriteCSV(tb testing.TB, n int, relay func(i int) int) string {
	tb.Helper()
	rng := rand.New(rand.NewPCG(3, 5))
	base := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

	var b strings.Builder
	b.WriteString(Header + "\n")
	for i := 0; i < n; i++ {
		ts := base.Add(time.Duration(i) * time.Minute).Format("2006-01-02 15:04:05")
		temp := 22 + math.Sin(float64(i)/15)
		humidity := 50 + 5*math.Cos(float64(i)/20)
		light := 20 + 2*float64(i) + rng.NormFloat64()
		fmt.Fprintf(&b, "%s,%.3f,%.1f,%d,%.3f,0,0,0,0,%d,0,1,30,500,200\n",
			ts, temp, humidity, 400+i%7, light, relay(i))
	}

	path := filepath.Join(tb.TempDir(), "telemetry.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		tb.Fatalf("write synthetic telemetry: %v", err)
	}
	return path
}
