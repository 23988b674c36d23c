// Package dataset loads greenhouse telemetry CSV files and normalizes them
// into a time-ordered frame of numeric columns.
package dataset

// TimestampColumn is the only required column.
const TimestampColumn = "timestamp"

// Target columns.
const (
	LightColumn = "light_lux"
	RelayColumn = "relay_light"
)

// NumericColumns are sensor readings and automation thresholds.
var NumericColumns = []string{
	"temp_c",
	"humidity_pct",
	"soil_adc",
	"light_lux",
	"threshold_temp_on",
	"threshold_soil_dry",
	"threshold_light_lux",
}

// BinaryColumns are detector and actuator flags, clipped to [0, 1].
var BinaryColumns = []string{
	"flame_detected",
	"ir_detected",
	"relay_fan",
	"relay_pump",
	"relay_light",
	"relay_buzzer",
	"automation_on",
}

// IsBinary reports whether name is a binary flag column.
func IsBinary(name string) bool {
	for _, c := range BinaryColumns {
		if c == name {
			return true
		}
	}
	return false
}

// IsKnown reports whether name belongs to the telemetry schema.
func IsKnown(name string) bool {
	if name == TimestampColumn || IsBinary(name) {
		return true
	}
	for _, c := range NumericColumns {
		if c == name {
			return true
		}
	}
	return false
}
