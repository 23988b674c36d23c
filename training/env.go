package training

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/YuminosukeSato/greenforecast/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "GREENHOUSE_"

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. With no paths it loads ./.env
// if present; explicitly named files must exist.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		paths = []string{".env"}
	}
	if err := godotenv.Load(paths...); err != nil {
		return errors.Wrapf(err, "load env file %s", strings.Join(paths, ","))
	}
	return nil
}

// ApplyEnv overlays GREENHOUSE_* variables onto c. lookup is normally
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.NewValidationError(EnvPrefix+key, "must be an integer", v)
		}
		*dst = n
		return nil
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return errors.NewValidationError(EnvPrefix+key, "must be a boolean", v)
		}
		*dst = b
		return nil
	}

	str("DATASET", &c.Dataset)
	str("OUTPUT_DIR", &c.OutputDir)
	str("DEVICE", &c.Device)
	str("MODEL_FAMILY", &c.ModelFamily)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FILE", &c.LogFile)

	if v, ok := lookup(EnvPrefix + "TRAIN_RATIO"); ok && v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return errors.NewValidationError(EnvPrefix+"TRAIN_RATIO", "must be a number", v)
		}
		c.TrainRatio = f
	}
	if v, ok := lookup(EnvPrefix + "SEED"); ok && v != "" {
		s, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return errors.NewValidationError(EnvPrefix+"SEED", "must be a non-negative integer", v)
		}
		c.Seed = s
	}

	for key, dst := range map[string]*int{
		"HORIZON_STEPS":         &c.HorizonSteps,
		"WALK_FORWARD_SPLITS":   &c.WalkForwardSplits,
		"MIN_RELAY_CLASS_COUNT": &c.MinRelayClassCount,
		"PARALLELISM":           &c.Parallelism,
	} {
		if err := integer(key, dst); err != nil {
			return err
		}
	}
	for key, dst := range map[string]*bool{
		"STRICT_RELAY_QUALITY": &c.StrictRelayQuality,
		"SHOW_PROGRESS":        &c.ShowProgress,
		"PLOTS":                &c.Plots,
		"COMPACT":              &c.Compact,
	} {
		if err := boolean(key, dst); err != nil {
			return err
		}
	}
	return nil
}
