package log

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	gfErrors "github.com/YuminosukeSato/greenforecast/pkg/errors"
)

// SetupOptions configures the process-wide logger.
type SetupOptions struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string
	// Console selects the human-readable zerolog.ConsoleWriter instead of JSON lines.
	Console bool
	// Output defaults to os.Stderr.
	Output io.Writer
	// File, when set, additionally writes JSON lines to a rotating log file.
	File string
}

// ParseLevel converts a level name to Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, gfErrors.NewValueError("ParseLevel", "invalid log level: "+level)
	}
}

// Setup installs a zerolog-backed provider as the process-wide provider and
// returns a closer for the log file, if any.
func Setup(opts SetupOptions) (io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, gfErrors.Wrapf(err, "create log directory for %s", opts.File)
		}
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    100, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(out, rotating)
		closer = rotating
	}

	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	SetProvider(NewZerologProvider(out, level))
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
