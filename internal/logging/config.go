// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel   = "OPTASK_LOG_LEVEL"
	EnvLogNoColor = "OPTASK_LOG_NOCOLOR"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Options tweak the profile defaults before env overrides are applied.
type Options struct {
	Out   io.Writer
	Debug bool
}

var configureOnce sync.Once

func ConfigureRuntime(opts Options) {
	Configure(ProfileRuntime, opts)
}

func ConfigureTests() {
	Configure(ProfileTest, Options{})
}

// Configure installs the global logger once per process.
func Configure(profile Profile, opts Options) {
	configureOnce.Do(func() {
		log.Logger = New(profile, opts)
		zerolog.SetGlobalLevel(log.Logger.GetLevel())
	})
}

// New builds a logger for the profile without touching global state.
func New(profile Profile, opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	level := zerolog.WarnLevel
	timestamp := true
	if profile == ProfileTest {
		level = zerolog.DebugLevel
		timestamp = false
	}
	if opts.Debug {
		level = zerolog.DebugLevel
	}
	noColor := false
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		noColor = v
	}

	writer := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	}
	if !timestamp {
		writer.PartsExclude = []string{zerolog.TimestampFieldName}
	}
	return zerolog.New(writer).Level(level).With().Timestamp().Str("app", "optask").Logger()
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// EnableDebug lowers the global logger to debug level, as the --debug flag
// asks for after the logger has been installed.
func EnableDebug() {
	log.Logger = log.Logger.Level(zerolog.DebugLevel)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}
