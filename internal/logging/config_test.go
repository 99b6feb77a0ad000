package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw    string
		want   zerolog.Level
		wantOK bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, true},
		{" WARN ", zerolog.WarnLevel, true},
		{"warning", zerolog.WarnLevel, true},
		{"off", zerolog.Disabled, true},
		{"loud", zerolog.InfoLevel, false},
	}
	for _, tt := range tests {
		got, ok := parseLevel(tt.raw)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseLevel(%q) = %v,%v; want %v,%v", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNew_EnvLevelOverride(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogNoColor, "true")

	var buf bytes.Buffer
	logger := New(ProfileRuntime, Options{Out: &buf, Debug: true})
	logger.Warn().Msg("dropped")
	logger.Error().Msg("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("warn line should be filtered, got %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("error line missing, got %q", out)
	}
}

func TestNew_DebugFlag(t *testing.T) {
	t.Setenv(EnvLogLevel, "")

	var buf bytes.Buffer
	logger := New(ProfileRuntime, Options{Out: &buf, Debug: true})
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Errorf("expected debug level, got %v", logger.GetLevel())
	}
}
