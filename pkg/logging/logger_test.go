package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Expected default level to be Info, got %s", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("Expected JSON output by default")
	}
}

func TestSetup_JSONFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: LevelInfo, Output: buf})

	logger.Info().
		Str("dataset", "slava-medvedev/zelensky-speeches").
		Int("page", 2).
		Int("offset", 200).
		Int("rows", 100).
		Msg("Page fetched")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not one JSON object: %v (%q)", err, buf.String())
	}

	want := map[string]any{
		"level":   "info",
		"message": "Page fetched",
		"dataset": "slava-medvedev/zelensky-speeches",
		"page":    float64(2),
		"offset":  float64(200),
		"rows":    float64(100),
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
	if _, ok := entry["time"]; !ok {
		t.Error("Expected a timestamp field")
	}
}

func TestSetup_ReplacesGlobalLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelDebug, Output: buf})

	logger := NewLogger("rows-client")
	logger.Debug().Str("url", "https://example.com/rows").Msg("Executing dataset-server request")

	if !strings.Contains(buf.String(), "Executing dataset-server request") {
		t.Errorf("Expected package loggers to write through Setup's output, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"WARNING", zerolog.WarnLevel},
		{"Debug", zerolog.DebugLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	logger := NewLogger("site-builder")
	logger.Info().Str("out", "docs/static.html").Msg("Static document written")

	output := buf.String()
	if !strings.Contains(output, `"component":"site-builder"`) {
		t.Errorf("Expected output to contain the component field, got %q", output)
	}
	if !strings.Contains(output, `"out":"docs/static.html"`) {
		t.Errorf("Expected output to contain the out field, got %q", output)
	}
}

func TestLogLevelFiltering(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  []string
		drop  []string
	}{
		{LevelDebug, []string{"cache miss", "page fetched", "retrying", "build failed"}, nil},
		{LevelInfo, []string{"page fetched", "retrying", "build failed"}, []string{"cache miss"}},
		{LevelWarn, []string{"retrying", "build failed"}, []string{"cache miss", "page fetched"}},
		{LevelError, []string{"build failed"}, []string{"cache miss", "page fetched", "retrying"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			buf := &bytes.Buffer{}
			Setup(Config{Level: tt.level, Output: buf})

			logger := NewLogger("test")
			logger.Debug().Msg("cache miss")
			logger.Info().Msg("page fetched")
			logger.Warn().Msg("retrying")
			logger.Error().Msg("build failed")

			output := buf.String()
			for _, msg := range tt.want {
				if !strings.Contains(output, msg) {
					t.Errorf("%q should be logged at %s", msg, tt.level)
				}
			}
			for _, msg := range tt.drop {
				if strings.Contains(output, msg) {
					t.Errorf("%q should be filtered at %s", msg, tt.level)
				}
			}
		})
	}
}

func TestSetup_PrettyOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: LevelInfo, Pretty: true, Output: buf})

	logger.Info().Int("rows", 100).Msg("page fetched")

	output := buf.String()
	if strings.HasPrefix(output, "{") {
		t.Errorf("Expected console output, got JSON %q", output)
	}
	if !strings.Contains(output, "page fetched") || !strings.Contains(output, "rows=") {
		t.Errorf("Expected message and field in console output, got %q", output)
	}
}

func TestSetup_NilOutputDefaultsToStderr(t *testing.T) {
	logger := Setup(Config{Level: LevelError})
	logger.Debug().Msg("discarded")
}
