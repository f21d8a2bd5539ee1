package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"DEBUG", LevelDebug},
		{"Warning", LevelWarn},
		{"", LevelInfo},
		{"trace", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
	}{
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"text", FormatText},
		{"", FormatText},
		{"yaml", FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseFormat(tt.input); got != tt.expected {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestComponent_TagsRecords(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New(Config{Level: LevelDebug, Format: FormatJSON, Output: &buf}), "conn")
	log.Info("connected", "url", "ws://localhost:3003")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["component"] != "conn" {
		t.Errorf("component = %v, want conn", rec["component"])
	}
	if rec["url"] != "ws://localhost:3003" {
		t.Errorf("url = %v", rec["url"])
	}
}

func TestComponent_NilLogger(t *testing.T) {
	// Must not panic.
	Component(nil, "rpc").Info("discarded")
}

func TestTee_WritesToAllEnabled(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	h := Tee(
		Handler(Config{Level: LevelDebug, Output: &debugBuf}),
		Handler(Config{Level: LevelWarn, Output: &warnBuf}),
		nil,
	)
	log := slog.New(h).With("component", "cli")

	log.Debug("dial")
	log.Warn("dropping frame")

	if !strings.Contains(debugBuf.String(), "dial") || !strings.Contains(debugBuf.String(), "dropping frame") {
		t.Errorf("debug handler missing records: %q", debugBuf.String())
	}
	if strings.Contains(warnBuf.String(), "dial") {
		t.Errorf("warn handler got a debug record: %q", warnBuf.String())
	}
	if !strings.Contains(warnBuf.String(), "component=cli") {
		t.Errorf("warn handler lost attrs: %q", warnBuf.String())
	}
}
