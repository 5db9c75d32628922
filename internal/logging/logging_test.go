// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerEmitsKeyValues(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Level: LevelDebug})
	log.WithComponent("qos").Info("Queueing add request", "size", 3, "uid", 12345)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["component"] != "qos" {
		t.Errorf("component = %v, want qos", entry["component"])
	}
	if entry["message"] != "Queueing add request" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["size"] != float64(3) {
		t.Errorf("size = %v, want 3", entry["size"])
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Level: LevelWarn})
	log.Debug("dropped")
	log.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("expected no output below warn level, got %q", buf.String())
	}
	log.Error("kept")
	if buf.Len() == 0 {
		t.Error("expected error output")
	}
}
