package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewTextOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Writer: &buf})

	logger.With("component", "session").Info("conversation created", "tenant_id", "acme")

	out := buf.String()
	for _, want := range []string{"conversation created", "component=session", "tenant_id=acme", "INFO"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestNewJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{JSON: true, Writer: &buf})

	logger.Info("batch flushed", "events", 10)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "batch flushed" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["events"] != float64(10) {
		t.Errorf("events = %v", entry["events"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Writer: &buf})

	logger.Debug("debug line")
	logger.Info("info line")
	logger.Warn("warn line")

	out := buf.String()
	if strings.Contains(out, "debug line") || strings.Contains(out, "info line") {
		t.Errorf("levels below warn leaked through:\n%s", out)
	}
	if !strings.Contains(out, "warn line") {
		t.Errorf("warn line missing:\n%s", out)
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	if logger == nil {
		t.Fatal("NewNop() returned nil")
	}
	logger.Error("discarded")
}
