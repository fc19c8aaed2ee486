package infra

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerTo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, slog.LevelWarn)

	logger.Info("dropped")
	logger.Warn("kept", slog.String("kind", "network"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected a single JSON line, got %q", buf.String())
	}
	if entry["msg"] != "kept" || entry["kind"] != "network" {
		t.Errorf("Unexpected entry: %v", entry)
	}
}

func TestNewFileLogger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Dir = t.TempDir()

	NewFileLogger(cfg, "tui").Info("hello")

	data, err := os.ReadFile(filepath.Join(cfg.Logging.Dir, "tui.log"))
	if err != nil {
		t.Fatalf("Log file not written: %v", err)
	}
	if !bytes.Contains(data, []byte(`"app":"tui"`)) {
		t.Errorf("Missing app attribute: %s", data)
	}
}
