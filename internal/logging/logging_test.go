// v0
// internal/logging/logging_test.go
package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "footfall.log")
	dl := New(path, "debug")
	dl.Logger.Info("run_started", "runId", "r-1")
	if err := dl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "run_started") || !strings.Contains(string(b), "runId=r-1") {
		t.Fatalf("unexpected log contents %q", string(b))
	}
}

func TestNewFallsBackToStdout(t *testing.T) {
	dl := New(filepath.Join(t.TempDir(), "missing", "dir", "x.log"), "")
	if dl.file != nil {
		t.Fatalf("expected no file handle")
	}
	if err := dl.Close(); err != nil {
		t.Fatalf("close without file: %v", err)
	}
}

func TestNewWithConsoleKeepsStdoutClean(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "footfall.log")
	dl := NewWithConsole(&console, path, "info")
	dl.Logger.Info("run_finished", "records", 3)
	if err := dl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !strings.Contains(console.String(), "run_finished") {
		t.Fatalf("console writer missed the record: %q", console.String())
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "run_finished") {
		t.Fatalf("log file missed the record: %q", string(b))
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v, want %v", in, got, want)
		}
	}
}
