package log

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := ParseLevel(tc.in); got != tc.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestComponent(t *testing.T) {
	if Component("tracker") == nil {
		t.Fatal("Component returned nil")
	}
	if L() == nil {
		t.Fatal("L returned nil after lazy init")
	}
}

func TestOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tryon.log")
	l := newLogger("debug", output(path))
	l.Debug("frame dropped", "reason", "test")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "frame dropped") {
		t.Errorf("log file missing record: %q", data)
	}
}

func TestOutput_StdoutOnly(t *testing.T) {
	if output("") != os.Stdout {
		t.Error("empty path should log to stdout only")
	}
}
