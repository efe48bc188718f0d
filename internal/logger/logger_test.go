package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestInitWritesToFile(t *testing.T) {
	previous := Logger
	t.Cleanup(func() { Logger = previous })

	path := filepath.Join(t.TempDir(), "logs", "habits.log")
	if err := Init(Config{Level: log.InfoLevel, File: path}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	Debug("hidden line")
	Info("habit created", "id", "abc")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "habit created") || !strings.Contains(out, "id=abc") {
		t.Errorf("expected info line in log file, got %q", out)
	}
	if strings.Contains(out, "hidden line") {
		t.Errorf("debug line must be filtered at info level, got %q", out)
	}
}
