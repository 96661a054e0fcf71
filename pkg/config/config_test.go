package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Check(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if level, _ := cfg.Level(); level != slog.LevelInfo {
		t.Errorf("expected info level, got %v", level)
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
color: never
log_level: debug
strict: true
verify:
  min: 1
  max: 3
dot: graph.dot
`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cfg.Color != ColorNever || !cfg.Strict || cfg.Dot != "graph.dot" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Verify != (Bounds{Min: 1, Max: 3}) {
		t.Errorf("unexpected bounds %+v", cfg.Verify)
	}
	if level, _ := cfg.Level(); level != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", level)
	}
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("strict: true\n"))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cfg.Color != ColorAuto || cfg.LogLevel != "info" {
		t.Errorf("defaults should survive, got %+v", cfg)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name, input, want string
	}{
		{"unknown field", "colour: never\n", "parsing config"},
		{"bad color", "color: sometimes\n", "invalid color mode"},
		{"bad level", "log_level: loud\n", "invalid log level"},
		{"bad bounds", "verify: {min: 2, max: 1}\n", "invalid verify bounds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ovum.yaml")
	if err := os.WriteFile(path, []byte("color: always\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Color != ColorAlways {
		t.Errorf("expected always, got %s", cfg.Color)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil || !strings.Contains(err.Error(), "reading config") {
		t.Errorf("expected read error, got %v", err)
	}
}
