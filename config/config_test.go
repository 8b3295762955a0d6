package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Canvas.Width != 1020 || cfg.Canvas.Height != 800 {
		t.Errorf("canvas = %gx%g, want 1020x800", cfg.Canvas.Width, cfg.Canvas.Height)
	}
	if cfg.Physics.AlphaDecay != 0.05 {
		t.Errorf("alpha decay = %g, want 0.05", cfg.Physics.AlphaDecay)
	}
	if cfg.Theme.TitleText != "Canvas Nodes" {
		t.Errorf("title = %q", cfg.Theme.TitleText)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want default 8080", cfg.Server.Port)
	}
}

func TestLoad_OverridesKeepDefaults(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	path := writeTestConfig(t, `
canvas:
  width: 640
physics:
  charge_strength: -120
theme:
  disk: "#ff0000"
directory:
  latency: 250ms
log:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Canvas.Width != 640 {
		t.Errorf("width = %g, want 640", cfg.Canvas.Width)
	}
	if cfg.Canvas.Height != 800 {
		t.Errorf("height = %g, want default 800", cfg.Canvas.Height)
	}
	if cfg.Physics.ChargeStrength != -120 {
		t.Errorf("charge = %g, want -120", cfg.Physics.ChargeStrength)
	}
	if cfg.Physics.LinkStrength != 0.12 {
		t.Errorf("link strength = %g, want default 0.12", cfg.Physics.LinkStrength)
	}
	if cfg.Theme.Disk != "#ff0000" || cfg.Theme.Square != "#10b981" {
		t.Errorf("theme = %+v", cfg.Theme)
	}
	if cfg.Directory.Latency != 250*time.Millisecond {
		t.Errorf("latency = %s, want 250ms", cfg.Directory.Latency)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoad_EnvLogLevel(t *testing.T) {
	t.Setenv(EnvLogLevel, "trace")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "trace" {
		t.Errorf("log level = %q, want trace", cfg.Log.Level)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "canvas: [", "parsing"},
		{"zero width", "canvas:\n  width: 0\n", "canvas size"},
		{"negative density", "canvas:\n  density: -1\n", "density"},
		{"decay out of range", "physics:\n  alpha_decay: 2\n", "alpha_decay"},
		{"alpha start above one", "physics:\n  alpha_start: 1.5\n", "alpha_start"},
		{"negative drag target", "physics:\n  drag_alpha_target: -0.1\n", "drag_alpha_target"},
		{"bad port", "server:\n  port: 70000\n", "port"},
		{"bad log level", "log:\n  level: loud\n", "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTestConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	path := filepath.Join(t.TempDir(), "nested", "config.yml")

	cfg := Default()
	cfg.Server.Port = 9191
	cfg.Directory.File = "people.yml"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Server.Port != 9191 || got.Directory.File != "people.yml" {
		t.Errorf("reloaded config = %+v", got)
	}
}

func TestPath(t *testing.T) {
	t.Setenv(EnvConfig, "/tmp/custom.yml")
	if got := Path(); got != "/tmp/custom.yml" {
		t.Errorf("Path() = %q, want env override", got)
	}

	t.Setenv(EnvConfig, "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := Path(); got != filepath.Join("/xdg", ConfigDir, ConfigFile) {
		t.Errorf("Path() = %q", got)
	}
}
