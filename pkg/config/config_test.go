package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsResolve(t *testing.T) {
	cfg := Default()
	cfg.WorkDir = t.TempDir()
	if err := cfg.Resolve(); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if cfg.OutputDir != filepath.Join(cfg.WorkDir, "output") {
		t.Errorf("Unexpected output dir %s", cfg.OutputDir)
	}
	if cfg.RegionFile != filepath.Join(cfg.WorkDir, "region", "selected_region.wav") {
		t.Errorf("Unexpected region file %s", cfg.RegionFile)
	}
	if cfg.Generator.Function != "main_generation_handler" {
		t.Errorf("Unexpected generator function %s", cfg.Generator.Function)
	}
}

func TestDefaultWorkDirExpandsHome(t *testing.T) {
	cfg := Default()
	if err := cfg.Resolve(); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if strings.HasPrefix(cfg.WorkDir, "~") {
		t.Errorf("Expected ~ to be expanded, got %s", cfg.WorkDir)
	}
}

func TestDecodeOverlay(t *testing.T) {
	dir := t.TempDir()
	doc := `
sample_rate = 48000
block_size = 256
work_dir = "` + filepath.ToSlash(dir) + `"
region_timeout = "750ms"

[generator]
backend = "exec"
module = "imagine_gen"
parallel = 4

[log]
level = "debug"
`
	cfg, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if cfg.SampleRate != 48000 || cfg.BlockSize != 256 {
		t.Errorf("Overlay not applied: %+v", cfg)
	}
	if cfg.Voices != 128 {
		t.Errorf("Unset keys should keep defaults, voices = %d", cfg.Voices)
	}
	if cfg.RegionTimeout.Duration != 750*time.Millisecond {
		t.Errorf("Expected 750ms timeout, got %v", cfg.RegionTimeout)
	}
	if cfg.Generator.Backend != BackendExec || cfg.Generator.Parallel != 4 {
		t.Errorf("Generator overlay not applied: %+v", cfg.Generator)
	}
	if cfg.Generator.Python != "python3" {
		t.Errorf("Expected default interpreter, got %s", cfg.Generator.Python)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected debug log level, got %s", cfg.Log.Level)
	}
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode(strings.NewReader("sample_rate = 44100\nbogus = 1\n[generator]\nflavour = \"x\"\n"))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("Expected ErrInvalid, got %v", err)
	}
	if !strings.Contains(err.Error(), "bogus") || !strings.Contains(err.Error(), "generator.flavour") {
		t.Errorf("Error should name the unknown keys: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"Zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"Negative block size", func(c *Config) { c.BlockSize = -1 }},
		{"No output channels", func(c *Config) { c.OutputChannels = 0 }},
		{"No voices", func(c *Config) { c.Voices = 0 }},
		{"Root note too high", func(c *Config) { c.RootNote = 128 }},
		{"Negative timeout", func(c *Config) { c.RegionTimeout.Duration = -time.Second }},
		{"No parallelism", func(c *Config) { c.Generator.Parallel = 0 }},
		{"Unknown backend", func(c *Config) { c.Generator.Backend = "ruby" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Expected ErrInvalid, got %v", err)
			}
		})
	}

	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults should validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "imagine.toml")
	doc := "voices = 16\noutput_dir = \"" + filepath.ToSlash(filepath.Join(dir, "out")) + "\"\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Voices != 16 {
		t.Errorf("Expected 16 voices, got %d", cfg.Voices)
	}
	if cfg.OutputDir != filepath.Join(dir, "out") {
		t.Errorf("Explicit output dir should win, got %s", cfg.OutputDir)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
