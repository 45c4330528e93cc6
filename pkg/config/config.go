// Package config holds the engine and host settings. Defaults are built in
// and can be overlaid from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid config")

// Generator backends
const (
	BackendLua  = "lua"
	BackendExec = "exec"
)

// Duration decodes TOML strings such as "5s" or "250ms"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Generator configures the image-to-audio call-out
type Generator struct {
	Backend  string `toml:"backend"`
	Script   string `toml:"script"`
	Python   string `toml:"python"`
	Module   string `toml:"module"`
	Function string `toml:"function"`
	Parallel int    `toml:"parallel"`
	Watch    bool   `toml:"watch"`
}

// Log configures the process logger
type Log struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type Config struct {
	SampleRate     float64  `toml:"sample_rate"`
	BlockSize      int      `toml:"block_size"`
	OutputChannels int      `toml:"output_channels"`
	Voices         int      `toml:"voices"`
	RootNote       int      `toml:"root_note"`
	WorkDir        string   `toml:"work_dir"`
	OutputDir      string   `toml:"output_dir"`
	RegionFile     string   `toml:"region_file"`
	RegionTimeout  Duration `toml:"region_timeout"`

	Generator Generator `toml:"generator"`
	Log       Log       `toml:"log"`
}

// Default returns the built-in settings. Paths derived from WorkDir are left
// empty and filled in by Resolve.
func Default() Config {
	return Config{
		SampleRate:     44100,
		BlockSize:      512,
		OutputChannels: 2,
		Voices:         128,
		RootNote:       60,
		WorkDir:        "~/Documents/Imagine",
		RegionTimeout:  Duration{5 * time.Second},
		Generator: Generator{
			Backend:  BackendLua,
			Python:   "python3",
			Module:   "main",
			Function: "main_generation_handler",
			Parallel: 2,
		},
		Log: Log{Level: "info"},
	}
}

// Load overlays the TOML file at path on the defaults and resolves paths
func Load(path string) (Config, error) {
	cfg := Default()
	p, err := homedir.Expand(path)
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	md, err := toml.DecodeFile(p, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if err := checkUndecoded(md); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, cfg.Resolve()
}

// Decode reads TOML from r on top of the defaults
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := checkUndecoded(md); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, cfg.Resolve()
}

func checkUndecoded(md toml.MetaData) error {
	keys := md.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	sort.Strings(names)
	return fmt.Errorf("%w: unknown keys %s", ErrInvalid, strings.Join(names, ", "))
}

// Resolve expands ~ in every path and fills derived paths from WorkDir
func (c *Config) Resolve() error {
	var err error
	expand := func(p string) string {
		if p == "" || err != nil {
			return p
		}
		var out string
		out, err = homedir.Expand(p)
		return out
	}

	c.WorkDir = expand(c.WorkDir)
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.WorkDir, "output")
	}
	if c.RegionFile == "" {
		c.RegionFile = filepath.Join(c.WorkDir, "region", "selected_region.wav")
	}
	c.OutputDir = expand(c.OutputDir)
	c.RegionFile = expand(c.RegionFile)
	c.Generator.Script = expand(c.Generator.Script)
	c.Log.File = expand(c.Log.File)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return c.Validate()
}

// Validate rejects settings the engine cannot run with
func (c *Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample_rate must be positive, got %g", ErrInvalid, c.SampleRate)
	case c.BlockSize <= 0:
		return fmt.Errorf("%w: block_size must be positive, got %d", ErrInvalid, c.BlockSize)
	case c.OutputChannels <= 0:
		return fmt.Errorf("%w: output_channels must be positive, got %d", ErrInvalid, c.OutputChannels)
	case c.Voices <= 0:
		return fmt.Errorf("%w: voices must be positive, got %d", ErrInvalid, c.Voices)
	case c.RootNote < 0 || c.RootNote > 127:
		return fmt.Errorf("%w: root_note out of range, got %d", ErrInvalid, c.RootNote)
	case c.RegionTimeout.Duration < 0:
		return fmt.Errorf("%w: region_timeout is negative", ErrInvalid)
	case c.Generator.Parallel <= 0:
		return fmt.Errorf("%w: generator.parallel must be positive, got %d", ErrInvalid, c.Generator.Parallel)
	}
	switch c.Generator.Backend {
	case BackendLua, BackendExec:
	default:
		return fmt.Errorf("%w: unknown generator.backend %q", ErrInvalid, c.Generator.Backend)
	}
	return nil
}
