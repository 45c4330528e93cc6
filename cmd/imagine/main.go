// Command imagine drives the sampler engine from the command line: render
// MIDI files through it, cut regions, convert documents, call the image
// generator and play live from the keyboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/justyntemme/imagine/pkg/config"
	"github.com/justyntemme/imagine/pkg/engine"
	"github.com/justyntemme/imagine/pkg/framework/debug"
	"github.com/justyntemme/imagine/pkg/generate"
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, app *app, args []string) error
}

var commands = []command{
	{"render", "render a MIDI file through a sound", runRender},
	{"region", "split a sound into pre, selected and post parts", runRegion},
	{"convert", "convert between .wav and .imag", runConvert},
	{"generate", "turn images into sounds", runGenerate},
	{"play", "play a sound from the keyboard", runPlay},
	{"params", "list host parameters", runParams},
}

// app carries what every subcommand needs
type app struct {
	cfg     config.Config
	verbose bool
	stdout  io.Writer
	log     *debug.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "imagine: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("imagine", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "TOML config file")
	verbose := fs.Bool("v", false, "debug logging and block timing")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: imagine [-config file.toml] [-v] <command> [flags]")
		fmt.Fprintln(stderr, "\ncommands:")
		for _, c := range commands {
			fmt.Fprintf(stderr, "  %-9s %s\n", c.name, c.summary)
		}
		fmt.Fprintln(stderr, "\nflags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return flag.ErrHelp
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(cfg, *verbose, stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	a := &app{cfg: cfg, verbose: *verbose, stdout: stdout, log: debug.Default().Named("cli")}

	name := fs.Arg(0)
	for _, c := range commands {
		if c.name == name {
			return c.run(ctx, a, fs.Args()[1:])
		}
	}
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = c.name
	}
	sort.Strings(names)
	return fmt.Errorf("unknown command %q (want one of %s)", name, strings.Join(names, ", "))
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return cfg, cfg.Resolve()
	}
	return config.Load(path)
}

func setupLogging(cfg config.Config, verbose bool, stderr io.Writer) (func(), error) {
	level, err := debug.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = debug.LogLevelDebug
	}
	debug.SetLevel(level)

	if cfg.Log.File == "" {
		debug.SetOutput(stderr)
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
		return nil, fmt.Errorf("log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	debug.SetOutput(f)
	return func() { f.Close() }, nil
}

// newProcessor builds and activates an engine with the configured generator
func (a *app) newProcessor(ctx context.Context) (*engine.Processor, error) {
	h, err := a.newHandler(ctx)
	if err != nil {
		return nil, err
	}
	p, err := engine.New(a.cfg, h)
	if err != nil {
		return nil, err
	}
	if err := p.Initialize(a.cfg.SampleRate, int32(a.cfg.BlockSize)); err != nil {
		p.Close()
		return nil, err
	}
	if err := p.SetActive(true); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// newHandler returns nil when no generator is configured
func (a *app) newHandler(ctx context.Context) (generate.Handler, error) {
	g := a.cfg.Generator
	switch g.Backend {
	case config.BackendExec:
		if g.Module == "" {
			return nil, nil
		}
		return &generate.ExecHandler{
			Python:    g.Python,
			ModuleDir: g.Script,
			Module:    g.Module,
			Function:  g.Function,
		}, nil
	default:
		if g.Script == "" {
			return nil, nil
		}
		h, err := generate.NewLuaHandler(g.Script, g.Function)
		if err != nil {
			return nil, err
		}
		if g.Watch {
			go func() {
				if err := h.Watch(ctx); err != nil {
					a.log.Warnw("script watch stopped", "err", err)
				}
			}()
		}
		return h, nil
	}
}
