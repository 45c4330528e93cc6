package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/justyntemme/imagine/pkg/audio"
	"github.com/justyntemme/imagine/pkg/region"
)

// readSound loads a .wav or .imag file without an engine
func readSound(path, tmpDir string) (*audio.Buffer, error) {
	if strings.EqualFold(filepath.Ext(path), ".imag") {
		return imagLoad(path, tmpDir)
	}
	return audio.ReadWAVFile(path)
}

func runRegion(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("region", flag.ContinueOnError)
	in := fs.String("in", "", "sound to split (.wav or .imag)")
	sel := fs.String("region", "", "selection start:end in frames")
	outDir := fs.String("out", "", "directory for pre.wav, selected.wav and post.wav (default output_dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *sel == "" {
		return errors.New("region: -in and -region are required")
	}
	start, end, err := parseRegion(*sel)
	if err != nil {
		return err
	}

	buf, err := readSound(*in, filepath.Join(a.cfg.WorkDir, "tmp"))
	if err != nil {
		return err
	}
	pre, selected, post, err := region.Slice(buf, start, end)
	if err != nil {
		return err
	}

	dir := *outDir
	if dir == "" {
		dir = a.cfg.OutputDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	parts := []struct {
		name string
		buf  *audio.Buffer
	}{
		{"pre.wav", pre},
		{"selected.wav", selected},
		{"post.wav", post},
	}
	for _, part := range parts {
		path := filepath.Join(dir, part.name)
		if err := audio.WriteWAVFile(path, part.buf, audio.DefaultBitDepth); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "%s\t%d frames\n", path, part.buf.NumSamples())
	}
	a.log.Infow("region split", "in", *in, "start", start, "end", end)
	return nil
}
