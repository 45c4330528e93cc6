package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/justyntemme/imagine/pkg/audio"
	"github.com/justyntemme/imagine/pkg/imag"
)

func imagLoad(path, tmpDir string) (*audio.Buffer, error) {
	return imag.LoadFileViaWAV(path, tmpDir)
}

// runConvert picks the direction from the extensions of -in and -out
func runConvert(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	in := fs.String("in", "", "source file")
	out := fs.String("out", "", "destination file")
	bits := fs.Int("bits", audio.DefaultBitDepth, "bit depth when writing WAV")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return errors.New("convert: -in and -out are required")
	}

	inExt := strings.ToLower(filepath.Ext(*in))
	outExt := strings.ToLower(filepath.Ext(*out))
	switch {
	case inExt == ".wav" && outExt == ".imag":
		buf, err := audio.ReadWAVFile(*in)
		if err != nil {
			return err
		}
		if err := imag.SaveFile(*out, buf); err != nil {
			return err
		}
	case inExt == ".imag" && outExt == ".wav":
		buf, err := imag.LoadFile(*in)
		if err != nil {
			return err
		}
		if err := audio.WriteWAVFile(*out, buf, *bits); err != nil {
			return err
		}
	default:
		return fmt.Errorf("convert: cannot convert %s to %s", inExt, outExt)
	}
	fmt.Fprintf(a.stdout, "%s -> %s\n", *in, *out)
	return nil
}
