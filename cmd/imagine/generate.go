package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/justyntemme/imagine/pkg/engine"
)

// stringList collects a repeatable flag
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func runGenerate(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	var images stringList
	fs.Var(&images, "image", "image to turn into a sound (repeatable)")
	save := fs.String("save", "", "save the first generated sound as .imag")
	if err := fs.Parse(args); err != nil {
		return err
	}
	images = append(images, fs.Args()...)
	if len(images) == 0 {
		return errors.New("generate: no images given")
	}

	p, err := a.newProcessor(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	unsubscribe := p.Subscribe(func(ev engine.Event) {
		switch e := ev.(type) {
		case engine.GenerationStartedEvent:
			a.log.Debugw("generation started", "image", e.Request.ImagePath)
		case engine.AlertEvent:
			a.log.Warnw(e.Message, "err", e.Err)
		}
	})
	defer unsubscribe()

	results, err := p.GenerateBatch(ctx, images)
	if err != nil {
		return err
	}
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(a.stdout, "%s\terror: %v\n", res.Request.ImagePath, res.Err)
			continue
		}
		fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", res.Request.ImagePath, res.Path, res.Duration.Round(time.Millisecond))
	}

	if *save != "" {
		if err := p.SaveImag(*save); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "saved %s\n", *save)
	}
	if failed == len(results) {
		return fmt.Errorf("generate: all %d images failed", failed)
	}
	return nil
}
