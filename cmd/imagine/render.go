package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/justyntemme/imagine/pkg/audio"
	"github.com/justyntemme/imagine/pkg/engine"
	"github.com/justyntemme/imagine/pkg/framework/debug"
	"github.com/justyntemme/imagine/pkg/framework/process"
	"github.com/justyntemme/imagine/pkg/midi"
)

// timedMessage is a raw MIDI message at an absolute frame
type timedMessage struct {
	frame int64
	raw   []byte
}

// readSMF returns the channel messages of every track in time order
func readSMF(path string, sampleRate float64) ([]timedMessage, error) {
	var msgs []timedMessage
	err := smf.ReadTracks(path).Do(func(te smf.TrackEvent) {
		if te.Message.IsMeta() {
			return
		}
		frame := te.AbsMicroSeconds * int64(sampleRate) / 1_000_000
		raw := make([]byte, len(te.Message))
		copy(raw, te.Message)
		msgs = append(msgs, timedMessage{frame: frame, raw: raw})
	}).Error()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].frame < msgs[j].frame })
	return msgs, nil
}

// parseRegion reads "start:end" in frames
func parseRegion(s string) (start, end int, err error) {
	a, b, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("region %q: want start:end", s)
	}
	if start, err = strconv.Atoi(strings.TrimSpace(a)); err != nil {
		return 0, 0, fmt.Errorf("region start: %w", err)
	}
	if end, err = strconv.Atoi(strings.TrimSpace(b)); err != nil {
		return 0, 0, fmt.Errorf("region end: %w", err)
	}
	return start, end, nil
}

func runRender(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	in := fs.String("in", "", "sound to play (.wav or .imag)")
	midiPath := fs.String("midi", "", "Standard MIDI File")
	out := fs.String("out", "render.wav", "output WAV")
	regionFlag := fs.String("region", "", "play only frames start:end of the sound")
	tail := fs.Float64("tail", 2, "seconds rendered after the last event")
	bits := fs.Int("bits", audio.DefaultBitDepth, "output bit depth")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *midiPath == "" {
		return errors.New("render: -in and -midi are required")
	}

	p, err := a.newProcessor(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	prof := a.profiler()
	stopLoad := func() {}
	if prof != nil {
		stopLoad = prof.Start("load")
	}
	if _, err := p.LoadFile(*in); err != nil {
		return err
	}
	stopLoad()
	if *regionFlag != "" {
		start, end, err := parseRegion(*regionFlag)
		if err != nil {
			return err
		}
		if err := p.SetRegion(start, end); err != nil {
			return err
		}
		if _, err := p.WaitRegion(ctx); err != nil {
			return fmt.Errorf("region: %w", err)
		}
	}

	rate := a.cfg.SampleRate
	msgs, err := readSMF(*midiPath, rate)
	if err != nil {
		return err
	}
	var last int64
	if len(msgs) > 0 {
		last = msgs[len(msgs)-1].frame
	}
	total := int(last) + int(*tail*rate)

	result := renderMessages(p, a.cfg.BlockSize, a.cfg.OutputChannels, total, msgs, prof)
	if err := audio.WriteWAVFile(*out, result, *bits); err != nil {
		return err
	}
	a.log.Infow("rendered", "out", *out, "frames", total, "events", len(msgs))
	fmt.Fprintf(a.stdout, "%s: %.2fs, peak %.3f\n", *out, result.Duration(), result.Peak())
	return nil
}

// profiler returns a block profiler when verbose, else nil
func (a *app) profiler() *debug.BlockProfiler {
	if !a.verbose {
		return nil
	}
	return debug.NewBlockProfiler(a.cfg.SampleRate, a.cfg.BlockSize)
}

// renderMessages drives p block by block, delivering each message at its
// frame, and returns total frames of output
func renderMessages(p *engine.Processor, blockSize, channels, total int, msgs []timedMessage, prof *debug.BlockProfiler) *audio.Buffer {
	result := audio.NewBuffer(channels, total, p.Config().SampleRate)
	pctx := process.NewContext(midi.DefaultBufferCapacity)
	block := make([][]float32, channels)
	for ch := range block {
		block[ch] = make([]float32, blockSize)
	}

	next := 0
	for pos := 0; pos < total; pos += blockSize {
		n := min(blockSize, total-pos)
		pctx.ClearInputEvents()
		for next < len(msgs) && msgs[next].frame < int64(pos+n) {
			if ev, ok := midi.FromMessage(msgs[next].raw, int32(max(0, msgs[next].frame-int64(pos)))); ok {
				pctx.AddInputEvent(ev)
			}
			next++
		}
		for ch := range block {
			block[ch] = block[ch][:n]
		}
		pctx.SetBlock(nil, block, n)

		if prof != nil {
			stop := prof.StartBlock()
			p.ProcessAudio(pctx)
			stop()
		} else {
			p.ProcessAudio(pctx)
		}

		for ch := range block {
			copy(result.Data[ch][pos:pos+n], block[ch])
		}
	}
	if prof != nil {
		debug.Default().Named("cli").Debug("%s", prof.BlockReport())
	}
	return result
}
