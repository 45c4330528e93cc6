package main

import (
	"context"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"golang.org/x/term"

	"github.com/justyntemme/imagine/pkg/engine"
	"github.com/justyntemme/imagine/pkg/framework/process"
	"github.com/justyntemme/imagine/pkg/midi"
	"github.com/justyntemme/imagine/pkg/scope"
)

// keyNotes maps the home row to a C major scale starting at middle C
var keyNotes = map[byte]uint8{
	'a': 60, 's': 62, 'd': 64, 'f': 65, 'g': 67, 'h': 69, 'j': 71, 'k': 72,
}

const (
	keyNoteLength = 400 * time.Millisecond
	keyVelocity   = 100
	meterInterval = 100 * time.Millisecond
)

// stream renders the engine on demand for oto. Events come in through the
// queue and land at the start of the next block.
type stream struct {
	p        *engine.Processor
	queue    *midi.EventQueue
	ctx      *process.Context
	block    [][]float32
	channels int
}

func newStream(p *engine.Processor, blockSize, channels int) *stream {
	s := &stream{
		p:        p,
		queue:    midi.NewEventQueue(),
		ctx:      process.NewContext(midi.DefaultBufferCapacity),
		block:    make([][]float32, channels),
		channels: channels,
	}
	for ch := range s.block {
		s.block[ch] = make([]float32, blockSize)
	}
	return s
}

// Read fills buf with interleaved little-endian float32 frames
func (s *stream) Read(buf []byte) (int, error) {
	frameBytes := 4 * s.channels
	frames := len(buf) / frameBytes
	blockSize := cap(s.block[0])

	off := 0
	for done := 0; done < frames; {
		n := min(blockSize, frames-done)
		for ch := range s.block {
			s.block[ch] = s.block[ch][:n]
		}
		s.ctx.ClearInputEvents()
		s.queue.DrainInto(s.ctx.Events)
		s.ctx.SetBlock(nil, s.block, n)
		s.p.ProcessAudio(s.ctx)

		for i := 0; i < n; i++ {
			for ch := 0; ch < s.channels; ch++ {
				binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(s.block[ch][i]))
				off += 4
			}
		}
		done += n
	}
	return off, nil
}

func (s *stream) noteOn(note uint8) {
	s.queue.Add(midi.NoteOnEvent{NoteNumber: note, Velocity: keyVelocity})
}

func (s *stream) noteOff(note uint8) {
	s.queue.Add(midi.NoteOffEvent{NoteNumber: note})
}

func runPlay(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	in := fs.String("in", "", "sound to play (.wav or .imag)")
	meter := fs.Bool("meter", false, "show an output level meter")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("play: -in is required")
	}

	p, err := a.newProcessor(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	sound, err := p.LoadFile(*in)
	if err != nil {
		return err
	}

	channels := a.cfg.OutputChannels
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(a.cfg.SampleRate),
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return fmt.Errorf("audio output: %w", err)
	}
	<-ready

	s := newStream(p, a.cfg.BlockSize, channels)
	player := otoCtx.NewPlayer(s)
	defer player.Close()
	player.Play()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if *meter {
		sc := scope.New(scope.DefaultCapacity)
		p.SetSink(sc)
		go runMeter(ctx, sc, os.Stderr)
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		// One shot of the root note, held for the length of the sound
		root := uint8(a.cfg.RootNote)
		hold := time.Duration(float64(sound.Length()) / a.cfg.SampleRate * float64(time.Second))
		s.noteOn(root)
		select {
		case <-ctx.Done():
		case <-time.After(hold):
		}
		s.noteOff(root)
		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(p.GetTailSamples()) * time.Second / time.Duration(a.cfg.SampleRate)):
		}
		return nil
	}

	old, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("raw terminal: %w", err)
	}
	defer term.Restore(fd, old)

	fmt.Fprintf(a.stdout, "playing %s: keys a-k play notes, q quits\r\n", sound.Name)
	keys := make(chan byte)
	go readKeys(os.Stdin, keys)

	var timers sync.WaitGroup
	defer timers.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case k, ok := <-keys:
			if !ok || k == 'q' || k == 3 {
				return nil
			}
			note, found := keyNotes[k]
			if !found {
				continue
			}
			s.noteOn(note)
			fmt.Fprintf(a.stdout, "%s ", midi.NoteName(note))
			timers.Add(1)
			time.AfterFunc(keyNoteLength, func() {
				defer timers.Done()
				s.noteOff(note)
			})
		}
	}
}

// readKeys forwards single bytes from r until it fails
func readKeys(r io.Reader, keys chan<- byte) {
	defer close(keys)
	b := make([]byte, 1)
	for {
		n, err := r.Read(b)
		if n == 1 {
			keys <- b[0]
		}
		if err != nil {
			return
		}
	}
}

// runMeter prints the peak and RMS of the newest output until ctx ends
func runMeter(ctx context.Context, sc *scope.Scope, w io.Writer) {
	frame := make([]float32, 2048)
	t := time.NewTicker(meterInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Fprint(w, "\r\n")
			return
		case <-t.C:
			n := sc.Snapshot(frame)
			fmt.Fprintf(w, "\rpeak %5.3f  rms %5.3f ", scope.Peak(frame[:n]), scope.RMS(frame[:n]))
		}
	}
}
