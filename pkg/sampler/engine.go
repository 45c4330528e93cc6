package sampler

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/justyntemme/imagine/pkg/audio"
	"github.com/justyntemme/imagine/pkg/framework/debug"
	"github.com/justyntemme/imagine/pkg/framework/voice"
	"github.com/justyntemme/imagine/pkg/midi"
)

// DefaultVoices is the size of the voice pool
const DefaultVoices = 128

// Engine owns the active sound set and a fixed voice pool.
//
// LoadSound, LoadFile, ClearSounds and AllNotesOff are control-thread
// operations. RenderNextBlock belongs to the audio thread; it picks up the
// published sound set with one atomic load per block.
type Engine struct {
	sampleRate float64
	log        *debug.Logger

	mu         sync.Mutex // serialises control-thread writers
	rootNote   uint8
	attack     float64
	release    float64
	generation uint64

	published atomic.Pointer[soundSet]
	allOff    atomic.Bool
	active    atomic.Int32

	// audio thread only
	current   *soundSet
	voices    []*Voice
	allocator *voice.Allocator
}

// NewEngine creates an engine with numVoices voices at the given rate
func NewEngine(sampleRate float64, numVoices int) *Engine {
	if numVoices <= 0 {
		numVoices = DefaultVoices
	}
	e := &Engine{
		sampleRate: sampleRate,
		rootNote:   DefaultRootNote,
		attack:     DefaultAttack,
		release:    DefaultRelease,
		log:        debug.Default().Named("sampler"),
		voices:     make([]*Voice, numVoices),
	}

	pool := make([]voice.Voice, numVoices)
	for i := range e.voices {
		e.voices[i] = newVoice(e, sampleRate)
		pool[i] = e.voices[i]
	}
	e.allocator = voice.NewAllocator(pool)
	e.published.Store(&soundSet{})
	return e
}

func (e *Engine) SampleRate() float64 {
	return e.sampleRate
}

// NumVoices returns the pool size
func (e *Engine) NumVoices() int {
	return len(e.voices)
}

// SetRootNote sets the note at which future sounds play unpitched
func (e *Engine) SetRootNote(note uint8) {
	if note > MaxNote {
		note = MaxNote
	}
	e.mu.Lock()
	e.rootNote = note
	e.mu.Unlock()
}

// SetSmoothing sets the attack and release, in seconds, of future sounds
func (e *Engine) SetSmoothing(attack, release float64) {
	e.mu.Lock()
	e.attack = max(0, attack)
	e.release = max(0, release)
	e.mu.Unlock()
}

// LoadSound replaces every sound with one built from buf, spanning notes
// 0-127. Voices playing the previous set stop at the next block.
func (e *Engine) LoadSound(buf *audio.Buffer, name string) *Sound {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.generation++
	snd := NewSound(name, buf, e.rootNote)
	snd.Attack = e.attack
	snd.Release = e.release
	snd.Generation = e.generation
	e.published.Store(&soundSet{sounds: []*Sound{snd}, generation: e.generation})

	e.log.Infow("sound loaded", "name", name, "channels", snd.NumChannels(),
		"frames", snd.Length(), "rate", snd.SampleRate, "generation", snd.Generation)
	return snd
}

// LoadFile reads a WAV file and installs it with LoadSound. On failure the
// current sounds are left in place.
func (e *Engine) LoadFile(path string) (*Sound, error) {
	buf, err := audio.ReadWAVFile(path)
	if err != nil {
		e.log.Errorw("load failed", "path", path, "err", err)
		return nil, fmt.Errorf("load sound: %w", err)
	}
	return e.LoadSound(buf, path), nil
}

// ClearSounds removes all sounds immediately
func (e *Engine) ClearSounds() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.generation++
	e.published.Store(&soundSet{generation: e.generation})
}

// Sounds returns the published sounds
func (e *Engine) Sounds() []*Sound {
	set := e.published.Load()
	out := make([]*Sound, len(set.sounds))
	copy(out, set.sounds)
	return out
}

// Generation returns the number of the published sound set. It increases
// with every load and clear.
func (e *Engine) Generation() uint64 {
	return e.published.Load().generation
}

// ActiveVoices returns the voice count at the end of the last block
func (e *Engine) ActiveVoices() int {
	return int(e.active.Load())
}

// AllNotesOff releases every voice at the start of the next block
func (e *Engine) AllNotesOff() {
	e.allOff.Store(true)
}

// RenderNextBlock mixes all voices into out[ch][start:start+n]. Events are
// handled in arrival order at their sample offsets; offsets before the
// current position play at the current position and offsets at or past the
// block end are ignored. Audio thread only - no allocations.
func (e *Engine) RenderNextBlock(out [][]float32, events *midi.Buffer, start, n int) {
	if set := e.published.Load(); set != e.current {
		e.allocator.Reset()
		e.current = set
	}
	if e.allOff.Swap(false) {
		e.allocator.ReleaseAll()
	}

	end := start + n
	pos := start
	if events != nil {
		for i := 0; i < events.Len(); i++ {
			ev := events.At(i)
			off := int(ev.SampleOffset())
			if off >= end {
				continue
			}
			if off > pos {
				e.renderVoices(out, pos, off-pos)
				pos = off
			}
			e.handleEvent(ev)
		}
	}
	e.renderVoices(out, pos, end-pos)

	e.active.Store(int32(e.allocator.GetActiveVoiceCount()))
}

func (e *Engine) handleEvent(ev midi.Event) {
	if on, ok := ev.(midi.NoteOnEvent); ok && on.Velocity > 0 {
		if e.current.soundFor(on.NoteNumber) == nil {
			return
		}
	}
	e.allocator.ProcessEvent(ev)
}

func (e *Engine) renderVoices(out [][]float32, start, n int) {
	if n <= 0 {
		return
	}
	for _, v := range e.voices {
		v.Render(out, start, n)
	}
}
