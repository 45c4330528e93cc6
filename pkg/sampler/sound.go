// Package sampler renders loaded sounds polyphonically across the MIDI
// keyboard.
package sampler

import (
	"github.com/justyntemme/imagine/pkg/audio"
)

// Defaults applied to every loaded sound
const (
	DefaultRootNote = 60
	DefaultAttack   = 0.01
	DefaultRelease  = 0.1

	MaxNote = 127
)

// Sound is an immutable playable sample. Once published to an Engine it is
// read by the audio thread and must not be modified.
type Sound struct {
	Name       string
	Data       [][]float32
	SampleRate float64

	RootNote uint8
	LowNote  uint8
	HighNote uint8

	// Attack and Release smooth voice start and stop, in seconds
	Attack  float64
	Release float64

	// Generation identifies the load that produced the sound
	Generation uint64
}

// NewSound copies buf into a sound spanning the whole keyboard
func NewSound(name string, buf *audio.Buffer, rootNote uint8) *Sound {
	c := buf.Clone()
	return &Sound{
		Name:       name,
		Data:       c.Data,
		SampleRate: c.SampleRate,
		RootNote:   rootNote,
		LowNote:    0,
		HighNote:   MaxNote,
		Attack:     DefaultAttack,
		Release:    DefaultRelease,
	}
}

// AppliesTo reports whether the sound plays for the note
func (s *Sound) AppliesTo(note uint8) bool {
	return note >= s.LowNote && note <= s.HighNote
}

// Length returns the sample frames per channel
func (s *Sound) Length() int {
	if len(s.Data) == 0 {
		return 0
	}
	return len(s.Data[0])
}

func (s *Sound) NumChannels() int {
	return len(s.Data)
}

// soundSet is the unit published to the audio thread
type soundSet struct {
	sounds     []*Sound
	generation uint64
}

func (s *soundSet) soundFor(note uint8) *Sound {
	if s == nil {
		return nil
	}
	for _, snd := range s.sounds {
		if snd.AppliesTo(note) {
			return snd
		}
	}
	return nil
}
