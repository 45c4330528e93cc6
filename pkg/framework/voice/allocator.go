// Package voice assigns notes to a fixed pool of voices.
package voice

import (
	"github.com/justyntemme/imagine/pkg/midi"
)

// StealPolicy picks the voice to take over when every voice is sounding
type StealPolicy int

const (
	// StealOldest takes a released voice if there is one, otherwise the
	// voice that started longest ago
	StealOldest StealPolicy = iota
	// StealQuietest takes the voice with the lowest current level
	StealQuietest
	// StealNone drops new notes while the pool is full
	StealNone
)

const numNotes = 128

// Voice is one playback instance managed by an Allocator
type Voice interface {
	// IsActive is true while the voice produces sound, release tail included
	IsActive() bool
	GetNote() uint8
	GetVelocity() uint8
	GetAmplitude() float64
	// GetAge is the number of samples rendered since the last trigger
	GetAge() int64
	TriggerNote(note uint8, velocity uint8)
	ReleaseNote()
	// Stop silences the voice without a tail
	Stop()
}

// Allocator maps note events onto a fixed voice pool. Its bookkeeping is
// sized at construction, so note handling never allocates and can run on
// the audio thread.
type Allocator struct {
	voices []Voice
	policy StealPolicy
	next   int

	// held[i] is set while voice i's key is down
	held []bool

	pedal     bool
	sustained [numNotes]bool
}

func NewAllocator(voices []Voice) *Allocator {
	return &Allocator{
		voices: voices,
		held:   make([]bool, len(voices)),
	}
}

func (a *Allocator) SetStealPolicy(p StealPolicy) {
	a.policy = p
}

// ProcessEvent handles notes, the sustain pedal and the all-notes and
// all-sound controllers. A note-on with zero velocity is a note-off.
func (a *Allocator) ProcessEvent(event midi.Event) {
	switch e := event.(type) {
	case midi.NoteOnEvent:
		if e.Velocity == 0 {
			a.NoteOff(e.NoteNumber)
			return
		}
		a.NoteOn(e.NoteNumber, e.Velocity)
	case midi.NoteOffEvent:
		a.NoteOff(e.NoteNumber)
	case midi.ControlChangeEvent:
		switch e.Controller {
		case midi.CCSustain:
			a.SetSustainPedal(e.Value >= 64)
		case midi.CCAllNotesOff:
			a.ReleaseAll()
		case midi.CCAllSoundOff:
			a.Reset()
		}
	}
}

// NoteOn starts note on a free voice. A note that is already held
// restarts on the voice it has.
func (a *Allocator) NoteOn(note, velocity uint8) {
	if note >= numNotes || len(a.voices) == 0 {
		return
	}
	a.sustained[note] = false

	for i, v := range a.voices {
		if a.held[i] && v.GetNote() == note {
			v.TriggerNote(note, velocity)
			return
		}
	}

	idx := a.free()
	if idx < 0 {
		if idx = a.steal(); idx < 0 {
			return
		}
	}
	a.voices[idx].TriggerNote(note, velocity)
	a.held[idx] = true
}

// NoteOff releases the voices holding note, or defers the release while
// the sustain pedal is down
func (a *Allocator) NoteOff(note uint8) {
	if note >= numNotes {
		return
	}
	if a.pedal {
		a.sustained[note] = true
		return
	}
	for i, v := range a.voices {
		if a.held[i] && v.GetNote() == note {
			v.ReleaseNote()
			a.held[i] = false
		}
	}
}

// SetSustainPedal releases the notes whose keys went up while the pedal
// was down once it lifts
func (a *Allocator) SetSustainPedal(down bool) {
	a.pedal = down
	if down {
		return
	}
	for note, pending := range a.sustained {
		if pending {
			a.sustained[note] = false
			a.NoteOff(uint8(note))
		}
	}
}

// ReleaseAll lets every held voice ring out
func (a *Allocator) ReleaseAll() {
	a.pedal = false
	a.sustained = [numNotes]bool{}
	for i, v := range a.voices {
		if a.held[i] {
			v.ReleaseNote()
			a.held[i] = false
		}
	}
}

// Reset stops every voice at once
func (a *Allocator) Reset() {
	for i, v := range a.voices {
		v.Stop()
		a.held[i] = false
	}
	a.pedal = false
	a.sustained = [numNotes]bool{}
	a.next = 0
}

func (a *Allocator) GetActiveVoiceCount() int {
	n := 0
	for _, v := range a.voices {
		if v.IsActive() {
			n++
		}
	}
	return n
}

// free returns an idle voice, searching round-robin so consecutive notes
// land on different voices
func (a *Allocator) free() int {
	n := len(a.voices)
	for i := 0; i < n; i++ {
		idx := (a.next + i) % n
		if !a.voices[idx].IsActive() {
			a.next = (idx + 1) % n
			return idx
		}
	}
	return -1
}

// steal stops and returns the voice chosen by the policy, or -1
func (a *Allocator) steal() int {
	best := -1
	switch a.policy {
	case StealNone:
		return -1
	case StealQuietest:
		for i, v := range a.voices {
			if best < 0 || v.GetAmplitude() < a.voices[best].GetAmplitude() {
				best = i
			}
		}
	default:
		for i, v := range a.voices {
			if best < 0 {
				best = i
				continue
			}
			// a released voice beats any held one
			if a.held[best] != a.held[i] {
				if !a.held[i] {
					best = i
				}
				continue
			}
			if v.GetAge() > a.voices[best].GetAge() {
				best = i
			}
		}
	}
	if best >= 0 {
		a.voices[best].Stop()
		a.held[best] = false
	}
	return best
}
