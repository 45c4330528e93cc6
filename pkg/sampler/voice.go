package sampler

import (
	"github.com/chewxy/math32"

	"github.com/justyntemme/imagine/pkg/dsp/envelope"
)

// Voice plays one note of a Sound. It implements voice.Voice.
type Voice struct {
	owner *Engine

	sound    *Sound
	note     uint8
	velocity uint8
	gain     float32

	pos  float64
	step float64

	age    int64
	level  float32
	env    *envelope.AR
	active bool
}

func newVoice(owner *Engine, sampleRate float64) *Voice {
	return &Voice{
		owner: owner,
		env:   envelope.NewAR(sampleRate),
	}
}

func (v *Voice) IsActive() bool        { return v.active }
func (v *Voice) GetNote() uint8        { return v.note }
func (v *Voice) GetVelocity() uint8    { return v.velocity }
func (v *Voice) GetAmplitude() float64 { return float64(v.level) }
func (v *Voice) GetAge() int64         { return v.age }

// Sound returns the sound the voice was started with
func (v *Voice) Sound() *Sound { return v.sound }

// TriggerNote starts the note on the first sound of the owner's current set
// that covers it. The voice stays idle when none does.
func (v *Voice) TriggerNote(note uint8, velocity uint8) {
	snd := v.owner.current.soundFor(note)
	if snd == nil || snd.Length() == 0 {
		v.Stop()
		return
	}

	v.sound = snd
	v.note = note
	v.velocity = velocity
	v.gain = float32(velocity) / 127
	v.pos = 0
	v.age = 0

	ratio := math32.Exp2(float32(int(note)-int(snd.RootNote)) / 12)
	v.step = float64(ratio) * snd.SampleRate / v.owner.sampleRate

	v.env.SetAttack(snd.Attack)
	v.env.SetRelease(snd.Release)
	v.env.Reset()
	v.env.Trigger()
	v.active = true
}

// ReleaseNote lets the voice fade out over the sound's release time
func (v *Voice) ReleaseNote() {
	if v.active {
		v.env.Release()
	}
}

// Stop silences the voice immediately
func (v *Voice) Stop() {
	v.active = false
	v.sound = nil
	v.level = 0
	v.env.Reset()
}

// Render adds n frames starting at out[ch][start] - no allocations
func (v *Voice) Render(out [][]float32, start, n int) {
	if !v.active {
		return
	}

	data := v.sound.Data
	srcCh := len(data)
	length := len(data[0])

	for i := start; i < start+n; i++ {
		idx := int(v.pos)
		if idx >= length {
			v.Stop()
			return
		}
		frac := float32(v.pos - float64(idx))

		amp := v.env.Next() * v.gain
		for ch := range out {
			src := data[ch%srcCh]
			s0 := src[idx]
			var s1 float32
			if idx+1 < length {
				s1 = src[idx+1]
			}
			out[ch][i] += (s0 + (s1-s0)*frac) * amp
		}

		v.level = amp
		v.pos += v.step
		v.age++

		if v.env.Done() {
			v.Stop()
			return
		}
	}
}
