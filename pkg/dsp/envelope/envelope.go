// Package envelope provides the exponential envelopes used for amplitude
// shaping: the block-level ADSR and the per-voice attack/release ramp.
package envelope

import "math"

// Stage of an ADSR
type Stage int

const (
	StageIdle Stage = iota
	StageAttack
	StageDecay
	StageSustain
	StageRelease
)

var stageNames = [...]string{"idle", "attack", "decay", "sustain", "release"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "idle"
	}
	return stageNames[s]
}

// Level below which a falling segment snaps to its end value
const settle = 0.001

// Params holds ADSR settings. Times are seconds, sustain is a level.
type Params struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

// DefaultParams returns the engine's initial envelope
func DefaultParams() Params {
	return Params{Attack: 0.1, Decay: 0.1, Sustain: 1, Release: 0.1}
}

// clamped returns p with negative times zeroed and sustain in [0,1]
func (p Params) clamped() Params {
	p.Attack = math.Max(0, p.Attack)
	p.Decay = math.Max(0, p.Decay)
	p.Release = math.Max(0, p.Release)
	p.Sustain = math.Max(0, math.Min(1, p.Sustain))
	return p
}

// coef is the one-pole factor for a segment of the given length. A zero
// length gives 0, so the segment completes on its first sample.
func coef(seconds, sampleRate float64) float64 {
	if seconds <= 0 || sampleRate <= 0 {
		return 0
	}
	return math.Exp(-1 / (seconds * sampleRate))
}

// ADSR is an attack-decay-sustain-release generator. Each segment moves
// exponentially toward its target.
type ADSR struct {
	sampleRate float64
	params     Params

	attackCoef  float64
	decayCoef   float64
	releaseCoef float64

	stage Stage
	value float64
}

func New(sampleRate float64) *ADSR {
	e := &ADSR{sampleRate: sampleRate}
	e.SetParams(DefaultParams())
	return e
}

// SetParams installs clamped settings. Unchanged settings are free, so the
// audio thread can call it every block.
func (e *ADSR) SetParams(p Params) {
	p = p.clamped()
	if p == e.params {
		return
	}
	e.params = p
	e.attackCoef = coef(p.Attack, e.sampleRate)
	e.decayCoef = coef(p.Decay, e.sampleRate)
	e.releaseCoef = coef(p.Release, e.sampleRate)
}

func (e *ADSR) Params() Params {
	return e.params
}

// Trigger restarts the attack from silence
func (e *ADSR) Trigger() {
	e.value = 0
	e.stage = StageAttack
}

// Release moves any sounding stage to release
func (e *ADSR) Release() {
	if e.stage != StageIdle {
		e.stage = StageRelease
	}
}

func (e *ADSR) Reset() {
	e.stage = StageIdle
	e.value = 0
}

func (e *ADSR) IsActive() bool {
	return e.stage != StageIdle
}

func (e *ADSR) Stage() Stage {
	return e.stage
}

// Value returns the last generated level
func (e *ADSR) Value() float32 {
	return float32(e.value)
}

// Next advances one sample and returns the level
func (e *ADSR) Next() float32 {
	switch e.stage {
	case StageAttack:
		e.value = 1 + (e.value-1)*e.attackCoef
		if e.value >= 1-settle {
			e.value = 1
			e.stage = StageDecay
		}
	case StageDecay:
		s := e.params.Sustain
		e.value = s + (e.value-s)*e.decayCoef
		if e.value <= s+settle {
			e.value = s
			e.stage = StageSustain
		}
	case StageSustain:
		e.value = e.params.Sustain
	case StageRelease:
		e.value *= e.releaseCoef
		if e.value <= settle {
			e.value = 0
			e.stage = StageIdle
		}
	default:
		e.value = 0
	}
	return float32(e.value)
}

// ProcessMultiplyMulti applies one level per frame to every channel
func (e *ADSR) ProcessMultiplyMulti(block [][]float32) {
	if len(block) == 0 {
		return
	}
	for i := range block[0] {
		g := e.Next()
		for _, ch := range block {
			if i < len(ch) {
				ch[i] *= g
			}
		}
	}
}

// AR is the short attack/release ramp each sampler voice uses to avoid
// clicks at note boundaries
type AR struct {
	sampleRate  float64
	attackCoef  float64
	releaseCoef float64

	held  bool
	value float64
}

// NewAR starts with a 10 ms attack and 100 ms release
func NewAR(sampleRate float64) *AR {
	e := &AR{sampleRate: sampleRate}
	e.SetAttack(0.01)
	e.SetRelease(0.1)
	return e
}

func (e *AR) SetAttack(seconds float64) {
	e.attackCoef = coef(math.Max(0, seconds), e.sampleRate)
}

func (e *AR) SetRelease(seconds float64) {
	e.releaseCoef = coef(math.Max(0, seconds), e.sampleRate)
}

func (e *AR) Trigger() {
	e.held = true
}

func (e *AR) Release() {
	e.held = false
}

func (e *AR) Reset() {
	e.held = false
	e.value = 0
}

// Done reports whether a released ramp has reached silence
func (e *AR) Done() bool {
	return !e.held && e.value <= settle
}

func (e *AR) Next() float32 {
	if e.held {
		e.value = 1 + (e.value-1)*e.attackCoef
	} else {
		e.value *= e.releaseCoef
		if e.value <= settle {
			e.value = 0
		}
	}
	return float32(e.value)
}
