// Package reverb provides the Freeverb room reverb used by the effects chain
package reverb

// Freeverb tuning constants (scaled for 44.1kHz)
const (
	numCombs     = 8
	numAllpasses = 4
	fixedGain    = 0.015
	scaleDamping = 0.4
	scaleRoom    = 0.28
	offsetRoom   = 0.7
	stereoSpread = 23
)

// Comb filter tuning values (in samples at 44.1kHz)
var combTuning = [numCombs]int{
	1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617,
}

// Allpass filter tuning values (in samples at 44.1kHz)
var allpassTuning = [numAllpasses]int{
	556, 441, 341, 225,
}

// Params are the five reverb controls, each in [0,1]
type Params struct {
	RoomSize float64
	Damping  float64
	Wet      float64
	Dry      float64
	Width    float64
}

// DefaultParams returns the initial reverb settings
func DefaultParams() Params {
	return Params{
		RoomSize: 0.5,
		Damping:  0.5,
		Wet:      0.33,
		Dry:      0.4,
		Width:    1.0,
	}
}

func (p Params) clamped() Params {
	return Params{
		RoomSize: clamp01(p.RoomSize),
		Damping:  clamp01(p.Damping),
		Wet:      clamp01(p.Wet),
		Dry:      clamp01(p.Dry),
		Width:    clamp01(p.Width),
	}
}

// Freeverb implements the Freeverb algorithm by Jezar at Dreampoint
type Freeverb struct {
	combL [numCombs]*CombFilter
	combR [numCombs]*CombFilter

	allpassL [numAllpasses]*AllPassFilter
	allpassR [numAllpasses]*AllPassFilter

	params     Params
	sampleRate float64

	// derived from params
	wet1 float32
	wet2 float32
	dry  float32
}

// NewFreeverb creates a new Freeverb reverb instance
func NewFreeverb(sampleRate float64) *Freeverb {
	f := &Freeverb{sampleRate: sampleRate}

	scaleFactor := sampleRate / 44100.0
	for i := 0; i < numCombs; i++ {
		f.combL[i] = NewCombFilter(int(float64(combTuning[i]) * scaleFactor))
		f.combR[i] = NewCombFilter(int(float64(combTuning[i]+stereoSpread) * scaleFactor))
	}
	for i := 0; i < numAllpasses; i++ {
		f.allpassL[i] = NewAllPassFilter(int(float64(allpassTuning[i]) * scaleFactor))
		f.allpassR[i] = NewAllPassFilter(int(float64(allpassTuning[i]+stereoSpread) * scaleFactor))
	}

	f.params = DefaultParams()
	f.update()
	return f
}

// SampleRate returns the rate the delay lines were tuned for
func (f *Freeverb) SampleRate() float64 {
	return f.sampleRate
}

// Parameters returns the active settings
func (f *Freeverb) Parameters() Params {
	return f.params
}

// SetParameters installs new settings. Coefficients are only recomputed
// when a value actually changed, so calling it every block is cheap.
func (f *Freeverb) SetParameters(p Params) {
	p = p.clamped()
	if p == f.params {
		return
	}
	f.params = p
	f.update()
}

// update recalculates internal values after parameter changes
func (f *Freeverb) update() {
	p := f.params
	f.wet1 = float32(p.Wet * (p.Width/2.0 + 0.5))
	f.wet2 = float32(p.Wet * ((1.0 - p.Width) / 2.0))
	f.dry = float32(p.Dry)

	feedback := p.RoomSize*scaleRoom + offsetRoom
	damp := p.Damping * scaleDamping
	for i := 0; i < numCombs; i++ {
		f.combL[i].SetFeedback(feedback)
		f.combR[i].SetFeedback(feedback)
		f.combL[i].SetDamping(damp)
		f.combR[i].SetDamping(damp)
	}
}

// ProcessStereo processes one stereo frame
func (f *Freeverb) ProcessStereo(inputL, inputR float32) (outputL, outputR float32) {
	input := (inputL + inputR) * fixedGain

	var outL, outR float32
	for i := 0; i < numCombs; i++ {
		outL += f.combL[i].Process(input)
		outR += f.combR[i].Process(input)
	}
	for i := 0; i < numAllpasses; i++ {
		outL = f.allpassL[i].Process(outL)
		outR = f.allpassR[i].Process(outR)
	}

	outputL = outL*f.wet1 + outR*f.wet2 + inputL*f.dry
	outputR = outR*f.wet1 + outL*f.wet2 + inputR*f.dry
	return outputL, outputR
}

// Process processes one mono sample through the left network
func (f *Freeverb) Process(input float32) float32 {
	in := input * fixedGain * 2

	var out float32
	for i := 0; i < numCombs; i++ {
		out += f.combL[i].Process(in)
	}
	for i := 0; i < numAllpasses; i++ {
		out = f.allpassL[i].Process(out)
	}
	return out*(f.wet1+f.wet2) + input*f.dry
}

// ProcessStereoBlock processes two channels in place - no allocations
func (f *Freeverb) ProcessStereoBlock(left, right []float32) {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	for i := 0; i < n; i++ {
		left[i], right[i] = f.ProcessStereo(left[i], right[i])
	}
}

// ProcessMonoBlock processes one channel in place - no allocations
func (f *Freeverb) ProcessMonoBlock(buf []float32) {
	for i := range buf {
		buf[i] = f.Process(buf[i])
	}
}

// ProcessBlock runs the first two channels as a stereo pair, or the only
// channel as mono. Further channels are left untouched.
func (f *Freeverb) ProcessBlock(block [][]float32) {
	switch len(block) {
	case 0:
	case 1:
		f.ProcessMonoBlock(block[0])
	default:
		f.ProcessStereoBlock(block[0], block[1])
	}
}

// Reset clears all internal state
func (f *Freeverb) Reset() {
	for i := 0; i < numCombs; i++ {
		f.combL[i].Reset()
		f.combR[i].Reset()
	}
	for i := 0; i < numAllpasses; i++ {
		f.allpassL[i].Reset()
		f.allpassR[i].Reset()
	}
}
