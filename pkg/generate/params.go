// Package generate runs the image-to-audio call-out: an image path, an
// output directory and thirteen numbers go in, the path of a rendered audio
// file comes out.
package generate

import (
	"fmt"
	"strconv"
)

// Params are the thirteen numeric generation settings, in call order
type Params struct {
	KernelSize         int
	StepSize           int
	SoundLevel         int
	SampleRate         int
	Duration           int
	ModulationDuration int

	ModulationIntensity         float64
	ModulationEnvelopeIntensity float64
	OvertoneScalar              float64
	LFOFrequency                float64
	LFOAmplitude                float64
	LFOIntensity                float64
	LFOAmountScalar             float64
}

// NumParams is the count of numeric arguments after the two paths
const NumParams = 13

// DefaultParams returns the settings a fresh session starts with
func DefaultParams() Params {
	return Params{
		KernelSize:                  25,
		StepSize:                    10,
		SoundLevel:                  1,
		SampleRate:                  44800,
		Duration:                    6,
		ModulationDuration:          6,
		ModulationIntensity:         0.8,
		ModulationEnvelopeIntensity: 0.2,
		OvertoneScalar:              1,
		LFOFrequency:                0.5,
		LFOAmplitude:                1,
		LFOIntensity:                1,
		LFOAmountScalar:             1,
	}
}

// Ints returns the six integer settings in call order
func (p Params) Ints() [6]int {
	return [6]int{p.KernelSize, p.StepSize, p.SoundLevel, p.SampleRate, p.Duration, p.ModulationDuration}
}

// Floats returns the seven float settings in call order
func (p Params) Floats() [7]float64 {
	return [7]float64{
		p.ModulationIntensity, p.ModulationEnvelopeIntensity, p.OvertoneScalar,
		p.LFOFrequency, p.LFOAmplitude, p.LFOIntensity, p.LFOAmountScalar,
	}
}

// Strings formats the settings as command-line arguments in call order
func (p Params) Strings() []string {
	out := make([]string, 0, NumParams)
	for _, v := range p.Ints() {
		out = append(out, strconv.Itoa(v))
	}
	for _, v := range p.Floats() {
		out = append(out, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return out
}

func (p Params) String() string {
	return fmt.Sprintf("kernel=%d step=%d level=%d rate=%d dur=%d moddur=%d modint=%g modenv=%g overtone=%g lfo=%g/%g/%g/%g",
		p.KernelSize, p.StepSize, p.SoundLevel, p.SampleRate, p.Duration, p.ModulationDuration,
		p.ModulationIntensity, p.ModulationEnvelopeIntensity, p.OvertoneScalar,
		p.LFOFrequency, p.LFOAmplitude, p.LFOIntensity, p.LFOAmountScalar)
}
