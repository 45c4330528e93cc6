package engine

import (
	"fmt"
	"math"

	"github.com/justyntemme/imagine/pkg/dsp/delay"
	"github.com/justyntemme/imagine/pkg/dsp/envelope"
	"github.com/justyntemme/imagine/pkg/dsp/filter"
	"github.com/justyntemme/imagine/pkg/dsp/gain"
	"github.com/justyntemme/imagine/pkg/dsp/reverb"
	"github.com/justyntemme/imagine/pkg/framework/param"
	"github.com/justyntemme/imagine/pkg/generate"
)

// Parameter IDs. Filter slots use FilterParamID.
const ParamGain uint32 = 0

const (
	ParamReverbEnabled uint32 = 200 + iota
	ParamRoomSize
	ParamDamping
	ParamWet
	ParamDry
	ParamWidth
)

const (
	ParamAttack uint32 = 300 + iota
	ParamDecay
	ParamSustain
	ParamRelease
)

const (
	ParamDelayEnabled uint32 = 400 + iota
	ParamDelayTime
	ParamDelayFeedback
	ParamDelayMix
)

// Generation parameters, in call order
const (
	ParamKernelSize uint32 = 500 + iota
	ParamStepSize
	ParamSoundLevel
	ParamGenSampleRate
	ParamDuration
	ParamModDuration
	ParamModIntensity
	ParamModEnvIntensity
	ParamOvertoneScalar
	ParamLFOFrequency
	ParamLFOAmplitude
	ParamLFOIntensity
	ParamLFOAmountScalar
)

// FilterField selects one of a slot's four parameters
type FilterField uint32

const (
	FilterEnabled FilterField = iota
	FilterType
	FilterFrequency
	FilterQ
)

const filterParamBase = 100

// FilterParamID returns the parameter ID of field in slot 1..4
func FilterParamID(slot int, field FilterField) uint32 {
	return filterParamBase + uint32(slot-1)*10 + uint32(field)
}

// filterParamSlot maps an ID back to its slot and field
func filterParamSlot(id uint32) (slot int, field FilterField, ok bool) {
	if id < filterParamBase || id >= filterParamBase+filter.NumSlots*10 {
		return 0, 0, false
	}
	off := id - filterParamBase
	field = FilterField(off % 10)
	if field > FilterQ {
		return 0, 0, false
	}
	return int(off/10) + 1, field, true
}

// Parameter groups
const (
	unitMain int32 = iota
	unitFilter
	unitReverb
	unitEnvelope
	unitDelay
	unitGeneration
)

var filterTypeOptions = []param.ChoiceOption{
	{Value: float64(filter.LowPass), Name: "LowPass", Aliases: []string{"lp", "low"}},
	{Value: float64(filter.HighPass), Name: "HighPass", Aliases: []string{"hp", "high"}},
	{Value: float64(filter.BandPass), Name: "BandPass", Aliases: []string{"bp", "band"}},
	{Value: float64(filter.Notch), Name: "Notch"},
}

// paramSet caches the parameters the block path reads so it never touches
// the registry lock
type paramSet struct {
	gain *param.Parameter

	reverbEnabled *param.Parameter
	roomSize      *param.Parameter
	damping       *param.Parameter
	wet           *param.Parameter
	dry           *param.Parameter
	width         *param.Parameter

	attack  *param.Parameter
	decay   *param.Parameter
	sustain *param.Parameter
	release *param.Parameter

	delayEnabled  *param.Parameter
	delayTime     *param.Parameter
	delayFeedback *param.Parameter
	delayMix      *param.Parameter

	generation [generate.NumParams]*param.Parameter
}

func buildParameters(reg *param.Registry) (*paramSet, error) {
	rd := reverb.DefaultParams()
	ed := envelope.DefaultParams()
	dd := delay.DefaultParams()
	gd := generate.DefaultParams()
	ints := gd.Ints()
	floats := gd.Floats()

	ps := &paramSet{
		gain: param.GainParameter(ParamGain, "Gain", gain.SilenceDB, 12, 0).ShortName("Gain").Group(unitMain).Build(),

		reverbEnabled: param.ToggleParameter(ParamReverbEnabled, "Reverb", false).Group(unitReverb).Build(),
		roomSize:      param.LevelParameter(ParamRoomSize, "Room Size", rd.RoomSize).Group(unitReverb).Build(),
		damping:       param.LevelParameter(ParamDamping, "Damping", rd.Damping).Group(unitReverb).Build(),
		wet:           param.LevelParameter(ParamWet, "Wet Level", rd.Wet).ShortName("Wet").Group(unitReverb).Build(),
		dry:           param.LevelParameter(ParamDry, "Dry Level", rd.Dry).ShortName("Dry").Group(unitReverb).Build(),
		width:         param.LevelParameter(ParamWidth, "Width", rd.Width).Group(unitReverb).Build(),

		attack:  param.SecondsParameter(ParamAttack, "Attack", 0, 5, ed.Attack).ShortName("A").Group(unitEnvelope).Build(),
		decay:   param.SecondsParameter(ParamDecay, "Decay", 0, 5, ed.Decay).ShortName("D").Group(unitEnvelope).Build(),
		sustain: param.LevelParameter(ParamSustain, "Sustain", ed.Sustain).ShortName("S").Group(unitEnvelope).Build(),
		release: param.SecondsParameter(ParamRelease, "Release", 0, 10, ed.Release).ShortName("R").Group(unitEnvelope).Build(),

		delayEnabled:  param.ToggleParameter(ParamDelayEnabled, "Delay", false).Group(unitDelay).Build(),
		delayTime:     param.TimeParameter(ParamDelayTime, "Delay Time", delay.MinTimeMs, delay.MaxTimeMs, dd.TimeMs).ShortName("Time").Group(unitDelay).Build(),
		delayFeedback: param.PercentParameter(ParamDelayFeedback, "Feedback", 0, delay.MaxFeedback*100, dd.Feedback*100).Group(unitDelay).Build(),
		delayMix:      param.PercentParameter(ParamDelayMix, "Delay Mix", 0, 100, dd.Mix*100).ShortName("Mix").Group(unitDelay).Build(),
	}

	type intSpec struct {
		name     string
		min, max float64
	}
	intSpecs := [6]intSpec{
		{"Kernel Size", 0, 100},
		{"Step Size", 0, 50},
		{"Sound Level", 0, 10},
		{"Sample Rate", 0, 48000},
		{"Duration", 0, 20},
		{"Modulation Duration", -20, 20},
	}
	for i, s := range intSpecs {
		ps.generation[i] = param.NumberParameter(ParamKernelSize+uint32(i), s.name, s.min, s.max, float64(ints[i])).
			Integer().
			Group(unitGeneration).
			Build()
	}

	floatSpecs := [7]struct {
		name     string
		min, max float64
	}{
		{"Modulation Intensity", 0, 1},
		{"Modulation Envelope Intensity", 0.1, 1},
		{"Overtone Count Scalar", 0, 4},
		{"LFO Frequency", 0, 10},
		{"LFO Amplitude", 0, 1},
		{"LFO Intensity", 0, 1},
		{"LFO Amount Scalar", 0, 4},
	}
	for i, s := range floatSpecs {
		ps.generation[6+i] = param.NumberParameter(ParamModIntensity+uint32(i), s.name, s.min, s.max, floats[i]).
			Group(unitGeneration).
			Build()
	}

	if err := reg.Add(ps.gain); err != nil {
		return nil, err
	}
	for slot := 1; slot <= filter.NumSlots; slot++ {
		prefix := fmt.Sprintf("Filter %d ", slot)
		if err := reg.Add(
			param.ToggleParameter(FilterParamID(slot, FilterEnabled), prefix+"Enabled", false).Group(unitFilter).Build(),
			param.Choice(FilterParamID(slot, FilterType), prefix+"Type", filterTypeOptions).Group(unitFilter).Build(),
			param.FrequencyParameter(FilterParamID(slot, FilterFrequency), prefix+"Frequency", 20, 5000, filter.DefaultFrequency).Group(unitFilter).Build(),
			param.QParameter(FilterParamID(slot, FilterQ), prefix+"Q", 0.1, 5.0, filter.DefaultQ).Group(unitFilter).Build(),
		); err != nil {
			return nil, err
		}
	}
	if err := reg.Add(
		ps.reverbEnabled, ps.roomSize, ps.damping, ps.wet, ps.dry, ps.width,
		ps.attack, ps.decay, ps.sustain, ps.release,
		ps.delayEnabled, ps.delayTime, ps.delayFeedback, ps.delayMix,
	); err != nil {
		return nil, err
	}
	if err := reg.Add(ps.generation[:]...); err != nil {
		return nil, err
	}
	return ps, nil
}

func (ps *paramSet) reverbParams() reverb.Params {
	return reverb.Params{
		RoomSize: ps.roomSize.GetPlainValue(),
		Damping:  ps.damping.GetPlainValue(),
		Wet:      ps.wet.GetPlainValue(),
		Dry:      ps.dry.GetPlainValue(),
		Width:    ps.width.GetPlainValue(),
	}
}

func (ps *paramSet) envelopeParams() envelope.Params {
	return envelope.Params{
		Attack:  ps.attack.GetPlainValue(),
		Decay:   ps.decay.GetPlainValue(),
		Sustain: ps.sustain.GetPlainValue(),
		Release: ps.release.GetPlainValue(),
	}
}

func (ps *paramSet) delayParams() delay.Params {
	return delay.Params{
		TimeMs:   ps.delayTime.GetPlainValue(),
		Feedback: ps.delayFeedback.GetPlainValue() / 100,
		Mix:      ps.delayMix.GetPlainValue() / 100,
	}
}

// generationParams reads the thirteen generation parameters
func (ps *paramSet) generationParams() generate.Params {
	v := func(i int) float64 { return ps.generation[i].GetPlainValue() }
	iv := func(i int) int { return int(math.Round(v(i))) }
	return generate.Params{
		KernelSize:                  iv(0),
		StepSize:                    iv(1),
		SoundLevel:                  iv(2),
		SampleRate:                  iv(3),
		Duration:                    iv(4),
		ModulationDuration:          iv(5),
		ModulationIntensity:         v(6),
		ModulationEnvelopeIntensity: v(7),
		OvertoneScalar:              v(8),
		LFOFrequency:                v(9),
		LFOAmplitude:                v(10),
		LFOIntensity:                v(11),
		LFOAmountScalar:             v(12),
	}
}

