// Package engine wires the sampler, region slicer, effects chain and
// generation call-out into one processor a host can drive.
package engine

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/justyntemme/imagine/pkg/config"
	"github.com/justyntemme/imagine/pkg/dsp/delay"
	"github.com/justyntemme/imagine/pkg/dsp/envelope"
	"github.com/justyntemme/imagine/pkg/dsp/filter"
	"github.com/justyntemme/imagine/pkg/dsp/gain"
	"github.com/justyntemme/imagine/pkg/dsp/reverb"
	"github.com/justyntemme/imagine/pkg/framework/debug"
	"github.com/justyntemme/imagine/pkg/framework/param"
	"github.com/justyntemme/imagine/pkg/framework/plugin"
	"github.com/justyntemme/imagine/pkg/framework/process"
	"github.com/justyntemme/imagine/pkg/generate"
	"github.com/justyntemme/imagine/pkg/imag"
	"github.com/justyntemme/imagine/pkg/midi"
	"github.com/justyntemme/imagine/pkg/region"
	"github.com/justyntemme/imagine/pkg/sampler"
	"github.com/justyntemme/imagine/pkg/scope"
)

// Version of the engine, also written into plugin.Info
const Version = "1.0.0"

// ErrNoGenerator is returned by generation calls when no handler is set
var ErrNoGenerator = errors.New("engine: no generation handler configured")

var _ plugin.Processor = (*Processor)(nil)

// Info describes the processor to hosts
var Info = plugin.Info{
	ID:       "com.imagine.sampler",
	Name:     "Imagine",
	Version:  Version,
	Vendor:   "Imagine",
	Category: "Instrument|Sampler",
}

// Processor is the complete engine. ProcessAudio belongs to the audio
// thread; every other method is a control operation.
type Processor struct {
	*plugin.BaseProcessor

	cfg    config.Config
	log    *debug.Logger
	params *paramSet
	store  *region.Store
	runner *generate.Runner
	events listeners

	sink         scope.Sink
	unsubscribe  func()
	sampleRate   float64
	maxBlockSize int

	sampler *sampler.Engine
	slicer  *region.Slicer
	bank    *filter.Bank
	adsr    *envelope.ADSR
	reverb  *reverb.Freeverb
	delay   *delay.Feedback

	// mu orders sound installs against generation jobs and region
	// exports; it is taken before the slicer's lock
	mu     sync.Mutex
	job    *generate.Job
	jobSeq uint64

	// audio thread only
	block [][]float32
}

// New builds a processor at cfg's sample rate. handler may be nil, in which
// case generation calls fail with ErrNoGenerator.
func New(cfg config.Config, handler generate.Handler) (*Processor, error) {
	if err := Info.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Processor{
		BaseProcessor: plugin.NewBaseProcessor(Info),
		cfg:           cfg,
		log:           debug.Default().Named("engine"),
		store:         region.NewStore(),
	}
	if handler != nil {
		p.runner = generate.NewRunner(handler, cfg.Generator.Parallel)
	}

	ps, err := buildParameters(p.Parameters())
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	p.params = ps

	p.build(cfg.SampleRate, cfg.BlockSize)
	p.unsubscribe = p.Parameters().Subscribe(p.onParameter)

	p.OnInitialize(p.initialize)
	p.OnReset(p.reset)
	p.State().SetCustomState(p.saveSession, p.loadSession)

	p.log.Infow("engine ready", "rate", cfg.SampleRate, "block", cfg.BlockSize,
		"channels", cfg.OutputChannels, "voices", cfg.Voices)
	return p, nil
}

// build creates everything that depends on the sample rate
func (p *Processor) build(sampleRate float64, maxBlockSize int) {
	channels := p.cfg.OutputChannels

	if p.slicer != nil {
		p.slicer.Close()
	}

	p.sampleRate = sampleRate
	p.maxBlockSize = maxBlockSize
	p.sampler = sampler.NewEngine(sampleRate, p.cfg.Voices)
	p.sampler.SetRootNote(uint8(p.cfg.RootNote))
	p.slicer = region.NewSlicer(p.store, p.sampler, p.cfg.RegionFile, sampleRate)
	p.slicer.OnDone(p.onRegionDone)

	p.bank = filter.NewBank(sampleRate, channels)
	p.adsr = envelope.New(sampleRate)
	p.reverb = reverb.NewFreeverb(sampleRate)
	p.delay = delay.NewFeedback(channels, sampleRate)
	p.block = make([][]float32, channels)

	for slot := 1; slot <= filter.NumSlots; slot++ {
		p.applyFilterSlot(slot, FilterType)
		p.applyFilterSlot(slot, FilterEnabled)
	}
}

func (p *Processor) initialize(sampleRate float64, maxBlockSize int32) error {
	if sampleRate <= 0 || maxBlockSize <= 0 {
		return fmt.Errorf("engine: invalid setup %g Hz / %d samples", sampleRate, maxBlockSize)
	}
	if sampleRate == p.sampleRate {
		p.maxBlockSize = int(maxBlockSize)
		return nil
	}

	p.log.Infow("sample rate changed", "from", p.sampleRate, "to", sampleRate)
	p.build(sampleRate, int(maxBlockSize))
	if main := p.store.Main(); main != nil {
		p.install(main, "session")
	}
	return nil
}

func (p *Processor) reset() {
	p.adsr.Reset()
	p.reverb.Reset()
	p.delay.Reset()
	p.bank.Reset()
	p.sampler.AllNotesOff()
}

// Close stops background work. The processor must not be used afterwards.
func (p *Processor) Close() error {
	p.CancelGeneration()
	p.unsubscribe()
	return p.slicer.Close()
}

// SetSink installs the visualization sink. Call it before processing starts.
func (p *Processor) SetSink(s scope.Sink) {
	p.sink = s
}

// Config returns the settings the processor was built with
func (p *Processor) Config() config.Config {
	return p.cfg
}

// Sampler exposes the voice engine for inspection
func (p *Processor) Sampler() *sampler.Engine {
	return p.sampler
}

// Filters exposes the filter bank for inspection
func (p *Processor) Filters() *filter.Bank {
	return p.bank
}

// Store exposes the main buffer and its current split
func (p *Processor) Store() *region.Store {
	return p.store
}

// Subscribe registers fn for engine events and returns a func removing it
func (p *Processor) Subscribe(fn Listener) (unsubscribe func()) {
	return p.events.subscribe(fn)
}

// GetTailSamples reports the longest delay line as tail
func (p *Processor) GetTailSamples() int32 {
	return int32(delay.MaxTimeMs / 1000 * p.sampleRate)
}

// ProcessAudio renders one block. Audio thread only - no allocations.
func (p *Processor) ProcessAudio(ctx *process.Context) {
	n := ctx.NumSamples()
	if n == 0 || len(ctx.Output) == 0 {
		return
	}

	ctx.PassThrough()
	ctx.ClearExtraOutputs()

	block := p.block[:min(len(p.block), len(ctx.Output))]
	for ch := range block {
		block[ch] = ctx.Output[ch][:n]
	}

	ps := p.params
	p.adsr.SetParams(ps.envelopeParams())
	if ctx.Events != nil {
		for i := 0; i < ctx.Events.Len(); i++ {
			switch ev := ctx.Events.At(i).(type) {
			case midi.NoteOnEvent:
				if ev.Velocity > 0 {
					p.adsr.Trigger()
				} else {
					p.adsr.Release()
				}
			case midi.NoteOffEvent:
				p.adsr.Release()
			}
		}
	}

	p.sampler.RenderNextBlock(block, ctx.Events, 0, n)

	gain.Apply(block, linearGain(ps.gain))

	if ps.reverbEnabled.Bool() {
		p.reverb.SetParameters(ps.reverbParams())
		p.reverb.ProcessBlock(block)
	}
	if ps.delayEnabled.Bool() {
		p.delay.SetParameters(ps.delayParams())
		p.delay.ProcessBlock(block)
	}

	p.bank.Process(block)

	p.adsr.ProcessMultiplyMulti(block)

	if p.sink != nil {
		p.sink.Publish(block)
	}
}

// linearGain treats the bottom of the range as silence
func linearGain(prm *param.Parameter) float32 {
	return float32(gain.ToLinear(prm.GetPlainValue(), prm.Min))
}

func (p *Processor) onParameter(prm *param.Parameter, normalized float64) {
	if slot, field, ok := filterParamSlot(prm.ID); ok {
		p.applyFilterSlot(slot, field)
	}
	p.events.emit(ParameterChangedEvent{ID: prm.ID, Normalized: normalized, Plain: prm.Denormalize(normalized)})
}

// applyFilterSlot pushes one slot's parameters into the bank
func (p *Processor) applyFilterSlot(slot int, field FilterField) {
	reg := p.Parameters()
	if field == FilterEnabled {
		_ = p.bank.SetEnabled(slot, reg.Get(FilterParamID(slot, FilterEnabled)).Bool())
		return
	}
	t := filter.Type(reg.Get(FilterParamID(slot, FilterType)).Index())
	freq := reg.Get(FilterParamID(slot, FilterFrequency)).GetPlainValue()
	q := reg.Get(FilterParamID(slot, FilterQ)).GetPlainValue()
	_ = p.bank.SetFilter(slot, t, freq, q)
}

func (p *Processor) saveSession(w io.Writer) error {
	main := p.store.Main()
	if main == nil {
		return nil
	}
	return imag.Encode(w, main)
}

func (p *Processor) loadSession(r io.Reader) error {
	buf, err := imag.Decode(r)
	if err != nil {
		return err
	}
	p.LoadBuffer(buf, "session")
	return nil
}

func (p *Processor) tmpDir() string {
	return filepath.Join(p.cfg.WorkDir, "tmp")
}
