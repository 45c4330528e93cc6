package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/justyntemme/imagine/pkg/audio"
	"github.com/justyntemme/imagine/pkg/dsp/filter"
	"github.com/justyntemme/imagine/pkg/generate"
	"github.com/justyntemme/imagine/pkg/imag"
	"github.com/justyntemme/imagine/pkg/region"
	"github.com/justyntemme/imagine/pkg/sampler"
)

// SetParameter stores a normalized value as host automation does. Side
// effects such as filter redesign happen before it returns.
func (p *Processor) SetParameter(id uint32, normalized float64) error {
	return p.Parameters().Set(id, normalized)
}

// SetParameterPlain stores a value given in the parameter's own range
func (p *Processor) SetParameterPlain(id uint32, plain float64) error {
	return p.Parameters().SetPlain(id, plain)
}

// SetFilter configures a slot directly. Frequency and Q are used as given;
// the slot's parameters follow within their ranges. An unknown type is
// ignored.
func (p *Processor) SetFilter(slot int, t filter.Type, frequency, q float64) error {
	if slot < 1 || slot > filter.NumSlots {
		return filter.ErrInvalidSlot
	}
	if !t.Valid() {
		p.log.Debugw("ignoring unknown filter type", "slot", slot, "type", int(t))
		return nil
	}
	if err := p.bank.SetFilter(slot, t, frequency, q); err != nil {
		return err
	}
	_ = p.bank.SetEditing(slot)

	reg := p.Parameters()
	for _, u := range []struct {
		field FilterField
		plain float64
	}{
		{FilterType, float64(t)},
		{FilterFrequency, frequency},
		{FilterQ, q},
	} {
		prm := reg.Get(FilterParamID(slot, u.field))
		prm.SetPlainValue(u.plain)
		p.events.emit(ParameterChangedEvent{ID: prm.ID, Normalized: prm.GetValue(), Plain: prm.GetPlainValue()})
	}
	return nil
}

// SetFilterEnabled switches a slot on or off through its parameter
func (p *Processor) SetFilterEnabled(slot int, enabled bool) error {
	if slot < 1 || slot > filter.NumSlots {
		return filter.ErrInvalidSlot
	}
	v := 0.0
	if enabled {
		v = 1
	}
	return p.SetParameter(FilterParamID(slot, FilterEnabled), v)
}

// EditFilter binds the shared filter controls to slot
func (p *Processor) EditFilter(slot int) error {
	return p.bank.SetEditing(slot)
}

// SetRegion selects [start, end) of the main buffer. The selection becomes
// the only sound once the background export finishes; see WaitRegion.
func (p *Processor) SetRegion(start, end int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.slicer.SetRegion(start, end); err != nil {
		return err
	}
	p.cancelJobLocked()
	return nil
}

// WaitRegion waits for the latest selection to be playable. Without a
// deadline on ctx the configured region timeout applies.
func (p *Processor) WaitRegion(ctx context.Context) (region.Result, error) {
	if _, ok := ctx.Deadline(); !ok && p.cfg.RegionTimeout.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.RegionTimeout.Duration)
		defer cancel()
	}
	return p.slicer.Wait(ctx)
}

func (p *Processor) onRegionDone(res region.Result) {
	switch {
	case res.Err != nil:
		p.events.emit(RegionFailedEvent{Result: res})
	default:
		p.events.emit(RegionReadyEvent{Result: res})
		p.events.emit(SoundLoadedEvent{Sound: res.Sound, Source: res.Path})
	}
}

// LoadFile loads a WAV or .imag file as the main buffer and only sound. On
// failure the current sound stays in place.
func (p *Processor) LoadFile(path string) (*sampler.Sound, error) {
	if strings.EqualFold(filepath.Ext(path), imag.Extension) {
		return p.LoadImag(path)
	}
	buf, err := audio.ReadWAVFile(path)
	if err != nil {
		p.log.Errorw("load failed", "path", path, "err", err)
		return nil, fmt.Errorf("engine: %w", err)
	}
	return p.LoadBuffer(buf, path), nil
}

// LoadBuffer makes buf the main buffer and the only sound. A running
// generation is cancelled and its result discarded.
func (p *Processor) LoadBuffer(buf *audio.Buffer, name string) *sampler.Sound {
	p.mu.Lock()
	p.supersedeLocked()
	snd := p.installLocked(buf, name)
	p.mu.Unlock()

	p.events.emit(SoundLoadedEvent{Sound: snd, Source: name})
	return snd
}

func (p *Processor) install(buf *audio.Buffer, name string) *sampler.Sound {
	p.mu.Lock()
	snd := p.installLocked(buf, name)
	p.mu.Unlock()

	p.events.emit(SoundLoadedEvent{Sound: snd, Source: name})
	return snd
}

// installLocked resamples buf to the engine rate and makes it the main
// buffer and only sound. Listeners are notified by the caller after
// unlocking.
func (p *Processor) installLocked(buf *audio.Buffer, name string) *sampler.Sound {
	buf = audio.Resample(buf, p.sampleRate)
	p.store.SetMain(buf)
	p.sampler.ClearSounds()
	return p.sampler.LoadSound(buf, name)
}

// SaveImag writes the main buffer as a .imag document
func (p *Processor) SaveImag(path string) error {
	main := p.store.Main()
	if main == nil {
		return region.ErrNoAudio
	}
	if err := imag.SaveFile(path, main); err != nil {
		p.log.Errorw("save failed", "path", path, "err", err)
		return err
	}
	p.log.Infow("saved", "path", path, "frames", main.NumSamples())
	return nil
}

// LoadImag loads a .imag document. A malformed document raises an
// AlertEvent and leaves the current sound in place.
func (p *Processor) LoadImag(path string) (*sampler.Sound, error) {
	buf, err := imag.LoadFileViaWAV(path, p.tmpDir())
	if err != nil {
		p.log.Errorw("load failed", "path", path, "err", err)
		if errors.Is(err, imag.ErrMalformed) || errors.Is(err, imag.ErrUnsupportedVersion) {
			p.events.emit(AlertEvent{Message: "Could not read " + filepath.Base(path), Err: err})
		}
		return nil, err
	}
	return p.LoadBuffer(buf, path), nil
}

// GenerationParams returns the generation settings from the parameters
func (p *Processor) GenerationParams() generate.Params {
	return p.params.generationParams()
}

func (p *Processor) request(imagePath string) generate.Request {
	return generate.Request{
		ImagePath: imagePath,
		OutputDir: p.cfg.OutputDir,
		Params:    p.params.generationParams(),
	}
}

// Generate clears the sounds and renders imagePath in the background. Only
// one generation is active: starting another, or loading a sound, cancels
// it. The result is loaded when the job succeeds.
func (p *Processor) Generate(ctx context.Context, imagePath string) (*generate.Job, error) {
	if p.runner == nil {
		return nil, ErrNoGenerator
	}
	req := p.request(imagePath)
	p.events.emit(GenerationStartedEvent{Request: req})

	p.mu.Lock()
	defer p.mu.Unlock()
	p.supersedeLocked()
	p.sampler.ClearSounds()
	seq := p.jobSeq
	p.job = p.runner.Start(ctx, req, func(res generate.Result) {
		p.finishGeneration(seq, res)
	})
	return p.job, nil
}

// supersedeLocked drops whatever would install a sound later: the running
// generation and any outstanding region export
func (p *Processor) supersedeLocked() {
	p.slicer.Cancel()
	p.cancelJobLocked()
}

// cancelJobLocked cancels the running generation so its result is dropped
func (p *Processor) cancelJobLocked() {
	p.jobSeq++
	if p.job != nil {
		p.job.Cancel()
		p.job = nil
	}
}

func (p *Processor) finishGeneration(seq uint64, res generate.Result) {
	if res.Err != nil {
		p.events.emit(GenerationFailedEvent{Result: res})
		return
	}

	buf, err := audio.ReadWAVFile(res.Path)
	if err != nil {
		res.Err = fmt.Errorf("%w: %v", generate.ErrBadResult, err)
		p.log.Errorw("generated file unreadable", "path", res.Path, "err", err)
		p.events.emit(GenerationFailedEvent{Result: res})
		return
	}

	p.mu.Lock()
	if seq != p.jobSeq {
		p.mu.Unlock()
		p.log.Debugw("generation superseded", "image", res.Request.ImagePath)
		return
	}
	p.job = nil
	snd := p.installLocked(buf, res.Path)
	p.mu.Unlock()

	p.events.emit(SoundLoadedEvent{Sound: snd, Source: res.Path})
	p.events.emit(GenerationDoneEvent{Result: res, Sound: snd})
}

// CancelGeneration stops the running generation, if any
func (p *Processor) CancelGeneration() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelJobLocked()
}

// GenerateBatch renders every image with the configured parallelism and
// loads the first successful result. It blocks until all jobs finish.
func (p *Processor) GenerateBatch(ctx context.Context, imagePaths []string) ([]generate.Result, error) {
	if p.runner == nil {
		return nil, ErrNoGenerator
	}
	reqs := make([]generate.Request, len(imagePaths))
	for i, path := range imagePaths {
		reqs[i] = p.request(path)
	}

	p.mu.Lock()
	p.supersedeLocked()
	p.sampler.ClearSounds()
	seq := p.jobSeq
	p.mu.Unlock()

	for _, req := range reqs {
		p.events.emit(GenerationStartedEvent{Request: req})
	}
	results, err := p.runner.Batch(ctx, reqs)

	loaded := false
	for _, res := range results {
		if res.Err != nil || loaded {
			if res.Err != nil {
				p.events.emit(GenerationFailedEvent{Result: res})
			} else {
				p.events.emit(GenerationDoneEvent{Result: res})
			}
			continue
		}
		buf, rerr := audio.ReadWAVFile(res.Path)
		if rerr != nil {
			res.Err = fmt.Errorf("%w: %v", generate.ErrBadResult, rerr)
			p.events.emit(GenerationFailedEvent{Result: res})
			continue
		}

		p.mu.Lock()
		var snd *sampler.Sound
		if seq == p.jobSeq {
			snd = p.installLocked(buf, res.Path)
			loaded = true
		}
		p.mu.Unlock()
		if snd != nil {
			p.events.emit(SoundLoadedEvent{Sound: snd, Source: res.Path})
		}
		p.events.emit(GenerationDoneEvent{Result: res, Sound: snd})
	}
	return results, err
}
