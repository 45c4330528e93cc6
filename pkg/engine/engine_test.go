package engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/justyntemme/imagine/pkg/audio"
	"github.com/justyntemme/imagine/pkg/config"
	"github.com/justyntemme/imagine/pkg/dsp/filter"
	"github.com/justyntemme/imagine/pkg/framework/process"
	"github.com/justyntemme/imagine/pkg/generate"
	"github.com/justyntemme/imagine/pkg/imag"
	"github.com/justyntemme/imagine/pkg/midi"
	"github.com/justyntemme/imagine/pkg/region"
	"github.com/justyntemme/imagine/pkg/scope"
)

const (
	testRate  = 48000
	testBlock = 256
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.SampleRate = testRate
	cfg.BlockSize = testBlock
	cfg.Voices = 8
	cfg.WorkDir = t.TempDir()
	cfg.RegionTimeout.Duration = 5 * time.Second
	if err := cfg.Resolve(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func newTestProcessor(t *testing.T, h generate.Handler) *Processor {
	t.Helper()
	p, err := New(testConfig(t), h)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := p.Initialize(testRate, testBlock); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

// identityEnvelope makes the ADSR stage a no-op once a note is held
func identityEnvelope(t *testing.T, p *Processor) {
	t.Helper()
	for id, plain := range map[uint32]float64{
		ParamAttack: 0, ParamDecay: 0, ParamSustain: 1, ParamRelease: 0,
	} {
		if err := p.SetParameterPlain(id, plain); err != nil {
			t.Fatal(err)
		}
	}
}

func sine(n int, freq float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/testRate))
	}
	return out
}

func dc(channels, n int, v float32) *audio.Buffer {
	buf := audio.NewBuffer(channels, n, testRate)
	for ch := range buf.Data {
		for i := range buf.Data[ch] {
			buf.Data[ch][i] = v
		}
	}
	return buf
}

type harness struct {
	ctx *process.Context
	in  [][]float32
	out [][]float32
}

func newHarness(n int) *harness {
	return &harness{
		ctx: process.NewContext(16),
		in:  [][]float32{make([]float32, n), make([]float32, n)},
		out: [][]float32{make([]float32, n), make([]float32, n)},
	}
}

// run processes one block with the given input (nil for silence)
func (h *harness) run(p *Processor, input []float32, events ...midi.Event) [][]float32 {
	n := len(h.out[0])
	for ch := range h.in {
		clear(h.in[ch])
		if input != nil {
			copy(h.in[ch], input)
		}
	}
	h.ctx.ClearInputEvents()
	for _, ev := range events {
		h.ctx.AddInputEvent(ev)
	}
	h.ctx.SetBlock(h.in, h.out, n)
	p.ProcessAudio(h.ctx)
	return h.out
}

func noteOn(note uint8) midi.Event {
	return midi.NoteOnEvent{NoteNumber: note, Velocity: 127}
}

func maxDiff(a, b []float32) float64 {
	var d float64
	for i := range a {
		d = math.Max(d, math.Abs(float64(a[i]-b[i])))
	}
	return d
}

func TestParameterSurface(t *testing.T) {
	p := newTestProcessor(t, nil)
	reg := p.GetParameters()

	// gain + 4 filters x 4 + reverb 6 + adsr 4 + delay 4 + generation 13
	if got, want := int(reg.Count()), 1+16+6+4+4+13; got != want {
		t.Errorf("Expected %d parameters, got %d", want, got)
	}

	tests := []struct {
		id   uint32
		want float64
	}{
		{ParamGain, 0},
		{FilterParamID(1, FilterFrequency), 1000},
		{FilterParamID(4, FilterQ), 0.707},
		{ParamKernelSize, 25},
		{ParamGenSampleRate, 44800},
		{ParamModDuration, 6},
		{ParamLFOFrequency, 0.5},
		{ParamDelayTime, 250},
	}
	for _, tt := range tests {
		prm := reg.Get(tt.id)
		if prm == nil {
			t.Errorf("Parameter %d missing", tt.id)
			continue
		}
		if got := prm.GetPlainValue(); math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("%s: default %f, want %f", prm.Name, got, tt.want)
		}
		if v := prm.GetValue(); v < 0 || v > 1 {
			t.Errorf("%s: normalized value %f out of range", prm.Name, v)
		}
	}

	if got := p.GenerationParams(); got != generate.DefaultParams() {
		t.Errorf("Expected default generation params, got %+v", got)
	}
}

func TestFilterParamIDRoundTrip(t *testing.T) {
	for slot := 1; slot <= filter.NumSlots; slot++ {
		for field := FilterEnabled; field <= FilterQ; field++ {
			gotSlot, gotField, ok := filterParamSlot(FilterParamID(slot, field))
			if !ok || gotSlot != slot || gotField != field {
				t.Errorf("Slot %d field %d mapped back to %d/%d (%v)", slot, field, gotSlot, gotField, ok)
			}
		}
	}
	if _, _, ok := filterParamSlot(ParamGain); ok {
		t.Error("Gain should not map to a filter slot")
	}
}

func TestEnvelopeGatesOutput(t *testing.T) {
	p := newTestProcessor(t, nil)
	h := newHarness(testBlock)
	in := sine(testBlock, 440)

	out := h.run(p, in)
	for i, v := range out[0] {
		if v != 0 {
			t.Fatalf("Expected silence before any note, sample %d = %f", i, v)
		}
	}
}

func TestIdentityEnvelope(t *testing.T) {
	p := newTestProcessor(t, nil)
	identityEnvelope(t, p)
	h := newHarness(testBlock)
	in := sine(testBlock, 440)

	out := h.run(p, in, noteOn(60))
	if d := maxDiff(out[0], in); d > 1e-6 {
		t.Errorf("Identity envelope changed the block by %g", d)
	}
	if d := maxDiff(out[1], in); d > 1e-6 {
		t.Errorf("Identity envelope changed channel 2 by %g", d)
	}
}

func TestGainStage(t *testing.T) {
	tests := []struct {
		name string
		db   float64
		want float64
	}{
		{"Unity", 0, 1},
		{"Minus 6 dB", -6, math.Pow(10, -6.0/20)},
		{"Plus 12 dB", 12, math.Pow(10, 12.0/20)},
		{"Floor is silence", -60, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProcessor(t, nil)
			identityEnvelope(t, p)
			if err := p.SetParameterPlain(ParamGain, tt.db); err != nil {
				t.Fatal(err)
			}
			h := newHarness(testBlock)
			in := sine(testBlock, 440)
			out := h.run(p, in, noteOn(60))

			for i := range in {
				want := float64(in[i]) * tt.want
				if math.Abs(float64(out[0][i])-want) > 1e-4 {
					t.Fatalf("Sample %d: got %f, want %f", i, out[0][i], want)
				}
			}
		})
	}
}

func TestFilterSlotDisableRestoresSignal(t *testing.T) {
	for slot := 1; slot <= filter.NumSlots; slot++ {
		p := newTestProcessor(t, nil)
		identityEnvelope(t, p)
		h := newHarness(testBlock)
		in := sine(testBlock, 5000)

		if err := p.SetFilter(slot, filter.LowPass, 200, 0.707); err != nil {
			t.Fatal(err)
		}
		if err := p.SetFilterEnabled(slot, true); err != nil {
			t.Fatal(err)
		}
		if !p.Filters().Enabled(slot) {
			t.Fatalf("Slot %d should be enabled", slot)
		}
		filtered := h.run(p, in, noteOn(60))
		if maxDiff(filtered[0], in) < 0.1 {
			t.Errorf("Slot %d: low-pass at 200 Hz should change a 5 kHz tone", slot)
		}

		if err := p.SetFilterEnabled(slot, false); err != nil {
			t.Fatal(err)
		}
		out := h.run(p, in)
		if d := maxDiff(out[0], in); d != 0 {
			t.Errorf("Slot %d: disabled slot still changed the block by %g", slot, d)
		}
	}
}

func TestFilterParametersReachBank(t *testing.T) {
	p := newTestProcessor(t, nil)

	if err := p.SetParameterPlain(FilterParamID(2, FilterType), float64(filter.HighPass)); err != nil {
		t.Fatal(err)
	}
	if err := p.SetParameterPlain(FilterParamID(2, FilterFrequency), 2500); err != nil {
		t.Fatal(err)
	}

	cfg, err := p.Filters().Slot(2)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != filter.HighPass || math.Abs(cfg.Frequency-2500) > 1e-6 {
		t.Errorf("Bank did not follow parameters: %+v", cfg)
	}
	if cfg.Enabled {
		t.Error("Changing the type should not enable the slot")
	}
}

func TestSetFilterErrors(t *testing.T) {
	p := newTestProcessor(t, nil)

	if err := p.SetFilter(0, filter.LowPass, 100, 1); !errors.Is(err, filter.ErrInvalidSlot) {
		t.Errorf("Expected ErrInvalidSlot, got %v", err)
	}
	if err := p.SetFilterEnabled(5, true); !errors.Is(err, filter.ErrInvalidSlot) {
		t.Errorf("Expected ErrInvalidSlot, got %v", err)
	}

	before, _ := p.Filters().Slot(1)
	if err := p.SetFilter(1, filter.Type(42), 100, 1); err != nil {
		t.Errorf("Unknown type should be ignored, got %v", err)
	}
	after, _ := p.Filters().Slot(1)
	if before != after {
		t.Errorf("Unknown type changed the slot: %+v -> %+v", before, after)
	}
}

func TestDelayEcho(t *testing.T) {
	p := newTestProcessor(t, nil)
	identityEnvelope(t, p)
	for id, plain := range map[uint32]float64{
		ParamDelayEnabled: 1, ParamDelayTime: 2, ParamDelayFeedback: 0, ParamDelayMix: 100,
	} {
		if err := p.SetParameterPlain(id, plain); err != nil {
			t.Fatal(err)
		}
	}

	h := newHarness(testBlock)
	in := make([]float32, testBlock)
	in[0] = 1
	out := h.run(p, in, noteOn(60))

	echo := 96
	if out[0][0] != 0 {
		t.Errorf("Fully wet delay should remove the dry impulse, got %f", out[0][0])
	}
	if math.Abs(float64(out[0][echo])-1) > 1e-4 {
		t.Errorf("Expected echo at sample %d, got %f", echo, out[0][echo])
	}
}

func TestReverbOnlyWhenEnabled(t *testing.T) {
	p := newTestProcessor(t, nil)
	identityEnvelope(t, p)
	h := newHarness(testBlock)
	in := make([]float32, testBlock)
	in[0] = 1

	out := h.run(p, in, noteOn(60))
	if d := maxDiff(out[0], in); d != 0 {
		t.Errorf("Disabled reverb changed the block by %g", d)
	}

	if err := p.SetParameter(ParamReverbEnabled, 1); err != nil {
		t.Fatal(err)
	}
	var tail float64
	for i := 0; i < 20; i++ {
		out = h.run(p, in)
		for _, v := range out[0][1:] {
			tail += math.Abs(float64(v))
		}
	}
	if tail == 0 {
		t.Error("Enabled reverb should add a tail")
	}
}

func TestSamplerPlaysLoadedSound(t *testing.T) {
	p := newTestProcessor(t, nil)
	identityEnvelope(t, p)
	p.Sampler().SetSmoothing(0, 0)

	var loaded []SoundLoadedEvent
	p.Subscribe(func(ev Event) {
		if e, ok := ev.(SoundLoadedEvent); ok {
			loaded = append(loaded, e)
		}
	})

	snd := p.LoadBuffer(dc(2, testRate, 0.25), "dc")
	if snd == nil || len(p.Sampler().Sounds()) != 1 {
		t.Fatal("Expected exactly one sound")
	}
	if len(loaded) != 1 || loaded[0].Sound != snd {
		t.Errorf("Expected one SoundLoaded event, got %d", len(loaded))
	}

	h := newHarness(testBlock)
	out := h.run(p, nil, noteOn(60))
	if math.Abs(float64(out[0][testBlock-1])-0.25) > 1e-3 {
		t.Errorf("Expected the sound at unity pitch, got %f", out[0][testBlock-1])
	}
	if p.Sampler().ActiveVoices() != 1 {
		t.Errorf("Expected one active voice, got %d", p.Sampler().ActiveVoices())
	}
}

func TestScopeReceivesBlocks(t *testing.T) {
	p := newTestProcessor(t, nil)
	identityEnvelope(t, p)
	sc := scope.New(1024)
	p.SetSink(sc)

	h := newHarness(testBlock)
	h.run(p, sine(testBlock, 440), noteOn(60))
	if sc.Available() != testBlock {
		t.Errorf("Expected %d samples in the scope, got %d", testBlock, sc.Available())
	}
}

func TestRegionInstallsSelection(t *testing.T) {
	p := newTestProcessor(t, nil)

	events := make(chan Event, 8)
	p.Subscribe(func(ev Event) {
		switch ev.(type) {
		case RegionReadyEvent, RegionFailedEvent:
			events <- ev
		}
	})

	src := audio.NewBuffer(1, 1000, testRate)
	for i := range src.Data[0] {
		src.Data[0][i] = float32(i%100) / 100
	}
	p.LoadBuffer(src, "ramp")

	if err := p.SetRegion(700, 200); err != nil {
		t.Fatalf("SetRegion failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := p.WaitRegion(ctx)
	if err != nil {
		t.Fatalf("WaitRegion failed: %v", err)
	}
	if res.Sound == nil || res.Sound.Length() != 500 {
		t.Fatalf("Expected a 500 frame sound, got %+v", res.Sound)
	}
	if _, err := os.Stat(p.Config().RegionFile); err != nil {
		t.Errorf("Region file missing: %v", err)
	}

	select {
	case ev := <-events:
		if _, ok := ev.(RegionReadyEvent); !ok {
			t.Errorf("Expected RegionReady, got %v", ev.Kind())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("No region event")
	}

	pre, post := p.Store().Pre(), p.Store().Post()
	if pre.NumSamples() != 200 || post.NumSamples() != 300 {
		t.Errorf("Expected 200/300 frame split, got %d/%d", pre.NumSamples(), post.NumSamples())
	}
}

func TestRegionRejectsEmptySelection(t *testing.T) {
	p := newTestProcessor(t, nil)
	snd := p.LoadBuffer(dc(1, 1000, 0.5), "dc")

	if err := p.SetRegion(300, 300); !errors.Is(err, region.ErrEmptyRegion) {
		t.Errorf("Expected ErrEmptyRegion, got %v", err)
	}
	if err := p.SetRegion(0, 5000); !errors.Is(err, region.ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange, got %v", err)
	}
	if sounds := p.Sampler().Sounds(); len(sounds) != 1 || sounds[0] != snd {
		t.Error("A rejected selection must not touch the sampler")
	}
}

// exportInFlight loads a long buffer and selects most of it so the region
// export is usually still running when the caller continues
func exportInFlight(t *testing.T, p *Processor) {
	t.Helper()
	p.LoadBuffer(dc(2, 1_000_000, 0.3), "long")
	if err := p.SetRegion(0, 900_000); err != nil {
		t.Fatalf("SetRegion failed: %v", err)
	}
}

func TestLoadSupersedesRegionExport(t *testing.T) {
	p := newTestProcessor(t, nil)
	exportInFlight(t, p)

	snd := p.LoadBuffer(dc(1, 1234, 0.2), "new")
	p.slicer.Close()

	if sounds := p.Sampler().Sounds(); len(sounds) != 1 || sounds[0] != snd {
		t.Fatalf("Region of the previous buffer replaced the later load: %v", sounds)
	}
	if n := p.Store().Main().NumSamples(); n != 1234 {
		t.Errorf("Expected the new main buffer, got %d frames", n)
	}
}

func TestGenerateSupersedesRegionExport(t *testing.T) {
	boom := errors.New("boom")
	release := make(chan struct{})
	p := newTestProcessor(t, generate.HandlerFunc(func(ctx context.Context, req generate.Request) (string, error) {
		<-release
		return "", boom
	}))
	exportInFlight(t, p)

	job, err := p.Generate(context.Background(), writePNG(t, t.TempDir(), "pixel.png"))
	if err != nil {
		t.Fatal(err)
	}
	p.slicer.Close()
	if n := len(p.Sampler().Sounds()); n != 0 {
		t.Errorf("Sampler must stay cleared while generating, has %d sounds", n)
	}

	close(release)
	job.Wait()
	if n := len(p.Sampler().Sounds()); n != 0 {
		t.Errorf("A failed generation left %d stale sounds", n)
	}
}

func TestImagRoundTrip(t *testing.T) {
	p := newTestProcessor(t, nil)
	path := filepath.Join(t.TempDir(), "sound.imag")

	if err := p.SaveImag(path); !errors.Is(err, region.ErrNoAudio) {
		t.Errorf("Expected ErrNoAudio with nothing loaded, got %v", err)
	}

	src := audio.NewBuffer(2, 500, testRate)
	for ch := range src.Data {
		for i := range src.Data[ch] {
			src.Data[ch][i] = float32(math.Sin(float64(i+ch*7) * 0.01))
		}
	}
	p.LoadBuffer(src, "sine")
	if err := p.SaveImag(path); err != nil {
		t.Fatalf("SaveImag failed: %v", err)
	}

	q := newTestProcessor(t, nil)
	if _, err := q.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	got := q.Store().Main()
	if got.NumChannels() != 2 || got.NumSamples() != 500 {
		t.Fatalf("Unexpected shape %dx%d", got.NumChannels(), got.NumSamples())
	}
	for ch := range src.Data {
		if d := maxDiff(got.Data[ch], src.Data[ch]); d > 1.0/32768*2 {
			t.Errorf("Channel %d differs by %g after the 16-bit round trip", ch, d)
		}
	}
}

func TestMalformedImagRaisesAlert(t *testing.T) {
	p := newTestProcessor(t, nil)
	snd := p.LoadBuffer(dc(1, 100, 0.5), "dc")

	var alerts []AlertEvent
	p.Subscribe(func(ev Event) {
		if a, ok := ev.(AlertEvent); ok {
			alerts = append(alerts, a)
		}
	})

	path := filepath.Join(t.TempDir(), "broken.imag")
	if err := os.WriteFile(path, []byte("<Root><Nothing/></Root>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := p.LoadImag(path); !errors.Is(err, imag.ErrMalformed) {
		t.Errorf("Expected ErrMalformed, got %v", err)
	}
	if len(alerts) != 1 {
		t.Errorf("Expected one alert, got %d", len(alerts))
	}
	if sounds := p.Sampler().Sounds(); len(sounds) != 1 || sounds[0] != snd {
		t.Error("A malformed document must leave the current sound")
	}
}

func TestStateRestoresParametersAndSound(t *testing.T) {
	p := newTestProcessor(t, nil)
	if err := p.SetParameterPlain(ParamGain, -12); err != nil {
		t.Fatal(err)
	}
	if err := p.SetParameter(FilterParamID(3, FilterEnabled), 1); err != nil {
		t.Fatal(err)
	}
	src := dc(1, 300, 0.125)
	p.LoadBuffer(src, "dc")

	var state bytes.Buffer
	if err := p.SaveState(&state); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	q := newTestProcessor(t, nil)
	if err := q.LoadState(&state); err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if got := q.GetParameters().Get(ParamGain).GetPlainValue(); math.Abs(got+12) > 1e-9 {
		t.Errorf("Expected gain -12 dB, got %f", got)
	}
	if !q.Filters().Enabled(3) {
		t.Error("Filter slot 3 should be enabled after restore")
	}
	if main := q.Store().Main(); main == nil || !main.Equal(src) {
		t.Error("Main buffer not restored")
	}
	if len(q.Sampler().Sounds()) != 1 {
		t.Error("Restored session should have one sound")
	}
}

// writeTone is a generation handler that renders a short WAV per request
func writeTone(frames int) generate.HandlerFunc {
	return func(ctx context.Context, req generate.Request) (string, error) {
		out := filepath.Join(req.OutputDir, filepath.Base(req.ImagePath)+".wav")
		return out, audio.WriteWAVFile(out, dc(1, frames, 0.5), audio.DefaultBitDepth)
	}
}

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGenerateLoadsResult(t *testing.T) {
	p := newTestProcessor(t, writeTone(480))
	p.LoadBuffer(dc(1, 100, 0.1), "old")

	var mu sync.Mutex
	var kinds []EventKind
	p.Subscribe(func(ev Event) {
		mu.Lock()
		kinds = append(kinds, ev.Kind())
		mu.Unlock()
	})

	img := writePNG(t, t.TempDir(), "pixel.png")
	job, err := p.Generate(context.Background(), img)
	if err != nil {
		t.Fatal(err)
	}
	res := job.Wait()
	if res.Err != nil {
		t.Fatalf("Generation failed: %v", res.Err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		sounds := p.Sampler().Sounds()
		if len(sounds) == 1 && sounds[0].Length() == 480 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Generated sound was not installed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(kinds) == 0 || kinds[0] != KindGenerationStarted {
		t.Errorf("Expected GenerationStarted first, got %v", kinds)
	}
}

func TestGenerateFailureLeavesSamplerCleared(t *testing.T) {
	boom := errors.New("boom")
	p := newTestProcessor(t, generate.HandlerFunc(func(ctx context.Context, req generate.Request) (string, error) {
		return "", boom
	}))
	p.LoadBuffer(dc(1, 100, 0.1), "old")

	failed := make(chan GenerationFailedEvent, 1)
	p.Subscribe(func(ev Event) {
		if f, ok := ev.(GenerationFailedEvent); ok {
			failed <- f
		}
	})

	img := writePNG(t, t.TempDir(), "pixel.png")
	job, err := p.Generate(context.Background(), img)
	if err != nil {
		t.Fatal(err)
	}
	if res := job.Wait(); !errors.Is(res.Err, boom) {
		t.Errorf("Expected handler error, got %v", res.Err)
	}

	select {
	case f := <-failed:
		if !errors.Is(f.Result.Err, boom) {
			t.Errorf("Unexpected failure event %v", f.Result.Err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("No GenerationFailed event")
	}
	if len(p.Sampler().Sounds()) != 0 {
		t.Error("A failed generation must leave no sound loaded")
	}
}

func TestLoadSupersedesGeneration(t *testing.T) {
	release := make(chan struct{})
	p := newTestProcessor(t, generate.HandlerFunc(func(ctx context.Context, req generate.Request) (string, error) {
		<-release
		return writeTone(480)(ctx, req)
	}))

	img := writePNG(t, t.TempDir(), "pixel.png")
	job, err := p.Generate(context.Background(), img)
	if err != nil {
		t.Fatal(err)
	}
	snd := p.LoadBuffer(dc(1, 100, 0.1), "manual")
	close(release)
	job.Wait()

	// the job's callback runs before Wait returns
	if sounds := p.Sampler().Sounds(); len(sounds) != 1 || sounds[0] != snd {
		t.Error("A superseded generation must not replace the loaded sound")
	}
}

func TestGenerateBatch(t *testing.T) {
	p := newTestProcessor(t, writeTone(240))
	dir := t.TempDir()
	imgs := []string{writePNG(t, dir, "a.png"), writePNG(t, dir, "b.png"), writePNG(t, dir, "c.png")}

	results, err := p.GenerateBatch(context.Background(), imgs)
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	for i, res := range results {
		if res.Request.ImagePath != imgs[i] {
			t.Errorf("Result %d out of order: %s", i, res.Request.ImagePath)
		}
	}
	if sounds := p.Sampler().Sounds(); len(sounds) != 1 || sounds[0].Name != results[0].Path {
		t.Error("Expected the first result loaded")
	}
}

func TestGenerateWithoutHandler(t *testing.T) {
	p := newTestProcessor(t, nil)
	if _, err := p.Generate(context.Background(), "x.png"); !errors.Is(err, ErrNoGenerator) {
		t.Errorf("Expected ErrNoGenerator, got %v", err)
	}
}

func TestInitializeRebuildsAtNewRate(t *testing.T) {
	p := newTestProcessor(t, nil)
	p.LoadBuffer(dc(1, 480, 0.5), "dc")

	if err := p.Initialize(96000, 512); err != nil {
		t.Fatal(err)
	}
	if p.Sampler().SampleRate() != 96000 {
		t.Errorf("Expected sampler at 96 kHz, got %f", p.Sampler().SampleRate())
	}
	if p.Filters().SampleRate() != 96000 {
		t.Errorf("Expected filters at 96 kHz, got %f", p.Filters().SampleRate())
	}
	if len(p.Sampler().Sounds()) != 1 {
		t.Error("The main buffer should be reinstalled after a rate change")
	}
	if err := p.Initialize(0, 512); err == nil {
		t.Error("Expected error for zero sample rate")
	}
}

func BenchmarkProcessAudio(b *testing.B) {
	cfg := config.Default()
	cfg.SampleRate = testRate
	cfg.WorkDir = b.TempDir()
	if err := cfg.Resolve(); err != nil {
		b.Fatal(err)
	}
	p, err := New(cfg, nil)
	if err != nil {
		b.Fatal(err)
	}
	defer p.Close()
	p.LoadBuffer(dc(2, testRate, 0.25), "dc")
	_ = p.SetParameter(ParamReverbEnabled, 1)
	_ = p.SetParameter(ParamDelayEnabled, 1)
	_ = p.SetFilterEnabled(1, true)

	h := newHarness(testBlock)
	h.run(p, nil, noteOn(60), noteOn(64), noteOn(67))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.ctx.ClearInputEvents()
		h.ctx.SetBlock(nil, h.out, testBlock)
		p.ProcessAudio(h.ctx)
	}
}
