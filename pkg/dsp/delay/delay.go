// Package delay provides the interpolating delay line and the feedback delay effect
package delay

// Line implements a basic delay line with linear interpolation
type Line struct {
	buffer     []float32
	writePos   int
	sampleRate float64
}

// New creates a new delay line with the specified maximum delay time
func New(maxDelaySeconds, sampleRate float64) *Line {
	size := int(maxDelaySeconds*sampleRate) + 2
	return &Line{
		buffer:     make([]float32, size),
		sampleRate: sampleRate,
	}
}

// MaxDelaySamples returns the longest delay Read can serve
func (d *Line) MaxDelaySamples() float64 {
	return float64(len(d.buffer) - 2)
}

// Reset clears the delay buffer
func (d *Line) Reset() {
	for i := range d.buffer {
		d.buffer[i] = 0
	}
	d.writePos = 0
}

// Write adds a sample to the delay line
func (d *Line) Write(sample float32) {
	d.buffer[d.writePos] = sample
	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// Read gets a delayed sample (delay in samples, clamped to the line length)
func (d *Line) Read(delaySamples float64) float32 {
	if delaySamples < 1 {
		delaySamples = 1
	} else if max := d.MaxDelaySamples(); delaySamples > max {
		delaySamples = max
	}

	size := float64(len(d.buffer))
	readPos := float64(d.writePos) - delaySamples
	if readPos < 0 {
		readPos += size
	}

	i := int(readPos)
	frac := float32(readPos - float64(i))
	s1 := d.buffer[i]
	s2 := d.buffer[(i+1)%len(d.buffer)]
	return s1*(1.0-frac) + s2*frac
}

// ReadMs gets a delayed sample (delay in milliseconds)
func (d *Line) ReadMs(delayMs float64) float32 {
	return d.Read(delayMs * d.sampleRate / 1000.0)
}

// Process writes and reads in one operation
func (d *Line) Process(input float32, delaySamples float64) float32 {
	output := d.Read(delaySamples)
	d.Write(input)
	return output
}

// Parameter ranges of the feedback delay
const (
	MinTimeMs   = 1.0
	MaxTimeMs   = 2000.0
	MaxFeedback = 0.95
)

// Params configures a Feedback delay
type Params struct {
	TimeMs   float64 // 1-2000
	Feedback float64 // 0-0.95
	Mix      float64 // 0-1
}

// DefaultParams returns the initial delay settings
func DefaultParams() Params {
	return Params{TimeMs: 250, Feedback: 0.35, Mix: 0.3}
}

// Feedback is a per-channel echo with feedback and dry/wet mix
type Feedback struct {
	lines  []*Line
	params Params

	delaySamples float64
	sampleRate   float64
}

// NewFeedback creates a feedback delay for the given channel count
func NewFeedback(channels int, sampleRate float64) *Feedback {
	f := &Feedback{
		lines:      make([]*Line, channels),
		sampleRate: sampleRate,
	}
	for i := range f.lines {
		f.lines[i] = New(MaxTimeMs/1000.0, sampleRate)
	}
	f.SetParameters(DefaultParams())
	return f
}

// SetParameters installs clamped settings
func (f *Feedback) SetParameters(p Params) {
	if p.TimeMs < MinTimeMs {
		p.TimeMs = MinTimeMs
	} else if p.TimeMs > MaxTimeMs {
		p.TimeMs = MaxTimeMs
	}
	if p.Feedback < 0 {
		p.Feedback = 0
	} else if p.Feedback > MaxFeedback {
		p.Feedback = MaxFeedback
	}
	if p.Mix < 0 {
		p.Mix = 0
	} else if p.Mix > 1 {
		p.Mix = 1
	}
	f.params = p
	f.delaySamples = p.TimeMs * f.sampleRate / 1000.0
}

// Parameters returns the active settings
func (f *Feedback) Parameters() Params {
	return f.params
}

// ProcessBlock runs each channel through its own line in place - no allocations
func (f *Feedback) ProcessBlock(block [][]float32) {
	fb := float32(f.params.Feedback)
	wet := float32(f.params.Mix)
	dry := 1 - wet
	for ch, buf := range block {
		if ch >= len(f.lines) {
			break
		}
		line := f.lines[ch]
		for i, x := range buf {
			delayed := line.Read(f.delaySamples)
			line.Write(x + delayed*fb)
			buf[i] = x*dry + delayed*wet
		}
	}
}

// Reset clears every line
func (f *Feedback) Reset() {
	for _, l := range f.lines {
		l.Reset()
	}
}
