// Package filter provides the biquad sections and the four-slot filter bank
package filter

import "math"

// Type selects a biquad response
type Type int

const (
	// LowPass passes content below the cutoff
	LowPass Type = iota
	// HighPass passes content above the cutoff
	HighPass
	// BandPass passes a band around the center frequency (constant skirt gain)
	BandPass
	// Notch rejects a band around the center frequency
	Notch
)

var typeNames = [...]string{"LowPass", "HighPass", "BandPass", "Notch"}

// Valid reports whether t names a supported response
func (t Type) Valid() bool {
	return t >= LowPass && t <= Notch
}

func (t Type) String() string {
	if t.Valid() {
		return typeNames[t]
	}
	return "Unknown"
}

// Coefficients are normalized biquad coefficients (a0 == 1)
type Coefficients struct {
	B0, B1, B2 float32
	A1, A2     float32
}

// Identity passes the signal unchanged
var Identity = Coefficients{B0: 1}

// Design computes RBJ cookbook coefficients. ok is false for an unknown type.
func Design(t Type, sampleRate, frequency, q float64) (c Coefficients, ok bool) {
	omega := 2.0 * math.Pi * frequency / sampleRate
	sinOmega := math.Sin(omega)
	cosOmega := math.Cos(omega)
	alpha := sinOmega / (2.0 * q)

	var b0, b1, b2 float64
	switch t {
	case LowPass:
		b0 = (1.0 - cosOmega) / 2.0
		b1 = 1.0 - cosOmega
		b2 = (1.0 - cosOmega) / 2.0
	case HighPass:
		b0 = (1.0 + cosOmega) / 2.0
		b1 = -(1.0 + cosOmega)
		b2 = (1.0 + cosOmega) / 2.0
	case BandPass:
		b0 = alpha
		b1 = 0.0
		b2 = -alpha
	case Notch:
		b0 = 1.0
		b1 = -2.0 * cosOmega
		b2 = 1.0
	default:
		return Coefficients{}, false
	}
	a0 := 1.0 + alpha
	a1 := -2.0 * cosOmega
	a2 := 1.0 - alpha

	invA0 := 1.0 / a0
	return Coefficients{
		B0: float32(b0 * invA0),
		B1: float32(b1 * invA0),
		B2: float32(b2 * invA0),
		A1: float32(a1 * invA0),
		A2: float32(a2 * invA0),
	}, true
}

// Biquad implements a second-order IIR section.
// Direct Form I with pre-allocated per-channel state.
type Biquad struct {
	c Coefficients

	x1, x2 []float32
	y1, y2 []float32
}

// NewBiquad creates an identity biquad for the given channel count
func NewBiquad(channels int) *Biquad {
	return &Biquad{
		c:  Identity,
		x1: make([]float32, channels),
		x2: make([]float32, channels),
		y1: make([]float32, channels),
		y2: make([]float32, channels),
	}
}

// Channels returns how many channels of state the section keeps
func (b *Biquad) Channels() int {
	return len(b.x1)
}

// Reset clears the filter memory
func (b *Biquad) Reset() {
	for i := range b.x1 {
		b.x1[i] = 0
		b.x2[i] = 0
		b.y1[i] = 0
		b.y2[i] = 0
	}
}

// SetCoefficients installs new coefficients and keeps the filter memory
func (b *Biquad) SetCoefficients(c Coefficients) {
	b.c = c
}

// Coefficients returns the installed coefficients
func (b *Biquad) Coefficients() Coefficients {
	return b.c
}

// Configure designs and installs a response. Unknown types leave the
// section untouched.
func (b *Biquad) Configure(t Type, sampleRate, frequency, q float64) bool {
	c, ok := Design(t, sampleRate, frequency, q)
	if ok {
		b.c = c
	}
	return ok
}

// Process filters one channel in place - no allocations
func (b *Biquad) Process(buffer []float32, channel int) {
	x1 := b.x1[channel]
	x2 := b.x2[channel]
	y1 := b.y1[channel]
	y2 := b.y2[channel]
	c := b.c

	for i := range buffer {
		x0 := buffer[i]
		y0 := c.B0*x0 + c.B1*x1 + c.B2*x2 - c.A1*y1 - c.A2*y2

		x2 = x1
		x1 = x0
		y2 = y1
		y1 = y0

		buffer[i] = y0
	}

	b.x1[channel] = x1
	b.x2[channel] = x2
	b.y1[channel] = y1
	b.y2[channel] = y2
}

// ProcessMulti filters every channel that has state - no allocations
func (b *Biquad) ProcessMulti(buffers [][]float32) {
	for ch, buffer := range buffers {
		if ch < len(b.x1) {
			b.Process(buffer, ch)
		}
	}
}

// Magnitude evaluates |H(e^jw)| at frequency for the given coefficients
func (c Coefficients) Magnitude(sampleRate, frequency float64) float64 {
	w := 2.0 * math.Pi * frequency / sampleRate
	cos1, sin1 := math.Cos(w), math.Sin(w)
	cos2, sin2 := math.Cos(2*w), math.Sin(2*w)

	numRe := float64(c.B0) + float64(c.B1)*cos1 + float64(c.B2)*cos2
	numIm := -float64(c.B1)*sin1 - float64(c.B2)*sin2
	denRe := 1.0 + float64(c.A1)*cos1 + float64(c.A2)*cos2
	denIm := -float64(c.A1)*sin1 - float64(c.A2)*sin2

	return math.Sqrt((numRe*numRe + numIm*numIm) / (denRe*denRe + denIm*denIm))
}
