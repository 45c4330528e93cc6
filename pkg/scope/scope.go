// Package scope collects rendered audio for display. The audio thread
// publishes blocks; a UI goroutine reads snapshots and spectra.
package scope

import (
	"math"
	"math/cmplx"
	"sync/atomic"

	"github.com/mjibson/go-dsp/fft"
)

// DefaultCapacity holds a little under 200ms at 44.1kHz
const DefaultCapacity = 8192

var _ Sink = (*Scope)(nil)

// Sink receives every rendered block. Publish runs on the audio thread and
// must not block, allocate or retain block.
type Sink interface {
	Publish(block [][]float32)
}

// Scope is a single-producer single-consumer ring of mono samples. When the
// reader falls behind, new samples are dropped and counted.
type Scope struct {
	buffer []float32
	size   uint64
	mask   uint64

	readPos  atomic.Uint64
	writePos atomic.Uint64

	dropped atomic.Uint64
}

// New creates a scope whose capacity is rounded up to a power of two
func New(capacity int) *Scope {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	size := nextPowerOfTwo(uint64(capacity))
	return &Scope{
		buffer: make([]float32, size),
		size:   size,
		mask:   size - 1,
	}
}

func nextPowerOfTwo(n uint64) uint64 {
	p := uint64(1)
	for p < n {
		p <<= 1
	}
	return p
}

// Capacity returns the ring size in samples
func (s *Scope) Capacity() int {
	return int(s.size)
}

// Publish averages the channels of block into the ring
func (s *Scope) Publish(block [][]float32) {
	if len(block) == 0 {
		return
	}
	n := len(block[0])
	for _, ch := range block[1:] {
		if len(ch) < n {
			n = len(ch)
		}
	}
	scale := 1 / float32(len(block))

	w := s.writePos.Load()
	r := s.readPos.Load()
	free := s.size - (w - r)
	if uint64(n) > free {
		s.dropped.Add(uint64(n) - free)
		n = int(free)
	}
	for i := 0; i < n; i++ {
		var sum float32
		for _, ch := range block {
			sum += ch[i]
		}
		s.buffer[(w+uint64(i))&s.mask] = sum * scale
	}
	s.writePos.Store(w + uint64(n))
}

// Available returns how many samples are waiting to be read
func (s *Scope) Available() int {
	return int(s.writePos.Load() - s.readPos.Load())
}

// Dropped returns the number of samples lost to overruns
func (s *Scope) Dropped() uint64 {
	return s.dropped.Load()
}

// Read moves up to len(dst) of the oldest samples into dst
func (s *Scope) Read(dst []float32) int {
	r := s.readPos.Load()
	avail := s.writePos.Load() - r
	n := uint64(len(dst))
	if n > avail {
		n = avail
	}
	for i := uint64(0); i < n; i++ {
		dst[i] = s.buffer[(r+i)&s.mask]
	}
	s.readPos.Store(r + n)
	return int(n)
}

// Snapshot fills dst with the newest samples, oldest first, and consumes
// everything up to them. It returns the number of samples written.
func (s *Scope) Snapshot(dst []float32) int {
	r := s.readPos.Load()
	w := s.writePos.Load()
	avail := w - r
	n := uint64(len(dst))
	if n > avail {
		n = avail
	}
	start := w - n
	for i := uint64(0); i < n; i++ {
		dst[i] = s.buffer[(start+i)&s.mask]
	}
	s.readPos.Store(w)
	return int(n)
}

// Reset discards unread samples. Only the reader may call it.
func (s *Scope) Reset() {
	s.readPos.Store(s.writePos.Load())
}

// Peak returns the largest absolute value in samples
func Peak(samples []float32) float32 {
	var peak float32
	for _, v := range samples {
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}

// RMS returns the root mean square of samples
func RMS(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += float64(v) * float64(v)
	}
	return float32(math.Sqrt(sum / float64(len(samples))))
}

// Hann returns an n-point Hann window
func Hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// Spectrum returns the normalized magnitudes of the first n/2+1 bins of a
// Hann-windowed FFT over the newest n samples. Missing history is treated
// as silence.
func (s *Scope) Spectrum(n int) []float64 {
	if n <= 0 {
		return nil
	}
	frame := make([]float32, n)
	got := s.Snapshot(frame)
	// right-align so the newest sample is last
	copy(frame[n-got:], frame[:got])
	for i := 0; i < n-got; i++ {
		frame[i] = 0
	}
	return Magnitudes(frame)
}

// Magnitudes windows frame and returns |X[k]| * 2/n for k in [0, n/2]
func Magnitudes(frame []float32) []float64 {
	n := len(frame)
	if n == 0 {
		return nil
	}
	window := Hann(n)
	x := make([]float64, n)
	var gain float64
	for i, v := range frame {
		x[i] = float64(v) * window[i]
		gain += window[i]
	}
	if gain == 0 {
		gain = 1
	}

	spectrum := fft.FFTReal(x)
	mags := make([]float64, n/2+1)
	for k := range mags {
		mags[k] = 2 * cmplx.Abs(spectrum[k]) / gain
	}
	return mags
}

// BinFrequency returns the center frequency of bin k for an n-point FFT
func BinFrequency(k, n int, sampleRate float64) float64 {
	return float64(k) * sampleRate / float64(n)
}
