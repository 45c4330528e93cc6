// Package audio provides the sample buffer type shared by the engine and its file formats.
package audio

import (
	"errors"
	"fmt"
)

// ErrShape is returned when channel data does not form a rectangular buffer
var ErrShape = errors.New("audio: channels have different lengths")

// Buffer holds deinterleaved float samples (channels x samples).
// Channel count and length are fixed once the buffer is built.
type Buffer struct {
	SampleRate float64
	Data       [][]float32
}

// NewBuffer allocates a silent buffer
func NewBuffer(channels, samples int, sampleRate float64) *Buffer {
	data := make([][]float32, channels)
	for ch := range data {
		data[ch] = make([]float32, samples)
	}
	return &Buffer{SampleRate: sampleRate, Data: data}
}

// FromChannels wraps existing channel slices without copying
func FromChannels(sampleRate float64, channels ...[]float32) (*Buffer, error) {
	if len(channels) > 0 {
		n := len(channels[0])
		for _, ch := range channels[1:] {
			if len(ch) != n {
				return nil, ErrShape
			}
		}
	}
	return &Buffer{SampleRate: sampleRate, Data: channels}, nil
}

// NumChannels returns the channel count
func (b *Buffer) NumChannels() int {
	if b == nil {
		return 0
	}
	return len(b.Data)
}

// NumSamples returns the per-channel length
func (b *Buffer) NumSamples() int {
	if b == nil || len(b.Data) == 0 {
		return 0
	}
	return len(b.Data[0])
}

// Duration returns the buffer length in seconds
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.NumSamples()) / b.SampleRate
}

// Clone returns an independent deep copy
func (b *Buffer) Clone() *Buffer {
	return b.Slice(0, b.NumSamples())
}

// Slice copies frames [start, end) into a new buffer. The result never
// aliases b. Bounds are clamped to the buffer.
func (b *Buffer) Slice(start, end int) *Buffer {
	n := b.NumSamples()
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if end < start {
		end = start
	}
	out := NewBuffer(b.NumChannels(), end-start, b.SampleRate)
	for ch := range b.Data {
		copy(out.Data[ch], b.Data[ch][start:end])
	}
	return out
}

// Concat joins buffers end to end. All inputs must share the channel count.
func Concat(bufs ...*Buffer) (*Buffer, error) {
	if len(bufs) == 0 {
		return NewBuffer(0, 0, 0), nil
	}
	channels := bufs[0].NumChannels()
	total := 0
	for i, b := range bufs {
		if b.NumChannels() != channels {
			return nil, fmt.Errorf("audio: concat part %d has %d channels, want %d", i, b.NumChannels(), channels)
		}
		total += b.NumSamples()
	}

	out := NewBuffer(channels, total, bufs[0].SampleRate)
	pos := 0
	for _, b := range bufs {
		for ch := 0; ch < channels; ch++ {
			copy(out.Data[ch][pos:], b.Data[ch])
		}
		pos += b.NumSamples()
	}
	return out, nil
}

// Equal reports whether two buffers hold bit-identical samples
func (b *Buffer) Equal(other *Buffer) bool {
	if b.NumChannels() != other.NumChannels() || b.NumSamples() != other.NumSamples() {
		return false
	}
	for ch := range b.Data {
		for i, v := range b.Data[ch] {
			if other.Data[ch][i] != v {
				return false
			}
		}
	}
	return true
}

// Interleave writes frames as L R L R ... into dst, growing it when needed
func (b *Buffer) Interleave(dst []float32) []float32 {
	channels := b.NumChannels()
	n := b.NumSamples() * channels
	if cap(dst) < n {
		dst = make([]float32, n)
	}
	dst = dst[:n]
	for ch := 0; ch < channels; ch++ {
		src := b.Data[ch]
		for i, v := range src {
			dst[i*channels+ch] = v
		}
	}
	return dst
}

// Deinterleave builds a buffer from interleaved frames
func Deinterleave(src []float32, channels int, sampleRate float64) (*Buffer, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("audio: invalid channel count %d", channels)
	}
	if len(src)%channels != 0 {
		return nil, fmt.Errorf("audio: %d samples do not divide into %d channels", len(src), channels)
	}
	frames := len(src) / channels
	out := NewBuffer(channels, frames, sampleRate)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			out.Data[ch][i] = src[i*channels+ch]
		}
	}
	return out, nil
}

// Peak returns the largest absolute sample across all channels
func (b *Buffer) Peak() float32 {
	var peak float32
	for _, ch := range b.Data {
		for _, v := range ch {
			if v < 0 {
				v = -v
			}
			if v > peak {
				peak = v
			}
		}
	}
	return peak
}
