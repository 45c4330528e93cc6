package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavFormatPCM is the RIFF audio format tag for integer PCM
const wavFormatPCM = 1

// DefaultBitDepth is used for region exports and intermediate files
const DefaultBitDepth = 16

// ErrInvalidWAV is returned when a file is not a readable RIFF/WAVE stream
var ErrInvalidWAV = errors.New("audio: not a valid wav file")

// fullScale returns the positive integer full scale for a PCM bit depth
func fullScale(bitDepth int) float64 {
	return float64(int64(1)<<(bitDepth-1) - 1)
}

// WriteWAV encodes buf as integer PCM at the given bit depth
func WriteWAV(w io.WriteSeeker, buf *Buffer, bitDepth int) error {
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("audio: unsupported bit depth %d", bitDepth)
	}
	channels := buf.NumChannels()
	if channels == 0 {
		return fmt.Errorf("audio: cannot write a buffer with no channels")
	}

	enc := wav.NewEncoder(w, int(buf.SampleRate), bitDepth, channels, wavFormatPCM)

	scale := fullScale(bitDepth)
	frames := buf.NumSamples()
	data := make([]int, frames*channels)
	for ch := 0; ch < channels; ch++ {
		for i, v := range buf.Data[ch] {
			s := float64(v)
			if s > 1 {
				s = 1
			} else if s < -1 {
				s = -1
			}
			data[i*channels+ch] = int(math.Round(s * scale))
		}
	}

	ib := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: channels,
			SampleRate:  int(buf.SampleRate),
		},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(ib); err != nil {
		return fmt.Errorf("audio: encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("audio: finalize wav: %w", err)
	}
	return nil
}

// WriteWAVFile writes buf to path, creating parent directories and
// replacing any existing file
func WriteWAVFile(path string, buf *Buffer, bitDepth int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("audio: create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audio: create %s: %w", path, err)
	}
	if err := WriteWAV(f, buf, bitDepth); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// DecodeWAV reads an integer PCM wav stream into a float buffer
func DecodeWAV(r io.ReadSeeker) (*Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	ib, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: decode wav: %w", err)
	}

	channels := int(dec.NumChans)
	if ib.Format != nil && ib.Format.NumChannels > 0 {
		channels = ib.Format.NumChannels
	}
	if channels <= 0 {
		return nil, ErrInvalidWAV
	}
	bitDepth := int(dec.BitDepth)
	if bitDepth <= 0 {
		bitDepth = ib.SourceBitDepth
	}
	if bitDepth <= 0 {
		return nil, ErrInvalidWAV
	}

	frames := len(ib.Data) / channels
	out := NewBuffer(channels, frames, float64(dec.SampleRate))

	scale := fullScale(bitDepth)
	offset := 0.0
	if bitDepth == 8 {
		// 8-bit wav is unsigned
		offset = 128
		scale = 127
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			out.Data[ch][i] = float32((float64(ib.Data[i*channels+ch]) - offset) / scale)
		}
	}
	return out, nil
}

// ReadWAVFile opens and decodes a wav file
func ReadWAVFile(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open %s: %w", path, err)
	}
	defer f.Close()

	buf, err := DecodeWAV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return buf, nil
}
