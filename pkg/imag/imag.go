// Package imag reads and writes .imag sound documents: an XML root holding
// one AudioData element whose text is the base64 of the sample data as
// little-endian float32, channel after channel.
package imag

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/justyntemme/imagine/pkg/audio"
)

// FormatVersion is written to every document
const FormatVersion = "1.0.0"

// Extension is the file suffix of the format
const Extension = ".imag"

var (
	// ErrMalformed is returned for documents missing the expected structure
	ErrMalformed = errors.New("imag: malformed document")
	// ErrUnsupportedVersion is returned for documents from an incompatible format version
	ErrUnsupportedVersion = errors.New("imag: unsupported format version")
)

// versions this package reads
var supported = mustConstraint(">= 1.0.0, < 2.0.0")

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

type document struct {
	XMLName   xml.Name   `xml:"Root"`
	Version   string     `xml:"Version,attr,omitempty"`
	AudioData *audioData `xml:"AudioData"`
}

type audioData struct {
	SampleRate  string `xml:"SampleRate,attr"`
	NumChannels string `xml:"NumChannels,attr"`
	Blob        string `xml:",chardata"`
}

// Encode writes buf as an .imag document
func Encode(w io.Writer, buf *audio.Buffer) error {
	channels := buf.NumChannels()
	if channels == 0 {
		return fmt.Errorf("imag: cannot encode a buffer with no channels")
	}

	raw := make([]byte, 4*channels*buf.NumSamples())
	off := 0
	for _, ch := range buf.Data {
		for _, v := range ch {
			binary.LittleEndian.PutUint32(raw[off:], math.Float32bits(v))
			off += 4
		}
	}

	doc := document{
		Version: FormatVersion,
		AudioData: &audioData{
			SampleRate:  strconv.Itoa(int(math.Round(buf.SampleRate))),
			NumChannels: strconv.Itoa(channels),
			Blob:        base64.StdEncoding.EncodeToString(raw),
		},
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("imag: encode: %w", err)
	}
	return enc.Close()
}

// Decode reads an .imag document
func Decode(r io.Reader) (*audio.Buffer, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	version := doc.Version
	if version == "" {
		version = FormatVersion
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return nil, fmt.Errorf("%w: version %q: %v", ErrMalformed, doc.Version, err)
	}
	if !supported.Check(v) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, v)
	}

	ad := doc.AudioData
	if ad == nil {
		return nil, fmt.Errorf("%w: no AudioData element", ErrMalformed)
	}
	rate, err := strconv.Atoi(ad.SampleRate)
	if err != nil || rate <= 0 {
		return nil, fmt.Errorf("%w: SampleRate %q", ErrMalformed, ad.SampleRate)
	}
	channels, err := strconv.Atoi(ad.NumChannels)
	if err != nil || channels <= 0 {
		return nil, fmt.Errorf("%w: NumChannels %q", ErrMalformed, ad.NumChannels)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ad.Blob))
	if err != nil {
		return nil, fmt.Errorf("%w: audio data: %v", ErrMalformed, err)
	}
	if len(raw)%(4*channels) != 0 {
		return nil, fmt.Errorf("%w: %d data bytes do not fill %d channels", ErrMalformed, len(raw), channels)
	}

	frames := len(raw) / (4 * channels)
	buf := audio.NewBuffer(channels, frames, float64(rate))
	off := 0
	for ch := range buf.Data {
		for i := range buf.Data[ch] {
			buf.Data[ch][i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[off:]))
			off += 4
		}
	}
	return buf, nil
}

// SaveFile writes buf to path, creating parent directories
func SaveFile(path string, buf *audio.Buffer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("imag: create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("imag: create %s: %w", path, err)
	}
	if err := Encode(f, buf); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads the document at path
func LoadFile(path string) (*audio.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("imag: open %s: %w", path, err)
	}
	defer f.Close()

	buf, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return buf, nil
}

// LoadFileViaWAV reads the document at path and passes the samples through
// a 16-bit WAV written in tmpDir, the way a loaded document becomes the
// playable sound. Samples come back within 16-bit quantisation of the
// document's.
func LoadFileViaWAV(path, tmpDir string) (*audio.Buffer, error) {
	buf, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	tmp := filepath.Join(tmpDir, "imag_load.wav")
	if err := audio.WriteWAVFile(tmp, buf, audio.DefaultBitDepth); err != nil {
		return nil, fmt.Errorf("imag: intermediate wav: %w", err)
	}
	return audio.ReadWAVFile(tmp)
}
