package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/justyntemme/imagine/pkg/audio"
)

// testEnv writes a config that keeps all files under a temp dir
func testEnv(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	cfgPath = filepath.Join(dir, "imagine.toml")
	body := fmt.Sprintf(`sample_rate = 8000
block_size = 64
voices = 4
work_dir = %q

[log]
level = "error"
`, filepath.Join(dir, "work"))
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, cfgPath
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func writeDC(t *testing.T, path string, frames int, v float32) {
	t.Helper()
	buf := audio.NewBuffer(1, frames, 8000)
	for i := range buf.Data[0] {
		buf.Data[0][i] = v
	}
	if err := audio.WriteWAVFile(path, buf, audio.DefaultBitDepth); err != nil {
		t.Fatal(err)
	}
}

func TestRunWithoutCommand(t *testing.T) {
	if _, err := runCmd(t); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("Expected flag.ErrHelp, got %v", err)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	_, cfg := testEnv(t)
	_, err := runCmd(t, "-config", cfg, "juggle")
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("Expected unknown command error, got %v", err)
	}
}

func TestParseRegion(t *testing.T) {
	tests := []struct {
		in         string
		start, end int
		ok         bool
	}{
		{"0:100", 0, 100, true},
		{" 10 : 20 ", 10, 20, true},
		{"100", 0, 0, false},
		{"a:10", 0, 0, false},
		{"10:b", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			start, end, err := parseRegion(tt.in)
			if (err == nil) != tt.ok {
				t.Fatalf("Unexpected error state: %v", err)
			}
			if tt.ok && (start != tt.start || end != tt.end) {
				t.Errorf("Expected %d:%d, got %d:%d", tt.start, tt.end, start, end)
			}
		})
	}
}

func TestParamsListsParameters(t *testing.T) {
	_, cfg := testEnv(t)
	out, err := runCmd(t, "-config", cfg, "params")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"NAME", "Gain", "Attack"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in listing:\n%s", want, out)
		}
	}
}

func TestConvertRoundTrip(t *testing.T) {
	dir, cfg := testEnv(t)
	wavIn := filepath.Join(dir, "in.wav")
	doc := filepath.Join(dir, "in.imag")
	wavOut := filepath.Join(dir, "out.wav")
	writeDC(t, wavIn, 100, 0.5)

	if _, err := runCmd(t, "-config", cfg, "convert", "-in", wavIn, "-out", doc); err != nil {
		t.Fatal(err)
	}
	if _, err := runCmd(t, "-config", cfg, "convert", "-in", doc, "-out", wavOut); err != nil {
		t.Fatal(err)
	}

	buf, err := audio.ReadWAVFile(wavOut)
	if err != nil {
		t.Fatal(err)
	}
	if buf.NumSamples() != 100 {
		t.Errorf("Expected 100 frames, got %d", buf.NumSamples())
	}
	if d := buf.Data[0][50] - 0.5; d > 1e-3 || d < -1e-3 {
		t.Errorf("Expected 0.5, got %f", buf.Data[0][50])
	}

	if _, err := runCmd(t, "-config", cfg, "convert", "-in", wavIn, "-out", filepath.Join(dir, "x.mp3")); err == nil {
		t.Error("Expected an error for an unknown target format")
	}
}

func TestRegionWritesParts(t *testing.T) {
	dir, cfg := testEnv(t)
	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "parts")
	writeDC(t, in, 1000, 0.25)

	if _, err := runCmd(t, "-config", cfg, "region", "-in", in, "-region", "200:700", "-out", out); err != nil {
		t.Fatal(err)
	}
	for name, frames := range map[string]int{"pre.wav": 200, "selected.wav": 500, "post.wav": 300} {
		buf, err := audio.ReadWAVFile(filepath.Join(out, name))
		if err != nil {
			t.Fatal(err)
		}
		if buf.NumSamples() != frames {
			t.Errorf("%s: expected %d frames, got %d", name, frames, buf.NumSamples())
		}
	}

	if _, err := runCmd(t, "-config", cfg, "region", "-in", in, "-region", "200:200", "-out", out); err == nil {
		t.Error("Expected an error for an empty region")
	}
}

func writeSong(t *testing.T, path string) {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(960)
	var tr smf.Track
	tr.Add(0, gomidi.NoteOn(0, 60, 100))
	tr.Add(960, gomidi.NoteOff(0, 60))
	tr.Close(0)
	if err := s.Add(tr); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteFile(path); err != nil {
		t.Fatal(err)
	}
}

func TestReadSMFOrdersByTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mid")
	writeSong(t, path)

	msgs, err := readSMF(path, 8000)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	// one quarter note at the default 120 bpm
	if msgs[0].frame != 0 || msgs[1].frame != 4000 {
		t.Errorf("Expected frames 0 and 4000, got %d and %d", msgs[0].frame, msgs[1].frame)
	}
}

func TestRenderMIDI(t *testing.T) {
	dir, cfg := testEnv(t)
	in := filepath.Join(dir, "in.wav")
	song := filepath.Join(dir, "song.mid")
	out := filepath.Join(dir, "render.wav")
	writeDC(t, in, 8000, 0.25)
	writeSong(t, song)

	if _, err := runCmd(t, "-config", cfg, "render", "-in", in, "-midi", song, "-out", out, "-tail", "0.5"); err != nil {
		t.Fatal(err)
	}
	buf, err := audio.ReadWAVFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if buf.NumChannels() != 2 {
		t.Errorf("Expected stereo output, got %d channels", buf.NumChannels())
	}
	if buf.NumSamples() != 8000 {
		t.Errorf("Expected 8000 frames, got %d", buf.NumSamples())
	}
	if buf.Peak() == 0 {
		t.Error("Expected the note to be audible")
	}
}

func TestGenerateWithoutGenerator(t *testing.T) {
	dir, cfg := testEnv(t)
	if _, err := runCmd(t, "-config", cfg, "generate", "-image", filepath.Join(dir, "x.png")); err == nil {
		t.Error("Expected an error without a configured generator")
	}
}
