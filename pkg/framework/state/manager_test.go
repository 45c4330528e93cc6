package state

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/justyntemme/imagine/pkg/framework/param"
)

func newRegistry(t *testing.T) *param.Registry {
	t.Helper()
	r := param.NewRegistry()
	err := r.Add(
		param.GainParameter(1, "Gain", -60, 12, 0).Build(),
		param.FrequencyParameter(2, "Frequency", 20, 5000, 1000).Build(),
	)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestSaveLoadParameters(t *testing.T) {
	src := newRegistry(t)
	src.Set(1, 0.25)
	src.Set(2, 0.75)

	var buf bytes.Buffer
	if err := NewManager(src).Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	dst := newRegistry(t)
	if err := NewManager(dst).Load(&buf); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for _, id := range []uint32{1, 2} {
		want := src.Get(id).GetValue()
		got := dst.Get(id).GetValue()
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("Parameter %d: got %f, want %f", id, got, want)
		}
	}
}

func TestCustomChunkRoundTrip(t *testing.T) {
	payload := []byte("sound data")

	src := NewManager(newRegistry(t))
	src.SetCustomState(func(w io.Writer) error {
		_, err := w.Write(payload)
		return err
	}, nil)

	var buf bytes.Buffer
	if err := src.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var got []byte
	dst := NewManager(newRegistry(t))
	dst.SetCustomState(nil, func(r io.Reader) error {
		var err error
		got, err = io.ReadAll(r)
		return err
	})
	if err := dst.Load(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Expected chunk %q, got %q", payload, got)
	}

	// A manager without a loader skips the chunk
	if err := NewManager(newRegistry(t)).Load(bytes.NewReader(buf.Bytes())); err != nil {
		t.Errorf("Skipping the chunk failed: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	m := NewManager(newRegistry(t))

	if err := m.Load(bytes.NewReader([]byte("NOPE00"))); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState for bad magic, got %v", err)
	}
	if err := m.Load(bytes.NewReader(nil)); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState for empty input, got %v", err)
	}

	loadErr := errors.New("corrupt chunk")
	src := NewManager(newRegistry(t))
	src.SetCustomState(func(w io.Writer) error {
		_, err := w.Write([]byte{1})
		return err
	}, nil)
	var buf bytes.Buffer
	src.Save(&buf)

	m.SetCustomState(nil, func(io.Reader) error { return loadErr })
	if err := m.Load(&buf); !errors.Is(err, loadErr) {
		t.Errorf("Expected the loader's error, got %v", err)
	}
}
