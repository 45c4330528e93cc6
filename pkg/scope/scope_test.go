package scope

import (
	"math"
	"testing"
)

func TestNewRoundsCapacity(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultCapacity},
		{1, 1},
		{100, 128},
		{1024, 1024},
	}
	for _, tt := range tests {
		if got := New(tt.in).Capacity(); got != tt.want {
			t.Errorf("New(%d).Capacity() = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPublishAveragesChannels(t *testing.T) {
	s := New(16)
	s.Publish([][]float32{{1, 0.5, 0}, {0, 0.5, -1}})

	dst := make([]float32, 8)
	n := s.Read(dst)
	if n != 3 {
		t.Fatalf("Expected 3 samples, got %d", n)
	}
	want := []float32{0.5, 0.5, -0.5}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("Sample %d: got %f, want %f", i, dst[i], want[i])
		}
	}
	if s.Available() != 0 {
		t.Errorf("Expected ring drained, %d left", s.Available())
	}
}

func TestPublishDropsOnOverrun(t *testing.T) {
	s := New(8)
	block := [][]float32{make([]float32, 6)}
	s.Publish(block)
	s.Publish(block)

	if s.Available() != 8 {
		t.Errorf("Expected full ring, got %d", s.Available())
	}
	if s.Dropped() != 4 {
		t.Errorf("Expected 4 dropped samples, got %d", s.Dropped())
	}
}

func TestSnapshotReturnsNewest(t *testing.T) {
	s := New(16)
	s.Publish([][]float32{{1, 2, 3, 4, 5}})

	dst := make([]float32, 3)
	if n := s.Snapshot(dst); n != 3 {
		t.Fatalf("Expected 3 samples, got %d", n)
	}
	if dst[0] != 3 || dst[2] != 5 {
		t.Errorf("Expected newest samples 3..5, got %v", dst)
	}
	if s.Available() != 0 {
		t.Errorf("Snapshot should consume everything, %d left", s.Available())
	}
}

func TestWrapAround(t *testing.T) {
	s := New(4)
	dst := make([]float32, 4)
	for round := 0; round < 5; round++ {
		s.Publish([][]float32{{float32(round), float32(round + 1), float32(round + 2)}})
		if n := s.Read(dst); n != 3 {
			t.Fatalf("Round %d: expected 3 samples, got %d", round, n)
		}
		if dst[0] != float32(round) || dst[2] != float32(round+2) {
			t.Errorf("Round %d: got %v", round, dst[:3])
		}
	}
}

func TestPeakAndRMS(t *testing.T) {
	samples := []float32{0.5, -1, 0.25, -0.5}
	if p := Peak(samples); p != 1 {
		t.Errorf("Expected peak 1, got %f", p)
	}

	square := []float32{1, -1, 1, -1}
	if r := RMS(square); math.Abs(float64(r)-1) > 1e-6 {
		t.Errorf("Expected RMS 1 for a full-scale square, got %f", r)
	}
	if RMS(nil) != 0 {
		t.Error("Expected RMS 0 for no samples")
	}
}

func TestSpectrumFindsTone(t *testing.T) {
	const (
		n          = 1024
		sampleRate = 48000.0
		bin        = 64
	)
	freq := BinFrequency(bin, n, sampleRate)

	s := New(n)
	block := make([]float32, n)
	for i := range block {
		block[i] = 0.5 * float32(math.Sin(2*math.Pi*freq*float64(i)/sampleRate))
	}
	s.Publish([][]float32{block})

	mags := s.Spectrum(n)
	if len(mags) != n/2+1 {
		t.Fatalf("Expected %d bins, got %d", n/2+1, len(mags))
	}

	best := 0
	for k := range mags {
		if mags[k] > mags[best] {
			best = k
		}
	}
	if best != bin {
		t.Errorf("Expected peak at bin %d, got %d", bin, best)
	}
	if math.Abs(mags[bin]-0.5) > 0.05 {
		t.Errorf("Expected amplitude near 0.5, got %f", mags[bin])
	}
}

func TestSpectrumOfSilence(t *testing.T) {
	mags := New(64).Spectrum(64)
	for k, m := range mags {
		if m != 0 {
			t.Fatalf("Expected silence, bin %d = %f", k, m)
		}
	}
}

func TestConcurrentPublishAndRead(t *testing.T) {
	s := New(256)
	done := make(chan struct{})
	go func() {
		defer close(done)
		block := [][]float32{make([]float32, 32)}
		for i := 0; i < 1000; i++ {
			s.Publish(block)
		}
	}()

	dst := make([]float32, 64)
	for {
		s.Read(dst)
		select {
		case <-done:
			s.Read(dst)
			return
		default:
		}
	}
}

func BenchmarkPublishStereo(b *testing.B) {
	s := New(DefaultCapacity)
	block := [][]float32{make([]float32, 512), make([]float32, 512)}
	dst := make([]float32, 512)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Publish(block)
		s.Read(dst)
	}
}
