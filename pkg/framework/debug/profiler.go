package debug

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Profiler collects timing statistics for named sections. It locks, so use
// it around offline rendering and control operations, never inside a
// real-time callback.
type Profiler struct {
	mu           sync.RWMutex
	measurements map[string]*Measurement
	enabled      atomic.Bool
	maxSamples   int
}

// Measurement holds timing statistics for a profiled section.
type Measurement struct {
	Name    string
	Count   uint64
	Total   time.Duration
	Min     time.Duration
	Max     time.Duration
	Last    time.Duration
	samples []time.Duration
	next    int
}

// NewProfiler creates a new profiler keeping maxSamples recent timings per section.
func NewProfiler(maxSamples int) *Profiler {
	if maxSamples <= 0 {
		maxSamples = 1000
	}
	p := &Profiler{
		measurements: make(map[string]*Measurement),
		maxSamples:   maxSamples,
	}
	p.enabled.Store(true)
	return p
}

// SetEnabled enables or disables profiling.
func (p *Profiler) SetEnabled(enabled bool) {
	p.enabled.Store(enabled)
}

// Start begins timing a named section and returns the func that ends it.
func (p *Profiler) Start(name string) func() {
	if !p.enabled.Load() {
		return func() {}
	}
	start := time.Now()
	return func() {
		p.Record(name, time.Since(start))
	}
}

// Record stores one timing for name.
func (p *Profiler) Record(name string, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, exists := p.measurements[name]
	if !exists {
		m = &Measurement{
			Name:    name,
			Min:     elapsed,
			Max:     elapsed,
			samples: make([]time.Duration, 0, p.maxSamples),
		}
		p.measurements[name] = m
	}

	m.Count++
	m.Total += elapsed
	m.Last = elapsed
	if elapsed < m.Min {
		m.Min = elapsed
	}
	if elapsed > m.Max {
		m.Max = elapsed
	}

	if len(m.samples) < p.maxSamples {
		m.samples = append(m.samples, elapsed)
	} else {
		m.samples[m.next] = elapsed
		m.next = (m.next + 1) % p.maxSamples
	}
}

// Measurement returns a copy of the statistics for name.
func (p *Profiler) Measurement(name string) (Measurement, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	m, exists := p.measurements[name]
	if !exists {
		return Measurement{}, false
	}
	c := *m
	c.samples = append([]time.Duration(nil), m.samples...)
	return c, true
}

// Report renders every section sorted by name.
func (p *Profiler) Report() string {
	p.mu.RLock()
	names := make([]string, 0, len(p.measurements))
	for name := range p.measurements {
		names = append(names, name)
	}
	p.mu.RUnlock()

	if len(names) == 0 {
		return "No measurements recorded\n"
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		m, _ := p.Measurement(name)
		fmt.Fprintf(&sb, "%-16s count=%d avg=%v p95=%v min=%v max=%v\n",
			name, m.Count, m.Average(), m.Percentile(95), m.Min, m.Max)
	}
	return sb.String()
}

// Average returns the mean time for this measurement.
func (m Measurement) Average() time.Duration {
	if m.Count == 0 {
		return 0
	}
	return m.Total / time.Duration(m.Count)
}

// Percentile returns the p-th percentile of the recent samples.
func (m Measurement) Percentile(p float64) time.Duration {
	if len(m.samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), m.samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * p / 100.0)
	return sorted[index]
}

// BlockProfiler times block rendering and relates it to the real-time budget.
type BlockProfiler struct {
	*Profiler
	sampleRate float64
	blockSize  int
}

// BlockSection is the section name used by StartBlock.
const BlockSection = "block"

// NewBlockProfiler creates a profiler for blocks of blockSize frames.
func NewBlockProfiler(sampleRate float64, blockSize int) *BlockProfiler {
	return &BlockProfiler{
		Profiler:   NewProfiler(1000),
		sampleRate: sampleRate,
		blockSize:  blockSize,
	}
}

// StartBlock begins timing one block.
func (b *BlockProfiler) StartBlock() func() {
	return b.Start(BlockSection)
}

// Budget is the wall time one block represents.
func (b *BlockProfiler) Budget() time.Duration {
	return time.Duration(float64(b.blockSize) / b.sampleRate * float64(time.Second))
}

// Load returns the average block time as a percentage of the budget.
func (b *BlockProfiler) Load() float64 {
	m, ok := b.Measurement(BlockSection)
	if !ok || b.Budget() == 0 {
		return 0
	}
	return float64(m.Average()) / float64(b.Budget()) * 100.0
}

// BlockReport appends the load summary to the section report.
func (b *BlockProfiler) BlockReport() string {
	return b.Report() + fmt.Sprintf("budget=%v load=%.2f%% rate=%.0fHz block=%d\n",
		b.Budget(), b.Load(), b.sampleRate, b.blockSize)
}
