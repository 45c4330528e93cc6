package filter

import (
	"errors"
	"sync"
	"sync/atomic"
)

// NumSlots is the number of independent filters in a Bank
const NumSlots = 4

// Slot defaults used until a slot is configured
const (
	DefaultFrequency = 1000.0
	DefaultQ         = 0.707
)

// ErrInvalidSlot is returned for slot numbers outside 1..NumSlots
var ErrInvalidSlot = errors.New("filter: slot must be between 1 and 4")

// SlotConfig describes one slot as seen by the control side
type SlotConfig struct {
	Enabled   bool
	Type      Type
	Frequency float64
	Q         float64
}

// slotState is an immutable snapshot published to the audio thread
type slotState struct {
	cfg    SlotConfig
	coeffs Coefficients
}

// Bank holds four independently enabled biquads that are applied in slot
// order. Control methods may be called from any goroutine; Process belongs
// to the audio thread and only reads published snapshots.
type Bank struct {
	sampleRate float64

	mu      sync.Mutex // serializes writers
	slots   [NumSlots]atomic.Pointer[slotState]
	editing atomic.Int32

	// audio thread only
	sections [NumSlots]*Biquad
	applied  [NumSlots]*slotState
	running  [NumSlots]bool
}

// NewBank creates a bank with every slot disabled
func NewBank(sampleRate float64, channels int) *Bank {
	b := &Bank{sampleRate: sampleRate}
	for i := range b.sections {
		b.sections[i] = NewBiquad(channels)
		cfg := SlotConfig{Type: LowPass, Frequency: DefaultFrequency, Q: DefaultQ}
		c, _ := Design(cfg.Type, sampleRate, cfg.Frequency, cfg.Q)
		b.slots[i].Store(&slotState{cfg: cfg, coeffs: c})
	}
	b.editing.Store(1)
	return b
}

// SampleRate returns the rate coefficients are designed for
func (b *Bank) SampleRate() float64 {
	return b.sampleRate
}

func slotIndex(slot int) (int, error) {
	if slot < 1 || slot > NumSlots {
		return 0, ErrInvalidSlot
	}
	return slot - 1, nil
}

// SetFilter designs fresh coefficients for slot and swaps them in.
// An unknown type leaves the slot unchanged. Frequency and Q are not clamped.
func (b *Bank) SetFilter(slot int, t Type, frequency, q float64) error {
	idx, err := slotIndex(slot)
	if err != nil {
		return err
	}
	c, ok := Design(t, b.sampleRate, frequency, q)
	if !ok {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	cur := b.slots[idx].Load()
	next := &slotState{
		cfg: SlotConfig{
			Enabled:   cur.cfg.Enabled,
			Type:      t,
			Frequency: frequency,
			Q:         q,
		},
		coeffs: c,
	}
	b.slots[idx].Store(next)
	return nil
}

// SetEnabled turns processing of slot on or off
func (b *Bank) SetEnabled(slot int, enabled bool) error {
	idx, err := slotIndex(slot)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	cur := b.slots[idx].Load()
	if cur.cfg.Enabled == enabled {
		return nil
	}
	next := *cur
	next.cfg.Enabled = enabled
	b.slots[idx].Store(&next)
	return nil
}

// Enabled reports whether slot is processed
func (b *Bank) Enabled(slot int) bool {
	idx, err := slotIndex(slot)
	if err != nil {
		return false
	}
	return b.slots[idx].Load().cfg.Enabled
}

// Slot returns the current configuration of slot
func (b *Bank) Slot(slot int) (SlotConfig, error) {
	idx, err := slotIndex(slot)
	if err != nil {
		return SlotConfig{}, err
	}
	return b.slots[idx].Load().cfg, nil
}

// SlotCoefficients returns the coefficients published for slot
func (b *Bank) SlotCoefficients(slot int) (Coefficients, error) {
	idx, err := slotIndex(slot)
	if err != nil {
		return Coefficients{}, err
	}
	return b.slots[idx].Load().coeffs, nil
}

// SetEditing selects the slot bound to the shared frequency/Q controls.
// Only one slot is edited at a time; all enabled slots still process.
func (b *Bank) SetEditing(slot int) error {
	if _, err := slotIndex(slot); err != nil {
		return err
	}
	b.editing.Store(int32(slot))
	return nil
}

// Editing returns the slot bound to the shared controls
func (b *Bank) Editing() int {
	return int(b.editing.Load())
}

// SetSampleRate redesigns every slot for a new rate. Call before processing
// starts; it also clears the filter memory.
func (b *Bank) SetSampleRate(sampleRate float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sampleRate = sampleRate
	for i := range b.slots {
		cur := b.slots[i].Load()
		c, ok := Design(cur.cfg.Type, sampleRate, cur.cfg.Frequency, cur.cfg.Q)
		if !ok {
			c = Identity
		}
		b.slots[i].Store(&slotState{cfg: cur.cfg, coeffs: c})
	}
	b.Reset()
}

// Reset clears the memory of every section
func (b *Bank) Reset() {
	for i, s := range b.sections {
		s.Reset()
		b.applied[i] = nil
		b.running[i] = false
	}
}

// Process runs enabled slots 1..4 over block in place. Disabled slots are
// skipped, not run with unity coefficients - no allocations. A slot that
// comes back on starts from cleared memory.
func (b *Bank) Process(block [][]float32) {
	for i := range b.sections {
		st := b.slots[i].Load()
		if !st.cfg.Enabled {
			b.running[i] = false
			continue
		}
		if !b.running[i] {
			b.sections[i].Reset()
			b.running[i] = true
		}
		if st != b.applied[i] {
			b.sections[i].SetCoefficients(st.coeffs)
			b.applied[i] = st
		}
		b.sections[i].ProcessMulti(block)
	}
}
