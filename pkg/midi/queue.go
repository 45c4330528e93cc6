package midi

import (
	"sync"
)

// DefaultBufferCapacity bounds the events accepted per block
const DefaultBufferCapacity = 512

// Buffer is a per-block event list in arrival order. Its backing array is
// sized once; Add drops events past capacity instead of growing.
type Buffer struct {
	events  []Event
	dropped int
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &Buffer{events: make([]Event, 0, capacity)}
}

// Add appends an event. It returns false when the buffer is full.
func (b *Buffer) Add(event Event) bool {
	if b.Full() {
		b.dropped++
		return false
	}
	b.events = append(b.events, event)
	return true
}

// Full reports whether another Add would be dropped
func (b *Buffer) Full() bool {
	return len(b.events) == cap(b.events)
}

func (b *Buffer) Len() int {
	return len(b.events)
}

func (b *Buffer) At(i int) Event {
	return b.events[i]
}

// Events returns the stored events; the slice is reused after Clear
func (b *Buffer) Events() []Event {
	return b.events
}

// Dropped returns how many events were rejected since the last Clear
func (b *Buffer) Dropped() int {
	return b.dropped
}

func (b *Buffer) Clear() {
	for i := range b.events {
		b.events[i] = nil
	}
	b.events = b.events[:0]
	b.dropped = 0
}

// InRange calls fn for every event with start <= offset < end, in arrival
// order
func (b *Buffer) InRange(start, end int32, fn func(Event)) {
	for _, e := range b.events {
		if off := e.SampleOffset(); off >= start && off < end {
			fn(e)
		}
	}
}

// EventQueue hands events from a producer goroutine (keyboard, MIDI input)
// to the goroutine that renders blocks.
type EventQueue struct {
	mu      sync.Mutex
	pending []Event
}

func NewEventQueue() *EventQueue {
	return &EventQueue{
		pending: make([]Event, 0, 128),
	}
}

func (q *EventQueue) Add(event Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, event)
}

// DrainInto moves pending events into dst at sample offset 0. Events that
// do not fit stay queued for the next block.
func (q *EventQueue) DrainInto(dst *Buffer) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for n < len(q.pending) {
		if dst.Full() {
			break
		}
		dst.Add(atOffset(q.pending[n], 0))
		n++
	}
	copy(q.pending, q.pending[n:])
	for i := len(q.pending) - n; i < len(q.pending); i++ {
		q.pending[i] = nil
	}
	q.pending = q.pending[:len(q.pending)-n]
	return n
}

func (q *EventQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func atOffset(e Event, offset int32) Event {
	switch ev := e.(type) {
	case NoteOnEvent:
		ev.Offset = offset
		return ev
	case NoteOffEvent:
		ev.Offset = offset
		return ev
	case ControlChangeEvent:
		ev.Offset = offset
		return ev
	case PitchBendEvent:
		ev.Offset = offset
		return ev
	}
	return e
}
