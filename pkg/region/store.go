// Package region cuts the loaded sound into the parts before, inside and
// after a selection and makes the selection playable.
package region

import (
	"errors"
	"fmt"
	"sync"

	"github.com/justyntemme/imagine/pkg/audio"
)

var (
	// ErrEmptyRegion is returned when start and end are equal
	ErrEmptyRegion = errors.New("region: empty selection")
	// ErrOutOfRange is returned when the selection leaves the buffer
	ErrOutOfRange = errors.New("region: selection out of range")
	// ErrNoAudio is returned when there is no main buffer to slice
	ErrNoAudio = errors.New("region: no audio loaded")
)

// Slice copies buf into the frames before start, between start and end,
// and from end on. Reversed bounds are swapped. The parts never share
// memory with buf and concatenate back to it exactly.
func Slice(buf *audio.Buffer, start, end int) (pre, selected, post *audio.Buffer, err error) {
	if start > end {
		start, end = end, start
	}
	if start == end {
		return nil, nil, nil, ErrEmptyRegion
	}
	n := buf.NumSamples()
	if start < 0 || end > n {
		return nil, nil, nil, fmt.Errorf("%w: [%d, %d) of %d frames", ErrOutOfRange, start, end, n)
	}
	return buf.Slice(0, start), buf.Slice(start, end), buf.Slice(end, n), nil
}

// Store holds the main buffer and the parts derived from the current
// selection. It belongs to the control side; the audio thread never reads it.
type Store struct {
	mu       sync.RWMutex
	main     *audio.Buffer
	pre      *audio.Buffer
	selected *audio.Buffer
	post     *audio.Buffer
	start    int
	end      int
}

func NewStore() *Store {
	return &Store{}
}

// SetMain replaces the main buffer and drops the parts cut from the old one
func (s *Store) SetMain(buf *audio.Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.main = buf
	s.pre, s.selected, s.post = nil, nil, nil
	s.start, s.end = 0, 0
}

func (s *Store) Main() *audio.Buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.main
}

func (s *Store) Pre() *audio.Buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pre
}

func (s *Store) Selected() *audio.Buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

func (s *Store) Post() *audio.Buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.post
}

// Selection returns the current bounds; ok is false when nothing is selected
func (s *Store) Selection() (start, end int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.start, s.end, s.selected != nil
}

// Cut slices the main buffer and installs the parts. On error the previous
// parts stay in place.
func (s *Store) Cut(start, end int) (selected *audio.Buffer, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.main == nil {
		return nil, ErrNoAudio
	}
	pre, sel, post, err := Slice(s.main, start, end)
	if err != nil {
		return nil, err
	}
	if start > end {
		start, end = end, start
	}
	s.pre, s.selected, s.post = pre, sel, post
	s.start, s.end = start, end
	return sel, nil
}
