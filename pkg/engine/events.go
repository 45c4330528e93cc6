package engine

import (
	"sync"

	"github.com/justyntemme/imagine/pkg/generate"
	"github.com/justyntemme/imagine/pkg/region"
	"github.com/justyntemme/imagine/pkg/sampler"
)

// EventKind identifies a notification delivered to subscribers
type EventKind int

const (
	KindSoundLoaded EventKind = iota
	KindRegionReady
	KindRegionFailed
	KindGenerationStarted
	KindGenerationDone
	KindGenerationFailed
	KindParameterChanged
	KindAlert
)

var kindNames = [...]string{
	"SoundLoaded", "RegionReady", "RegionFailed", "GenerationStarted",
	"GenerationDone", "GenerationFailed", "ParameterChanged", "Alert",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// Event is implemented by every notification type below
type Event interface {
	Kind() EventKind
}

// SoundLoadedEvent reports a new playable sound
type SoundLoadedEvent struct {
	Sound  *sampler.Sound
	Source string
}

// RegionReadyEvent reports an exported and installed selection
type RegionReadyEvent struct {
	Result region.Result
}

// RegionFailedEvent reports an export that did not install a sound
type RegionFailedEvent struct {
	Result region.Result
}

type GenerationStartedEvent struct {
	Request generate.Request
}

type GenerationDoneEvent struct {
	Result generate.Result
	Sound  *sampler.Sound
}

type GenerationFailedEvent struct {
	Result generate.Result
}

// ParameterChangedEvent carries the new normalized value
type ParameterChangedEvent struct {
	ID         uint32
	Normalized float64
	Plain      float64
}

// AlertEvent is a user-facing message, such as a malformed .imag file
type AlertEvent struct {
	Message string
	Err     error
}

func (SoundLoadedEvent) Kind() EventKind       { return KindSoundLoaded }
func (RegionReadyEvent) Kind() EventKind       { return KindRegionReady }
func (RegionFailedEvent) Kind() EventKind      { return KindRegionFailed }
func (GenerationStartedEvent) Kind() EventKind { return KindGenerationStarted }
func (GenerationDoneEvent) Kind() EventKind    { return KindGenerationDone }
func (GenerationFailedEvent) Kind() EventKind  { return KindGenerationFailed }
func (ParameterChangedEvent) Kind() EventKind  { return KindParameterChanged }
func (AlertEvent) Kind() EventKind             { return KindAlert }

// Listener receives events on the goroutine that produced them: the
// caller of a control method, the region worker or a generation job
type Listener func(Event)

type listeners struct {
	mu   sync.Mutex
	fns  map[int]Listener
	next int
}

func (l *listeners) subscribe(fn Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]Listener)
	}
	id := l.next
	l.next++
	l.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

func (l *listeners) emit(ev Event) {
	l.mu.Lock()
	fns := make([]Listener, 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
