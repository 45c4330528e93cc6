package region

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/justyntemme/imagine/pkg/audio"
	"github.com/justyntemme/imagine/pkg/framework/debug"
	"github.com/justyntemme/imagine/pkg/sampler"
)

var (
	// ErrClosed is returned by a Slicer after Close
	ErrClosed = errors.New("region: slicer closed")
	// ErrNoRegion is returned by Wait before any region was requested
	ErrNoRegion = errors.New("region: no region requested")
	// ErrSuperseded is reported for an export dropped in favour of a newer one
	ErrSuperseded = errors.New("region: superseded by a newer selection")
)

// Installer receives the exported selection as the playable sound
type Installer interface {
	ClearSounds()
	LoadSound(buf *audio.Buffer, name string) *sampler.Sound
}

// Result describes a finished export
type Result struct {
	Seq   uint64
	Start int
	End   int
	Path  string
	Sound *sampler.Sound
	Err   error
}

type job struct {
	seq        uint64
	start, end int
	selected   *audio.Buffer
}

// Slicer applies selections to a Store and exports each selected part to a
// fixed WAV path on a background worker, then installs the reloaded file as
// the only sound. Only the most recent request is exported.
type Slicer struct {
	store      *Store
	installer  Installer
	path       string
	sampleRate float64
	log        *debug.Logger

	mu      sync.Mutex
	seq     uint64
	settled uint64 // latest seq that installed or finished
	pending *job
	last    Result
	changed chan struct{}
	onDone  func(Result)

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSlicer starts the export worker. path is the region file, rewritten on
// every export; sampleRate is the rate the file is written at.
func NewSlicer(store *Store, installer Installer, path string, sampleRate float64) *Slicer {
	s := &Slicer{
		store:      store,
		installer:  installer,
		path:       path,
		sampleRate: sampleRate,
		log:        debug.Default().Named("region"),
		changed:    make(chan struct{}),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Path returns the region file location
func (s *Slicer) Path() string {
	return s.path
}

// OnDone sets a callback run on the worker goroutine after every export
// that was not superseded
func (s *Slicer) OnDone(fn func(Result)) {
	s.mu.Lock()
	s.onDone = fn
	s.mu.Unlock()
}

// SetRegion cuts the main buffer at [start, end) and queues the export of
// the selected part. Bounds are swapped when reversed. An empty or
// out-of-range selection returns an error and changes nothing; otherwise
// the current sounds are cleared before the export is queued.
func (s *Slicer) SetRegion(start, end int) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	sel, err := s.store.Cut(start, end)
	if err != nil {
		return err
	}
	if start > end {
		start, end = end, start
	}

	s.mu.Lock()
	s.installer.ClearSounds()
	s.seq++
	s.pending = &job{seq: s.seq, start: start, end: end, selected: sel}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// Wait blocks until the latest requested export has finished or ctx ends
func (s *Slicer) Wait(ctx context.Context) (Result, error) {
	for {
		s.mu.Lock()
		want, res, changed := s.seq, s.last, s.changed
		s.mu.Unlock()

		if want == 0 {
			return Result{}, ErrNoRegion
		}
		if res.Seq == want {
			return res, res.Err
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-s.done:
			return Result{}, ErrClosed
		}
	}
}

// Cancel drops the queued export and stops a running one from installing
// its sound. Wait reports ErrSuperseded until the next SetRegion. It does
// nothing when no export is outstanding.
func (s *Slicer) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settled == s.seq {
		return
	}
	s.seq++
	s.settled = s.seq
	s.pending = nil
	s.last = Result{Seq: s.seq, Err: ErrSuperseded}
	close(s.changed)
	s.changed = make(chan struct{})
}

// Last returns the most recent finished export
func (s *Slicer) Last() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Close stops the worker. A running export finishes first.
func (s *Slicer) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
	return nil
}

func (s *Slicer) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		s.mu.Lock()
		j := s.pending
		s.pending = nil
		s.mu.Unlock()

		if j != nil {
			s.finish(s.export(j))
		}
	}
}

func (s *Slicer) export(j *job) Result {
	res := Result{Seq: j.seq, Start: j.start, End: j.end, Path: s.path}

	sel := audio.Resample(j.selected, s.sampleRate)
	if err := audio.WriteWAVFile(s.path, sel, audio.DefaultBitDepth); err != nil {
		res.Err = fmt.Errorf("export region: %w", err)
		return res
	}

	buf, err := audio.ReadWAVFile(s.path)
	if err != nil {
		res.Err = fmt.Errorf("reload region: %w", err)
		return res
	}

	// Holding mu orders the install against SetRegion's clear: a newer
	// selection has already cleared the sampler for its own export.
	s.mu.Lock()
	defer s.mu.Unlock()
	if j.seq != s.seq {
		res.Err = ErrSuperseded
		return res
	}
	res.Sound = s.installer.LoadSound(buf, s.path)
	s.settled = j.seq
	return res
}

func (s *Slicer) finish(res Result) {
	s.mu.Lock()
	stale := res.Seq < s.last.Seq
	if !stale {
		s.settled = max(s.settled, res.Seq)
		s.last = res
		close(s.changed)
		s.changed = make(chan struct{})
	}
	fn := s.onDone
	s.mu.Unlock()

	switch {
	case stale || errors.Is(res.Err, ErrSuperseded):
		s.log.Debugw("region export superseded", "seq", res.Seq)
		return
	case res.Err != nil:
		s.log.Errorw("region export failed", "start", res.Start, "end", res.End, "err", res.Err)
	default:
		s.log.Infow("region ready", "start", res.Start, "end", res.End, "path", res.Path)
	}

	if fn != nil {
		fn(res)
	}
}
