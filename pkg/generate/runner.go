package generate

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/justyntemme/imagine/pkg/framework/debug"
)

// Result is the outcome of one request
type Result struct {
	Request  Request
	Path     string
	Err      error
	Duration time.Duration
}

// Runner validates requests and runs them through a Handler off the
// caller's goroutine
type Runner struct {
	handler  Handler
	parallel int
	log      *debug.Logger
}

// NewRunner creates a runner; parallel bounds Batch concurrency (<= 0 means 1)
func NewRunner(h Handler, parallel int) *Runner {
	if parallel <= 0 {
		parallel = 1
	}
	return &Runner{
		handler:  h,
		parallel: parallel,
		log:      debug.Default().Named("generate"),
	}
}

// Generate runs one request synchronously. The returned path must exist.
func (r *Runner) Generate(ctx context.Context, req Request) Result {
	start := time.Now()
	res := Result{Request: req}

	if err := req.Validate(); err != nil {
		res.Err = err
	} else if path, err := r.handler.Generate(ctx, req); err != nil {
		res.Err = err
	} else if _, err := os.Stat(path); err != nil {
		res.Err = fmt.Errorf("%w: %s: %v", ErrBadResult, path, err)
	} else {
		res.Path = path
	}
	res.Duration = time.Since(start)

	if res.Err != nil {
		r.log.Errorw("generation failed", "image", req.ImagePath, "err", res.Err)
	} else {
		r.log.Infow("generation done", "image", req.ImagePath, "path", res.Path, "took", res.Duration.Round(time.Millisecond))
	}
	return res
}

// Job is a generation running in the background
type Job struct {
	cancel context.CancelFunc
	done   chan struct{}
	result Result
}

// Start runs req on its own goroutine. done, when non-nil, is called with
// the result on that goroutine before Wait returns.
func (r *Runner) Start(ctx context.Context, req Request, done func(Result)) *Job {
	ctx, cancel := context.WithCancel(ctx)
	j := &Job{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(j.done)
		defer cancel()
		j.result = r.Generate(ctx, req)
		if done != nil {
			done(j.result)
		}
	}()
	return j
}

// Cancel asks the job to stop; the result then carries the context error
func (j *Job) Cancel() {
	j.cancel()
}

// Done is closed when the job has finished
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes and returns its result
func (j *Job) Wait() Result {
	<-j.done
	return j.result
}

// Batch runs reqs with at most the runner's parallelism. Results keep the
// order of reqs; the error is the first failure, if any.
func (r *Runner) Batch(ctx context.Context, reqs []Request) ([]Result, error) {
	results := make([]Result, len(reqs))

	g := new(errgroup.Group)
	g.SetLimit(r.parallel)
	for i, req := range reqs {
		g.Go(func() error {
			results[i] = r.Generate(ctx, req)
			return results[i].Err
		})
	}
	return results, g.Wait()
}
