// Package batch runs label verification across many images with bounded
// concurrency, cooperative cancellation, and incremental progress events.
package batch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ttb-tools/labelcheck/internal/model"
)

// DefaultConcurrency bounds in-flight extraction calls when the caller does
// not specify a limit.
const DefaultConcurrency = 5

// State is the runner lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// Item is one batch input: an image and its identity.
type Item struct {
	Name      string
	Image     []byte
	MediaType string
}

// VerifyFunc verifies a single item against the shared application.
type VerifyFunc func(ctx context.Context, item Item, app model.Application) (*model.Verdict, error)

// Runner executes verification over many items in consecutive chunks of at
// most the concurrency limit. Items within a chunk run concurrently; chunk
// N+1 never starts before chunk N has fully settled. A single item's failure
// is recorded and never aborts the chunk or the run. Progress is observed
// through the event channel returned by Start; the runner holds no
// externally visible mutable state beyond the snapshot accessor.
type Runner struct {
	verify VerifyFunc

	mu       sync.Mutex
	state    State
	gen      int
	progress model.BatchProgress

	cancelled atomic.Bool
}

// NewRunner creates an idle Runner.
func NewRunner(verify VerifyFunc) *Runner {
	return &Runner{
		verify: verify,
		state:  StateIdle,
	}
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Snapshot returns a copy of the current progress accumulator.
func (r *Runner) Snapshot() model.BatchProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyProgress(r.progress)
}

// Cancel requests a cooperative stop. The chunk in flight, if any, still
// completes and its results are kept; no further chunks start.
func (r *Runner) Cancel() {
	r.cancelled.Store(true)
}

// Reset forces cancellation, clears all counters and accumulated results,
// and returns the runner to Idle. A run already in flight can no longer
// publish into the cleared accumulator.
func (r *Runner) Reset() {
	r.cancelled.Store(true)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.state = StateIdle
	r.progress = model.BatchProgress{}
}

// Start begins a batch run and returns the progress event channel. One
// snapshot is emitted per settled chunk; the channel is closed when the run
// completes or stops at a cancellation boundary. Start fails if a run is
// already in progress.
func (r *Runner) Start(ctx context.Context, items []Item, app model.Application, concurrency int) (<-chan model.BatchProgress, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	r.mu.Lock()
	if r.state == StateRunning {
		r.mu.Unlock()
		return nil, eris.New("batch: run already in progress")
	}
	r.gen++
	gen := r.gen
	r.state = StateRunning
	r.progress = model.BatchProgress{Total: len(items)}
	r.mu.Unlock()
	r.cancelled.Store(false)

	// Buffered for the maximum number of snapshots so a slow observer never
	// stalls the run.
	chunks := (len(items) + concurrency - 1) / concurrency
	events := make(chan model.BatchProgress, chunks+1)

	go r.run(ctx, gen, items, app, concurrency, events)
	return events, nil
}

func (r *Runner) run(ctx context.Context, gen int, items []Item, app model.Application, concurrency int, events chan<- model.BatchProgress) {
	defer close(events)

	zap.L().Info("batch: starting run",
		zap.Int("items", len(items)),
		zap.Int("concurrency", concurrency),
	)

	for start := 0; start < len(items); start += concurrency {
		// Cancellation is checked only at chunk boundaries.
		if r.cancelled.Load() || ctx.Err() != nil {
			r.finish(gen, StateCancelled)
			return
		}

		chunk := items[start:min(start+concurrency, len(items))]
		verdicts := make([]*model.Verdict, len(chunk))
		failures := make([]model.ItemError, len(chunk))

		r.setInProgress(gen, len(chunk))

		g, gctx := errgroup.WithContext(ctx)
		for i, item := range chunk {
			g.Go(func() error {
				verdict, err := r.verify(gctx, item, app)
				if err != nil {
					zap.L().Warn("batch: item failed",
						zap.String("item", item.Name),
						zap.Error(err),
					)
					failures[i] = model.ItemError{Item: item.Name, Error: err.Error()}
					return nil // a single failure never aborts the chunk
				}
				verdict.ImageName = item.Name
				verdicts[i] = verdict
				return nil
			})
		}
		_ = g.Wait()

		snap, ok := r.settleChunk(gen, chunk, verdicts, failures)
		if !ok {
			// Reset happened mid-chunk; the accumulator is gone.
			return
		}
		events <- snap
	}

	r.finish(gen, StateCompleted)
}

// settleChunk appends the chunk's outcomes to the accumulator and returns
// the snapshot to emit. Results and errors only ever grow.
func (r *Runner) settleChunk(gen int, chunk []Item, verdicts []*model.Verdict, failures []model.ItemError) (model.BatchProgress, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != gen {
		return model.BatchProgress{}, false
	}

	for i := range chunk {
		if verdicts[i] != nil {
			r.progress.Results = append(r.progress.Results, *verdicts[i])
			r.progress.Completed++
		} else {
			r.progress.Errors = append(r.progress.Errors, failures[i])
			r.progress.Failed++
		}
	}
	r.progress.InProgress = 0

	return copyProgress(r.progress), true
}

func (r *Runner) setInProgress(gen, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen == gen {
		r.progress.InProgress = n
	}
}

func (r *Runner) finish(gen int, final State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != gen {
		return
	}
	r.state = final
	zap.L().Info("batch: run finished",
		zap.String("state", string(final)),
		zap.Int("completed", r.progress.Completed),
		zap.Int("failed", r.progress.Failed),
		zap.Int("total", r.progress.Total),
	)
}

func copyProgress(p model.BatchProgress) model.BatchProgress {
	out := p
	out.Results = append([]model.Verdict(nil), p.Results...)
	out.Errors = append([]model.ItemError(nil), p.Errors...)
	return out
}
