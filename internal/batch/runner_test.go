package batch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttb-tools/labelcheck/internal/model"
)

func makeItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{Name: fmt.Sprintf("label-%02d.jpg", i), Image: []byte{0xff}, MediaType: "image/jpeg"}
	}
	return items
}

func okVerify(_ context.Context, item Item, _ model.Application) (*model.Verdict, error) {
	return &model.Verdict{ID: "v-" + item.Name, OverallStatus: model.StatusApproved}, nil
}

func itemIndex(t *testing.T, item Item) int {
	t.Helper()
	idx, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(item.Name, "label-"), ".jpg"))
	require.NoError(t, err)
	return idx
}

func collect(t *testing.T, events <-chan model.BatchProgress) []model.BatchProgress {
	t.Helper()
	var snaps []model.BatchProgress
	timeout := time.After(5 * time.Second)
	for {
		select {
		case snap, ok := <-events:
			if !ok {
				return snaps
			}
			snaps = append(snaps, snap)
		case <-timeout:
			t.Fatal("timed out waiting for progress events")
		}
	}
}

func TestRunnerChunking(t *testing.T) {
	t.Parallel()

	r := NewRunner(okVerify)
	events, err := r.Start(context.Background(), makeItems(12), model.Application{BeverageType: model.BeverageSpirits}, 5)
	require.NoError(t, err)

	snaps := collect(t, events)

	// 12 items at concurrency 5: exactly 3 snapshots for chunks of 5, 5, 2.
	require.Len(t, snaps, 3)
	assert.Equal(t, 5, snaps[0].Completed)
	assert.Equal(t, 10, snaps[1].Completed)
	assert.Equal(t, 12, snaps[2].Completed)
	for _, s := range snaps {
		assert.Equal(t, 12, s.Total)
		assert.Equal(t, 0, s.Failed)
		assert.Equal(t, 0, s.InProgress)
		assert.Len(t, s.Results, s.Completed)
	}

	assert.Equal(t, StateCompleted, r.State())
}

func TestRunnerResultsGrowMonotonically(t *testing.T) {
	t.Parallel()

	r := NewRunner(okVerify)
	events, err := r.Start(context.Background(), makeItems(7), model.Application{}, 3)
	require.NoError(t, err)

	snaps := collect(t, events)
	require.Len(t, snaps, 3)

	for i := 1; i < len(snaps); i++ {
		prev, cur := snaps[i-1], snaps[i]
		require.GreaterOrEqual(t, len(cur.Results), len(prev.Results))
		// Earlier entries are never reordered or mutated retroactively.
		assert.Equal(t, prev.Results, cur.Results[:len(prev.Results)])
	}
}

func TestRunnerItemIdentity(t *testing.T) {
	t.Parallel()

	r := NewRunner(okVerify)
	events, err := r.Start(context.Background(), makeItems(4), model.Application{}, 2)
	require.NoError(t, err)

	snaps := collect(t, events)
	final := snaps[len(snaps)-1]
	require.Len(t, final.Results, 4)
	for i, v := range final.Results {
		assert.Equal(t, fmt.Sprintf("label-%02d.jpg", i), v.ImageName)
	}
}

func TestRunnerFailureTolerance(t *testing.T) {
	t.Parallel()

	verify := func(_ context.Context, item Item, _ model.Application) (*model.Verdict, error) {
		if strings.HasSuffix(item.Name, "1.jpg") {
			return nil, eris.New("extraction service unavailable")
		}
		return okVerify(context.Background(), item, model.Application{})
	}

	r := NewRunner(verify)
	events, err := r.Start(context.Background(), makeItems(4), model.Application{}, 2)
	require.NoError(t, err)

	snaps := collect(t, events)
	final := snaps[len(snaps)-1]

	assert.Equal(t, 3, final.Completed)
	assert.Equal(t, 1, final.Failed)
	require.Len(t, final.Errors, 1)
	assert.Equal(t, "label-01.jpg", final.Errors[0].Item)
	assert.Contains(t, final.Errors[0].Error, "extraction service unavailable")
	assert.Equal(t, StateCompleted, r.State())
}

func TestRunnerConcurrencyBound(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int64
	verify := func(_ context.Context, item Item, _ model.Application) (*model.Verdict, error) {
		cur := inFlight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return okVerify(context.Background(), item, model.Application{})
	}

	r := NewRunner(verify)
	events, err := r.Start(context.Background(), makeItems(9), model.Application{}, 3)
	require.NoError(t, err)
	collect(t, events)

	assert.LessOrEqual(t, peak.Load(), int64(3))
}

func TestRunnerCancelDuringChunk(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(5) // the whole second chunk must be in flight before cancel

	verify := func(_ context.Context, item Item, _ model.Application) (*model.Verdict, error) {
		if idx := itemIndex(t, item); idx >= 5 && idx < 10 {
			started.Done()
			<-release
		}
		return okVerify(context.Background(), item, model.Application{})
	}

	r := NewRunner(verify)
	events, err := r.Start(context.Background(), makeItems(12), model.Application{}, 5)
	require.NoError(t, err)

	go func() {
		started.Wait() // second chunk fully dispatched
		r.Cancel()
		close(release)
	}()

	snaps := collect(t, events)

	// The in-flight chunk completed and was recorded; the third chunk never
	// started.
	require.Len(t, snaps, 2)
	final := snaps[len(snaps)-1]
	assert.Equal(t, 10, final.Completed)
	assert.Equal(t, 0, final.Failed)
	assert.Len(t, final.Results, 10)
	assert.Equal(t, StateCancelled, r.State())
}

func TestRunnerStartWhileRunning(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	verify := func(_ context.Context, item Item, _ model.Application) (*model.Verdict, error) {
		<-release
		return okVerify(context.Background(), item, model.Application{})
	}

	r := NewRunner(verify)
	events, err := r.Start(context.Background(), makeItems(2), model.Application{}, 1)
	require.NoError(t, err)

	_, err = r.Start(context.Background(), makeItems(2), model.Application{}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in progress")

	close(release)
	collect(t, events)
}

func TestRunnerReset(t *testing.T) {
	t.Parallel()

	r := NewRunner(okVerify)
	events, err := r.Start(context.Background(), makeItems(3), model.Application{}, 2)
	require.NoError(t, err)
	collect(t, events)
	require.Equal(t, StateCompleted, r.State())

	r.Reset()

	assert.Equal(t, StateIdle, r.State())
	snap := r.Snapshot()
	assert.Zero(t, snap.Total)
	assert.Zero(t, snap.Completed)
	assert.Zero(t, snap.Failed)
	assert.Empty(t, snap.Results)
	assert.Empty(t, snap.Errors)

	// The runner is reusable after a reset.
	events, err = r.Start(context.Background(), makeItems(2), model.Application{}, 2)
	require.NoError(t, err)
	snaps := collect(t, events)
	require.Len(t, snaps, 1)
	assert.Equal(t, 2, snaps[0].Completed)
	assert.Equal(t, StateCompleted, r.State())
}

func TestRunnerContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(2)

	verify := func(_ context.Context, item Item, _ model.Application) (*model.Verdict, error) {
		if idx := itemIndex(t, item); idx >= 2 && idx < 4 {
			started.Done()
			<-release
		}
		return okVerify(context.Background(), item, model.Application{})
	}

	r := NewRunner(verify)
	events, err := r.Start(ctx, makeItems(6), model.Application{}, 2)
	require.NoError(t, err)

	// Cancel the context while the second chunk is in flight; the run stops
	// at the next chunk boundary.
	go func() {
		started.Wait()
		cancel()
		close(release)
	}()

	snaps := collect(t, events)

	require.Len(t, snaps, 2)
	assert.Equal(t, 4, snaps[len(snaps)-1].Completed)
	assert.Equal(t, StateCancelled, r.State())
}

func TestRunnerEmptyInput(t *testing.T) {
	t.Parallel()

	r := NewRunner(okVerify)
	events, err := r.Start(context.Background(), nil, model.Application{}, 5)
	require.NoError(t, err)

	snaps := collect(t, events)
	assert.Empty(t, snaps)
	assert.Equal(t, StateCompleted, r.State())
}
