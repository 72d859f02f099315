package history

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/neilberkman/eqviz/internal/core/api"
	"github.com/neilberkman/eqviz/internal/core/credential"
	"github.com/neilberkman/eqviz/internal/core/models"
	"github.com/neilberkman/eqviz/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFetcher struct {
	calls   atomic.Int32
	release chan struct{}
	records []models.HistoryRecord
}

func (f *countingFetcher) History(ctx context.Context) ([]models.HistoryRecord, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	return f.records, nil
}

type errFetcher struct{ err error }

func (f errFetcher) History(context.Context) ([]models.HistoryRecord, error) {
	return nil, f.err
}

func historyRequests(backend *testutil.Backend) int {
	n := 0
	for _, r := range backend.Requests() {
		if r.Path == "/history/" {
			n++
		}
	}
	return n
}

func TestNew_InitialRefresh(t *testing.T) {
	backend := testutil.NewBackend(t)
	for i := 0; i < 3; i++ {
		backend.AddDataset("plant.csv", testutil.SampleRows(2))
	}
	c := New(context.Background(), api.New(backend.URL(), credential.NewMemoryStore("t")))

	assert.NoError(t, c.Err())
	assert.Len(t, c.Current(), 3)
	assert.Equal(t, int64(3), c.Current()[0].ID)
}

func TestRefresh_FailureKeepsSnapshot(t *testing.T) {
	backend := testutil.NewBackend(t)
	for i := 0; i < 5; i++ {
		backend.AddDataset("plant.csv", testutil.SampleRows(2))
	}
	c := New(context.Background(), api.New(backend.URL(), credential.NewMemoryStore("t")))
	require.NoError(t, c.Err())
	before := c.Current()

	backend.Fail("/history/", http.StatusInternalServerError, `{"error": "boom"}`)
	_, err := c.Refresh(context.Background())
	require.Error(t, err)

	assert.Equal(t, before, c.Current())
	assert.Error(t, c.Err())

	backend.Fail("/history/", 0, "")
	_, err = c.Refresh(context.Background())
	require.NoError(t, err)
	assert.NoError(t, c.Err())
}

func TestRefresh_ReplacesWholesale(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddDataset("a.csv", testutil.SampleRows(1))
	c := New(context.Background(), api.New(backend.URL(), credential.NewMemoryStore("t")))
	require.Len(t, c.Current(), 1)

	for i := 0; i < 6; i++ {
		backend.AddDataset("b.csv", testutil.SampleRows(1))
	}
	got, err := c.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, got, models.HistoryLimit)
	for _, r := range got {
		assert.Equal(t, "b.csv", r.Filename)
	}
	assert.Equal(t, got, c.Current())
}

func TestRefresh_CallersCannotMutateSnapshot(t *testing.T) {
	f := &countingFetcher{records: []models.HistoryRecord{{ID: 1, Filename: "a.csv"}}}
	c := New(context.Background(), f)

	got := c.Current()
	got[0].Filename = "changed.csv"
	assert.Equal(t, "a.csv", c.Current()[0].Filename)
}

func TestRefresh_Coalesces(t *testing.T) {
	f := &countingFetcher{records: []models.HistoryRecord{{ID: 1}}}
	c := New(context.Background(), f)
	require.Equal(t, int32(1), f.calls.Load())

	f.release = make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Refresh(context.Background())
		}()
	}
	require.Eventually(t, func() bool { return f.calls.Load() == 2 }, testutil.Wait, testutil.Tick)
	time.Sleep(20 * time.Millisecond)
	close(f.release)
	wg.Wait()

	// One initial fetch plus one per caller would be 5
	assert.Less(t, f.calls.Load(), int32(5))
}

func TestSubscribe(t *testing.T) {
	f := &countingFetcher{}
	c := New(context.Background(), f)

	var got []Snapshot
	unsubscribe := c.Subscribe(func(s Snapshot) { got = append(got, s) })
	defer unsubscribe()

	f.records = []models.HistoryRecord{{ID: 7, Filename: "x.csv"}}
	_, err := c.Refresh(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, f.records, got[0].Records)
	assert.NoError(t, got[0].Err)

	rec, ok := c.Lookup(7)
	assert.True(t, ok)
	assert.Equal(t, "x.csv", rec.Filename)
	_, ok = c.Lookup(8)
	assert.False(t, ok)
}

func TestNew_InitialFailure(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Fail("/history/", http.StatusUnauthorized, `{"detail": "Invalid token."}`)
	c := New(context.Background(), api.New(backend.URL(), credential.NewMemoryStore("")))

	assert.Empty(t, c.Current())
	var apiErr *api.Error
	require.True(t, errors.As(c.Err(), &apiErr))
	assert.Equal(t, api.KindUnauthorized, apiErr.Kind)
}

func TestRefresh_CancelledCallerDoesNotFailSharedRefresh(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddDataset("a.csv", testutil.SampleRows(1))
	c := New(context.Background(), api.New(backend.URL(), credential.NewMemoryStore("t")))
	require.NoError(t, c.Err())
	backend.AddDataset("b.csv", testutil.SampleRows(1))

	gate := backend.Gate("/history/")
	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.Refresh(ctxA)
		errA <- err
	}()
	require.Eventually(t, func() bool { return historyRequests(backend) == 2 }, testutil.Wait, testutil.Tick)

	type result struct {
		records []models.HistoryRecord
		err     error
	}
	doneB := make(chan result, 1)
	go func() {
		records, err := c.Refresh(context.Background())
		doneB <- result{records, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, api.ErrCanceled)

	close(gate)
	b := <-doneB
	require.NoError(t, b.err)
	assert.Len(t, b.records, 2)
	assert.NoError(t, c.Err())
	assert.Len(t, c.Current(), 2)
	assert.Equal(t, 2, historyRequests(backend), "B should share A's request")
}

func TestRefresh_CancellationIsNotAFailure(t *testing.T) {
	c := New(context.Background(), errFetcher{err: fmt.Errorf("GET /history/: %w", api.ErrCanceled)})
	assert.NoError(t, c.Err())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Refresh(ctx)
	assert.ErrorIs(t, err, api.ErrCanceled)
	assert.NoError(t, c.Err())
}
