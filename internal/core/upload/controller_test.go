package upload

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/neilberkman/eqviz/internal/core/api"
	"github.com/neilberkman/eqviz/internal/core/credential"
	"github.com/neilberkman/eqviz/internal/core/models"
	"github.com/neilberkman/eqviz/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) record(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) snapshot() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func newController(t *testing.T, backend *testutil.Backend, creds *credential.MemoryStore, delay time.Duration) (*Controller, *recorder) {
	t.Helper()
	g := api.New(backend.URL(), creds)
	c := NewController(g, Options{AllowedExtensions: []string{".csv"}, ResetDelay: delay})
	rec := &recorder{}
	t.Cleanup(c.Subscribe(rec.record))
	return c, rec
}

func csvFile(n, minBytes int) models.PendingFile {
	return models.PendingFile{Name: "plant.csv", Content: testutil.SampleCSV(n, minBytes)}
}

func TestController_EndToEnd(t *testing.T) {
	backend := testutil.NewBackend(t)
	c, rec := newController(t, backend, credential.NewMemoryStore("t"), time.Hour)

	require.NoError(t, c.Select(csvFile(20, 10*1024)))
	ds, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, backend.Dataset(ds.ID), ds)

	states := rec.snapshot()
	require.NotEmpty(t, states)
	last := states[len(states)-1]
	assert.Equal(t, Succeeded, last.Phase)
	assert.Equal(t, 100, last.Progress)
	assert.Same(t, ds, last.Dataset)

	prev := -1
	for _, s := range states {
		if s.Phase != Uploading && s.Phase != Succeeded {
			continue
		}
		assert.GreaterOrEqual(t, s.Progress, prev)
		prev = s.Progress
	}
}

func TestController_SubmitWithoutFile(t *testing.T) {
	backend := testutil.NewBackend(t)
	c, _ := newController(t, backend, credential.NewMemoryStore("t"), time.Hour)

	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNoFileSelected)
	assert.Equal(t, Idle, c.State().Phase)
	assert.Empty(t, backend.Requests())
}

func TestController_SelectWhileUploading(t *testing.T) {
	backend := testutil.NewBackend(t)
	gate := backend.Gate("/upload/")
	c, _ := newController(t, backend, credential.NewMemoryStore("t"), time.Hour)

	first := csvFile(3, 0)
	require.NoError(t, c.Select(first))
	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return c.State().Phase == Uploading }, testutil.Wait, testutil.Tick)

	other := models.PendingFile{Name: "other.csv", Content: []byte("a,b\n")}
	assert.ErrorIs(t, c.Select(other), ErrUploadInProgress)
	assert.Equal(t, "plant.csv", c.State().File.Name)

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, "plant.csv", c.State().File.Name)
}

func TestController_UnauthorizedLeavesCredential(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.RequireToken("good")
	creds := credential.NewMemoryStore("stale")
	c, _ := newController(t, backend, creds, time.Hour)

	require.NoError(t, c.Select(csvFile(3, 0)))
	_, err := c.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))

	s := c.State()
	assert.Equal(t, Failed, s.Phase)
	assert.Equal(t, api.SessionExpiredMessage, s.Message)
	assert.Nil(t, s.File)

	sets, clears := creds.Writes()
	assert.Zero(t, sets)
	assert.Zero(t, clears)
	token, ok := creds.Get()
	assert.True(t, ok)
	assert.Equal(t, "stale", token)
}

func TestController_ServerRejection(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Fail("/upload/", http.StatusBadRequest, `{"error": "Missing column in CSV file: 'Type'"}`)
	c, _ := newController(t, backend, credential.NewMemoryStore("t"), time.Hour)

	require.NoError(t, c.Select(csvFile(3, 0)))
	_, err := c.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Missing column in CSV file: 'Type'", c.State().Message)

	// A failed attempt can be retried once a file is chosen again
	backend.Fail("/upload/", 0, "")
	require.NoError(t, c.Select(csvFile(3, 0)))
	_, err = c.Submit(context.Background())
	require.NoError(t, err)
}

func TestController_CancelStopsProgress(t *testing.T) {
	backend := testutil.NewBackend(t)
	gate := backend.Gate("/upload/")
	defer close(gate)
	c, rec := newController(t, backend, credential.NewMemoryStore("t"), time.Hour)

	require.NoError(t, c.Select(csvFile(3, 0)))
	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return len(backend.Requests()) == 1 }, testutil.Wait, testutil.Tick)

	c.Cancel()
	assert.ErrorIs(t, <-done, ErrCanceled)
	assert.Equal(t, Idle, c.State().Phase)

	states := rec.snapshot()
	var sawCancelled bool
	for i, s := range states {
		if s.Phase == Failed {
			sawCancelled = true
			assert.Equal(t, CancelledMessage, s.Message)
			for _, after := range states[i+1:] {
				assert.NotEqual(t, Uploading, after.Phase)
			}
		}
	}
	assert.True(t, sawCancelled)
	assert.Equal(t, Idle, states[len(states)-1].Phase)
}

func TestController_ResetsAfterDelay(t *testing.T) {
	backend := testutil.NewBackend(t)
	c, _ := newController(t, backend, credential.NewMemoryStore("t"), 20*time.Millisecond)

	require.NoError(t, c.Select(csvFile(3, 0)))
	_, err := c.Submit(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return c.State().Phase == Idle }, testutil.Wait, testutil.Tick)
	assert.Nil(t, c.State().File)
}

func TestController_SelectAfterSuccessCancelsReset(t *testing.T) {
	backend := testutil.NewBackend(t)
	c, _ := newController(t, backend, credential.NewMemoryStore("t"), 30*time.Millisecond)

	require.NoError(t, c.Select(csvFile(3, 0)))
	_, err := c.Submit(context.Background())
	require.NoError(t, err)

	require.NoError(t, c.Select(csvFile(4, 0)))
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, FileSelected, c.State().Phase)
}

func TestController_Validation(t *testing.T) {
	backend := testutil.NewBackend(t)
	g := api.New(backend.URL(), credential.NewMemoryStore("t"))
	c := NewController(g, Options{AllowedExtensions: []string{".csv"}, MaxBytes: 16})

	assert.ErrorIs(t, c.Select(models.PendingFile{Name: "notes.txt", Content: []byte("x")}), ErrInvalidFile)
	assert.ErrorIs(t, c.Select(models.PendingFile{Name: "empty.csv"}), ErrInvalidFile)
	assert.ErrorIs(t, c.Select(models.PendingFile{Name: "big.csv", Content: make([]byte, 17)}), ErrInvalidFile)
	assert.Equal(t, Idle, c.State().Phase)

	require.NoError(t, c.Select(models.PendingFile{Name: "Plant.CSV", Content: []byte("a,b\n")}))
	assert.Equal(t, FileSelected, c.State().Phase)

	c.Clear()
	assert.Equal(t, Idle, c.State().Phase)
}

func TestController_SelectPath(t *testing.T) {
	backend := testutil.NewBackend(t)
	c, _ := newController(t, backend, credential.NewMemoryStore("t"), time.Hour)

	dir := t.TempDir()
	path := filepath.Join(dir, "plant.csv")
	require.NoError(t, os.WriteFile(path, testutil.SampleCSV(5, 0), 0644))

	require.NoError(t, c.SelectPath(path))
	s := c.State()
	assert.Equal(t, "plant.csv", s.File.Name)
	assert.Equal(t, path, s.File.Path)

	assert.ErrorIs(t, c.SelectPath(filepath.Join(dir, "missing.csv")), ErrInvalidFile)
	assert.ErrorIs(t, c.SelectPath(dir), ErrInvalidFile)
}
