// Package history keeps the last snapshot of the upload history.
package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/neilberkman/eqviz/internal/core/api"
	"github.com/neilberkman/eqviz/internal/core/logger"
	"github.com/neilberkman/eqviz/internal/core/models"
	"github.com/neilberkman/eqviz/internal/core/observe"
	"golang.org/x/sync/singleflight"
)

// Fetcher returns the backend's current history, newest first
type Fetcher interface {
	History(ctx context.Context) ([]models.HistoryRecord, error)
}

// Snapshot is what subscribers receive
type Snapshot struct {
	Records   []models.HistoryRecord
	Err       error // last refresh failure; Records is then the older list
	FetchedAt time.Time
}

// Cache holds the last successfully fetched history. A failed refresh
// never touches the records.
type Cache struct {
	fetcher Fetcher
	group   singleflight.Group

	mu        sync.RWMutex
	records   []models.HistoryRecord
	err       error
	fetchedAt time.Time
	version   uint64

	hub observe.Hub[Snapshot]
}

// New creates a cache and performs the initial refresh. A failed initial
// refresh leaves an empty list and is reported by Err.
func New(ctx context.Context, fetcher Fetcher) *Cache {
	c := &Cache{fetcher: fetcher}
	if _, err := c.Refresh(ctx); err != nil {
		logger.Warn("history.initial_refresh_failed", "error", err)
	}
	return c
}

// Refresh fetches the history and replaces the snapshot. Concurrent calls
// share one request; a caller that cancels stops waiting for it but does
// not cancel it for the others.
func (c *Cache) Refresh(ctx context.Context) ([]models.HistoryRecord, error) {
	ch := c.group.DoChan("history", func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		logger.Debug("history.refresh_abandoned", "error", ctx.Err())
		return nil, fmt.Errorf("refresh history: %w", api.ErrCanceled)
	case res := <-ch:
		if res.Err != nil {
			logger.Warn("history.refresh_failed", "error", res.Err, "shared", res.Shared)
			return nil, res.Err
		}
		records := res.Val.([]models.HistoryRecord)
		logger.Debug("history.refreshed", "count", len(records), "shared", res.Shared)
		return clone(records), nil
	}
}

func (c *Cache) fetch(ctx context.Context) ([]models.HistoryRecord, error) {
	records, err := c.fetcher.History(ctx)

	c.mu.Lock()
	if err != nil && isCanceled(err) {
		// A cancelled fetch says nothing about the backend
		c.mu.Unlock()
		return nil, err
	}
	c.version++
	if err != nil {
		c.err = err
	} else {
		c.records = clone(records)
		c.err = nil
		c.fetchedAt = time.Now()
	}
	version, snap := c.version, c.snapshotLocked()
	c.mu.Unlock()

	c.hub.Publish(version, snap)
	if err != nil {
		return nil, err
	}
	return snap.Records, nil
}

func isCanceled(err error) bool {
	return errors.Is(err, api.ErrCanceled) || errors.Is(err, context.Canceled)
}

// Current returns the last successfully fetched records
func (c *Cache) Current() []models.HistoryRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clone(c.records)
}

// Err reports whether the last refresh failed
func (c *Cache) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Snapshot returns records, error flag and fetch time together
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Lookup finds a record by id in the current snapshot
func (c *Cache) Lookup(id int64) (models.HistoryRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.records {
		if r.ID == id {
			return r, true
		}
	}
	return models.HistoryRecord{}, false
}

func (c *Cache) Subscribe(fn func(Snapshot)) func() {
	return c.hub.Subscribe(fn)
}

func (c *Cache) snapshotLocked() Snapshot {
	return Snapshot{Records: clone(c.records), Err: c.err, FetchedAt: c.fetchedAt}
}

func clone(records []models.HistoryRecord) []models.HistoryRecord {
	if records == nil {
		return nil
	}
	out := make([]models.HistoryRecord, len(records))
	copy(out, records)
	return out
}
