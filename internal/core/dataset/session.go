// Package dataset owns the dataset every display surface renders.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/neilberkman/eqviz/internal/core/logger"
	"github.com/neilberkman/eqviz/internal/core/models"
	"github.com/neilberkman/eqviz/internal/core/observe"
)

// ErrSuperseded is returned by a load whose result was discarded because a
// newer load or adopt started after it
var ErrSuperseded = errors.New("superseded by a newer request")

// Loader fetches a dataset by id
type Loader interface {
	Dataset(ctx context.Context, id int64) (*models.Dataset, error)
}

// State is the session as observers see it. Dataset is shared and must not
// be modified.
type State struct {
	Dataset   *models.Dataset
	Loading   bool
	LoadingID int64 // id being fetched while Loading
	Err       error
}

// Session holds the single current dataset. Every write takes a ticket
// from a generation counter and only the newest ticket may commit.
type Session struct {
	loader Loader

	mu      sync.Mutex
	state   State
	gen     uint64
	cancel  context.CancelFunc
	version uint64

	hub observe.Hub[State]
}

func NewSession(loader Loader) *Session {
	return &Session{loader: loader}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the dataset on display, or nil
func (s *Session) Current() *models.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Dataset
}

func (s *Session) Subscribe(fn func(State)) func() {
	return s.hub.Subscribe(fn)
}

// LoadByID fetches dataset id and makes it current. A call overtaken by a
// newer LoadByID or Adopt returns ErrSuperseded and changes nothing; its
// request is cancelled.
func (s *Session) LoadByID(ctx context.Context, id int64) (*models.Dataset, error) {
	s.mu.Lock()
	ticket := s.takeTicketLocked()
	loadCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state.Loading = true
	s.state.LoadingID = id
	s.publishLocked()

	logger.Debug("dataset.load_started", "id", id, "ticket", ticket)
	ds, err := s.loader.Dataset(loadCtx, id)
	cancel()

	s.mu.Lock()
	if ticket != s.gen {
		s.mu.Unlock()
		logger.Debug("dataset.load_superseded", "id", id, "ticket", ticket)
		return nil, ErrSuperseded
	}
	s.cancel = nil
	s.state.Loading = false
	s.state.LoadingID = 0
	if err == nil && ds != nil && ds.ID != id {
		err = fmt.Errorf("asked for dataset %d, got %d", id, ds.ID)
	}
	if err == nil && ds == nil {
		err = fmt.Errorf("dataset %d: empty response", id)
	}
	if err != nil {
		s.state.Err = err
		s.publishLocked()
		logger.Warn("dataset.load_failed", "id", id, "error", err)
		return nil, err
	}
	s.state.Dataset = ds
	s.state.Err = nil
	s.publishLocked()

	logger.Info("dataset.loaded", "id", ds.ID, "filename", ds.Filename, "rows", len(ds.Rows))
	return ds, nil
}

// Adopt makes ds current, superseding any load in flight
func (s *Session) Adopt(ds *models.Dataset) error {
	if ds == nil {
		return errors.New("adopt: nil dataset")
	}
	if err := ds.Validate(); err != nil {
		return fmt.Errorf("adopt: %w", err)
	}

	s.mu.Lock()
	s.takeTicketLocked()
	s.cancel = nil
	s.state = State{Dataset: ds}
	s.publishLocked()

	logger.Info("dataset.adopted", "id", ds.ID, "filename", ds.Filename)
	return nil
}

// Reset drops the current dataset and abandons any load in flight
func (s *Session) Reset() {
	s.mu.Lock()
	s.takeTicketLocked()
	s.cancel = nil
	s.state = State{}
	s.publishLocked()
}

// takeTicketLocked starts a new generation and cancels the previous request
func (s *Session) takeTicketLocked() uint64 {
	s.gen++
	if s.cancel != nil {
		s.cancel()
	}
	return s.gen
}

// publishLocked bumps the version, releases the lock and notifies
func (s *Session) publishLocked() {
	s.version++
	v, st := s.version, s.state
	s.mu.Unlock()
	s.hub.Publish(v, st)
}
