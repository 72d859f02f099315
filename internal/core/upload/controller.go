package upload

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/neilberkman/eqviz/internal/core/api"
	"github.com/neilberkman/eqviz/internal/core/logger"
	"github.com/neilberkman/eqviz/internal/core/models"
	"github.com/neilberkman/eqviz/internal/core/observe"
)

// Uploader is the slice of the gateway the controller needs
type Uploader interface {
	UploadFile(ctx context.Context, file models.PendingFile, onProgress api.ProgressFunc) (*models.Dataset, error)
}

// Options tune validation and the post-success display delay
type Options struct {
	AllowedExtensions []string // lower-case with leading dot; empty allows any
	MaxBytes          int64    // 0 means unlimited
	ResetDelay        time.Duration
}

// Controller owns the pending file and the upload state machine. Only one
// upload runs at a time.
type Controller struct {
	mu      sync.Mutex
	up      Uploader
	opts    Options
	state   State
	version uint64

	attempt    uint64 // bumped by every Submit and Cancel; stale callbacks compare against it
	cancel     context.CancelFunc
	resetTimer *time.Timer

	hub observe.Hub[State]
}

func NewController(up Uploader, opts Options) *Controller {
	return &Controller{up: up, opts: opts}
}

// State returns the current snapshot
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn for every state change
func (c *Controller) Subscribe(fn func(State)) func() {
	return c.hub.Subscribe(fn)
}

// SelectPath reads a file from disk and selects it. Browsing and
// drag-and-drop both end up here.
func (c *Controller) SelectPath(path string) error {
	if c.State().Phase == Uploading {
		logger.Warn("upload.select_rejected", "reason", "uploading", "path", path)
		return ErrUploadInProgress
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidFile, path)
	}
	if err := c.validate(filepath.Base(path), info.Size()); err != nil {
		return err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	return c.Select(models.PendingFile{
		Name:    filepath.Base(path),
		Path:    path,
		Size:    int64(len(content)),
		Content: content,
	})
}

// Select makes file the pending file. It is rejected while uploading.
func (c *Controller) Select(file models.PendingFile) error {
	if file.Size == 0 {
		file.Size = int64(len(file.Content))
	}
	if err := c.validate(file.Name, file.Size); err != nil {
		return err
	}

	c.mu.Lock()
	if c.state.Phase == Uploading {
		c.mu.Unlock()
		logger.Warn("upload.select_rejected", "reason", "uploading", "file", file.Name)
		return ErrUploadInProgress
	}
	c.stopResetLocked()
	if c.state.Phase == Succeeded || c.state.Phase == Failed {
		c.applyLocked(Event{Kind: EventReset})
	}
	if err := c.applyLocked(Event{Kind: EventSelect, File: &file}); err != nil {
		c.mu.Unlock()
		return err
	}
	v, s := c.version, c.state
	c.mu.Unlock()

	logger.Debug("upload.selected", "file", file.Name, "size", file.Size)
	c.hub.Publish(v, s)
	return nil
}

// Clear drops the pending file. While uploading it cancels the upload.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.stopResetLocked()
	if c.state.Phase == Uploading {
		c.cancelLocked()
	} else {
		if c.state.Phase == Succeeded || c.state.Phase == Failed {
			c.applyLocked(Event{Kind: EventReset})
		}
		c.applyLocked(Event{Kind: EventClear})
	}
	v, s := c.version, c.state
	c.mu.Unlock()
	c.hub.Publish(v, s)
}

// Cancel aborts a running upload; it is a no-op otherwise
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.state.Phase != Uploading {
		c.mu.Unlock()
		return
	}
	c.cancelLocked()
	v, s := c.version, c.state
	c.mu.Unlock()
	c.hub.Publish(v, s)
}

// Submit uploads the pending file and blocks until it settles. On success
// the controller returns to Idle after the reset delay.
func (c *Controller) Submit(ctx context.Context) (*models.Dataset, error) {
	c.mu.Lock()
	if err := c.applyLocked(Event{Kind: EventStart}); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.attempt++
	attempt := c.attempt
	uploadCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	file := *c.state.File
	v, s := c.version, c.state
	c.mu.Unlock()
	c.hub.Publish(v, s)

	logger.Info("upload.started", "file", file.Name, "size", humanize.Bytes(uint64(file.Size)))
	started := time.Now()

	ds, err := c.up.UploadFile(uploadCtx, file, func(sent, total int64) {
		c.progress(attempt, sent, total)
	})
	cancel()

	c.mu.Lock()
	if c.attempt != attempt {
		// Cancel already settled the state
		c.mu.Unlock()
		return nil, ErrCanceled
	}
	c.cancel = nil

	if err == nil && ds == nil {
		err = errors.New("empty upload response")
	}
	if err != nil {
		if errors.Is(err, api.ErrCanceled) || ctx.Err() != nil {
			c.attempt++
			c.applyLocked(Event{Kind: EventFail, Err: ErrCanceled})
			c.applyLocked(Event{Kind: EventReset})
			err = ErrCanceled
		} else {
			c.applyLocked(Event{Kind: EventFail, Err: err})
		}
		v, s := c.version, c.state
		c.mu.Unlock()
		logger.Warn("upload.failed", "file", file.Name, "error", err, "message", Message(err))
		c.hub.Publish(v, s)
		return nil, err
	}

	c.applyLocked(Event{Kind: EventSucceed, Dataset: ds})
	c.scheduleResetLocked(attempt)
	v, s = c.version, c.state
	c.mu.Unlock()

	logger.Info("upload.succeeded", "file", file.Name, "dataset_id", ds.ID, "elapsed", time.Since(started).Round(time.Millisecond))
	c.hub.Publish(v, s)
	return ds, nil
}

func (c *Controller) progress(attempt uint64, sent, total int64) {
	if total <= 0 {
		return
	}
	pct := int(math.Round(float64(sent) * 100 / float64(total)))

	c.mu.Lock()
	if c.attempt != attempt || c.state.Phase != Uploading {
		c.mu.Unlock()
		return
	}
	before := c.state.Progress
	c.applyLocked(Event{Kind: EventProgress, Progress: pct})
	if c.state.Progress == before {
		c.mu.Unlock()
		return
	}
	v, s := c.version, c.state
	c.mu.Unlock()
	c.hub.Publish(v, s)
}

func (c *Controller) validate(name string, size int64) error {
	if name == "" {
		return fmt.Errorf("%w: file has no name", ErrInvalidFile)
	}
	if size <= 0 {
		return fmt.Errorf("%w: %s is empty", ErrInvalidFile, name)
	}
	if c.opts.MaxBytes > 0 && size > c.opts.MaxBytes {
		return fmt.Errorf("%w: %s is %s, the limit is %s", ErrInvalidFile, name,
			humanize.IBytes(uint64(size)), humanize.IBytes(uint64(c.opts.MaxBytes)))
	}
	if len(c.opts.AllowedExtensions) > 0 {
		ext := strings.ToLower(filepath.Ext(name))
		for _, allowed := range c.opts.AllowedExtensions {
			if ext == allowed {
				return nil
			}
		}
		return fmt.Errorf("%w: %s must be one of %s", ErrInvalidFile, name, strings.Join(c.opts.AllowedExtensions, ", "))
	}
	return nil
}

// applyLocked runs the transition and bumps the version on change
func (c *Controller) applyLocked(e Event) error {
	next, err := Transition(c.state, e)
	if err != nil {
		return err
	}
	c.state = next
	c.version++
	return nil
}

// cancelLocked settles a running upload as cancelled and returns to Idle
func (c *Controller) cancelLocked() {
	c.attempt++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.applyLocked(Event{Kind: EventFail, Err: ErrCanceled})
	c.applyLocked(Event{Kind: EventReset})
	logger.Info("upload.cancelled")
}

func (c *Controller) scheduleResetLocked(attempt uint64) {
	c.stopResetLocked()
	c.resetTimer = time.AfterFunc(c.opts.ResetDelay, func() {
		c.mu.Lock()
		if c.attempt != attempt || c.state.Phase != Succeeded {
			c.mu.Unlock()
			return
		}
		c.resetTimer = nil
		c.applyLocked(Event{Kind: EventReset})
		v, s := c.version, c.state
		c.mu.Unlock()
		c.hub.Publish(v, s)
	})
}

func (c *Controller) stopResetLocked() {
	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
}
