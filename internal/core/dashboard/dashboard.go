// Package dashboard ties upload, history, the current dataset and report
// export together and turns every outcome into an alert.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/neilberkman/eqviz/internal/core/api"
	"github.com/neilberkman/eqviz/internal/core/credential"
	"github.com/neilberkman/eqviz/internal/core/dataset"
	"github.com/neilberkman/eqviz/internal/core/db"
	"github.com/neilberkman/eqviz/internal/core/history"
	"github.com/neilberkman/eqviz/internal/core/logger"
	"github.com/neilberkman/eqviz/internal/core/models"
	"github.com/neilberkman/eqviz/internal/core/observe"
	"github.com/neilberkman/eqviz/internal/core/report"
	"github.com/neilberkman/eqviz/internal/core/upload"
)

const (
	UploadedMessage       = "File uploaded and analyzed successfully"
	LoadFailedMessage     = "Failed to load dataset."
	HistoryFailedMessage  = "Failed to fetch history."
	SupersededMessage     = "Superseded by a newer selection."
	loadedMessageTemplate = "Successfully loaded '%s' from history."
)

type AlertLevel int

const (
	AlertInfo AlertLevel = iota
	AlertSuccess
	AlertError
)

func (l AlertLevel) String() string {
	switch l {
	case AlertSuccess:
		return "success"
	case AlertError:
		return "error"
	}
	return "info"
}

// Alert is the single notice shown above the dashboard
type Alert struct {
	Level AlertLevel
	Text  string
	At    time.Time
}

type Options struct {
	// ClearCredentialOnUnauthorized logs out on the first 401 from any action
	ClearCredentialOnUnauthorized bool
}

type Dashboard struct {
	Upload   *upload.Controller
	History  *history.Cache
	Session  *dataset.Session
	Exporter *report.Exporter

	store credential.Store
	opts  Options

	mu      sync.Mutex
	alert   *Alert
	version uint64
	alerts  observe.Hub[*Alert]
}

func New(up *upload.Controller, hist *history.Cache, session *dataset.Session, exporter *report.Exporter, store credential.Store, opts Options) *Dashboard {
	return &Dashboard{
		Upload:   up,
		History:  hist,
		Session:  session,
		Exporter: exporter,
		store:    store,
		opts:     opts,
	}
}

// UploadSelected submits the pending file. On success the dataset becomes
// current and the history is refreshed.
func (d *Dashboard) UploadSelected(ctx context.Context) (*models.Dataset, error) {
	ds, err := d.Upload.Submit(ctx)
	if err != nil {
		level := AlertError
		if errors.Is(err, upload.ErrCanceled) {
			level = AlertInfo
		}
		d.setAlert(level, upload.Message(err))
		d.handleUnauthorized(err)
		return nil, err
	}

	if err := d.Session.Adopt(ds); err != nil {
		d.setAlert(AlertError, upload.GenericFailureMessage)
		return nil, err
	}
	d.setAlert(AlertSuccess, UploadedMessage)

	if _, err := d.History.Refresh(ctx); err != nil {
		// The upload itself succeeded; keep its alert
		logger.Warn("dashboard.history_refresh_failed", "error", err)
		d.handleUnauthorized(err)
	}
	return ds, nil
}

// SelectHistory makes dataset id current. A selection overtaken by a newer
// one returns dataset.ErrSuperseded and raises no alert.
func (d *Dashboard) SelectHistory(ctx context.Context, id int64) (*models.Dataset, error) {
	d.DismissAlert()
	ds, err := d.Session.LoadByID(ctx, id)
	if errors.Is(err, dataset.ErrSuperseded) {
		return nil, err
	}
	if err != nil {
		d.setAlert(AlertError, LoadMessage(err))
		d.handleUnauthorized(err)
		return nil, err
	}
	d.setAlert(AlertSuccess, fmt.Sprintf(loadedMessageTemplate, ds.Filename))
	return ds, nil
}

// RefreshHistory reloads the history list. On failure the previous list
// stays and an alert is raised.
func (d *Dashboard) RefreshHistory(ctx context.Context) ([]models.HistoryRecord, error) {
	records, err := d.History.Refresh(ctx)
	if err != nil {
		d.setAlert(AlertError, HistoryMessage(err))
		d.handleUnauthorized(err)
		return d.History.Current(), err
	}
	return records, nil
}

// DownloadReport saves the report of the current dataset and returns the
// dataset id and path it was saved under. Without a dataset it does
// nothing and returns nil.
func (d *Dashboard) DownloadReport(ctx context.Context) (*db.ExportEntry, error) {
	saved, err := d.Exporter.ExportCurrent(ctx)
	if err != nil {
		d.setAlert(AlertError, report.Message(err))
		d.handleUnauthorized(err)
		return nil, err
	}
	if saved != nil {
		d.setAlert(AlertSuccess, ReportSavedMessage(saved.Path))
	}
	return saved, nil
}

// ReportSavedMessage is the alert text after a report was written to path
func ReportSavedMessage(path string) string {
	return "Report saved to " + path
}

// LoadMessage is the text for an error returned by SelectHistory. The
// alert, when one was raised, carries the same text.
func LoadMessage(err error) string {
	if errors.Is(err, dataset.ErrSuperseded) {
		return SupersededMessage
	}
	return api.Describe(err, LoadFailedMessage)
}

// HistoryMessage is the text for an error returned by RefreshHistory
func HistoryMessage(err error) string {
	return api.Describe(err, HistoryFailedMessage)
}

// Logout clears the credential and everything shown for the old session
func (d *Dashboard) Logout() error {
	d.Upload.Clear()
	d.Session.Reset()
	d.DismissAlert()
	if err := d.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	logger.Info("dashboard.logged_out")
	return nil
}

// Authenticated reports whether a credential is present
func (d *Dashboard) Authenticated() bool {
	_, ok := d.store.Get()
	return ok
}

// Alert returns the current alert, or nil
func (d *Dashboard) Alert() *Alert {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.alert == nil {
		return nil
	}
	a := *d.alert
	return &a
}

func (d *Dashboard) DismissAlert() {
	d.mu.Lock()
	if d.alert == nil {
		d.mu.Unlock()
		return
	}
	d.alert = nil
	d.version++
	v := d.version
	d.mu.Unlock()
	d.alerts.Publish(v, nil)
}

// SubscribeAlerts calls fn with each new alert, or nil when dismissed
func (d *Dashboard) SubscribeAlerts(fn func(*Alert)) func() {
	return d.alerts.Subscribe(fn)
}

func (d *Dashboard) setAlert(level AlertLevel, text string) {
	a := &Alert{Level: level, Text: text, At: time.Now()}
	d.mu.Lock()
	d.alert = a
	d.version++
	v := d.version
	d.mu.Unlock()

	logger.Debug("dashboard.alert", "level", level.String(), "text", text)
	cp := *a
	d.alerts.Publish(v, &cp)
}

func (d *Dashboard) handleUnauthorized(err error) {
	if !d.opts.ClearCredentialOnUnauthorized || !api.IsUnauthorized(err) {
		return
	}
	if clearErr := d.store.Clear(); clearErr != nil {
		logger.Error("dashboard.clear_credential_failed", "error", clearErr)
		return
	}
	logger.Info("dashboard.credential_cleared", "reason", "unauthorized")
}
