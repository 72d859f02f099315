package tui

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/eqviz/internal/core/dashboard"
	"github.com/neilberkman/eqviz/internal/core/db"
	"github.com/neilberkman/eqviz/internal/core/dataset"
	"github.com/neilberkman/eqviz/internal/core/history"
	"github.com/neilberkman/eqviz/internal/core/models"
	"github.com/neilberkman/eqviz/internal/core/upload"
)

// changedMsg means some dashboard component published new state. Update
// reads the current state back rather than trusting the callback payload.
type changedMsg struct{}

type historyLoadedMsg struct {
	records []models.HistoryRecord
	err     error
}

type datasetLoadedMsg struct {
	dataset *models.Dataset
	err     error
}

type uploadDoneMsg struct {
	dataset *models.Dataset
	err     error
}

type reportSavedMsg struct {
	saved *db.ExportEntry
	err   error
}

type clipboardMsg struct {
	text string
	err  error
}

// bridge turns component callbacks into tea messages. Callbacks only poke
// a one-slot channel so a slow UI never blocks a publisher.
type bridge struct {
	notify chan struct{}
	unsubs []func()
}

func newBridge(d *dashboard.Dashboard) *bridge {
	b := &bridge{notify: make(chan struct{}, 1)}
	b.unsubs = append(b.unsubs,
		d.Upload.Subscribe(func(upload.State) { b.poke() }),
		d.Session.Subscribe(func(dataset.State) { b.poke() }),
		d.History.Subscribe(func(history.Snapshot) { b.poke() }),
		d.SubscribeAlerts(func(*dashboard.Alert) { b.poke() }),
	)
	return b
}

func (b *bridge) poke() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

func (b *bridge) close() {
	for _, unsub := range b.unsubs {
		unsub()
	}
	b.unsubs = nil
}

func waitForChange(b *bridge) tea.Cmd {
	return func() tea.Msg {
		<-b.notify
		return changedMsg{}
	}
}

func refreshHistory(d *dashboard.Dashboard) tea.Cmd {
	return func() tea.Msg {
		records, err := d.RefreshHistory(context.Background())
		return historyLoadedMsg{records: records, err: err}
	}
}

func selectHistory(d *dashboard.Dashboard, id int64) tea.Cmd {
	return func() tea.Msg {
		ds, err := d.SelectHistory(context.Background(), id)
		return datasetLoadedMsg{dataset: ds, err: err}
	}
}

func submitUpload(d *dashboard.Dashboard) tea.Cmd {
	return func() tea.Msg {
		ds, err := d.UploadSelected(context.Background())
		return uploadDoneMsg{dataset: ds, err: err}
	}
}

func downloadReport(d *dashboard.Dashboard) tea.Cmd {
	return func() tea.Msg {
		saved, err := d.DownloadReport(context.Background())
		return reportSavedMsg{saved: saved, err: err}
	}
}

func copyDatasetRef(ds *models.Dataset) tea.Cmd {
	return func() tea.Msg {
		text := fmt.Sprintf("eqviz show %d", ds.ID)
		return clipboardMsg{text: text, err: clipboard.WriteAll(text)}
	}
}
