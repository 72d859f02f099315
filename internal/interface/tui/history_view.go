package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/eqviz/internal/core/models"
	"github.com/neilberkman/eqviz/internal/core/render"
)

type historyListItem struct {
	record  models.HistoryRecord
	current bool
}

func (i historyListItem) FilterValue() string {
	return i.record.Filename
}

func (i historyListItem) Title() string {
	return i.record.Filename
}

func (i historyListItem) Description() string {
	return fmt.Sprintf("#%d | Uploaded: %s (%s)",
		i.record.ID, render.Timestamp(i.record.UploadedAt), render.Ago(i.record.UploadedAt))
}

// Highlights the dataset that is currently shown
type historyDelegate struct {
	list.DefaultDelegate
}

func (d historyDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	h, ok := item.(historyListItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}

	title := h.Title()
	desc := h.Description()
	switch {
	case index == m.Index():
		title = selectedItemStyle.Render(title)
		desc = selectedItemStyle.Faint(true).Render(desc)
	case h.current:
		title = currentItemStyle.Render(title)
		desc = itemStyle.Render(desc)
	default:
		title = itemStyle.Render(title)
		desc = itemStyle.Render(desc)
	}

	fmt.Fprintf(w, "%s\n%s", title, desc)
}

func createHistoryList(records []models.HistoryRecord, currentID int64, width, height int) list.Model {
	items := make([]list.Item, len(records))
	for i, r := range records {
		items[i] = historyListItem{record: r, current: r.ID == currentID}
	}

	delegate := historyDelegate{DefaultDelegate: list.NewDefaultDelegate()}

	l := list.New(items, delegate, width, height)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	return l
}

func (m Model) updateHistory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, historyKeys.Quit):
		return m, tea.Quit

	case key.Matches(msg, historyKeys.Open):
		if selected, ok := m.list.SelectedItem().(historyListItem); ok {
			return m, selectHistory(m.dash, selected.record.ID)
		}
		return m, nil

	case key.Matches(msg, historyKeys.Upload):
		m.mode = uploadView
		m.inputErr = nil
		return m, m.input.Focus()

	case key.Matches(msg, historyKeys.Refresh):
		return m, refreshHistory(m.dash)

	case key.Matches(msg, historyKeys.Dataset):
		if m.current() != nil {
			m.mode = datasetView
		}
		return m, nil

	case key.Matches(msg, historyKeys.Dismiss):
		m.dash.DismissAlert()
		return m, nil

	case key.Matches(msg, historyKeys.Logout):
		return m.logout()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) viewHistory() string {
	helpText := m.help.View(historyKeys)

	if len(m.history.Records) == 0 {
		empty := "No uploads yet. Press 'u' to upload a CSV file."
		if m.history.Err != nil {
			empty = "Could not fetch history. Press 'r' to retry."
		}
		return empty + "\n\n" + helpText
	}

	return m.list.View() + "\n" + helpText
}
