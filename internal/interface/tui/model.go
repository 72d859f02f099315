package tui

import (
	"errors"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/eqviz/internal/core/config"
	"github.com/neilberkman/eqviz/internal/core/dashboard"
	"github.com/neilberkman/eqviz/internal/core/dataset"
	"github.com/neilberkman/eqviz/internal/core/history"
	"github.com/neilberkman/eqviz/internal/core/models"
	"github.com/neilberkman/eqviz/internal/core/upload"
)

type viewMode int

const (
	historyView viewMode = iota
	datasetView
	uploadView
	helpView
)

// Model is the dashboard screen. All durable state lives in the dashboard;
// the model keeps the last copy it read for rendering.
type Model struct {
	dash   *dashboard.Dashboard
	cfg    *config.Config
	events *bridge

	mode     viewMode
	prevMode viewMode
	tab      datasetTab
	list     list.Model
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	progress progress.Model
	help     help.Model
	width    int
	height   int

	history  history.Snapshot
	session  dataset.State
	upload   upload.State
	alert    *dashboard.Alert
	inputErr error
	notice   string

	// Set when the user logged out from inside the TUI
	LoggedOut bool
}

func New(d *dashboard.Dashboard, cfg *config.Config) Model {
	input := textinput.New()
	input.Placeholder = "path/to/equipment.csv"
	input.Prompt = "File: "
	input.CharLimit = 4096

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		dash:     d,
		cfg:      cfg,
		events:   newBridge(d),
		mode:     historyView,
		input:    input,
		spinner:  sp,
		progress: progress.New(progress.WithDefaultGradient()),
		help:     help.New(),
		width:    80,
		height:   24,
	}
	m.sync()
	m.list = createHistoryList(m.history.Records, m.currentID(), m.width, m.listHeight())
	return m
}

// Close detaches the model from the dashboard
func (m Model) Close() {
	m.events.close()
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForChange(m.events), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, m.listHeight())
		m.progress.Width = min(max(msg.Width-10, 10), 60)
		m.help.Width = msg.Width
		m.viewport = m.newViewport()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "?":
			if m.mode != uploadView && m.mode != helpView {
				m.prevMode = m.mode
				m.mode = helpView
				return m, nil
			}
		}

		switch m.mode {
		case historyView:
			return m.updateHistory(msg)
		case datasetView:
			return m.updateDataset(msg)
		case uploadView:
			return m.updateUpload(msg)
		case helpView:
			return m.updateHelp(msg)
		}

	case changedMsg:
		prevID := m.currentID()
		m.sync()
		m.rebuildList()
		if m.currentID() != prevID {
			m.viewport = m.newViewport()
		}
		return m, waitForChange(m.events)

	case historyLoadedMsg:
		m.sync()
		m.rebuildList()
		return m, nil

	case datasetLoadedMsg:
		m.sync()
		if msg.err == nil && msg.dataset != nil {
			m.mode = datasetView
			m.tab = summaryTab
			m.viewport = m.newViewport()
		}
		return m, nil

	case uploadDoneMsg:
		m.sync()
		if msg.err == nil && msg.dataset != nil {
			m.input.Reset()
			m.input.Blur()
			m.mode = datasetView
			m.tab = summaryTab
			m.viewport = m.newViewport()
		}
		return m, nil

	case reportSavedMsg:
		m.sync()
		return m, nil

	case clipboardMsg:
		if msg.err != nil {
			m.notice = "Clipboard unavailable: " + msg.text
		} else {
			m.notice = "Copied to clipboard: " + msg.text
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	var body string
	switch m.mode {
	case historyView:
		body = m.viewHistory()
	case datasetView:
		body = m.viewDataset()
	case uploadView:
		body = m.viewUpload()
	case helpView:
		return m.viewHelp()
	}
	return m.viewHeader() + "\n" + body
}

// sync copies the current state of every component
func (m *Model) sync() {
	m.history = m.dash.History.Snapshot()
	m.session = m.dash.Session.State()
	m.upload = m.dash.Upload.State()
	m.alert = m.dash.Alert()
}

func (m Model) current() *models.Dataset {
	return m.session.Dataset
}

func (m Model) currentID() int64 {
	if ds := m.current(); ds != nil {
		return ds.ID
	}
	return 0
}

// rebuildList refreshes the history items and keeps the cursor in place
func (m *Model) rebuildList() {
	idx := m.list.Index()
	m.list = createHistoryList(m.history.Records, m.currentID(), m.width, m.listHeight())
	if idx < len(m.history.Records) {
		m.list.Select(idx)
	}
}

// listHeight leaves room for the header, alert and help lines
func (m Model) listHeight() int {
	return max(m.height-4, 3)
}

func (m Model) viewHeader() string {
	header := titleStyle.Render("Equipment Visualizer")
	if ds := m.current(); ds != nil {
		header += metaStyle.Render("  " + ds.Filename)
	}
	if m.session.Loading {
		header += "  " + m.spinner.View() + metaStyle.Render(" loading...")
	}
	if m.alert != nil {
		header += "\n" + alertStyle(m.alert.Level).Render(m.alert.Text)
	}
	if m.notice != "" {
		header += "\n" + metaStyle.Render(m.notice)
	}
	return header
}

func (m Model) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "?":
		m.mode = m.prevMode
	}
	return m, nil
}

func (m Model) logout() (tea.Model, tea.Cmd) {
	if err := m.dash.Logout(); err != nil {
		m.notice = err.Error()
		return m, nil
	}
	m.LoggedOut = true
	return m, tea.Quit
}

func isCanceled(err error) bool {
	return errors.Is(err, upload.ErrCanceled)
}
