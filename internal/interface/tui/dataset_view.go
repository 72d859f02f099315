package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"
	"github.com/neilberkman/eqviz/internal/core/render"
)

type datasetTab int

const (
	summaryTab datasetTab = iota
	distributionTab
	scatterTab
	tableTab
)

var tabNames = []string{"Summary", "Distribution", "Pressure/Temp", "Data"}

// newViewport renders the current dataset's table for scrolling
func (m Model) newViewport() viewport.Model {
	vp := viewport.New(m.width, max(m.height-7, 3))
	ds := m.current()
	if ds == nil {
		return vp
	}
	header, rows := render.Table(ds)
	vp.SetContent(renderTable(header, rows))
	return vp
}

func (m Model) updateDataset(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ds := m.current()

	switch {
	case key.Matches(msg, datasetKeys.Back):
		m.mode = historyView
		return m, nil

	case key.Matches(msg, datasetKeys.Next):
		m.tab = (m.tab + 1) % datasetTab(len(tabNames))
		return m, nil

	case key.Matches(msg, datasetKeys.Prev):
		m.tab = (m.tab + datasetTab(len(tabNames)) - 1) % datasetTab(len(tabNames))
		return m, nil

	case key.Matches(msg, datasetKeys.Jump):
		m.tab = datasetTab(msg.String()[0] - '1')
		return m, nil

	case key.Matches(msg, datasetKeys.Export):
		if ds != nil {
			return m, downloadReport(m.dash)
		}
		return m, nil

	case key.Matches(msg, datasetKeys.Copy):
		if ds != nil {
			return m, copyDatasetRef(ds)
		}
		return m, nil

	case key.Matches(msg, datasetKeys.Upload):
		m.mode = uploadView
		m.inputErr = nil
		return m, m.input.Focus()

	case key.Matches(msg, datasetKeys.Dismiss):
		m.dash.DismissAlert()
		return m, nil
	}

	if m.tab == tableTab {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) viewDataset() string {
	ds := m.current()
	if ds == nil {
		return "No dataset loaded\n\n" + helpStyle.Render("esc: back")
	}

	var tabs []string
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if datasetTab(i) == m.tab {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}

	var content string
	switch m.tab {
	case summaryTab:
		text, err := render.Summary(m.cfg.SummaryTemplate, ds)
		if err != nil {
			text = "Invalid summary template: " + err.Error()
		}
		content = wordwrap.String(text, max(m.width-2, 20))
	case distributionTab:
		content = renderBars(render.Distribution(ds.Summary), m.width)
	case scatterTab:
		content = renderScatter(render.Points(ds), max(m.width-12, 10), max(m.height-10, 4))
	case tableTab:
		content = m.viewport.View() + fmt.Sprintf("\n%3.f%%", m.viewport.ScrollPercent()*100)
	}

	footer := m.help.View(datasetKeys)
	return strings.Join(tabs, " ") + "\n\n" + content + "\n\n" + footer
}
