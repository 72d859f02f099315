package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/neilberkman/eqviz/internal/core/upload"
)

func (m Model) updateUpload(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.upload.Phase == upload.Uploading {
			m.dash.Upload.Cancel()
			return m, nil
		}
		m.dash.Upload.Clear()
		m.input.Blur()
		m.inputErr = nil
		m.mode = historyView
		return m, nil

	case "enter":
		if m.upload.Phase == upload.Uploading {
			return m, nil
		}
		path := strings.TrimSpace(m.input.Value())
		if path == "" {
			m.inputErr = upload.ErrNoFileSelected
			return m, nil
		}
		if err := m.dash.Upload.SelectPath(path); err != nil {
			m.inputErr = err
			return m, nil
		}
		m.inputErr = nil
		return m, submitUpload(m.dash)
	}

	if m.upload.Phase == upload.Uploading {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) viewUpload() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Upload CSV") + "\n\n")
	b.WriteString(m.input.View() + "\n\n")

	if m.inputErr != nil {
		b.WriteString(errorAlertStyle.Render(upload.Message(m.inputErr)) + "\n\n")
	}

	st := m.upload
	if st.File != nil {
		fmt.Fprintf(&b, "%s (%s)\n", st.File.Name, humanize.IBytes(uint64(st.File.Size)))
	}
	switch st.Phase {
	case upload.Uploading:
		b.WriteString(m.spinner.View() + " Uploading " + m.progress.ViewAs(float64(st.Progress)/100) + "\n")
	case upload.Succeeded:
		b.WriteString(successAlertStyle.Render("Done") + " " + m.progress.ViewAs(1) + "\n")
	case upload.Failed:
		if !isCanceled(st.Err) {
			b.WriteString(errorAlertStyle.Render(st.Message) + "\n")
		}
	}

	hint := "enter: upload | esc: back"
	if st.Phase == upload.Uploading {
		hint = "esc: cancel upload"
	}
	b.WriteString("\n" + helpStyle.Render(hint))
	return b.String()
}
