package tui

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/eqviz/internal/core/api"
	"github.com/neilberkman/eqviz/internal/core/config"
	"github.com/neilberkman/eqviz/internal/core/credential"
	"github.com/neilberkman/eqviz/internal/core/dashboard"
	"github.com/neilberkman/eqviz/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModel(t *testing.T, backend *testutil.Backend) Model {
	t.Helper()
	cfg := config.Defaults()
	cfg.DownloadDir = t.TempDir()
	cfg.ResetDelay = time.Hour
	store := credential.NewMemoryStore("t")
	d := dashboard.Build(context.Background(), cfg, api.New(backend.URL(), store), store, nil)

	m := New(d, cfg)
	t.Cleanup(m.Close)
	return m
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// send feeds msg to the model and runs the returned command once
func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Msg) {
	t.Helper()
	m, cmd := update(m, msg)
	if cmd == nil {
		return m, nil
	}
	return m, cmd()
}

func TestModel_ListsHistory(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddDataset("a.csv", testutil.SampleRows(2))
	backend.AddDataset("b.csv", testutil.SampleRows(3))

	m := newModel(t, backend)
	assert.Equal(t, historyView, m.mode)
	assert.Len(t, m.list.Items(), 2)
	assert.Contains(t, m.View(), "a.csv")
	assert.Contains(t, m.View(), "b.csv")
}

func TestModel_SelectHistory(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddDataset("a.csv", testutil.SampleRows(2))
	backend.AddDataset("b.csv", testutil.SampleRows(5))
	m := newModel(t, backend)

	selected := m.list.SelectedItem().(historyListItem).record

	m, msg := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	loaded, ok := msg.(datasetLoadedMsg)
	require.True(t, ok)
	require.NoError(t, loaded.err)

	m, _ = send(t, m, loaded)
	assert.Equal(t, datasetView, m.mode)
	require.NotNil(t, m.current())
	assert.Equal(t, selected.ID, m.current().ID)
	require.NotNil(t, m.alert)
	assert.Equal(t, dashboard.AlertSuccess, m.alert.Level)
	assert.Contains(t, m.View(), selected.Filename)

	m, _ = send(t, m, keys("2"))
	assert.Equal(t, distributionTab, m.tab)
	assert.Contains(t, m.View(), "%)")

	m, _ = send(t, m, keys("4"))
	assert.Equal(t, tableTab, m.tab)
	assert.Contains(t, m.View(), "Equipment Name")

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, historyView, m.mode)
}

func TestModel_Upload(t *testing.T) {
	backend := testutil.NewBackend(t)
	m := newModel(t, backend)

	path := filepath.Join(t.TempDir(), "plant.csv")
	require.NoError(t, os.WriteFile(path, testutil.SampleCSV(8, 0), 0644))

	m, _ = update(m, keys("u"))
	require.Equal(t, uploadView, m.mode)
	m.input.SetValue(path)

	m, msg := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	done, ok := msg.(uploadDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)

	m, _ = send(t, m, done)
	assert.Equal(t, datasetView, m.mode)
	require.NotNil(t, m.current())
	assert.Equal(t, "plant.csv", m.current().Filename)
	assert.Len(t, m.history.Records, 1)
	assert.Contains(t, m.View(), dashboard.UploadedMessage)
}

func TestModel_UploadRejectsMissingFile(t *testing.T) {
	backend := testutil.NewBackend(t)
	m := newModel(t, backend)

	m, _ = update(m, keys("u"))
	m.input.SetValue(filepath.Join(t.TempDir(), "missing.csv"))

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Error(t, m.inputErr)
	assert.Contains(t, m.View(), "invalid file")
	assert.Empty(t, backend.Requests()[1:], "only the initial history fetch reaches the backend")

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, historyView, m.mode)
}

func TestModel_RefreshFailureShowsAlert(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddDataset("a.csv", testutil.SampleRows(2))
	m := newModel(t, backend)

	backend.Fail("/history/", http.StatusBadGateway, "")
	m, msg := send(t, m, keys("r"))
	loaded, ok := msg.(historyLoadedMsg)
	require.True(t, ok)
	require.Error(t, loaded.err)

	m, _ = send(t, m, loaded)
	require.NotNil(t, m.alert)
	assert.Equal(t, dashboard.AlertError, m.alert.Level)
	assert.Contains(t, m.View(), dashboard.HistoryFailedMessage)
	// Previous list stays
	assert.Len(t, m.list.Items(), 1)

	m, _ = send(t, m, keys("x"))
	m, _ = update(m, changedMsg{})
	assert.Nil(t, m.alert)
}

func TestModel_ChangesArriveThroughBridge(t *testing.T) {
	backend := testutil.NewBackend(t)
	m := newModel(t, backend)

	msg := waitForChange(m.events)
	backend.AddDataset("late.csv", testutil.SampleRows(1))
	_, err := m.dash.RefreshHistory(context.Background())
	require.NoError(t, err)

	got := make(chan tea.Msg, 1)
	go func() { got <- msg() }()
	select {
	case v := <-got:
		m, _ = update(m, v)
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}
	assert.Len(t, m.list.Items(), 1)
}

func TestModel_Help(t *testing.T) {
	m := newModel(t, testutil.NewBackend(t))

	m, _ = send(t, m, keys("?"))
	assert.Equal(t, helpView, m.mode)
	assert.Contains(t, m.View(), "HISTORY VIEW")

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, historyView, m.mode)
}

func TestModel_Logout(t *testing.T) {
	m := newModel(t, testutil.NewBackend(t))
	m, cmd := update(m, keys("L"))
	assert.True(t, m.LoggedOut)
	assert.False(t, m.dash.Authenticated())
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
