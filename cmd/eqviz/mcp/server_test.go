package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/neilberkman/eqviz/internal/core/api"
	"github.com/neilberkman/eqviz/internal/core/config"
	"github.com/neilberkman/eqviz/internal/core/credential"
	"github.com/neilberkman/eqviz/internal/core/dashboard"
	"github.com/neilberkman/eqviz/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDashboard(t *testing.T, backend *testutil.Backend) (*dashboard.Dashboard, *config.Config) {
	t.Helper()
	cfg := config.Defaults()
	cfg.DownloadDir = t.TempDir()
	cfg.ResetDelay = time.Hour
	store := credential.NewMemoryStore("t")
	return dashboard.Build(context.Background(), cfg, api.New(backend.URL(), store), store, nil), cfg
}

type toolHandler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func call(t *testing.T, handler toolHandler, args map[string]any) (string, bool) {
	t.Helper()
	res, err := invoke(handler, args)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "unexpected content %T", res.Content[0])
	return text.Text, res.IsError
}

func invoke(handler toolHandler, args map[string]any) (*mcp.CallToolResult, error) {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return handler(context.Background(), req)
}

type toolOutcome struct {
	res *mcp.CallToolResult
	err error
}

func callAsync(handler toolHandler, args map[string]any) <-chan toolOutcome {
	done := make(chan toolOutcome, 1)
	go func() {
		res, err := invoke(handler, args)
		done <- toolOutcome{res: res, err: err}
	}()
	return done
}

func outcomeText(t *testing.T, o toolOutcome) (string, bool) {
	t.Helper()
	require.NoError(t, o.err)
	require.NotEmpty(t, o.res.Content)
	text, ok := o.res.Content[0].(mcp.TextContent)
	require.True(t, ok, "unexpected content %T", o.res.Content[0])
	return text.Text, o.res.IsError
}

func requested(backend *testutil.Backend, path string) func() bool {
	return func() bool {
		for _, r := range backend.Requests() {
			if r.Path == path {
				return true
			}
		}
		return false
	}
}

func TestListHistory(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddDataset("a.csv", testutil.SampleRows(2))
	backend.AddDataset("b.csv", testutil.SampleRows(2))
	d, _ := newDashboard(t, backend)

	out, isErr := call(t, makeListHistoryHandler(d), nil)
	require.False(t, isErr, out)

	var entries []HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "b.csv", entries[0].Filename)
}

func TestLoadDataset(t *testing.T) {
	backend := testutil.NewBackend(t)
	ds := backend.AddDataset("plant.csv", testutil.SampleRows(6))
	d, cfg := newDashboard(t, backend)

	out, isErr := call(t, makeLoadDatasetHandler(d, cfg.SummaryTemplate), map[string]any{"id": ds.ID, "max_rows": 2})
	require.False(t, isErr, out)

	var got DatasetDetail
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, ds.ID, got.ID)
	assert.Len(t, got.Rows, 2)
	assert.Contains(t, got.Text, "plant.csv")
	assert.Equal(t, ds.ID, d.Session.Current().ID)

	out, isErr = call(t, makeLoadDatasetHandler(d, cfg.SummaryTemplate), map[string]any{"id": 999})
	assert.True(t, isErr)
	assert.Equal(t, dashboard.LoadFailedMessage, out)
}

func TestUploadAndExport(t *testing.T) {
	backend := testutil.NewBackend(t)
	d, cfg := newDashboard(t, backend)

	path := filepath.Join(t.TempDir(), "plant.csv")
	require.NoError(t, os.WriteFile(path, testutil.SampleCSV(8, 0), 0644))

	out, isErr := call(t, makeUploadFileHandler(d, cfg.SummaryTemplate), map[string]any{"path": path})
	require.False(t, isErr, out)
	var got DatasetDetail
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 8, got.Summary.TotalCount)

	out, isErr = call(t, makeExportReportHandler(d), nil)
	require.False(t, isErr, out)
	var res ExportResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, got.ID, res.DatasetID)
	assert.FileExists(t, res.Path)
}

func TestUploadFile_Rejected(t *testing.T) {
	backend := testutil.NewBackend(t)
	d, cfg := newDashboard(t, backend)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	_, isErr := call(t, makeUploadFileHandler(d, cfg.SummaryTemplate), map[string]any{"path": path})
	assert.True(t, isErr)
	assert.Empty(t, backend.Requests()[1:])
}

func TestExportReport_NoDataset(t *testing.T) {
	backend := testutil.NewBackend(t)
	d, _ := newDashboard(t, backend)

	out, isErr := call(t, makeExportReportHandler(d), nil)
	assert.True(t, isErr)
	assert.Contains(t, out, "no dataset")
}

func TestLoadDataset_OverlappingCalls(t *testing.T) {
	backend := testutil.NewBackend(t)
	first := backend.AddDataset("first.csv", testutil.SampleRows(2))
	second := backend.AddDataset("second.csv", testutil.SampleRows(3))
	d, cfg := newDashboard(t, backend)
	handler := makeLoadDatasetHandler(d, cfg.SummaryTemplate)

	gate1 := backend.Gate("/datasets/1/")
	gate2 := backend.Gate("/datasets/2/")

	firstDone := callAsync(handler, map[string]any{"id": first.ID})
	require.Eventually(t, requested(backend, "/datasets/1/"), testutil.Wait, testutil.Tick)
	secondDone := callAsync(handler, map[string]any{"id": second.ID})
	require.Eventually(t, requested(backend, "/datasets/2/"), testutil.Wait, testutil.Tick)

	close(gate1)
	out, isErr := outcomeText(t, <-firstDone)
	assert.True(t, isErr)
	assert.Equal(t, dashboard.SupersededMessage, out)

	close(gate2)
	out, isErr = outcomeText(t, <-secondDone)
	require.False(t, isErr, out)
	var got DatasetDetail
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, second.ID, d.Session.Current().ID)
}

func TestExportReport_ReportsExportedDataset(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddDataset("a.csv", testutil.SampleRows(2))
	ds := backend.AddDataset("b.csv", testutil.SampleRows(2))
	d, _ := newDashboard(t, backend)

	out, isErr := call(t, makeExportReportHandler(d), map[string]any{"id": ds.ID})
	require.False(t, isErr, out)
	var res ExportResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, ds.ID, res.DatasetID)
	assert.Equal(t, "report_2.pdf", filepath.Base(res.Path))

	backend.Fail("/datasets/2/report/", http.StatusInternalServerError, `{"error": "render failed"}`)
	out, isErr = call(t, makeExportReportHandler(d), nil)
	assert.True(t, isErr)
	assert.Equal(t, "render failed", out)
}

func TestNewServer_RecoversFromPanics(t *testing.T) {
	backend := testutil.NewBackend(t)
	d, cfg := newDashboard(t, backend)
	s := NewServer(d, cfg.SummaryTemplate)
	s.AddTool(mcp.NewTool("explode"), func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		panic("boom")
	})

	resp := s.HandleMessage(context.Background(), []byte(`{
		"jsonrpc": "2.0",
		"id": 1,
		"method": "tools/call",
		"params": {"name": "explode"}
	}`))

	rpcErr, ok := resp.(mcp.JSONRPCError)
	require.True(t, ok, "unexpected response %T", resp)
	assert.Contains(t, rpcErr.Error.Message, "boom")
}
