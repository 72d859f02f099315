package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/neilberkman/eqviz/internal/core/dashboard"
	"github.com/neilberkman/eqviz/internal/core/history"
	"github.com/neilberkman/eqviz/internal/core/models"
	"github.com/neilberkman/eqviz/internal/core/render"
	"github.com/neilberkman/eqviz/internal/core/report"
	"github.com/neilberkman/eqviz/internal/core/upload"
)

// ListHistoryArgs defines arguments for the list_history tool
type ListHistoryArgs struct {
	Since string `json:"since,omitempty" jsonschema:"description=Only uploads after this date (natural language or ISO 8601)"`
}

// LoadDatasetArgs defines arguments for the load_dataset tool
type LoadDatasetArgs struct {
	ID      int64 `json:"id" jsonschema:"description=Dataset id from list_history,required"`
	MaxRows int   `json:"max_rows,omitempty" jsonschema:"description=Rows of raw data to include (default: 0)"`
}

// UploadFileArgs defines arguments for the upload_file tool
type UploadFileArgs struct {
	Path string `json:"path" jsonschema:"description=Path of a CSV file on this machine,required"`
}

// ExportReportArgs defines arguments for the export_report tool
type ExportReportArgs struct {
	ID int64 `json:"id,omitempty" jsonschema:"description=Dataset id; defaults to the dataset loaded last"`
}

// HistoryEntry is one upload in the list_history result
type HistoryEntry struct {
	ID         int64  `json:"id"`
	Filename   string `json:"filename"`
	UploadedAt string `json:"uploaded_at"`
	Ago        string `json:"ago"`
}

// DatasetDetail is the load_dataset and upload_file result
type DatasetDetail struct {
	ID           int64          `json:"id"`
	Filename     string         `json:"filename"`
	UploadedAt   string         `json:"uploaded_at"`
	Summary      models.Summary `json:"summary"`
	Distribution []render.Slice `json:"distribution"`
	Text         string         `json:"text"`
	Rows         []models.Row   `json:"rows,omitempty"`
}

// ExportResult is the export_report result
type ExportResult struct {
	DatasetID int64  `json:"dataset_id"`
	Path      string `json:"path"`
}

// StartServer serves the dashboard's tools over stdio
func StartServer(d *dashboard.Dashboard, summaryTemplate string) error {
	return server.ServeStdio(NewServer(d, summaryTemplate))
}

// NewServer registers the tools on a new MCP server
func NewServer(d *dashboard.Dashboard, summaryTemplate string) *server.MCPServer {
	s := server.NewMCPServer(
		"eqviz",
		"1.0.0",
		server.WithRecovery(),
	)

	historyTool := mcp.NewTool("list_history",
		mcp.WithDescription("List the last five uploaded equipment datasets, newest first"),
		mcp.WithString("since",
			mcp.Description("Only uploads after this date, e.g. 'yesterday' or '2025-01-31'")),
	)
	s.AddTool(historyTool, makeListHistoryHandler(d))

	loadTool := mcp.NewTool("load_dataset",
		mcp.WithDescription("Load a dataset by id and return its summary, type distribution and optionally raw rows"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Dataset id from list_history")),
		mcp.WithNumber("max_rows",
			mcp.Description("Rows of raw data to include (default: 0)")),
	)
	s.AddTool(loadTool, makeLoadDatasetHandler(d, summaryTemplate))

	uploadTool := mcp.NewTool("upload_file",
		mcp.WithDescription("Upload a CSV of equipment readings (columns Type, Flowrate, Pressure, Temperature) and return the analysis"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path of the CSV file")),
	)
	s.AddTool(uploadTool, makeUploadFileHandler(d, summaryTemplate))

	exportTool := mcp.NewTool("export_report",
		mcp.WithDescription("Download the PDF report of a dataset into the download directory"),
		mcp.WithNumber("id",
			mcp.Description("Dataset id; defaults to the dataset loaded last")),
	)
	s.AddTool(exportTool, makeExportReportHandler(d))

	return s
}

func decodeArgs(request mcp.CallToolRequest, out any) error {
	argsBytes, _ := json.Marshal(request.Params.Arguments)
	return json.Unmarshal(argsBytes, out)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	resultJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func makeListHistoryHandler(d *dashboard.Dashboard) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args ListHistoryArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		records, err := d.RefreshHistory(ctx)
		if err != nil {
			return mcp.NewToolResultError(dashboard.HistoryMessage(err)), nil
		}
		if args.Since != "" {
			since, err := history.ParseSince(args.Since, time.Now())
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			records = history.Since(records, since)
		}

		entries := make([]HistoryEntry, 0, len(records))
		for _, r := range records {
			entries = append(entries, HistoryEntry{
				ID:         r.ID,
				Filename:   r.Filename,
				UploadedAt: r.UploadedAt.Format(time.RFC3339),
				Ago:        render.Ago(r.UploadedAt),
			})
		}
		return jsonResult(entries)
	}
}

func makeLoadDatasetHandler(d *dashboard.Dashboard, tmpl string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args LoadDatasetArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if args.ID <= 0 {
			return mcp.NewToolResultError("id is required"), nil
		}

		ds, err := d.SelectHistory(ctx, args.ID)
		if err != nil {
			return mcp.NewToolResultError(dashboard.LoadMessage(err)), nil
		}
		return jsonResult(detail(ds, tmpl, args.MaxRows))
	}
}

func makeUploadFileHandler(d *dashboard.Dashboard, tmpl string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args UploadFileArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		if err := d.Upload.SelectPath(args.Path); err != nil {
			return mcp.NewToolResultError(upload.Message(err)), nil
		}
		ds, err := d.UploadSelected(ctx)
		if err != nil {
			return mcp.NewToolResultError(upload.Message(err)), nil
		}
		return jsonResult(detail(ds, tmpl, 0))
	}
}

func makeExportReportHandler(d *dashboard.Dashboard) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args ExportReportArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		if args.ID > 0 {
			if cur := d.Session.Current(); cur == nil || cur.ID != args.ID {
				if _, err := d.SelectHistory(ctx, args.ID); err != nil {
					return mcp.NewToolResultError(dashboard.LoadMessage(err)), nil
				}
			}
		}

		saved, err := d.DownloadReport(ctx)
		if err != nil {
			return mcp.NewToolResultError(report.Message(err)), nil
		}
		if saved == nil {
			return mcp.NewToolResultError("no dataset loaded; pass an id"), nil
		}
		return jsonResult(ExportResult{DatasetID: saved.DatasetID, Path: saved.Path})
	}
}

func detail(ds *models.Dataset, tmpl string, maxRows int) DatasetDetail {
	text, err := render.Summary(tmpl, ds)
	if err != nil {
		text = fmt.Sprintf("%s: %d units", ds.Filename, ds.Summary.TotalCount)
	}
	out := DatasetDetail{
		ID:           ds.ID,
		Filename:     ds.Filename,
		UploadedAt:   ds.UploadedAt.Format(time.RFC3339),
		Summary:      ds.Summary,
		Distribution: render.Distribution(ds.Summary),
		Text:         text,
	}
	if maxRows > 0 {
		out.Rows = ds.Rows[:min(maxRows, len(ds.Rows))]
	}
	return out
}
