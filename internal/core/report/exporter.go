// Package report downloads the PDF report of the current dataset.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/neilberkman/eqviz/internal/core/api"
	"github.com/neilberkman/eqviz/internal/core/db"
	"github.com/neilberkman/eqviz/internal/core/logger"
	"github.com/neilberkman/eqviz/internal/core/models"
)

const FailedMessage = "Failed to download report."

// Message is the alert text for a failed export
func Message(err error) string {
	return api.Describe(err, FailedMessage)
}

// Source supplies the dataset to export
type Source interface {
	Current() *models.Dataset
}

// Fetcher downloads the report artifact for a dataset id
type Fetcher interface {
	Report(ctx context.Context, id int64) (*api.Artifact, error)
}

// Saver stores a downloaded artifact and returns where it went
type Saver interface {
	Save(name string, data []byte) (string, error)
}

// Log records successful exports. Optional.
type Log interface {
	RecordExport(e db.ExportEntry) error
}

type Exporter struct {
	source  Source
	fetcher Fetcher
	saver   Saver
	log     Log
}

func NewExporter(source Source, fetcher Fetcher, saver Saver, log Log) *Exporter {
	return &Exporter{source: source, fetcher: fetcher, saver: saver, log: log}
}

// ExportCurrent saves the report for the current dataset and returns what
// was saved. With no current dataset it does nothing and returns nil.
func (e *Exporter) ExportCurrent(ctx context.Context) (*db.ExportEntry, error) {
	ds := e.source.Current()
	if ds == nil {
		logger.Debug("report.skipped", "reason", "no dataset")
		return nil, nil
	}

	artifact, err := e.fetcher.Report(ctx, ds.ID)
	if err != nil {
		logger.Warn("report.fetch_failed", "dataset_id", ds.ID, "error", err)
		return nil, fmt.Errorf("fetch report for dataset %d: %w", ds.ID, err)
	}

	name := api.ReportFilename(ds.ID)
	path, err := e.saver.Save(name, artifact.Data)
	if err != nil {
		logger.Error("report.save_failed", "dataset_id", ds.ID, "name", name, "error", err)
		return nil, fmt.Errorf("save report: %w", err)
	}

	entry := &db.ExportEntry{DatasetID: ds.ID, Filename: ds.Filename, Path: path, Size: int64(len(artifact.Data))}
	if e.log != nil {
		if err := e.log.RecordExport(*entry); err != nil {
			// The file is on disk; a missing log line is not worth failing for
			logger.Warn("report.log_failed", "path", path, "error", err)
		}
	}

	logger.Info("report.saved", "dataset_id", ds.ID, "path", path, "bytes", len(artifact.Data))
	return entry, nil
}

// DirSaver writes artifacts into a directory
type DirSaver struct {
	Dir string
}

// Save writes data to Dir/name through a temp file and rename, so a
// partially written report is never visible under its final name
func (s DirSaver) Save(name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", err
	}
	dest := filepath.Join(s.Dir, filepath.Base(name))

	tmp, err := os.CreateTemp(s.Dir, ".eqviz-*.part")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", err
	}
	return dest, nil
}
