package dashboard

import (
	"context"

	"github.com/neilberkman/eqviz/internal/core/api"
	"github.com/neilberkman/eqviz/internal/core/config"
	"github.com/neilberkman/eqviz/internal/core/credential"
	"github.com/neilberkman/eqviz/internal/core/dataset"
	"github.com/neilberkman/eqviz/internal/core/history"
	"github.com/neilberkman/eqviz/internal/core/report"
	"github.com/neilberkman/eqviz/internal/core/upload"
)

// Build assembles a dashboard from configuration. It performs the initial
// history refresh.
func Build(ctx context.Context, cfg *config.Config, g *api.Gateway, store credential.Store, exportLog report.Log) *Dashboard {
	session := dataset.NewSession(g)
	up := upload.NewController(g, upload.Options{
		AllowedExtensions: cfg.AllowedExtensions,
		MaxBytes:          cfg.MaxUploadBytes,
		ResetDelay:        cfg.ResetDelay,
	})
	exporter := report.NewExporter(session, g, report.DirSaver{Dir: cfg.DownloadDir}, exportLog)
	hist := history.New(ctx, g)

	return New(up, hist, session, exporter, store, Options{
		ClearCredentialOnUnauthorized: cfg.ClearCredentialOnUnauthorized,
	})
}
