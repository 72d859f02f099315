package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neilberkman/eqviz/internal/core/api"
	"github.com/neilberkman/eqviz/internal/core/config"
	"github.com/neilberkman/eqviz/internal/core/credential"
	"github.com/neilberkman/eqviz/internal/core/dashboard"
	"github.com/neilberkman/eqviz/internal/core/db"
	"github.com/neilberkman/eqviz/internal/core/logger"
)

var errNotLoggedIn = errors.New("not logged in; run 'eqviz login' first")

// app is what every command needs: config, local store, credential and
// gateway
type app struct {
	cfg     *config.Config
	db      *db.DB
	store   *credential.SQLiteStore
	gateway *api.Gateway
}

// openApp loads configuration and opens the local database. console
// controls whether logs also go to stderr.
func openApp(console bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if apiURL != "" {
		cfg.APIURL = strings.TrimRight(apiURL, "/")
	}

	logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Console: console && verbose})

	database, err := db.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	store, err := credential.NewSQLiteStore(database)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	g := api.New(cfg.APIURL, store, api.WithAuthScheme(cfg.AuthScheme))
	return &app{cfg: cfg, db: database, store: store, gateway: g}, nil
}

func (a *app) Close() {
	_ = a.db.Close()
}

// requireLogin fails fast when no credential is stored
func (a *app) requireLogin() error {
	if _, ok := a.store.Get(); !ok {
		return errNotLoggedIn
	}
	return nil
}

func (a *app) dashboard(ctx context.Context) *dashboard.Dashboard {
	return dashboard.Build(ctx, a.cfg, a.gateway, a.store, a.db)
}

// describe turns err into one line for the terminal, preferring the text
// the dashboard would show
func describe(err error, fallback string) error {
	text := api.Describe(err, fallback)
	if text == fallback {
		return fmt.Errorf("%s: %w", fallback, err)
	}
	return errors.New(text)
}
