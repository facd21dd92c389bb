package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/r3form/internal/adapters/driven/config/file"
	"github.com/custodia-labs/r3form/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/r3form/internal/adapters/driving/cli"
	"github.com/custodia-labs/r3form/internal/connectors/appsscript"
	"github.com/custodia-labs/r3form/internal/connectors/google/sheets"
	"github.com/custodia-labs/r3form/internal/connectors/sheety"
	"github.com/custodia-labs/r3form/internal/core/domain"
	"github.com/custodia-labs/r3form/internal/core/ports/driven"
	"github.com/custodia-labs/r3form/internal/core/services"
	"github.com/custodia-labs/r3form/internal/logger"
)

// scriptTimeout bounds one Apps Script call. Document generation is slow.
const scriptTimeout = 2 * time.Minute

// bootstrap wires the services for one command run. Settings are always
// available; the form services need a configured remote backend.
func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, func() error, error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening config: %w", err)
	}
	settingsSvc := services.NewSettingsService(configStore)

	out := &cli.Services{
		Settings: settingsSvc,
		Actions:  services.NewViewerActionService(),
		Watcher:  configStore,
	}

	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("loading settings: %w", err)
	}
	if !settings.Remote.IsConfigured() {
		logger.Debug("remote backend not configured, form commands disabled")
		return out, nil, nil
	}

	remote, err := newRemote(ctx, *settings)
	if err != nil {
		return nil, nil, err
	}

	store, err := sqlite.NewStore(opts.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening data store: %w", err)
	}
	logger.Debug("data store: %s", store.Path())

	cache := services.NewCacheService(store.CacheStore(), settings.Cache)
	tracker := services.NewTrackerService(cache, remote)
	form := services.NewFormService(cache, remote, tracker, store.FormStateStore(), settings.Form)

	out.Form = form
	out.Submissions = tracker
	out.Cache = cache
	out.Notifiers = tracker

	if settings.Report.IsConfigured() {
		scripts := appsscript.New(settings.Report, scriptTimeout, nil)
		out.Report = services.NewReportService(remote, scripts, settings.Report)
	}

	cleanup := func() error {
		return errors.Join(form.Close(), store.Close())
	}
	return out, cleanup, nil
}

// newRemote creates the data source for the configured backend.
func newRemote(ctx context.Context, settings domain.AppSettings) (driven.RemoteDataSource, error) {
	switch settings.Remote.Backend {
	case domain.RemoteBackendSheety:
		client, err := sheety.New(sheety.ConfigFromSettings(settings), nil)
		if err != nil {
			return nil, fmt.Errorf("creating sheety client: %w", err)
		}
		return client, nil
	case domain.RemoteBackendSheets:
		backend, err := sheets.Connect(ctx, sheets.ConfigFromSettings(settings))
		if err != nil {
			return nil, fmt.Errorf("connecting to google sheets: %w", err)
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("%w: unknown remote backend %q", domain.ErrInvalidInput, settings.Remote.Backend)
	}
}
