package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tonimelisma/drivevault/internal/authstate"
	"github.com/tonimelisma/drivevault/internal/config"
	"github.com/tonimelisma/drivevault/internal/projection"
	"github.com/tonimelisma/drivevault/internal/reveal"
	"github.com/tonimelisma/drivevault/internal/revealapi"
	"github.com/tonimelisma/drivevault/internal/vault"
)

// app bundles the assembled component graph for a single CLI invocation.
// Everything is wired here, once, and handed down explicitly — there are
// no package-level singletons.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *vault.Registry
	hidden   *vault.HiddenPaths
	api      *revealapi.Client
	coord    *reveal.Coordinator
	view     *projection.View
	auth     *authstate.Watcher
}

// newApp loads config and constructs the component graph. The caller
// must Close() it.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := buildLogger(cfg)

	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("api_base_url is not configured — set it in %s", config.DefaultConfigPath())
	}

	hidden, err := vault.OpenHiddenPaths(ctx, cfg.HiddenPathsDBPath(), logger)
	if err != nil {
		return nil, err
	}

	registry := vault.NewRegistry(vault.NewFileSnapshots(cfg.DataDir, logger), logger)

	// Instantiate every configured namespace up front so sweep and
	// sign-out clearing cover them even before first use.
	for _, ns := range cfg.Namespaces {
		registry.Store(ns)
	}

	api := revealapi.NewClient(cfg.APIBaseURL, defaultHTTPClient(), logger)

	opts := reveal.Options{
		Hidden:        hidden,
		RevocationURL: cfg.RevocationURL,
		SweepInterval: cfg.SweepInterval(),
		DefaultTTL:    cfg.DefaultTTL(),
	}

	var auth *authstate.Watcher
	if cfg.TokenPath != "" {
		auth = authstate.NewWatcher(cfg.TokenPath, logger)
		opts.Auth = auth
	}

	coord := reveal.NewCoordinator(registry, api, opts, logger)
	view := projection.NewView(registry, coord, hidden, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		hidden:   hidden,
		api:      api,
		coord:    coord,
		view:     view,
		auth:     auth,
	}, nil
}

// Close releases the app's resources.
func (a *app) Close() {
	a.coord.Close()

	if err := a.hidden.Close(); err != nil {
		a.logger.Warn("closing hidden-path database", slog.String("error", err.Error()))
	}
}
