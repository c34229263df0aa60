package main

import (
	"context"
	"fmt"

	"github.com/jonathan/content-pipeline/internal/config"
	"github.com/jonathan/content-pipeline/internal/db"
	"github.com/jonathan/content-pipeline/internal/generation"
	"github.com/jonathan/content-pipeline/internal/llm"
	"github.com/jonathan/content-pipeline/internal/logging"
	"github.com/jonathan/content-pipeline/internal/pipeline"
)

// app holds the components shared by the serve and generate commands.
type app struct {
	settings *config.Settings
	log      *logging.Logger
	store    db.Store
	pipeline *pipeline.Orchestrator
}

// loadSettings resolves settings and builds the logger.
func loadSettings() (*config.Settings, *logging.Logger, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(settings.LogMode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return settings, log, nil
}

// newApp opens the store and wires the gateway, generator and orchestrator.
func newApp(ctx context.Context, settings *config.Settings, log *logging.Logger) (*app, error) {
	if err := settings.RequireDatabase(); err != nil {
		return nil, err
	}
	if err := settings.RequireGateway(); err != nil {
		return nil, err
	}

	gateway, err := llm.NewGatewayClient(llm.GatewayConfig{
		BaseURL: settings.OpenRouterBaseURL,
		APIKey:  settings.OpenRouterAPIKey,
		Referer: settings.HTTPReferer,
		Title:   settings.AppTitle,
		Timeout: settings.APITimeout(),
	})
	if err != nil {
		return nil, err
	}

	store, err := db.Open(ctx, settings.DatabaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	gen := generation.NewClient(gateway, generation.Config{
		DefaultModel: settings.DefaultContentModel,
		MaxTokens:    settings.MaxTokens,
		Temperature:  settings.DefaultTemperature,
	})

	return &app{
		settings: settings,
		log:      log,
		store:    store,
		pipeline: pipeline.New(store, gen, log),
	}, nil
}

func (a *app) Close() {
	a.store.Close()
	a.log.Sync()
}
