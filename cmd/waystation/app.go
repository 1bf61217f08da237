package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/tatianab/waystation/internal/config"
	"github.com/tatianab/waystation/internal/dice"
	"github.com/tatianab/waystation/internal/engine"
	"github.com/tatianab/waystation/internal/fallback"
	"github.com/tatianab/waystation/internal/gm"
	"github.com/tatianab/waystation/internal/logging"
	"github.com/tatianab/waystation/internal/models"
	"github.com/tatianab/waystation/internal/session"
	"github.com/tatianab/waystation/internal/storage/sqlite"
)

// app is everything a command needs, wired from the configuration.
type app struct {
	engine  *engine.Engine
	library *fallback.Library
	manager *session.Manager
	closers []func() error
}

// newApp wires the game. A zero seed draws one from the system.
func newApp(ctx context.Context, cfg *config.Config, store session.Store[*models.GameState], seed int64) (*app, error) {
	a := &app{}

	if store == nil {
		s, closer, err := openStore(cfg)
		if err != nil {
			return nil, err
		}
		store = s
		a.addCloser(closer)
	}

	lib := fallback.Default()
	if cfg.FallbackCatalog != "" {
		l, err := fallback.Load(cfg.FallbackCatalog)
		if err != nil {
			a.Close()
			return nil, err
		}
		lib = l
	}

	if seed == 0 {
		s, err := dice.NewSeed()
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("seed dice: %w", err)
		}
		seed = s
	}

	gen, closer, err := newGenerator(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.addCloser(closer)

	a.engine = engine.New(gen, lib, dice.NewRoller(seed), store)
	a.library = lib
	a.manager = session.NewManager(a.engine, store)
	return a, nil
}

func (a *app) addCloser(f func() error) {
	if f != nil {
		a.closers = append(a.closers, f)
	}
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func openStore(cfg *config.Config) (session.Store[*models.GameState], func() error, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		s, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, s.Close, nil
	case config.StoreMemory:
		return session.NewMemoryStore[*models.GameState](), nil, nil
	default:
		return session.NewFileStore(cfg.SaveDir), nil, nil
	}
}

// newGenerator returns a nil Generator when the selected provider has no
// API key, which sends every turn to the fallback catalog.
func newGenerator(ctx context.Context, cfg *config.Config) (engine.Generator, func() error, error) {
	if !cfg.GenerationEnabled() {
		logging.Info("generation disabled, using the fallback catalog", logging.Fields{"provider": cfg.Provider})
		return nil, nil, nil
	}

	var (
		p      gm.Provider
		closer func() error
	)
	switch cfg.Provider {
	case config.ProviderOpenAI:
		p = gm.NewOpenAIProvider(cfg.APIKey(), cfg.Model(), cfg.Temperature)
	default:
		gp, err := gm.NewGeminiProvider(ctx, cfg.APIKey(), cfg.Model(), float32(cfg.Temperature))
		if err != nil {
			return nil, nil, fmt.Errorf("create Gemini client: %w", err)
		}
		p, closer = gp, gp.Close
	}

	client := gm.NewClient(p, gm.ClientConfig{Timeout: cfg.Timeout, Retries: cfg.Retries})
	return client, closer, nil
}
