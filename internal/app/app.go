// Package app provides the top-level application lifecycle: it wires the
// simulation engine, the WebSocket hub, and the HTTP server together and runs
// them until the context is cancelled.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pitsim/pitsim/internal/config"
	"github.com/pitsim/pitsim/internal/domain"
	"github.com/pitsim/pitsim/internal/observability"
	"github.com/pitsim/pitsim/internal/server"
	"github.com/pitsim/pitsim/internal/server/handler"
	"github.com/pitsim/pitsim/internal/server/ws"
	"github.com/pitsim/pitsim/internal/sim"
)

// shutdownGrace is how long in-flight HTTP requests get on shutdown.
const shutdownGrace = 10 * time.Second

// App is the root application object.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies and blocks until the context is cancelled or a
// component fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.Int("port", a.cfg.Server.Port),
		slog.Int("assets", len(a.cfg.Market.Assets)),
		slog.Int64("seed", a.cfg.Market.Seed),
	)

	metrics := observability.NewMetrics()

	engine := sim.New(a.simSettings(), metrics, a.logger)
	hub := ws.NewHub(engine, metrics, a.logger)
	engine.SetBroadcaster(hub)

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
		Market: handler.NewMarketHandler(engine, a.logger),
	}
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, handlers, hub, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return engine.Run(ctx)
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			return fmt.Errorf("app: %w", err)
		}
		return ctx.Err()
	})

	return g.Wait()
}

// simSettings maps the market configuration onto engine settings.
func (a *App) simSettings() sim.Settings {
	assets := make([]sim.AssetDef, 0, len(a.cfg.Market.Assets))
	for _, ac := range a.cfg.Market.Assets {
		assets = append(assets, sim.AssetDef{
			ID:    domain.AssetID(ac.ID),
			Price: ac.Price,
		})
	}
	return sim.Settings{
		TickInterval:    a.cfg.Market.TickInterval.Duration,
		DriftRange:      a.cfg.Market.DriftRange,
		PriceFloor:      a.cfg.Market.PriceFloor,
		ImpactPerUnit:   a.cfg.Market.ImpactPerUnit,
		LeaderboardSize: a.cfg.Market.LeaderboardSize,
		MaxNameLen:      a.cfg.Market.MaxNameLen,
		DefaultName:     a.cfg.Market.DefaultName,
		Seed:            a.cfg.Market.Seed,
		Assets:          assets,
	}
}
