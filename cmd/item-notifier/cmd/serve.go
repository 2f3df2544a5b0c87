package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/donaldgifford/item-notifier/internal/api/handlers"
	mw "github.com/donaldgifford/item-notifier/internal/api/middleware"
	"github.com/donaldgifford/item-notifier/internal/config"
	"github.com/donaldgifford/item-notifier/internal/engine"
	"github.com/donaldgifford/item-notifier/internal/state"
	"github.com/donaldgifford/item-notifier/internal/telemetry"
	"github.com/donaldgifford/item-notifier/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cobra.Command {
	var pollOnStart bool

	c := &cobra.Command{
		Use:   "serve",
		Short: "Start the poll scheduler and the control API",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(pollOnStart)
		},
	}
	c.Flags().BoolVar(&pollOnStart, "poll-on-start", false,
		"run one poll cycle immediately instead of waiting for the first tick")
	return c
}

func runServe(pollOnStart bool) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			log.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.store.Close(); err != nil {
			log.Warn("closing state store", "error", err)
		}
	}()

	sched, err := engine.NewScheduler(a.engine, cfg.Poll.Interval, logger.Component(log, "scheduler"))
	if err != nil {
		return err
	}

	var srv *echo.Echo
	if cfg.Server.IsEnabled() {
		srv = newServer(cfg, log, a, sched)
		addr := cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port)
		log.Info("starting server", "addr", addr)
		go func() {
			if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("server error", "error", err)
				stop()
			}
		}()
	}

	go watchConfig(ctx, cfg, log, a.engine, sched)

	sched.Start()
	if pollOnStart {
		go func() {
			if err := a.engine.Poll(ctx); err != nil {
				log.Warn("startup poll failed", "error", err)
			}
		}()
	}

	<-ctx.Done()
	log.Info("shutting down")

	if srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn("shutting down server", "error", err)
		}
	}

	// Cancels the in-flight cycle and drains dispatched notifications.
	sched.Stop()

	log.Info("notifier stopped", "catalog_requests", a.limiter.Count())
	return nil
}

func newServer(cfg *config.Config, log *slog.Logger, a *app, sched *engine.Scheduler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	httpLog := logger.Component(log, "http")
	e.Use(mw.RequestLog(httpLog), mw.Recovery(httpLog), mw.Metrics())

	pinger, _ := a.store.(state.Pinger)
	handlers.RegisterHealthRoutes(e, handlers.NewHealthHandler(pinger))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := humaecho.New(e, huma.DefaultConfig("item-notifier API", Version))
	handlers.RegisterStatusRoutes(api, handlers.NewStatusHandler(a.engine, sched, a.limiter))
	handlers.RegisterPollRoutes(api, handlers.NewPollHandler(a.engine))
	handlers.RegisterStateRoutes(api, handlers.NewStateHandler(a.engine))

	return e
}

// watchConfig applies live-reloadable settings and reports the rest.
func watchConfig(
	ctx context.Context,
	cfg *config.Config,
	log *slog.Logger,
	eng *engine.Engine,
	sched *engine.Scheduler,
) {
	current := cfg
	onChange := func(next *config.Config) {
		if err := sched.SetInterval(next.Poll.Interval); err != nil {
			log.Warn("applying poll interval", "error", err)
		}
		if err := eng.SetPolicy(next.Poll.Policy); err != nil {
			log.Warn("applying notify policy", "error", err)
		}
		if sections := config.RestartRequired(current, next); len(sections) > 0 {
			log.Warn("config change requires restart", "sections", sections)
		}
		current = next
	}
	onError := func(err error) {
		log.Warn("config reload rejected", "error", err)
	}

	if err := config.Watch(ctx, cfgFile, onChange, onError); err != nil {
		log.Warn("config watch disabled", "error", err, "path", cfgFile)
	}
}
