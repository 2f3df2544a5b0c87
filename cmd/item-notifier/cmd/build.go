package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/donaldgifford/item-notifier/internal/catalog"
	"github.com/donaldgifford/item-notifier/internal/config"
	"github.com/donaldgifford/item-notifier/internal/engine"
	"github.com/donaldgifford/item-notifier/internal/notify"
	"github.com/donaldgifford/item-notifier/internal/state"
	"github.com/donaldgifford/item-notifier/pkg/logger"
	domain "github.com/donaldgifford/item-notifier/pkg/types"
)

// app is the assembled notifier. Close releases the state backend.
type app struct {
	engine   *engine.Engine
	store    state.Store
	notifier *notify.MultiNotifier
	limiter  *catalog.RateLimiter
}

func (a *app) Close() error {
	a.engine.Stop()
	return a.store.Close()
}

// buildApp wires catalog adapters, notification sinks and the state
// backend into an Engine.
func buildApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	st, err := state.Open(ctx, cfg.State)
	if err != nil {
		return nil, fmt.Errorf("opening %s state: %w", cfg.State.Backend, err)
	}

	limiter := newRateLimiter(cfg.Catalog.RateLimit)
	opts := catalogOptions(cfg.Catalog, limiter)
	opts = append(opts, catalog.WithLogger(logger.Component(log, "catalog")))

	src := catalog.NewHTTPSource(cfg.Catalog.ListEndpoint, cfg.Catalog.ItemsField, opts...)
	details := buildDetailFetcher(cfg.Catalog, opts)

	n := notify.New(cfg.Notifications, logger.Component(log, "notify"), notify.WithUserAgent(cfg.Catalog.UserAgent))

	eng := engine.NewEngine(src, details, n, st,
		engine.WithLogger(logger.Component(log, "engine")),
		engine.WithPolicy(cfg.Poll.Policy),
		engine.WithItemURL(itemURLFunc(cfg.Catalog)),
	)

	log.Info("notifier assembled",
		"list_endpoint", cfg.Catalog.ListEndpoint,
		"detail_mode", cfg.Catalog.DetailMode,
		"state_backend", cfg.State.Backend,
		"policy", cfg.Poll.Policy,
		"sinks", n.Sinks(),
	)

	return &app{engine: eng, store: st, notifier: n, limiter: limiter}, nil
}

func newRateLimiter(c config.RateLimitConfig) *catalog.RateLimiter {
	var opts []catalog.RateLimiterOption
	if c.Daily > 0 {
		opts = append(opts, catalog.WithDailyLimit(c.Daily))
	}
	return catalog.NewRateLimiter(c.PerSecond, c.Burst, opts...)
}

func catalogOptions(c config.CatalogConfig, limiter *catalog.RateLimiter) []catalog.Option {
	hc := &http.Client{Timeout: c.RequestTimeout}
	opts := []catalog.Option{
		catalog.WithHTTPClient(hc),
		catalog.WithRequestTimeout(c.RequestTimeout),
		catalog.WithUserAgent(c.UserAgent),
		catalog.WithRateLimiter(limiter),
	}

	switch c.CSRF.Mode {
	case config.CSRFModeMeta:
		page := c.CSRF.PageURL
		if page == "" {
			page = c.BaseURL
		}
		opts = append(opts, catalog.WithTokenProvider(catalog.NewMetaTokenProvider(page, hc)))
	case config.CSRFModeHeader:
		opts = append(opts, catalog.WithTokenProvider(catalog.NewHeaderTokenProvider(c.CSRF.TokenURL, hc)))
	}
	return opts
}

func buildDetailFetcher(c config.CatalogConfig, opts []catalog.Option) catalog.DetailFetcher {
	switch c.DetailMode {
	case config.DetailModeAPI:
		return catalog.NewAPIDetailFetcher(c.DetailEndpoint, c.ThumbnailEndpoint, opts...)
	case config.DetailModeHTML:
		return catalog.NewHTMLDetailFetcher(c.BaseURL, c.ItemPageTemplate, catalog.HTMLSelectors{
			Name:  c.HTML.NameSelector,
			Image: c.HTML.ImageSelector,
			Price: c.HTML.PriceSelector,
		}, opts...)
	default:
		return catalog.FallbackFetcher{}
	}
}

func itemURLFunc(c config.CatalogConfig) engine.ItemURLFunc {
	return func(id domain.ItemID, name string) string {
		return catalog.ItemPageURL(c.ItemPageTemplate, c.BaseURL, id, name)
	}
}
