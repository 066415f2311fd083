// Package app is the composition root: it builds every component from the
// configuration, wires them together and runs the HTTP server until the
// context is cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aerochat/aerochat/internal/config"
	"github.com/aerochat/aerochat/internal/convo"
	convopg "github.com/aerochat/aerochat/internal/convo/postgres"
	"github.com/aerochat/aerochat/internal/httpapi"
	"github.com/aerochat/aerochat/internal/normalize"
	"github.com/aerochat/aerochat/internal/observe"
	"github.com/aerochat/aerochat/internal/orchestrator"
	"github.com/aerochat/aerochat/internal/reservation"
	"github.com/aerochat/aerochat/internal/resilience"
	"github.com/aerochat/aerochat/internal/tools"
	"github.com/aerochat/aerochat/pkg/engine"
	"github.com/aerochat/aerochat/pkg/engine/openai"
)

// Option overrides a constructed dependency, mainly for tests.
type Option func(*options)

type options struct {
	engine engine.Provider
	client reservation.Client
	store  convo.Store
}

// WithEngine replaces the reasoning engine built from the config.
func WithEngine(e engine.Provider) Option {
	return func(o *options) { o.engine = e }
}

// WithReservationClient replaces the reservation client built from the config.
func WithReservationClient(c reservation.Client) Option {
	return func(o *options) { o.client = c }
}

// WithStore replaces the conversation store built from the config.
func WithStore(s convo.Store) Option {
	return func(o *options) { o.store = s }
}

// App holds the assembled application.
type App struct {
	cfg    *config.Config
	server *httpapi.Server

	closers []func(context.Context) error
}

// New builds the application from cfg.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg}

	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "aerochat"})
	if err != nil {
		return nil, fmt.Errorf("app: init telemetry: %w", err)
	}
	a.closers = append(a.closers, shutdownMetrics)
	metrics := observe.DefaultMetrics()

	eng := o.engine
	if eng == nil {
		engOpts := []openai.Option{openai.WithTimeout(cfg.Engine.Timeout)}
		if cfg.Engine.BaseURL != "" {
			engOpts = append(engOpts, openai.WithBaseURL(cfg.Engine.BaseURL))
		}
		eng, err = openai.New(cfg.Engine.APIKey, cfg.Engine.Model, engOpts...)
		if err != nil {
			return nil, fmt.Errorf("app: build engine: %w", err)
		}
	}

	client := o.client
	if client == nil {
		breaker := resilience.NewBreaker(resilience.Config{
			Name:         "reservation",
			MaxFailures:  cfg.Reservation.Breaker.MaxFailures,
			ResetTimeout: cfg.Reservation.Breaker.ResetTimeout,
			HalfOpenMax:  cfg.Reservation.Breaker.HalfOpenMax,
		})
		resOpts := []reservation.Option{
			reservation.WithTimeout(cfg.Reservation.Timeout),
			reservation.WithBreaker(breaker),
		}
		if cfg.Reservation.BaseURL != "" {
			resOpts = append(resOpts, reservation.WithBaseURL(cfg.Reservation.BaseURL))
		}
		client = reservation.NewHTTPClient(cfg.Reservation.AuthID, cfg.Reservation.AuthPassword, resOpts...)
	}

	store := o.store
	if store == nil {
		if cfg.Storage.PostgresDSN != "" {
			pg, err := convopg.NewStore(ctx, cfg.Storage.PostgresDSN)
			if err != nil {
				return nil, fmt.Errorf("app: build store: %w", err)
			}
			a.closers = append(a.closers, func(context.Context) error {
				pg.Close()
				return nil
			})
			store = pg
		} else {
			store = convo.NewMemStore()
		}
	}

	var matchOpts []normalize.Option
	if cfg.Matcher.AcceptScore > 0 {
		matchOpts = append(matchOpts, normalize.WithAcceptScore(cfg.Matcher.AcceptScore))
	}
	if cfg.Matcher.SuggestScore > 0 {
		matchOpts = append(matchOpts, normalize.WithSuggestScore(cfg.Matcher.SuggestScore))
	}
	if cfg.Matcher.SuggestLimit > 0 {
		matchOpts = append(matchOpts, normalize.WithSuggestLimit(cfg.Matcher.SuggestLimit))
	}

	bookings := tools.NewBookingContexts()
	registry := tools.NewRegistry(tools.Config{
		Client:   client,
		Bookings: bookings,
		Matcher:  normalize.NewMatcher(matchOpts...),
		Metrics:  metrics,
	})

	orch := orchestrator.New(orchestrator.Config{
		Engine: eng,
		Store:  store,
		Locks:  convo.NewLocks(),
		Window: convo.NewBuilder(convo.BuilderConfig{
			WindowSize:     cfg.Window.Size,
			FallbackSize:   cfg.Window.FallbackSize,
			MaxItineraries: cfg.Window.MaxItineraries,
			MaxAncillaries: cfg.Window.MaxAncillaries,
		}),
		Tools:     registry,
		MaxRounds: cfg.Turn.MaxRounds,
		Metrics:   metrics,
	})

	a.server = httpapi.New(httpapi.Config{
		Orchestrator:   orch,
		Reservation:    client,
		Bookings:       bookings,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Metrics:        metrics,
	})

	return a, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.server.Start(a.cfg.Server.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shCtx)
	})

	return g.Wait()
}

// Shutdown releases resources held by the application (telemetry
// exporters, database pools). Call after Run returns.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
