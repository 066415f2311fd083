// Package httpapi exposes the conversational booking agent over HTTP:
// the chat endpoint, the out-of-band booking endpoint driven by the UI's
// flight cards, and the operational endpoints (health, metrics).
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aerochat/aerochat/internal/observe"
	"github.com/aerochat/aerochat/internal/orchestrator"
	"github.com/aerochat/aerochat/internal/reservation"
	"github.com/aerochat/aerochat/internal/tools"
)

// defaultThreadID mirrors the single-conversation default used by UIs that
// do not manage thread ids themselves.
const defaultThreadID = "default_thread"

// bookingTriggerPrefix marks an inbound chat message as an internal
// trigger sent by the frontend after a successful booking; the remainder
// is injected as a system message so the agent starts the ancillary and
// passenger flow.
const bookingTriggerPrefix = "__booking__:"

// Config assembles a [Server].
type Config struct {
	Orchestrator *orchestrator.Orchestrator
	Reservation  reservation.Client
	Bookings     *tools.BookingContexts

	// AllowedOrigins is the CORS allow-list.
	AllowedOrigins []string

	// Metrics is optional; when nil request latency is not recorded.
	Metrics *observe.Metrics
}

// Server is the HTTP front of the agent.
type Server struct {
	echo     *echo.Echo
	orch     *orchestrator.Orchestrator
	client   reservation.Client
	bookings *tools.BookingContexts
}

// New wires the routes and middleware.
func New(cfg Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))
	if cfg.Metrics != nil {
		e.Use(observe.EchoMiddleware(cfg.Metrics))
	}

	s := &Server{
		echo:     e,
		orch:     cfg.Orchestrator,
		client:   cfg.Reservation,
		bookings: cfg.Bookings,
	}

	e.GET("/", s.root)
	e.POST("/chat", s.chat)
	e.POST("/book-flight", s.bookFlight)
	e.POST("/log-flight", s.logFlight)
	e.GET("/healthz", s.healthz)
	e.GET("/readyz", s.healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return s
}

// Handler exposes the underlying handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start blocks serving HTTP on addr until Shutdown is called or the
// listener fails.
func (s *Server) Start(addr string) error {
	slog.Info("http server listening", "addr", addr)
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Flight Bot API is running"})
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
