package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/aerochat/aerochat/internal/app"
	"github.com/aerochat/aerochat/internal/config"
	"github.com/aerochat/aerochat/internal/convo"
	resmock "github.com/aerochat/aerochat/internal/reservation/mock"
	"github.com/aerochat/aerochat/pkg/engine"
	engmock "github.com/aerochat/aerochat/pkg/engine/mock"
)

// testConfig returns a minimal config that binds to an ephemeral port.
func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			ListenAddr:     "127.0.0.1:0",
			AllowedOrigins: []string{"*"},
			LogLevel:       "info",
		},
		Engine: config.EngineConfig{
			Provider: "openai",
			APIKey:   "test-key",
			Model:    "test-model",
			Timeout:  time.Second,
		},
		Reservation: config.ReservationConfig{
			AuthID:       "test-id",
			AuthPassword: "test-pass",
			Timeout:      time.Second,
		},
	}
}

func newTestApp(t *testing.T) *app.App {
	t.Helper()

	application, err := app.New(
		context.Background(),
		testConfig(),
		app.WithEngine(&engmock.Provider{Actions: []*engine.Action{{Content: "hello"}}}),
		app.WithReservationClient(&resmock.Client{}),
		app.WithStore(convo.NewMemStore()),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if application == nil {
		t.Fatal("New() returned nil app")
	}
	return application
}

func TestNew_WithMocks(t *testing.T) {
	t.Parallel()

	newTestApp(t)
}

func TestApp_Shutdown(t *testing.T) {
	t.Parallel()

	application := newTestApp(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
}

func TestApp_RunAndShutdown(t *testing.T) {
	t.Parallel()

	application := newTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run(ctx)
	}()

	// Give the server a moment to bind.
	time.Sleep(50 * time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			t.Fatalf("Run() returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return within 5s after context cancellation")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
}
