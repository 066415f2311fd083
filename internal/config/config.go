// Package config defines the YAML configuration schema and its validation.
package config

import "time"

// LogLevel is the minimum severity emitted by the structured logger.
type LogLevel string

// IsValid reports whether l is one of the recognised levels.
func (l LogLevel) IsValid() bool {
	switch l {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

// Config is the root configuration document.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Engine      EngineConfig      `yaml:"engine"`
	Reservation ReservationConfig `yaml:"reservation"`
	Matcher     MatcherConfig     `yaml:"matcher"`
	Window      WindowConfig      `yaml:"window"`
	Turn        TurnConfig        `yaml:"turn"`
	Storage     StorageConfig     `yaml:"storage"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// ListenAddr is the address the HTTP server binds to. Default: ":8000".
	ListenAddr string `yaml:"listen_addr"`

	// AllowedOrigins is the CORS allow-list. Default: ["*"].
	AllowedOrigins []string `yaml:"allowed_origins"`

	// LogLevel is the minimum log severity ("debug", "info", "warn", "error").
	LogLevel LogLevel `yaml:"log_level"`
}

// EngineConfig selects and configures the reasoning engine.
type EngineConfig struct {
	// Provider names the engine implementation. Currently only "openai".
	Provider string `yaml:"provider"`

	// APIKey authenticates against the provider.
	APIKey string `yaml:"api_key"`

	// Model is the model identifier, e.g. "gpt-4o".
	Model string `yaml:"model"`

	// BaseURL overrides the provider endpoint (proxies, compatible APIs).
	BaseURL string `yaml:"base_url"`

	// Timeout bounds a single decision request. Default: 60s.
	Timeout time.Duration `yaml:"timeout"`
}

// ReservationConfig configures the reservation-system client.
type ReservationConfig struct {
	AuthID       string `yaml:"auth_id"`
	AuthPassword string `yaml:"auth_password"`

	// BaseURL overrides the API endpoint. Default: the production endpoint.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds a single API call. Default: 30s.
	Timeout time.Duration `yaml:"timeout"`

	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the reservation circuit breaker. Zero values mean
// the breaker defaults.
type BreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
	HalfOpenMax  int           `yaml:"half_open_max"`
}

// MatcherConfig tunes the fuzzy destination matcher. Zero values mean the
// matcher defaults (accept 60, suggest 40, limit 5).
type MatcherConfig struct {
	AcceptScore  float64 `yaml:"accept_score"`
	SuggestScore float64 `yaml:"suggest_score"`
	SuggestLimit int     `yaml:"suggest_limit"`
}

// WindowConfig tunes the engine message window. Zero values mean the
// window defaults.
type WindowConfig struct {
	Size           int `yaml:"size"`
	FallbackSize   int `yaml:"fallback_size"`
	MaxItineraries int `yaml:"max_itineraries"`
	MaxAncillaries int `yaml:"max_ancillaries"`
}

// TurnConfig bounds turn processing.
type TurnConfig struct {
	// MaxRounds caps tool-call rounds per turn. Default: 10.
	MaxRounds int `yaml:"max_rounds"`
}

// StorageConfig selects the conversation store backend.
type StorageConfig struct {
	// PostgresDSN, when set, switches thread history to PostgreSQL.
	// Empty means the in-memory store.
	PostgresDSN string `yaml:"postgres_dsn"`
}
