package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// validates the result. Useful in tests where configs are constructed
// from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8000"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if cfg.Engine.Provider == "" {
		cfg.Engine.Provider = "openai"
	}
	if cfg.Engine.APIKey == "" {
		cfg.Engine.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Engine.Timeout <= 0 {
		cfg.Engine.Timeout = 60 * time.Second
	}
	if cfg.Reservation.AuthID == "" {
		cfg.Reservation.AuthID = os.Getenv("AUTHID")
	}
	if cfg.Reservation.AuthPassword == "" {
		cfg.Reservation.AuthPassword = os.Getenv("AUTHPASSSWORD")
	}
	if cfg.Reservation.Timeout <= 0 {
		cfg.Reservation.Timeout = 30 * time.Second
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Engine.Provider != "openai" {
		errs = append(errs, fmt.Errorf("engine.provider %q is not supported; valid values: openai", cfg.Engine.Provider))
	}
	if cfg.Engine.APIKey == "" {
		errs = append(errs, errors.New("engine.api_key is required (or set OPENAI_API_KEY)"))
	}
	if cfg.Engine.Model == "" {
		errs = append(errs, errors.New("engine.model is required"))
	}

	if cfg.Reservation.AuthID == "" {
		errs = append(errs, errors.New("reservation.auth_id is required (or set AUTHID)"))
	}
	if cfg.Reservation.AuthPassword == "" {
		errs = append(errs, errors.New("reservation.auth_password is required (or set AUTHPASSSWORD)"))
	}

	if cfg.Matcher.AcceptScore < 0 || cfg.Matcher.AcceptScore > 100 {
		errs = append(errs, fmt.Errorf("matcher.accept_score %.1f is out of range [0, 100]", cfg.Matcher.AcceptScore))
	}
	if cfg.Matcher.SuggestScore < 0 || cfg.Matcher.SuggestScore > 100 {
		errs = append(errs, fmt.Errorf("matcher.suggest_score %.1f is out of range [0, 100]", cfg.Matcher.SuggestScore))
	}
	if cfg.Matcher.SuggestScore > cfg.Matcher.AcceptScore && cfg.Matcher.AcceptScore != 0 {
		errs = append(errs, errors.New("matcher.suggest_score must not exceed matcher.accept_score"))
	}

	if cfg.Window.FallbackSize > cfg.Window.Size && cfg.Window.Size != 0 {
		errs = append(errs, errors.New("window.fallback_size must not exceed window.size"))
	}
	if cfg.Turn.MaxRounds < 0 {
		errs = append(errs, fmt.Errorf("turn.max_rounds %d must not be negative", cfg.Turn.MaxRounds))
	}

	return errors.Join(errs...)
}
