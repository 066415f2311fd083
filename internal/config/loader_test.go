package config

import (
	"strings"
	"testing"
	"time"
)

const validYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
engine:
  api_key: sk-test
  model: gpt-4o
reservation:
  auth_id: agency
  auth_password: secret
matcher:
  accept_score: 70
  suggest_score: 50
window:
  size: 20
  fallback_size: 4
turn:
  max_rounds: 8
`

func TestLoadFromReaderValid(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Engine.Provider != "openai" {
		t.Errorf("provider default = %q", cfg.Engine.Provider)
	}
	if cfg.Engine.Timeout != 60*time.Second {
		t.Errorf("engine timeout default = %v", cfg.Engine.Timeout)
	}
	if cfg.Reservation.Timeout != 30*time.Second {
		t.Errorf("reservation timeout default = %v", cfg.Reservation.Timeout)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "*" {
		t.Errorf("allowed_origins default = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Matcher.AcceptScore != 70 || cfg.Window.Size != 20 || cfg.Turn.MaxRounds != 8 {
		t.Errorf("tuning values lost: %+v", cfg)
	}
}

func TestLoadFromReaderUnknownField(t *testing.T) {
	const doc = `
engine:
  api_key: sk-test
  model: gpt-4o
  temprature: 0.7
`
	if _, err := LoadFromReader(strings.NewReader(doc)); err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("AUTHID", "")
	t.Setenv("AUTHPASSSWORD", "")

	_, err := LoadFromReader(strings.NewReader(`
engine:
  model: ""
matcher:
  accept_score: 120
`))
	if err == nil {
		t.Fatal("invalid config accepted")
	}
	for _, want := range []string{"engine.api_key", "engine.model", "reservation.auth_id", "accept_score"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %s: %v", want, err)
		}
	}
}

func TestValidateWindowCoherence(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("AUTHID", "agency")
	t.Setenv("AUTHPASSSWORD", "secret")

	_, err := LoadFromReader(strings.NewReader(`
engine:
  model: gpt-4o
window:
  size: 4
  fallback_size: 10
`))
	if err == nil || !strings.Contains(err.Error(), "fallback_size") {
		t.Fatalf("incoherent window accepted: %v", err)
	}
}
