package config

import (
	"testing"

	"github.com/caarlos0/env/v11"
)

func TestApplyEnv(t *testing.T) {
	cfg := New()
	err := cfg.applyEnv(env.Options{Environment: map[string]string{
		"SCREENOBSERVER_HOST":          "0.0.0.0",
		"SCREENOBSERVER_PORT":          "9090",
		"SCREENOBSERVER_CACHE":         "production",
		"SCREENOBSERVER_MAX_SESSIONS":  "12",
		"SCREENOBSERVER_DEBOUNCE":      "75ms",
		"SCREENOBSERVER_OTEL_ENDPOINT": "http://collector:4318",
	}})
	if err != nil {
		t.Fatalf("applyEnv error: %v", err)
	}

	if cfg.Address() != "0.0.0.0:9090" {
		t.Errorf("Address() = %q, want 0.0.0.0:9090", cfg.Address())
	}
	if cfg.Server.Cache != CacheProduction {
		t.Errorf("Server.Cache = %q, want production", cfg.Server.Cache)
	}
	if cfg.Server.MaxSessions != 12 {
		t.Errorf("Server.MaxSessions = %d, want 12", cfg.Server.MaxSessions)
	}
	if cfg.Observer.Debounce != "75ms" {
		t.Errorf("Observer.Debounce = %q, want 75ms", cfg.Observer.Debounce)
	}
	if cfg.Observer.CallTimeout != DefaultCallTimeout {
		t.Errorf("Observer.CallTimeout = %q, want unchanged", cfg.Observer.CallTimeout)
	}
	if cfg.Telemetry.Endpoint != "http://collector:4318" {
		t.Errorf("Telemetry.Endpoint = %q", cfg.Telemetry.Endpoint)
	}
}

func TestApplyEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		code string
	}{
		{"port not a number", map[string]string{"SCREENOBSERVER_PORT": "http"}, "E124"},
		{"port out of range", map[string]string{"SCREENOBSERVER_PORT": "99999"}, "E122"},
		{"bad debounce", map[string]string{"SCREENOBSERVER_DEBOUNCE": "soon"}, "E121"},
		{"bad endpoint", map[string]string{"SCREENOBSERVER_OTEL_ENDPOINT": "collector:4318"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().applyEnv(env.Options{Environment: tt.vars})
			if err == nil {
				t.Fatal("applyEnv should fail")
			}
			if got := errorCode(err); got != tt.code {
				t.Errorf("error = %v, want code %q", err, tt.code)
			}
		})
	}
}

func TestApplyEnvEmpty(t *testing.T) {
	cfg := New()
	if err := cfg.applyEnv(env.Options{Environment: map[string]string{}}); err != nil {
		t.Fatalf("applyEnv error: %v", err)
	}
	if cfg.Server.Port != DefaultPort || cfg.Server.Host != DefaultHost {
		t.Errorf("empty environment changed the config: %+v", cfg.Server)
	}
}
