package config

import (
	"github.com/caarlos0/env/v11"

	"github.com/vango-dev/screenobserver/internal/errors"
)

// envOverrides lists the environment variables that override the file.
// Unset or empty variables leave the file's value in place.
type envOverrides struct {
	Host         string `env:"SCREENOBSERVER_HOST"`
	Port         int    `env:"SCREENOBSERVER_PORT"`
	Assets       string `env:"SCREENOBSERVER_ASSETS"`
	Cache        string `env:"SCREENOBSERVER_CACHE"`
	MaxSessions  int    `env:"SCREENOBSERVER_MAX_SESSIONS"`
	Debounce     string `env:"SCREENOBSERVER_DEBOUNCE"`
	CallTimeout  string `env:"SCREENOBSERVER_CALL_TIMEOUT"`
	OTelEndpoint string `env:"SCREENOBSERVER_OTEL_ENDPOINT"`
}

// ApplyEnv overlays SCREENOBSERVER_* environment variables onto c and
// validates the result.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(env.Options{})
}

func (c *Config) applyEnv(opts env.Options) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, opts); err != nil {
		return errors.New("E124").
			WithDetail(err.Error()).
			WithSuggestion("Check the SCREENOBSERVER_* environment variables")
	}

	if o.Host != "" {
		c.Server.Host = o.Host
	}
	if o.Port != 0 {
		c.Server.Port = o.Port
	}
	if o.Assets != "" {
		c.Server.Assets = o.Assets
	}
	if o.Cache != "" {
		c.Server.Cache = o.Cache
	}
	if o.MaxSessions != 0 {
		c.Server.MaxSessions = o.MaxSessions
	}
	if o.Debounce != "" {
		c.Observer.Debounce = o.Debounce
	}
	if o.CallTimeout != "" {
		c.Observer.CallTimeout = o.CallTimeout
	}
	if o.OTelEndpoint != "" {
		c.Telemetry.Endpoint = o.OTelEndpoint
	}
	return c.Validate()
}
