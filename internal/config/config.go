package config

import (
	"encoding/json"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/screenobserver/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "screenobserver.json"

	// DefaultPort is the default server port.
	DefaultPort = 8080

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultWSPath is the default WebSocket endpoint.
	DefaultWSPath = "/_screen/ws"

	// DefaultMetricsPath is the default Prometheus endpoint.
	DefaultMetricsPath = "/metrics"

	// DefaultAssets is the default static asset directory.
	DefaultAssets = "public"

	// DefaultDebounce is the default debounce interval.
	DefaultDebounce = "250ms"

	// DefaultCallTimeout is the default bridge call timeout.
	DefaultCallTimeout = "5s"

	// DefaultServiceName is the default trace service name.
	DefaultServiceName = "screenobserver"

	// CacheNone and CacheProduction are the accepted asset cache policies.
	CacheNone       = "none"
	CacheProduction = "production"
)

// Config represents the complete screenobserver.json configuration.
type Config struct {
	// Name is the deployment name, used in logs.
	Name string `json:"name,omitempty"`

	// Server contains HTTP and WebSocket settings.
	Server ServerConfig `json:"server"`

	// Observer contains resize observation settings.
	Observer ObserverConfig `json:"observer"`

	// Telemetry contains trace export settings.
	Telemetry TelemetryConfig `json:"telemetry"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP and WebSocket settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// WSPath is the WebSocket endpoint path.
	WSPath string `json:"wsPath,omitempty"`

	// MetricsPath is the Prometheus endpoint path. "-" disables it.
	MetricsPath string `json:"metricsPath,omitempty"`

	// Assets is the directory served at "/". Relative paths are resolved
	// against the config file's directory.
	Assets string `json:"assets,omitempty"`

	// Cache is the asset caching policy: "none" or "production".
	Cache string `json:"cache,omitempty"`

	// MaxSessions limits concurrent pages. 0 means no limit.
	MaxSessions int `json:"maxSessions,omitempty"`
}

// ObserverConfig contains resize observation settings.
type ObserverConfig struct {
	// Debounce is how long a width must be stable before it is reported
	// (e.g., "250ms").
	Debounce string `json:"debounce,omitempty"`

	// CallTimeout bounds every host to browser call (e.g., "5s").
	CallTimeout string `json:"callTimeout,omitempty"`
}

// TelemetryConfig contains trace export settings.
type TelemetryConfig struct {
	// Endpoint is an OTLP/HTTP collector URL. Empty disables export.
	Endpoint string `json:"endpoint,omitempty"`

	// ServiceName is reported on every span.
	ServiceName string `json:"serviceName,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        DefaultHost,
			Port:        DefaultPort,
			WSPath:      DefaultWSPath,
			MetricsPath: DefaultMetricsPath,
			Assets:      DefaultAssets,
		},
		Observer: ObserverConfig{
			Debounce:    DefaultDebounce,
			CallTimeout: DefaultCallTimeout,
		},
		Telemetry: TelemetryConfig{
			ServiceName: DefaultServiceName,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for screenobserver.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E141").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Run 'screenobserver init' to create one")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E120").
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E120").Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.WSPath == "" {
		c.Server.WSPath = DefaultWSPath
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = DefaultMetricsPath
	}
	if c.Observer.Debounce == "" {
		c.Observer.Debounce = DefaultDebounce
	}
	if c.Observer.CallTimeout == "" {
		c.Observer.CallTimeout = DefaultCallTimeout
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E122").
			WithDetail("Port must be between 0 and 65535, got " + strconv.Itoa(c.Server.Port))
	}
	if !strings.HasPrefix(c.Server.WSPath, "/") {
		return errors.New("E123").
			WithDetail("wsPath " + strconv.Quote(c.Server.WSPath) + " must start with /")
	}
	if c.MetricsEnabled() {
		if !strings.HasPrefix(c.Server.MetricsPath, "/") {
			return errors.New("E123").
				WithDetail("metricsPath " + strconv.Quote(c.Server.MetricsPath) + " must start with /")
		}
		if c.Server.MetricsPath == c.Server.WSPath {
			return errors.New("E123").
				WithDetail("metricsPath and wsPath are both " + strconv.Quote(c.Server.WSPath))
		}
	}
	switch c.Server.Cache {
	case "", CacheNone, CacheProduction:
	default:
		return errors.Newf(errors.CategoryConfig, "cache must be %q or %q, got %q", CacheNone, CacheProduction, c.Server.Cache)
	}
	if c.Server.MaxSessions < 0 {
		return errors.Newf(errors.CategoryConfig, "maxSessions must not be negative")
	}
	if _, err := c.DebounceInterval(); err != nil {
		return err
	}
	if _, err := c.CallTimeout(); err != nil {
		return err
	}
	if c.Telemetry.Endpoint != "" {
		u, err := url.Parse(c.Telemetry.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.Newf(errors.CategoryConfig, "telemetry endpoint %q must be an http(s) URL", c.Telemetry.Endpoint)
		}
	}
	return nil
}

// Address returns the listen address.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// MetricsEnabled reports whether the metrics route is served.
func (c *Config) MetricsEnabled() bool {
	return c.Server.MetricsPath != "-"
}

// AssetsPath returns the absolute path to the assets directory, or ""
// if none is configured.
func (c *Config) AssetsPath() string {
	path := c.Server.Assets
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// DebounceInterval parses Observer.Debounce.
func (c *Config) DebounceInterval() (time.Duration, error) {
	return parseDuration("debounce", c.Observer.Debounce)
}

// CallTimeout parses Observer.CallTimeout.
func (c *Config) CallTimeout() (time.Duration, error) {
	return parseDuration("callTimeout", c.Observer.CallTimeout)
}

func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.New("E121").
			WithDetail(field + ": " + err.Error()).
			WithSuggestion(`Use a value such as "250ms" or "5s"`)
	}
	if d <= 0 {
		return 0, errors.New("E121").
			WithDetail(field + " must be positive, got " + value)
	}
	return d, nil
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the directory containing
// screenobserver.json.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E141").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'screenobserver init' to create one")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working
// directory or its nearest parent that has one.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}
	return Load(root)
}
