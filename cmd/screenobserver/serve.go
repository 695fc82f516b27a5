package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/screenobserver/internal/config"
	"github.com/vango-dev/screenobserver/internal/errors"
	"github.com/vango-dev/screenobserver/internal/telemetry"
	"github.com/vango-dev/screenobserver/pkg/resize"
	"github.com/vango-dev/screenobserver/pkg/server"
)

type serveOptions struct {
	configPath string
	addr       string
	assets     string
	debounce   time.Duration
	otlp       string
	logWidths  bool
	verbose    bool
}

func serveCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the screen observer server",
		Long: `Start the HTTP server that hosts the page assets, the observer
WebSocket endpoint and the Prometheus metrics route.

Settings come from screenobserver.json in the working directory or its
nearest parent. Without one, defaults are used. SCREENOBSERVER_*
environment variables override the file, and flags override both.

Examples:
  screenobserver serve
  screenobserver serve --addr=:9000 --assets=./web
  screenobserver serve --config=deploy/screenobserver.json --debounce=100ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to screenobserver.json")
	cmd.Flags().StringVarP(&opts.addr, "addr", "a", "", "Address to listen on (default from config)")
	cmd.Flags().StringVar(&opts.assets, "assets", "", "Directory served at / (default from config)")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 0, "Debounce interval sent to browsers (default from config)")
	cmd.Flags().StringVar(&opts.otlp, "otlp-endpoint", "", "OTLP/HTTP collector URL for bridge call traces")
	cmd.Flags().BoolVar(&opts.logWidths, "log-widths", false, "Log every page's viewport width as it changes")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	return cmd
}

func runServe(opts serveOptions) error {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	sc, err := serverConfig(cfg, opts)
	if err != nil {
		return err
	}
	sc.Logger = logger.With("component", "server")
	if opts.logWidths {
		sc.OnSession = logViewportWidths(logger.With("component", "widths"))
	}

	endpoint := cfg.Telemetry.Endpoint
	if opts.otlp != "" {
		endpoint = opts.otlp
	}
	shutdownTracing, err := telemetry.Setup(context.Background(), telemetry.Config{
		Endpoint:    endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
	})
	if err != nil {
		return errors.Newf(errors.CategoryServer, "tracing setup failed").Wrap(err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("trace flush failed", "error", err)
		}
	}()
	if endpoint != "" {
		info("Exporting traces to %s", endpoint)
	}

	srv := server.New(sc)
	info("Listening on %s", sc.Address)
	if err := srv.Run(); err != nil {
		return errors.New("E160").Wrap(err)
	}
	return nil
}

// loadConfig loads path, or the working directory's config when path is
// empty, then applies the environment. A missing config in the working
// directory yields the defaults.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.LoadFromWorkingDir()
		if errors.HasCode(err, "E141") {
			cfg, err = config.New(), nil
		}
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// serverConfig maps the file config and flag overrides onto a server
// configuration.
func serverConfig(cfg *config.Config, opts serveOptions) (*server.ServerConfig, error) {
	debounce, err := cfg.DebounceInterval()
	if err != nil {
		return nil, err
	}
	callTimeout, err := cfg.CallTimeout()
	if err != nil {
		return nil, err
	}

	sc := server.DefaultServerConfig()
	sc.Address = cfg.Address()
	sc.Path = cfg.Server.WSPath
	sc.MetricsPath = ""
	if cfg.MetricsEnabled() {
		sc.MetricsPath = cfg.Server.MetricsPath
	}
	sc.AssetsDir = cfg.AssetsPath()
	sc.MaxSessions = cfg.Server.MaxSessions
	if cfg.Server.Cache == config.CacheProduction {
		sc.AssetCache = server.CacheProduction
	}
	sc.DebounceInterval = debounce
	sc.CallTimeout = callTimeout

	if opts.addr != "" {
		sc.Address = opts.addr
	}
	if opts.assets != "" {
		sc.AssetsDir = opts.assets
	}
	if opts.debounce != 0 {
		sc.DebounceInterval = opts.debounce
	}

	if sc.AssetsDir != "" {
		if st, err := os.Stat(sc.AssetsDir); err != nil || !st.IsDir() {
			return nil, errors.New("E161").
				WithDetail("Assets directory " + sc.AssetsDir + " does not exist").
				WithSuggestion("Create it or pass --assets")
		}
	}
	if err := sc.ValidateConfig(); err != nil {
		return nil, errors.New("E120").Wrap(err)
	}
	return sc, nil
}

// logViewportWidths returns a session hook that observes the viewport and
// logs each settled width. The subscription ends with the session.
func logViewportWidths(logger *slog.Logger) func(context.Context, *resize.Service) {
	return func(ctx context.Context, svc *resize.Service) {
		id := svc.HostRef().ID()
		_, width, err := svc.ObserveScreen(ctx, func(width int) {
			logger.Info("viewport width changed", "host", id, "width", width)
		})
		if err != nil {
			logger.Warn("observe screen failed", "host", id, "error", err)
			return
		}
		logger.Info("viewport observed", "host", id, "width", width)
	}
}
