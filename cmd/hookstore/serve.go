package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/vango-dev/hookstore/internal/config"
	"github.com/vango-dev/hookstore/internal/demo"
	"github.com/vango-dev/hookstore/pkg/component"
	"github.com/vango-dev/hookstore/pkg/devtools"
	"github.com/vango-dev/hookstore/pkg/hookstore"
	"github.com/vango-dev/hookstore/pkg/telemetry"
)

// renderInterval is how often the render queue is flushed when no dispatch
// asks for an earlier flush.
const renderInterval = 50 * time.Millisecond

type serveOptions struct {
	configPath string
	port       int
	host       string
	readOnly   bool
	noDemo     bool
}

func serveCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a store registry with the devtools inspector",
		Long: `Run a store registry and serve the devtools inspector.

Configuration is read from hookstore.yaml in the working directory,
or from the file given with --config. Without a file the defaults
apply.

Examples:
  hookstore serve
  hookstore serve --port=9090
  hookstore serve --config=deploy/hookstore.yaml --read-only`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to hookstore.yaml")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Port to run on (default from hookstore.yaml)")
	cmd.Flags().StringVarP(&opts.host, "host", "H", "", "Host to bind to (default from hookstore.yaml)")
	cmd.Flags().BoolVar(&opts.readOnly, "read-only", false, "Disable the dispatch endpoint")
	cmd.Flags().BoolVar(&opts.noDemo, "no-demo", false, "Do not register the example stores")

	return cmd
}

// loadConfig reads the configuration and applies command-line overrides.
func loadConfig(opts serveOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case opts.configPath != "":
		cfg, err = config.LoadFile(opts.configPath)
	case config.Exists("."):
		cfg, err = config.Load(".")
	default:
		cfg = config.New()
	}
	if err != nil {
		return nil, err
	}

	if opts.port > 0 {
		cfg.Devtools.Port = opts.port
	}
	if opts.host != "" {
		cfg.Devtools.Host = opts.host
	}
	if opts.readOnly {
		cfg.Devtools.ReadOnly = true
	}
	if opts.noDemo {
		cfg.Demo = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger from the log section.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
}

// observability holds the observer and endpoints built from the metrics and
// tracing sections.
type observability struct {
	observer hookstore.Observer
	metrics  http.Handler
	shutdown func(context.Context) error
}

func newObservability(cfg *config.Config, logger *slog.Logger) observability {
	var (
		obs       observability
		observers []hookstore.Observer
	)
	obs.shutdown = func(context.Context) error { return nil }

	if cfg.Metrics.Enabled {
		promReg := prometheus.NewRegistry()
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		observers = append(observers, telemetry.Prometheus(
			telemetry.WithNamespace(cfg.Metrics.Namespace),
			telemetry.WithRegistry(promReg),
		))
		obs.metrics = promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})
	}

	if cfg.Tracing.Enabled {
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSpanProcessor(telemetry.LogSpans(logger.With("component", "tracing"))),
		)
		observers = append(observers, telemetry.OpenTelemetry(
			telemetry.WithTracerName(cfg.Tracing.TracerName),
			telemetry.WithTracerProvider(tp),
		))
		obs.shutdown = tp.Shutdown
	}

	obs.observer = telemetry.Multi(observers...)
	return obs
}

func runServe(ctx context.Context, cfg *config.Config, logOut io.Writer) error {
	logger, err := newLogger(cfg, logOut)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := newObservability(cfg, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.shutdown(shutdownCtx); err != nil {
			logger.Error("tracer shutdown failed", "error", err)
		}
	}()

	reg := hookstore.NewRegistry(append(cfg.RegistryOptions(),
		hookstore.WithLogger(logger),
		hookstore.WithObserver(obs.observer),
	)...)

	queue := component.NewQueue()
	root := component.NewOwner(nil, component.WithScheduler(queue))
	defer root.Dispose()

	if cfg.Demo {
		if _, err := demo.Register(reg, logger); err != nil {
			return err
		}
		if err := demo.Mount(root, reg, logger); err != nil {
			return err
		}
	}

	flush := make(chan struct{}, 1)
	srvOpts := []devtools.Option{
		devtools.WithLogger(logger),
		devtools.WithReadOnly(cfg.Devtools.ReadOnly),
		devtools.WithAllowedOrigins(cfg.Devtools.AllowedOrigins...),
		devtools.WithPingInterval(cfg.Devtools.PingInterval.Duration()),
		devtools.WithAfterDispatch(func() {
			select {
			case flush <- struct{}{}:
			default:
			}
		}),
	}
	if obs.metrics != nil {
		srvOpts = append(srvOpts, devtools.WithMetricsHandler(obs.metrics))
	}

	srv := devtools.New(reg, srvOpts...)
	if err := srv.Start(ctx, cfg.DevtoolsAddress()); err != nil {
		return err
	}

	success("Devtools ready at http://%s", srv.Addr())
	info("%d stores registered", reg.Len())
	if obs.metrics != nil {
		info("Metrics at http://%s/metrics", srv.Addr())
	}
	fmt.Println()

	// Renders run on this goroutine only.
	ticker := time.NewTicker(renderInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\n  Shutting down...")
			return nil
		case <-flush:
		case <-ticker.C:
		}
		if n := queue.Flush(); n > 0 {
			logger.Debug("rendered", "components", n)
		}
	}
}
