package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hanpama/feedgraph/internal/catalog"
	"github.com/hanpama/feedgraph/internal/config"
	"github.com/hanpama/feedgraph/internal/eventbus"
	"github.com/hanpama/feedgraph/internal/feedgraph"
	"github.com/hanpama/feedgraph/internal/logging"
	"github.com/hanpama/feedgraph/internal/metrics"
	"github.com/hanpama/feedgraph/internal/otel"
	"github.com/hanpama/feedgraph/internal/schema"
	"github.com/hanpama/feedgraph/internal/server"
	"github.com/hanpama/feedgraph/internal/store"
)

const rootUsage = `feedgraph: GraphQL gateway over a message store and the YTS movie catalog

USAGE:
  feedgraph <command> [flags]

COMMANDS:
  serve            Run the HTTP GraphQL server
  print-schema     Print the GraphQL schema as SDL
  help             Show help for any command
`

const serveUsage = `serve FLAGS (each also settable through the environment):
  -server.addr <addr>                   HTTP listen address (FEEDGRAPH_ADDR, default: :8080)
  -server.pretty                        Pretty-print JSON responses (FEEDGRAPH_PRETTY)
  -server.timeout <duration>            Per-request timeout (FEEDGRAPH_TIMEOUT, default: 10s)
  -server.max-body-bytes N              Request body limit (FEEDGRAPH_MAX_BODY_BYTES, default: 1048576)
  -server.metadata-header <name>        Forward HTTP header to the catalog. Repeatable
                                        (FEEDGRAPH_METADATA_HEADERS, comma separated)
  -server.cors-origin <origin>          Allow CORS from origin. Repeatable
                                        (FEEDGRAPH_CORS_ORIGINS, comma separated)
  -catalog.url <url>                    Movie catalog base URL (FEEDGRAPH_CATALOG_URL,
                                        default: https://yts.mx/api/v2)
  -catalog.timeout <duration>           Catalog call timeout (FEEDGRAPH_CATALOG_TIMEOUT, default: 10s)
  -catalog.breaker-failures N           Failures that open the breaker, 0 disables
                                        (FEEDGRAPH_CATALOG_BREAKER_FAILURES, default: 5)
  -catalog.breaker-open-timeout <dur>   Time the breaker stays open
                                        (FEEDGRAPH_CATALOG_BREAKER_OPEN_TIMEOUT, default: 30s)
  -store.seed <file>                    YAML seed for the entity store (FEEDGRAPH_SEED_FILE)
  -log.level <level>                    debug, info, warn or error (FEEDGRAPH_LOG_LEVEL, default: info)
  -log.development                      Console log output (FEEDGRAPH_LOG_DEVELOPMENT)
  -otel.endpoint <addr>                 OTLP collector endpoint (OTEL_EXPORTER_OTLP_ENDPOINT)
  -otel.service <name>                  OpenTelemetry service name (OTEL_SERVICE_NAME, default: feedgraph)
  -metrics <bool>                       Serve Prometheus metrics at /metrics (FEEDGRAPH_METRICS, default: true)
  -metrics.namespace <name>             Metric name prefix (FEEDGRAPH_METRICS_NAMESPACE, default: feedgraph)
`

const printSchemaUsage = `print-schema FLAGS:
  -out <file>   Write SDL to file (default: stdout)
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("feedgraph", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs, stderr)
	case "print-schema":
		return cmdPrintSchema(cmdArgs, stdout, stderr)
	case "help":
		return cmdHelp(cmdArgs, stdout)
	default:
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Fprint(stdout, serveUsage)
	case "print-schema":
		fmt.Fprint(stdout, printSchemaUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

func cmdPrintSchema(args []string, stdout, stderr io.Writer) error {
	outFile := ""
	fs := flag.NewFlagSet("print-schema", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&outFile, "out", outFile, "Write SDL to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, printSchemaUsage)
		return err
	}

	sdl := schema.Render(feedgraph.NewSchema())
	if outFile == "" {
		_, err := io.WriteString(stdout, sdl)
		return err
	}
	return os.WriteFile(outFile, []byte(sdl), 0644)
}

func cmdServe(args []string, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, serveUsage)
		return err
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprint(stderr, serveUsage)
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	app, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("GraphQL server listening", zap.String("addr", cfg.Server.Addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// app is a fully wired server: store, catalog, runtime, observability and
// router.
type app struct {
	Handler http.Handler
	closers []func()
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}
	eventbus.Use(eventbus.New())
	a.closers = append(a.closers, func() { eventbus.Use(nil) })

	shutdown, err := otel.Setup(cfg.Otel.Endpoint, cfg.Otel.Service)
	if err != nil {
		return nil, fmt.Errorf("otel setup: %w", err)
	}
	a.closers = append(a.closers, func() { _ = shutdown(context.Background()) })
	a.closers = append(a.closers, logging.Subscribe(logger))

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		collector := metrics.NewCollector(cfg.Metrics.Namespace)
		a.closers = append(a.closers, collector.Subscribe())
		metricsHandler = collector.Handler()
	}

	seed := store.DefaultSeed()
	if cfg.Store.SeedFile != "" {
		if seed, err = store.LoadSeed(cfg.Store.SeedFile); err != nil {
			a.Close()
			return nil, err
		}
	}
	st, err := store.New(seed)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("store: %w", err)
	}

	cat := catalog.New(cfg.Catalog.BaseURL,
		catalog.WithTimeout(cfg.Catalog.Timeout),
		catalog.WithBreaker(cfg.Catalog.BreakerFailures, cfg.Catalog.BreakerOpenTimeout),
	)

	sopts := []server.Option{
		server.WithTimeout(cfg.Server.Timeout),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	}
	if cfg.Server.Pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if len(cfg.Server.MetadataHeaders) > 0 {
		sopts = append(sopts, server.WithMetadataHeaders(cfg.Server.MetadataHeaders...))
	}
	h, err := server.New(feedgraph.NewRuntime(st, cat), feedgraph.NewSchema(), sopts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("server init: %w", err)
	}

	a.Handler = server.NewRouter(server.Routes{
		GraphQL:     h,
		Metrics:     metricsHandler,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	return a, nil
}

// Close releases subscriptions and exporters in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
