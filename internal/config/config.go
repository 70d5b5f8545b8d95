// Package config assembles the serve configuration: environment variables
// (optionally from a .env file) provide the base, command-line flags override
// it, and the result is validated before use.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Catalog CatalogConfig
	Store   StoreConfig
	Log     LogConfig
	Otel    OtelConfig
	Metrics MetricsConfig
}

type ServerConfig struct {
	Addr            string        `env:"FEEDGRAPH_ADDR" envDefault:":8080" validate:"required"`
	Pretty          bool          `env:"FEEDGRAPH_PRETTY"`
	Timeout         time.Duration `env:"FEEDGRAPH_TIMEOUT" envDefault:"10s" validate:"gte=0"`
	MaxBodyBytes    int64         `env:"FEEDGRAPH_MAX_BODY_BYTES" envDefault:"1048576" validate:"gte=0"`
	MetadataHeaders []string      `env:"FEEDGRAPH_METADATA_HEADERS" envSeparator:","`
	CORSOrigins     []string      `env:"FEEDGRAPH_CORS_ORIGINS" envSeparator:","`
}

type CatalogConfig struct {
	BaseURL            string        `env:"FEEDGRAPH_CATALOG_URL" envDefault:"https://yts.mx/api/v2" validate:"required,url"`
	Timeout            time.Duration `env:"FEEDGRAPH_CATALOG_TIMEOUT" envDefault:"10s" validate:"gte=0"`
	BreakerFailures    uint32        `env:"FEEDGRAPH_CATALOG_BREAKER_FAILURES" envDefault:"5"`
	BreakerOpenTimeout time.Duration `env:"FEEDGRAPH_CATALOG_BREAKER_OPEN_TIMEOUT" envDefault:"30s" validate:"gte=0"`
}

type StoreConfig struct {
	// SeedFile is a YAML seed. Empty means the built-in seed.
	SeedFile string `env:"FEEDGRAPH_SEED_FILE" validate:"omitempty,file"`
}

type LogConfig struct {
	Level       string `env:"FEEDGRAPH_LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	Development bool   `env:"FEEDGRAPH_LOG_DEVELOPMENT"`
}

type OtelConfig struct {
	Endpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Service  string `env:"OTEL_SERVICE_NAME" envDefault:"feedgraph" validate:"required"`
}

type MetricsConfig struct {
	Enabled   bool   `env:"FEEDGRAPH_METRICS" envDefault:"true"`
	Namespace string `env:"FEEDGRAPH_METRICS_NAMESPACE" envDefault:"feedgraph" validate:"required_if=Enabled true"`
}

var validate = validator.New()

// Load reads the given dotenv files, then the process environment. A missing
// dotenv file is not an error. With no files, ".env" is tried.
func Load(dotenv ...string) (*Config, error) {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, f := range dotenv {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// RegisterFlags binds the serve flags to c. Current values become the flag
// defaults, so flags given on the command line override the environment.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Server.Addr, "server.addr", c.Server.Addr, "HTTP listen address")
	fs.BoolVar(&c.Server.Pretty, "server.pretty", c.Server.Pretty, "Pretty-print JSON responses")
	fs.DurationVar(&c.Server.Timeout, "server.timeout", c.Server.Timeout, "Per-request timeout")
	fs.Int64Var(&c.Server.MaxBodyBytes, "server.max-body-bytes", c.Server.MaxBodyBytes, "Maximum request body size")
	fs.Var(&listFlag{dst: &c.Server.MetadataHeaders}, "server.metadata-header", "Forward HTTP header to the catalog. Repeatable")
	fs.Var(&listFlag{dst: &c.Server.CORSOrigins}, "server.cors-origin", "Allow CORS requests from origin. Repeatable")

	fs.StringVar(&c.Catalog.BaseURL, "catalog.url", c.Catalog.BaseURL, "Movie catalog base URL")
	fs.DurationVar(&c.Catalog.Timeout, "catalog.timeout", c.Catalog.Timeout, "Catalog call timeout")
	fs.Func("catalog.breaker-failures", "Consecutive failures that open the breaker, 0 disables", func(v string) error {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid count %q", v)
		}
		c.Catalog.BreakerFailures = uint32(n)
		return nil
	})
	fs.DurationVar(&c.Catalog.BreakerOpenTimeout, "catalog.breaker-open-timeout", c.Catalog.BreakerOpenTimeout, "Time the breaker stays open")

	fs.StringVar(&c.Store.SeedFile, "store.seed", c.Store.SeedFile, "YAML seed file for the entity store")

	fs.StringVar(&c.Log.Level, "log.level", c.Log.Level, "Log level: debug, info, warn, error")
	fs.BoolVar(&c.Log.Development, "log.development", c.Log.Development, "Human-readable console logs")

	fs.StringVar(&c.Otel.Endpoint, "otel.endpoint", c.Otel.Endpoint, "OTLP collector endpoint")
	fs.StringVar(&c.Otel.Service, "otel.service", c.Otel.Service, "OpenTelemetry service name")

	fs.BoolVar(&c.Metrics.Enabled, "metrics", c.Metrics.Enabled, "Serve Prometheus metrics at /metrics")
	fs.StringVar(&c.Metrics.Namespace, "metrics.namespace", c.Metrics.Namespace, "Prefix of every metric name")
}

// Validate checks the assembled configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// listFlag is a repeatable flag. The first occurrence on the command line
// replaces the environment value instead of appending to it.
type listFlag struct {
	dst *[]string
	set bool
}

func (l *listFlag) String() string {
	if l.dst == nil {
		return ""
	}
	return strings.Join(*l.dst, ",")
}

func (l *listFlag) Set(v string) error {
	if !l.set {
		*l.dst = nil
		l.set = true
	}
	*l.dst = append(*l.dst, v)
	return nil
}
