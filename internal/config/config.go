package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/critiqo/pkg/config"
	"github.com/utafrali/critiqo/pkg/database"
	"github.com/utafrali/critiqo/pkg/httpclient"
	"github.com/utafrali/critiqo/pkg/tracing"
	"github.com/utafrali/critiqo/pkg/validator"
)

// ServiceName is the OTel service name and the breaker prefix.
const ServiceName = "critiqo"

// Config holds all configuration for the critiqo CLI and watch server.
type Config struct {
	Environment string `env:"CRITIQO_ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn warning error"`

	// Portal API
	APIBaseURL   string        `env:"CRITIQO_API_BASE_URL,required" validate:"required,url"`
	APIToken     string        `env:"CRITIQO_API_TOKEN"`
	HTTPTimeout  time.Duration `env:"CRITIQO_HTTP_TIMEOUT" envDefault:"15s" validate:"gt=0"`
	MaxRetries   int           `env:"CRITIQO_HTTP_MAX_RETRIES" envDefault:"0" validate:"gte=0,lte=5"`
	RateLimitRPS float64       `env:"CRITIQO_RATE_LIMIT_RPS" envDefault:"10" validate:"gte=0"`
	RateBurst    int           `env:"CRITIQO_RATE_LIMIT_BURST" envDefault:"5" validate:"gte=1"`

	// Circuit breaker
	BreakerEnabled      bool          `env:"CRITIQO_BREAKER_ENABLED" envDefault:"true"`
	BreakerTimeout      time.Duration `env:"CRITIQO_BREAKER_TIMEOUT" envDefault:"30s"`
	BreakerFailureRatio float64       `env:"CRITIQO_BREAKER_FAILURE_RATIO" envDefault:"0.5" validate:"gt=0,lte=1"`
	BreakerMinRequests  uint32        `env:"CRITIQO_BREAKER_MIN_REQUESTS" envDefault:"5"`

	// List views
	DefaultLimit   int           `env:"CRITIQO_DEFAULT_LIMIT" envDefault:"10" validate:"oneof=5 10 25 50 100"`
	SearchDebounce time.Duration `env:"CRITIQO_SEARCH_DEBOUNCE" envDefault:"500ms"`

	// Redis snapshots (optional)
	RedisAddr     string        `env:"CRITIQO_REDIS_ADDR"`
	RedisPassword string        `env:"CRITIQO_REDIS_PASSWORD"`
	RedisDB       int           `env:"CRITIQO_REDIS_DB" envDefault:"0" validate:"gte=0"`
	SnapshotTTL   time.Duration `env:"CRITIQO_SNAPSHOT_TTL" envDefault:"10m" validate:"gt=0"`

	// Kafka audit (optional)
	KafkaBrokers []string `env:"CRITIQO_KAFKA_BROKERS" envSeparator:","`
	AuditTopic   string   `env:"CRITIQO_AUDIT_TOPIC" envDefault:"critiqo.moderation.events"`

	// OpenTelemetry
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0" validate:"gte=0,lte=1"`

	// Watch server
	WatchPort     int           `env:"CRITIQO_WATCH_PORT" envDefault:"9464" validate:"gte=1,lte=65535"`
	WatchInterval time.Duration `env:"CRITIQO_WATCH_INTERVAL" envDefault:"30s" validate:"gt=0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadAndValidate(cfg); err != nil {
		return nil, fmt.Errorf("load critiqo config: %w", err)
	}
	return cfg, nil
}

// LoadFrom reads configuration from environ instead of the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadWithEnvironment(cfg, environ); err != nil {
		return nil, fmt.Errorf("load critiqo config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the validate tags. Callers that change fields after Load
// run it again.
func (c *Config) Validate() error {
	if err := validator.Validate(c); err != nil {
		return fmt.Errorf("validate critiqo config: %w", err)
	}
	return nil
}

// SnapshotsEnabled reports whether a Redis address is configured.
func (c *Config) SnapshotsEnabled() bool {
	return c.RedisAddr != ""
}

// AuditEnabled reports whether Kafka brokers are configured.
func (c *Config) AuditEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// HTTPClient returns the outgoing client settings.
func (c *Config) HTTPClient() httpclient.Config {
	hc := httpclient.DefaultConfig()
	hc.Timeout = c.HTTPTimeout
	hc.MaxRetries = c.MaxRetries
	hc.RateLimit = c.RateLimitRPS
	hc.Burst = c.RateBurst
	return hc
}

// Breaker returns the circuit breaker settings for the portal API.
func (c *Config) Breaker(name string) httpclient.CircuitBreakerConfig {
	bc := httpclient.DefaultCircuitBreakerConfig(ServiceName + "-" + name)
	if c.BreakerTimeout > 0 {
		bc.Timeout = c.BreakerTimeout
	}
	bc.FailureRatio = c.BreakerFailureRatio
	if c.BreakerMinRequests > 0 {
		bc.MinRequests = c.BreakerMinRequests
	}
	return bc
}

// Redis returns the snapshot store connection settings.
func (c *Config) Redis() database.RedisConfig {
	rc := database.DefaultRedisConfig()
	rc.Addr = c.RedisAddr
	rc.Password = c.RedisPassword
	rc.DB = c.RedisDB
	return rc
}

// Tracing returns the OTel settings.
func (c *Config) Tracing(version string) tracing.Config {
	tc := tracing.DefaultConfig(ServiceName)
	if version != "" {
		tc.ServiceVersion = version
	}
	tc.Environment = c.Environment
	tc.OTLPEndpoint = c.OTLPEndpoint
	tc.SampleRate = c.OTelSampleRate
	tc.Enabled = c.OTelEnabled
	return tc
}
