package app

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Source drivers.
const (
	DriverAPI      = "api"
	DriverPostgres = "postgres"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080" validate:"required"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"20s" validate:"gt=0"`
	RateLimitPerMin   int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120" validate:"gt=0"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty" validate:"oneof=pretty json"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	SourceDriver    string        `envconfig:"SOURCE_DRIVER" default:"api" validate:"oneof=api postgres"`
	UpstreamBaseURL string        `envconfig:"UPSTREAM_BASE_URL" validate:"required_if=SourceDriver api"`
	UpstreamToken   string        `envconfig:"UPSTREAM_TOKEN"`
	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"15s" validate:"gt=0"`

	PGDSN string `envconfig:"PG_DSN" validate:"required_if=SourceDriver postgres"`

	RedisAddr         string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	LookupCacheTTL    time.Duration `envconfig:"LOOKUP_CACHE_TTL" default:"10m" validate:"gte=0"`
	LookupRefreshCron string        `envconfig:"LOOKUP_REFRESH_CRON" default:"*/15 * * * *"`

	ReportTimezone string `envconfig:"REPORT_TIMEZONE" default:"America/Mexico_City" validate:"required"`
	location       *time.Location
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration and resolves the report timezone.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: missing")
	}
	if err := configValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("config: %w", err)
		}
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("config: invalid %s", strings.Join(fields, ", "))
	}
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		return fmt.Errorf("config: REPORT_TIMEZONE: %w", err)
	}
	c.location = loc
	return nil
}

// Location returns the calendar used to decide what "today" is.
func (c *Config) Location() *time.Location {
	if c == nil || c.location == nil {
		return time.Local
	}
	return c.location
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
