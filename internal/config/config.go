// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the report service.
type Config struct {
	API      APIConfig
	Search   SearchConfig
	Postgres PostgresConfig
	Mail     MailConfig

	OutputPath string `validate:"required"`
	CreatedBy  string `validate:"required"`
	RedisURL   string // optional; run-summary events are disabled when empty
	Schedule   string // cron spec; empty means run once and exit
	HealthPort string `validate:"required,numeric"`
	LogLevel   slog.Level
}

// APIConfig holds the USAJobs search endpoint settings.
type APIConfig struct {
	QueryURL          string  `validate:"required,url"`
	Key               string  `validate:"required"`
	UserAgent         string  `validate:"required"`
	ContentType       string  `validate:"required"`
	RequestsPerSecond float64 `validate:"gt=0"`
}

// SearchConfig holds the fixed request parameters of a fetch run.
type SearchConfig struct {
	Keyword        string `validate:"required"`
	LocationName   string `validate:"required"`
	ResultsPerPage int    `validate:"gte=1,lte=500"`
	TargetCity     string `validate:"required"`
}

// PostgresConfig holds destination store connection settings.
type PostgresConfig struct {
	Host     string `validate:"required"`
	Port     int    `validate:"gte=1,lte=65535"`
	User     string `validate:"required"`
	Password string `validate:"required"`
	Database string `validate:"required"`
	SSLMode  string `validate:"oneof=disable allow prefer require verify-ca verify-full"`
	Table    string `validate:"required"`
	View     string `validate:"required"`
}

// MailConfig holds the SMTP relay and report addressing.
type MailConfig struct {
	Host      string `validate:"required"`
	Port      int    `validate:"gte=1,lte=65535"`
	Sender    string `validate:"required,email"`
	Password  string `validate:"required"`
	Recipient string `validate:"required,email"`
}

// envNames maps struct field paths to the env var that feeds them, so
// validation errors name something an operator can set.
var envNames = map[string]string{
	"Config.API.QueryURL":          "USA_JOBS_QUERY_URL",
	"Config.API.Key":               "USA_JOBS_API_KEY",
	"Config.API.UserAgent":         "USA_JOBS_API_USER_AGENT",
	"Config.API.ContentType":       "USA_JOBS_CONTENT_TYPE",
	"Config.API.RequestsPerSecond": "USA_JOBS_REQUESTS_PER_SECOND",
	"Config.Search.Keyword":        "JOB_KEYWORD",
	"Config.Search.LocationName":   "JOB_LOCATION_NAME",
	"Config.Search.ResultsPerPage": "USA_JOBS_RESULTS_PER_PAGE",
	"Config.Search.TargetCity":     "TARGET_CITY",
	"Config.Postgres.Host":         "POSTGRES_HOST",
	"Config.Postgres.Port":         "POSTGRES_PORT",
	"Config.Postgres.User":         "POSTGRES_USER",
	"Config.Postgres.Password":     "POSTGRES_PASSWORD",
	"Config.Postgres.Database":     "POSTGRES_DB",
	"Config.Postgres.SSLMode":      "POSTGRES_SSLMODE",
	"Config.Postgres.Table":        "DB_TABLE",
	"Config.Postgres.View":         "DB_VIEW",
	"Config.Mail.Host":             "SMTP_HOST",
	"Config.Mail.Port":             "SMTP_PORT",
	"Config.Mail.Sender":           "SENDER_EMAIL",
	"Config.Mail.Password":         "SENDER_PASS",
	"Config.Mail.Recipient":        "REPORT_RECIPIENT",
	"Config.OutputPath":            "OUTPUT_PATH",
	"Config.CreatedBy":             "USER",
	"Config.HealthPort":            "HEALTH_PORT",
}

var validate = validator.New()

// Load reads an optional .env file, then the process environment, and
// returns a validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return LoadFrom(os.Getenv)
}

// LoadFrom builds a Config from getenv. Numeric variables that fail to
// parse are reported immediately; everything else goes through Validate.
func LoadFrom(getenv func(string) string) (*Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	var errs []error
	atoi := func(key, def string) int {
		s := env(key, def)
		v, err := strconv.Atoi(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s must be an integer, got %q", key, s))
		}
		return v
	}

	rps, err := strconv.ParseFloat(env("USA_JOBS_REQUESTS_PER_SECOND", "2"), 64)
	if err != nil {
		errs = append(errs, fmt.Errorf("USA_JOBS_REQUESTS_PER_SECOND must be a number, got %q", getenv("USA_JOBS_REQUESTS_PER_SECOND")))
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(env("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	cfg := &Config{
		API: APIConfig{
			QueryURL:          env("USA_JOBS_QUERY_URL", "https://data.usajobs.gov/api/Search"),
			Key:               env("USA_JOBS_API_KEY", ""),
			UserAgent:         env("USA_JOBS_API_USER_AGENT", ""),
			ContentType:       env("USA_JOBS_CONTENT_TYPE", "application/hr+json"),
			RequestsPerSecond: rps,
		},
		Search: SearchConfig{
			Keyword:        env("JOB_KEYWORD", "Data Engineering"),
			LocationName:   env("JOB_LOCATION_NAME", "Chicago, Illinois"),
			ResultsPerPage: atoi("USA_JOBS_RESULTS_PER_PAGE", "30"),
			TargetCity:     env("TARGET_CITY", "Chicago, Illinois"),
		},
		Postgres: PostgresConfig{
			Host:     env("POSTGRES_HOST", ""),
			Port:     atoi("POSTGRES_PORT", "5432"),
			User:     env("POSTGRES_USER", ""),
			Password: env("POSTGRES_PASSWORD", ""),
			Database: env("POSTGRES_DB", ""),
			SSLMode:  env("POSTGRES_SSLMODE", "allow"),
			Table:    env("DB_TABLE", "jobs"),
			View:     env("DB_VIEW", "chicago_jobs"),
		},
		Mail: MailConfig{
			Host:      env("SMTP_HOST", "smtp.gmail.com"),
			Port:      atoi("SMTP_PORT", "587"),
			Sender:    env("SENDER_EMAIL", ""),
			Password:  env("SENDER_PASS", ""),
			Recipient: env("REPORT_RECIPIENT", ""),
		},
		OutputPath: env("OUTPUT_PATH", "output.csv"),
		CreatedBy:  env("USER", "unknown"),
		RedisURL:   env("REDIS_URL", ""),
		Schedule:   env("SCHEDULE", ""),
		HealthPort: env("HEALTH_PORT", "8081"),
		LogLevel:   level,
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every required setting and reports all failures at
// once, each named by its environment variable.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name, ok := envNames[fe.Namespace()]
		if !ok {
			name = fe.Namespace()
		}
		if fe.Tag() == "required" {
			msgs = append(msgs, fmt.Sprintf("%s is required", name))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s is invalid (%s=%s), got %v", name, fe.Tag(), fe.Param(), fe.Value()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
