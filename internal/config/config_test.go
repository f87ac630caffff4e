package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEnv() map[string]string {
	return map[string]string{
		"USA_JOBS_API_KEY":        "secret-key",
		"USA_JOBS_API_USER_AGENT": "someone@example.com",
		"POSTGRES_HOST":           "localhost",
		"POSTGRES_PORT":           "5432",
		"POSTGRES_USER":           "jobs",
		"POSTGRES_PASSWORD":       "jobs",
		"POSTGRES_DB":             "jobs",
		"SENDER_EMAIL":            "reports@example.com",
		"SENDER_PASS":             "app-password",
		"REPORT_RECIPIENT":        "reader@example.com",
		"USER":                    "etl",
	}
}

func getenvFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(getenvFrom(validEnv()))
	require.NoError(t, err)

	assert.Equal(t, "https://data.usajobs.gov/api/Search", cfg.API.QueryURL)
	assert.Equal(t, "application/hr+json", cfg.API.ContentType)
	assert.Equal(t, 2.0, cfg.API.RequestsPerSecond)
	assert.Equal(t, "Data Engineering", cfg.Search.Keyword)
	assert.Equal(t, "Chicago, Illinois", cfg.Search.LocationName)
	assert.Equal(t, "Chicago, Illinois", cfg.Search.TargetCity)
	assert.Equal(t, 30, cfg.Search.ResultsPerPage)
	assert.Equal(t, "allow", cfg.Postgres.SSLMode)
	assert.Equal(t, "jobs", cfg.Postgres.Table)
	assert.Equal(t, "chicago_jobs", cfg.Postgres.View)
	assert.Equal(t, "smtp.gmail.com", cfg.Mail.Host)
	assert.Equal(t, 587, cfg.Mail.Port)
	assert.Equal(t, "output.csv", cfg.OutputPath)
	assert.Equal(t, "etl", cfg.CreatedBy)
	assert.Equal(t, "8081", cfg.HealthPort)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.Schedule)
}

func TestLoadFrom_MissingRequired(t *testing.T) {
	for _, key := range []string{
		"USA_JOBS_API_KEY",
		"USA_JOBS_API_USER_AGENT",
		"POSTGRES_HOST",
		"POSTGRES_USER",
		"POSTGRES_PASSWORD",
		"POSTGRES_DB",
		"SENDER_EMAIL",
		"SENDER_PASS",
		"REPORT_RECIPIENT",
	} {
		t.Run(key, func(t *testing.T) {
			env := validEnv()
			delete(env, key)

			_, err := LoadFrom(getenvFrom(env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), key+" is required")
		})
	}
}

func TestLoadFrom_ReportsAllMissingAtOnce(t *testing.T) {
	_, err := LoadFrom(getenvFrom(map[string]string{}))
	require.Error(t, err)
	for _, key := range []string{"USA_JOBS_API_KEY", "POSTGRES_HOST", "SENDER_EMAIL", "REPORT_RECIPIENT"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestLoadFrom_WhitespaceCountsAsMissing(t *testing.T) {
	env := validEnv()
	env["USA_JOBS_API_KEY"] = "   "

	_, err := LoadFrom(getenvFrom(env))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "USA_JOBS_API_KEY")
}

func TestLoadFrom_UserFallsBackToUnknown(t *testing.T) {
	env := validEnv()
	delete(env, "USER")

	cfg, err := LoadFrom(getenvFrom(env))
	require.NoError(t, err)
	assert.Equal(t, "unknown", cfg.CreatedBy)
}

func TestLoadFrom_InvalidNumbers(t *testing.T) {
	cases := map[string]string{
		"POSTGRES_PORT":                "five",
		"SMTP_PORT":                    "x",
		"USA_JOBS_RESULTS_PER_PAGE":    "thirty",
		"USA_JOBS_REQUESTS_PER_SECOND": "fast",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			env := validEnv()
			env[key] = val

			_, err := LoadFrom(getenvFrom(env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoadFrom_OutOfRange(t *testing.T) {
	env := validEnv()
	env["POSTGRES_PORT"] = "70000"
	env["USA_JOBS_RESULTS_PER_PAGE"] = "0"

	_, err := LoadFrom(getenvFrom(env))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_PORT is invalid")
	assert.Contains(t, err.Error(), "USA_JOBS_RESULTS_PER_PAGE is invalid")
}

func TestLoadFrom_InvalidEmail(t *testing.T) {
	env := validEnv()
	env["REPORT_RECIPIENT"] = "not-an-address"

	_, err := LoadFrom(getenvFrom(env))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REPORT_RECIPIENT is invalid")
}

func TestLoadFrom_InvalidSSLMode(t *testing.T) {
	env := validEnv()
	env["POSTGRES_SSLMODE"] = "sometimes"

	_, err := LoadFrom(getenvFrom(env))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_SSLMODE")
}

func TestLoadFrom_Overrides(t *testing.T) {
	env := validEnv()
	env["JOB_KEYWORD"] = "Data Science"
	env["JOB_LOCATION_NAME"] = "Denver, Colorado"
	env["DB_TABLE"] = "jobs_v2"
	env["SCHEDULE"] = "@daily"
	env["REDIS_URL"] = "redis://localhost:6379/0"
	env["LOG_LEVEL"] = "debug"

	cfg, err := LoadFrom(getenvFrom(env))
	require.NoError(t, err)
	assert.Equal(t, "Data Science", cfg.Search.Keyword)
	assert.Equal(t, "Denver, Colorado", cfg.Search.LocationName)
	assert.Equal(t, "jobs_v2", cfg.Postgres.Table)
	assert.Equal(t, "@daily", cfg.Schedule)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadFrom_InvalidLogLevel(t *testing.T) {
	env := validEnv()
	env["LOG_LEVEL"] = "chatty"

	_, err := LoadFrom(getenvFrom(env))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOG_LEVEL")
}
