package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEnvKeys = []string{
	"PDFSUBMIT_APP_NAME",
	"PDFSUBMIT_APP_ENV",
	"PDFSUBMIT_APP_PORT",
	"PDFSUBMIT_DATABASE_DRIVER",
	"PDFSUBMIT_DATABASE_HOST",
	"PDFSUBMIT_DATABASE_PORT",
	"PDFSUBMIT_DATABASE_PASSWORD",
	"PDFSUBMIT_DATABASE_SSLMODE",
	"PDFSUBMIT_DATABASE_MAX_OPEN_CONNS",
	"PDFSUBMIT_DATABASE_MAX_IDLE_CONNS",
	"PDFSUBMIT_QUEUE_BACKEND",
	"PDFSUBMIT_QUEUE_JOB_TIMEOUT",
	"PDFSUBMIT_WORKER_CONCURRENCY",
	"PDFSUBMIT_STORAGE_BACKEND",
	"PDFSUBMIT_STORAGE_BUCKET",
	"PDFSUBMIT_RENDERER_SCALE",
	"PDFSUBMIT_HOST_BASE_URL",
	"PDFSUBMIT_JWT_SECRET",
	"PDFSUBMIT_AUTH_ENABLED",
	"PDFSUBMIT_TELEMETRY_SAMPLING_RATIO",
	"PDFSUBMIT_TELEMETRY_PROFILING_ENABLED",
	"PDFSUBMIT_TELEMETRY_PYROSCOPE_ADDRESS",
}

// withCleanEnv clears the config env vars for the duration of the test.
func withCleanEnv(t *testing.T) {
	t.Helper()
	original := make(map[string]string, len(testEnvKeys))
	for _, k := range testEnvKeys {
		original[k] = os.Getenv(k)
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for k, v := range original {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		withCleanEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "pdf-on-submit", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "pdf_on_submit", cfg.Database.DBName)
		assert.Equal(t, "memory", cfg.Queue.Backend)
		assert.Equal(t, "long", cfg.Queue.Name)
		assert.Equal(t, 30*time.Second, cfg.Queue.JobTimeout)
		assert.Equal(t, 2, cfg.Worker.Concurrency)
		assert.Equal(t, "filesystem", cfg.Storage.Backend)
		assert.Equal(t, "en", cfg.Printing.Language)
		assert.Equal(t, 1.0, cfg.Renderer.Scale)
		assert.False(t, cfg.Host.Enabled())
		assert.Equal(t, 2*time.Second, cfg.Host.Timeout)
		assert.Equal(t, 200*time.Millisecond, cfg.Database.SlowQuery)
		assert.Equal(t, 3*time.Second, cfg.Host.LookupTimeout)
		assert.False(t, cfg.Auth.Enabled)
	})

	t.Run("loads values from environment variables with PDFSUBMIT prefix", func(t *testing.T) {
		withCleanEnv(t)
		os.Setenv("PDFSUBMIT_APP_NAME", "test-app")
		os.Setenv("PDFSUBMIT_APP_PORT", "9000")
		os.Setenv("PDFSUBMIT_DATABASE_DRIVER", "sqlite")
		os.Setenv("PDFSUBMIT_QUEUE_BACKEND", "redis")
		os.Setenv("PDFSUBMIT_QUEUE_JOB_TIMEOUT", "45s")
		os.Setenv("PDFSUBMIT_WORKER_CONCURRENCY", "8")
		os.Setenv("PDFSUBMIT_HOST_BASE_URL", "https://erp.example.com")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, "redis", cfg.Queue.Backend)
		assert.Equal(t, 45*time.Second, cfg.Queue.JobTimeout)
		assert.Equal(t, 8, cfg.Worker.Concurrency)
		assert.True(t, cfg.Host.Enabled())
		assert.Equal(t, "test-app", cfg.Telemetry.ServiceName)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		withCleanEnv(t)
		os.Setenv("PDFSUBMIT_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("PDFSUBMIT_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown database driver", func(t *testing.T) {
		withCleanEnv(t)
		os.Setenv("PDFSUBMIT_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("rejects unknown queue backend", func(t *testing.T) {
		withCleanEnv(t)
		os.Setenv("PDFSUBMIT_QUEUE_BACKEND", "kafka")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "queue.backend")
	})

	t.Run("s3 backend requires a bucket", func(t *testing.T) {
		withCleanEnv(t)
		os.Setenv("PDFSUBMIT_STORAGE_BACKEND", "s3")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.bucket is required")

		os.Setenv("PDFSUBMIT_STORAGE_BUCKET", "pdfs")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "pdfs", cfg.Storage.Bucket)
	})

	t.Run("rejects renderer scale out of range", func(t *testing.T) {
		withCleanEnv(t)
		os.Setenv("PDFSUBMIT_RENDERER_SCALE", "3.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "renderer.scale")
	})

	t.Run("auth requires jwt secret", func(t *testing.T) {
		withCleanEnv(t)
		os.Setenv("PDFSUBMIT_AUTH_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret is required")
	})

	t.Run("rejects sampling ratio above one", func(t *testing.T) {
		withCleanEnv(t)
		os.Setenv("PDFSUBMIT_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})

	t.Run("profiling requires a pyroscope address", func(t *testing.T) {
		withCleanEnv(t)
		os.Setenv("PDFSUBMIT_TELEMETRY_PROFILING_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pyroscope_address")

		os.Setenv("PDFSUBMIT_TELEMETRY_PYROSCOPE_ADDRESS", "http://localhost:4040")
		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.Telemetry.ProfilingEnabled)
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func() {
		os.Setenv("PDFSUBMIT_APP_ENV", "production")
		os.Setenv("PDFSUBMIT_DATABASE_PASSWORD", "secure-password")
		os.Setenv("PDFSUBMIT_DATABASE_SSLMODE", "require")
	}

	t.Run("requires database.password in production", func(t *testing.T) {
		withCleanEnv(t)
		os.Setenv("PDFSUBMIT_APP_ENV", "production")
		os.Setenv("PDFSUBMIT_DATABASE_SSLMODE", "require")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		withCleanEnv(t)
		setValidProductionBase()
		os.Setenv("PDFSUBMIT_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("sqlite skips postgres production checks", func(t *testing.T) {
		withCleanEnv(t)
		os.Setenv("PDFSUBMIT_APP_ENV", "production")
		os.Setenv("PDFSUBMIT_DATABASE_DRIVER", "sqlite")

		_, err := Load()
		require.NoError(t, err)
	})

	t.Run("requires long jwt secret when auth is enabled in production", func(t *testing.T) {
		withCleanEnv(t)
		setValidProductionBase()
		os.Setenv("PDFSUBMIT_AUTH_ENABLED", "true")
		os.Setenv("PDFSUBMIT_JWT_SECRET", "short-secret")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret must be at least 32 characters")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		withCleanEnv(t)
		setValidProductionBase()
		os.Setenv("PDFSUBMIT_AUTH_ENABLED", "true")
		os.Setenv("PDFSUBMIT_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "redis.local:6380", RedisConfig{Host: "redis.local", Port: 6380}.Addr())
}
