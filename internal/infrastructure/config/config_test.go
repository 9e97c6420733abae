package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default configuration", func(t *testing.T) {
		cfg, err := Load()

		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Check server defaults
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Server.Mode)
		assert.Equal(t, int64(50<<20), cfg.Server.MaxUploadBytes)

		// Check database defaults
		assert.False(t, cfg.Database.Enabled)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "disable", cfg.Database.SSLMode)

		// Check redis defaults
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
		assert.Equal(t, 0, cfg.Redis.DB)

		// Check serving defaults
		assert.Equal(t, 32, cfg.Inference.BatchSize)
		assert.Equal(t, 10000, cfg.Inference.MaxTextLength)
		assert.Equal(t, 500, cfg.Inference.ChunkSize)
		assert.Equal(t, 256, cfg.Classifier.MaxSequenceLength)
		assert.False(t, cfg.Classifier.ConcurrentSafe)
		assert.Equal(t, 600*time.Second, cfg.Cache.MetricsTTL)
		assert.Equal(t, 3600*time.Second, cfg.Cache.InfoTTL)
		assert.Equal(t, 60, cfg.RateLimit.DefaultLimit)
		assert.Equal(t, 10, cfg.RateLimit.InferenceLimit)
		assert.Equal(t, time.Minute, cfg.RateLimit.Window)
		assert.False(t, cfg.Dataset.DemoFallback)

		// Check log defaults
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "json", cfg.Log.Format)
	})

	t.Run("reads from environment variables", func(t *testing.T) {
		t.Setenv("REVIEWSENSE_SERVER_PORT", "9090")
		t.Setenv("REVIEWSENSE_DATABASE_HOST", "db.example.com")
		t.Setenv("REVIEWSENSE_LOG_LEVEL", "debug")
		t.Setenv("REVIEWSENSE_CACHE_METRICS_TTL", "2m")
		t.Setenv("REVIEWSENSE_RATE_LIMIT_INFERENCE_LIMIT", "3")
		t.Setenv("REVIEWSENSE_DATASET_DEMO_FALLBACK", "true")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "db.example.com", cfg.Database.Host)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, 2*time.Minute, cfg.Cache.MetricsTTL)
		assert.Equal(t, 3, cfg.RateLimit.InferenceLimit)
		assert.True(t, cfg.Dataset.DemoFallback)
	})

	t.Run("rejects malformed environment values", func(t *testing.T) {
		t.Setenv("REVIEWSENSE_SERVER_PORT", "not-a-number")

		_, err := Load()

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "REVIEWSENSE_SERVER_PORT")
	})

	t.Run("reads yaml file before environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "inference:\n  batch_size: 8\n  chunk_size: 100\nclassifier:\n  backend: lexicon\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		t.Setenv(ConfigPathEnv, path)
		t.Setenv("REVIEWSENSE_INFERENCE_CHUNK_SIZE", "50")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, 8, cfg.Inference.BatchSize)
		assert.Equal(t, 50, cfg.Inference.ChunkSize)
		assert.Equal(t, ClassifierLexicon, cfg.Classifier.Backend)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero batch size", mutate: func(c *Config) { c.Inference.BatchSize = 0 }},
		{name: "zero chunk size", mutate: func(c *Config) { c.Inference.ChunkSize = 0 }},
		{name: "zero metrics ttl", mutate: func(c *Config) { c.Cache.MetricsTTL = 0 }},
		{name: "zero limit", mutate: func(c *Config) { c.RateLimit.DefaultLimit = 0 }},
		{name: "unknown classifier", mutate: func(c *Config) { c.Classifier.Backend = "onnx" }},
		{name: "redis limiter without redis", mutate: func(c *Config) { c.RateLimit.Backend = RateLimitRedis }},
		{name: "postgres dataset without database", mutate: func(c *Config) { c.Dataset.Provider = DatasetPostgres }},
		{name: "unknown dataset provider", mutate: func(c *Config) { c.Dataset.Provider = "s3" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, defaultConfig().Validate())
	})
}
