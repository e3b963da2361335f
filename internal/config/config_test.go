package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(nil)
	require.NoError(t, err)

	assert.Equal(t, ModeAll, cfg.Mode)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, 24*time.Hour, cfg.Redis.CacheTTL)
	assert.Equal(t, domain.DefaultChunkingSettings(), cfg.ChunkingSettings())
	assert.Equal(t, domain.DefaultAutoTagSettings(), cfg.AutoTagSettings())
	assert.Equal(t, "memory", cfg.StorageBackend())
	assert.Equal(t, "", cfg.QueueBackend())
}

func TestLoad_YAML(t *testing.T) {
	content := []byte(`
server:
  port: 9090
  cors_origins: ["http://localhost:3000"]
database:
  url: postgres://localhost/notes
chunking:
  target_size: 500
  overlap: 50
  mode: node
autotag:
  threshold: 0.7
  fallback_tag_id: inbox
worker:
  sweep_interval: 30s
`)

	cfg, err := load(content)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "postgres", cfg.StorageBackend())
	assert.Equal(t, domain.ChunkModeNode, cfg.ChunkingSettings().Mode)
	assert.Equal(t, 500, cfg.Chunking.TargetSize)
	assert.Equal(t, 0.7, cfg.AutoTag.Threshold)
	assert.Equal(t, "inbox", cfg.AutoTagSettings().FallbackTagID)
	assert.Equal(t, 30*time.Second, cfg.Worker.SweepInterval)
	// untouched sections keep defaults
	assert.Equal(t, 2, cfg.Worker.Concurrency)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("EMBEDDING_PROVIDER", "ollama")
	t.Setenv("EMBEDDING_BASE_URL", "http://localhost:11434/v1")
	t.Setenv("AUTOTAG_ENABLED", "false")
	t.Setenv("CHUNKING_TARGET_SIZE", "300")

	cfg, err := load([]byte("server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.QueueBackend())
	assert.Equal(t, domain.AIProviderOllama, cfg.EmbeddingSettings().Provider)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Embedding.BaseURL)
	assert.False(t, cfg.AutoTag.Enabled)
	assert.Equal(t, 300, cfg.Chunking.TargetSize)
}

func TestLoad_EnvAliases(t *testing.T) {
	t.Setenv("RUN_MODE", "api")
	t.Setenv("PORT", "8181")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := load(nil)
	require.NoError(t, err)

	assert.Equal(t, ModeAPI, cfg.Mode)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "sk-test", cfg.EmbeddingSettings().APIKey)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"unknown mode", "mode: batch\n", domain.ErrInvalidInput},
		{"worker without redis", "mode: worker\n", domain.ErrInvalidInput},
		{"bad port", "server:\n  port: 70000\n", domain.ErrInvalidInput},
		{"overlap too large", "chunking:\n  target_size: 100\n  overlap: 100\n", domain.ErrInvalidChunkConfig},
		{"threshold out of range", "autotag:\n  threshold: 2\n", domain.ErrInvalidInput},
		{"unknown provider", "embedding:\n  provider: acme\n", domain.ErrInvalidProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load([]byte(tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
		})
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 6060\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Server.Port)

	cfg, err = Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)

	_, err = Load(dir)
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	known := knownKeys()

	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"DATABASE_URL", "database.url", true},
		{"WORKER_SWEEP_INTERVAL", "worker.sweep_interval", true},
		{"EMBEDDING_REQUESTS_PER_MINUTE", "embedding.requests_per_minute", true},
		{"PORT", "server.port", true},
		{"HOME", "", false},
		{"PATH_SEPARATOR", "", false},
	}

	for _, tt := range tests {
		got, ok := envKey(tt.name, known)
		assert.Equal(t, tt.want, got, tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
	}
}
