// Package config loads sercha-notes configuration from an optional YAML file,
// a local .env file and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
)

const maxConfigFileSize = 1024 * 1024

// Run modes
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// Config is the full service configuration.
type Config struct {
	Mode      string          `koanf:"mode"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Chunking  ChunkingConfig  `koanf:"chunking"`
	AutoTag   AutoTagConfig   `koanf:"autotag"`
	Worker    WorkerConfig    `koanf:"worker"`
	Auth      AuthConfig      `koanf:"auth"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host        string   `koanf:"host"`
	Port        int      `koanf:"port"`
	CORSOrigins []string `koanf:"cors_origins"`
}

// DatabaseConfig configures PostgreSQL. An empty URL selects in-memory stores.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`

	// TagIndexPath persists the in-memory tag index when no URL is set
	TagIndexPath string `koanf:"tag_index_path"`
}

// RedisConfig configures the task queue, lock and embedding cache.
// An empty URL disables all three.
type RedisConfig struct {
	URL      string        `koanf:"url"`
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider          string `koanf:"provider"`
	Model             string `koanf:"model"`
	APIKey            string `koanf:"api_key"`
	BaseURL           string `koanf:"base_url"`
	RequestsPerMinute int    `koanf:"requests_per_minute"`
}

// ChunkingConfig configures the chunking pipeline.
type ChunkingConfig struct {
	TargetSize     int    `koanf:"target_size"`
	Overlap        int    `koanf:"overlap"`
	Mode           string `koanf:"mode"`
	EmbedBatchSize int    `koanf:"embed_batch_size"`
}

// AutoTagConfig configures automatic tag assignment.
type AutoTagConfig struct {
	Enabled           bool    `koanf:"enabled"`
	ExcerptParagraphs int     `koanf:"excerpt_paragraphs"`
	MinExcerptLength  int     `koanf:"min_excerpt_length"`
	Threshold         float64 `koanf:"threshold"`
	FallbackTagID     string  `koanf:"fallback_tag_id"`
}

// WorkerConfig configures task processing and the unindexed-document sweeper.
type WorkerConfig struct {
	Concurrency    int           `koanf:"concurrency"`
	DequeueTimeout int           `koanf:"dequeue_timeout"`
	SweepEnabled   bool          `koanf:"sweep_enabled"`
	SweepInterval  time.Duration `koanf:"sweep_interval"`
	SweepGrace     time.Duration `koanf:"sweep_grace"`
	LockTTL        time.Duration `koanf:"lock_ttl"`
}

// AuthConfig configures bearer token validation.
type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	Issuer    string        `koanf:"issuer"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() map[string]interface{} {
	chunking := domain.DefaultChunkingSettings()
	autotag := domain.DefaultAutoTagSettings()
	return map[string]interface{}{
		"mode":                        ModeAll,
		"server.host":                 "0.0.0.0",
		"server.port":                 8080,
		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "5m",
		"database.conn_max_idle_time": "1m",
		"redis.cache_ttl":             "24h",
		"embedding.model":             "text-embedding-3-small",
		"chunking.target_size":        chunking.TargetSize,
		"chunking.overlap":            chunking.Overlap,
		"chunking.mode":               string(chunking.Mode),
		"chunking.embed_batch_size":   chunking.EmbedBatchSize,
		"autotag.enabled":             autotag.Enabled,
		"autotag.excerpt_paragraphs":  autotag.ExcerptParagraphs,
		"autotag.min_excerpt_length":  autotag.MinExcerptLength,
		"autotag.threshold":           autotag.Threshold,
		"worker.concurrency":          2,
		"worker.dequeue_timeout":      5,
		"worker.sweep_enabled":        true,
		"worker.sweep_interval":       "1m",
		"worker.sweep_grace":          "2m",
		"worker.lock_ttl":             "5m",
		"auth.jwt_secret":             "development-secret-change-in-production",
		"auth.issuer":                 "sercha-notes",
		"auth.token_ttl":              "24h",
	}
}

// Load reads configuration with the following precedence (highest first):
//  1. Environment variables (SERVER_PORT, DATABASE_URL, EMBEDDING_API_KEY, ...)
//  2. A .env file in the working directory
//  3. The YAML file at path (skipped when path is empty or missing)
//  4. Defaults
func Load(path string) (*Config, error) {
	// .env never overrides variables already set in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var content []byte
	if path != "" {
		data, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		content = data
	}

	return load(content)
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return data, nil
}

// load builds a Config from YAML content and the process environment.
func load(content []byte) (*Config, error) {
	k := koanf.New(".")

	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if len(content) > 0 {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	known := knownKeys()
	if err := k.Load(env.Provider("", ".", func(name string) string {
		key, _ := envKey(name, known)
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envAliases maps conventional variable names onto config keys.
var envAliases = map[string]string{
	"RUN_MODE":       "mode",
	"PORT":           "server.port",
	"JWT_SECRET":     "auth.jwt_secret",
	"OPENAI_API_KEY": "embedding.api_key",
}

// knownKeys lists every leaf key a variable may address.
func knownKeys() map[string]bool {
	keys := make(map[string]bool)
	for key := range Defaults() {
		keys[key] = true
	}
	for _, key := range []string{
		"database.url",
		"database.tag_index_path",
		"redis.url",
		"embedding.provider",
		"embedding.api_key",
		"embedding.base_url",
		"embedding.requests_per_minute",
		"autotag.fallback_tag_id",
		"server.cors_origins",
	} {
		keys[key] = true
	}
	return keys
}

// envKey maps SECTION_FIELD_NAME to section.field_name when that key exists.
// Unknown variables map to "" and are skipped.
func envKey(name string, known map[string]bool) (string, bool) {
	if alias, ok := envAliases[name]; ok {
		return alias, true
	}
	lower := strings.ToLower(name)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) != 2 {
		return "", false
	}
	key := parts[0] + "." + parts[1]
	if !known[key] {
		return "", false
	}
	return key, true
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeAll, ModeAPI, ModeWorker:
	default:
		return fmt.Errorf("%w: unknown mode %q (use: api, worker, or all)", domain.ErrInvalidInput, c.Mode)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", domain.ErrInvalidInput, c.Server.Port)
	}
	if c.Mode == ModeWorker && c.Redis.URL == "" {
		return fmt.Errorf("%w: worker mode requires redis.url", domain.ErrInvalidInput)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("%w: auth.jwt_secret is required", domain.ErrInvalidInput)
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("%w: worker concurrency must be positive", domain.ErrInvalidInput)
	}

	embedding := c.EmbeddingSettings()
	if err := embedding.Validate(); err != nil {
		return err
	}
	if err := c.ChunkingSettings().Validate(); err != nil {
		return err
	}
	return c.AutoTagSettings().Validate()
}

// EmbeddingSettings converts the embedding section to domain settings.
func (c *Config) EmbeddingSettings() *domain.EmbeddingSettings {
	return &domain.EmbeddingSettings{
		Provider:          domain.AIProvider(c.Embedding.Provider),
		Model:             c.Embedding.Model,
		APIKey:            c.Embedding.APIKey,
		BaseURL:           c.Embedding.BaseURL,
		RequestsPerMinute: c.Embedding.RequestsPerMinute,
	}
}

// ChunkingSettings converts the chunking section to domain settings.
func (c *Config) ChunkingSettings() domain.ChunkingSettings {
	return domain.ChunkingSettings{
		TargetSize:     c.Chunking.TargetSize,
		Overlap:        c.Chunking.Overlap,
		Mode:           domain.ChunkMode(c.Chunking.Mode),
		EmbedBatchSize: c.Chunking.EmbedBatchSize,
	}
}

// AutoTagSettings converts the autotag section to domain settings.
func (c *Config) AutoTagSettings() domain.AutoTagSettings {
	return domain.AutoTagSettings{
		Enabled:           c.AutoTag.Enabled,
		ExcerptParagraphs: c.AutoTag.ExcerptParagraphs,
		MinExcerptLength:  c.AutoTag.MinExcerptLength,
		Threshold:         c.AutoTag.Threshold,
		FallbackTagID:     c.AutoTag.FallbackTagID,
	}
}

// StorageBackend reports "postgres" or "memory".
func (c *Config) StorageBackend() string {
	if c.Database.URL != "" {
		return "postgres"
	}
	return "memory"
}

// QueueBackend reports "redis" or "" when saves are indexed inline.
func (c *Config) QueueBackend() string {
	if c.Redis.URL != "" {
		return "redis"
	}
	return ""
}
