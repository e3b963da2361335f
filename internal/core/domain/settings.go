package domain

import "fmt"

// AIProvider identifies the embedding provider
type AIProvider string

const (
	AIProviderOpenAI AIProvider = "openai"
	AIProviderOllama AIProvider = "ollama"
)

// RequiresAPIKey returns true if this provider requires an API key
func (p AIProvider) RequiresAPIKey() bool {
	switch p {
	case AIProviderOllama:
		return false // Self-hosted, no API key needed
	default:
		return true
	}
}

// IsValid returns true if this is a known provider
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderOllama:
		return true
	default:
		return false
	}
}

// EmbeddingSettings configures the embedding service
type EmbeddingSettings struct {
	Provider AIProvider `json:"provider"`
	Model    string     `json:"model"`
	APIKey   string     `json:"-"` // Never serialize to JSON
	BaseURL  string     `json:"base_url,omitempty"`

	// RequestsPerMinute caps outgoing embedding calls (0 = unlimited)
	RequestsPerMinute int `json:"requests_per_minute,omitempty"`
}

// IsConfigured returns true if embedding settings are properly configured
func (e *EmbeddingSettings) IsConfigured() bool {
	if e.Provider == "" {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// Validate checks if EmbeddingSettings are valid
func (e *EmbeddingSettings) Validate() error {
	if e.Provider != "" && !e.Provider.IsValid() {
		return ErrInvalidProvider
	}
	return nil
}

// ChunkingSettings configures the chunking pipeline
type ChunkingSettings struct {
	// TargetSize is the maximum bytes per chunk (atomic pieces may exceed it)
	TargetSize int `json:"target_size"`

	// Overlap is the byte overlap between consecutive stream-aligned chunks
	Overlap int `json:"overlap"`

	// Mode selects stream-aligned or node-aligned chunking
	Mode ChunkMode `json:"mode"`

	// EmbedBatchSize is how many chunks go into one embedding request
	EmbedBatchSize int `json:"embed_batch_size"`
}

// DefaultChunkingSettings returns sensible defaults
func DefaultChunkingSettings() ChunkingSettings {
	return ChunkingSettings{
		TargetSize:     1000,
		Overlap:        200,
		Mode:           ChunkModeStream,
		EmbedBatchSize: 64,
	}
}

// Validate checks the chunk size and overlap can make progress
func (c ChunkingSettings) Validate() error {
	if c.TargetSize <= 0 {
		return fmt.Errorf("%w: target size must be positive", ErrInvalidChunkConfig)
	}
	if c.Overlap < 0 || c.Overlap >= c.TargetSize {
		return fmt.Errorf("%w: overlap must be in [0, target size)", ErrInvalidChunkConfig)
	}
	if c.Mode != "" && !c.Mode.IsValid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidChunkConfig, c.Mode)
	}
	return nil
}

// AutoTagSettings configures automatic tag assignment
type AutoTagSettings struct {
	// Enabled turns on auto-tagging after indexing
	Enabled bool `json:"enabled"`

	// ExcerptParagraphs is how many leading paragraphs form the excerpt
	ExcerptParagraphs int `json:"excerpt_paragraphs"`

	// MinExcerptLength is the shortest excerpt worth embedding
	MinExcerptLength int `json:"min_excerpt_length"`

	// Threshold is the similarity a candidate must exceed to be selected
	Threshold float64 `json:"threshold"`

	// FallbackTagID is assigned when no candidate qualifies (may be empty)
	FallbackTagID string `json:"fallback_tag_id,omitempty"`
}

// DefaultAutoTagSettings returns sensible defaults
func DefaultAutoTagSettings() AutoTagSettings {
	return AutoTagSettings{
		Enabled:           true,
		ExcerptParagraphs: 3,
		MinExcerptLength:  20,
		Threshold:         0.5,
	}
}

// Validate checks AutoTagSettings
func (a AutoTagSettings) Validate() error {
	if a.ExcerptParagraphs <= 0 {
		return fmt.Errorf("%w: excerpt paragraphs must be positive", ErrInvalidInput)
	}
	if a.MinExcerptLength < 0 {
		return fmt.Errorf("%w: min excerpt length must not be negative", ErrInvalidInput)
	}
	if a.Threshold < -1 || a.Threshold > 1 {
		return fmt.Errorf("%w: threshold must be in [-1, 1]", ErrInvalidInput)
	}
	return nil
}
