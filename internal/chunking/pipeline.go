package chunking

import (
	"fmt"
	"log/slog"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
)

// DefaultTargetSize is the default number of bytes per chunk.
const DefaultTargetSize = 1000

// DefaultOverlap is the default number of overlapping bytes.
const DefaultOverlap = 200

// Pipeline runs extraction, splitting and node mapping for one document.
// It holds no per-document state and is safe for concurrent use.
type Pipeline struct {
	targetSize int
	overlap    int
	logger     *slog.Logger
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithTargetSize sets the maximum chunk size in bytes.
func WithTargetSize(size int) Option {
	return func(p *Pipeline) {
		p.targetSize = size
	}
}

// WithOverlap sets the overlap between stream-aligned chunks in bytes.
func WithOverlap(overlap int) Option {
	return func(p *Pipeline) {
		p.overlap = overlap
	}
}

// WithLogger sets the logger used to report skipped chunks.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSettings applies target size and overlap from chunking settings.
// Settings without a target size keep the defaults.
func WithSettings(s domain.ChunkingSettings) Option {
	return func(p *Pipeline) {
		if s.TargetSize > 0 {
			p.targetSize = s.TargetSize
			p.overlap = s.Overlap
		}
	}
}

// New creates a pipeline with the given options.
// It returns domain.ErrInvalidChunkConfig if the sizes cannot make progress.
func New(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		targetSize: DefaultTargetSize,
		overlap:    DefaultOverlap,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := checkConfig(p.targetSize, p.overlap); err != nil {
		return nil, err
	}
	return p, nil
}

// TargetSize returns the configured chunk size.
func (p *Pipeline) TargetSize() int {
	return p.targetSize
}

// Overlap returns the configured overlap.
func (p *Pipeline) Overlap() int {
	return p.overlap
}

// Result is the output of one pipeline run.
type Result struct {
	Mode       domain.ChunkMode
	Stream     domain.FlatTextStream
	Boundaries []domain.NodeBoundary
	Chunks     []domain.ChunkWithNodeIDs

	// Skipped counts chunks dropped because their offsets did not slice back
	// to their text.
	Skipped int
}

// Preview converts the result into its serializable form.
func (r *Result) Preview() *domain.ChunkPreview {
	return &domain.ChunkPreview{
		Stream:     r.Stream,
		Boundaries: r.Boundaries,
		Chunks:     r.Chunks,
		Skipped:    r.Skipped,
	}
}

// Chunk extracts the tree and chunks it in the given mode.
// An empty mode means stream-aligned.
func (p *Pipeline) Chunk(root domain.Node, mode domain.ChunkMode) (*Result, error) {
	stream, boundaries, err := Extract(root)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}
	return p.ChunkStream(stream, boundaries, mode)
}

// ChunkStream chunks an already extracted stream.
func (p *Pipeline) ChunkStream(stream domain.FlatTextStream, boundaries []domain.NodeBoundary, mode domain.ChunkMode) (*Result, error) {
	if mode == "" {
		mode = domain.ChunkModeStream
	}

	result := &Result{
		Mode:       mode,
		Stream:     stream,
		Boundaries: boundaries,
	}

	var err error
	switch mode {
	case domain.ChunkModeStream:
		result.Chunks, result.Skipped, err = p.streamAligned(stream, boundaries)
	case domain.ChunkModeNode:
		result.Chunks, err = p.nodeAligned(stream, boundaries)
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidChunkConfig, mode)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// streamAligned splits the whole stream; chunks may span nodes and overlap.
func (p *Pipeline) streamAligned(stream domain.FlatTextStream, boundaries []domain.NodeBoundary) ([]domain.ChunkWithNodeIDs, int, error) {
	pieces, err := Split(stream.Text, p.targetSize, p.overlap)
	if err != nil {
		return nil, 0, err
	}

	valid := pieces[:0]
	skipped := 0
	for i, c := range pieces {
		if c.StartIndex < 0 || c.EndIndex > stream.Len() || stream.Slice(c.StartIndex, c.EndIndex) != c.Text {
			p.logger.Warn("skipping chunk",
				"position", i,
				"start", c.StartIndex,
				"end", c.EndIndex,
				"error", domain.ErrChunkLocation,
			)
			skipped++
			continue
		}
		valid = append(valid, c)
	}

	return NewMapper(boundaries).Annotate(valid), skipped, nil
}

// nodeAligned confines every chunk to a single node. Nodes larger than the
// target size are split on their own, with offsets shifted into the stream.
func (p *Pipeline) nodeAligned(stream domain.FlatTextStream, boundaries []domain.NodeBoundary) ([]domain.ChunkWithNodeIDs, error) {
	chunks := make([]domain.ChunkWithNodeIDs, 0, len(boundaries))

	for _, b := range boundaries {
		text := stream.Slice(b.StartIndex, b.EndIndex)
		if b.Len() <= p.targetSize {
			chunks = append(chunks, domain.ChunkWithNodeIDs{
				Text:       text,
				NodeIDs:    []string{b.NodeID},
				StartIndex: b.StartIndex,
				EndIndex:   b.EndIndex,
			})
			continue
		}

		pieces, err := Split(text, p.targetSize, p.overlap)
		if err != nil {
			return nil, err
		}
		for _, c := range pieces {
			chunks = append(chunks, domain.ChunkWithNodeIDs{
				Text:       c.Text,
				NodeIDs:    []string{b.NodeID},
				StartIndex: b.StartIndex + c.StartIndex,
				EndIndex:   b.StartIndex + c.EndIndex,
			})
		}
	}

	return chunks, nil
}
