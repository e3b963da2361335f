package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-notes/internal/chunking"
	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-notes/internal/metrics"
	"github.com/custodia-labs/sercha-notes/internal/runtime"
	"github.com/custodia-labs/sercha-notes/internal/similarity"
)

// AutoTagResolver picks a candidate for a piece of content: it embeds a short
// excerpt once and runs the matcher against the supplied candidates.
// It never retries the embedding call.
type AutoTagResolver struct {
	embedder   driven.EmbeddingService
	paragraphs int
	minLength  int
	threshold  float64
}

// NewAutoTagResolver creates a resolver using the given settings.
func NewAutoTagResolver(embedder driven.EmbeddingService, settings domain.AutoTagSettings) *AutoTagResolver {
	paragraphs := settings.ExcerptParagraphs
	if paragraphs <= 0 {
		paragraphs = domain.DefaultAutoTagSettings().ExcerptParagraphs
	}
	return &AutoTagResolver{
		embedder:   embedder,
		paragraphs: paragraphs,
		minLength:  settings.MinExcerptLength,
		threshold:  settings.Threshold,
	}
}

// Resolve returns the best candidate for content or a fallback result.
// Content paragraphs are separated by blank lines.
func (r *AutoTagResolver) Resolve(ctx context.Context, content string, candidates []domain.CandidateVector) (domain.MatchResult, error) {
	report, err := r.ResolveReport(ctx, content, candidates)
	if err != nil {
		return domain.MatchResult{}, err
	}
	return report.Result, nil
}

// ResolveReport is Resolve with the matcher's per-candidate details.
func (r *AutoTagResolver) ResolveReport(ctx context.Context, content string, candidates []domain.CandidateVector) (similarity.Report, error) {
	excerpt := chunking.Excerpt(content, r.paragraphs)
	if utf8.RuneCountInString(excerpt) < r.minLength {
		return similarity.Report{Result: domain.Fallback(domain.MatchReasonInsufficientSignal, 0)}, nil
	}
	if r.embedder == nil {
		return similarity.Report{}, domain.ErrEmbeddingUnavailable
	}

	start := time.Now()
	vector, err := r.embedder.EmbedQuery(ctx, excerpt)
	metrics.ObserveEmbedding("query", start)
	if err != nil {
		return similarity.Report{}, fmt.Errorf("failed to embed excerpt: %w", err)
	}

	return similarity.BestMatchReport(vector, candidates, r.threshold), nil
}

// Ensure autoTagService implements AutoTagService
var _ driving.AutoTagService = (*autoTagService)(nil)

// autoTagService assigns documents to tags
type autoTagService struct {
	documentStore driven.DocumentStore
	tagStore      driven.TagStore
	parsers       driven.ParserRegistry
	services      *runtime.Services
	logger        *slog.Logger
}

// AutoTagServiceConfig holds dependencies for the auto-tag service.
type AutoTagServiceConfig struct {
	DocumentStore driven.DocumentStore
	TagStore      driven.TagStore
	Parsers       driven.ParserRegistry
	Services      *runtime.Services
	Logger        *slog.Logger
}

// NewAutoTagService creates a new AutoTagService
func NewAutoTagService(cfg AutoTagServiceConfig) driving.AutoTagService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &autoTagService{
		documentStore: cfg.DocumentStore,
		tagStore:      cfg.TagStore,
		parsers:       cfg.Parsers,
		services:      cfg.Services,
		logger:        logger,
	}
}

// AutoTag resolves and stores the tag of a document
func (s *autoTagService) AutoTag(ctx context.Context, ownerID, documentID string) (*domain.TagAssignment, error) {
	settings := s.services.AutoTagSettings()
	if !settings.Enabled {
		return nil, fmt.Errorf("auto-tagging is disabled: %w", domain.ErrServiceUnavailable)
	}

	embedder := s.services.EmbeddingService()
	if embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	doc, err := getOwnedDocument(ctx, s.documentStore, ownerID, documentID)
	if err != nil {
		return nil, err
	}

	content, err := s.paragraphs(doc)
	if err != nil {
		return nil, err
	}

	candidates, err := s.tagStore.ListCandidates(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	report, err := NewAutoTagResolver(embedder, settings).ResolveReport(ctx, content, candidates)
	if err != nil {
		return nil, err
	}
	metrics.RecordMatch(report.Result, len(report.Excluded))
	if len(report.Excluded) > 0 {
		s.logger.Warn("candidates excluded from matching",
			"owner_id", ownerID,
			"excluded", report.Excluded,
			"error", domain.ErrDimensionMismatch)
	}

	result := report.Result
	tagID := result.ID
	if result.Fallback {
		tagID = settings.FallbackTagID
	}

	assignment := &domain.TagAssignment{
		DocumentID: doc.ID,
		OwnerID:    ownerID,
		TagID:      tagID,
		Score:      result.Score,
		Fallback:   result.Fallback,
		Reason:     result.Reason,
		AssignedAt: time.Now(),
	}
	if err := s.tagStore.SaveAssignment(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to save assignment: %w", err)
	}
	if err := s.documentStore.SetTag(ctx, doc.ID, tagID); err != nil {
		return nil, fmt.Errorf("failed to tag document: %w", err)
	}

	s.logger.Info("document tagged",
		"document_id", doc.ID,
		"tag_id", tagID,
		"score", result.Score,
		"reason", result.Reason)
	return assignment, nil
}

// paragraphs flattens a document into blank-line separated paragraphs.
func (s *autoTagService) paragraphs(doc *domain.Document) (string, error) {
	root, err := parse(s.parsers, doc.Content, doc.MimeType)
	if err != nil {
		return "", err
	}
	stream, boundaries, err := chunking.Extract(root)
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}
	return strings.Join(chunking.Paragraphs(stream, boundaries), "\n\n"), nil
}

// Match runs the matcher against an owner's tags
func (s *autoTagService) Match(ctx context.Context, ownerID string, req driving.MatchRequest) (*driving.MatchResponse, error) {
	if len(req.Vector) == 0 {
		return nil, fmt.Errorf("vector is required: %w", domain.ErrInvalidInput)
	}

	threshold := s.services.AutoTagSettings().Threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	candidates, err := s.tagStore.ListCandidates(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	report := similarity.BestMatchReport(req.Vector, candidates, threshold)
	return &driving.MatchResponse{Result: report.Result, Excluded: report.Excluded}, nil
}
