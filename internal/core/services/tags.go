package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-notes/internal/metrics"
	"github.com/custodia-labs/sercha-notes/internal/runtime"
)

// Ensure tagService implements TagService
var _ driving.TagService = (*tagService)(nil)

// tagService implements the TagService interface
type tagService struct {
	tagStore driven.TagStore
	services *runtime.Services
	logger   *slog.Logger
}

// NewTagService creates a new TagService
func NewTagService(tagStore driven.TagStore, services *runtime.Services, logger *slog.Logger) driving.TagService {
	if logger == nil {
		logger = slog.Default()
	}
	return &tagService{
		tagStore: tagStore,
		services: services,
		logger:   logger,
	}
}

// Create creates a tag and embeds its label.
// A failed embedding does not fail the create; the tag is simply not a
// candidate until RefreshEmbeddings succeeds.
func (s *tagService) Create(ctx context.Context, ownerID string, req driving.CreateTagRequest) (*domain.Tag, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("tag name is required: %w", domain.ErrInvalidInput)
	}

	if _, err := s.tagStore.GetByName(ctx, ownerID, name); err == nil {
		return nil, domain.ErrAlreadyExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to check tag name: %w", err)
	}

	now := time.Now()
	tag := &domain.Tag{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.embed(ctx, tag)

	if err := s.tagStore.Save(ctx, tag); err != nil {
		return nil, fmt.Errorf("failed to save tag: %w", err)
	}
	return tag, nil
}

// Update changes a tag, re-embedding it when the label changes
func (s *tagService) Update(ctx context.Context, ownerID, id string, req driving.UpdateTagRequest) (*domain.Tag, error) {
	tag, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	label := tag.Label()
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("tag name is required: %w", domain.ErrInvalidInput)
		}
		if name != tag.Name {
			existing, err := s.tagStore.GetByName(ctx, ownerID, name)
			if err == nil && existing.ID != tag.ID {
				return nil, domain.ErrAlreadyExists
			}
		}
		tag.Name = name
	}
	if req.Description != nil {
		tag.Description = strings.TrimSpace(*req.Description)
	}
	tag.UpdatedAt = time.Now()

	if tag.Label() != label || !tag.HasEmbedding() {
		s.embed(ctx, tag)
	}

	if err := s.tagStore.Save(ctx, tag); err != nil {
		return nil, fmt.Errorf("failed to save tag: %w", err)
	}
	return tag, nil
}

// embed sets the tag's vector from its label, clearing it on failure.
func (s *tagService) embed(ctx context.Context, tag *domain.Tag) {
	tag.Embedding = nil
	tag.EmbeddedAt = nil

	embedder := s.services.EmbeddingService()
	if embedder == nil {
		return
	}

	start := time.Now()
	vector, err := embedder.EmbedQuery(ctx, tag.Label())
	metrics.ObserveEmbedding("tag", start)
	if err != nil {
		s.logger.Warn("failed to embed tag label", "tag_id", tag.ID, "error", err)
		return
	}

	now := time.Now()
	tag.Embedding = vector
	tag.EmbeddedAt = &now
}

// Get retrieves a tag by ID
func (s *tagService) Get(ctx context.Context, ownerID, id string) (*domain.Tag, error) {
	tag, err := s.tagStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tag.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return tag, nil
}

// List retrieves all tags of an owner
func (s *tagService) List(ctx context.Context, ownerID string) ([]*domain.Tag, error) {
	return s.tagStore.ListByOwner(ctx, ownerID)
}

// Delete deletes a tag
func (s *tagService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	return s.tagStore.Delete(ctx, id)
}

// RefreshEmbeddings re-embeds all tags of an owner in one request
func (s *tagService) RefreshEmbeddings(ctx context.Context, ownerID string) (int, error) {
	embedder := s.services.EmbeddingService()
	if embedder == nil {
		return 0, domain.ErrEmbeddingUnavailable
	}

	tags, err := s.tagStore.ListByOwner(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to list tags: %w", err)
	}
	if len(tags) == 0 {
		return 0, nil
	}

	labels := make([]string, len(tags))
	for i, tag := range tags {
		labels[i] = tag.Label()
	}

	start := time.Now()
	vectors, err := embedder.Embed(ctx, labels)
	metrics.ObserveEmbedding("tag", start)
	if err != nil {
		return 0, fmt.Errorf("failed to embed tags: %w", err)
	}
	if len(vectors) != len(tags) {
		return 0, fmt.Errorf("embedding returned %d vectors for %d tags", len(vectors), len(tags))
	}

	now := time.Now()
	for i, tag := range tags {
		tag.Embedding = vectors[i]
		tag.EmbeddedAt = &now
		if err := s.tagStore.Save(ctx, tag); err != nil {
			return i, fmt.Errorf("failed to save tag %s: %w", tag.ID, err)
		}
	}

	s.logger.Info("tag embeddings refreshed", "owner_id", ownerID, "count", len(tags))
	return len(tags), nil
}
