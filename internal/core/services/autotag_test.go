package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-notes/internal/parsers"
)

const gardenNote = "Tomatoes need full sun and regular watering.\n\nBasil grows well beside them."
const gardenExcerpt = "Tomatoes need full sun and regular watering. Basil grows well beside them."

func TestAutoTagResolver_Matched(t *testing.T) {
	embedder := mocks.NewMockEmbeddingService()
	embedder.SetVector(gardenExcerpt, []float64{1, 0})

	resolver := NewAutoTagResolver(embedder, domain.DefaultAutoTagSettings())
	result, err := resolver.Resolve(context.Background(), gardenNote, []domain.CandidateVector{
		{ID: "work", Vector: []float64{0, 1}},
		{ID: "garden", Vector: []float64{1, 0.1}},
	})
	require.NoError(t, err)

	assert.False(t, result.Fallback)
	assert.Equal(t, "garden", result.ID)
	assert.Equal(t, domain.MatchReasonMatched, result.Reason)
	assert.Equal(t, []string{gardenExcerpt}, embedder.Texts())
}

func TestAutoTagResolver_InsufficientSignal(t *testing.T) {
	embedder := mocks.NewMockEmbeddingService()
	resolver := NewAutoTagResolver(embedder, domain.DefaultAutoTagSettings())

	result, err := resolver.Resolve(context.Background(), "todo", []domain.CandidateVector{{ID: "a", Vector: []float64{1}}})
	require.NoError(t, err)

	assert.True(t, result.Fallback)
	assert.Equal(t, domain.MatchReasonInsufficientSignal, result.Reason)
	assert.Equal(t, 0, embedder.Calls())
}

func TestAutoTagResolver_MinExcerptLength(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantEmbed bool
	}{
		{"exactly minimum", "abcdefghijklmnopqrst", true},
		{"one short", "abcdefghijklmnopqrs", false},
		{"multi-byte at minimum", strings.Repeat("é", 20), true},
		{"multi-byte one short", strings.Repeat("é", 19), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := mocks.NewMockEmbeddingService()
			resolver := NewAutoTagResolver(embedder, domain.DefaultAutoTagSettings())

			result, err := resolver.Resolve(context.Background(), tt.content, nil)
			require.NoError(t, err)
			assert.True(t, result.Fallback)

			if tt.wantEmbed {
				assert.Equal(t, 1, embedder.Calls())
				assert.Equal(t, []string{tt.content}, embedder.Texts())
				assert.Equal(t, domain.MatchReasonNoCandidates, result.Reason)
			} else {
				assert.Equal(t, 0, embedder.Calls())
				assert.Equal(t, domain.MatchReasonInsufficientSignal, result.Reason)
			}
		})
	}
}

func TestAutoTagResolver_ExcerptUsesLeadingParagraphs(t *testing.T) {
	embedder := mocks.NewMockEmbeddingService()
	settings := domain.DefaultAutoTagSettings()
	settings.ExcerptParagraphs = 1

	_, err := NewAutoTagResolver(embedder, settings).Resolve(context.Background(), gardenNote, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tomatoes need full sun and regular watering."}, embedder.Texts())
}

func TestAutoTagResolver_EmbeddingFailureIsNotRetried(t *testing.T) {
	embedder := mocks.NewMockEmbeddingService()
	boom := errors.New("rate limited")
	embedder.SetFailNext(boom)

	_, err := NewAutoTagResolver(embedder, domain.DefaultAutoTagSettings()).Resolve(context.Background(), gardenNote, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, embedder.Calls())
}

func TestAutoTagResolver_NoEmbedder(t *testing.T) {
	_, err := NewAutoTagResolver(nil, domain.DefaultAutoTagSettings()).Resolve(context.Background(), gardenNote, nil)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestAutoTagResolver_ReportsExcluded(t *testing.T) {
	embedder := mocks.NewMockEmbeddingService()
	embedder.SetVector(gardenExcerpt, []float64{1, 0})

	report, err := NewAutoTagResolver(embedder, domain.DefaultAutoTagSettings()).ResolveReport(context.Background(), gardenNote, []domain.CandidateVector{
		{ID: "old", Vector: []float64{1, 0, 0}},
		{ID: "garden", Vector: []float64{1, 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, "garden", report.Result.ID)
	assert.Equal(t, []string{"old"}, report.Excluded)
}

type autoTagFixture struct {
	docs     *mocks.MockDocumentStore
	tags     *mocks.MockTagStore
	embedder *mocks.MockEmbeddingService
	svc      driving.AutoTagService
	settings domain.AutoTagSettings
}

func newAutoTagFixture(t *testing.T, settings domain.AutoTagSettings) *autoTagFixture {
	t.Helper()
	f := &autoTagFixture{
		docs:     mocks.NewMockDocumentStore(),
		tags:     mocks.NewMockTagStore(),
		embedder: mocks.NewMockEmbeddingService(),
	}
	services := newTestServices(t, f.embedder)
	require.NoError(t, services.SetAutoTagSettings(settings))
	f.svc = NewAutoTagService(AutoTagServiceConfig{
		DocumentStore: f.docs,
		TagStore:      f.tags,
		Parsers:       parsers.DefaultRegistry(),
		Services:      services,
	})

	ctx := context.Background()
	require.NoError(t, f.docs.Save(ctx, &domain.Document{ID: "doc-1", OwnerID: "owner-1", MimeType: "text/plain", Content: gardenNote}))
	require.NoError(t, f.tags.Save(ctx, &domain.Tag{ID: "work", OwnerID: "owner-1", Name: "Work", Embedding: []float64{0, 1}}))
	require.NoError(t, f.tags.Save(ctx, &domain.Tag{ID: "garden", OwnerID: "owner-1", Name: "Garden", Embedding: []float64{1, 0.1}}))
	require.NoError(t, f.tags.Save(ctx, &domain.Tag{ID: "theirs", OwnerID: "owner-2", Name: "Garden", Embedding: []float64{1, 0}}))
	f.embedder.SetVector(gardenExcerpt, []float64{1, 0})
	return f
}

func TestAutoTagService_AutoTag(t *testing.T) {
	f := newAutoTagFixture(t, domain.DefaultAutoTagSettings())

	assignment, err := f.svc.AutoTag(context.Background(), "owner-1", "doc-1")
	require.NoError(t, err)

	assert.Equal(t, "garden", assignment.TagID)
	assert.False(t, assignment.Fallback)
	assert.Greater(t, assignment.Score, 0.99)

	doc, _ := f.docs.Get(context.Background(), "doc-1")
	assert.Equal(t, "garden", doc.TagID)

	stored, err := f.tags.GetAssignment(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, assignment.TagID, stored.TagID)
}

func TestAutoTagService_Fallback(t *testing.T) {
	settings := domain.DefaultAutoTagSettings()
	settings.Threshold = 0.999
	settings.FallbackTagID = "inbox"
	f := newAutoTagFixture(t, settings)

	assignment, err := f.svc.AutoTag(context.Background(), "owner-1", "doc-1")
	require.NoError(t, err)

	assert.True(t, assignment.Fallback)
	assert.Equal(t, "inbox", assignment.TagID)
	assert.Equal(t, domain.MatchReasonBelowThreshold, assignment.Reason)

	doc, _ := f.docs.Get(context.Background(), "doc-1")
	assert.Equal(t, "inbox", doc.TagID)
}

func TestAutoTagService_NoCandidates(t *testing.T) {
	f := newAutoTagFixture(t, domain.DefaultAutoTagSettings())
	require.NoError(t, f.docs.Save(context.Background(), &domain.Document{ID: "doc-2", OwnerID: "owner-3", MimeType: "text/plain", Content: gardenNote}))

	assignment, err := f.svc.AutoTag(context.Background(), "owner-3", "doc-2")
	require.NoError(t, err)
	assert.True(t, assignment.Fallback)
	assert.Equal(t, domain.MatchReasonNoCandidates, assignment.Reason)
	assert.Empty(t, assignment.TagID)
}

func TestAutoTagService_Errors(t *testing.T) {
	t.Run("other owner", func(t *testing.T) {
		f := newAutoTagFixture(t, domain.DefaultAutoTagSettings())
		_, err := f.svc.AutoTag(context.Background(), "owner-2", "doc-1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("disabled", func(t *testing.T) {
		settings := domain.DefaultAutoTagSettings()
		settings.Enabled = false
		f := newAutoTagFixture(t, settings)
		_, err := f.svc.AutoTag(context.Background(), "owner-1", "doc-1")
		assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	})

	t.Run("candidate listing fails", func(t *testing.T) {
		f := newAutoTagFixture(t, domain.DefaultAutoTagSettings())
		boom := errors.New("db down")
		f.tags.ListCandidatesErr = boom
		_, err := f.svc.AutoTag(context.Background(), "owner-1", "doc-1")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("no embedder", func(t *testing.T) {
		svc := NewAutoTagService(AutoTagServiceConfig{
			DocumentStore: mocks.NewMockDocumentStore(),
			TagStore:      mocks.NewMockTagStore(),
			Parsers:       parsers.DefaultRegistry(),
			Services:      newTestServices(t, nil),
		})
		_, err := svc.AutoTag(context.Background(), "owner-1", "doc-1")
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})
}

func TestAutoTagService_Match(t *testing.T) {
	f := newAutoTagFixture(t, domain.DefaultAutoTagSettings())
	require.NoError(t, f.tags.Save(context.Background(), &domain.Tag{ID: "wide", OwnerID: "owner-1", Name: "Wide", Embedding: []float64{1, 0, 0}}))

	resp, err := f.svc.Match(context.Background(), "owner-1", driving.MatchRequest{Vector: []float64{0, 1}})
	require.NoError(t, err)
	assert.Equal(t, "work", resp.Result.ID)
	assert.Equal(t, []string{"wide"}, resp.Excluded)

	threshold := 1.0
	resp, err = f.svc.Match(context.Background(), "owner-1", driving.MatchRequest{Vector: []float64{0, 1}, Threshold: &threshold})
	require.NoError(t, err)
	assert.True(t, resp.Result.Fallback)
	assert.Equal(t, domain.MatchReasonBelowThreshold, resp.Result.Reason)

	_, err = f.svc.Match(context.Background(), "owner-1", driving.MatchRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 0, f.embedder.Calls())
}
