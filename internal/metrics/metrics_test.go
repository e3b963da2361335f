package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
)

func TestRecordChunks(t *testing.T) {
	before := testutil.ToFloat64(ChunksProduced.WithLabelValues("node"))
	skippedBefore := testutil.ToFloat64(ChunksSkipped)

	RecordChunks(domain.ChunkModeNode, 4, 1)

	if got := testutil.ToFloat64(ChunksProduced.WithLabelValues("node")) - before; got != 4 {
		t.Errorf("expected 4 chunks recorded, got %v", got)
	}
	if got := testutil.ToFloat64(ChunksSkipped) - skippedBefore; got != 1 {
		t.Errorf("expected 1 skipped chunk recorded, got %v", got)
	}
}

func TestRecordMatch(t *testing.T) {
	before := testutil.ToFloat64(MatchOutcomes.WithLabelValues("below_threshold"))
	excludedBefore := testutil.ToFloat64(CandidatesExcluded)

	RecordMatch(domain.Fallback(domain.MatchReasonBelowThreshold, 0.2), 2)

	if got := testutil.ToFloat64(MatchOutcomes.WithLabelValues("below_threshold")) - before; got != 1 {
		t.Errorf("expected 1 outcome recorded, got %v", got)
	}
	if got := testutil.ToFloat64(CandidatesExcluded) - excludedBefore; got != 2 {
		t.Errorf("expected 2 exclusions recorded, got %v", got)
	}
}

func TestObserveEmbedding(t *testing.T) {
	ObserveEmbedding("query", time.Now())

	if n := testutil.CollectAndCount(EmbeddingDuration); n == 0 {
		t.Error("expected embedding histogram to have samples")
	}
}

func TestResult(t *testing.T) {
	if Result(nil) != "success" {
		t.Error("expected success for nil error")
	}
	if Result(errors.New("x")) != "error" {
		t.Error("expected error for non-nil error")
	}
}

func TestObserveRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "404"))

	ObserveRequest("GET", 404, 5*time.Millisecond)

	if got := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "404")) - before; got != 1 {
		t.Errorf("expected 1 request recorded, got %v", got)
	}
}
