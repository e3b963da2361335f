package domain

import (
	"strings"
	"time"
)

// Tag is an owner-scoped category that documents can be assigned to.
// Embedding holds the vector of the tag label; it is empty until embedded.
type Tag struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Embedding   []float64  `json:"-"`
	EmbeddedAt  *time.Time `json:"embedded_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Label returns the text that is embedded for this tag
func (t *Tag) Label() string {
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		return strings.TrimSpace(t.Name)
	}
	return strings.TrimSpace(t.Name) + ": " + desc
}

// HasEmbedding returns true if the tag carries a vector
func (t *Tag) HasEmbedding() bool {
	return len(t.Embedding) > 0
}

// Candidate converts the tag into a candidate vector
func (t *Tag) Candidate() CandidateVector {
	return CandidateVector{ID: t.ID, Vector: t.Embedding, OwnerID: t.OwnerID}
}

// CandidateVector is one selectable category as seen by the matcher.
// It is a read-only snapshot; the matcher never mutates or caches it.
type CandidateVector struct {
	ID      string    `json:"id"`
	Vector  []float64 `json:"vector"`
	OwnerID string    `json:"owner_id,omitempty"`
}

// MatchReason explains a match outcome
type MatchReason string

const (
	MatchReasonMatched            MatchReason = "matched"
	MatchReasonBelowThreshold     MatchReason = "below_threshold"
	MatchReasonNoCandidates       MatchReason = "no_candidates"
	MatchReasonInsufficientSignal MatchReason = "insufficient_signal"
)

// MatchResult is either a winning candidate or a fallback signal.
// The matcher is fallback-agnostic: callers substitute their own default ID.
type MatchResult struct {
	ID       string      `json:"id,omitempty"`
	Score    float64     `json:"score"`
	Fallback bool        `json:"fallback"`
	Reason   MatchReason `json:"reason"`
}

// Matched returns a non-fallback result
func Matched(id string, score float64) MatchResult {
	return MatchResult{ID: id, Score: score, Reason: MatchReasonMatched}
}

// Fallback returns a fallback result carrying the best score seen (if any)
func Fallback(reason MatchReason, bestScore float64) MatchResult {
	return MatchResult{Fallback: true, Score: bestScore, Reason: reason}
}

// TagAssignment records which tag a document was assigned to
type TagAssignment struct {
	DocumentID string      `json:"document_id"`
	OwnerID    string      `json:"owner_id"`
	TagID      string      `json:"tag_id"`
	Score      float64     `json:"score"`
	Fallback   bool        `json:"fallback"`
	Reason     MatchReason `json:"reason"`
	AssignedAt time.Time   `json:"assigned_at"`
}
