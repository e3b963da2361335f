// Package similarity selects the best-matching candidate vector by cosine
// similarity. It is the single similarity rule used by both the auto-tag path
// and the match debugging endpoint.
package similarity

import (
	"fmt"
	"math"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
)

// CosineSimilarity returns dot(a,b) / (|a| * |b|), clamped to [-1, 1].
// A zero-magnitude vector scores -1 so it can never be selected.
// Vectors of different length return domain.ErrDimensionMismatch.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", domain.ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return -1, nil
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(score) {
		return -1, nil
	}
	return math.Max(-1, math.Min(1, score)), nil
}

// Report is the full outcome of a match, including the candidates that were
// left out because their dimension differs from the content vector.
type Report struct {
	Result   domain.MatchResult `json:"result"`
	Excluded []string           `json:"excluded,omitempty"`
	Scores   map[string]float64 `json:"scores,omitempty"`
}

// BestMatch returns the highest-scoring candidate if its score is strictly
// greater than threshold, and a fallback result otherwise. Ties go to the
// candidate seen first. An empty candidate set always falls back.
func BestMatch(content []float64, candidates []domain.CandidateVector, threshold float64) domain.MatchResult {
	return BestMatchReport(content, candidates, threshold).Result
}

// BestMatchReport is BestMatch with per-candidate scores and exclusions.
func BestMatchReport(content []float64, candidates []domain.CandidateVector, threshold float64) Report {
	report := Report{Scores: make(map[string]float64, len(candidates))}
	if len(candidates) == 0 {
		report.Result = domain.Fallback(domain.MatchReasonNoCandidates, 0)
		return report
	}

	bestIdx := -1
	bestScore := math.Inf(-1)
	scored := 0
	for i, c := range candidates {
		score, err := CosineSimilarity(content, c.Vector)
		if err != nil {
			report.Excluded = append(report.Excluded, c.ID)
			continue
		}
		scored++
		if _, ok := report.Scores[c.ID]; !ok {
			report.Scores[c.ID] = score
		}
		if zero(content) || zero(c.Vector) {
			continue
		}
		if score > bestScore {
			bestIdx = i
			bestScore = score
		}
	}

	switch {
	case scored == 0:
		report.Result = domain.Fallback(domain.MatchReasonNoCandidates, 0)
	case bestIdx < 0:
		// only zero-magnitude vectors were scored
		report.Result = domain.Fallback(domain.MatchReasonBelowThreshold, -1)
	case bestScore > threshold:
		report.Result = domain.Matched(candidates[bestIdx].ID, bestScore)
	default:
		report.Result = domain.Fallback(domain.MatchReasonBelowThreshold, bestScore)
	}
	return report
}

func zero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
