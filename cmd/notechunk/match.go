package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/similarity"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Pick the candidate most similar to a vector",
	Long: `Score a content vector against the candidates in a JSON file
([{"id": "...", "vector": [...]}, ...]) and print the best match, or a
fallback when no candidate scores above the threshold.`,
	Args: cobra.NoArgs,
	RunE: runMatch,
}

var (
	matchVector     string
	matchCandidates string
	matchThreshold  float64
	matchVerbose    bool
)

func init() {
	matchCmd.Flags().StringVar(&matchVector, "vector", "", "Content vector as comma-separated floats")
	matchCmd.Flags().StringVar(&matchCandidates, "candidates", "", "JSON file of candidates (- for stdin)")
	matchCmd.Flags().Float64Var(&matchThreshold, "threshold", domain.DefaultAutoTagSettings().Threshold, "Score a candidate must exceed")
	matchCmd.Flags().BoolVarP(&matchVerbose, "verbose", "v", false, "Include per-candidate scores")
	_ = matchCmd.MarkFlagRequired("vector")
	_ = matchCmd.MarkFlagRequired("candidates")
	rootCmd.AddCommand(matchCmd)
}

// parseVector parses "0.1, 0.2,0.3" into a vector.
func parseVector(s string) ([]float64, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return nil, errors.New("empty vector")
	}
	parts := strings.Split(s, ",")
	vector := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", part, err)
		}
		vector = append(vector, v)
	}
	return vector, nil
}

func runMatch(cmd *cobra.Command, _ []string) error {
	vector, err := parseVector(matchVector)
	if err != nil {
		return err
	}

	data, err := readInput(cmd, matchCandidates)
	if err != nil {
		return err
	}
	var candidates []domain.CandidateVector
	if err := json.Unmarshal(data, &candidates); err != nil {
		return fmt.Errorf("failed to decode candidates: %w", err)
	}

	report := similarity.BestMatchReport(vector, candidates, matchThreshold)
	if matchVerbose {
		return writeJSON(cmd, report)
	}
	return writeJSON(cmd, report.Result)
}
