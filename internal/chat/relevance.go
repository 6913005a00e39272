package chat

import (
	"context"
	"fmt"

	"github.com/memovo/memovo/internal/llm"
	"github.com/memovo/memovo/pkg/types"
)

const (
	// maxRelevanceCandidates caps how many snapshots go into one analysis
	// prompt.
	maxRelevanceCandidates = 20

	// maxCandidateSummaryLen truncates long summaries to bound model
	// context size.
	maxCandidateSummaryLen = 200
)

// RelevanceAnalyzer asks the model which recent episodic snapshots relate
// to the current prompt.
type RelevanceAnalyzer struct {
	llm llm.TextGenerator
}

// NewRelevanceAnalyzer creates an analyzer backed by the given generator.
func NewRelevanceAnalyzer(generator llm.TextGenerator) *RelevanceAnalyzer {
	return &RelevanceAnalyzer{llm: generator}
}

// Analyze returns the subset of snapshots the model judges relevant to the
// prompt. The model's answer is untrusted for set membership: ids outside
// the candidate list are dropped. Callers should treat an error as an empty
// decision.
func (a *RelevanceAnalyzer) Analyze(ctx context.Context, prompt string, snapshots []*types.EpisodicSnapshot) ([]*types.EpisodicSnapshot, error) {
	if len(snapshots) == 0 {
		return nil, nil
	}
	if len(snapshots) > maxRelevanceCandidates {
		snapshots = snapshots[:maxRelevanceCandidates]
	}

	candidates := make([]llm.RelevanceCandidate, 0, len(snapshots))
	knownIDs := make([]string, 0, len(snapshots))
	for _, snapshot := range snapshots {
		summary := snapshot.Snapshot.Summary
		if summary == "" {
			summary = "N/A"
		}
		summary = truncateRunes(summary, maxCandidateSummaryLen)
		candidates = append(candidates, llm.RelevanceCandidate{ID: snapshot.ID, Summary: summary})
		knownIDs = append(knownIDs, snapshot.ID)
	}

	response, err := a.llm.Complete(ctx, llm.RelevancePrompt(prompt, candidates))
	if err != nil {
		return nil, fmt.Errorf("relevance analysis failed: %w", err)
	}

	relevantIDs := llm.ParseRelevanceResponse(response, knownIDs)
	if len(relevantIDs) == 0 {
		return nil, nil
	}

	idSet := make(map[string]bool, len(relevantIDs))
	for _, id := range relevantIDs {
		idSet[id] = true
	}

	var relevant []*types.EpisodicSnapshot
	for _, snapshot := range snapshots {
		if idSet[snapshot.ID] {
			relevant = append(relevant, snapshot)
		}
	}
	return relevant, nil
}
