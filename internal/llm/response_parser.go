package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/memovo/memovo/pkg/types"
)

// extractJSON extracts the first complete JSON object from a string that may
// contain extra text. LLMs add explanations and code fences around JSON
// despite instructions; this strips fences and brace-matches the object.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return text // No JSON found, return as-is and let the parser fail
	}

	braceCount := 0
	inString := false
	escape := false

	for i := start; i < len(text); i++ {
		char := text[i]

		if escape {
			escape = false
			continue
		}
		if char == '\\' {
			escape = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			switch char {
			case '{':
				braceCount++
			case '}':
				braceCount--
				if braceCount == 0 {
					return text[start : i+1]
				}
			}
		}
	}

	return text // No complete JSON found, return as-is
}

// ParseRelevanceResponse parses a relevance analysis answer into the set of
// snapshot ids it names. The model is untrusted for set membership: ids not
// present in knownIDs are dropped. A trimmed answer equal to "none" in any
// case yields an empty result.
func ParseRelevanceResponse(response string, knownIDs []string) []string {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" || strings.EqualFold(trimmed, "none") {
		return nil
	}

	known := make(map[string]bool, len(knownIDs))
	for _, id := range knownIDs {
		known[id] = true
	}

	var relevant []string
	seen := make(map[string]bool)
	for _, token := range strings.Split(trimmed, ",") {
		id := strings.TrimSpace(token)
		if known[id] && !seen[id] {
			relevant = append(relevant, id)
			seen[id] = true
		}
	}
	return relevant
}

// ParseSnapshotResponse parses a snapshot synthesis or merge answer into a
// validated snapshot payload. Returns an error when the JSON is malformed or
// the required fields are missing; callers discard the result in that case.
func ParseSnapshotResponse(response string) (*types.Snapshot, error) {
	cleanJSON := extractJSON(response)

	var snapshot types.Snapshot
	if err := json.Unmarshal([]byte(cleanJSON), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot JSON: %w", err)
	}
	if snapshot.ImportanceScore > types.MaxImportanceScore {
		snapshot.ImportanceScore = types.MaxImportanceScore
	}
	if snapshot.ImportanceScore < 0 {
		snapshot.ImportanceScore = 0
	}
	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot payload: %w", err)
	}
	return &snapshot, nil
}

// ParseTitleResponse cleans up a generated session title. Returns an empty
// string when the model produced nothing usable.
func ParseTitleResponse(response string) string {
	title := strings.TrimSpace(response)
	title = strings.Trim(title, `"'`)
	title = strings.TrimSpace(title)
	if idx := strings.IndexByte(title, '\n'); idx != -1 {
		title = strings.TrimSpace(title[:idx])
	}
	return title
}

// insightResponse mirrors the JSON shape requested by WellbeingPrompt.
type insightResponse struct {
	Insight      string   `json:"insight"`
	MoodAnalysis string   `json:"moodAnalysis"`
	Suggestions  []string `json:"suggestions"`
}

// ParseInsightResponse parses a wellbeing analysis answer. Returns an error
// when the JSON is malformed; callers fall back to default insights.
func ParseInsightResponse(response string) (insight, moodAnalysis string, suggestions []string, err error) {
	cleanJSON := extractJSON(response)

	var parsed insightResponse
	if err := json.Unmarshal([]byte(cleanJSON), &parsed); err != nil {
		return "", "", nil, fmt.Errorf("failed to parse insight JSON: %w", err)
	}
	return parsed.Insight, parsed.MoodAnalysis, parsed.Suggestions, nil
}
