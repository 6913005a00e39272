package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bare object",
			input:    `{"summary": "hello"}`,
			expected: `{"summary": "hello"}`,
		},
		{
			name:     "fenced json block",
			input:    "```json\n{\"summary\": \"hello\"}\n```",
			expected: `{"summary": "hello"}`,
		},
		{
			name:     "prose around object",
			input:    "Here is the result:\n{\"a\": 1}\nLet me know if you need more.",
			expected: `{"a": 1}`,
		},
		{
			name:     "nested braces",
			input:    `prefix {"outer": {"inner": 2}} suffix`,
			expected: `{"outer": {"inner": 2}}`,
		},
		{
			name:     "braces inside strings",
			input:    `{"text": "a } inside"}`,
			expected: `{"text": "a } inside"}`,
		},
		{
			name:     "no object",
			input:    "no json here",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractJSON(tt.input))
		})
	}
}

func TestParseRelevanceResponse(t *testing.T) {
	known := []string{"id-1", "id-2", "id-3"}

	t.Run("subset of known ids", func(t *testing.T) {
		ids := ParseRelevanceResponse("id-1, id-3", known)
		assert.Equal(t, []string{"id-1", "id-3"}, ids)
	})

	t.Run("none answer", func(t *testing.T) {
		assert.Nil(t, ParseRelevanceResponse("None", known))
		assert.Nil(t, ParseRelevanceResponse("  none  ", known))
	})

	t.Run("unknown ids dropped", func(t *testing.T) {
		ids := ParseRelevanceResponse("id-2, bogus, id-2", known)
		assert.Equal(t, []string{"id-2"}, ids)
	})

	t.Run("empty response", func(t *testing.T) {
		assert.Nil(t, ParseRelevanceResponse("", known))
	})
}

func TestParseSnapshotResponse(t *testing.T) {
	t.Run("valid snapshot", func(t *testing.T) {
		raw := "```json\n{\"summary\": \"talked about work stress\", \"entities\": [\"work\"], \"emotion_label\": \"anxious\", \"importance_score\": 6, \"timestamp\": \"2026-08-29T10:00:00Z\"}\n```"
		snap, err := ParseSnapshotResponse(raw)
		require.NoError(t, err)
		assert.Equal(t, "talked about work stress", snap.Summary)
		assert.Equal(t, "anxious", snap.EmotionLabel)
		assert.Equal(t, 6, snap.ImportanceScore)
	})

	t.Run("score clamped", func(t *testing.T) {
		snap, err := ParseSnapshotResponse(`{"summary": "s", "importance_score": 42, "timestamp": "t"}`)
		require.NoError(t, err)
		assert.Equal(t, 10, snap.ImportanceScore)
	})

	t.Run("unknown keys preserved", func(t *testing.T) {
		snap, err := ParseSnapshotResponse(`{"summary": "s", "importance_score": 3, "timestamp": "t", "topics": ["a"]}`)
		require.NoError(t, err)
		assert.Contains(t, snap.Extra, "topics")
	})

	t.Run("missing summary rejected", func(t *testing.T) {
		_, err := ParseSnapshotResponse(`{"importance_score": 3, "timestamp": "t"}`)
		assert.Error(t, err)
	})

	t.Run("no json rejected", func(t *testing.T) {
		_, err := ParseSnapshotResponse("sorry, I cannot do that")
		assert.Error(t, err)
	})
}

func TestParseTitleResponse(t *testing.T) {
	assert.Equal(t, "Work Stress Chat", ParseTitleResponse("\"Work Stress Chat\"\n"))
	assert.Equal(t, "First Line", ParseTitleResponse("First Line\nSecond Line"))
	assert.Equal(t, "", ParseTitleResponse("   "))
}

func TestParseInsightResponse(t *testing.T) {
	t.Run("valid insight", func(t *testing.T) {
		raw := `{"insight": "screen time is up", "moodAnalysis": "stable", "suggestions": ["take a walk"]}`
		insight, mood, suggestions, err := ParseInsightResponse(raw)
		require.NoError(t, err)
		assert.Equal(t, "screen time is up", insight)
		assert.Equal(t, "stable", mood)
		assert.Equal(t, []string{"take a walk"}, suggestions)
	})

	t.Run("malformed response", func(t *testing.T) {
		_, _, _, err := ParseInsightResponse("not json")
		assert.Error(t, err)
	})
}
