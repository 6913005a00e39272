package chat

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memovo/memovo/pkg/types"
)

func TestTruncateRunesKeepsMultiByteRunesIntact(t *testing.T) {
	tests := []struct {
		in       string
		n        int
		expected string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"", 5, ""},
		{"héllo", 2, "hé"},
		{strings.Repeat("☃", 5), 3, "☃☃☃"},
	}
	for _, tt := range tests {
		got := truncateRunes(tt.in, tt.n)
		assert.Equal(t, tt.expected, got)
		assert.True(t, utf8.ValidString(got))
	}
}

func TestInstantTitleTruncatesOnRuneBoundary(t *testing.T) {
	// A single long word of three-byte runes. A byte-based cut would land
	// mid-rune and leave the title holding broken UTF-8.
	title := instantTitle("a" + strings.Repeat("☃", 35))

	assert.True(t, utf8.ValidString(title))
	assert.Equal(t, "a"+strings.Repeat("☃", 29)+"...", title)
}

func TestSessionPreviewKeepsRunesIntact(t *testing.T) {
	// 99 ASCII bytes then two-byte runes: cutting the preview at 100 bytes
	// would split the first é in half.
	streamer := &fakeStreamer{fragments: []string{strings.Repeat("a", 99), "éé"}}
	sessions := newFakeSessions()

	o := NewOrchestrator(streamer, &fakeWorking{}, &fakeEpisodic{}, sessions, &fakeSemantic{})
	collectEvents(t, o.ChatStream(context.Background(), &types.ChatRequest{
		UserID:    "u1",
		SessionID: "s1",
		Prompt:    "hello",
	}))

	session := sessions.sessions["s1"]
	require.NotNil(t, session)
	assert.True(t, utf8.ValidString(session.LastMessage))
	assert.Equal(t, strings.Repeat("a", 99)+"é", session.LastMessage)
}

func TestRelevanceCandidateSummaryTruncatesOnRuneBoundary(t *testing.T) {
	var captured string
	streamer := &fakeStreamer{
		CompleteFn: func(prompt string) (string, error) {
			captured = prompt
			return "None", nil
		},
	}
	snapshot := recentSnapshot("u1", strings.Repeat("☃", 250))

	analyzer := NewRelevanceAnalyzer(streamer)
	_, err := analyzer.Analyze(context.Background(), "prompt", []*types.EpisodicSnapshot{snapshot})
	require.NoError(t, err)

	assert.True(t, utf8.ValidString(captured))
	assert.Equal(t, maxCandidateSummaryLen, strings.Count(captured, "☃"))
}
