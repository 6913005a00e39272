package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memovo/memovo/internal/wellbeing"
	"github.com/memovo/memovo/pkg/types"
	"github.com/memovo/memovo/web/handlers"
)

func TestWellbeingHandlers_DailyInsights(t *testing.T) {
	streamer := &stubStreamer{fragments: []string{
		`{"insight":"Screen time is balanced today.","moodAnalysis":"Calm","suggestions":["Take a walk"]}`,
	}}
	service := wellbeing.NewService(streamer, &memEpisodic{})
	h := handlers.NewWellbeingHandlers(service)

	w := routedRequest(h.DailyInsights, "/api/users/{userId}/wellbeing",
		"POST", "/api/users/u1/wellbeing",
		`{"usage":[{"appName":"Instagram","category":"Social","durationMinutes":45}]}`)

	require.Equal(t, http.StatusOK, w.Code)

	var insight types.WellbeingInsight
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &insight))
	assert.Equal(t, "Screen time is balanced today.", insight.Insight)
	assert.Equal(t, "Calm", insight.MoodAnalysis)
	assert.NotEmpty(t, insight.UsageStats)
}

func TestWellbeingHandlers_EmptyBodyStillAnswers(t *testing.T) {
	streamer := &stubStreamer{fragments: []string{"not json at all"}}
	service := wellbeing.NewService(streamer, &memEpisodic{})
	h := handlers.NewWellbeingHandlers(service)

	w := routedRequest(h.DailyInsights, "/api/users/{userId}/wellbeing",
		"POST", "/api/users/u1/wellbeing", "")

	// The analysis degrades to a canned insight instead of failing.
	require.Equal(t, http.StatusOK, w.Code)

	var insight types.WellbeingInsight
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &insight))
	assert.NotEmpty(t, insight.Insight)
	assert.NotEmpty(t, insight.Suggestions)
}
