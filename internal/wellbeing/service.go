package wellbeing

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/memovo/memovo/internal/llm"
	"github.com/memovo/memovo/internal/storage"
	"github.com/memovo/memovo/pkg/types"
)

// moodWindow bounds how far back mood context reaches.
const moodWindow = 3 * 24 * time.Hour

// truncateRunes shortens s to at most n runes without splitting a multi-byte
// character.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Service produces daily digital-wellbeing insights by correlating the
// user's recent episodic moods with their app usage.
type Service struct {
	llm      llm.TextGenerator
	episodic storage.EpisodicMemoryStore
}

// NewService creates a wellbeing service.
func NewService(generator llm.TextGenerator, episodic storage.EpisodicMemoryStore) *Service {
	return &Service{llm: generator, episodic: episodic}
}

// DailyInsights correlates the last three days of episodic moods with
// today's app usage through one model call. Every failure mode falls back
// to fixed default guidance; the endpoint never errors.
func (s *Service) DailyInsights(ctx context.Context, userID string, usage []types.AppUsage) *types.WellbeingInsight {
	insight, err := s.analyze(ctx, userID, usage)
	if err != nil {
		log.Printf("wellbeing: insight generation degraded for user %s: %v", userID, err)
		return defaultInsight()
	}
	return insight
}

func (s *Service) analyze(ctx context.Context, userID string, usage []types.AppUsage) (*types.WellbeingInsight, error) {
	snapshots, err := s.episodic.ListRecent(ctx, userID, time.Now().UTC().Add(-moodWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to load mood context: %w", err)
	}

	var moodContext strings.Builder
	for _, snapshot := range snapshots {
		mood := snapshot.Snapshot.EmotionLabel
		if mood == "" {
			mood = "neutral"
		}
		summary := truncateRunes(snapshot.Snapshot.Summary, 100)
		fmt.Fprintf(&moodContext, "- Mood: %s, Context: %s...\n", mood, summary)
	}

	var usageContext strings.Builder
	totalMinutes := 0
	topApp := "None"
	topMinutes := -1
	for _, app := range usage {
		fmt.Fprintf(&usageContext, "- %s (%s): %d mins\n", app.AppName, app.Category, app.DurationMinutes)
		totalMinutes += app.DurationMinutes
		if app.DurationMinutes > topMinutes {
			topMinutes = app.DurationMinutes
			topApp = app.AppName
		}
	}

	response, err := s.llm.Complete(ctx, llm.WellbeingPrompt(moodContext.String(), usageContext.String(), totalMinutes))
	if err != nil {
		return nil, fmt.Errorf("insight generation failed: %w", err)
	}
	insight, moodAnalysis, suggestions, err := llm.ParseInsightResponse(response)
	if err != nil {
		return nil, fmt.Errorf("insight response unparsable: %w", err)
	}

	result := defaultAnalyzed()
	if insight != "" {
		result.Insight = insight
	}
	if moodAnalysis != "" {
		result.MoodAnalysis = moodAnalysis
	}
	if len(suggestions) > 0 {
		result.Suggestions = suggestions
	}
	result.UsageStats = map[string]any{
		"totalMinutes": totalMinutes,
		"topApp":       topApp,
	}
	return result, nil
}

// defaultAnalyzed fills gaps in an otherwise successful model answer.
func defaultAnalyzed() *types.WellbeingInsight {
	return &types.WellbeingInsight{
		Insight:      "Your digital usage seems balanced.",
		MoodAnalysis: "Your mood appears stable based on recent logs.",
		Suggestions:  []string{"Take a 5-minute break", "Practice mindfulness", "Stretch your body"},
	}
}

// defaultInsight is the full fallback when analysis fails outright.
func defaultInsight() *types.WellbeingInsight {
	return &types.WellbeingInsight{
		Insight:      "Start your day with a clear mind.",
		MoodAnalysis: "We're still learning about your moods.",
		Suggestions:  []string{"Take a deep breath", "Set your intentions for the day", "Drink a glass of water"},
		UsageStats:   map[string]any{"totalMinutes": 0, "topApp": "None"},
	}
}
