package types

// AppUsage reports one app's screen time for the current day.
type AppUsage struct {
	AppName         string `json:"appName"`
	Category        string `json:"category"`
	DurationMinutes int    `json:"durationMinutes"`
}

// WellbeingInsight is the daily digital-wellbeing analysis: one observation,
// a mood read, and a few actionable suggestions.
type WellbeingInsight struct {
	Insight      string         `json:"insight"`
	MoodAnalysis string         `json:"moodAnalysis"`
	Suggestions  []string       `json:"suggestions"`
	UsageStats   map[string]any `json:"usageStats"`
}
