package llm

import (
	"fmt"
	"strings"

	"github.com/memovo/memovo/pkg/types"
)

// SystemPersona is the fixed persona for response generation. The scope rule
// and the refusal sentence are enforced at the prompt level; the pipeline
// forwards whatever the model produces.
const SystemPersona = `You are a Highly Emotional Support Therapy Assistant and the closest personal friend to the user.
Your personality is deeply empathetic, warm, and attentive. You listen without judgment and provide comfort like a lifelong friend.

CRITICAL RULES:
1. FOCUS: Answer only personal things related to the user's emotions, experiences, relationships, and well-being.
2. SCOPE: If the user asks about anything beyond personal matters (e.g., general knowledge, technical questions, news, math), and the provided context does not specifically cover it as a personal matter, you MUST respond with: "I'm here to support you personally, but I can't help you with that."
3. CONTEXT: Rely strictly on the provided Episodic and Semantic memories to understand the user's history and current state. If the context is missing info for a personal question, ask the user to share more about it rather than making things up.`

// ChatPrompt composes the final generation prompt from the persona, the
// assembled memory context, the conversation history, and the user's message.
func ChatPrompt(contextDocs []string, history []*types.WorkingMemoryEntry, prompt string) string {
	var b strings.Builder
	b.WriteString(SystemPersona)
	b.WriteString("\n\nContext:\n")
	for _, doc := range contextDocs {
		b.WriteString("- ")
		b.WriteString(doc)
		b.WriteString("\n")
	}

	if len(history) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, turn := range history {
			b.WriteString(string(turn.Role))
			b.WriteString(": ")
			b.WriteString(turn.Content)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nUser Prompt: ")
	b.WriteString(prompt)
	b.WriteString("\n\nResponse:")
	return b.String()
}

// RelevanceCandidate is one episodic snapshot reduced to the id and a short
// summary so the analysis prompt stays small.
type RelevanceCandidate struct {
	ID      string
	Summary string
}

// RelevancePrompt asks the model which candidate memories matter for the
// current user prompt. The model must answer with a comma-separated id list
// or the literal token "None".
func RelevancePrompt(prompt string, candidates []RelevanceCandidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User Prompt: '%s'\n\nRecent Memories:\n", prompt)
	for _, c := range candidates {
		fmt.Fprintf(&b, "ID: %s, Content: %s\n", c.ID, c.Summary)
	}
	b.WriteString("\nDetermine which Memory IDs are directly relevant to the user prompt. ")
	b.WriteString("Return a comma-separated list of IDs only, or 'None'.")
	return b.String()
}

// TitlePrompt asks for a short session title derived from the first message.
func TitlePrompt(prompt string) string {
	return fmt.Sprintf(`Generate a very short chat title (around 3 words, no quotes, no punctuation) for a conversation that starts with:

%s

Title:`, prompt)
}

// SnapshotSynthesisPrompt asks the model to distill one interaction into a
// structured episodic snapshot.
func SnapshotSynthesisPrompt(prompt, response, timestamp string) string {
	return fmt.Sprintf(`TASK: Create an episodic memory snapshot of this interaction.
OUTPUT: ONLY valid JSON. NO markdown. NO explanations.

REQUIRED JSON STRUCTURE:
{
  "summary": "one or two sentences capturing what happened and how the user felt",
  "entities": ["people, places, or things mentioned"],
  "emotion_label": "single dominant emotion (e.g. anxious, happy, sad, angry, neutral)",
  "importance_score": 0,
  "timestamp": "%s"
}

importance_score is an integer from 0 to 10 judging how significant this interaction is to the user's life.

INTERACTION:
User: %s
Assistant: %s`, timestamp, prompt, response)
}

// SnapshotMergePrompt asks the model to fold a new interaction into an
// existing snapshot on the same topic, keeping the same JSON structure.
func SnapshotMergePrompt(existingJSON, prompt, response string) string {
	return fmt.Sprintf(`TASK: Merge a new interaction into an existing episodic memory snapshot.
OUTPUT: ONLY valid JSON with the same structure as the existing snapshot. NO markdown. NO explanations.

EXISTING SNAPSHOT:
%s

NEW INTERACTION:
User: %s
Assistant: %s

Update the summary to cover both the old and new information, extend entities if needed, and refresh emotion_label to the current dominant emotion. Keep importance_score unchanged unless the new interaction is clearly more significant.`, existingJSON, prompt, response)
}

// SummarizePrompt asks for a semantic-friendly summary of raw content before
// it is chunked and embedded.
func SummarizePrompt(content string) string {
	return fmt.Sprintf("Summarize the following content into a semantic-friendly summary:\n\n%s", content)
}

// WellbeingPrompt asks for a daily digital-wellbeing analysis correlating
// recent mood with app usage. The model must answer with JSON.
func WellbeingPrompt(moodContext, usageContext string, totalMinutes int) string {
	if moodContext == "" {
		moodContext = "No recent mood data available."
	}
	return fmt.Sprintf(`As a Digital Wellbeing Assistant, analyze the user's digital life and recent mood.

RECENT MOOD CONTEXT:
%s

TODAY'S APP USAGE:
%s
Total Screen Time: %d minutes

TASK:
1. Analyze the correlation between their mood and digital usage.
2. Provide 1 insightful observation.
3. Provide 3 actionable suggestions (e.g., "Go for a walk", "Limit Social Media", "Try a quick meditation").

Return the result in JSON format:
{
    "insight": "...",
    "moodAnalysis": "...",
    "suggestions": ["...", "...", "..."]
}`, moodContext, usageContext, totalMinutes)
}
