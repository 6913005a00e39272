package chat

// Pipeline status stages emitted over the event stream, in their natural
// order of appearance. Exactly one of StatusCompleted or StatusFailed
// terminates every request.
const (
	StatusRetrievingWorking  = "retrieving_working"
	StatusRetrievingEpisodic = "retrieving_episodic"
	StatusAnalyzingRelevance = "analyzing_relevance"
	StatusEnhancingContext   = "enhancing_context"
	StatusSemanticFallback   = "semantic_fallback"
	StatusNoContext          = "no_context"
	StatusGenerating         = "generating_response"
	StatusCompleted          = "completed"
	StatusFailed             = "failed"
)
