package entities

import "time"

// AnalysisEventType identifies events on a session's analysis channel.
type AnalysisEventType string

const (
	AnalysisEventReady  AnalysisEventType = "analysis_ready"
	AnalysisEventFailed AnalysisEventType = "analysis_failed"
)

// AnalysisEvent carries a quick-analysis result to the session's live stream.
type AnalysisEvent struct {
	ID          string                 `json:"id"`
	EventType   AnalysisEventType      `json:"event_type"`
	Generation  uint64                 `json:"generation"`
	ProblemText string                 `json:"problem_text"`
	Analysis    map[string]interface{} `json:"analysis,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}
