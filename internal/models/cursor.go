package models

// CursorEvent is pushed to renderers after every applied cursor change and
// on every words-per-minute tick.
type CursorEvent struct {
	EventType      string  `json:"eventType"`
	SessionID      string  `json:"sessionId"`
	Timestamp      int64   `json:"timestamp"`
	Index          int     `json:"index"`
	Progress       float64 `json:"progress"`
	Cause          string  `json:"cause"`
	WordsPerMinute int     `json:"wordsPerMinute,omitempty"`
	SpokenWords    int     `json:"spokenWords"`
	Paused         bool    `json:"paused"`
	Status         string  `json:"status,omitempty"`
}

// Cause values that are not cursor moves.
const (
	CauseTick   = "tick"
	CausePause  = "pause"
	CauseResume = "resume"
	CauseStatus = "status"
)
