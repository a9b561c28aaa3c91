// Package models defines the wire shapes the prompter consumes and emits.
package models

// Event types carried in the eventType field.
const (
	EventTranscriptPartial = "transcript.partial"
	EventTranscriptFinal   = "transcript.final"
	EventCursor            = "prompter.cursor"
)

// TranscriptPartial is an interim transcript as published by the speech
// ingress service. Text is the cumulative restatement of the segment so far.
type TranscriptPartial struct {
	EventType     string `json:"eventType"`
	InteractionID string `json:"interactionId"`
	TenantID      string `json:"tenantId"`
	Timestamp     int64  `json:"timestamp"`
	SegmentID     string `json:"segmentId"`
	Text          string `json:"text"`
}

// TranscriptFinal commits a segment.
type TranscriptFinal struct {
	EventType     string  `json:"eventType"`
	InteractionID string  `json:"interactionId"`
	TenantID      string  `json:"tenantId"`
	Timestamp     int64   `json:"timestamp"`
	SegmentID     string  `json:"segmentId"`
	Text          string  `json:"text"`
	Confidence    float64 `json:"confidence"`
	AudioOffsetMs int64   `json:"audioOffsetMs"`
}
