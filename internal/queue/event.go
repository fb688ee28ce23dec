package queue

import (
	"encoding/json"
	"time"
)

// EventVersion is the current payload version.
const EventVersion = 1

// Outcome values carried by Event.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// Event is the terminal outcome of one pipeline run, sent to downstream
// consumers.
type Event struct {
	ResumeID   string `json:"resumeId,omitempty"`
	Owner      string `json:"owner,omitempty"`
	Stage      string `json:"stage"`
	Outcome    string `json:"outcome"`
	Error      string `json:"error,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
	OccurredAt string `json:"occurredAt"`
	Version    int    `json:"version"`
}

// NewEvent stamps an event with the current time and version.
func NewEvent(resumeID, stage, outcome string) Event {
	return Event{
		ResumeID:   resumeID,
		Stage:      stage,
		Outcome:    outcome,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
		Version:    EventVersion,
	}
}

// EncodeEvent returns the JSON representation of an event.
func EncodeEvent(evt Event) ([]byte, error) {
	return json.Marshal(evt)
}

// DecodeEvent parses a JSON payload into an Event.
func DecodeEvent(payload []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return Event{}, err
	}
	return evt, nil
}
