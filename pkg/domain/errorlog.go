package domain

import (
	"time"

	"github.com/google/uuid"
)

// ErrorEvent is a failure reported to the error log.
type ErrorEvent struct {
	// Kind is the error category, e.g. RATE_LIMITED.
	Kind string
	// Location names the component that failed, e.g. "checker.lookup".
	Location string
	Message  string
	Context  map[string]any
}

// ErrorSignature is the collapsed record of identical failures. At most one
// unresolved signature exists per (Kind, Location, Message).
type ErrorSignature struct {
	ID              uuid.UUID      `json:"id"`
	Kind            string         `json:"kind"`
	Location        string         `json:"location"`
	Message         string         `json:"message"`
	Context         map[string]any `json:"context,omitempty"`
	OccurrenceCount int            `json:"occurrenceCount"`
	FirstSeen       time.Time      `json:"firstSeen"`
	LastSeen        time.Time      `json:"lastSeen"`
	Resolved        bool           `json:"resolved"`
	ResolvedAt      *time.Time     `json:"resolvedAt,omitempty"`
}
