package domain

import (
	"time"

	"github.com/google/uuid"
)

// CheckRun records one batch run over all active domains.
type CheckRun struct {
	ID         uuid.UUID  `json:"id"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`

	// Checked is the number of domains looked up at least once.
	Checked int `json:"checked"`
	// Succeeded counts domains whose final lookup succeeded, including on retry.
	Succeeded int `json:"succeeded"`
	// Preserved counts failures that kept the previous good status.
	Preserved int `json:"preserved"`
	// Errored counts domains moved to StatusError.
	Errored int `json:"errored"`
	// Retried counts domains that succeeded on a retry pass.
	Retried int `json:"retried"`
	// Notified counts notifications dispatched, one per domain.
	Notified int `json:"notified"`
	// Suppressed counts notifications skipped because one was sent recently.
	Suppressed int `json:"suppressed"`
}
