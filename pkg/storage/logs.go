package storage

import (
	"context"
	"time"

	"domainwatch/pkg/domain"

	"github.com/google/uuid"
)

// NotificationLogStorage keeps the append-only delivery log used for
// suppression.
type NotificationLogStorage interface {
	// WasSentRecently reports whether a successful delivery of type t for the
	// domain was logged at or after since.
	WasSentRecently(ctx context.Context, id domain.DomainID, t domain.NotificationType, since time.Time) (bool, error)
	// LogNotifications appends delivery attempts.
	LogNotifications(ctx context.Context, entries ...domain.NotificationLog) error
}

// ErrorLogStorage collapses repeated failures into signatures.
type ErrorLogStorage interface {
	// LogError records event at time at. When an unresolved signature with the
	// same kind, location and message exists its occurrence count and last seen
	// time are updated; otherwise a new signature is created. The signature ID
	// is returned.
	LogError(ctx context.Context, event domain.ErrorEvent, at time.Time) (uuid.UUID, error)
	// ResolveError marks a signature resolved. A later identical event starts a
	// new signature.
	ResolveError(ctx context.Context, id uuid.UUID, at time.Time) error
	// ErrorSignatures returns signatures ordered by last seen, newest first.
	// Resolved ones are only included when withResolved is set.
	ErrorSignatures(ctx context.Context, withResolved bool) ([]domain.ErrorSignature, error)
}

// RunStorage records batch runs.
type RunStorage interface {
	// StartRun stores a new run started at startedAt.
	StartRun(ctx context.Context, startedAt time.Time) (domain.CheckRun, error)
	// FinishRun stores the counters and finish time of run.
	FinishRun(ctx context.Context, run domain.CheckRun) error
}
