package checker

import (
	"context"

	"domainwatch/pkg/domain"
)

// Checker runs batch checks over every active domain.
//
//go:generate mockgen -package mockchecker -source=interface.go -destination=mock/mockchecker.go *
type Checker interface {
	// Run checks all active domains once, retries transient failures and
	// sends due notifications. Per-domain failures never fail the run; an
	// error means the run could not start or was cancelled.
	Run(ctx context.Context) (domain.CheckRun, error)
}
