package checker

import (
	"context"
	"time"

	"domainwatch/internal/config"
	"domainwatch/pkg/domain"
	"domainwatch/pkg/notify"
)

// Options tune a run. They are typically derived from application
// configuration with NewOptions.
type Options struct {
	// Thresholds are the days-left values that trigger an expiring notification.
	Thresholds []int
	// ExpiringSoonWindow is passed to the status classifier.
	ExpiringSoonWindow time.Duration
	// MaxRetries is the number of retry passes after the main loop.
	MaxRetries int
	// RetryDelays are the waits before passes 2, 3 and so on; the last entry
	// repeats. Pass 1 starts right after the main loop.
	RetryDelays []time.Duration
	// GroupCooldown is waited between TLD groups of a retry pass.
	GroupCooldown time.Duration
	// DomainPacing separates lookups against the same TLD.
	DomainPacing time.Duration
	// SuppressionWindow is how long a delivered notification type is not repeated.
	SuppressionWindow time.Duration
	// MaxPreservedChecks is how many consecutive failed checks may keep a
	// good status. 0 keeps it forever.
	MaxPreservedChecks int
	// Concurrency above 1 checks that many TLD groups at once.
	Concurrency int
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		Thresholds:         cfg.Checker.Thresholds,
		ExpiringSoonWindow: cfg.Checker.ExpiringSoonWindow,
		MaxRetries:         cfg.Checker.MaxRetries,
		RetryDelays:        cfg.Checker.RetryDelays,
		GroupCooldown:      cfg.Checker.GroupCooldown,
		DomainPacing:       cfg.Checker.DomainPacing,
		SuppressionWindow:  cfg.Checker.SuppressionWindow,
		MaxPreservedChecks: cfg.Checker.MaxPreservedChecks,
		Concurrency:        cfg.Checker.Concurrency,
	}
}

// passDelay is the wait before retry pass pass.
func (o Options) passDelay(pass int) time.Duration {
	if pass <= 1 || len(o.RetryDelays) == 0 {
		return 0
	}
	if i := pass - 2; i < len(o.RetryDelays) {
		return o.RetryDelays[i]
	}

	return o.RetryDelays[len(o.RetryDelays)-1]
}

// Dispatcher delivers a notification on a set of channels.
type Dispatcher interface {
	Dispatch(
		ctx context.Context,
		d domain.Domain,
		t domain.NotificationType,
		now time.Time,
		channels []domain.Channel,
	) (notify.Message, []notify.Result)
}

// Invalidator drops cached registry routes.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Option customizes a checker beyond its Options.
type Option func(*checker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *checker) { c.now = now }
}

// WithSleeper replaces the context aware sleep used between retry passes,
// groups and domains.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *checker) { c.sleep = sleep }
}

// WithInvalidator makes every run start from fresh registry routes.
func WithInvalidator(inv Invalidator) Option {
	return func(c *checker) { c.routes = inv }
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
