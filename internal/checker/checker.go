// Package checker runs the batch over all monitored domains: registry lookups,
// status classification, retries of transient failures, notification
// dispatch with deduplication, and the run record.
package checker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"domainwatch/pkg/domain"
	"domainwatch/pkg/lifecycle"
	"domainwatch/pkg/logger"
	"domainwatch/pkg/metrics"
	"domainwatch/pkg/registry"
	"domainwatch/pkg/serrors"
	"domainwatch/pkg/storage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Error log locations.
const (
	locationLookup = "checker.lookup"
	locationStore  = "checker.store"
	locationNotify = "checker.notify"
)

type checker struct {
	options    Options
	storage    storage.AllStorage
	registry   registry.Lookuper
	dispatcher Dispatcher
	routes     Invalidator
	classifier lifecycle.Classifier
	pacer      *pacer
	tracer     trace.Tracer

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Checker.
func New(
	strg storage.AllStorage,
	lookuper registry.Lookuper,
	dispatcher Dispatcher,
	options Options,
	opts ...Option,
) Checker {
	c := &checker{
		options:    options,
		storage:    strg,
		registry:   lookuper,
		dispatcher: dispatcher,
		classifier: lifecycle.Classifier{ExpiringSoonWindow: options.ExpiringSoonWindow},
		tracer:     otel.Tracer("domainwatch/checker"),
		now:        time.Now,
		sleep:      sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.pacer = newPacer(options.DomainPacing, c.now, c.sleep)

	return c
}

// runStats are the counters of a run. Concurrent TLD groups share them.
type runStats struct {
	mu sync.Mutex
	domain.CheckRun
}

func (s *runStats) inc(field *int) {
	s.mu.Lock()
	*field++
	s.mu.Unlock()
}

func (c *checker) Run(ctx context.Context) (domain.CheckRun, error) {
	ctx, span := c.tracer.Start(ctx, "checker.Run")
	defer span.End()

	started := c.now()
	run, err := c.storage.StartRun(ctx, started)
	if err != nil {
		return domain.CheckRun{}, fmt.Errorf("could not start run: %w", err)
	}
	ctx = logger.WithFields(ctx, zap.String("run_id", run.ID.String()))

	if c.routes != nil {
		if err := c.routes.Invalidate(ctx); err != nil {
			logger.Warn(ctx, "could not invalidate registry routes", zap.Error(err))
		}
	}

	domains, err := c.storage.ActiveDomains(ctx)
	if err != nil {
		return run, fmt.Errorf("could not list active domains: %w", err)
	}
	logger.Info(ctx, "check run started", zap.Int("domains", len(domains)))

	stats := &runStats{CheckRun: run}
	queue := c.checkAll(ctx, domains, stats)
	if queue.Len() > 0 && ctx.Err() == nil {
		c.processRetries(ctx, queue, stats)
	}

	finished := c.now()
	run = stats.CheckRun
	run.FinishedAt = &finished
	if err := c.storage.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Error(ctx, "could not store run record", zap.Error(err))
	}

	metrics.RunDuration.Observe(finished.Sub(started).Seconds())
	metrics.LastRunTimestamp.Set(float64(finished.Unix()))
	span.SetAttributes(
		attribute.Int("checked", run.Checked),
		attribute.Int("errored", run.Errored),
		attribute.Int("notified", run.Notified),
	)
	logger.Info(ctx, "check run finished",
		zap.Int("checked", run.Checked),
		zap.Int("succeeded", run.Succeeded),
		zap.Int("preserved", run.Preserved),
		zap.Int("errored", run.Errored),
		zap.Int("retried", run.Retried),
		zap.Int("notified", run.Notified),
		zap.Int("suppressed", run.Suppressed),
		zap.Duration("took", finished.Sub(started)))

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "cancelled")

		return run, fmt.Errorf("check run interrupted: %w", err)
	}

	return run, nil
}

// checkAll performs the first lookup of every domain and returns the queue of
// transient failures. With Concurrency above 1 each TLD group runs in its own
// goroutine; the queue is still built in group order.
func (c *checker) checkAll(ctx context.Context, domains []domain.Domain, stats *runStats) *retryQueue {
	queue := newRetryQueue()

	if c.options.Concurrency <= 1 {
		for _, d := range domains {
			if ctx.Err() != nil {
				break
			}
			if item, retry := c.checkDomain(ctx, d, stats); retry {
				queue.add(item)
			}
		}

		return queue
	}

	groups := groupByTLD(domains)
	pending := make([][]RetryItem, len(groups))

	var g errgroup.Group
	g.SetLimit(c.options.Concurrency)
	for i, group := range groups {
		g.Go(func() error {
			for _, d := range group {
				if ctx.Err() != nil {
					return nil
				}
				if item, retry := c.checkDomain(ctx, d, stats); retry {
					pending[i] = append(pending[i], item)
				}
			}

			return nil
		})
	}
	_ = g.Wait()

	for _, items := range pending {
		for _, item := range items {
			queue.add(item)
		}
	}

	return queue
}

func groupByTLD(domains []domain.Domain) [][]domain.Domain {
	index := make(map[string]int)
	var groups [][]domain.Domain
	for _, d := range domains {
		tld := d.TLD()
		i, ok := index[tld]
		if !ok {
			i = len(groups)
			index[tld] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], d)
	}

	return groups
}

// checkDomain runs the first lookup of d. It reports true with an item when
// the failure is transient and d should be retried later.
func (c *checker) checkDomain(ctx context.Context, d domain.Domain, stats *runStats) (RetryItem, bool) {
	if err := c.pacer.Wait(ctx, d.TLD()); err != nil {
		return RetryItem{}, false
	}
	stats.inc(&stats.Checked)

	rec, err := c.lookup(ctx, d)
	if ctx.Err() != nil {
		return RetryItem{}, false
	}
	if err == nil {
		c.handleSuccess(ctx, d, rec, stats, false)

		return RetryItem{}, false
	}

	if registry.IsTransient(err) && c.options.MaxRetries > 0 {
		logger.Warn(ctx, "transient lookup failure, queued for retry",
			zap.String("domain", d.Name),
			zap.String("kind", serrors.KindName(err)),
			zap.Error(err))

		if d.Status.IsKnownGood() {
			c.markChecked(ctx, d, storage.CheckMark{
				CheckedAt:           c.now(),
				ConsecutiveFailures: d.ConsecutiveFailures,
			})
		}

		return RetryItem{Domain: d, TLD: d.TLD(), Attempts: 1, LastErr: err}, true
	}

	c.handleFailure(ctx, d, err, 1, stats)

	return RetryItem{}, false
}

// lookup queries the registry for d inside a span.
func (c *checker) lookup(ctx context.Context, d domain.Domain) (*registry.Record, error) {
	ctx, span := c.tracer.Start(ctx, "checker.lookup", trace.WithAttributes(
		attribute.String("domain", d.Name),
		attribute.String("tld", d.TLD()),
	))
	defer span.End()

	start := time.Now()
	rec, err := c.registry.Lookup(ctx, d.Name)
	took := time.Since(start).Seconds()

	result := "ok"
	if err != nil {
		result = serrors.KindName(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	}
	metrics.LookupDuration.Observe(took)
	metrics.LookupsTotal.WithLabelValues(result).Inc()

	return rec, err
}

// handleSuccess stores the merged record with its new status and evaluates
// notifications.
func (c *checker) handleSuccess(ctx context.Context, d domain.Domain, rec *registry.Record, stats *runStats, retried bool) {
	now := c.now()
	updated := Merge(d, rec)
	updated.Status = c.classifier.Classify(updated.ExpirationDate, rec.StatusFlags, now)
	updated.LastChecked = &now
	updated.ConsecutiveFailures = 0

	if err := c.storage.UpdateDomainCheck(context.WithoutCancel(ctx), updated); err != nil {
		logger.Error(ctx, "could not store domain check", zap.String("domain", d.Name), zap.Error(err))
		c.logError(ctx, domain.ErrorEvent{
			Kind:     serrors.ErrInternal.Error(),
			Location: locationStore,
			Message:  fmt.Sprintf("%s: could not store check", d.Name),
			Context:  map[string]any{"error": err.Error()},
		})
	}

	stats.inc(&stats.Succeeded)
	if retried {
		stats.inc(&stats.Retried)
	}
	metrics.DomainOutcomesTotal.WithLabelValues("succeeded").Inc()

	fields := []zap.Field{
		zap.String("domain", d.Name),
		zap.String("status", string(updated.Status)),
		zap.String("source", string(rec.Source)),
		zap.Bool("retried", retried),
	}
	if updated.ExpirationDate != nil {
		fields = append(fields, zap.Time("expiration_date", *updated.ExpirationDate))
	}
	if rec.ExpirationDate == nil && d.ExpirationDate != nil {
		fields = append(fields, zap.Bool("kept_expiration", true))
	}
	logger.Info(ctx, "domain checked", fields...)
	if d.Status != updated.Status {
		logger.Info(ctx, "domain status changed",
			zap.String("domain", d.Name),
			zap.String("from", string(d.Status)),
			zap.String("to", string(updated.Status)))
	}

	c.notify(ctx, updated, stats)
}

// handleFailure settles a domain whose lookups are over for this run. A good
// status is kept, only the check time moves, unless MaxPreservedChecks
// failures in a row were reached. Any other status becomes error.
func (c *checker) handleFailure(ctx context.Context, d domain.Domain, err error, attempts int, stats *runStats) {
	failures := d.ConsecutiveFailures + 1
	mark := storage.CheckMark{CheckedAt: c.now(), ConsecutiveFailures: failures}

	preserve := d.Status.IsKnownGood() &&
		(c.options.MaxPreservedChecks <= 0 || failures < c.options.MaxPreservedChecks)
	if preserve {
		stats.inc(&stats.Preserved)
		metrics.DomainOutcomesTotal.WithLabelValues("preserved").Inc()
		logger.Warn(ctx, "lookup failed, keeping last known status",
			zap.String("domain", d.Name),
			zap.String("status", string(d.Status)),
			zap.String("kind", serrors.KindName(err)),
			zap.Int("attempts", attempts),
			zap.Int("consecutive_failures", failures))
	} else {
		mark.Status = domain.StatusError
		stats.inc(&stats.Errored)
		metrics.DomainOutcomesTotal.WithLabelValues("errored").Inc()
		logger.Error(ctx, "lookup failed, domain marked as error",
			zap.String("domain", d.Name),
			zap.String("previous_status", string(d.Status)),
			zap.String("kind", serrors.KindName(err)),
			zap.Int("attempts", attempts),
			zap.Int("consecutive_failures", failures),
			zap.Error(err))
	}

	c.markChecked(ctx, d, mark)
	c.logError(ctx, domain.ErrorEvent{
		Kind:     serrors.KindName(err),
		Location: locationLookup,
		Message:  fmt.Sprintf("%s: %s", d.Name, serrors.KindName(err)),
		Context: map[string]any{
			"domain":    d.Name,
			"attempts":  attempts,
			"preserved": preserve,
			"error":     err.Error(),
		},
	})
}

func (c *checker) markChecked(ctx context.Context, d domain.Domain, mark storage.CheckMark) {
	if err := c.storage.MarkDomainChecked(context.WithoutCancel(ctx), d.ID, mark); err != nil {
		logger.Error(ctx, "could not mark domain checked", zap.String("domain", d.Name), zap.Error(err))
	}
}

func (c *checker) logError(ctx context.Context, event domain.ErrorEvent) {
	if _, err := c.storage.LogError(context.WithoutCancel(ctx), event, c.now()); err != nil {
		logger.Error(ctx, "could not write error log",
			zap.String("kind", event.Kind),
			zap.String("location", event.Location),
			zap.Error(err))
	}
}

// Merge applies a lookup result to the stored domain. Fields the registry left
// out keep their stored value, so a registry that never reports an
// expiration date does not erase the last known one.
func Merge(d domain.Domain, rec *registry.Record) domain.Domain {
	if rec.Registrar != "" {
		d.Registrar = rec.Registrar
	}
	if rec.RegistrarURL != "" {
		d.RegistrarURL = rec.RegistrarURL
	}
	if rec.ExpirationDate != nil {
		exp := rec.ExpirationDate.UTC()
		d.ExpirationDate = &exp
	}
	if rec.UpdatedDate != nil {
		upd := rec.UpdatedDate.UTC()
		d.UpdatedDate = &upd
	}
	if rec.AbuseEmail != "" {
		d.AbuseEmail = rec.AbuseEmail
	}
	if len(rec.Nameservers) > 0 {
		d.Nameservers = append([]string(nil), rec.Nameservers...)
	}
	if rec.Raw != "" {
		d.RawRegistryData = rec.Raw
	}

	return d
}
