package checker

import (
	"context"

	"domainwatch/pkg/domain"
	"domainwatch/pkg/logger"
	"domainwatch/pkg/metrics"
	"domainwatch/pkg/registry"
	"domainwatch/pkg/serrors"

	"go.uber.org/zap"
)

// RetryItem is a domain waiting for another lookup in this run.
type RetryItem struct {
	Domain domain.Domain
	TLD    string
	// Attempts counts lookups made so far, including the first.
	Attempts int
	LastErr  error
}

// retryGroup holds the queued domains of one TLD.
type retryGroup struct {
	TLD   string
	Items []RetryItem
}

// retryQueue groups items by TLD. Groups keep the order in which their TLD
// was first queued, items keep insertion order.
type retryQueue struct {
	order  []string
	groups map[string][]RetryItem
}

func newRetryQueue() *retryQueue {
	return &retryQueue{groups: make(map[string][]RetryItem)}
}

func (q *retryQueue) add(item RetryItem) {
	if _, ok := q.groups[item.TLD]; !ok {
		q.order = append(q.order, item.TLD)
	}
	q.groups[item.TLD] = append(q.groups[item.TLD], item)
}

func (q *retryQueue) Len() int {
	n := 0
	for _, items := range q.groups {
		n += len(items)
	}

	return n
}

// drain returns the groups and empties the queue.
func (q *retryQueue) drain() []retryGroup {
	out := make([]retryGroup, 0, len(q.order))
	for _, tld := range q.order {
		out = append(out, retryGroup{TLD: tld, Items: q.groups[tld]})
	}
	q.order = nil
	q.groups = make(map[string][]RetryItem)

	return out
}

// processRetries runs up to MaxRetries passes over the queue. Within a pass
// TLD groups are separated by GroupCooldown. Every lookup goes through the
// same per-TLD pacer as the main loop, so a registry that just answered is
// never asked again sooner than DomainPacing.
// Items still failing transiently move to the next pass; the rest are
// settled as successes or final failures.
func (c *checker) processRetries(ctx context.Context, q *retryQueue, stats *runStats) {
	for pass := 1; pass <= c.options.MaxRetries && q.Len() > 0; pass++ {
		if err := c.sleep(ctx, c.options.passDelay(pass)); err != nil {
			return
		}

		groups := q.drain()
		logger.Info(ctx, "starting retry pass",
			zap.Int("pass", pass),
			zap.Int("groups", len(groups)),
			zap.Int("domains", countItems(groups)))

		for gi, group := range groups {
			if gi > 0 {
				if err := c.sleep(ctx, c.options.GroupCooldown); err != nil {
					return
				}
			}

			for _, item := range group.Items {
				if err := c.pacer.Wait(ctx, item.TLD); err != nil {
					return
				}

				item.Attempts++
				rec, err := c.lookup(ctx, item.Domain)
				if ctx.Err() != nil {
					return
				}
				if err == nil {
					metrics.RetryAttemptsTotal.WithLabelValues("ok").Inc()
					c.handleSuccess(ctx, item.Domain, rec, stats, true)

					continue
				}

				metrics.RetryAttemptsTotal.WithLabelValues(serrors.KindName(err)).Inc()
				logger.Warn(ctx, "retry failed",
					zap.String("domain", item.Domain.Name),
					zap.Int("pass", pass),
					zap.Int("attempts", item.Attempts),
					zap.String("kind", serrors.KindName(err)))

				item.LastErr = err
				if registry.IsTransient(err) && pass < c.options.MaxRetries {
					q.add(item)

					continue
				}
				c.handleFailure(ctx, item.Domain, err, item.Attempts, stats)
			}
		}
	}
}

func countItems(groups []retryGroup) int {
	n := 0
	for _, g := range groups {
		n += len(g.Items)
	}

	return n
}
