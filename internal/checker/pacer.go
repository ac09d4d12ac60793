package checker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// pacer spaces lookups against the same TLD by a fixed interval. Each TLD has
// its own limiter, so registries never wait for one another.
type pacer struct {
	interval time.Duration
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newPacer(interval time.Duration, now func() time.Time, sleep func(context.Context, time.Duration) error) *pacer {
	return &pacer{
		interval: interval,
		now:      now,
		sleep:    sleep,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a lookup against tld may start.
func (p *pacer) Wait(ctx context.Context, tld string) error {
	if p.interval <= 0 {
		return ctx.Err()
	}

	p.mu.Lock()
	l, ok := p.limiters[tld]
	if !ok {
		l = rate.NewLimiter(rate.Every(p.interval), 1)
		p.limiters[tld] = l
	}
	p.mu.Unlock()

	r := l.ReserveN(p.now(), 1)
	delay := r.DelayFrom(p.now())
	if delay <= 0 {
		return ctx.Err()
	}
	if err := p.sleep(ctx, delay); err != nil {
		r.CancelAt(p.now())

		return err
	}

	return nil
}
