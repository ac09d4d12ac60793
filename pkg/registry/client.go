package registry

import (
	"context"
	"strings"
	"time"

	"domainwatch/pkg/domain"
	"domainwatch/pkg/logger"
	"domainwatch/pkg/serrors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Client is the Lookuper that resolves the route of a name's TLD and
// queries that registry with the matching ProtocolClient.
type Client struct {
	resolver *Resolver
	clients  map[Protocol]ProtocolClient
	timeout  time.Duration
	duration metric.Float64Histogram
}

// NewClient creates a Client. timeout bounds a single query; zero means the
// caller's context is the only bound.
func NewClient(resolver *Resolver, timeout time.Duration, clients map[Protocol]ProtocolClient) *Client {
	duration, err := otel.Meter("domainwatch/registry").Float64Histogram(
		"registry.lookup.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of registry lookups by protocol and outcome."),
	)
	if err != nil {
		otel.Handle(err)
	}

	return &Client{resolver: resolver, clients: clients, timeout: timeout, duration: duration}
}

// Lookup implements Lookuper.
func (c *Client) Lookup(ctx context.Context, name string) (*Record, error) {
	name = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
	tld := domain.TLDOf(name)
	if tld == "" || tld == name {
		return nil, serrors.With(serrors.ErrUnknownTLD, "%q has no tld", name)
	}

	route, err := c.resolver.Resolve(ctx, tld)
	if err != nil {
		return nil, err
	}

	pc, ok := c.clients[route.Protocol]
	if !ok {
		return nil, serrors.With(serrors.ErrUnknownTLD, "no client for protocol %q of .%s", route.Protocol, tld)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	rec, err := pc.Query(ctx, route, name)
	err = Classify(err, route.Server)
	c.record(ctx, route.Protocol, err, time.Since(start))
	if err != nil {
		logger.Debug(ctx, "registry query failed",
			zap.String("server", route.Server),
			zap.String("protocol", string(route.Protocol)),
			zap.String("kind", serrors.KindName(err)),
			zap.Error(err))

		return nil, err
	}

	rec.Domain = name
	rec.Source = route.Protocol

	return rec, nil
}

func (c *Client) record(ctx context.Context, p Protocol, err error, d time.Duration) {
	if c.duration == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = strings.ToLower(serrors.KindName(err))
	}
	c.duration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("protocol", string(p)),
		attribute.String("result", result),
	))
}
