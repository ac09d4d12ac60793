package registry

import (
	"context"
	"errors"
	"strings"

	"domainwatch/pkg/logger"
	"domainwatch/pkg/serrors"

	"go.uber.org/zap"
)

// Resolver maps a TLD to the route of its registry. Configured overrides win;
// everything else is discovered once and cached until Invalidate.
type Resolver struct {
	overrides   map[string]Route
	cache       RouteCache
	discoverers []Discoverer
}

// NewResolver creates a Resolver. Discoverers are asked in order; the first
// one that knows the TLD wins.
func NewResolver(cache RouteCache, overrides []Route, discoverers ...Discoverer) *Resolver {
	if cache == nil {
		cache = NewMemoryCache()
	}

	byTLD := make(map[string]Route, len(overrides))
	for _, r := range overrides {
		r.TLD = normalizeTLD(r.TLD)
		byTLD[r.TLD] = r
	}

	return &Resolver{overrides: byTLD, cache: cache, discoverers: discoverers}
}

// Resolve returns the route of tld or an error of kind serrors.ErrUnknownTLD
// when no source knows it. A cache hit makes no network call.
func (r *Resolver) Resolve(ctx context.Context, tld string) (Route, error) {
	tld = normalizeTLD(tld)
	if tld == "" {
		return Route{}, serrors.With(serrors.ErrUnknownTLD, "empty tld")
	}
	if route, ok := r.overrides[tld]; ok {
		return route, nil
	}

	route, ok, err := r.cache.Get(ctx, tld)
	if err != nil {
		logger.Warn(ctx, "could not read route cache", zap.String("tld", tld), zap.Error(err))
	}
	if ok {
		return route, nil
	}

	var lastErr error
	for _, d := range r.discoverers {
		route, err := d.Discover(ctx, tld)
		if err != nil {
			if !errors.Is(err, serrors.ErrUnknownTLD) {
				logger.Debug(ctx, "route discovery failed", zap.String("tld", tld), zap.Error(err))
				lastErr = err
			}

			continue
		}

		route.TLD = tld
		if err := r.cache.Set(ctx, route); err != nil {
			logger.Warn(ctx, "could not cache route", zap.String("tld", tld), zap.Error(err))
		}
		logger.Debug(ctx, "route resolved",
			zap.String("tld", tld),
			zap.String("protocol", string(route.Protocol)),
			zap.String("server", route.Server))

		return route, nil
	}

	// A source that failed might have known the TLD, so surface that
	// failure instead of claiming the TLD is unknown.
	if lastErr != nil {
		return Route{}, lastErr
	}

	return Route{}, serrors.With(serrors.ErrUnknownTLD, "no registry known for .%s", tld)
}

// Invalidate drops every cached route.
func (r *Resolver) Invalidate(ctx context.Context) error {
	return r.cache.Clear(ctx)
}

func normalizeTLD(tld string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(tld)), ".")
}

// StaticRoutes is a Discoverer backed by a fixed table.
type StaticRoutes map[string]Route

// Discover implements Discoverer.
func (s StaticRoutes) Discover(_ context.Context, tld string) (Route, error) {
	if r, ok := s[tld]; ok {
		return r, nil
	}

	return Route{}, serrors.KindOnly(serrors.ErrUnknownTLD)
}

// WellKnownWHOIS lists country-code registries that publish expiration data
// over WHOIS only, or whose RDAP service omits it.
func WellKnownWHOIS() StaticRoutes {
	servers := map[string]string{
		"de": "whois.denic.de",
		"eu": "whois.eu",
		"jp": "whois.jprs.jp",
		"nl": "whois.domain-registry.nl",
		"ru": "whois.tcinet.ru",
		"su": "whois.tcinet.ru",
		"uk": "whois.nic.uk",
		"at": "whois.nic.at",
		"be": "whois.dns.be",
		"ch": "whois.nic.ch",
		"it": "whois.nic.it",
		"se": "whois.iis.se",
	}

	out := make(StaticRoutes, len(servers))
	for tld, server := range servers {
		out[tld] = Route{TLD: tld, Protocol: ProtocolWHOIS, Server: server}
	}

	return out
}
