// Package whois implements registry.ProtocolClient over port 43 WHOIS and
// discovers registry servers through IANA referrals.
package whois

import (
	"context"
	"errors"
	"strings"
	"time"

	"domainwatch/pkg/registry"
	"domainwatch/pkg/serrors"

	lwhois "github.com/likexian/whois"
)

// IANAServer answers TLD queries with a referral to the registry's server.
const IANAServer = "whois.iana.org"

// Querier performs one raw WHOIS query. *lwhois.Client satisfies it.
type Querier interface {
	Whois(domain string, servers ...string) (string, error)
}

// Client queries WHOIS servers and parses their answers. It is safe for
// concurrent use.
type Client struct {
	querier Querier
}

// New creates a Client backed by likexian/whois with a socket timeout.
func New(timeout time.Duration) *Client {
	return NewWithQuerier(lwhois.NewClient().SetTimeout(timeout))
}

// NewWithQuerier creates a Client that sends queries through q.
func NewWithQuerier(q Querier) *Client {
	return &Client{querier: q}
}

// Query implements registry.ProtocolClient.
func (c *Client) Query(ctx context.Context, route registry.Route, name string) (*registry.Record, error) {
	raw, err := c.query(ctx, name, route.Server)
	if err != nil {
		return nil, err
	}

	return Parse(name, raw)
}

// Discover implements registry.Discoverer by asking IANA which server holds
// the TLD's registrations.
func (c *Client) Discover(ctx context.Context, tld string) (registry.Route, error) {
	raw, err := c.query(ctx, tld, IANAServer)
	if err != nil {
		return registry.Route{}, err
	}

	server := referral(raw)
	if server == "" {
		return registry.Route{}, serrors.With(serrors.ErrUnknownTLD, "iana has no whois server for .%s", tld)
	}

	return registry.Route{TLD: tld, Protocol: registry.ProtocolWHOIS, Server: server}, nil
}

// query runs the blocking library call so ctx can abandon it. The socket
// timeout bounds the abandoned goroutine.
func (c *Client) query(ctx context.Context, name, server string) (string, error) {
	type result struct {
		raw string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		raw, err := c.querier.Whois(name, server)
		ch <- result{raw: raw, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", registry.Classify(ctx.Err(), server)
	case res := <-ch:
		if res.err != nil {
			if errors.Is(res.err, lwhois.ErrDomainEmpty) {
				return "", serrors.Wrap(serrors.ErrNotFound, res.err, "empty query")
			}

			return "", registry.Classify(res.err, server)
		}
		if strings.TrimSpace(res.raw) == "" {
			return "", serrors.With(serrors.ErrUnreachable, "%s returned an empty answer", server)
		}

		return res.raw, nil
	}
}

// referral returns the server named on the first "whois:" or "refer:" line.
func referral(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "whois", "refer":
			if v := strings.TrimSpace(value); v != "" {
				return strings.ToLower(v)
			}
		}
	}

	return ""
}
