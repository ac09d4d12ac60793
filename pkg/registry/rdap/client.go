// Package rdap implements registry.ProtocolClient over RDAP and discovers
// RDAP services from the IANA bootstrap registry.
package rdap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"domainwatch/pkg/registry"
	"domainwatch/pkg/serrors"

	openrdap "github.com/openrdap/rdap"
	"github.com/openrdap/rdap/bootstrap"
)

// maxBody caps how much of a response is read.
const maxBody = 1 << 20

// Client fetches domain objects from RDAP servers. It is safe for concurrent
// use.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// New creates a Client that sends requests with httpClient.
func New(httpClient *http.Client, userAgent string) *Client {
	return &Client{httpClient: httpClient, userAgent: userAgent}
}

// Query implements registry.ProtocolClient.
func (c *Client) Query(ctx context.Context, route registry.Route, name string) (*registry.Record, error) {
	endpoint := strings.TrimSuffix(route.Server, "/") + "/domain/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", "application/rdap+json, application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, registry.Classify(err, req.URL.Host)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, registry.Classify(err, req.URL.Host)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, serrors.With(serrors.ErrRateLimited, "%s rate limited (retry after %q)",
			req.URL.Host, resp.Header.Get("Retry-After"))
	case resp.StatusCode == http.StatusNotFound:
		return nil, serrors.With(serrors.ErrNotFound, "%s has no record of %s", req.URL.Host, name)
	case resp.StatusCode >= 500:
		return nil, serrors.With(serrors.ErrUnreachable, "%s answered %d", req.URL.Host, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, serrors.With(serrors.ErrParseFailure, "%s answered %d: %s",
			req.URL.Host, resp.StatusCode, truncate(strings.TrimSpace(string(b)), 200))
	}

	obj, err := openrdap.NewDecoder(b).Decode()
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrParseFailure, err, "could not decode rdap response from %s", req.URL.Host)
	}

	switch v := obj.(type) {
	case *openrdap.Domain:
		rec := toRecord(v)
		rec.Domain = name
		rec.Raw = string(b)

		return rec, nil
	case *openrdap.Error:
		if v.ErrorCode != nil && *v.ErrorCode == http.StatusNotFound {
			return nil, serrors.With(serrors.ErrNotFound, "%s has no record of %s", req.URL.Host, name)
		}

		return nil, serrors.With(serrors.ErrParseFailure, "%s returned an error object: %s", req.URL.Host, v.Title)
	default:
		return nil, serrors.With(serrors.ErrParseFailure, "%s returned %T instead of a domain", req.URL.Host, obj)
	}
}

func toRecord(d *openrdap.Domain) *registry.Record {
	rec := &registry.Record{Source: registry.ProtocolRDAP}

	for _, e := range d.Events {
		switch strings.ToLower(e.Action) {
		case "expiration":
			rec.ExpirationDate = registry.ParseDatePtr(e.Date)
		case "last changed":
			rec.UpdatedDate = registry.ParseDatePtr(e.Date)
		case "registration":
			rec.CreatedDate = registry.ParseDatePtr(e.Date)
		}
	}

	rec.StatusFlags = append(rec.StatusFlags, d.Status...)

	seen := make(map[string]bool, len(d.Nameservers))
	for _, ns := range d.Nameservers {
		host := strings.TrimSuffix(strings.ToLower(ns.LDHName), ".")
		if host == "" || seen[host] {
			continue
		}
		seen[host] = true
		rec.Nameservers = append(rec.Nameservers, host)
	}

	for i := range d.Entities {
		e := &d.Entities[i]
		if !hasRole(e.Roles, "registrar") {
			continue
		}
		if e.VCard != nil {
			rec.Registrar = e.VCard.Name()
		}
		for _, l := range e.Links {
			if l.Href != "" {
				rec.RegistrarURL = l.Href

				break
			}
		}
		for j := range e.Entities {
			abuse := &e.Entities[j]
			if hasRole(abuse.Roles, "abuse") && abuse.VCard != nil {
				rec.AbuseEmail = abuse.VCard.Email()
			}
		}
	}

	return rec
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}

	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}

// Bootstrap discovers RDAP services from the IANA bootstrap registry.
type Bootstrap struct {
	client *bootstrap.Client
}

// NewBootstrap creates a Bootstrap that downloads the registry with
// httpClient.
func NewBootstrap(httpClient *http.Client) *Bootstrap {
	return &Bootstrap{client: &bootstrap.Client{HTTP: httpClient}}
}

// Discover implements registry.Discoverer.
func (b *Bootstrap) Discover(ctx context.Context, tld string) (registry.Route, error) {
	q := &bootstrap.Question{
		RegistryType: bootstrap.DNS,
		Query:        "nic." + tld,
	}

	answer, err := b.client.Lookup(q.WithContext(ctx))
	if err != nil {
		return registry.Route{}, registry.Classify(err, "data.iana.org")
	}
	if answer == nil {
		return registry.Route{}, serrors.KindOnly(serrors.ErrUnknownTLD)
	}

	var server string
	for _, u := range answer.URLs {
		if u == nil {
			continue
		}
		if u.Scheme == "https" {
			server = u.String()

			break
		}
		if server == "" {
			server = u.String()
		}
	}
	if server == "" {
		return registry.Route{}, serrors.KindOnly(serrors.ErrUnknownTLD)
	}

	return registry.Route{TLD: tld, Protocol: registry.ProtocolRDAP, Server: server}, nil
}
