package whois

import (
	"errors"
	"strings"

	"domainwatch/pkg/registry"
	"domainwatch/pkg/serrors"

	whoisparser "github.com/likexian/whois-parser"
)

// Throttling notices are a few lines long.
const shortAnswer = 512

var notFoundMarkers = []string{ //nolint: gochecknoglobals
	"no match for",
	"not found",
	"no entries found",
	"no data found",
	"status: free",
	"status: available",
	"is available for registration",
	"domain not registered",
	"object does not exist",
	"no object found",
}

// Parse normalizes a raw WHOIS answer for name. likexian/whois-parser handles
// the common gTLD shapes; a key/value scan fills whatever it leaves empty.
// Missing expiration dates are not an error, an answer with no usable field
// at all is.
func Parse(name, raw string) (*registry.Record, error) {
	if len(raw) < shortAnswer && registry.IsRateLimitText(raw) {
		return nil, serrors.With(serrors.ErrRateLimited, "registry throttled the query for %s", name)
	}

	rec := &registry.Record{Domain: name, Raw: raw, Source: registry.ProtocolWHOIS}

	info, err := whoisparser.Parse(raw)
	switch {
	case err == nil:
		fromParser(rec, info)
	case errors.Is(err, whoisparser.ErrDomainLimitExceed):
		return nil, serrors.Wrap(serrors.ErrRateLimited, err, "registry throttled the query for %s", name)
	case errors.Is(err, whoisparser.ErrNotFoundDomain),
		errors.Is(err, whoisparser.ErrReservedDomain),
		errors.Is(err, whoisparser.ErrPremiumDomain),
		errors.Is(err, whoisparser.ErrBlockedDomain):
		return nil, serrors.Wrap(serrors.ErrNotFound, err, "%s is not registered", name)
	}

	scan(rec, raw)

	if rec.Empty() {
		if registry.IsRateLimitText(raw) {
			return nil, serrors.With(serrors.ErrRateLimited, "registry throttled the query for %s", name)
		}
		if looksNotFound(raw) {
			return nil, serrors.With(serrors.ErrNotFound, "%s is not registered", name)
		}

		return nil, serrors.With(serrors.ErrParseFailure, "no registration data in answer for %s", name)
	}

	return rec, nil
}

func fromParser(rec *registry.Record, info whoisparser.WhoisInfo) {
	if d := info.Domain; d != nil {
		rec.ExpirationDate = registry.ParseDatePtr(d.ExpirationDate)
		rec.UpdatedDate = registry.ParseDatePtr(d.UpdatedDate)
		rec.CreatedDate = registry.ParseDatePtr(d.CreatedDate)
		rec.Nameservers = normalizeNameservers(d.NameServers)
		rec.StatusFlags = normalizeFlags(d.Status)
	}
	if r := info.Registrar; r != nil {
		rec.Registrar = stripTag(r.Name)
		rec.RegistrarURL = strings.TrimSpace(r.ReferralURL)
		if rec.AbuseEmail == "" {
			rec.AbuseEmail = strings.TrimSpace(r.Email)
		}
	}
}

func looksNotFound(raw string) bool {
	lower := strings.ToLower(raw)
	for _, m := range notFoundMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}

	return false
}

func normalizeNameservers(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, ns := range in {
		fields := strings.Fields(ns)
		if len(fields) == 0 {
			continue
		}
		// "ns1.example.net 192.0.2.1" and "ns1.example.net."
		host := strings.TrimSuffix(strings.ToLower(fields[0]), ".")
		if host == "" || !strings.Contains(host, ".") || seen[host] {
			continue
		}
		seen[host] = true
		out = append(out, host)
	}
	if len(out) == 0 {
		return nil
	}

	return out
}

func normalizeFlags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, raw := range in {
		for _, part := range strings.Split(raw, ",") {
			fields := strings.Fields(part)
			if len(fields) == 0 {
				continue
			}
			// Drop the ICANN EPP link that follows most flags.
			if strings.HasPrefix(fields[len(fields)-1], "http") {
				fields = fields[:len(fields)-1]
			}
			flag := strings.Join(fields, " ")
			if flag == "" || seen[strings.ToLower(flag)] {
				continue
			}
			seen[strings.ToLower(flag)] = true
			out = append(out, flag)
		}
	}
	if len(out) == 0 {
		return nil
	}

	return out
}
