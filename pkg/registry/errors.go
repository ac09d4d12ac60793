package registry

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"

	"domainwatch/pkg/serrors"
)

// IsTransient reports whether a lookup failure is worth retrying later.
func IsTransient(err error) bool {
	return errors.Is(err, serrors.ErrRateLimited) ||
		errors.Is(err, serrors.ErrTimeout) ||
		errors.Is(err, serrors.ErrUnreachable)
}

// IsPermanent reports whether a lookup failure will not go away by retrying.
func IsPermanent(err error) bool {
	return errors.Is(err, serrors.ErrNotFound) ||
		errors.Is(err, serrors.ErrParseFailure) ||
		errors.Is(err, serrors.ErrUnknownTLD)
}

// Classify gives a kind to a transport error that has none yet. Errors that
// already carry a kind are returned as they are.
func Classify(err error, server string) error {
	if err == nil || serrors.KindOf(err) != nil {
		return err
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return serrors.Wrap(serrors.ErrTimeout, err, "query %s timed out", server)
	case errors.As(err, &netErr) && netErr.Timeout():
		return serrors.Wrap(serrors.ErrTimeout, err, "query %s timed out", server)
	case errors.Is(err, context.Canceled):
		return err
	case isRateLimitText(err.Error()):
		return serrors.Wrap(serrors.ErrRateLimited, err, "query %s rate limited", server)
	default:
		return serrors.Wrap(serrors.ErrUnreachable, err, "could not query %s", server)
	}
}

var rateLimitMarkers = []string{ //nolint: gochecknoglobals
	"rate limit",
	"ratelimit",
	"too many requests",
	"query limit",
	"queries exceeded",
	"limit exceeded",
	"exceeded the maximum",
	"request limit",
	"quota exceeded",
	"try again later",
	"please wait",
	"access denied, too many",
}

// IsRateLimitText reports whether a registry answer mentions throttling.
// Legal notices of real records sometimes do too, so callers only trust it
// for short answers or answers without registration data.
func IsRateLimitText(text string) bool {
	return isRateLimitText(text)
}

func isRateLimitText(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range rateLimitMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}

	return false
}
