// Package lifecycle classifies a domain registration into a lifecycle status
// from its expiration date and the registry status flags.
package lifecycle

import (
	"strings"
	"time"

	"domainwatch/pkg/domain"
)

// DefaultExpiringSoonWindow is used when a Classifier has no window configured.
const DefaultExpiringSoonWindow = 30 * 24 * time.Hour

// Classifier maps registry data to a domain.Status. The zero value uses
// DefaultExpiringSoonWindow.
type Classifier struct {
	ExpiringSoonWindow time.Duration
}

// Classify returns the lifecycle status of a registration. Registry flags win
// over dates: pending delete, then redemption, then expired, then expiring
// soon, otherwise active. A nil expiration without flags is active.
// domain.StatusError is never returned; only the checker assigns it.
func (c Classifier) Classify(expiration *time.Time, flags []string, now time.Time) domain.Status {
	if HasPendingDelete(flags) {
		return domain.StatusPendingDelete
	}
	if HasRedemption(flags) {
		return domain.StatusRedemption
	}
	if expiration == nil {
		return domain.StatusActive
	}
	if !expiration.After(now) {
		return domain.StatusExpired
	}

	window := c.ExpiringSoonWindow
	if window <= 0 {
		window = DefaultExpiringSoonWindow
	}
	if !expiration.After(now.Add(window)) {
		return domain.StatusExpiringSoon
	}

	return domain.StatusActive
}

// Classify uses a zero Classifier.
func Classify(expiration *time.Time, flags []string, now time.Time) domain.Status {
	return Classifier{}.Classify(expiration, flags, now)
}

// HasPendingDelete reports whether any flag means the registry scheduled a
// deletion. EPP ("pendingDelete") and RDAP ("pending delete") spellings match.
func HasPendingDelete(flags []string) bool {
	for _, f := range flags {
		if strings.HasPrefix(normalizeFlag(f), "pendingdelete") {
			return true
		}
	}

	return false
}

// HasRedemption reports whether any flag marks the redemption grace period.
func HasRedemption(flags []string) bool {
	for _, f := range flags {
		if strings.Contains(normalizeFlag(f), "redemption") {
			return true
		}
	}

	return false
}

func normalizeFlag(f string) string {
	// WHOIS lines often carry an ICANN URL after the flag.
	if fields := strings.Fields(f); len(fields) > 1 && strings.HasPrefix(fields[len(fields)-1], "http") {
		f = strings.Join(fields[:len(fields)-1], "")
	}

	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(f))
}

// DaysLeft returns the number of calendar days (UTC) from now until
// expiration. Past dates give zero or a negative number.
func DaysLeft(expiration, now time.Time) int {
	exp := truncateDay(expiration)
	today := truncateDay(now)

	return int(exp.Sub(today).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
