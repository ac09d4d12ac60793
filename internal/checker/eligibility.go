package checker

import (
	"slices"
	"time"

	"domainwatch/pkg/domain"
	"domainwatch/pkg/lifecycle"
)

// NotificationFor returns the notification due for a domain expiring at
// expiration: expired once no days are left, or expiring_in_N_days when the
// days left match a threshold.
func NotificationFor(expiration, now time.Time, thresholds []int) (domain.NotificationType, int, bool) {
	days := lifecycle.DaysLeft(expiration, now)
	if days <= 0 {
		return domain.NotificationExpired, days, true
	}
	if slices.Contains(thresholds, days) {
		return domain.ExpiringIn(days), days, true
	}

	return "", days, false
}
