package checker

import (
	"context"
	"fmt"

	"domainwatch/pkg/domain"
	"domainwatch/pkg/logger"
	"domainwatch/pkg/metrics"
	"domainwatch/pkg/serrors"

	"go.uber.org/zap"
)

// notify sends the notification due for d, if any, unless the same type was
// delivered within the suppression window. Every attempted channel gets a
// log row.
func (c *checker) notify(ctx context.Context, d domain.Domain, stats *runStats) {
	if d.NotificationGroupID == nil || d.ExpirationDate == nil {
		return
	}

	now := c.now()
	t, days, ok := NotificationFor(*d.ExpirationDate, now, c.options.Thresholds)
	if !ok {
		return
	}
	ctx = logger.WithFields(ctx,
		zap.String("domain", d.Name),
		zap.String("notification_type", string(t)),
		zap.Int("days_left", days))

	sent, err := c.storage.WasSentRecently(ctx, d.ID, t, now.Add(-c.options.SuppressionWindow))
	if err != nil {
		logger.Error(ctx, "could not check notification log", zap.Error(err))

		return
	}
	if sent {
		stats.inc(&stats.Suppressed)
		metrics.NotificationsSuppressedTotal.Inc()
		logger.Info(ctx, "notification already sent recently, skipping")

		return
	}

	channels, err := c.storage.ActiveChannels(ctx, *d.NotificationGroupID)
	if err != nil {
		logger.Error(ctx, "could not load notification channels", zap.Error(err))

		return
	}
	if len(channels) == 0 {
		logger.Debug(ctx, "notification group has no active channels")

		return
	}

	msg, results := c.dispatcher.Dispatch(ctx, d, t, now, channels)
	stats.inc(&stats.Notified)

	entries := make([]domain.NotificationLog, 0, len(results))
	failed := 0
	for _, res := range results {
		channelID := res.ChannelID
		entries = append(entries, domain.NotificationLog{
			DomainID:    d.ID,
			Type:        t,
			ChannelID:   &channelID,
			Channel:     res.Channel,
			Message:     msg.Text(),
			SentAt:      now,
			Success:     res.Success,
			ErrorDetail: res.ErrorDetail,
		})
		if res.Success {
			continue
		}

		failed++
		c.logError(ctx, domain.ErrorEvent{
			Kind:     serrors.ErrDeliveryFailed.Error(),
			Location: locationNotify,
			Message:  fmt.Sprintf("%s: %s delivery failed", d.Name, res.Channel),
			Context: map[string]any{
				"channel_id":        res.ChannelID.String(),
				"notification_type": string(t),
				"detail":            res.ErrorDetail,
			},
		})
	}

	if err := c.storage.LogNotifications(context.WithoutCancel(ctx), entries...); err != nil {
		logger.Error(ctx, "could not write notification log", zap.Error(err))
	}
	logger.Info(ctx, "notification dispatched",
		zap.Int("channels", len(results)),
		zap.Int("failed", failed))
}
