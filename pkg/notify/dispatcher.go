package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"domainwatch/pkg/domain"
	"domainwatch/pkg/logger"
	"domainwatch/pkg/metrics"

	"go.uber.org/zap"
)

// Dispatcher fans a notification out to channels through the Sender
// registered for each channel type.
type Dispatcher struct {
	senders map[domain.ChannelType]Sender
}

// NewDispatcher creates a Dispatcher. Channels whose type has no sender fail
// with an "unsupported channel type" result.
func NewDispatcher(senders map[domain.ChannelType]Sender) *Dispatcher {
	return &Dispatcher{senders: senders}
}

// Dispatch builds the message of type t about d as of now and delivers it on
// every channel, one at a time. now must be the instant eligibility was
// decided at, so days left in the text match t. It returns one Result per
// channel in input order.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	dom domain.Domain,
	t domain.NotificationType,
	now time.Time,
	channels []domain.Channel,
) (Message, []Result) {
	msg := BuildMessage(dom, t, now)
	results := make([]Result, 0, len(channels))

	for _, ch := range channels {
		res := Result{ChannelID: ch.ID, Channel: ch.Type, Success: true}
		if err := d.send(ctx, ch, msg); err != nil {
			res.Success = false
			res.ErrorDetail = detail(err)
			logger.Warn(ctx, "notification delivery failed",
				zap.String("domain", dom.Name),
				zap.String("notification_type", string(t)),
				zap.String("channel_type", string(ch.Type)),
				zap.String("channel_id", ch.ID.String()),
				zap.String("detail", res.ErrorDetail))
			metrics.NotificationsTotal.WithLabelValues(string(ch.Type), "failure").Inc()
		} else {
			logger.Info(ctx, "notification delivered",
				zap.String("domain", dom.Name),
				zap.String("notification_type", string(t)),
				zap.String("channel_type", string(ch.Type)))
			metrics.NotificationsTotal.WithLabelValues(string(ch.Type), "success").Inc()
		}
		results = append(results, res)
	}

	return msg, results
}

// send isolates a channel: a panicking sender counts as a failed delivery.
func (d *Dispatcher) send(ctx context.Context, ch domain.Channel, msg Message) (err error) {
	sender, ok := d.senders[ch.Type]
	if !ok {
		return &DeliveryError{Channel: ch.Type, Detail: fmt.Sprintf("unsupported channel type %q", ch.Type)}
	}

	defer func() {
		if r := recover(); r != nil {
			err = &DeliveryError{Channel: ch.Type, Detail: fmt.Sprintf("sender panicked: %v", r)}
		}
	}()

	return sender.Send(ctx, ch, msg)
}

func detail(err error) string {
	var dErr *DeliveryError
	if errors.As(err, &dErr) {
		return Truncate(dErr.Error(), 2*maxDetail)
	}

	return Truncate(Redact(err.Error()), 2*maxDetail)
}
