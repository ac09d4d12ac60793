package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"domainwatch/pkg/domain"
	"domainwatch/pkg/logger"

	"github.com/codeGROOVE-dev/retry"
	"go.uber.org/zap"
)

// maxDetail caps response bodies kept in errors and logs.
const maxDetail = 200

// HTTPDelivery posts requests for HTTP based channels, retrying transport
// failures, 429 and 5xx answers. Other 4xx answers fail at once.
type HTTPDelivery struct {
	Client   *http.Client
	Attempts uint
	Delay    time.Duration
}

// Do sends the request built by newRequest. target is only used for logging
// and is masked first.
func (h HTTPDelivery) Do(
	ctx context.Context,
	channel domain.ChannelType,
	target string,
	newRequest func(ctx context.Context) (*http.Request, error),
) error {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	attempts := h.Attempts
	if attempts == 0 {
		attempts = 1
	}
	ctx = logger.WithFields(ctx, zap.String("channel", string(channel)), zap.String("target", MaskURL(target)))

	err := retry.Do(
		func() error {
			req, err := newRequest(ctx)
			if err != nil {
				return retry.Unrecoverable(&DeliveryError{
					Channel: channel,
					Detail:  "could not build request",
					Err:     errors.New(Redact(err.Error())),
				})
			}

			resp, err := client.Do(req)
			if err != nil {
				// The raw error may carry the URL.
				return &DeliveryError{Channel: channel, Detail: "request failed", Err: errors.New(Redact(err.Error()))}
			}
			defer func() {
				_ = resp.Body.Close()
			}()

			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*maxDetail))
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}

			dErr := &DeliveryError{
				Channel:    channel,
				StatusCode: resp.StatusCode,
				Detail:     Truncate(strings.TrimSpace(string(body)), maxDetail),
			}
			if !dErr.Temporary() {
				return retry.Unrecoverable(dErr)
			}

			return dErr
		},
		retry.Attempts(attempts),
		retry.Delay(h.Delay),
		retry.MaxDelay(30*time.Second),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn(ctx, "delivery failed, retrying", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err == nil {
		return nil
	}

	var dErr *DeliveryError
	if errors.As(err, &dErr) {
		return dErr
	}

	return &DeliveryError{Channel: channel, Detail: Truncate(Redact(err.Error()), maxDetail), Err: err}
}

// Redact masks every URL inside s. *url.Error embeds the full request URL,
// so error strings go through it before they are logged or stored.
func Redact(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		trimmed := strings.Trim(f, `"':,`)
		if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
			fields[i] = strings.Replace(f, trimmed, MaskURL(trimmed), 1)
		}
	}

	return strings.Join(fields, " ")
}
