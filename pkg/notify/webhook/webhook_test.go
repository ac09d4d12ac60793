package webhook_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"domainwatch/pkg/domain"
	"domainwatch/pkg/notify"
	"domainwatch/pkg/notify/webhook"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// rtFunc allows using a function as an http.RoundTripper.
type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func message() notify.Message {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	exp := now.Add(7 * 24 * time.Hour)

	return notify.BuildMessage(domain.Domain{
		Name:           "example.com",
		ExpirationDate: &exp,
		Status:         domain.StatusExpiringSoon,
	}, domain.ExpiringIn(7), now)
}

func TestPayloadJSON(t *testing.T) {
	body, contentType, err := webhook.Payload("", message())
	require.NoError(t, err)
	require.Equal(t, "application/json", contentType)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	require.Equal(t, "expiring_in_7_days", got["event"])
	require.Equal(t, "2025-03-01T09:00:00Z", got["sent_at"])
	require.Contains(t, got["message"], "example.com expires in 7 days")

	data, ok := got["data"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "example.com", data["domain"])
	require.EqualValues(t, 7, data["days_left"])
}

func TestPayloadSlack(t *testing.T) {
	body, _, err := webhook.Payload(domain.FormatSlack, message())
	require.NoError(t, err)

	var got struct {
		Text        string `json:"text"`
		Attachments []struct {
			Color  string `json:"color"`
			Fields []struct {
				Title string `json:"title"`
				Value string `json:"value"`
			} `json:"fields"`
		} `json:"attachments"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	require.Contains(t, got.Text, "example.com expires in 7 days")
	require.Len(t, got.Attachments, 1)
	require.Equal(t, "#ff9800", got.Attachments[0].Color)
	require.Equal(t, "Domain", got.Attachments[0].Fields[0].Title)
	require.Equal(t, "example.com", got.Attachments[0].Fields[0].Value)
}

func TestPayloadText(t *testing.T) {
	body, contentType, err := webhook.Payload(domain.FormatText, message())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(contentType, "text/plain"))
	require.Contains(t, string(body), "Days left: 7")

	_, _, err = webhook.Payload("xml", message())
	require.Error(t, err)
}

func TestSendSignsBody(t *testing.T) {
	var (
		gotBody []byte
		gotAuth string
	)
	delivery := notify.HTTPDelivery{
		Client: &http.Client{Transport: rtFunc(func(r *http.Request) (*http.Response, error) {
			gotBody, _ = io.ReadAll(r.Body)
			gotAuth = r.Header.Get("Authorization")
			require.Equal(t, "domainwatch-test", r.Header.Get("User-Agent"))

			return &http.Response{StatusCode: http.StatusNoContent, Body: http.NoBody}, nil
		})},
		Attempts: 1,
	}

	ch := domain.Channel{
		Type:   domain.ChannelWebhook,
		Config: map[string]string{webhook.SettingURL: "https://example.com/hook", webhook.SettingSigningSecret: "s3cret"},
	}
	require.NoError(t, webhook.New(delivery, "domainwatch-test").Send(context.Background(), ch, message()))

	require.True(t, strings.HasPrefix(gotAuth, "Bearer "))
	claims := &webhook.Claims{}
	_, err := jwt.ParseWithClaims(strings.TrimPrefix(gotAuth, "Bearer "), claims, func(*jwt.Token) (any, error) {
		return []byte("s3cret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)

	sum := sha256.Sum256(gotBody)
	require.Equal(t, hex.EncodeToString(sum[:]), claims.BodySHA256)
}

func TestSendWithoutURL(t *testing.T) {
	err := webhook.New(notify.HTTPDelivery{}, "").Send(context.Background(), domain.Channel{Type: domain.ChannelWebhook}, message())

	var dErr *notify.DeliveryError
	require.ErrorAs(t, err, &dErr)
	require.Equal(t, "no url configured", dErr.Detail)
}
