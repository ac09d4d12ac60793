// Package telegram delivers notifications through a Telegram bot.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"domainwatch/pkg/domain"
	"domainwatch/pkg/logger"
	"domainwatch/pkg/notify"

	"github.com/codeGROOVE-dev/retry"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Channel configuration keys.
const (
	SettingBotToken = "bot_token"
	SettingChatID   = "chat_id"
)

// maxText stays below Telegram's 4096 character limit.
const maxText = 3800

// Bot is the part of *tgbotapi.BotAPI the sender uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// BotFactory creates a Bot for a token.
type BotFactory func(token string) (Bot, error)

// NewBotFactory returns a BotFactory for the public Bot API using httpClient.
func NewBotFactory(httpClient *http.Client) BotFactory {
	return func(token string) (Bot, error) {
		return tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient)
	}
}

// Sender posts notifications to Telegram chats. Bots are created once per
// token.
type Sender struct {
	factory  BotFactory
	attempts uint
	delay    time.Duration

	mu   sync.Mutex
	bots map[string]Bot
}

// New creates a Sender.
func New(factory BotFactory, attempts uint, delay time.Duration) *Sender {
	if attempts == 0 {
		attempts = 1
	}

	return &Sender{factory: factory, attempts: attempts, delay: delay, bots: make(map[string]Bot)}
}

var _ notify.Sender = (*Sender)(nil)

// Send implements notify.Sender.
func (s *Sender) Send(ctx context.Context, ch domain.Channel, msg notify.Message) error {
	token := ch.Setting(SettingBotToken)
	chatID, err := strconv.ParseInt(ch.Setting(SettingChatID), 10, 64)
	if token == "" || err != nil {
		return &notify.DeliveryError{Channel: domain.ChannelTelegram, Detail: "bot token or chat id missing"}
	}

	bot, err := s.bot(token)
	if err != nil {
		return deliveryError(err)
	}

	parts := Split(msg.Text(), maxText)
	for i, part := range parts {
		if len(parts) > 1 {
			part = fmt.Sprintf("(%d/%d)\n%s", i+1, len(parts), part)
		}
		cfg := tgbotapi.NewMessage(chatID, part)
		cfg.DisableWebPagePreview = true

		err := retry.Do(
			func() error {
				_, err := bot.Send(cfg)
				if err == nil {
					return nil
				}
				dErr := deliveryError(err)
				if !dErr.Temporary() {
					return retry.Unrecoverable(dErr)
				}

				return dErr
			},
			retry.Attempts(s.attempts),
			retry.Delay(s.delay),
			retry.Context(ctx),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				logger.Warn(ctx, "telegram delivery failed, retrying", zap.Uint("attempt", n+1), zap.Error(err))
			}),
		)
		if err != nil {
			var dErr *notify.DeliveryError
			if errors.As(err, &dErr) {
				return dErr
			}

			return deliveryError(err)
		}
	}

	return nil
}

func (s *Sender) bot(token string) (Bot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.bots[token]; ok {
		return b, nil
	}
	b, err := s.factory(token)
	if err != nil {
		return nil, err
	}
	s.bots[token] = b

	return b, nil
}

// deliveryError maps Bot API failures. Transport errors carry the request
// URL, which holds the token, so the text is redacted.
func deliveryError(err error) *notify.DeliveryError {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return &notify.DeliveryError{
			Channel:    domain.ChannelTelegram,
			StatusCode: apiErr.Code,
			Detail:     notify.Truncate(apiErr.Message, 200),
		}
	}

	return &notify.DeliveryError{Channel: domain.ChannelTelegram, Detail: notify.Truncate(notify.Redact(err.Error()), 200)}
}

// Split cuts text into parts of at most limit bytes, preferring line breaks,
// then spaces. Without either a part ends on a rune boundary.
func Split(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return []string{text}
	}

	var parts []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut < limit/3 {
			cut = strings.LastIndex(text[:limit], " ")
		}
		if cut <= 0 {
			cut = runeCut(text, limit)
		}
		if part := strings.TrimSpace(text[:cut]); part != "" {
			parts = append(parts, part)
		}
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		parts = append(parts, text)
	}

	return parts
}

// runeCut is the largest cut at or below limit that does not split a rune,
// and at least one whole rune.
func runeCut(text string, limit int) int {
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if cut == 0 {
		_, cut = utf8.DecodeRuneInString(text)
	}

	return cut
}
