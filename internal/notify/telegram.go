package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramClient delivers OTP codes and security alerts through the
// Telegram Bot API. Delivery is fire-and-forget: failures are logged and
// reported as false, never as errors, so the enclosing operation still
// succeeds and the user can request a resend.
type TelegramClient struct {
	botToken string
	baseURL  string
	http     *http.Client
	log      zerolog.Logger
}

func NewTelegramClient(botToken string, timeout time.Duration, log zerolog.Logger) *TelegramClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &TelegramClient{
		botToken: botToken,
		baseURL:  telegramAPIBase,
		http:     &http.Client{Timeout: timeout},
		log:      log.With().Str("component", "telegram").Logger(),
	}
}

func (c *TelegramClient) SendOTP(ctx context.Context, chatID int64, code string) bool {
	text := fmt.Sprintf(
		"🔐 Verification code: <b>%s</b>\n\n⏰ The code is valid for 5 minutes.\n⚠️ Never share this code with anyone!",
		code,
	)
	return c.send(ctx, chatID, text)
}

func (c *TelegramClient) SendLoginAlert(ctx context.Context, chatID int64, ip, userAgent string) bool {
	if len(userAgent) > 50 {
		userAgent = userAgent[:50]
	}
	text := fmt.Sprintf(
		"🔔 <b>New login</b>\n\n📍 IP: %s\n📱 Device: %s\n\nIf this wasn't you, secure your account immediately!",
		ip, userAgent,
	)
	return c.send(ctx, chatID, text)
}

func (c *TelegramClient) send(ctx context.Context, chatID int64, text string) bool {
	payload, err := json.Marshal(map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		c.log.Error().Err(err).Msg("marshal telegram payload")
		return false
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		c.log.Error().Err(err).Msg("build telegram request")
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Int64("chat_id", chatID).Msg("telegram send failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Error().Int("status", resp.StatusCode).Int64("chat_id", chatID).Msg("telegram send rejected")
		return false
	}
	return true
}
