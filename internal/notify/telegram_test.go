package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *TelegramClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewTelegramClient("test-token", time.Second, zerolog.Nop())
	client.baseURL = srv.URL
	return client
}

func TestSendOTPPayload(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	})

	ok := client.SendOTP(context.Background(), 12345, "654321")
	require.True(t, ok)

	assert.Equal(t, "/bottest-token/sendMessage", gotPath)
	assert.Equal(t, float64(12345), gotBody["chat_id"])
	assert.Contains(t, gotBody["text"], "654321")
	assert.Equal(t, "HTML", gotBody["parse_mode"])
}

func TestSendLoginAlertTruncatesUserAgent(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	})

	longUA := ""
	for i := 0; i < 20; i++ {
		longUA += "Mozilla/5.0"
	}

	ok := client.SendLoginAlert(context.Background(), 1, "10.0.0.1", longUA)
	require.True(t, ok)

	text, _ := gotBody["text"].(string)
	assert.Contains(t, text, "10.0.0.1")
	assert.NotContains(t, text, longUA, "user agent must be truncated")
}

func TestSendReportsRejection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	assert.False(t, client.SendOTP(context.Background(), 1, "123456"))
}

func TestSendReportsConnectionFailure(t *testing.T) {
	client := NewTelegramClient("test-token", time.Second, zerolog.Nop())
	client.baseURL = "http://127.0.0.1:1" // nothing listens here

	assert.False(t, client.SendOTP(context.Background(), 1, "123456"))
}
