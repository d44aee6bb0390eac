package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"meme-radar/internal/domain"
)

func sampleAlert() (*domain.Mention, *domain.Enrichment) {
	cap := 1500000.0
	return &domain.Mention{
			Platform:     "reddit",
			Coin:         "DOGE",
			Chain:        "ethereum",
			MentionCount: 12,
			Timestamp:    1700000000000,
		}, &domain.Enrichment{
			Coin:            "DOGE",
			Chain:           "ethereum",
			ContractAddress: "0x1234567890abcdef1234567890abcdef12345678",
			MarketCapUSD:    &cap,
			Verification:    domain.VerificationVerified,
			Timestamp:       1700000000000,
		}
}

func TestTelegram_SendAlert(t *testing.T) {
	var got sendMessageRequest
	var path string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Decode request failed: %v", err)
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	tg, err := NewTelegram(TelegramOptions{
		Token:      "test-token",
		ChatID:     42,
		APIBaseURL: srv.URL,
		HTTPClient: srv.Client(),
		Logger:     zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewTelegram failed: %v", err)
	}

	mention, enrichment := sampleAlert()
	if err := tg.SendAlert(context.Background(), mention, enrichment); err != nil {
		t.Fatalf("SendAlert failed: %v", err)
	}

	if path != "/bottest-token/sendMessage" {
		t.Errorf("Unexpected path: %s", path)
	}
	if got.ChatID != 42 {
		t.Errorf("ChatID mismatch: got %d", got.ChatID)
	}
	if !strings.Contains(got.Text, "DOGE") || !strings.Contains(got.Text, "Mentions: 12") {
		t.Errorf("Alert text missing fields: %q", got.Text)
	}
	if !strings.Contains(got.Text, "(Verified)") {
		t.Errorf("Expected verification annotation in: %q", got.Text)
	}

	if got.ReplyMarkup == nil || len(got.ReplyMarkup.InlineKeyboard) != 1 {
		t.Fatalf("Expected one inline keyboard row, got %+v", got.ReplyMarkup)
	}
	button := got.ReplyMarkup.InlineKeyboard[0][0]
	if button.URL != "https://www.coingecko.com/en/coins/doge" {
		t.Errorf("Button URL mismatch: %s", button.URL)
	}
}

func TestTelegram_ServerErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"ok": false, "description": "bot was blocked"}`))
	}))
	defer srv.Close()

	tg, err := NewTelegram(TelegramOptions{
		Token:      "test-token",
		ChatID:     42,
		APIBaseURL: srv.URL,
		HTTPClient: srv.Client(),
		Logger:     zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewTelegram failed: %v", err)
	}

	mention, enrichment := sampleAlert()
	err = tg.SendAlert(context.Background(), mention, enrichment)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("Expected status error, got %v", err)
	}
}

func TestTelegram_RequiredOptions(t *testing.T) {
	if _, err := NewTelegram(TelegramOptions{ChatID: 42}); err == nil {
		t.Error("Expected error for missing token")
	}
	if _, err := NewTelegram(TelegramOptions{Token: "x"}); err == nil {
		t.Error("Expected error for missing chat id")
	}
}
