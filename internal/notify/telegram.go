package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"meme-radar/internal/domain"
)

// DefaultAPIBaseURL is the Telegram Bot API endpoint.
const DefaultAPIBaseURL = "https://api.telegram.org"

// TelegramOptions configures a Telegram notifier.
type TelegramOptions struct {
	Token  string
	ChatID int64

	APIBaseURL string // override for tests
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Telegram sends coin alerts via the Bot API sendMessage method, with an
// inline keyboard button linking the coin's CoinGecko page.
type Telegram struct {
	token   string
	chatID  int64
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(opts TelegramOptions) (*Telegram, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("notify: telegram token is required")
	}
	if opts.ChatID == 0 {
		return nil, fmt.Errorf("notify: telegram chat id is required")
	}
	baseURL := opts.APIBaseURL
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	return &Telegram{
		token:   opts.Token,
		chatID:  opts.ChatID,
		baseURL: baseURL,
		client:  client,
		logger:  opts.Logger,
	}, nil
}

// Compile-time interface check.
var _ Notifier = (*Telegram)(nil)

// sendMessageRequest mirrors the Bot API sendMessage payload.
type sendMessageRequest struct {
	ChatID      int64        `json:"chat_id"`
	Text        string       `json:"text"`
	ReplyMarkup *replyMarkup `json:"reply_markup,omitempty"`
}

type replyMarkup struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type inlineButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// SendAlert posts one coin alert to the configured chat.
func (t *Telegram) SendAlert(ctx context.Context, mention *domain.Mention, enrichment *domain.Enrichment) error {
	payload := sendMessageRequest{
		ChatID: t.chatID,
		Text:   alertText(mention, enrichment),
		ReplyMarkup: &replyMarkup{
			InlineKeyboard: [][]inlineButton{{{
				Text: fmt.Sprintf("%s on CoinGecko", mention.Coin),
				URL:  fmt.Sprintf("https://www.coingecko.com/en/coins/%s", strings.ToLower(mention.Coin)),
			}}},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	t.logger.Debug().Str("coin", mention.Coin).Msg("telegram alert sent")
	return nil
}

// alertText renders the alert body.
func alertText(mention *domain.Mention, enrichment *domain.Enrichment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trending meme coin: %s\n", mention.Coin)
	fmt.Fprintf(&b, "Platform: %s\n", mention.Platform)
	fmt.Fprintf(&b, "Mentions: %d\n", mention.MentionCount)
	fmt.Fprintf(&b, "Chain: %s\n", enrichment.Chain)
	fmt.Fprintf(&b, "Market cap: %s\n", formatUSD(enrichment.MarketCapUSD))
	fmt.Fprintf(&b, "Liquidity: %s", formatUSD(enrichment.LiquidityUSD))
	if enrichment.Verification == domain.VerificationVerified {
		b.WriteString(" (Verified)")
	} else if enrichment.Verification == domain.VerificationUnverified {
		b.WriteString(" (Unverified)")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Contract: %s\n", enrichment.ContractAddress)
	fmt.Fprintf(&b, "Time: %s", time.UnixMilli(mention.Timestamp).UTC().Format(time.RFC3339))
	return b.String()
}

// formatUSD renders a nullable USD amount.
func formatUSD(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("$%.2f", *v)
}
