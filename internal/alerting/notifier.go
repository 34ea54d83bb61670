package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Notification describes a note trading below its cash-surrender value.
type Notification struct {
	AsOf               time.Time
	Symbol             string
	Name               string
	MarketPrice        decimal.Decimal
	IndexValue         decimal.Decimal
	CashSurrenderValue decimal.Decimal
	Discount           decimal.Decimal
	DiscountPct        decimal.Decimal
	ThresholdPct       decimal.Decimal
	DownsideProtection decimal.NullDecimal
	AdditionalMsg      string
}

// Notifier delivers discount alerts.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier posts alerts through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls sendMessage with the rendered alert.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram responded with status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Str("symbol", note.Symbol).
		Str("discount_pct", note.DiscountPct.String()).
		Msg("discount alert sent (Telegram)")
	return nil
}

// ShouldAlert reports whether a discount fraction reaches the threshold.
// A zero threshold disables alerting.
func ShouldAlert(discountPct, threshold decimal.Decimal) bool {
	if !threshold.IsPositive() {
		return false
	}
	return discountPct.GreaterThanOrEqual(threshold)
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	label := note.Symbol
	if note.Name != "" {
		label = fmt.Sprintf("%s (%s)", note.Name, note.Symbol)
	}
	builder.WriteString(fmt.Sprintf("[Note Discount Alert] %s\n", label))
	builder.WriteString(fmt.Sprintf("As of: %s UTC\n", note.AsOf.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Market price: %s\n", note.MarketPrice.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Index value: %s\n", note.IndexValue.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Cash-surrender value: %s\n", note.CashSurrenderValue.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Discount: %s (%s%% of market, threshold %s%%)\n",
		note.Discount.StringFixed(2),
		note.DiscountPct.Mul(decimal.NewFromInt(100)).StringFixed(1),
		note.ThresholdPct.Mul(decimal.NewFromInt(100)).StringFixed(1)))
	if note.DownsideProtection.Valid {
		builder.WriteString(fmt.Sprintf("Downside protection: %s%%\n",
			note.DownsideProtection.Decimal.Mul(decimal.NewFromInt(100)).StringFixed(1)))
	}
	if note.AdditionalMsg != "" {
		builder.WriteString(note.AdditionalMsg)
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
