package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/swiftsig/internal/notifier"
)

const defaultAPIURL = "https://api.telegram.org"

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	apiURL   string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiURL:   defaultAPIURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Init(cfg notifier.Config) error {
	if token, ok := cfg.Params["bot_token"].(string); ok {
		t.botToken = token
	}
	if chatID, ok := cfg.Params["chat_id"].(string); ok {
		t.chatID = chatID
	}
	if apiURL, ok := cfg.Params["api_url"].(string); ok && apiURL != "" {
		t.apiURL = strings.TrimRight(apiURL, "/")
	}
	if t.apiURL == "" {
		t.apiURL = defaultAPIURL
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}

	if t.botToken == "" {
		return fmt.Errorf("telegram: bot_token is required")
	}
	if t.chatID == "" {
		return fmt.Errorf("telegram: chat_id is required")
	}

	return nil
}

func (t *Telegram) Notify(ctx context.Context, report notifier.Report) error {
	return t.sendMessage(ctx, formatReport(report))
}

func (t *Telegram) NotifyBatch(ctx context.Context, reports []notifier.Report) error {
	if len(reports) == 0 {
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 *%d Backtests*\n\n", len(reports))

	for i, r := range reports {
		sb.WriteString(formatReport(r))
		if i < len(reports)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return t.sendMessage(ctx, sb.String())
}

func formatReport(r notifier.Report) string {
	var sb strings.Builder

	if r.Failed() {
		fmt.Fprintf(&sb, "⚠️ *%s* %s failed\n", r.Pair, r.Strategy)
		fmt.Fprintf(&sb, "💥 %s", r.Error)
		return sb.String()
	}

	emoji := "📈"
	if r.Metrics.TotalPips < 0 {
		emoji = "📉"
	}

	fmt.Fprintf(&sb, "%s *%s* %s", emoji, r.Pair, r.Strategy)
	if r.Interval != "" {
		fmt.Fprintf(&sb, " (%s)", r.Interval)
	}
	sb.WriteString("\n")
	if !r.Start.IsZero() {
		fmt.Fprintf(&sb, "🗓 %s to %s\n", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	}

	m := r.Metrics
	fmt.Fprintf(&sb, "🎯 Trades: %d (%dW/%dL), win rate %.1f%%\n", m.TotalTrades, m.Wins, m.Losses, m.WinRate*100)
	fmt.Fprintf(&sb, "💰 Pips: %+.1f, return %+.2f%%\n", m.TotalPips, m.TotalReturnPct)

	pf := fmt.Sprintf("%.2f", m.ProfitFactor)
	if m.ProfitFactorInfinite() {
		pf = "∞"
	}
	fmt.Fprintf(&sb, "📐 Profit factor: %s, max DD %.1f pips", pf, m.MaxDrawdownPips)

	if r.Skipped > 0 {
		fmt.Fprintf(&sb, "\n⏭ Skipped signals: %d", r.Skipped)
	}
	for _, a := range r.Alerts {
		fmt.Fprintf(&sb, "\n🚨 %s", a)
	}

	return sb.String()
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
