package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"whalewatch/clients/notifier"
	"whalewatch/config"

	"go.uber.org/zap"
)

var errNotConfigured = errors.New("telegram not configured")

// TelegramClient sends alerts to a Telegram chat as HTML messages.
// Implements notifier.Notifier interface.
type TelegramClient struct {
	logger      *zap.Logger
	botToken    string
	chatID      string
	baseURL     string
	maxAttempts int
	retryDelay  time.Duration
	client      *http.Client
}

func NewTelegramClient(logger *zap.Logger, cfg *config.Config) *TelegramClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	tc := &TelegramClient{
		logger:      logger,
		botToken:    cfg.Telegram.BotToken,
		chatID:      cfg.Telegram.ChatID,
		baseURL:     strings.TrimRight(cfg.Telegram.APIURL, "/"),
		maxAttempts: max(cfg.Telegram.MaxAttempts, 1),
		retryDelay:  cfg.Telegram.RetryDelay,
		client:      &http.Client{Timeout: 10 * time.Second},
	}

	if tc.botToken == "" {
		logger.Warn("TELEGRAM_BOT_TOKEN not set, Telegram alerts disabled")
		return tc
	}

	logger.Info("telegram bot initialized", zap.String("chatID", tc.chatID))
	return tc
}

// SendInsiderAlert implements notifier.Notifier interface.
func (tc *TelegramClient) SendInsiderAlert(ctx context.Context, alert notifier.InsiderAlert) error {
	if err := tc.sendMessage(ctx, buildInsiderMessage(alert)); err != nil {
		return fmt.Errorf("telegram insider alert: %w", err)
	}

	tc.logger.Info("sent telegram insider alert",
		zap.String("wallet", alert.Trade.Wallet),
		zap.Int("priority", alert.Priority),
	)
	return nil
}

// SendCashout implements notifier.Notifier interface.
func (tc *TelegramClient) SendCashout(ctx context.Context, alert notifier.CashoutAlert) error {
	if err := tc.sendMessage(ctx, buildCashoutMessage(alert)); err != nil {
		return fmt.Errorf("telegram cashout: %w", err)
	}

	tc.logger.Info("sent telegram cashout alert", zap.String("wallet", alert.Wallet))
	return nil
}

// SendText sends a preformatted HTML message.
func (tc *TelegramClient) SendText(ctx context.Context, text string) error {
	if err := tc.sendMessage(ctx, text); err != nil {
		return fmt.Errorf("telegram text: %w", err)
	}
	return nil
}

func buildInsiderMessage(alert notifier.InsiderAlert) string {
	t := alert.Trade
	esc := html.EscapeString

	lines := []string{
		"<b>" + notifier.Header(alert.Tier) + "</b>",
		"",
		"<b>" + esc(notifier.TruncateTitle(alert.Title())) + "</b>",
		"",
		fmt.Sprintf("🟢 <b>%s</b> → <b>%s</b> @ %s",
			notifier.USD(t.Amount()), esc(outcomeOrDefault(t.Outcome)), notifier.Percent(t.Probability())),
		"",
		"━━━━ <b>🎯 SIGNALS</b> ━━━━",
	}

	for _, sig := range alert.Signals.Signals() {
		lines = append(lines, "   "+esc(notifier.SignalDetail(alert, sig)))
	}
	lines = append(lines,
		fmt.Sprintf("   📍 Reliability: <b>%s</b>", alert.Tier),
		fmt.Sprintf("   ⭐ Priority: <b>%d</b>", alert.Priority),
		"",
		"━━━━ <b>📊 MARKET</b> ━━━━",
		"   Volume: "+notifier.USD(alert.Market.TotalVolume),
		"   Liquidity: "+notifier.USD(alert.Market.Liquidity),
	)
	if alert.VolumeShare > 0 {
		lines = append(lines, "   This trade/Volume: "+notifier.Percent(alert.VolumeShare))
	}

	lines = append(lines, "", "━━━━ <b>👛 WALLET</b> ━━━━", walletLine(alert.Profile.Address, t.Wallet))
	p := alert.Profile
	if age, ok := p.EffectiveAgeDays().Get(); ok {
		lines = append(lines, fmt.Sprintf("   Age: %d days%s", age, notifier.AgeWarning(alert, age)))
	}
	if n, ok := p.RealTradeCount.Get(); ok {
		lines = append(lines, fmt.Sprintf("   Trades: %d%s", n, notifier.TradeCountWarning(alert, n)))
	}
	if pnl, ok := p.LifetimePnl.Get(); ok {
		lines = append(lines, fmt.Sprintf("   PnL: %s %s", notifier.SignEmoji(pnl), notifier.USD(pnl)))
		if roi, ok := p.ROI().Get(); ok {
			emoji := "📈"
			if roi < 0 {
				emoji = "📉"
			}
			lines = append(lines, fmt.Sprintf("   ROI: %s %s", emoji, notifier.Percent(roi)))
		}
	}
	if p.FirstTradeDate != "" {
		lines = append(lines, "   First trade: "+esc(p.FirstTradeDate))
	}

	if link := linkLine(alert.LinkSlug()); link != "" {
		lines = append(lines, "", link)
	}

	return strings.Join(lines, "\n")
}

func buildCashoutMessage(alert notifier.CashoutAlert) string {
	esc := html.EscapeString
	profit := alert.Profit.InexactFloat64()
	title := alert.Title
	if title == "" {
		title = "Unknown"
	}

	lines := []string{
		"💰💰 <b>CASHOUT DETECTED</b> 💰💰",
		"",
		"<b>" + esc(notifier.TruncateTitle(title)) + "</b>",
		"",
		fmt.Sprintf("🔴 <b>%s</b> ← <b>%s SELL</b>", notifier.USD(alert.CloseAmount), esc(alert.Outcome)),
		"",
		"━━━━ <b>📊 TRADE DETAIL</b> ━━━━",
		fmt.Sprintf("   Buy: %s @ %s", notifier.USD(alert.OpenAmount), notifier.Percent(alert.OpenPrice*100)),
		fmt.Sprintf("   Sell: %s @ %s", notifier.USD(alert.CloseAmount), notifier.Percent(alert.ClosePrice*100)),
		fmt.Sprintf("   %s Profit/Loss: %s (%s)", notifier.SignEmoji(profit), notifier.USD(profit),
			notifier.Percent(alert.ProfitPct.InexactFloat64())),
		"",
		"━━━━ <b>👛 WALLET</b> ━━━━",
		walletLine(alert.Wallet, ""),
	}

	if pnl, ok := alert.TotalPnl.Get(); ok {
		lines = append(lines, fmt.Sprintf("   Total PnL: %s %s", notifier.SignEmoji(pnl), notifier.USD(pnl)))
	}

	if link := linkLine(alert.LinkSlug); link != "" {
		lines = append(lines, "", link)
	}

	return strings.Join(lines, "\n")
}

func walletLine(addr, fallback string) string {
	if addr == "" {
		addr = fallback
	}
	return "   <code>" + html.EscapeString(notifier.ShortAddress(addr)) + "</code>"
}

func linkLine(slug string) string {
	u := notifier.EventURL(slug)
	if u == "" {
		return ""
	}
	return fmt.Sprintf("🔗 <a href='%s'>Polymarket</a>", html.EscapeString(u))
}

func outcomeOrDefault(outcome string) string {
	if outcome == "" {
		return "Yes"
	}
	return outcome
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// sendMessage posts text, retrying failed attempts after retryDelay.
func (tc *TelegramClient) sendMessage(ctx context.Context, text string) error {
	if tc.botToken == "" || tc.chatID == "" {
		return errNotConfigured
	}

	var lastErr error
	for attempt := 1; attempt <= tc.maxAttempts; attempt++ {
		lastErr = tc.post(ctx, text)
		if lastErr == nil {
			return nil
		}

		tc.logger.Warn("telegram send failed",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", tc.maxAttempts),
			zap.Error(lastErr),
		)

		if attempt == tc.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(tc.retryDelay):
		}
	}

	return fmt.Errorf("after %d attempts: %w", tc.maxAttempts, lastErr)
}

func (tc *TelegramClient) post(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", tc.baseURL, tc.botToken)

	payload := map[string]interface{}{
		"chat_id":                  tc.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", stripURL(err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", stripURL(err))
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	var result sendMessageResponse
	if err := json.Unmarshal(respBody, &result); err == nil && !result.OK {
		return fmt.Errorf("telegram API rejected message: %s", result.Description)
	}

	return nil
}

// stripURL drops the request URL, which carries the bot token, from
// transport errors so they can be logged.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

// Close cleans up resources. Implements notifier.Notifier interface.
func (tc *TelegramClient) Close() error {
	return nil
}
