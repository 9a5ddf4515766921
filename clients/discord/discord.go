package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"whalewatch/clients/notifier"
	"whalewatch/config"
	"whalewatch/internal/detector"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

var errNoSession = errors.New("discord session not initialized")

const (
	colorUrgent   = 0xE74C3C
	colorReliable = 0xE67E22
	colorMedium   = 0xF1C40F
	colorLow      = 0x95A5A6
	colorProfit   = 0x2ECC71
	colorLoss     = 0xC0392B
)

// DiscordClient sends alerts to a Discord channel as embeds.
// Implements notifier.Notifier interface.
type DiscordClient struct {
	logger      *zap.Logger
	session     *discordgo.Session
	channelID   string
	maxAttempts int
	retryDelay  time.Duration
}

func NewDiscordClient(logger *zap.Logger, cfg *config.Config) *DiscordClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	dc := &DiscordClient{
		logger:      logger,
		channelID:   cfg.Discord.ChannelID,
		maxAttempts: max(cfg.Discord.MaxAttempts, 1),
		retryDelay:  cfg.Discord.RetryDelay,
	}

	token := cfg.Discord.BotToken
	if token == "" {
		logger.Info("DISCORD_BOT_TOKEN not set, Discord alerts disabled")
		return dc
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		logger.Error("failed to create discord session", zap.Error(err))
		return dc
	}
	dc.session = session

	logger.Info("discord bot initialized", zap.String("channelID", dc.channelID))
	return dc
}

// SendText sends a plain text message. HTML tags used by the Telegram
// formatting are stripped.
func (dc *DiscordClient) SendText(ctx context.Context, text string) error {
	if dc.session == nil {
		return errNoSession
	}

	err := dc.withRetry(ctx, func() error {
		_, err := dc.session.ChannelMessageSend(dc.channelID, stripTags(text), discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return fmt.Errorf("discord text: %w", err)
	}
	return nil
}

// SendInsiderAlert implements notifier.Notifier interface.
func (dc *DiscordClient) SendInsiderAlert(ctx context.Context, alert notifier.InsiderAlert) error {
	if dc.session == nil {
		return errNoSession
	}

	embed := buildInsiderEmbed(alert)
	err := dc.withRetry(ctx, func() error {
		_, err := dc.session.ChannelMessageSendEmbed(dc.channelID, embed, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return fmt.Errorf("discord insider alert: %w", err)
	}

	dc.logger.Info("sent discord insider alert",
		zap.String("wallet", alert.Trade.Wallet),
		zap.Int("priority", alert.Priority),
	)
	return nil
}

// SendCashout implements notifier.Notifier interface.
func (dc *DiscordClient) SendCashout(ctx context.Context, alert notifier.CashoutAlert) error {
	if dc.session == nil {
		return errNoSession
	}

	embed := buildCashoutEmbed(alert)
	err := dc.withRetry(ctx, func() error {
		_, err := dc.session.ChannelMessageSendEmbed(dc.channelID, embed, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return fmt.Errorf("discord cashout: %w", err)
	}

	dc.logger.Info("sent discord cashout alert", zap.String("wallet", alert.Wallet))
	return nil
}

// withRetry runs send up to maxAttempts times, waiting retryDelay between
// failed attempts.
func (dc *DiscordClient) withRetry(ctx context.Context, send func() error) error {
	var lastErr error
	for attempt := 1; attempt <= dc.maxAttempts; attempt++ {
		lastErr = send()
		if lastErr == nil {
			return nil
		}

		dc.logger.Warn("discord send failed",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", dc.maxAttempts),
			zap.Error(lastErr),
		)

		if attempt == dc.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dc.retryDelay):
		}
	}

	return fmt.Errorf("after %d attempts: %w", dc.maxAttempts, lastErr)
}

func buildInsiderEmbed(alert notifier.InsiderAlert) *discordgo.MessageEmbed {
	t := alert.Trade
	p := alert.Profile

	signals := make([]string, 0, alert.Signals.Len())
	for _, sig := range alert.Signals.Signals() {
		signals = append(signals, notifier.SignalDetail(alert, sig))
	}

	wallet := p.Address
	if wallet == "" {
		wallet = t.Wallet
	}
	walletLines := []string{"`" + notifier.ShortAddress(wallet) + "`"}
	if age, ok := p.EffectiveAgeDays().Get(); ok {
		walletLines = append(walletLines, fmt.Sprintf("Age: %d days%s", age, notifier.AgeWarning(alert, age)))
	}
	if n, ok := p.RealTradeCount.Get(); ok {
		walletLines = append(walletLines, fmt.Sprintf("Trades: %d%s", n, notifier.TradeCountWarning(alert, n)))
	}
	if pnl, ok := p.LifetimePnl.Get(); ok {
		walletLines = append(walletLines, fmt.Sprintf("PnL: %s %s", notifier.SignEmoji(pnl), notifier.USD(pnl)))
	}
	if roi, ok := p.ROI().Get(); ok {
		walletLines = append(walletLines, "ROI: "+notifier.Percent(roi))
	}
	if p.FirstTradeDate != "" {
		walletLines = append(walletLines, "First trade: "+p.FirstTradeDate)
	}

	marketLines := []string{
		"Volume: " + notifier.USD(alert.Market.TotalVolume),
		"Liquidity: " + notifier.USD(alert.Market.Liquidity),
	}
	if alert.VolumeShare > 0 {
		marketLines = append(marketLines, "This trade/Volume: "+notifier.Percent(alert.VolumeShare))
	}

	outcome := t.Outcome
	if outcome == "" {
		outcome = "Yes"
	}

	fields := []*discordgo.MessageEmbedField{
		{
			Name:   "Trade",
			Value:  fmt.Sprintf("🟢 %s → %s @ %s", notifier.USD(t.Amount()), outcome, notifier.Percent(t.Probability())),
			Inline: false,
		},
		{
			Name:   "Signals",
			Value:  strings.Join(signals, "\n"),
			Inline: false,
		},
		{
			Name:   "Reliability",
			Value:  alert.Tier.String(),
			Inline: true,
		},
		{
			Name:   "Priority",
			Value:  fmt.Sprintf("%d", alert.Priority),
			Inline: true,
		},
		{
			Name:   "Market",
			Value:  strings.Join(marketLines, "\n"),
			Inline: true,
		},
		{
			Name:   "Wallet",
			Value:  strings.Join(walletLines, "\n"),
			Inline: true,
		},
	}

	return &discordgo.MessageEmbed{
		Title:       notifier.Header(alert.Tier),
		URL:         notifier.EventURL(alert.LinkSlug()),
		Description: "**" + notifier.TruncateTitle(alert.Title()) + "**",
		Color:       tierColor(alert.Tier),
		Fields:      fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: "whalewatch"},
		Timestamp:   embedTimestamp(alert.Timestamp),
	}
}

func buildCashoutEmbed(alert notifier.CashoutAlert) *discordgo.MessageEmbed {
	profit := alert.Profit.InexactFloat64()
	color := colorProfit
	if profit < 0 {
		color = colorLoss
	}

	title := alert.Title
	if title == "" {
		title = "Unknown"
	}

	fields := []*discordgo.MessageEmbedField{
		{
			Name:   "Buy",
			Value:  fmt.Sprintf("%s @ %s", notifier.USD(alert.OpenAmount), notifier.Percent(alert.OpenPrice*100)),
			Inline: true,
		},
		{
			Name:   "Sell",
			Value:  fmt.Sprintf("%s @ %s", notifier.USD(alert.CloseAmount), notifier.Percent(alert.ClosePrice*100)),
			Inline: true,
		},
		{
			Name: "Profit/Loss",
			Value: fmt.Sprintf("%s %s (%s)", notifier.SignEmoji(profit), notifier.USD(profit),
				notifier.Percent(alert.ProfitPct.InexactFloat64())),
			Inline: true,
		},
		{
			Name:   "Wallet",
			Value:  "`" + notifier.ShortAddress(alert.Wallet) + "`",
			Inline: true,
		},
	}
	if pnl, ok := alert.TotalPnl.Get(); ok {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Total PnL",
			Value:  fmt.Sprintf("%s %s", notifier.SignEmoji(pnl), notifier.USD(pnl)),
			Inline: true,
		})
	}

	return &discordgo.MessageEmbed{
		Title:       "💰💰 CASHOUT DETECTED 💰💰",
		URL:         notifier.EventURL(alert.LinkSlug),
		Description: fmt.Sprintf("**%s**\n%s SELL", notifier.TruncateTitle(title), alert.Outcome),
		Color:       color,
		Fields:      fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: "whalewatch"},
		Timestamp:   embedTimestamp(alert.Timestamp),
	}
}

func tierColor(tier detector.Tier) int {
	switch tier {
	case detector.TierUrgent, detector.TierVeryReliable:
		return colorUrgent
	case detector.TierReliable:
		return colorReliable
	case detector.TierMedium:
		return colorMedium
	default:
		return colorLow
	}
}

func embedTimestamp(ts time.Time) string {
	if ts.IsZero() {
		ts = time.Now()
	}
	return ts.UTC().Format(time.RFC3339)
}

// stripTags drops <...> markup, leaving the text between tags.
func stripTags(s string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Close closes the Discord session.
func (dc *DiscordClient) Close() error {
	if dc.session != nil {
		return dc.session.Close()
	}
	return nil
}
