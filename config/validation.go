package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of config validation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Error joins all validation errors into one message.
func (r ValidationResult) Error() string {
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return strings.Join(parts, "; ")
}

// Validate checks the config for missing credentials and invalid values.
func (c *Config) Validate() ValidationResult {
	var errors []ValidationError

	errors = append(errors, validateTelegram(&c.Telegram)...)
	errors = append(errors, validateDiscord(&c.Discord)...)
	errors = append(errors, validateDetection(&c.Detection)...)
	errors = append(errors, validateMonitor(&c.Monitor)...)
	errors = append(errors, validateMarkets(&c.Markets)...)
	errors = append(errors, validatePositions(&c.Positions)...)
	errors = append(errors, validatePolymarket(&c.Polymarket)...)
	errors = append(errors, validateHealthServer(&c.HealthServer)...)

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

func validateTelegram(tg *TelegramConfig) []ValidationError {
	var errors []ValidationError

	if tg.BotToken == "" {
		errors = append(errors, ValidationError{
			Field:   "telegram.bot_token",
			Message: "TELEGRAM_BOT_TOKEN is required",
		})
	}

	if tg.ChatID == "" {
		errors = append(errors, ValidationError{
			Field:   "telegram.chat_id",
			Message: "TELEGRAM_CHAT_ID is required",
		})
	}

	if tg.APIURL == "" {
		errors = append(errors, ValidationError{
			Field:   "telegram.api_url",
			Message: "must not be empty",
		})
	}

	if tg.MaxAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "telegram.max_attempts",
			Message: "must be at least 1",
		})
	}

	if tg.RetryDelay < 0 {
		errors = append(errors, ValidationError{
			Field:   "telegram.retry_delay",
			Message: "must be non-negative",
		})
	}

	return errors
}

func validateDiscord(dc *DiscordConfig) []ValidationError {
	if dc.BotToken == "" {
		return nil
	}

	var errors []ValidationError

	if dc.ChannelID == "" {
		errors = append(errors, ValidationError{
			Field:   "discord.channel_id",
			Message: "required when DISCORD_BOT_TOKEN is set",
		})
	}

	if dc.MaxAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "discord.max_attempts",
			Message: "must be at least 1",
		})
	}

	if dc.RetryDelay < 0 {
		errors = append(errors, ValidationError{
			Field:   "discord.retry_delay",
			Message: "must be non-negative",
		})
	}

	return errors
}

func validateDetection(d *DetectionConfig) []ValidationError {
	var errors []ValidationError

	if d.MinTradeAmount < 0 {
		errors = append(errors, ValidationError{
			Field:   "detection.min_trade_amount",
			Message: "must be non-negative",
		})
	}

	if d.MaxWalletAgeDays < 0 {
		errors = append(errors, ValidationError{
			Field:   "detection.max_wallet_age_days",
			Message: "must be non-negative",
		})
	}

	if d.MaxTradeCount < 0 {
		errors = append(errors, ValidationError{
			Field:   "detection.max_trade_count",
			Message: "must be non-negative",
		})
	}

	if d.MaxLongshotProbability < 0 || d.MaxLongshotProbability > 100 {
		errors = append(errors, ValidationError{
			Field:   "detection.max_longshot_probability",
			Message: "must be between 0 and 100",
		})
	}

	if d.ObviousProbability <= 0 || d.ObviousProbability > 100 {
		errors = append(errors, ValidationError{
			Field:   "detection.obvious_probability",
			Message: "must be between 0 (exclusive) and 100",
		})
	} else if d.MaxLongshotProbability >= d.ObviousProbability {
		errors = append(errors, ValidationError{
			Field:   "detection.max_longshot_probability",
			Message: "must be below obvious_probability",
		})
	}

	if d.MinVolumePercentage < 0 || d.MinVolumePercentage > 100 {
		errors = append(errors, ValidationError{
			Field:   "detection.min_volume_percentage",
			Message: "must be between 0 and 100",
		})
	}

	if d.EndingSoonWindow <= 0 {
		errors = append(errors, ValidationError{
			Field:   "detection.ending_soon_window",
			Message: "must be positive",
		})
	}

	return errors
}

func validateMonitor(m *MonitorConfig) []ValidationError {
	var errors []ValidationError

	if m.PollInterval < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "monitor.poll_interval",
			Message: "must be at least 1 second",
		})
	}

	if m.ErrorBackoff <= 0 {
		errors = append(errors, ValidationError{
			Field:   "monitor.error_backoff",
			Message: "must be positive",
		})
	}

	positive := []struct {
		field string
		value int
	}{
		{"monitor.max_consecutive_errors", m.MaxConsecutiveErrors},
		{"monitor.batch_limit", m.BatchLimit},
		{"monitor.seed_limit", m.SeedLimit},
		{"monitor.fetch_attempts", m.FetchAttempts},
		{"monitor.enrich_concurrency", m.EnrichConcurrency},
		{"monitor.seen_keep_size", m.SeenKeepSize},
	}
	for _, p := range positive {
		if p.value < 1 {
			errors = append(errors, ValidationError{Field: p.field, Message: "must be at least 1"})
		}
	}

	if m.SeenMaxSize <= m.SeenKeepSize {
		errors = append(errors, ValidationError{
			Field:   "monitor.seen_max_size",
			Message: "must be greater than seen_keep_size",
		})
	}

	if m.FetchRetryDelay < 0 || m.AlertDelay < 0 {
		errors = append(errors, ValidationError{
			Field:   "monitor.delays",
			Message: "fetch_retry_delay and alert_delay must be non-negative",
		})
	}

	if m.SendTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "monitor.send_timeout",
			Message: "must be positive",
		})
	}

	return errors
}

func validateMarkets(m *MarketsConfig) []ValidationError {
	var errors []ValidationError

	if m.RefreshInterval < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "markets.refresh_interval",
			Message: "must be at least 1 second",
		})
	}

	if m.ListLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "markets.list_limit",
			Message: "must be at least 1",
		})
	}

	return errors
}

func validatePositions(p *PositionsConfig) []ValidationError {
	var errors []ValidationError

	if p.MaxEntries < 1 {
		errors = append(errors, ValidationError{
			Field:   "positions.max_entries",
			Message: "must be at least 1",
		})
	}

	if p.MaxAge <= 0 {
		errors = append(errors, ValidationError{
			Field:   "positions.max_age",
			Message: "must be positive",
		})
	}

	return errors
}

func validatePolymarket(p *PolymarketConfig) []ValidationError {
	var errors []ValidationError

	urls := []struct {
		field string
		value string
	}{
		{"polymarket.gamma_api_url", p.GammaAPIURL},
		{"polymarket.data_api_url", p.DataAPIURL},
		{"polymarket.polygon_rpc_url", p.PolygonRPCURL},
	}
	for _, u := range urls {
		if u.value == "" {
			errors = append(errors, ValidationError{Field: u.field, Message: "must not be empty"})
		}
	}

	timeouts := []struct {
		field string
		value time.Duration
	}{
		{"polymarket.profile_timeout", p.ProfileTimeout},
		{"polymarket.activity_timeout", p.ActivityTimeout},
		{"polymarket.chain_timeout", p.ChainTimeout},
		{"polymarket.market_lookup_timeout", p.MarketLookupTimeout},
	}
	for _, to := range timeouts {
		if to.value <= 0 {
			errors = append(errors, ValidationError{Field: to.field, Message: "must be positive"})
		}
	}

	if p.ActivityLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "polymarket.activity_limit",
			Message: "must be at least 1",
		})
	}

	return errors
}

func validateHealthServer(hs *HealthServerConfig) []ValidationError {
	if hs.Enabled && (hs.Port < 1 || hs.Port > 65535) {
		return []ValidationError{{
			Field:   "health_server.port",
			Message: "must be between 1 and 65535",
		}}
	}
	return nil
}
