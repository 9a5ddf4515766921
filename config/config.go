package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Notification sinks
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`

	// Signal thresholds
	Detection DetectionConfig `json:"detection"`

	// Poll cycle
	Monitor MonitorConfig `json:"monitor"`

	// Market snapshot refresh
	Markets MarketsConfig `json:"markets"`

	// Alerted position tracking
	Positions PositionsConfig `json:"positions"`

	// Upstream endpoints
	Polymarket PolymarketConfig `json:"polymarket"`

	// Health server
	HealthServer HealthServerConfig `json:"health_server"`
}

// TelegramConfig holds Telegram-related configuration.
type TelegramConfig struct {
	BotToken    string        `json:"-"` // Excluded - env var only
	ChatID      string        `json:"chat_id"`
	APIURL      string        `json:"api_url"`
	MaxAttempts int           `json:"max_attempts"`
	RetryDelay  time.Duration `json:"retry_delay"`
}

// DiscordConfig holds the optional Discord sink configuration.
type DiscordConfig struct {
	BotToken    string        `json:"-"` // Excluded - env var only
	ChannelID   string        `json:"channel_id"`
	MaxAttempts int           `json:"max_attempts"`
	RetryDelay  time.Duration `json:"retry_delay"`
}

// DetectionConfig holds the signal thresholds.
type DetectionConfig struct {
	MinTradeAmount         float64       `json:"min_trade_amount"`         // Feed filter, USD notional
	MaxWalletAgeDays       int           `json:"max_wallet_age_days"`      // NEW_WALLET at or below
	MaxTradeCount          int           `json:"max_trade_count"`          // LOW_ACTIVITY at or below
	MaxLongshotProbability float64       `json:"max_longshot_probability"` // LONGSHOT_BET at or below, percent
	MinVolumePercentage    float64       `json:"min_volume_percentage"`    // HIGH_VOLUME_SHARE at or above, percent
	ObviousProbability     float64       `json:"obvious_probability"`      // Trades at or above are never scored, percent
	EndingSoonWindow       time.Duration `json:"ending_soon_window"`
}

// MonitorConfig holds poll cycle configuration.
type MonitorConfig struct {
	PollInterval         time.Duration `json:"poll_interval"`
	ErrorBackoff         time.Duration `json:"error_backoff"`
	MaxConsecutiveErrors int           `json:"max_consecutive_errors"`
	BatchLimit           int           `json:"batch_limit"`
	SeedLimit            int           `json:"seed_limit"`
	FetchAttempts        int           `json:"fetch_attempts"`
	FetchRetryDelay      time.Duration `json:"fetch_retry_delay"`
	AlertDelay           time.Duration `json:"alert_delay"` // Minimum gap between sends
	EnrichConcurrency    int           `json:"enrich_concurrency"`
	SeenMaxSize          int           `json:"seen_max_size"`
	SeenKeepSize         int           `json:"seen_keep_size"`
	SendTimeout          time.Duration `json:"send_timeout"`
}

// MarketsConfig holds market snapshot configuration.
type MarketsConfig struct {
	RefreshInterval time.Duration `json:"refresh_interval"`
	ListLimit       int           `json:"list_limit"`
}

// PositionsConfig bounds the alerted position store.
type PositionsConfig struct {
	MaxEntries int           `json:"max_entries"`
	MaxAge     time.Duration `json:"max_age"`
}

// PolymarketConfig holds upstream API configuration.
type PolymarketConfig struct {
	GammaAPIURL         string        `json:"gamma_api_url"`
	DataAPIURL          string        `json:"data_api_url"`
	PolygonRPCURL       string        `json:"polygon_rpc_url"`
	ProfileTimeout      time.Duration `json:"profile_timeout"`
	ActivityTimeout     time.Duration `json:"activity_timeout"`
	ChainTimeout        time.Duration `json:"chain_timeout"`
	MarketLookupTimeout time.Duration `json:"market_lookup_timeout"`
	ActivityLimit       int           `json:"activity_limit"`
}

// HealthServerConfig holds health check server configuration.
type HealthServerConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

// ToJSON serializes the config to JSON. Secrets are never included.
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// DiscordEnabled reports whether the optional Discord sink is configured.
func (c *Config) DiscordEnabled() bool {
	return c.Discord.BotToken != ""
}

// Defaults returns a config with hardcoded default values.
func Defaults() *Config {
	return &Config{
		Telegram: TelegramConfig{
			APIURL:      "https://api.telegram.org",
			MaxAttempts: 3,
			RetryDelay:  1 * time.Second,
		},
		Discord: DiscordConfig{
			MaxAttempts: 3,
			RetryDelay:  1 * time.Second,
		},
		Detection: DetectionConfig{
			MinTradeAmount:         4000,
			MaxWalletAgeDays:       30,
			MaxTradeCount:          10,
			MaxLongshotProbability: 20,
			MinVolumePercentage:    5,
			ObviousProbability:     80,
			EndingSoonWindow:       24 * time.Hour,
		},
		Monitor: MonitorConfig{
			PollInterval:         10 * time.Second,
			ErrorBackoff:         30 * time.Second,
			MaxConsecutiveErrors: 3,
			BatchLimit:           30,
			SeedLimit:            50,
			FetchAttempts:        3,
			FetchRetryDelay:      2 * time.Second,
			AlertDelay:           500 * time.Millisecond,
			EnrichConcurrency:    4,
			SeenMaxSize:          5000,
			SeenKeepSize:         2500,
			SendTimeout:          30 * time.Second,
		},
		Markets: MarketsConfig{
			RefreshInterval: 5 * time.Minute,
			ListLimit:       500,
		},
		Positions: PositionsConfig{
			MaxEntries: 1000,
			MaxAge:     7 * 24 * time.Hour,
		},
		Polymarket: PolymarketConfig{
			GammaAPIURL:         "https://gamma-api.polymarket.com",
			DataAPIURL:          "https://data-api.polymarket.com",
			PolygonRPCURL:       "https://polygon-rpc.com",
			ProfileTimeout:      5 * time.Second,
			ActivityTimeout:     5 * time.Second,
			ChainTimeout:        3 * time.Second,
			MarketLookupTimeout: 5 * time.Second,
			ActivityLimit:       500,
		},
		HealthServer: HealthServerConfig{
			Enabled: true,
			Port:    8080,
		},
	}
}

// Load loads configuration from environment variables with defaults.
// A .env file in the working directory is applied first when present; variables
// already set in the environment win.
func Load() *Config {
	_ = godotenv.Load()

	d := Defaults()
	return &Config{
		Telegram: TelegramConfig{
			BotToken:    envString("TELEGRAM_BOT_TOKEN", ""),
			ChatID:      envString("TELEGRAM_CHAT_ID", ""),
			APIURL:      envString("TELEGRAM_API_URL", d.Telegram.APIURL),
			MaxAttempts: envInt("TELEGRAM_MAX_ATTEMPTS", d.Telegram.MaxAttempts),
			RetryDelay:  envDuration("TELEGRAM_RETRY_DELAY", d.Telegram.RetryDelay),
		},

		Discord: DiscordConfig{
			BotToken:    envString("DISCORD_BOT_TOKEN", ""),
			ChannelID:   envString("DISCORD_CHANNEL_ID", ""),
			MaxAttempts: envInt("DISCORD_MAX_ATTEMPTS", d.Discord.MaxAttempts),
			RetryDelay:  envDuration("DISCORD_RETRY_DELAY", d.Discord.RetryDelay),
		},

		Detection: DetectionConfig{
			MinTradeAmount:         envFloat("MIN_TRADE_AMOUNT", d.Detection.MinTradeAmount),
			MaxWalletAgeDays:       envInt("MAX_WALLET_AGE_DAYS", d.Detection.MaxWalletAgeDays),
			MaxTradeCount:          envInt("MAX_TRADE_COUNT", d.Detection.MaxTradeCount),
			MaxLongshotProbability: envFloat("MAX_LONGSHOT_PROBABILITY", d.Detection.MaxLongshotProbability),
			MinVolumePercentage:    envFloat("MIN_VOLUME_PERCENTAGE", d.Detection.MinVolumePercentage),
			ObviousProbability:     envFloat("OBVIOUS_PROBABILITY", d.Detection.ObviousProbability),
			EndingSoonWindow:       envDuration("ENDING_SOON_WINDOW", d.Detection.EndingSoonWindow),
		},

		Monitor: MonitorConfig{
			PollInterval:         envDuration("POLL_INTERVAL", d.Monitor.PollInterval),
			ErrorBackoff:         envDuration("ERROR_BACKOFF", d.Monitor.ErrorBackoff),
			MaxConsecutiveErrors: envInt("MAX_CONSECUTIVE_ERRORS", d.Monitor.MaxConsecutiveErrors),
			BatchLimit:           envInt("TRADE_BATCH_LIMIT", d.Monitor.BatchLimit),
			SeedLimit:            envInt("TRADE_SEED_LIMIT", d.Monitor.SeedLimit),
			FetchAttempts:        envInt("TRADE_FETCH_ATTEMPTS", d.Monitor.FetchAttempts),
			FetchRetryDelay:      envDuration("TRADE_FETCH_RETRY_DELAY", d.Monitor.FetchRetryDelay),
			AlertDelay:           envDuration("ALERT_DELAY", d.Monitor.AlertDelay),
			EnrichConcurrency:    envInt("ENRICH_CONCURRENCY", d.Monitor.EnrichConcurrency),
			SeenMaxSize:          envInt("SEEN_MAX_SIZE", d.Monitor.SeenMaxSize),
			SeenKeepSize:         envInt("SEEN_KEEP_SIZE", d.Monitor.SeenKeepSize),
			SendTimeout:          envDuration("SEND_TIMEOUT", d.Monitor.SendTimeout),
		},

		Markets: MarketsConfig{
			RefreshInterval: envDuration("MARKET_REFRESH_INTERVAL", d.Markets.RefreshInterval),
			ListLimit:       envInt("MARKET_LIST_LIMIT", d.Markets.ListLimit),
		},

		Positions: PositionsConfig{
			MaxEntries: envInt("POSITIONS_MAX_ENTRIES", d.Positions.MaxEntries),
			MaxAge:     envDuration("POSITIONS_MAX_AGE", d.Positions.MaxAge),
		},

		Polymarket: PolymarketConfig{
			GammaAPIURL:         envString("POLYMARKET_GAMMA_API_URL", d.Polymarket.GammaAPIURL),
			DataAPIURL:          envString("POLYMARKET_DATA_API_URL", d.Polymarket.DataAPIURL),
			PolygonRPCURL:       envString("POLYGON_RPC_URL", d.Polymarket.PolygonRPCURL),
			ProfileTimeout:      envDuration("PROFILE_TIMEOUT", d.Polymarket.ProfileTimeout),
			ActivityTimeout:     envDuration("ACTIVITY_TIMEOUT", d.Polymarket.ActivityTimeout),
			ChainTimeout:        envDuration("CHAIN_TIMEOUT", d.Polymarket.ChainTimeout),
			MarketLookupTimeout: envDuration("MARKET_LOOKUP_TIMEOUT", d.Polymarket.MarketLookupTimeout),
			ActivityLimit:       envInt("ACTIVITY_LIMIT", d.Polymarket.ActivityLimit),
		},

		HealthServer: HealthServerConfig{
			Enabled: envBoolDefault("HEALTH_SERVER_ENABLED", d.HealthServer.Enabled),
			Port:    envInt("HEALTH_SERVER_PORT", d.HealthServer.Port),
		},
	}
}

// Helper functions for parsing environment variables

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// envDuration accepts Go duration strings ("30s") and bare numbers of seconds.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return defaultVal
}

func envBoolDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "1") || strings.EqualFold(v, "yes")
}
