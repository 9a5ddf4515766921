package app

import (
	"context"
	"net/http"
	"runtime"
	"runtime/debug"
	"time"
	clts "whalewatch/clients"
	"whalewatch/config"
	"whalewatch/internal/detector"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Build info - populated from embedded VCS info at init time
var (
	BuildCommit = "dev"
	BuildTime   = "unknown"
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if setting.Value != "" {
					BuildCommit = setting.Value
				}
			case "vcs.time":
				BuildTime = setting.Value
			}
		}
	}
}

type Runner struct {
	clients      *clts.Clients
	cfg          *config.Config
	markets      *MarketCache
	wallets      *WalletResolver
	tradeMonitor *TradeMonitor
	healthServer *http.Server
	startTime    time.Time
}

// ServiceStats is served by /stats and streamed over /ws.
type ServiceStats struct {
	Build struct {
		Commit    string `json:"commit"`
		Time      string `json:"time,omitempty"`
		GoVersion string `json:"go_version"`
	} `json:"build"`

	StartTime string `json:"start_time"`
	Uptime    string `json:"uptime"`
	UptimeSec int64  `json:"uptime_seconds"`

	Markets struct {
		Count    int    `json:"count"`
		LoadedAt string `json:"loaded_at,omitempty"`
	} `json:"markets"`

	Monitor MonitorStats `json:"monitor"`

	Notifications struct {
		Sinks           int  `json:"sinks"`
		TelegramEnabled bool `json:"telegram_enabled"`
		DiscordEnabled  bool `json:"discord_enabled"`
	} `json:"notifications"`

	Runtime struct {
		Goroutines int    `json:"goroutines"`
		HeapAlloc  uint64 `json:"heap_alloc"`
		NumGC      uint32 `json:"num_gc"`
		NumCPU     int    `json:"num_cpu"`
	} `json:"runtime"`
}

func NewRunner(clients *clts.Clients, cfg *config.Config) *Runner {
	logger := clients.Logger

	markets := NewMarketCache(
		logger,
		clients.Polymarket,
		cfg.Markets.ListLimit,
		cfg.Polymarket.MarketLookupTimeout,
	)

	var chain chainSource
	if clients.Chain != nil {
		chain = clients.Chain
	}
	wallets := NewWalletResolver(logger, clients.Polymarket, chain, WalletResolverConfig{
		ProfileTimeout:  cfg.Polymarket.ProfileTimeout,
		ActivityTimeout: cfg.Polymarket.ActivityTimeout,
		ChainTimeout:    cfg.Polymarket.ChainTimeout,
		ActivityLimit:   cfg.Polymarket.ActivityLimit,
	})

	monitor := NewTradeMonitor(
		logger,
		clients.Polymarket,
		wallets,
		markets,
		clients.Notifier,
		tradeMonitorConfig(cfg),
	)

	return &Runner{
		clients:      clients,
		cfg:          cfg,
		markets:      markets,
		wallets:      wallets,
		tradeMonitor: monitor,
	}
}

func tradeMonitorConfig(cfg *config.Config) TradeMonitorConfig {
	return TradeMonitorConfig{
		PollInterval:         cfg.Monitor.PollInterval,
		ErrorBackoff:         cfg.Monitor.ErrorBackoff,
		MaxConsecutiveErrors: cfg.Monitor.MaxConsecutiveErrors,
		MinTradeAmount:       cfg.Detection.MinTradeAmount,
		BatchLimit:           cfg.Monitor.BatchLimit,
		SeedLimit:            cfg.Monitor.SeedLimit,
		FetchAttempts:        cfg.Monitor.FetchAttempts,
		FetchRetryDelay:      cfg.Monitor.FetchRetryDelay,
		AlertDelay:           cfg.Monitor.AlertDelay,
		SendTimeout:          cfg.Monitor.SendTimeout,
		EnrichConcurrency:    cfg.Monitor.EnrichConcurrency,
		SeenMaxSize:          cfg.Monitor.SeenMaxSize,
		SeenKeepSize:         cfg.Monitor.SeenKeepSize,
		PositionsMaxEntries:  cfg.Positions.MaxEntries,
		PositionsMaxAge:      cfg.Positions.MaxAge,
		Thresholds: detector.Thresholds{
			MaxWalletAgeDays:       cfg.Detection.MaxWalletAgeDays,
			MaxTradeCount:          cfg.Detection.MaxTradeCount,
			MaxLongshotProbability: cfg.Detection.MaxLongshotProbability,
			MinVolumePercentage:    cfg.Detection.MinVolumePercentage,
			ObviousProbability:     cfg.Detection.ObviousProbability,
			EndingSoonWindow:       cfg.Detection.EndingSoonWindow,
		},
	}
}

// Run seeds the monitor, announces startup and polls until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.startTime = time.Now()
	logger := r.clients.Logger

	logger.Info("starting insider monitor",
		zap.Float64("minTradeAmount", r.cfg.Detection.MinTradeAmount),
		zap.Duration("pollInterval", r.cfg.Monitor.PollInterval),
		zap.Duration("marketRefreshInterval", r.cfg.Markets.RefreshInterval),
	)

	// A failed first load is not fatal; trades fall back to slug lookups.
	if err := r.markets.Refresh(ctx); err != nil {
		logger.Warn("initial market load failed", zap.Error(err))
	}

	r.tradeMonitor.Seed(ctx)

	if err := r.tradeMonitor.SendStartup(ctx); err != nil {
		logger.Warn("failed to send startup message", zap.Error(err))
	}

	if r.cfg.HealthServer.Enabled {
		r.startHealthServer(r.cfg.HealthServer.Port)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.tradeMonitor.Run(gctx)
	})
	g.Go(func() error {
		r.runMarketRefresher(gctx, r.cfg.Markets.RefreshInterval)
		return nil
	})
	err := g.Wait()

	logger.Info("runner shutting down")

	// Shutdown health server
	if r.healthServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = r.healthServer.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	return err
}

// runMarketRefresher periodically reloads the active market listing.
func (r *Runner) runMarketRefresher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	logger := r.clients.Logger
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.markets.Refresh(ctx); err != nil {
				logger.Warn("failed to refresh markets", zap.Error(err))
			}
		}
	}
}

// GetStats returns service statistics. Safe to call from HTTP handlers.
func (r *Runner) GetStats() ServiceStats {
	var stats ServiceStats

	stats.Build.Commit = BuildCommit
	stats.Build.Time = BuildTime
	stats.Build.GoVersion = runtime.Version()

	if !r.startTime.IsZero() {
		uptime := time.Since(r.startTime)
		stats.StartTime = r.startTime.UTC().Format(time.RFC3339)
		stats.Uptime = uptime.Round(time.Second).String()
		stats.UptimeSec = int64(uptime.Seconds())
	}

	stats.Markets.Count = r.markets.Size()
	if loaded := r.markets.LoadedAt(); !loaded.IsZero() {
		stats.Markets.LoadedAt = loaded.UTC().Format(time.RFC3339)
	}

	stats.Monitor = r.tradeMonitor.Stats()

	if counter, ok := r.clients.Notifier.(interface{ Count() int }); ok {
		stats.Notifications.Sinks = counter.Count()
	}
	stats.Notifications.TelegramEnabled = r.clients.Telegram != nil
	stats.Notifications.DiscordEnabled = r.clients.Discord != nil

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats.Runtime.Goroutines = runtime.NumGoroutine()
	stats.Runtime.HeapAlloc = memStats.HeapAlloc
	stats.Runtime.NumGC = memStats.NumGC
	stats.Runtime.NumCPU = runtime.NumCPU()

	return stats
}
