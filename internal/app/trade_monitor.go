package app

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"whalewatch/clients/notifier"
	"whalewatch/clients/polymarketapi"
	"whalewatch/internal/detector"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TradeMonitorConfig holds configuration for the trade monitor.
type TradeMonitorConfig struct {
	PollInterval         time.Duration // Wait at the end of every cycle
	ErrorBackoff         time.Duration // Extra wait after repeated empty cycles
	MaxConsecutiveErrors int           // Empty or failed cycles before backing off

	MinTradeAmount  float64 // Feed filter, USD notional
	BatchLimit      int
	SeedLimit       int
	FetchAttempts   int
	FetchRetryDelay time.Duration

	AlertDelay        time.Duration // Minimum gap between sends
	SendTimeout       time.Duration
	EnrichConcurrency int

	SeenMaxSize  int
	SeenKeepSize int

	PositionsMaxEntries int
	PositionsMaxAge     time.Duration

	Thresholds detector.Thresholds
}

// DefaultTradeMonitorConfig returns sensible defaults.
func DefaultTradeMonitorConfig() TradeMonitorConfig {
	return TradeMonitorConfig{
		PollInterval:         10 * time.Second,
		ErrorBackoff:         30 * time.Second,
		MaxConsecutiveErrors: 3,
		MinTradeAmount:       4000,
		BatchLimit:           30,
		SeedLimit:            50,
		FetchAttempts:        3,
		FetchRetryDelay:      2 * time.Second,
		AlertDelay:           500 * time.Millisecond,
		SendTimeout:          30 * time.Second,
		EnrichConcurrency:    4,
		SeenMaxSize:          5000,
		SeenKeepSize:         2500,
		PositionsMaxEntries:  1000,
		PositionsMaxAge:      7 * 24 * time.Hour,
		Thresholds:           detector.DefaultThresholds(),
	}
}

type tradeFeed interface {
	GetLargeTrades(ctx context.Context, minAmount float64, limit int) ([]polymarketapi.Trade, error)
}

type walletResolver interface {
	Resolve(ctx context.Context, wallet string) detector.WalletProfile
}

type marketResolver interface {
	Resolve(ctx context.Context, t detector.Trade) detector.MarketSnapshot
}

// MonitorStats is a point-in-time copy of the monitor counters.
type MonitorStats struct {
	Polls           int64  `json:"polls"`
	EmptyPolls      int64  `json:"empty_polls"`
	Backoffs        int64  `json:"backoffs"`
	TradesSeen      int64  `json:"trades_seen"`
	TradesEvaluated int64  `json:"trades_evaluated"`
	TradesGated     int64  `json:"trades_gated"`
	AlertsSent      int64  `json:"alerts_sent"`
	AlertsFailed    int64  `json:"alerts_failed"`
	CashoutsSent    int64  `json:"cashouts_sent"`
	CashoutsFailed  int64  `json:"cashouts_failed"`
	UnmatchedCloses int64  `json:"unmatched_closes"`
	SeenSetSize     int64  `json:"seen_set_size"`
	OpenPositions   int64  `json:"open_positions"`
	LastPollAt      string `json:"last_poll_at,omitempty"`
}

type monitorCounters struct {
	polls           atomic.Int64
	emptyPolls      atomic.Int64
	backoffs        atomic.Int64
	tradesSeen      atomic.Int64
	tradesEvaluated atomic.Int64
	gated           atomic.Int64
	alertsSent      atomic.Int64
	alertsFailed    atomic.Int64
	cashoutsSent    atomic.Int64
	cashoutsFailed  atomic.Int64
	unmatchedCloses atomic.Int64
	seenSetSize     atomic.Int64
	openPositions   atomic.Int64
	lastPollUnix    atomic.Int64
}

// TradeMonitor runs the poll cycle. The seen set and position store belong
// to the goroutine running Run; other goroutines only read counters.
type TradeMonitor struct {
	logger   *zap.Logger
	feed     tradeFeed
	wallets  walletResolver
	markets  marketResolver
	notifier notifier.Notifier
	cfg      TradeMonitorConfig

	seen      *SeenSet
	positions *PositionStore

	stats monitorCounters
	now   func() time.Time
}

func NewTradeMonitor(
	logger *zap.Logger,
	feed tradeFeed,
	wallets walletResolver,
	markets marketResolver,
	n notifier.Notifier,
	cfg TradeMonitorConfig,
) *TradeMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.EnrichConcurrency < 1 {
		cfg.EnrichConcurrency = 1
	}
	if cfg.FetchAttempts < 1 {
		cfg.FetchAttempts = 1
	}
	if cfg.MaxConsecutiveErrors < 1 {
		cfg.MaxConsecutiveErrors = 1
	}

	return &TradeMonitor{
		logger:    logger,
		feed:      feed,
		wallets:   wallets,
		markets:   markets,
		notifier:  n,
		cfg:       cfg,
		seen:      NewSeenSet(cfg.SeenMaxSize, cfg.SeenKeepSize),
		positions: NewPositionStore(cfg.PositionsMaxEntries, cfg.PositionsMaxAge),
		now:       time.Now,
	}
}

// Seed marks the most recent large trades as seen so history is never
// evaluated. It returns the number of IDs recorded.
func (tm *TradeMonitor) Seed(ctx context.Context) int {
	trades, err := tm.feed.GetLargeTrades(ctx, tm.cfg.MinTradeAmount, tm.cfg.SeedLimit)
	if err != nil {
		tm.logger.Warn("failed to seed seen trades", zap.Error(err))
		return 0
	}

	n := 0
	for _, t := range trades {
		if id := toDetectorTrade(t).ID; id != "" && tm.seen.Add(id) {
			n++
		}
	}
	tm.publishSizes()

	tm.logger.Info("skipping existing trades", zap.Int("count", n))
	return n
}

// SendStartup announces the monitor and its thresholds on every sink.
func (tm *TradeMonitor) SendStartup(ctx context.Context) error {
	return tm.send(ctx, func(sendCtx context.Context) error {
		return tm.notifier.SendText(sendCtx, tm.startupMessage())
	})
}

func (tm *TradeMonitor) startupMessage() string {
	th := tm.cfg.Thresholds

	var b strings.Builder
	b.WriteString("🔍 <b>Insider monitor started</b>\n\n")
	fmt.Fprintf(&b, "Min trade: %s\n", notifier.USD(tm.cfg.MinTradeAmount))
	fmt.Fprintf(&b, "New wallet: ≤ %d days\n", th.MaxWalletAgeDays)
	fmt.Fprintf(&b, "Low activity: ≤ %d trades\n", th.MaxTradeCount)
	fmt.Fprintf(&b, "Longshot: ≤ %s\n", notifier.Percent(th.MaxLongshotProbability))
	fmt.Fprintf(&b, "Volume share: ≥ %s\n", notifier.Percent(th.MinVolumePercentage))
	fmt.Fprintf(&b, "Ending soon: within %s\n", th.EndingSoonWindow)
	fmt.Fprintf(&b, "Ignoring bets ≥ %s\n", notifier.Percent(th.ObviousProbability))
	fmt.Fprintf(&b, "Poll interval: %s", tm.cfg.PollInterval)
	return b.String()
}

// Run polls until ctx is cancelled.
func (tm *TradeMonitor) Run(ctx context.Context) error {
	tm.logger.Info("trade monitor started",
		zap.Duration("pollInterval", tm.cfg.PollInterval),
		zap.Float64("minTradeAmount", tm.cfg.MinTradeAmount),
		zap.Int("batchLimit", tm.cfg.BatchLimit),
	)

	consecutiveErrors := 0
	for {
		if ctx.Err() != nil {
			tm.logger.Info("trade monitor shutting down")
			return nil
		}

		if tm.poll(ctx) == 0 {
			consecutiveErrors++
		} else {
			consecutiveErrors = 0
		}

		if consecutiveErrors >= tm.cfg.MaxConsecutiveErrors {
			tm.logger.Warn("no trades returned, backing off",
				zap.Int("consecutiveErrors", consecutiveErrors),
				zap.Duration("backoff", tm.cfg.ErrorBackoff),
			)
			tm.stats.backoffs.Add(1)
			if !sleepCtx(ctx, tm.cfg.ErrorBackoff) {
				continue
			}
			consecutiveErrors = 0
		}

		sleepCtx(ctx, tm.cfg.PollInterval)
	}
}

// poll runs one cycle and returns the batch size.
func (tm *TradeMonitor) poll(ctx context.Context) int {
	tm.stats.polls.Add(1)
	tm.stats.lastPollUnix.Store(tm.now().UnixNano())

	batch := tm.fetchBatch(ctx)
	if len(batch) == 0 {
		tm.stats.emptyPolls.Add(1)
		return 0
	}

	tm.processBatch(ctx, batch)
	tm.publishSizes()
	return len(batch)
}

// fetchBatch retries the feed a bounded number of times. Exhausted retries
// yield an empty batch.
func (tm *TradeMonitor) fetchBatch(ctx context.Context) []polymarketapi.Trade {
	for attempt := 1; attempt <= tm.cfg.FetchAttempts; attempt++ {
		trades, err := tm.feed.GetLargeTrades(ctx, tm.cfg.MinTradeAmount, tm.cfg.BatchLimit)
		if err == nil {
			return trades
		}

		tm.logger.Warn("failed to fetch trades",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == tm.cfg.FetchAttempts || !sleepCtx(ctx, tm.cfg.FetchRetryDelay) {
			break
		}
	}
	return nil
}

type enriched struct {
	profile detector.WalletProfile
	market  detector.MarketSnapshot
}

func (tm *TradeMonitor) processBatch(ctx context.Context, batch []polymarketapi.Trade) {
	trades := make([]detector.Trade, 0, len(batch))
	for _, raw := range batch {
		t := toDetectorTrade(raw)
		if t.ID == "" || !tm.seen.Add(t.ID) {
			continue
		}
		tm.stats.tradesSeen.Add(1)

		if t.Direction == detector.Open && tm.cfg.Thresholds.Gated(t) {
			tm.stats.gated.Add(1)
			tm.logger.Debug("skip obvious bet",
				zap.Float64("amount", t.Amount()),
				zap.Float64("probability", t.Probability()),
			)
			continue
		}
		trades = append(trades, t)
	}

	results := tm.enrich(ctx, trades)

	for i, t := range trades {
		if ctx.Err() != nil {
			return
		}
		if t.Direction == detector.Close {
			tm.handleClose(ctx, t)
			continue
		}
		tm.handleOpen(ctx, t, results[i])
	}
}

// enrich resolves wallet and market context for opening trades concurrently.
// Results are stored by batch index so the decision pass keeps feed order.
func (tm *TradeMonitor) enrich(ctx context.Context, trades []detector.Trade) []enriched {
	results := make([]enriched, len(trades))

	var g errgroup.Group
	g.SetLimit(tm.cfg.EnrichConcurrency)
	for i, t := range trades {
		if t.Direction != detector.Open {
			continue
		}
		g.Go(func() error {
			results[i] = enriched{
				profile: tm.wallets.Resolve(ctx, t.Wallet),
				market:  tm.markets.Resolve(ctx, t),
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (tm *TradeMonitor) handleOpen(ctx context.Context, t detector.Trade, e enriched) {
	tm.stats.tradesEvaluated.Add(1)

	signals := tm.cfg.Thresholds.Evaluate(t, e.profile, e.market, tm.now())
	if !detector.ShouldAlert(signals) {
		tm.logger.Debug("skip",
			zap.Float64("amount", t.Amount()),
			zap.Stringer("signals", signals),
			zap.Int("ageDays", e.profile.EffectiveAgeDays().OrElse(-1)),
			zap.Int("tradeCount", e.profile.RealTradeCount.OrElse(-1)),
			zap.Float64("probability", t.Probability()),
		)
		return
	}

	priority := detector.Priority(signals, t.Amount())
	tm.logger.Info("insider pattern detected",
		zap.String("wallet", shortID(t.Wallet)),
		zap.Float64("amount", t.Amount()),
		zap.Strings("signals", signals.Names()),
		zap.Int("priority", priority),
	)

	alert := notifier.InsiderAlert{
		Trade:            t,
		Profile:          e.profile,
		Market:           e.market,
		Signals:          signals,
		Priority:         priority,
		Tier:             detector.Reliability(signals),
		VolumeShare:      e.market.VolumeShare(t.Amount()),
		MaxWalletAgeDays: tm.cfg.Thresholds.MaxWalletAgeDays,
		MaxTradeCount:    tm.cfg.Thresholds.MaxTradeCount,
		Timestamp:        tm.now(),
	}

	if err := tm.send(ctx, func(sendCtx context.Context) error {
		return tm.notifier.SendInsiderAlert(sendCtx, alert)
	}); err != nil {
		tm.stats.alertsFailed.Add(1)
		tm.logger.Error("insider alert lost",
			zap.String("wallet", shortID(t.Wallet)),
			zap.String("trade", shortID(t.ID)),
			zap.Error(err),
		)
	} else {
		tm.stats.alertsSent.Add(1)
		tm.positions.Record(t)
	}

	sleepCtx(ctx, tm.cfg.AlertDelay)
}

func (tm *TradeMonitor) handleClose(ctx context.Context, t detector.Trade) {
	cashout, ok := tm.positions.Close(t)
	if !ok {
		tm.stats.unmatchedCloses.Add(1)
		return
	}

	tm.logger.Info("cashout detected",
		zap.String("wallet", shortID(t.Wallet)),
		zap.Float64("amount", t.Amount()),
		zap.Float64("openAmount", cashout.Position.Amount),
		zap.String("profit", cashout.Profit.StringFixed(2)),
	)

	profile := tm.wallets.Resolve(ctx, t.Wallet)
	market := tm.markets.Resolve(ctx, t)

	alert := notifier.CashoutAlert{
		Wallet:      t.Wallet,
		Title:       nz(t.Title, nz(cashout.Position.Title, market.Title)),
		Outcome:     nz(cashout.Position.Outcome, t.Outcome),
		LinkSlug:    nz(t.LinkSlug(), nz(cashout.Position.LinkSlug, market.Slug)),
		OpenAmount:  cashout.Position.Amount,
		OpenPrice:   cashout.Position.Price,
		CloseAmount: t.Amount(),
		ClosePrice:  t.Price,
		Profit:      cashout.Profit,
		ProfitPct:   cashout.ProfitPct,
		TotalPnl:    profile.LifetimePnl,
		Timestamp:   tm.now(),
	}

	if err := tm.send(ctx, func(sendCtx context.Context) error {
		return tm.notifier.SendCashout(sendCtx, alert)
	}); err != nil {
		tm.stats.cashoutsFailed.Add(1)
		tm.logger.Error("cashout alert lost",
			zap.String("wallet", shortID(t.Wallet)),
			zap.Error(err),
		)
	} else {
		tm.stats.cashoutsSent.Add(1)
	}

	sleepCtx(ctx, tm.cfg.AlertDelay)
}

// send delivers a decided notification. It is detached from ctx so shutdown
// never abandons a send halfway through its state change.
func (tm *TradeMonitor) send(ctx context.Context, fn func(context.Context) error) error {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tm.cfg.SendTimeout)
	defer cancel()
	return fn(sendCtx)
}

func (tm *TradeMonitor) publishSizes() {
	tm.stats.seenSetSize.Store(int64(tm.seen.Len()))
	tm.stats.openPositions.Store(int64(tm.positions.Len()))
}

// Stats returns a snapshot of the monitor counters. Safe for concurrent use.
func (tm *TradeMonitor) Stats() MonitorStats {
	s := MonitorStats{
		Polls:           tm.stats.polls.Load(),
		EmptyPolls:      tm.stats.emptyPolls.Load(),
		Backoffs:        tm.stats.backoffs.Load(),
		TradesSeen:      tm.stats.tradesSeen.Load(),
		TradesEvaluated: tm.stats.tradesEvaluated.Load(),
		TradesGated:     tm.stats.gated.Load(),
		AlertsSent:      tm.stats.alertsSent.Load(),
		AlertsFailed:    tm.stats.alertsFailed.Load(),
		CashoutsSent:    tm.stats.cashoutsSent.Load(),
		CashoutsFailed:  tm.stats.cashoutsFailed.Load(),
		UnmatchedCloses: tm.stats.unmatchedCloses.Load(),
		SeenSetSize:     tm.stats.seenSetSize.Load(),
		OpenPositions:   tm.stats.openPositions.Load(),
	}
	if ns := tm.stats.lastPollUnix.Load(); ns > 0 {
		s.LastPollAt = time.Unix(0, ns).UTC().Format(time.RFC3339)
	}
	return s
}
