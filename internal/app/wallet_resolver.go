package app

import (
	"context"
	"strings"
	"time"
	"whalewatch/clients/polymarketapi"
	"whalewatch/internal/detector"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type profileSource interface {
	GetPublicProfile(ctx context.Context, wallet string) (*polymarketapi.PublicProfile, error)
	GetTradeActivity(ctx context.Context, wallet string, limit int) ([]polymarketapi.Activity, error)
}

type chainSource interface {
	TransactionCount(ctx context.Context, wallet string) (uint64, error)
}

// WalletResolverConfig bounds each wallet source call.
type WalletResolverConfig struct {
	ProfileTimeout  time.Duration
	ActivityTimeout time.Duration
	ChainTimeout    time.Duration
	ActivityLimit   int
}

// WalletResolver merges the profile, activity and chain sources into one
// WalletProfile. Every source is optional: failures and timeouts leave the
// corresponding fields absent.
type WalletResolver struct {
	logger *zap.Logger
	api    profileSource
	chain  chainSource
	cfg    WalletResolverConfig
	now    func() time.Time
}

// NewWalletResolver creates a resolver. chain may be nil.
func NewWalletResolver(
	logger *zap.Logger,
	api profileSource,
	chain chainSource,
	cfg WalletResolverConfig,
) *WalletResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ActivityLimit <= 0 {
		cfg.ActivityLimit = 500
	}

	return &WalletResolver{
		logger: logger,
		api:    api,
		chain:  chain,
		cfg:    cfg,
		now:    time.Now,
	}
}

type profileFacts struct {
	ageDays detector.Optional[int]
	pnl     detector.Optional[float64]
	volume  detector.Optional[float64]
}

type activityFacts struct {
	tradeCount     detector.Optional[int]
	ageDays        detector.Optional[int]
	firstTradeDate string
}

// Resolve queries all sources concurrently and returns once each has finished
// or timed out.
func (wr *WalletResolver) Resolve(ctx context.Context, wallet string) detector.WalletProfile {
	wallet = strings.TrimSpace(wallet)
	profile := detector.WalletProfile{Address: wallet}
	if wallet == "" {
		return profile
	}

	now := wr.now()

	var (
		pf    profileFacts
		af    activityFacts
		chain detector.Optional[int]
	)

	// Source errors are absorbed into absent fields, so the group never fails.
	var g errgroup.Group
	g.Go(func() error {
		pf = wr.fetchProfile(ctx, wallet, now)
		return nil
	})
	g.Go(func() error {
		af = wr.fetchActivity(ctx, wallet, now)
		return nil
	})
	g.Go(func() error {
		chain = wr.fetchChainAge(ctx, wallet)
		return nil
	})
	_ = g.Wait()

	profile.ProfileAgeDays = pf.ageDays
	profile.LifetimePnl = pf.pnl
	profile.LifetimeVolume = pf.volume
	profile.RealTradeCount = af.tradeCount
	profile.FirstActivityAgeDays = af.ageDays
	profile.FirstTradeDate = af.firstTradeDate
	profile.ChainAgeDays = chain

	return profile
}

// fetchProfile reads account creation time and lifetime figures.
func (wr *WalletResolver) fetchProfile(ctx context.Context, wallet string, now time.Time) profileFacts {
	var facts profileFacts
	if wr.api == nil {
		return facts
	}

	ctx, cancel := context.WithTimeout(ctx, wr.cfg.ProfileTimeout)
	defer cancel()

	p, err := wr.api.GetPublicProfile(ctx, wallet)
	if err != nil {
		wr.logger.Debug("profile source unavailable",
			zap.String("wallet", shortID(wallet)),
			zap.Error(err),
		)
		return facts
	}

	if created, ok := p.CreatedTime(); ok {
		facts.ageDays = detector.Some(detector.AgeDays(created, now))
	}
	if p.Pnl.Valid {
		facts.pnl = detector.Some(p.Pnl.Value)
	}
	if p.Volume.Valid {
		facts.volume = detector.Some(p.Volume.Value)
	}
	return facts
}

// fetchActivity counts genuine trades and finds the earliest one.
func (wr *WalletResolver) fetchActivity(ctx context.Context, wallet string, now time.Time) activityFacts {
	var facts activityFacts
	if wr.api == nil {
		return facts
	}

	ctx, cancel := context.WithTimeout(ctx, wr.cfg.ActivityTimeout)
	defer cancel()

	activity, err := wr.api.GetTradeActivity(ctx, wallet, wr.cfg.ActivityLimit)
	if err != nil {
		wr.logger.Debug("activity source unavailable",
			zap.String("wallet", shortID(wallet)),
			zap.Error(err),
		)
		return facts
	}

	facts.tradeCount = detector.Some(len(activity))

	var earliest int64
	for _, a := range activity {
		if a.Timestamp > 0 && (earliest == 0 || a.Timestamp < earliest) {
			earliest = a.Timestamp
		}
	}
	if earliest > 0 {
		first := unixTime(earliest)
		facts.ageDays = detector.Some(detector.AgeDays(first, now))
		facts.firstTradeDate = first.UTC().Format("2006-01-02")
	}
	return facts
}

// fetchChainAge reports age 0 for wallets that have never sent a transaction.
func (wr *WalletResolver) fetchChainAge(ctx context.Context, wallet string) detector.Optional[int] {
	if wr.chain == nil {
		return detector.None[int]()
	}

	ctx, cancel := context.WithTimeout(ctx, wr.cfg.ChainTimeout)
	defer cancel()

	n, err := wr.chain.TransactionCount(ctx, wallet)
	if err != nil {
		wr.logger.Debug("chain source unavailable",
			zap.String("wallet", shortID(wallet)),
			zap.Error(err),
		)
		return detector.None[int]()
	}
	if n == 0 {
		wr.logger.Debug("brand new wallet detected", zap.String("wallet", shortID(wallet)))
		return detector.Some(0)
	}
	return detector.None[int]()
}
