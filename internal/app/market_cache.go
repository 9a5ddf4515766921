package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
	"whalewatch/clients/polymarketapi"
	"whalewatch/internal/detector"

	"go.uber.org/zap"
)

type marketSource interface {
	GetActiveMarkets(ctx context.Context, limit int) ([]polymarketapi.GammaMarket, error)
	GetEventBySlug(ctx context.Context, slug string) (*polymarketapi.GammaEvent, error)
}

// marketGeneration is one immutable snapshot of the active market listing.
type marketGeneration struct {
	byCondition map[string]detector.MarketSnapshot
	loadedAt    time.Time
}

// MarketCache holds the active market listing keyed by condition ID. Refresh
// replaces the whole generation in one store, so readers never see a
// partially built map.
type MarketCache struct {
	logger        *zap.Logger
	api           marketSource
	listLimit     int
	lookupTimeout time.Duration

	current atomic.Pointer[marketGeneration]
}

func NewMarketCache(logger *zap.Logger, api marketSource, listLimit int, lookupTimeout time.Duration) *MarketCache {
	if logger == nil {
		logger = zap.NewNop()
	}

	mc := &MarketCache{
		logger:        logger,
		api:           api,
		listLimit:     listLimit,
		lookupTimeout: lookupTimeout,
	}
	mc.current.Store(&marketGeneration{byCondition: map[string]detector.MarketSnapshot{}})
	return mc
}

// Refresh fetches the active listing and swaps it in. On error the previous
// generation stays in place.
func (mc *MarketCache) Refresh(ctx context.Context) error {
	markets, err := mc.api.GetActiveMarkets(ctx, mc.listLimit)
	if err != nil {
		return fmt.Errorf("refresh markets: %w", err)
	}

	next := make(map[string]detector.MarketSnapshot, len(markets))
	for _, m := range markets {
		if m.ConditionID == "" {
			continue
		}
		next[m.ConditionID] = detector.MarketSnapshot{
			ID:          m.ConditionID,
			Title:       m.Question,
			Slug:        m.Slug,
			TotalVolume: m.Volume.Value,
			Liquidity:   m.Liquidity.Value,
			EndTime:     m.EndDate,
		}
	}

	mc.current.Store(&marketGeneration{byCondition: next, loadedAt: time.Now()})
	mc.logger.Info("loaded markets", zap.Int("count", len(next)))
	return nil
}

// Size returns the number of cached markets.
func (mc *MarketCache) Size() int {
	return len(mc.current.Load().byCondition)
}

// LoadedAt returns when the current generation was built, zero before the
// first successful refresh.
func (mc *MarketCache) LoadedAt() time.Time {
	return mc.current.Load().loadedAt
}

// Lookup returns the cached snapshot for a condition ID.
func (mc *MarketCache) Lookup(conditionID string) (detector.MarketSnapshot, bool) {
	m, ok := mc.current.Load().byCondition[conditionID]
	return m, ok
}

// Resolve returns the best market context for a trade: a cached entry with
// known volume, then an event lookup by slug, then the cached entry without
// volume, then a snapshot built from the trade itself. Lookup results are not
// cached.
func (mc *MarketCache) Resolve(ctx context.Context, t detector.Trade) detector.MarketSnapshot {
	cached, hit := mc.Lookup(t.ConditionID)
	if hit && cached.TotalVolume > 0 {
		return cached
	}

	if slug := t.LinkSlug(); slug != "" {
		m, err := mc.lookupBySlug(ctx, slug)
		if err == nil {
			return m
		}
		if !errors.Is(err, polymarketapi.ErrNotFound) {
			mc.logger.Debug("market lookup failed",
				zap.String("slug", slug),
				zap.Error(err),
			)
		}
	}

	if hit {
		return cached
	}
	return detector.MarketSnapshot{
		ID:    t.ConditionID,
		Title: t.Title,
		Slug:  t.LinkSlug(),
	}
}

func (mc *MarketCache) lookupBySlug(ctx context.Context, slug string) (detector.MarketSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, mc.lookupTimeout)
	defer cancel()

	ev, err := mc.api.GetEventBySlug(ctx, slug)
	if err != nil {
		return detector.MarketSnapshot{}, err
	}

	return detector.MarketSnapshot{
		ID:          ev.ID,
		Title:       ev.Title,
		Slug:        nz(ev.Slug, slug),
		TotalVolume: ev.Volume.Value,
		Liquidity:   ev.Liquidity.Value,
		EndTime:     ev.EndDate,
	}, nil
}
