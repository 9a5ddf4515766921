package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"whalewatch/clients/notifier"
	"whalewatch/clients/polymarketapi"
	"whalewatch/internal/detector"
)

// mockFeed serves queued batches; once drained it returns empty batches.
type mockFeed struct {
	mu      sync.Mutex
	batches [][]polymarketapi.Trade
	errs    []error
	calls   int
	limits  []int
}

func (m *mockFeed) GetLargeTrades(_ context.Context, _ float64, limit int) ([]polymarketapi.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.limits = append(m.limits, limit)

	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(m.batches) == 0 {
		return nil, nil
	}
	b := m.batches[0]
	m.batches = m.batches[1:]
	return b, nil
}

func (m *mockFeed) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockWallets returns canned profiles keyed by lowercase address.
type mockWallets struct {
	mu       sync.Mutex
	profiles map[string]detector.WalletProfile
	calls    []string
}

func (m *mockWallets) Resolve(_ context.Context, wallet string) detector.WalletProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, wallet)
	if p, ok := m.profiles[strings.ToLower(wallet)]; ok {
		return p
	}
	return detector.WalletProfile{Address: wallet}
}

// mockMarkets returns canned snapshots keyed by condition ID.
type mockMarkets struct {
	mu      sync.Mutex
	markets map[string]detector.MarketSnapshot
}

func (m *mockMarkets) Resolve(_ context.Context, t detector.Trade) detector.MarketSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.markets[t.ConditionID]; ok {
		return s
	}
	return detector.MarketSnapshot{ID: t.ConditionID, Title: t.Title, Slug: t.LinkSlug()}
}

// mockNotifier records every send in order.
type mockNotifier struct {
	mu       sync.Mutex
	events   []string
	insiders []notifier.InsiderAlert
	cashouts []notifier.CashoutAlert
	texts    []string
	failNext int
}

var errSinkDown = errors.New("sink down")

func (m *mockNotifier) fail() bool {
	if m.failNext > 0 {
		m.failNext--
		return true
	}
	return false
}

func (m *mockNotifier) SendInsiderAlert(_ context.Context, alert notifier.InsiderAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail() {
		return errSinkDown
	}
	m.insiders = append(m.insiders, alert)
	m.events = append(m.events, "insider:"+alert.Trade.ID)
	return nil
}

func (m *mockNotifier) SendCashout(_ context.Context, alert notifier.CashoutAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail() {
		return errSinkDown
	}
	m.cashouts = append(m.cashouts, alert)
	m.events = append(m.events, "cashout:"+alert.Wallet)
	return nil
}

func (m *mockNotifier) SendText(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail() {
		return errSinkDown
	}
	m.texts = append(m.texts, text)
	return nil
}

func (m *mockNotifier) Close() error { return nil }

func (m *mockNotifier) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.events...)
}

// mockProfileSource backs WalletResolver tests.
type mockProfileSource struct {
	profile     *polymarketapi.PublicProfile
	profileErr  error
	activity    []polymarketapi.Activity
	activityErr error
	block       bool
}

func (m *mockProfileSource) GetPublicProfile(ctx context.Context, _ string) (*polymarketapi.PublicProfile, error) {
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.profile, m.profileErr
}

func (m *mockProfileSource) GetTradeActivity(ctx context.Context, _ string, _ int) ([]polymarketapi.Activity, error) {
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.activity, m.activityErr
}

type mockChain struct {
	count uint64
	err   error
}

func (m *mockChain) TransactionCount(context.Context, string) (uint64, error) {
	return m.count, m.err
}

// mockMarketSource backs MarketCache tests.
type mockMarketSource struct {
	mu        sync.Mutex
	markets   []polymarketapi.GammaMarket
	listErr   error
	events    map[string]*polymarketapi.GammaEvent
	eventErr  error
	slugCalls []string
}

func (m *mockMarketSource) GetActiveMarkets(context.Context, int) ([]polymarketapi.GammaMarket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markets, m.listErr
}

func (m *mockMarketSource) GetEventBySlug(_ context.Context, slug string) (*polymarketapi.GammaEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slugCalls = append(m.slugCalls, slug)
	if m.eventErr != nil {
		return nil, m.eventErr
	}
	if ev, ok := m.events[slug]; ok {
		return ev, nil
	}
	return nil, polymarketapi.ErrNotFound
}
