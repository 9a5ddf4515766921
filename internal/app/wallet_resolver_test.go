package app

import (
	"context"
	"errors"
	"testing"
	"time"
	"whalewatch/clients/polymarketapi"

	"go.uber.org/zap"
)

var resolverNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestResolver(api profileSource, chain chainSource) *WalletResolver {
	wr := NewWalletResolver(zap.NewNop(), api, chain, WalletResolverConfig{
		ProfileTimeout:  time.Second,
		ActivityTimeout: time.Second,
		ChainTimeout:    time.Second,
	})
	wr.now = func() time.Time { return resolverNow }
	return wr
}

func TestResolveMergesSources(t *testing.T) {
	api := &mockProfileSource{
		profile: &polymarketapi.PublicProfile{
			CreatedAt: resolverNow.Add(-20 * 24 * time.Hour).Format(time.RFC3339),
			Pnl:       polymarketapi.Number{Value: 1200, Valid: true},
			Volume:    polymarketapi.Number{Value: 6000, Valid: true},
		},
		activity: []polymarketapi.Activity{
			{Type: "TRADE", Timestamp: resolverNow.Add(-3 * 24 * time.Hour).Unix()},
			{Type: "TRADE", Timestamp: resolverNow.Add(-8 * 24 * time.Hour).Unix()},
			{Type: "TRADE", Timestamp: 0},
		},
	}

	p := newTestResolver(api, &mockChain{count: 12}).Resolve(context.Background(), " 0xabc ")

	if p.Address != "0xabc" {
		t.Errorf("Address = %q", p.Address)
	}
	if age, ok := p.ProfileAgeDays.Get(); !ok || age != 20 {
		t.Errorf("ProfileAgeDays = %v, %v", age, ok)
	}
	if age, ok := p.FirstActivityAgeDays.Get(); !ok || age != 8 {
		t.Errorf("FirstActivityAgeDays = %v, %v", age, ok)
	}
	if p.FirstTradeDate != "2024-06-07" {
		t.Errorf("FirstTradeDate = %q", p.FirstTradeDate)
	}
	if n, ok := p.RealTradeCount.Get(); !ok || n != 3 {
		t.Errorf("RealTradeCount = %v, %v", n, ok)
	}
	if p.ChainAgeDays.Present() {
		t.Error("wallet with transactions should have no chain age")
	}
	if age, ok := p.EffectiveAgeDays().Get(); !ok || age != 8 {
		t.Errorf("EffectiveAgeDays = %v, %v", age, ok)
	}
	if roi, ok := p.ROI().Get(); !ok || roi < 19.999 || roi > 20.001 {
		t.Errorf("ROI = %v, %v", roi, ok)
	}
}

func TestResolveBrandNewWallet(t *testing.T) {
	api := &mockProfileSource{profileErr: polymarketapi.ErrNotFound}

	p := newTestResolver(api, &mockChain{count: 0}).Resolve(context.Background(), "0xnew")

	if age, ok := p.ChainAgeDays.Get(); !ok || age != 0 {
		t.Errorf("ChainAgeDays = %v, %v", age, ok)
	}
	if age, ok := p.EffectiveAgeDays().Get(); !ok || age != 0 {
		t.Errorf("EffectiveAgeDays = %v, %v", age, ok)
	}
	if n, ok := p.RealTradeCount.Get(); !ok || n != 0 {
		t.Errorf("empty activity should count as zero trades, got %v, %v", n, ok)
	}
}

func TestResolveAllSourcesFail(t *testing.T) {
	api := &mockProfileSource{
		profileErr:  errors.New("down"),
		activityErr: errors.New("down"),
	}

	p := newTestResolver(api, &mockChain{err: errors.New("rpc down")}).Resolve(context.Background(), "0xabc")

	if p.EffectiveAgeDays().Present() || p.RealTradeCount.Present() || p.LifetimePnl.Present() {
		t.Errorf("expected all fields absent, got %+v", p)
	}
}

func TestResolveNilChain(t *testing.T) {
	p := newTestResolver(&mockProfileSource{}, nil).Resolve(context.Background(), "0xabc")
	if p.ChainAgeDays.Present() {
		t.Error("expected chain age absent without a chain source")
	}
}

func TestResolveEmptyWallet(t *testing.T) {
	api := &mockProfileSource{profile: &polymarketapi.PublicProfile{CreatedAt: resolverNow.Format(time.RFC3339)}}

	p := newTestResolver(api, nil).Resolve(context.Background(), "  ")
	if p.ProfileAgeDays.Present() {
		t.Error("empty wallet should not be queried")
	}
}

func TestResolveRespectsTimeouts(t *testing.T) {
	wr := NewWalletResolver(zap.NewNop(), &mockProfileSource{block: true}, nil, WalletResolverConfig{
		ProfileTimeout:  20 * time.Millisecond,
		ActivityTimeout: 20 * time.Millisecond,
	})

	start := time.Now()
	p := wr.Resolve(context.Background(), "0xabc")

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Resolve took %v", elapsed)
	}
	if p.ProfileAgeDays.Present() || p.RealTradeCount.Present() {
		t.Error("timed out sources should leave fields absent")
	}
}
