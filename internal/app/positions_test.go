package app

import (
	"testing"
	"time"
	"whalewatch/internal/detector"

	"github.com/shopspring/decimal"
)

func openTrade(wallet, asset string, size, price float64, ts time.Time) detector.Trade {
	return detector.Trade{
		ID:        "open-" + wallet,
		Wallet:    wallet,
		Asset:     asset,
		Direction: detector.Open,
		Size:      size,
		Price:     price,
		Title:     "Market",
		Outcome:   "Yes",
		Slug:      "market",
		Timestamp: ts,
	}
}

func closeTrade(wallet, asset string, size, price float64) detector.Trade {
	return detector.Trade{
		ID:        "close-" + wallet,
		Wallet:    wallet,
		Asset:     asset,
		Direction: detector.Close,
		Size:      size,
		Price:     price,
	}
}

func TestPositionStoreCashoutProfit(t *testing.T) {
	ps := NewPositionStore(1000, 7*24*time.Hour)
	ps.Record(openTrade("0xW", "tok", 2000, 0.20, time.Now()))

	c, ok := ps.Close(closeTrade("0xw", "tok", 2000, 0.60))
	if !ok {
		t.Fatal("expected a matching position")
	}

	if !c.Profit.Equal(decimal.NewFromInt(800)) {
		t.Errorf("Profit = %s, want 800", c.Profit)
	}
	if !c.ProfitPct.Equal(decimal.NewFromInt(200)) {
		t.Errorf("ProfitPct = %s, want 200", c.ProfitPct)
	}
	if c.Position.Amount != 400 || c.Position.LinkSlug != "market" {
		t.Errorf("unexpected position: %+v", c.Position)
	}
	if ps.Len() != 0 {
		t.Error("Close should consume the position")
	}
	if _, ok := ps.Close(closeTrade("0xW", "tok", 2000, 0.60)); ok {
		t.Error("second close should not match")
	}
}

func TestPositionStoreLoss(t *testing.T) {
	ps := NewPositionStore(10, time.Hour)
	ps.Record(openTrade("0xW", "tok", 1000, 0.50, time.Now()))

	c, _ := ps.Close(closeTrade("0xW", "tok", 500, 0.25))

	if !c.Profit.Equal(decimal.NewFromInt(-125)) {
		t.Errorf("Profit = %s, want -125", c.Profit)
	}
	if !c.ProfitPct.Equal(decimal.NewFromInt(-50)) {
		t.Errorf("ProfitPct = %s, want -50", c.ProfitPct)
	}
}

func TestPositionStoreZeroOpenPrice(t *testing.T) {
	ps := NewPositionStore(10, time.Hour)
	ps.Record(openTrade("0xW", "tok", 1000, 0, time.Now()))

	c, ok := ps.Close(closeTrade("0xW", "tok", 1000, 0.5))
	if !ok {
		t.Fatal("expected a matching position")
	}
	if !c.ProfitPct.IsZero() {
		t.Errorf("ProfitPct = %s, want 0", c.ProfitPct)
	}
}

func TestPositionStoreKeysByAsset(t *testing.T) {
	ps := NewPositionStore(10, time.Hour)
	ps.Record(openTrade("0xW", "yes", 100, 0.1, time.Now()))

	if _, ok := ps.Close(closeTrade("0xW", "no", 100, 0.2)); ok {
		t.Error("close on another asset should not match")
	}
	if ps.Len() != 1 {
		t.Error("unmatched close should leave the position in place")
	}
}

func TestPositionStoreNewerAlertReplaces(t *testing.T) {
	ps := NewPositionStore(10, time.Hour)
	ps.Record(openTrade("0xW", "tok", 100, 0.10, time.Now()))
	ps.Record(openTrade("0xW", "tok", 300, 0.15, time.Now()))

	c, _ := ps.Close(closeTrade("0xW", "tok", 300, 0.25))
	if c.Position.Size != 300 {
		t.Errorf("expected newest position, got size %v", c.Position.Size)
	}
}

func TestPositionStorePurgesStaleEntries(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	ps := NewPositionStore(2, 7*24*time.Hour)
	ps.now = func() time.Time { return now }

	ps.Record(openTrade("0xold", "tok", 1, 0.1, now.Add(-8*24*time.Hour)))
	ps.Record(openTrade("0xmid", "tok", 1, 0.1, now.Add(-2*24*time.Hour)))
	if ps.Len() != 2 {
		t.Fatalf("Len = %d, want 2 before the limit is exceeded", ps.Len())
	}

	ps.Record(openTrade("0xnew", "tok", 1, 0.1, time.Time{}))

	if ps.Len() != 2 {
		t.Errorf("Len = %d, want 2 after purge", ps.Len())
	}
	if _, ok := ps.Close(closeTrade("0xold", "tok", 1, 0.2)); ok {
		t.Error("stale position should have been purged")
	}
	if _, ok := ps.Close(closeTrade("0xnew", "tok", 1, 0.2)); !ok {
		t.Error("zero timestamp should be stamped with now and kept")
	}
}
