package app

import (
	"strings"
	"time"
	"whalewatch/internal/detector"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// OpenPosition is an alerted opening trade awaiting its close.
type OpenPosition struct {
	Wallet    string
	Asset     string
	Size      float64
	Price     float64
	Amount    float64
	Title     string
	Outcome   string
	LinkSlug  string
	Timestamp time.Time
}

// Cashout pairs a closing trade with the position it consumed.
type Cashout struct {
	Position  OpenPosition
	Close     detector.Trade
	Profit    decimal.Decimal // (closePrice - openPrice) * closeSize
	ProfitPct decimal.Decimal // price change relative to the open price
}

// PositionStore tracks at most one alerted position per wallet and asset.
// A newer alert on the same key replaces the older one.
//
// PositionStore is not safe for concurrent use; the poll goroutine owns it.
type PositionStore struct {
	entries    map[string]OpenPosition
	maxEntries int
	maxAge     time.Duration
	now        func() time.Time
}

func NewPositionStore(maxEntries int, maxAge time.Duration) *PositionStore {
	return &PositionStore{
		entries:    make(map[string]OpenPosition),
		maxEntries: maxEntries,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

func positionKey(wallet, asset string) string {
	return strings.ToLower(strings.TrimSpace(wallet)) + ":" + asset
}

// Record stores an alerted opening trade. When the store grows past its
// limit, entries older than maxAge are purged.
func (ps *PositionStore) Record(t detector.Trade) {
	ts := t.Timestamp
	if ts.IsZero() {
		ts = ps.now()
	}

	ps.entries[positionKey(t.Wallet, t.Asset)] = OpenPosition{
		Wallet:    t.Wallet,
		Asset:     t.Asset,
		Size:      t.Size,
		Price:     t.Price,
		Amount:    t.Amount(),
		Title:     t.Title,
		Outcome:   t.Outcome,
		LinkSlug:  t.LinkSlug(),
		Timestamp: ts,
	}

	if len(ps.entries) > ps.maxEntries {
		ps.purge()
	}
}

// Close consumes the position matching a closing trade. The second result is
// false when nothing was tracked for the trade's wallet and asset.
func (ps *PositionStore) Close(t detector.Trade) (Cashout, bool) {
	key := positionKey(t.Wallet, t.Asset)
	pos, ok := ps.entries[key]
	if !ok {
		return Cashout{}, false
	}
	delete(ps.entries, key)

	open := decimal.NewFromFloat(pos.Price)
	closePrice := decimal.NewFromFloat(t.Price)
	diff := closePrice.Sub(open)

	pct := decimal.Zero
	if open.IsPositive() {
		pct = diff.Div(open).Mul(hundred)
	}

	return Cashout{
		Position:  pos,
		Close:     t,
		Profit:    diff.Mul(decimal.NewFromFloat(t.Size)),
		ProfitPct: pct,
	}, true
}

func (ps *PositionStore) Len() int {
	return len(ps.entries)
}

func (ps *PositionStore) purge() {
	cutoff := ps.now().Add(-ps.maxAge)
	for key, pos := range ps.entries {
		if pos.Timestamp.Before(cutoff) {
			delete(ps.entries, key)
		}
	}
}
