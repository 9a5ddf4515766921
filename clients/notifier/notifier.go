package notifier

import (
	"context"
	"errors"
	"time"
	"whalewatch/internal/detector"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// ErrNoSinks is returned when a MultiNotifier has nothing to deliver to.
var ErrNoSinks = errors.New("no notification sinks configured")

// InsiderAlert contains all the data needed for an insider alert notification.
type InsiderAlert struct {
	Trade   detector.Trade
	Profile detector.WalletProfile
	Market  detector.MarketSnapshot

	Signals     detector.Set
	Priority    int
	Tier        detector.Tier
	VolumeShare float64 // Percent of market volume, 0 when unknown

	// Warning marks in the wallet section use these limits.
	MaxWalletAgeDays int
	MaxTradeCount    int

	Timestamp time.Time
}

// Title returns the trade title, falling back to the market title.
func (a InsiderAlert) Title() string {
	if a.Trade.Title != "" {
		return a.Trade.Title
	}
	if a.Market.Title != "" {
		return a.Market.Title
	}
	return "Unknown"
}

// LinkSlug prefers the event slug, then the market slug, then the snapshot slug.
func (a InsiderAlert) LinkSlug() string {
	if s := a.Trade.LinkSlug(); s != "" {
		return s
	}
	return a.Market.Slug
}

// CashoutAlert is sent when an alerted wallet closes its position.
type CashoutAlert struct {
	Wallet   string
	Title    string
	Outcome  string
	LinkSlug string

	OpenAmount  float64
	OpenPrice   float64
	CloseAmount float64
	ClosePrice  float64

	Profit    decimal.Decimal
	ProfitPct decimal.Decimal

	TotalPnl detector.Optional[float64]

	Timestamp time.Time
}

// Notifier is the interface for sending alerts to various channels.
type Notifier interface {
	SendInsiderAlert(ctx context.Context, alert InsiderAlert) error
	SendCashout(ctx context.Context, alert CashoutAlert) error
	SendText(ctx context.Context, text string) error

	// Close cleans up any resources.
	Close() error
}

// MultiNotifier broadcasts alerts to multiple notifiers. A send succeeds when
// at least one sink accepted it.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a new MultiNotifier with the given notifiers.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	// Filter out nil notifiers
	var active []Notifier
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	return &MultiNotifier{notifiers: active}
}

func (m *MultiNotifier) SendInsiderAlert(ctx context.Context, alert InsiderAlert) error {
	return m.broadcast(func(n Notifier) error { return n.SendInsiderAlert(ctx, alert) })
}

func (m *MultiNotifier) SendCashout(ctx context.Context, alert CashoutAlert) error {
	return m.broadcast(func(n Notifier) error { return n.SendCashout(ctx, alert) })
}

func (m *MultiNotifier) SendText(ctx context.Context, text string) error {
	return m.broadcast(func(n Notifier) error { return n.SendText(ctx, text) })
}

func (m *MultiNotifier) broadcast(send func(Notifier) error) error {
	if len(m.notifiers) == 0 {
		return ErrNoSinks
	}

	var errs error
	delivered := false
	for _, n := range m.notifiers {
		if err := send(n); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		delivered = true
	}

	if delivered {
		return nil
	}
	return errs
}

// Close closes all registered notifiers.
func (m *MultiNotifier) Close() error {
	var errs error
	for _, n := range m.notifiers {
		errs = multierr.Append(errs, n.Close())
	}
	return errs
}

// Count returns the number of registered notifiers.
func (m *MultiNotifier) Count() int {
	return len(m.notifiers)
}
