package detector

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Direction says whether a trade opens or closes a position.
type Direction int

const (
	Open Direction = iota
	Close
)

func (d Direction) String() string {
	if d == Close {
		return "CLOSE"
	}
	return "OPEN"
}

// DirectionFromSide maps a feed side field to a direction. Only SELL closes.
func DirectionFromSide(side string) Direction {
	if strings.EqualFold(strings.TrimSpace(side), "SELL") {
		return Close
	}
	return Open
}

// Trade is one feed event.
type Trade struct {
	ID          string
	Wallet      string
	Asset       string
	ConditionID string
	Direction   Direction
	Size        float64
	Price       float64
	Outcome     string
	Title       string
	Slug        string
	EventSlug   string
	// EndTime is the raw resolution deadline as delivered upstream, if any.
	EndTime   string
	Timestamp time.Time
}

// Amount is the notional value of the trade.
func (t Trade) Amount() float64 {
	return t.Size * t.Price
}

// Probability is the price expressed as a percentage.
func (t Trade) Probability() float64 {
	return t.Price * 100
}

// LinkSlug is the slug used for event page links, preferring the event slug.
func (t Trade) LinkSlug() string {
	if t.EventSlug != "" {
		return t.EventSlug
	}
	return t.Slug
}

// WalletProfile is the merged view of the wallet sources for one address.
type WalletProfile struct {
	Address              string
	ProfileAgeDays       Optional[int]
	FirstActivityAgeDays Optional[int]
	ChainAgeDays         Optional[int]
	RealTradeCount       Optional[int]
	LifetimePnl          Optional[float64]
	LifetimeVolume       Optional[float64]
	// FirstTradeDate is the UTC date of the earliest genuine trade, "" if unknown.
	FirstTradeDate string
}

// EffectiveAgeDays is the minimum of the present age sources.
func (p WalletProfile) EffectiveAgeDays() Optional[int] {
	return MinPresent(p.ProfileAgeDays, p.FirstActivityAgeDays, p.ChainAgeDays)
}

// ROI returns lifetime pnl over lifetime volume as a percentage.
func (p WalletProfile) ROI() Optional[float64] {
	pnl, ok := p.LifetimePnl.Get()
	if !ok {
		return None[float64]()
	}
	vol, ok := p.LifetimeVolume.Get()
	if !ok || vol <= 0 {
		return None[float64]()
	}
	return Some(pnl / vol * 100)
}

// MarketSnapshot is the market context attached to a trade.
type MarketSnapshot struct {
	ID          string
	Title       string
	Slug        string
	TotalVolume float64
	Liquidity   float64
	EndTime     string
}

// VolumeShare returns amount as a percentage of the market volume, or 0 when
// the volume is unknown.
func (m MarketSnapshot) VolumeShare(amount float64) float64 {
	if m.TotalVolume <= 0 {
		return 0
	}
	return amount / m.TotalVolume * 100
}

// AgeDays returns the whole days elapsed between t and now, floored at zero.
func AgeDays(t, now time.Time) int {
	d := now.Sub(t)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

var deadlineLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDeadline parses an upstream deadline. It accepts ISO-8601 timestamps and
// numeric unix times in seconds or milliseconds. Zone-less values are UTC.
func ParseDeadline(raw string) (time.Time, bool) {
	raw = strings.Trim(strings.TrimSpace(raw), `"`)
	if raw == "" || raw == "null" {
		return time.Time{}, false
	}

	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
			return time.Time{}, false
		}
		if f > 1e12 {
			return time.UnixMilli(int64(f)).UTC(), true
		}
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
	}

	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
