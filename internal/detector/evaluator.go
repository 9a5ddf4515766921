package detector

import "time"

// Thresholds are the tunable constants behind each signal predicate.
type Thresholds struct {
	MaxWalletAgeDays       int
	MaxTradeCount          int
	MaxLongshotProbability float64 // percent
	MinVolumePercentage    float64 // percent of market volume
	ObviousProbability     float64 // percent; trades at or above are never scored
	EndingSoonWindow       time.Duration
}

// DefaultThresholds returns the production defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxWalletAgeDays:       30,
		MaxTradeCount:          10,
		MaxLongshotProbability: 20,
		MinVolumePercentage:    5,
		ObviousProbability:     80,
		EndingSoonWindow:       24 * time.Hour,
	}
}

// Gated reports whether a trade is excluded from scoring before any signal is
// evaluated: closing trades and obvious high-probability bets.
func (th Thresholds) Gated(t Trade) bool {
	if t.Direction == Close {
		return true
	}
	return t.Probability() >= th.ObviousProbability
}

// Evaluate computes the signal set for one trade. It is pure given now.
func (th Thresholds) Evaluate(t Trade, p WalletProfile, m MarketSnapshot, now time.Time) Set {
	if th.Gated(t) {
		return 0
	}

	var s Set

	if age, ok := p.EffectiveAgeDays().Get(); ok && age <= th.MaxWalletAgeDays {
		s = s.With(NewWallet)
	}

	if n, ok := p.RealTradeCount.Get(); ok && n <= th.MaxTradeCount {
		s = s.With(LowActivity)
	}

	if t.Probability() <= th.MaxLongshotProbability {
		s = s.With(LongshotBet)
	}

	if m.TotalVolume > 0 && m.VolumeShare(t.Amount()) >= th.MinVolumePercentage {
		s = s.With(HighVolumeShare)
	}

	if th.endingSoon(t, m, now) {
		s = s.With(EndingSoon)
	}

	return s
}

// endingSoon checks the trade deadline, falling back to the market's. A present
// but unparseable trade deadline counts as missing.
func (th Thresholds) endingSoon(t Trade, m MarketSnapshot, now time.Time) bool {
	raw := t.EndTime
	if raw == "" {
		raw = m.EndTime
	}
	end, ok := ParseDeadline(raw)
	if !ok {
		return false
	}
	left := end.Sub(now)
	return left > 0 && left <= th.EndingSoonWindow
}
