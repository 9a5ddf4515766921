package detector

// insiderCombo is the canonical two-signal insider pattern: a new wallet that is
// also barely active or betting on a longshot.
func insiderCombo(s Set) bool {
	return s.Has(NewWallet) && (s.Has(LowActivity) || s.Has(LongshotBet))
}

// ShouldAlert decides whether a signal set warrants a notification.
func ShouldAlert(s Set) bool {
	n := s.Len()
	switch {
	case s.Has(EndingSoon) && n >= 2:
		return true
	case n >= 3:
		return true
	case n == 2:
		return insiderCombo(s)
	default:
		return false
	}
}

// Priority ranks an alert. It never gates.
func Priority(s Set, amount float64) int {
	var p int
	switch {
	case amount >= 50000:
		p = 50
	case amount >= 20000:
		p = 30
	case amount >= 10000:
		p = 20
	default:
		p = 10
	}

	p += 15 * s.Len()

	if s.Has(NewWallet) && s.Has(LowActivity) {
		p += 25
	}
	if s.Has(LongshotBet) && s.Has(NewWallet) {
		p += 20
	}
	if s.Has(EndingSoon) {
		p += 30
	}
	return p
}

// Tier labels how much a signal set can be trusted.
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierReliable
	TierVeryReliable
	TierUrgent
)

func (t Tier) String() string {
	switch t {
	case TierUrgent:
		return "URGENT"
	case TierVeryReliable:
		return "VERY RELIABLE"
	case TierReliable:
		return "RELIABLE"
	case TierMedium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// Reliability maps a signal set to its display tier.
func Reliability(s Set) Tier {
	n := s.Len()
	switch {
	case s.Has(EndingSoon) && n >= 2:
		return TierUrgent
	case n >= 3:
		return TierVeryReliable
	case n == 2 && insiderCombo(s):
		return TierReliable
	case n == 2:
		return TierMedium
	default:
		return TierLow
	}
}
