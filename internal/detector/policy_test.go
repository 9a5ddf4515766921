package detector

import "testing"

func TestShouldAlert(t *testing.T) {
	tests := []struct {
		name string
		set  Set
		want bool
	}{
		{"empty", NewSet(), false},
		{"single new wallet", NewSet(NewWallet), false},
		{"single ending soon", NewSet(EndingSoon), false},
		{"new + low", NewSet(NewWallet, LowActivity), true},
		{"new + longshot", NewSet(NewWallet, LongshotBet), true},
		{"new + volume", NewSet(NewWallet, HighVolumeShare), false},
		{"low + volume", NewSet(LowActivity, HighVolumeShare), false},
		{"low + longshot", NewSet(LowActivity, LongshotBet), false},
		{"ending + volume", NewSet(EndingSoon, HighVolumeShare), true},
		{"ending + low", NewSet(EndingSoon, LowActivity), true},
		{"three weak", NewSet(LowActivity, LongshotBet, HighVolumeShare), true},
		{"all", NewSet(AllSignals()...), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldAlert(tt.set); got != tt.want {
				t.Errorf("ShouldAlert(%v) = %v, want %v", tt.set, got, tt.want)
			}
		})
	}
}

func TestPriority(t *testing.T) {
	tests := []struct {
		name   string
		set    Set
		amount float64
		want   int
	}{
		{"small empty", NewSet(), 4000, 10},
		{"tier 10k", NewSet(), 10000, 20},
		{"tier 20k", NewSet(), 20000, 30},
		{"tier 50k", NewSet(), 50000, 50},
		{"classic insider", NewSet(NewWallet, LowActivity, LongshotBet), 8000, 100},
		{"ending soon pair", NewSet(NewWallet, EndingSoon), 8000, 10 + 30 + 30},
		{"everything at 60k", NewSet(AllSignals()...), 60000, 50 + 75 + 25 + 20 + 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Priority(tt.set, tt.amount); got != tt.want {
				t.Errorf("Priority(%v, %.0f) = %d, want %d", tt.set, tt.amount, got, tt.want)
			}
		})
	}
}

func TestPriority_MonotonicInSignals(t *testing.T) {
	all := AllSignals()
	for mask := 0; mask < 1<<len(all); mask++ {
		var base Set
		for i, sig := range all {
			if mask&(1<<i) != 0 {
				base = base.With(sig)
			}
		}
		for _, extra := range all {
			if base.Has(extra) {
				continue
			}
			for _, amount := range []float64{100, 15000, 75000} {
				before := Priority(base, amount)
				after := Priority(base.With(extra), amount)
				if after < before {
					t.Errorf("adding %v to %v lowered priority %d -> %d", extra, base, before, after)
				}
			}
		}
	}
}

func TestReliability(t *testing.T) {
	tests := []struct {
		set  Set
		want Tier
	}{
		{NewSet(NewWallet, EndingSoon), TierUrgent},
		{NewSet(NewWallet, LowActivity, LongshotBet), TierVeryReliable},
		{NewSet(NewWallet, LowActivity), TierReliable},
		{NewSet(LowActivity, HighVolumeShare), TierMedium},
		{NewSet(LongshotBet), TierLow},
	}

	for _, tt := range tests {
		if got := Reliability(tt.set); got != tt.want {
			t.Errorf("Reliability(%v) = %v, want %v", tt.set, got, tt.want)
		}
	}
}

func TestSet(t *testing.T) {
	s := NewSet(EndingSoon, NewWallet, NewWallet)
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
	names := s.Names()
	if len(names) != 2 || names[0] != "NEW_WALLET" || names[1] != "ENDING_SOON" {
		t.Errorf("Names = %v, want canonical order", names)
	}
	if s.Has(LowActivity) {
		t.Error("unexpected LOW_ACTIVITY")
	}
	if s.With(Signal(200)) != s {
		t.Error("unknown signal must not change the set")
	}
	if s.String() != "{NEW_WALLET,ENDING_SOON}" {
		t.Errorf("String = %q", s.String())
	}
}
