package detector

import "strings"

// Signal is one boolean fact about a trade.
type Signal uint8

const (
	NewWallet Signal = iota
	LowActivity
	LongshotBet
	HighVolumeShare
	EndingSoon

	signalCount
)

var signalNames = [signalCount]string{
	NewWallet:       "NEW_WALLET",
	LowActivity:     "LOW_ACTIVITY",
	LongshotBet:     "LONGSHOT_BET",
	HighVolumeShare: "HIGH_VOLUME_SHARE",
	EndingSoon:      "ENDING_SOON",
}

func (s Signal) String() string {
	if s < signalCount {
		return signalNames[s]
	}
	return "UNKNOWN"
}

// AllSignals lists every signal in canonical order.
func AllSignals() []Signal {
	out := make([]Signal, 0, signalCount)
	for s := Signal(0); s < signalCount; s++ {
		out = append(out, s)
	}
	return out
}

// Set is an immutable set of signals. The zero value is empty.
type Set uint8

// NewSet builds a set from the given signals.
func NewSet(signals ...Signal) Set {
	var s Set
	for _, sig := range signals {
		s = s.With(sig)
	}
	return s
}

// With returns a copy of s that also contains sig.
func (s Set) With(sig Signal) Set {
	if sig >= signalCount {
		return s
	}
	return s | 1<<sig
}

func (s Set) Has(sig Signal) bool {
	return sig < signalCount && s&(1<<sig) != 0
}

func (s Set) Len() int {
	n := 0
	for v := s; v != 0; v &= v - 1 {
		n++
	}
	return n
}

func (s Set) Empty() bool {
	return s == 0
}

// Signals returns the members in canonical order.
func (s Set) Signals() []Signal {
	out := make([]Signal, 0, s.Len())
	for sig := Signal(0); sig < signalCount; sig++ {
		if s.Has(sig) {
			out = append(out, sig)
		}
	}
	return out
}

// Names returns the member names in canonical order, for logging.
func (s Set) Names() []string {
	sigs := s.Signals()
	out := make([]string, len(sigs))
	for i, sig := range sigs {
		out[i] = sig.String()
	}
	return out
}

func (s Set) String() string {
	return "{" + strings.Join(s.Names(), ",") + "}"
}
