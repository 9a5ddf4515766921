package notifier

import (
	"fmt"
	"unicode/utf8"
	"whalewatch/internal/detector"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	eventURLBase  = "https://polymarket.com/event/"
	maxTitleRunes = 80
)

var printer = message.NewPrinter(language.English)

// EventURL returns the public event page for a slug, or "" without one.
func EventURL(slug string) string {
	if slug == "" {
		return ""
	}
	return eventURLBase + slug
}

// ShortAddress renders 0x1234…abcd style addresses.
func ShortAddress(addr string) string {
	if addr == "" {
		return "Unknown"
	}
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// TruncateTitle cuts a title to at most 80 runes.
func TruncateTitle(title string) string {
	if utf8.RuneCountInString(title) <= maxTitleRunes {
		return title
	}
	return string([]rune(title)[:maxTitleRunes])
}

// USD renders whole dollars with thousands separators, e.g. $12,500 or -$300.
func USD(v float64) string {
	if v < 0 {
		return printer.Sprintf("-$%.0f", -v)
	}
	return printer.Sprintf("$%.0f", v)
}

// Percent renders a one-decimal percentage.
func Percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// SignEmoji is green for non-negative values and red otherwise.
func SignEmoji(v float64) string {
	if v >= 0 {
		return "🟢"
	}
	return "🔴"
}

// Header returns the alert headline for a reliability tier.
func Header(tier detector.Tier) string {
	switch tier {
	case detector.TierUrgent:
		return "🚨🚨 URGENT - ENDING SOON 🚨🚨"
	case detector.TierVeryReliable:
		return "🚨 VERY RELIABLE 🚨"
	case detector.TierReliable:
		return "🔥 RELIABLE 🔥"
	case detector.TierMedium:
		return "⚠️ MEDIUM ⚠️"
	default:
		return "📊 LOW 📊"
	}
}

// SignalLabel is the human label shown for a signal.
func SignalLabel(sig detector.Signal) string {
	switch sig {
	case detector.NewWallet:
		return "🆕 New Wallet"
	case detector.LowActivity:
		return "👶 Low Activity"
	case detector.LongshotBet:
		return "🎰 Longshot Bet"
	case detector.HighVolumeShare:
		return "📊 High Volume Share"
	case detector.EndingSoon:
		return "⏰ Ending Soon"
	default:
		return sig.String()
	}
}

// SignalDetail renders one signal with the figure that triggered it.
func SignalDetail(alert InsiderAlert, sig detector.Signal) string {
	label := SignalLabel(sig)
	switch sig {
	case detector.NewWallet:
		if age, ok := alert.Profile.EffectiveAgeDays().Get(); ok {
			return fmt.Sprintf("%s (%d days)", label, age)
		}
	case detector.LowActivity:
		if n, ok := alert.Profile.RealTradeCount.Get(); ok {
			return fmt.Sprintf("%s (%d trades)", label, n)
		}
	case detector.LongshotBet:
		return fmt.Sprintf("%s (%s)", label, Percent(alert.Trade.Probability()))
	case detector.HighVolumeShare:
		return fmt.Sprintf("%s (%s)", label, Percent(alert.VolumeShare))
	case detector.EndingSoon:
		return label + " (within 24h!)"
	}
	return label
}

// AgeWarning marks wallet ages at or under the new wallet threshold.
func AgeWarning(alert InsiderAlert, age int) string {
	if age <= alert.MaxWalletAgeDays {
		return " ⚠️"
	}
	return ""
}

// TradeCountWarning marks trade counts at or under the low activity threshold.
func TradeCountWarning(alert InsiderAlert, n int) string {
	if n <= alert.MaxTradeCount {
		return " ⚠️"
	}
	return ""
}
