package app

import (
	"context"
	"strings"
	"time"
	"whalewatch/clients/polymarketapi"
	"whalewatch/internal/detector"
)

// shortID truncates long IDs for readable logging.
func shortID(s string) string {
	if len(s) <= 14 {
		return s
	}
	return s[:6] + "…" + s[len(s)-6:]
}

// nz returns fallback if s is empty or whitespace-only.
func nz(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// unixTime converts upstream timestamps, which are seconds but occasionally
// milliseconds.
func unixTime(ts int64) time.Time {
	if ts > 1e12 {
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}

// toDetectorTrade maps a feed record into the detector's trade model.
func toDetectorTrade(t polymarketapi.Trade) detector.Trade {
	var ts time.Time
	if t.Timestamp > 0 {
		ts = unixTime(t.Timestamp)
	}

	return detector.Trade{
		ID:          strings.TrimSpace(t.TransactionHash),
		Wallet:      t.ProxyWallet,
		Asset:       t.Asset,
		ConditionID: t.ConditionID,
		Direction:   detector.DirectionFromSide(t.Side),
		Size:        t.Size,
		Price:       t.Price,
		Outcome:     t.Outcome,
		Title:       t.Title,
		Slug:        t.Slug,
		EventSlug:   t.EventSlug,
		EndTime:     t.EndDateRaw(),
		Timestamp:   ts,
	}
}

// sleepCtx waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
