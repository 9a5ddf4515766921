package polymarketapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"whalewatch/config"

	"go.uber.org/zap"
)

// ErrNotFound is returned when a lookup succeeds but matches nothing.
var ErrNotFound = errors.New("not found")

type PolymarketApiClient struct {
	logger       *zap.Logger
	httpClient   *http.Client
	gammaBaseURL string
	dataBaseURL  string
}

func NewPolymarketApiClient(logger *zap.Logger, cfg *config.Config) *PolymarketApiClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PolymarketApiClient{
		logger: logger,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		gammaBaseURL: cfg.Polymarket.GammaAPIURL,
		dataBaseURL:  cfg.Polymarket.DataAPIURL,
	}
}

// Number decodes a JSON number or numeric string. Null, empty and malformed
// values decode as absent instead of failing the whole payload.
type Number struct {
	Value float64
	Valid bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		*n = Number{Value: f, Valid: true}
	}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// ---- Gamma API types ----

type GammaEvent struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Volume    Number `json:"volume"`
	Liquidity Number `json:"liquidity"`
	EndDate   string `json:"endDate,omitempty"`
}

type GammaMarket struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Question    string `json:"question"`
	ConditionID string `json:"conditionId"`
	Volume      Number `json:"volume"`
	Liquidity   Number `json:"liquidity"`
	EndDate     string `json:"endDate,omitempty"`
	Active      bool   `json:"active"`
	Closed      bool   `json:"closed"`
}

// PublicProfile is the account metadata served by /public-profile.
type PublicProfile struct {
	ProxyWallet string `json:"proxyWallet"`
	Name        string `json:"name"`
	Pseudonym   string `json:"pseudonym"`
	CreatedAt   string `json:"createdAt"`
	Pnl         Number `json:"pnl"`
	Volume      Number `json:"volume"`
}

// CreatedTime parses CreatedAt. The second result is false when missing or malformed.
func (p *PublicProfile) CreatedTime() (time.Time, bool) {
	if p == nil || strings.TrimSpace(p.CreatedAt) == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(p.CreatedAt))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// GetActiveMarkets lists open markets in one page.
func (c *PolymarketApiClient) GetActiveMarkets(
	ctx context.Context,
	limit int,
) ([]GammaMarket, error) {
	if limit <= 0 {
		limit = 500
	}

	u, err := url.Parse(c.gammaBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid gammaBaseURL: %w", err)
	}
	u.Path = "/markets"

	q := u.Query()
	q.Set("active", "true")
	q.Set("closed", "false")
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	var markets []GammaMarket
	if err := c.doGet(ctx, u.String(), &markets); err != nil {
		return nil, fmt.Errorf("get active markets: %w", err)
	}

	return markets, nil
}

// GetEventBySlug fetches the first open event matching an event slug, e.g.
// "will-the-us-invade-venezuela-in-2025".
func (c *PolymarketApiClient) GetEventBySlug(
	ctx context.Context,
	slug string,
) (*GammaEvent, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("slug is empty")
	}

	u, err := url.Parse(c.gammaBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid gammaBaseURL: %w", err)
	}
	u.Path = "/events"

	q := u.Query()
	q.Set("slug", slug)
	q.Set("closed", "false")
	u.RawQuery = q.Encode()

	var events []GammaEvent
	if err := c.doGet(ctx, u.String(), &events); err != nil {
		return nil, fmt.Errorf("get event by slug: %w", err)
	}

	if len(events) == 0 {
		return nil, fmt.Errorf("event %q: %w", slug, ErrNotFound)
	}

	return &events[0], nil
}

// GetPublicProfile fetches account metadata for a wallet.
func (c *PolymarketApiClient) GetPublicProfile(
	ctx context.Context,
	wallet string,
) (*PublicProfile, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil, fmt.Errorf("wallet is empty")
	}

	u, err := url.Parse(c.gammaBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid gammaBaseURL: %w", err)
	}
	u.Path = "/public-profile"

	q := u.Query()
	q.Set("wallet", wallet)
	u.RawQuery = q.Encode()

	var profile PublicProfile
	if err := c.doGet(ctx, u.String(), &profile); err != nil {
		return nil, fmt.Errorf("get public profile: %w", err)
	}

	return &profile, nil
}

// ---- Data API types ----

// Trade represents a trade from the data API.
type Trade struct {
	ProxyWallet     string  `json:"proxyWallet"`
	Side            string  `json:"side"` // BUY or SELL
	Size            float64 `json:"size"`
	Price           float64 `json:"price"`
	Timestamp       int64   `json:"timestamp"`
	ConditionID     string  `json:"conditionId"`
	Asset           string  `json:"asset"`
	TransactionHash string  `json:"transactionHash"`

	// Market metadata
	Title     string          `json:"title"`
	Slug      string          `json:"slug"`
	EventSlug string          `json:"eventSlug"`
	Outcome   string          `json:"outcome"`
	EndDate   json.RawMessage `json:"endDate,omitempty"` // ISO string or unix number

	// User profile
	Name      string `json:"name"`
	Pseudonym string `json:"pseudonym"`
}

// EndDateRaw returns the deadline as text with JSON quoting removed.
func (t Trade) EndDateRaw() string {
	s := strings.TrimSpace(string(t.EndDate))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(t.EndDate, &str); err == nil {
		return str
	}
	return s
}

// UnmarshalJSON decodes numeric fields leniently. A malformed size, price or
// timestamp decodes as zero instead of failing the record.
func (t *Trade) UnmarshalJSON(b []byte) error {
	type plain Trade
	aux := struct {
		*plain
		Size      Number `json:"size"`
		Price     Number `json:"price"`
		Timestamp Number `json:"timestamp"`
	}{plain: (*plain)(t)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	t.Size = aux.Size.Value
	t.Price = aux.Price.Value
	t.Timestamp = int64(aux.Timestamp.Value)
	return nil
}

// Activity represents user activity from the data API.
type Activity struct {
	ProxyWallet     string  `json:"proxyWallet"`
	Timestamp       int64   `json:"timestamp"`
	ConditionID     string  `json:"conditionId"`
	Type            string  `json:"type"` // TRADE, SPLIT, MERGE, REDEEM, REWARD, CONVERSION
	Size            float64 `json:"size"`
	UsdcSize        float64 `json:"usdcSize"`
	Price           float64 `json:"price"`
	Side            string  `json:"side"`
	TransactionHash string  `json:"transactionHash"`
}

// UnmarshalJSON decodes numeric fields leniently, like Trade.
func (a *Activity) UnmarshalJSON(b []byte) error {
	type plain Activity
	aux := struct {
		*plain
		Timestamp Number `json:"timestamp"`
		Size      Number `json:"size"`
		UsdcSize  Number `json:"usdcSize"`
		Price     Number `json:"price"`
	}{plain: (*plain)(a)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	a.Timestamp = int64(aux.Timestamp.Value)
	a.Size = aux.Size.Value
	a.UsdcSize = aux.UsdcSize.Value
	a.Price = aux.Price.Value
	return nil
}

// GetLargeTrades fetches the most recent trades whose cash value is at least minAmount.
func (c *PolymarketApiClient) GetLargeTrades(
	ctx context.Context,
	minAmount float64,
	limit int,
) ([]Trade, error) {
	u, err := url.Parse(c.dataBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid dataBaseURL: %w", err)
	}
	u.Path = "/trades"

	q := u.Query()
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	q.Set("filterType", "CASH")
	q.Set("filterAmount", strconv.FormatInt(int64(minAmount), 10))
	u.RawQuery = q.Encode()

	var records []json.RawMessage
	if err := c.doGet(ctx, u.String(), &records); err != nil {
		return nil, fmt.Errorf("get large trades: %w", err)
	}

	return decodeRecords[Trade](c.logger, records, "trade"), nil
}

// GetTradeActivity fetches a wallet's TRADE activity. Non-trade ledger events are
// dropped even if the server ignores the type filter.
func (c *PolymarketApiClient) GetTradeActivity(
	ctx context.Context,
	wallet string,
	limit int,
) ([]Activity, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil, fmt.Errorf("wallet is empty")
	}

	u, err := url.Parse(c.dataBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid dataBaseURL: %w", err)
	}
	u.Path = "/activity"

	q := u.Query()
	q.Set("user", wallet)
	q.Set("type", "TRADE")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	u.RawQuery = q.Encode()

	var records []json.RawMessage
	if err := c.doGet(ctx, u.String(), &records); err != nil {
		return nil, fmt.Errorf("get trade activity: %w", err)
	}
	activity := decodeRecords[Activity](c.logger, records, "activity")

	trades := activity[:0]
	for _, a := range activity {
		if strings.EqualFold(a.Type, "TRADE") {
			trades = append(trades, a)
		}
	}

	return trades, nil
}

// decodeRecords decodes each element on its own so one malformed record is
// skipped without losing the rest of the list.
func decodeRecords[T any](logger *zap.Logger, records []json.RawMessage, kind string) []T {
	out := make([]T, 0, len(records))
	for i, raw := range records {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			logger.Warn("skipping malformed record",
				zap.String("kind", kind),
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		out = append(out, v)
	}
	return out
}

// doGet is a helper that performs a GET request and decodes JSON response.
func (c *PolymarketApiClient) doGet(ctx context.Context, url string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(bytes.TrimSpace(body)))
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}

	return nil
}
