package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"whalewatch/clients"
	"whalewatch/config"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// upstream fakes the Polymarket APIs and the Telegram Bot API on one server.
type upstream struct {
	mu       sync.Mutex
	messages []string
}

func (u *upstream) handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/markets":
		io.WriteString(w, `[{"conditionId":"c1","question":"Q1","slug":"q1","volume":"1000000"}]`)
	case r.URL.Path == "/trades":
		io.WriteString(w, `[]`)
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		var body struct {
			Text string `json:"text"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		u.mu.Lock()
		u.messages = append(u.messages, body.Text)
		u.mu.Unlock()
		io.WriteString(w, `{"ok":true}`)
	default:
		http.NotFound(w, r)
	}
}

func (u *upstream) Messages() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.messages...)
}

func newTestRunner(t *testing.T) (*Runner, *upstream) {
	t.Helper()

	up := &upstream{}
	server := httptest.NewServer(http.HandlerFunc(up.handler))
	t.Cleanup(server.Close)

	cfg := config.Defaults()
	cfg.Telegram.BotToken = "token"
	cfg.Telegram.ChatID = "chat"
	cfg.Telegram.APIURL = server.URL
	cfg.Polymarket.GammaAPIURL = server.URL
	cfg.Polymarket.DataAPIURL = server.URL
	cfg.Polymarket.PolygonRPCURL = server.URL
	cfg.Monitor.PollInterval = 10 * time.Millisecond
	cfg.Monitor.ErrorBackoff = 10 * time.Millisecond
	cfg.Monitor.FetchRetryDelay = 0
	cfg.HealthServer.Enabled = false

	clts, err := clients.NewClients(zap.NewNop(), cfg)
	if err != nil {
		t.Fatalf("NewClients: %v", err)
	}
	t.Cleanup(func() { clts.Close() })

	return NewRunner(clts, cfg), up
}

func TestNewRunnerWiresConfig(t *testing.T) {
	r, _ := newTestRunner(t)

	mcfg := r.tradeMonitor.cfg
	if mcfg.MinTradeAmount != 4000 {
		t.Errorf("MinTradeAmount = %v, want 4000", mcfg.MinTradeAmount)
	}
	if mcfg.Thresholds.MaxWalletAgeDays != 30 || mcfg.Thresholds.ObviousProbability != 80 {
		t.Errorf("thresholds not mapped: %+v", mcfg.Thresholds)
	}
	if mcfg.PositionsMaxEntries != 1000 || mcfg.PositionsMaxAge != 7*24*time.Hour {
		t.Errorf("position limits not mapped: %d %v", mcfg.PositionsMaxEntries, mcfg.PositionsMaxAge)
	}
	if r.wallets.chain == nil {
		t.Error("expected chain source to be wired")
	}
}

func TestRunnerRunLifecycle(t *testing.T) {
	r, up := newTestRunner(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if r.markets.Size() != 1 {
		t.Errorf("market cache size = %d, want 1", r.markets.Size())
	}

	msgs := up.Messages()
	if len(msgs) == 0 || !strings.Contains(msgs[0], "Insider monitor started") {
		t.Errorf("expected startup message, got %v", msgs)
	}

	if stats := r.tradeMonitor.Stats(); stats.Polls == 0 {
		t.Error("expected at least one poll")
	}
}

func TestStatsEndpoints(t *testing.T) {
	r, _ := newTestRunner(t)
	r.startTime = time.Now().Add(-time.Minute)

	server := httptest.NewServer(r.statsMux())
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("health = %d %q", resp.StatusCode, body)
	}

	resp, err = http.Get(server.URL + "/stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	defer resp.Body.Close()

	var stats ServiceStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Build.Commit == "" || stats.Build.GoVersion == "" {
		t.Errorf("missing build info: %+v", stats.Build)
	}
	if stats.UptimeSec < 60 {
		t.Errorf("UptimeSec = %d, want >= 60", stats.UptimeSec)
	}
	if stats.Notifications.Sinks != 1 || !stats.Notifications.TelegramEnabled || stats.Notifications.DiscordEnabled {
		t.Errorf("unexpected notification stats: %+v", stats.Notifications)
	}
}

func TestStatsWebSocket(t *testing.T) {
	r, _ := newTestRunner(t)

	server := httptest.NewServer(r.statsMux())
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var stats ServiceStats
	if err := conn.ReadJSON(&stats); err != nil {
		t.Fatalf("read: %v", err)
	}
	if stats.Build.GoVersion == "" {
		t.Error("expected stats payload over websocket")
	}
}
