package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/scan"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type message struct {
	title, body string
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []message
	err  error
}

func (r *recordingSender) Send(_ context.Context, title, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, message{title, body})
	return r.err
}

func (r *recordingSender) Name() string { return "recording" }

func opportunity(id string, ct domain.ComparisonType, roi float64) domain.ArbitrageOpportunity {
	return domain.ArbitrageOpportunity{
		ID: id,
		Pair: domain.MatchedPair{
			Type:   ct,
			First:  domain.Market{Platform: domain.PlatformPolymarket, Title: "Will BTC reach $100k?"},
			Second: domain.Market{Platform: domain.PlatformPredictFun},
		},
		Strategy: domain.StrategyYesFirstNoSecond,
		Cost:     0.8,
		Profit:   0.2,
		ROIPct:   roi,
	}
}

func result(opps ...domain.ArbitrageOpportunity) *scan.Result {
	res := &scan.Result{RunID: "run-1"}
	for _, o := range opps {
		res.Comparisons = append(res.Comparisons, scan.ComparisonResult{
			Type:          o.Type(),
			Opportunities: []domain.ArbitrageOpportunity{o},
		})
	}
	return res
}

func TestNotifier_EventFilter(t *testing.T) {
	rec := &recordingSender{}
	n := NewNotifier([]Sender{rec}, []string{EventScanFailed}, 0, nil, testLogger())

	require.NoError(t, n.Notify(context.Background(), EventArbDetected, "t", "m"))
	assert.Empty(t, rec.msgs)

	require.NoError(t, n.Notify(context.Background(), EventScanFailed, "t", "m"))
	assert.Len(t, rec.msgs, 1)
}

func TestNotifier_NoEventsAllowsAll(t *testing.T) {
	rec := &recordingSender{}
	n := NewNotifier([]Sender{rec}, nil, 0, nil, testLogger())
	require.NoError(t, n.Notify(context.Background(), "anything", "t", "m"))
	assert.Len(t, rec.msgs, 1)
}

func TestNotifier_SenderFailureDoesNotStopOthers(t *testing.T) {
	bad := &recordingSender{err: errors.New("boom")}
	good := &recordingSender{}
	n := NewNotifier([]Sender{bad, good}, nil, 0, nil, testLogger())

	err := n.Notify(context.Background(), EventArbDetected, "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Len(t, good.msgs, 1)
}

func TestNotifier_NotifyScanFiltersByROI(t *testing.T) {
	rec := &recordingSender{}
	n := NewNotifier([]Sender{rec}, []string{EventArbDetected}, 2.0, nil, testLogger())

	n.NotifyScan(context.Background(), result(
		opportunity("a", domain.ComparisonPolymarketPredictFun, 25),
		opportunity("b", domain.ComparisonPolymarketOpinion, 1.5),
	))

	require.Len(t, rec.msgs, 1)
	assert.Equal(t, "Arbitrage detected (1)", rec.msgs[0].title)
	assert.Contains(t, rec.msgs[0].body, "polymarket_predictfun")
	assert.Contains(t, rec.msgs[0].body, "YES on Polymarket, NO on predict.fun")
	assert.Contains(t, rec.msgs[0].body, "ROI 25.00%")
	assert.NotContains(t, rec.msgs[0].body, "polymarket_opinion")
}

func TestNotifier_NotifyScanNothingQualifies(t *testing.T) {
	rec := &recordingSender{}
	n := NewNotifier([]Sender{rec}, nil, 50, nil, testLogger())
	n.NotifyScan(context.Background(), result(opportunity("a", domain.ComparisonPolymarketPredictFun, 25)))
	n.NotifyScan(context.Background(), &scan.Result{})
	assert.Empty(t, rec.msgs)
}

func TestNotifier_NotifyScanDedup(t *testing.T) {
	rec := &recordingSender{}
	n := NewNotifier([]Sender{rec}, nil, 0, NewDedup(time.Hour), testLogger())
	res := result(opportunity("a", domain.ComparisonPolymarketPredictFun, 25))

	n.NotifyScan(context.Background(), res)
	n.NotifyScan(context.Background(), res)
	assert.Len(t, rec.msgs, 1)
}

func TestNotifier_NotifyScanListsFailedPlatforms(t *testing.T) {
	rec := &recordingSender{}
	n := NewNotifier([]Sender{rec}, nil, 0, nil, testLogger())
	res := result(opportunity("a", domain.ComparisonPolymarketPredictFun, 25))
	res.Failed = map[domain.Platform]string{domain.PlatformOpinion: "timeout"}

	n.NotifyScan(context.Background(), res)
	require.Len(t, rec.msgs, 1)
	assert.Equal(t, "Arbitrage detected (1)", rec.msgs[0].title)
	assert.Contains(t, rec.msgs[0].body, "Unavailable: Opinion.trade")
}

func TestNotifier_NotifyScanFailed(t *testing.T) {
	rec := &recordingSender{}
	n := NewNotifier([]Sender{rec}, []string{EventScanFailed}, 0, nil, testLogger())
	n.NotifyScanFailed(context.Background(), errors.New("all platforms failed"))
	require.Len(t, rec.msgs, 1)
	assert.Equal(t, "Scan failed", rec.msgs[0].title)
	assert.Equal(t, "all platforms failed", rec.msgs[0].body)
}

func TestNotifier_NotifyScanRetriesAfterFailedSend(t *testing.T) {
	rec := &recordingSender{err: errors.New("telegram down")}
	n := NewNotifier([]Sender{rec}, nil, 0, NewDedup(time.Hour), testLogger())
	res := result(opportunity("opp-1", domain.ComparisonPolymarketPredictFun, 25))

	n.NotifyScan(context.Background(), res)
	require.Len(t, rec.msgs, 1)

	rec.err = nil
	n.NotifyScan(context.Background(), res)
	require.Len(t, rec.msgs, 2)

	n.NotifyScan(context.Background(), res)
	assert.Len(t, rec.msgs, 2)
}

func TestNotifier_NotifyScanFilteredEventNotRecorded(t *testing.T) {
	dedup := NewDedup(time.Hour)
	rec := &recordingSender{}
	n := NewNotifier([]Sender{rec}, []string{EventScanFailed}, 0, dedup, testLogger())

	n.NotifyScan(context.Background(), result(opportunity("opp-1", domain.ComparisonPolymarketPredictFun, 25)))
	assert.Empty(t, rec.msgs)
	assert.False(t, dedup.Seen("opp-1"))
}

func TestDedup(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d := NewDedup(time.Minute)
	d.now = func() time.Time { return now }

	assert.False(t, d.Seen("x"))
	assert.False(t, d.Seen("x"))

	d.Mark("x", "y")
	assert.True(t, d.Seen("x"))
	assert.True(t, d.Seen("y"))

	now = now.Add(2 * time.Minute)
	assert.False(t, d.Seen("x"))
	assert.Empty(t, d.seen)
}

func TestDedup_ZeroTTLDisabled(t *testing.T) {
	d := NewDedup(0)
	d.Mark("x")
	assert.False(t, d.Seen("x"))
}

func TestTelegramSender_Send(t *testing.T) {
	var got map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelegramSender("tok", "42")
	s.apiBase = srv.URL
	require.NoError(t, s.Send(context.Background(), "Title", "body"))

	assert.Equal(t, "/bottok/sendMessage", path)
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "*Title*\nbody", got["text"])
	assert.Equal(t, "Markdown", got["parse_mode"])
	assert.Equal(t, "telegram", s.Name())
}

func TestDiscordSender_Send(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	require.NoError(t, s.Send(context.Background(), "Title", "body"))
	assert.Equal(t, "**Title**\nbody", got["content"])
}

func TestDiscordSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
