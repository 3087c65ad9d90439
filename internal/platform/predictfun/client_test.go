package predictfun

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/crossarb/internal/normalize"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

var cond = fmt.Sprintf("0x%064x", 0xbeef)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/categories/will-base-launch-a-token-in-2026":
			fmt.Fprintf(w, `{"success":true,"data":{"slug":"will-base-launch-a-token-in-2026","markets":[
				{"id":41,"title":"Yes","question":"Will Base launch a token?","status":"REGISTERED","polymarketConditionIds":["%s"]},
				{"id":42,"title":"No book","status":"REGISTERED","polymarketConditionIds":[]}
			]}}`, cond)
		case "/categories/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/markets/41/orderbook":
			_, _ = w.Write([]byte(`{"success":true,"data":{"marketId":41,
				"bids":[[0.30,100],[0.35,10]],"asks":[[0.45,5],[0.40,50]],"updateTimestampMs":1700000000000}}`))
		case "/markets/42/orderbook":
			_, _ = w.Write([]byte(`{"success":false}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
}

func TestClient_Fetch(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "secret", Workers: 2}, nil, testLogger())

	res, err := c.Fetch(context.Background(), []string{"will-base-launch-a-token-in-2026", "missing"})
	require.NoError(t, err)
	require.Len(t, res.Records, 2)

	rec := res.Records[0].(normalize.PredictFunRecord)
	assert.Equal(t, "41", rec.MarketID)
	assert.Equal(t, cond, rec.ConditionID)
	assert.Equal(t, "will-base-launch-a-token-in-2026", rec.CategorySlug)
	require.NotNil(t, rec.YesPrice)
	require.NotNil(t, rec.NoPrice)
	assert.Equal(t, 0.40, *rec.YesPrice)
	assert.Equal(t, 0.65, *rec.NoPrice)
	assert.Equal(t, [2]string{YesToken("41"), NoToken("41")}, rec.TokenIDs)

	noBook := res.Records[1].(normalize.PredictFunRecord)
	assert.Nil(t, noBook.YesPrice)
	assert.Equal(t, normalize.ReasonMissingIdentifier, normalize.Convert(noBook).Reason)

	books, err := res.Books.FetchDepth(context.Background(), []string{YesToken("41"), NoToken("41"), "other"})
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, 0.40, books[YesToken("41")].BestAsk)
	no := books[NoToken("41")]
	assert.Equal(t, 0.65, no.BestAsk)
	assert.Equal(t, 0.60, no.BestBid)
}

func TestClient_FetchAllCategoriesFail(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "secret"}, nil, testLogger())
	_, err := c.Fetch(context.Background(), []string{"missing"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "no category loaded"))
}

func TestClient_GetCategoryErrorNamesRequestedSlug(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "secret"}, nil, testLogger())
	_, err := c.GetCategory(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get category missing")
}

func TestAPIOrderbook_PricesByComparison(t *testing.T) {
	b := APIOrderbook{
		Bids: [][]float64{{0.20, 1}, {0.33333, 1}, {0.25, 1}},
		Asks: [][]float64{{0.60, 1}, {0.41, 1}},
	}
	yes, no := b.Prices()
	require.NotNil(t, yes)
	require.NotNil(t, no)
	assert.Equal(t, 0.41, *yes)
	assert.Equal(t, 0.6667, *no)

	yes, no = APIOrderbook{}.Prices()
	assert.Nil(t, yes)
	assert.Nil(t, no)
}

func TestBooks_Empty(t *testing.T) {
	_, err := Books{}.FetchDepth(context.Background(), []string{"x"})
	assert.Error(t, err)
}
