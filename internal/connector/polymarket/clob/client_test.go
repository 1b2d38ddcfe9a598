package clob

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniverse/omnimarket/pkg/httpclient"
)

func TestAllMarketsStopsAtSentinel(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Query().Get("next_cursor") {
		case "":
			w.Write([]byte(`{"limit":1,"count":1,"next_cursor":"QQ==","data":[{"condition_id":"0xaaa","question":"A","market_slug":"a"}]}`))
		case "QQ==":
			w.Write([]byte(`{"limit":1,"count":1,"next_cursor":"LTE=","data":[{"condition_id":"0xbbb","question":"B","market_slug":"b"}]}`))
		default:
			http.Error(w, "bad cursor", http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	markets, err := c.AllMarkets(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), calls.Load(), "the -1 sentinel ends the walk")
	require.Len(t, markets, 2)
	assert.Equal(t, "0xaaa", markets[0].ConditionID)
	assert.Equal(t, "0xbbb", markets[1].ConditionID)
}

func TestAllMarketsStopsOnEmptyCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"limit":1,"count":1,"next_cursor":"","data":[{"condition_id":"0xaaa","question":"A","market_slug":"a"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	markets, err := c.AllMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 1)
}

func TestBookParsesDecimalStrings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/book", r.URL.Path)
		assert.Equal(t, "11111", r.URL.Query().Get("token_id"))
		w.Write([]byte(`{"market":"0xabc","asset_id":"11111",
			"bids":[{"price":"0.41","size":"120.5"}],
			"asks":[{"price":"0.43","size":"60"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	book, err := c.Book(context.Background(), "11111")
	require.NoError(t, err)

	require.Len(t, book.Bids, 1)
	assert.Equal(t, 0.41, book.Bids[0].Price.Float())
	assert.Equal(t, 120.5, book.Bids[0].Size.Float())
	require.Len(t, book.Asks, 1)
	assert.Equal(t, 0.43, book.Asks[0].Price.Float())
}

func TestPricesHistoryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/prices-history", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "11111", q.Get("market"))
		assert.Equal(t, "1700000000", q.Get("startTs"))
		assert.Equal(t, "1700086400", q.Get("endTs"))
		assert.Equal(t, "60", q.Get("fidelity"))
		w.Write([]byte(`{"history":[{"t":1700000000,"p":0.41}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	points, err := c.PricesHistory(context.Background(), "11111",
		time.Unix(1700000000, 0), time.Unix(1700086400, 0), 60)
	require.NoError(t, err)

	require.Len(t, points, 1)
	assert.Equal(t, int64(1700000000), points[0].T)
	assert.Equal(t, 0.41, points[0].P)
}

func TestTradesParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trades", r.URL.Path)
		assert.Equal(t, "0xabc", r.URL.Query().Get("market"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		w.Write([]byte(`[{"id":"t1","market":"0xabc","side":"BUY","outcome":"Yes","price":"0.41","size":"10.5","timestamp":1700000000}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	trades, err := c.Trades(context.Background(), "0xabc", 50)
	require.NoError(t, err)

	require.Len(t, trades, 1)
	assert.Equal(t, "t1", trades[0].ID)
	assert.Equal(t, 0.41, trades[0].Price.Float())
	assert.Equal(t, 10.5, trades[0].Size.Float())
}

func TestBearerHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{"history":[]}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "secret").PricesHistory(context.Background(), "1", time.Unix(0, 0), time.Unix(1, 0), 60)
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", got)

	_, err = New(srv.URL, "").PricesHistory(context.Background(), "1", time.Unix(0, 0), time.Unix(1, 0), 60)
	require.NoError(t, err)
	assert.Empty(t, got, "no credential, no auth header")
}

func TestMarketsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"down"}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.Markets(context.Background(), "")
	require.Error(t, err)

	var serr *httpclient.StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusBadGateway, serr.StatusCode)
}
