// Package api is used to call Kalshi's trade API endpoints.
package api

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/omniverse/omnimarket/pkg/httpclient"
)

// DefaultBaseURL is the production trade API root.
const DefaultBaseURL = "https://api.elections.kalshi.com/trade-api/v2"

type Client struct {
	httpClient *http.Client
	baseURL    string
	basePath   string // path component of baseURL, part of every signature
	keyID      string
	key        *rsa.PrivateKey

	now func() time.Time
}

// New builds a client. Passing an empty keyID or nil key yields an
// unauthenticated client; market data endpoints accept that.
func New(baseURL, keyID string, key *rsa.PrivateKey) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	basePath := ""
	if u, err := url.Parse(baseURL); err == nil {
		basePath = u.Path
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		basePath:   basePath,
		keyID:      keyID,
		key:        key,
		now:        time.Now,
	}
}

// Market is the wire shape of one market. Prices are whole cents.
type Market struct {
	Ticker         string     `json:"ticker"`
	EventTicker    string     `json:"event_ticker"`
	Title          string     `json:"title"`
	Category       string     `json:"category"`
	Status         string     `json:"status"`
	YesBid         int64      `json:"yes_bid"`
	YesAsk         int64      `json:"yes_ask"`
	LastPrice      int64      `json:"last_price"`
	Volume         int64      `json:"volume"`
	Liquidity      int64      `json:"liquidity"`
	OpenTime       *time.Time `json:"open_time"`
	CloseTime      *time.Time `json:"close_time"`
	ExpirationTime *time.Time `json:"expiration_time"`
	Result         string     `json:"result"`
}

type MarketPage struct {
	Markets []*Market `json:"markets"`
	Cursor  string    `json:"cursor"`
}

type marketResponse struct {
	Market *Market `json:"market"`
}

// Candlestick is one OHLC bucket. Price fields are nil when the bucket saw
// no trades.
type Candlestick struct {
	EndPeriodTS int64 `json:"end_period_ts"`
	Price       struct {
		Open  *int64 `json:"open"`
		High  *int64 `json:"high"`
		Low   *int64 `json:"low"`
		Close *int64 `json:"close"`
		Mean  *int64 `json:"mean"`
	} `json:"price"`
	Volume int64 `json:"volume"`
}

type candlesticksResponse struct {
	Candlesticks []*Candlestick `json:"candlesticks"`
}

// Orderbook carries resting YES and NO bids as [price_cents, contracts] pairs.
type Orderbook struct {
	Yes [][2]int64 `json:"yes"`
	No  [][2]int64 `json:"no"`
}

type orderbookResponse struct {
	Orderbook *Orderbook `json:"orderbook"`
}

type Trade struct {
	TradeID     string    `json:"trade_id"`
	Ticker      string    `json:"ticker"`
	Count       int64     `json:"count"`
	CreatedTime time.Time `json:"created_time"`
	YesPrice    int64     `json:"yes_price"`
	NoPrice     int64     `json:"no_price"`
	TakerSide   string    `json:"taker_side"`
}

type TradePage struct {
	Trades []*Trade `json:"trades"`
	Cursor string   `json:"cursor"`
}

// Markets fetches one page of the market listing.
func (c *Client) Markets(ctx context.Context, status, cursor string, limit int) (*MarketPage, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	page, err := get[*MarketPage](ctx, c, "/markets", query)
	if err != nil {
		return nil, fmt.Errorf("couldn't get markets page: %w", err)
	}
	return page, nil
}

// AllMarkets walks the cursor pagination until the listing is exhausted.
func (c *Client) AllMarkets(ctx context.Context, status string) ([]*Market, error) {
	var markets []*Market
	cursor := ""
	for {
		page, err := c.Markets(ctx, status, cursor, 0)
		if err != nil {
			return nil, fmt.Errorf("couldn't get markets for cursor %q: %w", cursor, err)
		}
		markets = append(markets, page.Markets...)
		if page.Cursor == "" {
			return markets, nil
		}
		cursor = page.Cursor
	}
}

func (c *Client) Market(ctx context.Context, ticker string) (*Market, error) {
	resp, err := get[marketResponse](ctx, c, "/markets/"+ticker, nil)
	if err != nil {
		return nil, fmt.Errorf("couldn't get market %s: %w", ticker, err)
	}
	if resp.Market == nil {
		return nil, fmt.Errorf("market %s missing from response", ticker)
	}
	return resp.Market, nil
}

// Candlesticks fetches OHLC history for a market. The series ticker is the
// first segment of the market ticker. periodMinutes is the bucket width.
func (c *Client) Candlesticks(ctx context.Context, series, ticker string, start, end time.Time, periodMinutes int) ([]*Candlestick, error) {
	query := url.Values{}
	query.Set("start_ts", strconv.FormatInt(start.Unix(), 10))
	query.Set("end_ts", strconv.FormatInt(end.Unix(), 10))
	query.Set("period_interval", strconv.Itoa(periodMinutes))

	resp, err := get[candlesticksResponse](ctx, c, "/series/"+series+"/markets/"+ticker+"/candlesticks", query)
	if err != nil {
		return nil, fmt.Errorf("couldn't get candlesticks for %s: %w", ticker, err)
	}
	return resp.Candlesticks, nil
}

func (c *Client) Orderbook(ctx context.Context, ticker string, depth int) (*Orderbook, error) {
	query := url.Values{}
	if depth > 0 {
		query.Set("depth", strconv.Itoa(depth))
	}

	resp, err := get[orderbookResponse](ctx, c, "/markets/"+ticker+"/orderbook", query)
	if err != nil {
		return nil, fmt.Errorf("couldn't get orderbook for %s: %w", ticker, err)
	}
	if resp.Orderbook == nil {
		return &Orderbook{}, nil
	}
	return resp.Orderbook, nil
}

func (c *Client) Trades(ctx context.Context, ticker string, minTS time.Time, limit int) (*TradePage, error) {
	query := url.Values{}
	query.Set("ticker", ticker)
	if !minTS.IsZero() {
		query.Set("min_ts", strconv.FormatInt(minTS.Unix(), 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	page, err := get[*TradePage](ctx, c, "/markets/trades", query)
	if err != nil {
		return nil, fmt.Errorf("couldn't get trades for %s: %w", ticker, err)
	}
	return page, nil
}

func get[T any](ctx context.Context, c *Client, endpoint string, query url.Values) (T, error) {
	headers, err := c.authHeaders(http.MethodGet, c.basePath+endpoint)
	if err != nil {
		var zero T
		return zero, err
	}
	return httpclient.GetJSON[T](ctx, c.httpClient, c.baseURL, endpoint, query, headers)
}

// authHeaders signs timestamp+method+path with RSA-PSS, the scheme Kalshi
// requires on authenticated calls. The query string is not signed.
func (c *Client) authHeaders(method, path string) (http.Header, error) {
	if c.keyID == "" || c.key == nil {
		return nil, nil
	}

	ts := strconv.FormatInt(c.now().UnixMilli(), 10)
	digest := sha256.Sum256([]byte(ts + method + path))
	sig, err := rsa.SignPSS(rand.Reader, c.key, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return nil, fmt.Errorf("couldn't sign request: %w", err)
	}

	h := http.Header{}
	h.Set("KALSHI-ACCESS-KEY", c.keyID)
	h.Set("KALSHI-ACCESS-TIMESTAMP", ts)
	h.Set("KALSHI-ACCESS-SIGNATURE", base64.StdEncoding.EncodeToString(sig))
	return h, nil
}
