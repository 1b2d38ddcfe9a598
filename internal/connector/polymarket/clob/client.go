// Package clob is used to call Polymarket's CLOB endpoints.
package clob

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/omniverse/omnimarket/internal/price"
	"github.com/omniverse/omnimarket/pkg/httpclient"
)

// DefaultBaseURL is the production CLOB host.
const DefaultBaseURL = "https://clob.polymarket.com"

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

type MarketToken struct {
	TokenID string      `json:"token_id"`
	Outcome string      `json:"outcome"`
	Price   price.Price `json:"price"`
	Winner  bool        `json:"winner"`
}

type Market struct {
	ConditionID string        `json:"condition_id"`
	Question    string        `json:"question"`
	MarketSlug  string        `json:"market_slug"`
	Active      bool          `json:"active"`
	Closed      bool          `json:"closed"`
	Tokens      []MarketToken `json:"tokens"`
}

type MarketPage struct {
	Limit      int       `json:"limit"`
	Count      int       `json:"count"`
	NextCursor string    `json:"next_cursor"`
	Data       []*Market `json:"data"`
}

// Markets fetches one page of the market listing. An empty cursor starts
// from the beginning.
func (c *Client) Markets(ctx context.Context, cursor string) (*MarketPage, error) {
	query := url.Values{}
	if cursor != "" {
		query.Set("next_cursor", cursor)
	}
	page, err := httpclient.GetJSON[*MarketPage](ctx, c.httpClient, c.baseURL, "/markets", query, c.headers())
	if err != nil {
		return nil, fmt.Errorf("couldn't get markets at cursor %q: %w", cursor, err)
	}
	return page, nil
}

// AllMarkets walks every listing page until the upstream end sentinel.
func (c *Client) AllMarkets(ctx context.Context) ([]*Market, error) {
	markets := []*Market{}
	cursor := ""
	for {
		page, err := c.Markets(ctx, cursor)
		if err != nil {
			return nil, err
		}
		markets = append(markets, page.Data...)
		if page.NextCursor == "" || lastCursor(page.NextCursor) {
			return markets, nil
		}
		cursor = page.NextCursor
	}
}

// lastCursor reports whether the cursor is the end sentinel: the API encodes
// "-1" as base64 ("LTE=") on the final page.
func lastCursor(cursor string) bool {
	decoded, err := base64.StdEncoding.DecodeString(cursor)
	return err == nil && string(decoded) == "-1"
}

type BookLevel struct {
	Price price.Price `json:"price"`
	Size  price.Size  `json:"size"`
}

type Book struct {
	Market  string      `json:"market"`
	AssetID string      `json:"asset_id"`
	Bids    []BookLevel `json:"bids"`
	Asks    []BookLevel `json:"asks"`
}

// Book fetches the aggregated order book for one token.
func (c *Client) Book(ctx context.Context, tokenID string) (*Book, error) {
	query := url.Values{"token_id": {tokenID}}
	book, err := httpclient.GetJSON[*Book](ctx, c.httpClient, c.baseURL, "/book", query, c.headers())
	if err != nil {
		return nil, fmt.Errorf("couldn't get book for token %s: %w", tokenID, err)
	}
	return book, nil
}

type HistoryPoint struct {
	T int64   `json:"t"`
	P float64 `json:"p"`
}

type historyResponse struct {
	History []HistoryPoint `json:"history"`
}

// PricesHistory returns sampled prices for a token over a closed window.
// Fidelity is the sample spacing in minutes.
func (c *Client) PricesHistory(ctx context.Context, tokenID string, start, end time.Time, fidelityMinutes int) ([]HistoryPoint, error) {
	query := url.Values{
		"market":   {tokenID},
		"startTs":  {strconv.FormatInt(start.Unix(), 10)},
		"endTs":    {strconv.FormatInt(end.Unix(), 10)},
		"fidelity": {strconv.Itoa(fidelityMinutes)},
	}
	resp, err := httpclient.GetJSON[historyResponse](ctx, c.httpClient, c.baseURL, "/prices-history", query, c.headers())
	if err != nil {
		return nil, fmt.Errorf("couldn't get prices history for token %s: %w", tokenID, err)
	}
	return resp.History, nil
}

type Trade struct {
	ID        string      `json:"id"`
	Market    string      `json:"market"`
	AssetID   string      `json:"asset_id"`
	Side      string      `json:"side"`
	Outcome   string      `json:"outcome"`
	Price     price.Price `json:"price"`
	Size      price.Size  `json:"size"`
	Timestamp int64       `json:"timestamp"`
}

// Trades lists recent trades for a condition id.
func (c *Client) Trades(ctx context.Context, conditionID string, limit int) ([]Trade, error) {
	query := url.Values{"market": {conditionID}}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	trades, err := httpclient.GetJSON[[]Trade](ctx, c.httpClient, c.baseURL, "/trades", query, c.headers())
	if err != nil {
		return nil, fmt.Errorf("couldn't get trades for %s: %w", conditionID, err)
	}
	return trades, nil
}

func (c *Client) headers() http.Header {
	if c.apiKey == "" {
		return nil
	}
	return http.Header{"Authorization": {"Bearer " + c.apiKey}}
}
