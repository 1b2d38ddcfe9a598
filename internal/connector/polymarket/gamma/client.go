// Package gamma is used to call Polymarket's Gamma metadata endpoints.
package gamma

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/omniverse/omnimarket/pkg/httpclient"
)

// DefaultBaseURL is the production Gamma API host.
const DefaultBaseURL = "https://gamma-api.polymarket.com"

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

// StringArray handles the double-encoded JSON arrays the API emits for
// outcomes, outcome prices and token ids.
type StringArray []string

func (a *StringArray) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return json.Unmarshal([]byte(s), (*[]string)(a))
}

type Market struct {
	ID                  string      `json:"id"`
	ConditionID         string      `json:"conditionId"`
	Question            string      `json:"question"`
	Slug                string      `json:"slug"`
	Category            string      `json:"category"`
	Active              bool        `json:"active"`
	Closed              bool        `json:"closed"`
	UMAResolutionStatus string      `json:"umaResolutionStatus"`
	Outcomes            StringArray `json:"outcomes"`
	OutcomePrices       StringArray `json:"outcomePrices"`
	ClobTokenIDs        StringArray `json:"clobTokenIds"`
	Volume              string      `json:"volume"`
	Liquidity           string      `json:"liquidity"`
	CreatedAt           *time.Time  `json:"createdAt"`
	EndDate             *time.Time  `json:"endDate"`
}

// Markets lists markets. A nil closed filter returns every market.
func (c *Client) Markets(ctx context.Context, limit, offset int, closed *bool) ([]*Market, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}
	if closed != nil {
		query.Set("closed", strconv.FormatBool(*closed))
	}
	return httpclient.GetJSON[[]*Market](ctx, c.httpClient, c.baseURL, "/markets", query, c.headers())
}

// MarketBySlug looks one market up by its URL slug. A nil market means the
// slug matched nothing.
func (c *Client) MarketBySlug(ctx context.Context, slug string) (*Market, error) {
	query := url.Values{"slug": {slug}}
	markets, err := httpclient.GetJSON[[]*Market](ctx, c.httpClient, c.baseURL, "/markets", query, c.headers())
	if err != nil {
		return nil, err
	}
	if len(markets) == 0 {
		return nil, nil
	}
	return markets[0], nil
}

func (c *Client) headers() http.Header {
	if c.apiKey == "" {
		return nil
	}
	return http.Header{"Authorization": {"Bearer " + c.apiKey}}
}
