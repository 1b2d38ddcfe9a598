// Package kalshi adapts Kalshi's trade API to the connector capabilities.
package kalshi

import (
	"context"
	"crypto/rsa"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/omniverse/omnimarket/internal/connector"
	"github.com/omniverse/omnimarket/internal/connector/kalshi/api"
	"github.com/omniverse/omnimarket/internal/metrics"
	"github.com/omniverse/omnimarket/internal/mockdata"
	"github.com/omniverse/omnimarket/internal/orderbook"
	"github.com/omniverse/omnimarket/internal/price"
	"github.com/omniverse/omnimarket/internal/retry"
	"github.com/omniverse/omnimarket/internal/schema"
)

// syncPageLimit bounds the listing page a sync pass validates.
const syncPageLimit = 200

// Config carries the live credentials and endpoint.
type Config struct {
	BaseURL string
	KeyID   string
	Key     *rsa.PrivateKey
}

type Connector struct {
	api    *api.Client
	mock   *mockdata.Source
	policy retry.Policy
	log    *zap.Logger
}

var _ connector.Connector = (*Connector)(nil)

// New builds the connector. The mode is fixed here: live when the API key id
// and private key are both configured, mock otherwise.
func New(cfg Config, src *mockdata.Source, policy retry.Policy, log *zap.Logger) *Connector {
	c := &Connector{
		policy: policy,
		log:    log.With(zap.String("component", "kalshi")),
	}
	c.policy.OnRetry = func(attempt int) {
		metrics.UpstreamRetries.WithLabelValues(string(schema.ProviderKalshi)).Inc()
		c.log.Warn("retrying upstream call", zap.Int("attempt", attempt))
	}

	if cfg.KeyID != "" && cfg.Key != nil {
		c.api = api.New(cfg.BaseURL, cfg.KeyID, cfg.Key)
	} else {
		c.mock = src
	}
	return c
}

func (c *Connector) Provider() schema.Provider {
	return schema.ProviderKalshi
}

func (c *Connector) Mode() connector.Mode {
	if c.api != nil {
		return connector.ModeLive
	}
	return connector.ModeMock
}

func (c *Connector) ListMarkets(ctx context.Context, q connector.ListQuery) ([]*schema.MarketMeta, error) {
	if c.mock != nil {
		out := make([]*schema.MarketMeta, 0)
		for _, m := range c.mock.Markets() {
			if m.Provider == schema.ProviderKalshi && q.Matches(m) {
				out = append(out, m)
			}
		}
		return q.Page(out), nil
	}

	raw, err := observe(ctx, c, "list_markets", func(ctx context.Context) ([]*api.Market, error) {
		return c.api.AllMarkets(ctx, upstreamStatus(q.Status))
	})
	if err != nil {
		return nil, err
	}

	out := make([]*schema.MarketMeta, 0, len(raw))
	for _, m := range raw {
		meta, err := normalizeMarket(m)
		if err != nil {
			return nil, err
		}
		if q.Matches(meta) {
			out = append(out, meta)
		}
	}
	slices.SortFunc(out, func(a, b *schema.MarketMeta) int {
		return strings.Compare(a.ID, b.ID)
	})
	return q.Page(out), nil
}

func (c *Connector) GetMarket(ctx context.Context, marketID string) (*schema.MarketMeta, error) {
	ticker, err := c.ticker(marketID)
	if err != nil {
		return nil, err
	}
	if c.mock != nil {
		return c.mock.Market(marketID)
	}

	raw, err := observe(ctx, c, "get_market", func(ctx context.Context) (*api.Market, error) {
		return c.api.Market(ctx, ticker)
	})
	if err != nil {
		return nil, err
	}
	return normalizeMarket(raw)
}

func (c *Connector) GetPrice(ctx context.Context, marketID string) (*schema.PriceQuote, error) {
	if c.mock != nil {
		if _, err := c.ticker(marketID); err != nil {
			return nil, err
		}
		return c.mock.Quote(marketID)
	}

	meta, err := c.GetMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	return &schema.PriceQuote{
		MarketID: marketID,
		TS:       time.Now().UTC(),
		Outcomes: meta.Outcomes,
	}, nil
}

func (c *Connector) GetTimeseries(ctx context.Context, marketID string, q connector.SeriesQuery) (*schema.TimeSeries, error) {
	ticker, err := c.ticker(marketID)
	if err != nil {
		return nil, err
	}

	interval := q.Interval
	if interval == "" {
		interval = schema.Interval1h
	}
	if !interval.Valid() {
		return nil, fmt.Errorf("%w: unknown interval %q", connector.ErrBadRequest, string(interval))
	}

	if c.mock != nil {
		return c.mock.Series(marketID, interval, q.Start, q.End)
	}

	// The upstream wants a closed window, so open ends get a concrete one.
	start, end := q.Start, q.End
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		start = end.Add(-24 * time.Hour)
	}

	candles, err := observe(ctx, c, "get_timeseries", func(ctx context.Context) ([]*api.Candlestick, error) {
		return c.api.Candlesticks(ctx, seriesTicker(ticker), ticker, start, end, int(interval.Duration()/time.Minute))
	})
	if err != nil {
		return nil, err
	}

	points := make([]schema.PricePoint, 0, len(candles))
	for _, cd := range candles {
		if cd.Price.Close == nil {
			continue
		}
		points = append(points, schema.PricePoint{
			TS:     time.Unix(cd.EndPeriodTS, 0).UTC(),
			Price:  price.FromCents(*cd.Price.Close).Float(),
			Volume: float64(cd.Volume),
		})
	}

	ts := &schema.TimeSeries{MarketID: marketID, Interval: interval, Points: points}
	if err := ts.Validate(); err != nil {
		return nil, fmt.Errorf("candles for %s: %w", marketID, err)
	}
	return ts, nil
}

func (c *Connector) GetOrderbook(ctx context.Context, marketID string, depth int) (*schema.OrderBook, error) {
	ticker, err := c.ticker(marketID)
	if err != nil {
		return nil, err
	}
	if c.mock != nil {
		return c.mock.Book(marketID, depth)
	}

	raw, err := observe(ctx, c, "get_orderbook", func(ctx context.Context) (*api.Orderbook, error) {
		return c.api.Orderbook(ctx, ticker, depth)
	})
	if err != nil {
		return nil, err
	}

	book := orderbook.New()
	for _, lvl := range raw.Yes {
		book.Set(price.FromCents(lvl[0]).Float(), float64(lvl[1]), "bids")
	}
	for _, lvl := range raw.No {
		// A resting NO bid at p cents is a YES ask at 100-p.
		book.Set(price.FromCents(100-lvl[0]).Float(), float64(lvl[1]), "asks")
	}
	bids, _ := book.GetTopN("bids", depth)
	asks, _ := book.GetTopN("asks", depth)

	ob := &schema.OrderBook{
		MarketID: marketID,
		Bids:     toLevels(bids),
		Asks:     toLevels(asks),
		TS:       time.Now().UTC(),
	}
	if err := ob.Validate(); err != nil {
		return nil, fmt.Errorf("orderbook for %s: %w", marketID, err)
	}
	return ob, nil
}

func (c *Connector) GetEvents(ctx context.Context, marketID string, q connector.EventsQuery) ([]*schema.EventRecord, error) {
	ticker, err := c.ticker(marketID)
	if err != nil {
		return nil, err
	}
	if c.mock != nil {
		return c.mock.Events(marketID, q.Since, q.Limit)
	}

	page, err := observe(ctx, c, "get_events", func(ctx context.Context) (*api.TradePage, error) {
		return c.api.Trades(ctx, ticker, q.Since, q.Limit)
	})
	if err != nil {
		return nil, err
	}

	events := make([]*schema.EventRecord, 0, len(page.Trades))
	for _, t := range page.Trades {
		events = append(events, normalizeTrade(marketID, t))
	}
	slices.SortFunc(events, func(a, b *schema.EventRecord) int {
		return a.TS.Compare(b.TS)
	})

	out := make([]*schema.EventRecord, 0, len(events))
	for _, ev := range events {
		if !q.Since.IsZero() && !ev.TS.After(q.Since) {
			continue
		}
		out = append(out, ev)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// Sync fetches a listing page and validates that every entry still
// normalizes. Nothing is stored; the point is to prove the pipeline works.
func (c *Connector) Sync(ctx context.Context) (*connector.SyncReport, error) {
	if c.mock != nil {
		count := 0
		for _, m := range c.mock.Markets() {
			if m.Provider == schema.ProviderKalshi {
				count++
			}
		}
		return &connector.SyncReport{
			Provider:      schema.ProviderKalshi,
			MarketsSynced: count,
			Status:        connector.SyncCompleted,
			CompletedAt:   c.mock.AsOf(),
		}, nil
	}

	page, err := observe(ctx, c, "sync", func(ctx context.Context) (*api.MarketPage, error) {
		return c.api.Markets(ctx, "", "", syncPageLimit)
	})
	if err != nil {
		return nil, err
	}

	err = connector.ForEachLimit(ctx, len(page.Markets), func(i int) error {
		_, err := normalizeMarket(page.Markets[i])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("sync validation: %w", err)
	}

	c.log.Info("sync completed", zap.Int("markets", len(page.Markets)))
	return &connector.SyncReport{
		Provider:      schema.ProviderKalshi,
		MarketsSynced: len(page.Markets),
		Status:        connector.SyncCompleted,
		CompletedAt:   time.Now().UTC(),
	}, nil
}

// ticker checks the id belongs to this provider and returns the upstream
// ticker. Ids with a foreign prefix read as unknown markets, not bad input.
func (c *Connector) ticker(marketID string) (string, error) {
	p, slug, ok := schema.SplitMarketID(marketID)
	if !ok || p != schema.ProviderKalshi {
		return "", fmt.Errorf("%w: market %q", connector.ErrNotFound, marketID)
	}
	return slug, nil
}

// observe runs one upstream call through the retry policy and counts it.
func observe[T any](ctx context.Context, c *Connector, capability string, op func(context.Context) (T, error)) (T, error) {
	out, err := retry.Do(ctx, c.policy, op)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.UpstreamRequests.WithLabelValues(string(schema.ProviderKalshi), capability, outcome).Inc()

	if err != nil {
		return out, connector.Classify(err)
	}
	return out, nil
}

func normalizeMarket(m *api.Market) (*schema.MarketMeta, error) {
	status, err := normalizeStatus(m.Status)
	if err != nil {
		return nil, fmt.Errorf("market %s: %w", m.Ticker, err)
	}

	meta := &schema.MarketMeta{
		ID:       schema.ProviderKalshi.MarketID(m.Ticker),
		Provider: schema.ProviderKalshi,
		Title:    m.Title,
		Category: m.Category,
		Status:   status,
		Outcomes: []schema.Outcome{
			{Name: "Yes", Price: price.FromCents(m.LastPrice).Float()},
			{Name: "No", Price: price.FromCents(100 - m.LastPrice).Float()},
		},
		Volume:    float64(m.Volume),
		Liquidity: price.FromCents(m.Liquidity).Float(),
		CreatedAt: m.OpenTime,
		CloseAt:   m.CloseTime,
		SettleAt:  m.ExpirationTime,
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("market %s: %w", m.Ticker, err)
	}
	return meta, nil
}

func normalizeTrade(marketID string, t *api.Trade) *schema.EventRecord {
	outcome, cents, side := "Yes", t.YesPrice, "buy"
	if t.TakerSide == "no" {
		outcome, cents, side = "No", t.NoPrice, "sell"
	}

	return &schema.EventRecord{
		ID:       "trade_" + t.TradeID,
		MarketID: marketID,
		Type:     schema.EventTrade,
		TS:       t.CreatedTime.UTC(),
		Payload: map[string]any{
			"outcome": outcome,
			"price":   price.FromCents(cents).Float(),
			"side":    side,
			"size":    float64(t.Count),
		},
	}
}

// normalizeStatus maps upstream lifecycle names onto the canonical three.
// Unknown statuses are an error, never a guess.
func normalizeStatus(s string) (schema.MarketStatus, error) {
	switch strings.ToLower(s) {
	case "active", "open":
		return schema.StatusActive, nil
	case "closed":
		return schema.StatusClosed, nil
	case "settled", "finalized", "determined":
		return schema.StatusSettled, nil
	}
	return "", &schema.ValidationError{Field: "status", Reason: fmt.Sprintf("unrecognized value %q", s)}
}

// upstreamStatus maps a canonical status filter to the listing parameter.
func upstreamStatus(s schema.MarketStatus) string {
	switch s {
	case schema.StatusActive:
		return "open"
	case schema.StatusClosed:
		return "closed"
	case schema.StatusSettled:
		return "settled"
	}
	return ""
}

// seriesTicker is the first segment of a structured ticker
// (SERIES-EVENT-MARKET).
func seriesTicker(ticker string) string {
	if s, _, ok := strings.Cut(ticker, "-"); ok {
		return s
	}
	return ticker
}

func toLevels(levels []orderbook.Level) []schema.BookLevel {
	out := make([]schema.BookLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, schema.BookLevel{Price: l.Price, Size: l.Size})
	}
	return out
}
