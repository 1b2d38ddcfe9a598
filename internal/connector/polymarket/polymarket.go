// Package polymarket adapts Polymarket's Gamma and CLOB APIs to the
// connector capabilities.
package polymarket

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/omniverse/omnimarket/internal/connector"
	"github.com/omniverse/omnimarket/internal/connector/polymarket/clob"
	"github.com/omniverse/omnimarket/internal/connector/polymarket/gamma"
	"github.com/omniverse/omnimarket/internal/metrics"
	"github.com/omniverse/omnimarket/internal/mockdata"
	"github.com/omniverse/omnimarket/internal/orderbook"
	"github.com/omniverse/omnimarket/internal/price"
	"github.com/omniverse/omnimarket/internal/retry"
	"github.com/omniverse/omnimarket/internal/schema"
	"github.com/omniverse/omnimarket/pkg/hashset"
)

// listFetchLimit bounds how many markets one listing call pulls from Gamma.
const listFetchLimit = 500

// Config carries the live credential and endpoints.
type Config struct {
	GammaURL string
	ClobURL  string
	APIKey   string
}

type Connector struct {
	gamma  *gamma.Client
	clob   *clob.Client
	mock   *mockdata.Source
	policy retry.Policy
	log    *zap.Logger
}

var _ connector.Connector = (*Connector)(nil)

// New builds the connector. The mode is fixed here: live when the API key is
// configured, mock otherwise.
func New(cfg Config, src *mockdata.Source, policy retry.Policy, log *zap.Logger) *Connector {
	c := &Connector{
		policy: policy,
		log:    log.With(zap.String("component", "polymarket")),
	}
	c.policy.OnRetry = func(attempt int) {
		metrics.UpstreamRetries.WithLabelValues(string(schema.ProviderPolymarket)).Inc()
		c.log.Warn("retrying upstream call", zap.Int("attempt", attempt))
	}

	if cfg.APIKey != "" {
		c.gamma = gamma.New(cfg.GammaURL, cfg.APIKey)
		c.clob = clob.New(cfg.ClobURL, cfg.APIKey)
	} else {
		c.mock = src
	}
	return c
}

func (c *Connector) Provider() schema.Provider {
	return schema.ProviderPolymarket
}

func (c *Connector) Mode() connector.Mode {
	if c.mock == nil {
		return connector.ModeLive
	}
	return connector.ModeMock
}

func (c *Connector) ListMarkets(ctx context.Context, q connector.ListQuery) ([]*schema.MarketMeta, error) {
	if c.mock != nil {
		out := make([]*schema.MarketMeta, 0)
		for _, m := range c.mock.Markets() {
			if m.Provider == schema.ProviderPolymarket && q.Matches(m) {
				out = append(out, m)
			}
		}
		return q.Page(out), nil
	}

	var closed *bool
	switch q.Status {
	case schema.StatusActive:
		f := false
		closed = &f
	case schema.StatusClosed, schema.StatusSettled:
		t := true
		closed = &t
	}

	raw, err := observe(ctx, c, "list_markets", func(ctx context.Context) ([]*gamma.Market, error) {
		return c.gamma.Markets(ctx, listFetchLimit, 0, closed)
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
	if c.mock != nil {
		if _, err := c.slug(marketID); err != nil {
			return nil, err
		}
		return c.mock.Market(marketID)
	}

	raw, err := c.lookup(ctx, "get_market", marketID)
	if err != nil {
		return nil, err
	}
	return normalizeMarket(raw)
}

func (c *Connector) GetPrice(ctx context.Context, marketID string) (*schema.PriceQuote, error) {
	if c.mock != nil {
		if _, err := c.slug(marketID); err != nil {
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
	if _, err := c.slug(marketID); err != nil {
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

	raw, err := c.lookup(ctx, "get_timeseries", marketID)
	if err != nil {
		return nil, err
	}
	token, err := firstToken(raw)
	if err != nil {
		return nil, err
	}

	// The upstream wants a closed window, so open ends get a concrete one.
	start, end := q.Start, q.End
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		start = end.Add(-24 * time.Hour)
	}

	history, err := observe(ctx, c, "get_timeseries", func(ctx context.Context) ([]clob.HistoryPoint, error) {
		return c.clob.PricesHistory(ctx, token, start, end, int(interval.Duration()/time.Minute))
	})
	if err != nil {
		return nil, err
	}

	points := make([]schema.PricePoint, 0, len(history))
	for _, h := range history {
		points = append(points, schema.PricePoint{
			TS:    time.Unix(h.T, 0).UTC(),
			Price: h.P,
		})
	}

	ts := &schema.TimeSeries{MarketID: marketID, Interval: interval, Points: points}
	if err := ts.Validate(); err != nil {
		return nil, fmt.Errorf("prices history for %s: %w", marketID, err)
	}
	return ts, nil
}

func (c *Connector) GetOrderbook(ctx context.Context, marketID string, depth int) (*schema.OrderBook, error) {
	if c.mock != nil {
		if _, err := c.slug(marketID); err != nil {
			return nil, err
		}
		return c.mock.Book(marketID, depth)
	}

	raw, err := c.lookup(ctx, "get_orderbook", marketID)
	if err != nil {
		return nil, err
	}
	token, err := firstToken(raw)
	if err != nil {
		return nil, err
	}

	upstream, err := observe(ctx, c, "get_orderbook", func(ctx context.Context) (*clob.Book, error) {
		return c.clob.Book(ctx, token)
	})
	if err != nil {
		return nil, err
	}

	book := orderbook.New()
	for _, lvl := range upstream.Bids {
		book.Set(lvl.Price.Float(), lvl.Size.Float(), "bids")
	}
	for _, lvl := range upstream.Asks {
		book.Set(lvl.Price.Float(), lvl.Size.Float(), "asks")
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
	if c.mock != nil {
		if _, err := c.slug(marketID); err != nil {
			return nil, err
		}
		return c.mock.Events(marketID, q.Since, q.Limit)
	}

	raw, err := c.lookup(ctx, "get_events", marketID)
	if err != nil {
		return nil, err
	}

	trades, err := observe(ctx, c, "get_events", func(ctx context.Context) ([]clob.Trade, error) {
		return c.clob.Trades(ctx, raw.ConditionID, q.Limit)
	})
	if err != nil {
		return nil, err
	}

	events := make([]*schema.EventRecord, 0, len(trades))
	for _, t := range trades {
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

// Sync walks the CLOB listing and validates that every entry still
// normalizes. Nothing is stored; the point is to prove the pipeline works.
func (c *Connector) Sync(ctx context.Context) (*connector.SyncReport, error) {
	if c.mock != nil {
		count := 0
		for _, m := range c.mock.Markets() {
			if m.Provider == schema.ProviderPolymarket {
				count++
			}
		}
		return &connector.SyncReport{
			Provider:      schema.ProviderPolymarket,
			MarketsSynced: count,
			Status:        connector.SyncCompleted,
			CompletedAt:   c.mock.AsOf(),
		}, nil
	}

	raw, err := observe(ctx, c, "sync", func(ctx context.Context) ([]*clob.Market, error) {
		return c.clob.AllMarkets(ctx)
	})
	if err != nil {
		return nil, err
	}

	err = connector.ForEachLimit(ctx, len(raw), func(i int) error {
		return validateListing(raw[i])
	})
	if err != nil {
		return nil, fmt.Errorf("sync validation: %w", err)
	}

	// Page boundaries can repeat entries, so the count is over unique ids.
	seen := hashset.New[string]()
	for _, m := range raw {
		seen.Add(m.ConditionID)
	}

	c.log.Info("sync completed", zap.Int("markets", seen.Len()))
	return &connector.SyncReport{
		Provider:      schema.ProviderPolymarket,
		MarketsSynced: seen.Len(),
		Status:        connector.SyncCompleted,
		CompletedAt:   time.Now().UTC(),
	}, nil
}

// slug checks the id belongs to this provider and returns the upstream slug.
// Ids with a foreign prefix read as unknown markets, not bad input.
func (c *Connector) slug(marketID string) (string, error) {
	p, slug, ok := schema.SplitMarketID(marketID)
	if !ok || p != schema.ProviderPolymarket {
		return "", fmt.Errorf("%w: market %q", connector.ErrNotFound, marketID)
	}
	return strings.ToLower(slug), nil
}

// lookup resolves the Gamma record behind a canonical id.
func (c *Connector) lookup(ctx context.Context, capability, marketID string) (*gamma.Market, error) {
	slug, err := c.slug(marketID)
	if err != nil {
		return nil, err
	}

	raw, err := observe(ctx, c, capability, func(ctx context.Context) (*gamma.Market, error) {
		return c.gamma.MarketBySlug(ctx, slug)
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: market %q", connector.ErrNotFound, marketID)
	}
	return raw, nil
}

// observe runs one upstream call through the retry policy and counts it.
func observe[T any](ctx context.Context, c *Connector, capability string, op func(context.Context) (T, error)) (T, error) {
	out, err := retry.Do(ctx, c.policy, op)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.UpstreamRequests.WithLabelValues(string(schema.ProviderPolymarket), capability, outcome).Inc()

	if err != nil {
		return out, connector.Classify(err)
	}
	return out, nil
}

func normalizeMarket(m *gamma.Market) (*schema.MarketMeta, error) {
	if m.Slug == "" {
		return nil, fmt.Errorf("market %s: %w", m.ID, &schema.ValidationError{Field: "slug", Reason: "is missing"})
	}
	if len(m.Outcomes) != len(m.OutcomePrices) {
		return nil, fmt.Errorf("market %s: %w", m.Slug, &schema.ValidationError{
			Field:  "outcomePrices",
			Reason: fmt.Sprintf("%d prices for %d outcomes", len(m.OutcomePrices), len(m.Outcomes)),
		})
	}

	outcomes := make([]schema.Outcome, 0, len(m.Outcomes))
	for i, name := range m.Outcomes {
		p, err := price.Parse(m.OutcomePrices[i])
		if err != nil {
			return nil, fmt.Errorf("market %s: %w", m.Slug, &schema.ValidationError{
				Field:  "outcomePrices",
				Reason: fmt.Sprintf("bad decimal %q", m.OutcomePrices[i]),
			})
		}
		outcomes = append(outcomes, schema.Outcome{Name: name, Price: p.Float()})
	}

	volume, err := parseAmount("volume", m.Slug, m.Volume)
	if err != nil {
		return nil, err
	}
	liquidity, err := parseAmount("liquidity", m.Slug, m.Liquidity)
	if err != nil {
		return nil, err
	}

	meta := &schema.MarketMeta{
		ID:        schema.ProviderPolymarket.MarketID(m.Slug),
		Provider:  schema.ProviderPolymarket,
		Title:     m.Question,
		Category:  m.Category,
		Status:    statusFromFlags(m.Closed, m.UMAResolutionStatus == "resolved"),
		Outcomes:  outcomes,
		Volume:    volume,
		Liquidity: liquidity,
		CreatedAt: m.CreatedAt,
		CloseAt:   m.EndDate,
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("market %s: %w", m.Slug, err)
	}
	return meta, nil
}

// parseAmount reads the decimal strings Gamma uses for dollar totals. An
// absent value reads as zero.
func parseAmount(field, slug, s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("market %s: %w", slug, &schema.ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("bad decimal %q", s),
		})
	}
	return d.InexactFloat64(), nil
}

func normalizeTrade(marketID string, t clob.Trade) *schema.EventRecord {
	return &schema.EventRecord{
		ID:       "trade_" + t.ID,
		MarketID: marketID,
		Type:     schema.EventTrade,
		TS:       time.Unix(t.Timestamp, 0).UTC(),
		Payload: map[string]any{
			"outcome": t.Outcome,
			"price":   t.Price.Float(),
			"side":    strings.ToLower(t.Side),
			"size":    t.Size.Float(),
		},
	}
}

// statusFromFlags maps the upstream lifecycle flags onto the canonical
// three. Closure and resolution are reported separately upstream.
func statusFromFlags(closed, resolved bool) schema.MarketStatus {
	switch {
	case closed && resolved:
		return schema.StatusSettled
	case closed:
		return schema.StatusClosed
	}
	return schema.StatusActive
}

// firstToken is the CLOB token backing the market's first outcome. Every
// tradable market carries its token ids; a record without them is malformed.
func firstToken(m *gamma.Market) (string, error) {
	if len(m.ClobTokenIDs) == 0 {
		return "", fmt.Errorf("market %s: %w", m.Slug, &schema.ValidationError{Field: "clobTokenIds", Reason: "is missing"})
	}
	return m.ClobTokenIDs[0], nil
}

func validateListing(m *clob.Market) error {
	if m.ConditionID == "" {
		return fmt.Errorf("market %q: %w", m.MarketSlug, &schema.ValidationError{Field: "condition_id", Reason: "is missing"})
	}
	for _, t := range m.Tokens {
		if f := t.Price.Float(); f < 0 || f > 1 {
			return fmt.Errorf("market %s: %w", m.ConditionID, &schema.ValidationError{
				Field:  "tokens.price",
				Reason: fmt.Sprintf("%v is outside [0, 1]", f),
			})
		}
	}
	return nil
}

func toLevels(levels []orderbook.Level) []schema.BookLevel {
	out := make([]schema.BookLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, schema.BookLevel{Price: l.Price, Size: l.Size})
	}
	return out
}
