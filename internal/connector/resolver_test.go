package connector

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniverse/omnimarket/internal/schema"
)

// stubConnector counts capability calls so tests can assert that the
// resolver rejects bad input before any connector work happens.
type stubConnector struct {
	provider schema.Provider
	calls    atomic.Int64
}

func (s *stubConnector) Provider() schema.Provider { return s.provider }
func (s *stubConnector) Mode() Mode                { return ModeMock }

func (s *stubConnector) ListMarkets(ctx context.Context, q ListQuery) ([]*schema.MarketMeta, error) {
	s.calls.Add(1)
	return nil, nil
}

func (s *stubConnector) GetMarket(ctx context.Context, marketID string) (*schema.MarketMeta, error) {
	s.calls.Add(1)
	return nil, ErrNotFound
}

func (s *stubConnector) GetPrice(ctx context.Context, marketID string) (*schema.PriceQuote, error) {
	s.calls.Add(1)
	return nil, ErrNotFound
}

func (s *stubConnector) GetTimeseries(ctx context.Context, marketID string, q SeriesQuery) (*schema.TimeSeries, error) {
	s.calls.Add(1)
	return nil, ErrNotFound
}

func (s *stubConnector) GetOrderbook(ctx context.Context, marketID string, depth int) (*schema.OrderBook, error) {
	s.calls.Add(1)
	return nil, ErrNotFound
}

func (s *stubConnector) GetEvents(ctx context.Context, marketID string, q EventsQuery) ([]*schema.EventRecord, error) {
	s.calls.Add(1)
	return nil, nil
}

func (s *stubConnector) Sync(ctx context.Context) (*SyncReport, error) {
	s.calls.Add(1)
	return &SyncReport{Provider: s.provider, Status: SyncCompleted}, nil
}

func TestRegistryResolve(t *testing.T) {
	kalshi := &stubConnector{provider: schema.ProviderKalshi}
	poly := &stubConnector{provider: schema.ProviderPolymarket}
	reg := NewRegistry(kalshi, poly)

	c, err := reg.Resolve("kalshi")
	require.NoError(t, err)
	assert.Equal(t, schema.ProviderKalshi, c.Provider())

	c, err = reg.Resolve("Polymarket")
	require.NoError(t, err)
	assert.Equal(t, schema.ProviderPolymarket, c.Provider())
}

func TestRegistryResolveUnknown(t *testing.T) {
	kalshi := &stubConnector{provider: schema.ProviderKalshi}
	reg := NewRegistry(kalshi)

	_, err := reg.Resolve("betfair")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownProvider))
	assert.Equal(t, int64(0), kalshi.calls.Load(), "no connector work for unknown provider")

	// Known provider name without a registered connector is also unknown.
	_, err = reg.Resolve("polymarket")
	assert.True(t, errors.Is(err, ErrUnknownProvider))
}

func TestRegistryResolveMarket(t *testing.T) {
	kalshi := &stubConnector{provider: schema.ProviderKalshi}
	poly := &stubConnector{provider: schema.ProviderPolymarket}
	reg := NewRegistry(kalshi, poly)

	c, err := reg.ResolveMarket("KALSHI-PRES2024")
	require.NoError(t, err)
	assert.Equal(t, schema.ProviderKalshi, c.Provider())

	c, err = reg.ResolveMarket("POLY-CRYPTO2024")
	require.NoError(t, err)
	assert.Equal(t, schema.ProviderPolymarket, c.Provider())

	_, err = reg.ResolveMarket("NONEXISTENT")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRegistryAllKeepsOrder(t *testing.T) {
	kalshi := &stubConnector{provider: schema.ProviderKalshi}
	poly := &stubConnector{provider: schema.ProviderPolymarket}
	reg := NewRegistry(kalshi, poly)

	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, schema.ProviderKalshi, all[0].Provider())
	assert.Equal(t, schema.ProviderPolymarket, all[1].Provider())
}

func TestListQueryMatches(t *testing.T) {
	m := &schema.MarketMeta{
		Title:    "Presidential Election Winner 2024",
		Category: "politics",
		Status:   schema.StatusActive,
	}

	assert.True(t, ListQuery{}.Matches(m))
	assert.True(t, ListQuery{Status: schema.StatusActive}.Matches(m))
	assert.False(t, ListQuery{Status: schema.StatusClosed}.Matches(m))
	assert.True(t, ListQuery{Search: "election"}.Matches(m))
	assert.True(t, ListQuery{Search: "POLITICS"}.Matches(m))
	assert.False(t, ListQuery{Search: "weather"}.Matches(m))
}

func TestListQueryPage(t *testing.T) {
	markets := make([]*schema.MarketMeta, 5)
	for i := range markets {
		markets[i] = &schema.MarketMeta{ID: string(rune('A' + i))}
	}

	assert.Len(t, ListQuery{}.Page(markets), 5)
	assert.Len(t, ListQuery{Limit: 2}.Page(markets), 2)

	page := ListQuery{Limit: 2, Offset: 4}.Page(markets)
	require.Len(t, page, 1)
	assert.Equal(t, "E", page[0].ID)

	assert.Empty(t, ListQuery{Offset: 10}.Page(markets))
}

func TestForEachLimit(t *testing.T) {
	var n atomic.Int64
	err := ForEachLimit(context.Background(), 50, func(i int) error {
		n.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50), n.Load())
}

func TestForEachLimitStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	err := ForEachLimit(context.Background(), 20, func(i int) error {
		if i == 3 {
			return boom
		}
		return nil
	})
	assert.True(t, errors.Is(err, boom))
}
