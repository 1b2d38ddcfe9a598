package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/omniverse/omnimarket/internal/connector"
	"github.com/omniverse/omnimarket/internal/schema"
)

type stubConnector struct {
	provider  schema.Provider
	fail      bool
	syncCalls atomic.Int64
}

func (s *stubConnector) Provider() schema.Provider { return s.provider }
func (s *stubConnector) Mode() connector.Mode      { return connector.ModeMock }

func (s *stubConnector) ListMarkets(context.Context, connector.ListQuery) ([]*schema.MarketMeta, error) {
	return nil, nil
}
func (s *stubConnector) GetMarket(context.Context, string) (*schema.MarketMeta, error) {
	return nil, connector.ErrNotFound
}
func (s *stubConnector) GetPrice(context.Context, string) (*schema.PriceQuote, error) {
	return nil, connector.ErrNotFound
}
func (s *stubConnector) GetTimeseries(context.Context, string, connector.SeriesQuery) (*schema.TimeSeries, error) {
	return nil, connector.ErrNotFound
}
func (s *stubConnector) GetOrderbook(context.Context, string, int) (*schema.OrderBook, error) {
	return nil, connector.ErrNotFound
}
func (s *stubConnector) GetEvents(context.Context, string, connector.EventsQuery) ([]*schema.EventRecord, error) {
	return nil, connector.ErrNotFound
}

func (s *stubConnector) Sync(context.Context) (*connector.SyncReport, error) {
	s.syncCalls.Add(1)
	if s.fail {
		return nil, errors.New("boom")
	}
	return &connector.SyncReport{
		Provider:      s.provider,
		MarketsSynced: 3,
		Status:        connector.SyncCompleted,
		CompletedAt:   time.Now().UTC(),
	}, nil
}

func TestNewRejectsBadSchedule(t *testing.T) {
	reg := connector.NewRegistry(&stubConnector{provider: schema.ProviderKalshi})
	_, err := New(reg, "every now and then", time.Second, zap.NewNop())
	require.Error(t, err)
}

func TestEmptyScheduleIsDisabled(t *testing.T) {
	reg := connector.NewRegistry(&stubConnector{provider: schema.ProviderKalshi})
	s, err := New(reg, "", time.Second, zap.NewNop())
	require.NoError(t, err)

	s.Start()
	s.Stop(context.Background())
}

func TestRunNowSyncsEveryConnector(t *testing.T) {
	failing := &stubConnector{provider: schema.ProviderKalshi, fail: true}
	healthy := &stubConnector{provider: schema.ProviderPolymarket}
	reg := connector.NewRegistry(failing, healthy)

	s, err := New(reg, "", time.Second, zap.NewNop())
	require.NoError(t, err)

	s.RunNow()
	assert.Equal(t, int64(1), failing.syncCalls.Load())
	assert.Equal(t, int64(1), healthy.syncCalls.Load(), "one failure does not stop the pass")
}

func TestScheduledTick(t *testing.T) {
	stub := &stubConnector{provider: schema.ProviderKalshi}
	reg := connector.NewRegistry(stub)

	s, err := New(reg, "* * * * * *", time.Second, zap.NewNop())
	require.NoError(t, err)

	s.Start()
	defer s.Stop(context.Background())

	require.Eventually(t, func() bool {
		return stub.syncCalls.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)
}
