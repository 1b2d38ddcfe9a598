// Package connector defines the provider abstraction shared by all
// prediction market integrations.
package connector

import (
	"context"
	"strings"
	"time"

	"github.com/omniverse/omnimarket/internal/schema"
)

type Mode string

const (
	ModeLive Mode = "live"
	ModeMock Mode = "mock"
)

// SyncCompleted is the status of a successful sync pass.
const SyncCompleted = "completed"

// ListQuery filters a market listing.
type ListQuery struct {
	Status schema.MarketStatus // empty = all
	Search string              // free-text match on title and category
	Limit  int                 // <= 0 = no cap
	Offset int
}

// Matches reports whether a market passes the status and search filters.
func (q ListQuery) Matches(m *schema.MarketMeta) bool {
	if q.Status != "" && m.Status != q.Status {
		return false
	}
	if q.Search != "" {
		s := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(m.Title), s) &&
			!strings.Contains(strings.ToLower(m.Category), s) {
			return false
		}
	}
	return true
}

// Page applies Limit and Offset to a filtered listing.
func (q ListQuery) Page(markets []*schema.MarketMeta) []*schema.MarketMeta {
	if q.Offset > 0 {
		if q.Offset >= len(markets) {
			return []*schema.MarketMeta{}
		}
		markets = markets[q.Offset:]
	}
	if q.Limit > 0 && len(markets) > q.Limit {
		markets = markets[:q.Limit]
	}
	return markets
}

// SeriesQuery selects a timeseries window. The window is half-open
// [Start, End); zero Start or End means unbounded on that side.
type SeriesQuery struct {
	Interval schema.Interval
	Start    time.Time
	End      time.Time
}

// EventsQuery filters a market's event log.
type EventsQuery struct {
	Since time.Time // events strictly after this instant; zero = all
	Limit int       // <= 0 = no cap
}

// SyncReport summarizes a fetch-and-discard validation pass.
type SyncReport struct {
	Provider      schema.Provider `json:"provider"`
	MarketsSynced int             `json:"markets_synced"`
	Status        string          `json:"status"`
	CompletedAt   time.Time       `json:"completed_at"`
}

// Connector is one prediction market provider. The mode is decided once at
// construction, live when credentials are configured and mock otherwise, and
// never changes mid-flight.
type Connector interface {
	Provider() schema.Provider
	Mode() Mode

	ListMarkets(ctx context.Context, q ListQuery) ([]*schema.MarketMeta, error)
	GetMarket(ctx context.Context, marketID string) (*schema.MarketMeta, error)
	GetPrice(ctx context.Context, marketID string) (*schema.PriceQuote, error)
	GetTimeseries(ctx context.Context, marketID string, q SeriesQuery) (*schema.TimeSeries, error)
	GetOrderbook(ctx context.Context, marketID string, depth int) (*schema.OrderBook, error)
	GetEvents(ctx context.Context, marketID string, q EventsQuery) ([]*schema.EventRecord, error)
	Sync(ctx context.Context) (*SyncReport, error)
}
