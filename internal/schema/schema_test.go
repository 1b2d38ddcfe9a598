package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tsPtr(t time.Time) *time.Time { return &t }

func validMarket() MarketMeta {
	return MarketMeta{
		ID:       "KALSHI-PRES2024",
		Provider: ProviderKalshi,
		Title:    "Presidential Election Winner 2024",
		Category: "politics",
		Status:   StatusActive,
		Outcomes: []Outcome{
			{Name: "Yes", Price: 0.65, Volume: 15420.50},
			{Name: "No", Price: 0.35, Volume: 8930.25},
		},
		Volume:    24350.75,
		Liquidity: 5420.30,
		CreatedAt: tsPtr(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		CloseAt:   tsPtr(time.Date(2024, 11, 5, 23, 59, 59, 0, time.UTC)),
		SettleAt:  tsPtr(time.Date(2024, 11, 6, 12, 0, 0, 0, time.UTC)),
	}
}

func TestSplitMarketID(t *testing.T) {
	tests := []struct {
		id       string
		provider Provider
		slug     string
		ok       bool
	}{
		{"KALSHI-PRES2024", ProviderKalshi, "PRES2024", true},
		{"POLY-CRYPTO2024", ProviderPolymarket, "CRYPTO2024", true},
		{"KALSHI-INXD-23DEC29-B4125", ProviderKalshi, "INXD-23DEC29-B4125", true},
		{"NONEXISTENT", "", "", false},
		{"BETFAIR-XYZ", "", "", false},
		{"KALSHI-", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		p, slug, ok := SplitMarketID(tt.id)
		assert.Equal(t, tt.ok, ok, tt.id)
		assert.Equal(t, tt.provider, p, tt.id)
		assert.Equal(t, tt.slug, slug, tt.id)
	}
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider("Kalshi")
	require.NoError(t, err)
	assert.Equal(t, ProviderKalshi, p)

	p, err = ParseProvider("polymarket")
	require.NoError(t, err)
	assert.Equal(t, ProviderPolymarket, p)

	_, err = ParseProvider("betfair")
	assert.Error(t, err)
}

func TestProviderMarketID(t *testing.T) {
	assert.Equal(t, "KALSHI-PRES2024", ProviderKalshi.MarketID("pres2024"))
	assert.Equal(t, "POLY-CRYPTO2024", ProviderPolymarket.MarketID("CRYPTO2024"))
}

func TestMarketMetaValidate(t *testing.T) {
	m := validMarket()
	require.NoError(t, m.Validate())

	tests := []struct {
		name   string
		mutate func(*MarketMeta)
	}{
		{"missing id", func(m *MarketMeta) { m.ID = "" }},
		{"unrecognized prefix", func(m *MarketMeta) { m.ID = "BETFAIR-PRES2024" }},
		{"prefix provider mismatch", func(m *MarketMeta) { m.ID = "POLY-PRES2024" }},
		{"unknown provider", func(m *MarketMeta) { m.Provider = "betfair" }},
		{"missing title", func(m *MarketMeta) { m.Title = "" }},
		{"unknown status", func(m *MarketMeta) { m.Status = "halted" }},
		{"no outcomes", func(m *MarketMeta) { m.Outcomes = nil }},
		{"price above one", func(m *MarketMeta) { m.Outcomes[0].Price = 1.2 }},
		{"negative price", func(m *MarketMeta) { m.Outcomes[0].Price = -0.1 }},
		{"negative outcome volume", func(m *MarketMeta) { m.Outcomes[1].Volume = -5 }},
		{"unnamed outcome", func(m *MarketMeta) { m.Outcomes[0].Name = "" }},
		{"negative volume", func(m *MarketMeta) { m.Volume = -1 }},
		{"negative liquidity", func(m *MarketMeta) { m.Liquidity = -1 }},
		{"close before created", func(m *MarketMeta) {
			m.CloseAt = tsPtr(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC))
		}},
		{"settle before close", func(m *MarketMeta) {
			m.SettleAt = tsPtr(time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMarket()
			tt.mutate(&m)
			assert.Error(t, m.Validate())
		})
	}
}

func TestMarketMetaValidateNilTimes(t *testing.T) {
	m := validMarket()
	m.CreatedAt = nil
	m.SettleAt = nil
	assert.NoError(t, m.Validate())
}

func TestTimeSeriesValidate(t *testing.T) {
	base := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	ts := TimeSeries{
		MarketID: "KALSHI-PRES2024",
		Interval: Interval1h,
		Points: []PricePoint{
			{TS: base, Price: 0.60, Volume: 120},
			{TS: base.Add(time.Hour), Price: 0.61, Volume: 90},
			{TS: base.Add(2 * time.Hour), Price: 0.63, Volume: 210},
		},
	}
	require.NoError(t, ts.Validate())

	t.Run("equal timestamps rejected", func(t *testing.T) {
		bad := ts
		bad.Points = append([]PricePoint{}, ts.Points...)
		bad.Points[2].TS = bad.Points[1].TS
		assert.Error(t, bad.Validate())
	})

	t.Run("decreasing timestamps rejected", func(t *testing.T) {
		bad := ts
		bad.Points = append([]PricePoint{}, ts.Points...)
		bad.Points[2].TS = base.Add(-time.Hour)
		assert.Error(t, bad.Validate())
	})

	t.Run("price out of range rejected", func(t *testing.T) {
		bad := ts
		bad.Points = append([]PricePoint{}, ts.Points...)
		bad.Points[0].Price = 1.01
		assert.Error(t, bad.Validate())
	})

	t.Run("unknown interval rejected", func(t *testing.T) {
		bad := ts
		bad.Interval = "2h"
		assert.Error(t, bad.Validate())
	})
}

func TestOrderBookValidate(t *testing.T) {
	book := OrderBook{
		MarketID: "KALSHI-PRES2024",
		Bids: []BookLevel{
			{Price: 0.64, Size: 250},
			{Price: 0.63, Size: 400},
		},
		Asks: []BookLevel{
			{Price: 0.66, Size: 180},
			{Price: 0.67, Size: 320},
		},
		TS: time.Date(2024, 10, 3, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, book.Validate())

	t.Run("crossed book rejected", func(t *testing.T) {
		bad := book
		bad.Bids = []BookLevel{{Price: 0.70, Size: 100}}
		assert.Error(t, bad.Validate())
	})

	t.Run("locked book rejected", func(t *testing.T) {
		bad := book
		bad.Bids = []BookLevel{{Price: 0.66, Size: 100}}
		assert.Error(t, bad.Validate())
	})

	t.Run("unsorted bids rejected", func(t *testing.T) {
		bad := book
		bad.Bids = []BookLevel{{Price: 0.63, Size: 400}, {Price: 0.64, Size: 250}}
		assert.Error(t, bad.Validate())
	})

	t.Run("zero size rejected", func(t *testing.T) {
		bad := book
		bad.Asks = []BookLevel{{Price: 0.66, Size: 0}}
		assert.Error(t, bad.Validate())
	})

	t.Run("one-sided book passes", func(t *testing.T) {
		oneSided := book
		oneSided.Asks = nil
		assert.NoError(t, oneSided.Validate())
	})
}

func TestEventRecordValidate(t *testing.T) {
	ev := EventRecord{
		ID:       "evt_8a6e1c2d",
		MarketID: "POLY-CRYPTO2024",
		Type:     EventTrade,
		TS:       time.Date(2024, 10, 2, 15, 4, 0, 0, time.UTC),
		Payload:  map[string]any{"outcome": "Yes", "price": 0.42, "size": 120.5},
	}
	require.NoError(t, ev.Validate())

	bad := ev
	bad.Type = "liquidation"
	assert.Error(t, bad.Validate())

	bad = ev
	bad.ID = ""
	assert.Error(t, bad.Validate())
}

func TestParseInterval(t *testing.T) {
	i, err := ParseInterval("1h")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, i.Duration())

	i, err = ParseInterval("1d")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, i.Duration())

	_, err = ParseInterval("90s")
	assert.Error(t, err)
}
