// Package sample generates the deterministic dataset served in mock mode.
// Equal seeds always produce byte-identical output: no clock reads, no
// stdlib randomness.
package sample

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/omniverse/omnimarket/internal/mockdata"
	"github.com/omniverse/omnimarket/internal/schema"
)

const (
	DefaultSeed  uint64 = 42
	DefaultHours        = 48

	bookDepth  = 10
	eventCount = 24
	priceFloor = 0.01
	priceCeil  = 0.99
	maxStep    = 0.02
	reversion  = 0.02 // pull toward the quoted price, keeps long walks off the clamps
)

// anchor is the fixed start of every generated series.
var anchor = time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

// eventNamespace is the UUIDv5 namespace for deterministic event ids.
var eventNamespace = uuid.MustParse("9f2c5e8a-1b7d-4c3e-8a6f-2d9b0c4e7f11")

func tsPtr(t time.Time) *time.Time { return &t }

// fixtures are the seeded markets, in generation order.
func fixtures() []*schema.MarketMeta {
	return []*schema.MarketMeta{
		{
			ID:       "KALSHI-PRES2024",
			Provider: schema.ProviderKalshi,
			Title:    "Presidential Election Winner 2024",
			Category: "politics",
			Status:   schema.StatusActive,
			Outcomes: []schema.Outcome{
				{Name: "Yes", Price: 0.65, Volume: 15420.50},
				{Name: "No", Price: 0.35, Volume: 8930.25},
			},
			Volume:    24350.75,
			Liquidity: 5420.30,
			CreatedAt: tsPtr(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
			CloseAt:   tsPtr(time.Date(2024, 11, 5, 23, 59, 59, 0, time.UTC)),
			SettleAt:  tsPtr(time.Date(2024, 11, 6, 12, 0, 0, 0, time.UTC)),
		},
		{
			ID:       "POLY-CRYPTO2024",
			Provider: schema.ProviderPolymarket,
			Title:    "Bitcoin Above 100k By Year End",
			Category: "crypto",
			Status:   schema.StatusActive,
			Outcomes: []schema.Outcome{
				{Name: "Yes", Price: 0.42, Volume: 28750.80},
				{Name: "No", Price: 0.58, Volume: 19240.60},
			},
			Volume:    47991.40,
			Liquidity: 8750.20,
			CreatedAt: tsPtr(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
			CloseAt:   tsPtr(time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)),
			SettleAt:  tsPtr(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)),
		},
		{
			ID:       "KALSHI-TECH2024",
			Provider: schema.ProviderKalshi,
			Title:    "Nasdaq Closes Above 20000",
			Category: "stocks",
			Status:   schema.StatusActive,
			Outcomes: []schema.Outcome{
				{Name: "Yes", Price: 0.73, Volume: 12890.30},
				{Name: "No", Price: 0.27, Volume: 4560.70},
			},
			Volume:    17451.00,
			Liquidity: 3240.80,
			CreatedAt: tsPtr(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)),
			CloseAt:   tsPtr(time.Date(2024, 12, 31, 21, 0, 0, 0, time.UTC)),
			SettleAt:  tsPtr(time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)),
		},
	}
}

// Generate builds the dataset: for each fixture market a 1-minute
// mean-reverting walk around its quoted price, an order book around the
// final price, and an event log over the final day.
func Generate(seed uint64, hours int) mockdata.Dataset {
	if hours <= 0 {
		hours = DefaultHours
	}

	r := newRNG(seed)
	ds := make(mockdata.Dataset)

	for _, m := range fixtures() {
		series := genSeries(r, m, hours)
		last := m.Outcomes[0].Price
		if len(series) > 0 {
			last = series[len(series)-1].Price
		}

		ds[m.ID] = &mockdata.MarketData{
			Market: m,
			Series: series,
			Book:   genBook(r, last),
			Events: genEvents(r, m, hours),
		}
	}

	return ds
}

// Encode renders the dataset as the compact JSON stored on disk.
func Encode(ds mockdata.Dataset) ([]byte, error) {
	out, err := json.Marshal(ds)
	if err != nil {
		return nil, fmt.Errorf("couldn't encode dataset: %w", err)
	}
	return out, nil
}

func genSeries(r *rng, m *schema.MarketMeta, hours int) []schema.PricePoint {
	n := hours * 60
	base := m.Outcomes[0].Price
	p := base
	ts := anchor

	points := make([]schema.PricePoint, 0, n)
	for i := 0; i < n; i++ {
		p = p + (r.float64()-0.5)*(2*maxStep) + reversion*(base-p)
		if p < priceFloor {
			p = priceFloor
		}
		if p > priceCeil {
			p = priceCeil
		}
		p = round4(p)

		points = append(points, schema.PricePoint{
			TS:     ts,
			Price:  p,
			Volume: round2(50 + r.float64()*450),
		})
		ts = ts.Add(time.Minute)
	}
	return points
}

func genBook(r *rng, mid float64) mockdata.BookLevels {
	var book mockdata.BookLevels
	for i := 0; i < bookDepth; i++ {
		bid := round4(mid - 0.01*float64(i+1))
		if bid < priceFloor {
			break
		}
		book.Bids = append(book.Bids, schema.BookLevel{
			Price: bid,
			Size:  round2(100 + r.float64()*900),
		})
	}
	for i := 0; i < bookDepth; i++ {
		ask := round4(mid + 0.01*float64(i+1))
		if ask > priceCeil {
			break
		}
		book.Asks = append(book.Asks, schema.BookLevel{
			Price: ask,
			Size:  round2(100 + r.float64()*900),
		})
	}
	return book
}

func genEvents(r *rng, m *schema.MarketMeta, hours int) []*schema.EventRecord {
	span := 24 * time.Hour
	if total := time.Duration(hours) * time.Hour; total < span {
		span = total
	}
	start := anchor.Add(time.Duration(hours)*time.Hour - span)
	step := span / eventCount

	events := make([]*schema.EventRecord, 0, eventCount)
	for i := 0; i < eventCount; i++ {
		name := m.ID + "/" + strconv.Itoa(i)
		ev := &schema.EventRecord{
			ID:       "evt_" + uuid.NewSHA1(eventNamespace, []byte(name)).String(),
			MarketID: m.ID,
			TS:       start.Add(step * time.Duration(i)),
		}

		outcome := m.Outcomes[r.intn(len(m.Outcomes))]
		switch i % 3 {
		case 0:
			ev.Type = schema.EventTrade
			side := "buy"
			if r.intn(2) == 1 {
				side = "sell"
			}
			ev.Payload = map[string]any{
				"outcome": outcome.Name,
				"price":   round4(outcome.Price + (r.float64()-0.5)*(2*maxStep)),
				"side":    side,
				"size":    round2(10 + r.float64()*200),
			}
		case 1:
			ev.Type = schema.EventPriceChange
			old := round4(outcome.Price + (r.float64()-0.5)*(2*maxStep))
			ev.Payload = map[string]any{
				"new_price": round4(outcome.Price + (r.float64()-0.5)*(2*maxStep)),
				"old_price": old,
				"outcome":   outcome.Name,
			}
		case 2:
			ev.Type = schema.EventStatusChange
			ev.Payload = map[string]any{
				"new_status": string(schema.StatusActive),
				"old_status": "initialized",
			}
		}
		events = append(events, ev)
	}
	return events
}

// round4 and round2 use floor(x+0.5) so the artifact is reproducible by any
// IEEE-754 implementation regardless of its native rounding helper.
func round4(x float64) float64 {
	return math.Floor(x*10000+0.5) / 10000
}

func round2(x float64) float64 {
	return math.Floor(x*100+0.5) / 100
}
