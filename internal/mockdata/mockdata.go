// Package mockdata serves canonical market data from a pre-generated
// dataset. Every accessor is deterministic: same inputs, same output, no
// clock reads anywhere.
package mockdata

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/omniverse/omnimarket/internal/connector"
	"github.com/omniverse/omnimarket/internal/orderbook"
	"github.com/omniverse/omnimarket/internal/schema"
)

// MarketData is one market's full mock payload.
type MarketData struct {
	Market *schema.MarketMeta    `json:"market"`
	Series []schema.PricePoint   `json:"series"` // 1-minute base resolution
	Book   BookLevels            `json:"book"`
	Events []*schema.EventRecord `json:"events"`
}

type BookLevels struct {
	Bids []schema.BookLevel `json:"bids"`
	Asks []schema.BookLevel `json:"asks"`
}

// Dataset is the dataset file's format: payloads keyed by canonical market id.
type Dataset map[string]*MarketData

// Source answers connector capabilities from a Dataset. It is read-only
// after construction and safe for concurrent use.
type Source struct {
	data  Dataset
	ids   []string // sorted for stable listings
	books map[string]*orderbook.Orderbook
}

// Load reads and validates a dataset file.
func Load(path string) (*Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't read dataset %s: %w", path, err)
	}

	var ds Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("couldn't parse dataset %s: %w", path, err)
	}

	s, err := New(ds)
	if err != nil {
		return nil, fmt.Errorf("invalid dataset %s: %w", path, err)
	}
	return s, nil
}

// New validates the whole dataset up front so a bad file fails at startup,
// not on the first request that touches the broken entry.
func New(ds Dataset) (*Source, error) {
	s := &Source{
		data:  ds,
		ids:   make([]string, 0, len(ds)),
		books: make(map[string]*orderbook.Orderbook, len(ds)),
	}

	for id, md := range ds {
		if md == nil || md.Market == nil {
			return nil, fmt.Errorf("market %s: empty entry", id)
		}
		if md.Market.ID != id {
			return nil, fmt.Errorf("market %s: entry id %q does not match key", id, md.Market.ID)
		}
		if err := md.Market.Validate(); err != nil {
			return nil, fmt.Errorf("market %s: %w", id, err)
		}

		series := schema.TimeSeries{MarketID: id, Interval: schema.Interval1m, Points: md.Series}
		if err := series.Validate(); err != nil {
			return nil, fmt.Errorf("market %s: %w", id, err)
		}

		book := schema.OrderBook{MarketID: id, Bids: md.Book.Bids, Asks: md.Book.Asks}
		if err := book.Validate(); err != nil {
			return nil, fmt.Errorf("market %s: %w", id, err)
		}

		for i, ev := range md.Events {
			if ev == nil {
				return nil, fmt.Errorf("market %s: events[%d] is empty", id, i)
			}
			if err := ev.Validate(); err != nil {
				return nil, fmt.Errorf("market %s: events[%d]: %w", id, i, err)
			}
			if ev.MarketID != id {
				return nil, fmt.Errorf("market %s: events[%d] belongs to %q", id, i, ev.MarketID)
			}
			if i > 0 && md.Events[i-1].TS.After(ev.TS) {
				return nil, fmt.Errorf("market %s: events[%d] out of order", id, i)
			}
		}

		ob := orderbook.New()
		for _, l := range md.Book.Bids {
			ob.Set(l.Price, l.Size, "bids")
		}
		for _, l := range md.Book.Asks {
			ob.Set(l.Price, l.Size, "asks")
		}
		s.books[id] = ob
		s.ids = append(s.ids, id)
	}

	slices.Sort(s.ids)
	return s, nil
}

func (s *Source) Len() int {
	return len(s.ids)
}

// Markets returns every market in stable id order.
func (s *Source) Markets() []*schema.MarketMeta {
	out := make([]*schema.MarketMeta, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.data[id].Market)
	}
	return out
}

func (s *Source) Market(id string) (*schema.MarketMeta, error) {
	md, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return md.Market, nil
}

// Quote reports the market's current outcome prices. The timestamp is the
// dataset's own notion of now (the last series point), never the clock.
func (s *Source) Quote(id string) (*schema.PriceQuote, error) {
	md, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return &schema.PriceQuote{
		MarketID: id,
		TS:       asOf(md),
		Outcomes: md.Market.Outcomes,
	}, nil
}

// Series derives a view of the 1-minute base: points whose offset from the
// series origin is a whole multiple of interval, inside [start, end).
// A zero start or end leaves that side unbounded.
func (s *Source) Series(id string, interval schema.Interval, start, end time.Time) (*schema.TimeSeries, error) {
	md, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if !interval.Valid() {
		return nil, fmt.Errorf("%w: unknown interval %q", connector.ErrBadRequest, string(interval))
	}

	step := interval.Duration()
	var origin time.Time
	if len(md.Series) > 0 {
		origin = md.Series[0].TS
	}

	points := make([]schema.PricePoint, 0, len(md.Series))
	for _, pt := range md.Series {
		if pt.TS.Sub(origin)%step != 0 {
			continue
		}
		if !start.IsZero() && pt.TS.Before(start) {
			continue
		}
		if !end.IsZero() && !pt.TS.Before(end) {
			continue
		}
		points = append(points, pt)
	}

	return &schema.TimeSeries{MarketID: id, Interval: interval, Points: points}, nil
}

// Book returns the top-depth levels per side; depth <= 0 means the full book.
func (s *Source) Book(id string, depth int) (*schema.OrderBook, error) {
	md, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	ob := s.books[id]
	bids, _ := ob.GetTopN("bids", depth)
	asks, _ := ob.GetTopN("asks", depth)

	return &schema.OrderBook{
		MarketID: id,
		Bids:     toSchemaLevels(bids),
		Asks:     toSchemaLevels(asks),
		TS:       asOf(md),
	}, nil
}

// Events returns the market's event log oldest first, keeping entries with
// ts strictly after since and capping at limit when limit > 0.
func (s *Source) Events(id string, since time.Time, limit int) ([]*schema.EventRecord, error) {
	md, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	out := make([]*schema.EventRecord, 0, len(md.Events))
	for _, ev := range md.Events {
		if !since.IsZero() && !ev.TS.After(since) {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// AsOf is the dataset's notion of now: the latest series timestamp across
// all markets. Deterministic mock paths use it instead of the clock.
func (s *Source) AsOf() time.Time {
	var latest time.Time
	for _, id := range s.ids {
		if ts := asOf(s.data[id]); ts.After(latest) {
			latest = ts
		}
	}
	return latest
}

func (s *Source) lookup(id string) (*MarketData, error) {
	md, ok := s.data[id]
	if !ok {
		return nil, fmt.Errorf("%w: market %q", connector.ErrNotFound, id)
	}
	return md, nil
}

func asOf(md *MarketData) time.Time {
	if len(md.Series) == 0 {
		return time.Time{}
	}
	return md.Series[len(md.Series)-1].TS
}

func toSchemaLevels(levels []orderbook.Level) []schema.BookLevel {
	out := make([]schema.BookLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, schema.BookLevel{Price: l.Price, Size: l.Size})
	}
	return out
}
