package schema

import (
	"fmt"
	"time"
)

type BookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

func (l BookLevel) Validate() error {
	if l.Price < 0 || l.Price > 1 {
		return invalid("level.price", "%v is outside [0, 1]", l.Price)
	}
	if l.Size <= 0 {
		return invalid("level.size", "%v is not positive", l.Size)
	}
	return nil
}

// OrderBook is a depth snapshot. Bids are sorted by price descending, asks
// ascending, and the book must not be crossed or locked: when both sides are
// non-empty the best bid is strictly below the best ask.
type OrderBook struct {
	MarketID string      `json:"market_id"`
	Bids     []BookLevel `json:"bids"`
	Asks     []BookLevel `json:"asks"`
	TS       time.Time   `json:"ts"`
}

func (b *OrderBook) Validate() error {
	if b.MarketID == "" {
		return invalid("market_id", "is required")
	}
	for i, l := range b.Bids {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("bids[%d]: %w", i, err)
		}
		if i > 0 && b.Bids[i-1].Price <= l.Price {
			return invalid("bids", "prices not strictly descending at index %d", i)
		}
	}
	for i, l := range b.Asks {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("asks[%d]: %w", i, err)
		}
		if i > 0 && b.Asks[i-1].Price >= l.Price {
			return invalid("asks", "prices not strictly ascending at index %d", i)
		}
	}
	if len(b.Bids) > 0 && len(b.Asks) > 0 && b.Bids[0].Price >= b.Asks[0].Price {
		return invalid("bids", "best bid %v is not below best ask %v", b.Bids[0].Price, b.Asks[0].Price)
	}
	return nil
}
