package schema

import (
	"fmt"
	"time"
)

type MarketStatus string

const (
	StatusActive  MarketStatus = "active"
	StatusClosed  MarketStatus = "closed"
	StatusSettled MarketStatus = "settled"
)

func (s MarketStatus) Valid() bool {
	switch s {
	case StatusActive, StatusClosed, StatusSettled:
		return true
	}
	return false
}

// Outcome is one side of a market. Price is a probability in [0, 1].
type Outcome struct {
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

func (o Outcome) Validate() error {
	if o.Name == "" {
		return invalid("outcome.name", "is required")
	}
	if o.Price < 0 || o.Price > 1 {
		return invalid("outcome.price", "%v is outside [0, 1]", o.Price)
	}
	if o.Volume < 0 {
		return invalid("outcome.volume", "%v is negative", o.Volume)
	}
	return nil
}

// MarketMeta is the canonical description of a market. The identifier is
// globally unique and carries the provider prefix ({PREFIX}-{SLUG}).
type MarketMeta struct {
	ID        string       `json:"id"`
	Provider  Provider     `json:"provider"`
	Title     string       `json:"title"`
	Category  string       `json:"category"`
	Status    MarketStatus `json:"status"`
	Outcomes  []Outcome    `json:"outcomes"`
	Volume    float64      `json:"volume"`
	Liquidity float64      `json:"liquidity"`
	CreatedAt *time.Time   `json:"created_at"`
	CloseAt   *time.Time   `json:"close_at"`
	SettleAt  *time.Time   `json:"settle_at"`
}

func (m *MarketMeta) Validate() error {
	if m.ID == "" {
		return invalid("id", "is required")
	}
	p, _, ok := SplitMarketID(m.ID)
	if !ok {
		return invalid("id", "%q has no recognized provider prefix", m.ID)
	}
	if !m.Provider.Valid() {
		return invalid("provider", "%q is not a known provider", string(m.Provider))
	}
	if p != m.Provider {
		return invalid("id", "prefix of %q does not match provider %q", m.ID, string(m.Provider))
	}
	if m.Title == "" {
		return invalid("title", "is required")
	}
	if !m.Status.Valid() {
		return invalid("status", "%q is not a known status", string(m.Status))
	}
	if len(m.Outcomes) == 0 {
		return invalid("outcomes", "at least one outcome is required")
	}
	for i, o := range m.Outcomes {
		if err := o.Validate(); err != nil {
			return fmt.Errorf("outcomes[%d]: %w", i, err)
		}
	}
	if m.Volume < 0 {
		return invalid("volume", "%v is negative", m.Volume)
	}
	if m.Liquidity < 0 {
		return invalid("liquidity", "%v is negative", m.Liquidity)
	}
	if m.CreatedAt != nil && m.CloseAt != nil && m.CloseAt.Before(*m.CreatedAt) {
		return invalid("close_at", "is before created_at")
	}
	if m.CloseAt != nil && m.SettleAt != nil && m.SettleAt.Before(*m.CloseAt) {
		return invalid("settle_at", "is before close_at")
	}
	return nil
}

// PriceQuote is the current outcome prices of a market as one unit.
type PriceQuote struct {
	MarketID string    `json:"market_id"`
	TS       time.Time `json:"ts"`
	Outcomes []Outcome `json:"outcomes"`
}

func (q *PriceQuote) Validate() error {
	if q.MarketID == "" {
		return invalid("market_id", "is required")
	}
	for _, o := range q.Outcomes {
		if err := o.Validate(); err != nil {
			return err
		}
	}
	return nil
}
