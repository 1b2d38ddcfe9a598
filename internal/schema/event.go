package schema

import "time"

type EventType string

const (
	EventTrade        EventType = "trade"
	EventPriceChange  EventType = "price_change"
	EventStatusChange EventType = "status_change"
)

func (t EventType) Valid() bool {
	switch t {
	case EventTrade, EventPriceChange, EventStatusChange:
		return true
	}
	return false
}

// EventRecord is a single entry in a market's event log.
type EventRecord struct {
	ID       string         `json:"id"`
	MarketID string         `json:"market_id"`
	Type     EventType      `json:"type"`
	TS       time.Time      `json:"ts"`
	Payload  map[string]any `json:"payload"`
}

func (e *EventRecord) Validate() error {
	if e.ID == "" {
		return invalid("id", "is required")
	}
	if e.MarketID == "" {
		return invalid("market_id", "is required")
	}
	if !e.Type.Valid() {
		return invalid("type", "%q is not a known event type", string(e.Type))
	}
	if e.TS.IsZero() {
		return invalid("ts", "is required")
	}
	return nil
}
