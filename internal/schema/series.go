package schema

import (
	"fmt"
	"time"
)

type Interval string

const (
	Interval1m Interval = "1m"
	Interval5m Interval = "5m"
	Interval1h Interval = "1h"
	Interval1d Interval = "1d"
)

var intervalDurations = map[Interval]time.Duration{
	Interval1m: time.Minute,
	Interval5m: 5 * time.Minute,
	Interval1h: time.Hour,
	Interval1d: 24 * time.Hour,
}

func ParseInterval(s string) (Interval, error) {
	i := Interval(s)
	if _, ok := intervalDurations[i]; !ok {
		return "", fmt.Errorf("unknown interval %q", s)
	}
	return i, nil
}

func (i Interval) Valid() bool {
	_, ok := intervalDurations[i]
	return ok
}

func (i Interval) Duration() time.Duration {
	return intervalDurations[i]
}

type PricePoint struct {
	TS     time.Time `json:"ts"`
	Price  float64   `json:"price"`
	Volume float64   `json:"volume"`
}

func (p PricePoint) Validate() error {
	if p.TS.IsZero() {
		return invalid("point.ts", "is required")
	}
	if p.Price < 0 || p.Price > 1 {
		return invalid("point.price", "%v is outside [0, 1]", p.Price)
	}
	if p.Volume < 0 {
		return invalid("point.volume", "%v is negative", p.Volume)
	}
	return nil
}

// TimeSeries is an ordered price history. Points must be strictly increasing
// in time; out-of-order input is rejected rather than re-sorted.
type TimeSeries struct {
	MarketID string       `json:"market_id"`
	Interval Interval     `json:"interval"`
	Points   []PricePoint `json:"points"`
}

func (ts *TimeSeries) Validate() error {
	if ts.MarketID == "" {
		return invalid("market_id", "is required")
	}
	if !ts.Interval.Valid() {
		return invalid("interval", "%q is not a known interval", string(ts.Interval))
	}
	for i, p := range ts.Points {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("points[%d]: %w", i, err)
		}
		if i > 0 && !ts.Points[i-1].TS.Before(p.TS) {
			return invalid("points", "timestamps not strictly increasing at index %d", i)
		}
	}
	return nil
}
