// Package price handles price values from prediction market APIs
// without losing precision.
package price

import (
	"encoding/json"
	"fmt"
)

type Price int64

var _ json.Unmarshaler = (*Price)(nil)

const PriceScale int64 = 1_000_000

func (p *Price) UnmarshalJSON(data []byte) error {
	v, err := parseScaled(data)
	if err != nil {
		return err
	}
	*p = Price(v)
	return nil
}

// FromCents converts a whole-cent price (Kalshi convention) to a Price.
func FromCents(cents int64) Price {
	return Price(cents * PriceScale / 100)
}

// Parse converts a bare decimal string such as "0.65" to a Price.
func Parse(s string) (Price, error) {
	v, err := parseScaled([]byte(s))
	if err != nil {
		return 0, err
	}
	return Price(v), nil
}

// Float renders the price as a probability, e.g. 650_000 -> 0.65.
func (p Price) Float() float64 {
	return float64(p) / float64(PriceScale)
}

// Size is a quantity at the same fixed scale as Price.
type Size int64

var _ json.Unmarshaler = (*Size)(nil)

func (s *Size) UnmarshalJSON(data []byte) error {
	v, err := parseScaled(data)
	if err != nil {
		return err
	}
	*s = Size(v)
	return nil
}

func (s Size) Float() float64 {
	return float64(s) / float64(PriceScale)
}

func parseScaled(data []byte) (int64, error) {
	if len(data) > 2 && data[0] == '"' && data[len(data)-1] == '"' {
		data = data[1 : len(data)-1]
	}
	// Else we assume that it is a raw number.

	var res int64
	i := 0

	for i < len(data) && data[i] != '.' {
		d := data[i] - '0'
		if d > 9 {
			return 0, fmt.Errorf("invalid decimal %q", data)
		}
		res = res*10 + int64(d)*PriceScale
		i++
	}

	if i < len(data) && data[i] == '.' {
		i++
		mult := PriceScale
		for i < len(data) {
			d := data[i] - '0'
			if d > 9 {
				return 0, fmt.Errorf("invalid decimal %q", data)
			}
			mult /= 10
			res += int64(d) * mult
			i++
		}
	}

	return res, nil
}
