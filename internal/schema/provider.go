// Package schema defines the canonical market data model every provider
// connector normalizes into.
package schema

import (
	"fmt"
	"strings"
)

type Provider string

const (
	ProviderKalshi     Provider = "kalshi"
	ProviderPolymarket Provider = "polymarket"
)

// idPrefixes maps each provider to the prefix its canonical market
// identifiers carry ({PREFIX}-{SLUG}).
var idPrefixes = map[Provider]string{
	ProviderKalshi:     "KALSHI",
	ProviderPolymarket: "POLY",
}

func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := idPrefixes[p]; !ok {
		return "", fmt.Errorf("unknown provider %q", s)
	}
	return p, nil
}

func (p Provider) Valid() bool {
	_, ok := idPrefixes[p]
	return ok
}

func (p Provider) IDPrefix() string {
	return idPrefixes[p]
}

// MarketID builds the canonical identifier for a provider-native slug.
func (p Provider) MarketID(slug string) string {
	return idPrefixes[p] + "-" + strings.ToUpper(slug)
}

// SplitMarketID splits a canonical identifier into provider and native slug.
// The slug may itself contain dashes; only the first segment is the prefix.
func SplitMarketID(id string) (Provider, string, bool) {
	prefix, slug, found := strings.Cut(id, "-")
	if !found || slug == "" {
		return "", "", false
	}
	for p, pre := range idPrefixes {
		if pre == prefix {
			return p, slug, true
		}
	}
	return "", "", false
}
