// Package orderbook assembles sorted bid and ask levels for a market.
package orderbook

import (
	"fmt"

	"github.com/google/btree"
)

// Level is a price level in canonical units: price in [0, 1], size in contracts.
type Level struct {
	Price float64
	Size  float64
}

// lessAsc compares levels by price ascending (for asks: lowest first).
func lessAsc(a, b Level) bool {
	return a.Price < b.Price
}

// lessDesc compares levels by price descending (for bids: highest first).
func lessDesc(a, b Level) bool {
	return a.Price > b.Price
}

// Orderbook maintains sorted bid and ask levels using btrees.
// Bids are sorted descending (highest price first).
// Asks are sorted ascending (lowest price first).
type Orderbook struct {
	bids *btree.BTreeG[Level]
	asks *btree.BTreeG[Level]
}

// New creates a new empty order book.
func New() *Orderbook {
	return &Orderbook{
		bids: btree.NewG(32, lessDesc), // degree 32, descending
		asks: btree.NewG(32, lessAsc),  // degree 32, ascending
	}
}

// Set sets an absolute size at a price level.
// If size <= 0, the level is removed.
func (ob *Orderbook) Set(p, size float64, side string) error {
	tree, err := ob.getTree(side)
	if err != nil {
		return err
	}

	if size <= 0 {
		tree.Delete(Level{Price: p})
		return nil
	}

	tree.ReplaceOrInsert(Level{Price: p, Size: size})
	return nil
}

// GetTopN returns the top N price levels for a side. N <= 0 returns all
// levels. Bids: highest prices first. Asks: lowest prices first.
func (ob *Orderbook) GetTopN(side string, n int) ([]Level, error) {
	tree, err := ob.getTree(side)
	if err != nil {
		return nil, err
	}

	if n <= 0 || n > tree.Len() {
		n = tree.Len()
	}

	levels := make([]Level, 0, n)
	tree.Ascend(func(lvl Level) bool {
		levels = append(levels, lvl)
		return len(levels) < n
	})

	return levels, nil
}

// Best returns the first level of a side (highest bid or lowest ask).
func (ob *Orderbook) Best(side string) (Level, bool) {
	tree, err := ob.getTree(side)
	if err != nil || tree.Len() == 0 {
		return Level{}, false
	}

	var best Level
	tree.Ascend(func(lvl Level) bool {
		best = lvl
		return false
	})
	return best, true
}

// Len returns the number of levels on a side.
func (ob *Orderbook) Len(side string) int {
	tree, _ := ob.getTree(side)
	if tree == nil {
		return 0
	}
	return tree.Len()
}

func (ob *Orderbook) getTree(side string) (*btree.BTreeG[Level], error) {
	switch side {
	case "bids":
		return ob.bids, nil
	case "asks":
		return ob.asks, nil
	default:
		return nil, fmt.Errorf("invalid side: %s", side)
	}
}
