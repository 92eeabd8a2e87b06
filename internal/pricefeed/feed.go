package pricefeed

import (
	"fmt"
	"sync"

	"orderexec/internal/model"

	"github.com/shopspring/decimal"
)

// Feed serves simulated reference prices: a per-symbol entry when one is
// set, the default otherwise.
type Feed struct {
	mu           sync.RWMutex
	defaultPrice decimal.Decimal
	prices       map[string]decimal.Decimal
}

// NewFeed validates and normalizes the configured prices.
func NewFeed(defaultPrice decimal.Decimal, prices map[string]decimal.Decimal) (*Feed, error) {
	if !defaultPrice.IsPositive() {
		return nil, fmt.Errorf("default price must be > 0, got %s", defaultPrice)
	}
	f := &Feed{defaultPrice: defaultPrice, prices: make(map[string]decimal.Decimal, len(prices))}
	for symbol, price := range prices {
		if err := f.Set(symbol, price); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Price returns the reference price for symbol.
func (f *Feed) Price(symbol string) decimal.Decimal {
	if s, ok := model.NormalizeSymbol(symbol); ok {
		f.mu.RLock()
		p, found := f.prices[s]
		f.mu.RUnlock()
		if found {
			return p
		}
	}
	return f.defaultPrice
}

// Set replaces the price of one symbol.
func (f *Feed) Set(symbol string, price decimal.Decimal) error {
	s, ok := model.NormalizeSymbol(symbol)
	if !ok {
		return fmt.Errorf("price symbol is empty")
	}
	if !price.IsPositive() {
		return fmt.Errorf("price for %s must be > 0, got %s", s, price)
	}
	f.mu.Lock()
	f.prices[s] = price
	f.mu.Unlock()
	return nil
}
