// Package fx converts money amounts between currencies using stored
// historical rates, with a cache in front and identity fallback behind.
package fx

import (
	"context"
	"fmt"
	"time"

	"github.com/pkozlov/basistrack/pkg/logger"
	"github.com/pkozlov/basistrack/pkg/money"
)

// RateSource provides historical exchange rates: quote units per base unit,
// 8 implied decimals.
type RateSource interface {
	RateAtOrBefore(ctx context.Context, base, quote string, asOf time.Time) (int64, bool, error)
}

// RateCache is an optional read-through cache keyed by pair and day.
type RateCache interface {
	Get(ctx context.Context, base, quote string, date time.Time) (int64, bool)
	Set(ctx context.Context, base, quote string, date time.Time, rate int64)
}

// Converter implements costbasis.CurrencyConverter. When no rate exists for
// a pair it falls back to identity conversion with a warning: an approximate
// cost basis beats a failed report, and callers are documented to tolerate
// it.
type Converter struct {
	rates RateSource
	cache RateCache
	log   *logger.Logger
}

// NewConverter creates a currency converter. The cache may be nil.
func NewConverter(rates RateSource, cache RateCache, log *logger.Logger) *Converter {
	if log == nil {
		log = logger.Discard()
	}
	return &Converter{rates: rates, cache: cache, log: log}
}

// Convert converts an amount from one currency to another at the rate in
// effect on asOf.
func (c *Converter) Convert(ctx context.Context, amount money.Cents, from, to string, asOf time.Time) (money.Cents, error) {
	if from == to {
		return amount, nil
	}

	rate, err := c.rate(ctx, from, to, asOf)
	if err != nil {
		return 0, err
	}
	if rate == 0 {
		c.log.Warn("no exchange rate available, falling back to identity conversion",
			"from", from, "to", to, "as_of", asOf)
		return amount, nil
	}

	return money.ConvertCents(amount, rate), nil
}

func (c *Converter) rate(ctx context.Context, from, to string, asOf time.Time) (int64, error) {
	if c.cache != nil {
		if rate, ok := c.cache.Get(ctx, from, to, asOf); ok {
			return rate, nil
		}
	}

	rate, found, err := c.rates.RateAtOrBefore(ctx, from, to, asOf)
	if err != nil {
		return 0, fmt.Errorf("looking up rate %s/%s: %w", from, to, err)
	}
	if !found {
		return 0, nil
	}

	if c.cache != nil {
		c.cache.Set(ctx, from, to, asOf, rate)
	}
	return rate, nil
}
