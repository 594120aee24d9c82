// Package costbasis aggregates FIFO lots into per-security and per-portfolio
// cost basis figures, optionally converted into a reporting currency.
package costbasis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pkozlov/basistrack/internal/fifo"
	"github.com/pkozlov/basistrack/internal/ledger"
	"github.com/pkozlov/basistrack/pkg/logger"
	"github.com/pkozlov/basistrack/pkg/money"
)

// LotSource provides read access to stored lots.
type LotSource interface {
	ListLots(ctx context.Context, securityID uuid.UUID) ([]*fifo.Lot, error)
}

// ConsumptionSource provides read access to stored consumptions.
type ConsumptionSource interface {
	ListConsumptions(ctx context.Context, securityID uuid.UUID) ([]*fifo.Consumption, error)
}

// CurrencyConverter converts an amount between currencies as of a date.
// Implementations fall back to identity conversion when no rate exists, so
// callers must tolerate approximate results.
type CurrencyConverter interface {
	Convert(ctx context.Context, amount money.Cents, from, to string, asOf time.Time) (money.Cents, error)
}

// Result is the cost basis of the currently held shares.
type Result struct {
	RemainingShares money.Shares
	CostBasis       money.Cents
	Currency        string
}

// Service answers cost basis queries from stored lot state.
type Service struct {
	lots         LotSource
	consumptions ConsumptionSource
	feed         ledger.TransactionReader
	converter    CurrencyConverter
	log          *logger.Logger
}

// NewService creates a cost basis service.
func NewService(lots LotSource, consumptions ConsumptionSource, feed ledger.TransactionReader, converter CurrencyConverter, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{lots: lots, consumptions: consumptions, feed: feed, converter: converter, log: log}
}

// CostBasis sums remaining shares and their gross cost over all open lots of
// a security, across portfolios. The per-lot cost is always recomputed as
// remaining/original × gross with the engine's rounding.
func (s *Service) CostBasis(ctx context.Context, securityID uuid.UUID) (Result, error) {
	return s.costBasis(ctx, securityID, nil)
}

// PortfolioCostBasis restricts the cost basis to one portfolio's lots.
func (s *Service) PortfolioCostBasis(ctx context.Context, securityID, portfolioID uuid.UUID) (Result, error) {
	return s.costBasis(ctx, securityID, &portfolioID)
}

func (s *Service) costBasis(ctx context.Context, securityID uuid.UUID, portfolioID *uuid.UUID) (Result, error) {
	lots, err := s.lots.ListLots(ctx, securityID)
	if err != nil {
		return Result{}, fmt.Errorf("listing lots for security %s: %w", securityID, err)
	}

	var result Result
	for _, lot := range lots {
		if !lot.Open() {
			continue
		}
		if portfolioID != nil && lot.PortfolioID != *portfolioID {
			continue
		}
		if result.Currency == "" {
			result.Currency = lot.Currency
		} else if result.Currency != lot.Currency {
			s.log.Warn("mixed lot currencies in cost basis, use the converting query instead",
				"security_id", securityID, "currencies", []string{result.Currency, lot.Currency})
		}
		result.RemainingShares += lot.RemainingShares
		result.CostBasis += lot.RemainingGross()
	}

	return result, nil
}

// CostBasisInCurrency converts each open lot's remaining cost into the
// target currency at the lot's purchase date. Converting at purchase date
// rather than today keeps historical cost historical; converting a 2015 USD
// purchase at today's rate would distort the basis.
func (s *Service) CostBasisInCurrency(ctx context.Context, securityID uuid.UUID, currency string) (Result, error) {
	lots, err := s.lots.ListLots(ctx, securityID)
	if err != nil {
		return Result{}, fmt.Errorf("listing lots for security %s: %w", securityID, err)
	}

	result := Result{Currency: currency}
	for _, lot := range lots {
		if !lot.Open() {
			continue
		}
		converted, err := s.converter.Convert(ctx, lot.RemainingGross(), lot.Currency, currency, lot.PurchaseDate)
		if err != nil {
			return Result{}, fmt.Errorf("converting lot %s: %w", lot.ID, err)
		}
		result.RemainingShares += lot.RemainingShares
		result.CostBasis += converted
	}

	return result, nil
}

// RealizedEntry is the realized outcome of one sale, with FIFO-attributed cost.
type RealizedEntry struct {
	TransactionID uuid.UUID
	Date          time.Time
	SharesSold    money.Shares
	CostBasis     money.Cents // gross cost consumed, FIFO-proportional
	Proceeds      money.Cents
	Gain          money.Cents
	Currency      string
}

// RealizedGains reports per-sale realized gains for a security. Transfer
// consumptions move cost between portfolios without realizing anything and
// are excluded.
func (s *Service) RealizedGains(ctx context.Context, securityID uuid.UUID) ([]RealizedEntry, error) {
	consumptions, err := s.consumptions.ListConsumptions(ctx, securityID)
	if err != nil {
		return nil, fmt.Errorf("listing consumptions for security %s: %w", securityID, err)
	}

	txns, err := s.feed.ListBySecurity(ctx, securityID)
	if err != nil {
		return nil, fmt.Errorf("listing transactions for security %s: %w", securityID, err)
	}
	byID := make(map[uuid.UUID]*ledger.Transaction, len(txns))
	for _, txn := range txns {
		byID[txn.ID] = txn
	}

	entries := make(map[uuid.UUID]*RealizedEntry)
	for _, c := range consumptions {
		txn, ok := byID[c.TransactionID]
		if !ok {
			s.log.Warn("consumption references unknown transaction",
				"consumption_id", c.ID, "transaction_id", c.TransactionID)
			continue
		}
		if txn.Type != ledger.TypeSell && txn.Type != ledger.TypeDeliveryOutbound {
			continue
		}

		entry, ok := entries[txn.ID]
		if !ok {
			entry = &RealizedEntry{TransactionID: txn.ID, Date: txn.Date, Currency: txn.Currency}
			entries[txn.ID] = entry
		}
		entry.SharesSold += c.SharesConsumed
		entry.CostBasis += c.GrossAmount
	}

	out := make([]RealizedEntry, 0, len(entries))
	for _, entry := range entries {
		txn := byID[entry.TransactionID]
		// Proceeds attributed proportionally when the sale was only
		// partially covered by lots (oversell).
		if txn.Shares > 0 {
			entry.Proceeds = money.ProportionalCents(txn.Amount, entry.SharesSold, txn.Shares)
		}
		entry.Gain = entry.Proceeds - entry.CostBasis
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].TransactionID.String() < out[j].TransactionID.String()
	})

	return out, nil
}
