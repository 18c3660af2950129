package services

import (
	"context"
	"time"

	"github.com/billingo/billingo-backend/internal/core/domain"
	"github.com/billingo/billingo-backend/internal/dto"
	"github.com/shopspring/decimal"
)

// CurrencySvcFacade defines currency conversion and exchange rate
// management.
type CurrencySvcFacade interface {
	// Convert converts an amount between currencies using the rate
	// effective at asOf (zero value = latest), rounded to 2 decimals.
	// Identity conversions return the amount unchanged.
	Convert(ctx context.Context, amount decimal.Decimal, fromCode, toCode string, asOf time.Time) (decimal.Decimal, error)

	// GetExchangeRate resolves the rate for a pair: cache, stored rates,
	// reciprocal of the inverse pair, then the external provider. Provider
	// failure degrades to a neutral rate of 1.0.
	GetExchangeRate(ctx context.Context, fromCode, toCode string, asOf time.Time) (decimal.Decimal, error)

	// CreateExchangeRate upserts a rate for a pair and effective date.
	CreateExchangeRate(ctx context.Context, req dto.CreateExchangeRateRequest, creatorUserID string) (*domain.ExchangeRate, error)
}

// RateProvider is the external exchange-rate source: a single fetch of all
// rates for a base currency. Non-2xx or malformed responses surface as
// errors; the currency service decides how to degrade.
type RateProvider interface {
	FetchRates(ctx context.Context, baseCurrency string) (map[string]decimal.Decimal, error)
}
