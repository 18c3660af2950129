package repositories

import (
	"context"
	"time"

	"github.com/billingo/billingo-backend/internal/core/domain"
)

// ExchangeRateReader defines read operations for stored exchange rates.
type ExchangeRateReader interface {
	// FindRateOnOrBefore retrieves the latest stored rate for the pair
	// whose effective date is at or before asOf.
	FindRateOnOrBefore(ctx context.Context, fromCurrencyCode, toCurrencyCode string, asOf time.Time) (*domain.ExchangeRate, error)
}

// ExchangeRateWriter defines write operations for stored exchange rates.
type ExchangeRateWriter interface {
	// SaveExchangeRate upserts a rate keyed by (from, to, effective date).
	SaveExchangeRate(ctx context.Context, rate domain.ExchangeRate) error
}

// ExchangeRateRepositoryFacade combines all exchange rate repository
// interfaces.
type ExchangeRateRepositoryFacade interface {
	ExchangeRateReader
	ExchangeRateWriter
}
