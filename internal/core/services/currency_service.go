package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/billingo/billingo-backend/internal/apperrors"
	"github.com/billingo/billingo-backend/internal/core/domain"
	portsrepo "github.com/billingo/billingo-backend/internal/core/ports/repositories"
	portssvc "github.com/billingo/billingo-backend/internal/core/ports/services"
	"github.com/billingo/billingo-backend/internal/dto"
	"github.com/billingo/billingo-backend/internal/platform/cache"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// neutralRate is the degraded fallback applied when no rate source can
// resolve a pair. Conversions with it are wrong for unequal currencies,
// which is why every use is logged loudly.
var neutralRate = decimal.NewFromInt(1)

type currencyService struct {
	BaseService
	rateRepo  portsrepo.ExchangeRateRepositoryFacade
	provider  portssvc.RateProvider
	rateCache cache.RateCache
	cacheTTL  time.Duration
}

// NewCurrencyService creates a new CurrencyService.
func NewCurrencyService(
	rateRepo portsrepo.ExchangeRateRepositoryFacade,
	provider portssvc.RateProvider,
	rateCache cache.RateCache,
	cacheTTL time.Duration,
) portssvc.CurrencySvcFacade {
	return &currencyService{
		rateRepo:  rateRepo,
		provider:  provider,
		rateCache: rateCache,
		cacheTTL:  cacheTTL,
	}
}

var _ portssvc.CurrencySvcFacade = (*currencyService)(nil)

// Convert converts an amount between currencies, rounded to 2 decimals.
// Identity conversions return the amount unchanged, unrounded, without
// touching any rate source.
func (s *currencyService) Convert(ctx context.Context, amount decimal.Decimal, fromCode, toCode string, asOf time.Time) (decimal.Decimal, error) {
	from, to, err := normalizePair(fromCode, toCode)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if from == to {
		return amount, nil
	}

	rate, err := s.GetExchangeRate(ctx, from, to, asOf)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return amount.Mul(rate).Round(2), nil
}

// GetExchangeRate resolves a rate through the fallback chain: cache,
// stored rates, reciprocal of the stored inverse pair, external provider.
// When everything fails the neutral rate 1.0 is returned with a warning,
// never an error: invoicing must not stall on a rate outage.
func (s *currencyService) GetExchangeRate(ctx context.Context, fromCode, toCode string, asOf time.Time) (decimal.Decimal, error) {
	from, to, err := normalizePair(fromCode, toCode)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if from == to {
		return neutralRate, nil
	}

	key := cache.RateKey(from, to, asOf)
	if rate, ok := s.rateCache.Get(ctx, key); ok {
		return rate, nil
	}

	rate, found := s.lookupStored(ctx, from, to, asOf)
	if !found {
		rate, found = s.fetchFromProvider(ctx, from, to)
	}
	if !found {
		s.LogWarn(ctx, "No exchange rate available, degrading to neutral rate 1.0",
			"from", from, "to", to)
		return neutralRate, nil
	}

	s.rateCache.Set(ctx, key, rate, s.cacheTTL)
	return rate, nil
}

// lookupStored checks the stored rates for the pair, falling back to the
// reciprocal of the inverse pair.
func (s *currencyService) lookupStored(ctx context.Context, from, to string, asOf time.Time) (decimal.Decimal, bool) {
	effective := asOf
	if effective.IsZero() {
		effective = time.Now().UTC()
	}

	stored, err := s.rateRepo.FindRateOnOrBefore(ctx, from, to, effective)
	if err == nil {
		return stored.Rate, true
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		s.LogError(ctx, err, "Stored rate lookup failed", "from", from, "to", to)
		return decimal.Decimal{}, false
	}

	inverse, err := s.rateRepo.FindRateOnOrBefore(ctx, to, from, effective)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Inverse rate lookup failed", "from", to, "to", from)
		}
		return decimal.Decimal{}, false
	}
	if inverse.Rate.IsZero() {
		return decimal.Decimal{}, false
	}
	// Reciprocal at full precision; rounding happens on the converted
	// amount, not the rate.
	return decimal.NewFromInt(1).Div(inverse.Rate), true
}

// fetchFromProvider pulls the latest rates for the base currency from the
// external provider and persists the requested pair for future lookups.
func (s *currencyService) fetchFromProvider(ctx context.Context, from, to string) (decimal.Decimal, bool) {
	rates, err := s.provider.FetchRates(ctx, from)
	if err != nil {
		s.LogWarn(ctx, "Rate provider fetch failed", "base", from, "error", err.Error())
		return decimal.Decimal{}, false
	}
	rate, ok := rates[to]
	if !ok {
		s.LogWarn(ctx, "Rate provider response missing currency", "base", from, "missing", to)
		return decimal.Decimal{}, false
	}

	now := time.Now().UTC()
	record := domain.ExchangeRate{
		ExchangeRateID:   uuid.NewString(),
		FromCurrencyCode: from,
		ToCurrencyCode:   to,
		Rate:             rate,
		DateEffective:    time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     "system",
			LastUpdatedAt: now,
			LastUpdatedBy: "system",
		},
	}
	if err := s.rateRepo.SaveExchangeRate(ctx, record); err != nil {
		// Persistence is an optimization; the fetched rate is still good.
		s.LogWarn(ctx, "Failed to persist fetched rate", "from", from, "to", to, "error", err.Error())
	}

	return rate, true
}

// CreateExchangeRate upserts a manually supplied rate for a pair and
// effective date.
func (s *currencyService) CreateExchangeRate(ctx context.Context, req dto.CreateExchangeRateRequest, creatorUserID string) (*domain.ExchangeRate, error) {
	from, to, err := normalizePair(req.FromCurrencyCode, req.ToCurrencyCode)
	if err != nil {
		return nil, err
	}
	if from == to {
		return nil, apperrors.NewValidationError("from and to currencies must differ")
	}
	if req.Rate.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.NewValidationError("rate must be positive")
	}

	now := time.Now().UTC()
	rate := domain.ExchangeRate{
		ExchangeRateID:   uuid.NewString(),
		FromCurrencyCode: from,
		ToCurrencyCode:   to,
		Rate:             req.Rate,
		DateEffective:    req.DateEffective,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.rateRepo.SaveExchangeRate(ctx, rate); err != nil {
		return nil, fmt.Errorf("failed to save exchange rate: %w", err)
	}

	return &rate, nil
}

// normalizePair upper-cases and validates a currency pair.
func normalizePair(fromCode, toCode string) (string, string, error) {
	from := strings.ToUpper(strings.TrimSpace(fromCode))
	to := strings.ToUpper(strings.TrimSpace(toCode))
	if len(from) != 3 || len(to) != 3 {
		return "", "", apperrors.NewValidationError("currency codes must be 3 letters")
	}
	return from, to, nil
}
