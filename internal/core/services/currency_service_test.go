package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/billingo/billingo-backend/internal/apperrors"
	"github.com/billingo/billingo-backend/internal/core/domain"
	portssvc "github.com/billingo/billingo-backend/internal/core/ports/services"
	"github.com/billingo/billingo-backend/internal/core/services"
	"github.com/billingo/billingo-backend/internal/dto"
	"github.com/billingo/billingo-backend/internal/platform/cache"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type CurrencyServiceTestSuite struct {
	suite.Suite
	mockRateRepo *MockExchangeRateRepository
	mockProvider *MockRateProvider
	service      portssvc.CurrencySvcFacade
}

func (suite *CurrencyServiceTestSuite) SetupTest() {
	suite.mockRateRepo = new(MockExchangeRateRepository)
	suite.mockProvider = new(MockRateProvider)
	suite.service = services.NewCurrencyService(suite.mockRateRepo, suite.mockProvider, noopRateCache{}, 24*time.Hour)
}

func (suite *CurrencyServiceTestSuite) TestConvert_IdentityShortCircuits() {
	ctx := context.Background()

	converted, err := suite.service.Convert(ctx, decimal.RequireFromString("123.456"), "USD", "USD", time.Time{})

	suite.Require().NoError(err)
	suite.Equal("123.456", converted.String(), "identity conversion must not round")
	suite.mockRateRepo.AssertNotCalled(suite.T(), "FindRateOnOrBefore")
	suite.mockProvider.AssertNotCalled(suite.T(), "FetchRates")
}

func (suite *CurrencyServiceTestSuite) TestConvert_UsesStoredRate() {
	ctx := context.Background()
	stored := &domain.ExchangeRate{
		FromCurrencyCode: "USD",
		ToCurrencyCode:   "EUR",
		Rate:             decimal.RequireFromString("0.90"),
	}

	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, "USD", "EUR", mock.AnythingOfType("time.Time")).Return(stored, nil).Once()

	converted, err := suite.service.Convert(ctx, decimal.RequireFromString("100.00"), "USD", "EUR", time.Time{})

	suite.Require().NoError(err)
	suite.Equal("90", converted.String())
	suite.mockProvider.AssertNotCalled(suite.T(), "FetchRates")
}

func (suite *CurrencyServiceTestSuite) TestConvert_FallsBackToInverseReciprocal() {
	ctx := context.Background()
	inverse := &domain.ExchangeRate{
		FromCurrencyCode: "EUR",
		ToCurrencyCode:   "USD",
		Rate:             decimal.RequireFromString("1.25"),
	}

	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, "USD", "EUR", mock.AnythingOfType("time.Time")).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, "EUR", "USD", mock.AnythingOfType("time.Time")).Return(inverse, nil).Once()

	converted, err := suite.service.Convert(ctx, decimal.RequireFromString("100.00"), "USD", "EUR", time.Time{})

	suite.Require().NoError(err)
	suite.Equal("80", converted.String())
}

func (suite *CurrencyServiceTestSuite) TestConvert_FetchesFromProviderAndPersists() {
	ctx := context.Background()

	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, "USD", "INR", mock.AnythingOfType("time.Time")).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, "INR", "USD", mock.AnythingOfType("time.Time")).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockProvider.On("FetchRates", ctx, "USD").Return(map[string]decimal.Decimal{
		"INR": decimal.RequireFromString("83.20"),
		"EUR": decimal.RequireFromString("0.90"),
	}, nil).Once()
	suite.mockRateRepo.On("SaveExchangeRate", ctx, mock.MatchedBy(func(r domain.ExchangeRate) bool {
		return r.FromCurrencyCode == "USD" && r.ToCurrencyCode == "INR" && r.Rate.Equal(decimal.RequireFromString("83.20"))
	})).Return(nil).Once()

	converted, err := suite.service.Convert(ctx, decimal.RequireFromString("10.00"), "USD", "INR", time.Time{})

	suite.Require().NoError(err)
	suite.Equal("832", converted.String())
	suite.mockRateRepo.AssertExpectations(suite.T())
}

func (suite *CurrencyServiceTestSuite) TestConvert_DegradesToNeutralRate() {
	ctx := context.Background()

	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, "USD", "GBP", mock.AnythingOfType("time.Time")).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, "GBP", "USD", mock.AnythingOfType("time.Time")).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockProvider.On("FetchRates", ctx, "USD").Return(nil, assert.AnError).Once()

	converted, err := suite.service.Convert(ctx, decimal.RequireFromString("42.00"), "USD", "GBP", time.Time{})

	suite.Require().NoError(err)
	suite.Equal("42", converted.String())
}

func (suite *CurrencyServiceTestSuite) TestGetExchangeRate_CacheHitSkipsRepo() {
	ctx := context.Background()
	memCache := newMemRateCache()
	memCache.Set(ctx, cache.RateKey("USD", "EUR", time.Time{}), decimal.RequireFromString("0.85"), time.Hour)

	svc := services.NewCurrencyService(suite.mockRateRepo, suite.mockProvider, memCache, 24*time.Hour)

	rate, err := svc.GetExchangeRate(ctx, "USD", "EUR", time.Time{})

	suite.Require().NoError(err)
	suite.Equal("0.85", rate.String())
	suite.mockRateRepo.AssertNotCalled(suite.T(), "FindRateOnOrBefore")
}

func (suite *CurrencyServiceTestSuite) TestGetExchangeRate_ResolvedRateIsCached() {
	ctx := context.Background()
	memCache := newMemRateCache()
	stored := &domain.ExchangeRate{FromCurrencyCode: "USD", ToCurrencyCode: "EUR", Rate: decimal.RequireFromString("0.90")}

	suite.mockRateRepo.On("FindRateOnOrBefore", ctx, "USD", "EUR", mock.AnythingOfType("time.Time")).Return(stored, nil).Once()

	svc := services.NewCurrencyService(suite.mockRateRepo, suite.mockProvider, memCache, 24*time.Hour)

	_, err := svc.GetExchangeRate(ctx, "USD", "EUR", time.Time{})
	suite.Require().NoError(err)

	// Second resolution hits the cache, not the repository.
	rate, err := svc.GetExchangeRate(ctx, "USD", "EUR", time.Time{})
	suite.Require().NoError(err)
	suite.Equal("0.9", rate.String())
	suite.mockRateRepo.AssertNumberOfCalls(suite.T(), "FindRateOnOrBefore", 1)
}

func (suite *CurrencyServiceTestSuite) TestCreateExchangeRate_Success() {
	ctx := context.Background()
	creatorUserID := uuid.NewString()
	req := dto.CreateExchangeRateRequest{
		FromCurrencyCode: "usd",
		ToCurrencyCode:   "EUR",
		Rate:             decimal.RequireFromString("0.92"),
		DateEffective:    time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}

	suite.mockRateRepo.On("SaveExchangeRate", ctx, mock.MatchedBy(func(r domain.ExchangeRate) bool {
		return r.FromCurrencyCode == "USD" && r.ToCurrencyCode == "EUR" && r.CreatedBy == creatorUserID
	})).Return(nil).Once()

	rate, err := suite.service.CreateExchangeRate(ctx, req, creatorUserID)

	suite.Require().NoError(err)
	suite.Equal("USD", rate.FromCurrencyCode)
	suite.mockRateRepo.AssertExpectations(suite.T())
}

func (suite *CurrencyServiceTestSuite) TestCreateExchangeRate_SamePairRefused() {
	ctx := context.Background()
	req := dto.CreateExchangeRateRequest{
		FromCurrencyCode: "USD",
		ToCurrencyCode:   "USD",
		Rate:             decimal.NewFromInt(1),
		DateEffective:    time.Now(),
	}

	_, err := suite.service.CreateExchangeRate(ctx, req, uuid.NewString())

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *CurrencyServiceTestSuite) TestCreateExchangeRate_NonPositiveRateRefused() {
	ctx := context.Background()
	req := dto.CreateExchangeRateRequest{
		FromCurrencyCode: "USD",
		ToCurrencyCode:   "EUR",
		Rate:             decimal.Zero,
		DateEffective:    time.Now(),
	}

	_, err := suite.service.CreateExchangeRate(ctx, req, uuid.NewString())

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func TestCurrencyServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CurrencyServiceTestSuite))
}
