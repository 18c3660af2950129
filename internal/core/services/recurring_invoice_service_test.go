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
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type RecurringInvoiceServiceTestSuite struct {
	suite.Suite
	mockRecurringRepo *MockRecurringRepository
	mockClientRepo    *MockClientRepository
	dispatcher        *capturingDispatcher
	service           portssvc.RecurringSvcFacade

	testUserID   string
	testClientID string
}

func (suite *RecurringInvoiceServiceTestSuite) SetupTest() {
	suite.mockRecurringRepo = new(MockRecurringRepository)
	suite.mockClientRepo = new(MockClientRepository)
	suite.dispatcher = &capturingDispatcher{}
	suite.service = services.NewRecurringInvoiceService(suite.mockRecurringRepo, suite.mockClientRepo, suite.dispatcher)
	suite.testUserID = uuid.NewString()
	suite.testClientID = uuid.NewString()
}

func (suite *RecurringInvoiceServiceTestSuite) testClient() *domain.Client {
	return &domain.Client{
		ClientID:     suite.testClientID,
		UserID:       suite.testUserID,
		CurrencyCode: "EUR",
		TaxRate:      decimal.RequireFromString("0.10"),
	}
}

func (suite *RecurringInvoiceServiceTestSuite) activeTemplate() domain.RecurringInvoice {
	start := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	return domain.RecurringInvoice{
		RecurringInvoiceID: uuid.NewString(),
		UserID:             suite.testUserID,
		ClientID:           suite.testClientID,
		Title:              "Monthly Retainer",
		Amount:             decimal.RequireFromString("500.00"),
		CurrencyCode:       "EUR",
		Frequency:          domain.FrequencyMonthly,
		Status:             domain.RecurringStatusActive,
		StartDate:          start,
		NextRunDate:        start,
	}
}

func (suite *RecurringInvoiceServiceTestSuite) TestCreateRecurringInvoice_Success() {
	ctx := context.Background()
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	req := dto.CreateRecurringInvoiceRequest{
		ClientID:  suite.testClientID,
		Title:     "Monthly Retainer",
		Amount:    decimal.RequireFromString("500.00"),
		Frequency: "MONTHLY",
		StartDate: start,
	}

	suite.mockClientRepo.On("FindClientByID", ctx, suite.testUserID, suite.testClientID).Return(suite.testClient(), nil).Once()
	suite.mockRecurringRepo.On("SaveRecurringInvoice", ctx, mock.MatchedBy(func(r domain.RecurringInvoice) bool {
		return r.Status == domain.RecurringStatusActive && r.NextRunDate.Equal(start) && r.CurrencyCode == "EUR"
	})).Return(nil).Once()

	recurring, err := suite.service.CreateRecurringInvoice(ctx, suite.testUserID, req)

	suite.Require().NoError(err)
	suite.Equal(domain.RecurringStatusActive, recurring.Status)
	suite.Equal(start, recurring.NextRunDate)
	suite.mockRecurringRepo.AssertExpectations(suite.T())
}

func (suite *RecurringInvoiceServiceTestSuite) TestCreateRecurringInvoice_NonPositiveAmount() {
	ctx := context.Background()
	req := dto.CreateRecurringInvoiceRequest{
		ClientID:  suite.testClientID,
		Title:     "Zero",
		Amount:    decimal.Zero,
		Frequency: "MONTHLY",
		StartDate: time.Now(),
	}

	_, err := suite.service.CreateRecurringInvoice(ctx, suite.testUserID, req)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockRecurringRepo.AssertNotCalled(suite.T(), "SaveRecurringInvoice")
}

func (suite *RecurringInvoiceServiceTestSuite) TestPauseResume() {
	ctx := context.Background()
	template := suite.activeTemplate()

	suite.mockRecurringRepo.On("FindRecurringInvoiceByID", ctx, suite.testUserID, template.RecurringInvoiceID).Return(&template, nil).Once()
	suite.mockRecurringRepo.On("UpdateRecurringStatus", ctx, suite.testUserID, template.RecurringInvoiceID,
		[]domain.RecurringStatus{domain.RecurringStatusActive}, domain.RecurringStatusPaused,
		suite.testUserID, mock.AnythingOfType("time.Time")).Return(true, nil).Once()

	paused, err := suite.service.PauseRecurringInvoice(ctx, suite.testUserID, template.RecurringInvoiceID)

	suite.Require().NoError(err)
	suite.Equal(domain.RecurringStatusPaused, paused.Status)

	pausedCopy := *paused
	suite.mockRecurringRepo.On("FindRecurringInvoiceByID", ctx, suite.testUserID, template.RecurringInvoiceID).Return(&pausedCopy, nil).Once()
	suite.mockRecurringRepo.On("UpdateRecurringStatus", ctx, suite.testUserID, template.RecurringInvoiceID,
		[]domain.RecurringStatus{domain.RecurringStatusPaused}, domain.RecurringStatusActive,
		suite.testUserID, mock.AnythingOfType("time.Time")).Return(true, nil).Once()

	resumed, err := suite.service.ResumeRecurringInvoice(ctx, suite.testUserID, template.RecurringInvoiceID)

	suite.Require().NoError(err)
	suite.Equal(domain.RecurringStatusActive, resumed.Status)
}

func (suite *RecurringInvoiceServiceTestSuite) TestCancel_LostRaceIsConflict() {
	ctx := context.Background()
	template := suite.activeTemplate()

	suite.mockRecurringRepo.On("FindRecurringInvoiceByID", ctx, suite.testUserID, template.RecurringInvoiceID).Return(&template, nil).Once()
	suite.mockRecurringRepo.On("UpdateRecurringStatus", ctx, suite.testUserID, template.RecurringInvoiceID,
		mock.Anything, domain.RecurringStatusCancelled, suite.testUserID, mock.AnythingOfType("time.Time")).Return(false, nil).Once()

	_, err := suite.service.CancelRecurringInvoice(ctx, suite.testUserID, template.RecurringInvoiceID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrConflict)
}

func (suite *RecurringInvoiceServiceTestSuite) TestUpdate_CancelledRefused() {
	ctx := context.Background()
	template := suite.activeTemplate()
	template.Status = domain.RecurringStatusCancelled

	suite.mockRecurringRepo.On("FindRecurringInvoiceByID", ctx, suite.testUserID, template.RecurringInvoiceID).Return(&template, nil).Once()

	newTitle := "Renamed"
	_, err := suite.service.UpdateRecurringInvoice(ctx, suite.testUserID, template.RecurringInvoiceID, dto.UpdateRecurringInvoiceRequest{Title: &newTitle})

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.mockRecurringRepo.AssertNotCalled(suite.T(), "UpdateRecurringInvoice")
}

func (suite *RecurringInvoiceServiceTestSuite) TestGenerateDueInvoices_OneFailureDoesNotAbortBatch() {
	ctx := context.Background()
	templates := make([]domain.RecurringInvoice, 5)
	for i := range templates {
		templates[i] = suite.activeTemplate()
		templates[i].RecurringInvoiceID = uuid.NewString()
	}

	suite.mockClientRepo.On("FindClientByID", ctx, suite.testUserID, suite.testClientID).Return(suite.testClient(), nil).Times(5)
	suite.mockRecurringRepo.On("ListDueTemplates", ctx, mock.AnythingOfType("time.Time"), 50, (*string)(nil)).Return(templates, nil).Once()

	// Template 2 fails; the other four generate.
	for i := range templates {
		call := suite.mockRecurringRepo.On("GenerateInvoice", ctx,
			mock.MatchedBy(matchTemplateID(templates[i].RecurringInvoiceID)),
			mock.AnythingOfType("*domain.Invoice"),
			mock.MatchedBy(func(a domain.InvoiceActivity) bool {
				return a.Action == domain.ActivityGeneratedFromRecurring
			}),
			templates[i].NextRunDate,
			time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)).Once()
		if i == 2 {
			call.Return(false, assert.AnError)
		} else {
			call.Return(true, nil)
		}
	}

	result, err := suite.service.GenerateDueInvoices(ctx, 50, nil)

	suite.Require().NoError(err)
	suite.Equal(4, result.Processed)
	suite.Equal(1, result.Errored)
	suite.Equal(0, result.Skipped)
	suite.Len(suite.dispatcher.Events(), 4)
	suite.mockRecurringRepo.AssertExpectations(suite.T())
}

func (suite *RecurringInvoiceServiceTestSuite) TestGenerateDueInvoices_LostRaceIsSkip() {
	ctx := context.Background()
	template := suite.activeTemplate()

	suite.mockRecurringRepo.On("ListDueTemplates", ctx, mock.AnythingOfType("time.Time"), 10, (*string)(nil)).Return([]domain.RecurringInvoice{template}, nil).Once()
	suite.mockClientRepo.On("FindClientByID", ctx, suite.testUserID, suite.testClientID).Return(suite.testClient(), nil).Once()
	suite.mockRecurringRepo.On("GenerateInvoice", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, nil).Once()

	result, err := suite.service.GenerateDueInvoices(ctx, 10, nil)

	suite.Require().NoError(err)
	suite.Equal(0, result.Processed)
	suite.Equal(1, result.Skipped)
	suite.Empty(suite.dispatcher.Events())
}

func (suite *RecurringInvoiceServiceTestSuite) TestGenerateDueInvoices_GeneratedInvoiceShape() {
	ctx := context.Background()
	template := suite.activeTemplate()

	var generated *domain.Invoice
	suite.mockRecurringRepo.On("ListDueTemplates", ctx, mock.AnythingOfType("time.Time"), 10, (*string)(nil)).Return([]domain.RecurringInvoice{template}, nil).Once()
	suite.mockClientRepo.On("FindClientByID", ctx, suite.testUserID, suite.testClientID).Return(suite.testClient(), nil).Once()
	suite.mockRecurringRepo.On("GenerateInvoice", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			generated = args.Get(2).(*domain.Invoice)
		}).Return(true, nil).Once()

	_, err := suite.service.GenerateDueInvoices(ctx, 10, nil)

	suite.Require().NoError(err)
	suite.Require().NotNil(generated)
	suite.Equal(domain.InvoiceStatusSent, generated.Status)
	suite.Equal("500", generated.SubTotal.String())
	suite.True(generated.Tax.IsZero(), "generated invoice carries no tax")
	suite.Equal("500", generated.Total.String(), "total equals the template amount")
	suite.Equal("EUR", generated.CurrencyCode)
	suite.Equal(suite.testClient().TaxRate.String(), generated.TaxRate.String())
	suite.Require().NotNil(generated.RecurringInvoiceID)
	suite.Equal(template.RecurringInvoiceID, *generated.RecurringInvoiceID)
	suite.Equal(generated.IssueDate.AddDate(0, 0, 30), generated.DueDate)
}

func matchTemplateID(id string) func(domain.RecurringInvoice) bool {
	return func(t domain.RecurringInvoice) bool {
		return t.RecurringInvoiceID == id
	}
}

func TestRecurringInvoiceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RecurringInvoiceServiceTestSuite))
}
