package services_test

import (
	"context"
	"testing"

	"github.com/billingo/billingo-backend/internal/apperrors"
	"github.com/billingo/billingo-backend/internal/core/domain"
	portssvc "github.com/billingo/billingo-backend/internal/core/ports/services"
	"github.com/billingo/billingo-backend/internal/core/services"
	"github.com/billingo/billingo-backend/internal/dto"
	"github.com/billingo/billingo-backend/internal/platform/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type ClientServiceTestSuite struct {
	suite.Suite
	mockRepo   *MockClientRepository
	service    portssvc.ClientSvcFacade
	testUserID string
}

func (suite *ClientServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockClientRepository)
	suite.service = services.NewClientService(suite.mockRepo, &config.Config{
		DefaultCurrency: "USD",
		DefaultTaxRate:  decimal.RequireFromString("0.10"),
	})
	suite.testUserID = uuid.NewString()
}

func (suite *ClientServiceTestSuite) TestCreateClient_AppliesDefaults() {
	ctx := context.Background()
	req := dto.CreateClientRequest{Name: "Acme Corp"}

	suite.mockRepo.On("SaveClient", ctx, mock.MatchedBy(func(c domain.Client) bool {
		return c.CurrencyCode == "USD" && c.TaxRate.Equal(decimal.RequireFromString("0.10")) && c.UserID == suite.testUserID
	})).Return(nil).Once()

	client, err := suite.service.CreateClient(ctx, suite.testUserID, req)

	suite.Require().NoError(err)
	suite.Equal("USD", client.CurrencyCode)
	suite.Equal("0.1", client.TaxRate.String())
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *ClientServiceTestSuite) TestCreateClient_ExplicitOverrides() {
	ctx := context.Background()
	rate := decimal.RequireFromString("0.18")
	req := dto.CreateClientRequest{
		Name:         "EU Client",
		CurrencyCode: "eur",
		TaxRate:      &rate,
		TaxExempt:    false,
	}

	suite.mockRepo.On("SaveClient", ctx, mock.MatchedBy(func(c domain.Client) bool {
		return c.CurrencyCode == "EUR" && c.TaxRate.Equal(rate)
	})).Return(nil).Once()

	client, err := suite.service.CreateClient(ctx, suite.testUserID, req)

	suite.Require().NoError(err)
	suite.Equal("EUR", client.CurrencyCode)
}

func (suite *ClientServiceTestSuite) TestCreateClient_NegativeTaxRate() {
	ctx := context.Background()
	rate := decimal.RequireFromString("-0.05")
	req := dto.CreateClientRequest{Name: "Bad", TaxRate: &rate}

	_, err := suite.service.CreateClient(ctx, suite.testUserID, req)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockRepo.AssertNotCalled(suite.T(), "SaveClient")
}

func (suite *ClientServiceTestSuite) TestUpdateClient_PartialFields() {
	ctx := context.Background()
	clientID := uuid.NewString()
	existing := &domain.Client{
		ClientID:     clientID,
		UserID:       suite.testUserID,
		Name:         "Old Name",
		Email:        "old@example.com",
		CurrencyCode: "USD",
		TaxRate:      decimal.RequireFromString("0.10"),
	}

	suite.mockRepo.On("FindClientByID", ctx, suite.testUserID, clientID).Return(existing, nil).Once()
	suite.mockRepo.On("UpdateClient", ctx, mock.MatchedBy(func(c domain.Client) bool {
		return c.Name == "New Name" && c.Email == "old@example.com"
	})).Return(nil).Once()

	newName := "New Name"
	client, err := suite.service.UpdateClient(ctx, suite.testUserID, clientID, dto.UpdateClientRequest{Name: &newName})

	suite.Require().NoError(err)
	suite.Equal("New Name", client.Name)
	suite.Equal("old@example.com", client.Email)
}

func (suite *ClientServiceTestSuite) TestDeleteClient_NotFound() {
	ctx := context.Background()
	clientID := uuid.NewString()

	suite.mockRepo.On("DeleteClient", ctx, suite.testUserID, clientID).Return(apperrors.ErrNotFound).Once()

	err := suite.service.DeleteClient(ctx, suite.testUserID, clientID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func TestClientServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ClientServiceTestSuite))
}
