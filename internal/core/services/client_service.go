package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/billingo/billingo-backend/internal/apperrors"
	"github.com/billingo/billingo-backend/internal/core/domain"
	portsrepo "github.com/billingo/billingo-backend/internal/core/ports/repositories"
	portssvc "github.com/billingo/billingo-backend/internal/core/ports/services"
	"github.com/billingo/billingo-backend/internal/dto"
	"github.com/billingo/billingo-backend/internal/platform/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type clientService struct {
	BaseService
	clientRepo      portsrepo.ClientRepositoryFacade
	defaultCurrency string
	defaultTaxRate  decimal.Decimal
}

// NewClientService creates a new ClientService.
func NewClientService(clientRepo portsrepo.ClientRepositoryFacade, cfg *config.Config) portssvc.ClientSvcFacade {
	return &clientService{
		clientRepo:      clientRepo,
		defaultCurrency: cfg.DefaultCurrency,
		defaultTaxRate:  cfg.DefaultTaxRate,
	}
}

var _ portssvc.ClientSvcFacade = (*clientService)(nil)

// CreateClient creates a new client owned by the acting user. Currency and
// tax rate fall back to the configured defaults when omitted.
func (s *clientService) CreateClient(ctx context.Context, userID string, req dto.CreateClientRequest) (*domain.Client, error) {
	currency := strings.ToUpper(strings.TrimSpace(req.CurrencyCode))
	if currency == "" {
		currency = s.defaultCurrency
	}

	taxRate := s.defaultTaxRate
	if req.TaxRate != nil {
		if req.TaxRate.IsNegative() {
			return nil, apperrors.NewValidationError("tax rate must not be negative")
		}
		taxRate = *req.TaxRate
	}

	now := time.Now().UTC()
	client := domain.Client{
		ClientID:     uuid.NewString(),
		UserID:       userID,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		CurrencyCode: currency,
		TaxRate:      taxRate,
		TaxExempt:    req.TaxExempt,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.clientRepo.SaveClient(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &client, nil
}

// GetClientByID retrieves a client owned by the user.
func (s *clientService) GetClientByID(ctx context.Context, userID, clientID string) (*domain.Client, error) {
	client, err := s.clientRepo.FindClientByID(ctx, userID, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return client, nil
}

// ListClients retrieves a page of the user's clients.
func (s *clientService) ListClients(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.Client, *string, error) {
	clients, token, err := s.clientRepo.ListClients(ctx, userID, limit, nextToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, token, nil
}

// UpdateClient applies the non-nil fields of the request. Currency is fixed
// after creation; tax rate edits only affect invoices created afterwards.
func (s *clientService) UpdateClient(ctx context.Context, userID, clientID string, req dto.UpdateClientRequest) (*domain.Client, error) {
	client, err := s.clientRepo.FindClientByID(ctx, userID, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get client for update: %w", err)
	}

	if req.Name != nil {
		client.Name = *req.Name
	}
	if req.Email != nil {
		client.Email = *req.Email
	}
	if req.Phone != nil {
		client.Phone = *req.Phone
	}
	if req.Address != nil {
		client.Address = *req.Address
	}
	if req.TaxRate != nil {
		if req.TaxRate.IsNegative() {
			return nil, apperrors.NewValidationError("tax rate must not be negative")
		}
		client.TaxRate = *req.TaxRate
	}
	if req.TaxExempt != nil {
		client.TaxExempt = *req.TaxExempt
	}

	client.LastUpdatedAt = time.Now().UTC()
	client.LastUpdatedBy = userID

	if err := s.clientRepo.UpdateClient(ctx, *client); err != nil {
		return nil, fmt.Errorf("failed to update client: %w", err)
	}

	return client, nil
}

// DeleteClient removes a client owned by the user.
func (s *clientService) DeleteClient(ctx context.Context, userID, clientID string) error {
	if err := s.clientRepo.DeleteClient(ctx, userID, clientID); err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	return nil
}
