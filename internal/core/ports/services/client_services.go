package services

import (
	"context"

	"github.com/billingo/billingo-backend/internal/core/domain"
	"github.com/billingo/billingo-backend/internal/dto"
)

// ClientSvcFacade defines client management operations, all scoped to the
// acting user (owner).
type ClientSvcFacade interface {
	CreateClient(ctx context.Context, userID string, req dto.CreateClientRequest) (*domain.Client, error)
	GetClientByID(ctx context.Context, userID, clientID string) (*domain.Client, error)
	ListClients(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.Client, *string, error)
	UpdateClient(ctx context.Context, userID, clientID string, req dto.UpdateClientRequest) (*domain.Client, error)
	DeleteClient(ctx context.Context, userID, clientID string) error
}
