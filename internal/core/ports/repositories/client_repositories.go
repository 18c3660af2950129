package repositories

import (
	"context"

	"github.com/billingo/billingo-backend/internal/core/domain"
)

// ClientReader defines read operations for client data. All reads are
// scoped to the owning user.
type ClientReader interface {
	// FindClientByID retrieves a client owned by the given user.
	FindClientByID(ctx context.Context, userID, clientID string) (*domain.Client, error)

	// ListClients retrieves a paginated list of the user's clients using
	// token-based pagination.
	ListClients(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.Client, *string, error)
}

// ClientWriter defines write operations for client data.
type ClientWriter interface {
	// SaveClient persists a new client.
	SaveClient(ctx context.Context, client domain.Client) error

	// UpdateClient updates an existing client owned by the given user.
	UpdateClient(ctx context.Context, client domain.Client) error

	// DeleteClient removes a client owned by the given user.
	DeleteClient(ctx context.Context, userID, clientID string) error
}

// ClientRepositoryFacade combines all client repository interfaces.
type ClientRepositoryFacade interface {
	ClientReader
	ClientWriter
}
