package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/billingo/billingo-backend/internal/apperrors"
	"github.com/billingo/billingo-backend/internal/core/domain"
	portsrepo "github.com/billingo/billingo-backend/internal/core/ports/repositories"
	"github.com/billingo/billingo-backend/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxClientRepository struct {
	BaseRepository
}

// newPgxClientRepository creates a new repository for client data.
func newPgxClientRepository(pool *pgxpool.Pool) portsrepo.ClientRepositoryFacade {
	return &PgxClientRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure implementation matches interface
var _ portsrepo.ClientRepositoryFacade = (*PgxClientRepository)(nil)

const clientColumns = `client_id, user_id, name, email, phone, address, currency_code, tax_rate, tax_exempt, created_at, created_by, last_updated_at, last_updated_by`

func scanClient(row pgx.Row) (*domain.Client, error) {
	var client domain.Client
	err := row.Scan(
		&client.ClientID,
		&client.UserID,
		&client.Name,
		&client.Email,
		&client.Phone,
		&client.Address,
		&client.CurrencyCode,
		&client.TaxRate,
		&client.TaxExempt,
		&client.CreatedAt,
		&client.CreatedBy,
		&client.LastUpdatedAt,
		&client.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// SaveClient persists a new client.
func (r *PgxClientRepository) SaveClient(ctx context.Context, client domain.Client) error {
	query := `
		INSERT INTO clients (client_id, user_id, name, email, phone, address, currency_code, tax_rate, tax_exempt, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err := r.Pool.Exec(ctx, query,
		client.ClientID,
		client.UserID,
		client.Name,
		client.Email,
		client.Phone,
		client.Address,
		client.CurrencyCode,
		client.TaxRate,
		client.TaxExempt,
		client.CreatedAt,
		client.CreatedBy,
		client.LastUpdatedAt,
		client.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save client: %w", err)
	}
	return nil
}

// FindClientByID retrieves a client owned by the given user.
func (r *PgxClientRepository) FindClientByID(ctx context.Context, userID, clientID string) (*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE client_id = $1 AND user_id = $2;`
	client, err := scanClient(r.Pool.QueryRow(ctx, query, clientID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find client by id %s: %w", clientID, err)
	}
	return client, nil
}

// ListClients retrieves a paginated list of the user's clients ordered by
// creation time, newest first, using keyset pagination.
func (r *PgxClientRepository) ListClients(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.Client, *string, error) {
	args := []interface{}{userID}
	query := `SELECT ` + clientColumns + ` FROM clients WHERE user_id = $1`

	if nextToken != nil && *nextToken != "" {
		createdAt, err := pagination.DecodeDateBasedToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewValidationError("invalid pagination token")
		}
		args = append(args, createdAt)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}

	args = append(args, limit+1)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d;", len(args))

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan client row: %w", err)
		}
		clients = append(clients, *client)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating client rows: %w", err)
	}

	var token *string
	if len(clients) > limit {
		clients = clients[:limit]
		last := clients[len(clients)-1]
		t := pagination.EncodeDateBasedToken(last.CreatedAt)
		token = &t
	}

	return clients, token, nil
}

// UpdateClient updates an existing client owned by the given user.
func (r *PgxClientRepository) UpdateClient(ctx context.Context, client domain.Client) error {
	query := `
		UPDATE clients
		SET name = $1, email = $2, phone = $3, address = $4, tax_rate = $5, tax_exempt = $6, last_updated_at = $7, last_updated_by = $8
		WHERE client_id = $9 AND user_id = $10;
	`
	tag, err := r.Pool.Exec(ctx, query,
		client.Name,
		client.Email,
		client.Phone,
		client.Address,
		client.TaxRate,
		client.TaxExempt,
		client.LastUpdatedAt,
		client.LastUpdatedBy,
		client.ClientID,
		client.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update client %s: %w", client.ClientID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteClient removes a client owned by the given user.
func (r *PgxClientRepository) DeleteClient(ctx context.Context, userID, clientID string) error {
	query := `DELETE FROM clients WHERE client_id = $1 AND user_id = $2;`
	tag, err := r.Pool.Exec(ctx, query, clientID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete client %s: %w", clientID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
