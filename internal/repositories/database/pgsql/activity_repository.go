package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/billingo/billingo-backend/internal/core/domain"
	portsrepo "github.com/billingo/billingo-backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxActivityRepository struct {
	BaseRepository
}

// newPgxActivityRepository creates a new repository for the invoice audit log.
func newPgxActivityRepository(pool *pgxpool.Pool) *PgxActivityRepository {
	return &PgxActivityRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure implementation matches interface
var _ portsrepo.ActivityRepositoryFacade = (*PgxActivityRepository)(nil)

// insertActivityTx appends an audit log entry inside an existing
// transaction. Invoice mutations call this so the entry commits or rolls
// back together with the state change it describes.
func insertActivityTx(ctx context.Context, tx pgx.Tx, activity domain.InvoiceActivity) error {
	query := `
		INSERT INTO invoice_activities (activity_id, invoice_id, user_id, action, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := tx.Exec(ctx, query,
		activity.ActivityID,
		activity.InvoiceID,
		activity.UserID,
		string(activity.Action),
		activity.Metadata,
		activity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

// AppendActivity persists a new audit log entry outside any transaction.
func (r *PgxActivityRepository) AppendActivity(ctx context.Context, activity domain.InvoiceActivity) error {
	query := `
		INSERT INTO invoice_activities (activity_id, invoice_id, user_id, action, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := r.Pool.Exec(ctx, query,
		activity.ActivityID,
		activity.InvoiceID,
		activity.UserID,
		string(activity.Action),
		activity.Metadata,
		activity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}

// ListActivitiesByInvoice retrieves an invoice's timeline, newest first.
func (r *PgxActivityRepository) ListActivitiesByInvoice(ctx context.Context, invoiceID string, limit int) ([]domain.InvoiceActivity, error) {
	query := `
		SELECT activity_id, invoice_id, user_id, action, metadata, created_at
		FROM invoice_activities
		WHERE invoice_id = $1
		ORDER BY created_at DESC, activity_id DESC
		LIMIT $2;
	`
	rows, err := r.Pool.Query(ctx, query, invoiceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities for invoice %s: %w", invoiceID, err)
	}
	defer rows.Close()

	var activities []domain.InvoiceActivity
	for rows.Next() {
		var a domain.InvoiceActivity
		var action string
		if err := rows.Scan(&a.ActivityID, &a.InvoiceID, &a.UserID, &action, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}
		a.Action = domain.ActivityAction(action)
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}
	return activities, nil
}

// HasActivitySince reports whether the invoice has an entry with the given
// action at or after since.
func (r *PgxActivityRepository) HasActivitySince(ctx context.Context, invoiceID string, action domain.ActivityAction, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM invoice_activities
			WHERE invoice_id = $1 AND action = $2 AND created_at >= $3
		);
	`
	var exists bool
	if err := r.Pool.QueryRow(ctx, query, invoiceID, string(action), since).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check activity presence: %w", err)
	}
	return exists, nil
}
