package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/billingo/billingo-backend/internal/apperrors"
	"github.com/billingo/billingo-backend/internal/core/domain"
	portsrepo "github.com/billingo/billingo-backend/internal/core/ports/repositories"
	"github.com/billingo/billingo-backend/internal/utils/pagination"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var quantityOne = decimal.NewFromInt(1)

type PgxRecurringInvoiceRepository struct {
	BaseRepository
}

// newPgxRecurringInvoiceRepository creates a new repository for recurring
// invoice templates.
func newPgxRecurringInvoiceRepository(pool *pgxpool.Pool) portsrepo.RecurringInvoiceRepositoryFacade {
	return &PgxRecurringInvoiceRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure implementation matches interface
var _ portsrepo.RecurringInvoiceRepositoryFacade = (*PgxRecurringInvoiceRepository)(nil)

const recurringColumns = `recurring_invoice_id, user_id, client_id, title, amount, currency_code, frequency, status, start_date, next_run_date, last_run_date, notes, created_at, created_by, last_updated_at, last_updated_by`

func scanRecurring(row pgx.Row) (*domain.RecurringInvoice, error) {
	var r domain.RecurringInvoice
	var frequency, status string
	err := row.Scan(
		&r.RecurringInvoiceID,
		&r.UserID,
		&r.ClientID,
		&r.Title,
		&r.Amount,
		&r.CurrencyCode,
		&frequency,
		&status,
		&r.StartDate,
		&r.NextRunDate,
		&r.LastRunDate,
		&r.Notes,
		&r.CreatedAt,
		&r.CreatedBy,
		&r.LastUpdatedAt,
		&r.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	r.Frequency = domain.RecurringFrequency(frequency)
	r.Status = domain.RecurringStatus(status)
	return &r, nil
}

// SaveRecurringInvoice persists a new template.
func (r *PgxRecurringInvoiceRepository) SaveRecurringInvoice(ctx context.Context, recurring domain.RecurringInvoice) error {
	query := `
		INSERT INTO recurring_invoices (` + recurringColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);
	`
	_, err := r.Pool.Exec(ctx, query,
		recurring.RecurringInvoiceID,
		recurring.UserID,
		recurring.ClientID,
		recurring.Title,
		recurring.Amount,
		recurring.CurrencyCode,
		string(recurring.Frequency),
		string(recurring.Status),
		recurring.StartDate,
		recurring.NextRunDate,
		recurring.LastRunDate,
		recurring.Notes,
		recurring.CreatedAt,
		recurring.CreatedBy,
		recurring.LastUpdatedAt,
		recurring.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save recurring invoice: %w", err)
	}
	return nil
}

// FindRecurringInvoiceByID retrieves a template owned by the user.
func (r *PgxRecurringInvoiceRepository) FindRecurringInvoiceByID(ctx context.Context, userID, recurringID string) (*domain.RecurringInvoice, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_invoices WHERE recurring_invoice_id = $1 AND user_id = $2;`
	recurring, err := scanRecurring(r.Pool.QueryRow(ctx, query, recurringID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find recurring invoice by id %s: %w", recurringID, err)
	}
	return recurring, nil
}

// ListRecurringInvoices retrieves a paginated list of the user's templates
// ordered by creation time, newest first.
func (r *PgxRecurringInvoiceRepository) ListRecurringInvoices(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.RecurringInvoice, *string, error) {
	args := []interface{}{userID}
	query := `SELECT ` + recurringColumns + ` FROM recurring_invoices WHERE user_id = $1`

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
		return nil, nil, fmt.Errorf("failed to list recurring invoices: %w", err)
	}
	defer rows.Close()

	var list []domain.RecurringInvoice
	for rows.Next() {
		recurring, err := scanRecurring(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan recurring invoice row: %w", err)
		}
		list = append(list, *recurring)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating recurring invoice rows: %w", err)
	}

	var token *string
	if len(list) > limit {
		list = list[:limit]
		last := list[len(list)-1]
		t := pagination.EncodeDateBasedToken(last.CreatedAt)
		token = &t
	}

	return list, token, nil
}

// ListDueTemplates selects Active templates whose next run date is at or
// before now.
func (r *PgxRecurringInvoiceRepository) ListDueTemplates(ctx context.Context, now time.Time, limit int, userID *string) ([]domain.RecurringInvoice, error) {
	args := []interface{}{string(domain.RecurringStatusActive), now}
	query := `SELECT ` + recurringColumns + ` FROM recurring_invoices WHERE status = $1 AND next_run_date <= $2`

	if userID != nil {
		args = append(args, *userID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY next_run_date ASC LIMIT $%d;", len(args))

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list due templates: %w", err)
	}
	defer rows.Close()

	var list []domain.RecurringInvoice
	for rows.Next() {
		recurring, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recurring invoice row: %w", err)
		}
		list = append(list, *recurring)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recurring invoice rows: %w", err)
	}
	return list, nil
}

// UpdateRecurringInvoice updates a template's editable fields.
func (r *PgxRecurringInvoiceRepository) UpdateRecurringInvoice(ctx context.Context, recurring domain.RecurringInvoice) error {
	query := `
		UPDATE recurring_invoices
		SET title = $1, amount = $2, notes = $3, last_updated_at = $4, last_updated_by = $5
		WHERE recurring_invoice_id = $6 AND user_id = $7;
	`
	tag, err := r.Pool.Exec(ctx, query,
		recurring.Title,
		recurring.Amount,
		recurring.Notes,
		recurring.LastUpdatedAt,
		recurring.LastUpdatedBy,
		recurring.RecurringInvoiceID,
		recurring.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update recurring invoice %s: %w", recurring.RecurringInvoiceID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpdateRecurringStatus moves a template between statuses after verifying
// the current status under the row lock.
func (r *PgxRecurringInvoiceRepository) UpdateRecurringStatus(ctx context.Context, userID, recurringID string, from []domain.RecurringStatus, to domain.RecurringStatus, updatedBy string, updatedAt time.Time) (bool, error) {
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}

	query := `
		UPDATE recurring_invoices
		SET status = $1, last_updated_at = $2, last_updated_by = $3
		WHERE recurring_invoice_id = $4 AND user_id = $5 AND status = ANY($6);
	`
	tag, err := r.Pool.Exec(ctx, query, string(to), updatedAt, updatedBy, recurringID, userID, statuses)
	if err != nil {
		return false, fmt.Errorf("failed to update recurring invoice status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GenerateInvoice performs one scheduled generation atomically. The
// template row lock plus the due-ness re-check make concurrent sweeps
// produce exactly one invoice per due period: whoever locks second sees
// the advanced next run date and backs off.
func (r *PgxRecurringInvoiceRepository) GenerateInvoice(ctx context.Context, template domain.RecurringInvoice, invoice *domain.Invoice, activity domain.InvoiceActivity, lastRun, nextRun time.Time) (bool, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer r.Rollback(ctx, tx)

	var status string
	var nextRunDate time.Time
	lockQuery := `SELECT status, next_run_date FROM recurring_invoices WHERE recurring_invoice_id = $1 FOR UPDATE;`
	if err := tx.QueryRow(ctx, lockQuery, template.RecurringInvoiceID).Scan(&status, &nextRunDate); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to lock recurring invoice %s: %w", template.RecurringInvoiceID, err)
	}

	if domain.RecurringStatus(status) != domain.RecurringStatusActive || nextRunDate.After(invoice.IssueDate) {
		return false, nil
	}

	number, err := allocateInvoiceNumber(ctx, tx, invoice.UserID, invoice.IssueDate.Year())
	if err != nil {
		return false, err
	}
	invoice.InvoiceNumber = number

	if err := insertInvoiceTx(ctx, tx, invoice); err != nil {
		return false, err
	}

	// A generated invoice carries a single line item with the template's
	// title and amount.
	item := domain.InvoiceItem{
		ItemID:      uuid.NewString(),
		InvoiceID:   invoice.InvoiceID,
		Description: template.Title,
		Quantity:    quantityOne,
		UnitPrice:   invoice.SubTotal,
		LineTotal:   invoice.SubTotal,
		AuditFields: domain.AuditFields{
			CreatedAt:     invoice.CreatedAt,
			CreatedBy:     invoice.CreatedBy,
			LastUpdatedAt: invoice.LastUpdatedAt,
			LastUpdatedBy: invoice.LastUpdatedBy,
		},
	}
	if err := insertInvoiceItemsTx(ctx, tx, []domain.InvoiceItem{item}); err != nil {
		return false, err
	}

	if err := insertActivityTx(ctx, tx, activity); err != nil {
		return false, err
	}

	advanceQuery := `
		UPDATE recurring_invoices
		SET last_run_date = $1, next_run_date = $2, last_updated_at = $3
		WHERE recurring_invoice_id = $4;
	`
	if _, err := tx.Exec(ctx, advanceQuery, lastRun, nextRun, invoice.CreatedAt, template.RecurringInvoiceID); err != nil {
		return false, fmt.Errorf("failed to advance recurring schedule: %w", err)
	}

	if err := r.Commit(ctx, tx); err != nil {
		return false, err
	}
	return true, nil
}
