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
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PgxInvoiceRepository struct {
	BaseRepository
}

// newPgxInvoiceRepository creates a new repository for invoice data.
func newPgxInvoiceRepository(pool *pgxpool.Pool) *PgxInvoiceRepository {
	return &PgxInvoiceRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure implementation matches interface
var _ portsrepo.InvoiceRepositoryFacade = (*PgxInvoiceRepository)(nil)

const invoiceColumns = `invoice_id, user_id, client_id, invoice_number, status, sub_total, tax, discount, total, currency_code, tax_rate, tax_exempt, issue_date, due_date, paid_at, notes, recurring_invoice_id, payment_reference, created_at, created_by, last_updated_at, last_updated_by`

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var inv domain.Invoice
	var status string
	err := row.Scan(
		&inv.InvoiceID,
		&inv.UserID,
		&inv.ClientID,
		&inv.InvoiceNumber,
		&status,
		&inv.SubTotal,
		&inv.Tax,
		&inv.Discount,
		&inv.Total,
		&inv.CurrencyCode,
		&inv.TaxRate,
		&inv.TaxExempt,
		&inv.IssueDate,
		&inv.DueDate,
		&inv.PaidAt,
		&inv.Notes,
		&inv.RecurringInvoiceID,
		&inv.PaymentReference,
		&inv.CreatedAt,
		&inv.CreatedBy,
		&inv.LastUpdatedAt,
		&inv.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	inv.Status = domain.InvoiceStatus(status)
	return &inv, nil
}

// allocateInvoiceNumber reserves the next sequence value for the owner and
// year and formats it as INV-YYYY-NNNN. The sequence row is locked by the
// upsert, so two concurrent allocations in the same scope serialize and
// numbers never repeat. Runs inside the caller's transaction.
func allocateInvoiceNumber(ctx context.Context, tx pgx.Tx, userID string, year int) (string, error) {
	query := `
		INSERT INTO invoice_sequences (user_id, year, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, year) DO UPDATE SET last_value = invoice_sequences.last_value + 1
		RETURNING last_value;
	`
	var seq int64
	if err := tx.QueryRow(ctx, query, userID, year).Scan(&seq); err != nil {
		return "", fmt.Errorf("failed to allocate invoice number: %w", err)
	}
	return fmt.Sprintf("INV-%d-%04d", year, seq), nil
}

func insertInvoiceTx(ctx context.Context, tx pgx.Tx, invoice *domain.Invoice) error {
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22);
	`
	_, err := tx.Exec(ctx, query,
		invoice.InvoiceID,
		invoice.UserID,
		invoice.ClientID,
		invoice.InvoiceNumber,
		string(invoice.Status),
		invoice.SubTotal,
		invoice.Tax,
		invoice.Discount,
		invoice.Total,
		invoice.CurrencyCode,
		invoice.TaxRate,
		invoice.TaxExempt,
		invoice.IssueDate,
		invoice.DueDate,
		invoice.PaidAt,
		invoice.Notes,
		invoice.RecurringInvoiceID,
		invoice.PaymentReference,
		invoice.CreatedAt,
		invoice.CreatedBy,
		invoice.LastUpdatedAt,
		invoice.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	return nil
}

func insertInvoiceItemsTx(ctx context.Context, tx pgx.Tx, items []domain.InvoiceItem) error {
	query := `
		INSERT INTO invoice_items (item_id, invoice_id, description, quantity, unit_price, line_total, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	for _, item := range items {
		_, err := tx.Exec(ctx, query,
			item.ItemID,
			item.InvoiceID,
			item.Description,
			item.Quantity,
			item.UnitPrice,
			item.LineTotal,
			item.CreatedAt,
			item.CreatedBy,
			item.LastUpdatedAt,
			item.LastUpdatedBy,
		)
		if err != nil {
			return fmt.Errorf("failed to insert invoice item %s: %w", item.ItemID, err)
		}
	}
	return nil
}

// CreateInvoice allocates the invoice number, persists the invoice with its
// items and appends the created activity, all in one transaction.
func (r *PgxInvoiceRepository) CreateInvoice(ctx context.Context, invoice *domain.Invoice, items []domain.InvoiceItem, activity domain.InvoiceActivity) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	number, err := allocateInvoiceNumber(ctx, tx, invoice.UserID, invoice.IssueDate.Year())
	if err != nil {
		return err
	}
	invoice.InvoiceNumber = number

	if err := insertInvoiceTx(ctx, tx, invoice); err != nil {
		return err
	}
	if err := insertInvoiceItemsTx(ctx, tx, items); err != nil {
		return err
	}
	if err := insertActivityTx(ctx, tx, activity); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// FindInvoiceByID retrieves an invoice owned by the given user.
func (r *PgxInvoiceRepository) FindInvoiceByID(ctx context.Context, userID, invoiceID string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE invoice_id = $1 AND user_id = $2;`
	invoice, err := scanInvoice(r.Pool.QueryRow(ctx, query, invoiceID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find invoice by id %s: %w", invoiceID, err)
	}
	return invoice, nil
}

// FindInvoiceItems retrieves all line items of an invoice.
func (r *PgxInvoiceRepository) FindInvoiceItems(ctx context.Context, invoiceID string) ([]domain.InvoiceItem, error) {
	query := `
		SELECT item_id, invoice_id, description, quantity, unit_price, line_total, created_at, created_by, last_updated_at, last_updated_by
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY created_at ASC, item_id ASC;
	`
	rows, err := r.Pool.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to find items for invoice %s: %w", invoiceID, err)
	}
	defer rows.Close()

	var items []domain.InvoiceItem
	for rows.Next() {
		var item domain.InvoiceItem
		if err := rows.Scan(
			&item.ItemID,
			&item.InvoiceID,
			&item.Description,
			&item.Quantity,
			&item.UnitPrice,
			&item.LineTotal,
			&item.CreatedAt,
			&item.CreatedBy,
			&item.LastUpdatedAt,
			&item.LastUpdatedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice item rows: %w", err)
	}
	return items, nil
}

// ListInvoices retrieves a paginated list of the user's invoices ordered by
// issue date then creation time, newest first, using keyset pagination.
func (r *PgxInvoiceRepository) ListInvoices(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.Invoice, *string, error) {
	args := []interface{}{userID}
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE user_id = $1`

	if nextToken != nil && *nextToken != "" {
		issueDate, createdAt, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewValidationError("invalid pagination token")
		}
		args = append(args, issueDate, createdAt)
		query += fmt.Sprintf(" AND (issue_date, created_at) < ($%d, $%d)", len(args)-1, len(args))
	}

	args = append(args, limit+1)
	query += fmt.Sprintf(" ORDER BY issue_date DESC, created_at DESC LIMIT $%d;", len(args))

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan invoice row: %w", err)
		}
		invoices = append(invoices, *invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating invoice rows: %w", err)
	}

	var token *string
	if len(invoices) > limit {
		invoices = invoices[:limit]
		last := invoices[len(invoices)-1]
		t := pagination.EncodeToken(last.IssueDate, last.CreatedAt)
		token = &t
	}

	return invoices, token, nil
}

// ListInvoicesChunk iterates all invoices in bounded pages keyed by
// invoice ID, for batch routines.
func (r *PgxInvoiceRepository) ListInvoicesChunk(ctx context.Context, afterInvoiceID string, chunkSize int) ([]domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE invoice_id > $1 ORDER BY invoice_id ASC LIMIT $2;`
	rows, err := r.Pool.Query(ctx, query, afterInvoiceID, chunkSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices chunk: %w", err)
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice row: %w", err)
		}
		invoices = append(invoices, *invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice rows: %w", err)
	}
	return invoices, nil
}

// ListOverdueCandidates selects Sent invoices past their due date.
func (r *PgxInvoiceRepository) ListOverdueCandidates(ctx context.Context, now time.Time, limit int, userID *string) ([]domain.Invoice, error) {
	args := []interface{}{string(domain.InvoiceStatusSent), now}
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE status = $1 AND due_date < $2`

	if userID != nil {
		args = append(args, *userID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY due_date ASC LIMIT $%d;", len(args))

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue candidates: %w", err)
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice row: %w", err)
		}
		invoices = append(invoices, *invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice rows: %w", err)
	}
	return invoices, nil
}

// ListReminderCandidates selects invoices matching a reminder tier's status
// and due-date window that have no matching activity inside the cooldown.
// The absence check runs again under the row lock in AppendReminderIfAbsent;
// this query only narrows the candidate set.
func (r *PgxInvoiceRepository) ListReminderCandidates(ctx context.Context, params portsrepo.ReminderCandidateParams) ([]domain.Invoice, error) {
	statuses := make([]string, len(params.Statuses))
	for i, s := range params.Statuses {
		statuses[i] = string(s)
	}

	args := []interface{}{statuses}
	query := `SELECT ` + invoiceColumns + ` FROM invoices i WHERE i.status = ANY($1)`

	if params.DueFrom != nil {
		args = append(args, *params.DueFrom)
		query += fmt.Sprintf(" AND i.due_date >= $%d", len(args))
	}
	if params.DueUntil != nil {
		args = append(args, *params.DueUntil)
		query += fmt.Sprintf(" AND i.due_date < $%d", len(args))
	}
	if params.UserID != nil {
		args = append(args, *params.UserID)
		query += fmt.Sprintf(" AND i.user_id = $%d", len(args))
	}

	args = append(args, string(params.Action), params.Now.Add(-params.Cooldown))
	query += fmt.Sprintf(` AND NOT EXISTS (
		SELECT 1 FROM invoice_activities a
		WHERE a.invoice_id = i.invoice_id AND a.action = $%d AND a.created_at >= $%d
	)`, len(args)-1, len(args))

	args = append(args, params.Limit)
	query += fmt.Sprintf(" ORDER BY i.due_date ASC LIMIT $%d;", len(args))

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder candidates: %w", err)
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice row: %w", err)
		}
		invoices = append(invoices, *invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice rows: %w", err)
	}
	return invoices, nil
}

// lockInvoiceStatus reads the invoice's current status under FOR UPDATE.
func lockInvoiceStatus(ctx context.Context, tx pgx.Tx, invoiceID string) (domain.InvoiceStatus, time.Time, error) {
	var status string
	var dueDate time.Time
	query := `SELECT status, due_date FROM invoices WHERE invoice_id = $1 FOR UPDATE;`
	if err := tx.QueryRow(ctx, query, invoiceID).Scan(&status, &dueDate); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", time.Time{}, apperrors.ErrNotFound
		}
		return "", time.Time{}, fmt.Errorf("failed to lock invoice %s: %w", invoiceID, err)
	}
	return domain.InvoiceStatus(status), dueDate, nil
}

// UpdateInvoiceWithItems replaces the invoice's fields and items wholesale
// after re-checking modifiability under the row lock.
func (r *PgxInvoiceRepository) UpdateInvoiceWithItems(ctx context.Context, invoice domain.Invoice, items []domain.InvoiceItem, activity domain.InvoiceActivity) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	status, _, err := lockInvoiceStatus(ctx, tx, invoice.InvoiceID)
	if err != nil {
		return err
	}
	locked := domain.Invoice{Status: status}
	if !locked.CanBeModified() {
		return fmt.Errorf("%w: invoice in status %s cannot be modified", apperrors.ErrConflict, status)
	}

	query := `
		UPDATE invoices
		SET sub_total = $1, tax = $2, discount = $3, total = $4, issue_date = $5, due_date = $6, notes = $7, last_updated_at = $8, last_updated_by = $9
		WHERE invoice_id = $10 AND user_id = $11;
	`
	tag, err := tx.Exec(ctx, query,
		invoice.SubTotal,
		invoice.Tax,
		invoice.Discount,
		invoice.Total,
		invoice.IssueDate,
		invoice.DueDate,
		invoice.Notes,
		invoice.LastUpdatedAt,
		invoice.LastUpdatedBy,
		invoice.InvoiceID,
		invoice.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice %s: %w", invoice.InvoiceID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1;`, invoice.InvoiceID); err != nil {
		return fmt.Errorf("failed to clear invoice items: %w", err)
	}
	if err := insertInvoiceItemsTx(ctx, tx, items); err != nil {
		return err
	}
	if err := insertActivityTx(ctx, tx, activity); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// DeleteInvoice removes an invoice and its items after re-checking
// modifiability under the row lock. Items and activities cascade.
func (r *PgxInvoiceRepository) DeleteInvoice(ctx context.Context, userID, invoiceID string) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	status, _, err := lockInvoiceStatus(ctx, tx, invoiceID)
	if err != nil {
		return err
	}
	locked := domain.Invoice{Status: status}
	if !locked.CanBeModified() {
		return fmt.Errorf("%w: invoice in status %s cannot be deleted", apperrors.ErrConflict, status)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM invoices WHERE invoice_id = $1 AND user_id = $2;`, invoiceID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete invoice %s: %w", invoiceID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return r.Commit(ctx, tx)
}

// TransitionStatus moves the invoice to the target status if its current
// status is one of from, re-checked under the row lock. Returns false
// without error on lost races.
func (r *PgxInvoiceRepository) TransitionStatus(ctx context.Context, invoiceID string, from []domain.InvoiceStatus, to domain.InvoiceStatus, paidAt *time.Time, activity domain.InvoiceActivity) (bool, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer r.Rollback(ctx, tx)

	status, _, err := lockInvoiceStatus(ctx, tx, invoiceID)
	if err != nil {
		return false, err
	}

	allowed := false
	for _, f := range from {
		if status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}

	query := `
		UPDATE invoices
		SET status = $1, paid_at = COALESCE($2, paid_at), last_updated_at = $3
		WHERE invoice_id = $4;
	`
	if _, err := tx.Exec(ctx, query, string(to), paidAt, activity.CreatedAt, invoiceID); err != nil {
		return false, fmt.Errorf("failed to transition invoice %s to %s: %w", invoiceID, to, err)
	}
	if err := insertActivityTx(ctx, tx, activity); err != nil {
		return false, err
	}

	if err := r.Commit(ctx, tx); err != nil {
		return false, err
	}
	return true, nil
}

// MarkOverdueIfStillDue is the overdue sweep's guarded transition: the
// status and due date are re-validated under the row lock so an invoice
// paid or cancelled since selection is skipped.
func (r *PgxInvoiceRepository) MarkOverdueIfStillDue(ctx context.Context, invoiceID string, now time.Time, activity domain.InvoiceActivity) (bool, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer r.Rollback(ctx, tx)

	status, dueDate, err := lockInvoiceStatus(ctx, tx, invoiceID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if status != domain.InvoiceStatusSent || !dueDate.Before(now) {
		return false, nil
	}

	query := `UPDATE invoices SET status = $1, last_updated_at = $2 WHERE invoice_id = $3;`
	if _, err := tx.Exec(ctx, query, string(domain.InvoiceStatusOverdue), now, invoiceID); err != nil {
		return false, fmt.Errorf("failed to mark invoice %s overdue: %w", invoiceID, err)
	}
	if err := insertActivityTx(ctx, tx, activity); err != nil {
		return false, err
	}

	if err := r.Commit(ctx, tx); err != nil {
		return false, err
	}
	return true, nil
}

// AppendReminderIfAbsent appends a reminder activity unless a matching one
// already exists inside the cooldown window. The invoice row lock
// serializes concurrent sweeps so exactly one of them appends.
func (r *PgxInvoiceRepository) AppendReminderIfAbsent(ctx context.Context, invoiceID string, action domain.ActivityAction, cooldown time.Duration, activity domain.InvoiceActivity) (bool, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer r.Rollback(ctx, tx)

	if _, _, err := lockInvoiceStatus(ctx, tx, invoiceID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	var exists bool
	checkQuery := `
		SELECT EXISTS (
			SELECT 1 FROM invoice_activities
			WHERE invoice_id = $1 AND action = $2 AND created_at >= $3
		);
	`
	since := activity.CreatedAt.Add(-cooldown)
	if err := tx.QueryRow(ctx, checkQuery, invoiceID, string(action), since).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check reminder presence: %w", err)
	}
	if exists {
		return false, nil
	}

	if err := insertActivityTx(ctx, tx, activity); err != nil {
		return false, err
	}

	if err := r.Commit(ctx, tx); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateInvoiceTotals corrects the stored totals cache.
func (r *PgxInvoiceRepository) UpdateInvoiceTotals(ctx context.Context, invoiceID string, subTotal, tax, discount, total decimal.Decimal, updatedBy string, updatedAt time.Time) error {
	query := `
		UPDATE invoices
		SET sub_total = $1, tax = $2, discount = $3, total = $4, last_updated_at = $5, last_updated_by = $6
		WHERE invoice_id = $7;
	`
	tag, err := r.Pool.Exec(ctx, query, subTotal, tax, discount, total, updatedAt, updatedBy, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to update totals for invoice %s: %w", invoiceID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
