package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/billingo/billingo-backend/internal/apperrors"
	"github.com/billingo/billingo-backend/internal/core/domain"
	portsrepo "github.com/billingo/billingo-backend/internal/core/ports/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PgxPaymentRepository struct {
	BaseRepository
}

// newPgxPaymentRepository creates a new repository for payment data.
func newPgxPaymentRepository(pool *pgxpool.Pool) portsrepo.PaymentRepositoryFacade {
	return &PgxPaymentRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure implementation matches interface
var _ portsrepo.PaymentRepositoryFacade = (*PgxPaymentRepository)(nil)

const paymentColumns = `payment_id, invoice_id, user_id, amount, method, payment_date, notes, created_at, created_by, last_updated_at, last_updated_by`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	var method string
	err := row.Scan(
		&p.PaymentID,
		&p.InvoiceID,
		&p.UserID,
		&p.Amount,
		&method,
		&p.PaymentDate,
		&p.Notes,
		&p.CreatedAt,
		&p.CreatedBy,
		&p.LastUpdatedAt,
		&p.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	p.Method = domain.PaymentMethod(method)
	return &p, nil
}

// ListPaymentsByInvoice retrieves all payments against an invoice, oldest
// first.
func (r *PgxPaymentRepository) ListPaymentsByInvoice(ctx context.Context, invoiceID string) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE invoice_id = $1 ORDER BY payment_date ASC, created_at ASC;`
	rows, err := r.Pool.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments for invoice %s: %w", invoiceID, err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment row: %w", err)
		}
		payments = append(payments, *payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment rows: %w", err)
	}
	return payments, nil
}

// SumPaymentsForInvoice returns the sum of all recorded payment amounts.
func (r *PgxPaymentRepository) SumPaymentsForInvoice(ctx context.Context, invoiceID string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = $1;`
	var sum decimal.Decimal
	if err := r.Pool.QueryRow(ctx, query, invoiceID).Scan(&sum); err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to sum payments for invoice %s: %w", invoiceID, err)
	}
	return sum, nil
}

// RecordPayment inserts the payment and recomputes the invoice's paid
// state in one transaction. The invoice row lock serializes concurrent
// payments: the balance check re-runs against the committed sum, so two
// racing payments can never overpay.
func (r *PgxPaymentRepository) RecordPayment(ctx context.Context, payment domain.Payment, activity domain.InvoiceActivity) (bool, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer r.Rollback(ctx, tx)

	var status string
	var total decimal.Decimal
	lockQuery := `SELECT status, total FROM invoices WHERE invoice_id = $1 FOR UPDATE;`
	if err := tx.QueryRow(ctx, lockQuery, payment.InvoiceID).Scan(&status, &total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, apperrors.ErrNotFound
		}
		return false, fmt.Errorf("failed to lock invoice %s: %w", payment.InvoiceID, err)
	}

	locked := domain.Invoice{Status: domain.InvoiceStatus(status)}
	if !locked.CanBePaid() {
		return false, fmt.Errorf("%w: invoice in status %s cannot accept payments", apperrors.ErrConflict, status)
	}

	var paidSoFar decimal.Decimal
	sumQuery := `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = $1;`
	if err := tx.QueryRow(ctx, sumQuery, payment.InvoiceID).Scan(&paidSoFar); err != nil {
		return false, fmt.Errorf("failed to sum payments under lock: %w", err)
	}
	remaining := total.Sub(paidSoFar)
	if payment.Amount.GreaterThan(remaining) {
		return false, fmt.Errorf("%w: payment of %s exceeds remaining balance %s",
			apperrors.ErrValidation, payment.Amount, remaining)
	}

	insertQuery := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err = tx.Exec(ctx, insertQuery,
		payment.PaymentID,
		payment.InvoiceID,
		payment.UserID,
		payment.Amount,
		string(payment.Method),
		payment.PaymentDate,
		payment.Notes,
		payment.CreatedAt,
		payment.CreatedBy,
		payment.LastUpdatedAt,
		payment.LastUpdatedBy,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert payment: %w", err)
	}

	if err := insertActivityTx(ctx, tx, activity); err != nil {
		return false, err
	}

	paidNow := paidSoFar.Add(payment.Amount).GreaterThanOrEqual(total)
	if paidNow {
		updateQuery := `UPDATE invoices SET status = $1, paid_at = $2, last_updated_at = $2, last_updated_by = $3 WHERE invoice_id = $4;`
		if _, err := tx.Exec(ctx, updateQuery, string(domain.InvoiceStatusPaid), payment.CreatedAt, payment.UserID, payment.InvoiceID); err != nil {
			return false, fmt.Errorf("failed to mark invoice %s paid: %w", payment.InvoiceID, err)
		}
		paidActivity := domain.InvoiceActivity{
			ActivityID: uuid.NewString(),
			InvoiceID:  payment.InvoiceID,
			UserID:     payment.UserID,
			Action:     domain.ActivityPaid,
			Metadata:   map[string]string{"payment_id": payment.PaymentID},
			CreatedAt:  payment.CreatedAt,
		}
		if err := insertActivityTx(ctx, tx, paidActivity); err != nil {
			return false, err
		}
	}

	if err := r.Commit(ctx, tx); err != nil {
		return false, err
	}
	return paidNow, nil
}
