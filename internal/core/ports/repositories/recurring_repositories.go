package repositories

import (
	"context"
	"time"

	"github.com/billingo/billingo-backend/internal/core/domain"
)

// RecurringInvoiceReader defines read operations for recurring templates.
type RecurringInvoiceReader interface {
	// FindRecurringInvoiceByID retrieves a template owned by the user.
	FindRecurringInvoiceByID(ctx context.Context, userID, recurringID string) (*domain.RecurringInvoice, error)

	// ListRecurringInvoices retrieves a paginated list of the user's
	// templates using token-based pagination.
	ListRecurringInvoices(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.RecurringInvoice, *string, error)

	// ListDueTemplates selects Active templates with next run date at or
	// before now, optionally restricted to one owner.
	ListDueTemplates(ctx context.Context, now time.Time, limit int, userID *string) ([]domain.RecurringInvoice, error)
}

// RecurringInvoiceWriter defines write operations for recurring templates.
type RecurringInvoiceWriter interface {
	// SaveRecurringInvoice persists a new template.
	SaveRecurringInvoice(ctx context.Context, recurring domain.RecurringInvoice) error

	// UpdateRecurringInvoice updates a template's editable fields.
	UpdateRecurringInvoice(ctx context.Context, recurring domain.RecurringInvoice) error

	// UpdateRecurringStatus moves a template between statuses after
	// verifying, under the row lock, that its current status is one of
	// from. Returns false when the precondition no longer holds.
	UpdateRecurringStatus(ctx context.Context, userID, recurringID string, from []domain.RecurringStatus, to domain.RecurringStatus, updatedBy string, updatedAt time.Time) (bool, error)

	// GenerateInvoice performs one scheduled generation atomically: the
	// template row is locked and ShouldGenerate re-validated, the next
	// sequential invoice number is allocated, the invoice and its activity
	// are inserted, and the template's last/next run dates are advanced.
	// Returns false without error when another process already ran this
	// template past its due date.
	GenerateInvoice(ctx context.Context, template domain.RecurringInvoice, invoice *domain.Invoice, activity domain.InvoiceActivity, lastRun, nextRun time.Time) (bool, error)
}

// RecurringInvoiceRepositoryFacade combines all recurring template
// repository interfaces.
type RecurringInvoiceRepositoryFacade interface {
	RecurringInvoiceReader
	RecurringInvoiceWriter
}
