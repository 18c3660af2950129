package repositories

import (
	"context"
	"time"

	"github.com/billingo/billingo-backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ReminderCandidateParams selects invoices that qualify for a reminder
// tier and lack a matching activity entry within the cooldown window.
type ReminderCandidateParams struct {
	Action   domain.ActivityAction  // activity tag used both for dedup lookup and the new entry
	Statuses []domain.InvoiceStatus // invoice statuses eligible for this tier
	DueFrom  *time.Time             // inclusive lower bound on due date, nil = unbounded
	DueUntil *time.Time             // exclusive upper bound on due date, nil = unbounded
	Cooldown time.Duration          // minimum age of the most recent matching activity
	Limit    int                    // page bound
	UserID   *string                // restrict to one owner (micro-sweep), nil = all owners
	Now      time.Time
}

// InvoiceReader defines read operations for invoice data.
type InvoiceReader interface {
	// FindInvoiceByID retrieves an invoice owned by the given user.
	FindInvoiceByID(ctx context.Context, userID, invoiceID string) (*domain.Invoice, error)

	// FindInvoiceItems retrieves all line items of an invoice.
	FindInvoiceItems(ctx context.Context, invoiceID string) ([]domain.InvoiceItem, error)

	// ListInvoices retrieves a paginated list of the user's invoices using
	// token-based pagination, newest issue date first.
	ListInvoices(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.Invoice, *string, error)

	// ListInvoicesChunk iterates all invoices in bounded pages keyed by
	// invoice ID, for batch routines that must not load whole tables.
	ListInvoicesChunk(ctx context.Context, afterInvoiceID string, chunkSize int) ([]domain.Invoice, error)

	// ListOverdueCandidates selects invoices with status Sent and due date
	// before now, optionally restricted to one owner.
	ListOverdueCandidates(ctx context.Context, now time.Time, limit int, userID *string) ([]domain.Invoice, error)

	// ListReminderCandidates selects invoices matching a reminder tier's
	// date-window predicate that have no matching activity entry inside
	// the cooldown window.
	ListReminderCandidates(ctx context.Context, params ReminderCandidateParams) ([]domain.Invoice, error)
}

// InvoiceWriter defines write operations for invoice data. Multi-statement
// operations run inside a single database transaction.
type InvoiceWriter interface {
	// CreateInvoice allocates the next sequential invoice number for the
	// owner and year, persists the invoice with its items, and appends the
	// given activity, all atomically. The assigned number is written back
	// onto the invoice.
	CreateInvoice(ctx context.Context, invoice *domain.Invoice, items []domain.InvoiceItem, activity domain.InvoiceActivity) error

	// UpdateInvoiceWithItems replaces the invoice's fields and its items
	// wholesale. The row is re-read under an exclusive lock and the update
	// is refused (ErrConflict) if the invoice is no longer modifiable.
	UpdateInvoiceWithItems(ctx context.Context, invoice domain.Invoice, items []domain.InvoiceItem, activity domain.InvoiceActivity) error

	// DeleteInvoice removes an invoice and cascades to its items. Refused
	// (ErrConflict) if the invoice is no longer modifiable.
	DeleteInvoice(ctx context.Context, userID, invoiceID string) error

	// TransitionStatus re-reads the invoice under an exclusive lock,
	// verifies its status is one of from, then moves it to the target
	// status, stamping paidAt when provided and appending the activity.
	// Returns false without error when the precondition no longer holds
	// (lost race or invalid state), so callers can treat it as a skip.
	TransitionStatus(ctx context.Context, invoiceID string, from []domain.InvoiceStatus, to domain.InvoiceStatus, paidAt *time.Time, activity domain.InvoiceActivity) (bool, error)

	// MarkOverdueIfStillDue is the overdue sweep's guarded transition:
	// lock, re-validate status Sent and due date past, move to Overdue and
	// append the marked_overdue activity. Returns false on lost races.
	MarkOverdueIfStillDue(ctx context.Context, invoiceID string, now time.Time, activity domain.InvoiceActivity) (bool, error)

	// AppendReminderIfAbsent appends a reminder activity unless a matching
	// one already exists inside the cooldown window (re-checked under the
	// invoice's row lock). Returns false when deduplicated.
	AppendReminderIfAbsent(ctx context.Context, invoiceID string, action domain.ActivityAction, cooldown time.Duration, activity domain.InvoiceActivity) (bool, error)

	// UpdateInvoiceTotals corrects the stored totals cache, used by the
	// reconciliation routine.
	UpdateInvoiceTotals(ctx context.Context, invoiceID string, subTotal, tax, discount, total decimal.Decimal, updatedBy string, updatedAt time.Time) error
}

// InvoiceRepositoryFacade combines all invoice repository interfaces.
type InvoiceRepositoryFacade interface {
	InvoiceReader
	InvoiceWriter
}
