package repositories

import (
	"context"
	"time"

	"github.com/billingo/billingo-backend/internal/core/domain"
)

// ActivityReader defines read operations for the invoice audit log.
type ActivityReader interface {
	// ListActivitiesByInvoice retrieves an invoice's timeline, newest
	// entries first.
	ListActivitiesByInvoice(ctx context.Context, invoiceID string, limit int) ([]domain.InvoiceActivity, error)

	// HasActivitySince reports whether the invoice has an entry with the
	// given action at or after since. The reminder sweep uses this as its
	// deduplication signal.
	HasActivitySince(ctx context.Context, invoiceID string, action domain.ActivityAction, since time.Time) (bool, error)
}

// ActivityWriter defines write operations for the invoice audit log.
// Entries are append-only; there is no update or delete.
type ActivityWriter interface {
	// AppendActivity persists a new audit log entry.
	AppendActivity(ctx context.Context, activity domain.InvoiceActivity) error
}

// ActivityRepositoryFacade combines all activity repository interfaces.
type ActivityRepositoryFacade interface {
	ActivityReader
	ActivityWriter
}
