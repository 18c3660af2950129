package services

import (
	"context"

	"github.com/billingo/billingo-backend/internal/core/domain"
	"github.com/billingo/billingo-backend/internal/dto"
)

// InvoiceSvcFacade defines invoice lifecycle operations. Status changes go
// through the guarded Send/Cancel/MarkPaid operations only; callers never
// set status directly.
type InvoiceSvcFacade interface {
	CreateInvoice(ctx context.Context, userID string, req dto.CreateInvoiceRequest) (*domain.Invoice, []domain.InvoiceItem, error)
	GetInvoiceByID(ctx context.Context, userID, invoiceID string) (*domain.Invoice, []domain.InvoiceItem, error)
	ListInvoices(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.Invoice, *string, error)
	UpdateInvoice(ctx context.Context, userID, invoiceID string, req dto.UpdateInvoiceRequest) (*domain.Invoice, []domain.InvoiceItem, error)
	DeleteInvoice(ctx context.Context, userID, invoiceID string) error

	// SendInvoice transitions Draft -> Sent.
	SendInvoice(ctx context.Context, userID, invoiceID string) (*domain.Invoice, error)

	// CancelInvoice transitions Draft/Sent/Overdue -> Cancelled with an
	// optional reason.
	CancelInvoice(ctx context.Context, userID, invoiceID, reason string) (*domain.Invoice, error)

	// MarkInvoicePaid explicitly transitions Sent/Overdue -> Paid.
	MarkInvoicePaid(ctx context.Context, userID, invoiceID string) (*domain.Invoice, error)

	// ListActivities returns the invoice's audit timeline.
	ListActivities(ctx context.Context, userID, invoiceID string, limit int) ([]domain.InvoiceActivity, error)

	// ReconcileTotals recomputes stored totals from items in bounded
	// chunks and corrects any invoice drifting by more than one cent.
	ReconcileTotals(ctx context.Context, chunkSize int) (domain.SweepResult, error)
}
