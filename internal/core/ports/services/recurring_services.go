package services

import (
	"context"

	"github.com/billingo/billingo-backend/internal/core/domain"
	"github.com/billingo/billingo-backend/internal/dto"
)

// RecurringSvcFacade defines recurring template management and the
// scheduled generation batch.
type RecurringSvcFacade interface {
	CreateRecurringInvoice(ctx context.Context, userID string, req dto.CreateRecurringInvoiceRequest) (*domain.RecurringInvoice, error)
	GetRecurringInvoiceByID(ctx context.Context, userID, recurringID string) (*domain.RecurringInvoice, error)
	ListRecurringInvoices(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.RecurringInvoice, *string, error)
	UpdateRecurringInvoice(ctx context.Context, userID, recurringID string, req dto.UpdateRecurringInvoiceRequest) (*domain.RecurringInvoice, error)

	// PauseRecurringInvoice transitions Active -> Paused.
	PauseRecurringInvoice(ctx context.Context, userID, recurringID string) (*domain.RecurringInvoice, error)

	// ResumeRecurringInvoice transitions Paused -> Active.
	ResumeRecurringInvoice(ctx context.Context, userID, recurringID string) (*domain.RecurringInvoice, error)

	// CancelRecurringInvoice transitions to Cancelled (terminal).
	CancelRecurringInvoice(ctx context.Context, userID, recurringID string) (*domain.RecurringInvoice, error)

	// GenerateDueInvoices runs generation over all Active templates whose
	// next run date has arrived, each template independently; one
	// template's failure never aborts the batch. A nil userID processes
	// all owners; a non-nil one bounds the micro-sweep to that owner.
	GenerateDueInvoices(ctx context.Context, limit int, userID *string) (domain.SweepResult, error)
}
