package services

import (
	"context"

	"github.com/billingo/billingo-backend/internal/core/domain"
	"github.com/billingo/billingo-backend/internal/dto"
)

// PaymentSvcFacade defines payment recording and listing. Payments are
// immutable once created.
type PaymentSvcFacade interface {
	// RecordPayment validates and records a payment against an invoice,
	// transitioning the invoice to Paid when fully covered. Returns the
	// payment and whether the invoice became Paid.
	RecordPayment(ctx context.Context, userID, invoiceID string, req dto.RecordPaymentRequest) (*domain.Payment, bool, error)

	// ListPayments retrieves all payments recorded against an invoice.
	ListPayments(ctx context.Context, userID, invoiceID string) ([]domain.Payment, error)
}
