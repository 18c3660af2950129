package services

import (
	"context"
	"fmt"
	"time"

	"github.com/billingo/billingo-backend/internal/apperrors"
	"github.com/billingo/billingo-backend/internal/core/domain"
	portsrepo "github.com/billingo/billingo-backend/internal/core/ports/repositories"
	portssvc "github.com/billingo/billingo-backend/internal/core/ports/services"
	"github.com/billingo/billingo-backend/internal/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type paymentService struct {
	BaseService
	paymentRepo portsrepo.PaymentRepositoryFacade
	invoiceRepo portsrepo.InvoiceRepositoryFacade
	dispatcher  portssvc.NotificationDispatcher
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	paymentRepo portsrepo.PaymentRepositoryFacade,
	invoiceRepo portsrepo.InvoiceRepositoryFacade,
	dispatcher portssvc.NotificationDispatcher,
) portssvc.PaymentSvcFacade {
	return &paymentService{
		paymentRepo: paymentRepo,
		invoiceRepo: invoiceRepo,
		dispatcher:  dispatcher,
	}
}

var _ portssvc.PaymentSvcFacade = (*paymentService)(nil)

// RecordPayment validates the payment against the invoice's current state
// and remaining balance, then hands the repository the atomic record step.
// The repository re-validates everything under the invoice's row lock, so
// two concurrent payments can never overpay the invoice.
func (s *paymentService) RecordPayment(ctx context.Context, userID, invoiceID string, req dto.RecordPaymentRequest) (*domain.Payment, bool, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, false, apperrors.NewValidationError("payment amount must be positive")
	}
	if req.PaymentDate.After(endOfToday()) {
		return nil, false, apperrors.NewValidationError("payment date must not be in the future")
	}
	method, ok := domain.ParsePaymentMethod(req.Method)
	if !ok {
		return nil, false, apperrors.NewValidationError("unknown payment method: " + req.Method)
	}

	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, userID, invoiceID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get invoice for payment: %w", err)
	}
	if !invoice.CanBePaid() {
		return nil, false, fmt.Errorf("%w: invoice in status %s cannot accept payments", apperrors.ErrConflict, invoice.Status)
	}

	// Pre-check the remaining balance for a fast validation error. The
	// repository repeats this check under the row lock; a race between the
	// two reads surfaces there.
	paidSoFar, err := s.paymentRepo.SumPaymentsForInvoice(ctx, invoiceID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to sum payments: %w", err)
	}
	remaining := invoice.Total.Sub(paidSoFar)
	if req.Amount.GreaterThan(remaining) {
		return nil, false, fmt.Errorf("%w: payment of %s exceeds remaining balance %s",
			apperrors.ErrValidation, req.Amount, remaining)
	}

	now := time.Now().UTC()
	payment := domain.Payment{
		PaymentID:   uuid.NewString(),
		InvoiceID:   invoiceID,
		UserID:      userID,
		Amount:      req.Amount.Round(2),
		Method:      method,
		PaymentDate: req.PaymentDate,
		Notes:       req.Notes,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	activity := systemActivity(invoiceID, userID, domain.ActivityPaymentReceived, map[string]string{
		"amount": payment.Amount.String(),
		"method": string(payment.Method),
	})

	paidNow, err := s.paymentRepo.RecordPayment(ctx, payment, activity)
	if err != nil {
		return nil, false, fmt.Errorf("failed to record payment: %w", err)
	}

	s.dispatcher.Dispatch(ctx, domain.Event{
		Type:       domain.EventPaymentRecorded,
		OccurredAt: now,
		UserID:     userID,
		InvoiceID:  invoiceID,
		PaymentID:  payment.PaymentID,
	})
	if paidNow {
		s.dispatcher.Dispatch(ctx, domain.Event{
			Type:       domain.EventInvoicePaid,
			OccurredAt: now,
			UserID:     userID,
			InvoiceID:  invoiceID,
		})
	}

	return &payment, paidNow, nil
}

// ListPayments retrieves all payments against an invoice the user owns.
func (s *paymentService) ListPayments(ctx context.Context, userID, invoiceID string) ([]domain.Payment, error) {
	if _, err := s.invoiceRepo.FindInvoiceByID(ctx, userID, invoiceID); err != nil {
		return nil, fmt.Errorf("failed to get invoice for payments: %w", err)
	}
	payments, err := s.paymentRepo.ListPaymentsByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

// endOfToday returns the last instant of today in UTC, so that a payment
// dated "today" at any clock time passes the not-in-future check.
func endOfToday() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 999999999, time.UTC)
}
