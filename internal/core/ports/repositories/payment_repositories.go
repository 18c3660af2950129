package repositories

import (
	"context"

	"github.com/billingo/billingo-backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// PaymentReader defines read operations for payment data.
type PaymentReader interface {
	// ListPaymentsByInvoice retrieves all payments recorded against an
	// invoice, oldest first.
	ListPaymentsByInvoice(ctx context.Context, invoiceID string) ([]domain.Payment, error)

	// SumPaymentsForInvoice returns the sum of all recorded payment
	// amounts for an invoice.
	SumPaymentsForInvoice(ctx context.Context, invoiceID string) (decimal.Decimal, error)
}

// PaymentWriter defines write operations for payment data.
type PaymentWriter interface {
	// RecordPayment inserts the payment and recomputes the invoice's paid
	// state in one transaction: the invoice row is locked, the payment sum
	// re-read, the amount re-validated against the remaining balance, and
	// the invoice transitioned to Paid when the new sum covers the total.
	// The given activity (payment_received) is appended; a paid activity
	// is appended as well when the transition happens. Returns whether the
	// invoice became Paid.
	RecordPayment(ctx context.Context, payment domain.Payment, activity domain.InvoiceActivity) (bool, error)
}

// PaymentRepositoryFacade combines all payment repository interfaces.
type PaymentRepositoryFacade interface {
	PaymentReader
	PaymentWriter
}
