package dto

import (
	"time"

	"github.com/billingo/billingo-backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// RecordPaymentRequest defines the payload for recording a payment against
// an invoice.
type RecordPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Method      string          `json:"method" binding:"required,oneof=CASH BANK_TRANSFER UPI CARD"`
	PaymentDate time.Time       `json:"paymentDate" binding:"required"`
	Notes       string          `json:"notes" binding:"omitempty,max=1000"`
}

// PaymentResponse defines the structure for API responses containing
// payment details.
type PaymentResponse struct {
	PaymentID   string          `json:"paymentID"`
	InvoiceID   string          `json:"invoiceID"`
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	PaymentDate time.Time       `json:"paymentDate"`
	Notes       string          `json:"notes"`
	CreatedAt   time.Time       `json:"createdAt"`
	// InvoicePaid reports whether this payment settled the invoice.
	InvoicePaid bool `json:"invoicePaid"`
}

// ToPaymentResponse converts a domain.Payment to PaymentResponse.
func ToPaymentResponse(payment *domain.Payment, invoicePaid bool) PaymentResponse {
	return PaymentResponse{
		PaymentID:   payment.PaymentID,
		InvoiceID:   payment.InvoiceID,
		Amount:      payment.Amount,
		Method:      string(payment.Method),
		PaymentDate: payment.PaymentDate,
		Notes:       payment.Notes,
		CreatedAt:   payment.CreatedAt,
		InvoicePaid: invoicePaid,
	}
}

// ToPaymentResponses converts a slice of domain payments.
func ToPaymentResponses(payments []domain.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = ToPaymentResponse(&payments[i], false)
	}
	return out
}
