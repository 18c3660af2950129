package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates how a payment was received.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodUPI          PaymentMethod = "UPI"
	PaymentMethodCard         PaymentMethod = "CARD"
)

// ParsePaymentMethod converts a raw string into a typed payment method.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch PaymentMethod(s) {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodUPI, PaymentMethodCard:
		return PaymentMethod(s), true
	}
	return "", false
}

// Payment is an immutable record of money received against an invoice.
// Payments are only created through the payment service; there is no
// update or delete path.
type Payment struct {
	PaymentID   string          `json:"paymentID"` // Primary Key (UUID)
	InvoiceID   string          `json:"invoiceID"` // FK -> invoices.invoice_id
	UserID      string          `json:"userID"`    // recording user
	Amount      decimal.Decimal `json:"amount"`    // positive, <= remaining balance when recorded
	Method      PaymentMethod   `json:"method"`
	PaymentDate time.Time       `json:"paymentDate"` // <= today
	Notes       string          `json:"notes"`
	AuditFields
}
