package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus indicates the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusSent      InvoiceStatus = "SENT"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// ParseInvoiceStatus converts a raw string into a typed status.
func ParseInvoiceStatus(s string) (InvoiceStatus, bool) {
	switch InvoiceStatus(s) {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return InvoiceStatus(s), true
	}
	return "", false
}

// Invoice represents a single invoice with frozen monetary figures.
// SubTotal, Tax, Discount and Total are a cache of the totals calculation
// over the invoice's items; TaxRate and TaxExempt are captured from the
// client at creation time and never follow later client edits.
type Invoice struct {
	InvoiceID          string          `json:"invoiceID"`     // Primary Key (UUID)
	UserID             string          `json:"userID"`        // FK -> users.user_id (owner)
	ClientID           string          `json:"clientID"`      // FK -> clients.client_id
	InvoiceNumber      string          `json:"invoiceNumber"` // e.g. INV-2026-0042, unique per owner per year
	Status             InvoiceStatus   `json:"status"`
	SubTotal           decimal.Decimal `json:"subTotal"`
	Tax                decimal.Decimal `json:"tax"`
	Discount           decimal.Decimal `json:"discount"`
	Total              decimal.Decimal `json:"total"`
	CurrencyCode       string          `json:"currencyCode"`
	TaxRate            decimal.Decimal `json:"taxRate"` // frozen at creation
	TaxExempt          bool            `json:"taxExempt"`
	IssueDate          time.Time       `json:"issueDate"`
	DueDate            time.Time       `json:"dueDate"`
	PaidAt             *time.Time      `json:"paidAt"`
	Notes              string          `json:"notes"`
	RecurringInvoiceID *string         `json:"recurringInvoiceID"` // set when generated from a template
	PaymentReference   *string         `json:"paymentReference"`   // external processor reference, reconciled upstream
	AuditFields
}

// CanBeSent reports whether an explicit send action is allowed.
func (i *Invoice) CanBeSent() bool {
	return i.Status == InvoiceStatusDraft
}

// CanBePaid reports whether a payment may be recorded or the invoice
// explicitly marked paid.
func (i *Invoice) CanBePaid() bool {
	return i.Status == InvoiceStatusSent || i.Status == InvoiceStatusOverdue
}

// CanBeCancelled reports whether an explicit cancel action is allowed.
func (i *Invoice) CanBeCancelled() bool {
	switch i.Status {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusOverdue:
		return true
	}
	return false
}

// CanBeModified reports whether item/field edits are allowed. Paid and
// cancelled invoices are frozen; sent and overdue invoices may still be
// corrected before money changes hands.
func (i *Invoice) CanBeModified() bool {
	return i.Status != InvoiceStatusPaid && i.Status != InvoiceStatusCancelled
}

// IsEditable is the strict editability predicate used for UI hints:
// only drafts are freely editable.
func (i *Invoice) IsEditable() bool {
	return i.Status == InvoiceStatusDraft
}

// IsOverdueCandidate reports whether the overdue sweep should pick this
// invoice up: still sent, and past due at the given instant.
func (i *Invoice) IsOverdueCandidate(now time.Time) bool {
	return i.Status == InvoiceStatusSent && i.DueDate.Before(now)
}

// ValidTransition reports whether moving to the target status is permitted
// by the lifecycle rules. Paid and Cancelled are terminal.
func (i *Invoice) ValidTransition(to InvoiceStatus) bool {
	switch to {
	case InvoiceStatusSent:
		return i.Status == InvoiceStatusDraft
	case InvoiceStatusPaid:
		return i.CanBePaid()
	case InvoiceStatusOverdue:
		return i.Status == InvoiceStatusSent
	case InvoiceStatusCancelled:
		return i.CanBeCancelled()
	}
	return false
}

// InvoiceItem is a single line on an invoice. Items are owned by their
// invoice and replaced wholesale on invoice update, never diffed.
type InvoiceItem struct {
	ItemID      string          `json:"itemID"`    // Primary Key (UUID)
	InvoiceID   string          `json:"invoiceID"` // FK -> invoices.invoice_id
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`  // positive, 2dp
	UnitPrice   decimal.Decimal `json:"unitPrice"` // non-negative
	LineTotal   decimal.Decimal `json:"lineTotal"` // quantity * unitPrice, 2dp
	AuditFields
}
