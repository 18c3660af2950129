package domain

import "time"

// EventType names a domain event raised by lifecycle transitions.
type EventType string

const (
	EventInvoiceCreated            EventType = "InvoiceCreated"
	EventInvoiceSent               EventType = "InvoiceSent"
	EventInvoicePaid               EventType = "InvoicePaid"
	EventInvoiceCancelled          EventType = "InvoiceCancelled"
	EventPaymentRecorded           EventType = "PaymentRecorded"
	EventRecurringInvoiceGenerated EventType = "RecurringInvoiceGenerated"
)

// Event is the payload handed to the notification dispatcher. Delivery,
// templating and per-user opt-out live downstream; the core only promises
// to raise the event with correct references, at-least-once, best-effort.
type Event struct {
	Type               EventType `json:"type"`
	OccurredAt         time.Time `json:"occurredAt"`
	UserID             string    `json:"userID"`
	InvoiceID          string    `json:"invoiceID,omitempty"`
	PaymentID          string    `json:"paymentID,omitempty"`
	RecurringInvoiceID string    `json:"recurringInvoiceID,omitempty"`
}
