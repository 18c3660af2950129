package domain

import "time"

// ActivityAction tags an entry in an invoice's audit timeline.
type ActivityAction string

const (
	ActivityCreated                ActivityAction = "created"
	ActivitySent                   ActivityAction = "sent"
	ActivityPaid                   ActivityAction = "paid"
	ActivityPaymentReceived        ActivityAction = "payment_received"
	ActivityCancelled              ActivityAction = "cancelled"
	ActivityUpdated                ActivityAction = "updated"
	ActivityDeleted                ActivityAction = "deleted"
	ActivityMarkedOverdue          ActivityAction = "marked_overdue"
	ActivityDueSoonReminder        ActivityAction = "due_soon_reminder"
	ActivityOverdueReminder        ActivityAction = "overdue_reminder"
	ActivityFollowUpReminder       ActivityAction = "follow_up_reminder"
	ActivityGeneratedFromRecurring ActivityAction = "generated_from_recurring"
)

// InvoiceActivity is an append-only audit log entry. Besides feeding the
// human-facing timeline, the reminder sweep uses absence of a recent entry
// of a given action as its deduplication signal, so entries must never be
// mutated or backdated.
type InvoiceActivity struct {
	ActivityID string            `json:"activityID"` // Primary Key (UUID)
	InvoiceID  string            `json:"invoiceID"`  // FK -> invoices.invoice_id
	UserID     string            `json:"userID"`     // acting user, empty for system sweeps
	Action     ActivityAction    `json:"action"`
	Metadata   map[string]string `json:"metadata"`
	CreatedAt  time.Time         `json:"createdAt"`
}
