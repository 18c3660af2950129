package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecurringFrequency is the period between generated invoices.
type RecurringFrequency string

const (
	FrequencyMonthly   RecurringFrequency = "MONTHLY"
	FrequencyQuarterly RecurringFrequency = "QUARTERLY"
	FrequencyYearly    RecurringFrequency = "YEARLY"
)

// ParseRecurringFrequency converts a raw string into a typed frequency.
func ParseRecurringFrequency(s string) (RecurringFrequency, bool) {
	switch RecurringFrequency(s) {
	case FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return RecurringFrequency(s), true
	}
	return "", false
}

// months returns the calendar-month step for one period.
func (f RecurringFrequency) months() int {
	switch f {
	case FrequencyQuarterly:
		return 3
	case FrequencyYearly:
		return 12
	default:
		return 1
	}
}

// RecurringStatus is the state of a recurring template.
type RecurringStatus string

const (
	RecurringStatusActive    RecurringStatus = "ACTIVE"
	RecurringStatusPaused    RecurringStatus = "PAUSED"
	RecurringStatusCancelled RecurringStatus = "CANCELLED"
)

// RecurringInvoice is a template that generates invoices on a schedule.
// Active and Paused are interchangeable; Cancelled is terminal.
type RecurringInvoice struct {
	RecurringInvoiceID string             `json:"recurringInvoiceID"` // Primary Key (UUID)
	UserID             string             `json:"userID"`             // FK -> users.user_id (owner)
	ClientID           string             `json:"clientID"`           // FK -> clients.client_id
	Title              string             `json:"title"`
	Amount             decimal.Decimal    `json:"amount"`
	CurrencyCode       string             `json:"currencyCode"`
	Frequency          RecurringFrequency `json:"frequency"`
	Status             RecurringStatus    `json:"status"`
	StartDate          time.Time          `json:"startDate"`
	NextRunDate        time.Time          `json:"nextRunDate"`
	LastRunDate        *time.Time         `json:"lastRunDate"`
	Notes              string             `json:"notes"`
	AuditFields
}

// CanBePaused reports whether the template can move to Paused.
func (r *RecurringInvoice) CanBePaused() bool {
	return r.Status == RecurringStatusActive
}

// CanBeResumed reports whether the template can move back to Active.
func (r *RecurringInvoice) CanBeResumed() bool {
	return r.Status == RecurringStatusPaused
}

// CanBeCancelled reports whether the template can be cancelled.
func (r *RecurringInvoice) CanBeCancelled() bool {
	return r.Status != RecurringStatusCancelled
}

// ShouldGenerate reports whether the scheduler must generate an invoice
// from this template at the given instant.
func (r *RecurringInvoice) ShouldGenerate(now time.Time) bool {
	return r.Status == RecurringStatusActive && !r.NextRunDate.After(now)
}

// AnchorDay is the day-of-month every run is anchored to. It is derived
// from the start date so that a Jan-31 schedule clamped to Feb-28 still
// lands on Mar-31, not Mar-28.
func (r *RecurringInvoice) AnchorDay() int {
	return r.StartDate.Day()
}

// NextRunAfter computes the run date one frequency period after from,
// anchored to AnchorDay and clamped to the last day of the target month
// when the anchor overflows (Jan 31 monthly -> Feb 28/29).
func (r *RecurringInvoice) NextRunAfter(from time.Time) time.Time {
	return addMonthsClamped(from, r.Frequency.months(), r.AnchorDay())
}

// addMonthsClamped moves from forward by the given number of calendar
// months, targeting anchorDay and clamping to the month's last day.
func addMonthsClamped(from time.Time, months, anchorDay int) time.Time {
	year, month, _ := from.Date()
	// Normalize via the first of the target month to avoid time.AddDate's
	// overflow behavior (Jan 31 + 1 month = Mar 3).
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, from.Location())
	day := anchorDay
	if last := daysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day,
		from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
