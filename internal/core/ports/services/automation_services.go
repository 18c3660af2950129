package services

import (
	"context"

	"github.com/billingo/billingo-backend/internal/core/domain"
)

// AutomationSvcFacade defines the idempotent batch sweeps. All sweeps are
// safe to invoke repeatedly and concurrently: lost races surface as skips
// in the result, never as errors.
type AutomationSvcFacade interface {
	// RunOverdueSweep marks past-due Sent invoices Overdue. A nil userID
	// processes all owners.
	RunOverdueSweep(ctx context.Context, limit int, userID *string) (domain.SweepResult, error)

	// RunReminderSweep records due-soon, overdue and follow-up reminder
	// intents, deduplicated via the activity log's cooldown windows.
	RunReminderSweep(ctx context.Context, limit int, userID *string) (domain.SweepResult, error)

	// RunMicroSweep is the bounded on-page-load variant: overdue marking,
	// reminders and recurring generation for a single user, with small
	// fixed limits and per-item error isolation.
	RunMicroSweep(ctx context.Context, userID string) domain.MicroSweepResult
}

// NotificationDispatcher receives domain events raised by lifecycle
// transitions. Delivery is best-effort: implementations must not block
// state transitions on failure.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, event domain.Event)
}
