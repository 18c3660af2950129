package services

import (
	"context"
	"fmt"
	"time"

	"github.com/billingo/billingo-backend/internal/core/domain"
	portsrepo "github.com/billingo/billingo-backend/internal/core/ports/repositories"
	portssvc "github.com/billingo/billingo-backend/internal/core/ports/services"
	"github.com/billingo/billingo-backend/internal/platform/config"
)

// reminderTier describes one class of reminder the sweep produces.
type reminderTier struct {
	action   domain.ActivityAction
	statuses []domain.InvoiceStatus
	// window bounds relative to now; nil means unbounded on that side
	dueFromDays  *int // due date >= now + dueFromDays
	dueUntilDays *int // due date < now + dueUntilDays
	cooldown     time.Duration
}

type automationService struct {
	BaseService
	invoiceRepo  portsrepo.InvoiceRepositoryFacade
	recurringSvc portssvc.RecurringSvcFacade
	cfg          *config.Config
}

// NewAutomationService creates a new AutomationService.
func NewAutomationService(
	invoiceRepo portsrepo.InvoiceRepositoryFacade,
	recurringSvc portssvc.RecurringSvcFacade,
	cfg *config.Config,
) portssvc.AutomationSvcFacade {
	return &automationService{
		invoiceRepo:  invoiceRepo,
		recurringSvc: recurringSvc,
		cfg:          cfg,
	}
}

var _ portssvc.AutomationSvcFacade = (*automationService)(nil)

// RunOverdueSweep marks past-due Sent invoices Overdue. The repository
// re-validates each candidate under its row lock, so invoices paid or
// cancelled between selection and marking are skipped, not corrupted.
func (s *automationService) RunOverdueSweep(ctx context.Context, limit int, userID *string) (domain.SweepResult, error) {
	result := domain.SweepResult{}
	now := time.Now().UTC()

	candidates, err := s.invoiceRepo.ListOverdueCandidates(ctx, now, limit, userID)
	if err != nil {
		return result, fmt.Errorf("failed to list overdue candidates: %w", err)
	}

	for i := range candidates {
		inv := &candidates[i]
		activity := systemActivity(inv.InvoiceID, "", domain.ActivityMarkedOverdue, map[string]string{
			"due_date": inv.DueDate.Format("2006-01-02"),
		})
		applied, err := s.invoiceRepo.MarkOverdueIfStillDue(ctx, inv.InvoiceID, now, activity)
		if err != nil {
			s.LogError(ctx, err, "Failed to mark invoice overdue", "invoice_id", inv.InvoiceID)
			result.Add(inv.InvoiceID, domain.SweepErrored, err.Error())
			continue
		}
		if !applied {
			result.Add(inv.InvoiceID, domain.SweepSkipped, "state changed since selection")
			continue
		}
		result.Add(inv.InvoiceID, domain.SweepProcessed, "marked overdue")
	}

	return result, nil
}

// reminderTiers builds the three reminder classes from configuration:
// due-soon for Sent invoices approaching their due date, overdue for
// invoices already past due, and follow-up for invoices long past due.
func (s *automationService) reminderTiers() []reminderTier {
	zero := 0
	dueSoonWindow := s.cfg.DueSoonWindowDays
	followUpAfter := -s.cfg.FollowUpAfterDays

	return []reminderTier{
		{
			action:       domain.ActivityDueSoonReminder,
			statuses:     []domain.InvoiceStatus{domain.InvoiceStatusSent},
			dueFromDays:  &zero,
			dueUntilDays: &dueSoonWindow,
			cooldown:     s.cfg.ReminderCooldown,
		},
		{
			action:       domain.ActivityOverdueReminder,
			statuses:     []domain.InvoiceStatus{domain.InvoiceStatusOverdue},
			dueUntilDays: &zero,
			cooldown:     s.cfg.ReminderCooldown,
		},
		{
			action:       domain.ActivityFollowUpReminder,
			statuses:     []domain.InvoiceStatus{domain.InvoiceStatusOverdue},
			dueUntilDays: &followUpAfter,
			cooldown:     s.cfg.FollowUpCooldown,
		},
	}
}

// RunReminderSweep records reminder intents for all three tiers. The
// activity log is the deduplication store: a tier only fires when no entry
// of its action exists inside the cooldown window, re-checked under the
// invoice's row lock before appending. The limit is a budget shared across
// the tiers: at most that many reminders are recorded per call.
func (s *automationService) RunReminderSweep(ctx context.Context, limit int, userID *string) (domain.SweepResult, error) {
	result := domain.SweepResult{}
	now := time.Now().UTC()
	remaining := limit

	for _, tier := range s.reminderTiers() {
		if remaining <= 0 {
			break
		}
		params := portsrepo.ReminderCandidateParams{
			Action:   tier.action,
			Statuses: tier.statuses,
			Cooldown: tier.cooldown,
			Limit:    remaining,
			UserID:   userID,
			Now:      now,
		}
		if tier.dueFromDays != nil {
			from := now.AddDate(0, 0, *tier.dueFromDays)
			params.DueFrom = &from
		}
		if tier.dueUntilDays != nil {
			until := now.AddDate(0, 0, *tier.dueUntilDays)
			params.DueUntil = &until
		}

		candidates, err := s.invoiceRepo.ListReminderCandidates(ctx, params)
		if err != nil {
			return result, fmt.Errorf("failed to list %s candidates: %w", tier.action, err)
		}

		for i := range candidates {
			inv := &candidates[i]
			activity := systemActivity(inv.InvoiceID, "", tier.action, map[string]string{
				"due_date": inv.DueDate.Format("2006-01-02"),
			})
			applied, err := s.invoiceRepo.AppendReminderIfAbsent(ctx, inv.InvoiceID, tier.action, tier.cooldown, activity)
			if err != nil {
				s.LogError(ctx, err, "Failed to append reminder", "invoice_id", inv.InvoiceID, "action", string(tier.action))
				result.Add(inv.InvoiceID, domain.SweepErrored, string(tier.action)+": "+err.Error())
				continue
			}
			if !applied {
				result.Add(inv.InvoiceID, domain.SweepSkipped, string(tier.action)+": within cooldown")
				continue
			}
			result.Add(inv.InvoiceID, domain.SweepProcessed, string(tier.action))
			remaining--
		}
	}

	return result, nil
}

// RunMicroSweep is the bounded on-page-load variant: each automation runs
// with a small fixed limit for a single user, and a failure in one never
// prevents the others.
func (s *automationService) RunMicroSweep(ctx context.Context, userID string) domain.MicroSweepResult {
	result := domain.MicroSweepResult{}
	uid := &userID

	overdue, err := s.RunOverdueSweep(ctx, s.cfg.MicroSweepOverdueMax, uid)
	if err != nil {
		s.LogError(ctx, err, "Micro-sweep overdue pass failed", "user_id", userID)
	}
	result.Overdue = overdue

	reminders, err := s.RunReminderSweep(ctx, s.cfg.MicroSweepReminderMax, uid)
	if err != nil {
		s.LogError(ctx, err, "Micro-sweep reminder pass failed", "user_id", userID)
	}
	result.Reminders = reminders

	recurring, err := s.recurringSvc.GenerateDueInvoices(ctx, s.cfg.MicroSweepGenerateMax, uid)
	if err != nil {
		s.LogError(ctx, err, "Micro-sweep recurring pass failed", "user_id", userID)
	}
	result.Recurring = recurring

	return result
}
