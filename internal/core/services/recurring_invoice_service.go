package services

import (
	"context"
	"errors"
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

// generatedDueDays is the payment term applied to invoices generated from
// a recurring template.
const generatedDueDays = 30

type recurringInvoiceService struct {
	BaseService
	recurringRepo portsrepo.RecurringInvoiceRepositoryFacade
	clientRepo    portsrepo.ClientRepositoryFacade
	dispatcher    portssvc.NotificationDispatcher
}

// NewRecurringInvoiceService creates a new RecurringInvoiceService.
func NewRecurringInvoiceService(
	recurringRepo portsrepo.RecurringInvoiceRepositoryFacade,
	clientRepo portsrepo.ClientRepositoryFacade,
	dispatcher portssvc.NotificationDispatcher,
) portssvc.RecurringSvcFacade {
	return &recurringInvoiceService{
		recurringRepo: recurringRepo,
		clientRepo:    clientRepo,
		dispatcher:    dispatcher,
	}
}

var _ portssvc.RecurringSvcFacade = (*recurringInvoiceService)(nil)

// CreateRecurringInvoice creates an Active template. The first run date is
// the start date itself.
func (s *recurringInvoiceService) CreateRecurringInvoice(ctx context.Context, userID string, req dto.CreateRecurringInvoiceRequest) (*domain.RecurringInvoice, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.NewValidationError("amount must be positive")
	}
	frequency, ok := domain.ParseRecurringFrequency(req.Frequency)
	if !ok {
		return nil, apperrors.NewValidationError("unknown frequency: " + req.Frequency)
	}

	client, err := s.clientRepo.FindClientByID(ctx, userID, req.ClientID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewValidationError("client not found")
		}
		return nil, fmt.Errorf("failed to resolve client: %w", err)
	}

	now := time.Now().UTC()
	recurring := domain.RecurringInvoice{
		RecurringInvoiceID: uuid.NewString(),
		UserID:             userID,
		ClientID:           client.ClientID,
		Title:              req.Title,
		Amount:             req.Amount.Round(2),
		CurrencyCode:       client.CurrencyCode,
		Frequency:          frequency,
		Status:             domain.RecurringStatusActive,
		StartDate:          req.StartDate,
		NextRunDate:        req.StartDate,
		Notes:              req.Notes,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.recurringRepo.SaveRecurringInvoice(ctx, recurring); err != nil {
		return nil, fmt.Errorf("failed to create recurring invoice: %w", err)
	}

	return &recurring, nil
}

// GetRecurringInvoiceByID retrieves a template owned by the user.
func (s *recurringInvoiceService) GetRecurringInvoiceByID(ctx context.Context, userID, recurringID string) (*domain.RecurringInvoice, error) {
	recurring, err := s.recurringRepo.FindRecurringInvoiceByID(ctx, userID, recurringID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring invoice: %w", err)
	}
	return recurring, nil
}

// ListRecurringInvoices retrieves a page of the user's templates.
func (s *recurringInvoiceService) ListRecurringInvoices(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.RecurringInvoice, *string, error) {
	list, token, err := s.recurringRepo.ListRecurringInvoices(ctx, userID, limit, nextToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list recurring invoices: %w", err)
	}
	return list, token, nil
}

// UpdateRecurringInvoice applies the non-nil editable fields. Frequency and
// start date are fixed after creation so the run anchor never moves.
func (s *recurringInvoiceService) UpdateRecurringInvoice(ctx context.Context, userID, recurringID string, req dto.UpdateRecurringInvoiceRequest) (*domain.RecurringInvoice, error) {
	recurring, err := s.recurringRepo.FindRecurringInvoiceByID(ctx, userID, recurringID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring invoice for update: %w", err)
	}
	if recurring.Status == domain.RecurringStatusCancelled {
		return nil, fmt.Errorf("%w: cancelled recurring invoice cannot be updated", apperrors.ErrConflict)
	}

	if req.Title != nil {
		recurring.Title = *req.Title
	}
	if req.Amount != nil {
		if req.Amount.LessThanOrEqual(decimal.Zero) {
			return nil, apperrors.NewValidationError("amount must be positive")
		}
		recurring.Amount = req.Amount.Round(2)
	}
	if req.Notes != nil {
		recurring.Notes = *req.Notes
	}

	recurring.LastUpdatedAt = time.Now().UTC()
	recurring.LastUpdatedBy = userID

	if err := s.recurringRepo.UpdateRecurringInvoice(ctx, *recurring); err != nil {
		return nil, fmt.Errorf("failed to update recurring invoice: %w", err)
	}

	return recurring, nil
}

// PauseRecurringInvoice transitions Active -> Paused.
func (s *recurringInvoiceService) PauseRecurringInvoice(ctx context.Context, userID, recurringID string) (*domain.RecurringInvoice, error) {
	return s.changeStatus(ctx, userID, recurringID,
		[]domain.RecurringStatus{domain.RecurringStatusActive}, domain.RecurringStatusPaused)
}

// ResumeRecurringInvoice transitions Paused -> Active. Missed periods are
// not backfilled: the next sweep generates at most one invoice and
// advances the schedule from there.
func (s *recurringInvoiceService) ResumeRecurringInvoice(ctx context.Context, userID, recurringID string) (*domain.RecurringInvoice, error) {
	return s.changeStatus(ctx, userID, recurringID,
		[]domain.RecurringStatus{domain.RecurringStatusPaused}, domain.RecurringStatusActive)
}

// CancelRecurringInvoice transitions to Cancelled (terminal).
func (s *recurringInvoiceService) CancelRecurringInvoice(ctx context.Context, userID, recurringID string) (*domain.RecurringInvoice, error) {
	return s.changeStatus(ctx, userID, recurringID,
		[]domain.RecurringStatus{domain.RecurringStatusActive, domain.RecurringStatusPaused}, domain.RecurringStatusCancelled)
}

func (s *recurringInvoiceService) changeStatus(ctx context.Context, userID, recurringID string, from []domain.RecurringStatus, to domain.RecurringStatus) (*domain.RecurringInvoice, error) {
	recurring, err := s.recurringRepo.FindRecurringInvoiceByID(ctx, userID, recurringID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring invoice: %w", err)
	}

	now := time.Now().UTC()
	applied, err := s.recurringRepo.UpdateRecurringStatus(ctx, userID, recurringID, from, to, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to change recurring invoice status: %w", err)
	}
	if !applied {
		return nil, fmt.Errorf("%w: recurring invoice in status %s cannot move to %s",
			apperrors.ErrConflict, recurring.Status, to)
	}

	recurring.Status = to
	recurring.LastUpdatedAt = now
	recurring.LastUpdatedBy = userID
	return recurring, nil
}

// GenerateDueInvoices runs scheduled generation for every Active template
// whose next run date has arrived. Each template is processed
// independently; one failure never aborts the batch. The repository
// re-validates due-ness under the template's row lock, so concurrent
// sweeps generate exactly one invoice per due period.
func (s *recurringInvoiceService) GenerateDueInvoices(ctx context.Context, limit int, userID *string) (domain.SweepResult, error) {
	result := domain.SweepResult{}
	now := time.Now().UTC()

	templates, err := s.recurringRepo.ListDueTemplates(ctx, now, limit, userID)
	if err != nil {
		return result, fmt.Errorf("failed to list due templates: %w", err)
	}

	for i := range templates {
		s.generateOne(ctx, &templates[i], now, &result)
	}

	return result, nil
}

func (s *recurringInvoiceService) generateOne(ctx context.Context, template *domain.RecurringInvoice, now time.Time, result *domain.SweepResult) {
	if !template.ShouldGenerate(now) {
		result.Add(template.RecurringInvoiceID, domain.SweepSkipped, "not due")
		return
	}

	client, err := s.clientRepo.FindClientByID(ctx, template.UserID, template.ClientID)
	if err != nil {
		s.LogError(ctx, err, "Failed to resolve client for recurring generation",
			"recurring_invoice_id", template.RecurringInvoiceID)
		result.Add(template.RecurringInvoiceID, domain.SweepErrored, "resolve client: "+err.Error())
		return
	}

	invoice := buildGeneratedInvoice(template, client, now)
	activity := systemActivity(invoice.InvoiceID, template.UserID, domain.ActivityGeneratedFromRecurring, map[string]string{
		"recurring_invoice_id": template.RecurringInvoiceID,
	})
	nextRun := template.NextRunAfter(template.NextRunDate)

	applied, err := s.recurringRepo.GenerateInvoice(ctx, *template, invoice, activity, template.NextRunDate, nextRun)
	if err != nil {
		s.LogError(ctx, err, "Failed to generate invoice from recurring template",
			"recurring_invoice_id", template.RecurringInvoiceID)
		result.Add(template.RecurringInvoiceID, domain.SweepErrored, "generate: "+err.Error())
		return
	}
	if !applied {
		result.Add(template.RecurringInvoiceID, domain.SweepSkipped, "already generated")
		return
	}

	s.dispatcher.Dispatch(ctx, domain.Event{
		Type:               domain.EventRecurringInvoiceGenerated,
		OccurredAt:         now,
		UserID:             template.UserID,
		InvoiceID:          invoice.InvoiceID,
		RecurringInvoiceID: template.RecurringInvoiceID,
	})
	result.Add(template.RecurringInvoiceID, domain.SweepProcessed, "invoice "+invoice.InvoiceID)
}

// buildGeneratedInvoice assembles the invoice a template run produces:
// born Sent, a single line item carrying the template amount, due in 30
// days, linked back to its template. The template amount is the invoice
// total: no tax is applied on generation. The client's tax settings are
// still frozen onto the invoice so later edits recompute correctly.
func buildGeneratedInvoice(template *domain.RecurringInvoice, client *domain.Client, now time.Time) *domain.Invoice {
	invoiceID := uuid.NewString()
	recurringID := template.RecurringInvoiceID

	subTotal := template.Amount.Round(2)

	return &domain.Invoice{
		InvoiceID:          invoiceID,
		UserID:             template.UserID,
		ClientID:           template.ClientID,
		Status:             domain.InvoiceStatusSent,
		SubTotal:           subTotal,
		Tax:                decimal.Zero,
		Discount:           decimal.Zero,
		Total:              subTotal,
		CurrencyCode:       template.CurrencyCode,
		TaxRate:            client.TaxRate,
		TaxExempt:          client.TaxExempt,
		IssueDate:          now,
		DueDate:            now.AddDate(0, 0, generatedDueDays),
		Notes:              template.Notes,
		RecurringInvoiceID: &recurringID,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     template.UserID,
			LastUpdatedAt: now,
			LastUpdatedBy: template.UserID,
		},
	}
}
