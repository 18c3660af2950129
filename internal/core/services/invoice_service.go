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
	"github.com/billingo/billingo-backend/internal/utils/invoicing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// driftTolerance is the maximum allowed gap between a stored total and
// its recomputation before ReconcileTotals rewrites the cache.
var driftTolerance = decimal.RequireFromString("0.01")

type invoiceService struct {
	BaseService
	invoiceRepo  portsrepo.InvoiceRepositoryFacade
	clientRepo   portsrepo.ClientRepositoryFacade
	activityRepo portsrepo.ActivityRepositoryFacade
	dispatcher   portssvc.NotificationDispatcher
}

// NewInvoiceService creates a new InvoiceService.
func NewInvoiceService(
	invoiceRepo portsrepo.InvoiceRepositoryFacade,
	clientRepo portsrepo.ClientRepositoryFacade,
	activityRepo portsrepo.ActivityRepositoryFacade,
	dispatcher portssvc.NotificationDispatcher,
) portssvc.InvoiceSvcFacade {
	return &invoiceService{
		invoiceRepo:  invoiceRepo,
		clientRepo:   clientRepo,
		activityRepo: activityRepo,
		dispatcher:   dispatcher,
	}
}

var _ portssvc.InvoiceSvcFacade = (*invoiceService)(nil)

// CreateInvoice validates the request, freezes the client's tax settings
// onto the new invoice, computes totals server-side and persists invoice,
// items and the created activity atomically. The repository allocates the
// sequential invoice number inside the same transaction.
func (s *invoiceService) CreateInvoice(ctx context.Context, userID string, req dto.CreateInvoiceRequest) (*domain.Invoice, []domain.InvoiceItem, error) {
	if req.DueDate.Before(req.IssueDate) {
		return nil, nil, apperrors.NewValidationError("due date must not be before issue date")
	}

	client, err := s.clientRepo.FindClientByID(ctx, userID, req.ClientID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.NewValidationError("client not found")
		}
		return nil, nil, fmt.Errorf("failed to resolve client: %w", err)
	}

	invoice, items, err := buildInvoice(userID, client, req)
	if err != nil {
		return nil, nil, err
	}

	activity := systemActivity(invoice.InvoiceID, userID, domain.ActivityCreated, nil)
	if err := s.invoiceRepo.CreateInvoice(ctx, invoice, items, activity); err != nil {
		return nil, nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.dispatcher.Dispatch(ctx, domain.Event{
		Type:       domain.EventInvoiceCreated,
		OccurredAt: invoice.CreatedAt,
		UserID:     userID,
		InvoiceID:  invoice.InvoiceID,
	})

	if req.SendImmediately {
		sent, err := s.SendInvoice(ctx, userID, invoice.InvoiceID)
		if err != nil {
			// Invoice exists as a draft; surface the send failure.
			return invoice, items, fmt.Errorf("invoice created but send failed: %w", err)
		}
		invoice = sent
	}

	return invoice, items, nil
}

// buildInvoice assembles a draft invoice and its items from the request,
// freezing the client's currency and tax settings.
func buildInvoice(userID string, client *domain.Client, req dto.CreateInvoiceRequest) (*domain.Invoice, []domain.InvoiceItem, error) {
	now := time.Now().UTC()
	invoiceID := uuid.NewString()

	items := make([]domain.InvoiceItem, 0, len(req.Items))
	lineItems := make([]invoicing.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		if err := invoicing.ValidateItem(item.Description, item.Quantity, item.UnitPrice); err != nil {
			return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
		}
		items = append(items, domain.InvoiceItem{
			ItemID:      uuid.NewString(),
			InvoiceID:   invoiceID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   invoicing.LineTotal(item.Quantity, item.UnitPrice),
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     userID,
				LastUpdatedAt: now,
				LastUpdatedBy: userID,
			},
		})
		lineItems = append(lineItems, invoicing.LineItem{Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}

	totals := invoicing.CalculateTotals(lineItems, client.TaxRate, client.TaxExempt)

	invoice := &domain.Invoice{
		InvoiceID:    invoiceID,
		UserID:       userID,
		ClientID:     client.ClientID,
		Status:       domain.InvoiceStatusDraft,
		SubTotal:     totals.SubTotal,
		Tax:          totals.Tax,
		Discount:     totals.Discount,
		Total:        totals.Total,
		CurrencyCode: client.CurrencyCode,
		TaxRate:      client.TaxRate,
		TaxExempt:    client.TaxExempt,
		IssueDate:    req.IssueDate,
		DueDate:      req.DueDate,
		Notes:        req.Notes,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	return invoice, items, nil
}

// GetInvoiceByID retrieves an invoice with its items.
func (s *invoiceService) GetInvoiceByID(ctx context.Context, userID, invoiceID string) (*domain.Invoice, []domain.InvoiceItem, error) {
	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, userID, invoiceID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	items, err := s.invoiceRepo.FindInvoiceItems(ctx, invoiceID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get invoice items: %w", err)
	}
	return invoice, items, nil
}

// ListInvoices retrieves a page of the user's invoices.
func (s *invoiceService) ListInvoices(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.Invoice, *string, error) {
	invoices, token, err := s.invoiceRepo.ListInvoices(ctx, userID, limit, nextToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, token, nil
}

// UpdateInvoice replaces the invoice's editable fields and its items
// wholesale, recomputing totals. The repository re-checks modifiability
// under the row lock; a lost race surfaces as ErrConflict.
func (s *invoiceService) UpdateInvoice(ctx context.Context, userID, invoiceID string, req dto.UpdateInvoiceRequest) (*domain.Invoice, []domain.InvoiceItem, error) {
	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, userID, invoiceID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get invoice for update: %w", err)
	}
	if !invoice.CanBeModified() {
		return nil, nil, fmt.Errorf("%w: invoice in status %s cannot be modified", apperrors.ErrConflict, invoice.Status)
	}

	if req.IssueDate != nil {
		invoice.IssueDate = *req.IssueDate
	}
	if req.DueDate != nil {
		invoice.DueDate = *req.DueDate
	}
	if invoice.DueDate.Before(invoice.IssueDate) {
		return nil, nil, apperrors.NewValidationError("due date must not be before issue date")
	}
	if req.Notes != nil {
		invoice.Notes = *req.Notes
	}

	now := time.Now().UTC()
	items := make([]domain.InvoiceItem, 0, len(req.Items))
	lineItems := make([]invoicing.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		if err := invoicing.ValidateItem(item.Description, item.Quantity, item.UnitPrice); err != nil {
			return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
		}
		items = append(items, domain.InvoiceItem{
			ItemID:      uuid.NewString(),
			InvoiceID:   invoiceID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   invoicing.LineTotal(item.Quantity, item.UnitPrice),
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     userID,
				LastUpdatedAt: now,
				LastUpdatedBy: userID,
			},
		})
		lineItems = append(lineItems, invoicing.LineItem{Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}

	// Totals always use the invoice's frozen tax rate, not the client's
	// current one.
	totals := invoicing.CalculateTotals(lineItems, invoice.TaxRate, invoice.TaxExempt)
	invoice.SubTotal = totals.SubTotal
	invoice.Tax = totals.Tax
	invoice.Discount = totals.Discount
	invoice.Total = totals.Total
	invoice.LastUpdatedAt = now
	invoice.LastUpdatedBy = userID

	activity := systemActivity(invoiceID, userID, domain.ActivityUpdated, nil)
	if err := s.invoiceRepo.UpdateInvoiceWithItems(ctx, *invoice, items, activity); err != nil {
		return nil, nil, fmt.Errorf("failed to update invoice: %w", err)
	}

	return invoice, items, nil
}

// DeleteInvoice removes a modifiable invoice and its items.
func (s *invoiceService) DeleteInvoice(ctx context.Context, userID, invoiceID string) error {
	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, userID, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to get invoice for delete: %w", err)
	}
	if !invoice.CanBeModified() {
		return fmt.Errorf("%w: invoice in status %s cannot be deleted", apperrors.ErrConflict, invoice.Status)
	}
	if err := s.invoiceRepo.DeleteInvoice(ctx, userID, invoiceID); err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	return nil
}

// SendInvoice transitions Draft -> Sent.
func (s *invoiceService) SendInvoice(ctx context.Context, userID, invoiceID string) (*domain.Invoice, error) {
	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, userID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice for send: %w", err)
	}
	if !invoice.CanBeSent() {
		return nil, fmt.Errorf("%w: invoice in status %s cannot be sent", apperrors.ErrConflict, invoice.Status)
	}

	activity := systemActivity(invoiceID, userID, domain.ActivitySent, nil)
	applied, err := s.invoiceRepo.TransitionStatus(ctx, invoiceID,
		[]domain.InvoiceStatus{domain.InvoiceStatusDraft}, domain.InvoiceStatusSent, nil, activity)
	if err != nil {
		return nil, fmt.Errorf("failed to send invoice: %w", err)
	}
	if !applied {
		return nil, fmt.Errorf("%w: invoice is no longer a draft", apperrors.ErrConflict)
	}

	invoice.Status = domain.InvoiceStatusSent
	s.dispatcher.Dispatch(ctx, domain.Event{
		Type:       domain.EventInvoiceSent,
		OccurredAt: time.Now().UTC(),
		UserID:     userID,
		InvoiceID:  invoiceID,
	})
	return invoice, nil
}

// CancelInvoice transitions Draft/Sent/Overdue -> Cancelled, recording the
// optional reason in the activity metadata.
func (s *invoiceService) CancelInvoice(ctx context.Context, userID, invoiceID, reason string) (*domain.Invoice, error) {
	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, userID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice for cancel: %w", err)
	}
	if !invoice.CanBeCancelled() {
		return nil, fmt.Errorf("%w: invoice in status %s cannot be cancelled", apperrors.ErrConflict, invoice.Status)
	}

	var metadata map[string]string
	if reason != "" {
		metadata = map[string]string{"reason": reason}
	}
	activity := systemActivity(invoiceID, userID, domain.ActivityCancelled, metadata)
	applied, err := s.invoiceRepo.TransitionStatus(ctx, invoiceID,
		[]domain.InvoiceStatus{domain.InvoiceStatusDraft, domain.InvoiceStatusSent, domain.InvoiceStatusOverdue},
		domain.InvoiceStatusCancelled, nil, activity)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel invoice: %w", err)
	}
	if !applied {
		return nil, fmt.Errorf("%w: invoice can no longer be cancelled", apperrors.ErrConflict)
	}

	invoice.Status = domain.InvoiceStatusCancelled
	s.dispatcher.Dispatch(ctx, domain.Event{
		Type:       domain.EventInvoiceCancelled,
		OccurredAt: time.Now().UTC(),
		UserID:     userID,
		InvoiceID:  invoiceID,
	})
	return invoice, nil
}

// MarkInvoicePaid explicitly transitions Sent/Overdue -> Paid without a
// payment record, for money received outside the system.
func (s *invoiceService) MarkInvoicePaid(ctx context.Context, userID, invoiceID string) (*domain.Invoice, error) {
	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, userID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice for mark paid: %w", err)
	}
	if !invoice.CanBePaid() {
		return nil, fmt.Errorf("%w: invoice in status %s cannot be marked paid", apperrors.ErrConflict, invoice.Status)
	}

	paidAt := time.Now().UTC()
	activity := systemActivity(invoiceID, userID, domain.ActivityPaid, nil)
	applied, err := s.invoiceRepo.TransitionStatus(ctx, invoiceID,
		[]domain.InvoiceStatus{domain.InvoiceStatusSent, domain.InvoiceStatusOverdue},
		domain.InvoiceStatusPaid, &paidAt, activity)
	if err != nil {
		return nil, fmt.Errorf("failed to mark invoice paid: %w", err)
	}
	if !applied {
		return nil, fmt.Errorf("%w: invoice can no longer be marked paid", apperrors.ErrConflict)
	}

	invoice.Status = domain.InvoiceStatusPaid
	invoice.PaidAt = &paidAt
	s.dispatcher.Dispatch(ctx, domain.Event{
		Type:       domain.EventInvoicePaid,
		OccurredAt: paidAt,
		UserID:     userID,
		InvoiceID:  invoiceID,
	})
	return invoice, nil
}

// ListActivities returns the invoice's audit timeline after verifying
// ownership.
func (s *invoiceService) ListActivities(ctx context.Context, userID, invoiceID string, limit int) ([]domain.InvoiceActivity, error) {
	if _, err := s.invoiceRepo.FindInvoiceByID(ctx, userID, invoiceID); err != nil {
		return nil, fmt.Errorf("failed to get invoice for activities: %w", err)
	}
	activities, err := s.activityRepo.ListActivitiesByInvoice(ctx, invoiceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}

// ReconcileTotals walks all invoices in bounded chunks, recomputes totals
// from items and rewrites any stored total drifting by more than one cent.
func (s *invoiceService) ReconcileTotals(ctx context.Context, chunkSize int) (domain.SweepResult, error) {
	result := domain.SweepResult{}
	afterID := ""

	for {
		invoices, err := s.invoiceRepo.ListInvoicesChunk(ctx, afterID, chunkSize)
		if err != nil {
			return result, fmt.Errorf("failed to list invoices chunk: %w", err)
		}
		if len(invoices) == 0 {
			break
		}

		for i := range invoices {
			inv := &invoices[i]
			afterID = inv.InvoiceID
			s.reconcileOne(ctx, inv, &result)
		}
	}

	return result, nil
}

func (s *invoiceService) reconcileOne(ctx context.Context, inv *domain.Invoice, result *domain.SweepResult) {
	items, err := s.invoiceRepo.FindInvoiceItems(ctx, inv.InvoiceID)
	if err != nil {
		s.LogError(ctx, err, "Failed to load items for reconciliation", "invoice_id", inv.InvoiceID)
		result.Add(inv.InvoiceID, domain.SweepErrored, "load items: "+err.Error())
		return
	}

	lineItems := make([]invoicing.LineItem, len(items))
	for i, item := range items {
		lineItems[i] = invoicing.LineItem{Quantity: item.Quantity, UnitPrice: item.UnitPrice}
	}
	totals := invoicing.CalculateTotals(lineItems, inv.TaxRate, inv.TaxExempt)

	if !invoicing.DriftExceeds(inv.Total, totals.Total, driftTolerance) &&
		!invoicing.DriftExceeds(inv.SubTotal, totals.SubTotal, driftTolerance) &&
		!invoicing.DriftExceeds(inv.Tax, totals.Tax, driftTolerance) {
		result.Add(inv.InvoiceID, domain.SweepSkipped, "totals consistent")
		return
	}

	now := time.Now().UTC()
	if err := s.invoiceRepo.UpdateInvoiceTotals(ctx, inv.InvoiceID,
		totals.SubTotal, totals.Tax, totals.Discount, totals.Total, "system", now); err != nil {
		s.LogError(ctx, err, "Failed to correct drifted totals", "invoice_id", inv.InvoiceID)
		result.Add(inv.InvoiceID, domain.SweepErrored, "update totals: "+err.Error())
		return
	}

	s.LogWarn(ctx, "Corrected drifted invoice totals",
		"invoice_id", inv.InvoiceID,
		"stored_total", inv.Total.String(),
		"recomputed_total", totals.Total.String())
	result.Add(inv.InvoiceID, domain.SweepProcessed, "totals corrected")
}

// systemActivity builds an activity entry stamped now.
func systemActivity(invoiceID, userID string, action domain.ActivityAction, metadata map[string]string) domain.InvoiceActivity {
	return domain.InvoiceActivity{
		ActivityID: uuid.NewString(),
		InvoiceID:  invoiceID,
		UserID:     userID,
		Action:     action,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
}
