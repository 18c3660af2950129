package dto

import (
	"time"

	"github.com/billingo/billingo-backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateRecurringInvoiceRequest defines the payload for creating a
// recurring invoice template.
type CreateRecurringInvoiceRequest struct {
	ClientID  string          `json:"clientID" binding:"required,uuid"`
	Title     string          `json:"title" binding:"required,max=200"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Frequency string          `json:"frequency" binding:"required,oneof=MONTHLY QUARTERLY YEARLY"`
	StartDate time.Time       `json:"startDate" binding:"required"`
	Notes     string          `json:"notes" binding:"omitempty,max=2000"`
}

// UpdateRecurringInvoiceRequest defines the payload for updating a
// template. Nil fields are left unchanged; frequency and start date are
// fixed after creation to keep the run anchor stable.
type UpdateRecurringInvoiceRequest struct {
	Title  *string          `json:"title" binding:"omitempty,max=200"`
	Amount *decimal.Decimal `json:"amount"`
	Notes  *string          `json:"notes" binding:"omitempty,max=2000"`
}

// RecurringInvoiceResponse defines the structure for API responses
// containing template details.
type RecurringInvoiceResponse struct {
	RecurringInvoiceID string          `json:"recurringInvoiceID"`
	ClientID           string          `json:"clientID"`
	Title              string          `json:"title"`
	Amount             decimal.Decimal `json:"amount"`
	CurrencyCode       string          `json:"currencyCode"`
	Frequency          string          `json:"frequency"`
	Status             string          `json:"status"`
	StartDate          time.Time       `json:"startDate"`
	NextRunDate        time.Time       `json:"nextRunDate"`
	LastRunDate        *time.Time      `json:"lastRunDate,omitempty"`
	Notes              string          `json:"notes"`
}

// ListRecurringInvoicesResponse wraps a page of templates with the
// next-page token.
type ListRecurringInvoicesResponse struct {
	RecurringInvoices []RecurringInvoiceResponse `json:"recurringInvoices"`
	NextToken         *string                    `json:"nextToken,omitempty"`
}

// ToRecurringInvoiceResponse converts a domain.RecurringInvoice to the
// response DTO.
func ToRecurringInvoiceResponse(r *domain.RecurringInvoice) RecurringInvoiceResponse {
	return RecurringInvoiceResponse{
		RecurringInvoiceID: r.RecurringInvoiceID,
		ClientID:           r.ClientID,
		Title:              r.Title,
		Amount:             r.Amount,
		CurrencyCode:       r.CurrencyCode,
		Frequency:          string(r.Frequency),
		Status:             string(r.Status),
		StartDate:          r.StartDate,
		NextRunDate:        r.NextRunDate,
		LastRunDate:        r.LastRunDate,
		Notes:              r.Notes,
	}
}

// ToListRecurringInvoicesResponse converts a page of domain templates.
func ToListRecurringInvoicesResponse(list []domain.RecurringInvoice, nextToken *string) ListRecurringInvoicesResponse {
	resp := ListRecurringInvoicesResponse{
		RecurringInvoices: make([]RecurringInvoiceResponse, len(list)),
		NextToken:         nextToken,
	}
	for i := range list {
		resp.RecurringInvoices[i] = ToRecurringInvoiceResponse(&list[i])
	}
	return resp
}
