package dto

import (
	"time"

	"github.com/billingo/billingo-backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// InvoiceItemRequest defines one line item on a create/update request.
type InvoiceItemRequest struct {
	Description string          `json:"description" binding:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unitPrice" binding:"required"`
}

// CreateInvoiceRequest defines the payload for creating an invoice with its
// items. Totals are computed server-side; the client's tax rate is frozen
// onto the invoice at this point.
type CreateInvoiceRequest struct {
	ClientID  string               `json:"clientID" binding:"required,uuid"`
	IssueDate time.Time            `json:"issueDate" binding:"required"`
	DueDate   time.Time            `json:"dueDate" binding:"required"`
	Notes     string               `json:"notes" binding:"omitempty,max=2000"`
	Items     []InvoiceItemRequest `json:"items" binding:"required,min=1,dive"`
	// SendImmediately creates the invoice directly in Sent, the way
	// recurring generation does.
	SendImmediately bool `json:"sendImmediately"`
}

// UpdateInvoiceRequest defines the payload for updating an invoice. Items
// are replaced wholesale, never diffed.
type UpdateInvoiceRequest struct {
	IssueDate *time.Time           `json:"issueDate"`
	DueDate   *time.Time           `json:"dueDate"`
	Notes     *string              `json:"notes" binding:"omitempty,max=2000"`
	Items     []InvoiceItemRequest `json:"items" binding:"required,min=1,dive"`
}

// CancelInvoiceRequest carries the optional cancellation reason.
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// InvoiceItemResponse defines one line item in API responses.
type InvoiceItemResponse struct {
	ItemID      string          `json:"itemID"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// InvoiceResponse defines the structure for API responses containing
// invoice details.
type InvoiceResponse struct {
	InvoiceID     string                `json:"invoiceID"`
	ClientID      string                `json:"clientID"`
	InvoiceNumber string                `json:"invoiceNumber"`
	Status        domain.InvoiceStatus  `json:"status"`
	SubTotal      decimal.Decimal       `json:"subTotal"`
	Tax           decimal.Decimal       `json:"tax"`
	Discount      decimal.Decimal       `json:"discount"`
	Total         decimal.Decimal       `json:"total"`
	CurrencyCode  string                `json:"currencyCode"`
	TaxRate       decimal.Decimal       `json:"taxRate"`
	TaxExempt     bool                  `json:"taxExempt"`
	IssueDate     time.Time             `json:"issueDate"`
	DueDate       time.Time             `json:"dueDate"`
	PaidAt        *time.Time            `json:"paidAt,omitempty"`
	Notes         string                `json:"notes"`
	Items         []InvoiceItemResponse `json:"items,omitempty"`
	CreatedAt     time.Time             `json:"createdAt"`
}

// ListInvoicesResponse wraps a page of invoices with the next-page token.
type ListInvoicesResponse struct {
	Invoices  []InvoiceResponse `json:"invoices"`
	NextToken *string           `json:"nextToken,omitempty"`
}

// ActivityResponse defines one audit timeline entry.
type ActivityResponse struct {
	ActivityID string            `json:"activityID"`
	Action     string            `json:"action"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// ToInvoiceResponse converts a domain.Invoice (and optional items) to the
// response DTO.
func ToInvoiceResponse(invoice *domain.Invoice, items []domain.InvoiceItem) InvoiceResponse {
	resp := InvoiceResponse{
		InvoiceID:     invoice.InvoiceID,
		ClientID:      invoice.ClientID,
		InvoiceNumber: invoice.InvoiceNumber,
		Status:        invoice.Status,
		SubTotal:      invoice.SubTotal,
		Tax:           invoice.Tax,
		Discount:      invoice.Discount,
		Total:         invoice.Total,
		CurrencyCode:  invoice.CurrencyCode,
		TaxRate:       invoice.TaxRate,
		TaxExempt:     invoice.TaxExempt,
		IssueDate:     invoice.IssueDate,
		DueDate:       invoice.DueDate,
		PaidAt:        invoice.PaidAt,
		Notes:         invoice.Notes,
		CreatedAt:     invoice.CreatedAt,
	}
	for i := range items {
		resp.Items = append(resp.Items, InvoiceItemResponse{
			ItemID:      items[i].ItemID,
			Description: items[i].Description,
			Quantity:    items[i].Quantity,
			UnitPrice:   items[i].UnitPrice,
			LineTotal:   items[i].LineTotal,
		})
	}
	return resp
}

// ToListInvoicesResponse converts a page of domain invoices to the list DTO.
func ToListInvoicesResponse(invoices []domain.Invoice, nextToken *string) ListInvoicesResponse {
	resp := ListInvoicesResponse{
		Invoices:  make([]InvoiceResponse, len(invoices)),
		NextToken: nextToken,
	}
	for i := range invoices {
		resp.Invoices[i] = ToInvoiceResponse(&invoices[i], nil)
	}
	return resp
}

// ToActivityResponses converts domain activities to response DTOs.
func ToActivityResponses(activities []domain.InvoiceActivity) []ActivityResponse {
	out := make([]ActivityResponse, len(activities))
	for i, a := range activities {
		out[i] = ActivityResponse{
			ActivityID: a.ActivityID,
			Action:     string(a.Action),
			Metadata:   a.Metadata,
			CreatedAt:  a.CreatedAt,
		}
	}
	return out
}
