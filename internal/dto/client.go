package dto

import (
	"github.com/billingo/billingo-backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateClientRequest defines the payload for creating a client.
type CreateClientRequest struct {
	Name         string           `json:"name" binding:"required,max=200"`
	Email        string           `json:"email" binding:"omitempty,email"`
	Phone        string           `json:"phone" binding:"omitempty,max=30"`
	Address      string           `json:"address" binding:"omitempty,max=500"`
	CurrencyCode string           `json:"currencyCode" binding:"omitempty,len=3,uppercase"`
	TaxRate      *decimal.Decimal `json:"taxRate"` // fractional, defaults to the configured rate
	TaxExempt    bool             `json:"taxExempt"`
}

// UpdateClientRequest defines the payload for updating a client. Nil fields
// are left unchanged.
type UpdateClientRequest struct {
	Name      *string          `json:"name" binding:"omitempty,max=200"`
	Email     *string          `json:"email" binding:"omitempty,email"`
	Phone     *string          `json:"phone" binding:"omitempty,max=30"`
	Address   *string          `json:"address" binding:"omitempty,max=500"`
	TaxRate   *decimal.Decimal `json:"taxRate"`
	TaxExempt *bool            `json:"taxExempt"`
}

// ClientResponse defines the structure for API responses containing client details.
type ClientResponse struct {
	ClientID     string          `json:"clientID"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	Address      string          `json:"address"`
	CurrencyCode string          `json:"currencyCode"`
	TaxRate      decimal.Decimal `json:"taxRate"`
	TaxExempt    bool            `json:"taxExempt"`
}

// ListClientsResponse wraps a page of clients with the next-page token.
type ListClientsResponse struct {
	Clients   []ClientResponse `json:"clients"`
	NextToken *string          `json:"nextToken,omitempty"`
}

// ToClientResponse converts a domain.Client to ClientResponse.
func ToClientResponse(client *domain.Client) ClientResponse {
	return ClientResponse{
		ClientID:     client.ClientID,
		Name:         client.Name,
		Email:        client.Email,
		Phone:        client.Phone,
		Address:      client.Address,
		CurrencyCode: client.CurrencyCode,
		TaxRate:      client.TaxRate,
		TaxExempt:    client.TaxExempt,
	}
}

// ToListClientsResponse converts a page of domain clients to the list DTO.
func ToListClientsResponse(clients []domain.Client, nextToken *string) ListClientsResponse {
	resp := ListClientsResponse{
		Clients:   make([]ClientResponse, len(clients)),
		NextToken: nextToken,
	}
	for i := range clients {
		resp.Clients[i] = ToClientResponse(&clients[i])
	}
	return resp
}
