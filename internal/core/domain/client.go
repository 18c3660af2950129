package domain

import "github.com/shopspring/decimal"

// Client is a billable party owned by a user. Its currency and tax rate are
// defaults applied to new invoices; the invoice freezes its own copies at
// creation time, so later edits here never rewrite invoicing history.
type Client struct {
	ClientID     string          `json:"clientID"` // Primary Key (UUID)
	UserID       string          `json:"userID"`   // FK -> users.user_id (owner)
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	Address      string          `json:"address"`
	CurrencyCode string          `json:"currencyCode"` // ISO 4217, e.g. "EUR"
	TaxRate      decimal.Decimal `json:"taxRate"`      // fractional, e.g. 0.10
	TaxExempt    bool            `json:"taxExempt"`
	AuditFields
}
