package invoicing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// moneyPlaces is the fixed fraction-digit count for all monetary figures.
// Rounding is decimal.Round (half away from zero), applied consistently
// system-wide.
const moneyPlaces = 2

// LineItem is the minimal item shape the calculator needs.
type LineItem struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// Totals holds the derived monetary figures of an invoice.
type Totals struct {
	SubTotal decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// LineTotal computes quantity * unitPrice rounded to 2 decimal places.
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(moneyPlaces)
}

// CalculateTotals derives subtotal, tax and total from line items and the
// invoice's frozen tax rate. Pure function: invoices store the result as a
// cache and must be recomputed whenever items change. Per-item discounts
// are not configurable, so discount is always zero here.
func CalculateTotals(items []LineItem, taxRate decimal.Decimal, taxExempt bool) Totals {
	subTotal := decimal.Zero
	for _, item := range items {
		subTotal = subTotal.Add(LineTotal(item.Quantity, item.UnitPrice))
	}
	subTotal = subTotal.Round(moneyPlaces)

	tax := decimal.Zero
	if !taxExempt {
		tax = subTotal.Mul(taxRate).Round(moneyPlaces)
	}

	discount := decimal.Zero

	return Totals{
		SubTotal: subTotal,
		Tax:      tax,
		Discount: discount,
		Total:    subTotal.Add(tax).Sub(discount).Round(moneyPlaces),
	}
}

// ValidateItem checks the line-item invariants: positive quantity with at
// most two fraction digits, non-negative unit price, non-empty
// description.
func ValidateItem(description string, quantity, unitPrice decimal.Decimal) error {
	if description == "" {
		return fmt.Errorf("item description is required")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("item quantity must be positive, got %s", quantity)
	}
	if !quantity.Equal(quantity.Round(moneyPlaces)) {
		return fmt.Errorf("item quantity must have at most %d decimal places, got %s", moneyPlaces, quantity)
	}
	if unitPrice.IsNegative() {
		return fmt.Errorf("item unit price must not be negative, got %s", unitPrice)
	}
	return nil
}

// DriftExceeds reports whether a stored total diverges from a recomputed
// total by more than the given tolerance (the reconciliation routine uses
// one cent).
func DriftExceeds(stored, recomputed, tolerance decimal.Decimal) bool {
	return stored.Sub(recomputed).Abs().GreaterThan(tolerance)
}
