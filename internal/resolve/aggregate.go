package resolve

import (
	"github.com/shopspring/decimal"

	"github.com/kervanis/order-engine/internal/domain/pricing"
)

// DefaultTaxRate is the fixed tax rate applied to the subtotal.
var DefaultTaxRate = decimal.RequireFromString("0.10")

// Summary holds order-level totals.
type Summary struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
	// Savings is the total the customer saves versus regular catalog prices,
	// summed over lines priced from their negotiated history.
	Savings decimal.Decimal
}

// Aggregate combines resolved lines into a Summary. Summation is
// order-independent: shuffling the lines does not change the result.
func Aggregate(lines []Line, taxRate decimal.Decimal) Summary {
	subtotal := decimal.Zero
	savings := decimal.Zero

	for _, line := range lines {
		subtotal = subtotal.Add(line.Total)

		if line.Product != nil && line.PriceSource == pricing.SourceCustomer {
			saved := line.Product.RegularPrice.Sub(line.UnitPrice)
			if saved.IsPositive() {
				savings = savings.Add(saved.Mul(line.Quantity))
			}
		}
	}

	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(taxRate).Round(2)

	return Summary{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
		Savings:  savings.Round(2),
	}
}
