package checkout

import "github.com/shopspring/decimal"

var (
	// TaxRate applied to the subtotal.
	TaxRate = decimal.RequireFromString("0.08")
	// FreeShippingThreshold is the subtotal above which shipping is free.
	FreeShippingThreshold = decimal.NewFromInt(50)
	// FlatShipping is charged at or below the threshold.
	FlatShipping = decimal.RequireFromString("9.99")
)

// Quote is the priced summary of an order.
type Quote struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// QuoteFor prices a subtotal. Tax is rounded to cents; an empty order ships free.
func QuoteFor(subtotal decimal.Decimal) Quote {
	tax := subtotal.Mul(TaxRate).Round(2)
	shipping := FlatShipping
	if subtotal.GreaterThan(FreeShippingThreshold) || subtotal.IsZero() {
		shipping = decimal.Zero
	}
	return Quote{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}
