// Package pricing derives the money fields of a cart from its line items.
package pricing

import (
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

var (
	freeShippingOver = decimal.NewFromInt(50)
	flatShipping     = decimal.NewFromInt(2)
	taxRate          = decimal.RequireFromString("0.15")
)

// Calc returns items, shipping, tax and total prices for items. Every
// amount is rounded half-up to cents and formatted with two fraction
// digits. Unparseable unit prices count as zero; callers validate line
// items before pricing them.
func Calc(items []domain.LineItem) domain.Prices {
	itemsPrice := decimal.Zero
	for _, item := range items {
		itemsPrice = itemsPrice.Add(Parse(item.Price).Mul(decimal.NewFromInt(int64(item.Qty))))
	}
	itemsPrice = round2(itemsPrice)

	shippingPrice := flatShipping
	if itemsPrice.GreaterThan(freeShippingOver) {
		shippingPrice = decimal.Zero
	}
	taxPrice := round2(taxRate.Mul(itemsPrice))
	totalPrice := round2(itemsPrice.Add(taxPrice).Add(shippingPrice))

	return domain.Prices{
		ItemsPrice:    itemsPrice.StringFixed(2),
		ShippingPrice: shippingPrice.StringFixed(2),
		TaxPrice:      taxPrice.StringFixed(2),
		TotalPrice:    totalPrice.StringFixed(2),
	}
}

// Parse reads a money string, treating malformed input as zero.
func Parse(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Format renders a money string with exactly two fraction digits.
func Format(s string) string {
	return round2(Parse(s)).StringFixed(2)
}

// round2 rounds half away from zero, which is half-up for the
// non-negative amounts priced here.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
