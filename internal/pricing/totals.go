// Package pricing holds the pure money math for carts and orders. Every
// function is side-effect free and rounds to two decimal places, matching the
// decimal(10,2) columns the amounts are stored in.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/subhajitlucky/pradhanfresh-sub000/internal/domain"
)

var (
	// FreeShippingThreshold is the order subtotal at or above which delivery
	// is free.
	FreeShippingThreshold = decimal.NewFromInt(500)

	// FlatDeliveryFee applies to orders below the threshold.
	FlatDeliveryFee = decimal.NewFromInt(50)
)

// ItemSubtotal is quantity x unit price, rounded to the currency minor unit.
func ItemSubtotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// CartTotal sums the stored subtotals of the given cart lines. It trusts each
// line's subtotal; whoever mutates a line keeps its subtotal fresh.
func CartTotal(items []domain.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal)
	}
	return total.Round(2)
}

// OrderTotals is the computed money breakdown of an order.
type OrderTotals struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Tax         decimal.Decimal
	Discount    decimal.Decimal
	TotalAmount decimal.Decimal
}

// ComputeOrderTotals derives the full breakdown from the cart lines being
// purchased. Each component is rounded independently because each is stored
// in its own column. The grand total never goes below zero even when the
// discount exceeds subtotal + fee + tax.
func ComputeOrderTotals(items []domain.CartItem, deliveryFee, taxPercent, discount decimal.Decimal) OrderTotals {
	subtotal := CartTotal(items)
	tax := subtotal.Mul(taxPercent).Div(decimal.NewFromInt(100)).Round(2)
	fee := deliveryFee.Round(2)
	disc := discount.Round(2)

	total := subtotal.Add(fee).Add(tax).Sub(disc).Round(2)
	if total.IsNegative() {
		total = decimal.Zero.Round(2)
	}

	return OrderTotals{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Tax:         tax,
		Discount:    disc,
		TotalAmount: total,
	}
}

// DeliveryFee for an order subtotal: free at or above the threshold, flat
// otherwise. Geographic pricing is a future concern, not modelled here.
func DeliveryFee(orderSubtotal decimal.Decimal) decimal.Decimal {
	if orderSubtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		return decimal.Zero
	}
	return FlatDeliveryFee
}
