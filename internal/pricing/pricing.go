// Package pricing computes order totals in integer minor currency units.
// It is pure: no I/O, no state, safe for concurrent use.
package pricing

import "github.com/shopspring/decimal"

// Line is one order line as seen by the calculator: the snapshotted unit
// price (minor units) and the quantity.
type Line struct {
	UnitPrice int64
	Quantity  int32
}

// Totals holds the calculated monetary fields of an order, all in minor
// currency units. Discounts are applied by the caller, not here.
type Totals struct {
	Subtotal      int64
	Tax           int64
	ServiceCharge int64
	Total         int64
}

// CalculateTotals sums the lines and applies percentage tax and service
// charge rates. Rates are percentages (10 means 10%) and may carry
// fractional digits. Tax and service charge are each rounded half-up to
// the nearest minor unit; with the non-negative inputs this engine
// produces, decimal.Round (half away from zero) implements exactly that.
func CalculateTotals(lines []Line, taxRatePct, serviceChargePct decimal.Decimal) Totals {
	var subtotal int64
	for _, l := range lines {
		subtotal += l.UnitPrice * int64(l.Quantity)
	}

	sub := decimal.NewFromInt(subtotal)
	hundred := decimal.NewFromInt(100)

	tax := sub.Mul(taxRatePct).Div(hundred).Round(0).IntPart()
	serviceCharge := sub.Mul(serviceChargePct).Div(hundred).Round(0).IntPart()

	return Totals{
		Subtotal:      subtotal,
		Tax:           tax,
		ServiceCharge: serviceCharge,
		Total:         subtotal + tax + serviceCharge,
	}
}
