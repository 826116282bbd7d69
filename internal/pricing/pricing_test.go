package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func rate(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCalculateTotals(t *testing.T) {
	tests := []struct {
		name          string
		lines         []Line
		taxPct        string
		servicePct    string
		subtotal      int64
		tax           int64
		serviceCharge int64
		total         int64
	}{
		{
			// The canonical worked example: 45000x2 + 20000x1 at 10% / 5%.
			name:          "two lines default rates",
			lines:         []Line{{UnitPrice: 45000, Quantity: 2}, {UnitPrice: 20000, Quantity: 1}},
			taxPct:        "10",
			servicePct:    "5",
			subtotal:      110000,
			tax:           11000,
			serviceCharge: 5500,
			total:         126500,
		},
		{
			name:       "empty lines",
			lines:      nil,
			taxPct:     "10",
			servicePct: "5",
		},
		{
			name:          "zero rates",
			lines:         []Line{{UnitPrice: 9999, Quantity: 3}},
			taxPct:        "0",
			servicePct:    "0",
			subtotal:      29997,
			tax:           0,
			serviceCharge: 0,
			total:         29997,
		},
		{
			// 333 * 10% = 33.3 rounds down, 333 * 5% = 16.65 rounds up.
			name:          "rounding half-up",
			lines:         []Line{{UnitPrice: 333, Quantity: 1}},
			taxPct:        "10",
			servicePct:    "5",
			subtotal:      333,
			tax:           33,
			serviceCharge: 17,
			total:         383,
		},
		{
			// 50 * 11% = 5.5 must round up to 6, not to even (5).
			name:          "exact half rounds up not to even",
			lines:         []Line{{UnitPrice: 50, Quantity: 1}},
			taxPct:        "11",
			servicePct:    "0",
			subtotal:      50,
			tax:           6,
			serviceCharge: 0,
			total:         56,
		},
		{
			name:          "fractional rate",
			lines:         []Line{{UnitPrice: 10000, Quantity: 1}},
			taxPct:        "7.5",
			servicePct:    "2.5",
			subtotal:      10000,
			tax:           750,
			serviceCharge: 250,
			total:         11000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateTotals(tt.lines, rate(tt.taxPct), rate(tt.servicePct))
			if got.Subtotal != tt.subtotal {
				t.Errorf("subtotal: got %d, want %d", got.Subtotal, tt.subtotal)
			}
			if got.Tax != tt.tax {
				t.Errorf("tax: got %d, want %d", got.Tax, tt.tax)
			}
			if got.ServiceCharge != tt.serviceCharge {
				t.Errorf("service charge: got %d, want %d", got.ServiceCharge, tt.serviceCharge)
			}
			if got.Total != tt.total {
				t.Errorf("total: got %d, want %d", got.Total, tt.total)
			}
			if got.Total != got.Subtotal+got.Tax+got.ServiceCharge {
				t.Errorf("total %d does not equal subtotal+tax+serviceCharge", got.Total)
			}
		})
	}
}

func TestCalculateTotalsDeterministic(t *testing.T) {
	lines := []Line{{UnitPrice: 12345, Quantity: 7}, {UnitPrice: 999, Quantity: 2}}
	first := CalculateTotals(lines, rate("10"), rate("5"))
	for i := 0; i < 100; i++ {
		if got := CalculateTotals(lines, rate("10"), rate("5")); got != first {
			t.Fatalf("run %d: got %+v, want %+v", i, got, first)
		}
	}
}
