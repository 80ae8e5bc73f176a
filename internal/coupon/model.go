package coupon

import "github.com/shopspring/decimal"

// Coupon applies a percentage discount capped at an absolute amount (UpTo),
// regardless of how large the percentage would make it.
type Coupon struct {
	Code string `json:"code"`
	// NUMERIC columns carried as strings, decimal for arithmetic
	DiscountPercent string `json:"discount_percent"`
	UpTo            string `json:"up_to"`
}

// Discount computes subtotal × percent / 100.
func (c *Coupon) Discount(subtotal decimal.Decimal) (decimal.Decimal, error) {
	pct, err := decimal.NewFromString(c.DiscountPercent)
	if err != nil {
		return decimal.Zero, err
	}
	return subtotal.Mul(pct).Div(decimal.NewFromInt(100)), nil
}

// Cap returns the maximum absolute discount this coupon may grant.
func (c *Coupon) Cap() (decimal.Decimal, error) {
	return decimal.NewFromString(c.UpTo)
}

type ApplyRequest struct {
	Code string `json:"code"`
}
