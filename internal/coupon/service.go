package coupon

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/cart"
)

var (
	ErrInvalidCode = errors.New("Invalid coupon code.")
	ErrCapExceeded = errors.New("Coupon amount exceeds allowed discount limit.")
	ErrEmptyCart   = errors.New("No items found in cart to apply coupon.")
)

// Service links coupons to cart lines. The link is advisory: the discount is
// recomputed and re-validated inside the order-commit transaction, so a stale
// flag can never change what the shopper is charged.
type Service struct {
	coupons Repository
	carts   *cart.Service
	lines   cart.Repository
}

func NewService(coupons Repository, carts *cart.Service, lines cart.Repository) *Service {
	return &Service{coupons: coupons, carts: carts, lines: lines}
}

// Apply validates the code against the current subtotal and, when the
// computed discount fits under the cap, stamps the coupon onto every cart
// line. A rejected coupon leaves the lines untouched.
func (s *Service) Apply(ctx context.Context, userID, code string) (decimal.Decimal, error) {
	c, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		return decimal.Zero, ErrInvalidCode
	}

	subtotal, err := s.carts.Subtotal(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if subtotal.IsZero() {
		return decimal.Zero, ErrEmptyCart
	}

	discount, err := c.Discount(subtotal)
	if err != nil {
		return decimal.Zero, err
	}
	cap, err := c.Cap()
	if err != nil {
		return decimal.Zero, err
	}
	if discount.GreaterThan(cap) {
		return decimal.Zero, ErrCapExceeded
	}

	if err := s.lines.SetCoupon(ctx, userID, c.Code); err != nil {
		return decimal.Zero, err
	}
	return discount, nil
}

func (s *Service) Remove(ctx context.Context, userID string) error {
	return s.lines.ClearCoupon(ctx, userID)
}
