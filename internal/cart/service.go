package cart

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// MaxLineQuantity caps how many units of one product a cart line may hold.
const MaxLineQuantity = 50

const (
	ActionIncrement = "increment"
	ActionDecrement = "decrement"
	ActionRemove    = "remove"
)

var ErrUnsupportedAction = errors.New("unsupported action")

// Service orchestrates cart mutations. Concurrent mutations of the same line
// from two requests race last-write-wins; that is accepted for a single
// shopper's own session.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Add(ctx context.Context, userID, productID string) (*State, error) {
	if err := s.repo.Add(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.State(ctx, userID)
}

// Adjust applies one quantity action to a line and returns the updated cart.
// Increments are capped at MaxLineQuantity and decrements floored at one
// unit; out-of-range actions are no-ops rather than errors.
func (s *Service) Adjust(ctx context.Context, userID, lineID, action string) (*State, error) {
	line, err := s.repo.GetLine(ctx, lineID, userID)
	if err != nil {
		return nil, err
	}

	switch action {
	case ActionIncrement:
		if line.Quantity < MaxLineQuantity {
			if err := s.repo.SetQuantity(ctx, lineID, userID, line.Quantity+1); err != nil {
				return nil, err
			}
		}
	case ActionDecrement:
		if line.Quantity > 1 {
			if err := s.repo.SetQuantity(ctx, lineID, userID, line.Quantity-1); err != nil {
				return nil, err
			}
		}
	case ActionRemove:
		if err := s.repo.Remove(ctx, lineID, userID); err != nil {
			return nil, err
		}
	default:
		return nil, ErrUnsupportedAction
	}

	return s.State(ctx, userID)
}

func (s *Service) SetShippingAddress(ctx context.Context, userID, addressID string) error {
	return s.repo.SetShippingAddress(ctx, userID, addressID)
}

// State assembles the cart lines and their decimal subtotal.
func (s *Service) State(ctx context.Context, userID string) (*State, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	subtotal := decimal.Zero
	for _, it := range items {
		lt, err := decimal.NewFromString(it.LineTotal)
		if err != nil {
			return nil, err
		}
		subtotal = subtotal.Add(lt)
	}
	coupon, err := s.repo.AppliedCoupon(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &State{
		Items:    items,
		Subtotal: subtotal.StringFixed(2),
		Coupon:   coupon,
	}, nil
}

// Subtotal is the decimal sum of unit price times quantity over all lines.
func (s *Service) Subtotal(ctx context.Context, userID string) (decimal.Decimal, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	subtotal := decimal.Zero
	for _, it := range items {
		lt, err := decimal.NewFromString(it.LineTotal)
		if err != nil {
			return decimal.Zero, err
		}
		subtotal = subtotal.Add(lt)
	}
	return subtotal, nil
}
