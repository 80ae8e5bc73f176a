package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/address"
	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/cart"
	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/catalog"
	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/coupon"
)

// ValidationError is a user-facing precondition failure: the transaction is
// rolled back and the message is safe to show the shopper.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a user-facing validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Tx is the row-locking storage surface one commit runs against. Lock
// ordering: cart lines first (stable, by id), then products in the order the
// lines reference them. The scope is a single user's cart, so cross-user
// commits can only contend on product rows, where they serialize.
type Tx interface {
	CartLinesForUpdate(ctx context.Context, userID string) ([]cart.Line, error)
	ProductForUpdate(ctx context.Context, productID string) (*catalog.Product, error)
	UpdateProductStock(ctx context.Context, productID string, stock int) error
	AddressByID(ctx context.Context, id, userID string) (*address.Address, error)
	CouponByCode(ctx context.Context, code string) (*coupon.Coupon, error)
	InsertOrder(ctx context.Context, o *Order) error
	InsertItem(ctx context.Context, it *Item) error
	DeleteCartLine(ctx context.Context, id string) error
}

// Store runs fn inside one atomic transaction; any error rolls back every
// write fn made.
type Store interface {
	WithTx(ctx context.Context, fn func(Tx) error) error
}

// Service converts a user's mutable cart into an immutable, stock-decrementing
// order. No retries: the first failure aborts the whole operation and the
// caller surfaces the message.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Commit places the order for userID's cart. On success the cart is empty,
// stock is decremented and one order plus its items exist; on any failure
// nothing is persisted.
func (s *Service) Commit(ctx context.Context, userID string) (*Order, []Item, error) {
	var (
		ord   *Order
		items []Item
	)

	err := s.store.WithTx(ctx, func(tx Tx) error {
		lines, err := tx.CartLinesForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return validationf("Your cart is empty.")
		}

		first := lines[0]
		if first.ShippingAddressID == nil {
			return validationf("Please select a shipping address before placing an order.")
		}
		addr, err := tx.AddressByID(ctx, *first.ShippingAddressID, userID)
		if err != nil {
			return validationf("Please select a shipping address before placing an order.")
		}

		ord = &Order{
			ID:         uuid.NewString(),
			UserID:     userID,
			ShipStreet: addr.Street,
			ShipCity:   addr.City,
			ShipState:  addr.State,
			ShipZip:    addr.ZipCode,
			ShipMobile: addr.Mobile,
			Paid:       true,
		}

		subtotal := decimal.Zero
		items = items[:0]
		for _, ln := range lines {
			p, err := tx.ProductForUpdate(ctx, ln.ProductID)
			if err != nil {
				return err
			}
			// Re-check under the row lock: a competing commit may have
			// drained the stock since the shopper last saw it.
			if p.OutOfStock || p.Stock < ln.Quantity {
				return validationf("%s is out of stock.", p.Title)
			}
			if err := tx.UpdateProductStock(ctx, p.ID, p.Stock-ln.Quantity); err != nil {
				return err
			}

			price, err := decimal.NewFromString(p.Price)
			if err != nil {
				return err
			}
			lineTotal := price.Mul(decimal.NewFromInt(int64(ln.Quantity)))
			subtotal = subtotal.Add(lineTotal)

			items = append(items, Item{
				ID:         uuid.NewString(),
				OrderID:    ord.ID,
				ProductID:  ln.ProductID,
				Quantity:   ln.Quantity,
				TotalPrice: lineTotal.StringFixed(2),
			})
		}

		// Coupon state on the cart is advisory; the discount is recomputed
		// here under the same transaction. Over-cap or vanished coupons
		// contribute nothing instead of failing the order.
		discount := decimal.Zero
		if first.CouponCode != nil && *first.CouponCode != "" {
			cpn, err := tx.CouponByCode(ctx, *first.CouponCode)
			switch {
			case err == nil:
				d, derr := cpn.Discount(subtotal)
				if derr != nil {
					return derr
				}
				cap, cerr := cpn.Cap()
				if cerr != nil {
					return cerr
				}
				if d.LessThanOrEqual(cap) {
					discount = d
				}
			case errors.Is(err, coupon.ErrNotFound):
				// stale code, ignore
			default:
				return err
			}
		}

		ord.Subtotal = subtotal.StringFixed(2)
		ord.Discount = discount.StringFixed(2)
		ord.Total = subtotal.Sub(discount).StringFixed(2)

		if err := tx.InsertOrder(ctx, ord); err != nil {
			return err
		}
		for i := range items {
			if err := tx.InsertItem(ctx, &items[i]); err != nil {
				return err
			}
		}
		// Cart lines are removed iff they were folded into an order item
		// within this same transaction.
		for _, ln := range lines {
			if err := tx.DeleteCartLine(ctx, ln.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return ord, items, nil
}
