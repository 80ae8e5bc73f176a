package order

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/address"
	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/cart"
	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/catalog"
	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/coupon"
)

var (
	ErrNotFound = errors.New("order not found")
)

// Reads is the non-transactional query surface for placed orders.
type Reads interface {
	GetByID(ctx context.Context, id string) (*Order, []Item, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error)
	GetItems(ctx context.Context, orderID string) ([]Item, error)
	SetPaymentRef(ctx context.Context, id, intentID string) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

// WithTx runs fn inside one database transaction. Row locks taken by fn hold
// until commit or rollback; competing commits on the same rows block here.
func (r *PGRepo) WithTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) CartLinesForUpdate(ctx context.Context, userID string) ([]cart.Line, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, user_id, product_id, quantity, shipping_address_id, coupon_code, coupon_applied
		FROM cart_lines
		WHERE user_id=$1
		ORDER BY id
		FOR UPDATE
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []cart.Line
	for rows.Next() {
		var l cart.Line
		if err := rows.Scan(&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.ShippingAddressID, &l.CouponCode, &l.CouponApplied); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (t *pgTx) ProductForUpdate(ctx context.Context, productID string) (*catalog.Product, error) {
	var p catalog.Product
	err := t.tx.QueryRow(ctx, `
		SELECT id, title, description, price::text, stock, out_of_stock, created_at, updated_at
		FROM products WHERE id=$1
		FOR UPDATE
	`, productID).Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Stock, &p.OutOfStock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func (t *pgTx) UpdateProductStock(ctx context.Context, productID string, stock int) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE products
		SET stock=$2, out_of_stock=($2 <= 0), updated_at=NOW()
		WHERE id=$1
	`, productID, stock)
	return err
}

func (t *pgTx) AddressByID(ctx context.Context, id, userID string) (*address.Address, error) {
	var a address.Address
	err := t.tx.QueryRow(ctx, `
		SELECT id, user_id, street, city, state, zip_code, mobile, created_at
		FROM addresses WHERE id=$1 AND user_id=$2
	`, id, userID).Scan(&a.ID, &a.UserID, &a.Street, &a.City, &a.State, &a.ZipCode, &a.Mobile, &a.CreatedAt)
	if err != nil {
		return nil, address.ErrNotFound
	}
	return &a, nil
}

func (t *pgTx) CouponByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	var c coupon.Coupon
	err := t.tx.QueryRow(ctx, `
		SELECT code, discount_percent::text, up_to::text
		FROM coupons WHERE code=$1
	`, code).Scan(&c.Code, &c.DiscountPercent, &c.UpTo)
	if err != nil {
		return nil, coupon.ErrNotFound
	}
	return &c, nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o *Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, ship_street, ship_city, ship_state, ship_zip, ship_mobile,
		                    subtotal, discount, total, paid, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW())
	`, o.ID, o.UserID, o.ShipStreet, o.ShipCity, o.ShipState, o.ShipZip, o.ShipMobile,
		o.Subtotal, o.Discount, o.Total, o.Paid)
	return err
}

func (t *pgTx) InsertItem(ctx context.Context, it *Item) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO order_items (id, order_id, product_id, quantity, total_price)
		VALUES ($1,$2,$3,$4,$5)
	`, it.ID, it.OrderID, it.ProductID, it.Quantity, it.TotalPrice)
	return err
}

func (t *pgTx) DeleteCartLine(ctx context.Context, id string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM cart_lines WHERE id=$1`, id)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Order, []Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var o Order
	if err := r.db.QueryRow(ctx, `
		SELECT id, user_id, ship_street, ship_city, ship_state, ship_zip, ship_mobile,
		       subtotal::text, discount::text, total::text, paid, payment_intent_id, created_at
		FROM orders WHERE id=$1
	`, id).Scan(&o.ID, &o.UserID, &o.ShipStreet, &o.ShipCity, &o.ShipState, &o.ShipZip, &o.ShipMobile,
		&o.Subtotal, &o.Discount, &o.Total, &o.Paid, &o.PaymentIntentID, &o.CreatedAt); err != nil {
		return nil, nil, ErrNotFound
	}
	items, err := r.GetItems(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return &o, items, nil
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, ship_street, ship_city, ship_state, ship_zip, ship_mobile,
		       subtotal::text, discount::text, total::text, paid, payment_intent_id, created_at
		FROM orders WHERE user_id=$1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.ShipStreet, &o.ShipCity, &o.ShipState, &o.ShipZip, &o.ShipMobile,
			&o.Subtotal, &o.Discount, &o.Total, &o.Paid, &o.PaymentIntentID, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PGRepo) GetItems(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, product_id, quantity, total_price::text
		FROM order_items
		WHERE order_id=$1
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.TotalPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// SetPaymentRef stamps the provider intent id onto an order after the
// payment flow confirms. Orders are otherwise immutable.
func (r *PGRepo) SetPaymentRef(ctx context.Context, id, intentID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE orders SET payment_intent_id=$2, paid=TRUE WHERE id=$1
	`, id, intentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
