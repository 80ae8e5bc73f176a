package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrLineNotFound    = errors.New("cart line not found")
	ErrProductNotFound = errors.New("product not found")
)

type Repository interface {
	// Add creates a qty=1 line unless one already exists for the product.
	Add(ctx context.Context, userID, productID string) error
	List(ctx context.Context, userID string) ([]LineView, error)
	GetLine(ctx context.Context, id, userID string) (*Line, error)
	SetQuantity(ctx context.Context, id, userID string, qty int) error
	Remove(ctx context.Context, id, userID string) error
	SetShippingAddress(ctx context.Context, userID, addressID string) error
	SetCoupon(ctx context.Context, userID, code string) error
	ClearCoupon(ctx context.Context, userID string) error
	AppliedCoupon(ctx context.Context, userID string) (string, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Add(ctx context.Context, userID, productID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var exists bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE id=$1)`, productID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrProductNotFound
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO cart_lines (id, user_id, product_id, quantity)
		VALUES ($1,$2,$3,1)
		ON CONFLICT (user_id, product_id) DO NOTHING
	`, uuid.NewString(), userID, productID)
	return err
}

func (r *PGRepo) List(ctx context.Context, userID string) ([]LineView, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.product_id, p.title, c.quantity, p.price::text,
		       (p.price * c.quantity)::text, p.out_of_stock
		FROM cart_lines c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LineView
	for rows.Next() {
		var v LineView
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Title, &v.Quantity, &v.UnitPrice, &v.LineTotal, &v.OutOfStock); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *PGRepo) GetLine(ctx context.Context, id, userID string) (*Line, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var l Line
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, product_id, quantity, shipping_address_id, coupon_code, coupon_applied
		FROM cart_lines WHERE id=$1 AND user_id=$2
	`, id, userID).Scan(&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.ShippingAddressID, &l.CouponCode, &l.CouponApplied)
	if err != nil {
		return nil, ErrLineNotFound
	}
	return &l, nil
}

func (r *PGRepo) SetQuantity(ctx context.Context, id, userID string, qty int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE cart_lines SET quantity=$3 WHERE id=$1 AND user_id=$2
	`, id, userID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (r *PGRepo) Remove(ctx context.Context, id, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		DELETE FROM cart_lines WHERE id=$1 AND user_id=$2
	`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

// SetShippingAddress stamps every current line; the order commit reads the
// address off the first line it locks.
func (r *PGRepo) SetShippingAddress(ctx context.Context, userID, addressID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		UPDATE cart_lines SET shipping_address_id=$2 WHERE user_id=$1
	`, userID, addressID)
	return err
}

func (r *PGRepo) SetCoupon(ctx context.Context, userID, code string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		UPDATE cart_lines SET coupon_code=$2, coupon_applied=TRUE WHERE user_id=$1
	`, userID, code)
	return err
}

func (r *PGRepo) ClearCoupon(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		UPDATE cart_lines SET coupon_code=NULL, coupon_applied=FALSE WHERE user_id=$1
	`, userID)
	return err
}

// AppliedCoupon returns the coupon code on the user's cart, or "" when none.
func (r *PGRepo) AppliedCoupon(ctx context.Context, userID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var code *string
	err := r.db.QueryRow(ctx, `
		SELECT coupon_code FROM cart_lines
		WHERE user_id=$1 AND coupon_applied
		ORDER BY id LIMIT 1
	`, userID).Scan(&code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	if code == nil {
		return "", nil
	}
	return *code, nil
}
