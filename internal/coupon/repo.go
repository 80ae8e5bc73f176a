package coupon

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("coupon not found")
)

type Repository interface {
	GetByCode(ctx context.Context, code string) (*Coupon, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) GetByCode(ctx context.Context, code string) (*Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c Coupon
	err := r.db.QueryRow(ctx, `
		SELECT code, discount_percent::text, up_to::text
		FROM coupons WHERE code=$1
	`, code).Scan(&c.Code, &c.DiscountPercent, &c.UpTo)
	if err != nil {
		return nil, ErrNotFound
	}
	return &c, nil
}
