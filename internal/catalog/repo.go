// Package catalog provides the repository interface and PostgreSQL
// implementation for browsing and managing products.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("product not found")
)

type Query struct {
	Q      string
	Limit  int
	Offset int
}

type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, q Query) ([]Product, error)
	SetStock(ctx context.Context, id string, stock int) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Create(ctx context.Context, p *Product) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p.OutOfStock = p.Stock <= 0
	_, err := r.db.Exec(ctx, `
		INSERT INTO products (id, title, description, price, stock, out_of_stock, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
	`, p.ID, p.Title, p.Description, p.Price, p.Stock, p.OutOfStock)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var p Product
	err := r.db.QueryRow(ctx, `
		SELECT id, title, description, price::text, stock, out_of_stock, created_at, updated_at
		FROM products WHERE id=$1
	`, id).Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Stock, &p.OutOfStock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *PGRepo) List(ctx context.Context, q Query) ([]Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	search := strings.TrimSpace(q.Q)

	rows, err := r.db.Query(ctx, `
		SELECT id, title, description, price::text, stock, out_of_stock, created_at, updated_at
		FROM products
		WHERE ($1 = '' OR title ILIKE '%'||$1||'%' OR description ILIKE '%'||$1||'%')
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Stock, &p.OutOfStock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetStock overwrites the stock count and recomputes the out-of-stock flag in
// the same statement so the two can never drift.
func (r *PGRepo) SetStock(ctx context.Context, id string, stock int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE products
		SET stock = $2, out_of_stock = ($2 <= 0), updated_at = NOW()
		WHERE id = $1
	`, id, stock)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
