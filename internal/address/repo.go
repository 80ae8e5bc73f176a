package address

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("address not found")
)

type Repository interface {
	Create(ctx context.Context, a *Address) error
	GetByID(ctx context.Context, id, userID string) (*Address, error)
	ListByUser(ctx context.Context, userID string) ([]Address, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Create(ctx context.Context, a *Address) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO addresses (id, user_id, street, city, state, zip_code, mobile, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
	`, a.ID, a.UserID, a.Street, a.City, a.State, a.ZipCode, a.Mobile)
	return err
}

// GetByID scopes by user so one shopper can never select another's address.
func (r *PGRepo) GetByID(ctx context.Context, id, userID string) (*Address, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var a Address
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, street, city, state, zip_code, mobile, created_at
		FROM addresses WHERE id=$1 AND user_id=$2
	`, id, userID).Scan(&a.ID, &a.UserID, &a.Street, &a.City, &a.State, &a.ZipCode, &a.Mobile, &a.CreatedAt)
	if err != nil {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Address, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, street, city, state, zip_code, mobile, created_at
		FROM addresses WHERE user_id=$1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Address
	for rows.Next() {
		var a Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Street, &a.City, &a.State, &a.ZipCode, &a.Mobile, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
