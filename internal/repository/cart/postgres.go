package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront-api/internal/domain"
)

const cartColumns = `id::text, user_id::text, items, total_cents, version, created_at, updated_at`

// storedItem is the JSONB shape of a line; product names are resolved on read.
type storedItem struct {
	ProductID  string `json:"productId"`
	Quantity   int    `json:"quantity"`
	TotalCents int64  `json:"totalCents"`
}

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Create(ctx context.Context, c domain.Cart) (*domain.Cart, error) {
	items, err := marshalItems(c.Items)
	if err != nil {
		return nil, err
	}
	const q = `
INSERT INTO carts (user_id, items, total_cents)
VALUES ($1, $2, $3)
RETURNING ` + cartColumns
	return scanCart(r.pool.QueryRow(ctx, q, c.UserID, items, c.TotalCents))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Cart, error) {
	return scanCart(r.pool.QueryRow(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1`, id))
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Cart, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+cartColumns+` FROM carts WHERE user_id = $1 ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Cart{}
	for rows.Next() {
		c, err := scanCart(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) Update(ctx context.Context, c domain.Cart, expectedVersion int) (*domain.Cart, error) {
	items, err := marshalItems(c.Items)
	if err != nil {
		return nil, err
	}
	const q = `
UPDATE carts
SET items = $3,
    total_cents = $4,
    version = version + 1,
    updated_at = now()
WHERE id = $1 AND version = $2
RETURNING ` + cartColumns
	out, err := scanCart(r.pool.QueryRow(ctx, q, c.ID, expectedVersion, items, c.TotalCents))
	if !errors.Is(err, domain.ErrNotFound) {
		return out, err
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM carts WHERE id = $1)`, c.ID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrVersionConflict
	}
	return nil, domain.ErrNotFound
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanCart(row pgx.Row) (*domain.Cart, error) {
	var (
		c     domain.Cart
		items []byte
	)
	if err := row.Scan(&c.ID, &c.UserID, &items, &c.TotalCents, &c.Version, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var stored []storedItem
	if len(items) > 0 {
		if err := json.Unmarshal(items, &stored); err != nil {
			return nil, fmt.Errorf("decode cart items: %w", err)
		}
	}
	c.Items = make([]domain.CartItem, 0, len(stored))
	for _, it := range stored {
		c.Items = append(c.Items, domain.CartItem{ProductID: it.ProductID, Quantity: it.Quantity, TotalCents: it.TotalCents})
	}
	return &c, nil
}

func marshalItems(items []domain.CartItem) ([]byte, error) {
	stored := make([]storedItem, 0, len(items))
	for _, it := range items {
		stored = append(stored, storedItem{ProductID: it.ProductID, Quantity: it.Quantity, TotalCents: it.TotalCents})
	}
	return json.Marshal(stored)
}
