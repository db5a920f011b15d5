package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront-api/internal/domain"
	"storefront-api/internal/logger"
)

const selectProduct = `
SELECT p.id::text, p.name, p.description, p.price_cents, p.stock, p.category_id::text, c.name, p.images, p.created_at, p.updated_at
FROM products p
JOIN categories c ON c.id = p.category_id
`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

func NewPostgres(pool *pgxpool.Pool, log *logger.Logger) Repository {
	if log == nil {
		log = logger.Nop()
	}
	return &postgresRepo{pool: pool, logger: log}
}

func (r *postgresRepo) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	images, err := marshalImages(p.Images)
	if err != nil {
		return nil, err
	}
	const q = `
INSERT INTO products (name, description, price_cents, stock, category_id, images)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id::text
`
	var id string
	if err := r.pool.QueryRow(ctx, q, p.Name, p.Description, p.PriceCents, p.Stock, p.CategoryID, images).Scan(&id); err != nil {
		return nil, r.mapWriteErr(ctx, "create", err)
	}
	return r.GetByID(ctx, id)
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, selectProduct+`WHERE p.id = $1`, id))
}

func (r *postgresRepo) List(ctx context.Context, categoryID string) ([]domain.Product, error) {
	if categoryID == "" {
		return r.query(ctx, selectProduct+`ORDER BY p.created_at DESC`)
	}
	return r.query(ctx, selectProduct+`WHERE p.category_id = $1 ORDER BY p.created_at DESC`, categoryID)
}

func (r *postgresRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}
	return r.query(ctx, selectProduct+`WHERE p.id = ANY($1::uuid[])`, ids)
}

func (r *postgresRepo) Update(ctx context.Context, id string, in Update) (*domain.Product, error) {
	var images []byte
	if in.Images != nil {
		var err error
		if images, err = marshalImages(in.Images); err != nil {
			return nil, err
		}
	}
	const q = `
UPDATE products
SET name = COALESCE($2, name),
    description = COALESCE($3, description),
    price_cents = COALESCE($4, price_cents),
    stock = COALESCE($5, stock),
    category_id = COALESCE($6::uuid, category_id),
    images = COALESCE($7::jsonb, images),
    updated_at = now()
WHERE id = $1
`
	cmd, err := r.pool.Exec(ctx, q, id, in.Name, in.Description, in.PriceCents, in.Stock, in.CategoryID, images)
	if err != nil {
		return nil, r.mapWriteErr(ctx, "update", err)
	}
	if cmd.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	images, err := marshalImages(p.Images)
	if err != nil {
		return nil, err
	}
	const q = `
INSERT INTO products (name, description, price_cents, stock, category_id, images)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (name) DO UPDATE
SET description = EXCLUDED.description,
    price_cents = EXCLUDED.price_cents,
    stock = EXCLUDED.stock,
    category_id = EXCLUDED.category_id,
    images = CASE WHEN EXCLUDED.images = '[]'::jsonb THEN products.images ELSE EXCLUDED.images END,
    updated_at = now()
RETURNING id::text
`
	var id string
	if err := r.pool.QueryRow(ctx, q, p.Name, p.Description, p.PriceCents, p.Stock, p.CategoryID, images).Scan(&id); err != nil {
		return nil, r.mapWriteErr(ctx, "upsert", err)
	}
	return r.GetByID(ctx, id)
}

func (r *postgresRepo) query(ctx context.Context, q string, args ...any) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Error(ctx, "product repo: query failed", err)
		return nil, err
	}
	defer rows.Close()

	result := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) mapWriteErr(ctx context.Context, op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return domain.ErrAlreadyExists
		case "23503":
			// category_id does not reference an existing category
			return domain.ErrNotFound
		}
	}
	r.logger.Error(ctx, fmt.Sprintf("product repo: %s failed", op), err)
	return err
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p      domain.Product
		images []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.CategoryID, &p.CategoryName, &images, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.Images = []string{}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return nil, fmt.Errorf("decode images: %w", err)
		}
	}
	return &p, nil
}

func marshalImages(images []string) ([]byte, error) {
	if images == nil {
		images = []string{}
	}
	return json.Marshal(images)
}
