package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type productSeed struct {
	Category    string
	Name        string
	Description string
	PriceCents  int64
	Stock       int
}

// Admin is the account created or refreshed by Apply. An empty Email skips it.
type Admin struct {
	Email    string
	Password string
}

var demoCategories = map[string]string{
	"Apparel": "Shirts and other wearables",
	"Kitchen": "Mugs, plates and utensils",
}

var demoProducts = []productSeed{
	{
		Category:    "Apparel",
		Name:        "Demo T-Shirt",
		Description: "Soft cotton tee for demo purposes",
		PriceCents:  1999,
		Stock:       50,
	},
	{
		Category:    "Kitchen",
		Name:        "Demo Mug",
		Description: "Ceramic mug with demo logo",
		PriceCents:  1299,
		Stock:       120,
	},
	{
		Category:    "Kitchen",
		Name:        "Demo Plate",
		Description: "Stoneware dinner plate",
		PriceCents:  1750,
		Stock:       35,
	},
}

// Apply inserts basic seed data for manual testing. It is idempotent via ON CONFLICT.
func Apply(ctx context.Context, pool *pgxpool.Pool, admin Admin) error {
	categoryIDs := make(map[string]string, len(demoCategories))
	for name, desc := range demoCategories {
		id, err := ensureCategory(ctx, pool, name, desc)
		if err != nil {
			return fmt.Errorf("ensure category %s: %w", name, err)
		}
		categoryIDs[name] = id
	}

	for _, p := range demoProducts {
		if err := upsertProduct(ctx, pool, categoryIDs[p.Category], p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.Name, err)
		}
	}

	if strings.TrimSpace(admin.Email) != "" {
		if err := upsertAdmin(ctx, pool, admin); err != nil {
			return fmt.Errorf("upsert admin: %w", err)
		}
	}
	return nil
}

func ensureCategory(ctx context.Context, pool *pgxpool.Pool, name, description string) (string, error) {
	const q = `
INSERT INTO categories (name, description)
VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description, updated_at = now()
RETURNING id::text
`
	var id string
	if err := pool.QueryRow(ctx, q, name, description).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func upsertProduct(ctx context.Context, pool *pgxpool.Pool, categoryID string, p productSeed) error {
	const q = `
INSERT INTO products (name, description, price_cents, stock, category_id, images)
VALUES ($1, $2, $3, $4, $5, '[]'::jsonb)
ON CONFLICT (name) DO UPDATE
SET description = EXCLUDED.description,
    price_cents = EXCLUDED.price_cents,
    stock = EXCLUDED.stock,
    category_id = EXCLUDED.category_id,
    updated_at = now()
`
	_, err := pool.Exec(ctx, q, p.Name, p.Description, p.PriceCents, p.Stock, categoryID)
	return err
}

func upsertAdmin(ctx context.Context, pool *pgxpool.Pool, admin Admin) error {
	if admin.Password == "" {
		return errors.New("admin password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO users (email, password_hash, first_name, is_admin)
VALUES ($1, $2, 'Admin', true)
ON CONFLICT (email) DO UPDATE
SET password_hash = EXCLUDED.password_hash,
    is_admin = true,
    updated_at = now()
`
	_, err = pool.Exec(ctx, q, strings.ToLower(strings.TrimSpace(admin.Email)), string(hash))
	return err
}
