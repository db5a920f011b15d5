package seed_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"storefront-api/internal/migrate"
	"storefront-api/internal/seed"
)

func TestApplyIsIdempotent_Integration(t *testing.T) {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, migrate.Apply(ctx, pool))

	_, err = pool.Exec(ctx, `TRUNCATE carts, products, categories, tokens, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	admin := seed.Admin{Email: "Admin@Example.com", Password: "first-secret"}
	require.NoError(t, seed.Apply(ctx, pool, admin))

	admin.Password = "second-secret"
	require.NoError(t, seed.Apply(ctx, pool, admin))

	var products, categories int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&products))
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM categories`).Scan(&categories))
	require.Equal(t, 3, products)
	require.Equal(t, 2, categories)

	var (
		hash    string
		isAdmin bool
	)
	require.NoError(t, pool.QueryRow(ctx, `SELECT password_hash, is_admin FROM users WHERE email = $1`, "admin@example.com").Scan(&hash, &isAdmin))
	require.True(t, isAdmin)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("second-secret")))
}
