package category

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"storefront-api/internal/domain"
	"storefront-api/internal/migrate"
)

func TestPostgres_CreateAndList(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool)
	cat, err := repo.Create(ctx, domain.Category{Name: "Electronics", Description: "Gadgets"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if cat.ID == "" || cat.Name != "Electronics" {
		t.Fatalf("unexpected category %+v", cat)
	}

	if _, err := repo.Create(ctx, domain.Category{Name: "Electronics"}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Electronics" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestPostgres_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool)
	first, err := repo.Create(ctx, domain.Category{Name: "Books"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "Novels"
	updated, err := repo.Update(ctx, first.ID, Update{Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != first.ID || updated.Name != "Novels" {
		t.Fatalf("unexpected update %+v", updated)
	}

	if _, err := pool.Exec(ctx, `INSERT INTO products (name, price_cents, stock, category_id) VALUES ('Dune', 999, 1, $1)`, first.ID); err != nil {
		t.Fatalf("insert product: %v", err)
	}
	if err := repo.Delete(ctx, first.ID); !errors.Is(err, domain.ErrInUse) {
		t.Fatalf("expected ErrInUse while referenced, got %v", err)
	}

	if _, err := pool.Exec(ctx, `DELETE FROM products`); err != nil {
		t.Fatalf("delete products: %v", err)
	}
	if err := repo.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, first.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgres_EnsureByNameIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool)
	a, err := repo.EnsureByName(ctx, "Toys")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	b, err := repo.EnsureByName(ctx, "Toys")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if a.ID != b.ID {
		t.Fatalf("expected same id, got %s and %s", a.ID, b.ID)
	}
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	if err := migrate.Apply(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("apply migrations: %v", err)
	}
	return pool
}

func resetTables(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE carts, products, categories, tokens, users RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
