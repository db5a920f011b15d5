package product

import (
	"context"

	"storefront-api/internal/domain"
)

// Update carries optional fields; nil leaves a column unchanged.
type Update struct {
	Name        *string
	Description *string
	PriceCents  *int64
	Stock       *int
	CategoryID  *string
	Images      []string
}

type Repository interface {
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, categoryID string) ([]domain.Product, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
	Update(ctx context.Context, id string, in Update) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	// Upsert inserts or replaces a product keyed by name.
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}
