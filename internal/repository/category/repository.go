package category

import (
	"context"

	"storefront-api/internal/domain"
)

// Update carries optional fields; nil leaves a column unchanged.
type Update struct {
	Name        *string
	Description *string
}

type Repository interface {
	Create(ctx context.Context, c domain.Category) (*domain.Category, error)
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	GetByName(ctx context.Context, name string) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
	Update(ctx context.Context, id string, in Update) (*domain.Category, error)
	Delete(ctx context.Context, id string) error
	// EnsureByName returns the category with name, creating it when missing.
	EnsureByName(ctx context.Context, name string) (*domain.Category, error)
}
