package cart

import (
	"context"

	"storefront-api/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, c domain.Cart) (*domain.Cart, error)
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Cart, error)
	// Update persists items and total only if the stored version equals
	// expectedVersion, returning domain.ErrVersionConflict otherwise.
	Update(ctx context.Context, c domain.Cart, expectedVersion int) (*domain.Cart, error)
	Delete(ctx context.Context, id string) error
}
