package category

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-api/internal/apperr"
	"storefront-api/internal/domain"
	"storefront-api/internal/repository/category"
)

type Service struct {
	repo category.Repository
}

func New(repo category.Repository) *Service {
	return &Service{repo: repo}
}

type Input struct {
	Name        *string
	Description *string
}

func (s *Service) List(ctx context.Context) ([]domain.Category, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list categories: %w", err))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapErr(err, "get category")
	}
	return c, nil
}

func (s *Service) Create(ctx context.Context, in Input) (*domain.Category, error) {
	name := strings.TrimSpace(deref(in.Name))
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	c, err := s.repo.Create(ctx, domain.Category{
		Name:        name,
		Description: strings.TrimSpace(deref(in.Description)),
	})
	if err != nil {
		return nil, mapErr(err, "create category")
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*domain.Category, error) {
	if in.Name == nil && in.Description == nil {
		return nil, apperr.Validation("no fields to update")
	}
	upd := category.Update{Description: in.Description}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		upd.Name = &name
	}
	c, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		return nil, mapErr(err, "update category")
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapErr(err, "delete category")
	}
	return nil
}

func mapErr(err error, op string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return apperr.NotFound("category not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		return apperr.Conflict("category name already exists")
	case errors.Is(err, domain.ErrInUse):
		return apperr.Conflict("category still has products")
	default:
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
