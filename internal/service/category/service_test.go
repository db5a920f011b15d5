package category

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront-api/internal/apperr"
	"storefront-api/internal/domain"
	categoryrepo "storefront-api/internal/repository/category"
)

type memoryRepo struct {
	items  map[string]domain.Category
	inUse  map[string]bool
	seq    int
	failed error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[string]domain.Category{}, inUse: map[string]bool{}}
}

func (r *memoryRepo) nameTaken(name, except string) bool {
	for id, c := range r.items {
		if c.Name == name && id != except {
			return true
		}
	}
	return false
}

func (r *memoryRepo) Create(_ context.Context, c domain.Category) (*domain.Category, error) {
	if r.failed != nil {
		return nil, r.failed
	}
	if r.nameTaken(c.Name, "") {
		return nil, domain.ErrAlreadyExists
	}
	r.seq++
	c.ID = "cat-" + string(rune('0'+r.seq))
	r.items[c.ID] = c
	return &c, nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	c, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r *memoryRepo) GetByName(_ context.Context, name string) (*domain.Category, error) {
	for _, c := range r.items {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryRepo) List(_ context.Context) ([]domain.Category, error) {
	if r.failed != nil {
		return nil, r.failed
	}
	out := make([]domain.Category, 0, len(r.items))
	for _, c := range r.items {
		out = append(out, c)
	}
	return out, nil
}

func (r *memoryRepo) Update(_ context.Context, id string, in categoryrepo.Update) (*domain.Category, error) {
	c, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if in.Name != nil {
		if r.nameTaken(*in.Name, id) {
			return nil, domain.ErrAlreadyExists
		}
		c.Name = *in.Name
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	r.items[id] = c
	return &c, nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return domain.ErrNotFound
	}
	if r.inUse[id] {
		return domain.ErrInUse
	}
	delete(r.items, id)
	return nil
}

func (r *memoryRepo) EnsureByName(ctx context.Context, name string) (*domain.Category, error) {
	if c, err := r.GetByName(ctx, name); err == nil {
		return c, nil
	}
	return r.Create(ctx, domain.Category{Name: name})
}

func strPtr(s string) *string { return &s }

func TestCreate(t *testing.T) {
	svc := New(newMemoryRepo())
	ctx := context.Background()

	c, err := svc.Create(ctx, Input{Name: strPtr("  Phones "), Description: strPtr("mobile")})
	require.NoError(t, err)
	assert.Equal(t, "Phones", c.Name)
	assert.Equal(t, "mobile", c.Description)

	_, err = svc.Create(ctx, Input{Name: strPtr("Phones")})
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))

	_, err = svc.Create(ctx, Input{Name: strPtr("   ")})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestUpdate(t *testing.T) {
	svc := New(newMemoryRepo())
	ctx := context.Background()
	phones, err := svc.Create(ctx, Input{Name: strPtr("Phones")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Input{Name: strPtr("Laptops")})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, phones.ID, Input{Description: strPtr("smart")})
	require.NoError(t, err)
	assert.Equal(t, "Phones", updated.Name)
	assert.Equal(t, "smart", updated.Description)

	_, err = svc.Update(ctx, phones.ID, Input{Name: strPtr("Laptops")})
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))

	_, err = svc.Update(ctx, phones.ID, Input{})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = svc.Update(ctx, "missing", Input{Name: strPtr("X")})
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestDelete(t *testing.T) {
	repo := newMemoryRepo()
	svc := New(repo)
	ctx := context.Background()
	c, err := svc.Create(ctx, Input{Name: strPtr("Phones")})
	require.NoError(t, err)

	repo.inUse[c.ID] = true
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(svc.Delete(ctx, c.ID)))

	repo.inUse[c.ID] = false
	require.NoError(t, svc.Delete(ctx, c.ID))

	_, err = svc.Get(ctx, c.ID)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(svc.Delete(ctx, c.ID)))
}

func TestList_RepositoryFailureIsInternal(t *testing.T) {
	repo := newMemoryRepo()
	repo.failed = errors.New("db down")
	svc := New(repo)

	_, err := svc.List(context.Background())
	assert.Equal(t, apperr.CodeInternal, apperr.CodeOf(err))
}
