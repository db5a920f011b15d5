package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
	"storefront-api/internal/apperr"
	"storefront-api/internal/cache"
	"storefront-api/internal/domain"
	"storefront-api/internal/logger"
	"storefront-api/internal/metrics"
)

type cartRepo interface {
	Create(ctx context.Context, c domain.Cart) (*domain.Cart, error)
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Cart, error)
	Update(ctx context.Context, c domain.Cart, expectedVersion int) (*domain.Cart, error)
	Delete(ctx context.Context, id string) error
}

type productCatalog interface {
	Catalog
	ListByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
}

// Service implements the cart lifecycle for authenticated owners.
type Service struct {
	repo    cartRepo
	catalog productCatalog
	cache   cache.CartCache
	metrics *metrics.Metrics
	logger  *logger.Logger
	sfg     singleflight.Group
}

func New(repo cartRepo, catalog productCatalog, c cache.CartCache, m *metrics.Metrics, log *logger.Logger) *Service {
	if c == nil {
		c = cache.NopCartCache{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, catalog: catalog, cache: c, metrics: m, logger: log}
}

// AddItemsInput adds items to an existing cart. When Version is set the
// request only applies to that cart version.
type AddItemsInput struct {
	Items   []RequestedItem
	Version *int
}

func (s *Service) Create(ctx context.Context, userID string, items []RequestedItem) (out *domain.Cart, err error) {
	defer func() { s.record("create", err) }()

	if userID == "" {
		return nil, apperr.Unauthorized("authentication required")
	}
	if err := validateRequested(items); err != nil {
		return nil, err
	}
	processed, _, err := ProcessItems(ctx, s.catalog, items)
	if err != nil {
		return nil, err
	}
	merged := MergeItems(nil, processed)
	total, err := checkLines(merged)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, domain.Cart{
		UserID:     userID,
		Items:      merged,
		TotalCents: total,
	})
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("create cart: %w", err))
	}
	s.invalidate(ctx, userID)
	s.logChange(ctx, "cart.created", created)
	return s.withNames(ctx, created), nil
}

// ListForUser returns the owner's carts, served from cache when possible.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]domain.Cart, error) {
	if userID == "" {
		return nil, apperr.Unauthorized("authentication required")
	}
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		carts, err := s.cache.Get(ctx, userID)
		if err == nil {
			s.metrics.CacheLookup("hit")
			return carts, nil
		}
		if errors.Is(err, cache.ErrCacheMiss) {
			s.metrics.CacheLookup("miss")
		} else {
			s.metrics.CacheLookup("error")
			s.logger.Error(ctx, "cart cache get failed", err)
		}

		gen, genErr := s.cache.Generation(ctx, userID)
		if genErr != nil {
			s.logger.Error(ctx, "cart cache generation failed", genErr)
		}

		carts, err = s.repo.ListByUser(ctx, userID)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("list carts: %w", err))
		}
		s.populateNames(ctx, carts)
		if genErr != nil {
			return carts, nil
		}
		switch err := s.cache.Set(ctx, userID, gen, carts); {
		case err == nil:
		case errors.Is(err, cache.ErrStale):
			s.logger.Debug(ctx, "cart list changed while loading; not cached")
		default:
			s.logger.Error(ctx, "cart cache set failed", err)
		}
		return carts, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Cart), nil
}

func (s *Service) Get(ctx context.Context, userID, cartID string) (*domain.Cart, error) {
	cart, err := s.loadOwned(ctx, userID, cartID)
	if err != nil {
		return nil, err
	}
	return s.withNames(ctx, cart), nil
}

// AddItems merges the requested items into an existing cart.
func (s *Service) AddItems(ctx context.Context, userID, cartID string, in AddItemsInput) (out *domain.Cart, err error) {
	defer func() { s.record("add_items", err) }()

	if err := validateRequested(in.Items); err != nil {
		return nil, err
	}
	cart, err := s.loadOwned(ctx, userID, cartID)
	if err != nil {
		return nil, err
	}
	if in.Version != nil && *in.Version != cart.Version {
		return nil, versionConflict(cart.ID)
	}
	processed, _, err := ProcessItems(ctx, s.catalog, in.Items)
	if err != nil {
		return nil, err
	}
	expected := cart.Version
	cart.Items = MergeItems(cart.Items, processed)
	if cart.TotalCents, err = checkLines(cart.Items); err != nil {
		return nil, err
	}
	return s.persist(ctx, "cart.items_added", *cart, expected)
}

func (s *Service) RemoveItem(ctx context.Context, userID, cartID, productID string) (out *domain.Cart, err error) {
	defer func() { s.record("remove_item", err) }()

	cart, err := s.loadOwned(ctx, userID, cartID)
	if err != nil {
		return nil, err
	}
	items, found := withoutItem(cart.Items, productID)
	if !found {
		return nil, apperr.NotFound("product not found in cart")
	}
	expected := cart.Version
	cart.Items = items
	cart.TotalCents = CalculateTotalAmount(items)
	return s.persist(ctx, "cart.item_removed", *cart, expected)
}

func (s *Service) Clear(ctx context.Context, userID, cartID string) (out *domain.Cart, err error) {
	defer func() { s.record("clear", err) }()

	cart, err := s.loadOwned(ctx, userID, cartID)
	if err != nil {
		return nil, err
	}
	expected := cart.Version
	cart.Items = []domain.CartItem{}
	cart.TotalCents = 0
	return s.persist(ctx, "cart.cleared", *cart, expected)
}

func (s *Service) Delete(ctx context.Context, userID, cartID string) (err error) {
	defer func() { s.record("delete", err) }()

	cart, err := s.loadOwned(ctx, userID, cartID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, cart.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperr.NotFound("cart not found")
		}
		return apperr.Internal(fmt.Errorf("delete cart: %w", err))
	}
	s.invalidate(ctx, userID)
	s.logChange(ctx, "cart.deleted", cart)
	return nil
}

func (s *Service) loadOwned(ctx context.Context, userID, cartID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperr.Unauthorized("authentication required")
	}
	cart, err := s.repo.GetByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperr.NotFound("cart not found")
		}
		return nil, apperr.Internal(fmt.Errorf("load cart: %w", err))
	}
	if !cart.OwnedBy(userID) {
		return nil, apperr.Forbidden("cart belongs to another user")
	}
	return cart, nil
}

func (s *Service) persist(ctx context.Context, event string, cart domain.Cart, expectedVersion int) (*domain.Cart, error) {
	updated, err := s.repo.Update(ctx, cart, expectedVersion)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrVersionConflict):
			return nil, versionConflict(cart.ID)
		case errors.Is(err, domain.ErrNotFound):
			return nil, apperr.NotFound("cart not found")
		default:
			return nil, apperr.Internal(fmt.Errorf("update cart: %w", err))
		}
	}
	s.invalidate(ctx, cart.UserID)
	s.logChange(ctx, event, updated)
	return s.withNames(ctx, updated), nil
}

func (s *Service) withNames(ctx context.Context, cart *domain.Cart) *domain.Cart {
	carts := []domain.Cart{*cart}
	s.populateNames(ctx, carts)
	return &carts[0]
}

// populateNames fills ProductName on every line. Lookup failures leave names empty.
func (s *Service) populateNames(ctx context.Context, carts []domain.Cart) {
	seen := map[string]struct{}{}
	var ids []string
	for _, c := range carts {
		for _, it := range c.Items {
			if _, ok := seen[it.ProductID]; !ok {
				seen[it.ProductID] = struct{}{}
				ids = append(ids, it.ProductID)
			}
		}
	}
	if len(ids) == 0 {
		return
	}
	products, err := s.catalog.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Error(ctx, "cart product names lookup failed", err)
		return
	}
	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	for ci := range carts {
		items := make([]domain.CartItem, len(carts[ci].Items))
		copy(items, carts[ci].Items)
		for ii := range items {
			items[ii].ProductName = names[items[ii].ProductID]
		}
		carts[ci].Items = items
	}
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Error(ctx, "cart cache invalidate failed", err)
	}
}

func (s *Service) logChange(ctx context.Context, event string, cart *domain.Cart) {
	ctx = s.logger.WithFields(ctx, map[string]any{
		"cart_id":     cart.ID,
		"user_id":     cart.UserID,
		"items":       len(cart.Items),
		"total_cents": cart.TotalCents,
		"version":     cart.Version,
	})
	s.logger.Info(ctx, event)
}

func (s *Service) record(op string, err error) {
	if err == nil {
		s.metrics.CartOp(op, "ok")
		return
	}
	s.metrics.CartOp(op, string(apperr.CodeOf(err)))
}

func versionConflict(cartID string) error {
	return apperr.Conflict("cart was modified by another request; reload it and retry").
		WithDetails(map[string]string{"cartId": cartID})
}
