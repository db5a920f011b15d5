package product

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"storefront-api/internal/apperr"
	"storefront-api/internal/domain"
	"storefront-api/internal/logger"
	"storefront-api/internal/money"
	productrepo "storefront-api/internal/repository/product"
	"storefront-api/internal/storage"
)

type categoryLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Category, error)
}

// Image is an uploaded file before it reaches the blob store.
type Image struct {
	Filename string
	Data     []byte
}

// Input mirrors the multipart form. Prices and stock arrive as raw strings;
// nil means the field was not sent.
type Input struct {
	Name        *string
	Description *string
	Price       *string
	Stock       *string
	CategoryID  *string
	Images      []Image
	// ExpectedImages is the client-declared file count; zero disables the check.
	ExpectedImages int
}

type Service struct {
	repo          productrepo.Repository
	categories    categoryLookup
	store         storage.ImageStore
	maxImageBytes int64
	logger        *logger.Logger
}

func New(repo productrepo.Repository, categories categoryLookup, store storage.ImageStore, maxImageBytes int64, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:          repo,
		categories:    categories,
		store:         store,
		maxImageBytes: maxImageBytes,
		logger:        log,
	}
}

func (s *Service) List(ctx context.Context, categoryID string) ([]domain.Product, error) {
	out, err := s.repo.List(ctx, categoryID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list products: %w", err))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapErr(err, "get product")
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, in Input) (*domain.Product, error) {
	name := strings.TrimSpace(deref(in.Name))
	if name == "" || in.Price == nil || in.Stock == nil {
		return nil, apperr.Validation("name, price and stock are required")
	}
	if strings.TrimSpace(deref(in.CategoryID)) == "" {
		return nil, apperr.Validation("category is required")
	}
	price, err := parsePrice(*in.Price)
	if err != nil {
		return nil, err
	}
	stock, err := parseStock(*in.Stock)
	if err != nil {
		return nil, err
	}
	if err := s.checkImages(in); err != nil {
		return nil, err
	}
	cat, err := s.category(ctx, strings.TrimSpace(*in.CategoryID))
	if err != nil {
		return nil, err
	}
	urls, err := s.upload(ctx, cat, in.Images)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.Create(ctx, domain.Product{
		Name:        name,
		Description: strings.TrimSpace(deref(in.Description)),
		PriceCents:  price,
		Stock:       stock,
		CategoryID:  cat.ID,
		Images:      urls,
	})
	if err != nil {
		return nil, mapErr(err, "create product")
	}
	s.logger.Info(s.logger.WithFields(ctx, map[string]any{"product_id": p.ID, "images": len(urls)}), "product.created")
	return p, nil
}

// Update applies a partial change. Images are replaced only when new files are sent.
func (s *Service) Update(ctx context.Context, id string, in Input) (*domain.Product, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapErr(err, "get product")
	}

	var upd productrepo.Update
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		upd.Name = &name
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		upd.Description = &desc
	}
	if in.Price != nil {
		price, err := parsePrice(*in.Price)
		if err != nil {
			return nil, err
		}
		upd.PriceCents = &price
	}
	if in.Stock != nil {
		stock, err := parseStock(*in.Stock)
		if err != nil {
			return nil, err
		}
		upd.Stock = &stock
	}
	if err := s.checkImages(in); err != nil {
		return nil, err
	}

	cat := &domain.Category{ID: current.CategoryID, Name: current.CategoryName}
	if in.CategoryID != nil && strings.TrimSpace(*in.CategoryID) != current.CategoryID {
		cat, err = s.category(ctx, strings.TrimSpace(*in.CategoryID))
		if err != nil {
			return nil, err
		}
		upd.CategoryID = &cat.ID
	}
	if len(in.Images) > 0 {
		urls, err := s.upload(ctx, cat, in.Images)
		if err != nil {
			return nil, err
		}
		upd.Images = urls
	}

	p, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		return nil, mapErr(err, "update product")
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapErr(err, "delete product")
	}
	s.logger.Info(s.logger.WithField(ctx, "product_id", id), "product.deleted")
	return nil
}

func (s *Service) checkImages(in Input) error {
	if in.ExpectedImages > 0 && len(in.Images) < in.ExpectedImages {
		return apperr.Validation(fmt.Sprintf("expected %d images, received %d", in.ExpectedImages, len(in.Images)))
	}
	for _, img := range in.Images {
		if s.maxImageBytes > 0 && int64(len(img.Data)) > s.maxImageBytes {
			return apperr.Validation(fmt.Sprintf("image %q exceeds %d bytes", img.Filename, s.maxImageBytes))
		}
		if _, _, err := storage.DetectImage(img.Data); err != nil {
			return apperr.Validation(fmt.Sprintf("file %q is not an image", img.Filename))
		}
	}
	return nil
}

func (s *Service) category(ctx context.Context, id string) (*domain.Category, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperr.NotFound("category not found")
		}
		return nil, apperr.Internal(fmt.Errorf("get category: %w", err))
	}
	return c, nil
}

func (s *Service) upload(ctx context.Context, cat *domain.Category, images []Image) ([]string, error) {
	if len(images) == 0 {
		return nil, nil
	}
	folder := storage.FolderName(cat.Name)
	urls := make([]string, 0, len(images))
	for _, img := range images {
		contentType, ext, err := storage.DetectImage(img.Data)
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("file %q is not an image", img.Filename))
		}
		url, err := s.store.Put(ctx, folder, storage.ObjectName(ext), contentType, img.Data)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("upload image: %w", err))
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func parsePrice(raw string) (int64, error) {
	cents, err := money.ParseCents(raw)
	if err != nil {
		return 0, apperr.Validation("invalid price").WithDetails(map[string]string{"price": err.Error()})
	}
	return cents, nil
}

func parseStock(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, apperr.Validation("stock must be a non-negative integer")
	}
	return n, nil
}

func mapErr(err error, op string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return apperr.NotFound("product not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		return apperr.Conflict("product name already exists")
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
