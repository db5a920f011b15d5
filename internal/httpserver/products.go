package httpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"storefront-api/internal/apperr"
	"storefront-api/internal/domain"
	"storefront-api/internal/logger"
	"storefront-api/internal/money"
	productsvc "storefront-api/internal/service/product"
)

const imagesField = "productImages"

type ProductService interface {
	List(ctx context.Context, categoryID string) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, in productsvc.Input) (*domain.Product, error)
	Update(ctx context.Context, id string, in productsvc.Input) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}

// productView adds the formatted price next to the cent amount.
type productView struct {
	domain.Product
	Price string `json:"price"`
}

func toProductView(p domain.Product) productView {
	if p.Images == nil {
		p.Images = []string{}
	}
	return productView{Product: p, Price: money.Format(p.PriceCents)}
}

type productHandler struct {
	svc            ProductService
	log            *logger.Logger
	maxUploadBytes int64
}

func (h *productHandler) list(c *gin.Context) {
	categoryID := strings.TrimSpace(c.Query("category"))
	if categoryID != "" {
		if _, err := uuid.Parse(categoryID); err != nil {
			writeError(c, h.log, apperr.Validation("category must be a UUID"))
			return
		}
	}
	out, err := h.svc.List(c.Request.Context(), categoryID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	views := make([]productView, 0, len(out))
	for _, p := range out {
		views = append(views, toProductView(p))
	}
	respond(c, http.StatusOK, "", views)
}

func (h *productHandler) get(c *gin.Context) {
	id, ok := pathID(c, h.log, "id", "product")
	if !ok {
		return
	}
	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", toProductView(*p))
}

func (h *productHandler) create(c *gin.Context) {
	in, err := h.readForm(c)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	p, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, "product created", toProductView(*p))
}

func (h *productHandler) update(c *gin.Context) {
	id, ok := pathID(c, h.log, "id", "product")
	if !ok {
		return
	}
	in, err := h.readForm(c)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	p, err := h.svc.Update(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "product updated", toProductView(*p))
}

func (h *productHandler) delete(c *gin.Context) {
	id, ok := pathID(c, h.log, "id", "product")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "product deleted", nil)
}

// readForm parses the multipart body. Absent fields stay nil so updates can be partial.
func (h *productHandler) readForm(c *gin.Context) (productsvc.Input, error) {
	var in productsvc.Input
	if raw := c.Query("imageCount"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return in, apperr.Validation("imageCount must be a non-negative integer")
		}
		in.ExpectedImages = n
	}

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return in, apperr.Validation("expected multipart/form-data")
		}
		return in, bindError(err)
	}

	in.Name = formValue(form, "name")
	in.Description = formValue(form, "description")
	in.Price = formValue(form, "price")
	in.Stock = formValue(form, "stock")
	in.CategoryID = formValue(form, "category")
	if in.CategoryID != nil {
		if _, err := uuid.Parse(strings.TrimSpace(*in.CategoryID)); err != nil {
			return in, apperr.NotFound("category not found")
		}
	}

	for _, fh := range form.File[imagesField] {
		data, err := readFile(fh)
		if err != nil {
			return in, apperr.Validation(fmt.Sprintf("cannot read file %q", fh.Filename))
		}
		in.Images = append(in.Images, productsvc.Image{Filename: fh.Filename, Data: data})
	}
	return in, nil
}

func formValue(form *multipart.Form, key string) *string {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
