package httpserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"storefront-api/internal/domain"
	"storefront-api/internal/logger"
	categorysvc "storefront-api/internal/service/category"
)

type CategoryService interface {
	List(ctx context.Context) ([]domain.Category, error)
	Get(ctx context.Context, id string) (*domain.Category, error)
	Create(ctx context.Context, in categorysvc.Input) (*domain.Category, error)
	Update(ctx context.Context, id string, in categorysvc.Input) (*domain.Category, error)
	Delete(ctx context.Context, id string) error
}

type categoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type categoryHandler struct {
	svc CategoryService
	log *logger.Logger
}

func (h *categoryHandler) list(c *gin.Context) {
	out, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", out)
}

func (h *categoryHandler) get(c *gin.Context) {
	id, ok := pathID(c, h.log, "id", "category")
	if !ok {
		return
	}
	out, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", out)
}

func (h *categoryHandler) create(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}
	out, err := h.svc.Create(c.Request.Context(), categorysvc.Input{Name: req.Name, Description: req.Description})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, "category created", out)
}

func (h *categoryHandler) update(c *gin.Context) {
	id, ok := pathID(c, h.log, "id", "category")
	if !ok {
		return
	}
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}
	out, err := h.svc.Update(c.Request.Context(), id, categorysvc.Input{Name: req.Name, Description: req.Description})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "category updated", out)
}

func (h *categoryHandler) delete(c *gin.Context) {
	id, ok := pathID(c, h.log, "id", "category")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "category deleted", nil)
}
